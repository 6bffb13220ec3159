package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/fekuna/affiliate-catalog-service/internal/grpcutil"
	"github.com/fekuna/affiliate-catalog-service/internal/logger"
	"github.com/fekuna/affiliate-catalog-service/internal/middleware"
	"github.com/fekuna/affiliate-catalog-service/internal/product"
	"github.com/fekuna/affiliate-catalog-service/internal/product/dto"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "affiliate.catalog.v1.ProductService"

// ProductServer is the server API of ServiceName.
type ProductServer interface {
	GetProduct(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error)
	ListProducts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ImportProducts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ReclassifyUncategorized(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	CategoryCounts(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

var _ ProductServer = (*ProductHandler)(nil)

type ProductHandler struct {
	uc     product.UseCase
	logger logger.ZapLogger
}

func NewProductHandler(uc product.UseCase, log logger.ZapLogger) *ProductHandler {
	return &ProductHandler{
		uc:     uc,
		logger: log,
	}
}

func RegisterProductServer(s grpc.ServiceRegistrar, h *ProductHandler) {
	s.RegisterService(&ServiceDesc, h)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ProductServer)(nil),
	Methods: []grpc.MethodDesc{
		grpcutil.UnaryMethod(ServiceName, "GetProduct", (*ProductHandler).GetProduct),
		grpcutil.UnaryMethod(ServiceName, "ListProducts", (*ProductHandler).ListProducts),
		grpcutil.UnaryMethod(ServiceName, "ImportProducts", (*ProductHandler).ImportProducts),
		grpcutil.UnaryMethod(ServiceName, "ReclassifyUncategorized", (*ProductHandler).ReclassifyUncategorized),
		grpcutil.UnaryMethod(ServiceName, "CategoryCounts", (*ProductHandler).CategoryCounts),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "affiliate/catalog/v1/product.proto",
}

func (h *ProductHandler) GetProduct(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	p, err := h.uc.GetProduct(ctx, req.GetValue())
	if err != nil {
		return nil, h.mapError(ctx, "failed to get product", err)
	}
	return grpcutil.ToStruct(p)
}

type listRequest struct {
	CategoryID    *int64 `json:"category_id"`
	Uncategorized bool   `json:"uncategorized"`
	IsActive      *bool  `json:"is_active"`
	Query         string `json:"query"`
	SortBy        string `json:"sort_by"`
	SortOrder     string `json:"sort_order"`
	Page          int    `json:"page"`
	PageSize      int    `json:"page_size"`
}

func (h *ProductHandler) ListProducts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in listRequest
	if err := grpcutil.FromStruct(req, &in); err != nil {
		return nil, err
	}

	products, count, err := h.uc.ListProducts(ctx, &dto.ProductFilters{
		CategoryID:    in.CategoryID,
		Uncategorized: in.Uncategorized,
		IsActive:      in.IsActive,
		SearchQuery:   in.Query,
		SortBy:        in.SortBy,
		SortOrder:     in.SortOrder,
		Page:          in.Page,
		PageSize:      in.PageSize,
	})
	if err != nil {
		return nil, h.mapError(ctx, "failed to list products", err)
	}

	return grpcutil.ToStruct(map[string]any{
		"products":  products,
		"total":     count,
		"page":      in.Page,
		"page_size": in.PageSize,
	})
}

func (h *ProductHandler) ImportProducts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in struct {
		Items []dto.CreateProductInput `json:"items"`
	}
	if err := grpcutil.FromStruct(req, &in); err != nil {
		return nil, err
	}

	report, err := h.uc.ImportProducts(ctx, in.Items)
	if err != nil {
		return nil, h.mapError(ctx, "failed to import products", err)
	}
	return grpcutil.ToStruct(report)
}

func (h *ProductHandler) ReclassifyUncategorized(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	report, err := h.uc.ReclassifyUncategorized(ctx)
	if err != nil {
		return nil, h.mapError(ctx, "failed to reclassify products", err)
	}
	return grpcutil.ToStruct(report)
}

func (h *ProductHandler) CategoryCounts(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	counts, err := h.uc.CategoryCounts(ctx)
	if err != nil {
		return nil, h.mapError(ctx, "failed to count products", err)
	}

	out := make(map[string]any, len(counts))
	for id, n := range counts {
		out[strconv.FormatInt(id, 10)] = n
	}
	return structpb.NewStruct(map[string]any{"counts": out})
}

func (h *ProductHandler) mapError(ctx context.Context, msg string, err error) error {
	switch {
	case errors.Is(err, product.ErrProductNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, product.ErrInvalidProduct), errors.Is(err, product.ErrNegativePrice):
		return status.Error(codes.InvalidArgument, err.Error())
	}
	h.logger.Error(msg, zap.String("request_id", middleware.RequestID(ctx)), zap.Error(err))
	return status.Error(codes.Internal, err.Error())
}
