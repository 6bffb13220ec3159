package handler

import (
	"context"
	"errors"

	"github.com/fekuna/affiliate-catalog-service/internal/category"
	"github.com/fekuna/affiliate-catalog-service/internal/category/dto"
	"github.com/fekuna/affiliate-catalog-service/internal/grpcutil"
	"github.com/fekuna/affiliate-catalog-service/internal/keyword"
	kwdto "github.com/fekuna/affiliate-catalog-service/internal/keyword/dto"
	"github.com/fekuna/affiliate-catalog-service/internal/logger"
	"github.com/fekuna/affiliate-catalog-service/internal/middleware"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "affiliate.catalog.v1.CategoryService"

// CategoryServer is the server API of ServiceName. It covers categories and
// the keywords registered under them.
type CategoryServer interface {
	CreateCategory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetCategory(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error)
	ListCategories(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	UpdateCategory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	SetCategoryActive(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	DeleteCategory(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error)

	AddKeywords(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RemoveKeyword(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListKeywords(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error)
	SetKeywordPriority(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var _ CategoryServer = (*CategoryHandler)(nil)

type CategoryHandler struct {
	uc       category.UseCase
	keywords keyword.UseCase
	logger   logger.ZapLogger
}

func NewCategoryHandler(uc category.UseCase, keywords keyword.UseCase, log logger.ZapLogger) *CategoryHandler {
	return &CategoryHandler{
		uc:       uc,
		keywords: keywords,
		logger:   log,
	}
}

func RegisterCategoryServer(s grpc.ServiceRegistrar, h *CategoryHandler) {
	s.RegisterService(&ServiceDesc, h)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CategoryServer)(nil),
	Methods: []grpc.MethodDesc{
		grpcutil.UnaryMethod(ServiceName, "CreateCategory", (*CategoryHandler).CreateCategory),
		grpcutil.UnaryMethod(ServiceName, "GetCategory", (*CategoryHandler).GetCategory),
		grpcutil.UnaryMethod(ServiceName, "ListCategories", (*CategoryHandler).ListCategories),
		grpcutil.UnaryMethod(ServiceName, "UpdateCategory", (*CategoryHandler).UpdateCategory),
		grpcutil.UnaryMethod(ServiceName, "SetCategoryActive", (*CategoryHandler).SetCategoryActive),
		grpcutil.UnaryMethod(ServiceName, "DeleteCategory", (*CategoryHandler).DeleteCategory),
		grpcutil.UnaryMethod(ServiceName, "AddKeywords", (*CategoryHandler).AddKeywords),
		grpcutil.UnaryMethod(ServiceName, "RemoveKeyword", (*CategoryHandler).RemoveKeyword),
		grpcutil.UnaryMethod(ServiceName, "ListKeywords", (*CategoryHandler).ListKeywords),
		grpcutil.UnaryMethod(ServiceName, "SetKeywordPriority", (*CategoryHandler).SetKeywordPriority),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "affiliate/catalog/v1/category.proto",
}

func (h *CategoryHandler) CreateCategory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in dto.CreateCategoryInput
	if err := grpcutil.FromStruct(req, &in); err != nil {
		return nil, err
	}

	c, err := h.uc.CreateCategory(ctx, &in)
	if err != nil {
		return nil, h.mapError(ctx, "failed to create category", err)
	}
	return grpcutil.ToStruct(c)
}

func (h *CategoryHandler) GetCategory(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	c, err := h.uc.GetCategory(ctx, req.GetValue())
	if err != nil {
		return nil, h.mapError(ctx, "failed to get category", err)
	}
	return grpcutil.ToStruct(c)
}

func (h *CategoryHandler) ListCategories(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in dto.CategoryFilters
	if err := grpcutil.FromStruct(req, &in); err != nil {
		return nil, err
	}

	categories, count, err := h.uc.ListCategories(ctx, &in)
	if err != nil {
		return nil, h.mapError(ctx, "failed to list categories", err)
	}
	return grpcutil.ToStruct(map[string]any{
		"categories": categories,
		"total":      count,
		"page":       in.Page,
		"page_size":  in.PageSize,
	})
}

func (h *CategoryHandler) UpdateCategory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in dto.UpdateCategoryInput
	if err := grpcutil.FromStruct(req, &in); err != nil {
		return nil, err
	}

	c, err := h.uc.UpdateCategory(ctx, &in)
	if err != nil {
		return nil, h.mapError(ctx, "failed to update category", err)
	}
	return grpcutil.ToStruct(c)
}

func (h *CategoryHandler) SetCategoryActive(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in struct {
		ID       int64 `json:"id"`
		IsActive bool  `json:"is_active"`
	}
	if err := grpcutil.FromStruct(req, &in); err != nil {
		return nil, err
	}

	c, err := h.uc.SetActive(ctx, in.ID, in.IsActive)
	if err != nil {
		return nil, h.mapError(ctx, "failed to toggle category", err)
	}
	return grpcutil.ToStruct(c)
}

func (h *CategoryHandler) DeleteCategory(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	if err := h.uc.DeleteCategory(ctx, req.GetValue()); err != nil {
		return nil, h.mapError(ctx, "failed to delete category", err)
	}
	return &structpb.Struct{}, nil
}

func (h *CategoryHandler) AddKeywords(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in kwdto.AddKeywordsInput
	if err := grpcutil.FromStruct(req, &in); err != nil {
		return nil, err
	}

	n, err := h.keywords.AddKeywords(ctx, &in)
	if err != nil {
		return nil, h.mapError(ctx, "failed to add keywords", err)
	}
	return structpb.NewStruct(map[string]any{"inserted": n})
}

type keywordRequest struct {
	CategoryID   int64  `json:"category_id"`
	Keyword      string `json:"keyword"`
	HighPriority bool   `json:"high_priority"`
}

func (h *CategoryHandler) RemoveKeyword(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in keywordRequest
	if err := grpcutil.FromStruct(req, &in); err != nil {
		return nil, err
	}

	if err := h.keywords.RemoveKeyword(ctx, in.CategoryID, in.Keyword); err != nil {
		return nil, h.mapError(ctx, "failed to remove keyword", err)
	}
	return &structpb.Struct{}, nil
}

func (h *CategoryHandler) ListKeywords(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	keywords, err := h.keywords.ListKeywords(ctx, req.GetValue())
	if err != nil {
		return nil, h.mapError(ctx, "failed to list keywords", err)
	}
	return grpcutil.ToStruct(map[string]any{"keywords": keywords})
}

func (h *CategoryHandler) SetKeywordPriority(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var in keywordRequest
	if err := grpcutil.FromStruct(req, &in); err != nil {
		return nil, err
	}

	if err := h.keywords.SetHighPriority(ctx, in.CategoryID, in.Keyword, in.HighPriority); err != nil {
		return nil, h.mapError(ctx, "failed to set keyword priority", err)
	}
	return &structpb.Struct{}, nil
}

func (h *CategoryHandler) mapError(ctx context.Context, msg string, err error) error {
	switch {
	case errors.Is(err, category.ErrCategoryNotFound), errors.Is(err, keyword.ErrKeywordNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, category.ErrInvalidName), errors.Is(err, keyword.ErrEmptyKeyword):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, category.ErrDuplicateName):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, category.ErrCategoryInUse):
		return status.Error(codes.FailedPrecondition, err.Error())
	}
	h.logger.Error(msg, zap.String("request_id", middleware.RequestID(ctx)), zap.Error(err))
	return status.Error(codes.Internal, err.Error())
}

