package handler

import (
	"context"
	"errors"

	"github.com/fekuna/affiliate-catalog-service/internal/classifier"
	"github.com/fekuna/affiliate-catalog-service/internal/grpcutil"
	"github.com/fekuna/affiliate-catalog-service/internal/logger"
	"github.com/fekuna/affiliate-catalog-service/internal/middleware"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const ServiceName = "affiliate.classifier.v1.ClassifierService"

// ClassifierServer is the server API of ServiceName. Requests carry the raw
// product name.
type ClassifierServer interface {
	Classify(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	Explain(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ClassifierServer)(nil),
	Methods: []grpc.MethodDesc{
		grpcutil.UnaryMethod(ServiceName, "Classify", ClassifierServer.Classify),
		grpcutil.UnaryMethod(ServiceName, "Explain", ClassifierServer.Explain),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "affiliate/classifier/v1/classifier.proto",
}

func RegisterClassifierServer(s grpc.ServiceRegistrar, srv ClassifierServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ClassifierClient calls ServiceName over an established connection.
type ClassifierClient struct {
	cc grpc.ClientConnInterface
}

func NewClassifierClient(cc grpc.ClientConnInterface) *ClassifierClient {
	return &ClassifierClient{cc: cc}
}

func (c *ClassifierClient) Classify(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/Classify", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ClassifierClient) Explain(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/Explain", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Classifier is the subset of *classifier.Classifier the handler serves.
type Classifier interface {
	Classify(ctx context.Context, productName string) (*int64, error)
	Explain(ctx context.Context, productName string) ([]classifier.CategoryScore, error)
}

type ClassifierHandler struct {
	uc     Classifier
	logger logger.ZapLogger
}

func NewClassifierHandler(uc Classifier, log logger.ZapLogger) *ClassifierHandler {
	return &ClassifierHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *ClassifierHandler) Classify(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	categoryID, err := h.uc.Classify(ctx, req.GetValue())
	if err != nil {
		return nil, h.mapError(ctx, err)
	}

	fields := map[string]any{
		"category_id": nil,
		"matched":     categoryID != nil,
	}
	if categoryID != nil {
		fields["category_id"] = *categoryID
	}

	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (h *ClassifierHandler) Explain(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	scores, err := h.uc.Explain(ctx, req.GetValue())
	if err != nil {
		return nil, h.mapError(ctx, err)
	}

	list := make([]any, 0, len(scores))
	for _, s := range scores {
		matched := make([]any, len(s.Matched))
		for i, m := range s.Matched {
			matched[i] = m
		}
		list = append(list, map[string]any{
			"category_id": s.CategoryID,
			"name":        s.Name,
			"score":       s.Score,
			"matched":     matched,
		})
	}

	out, err := structpb.NewStruct(map[string]any{"scores": list})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (h *ClassifierHandler) mapError(ctx context.Context, err error) error {
	if errors.Is(err, classifier.ErrEmptyProductName) {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	h.logger.Error("classifier call failed",
		zap.String("request_id", middleware.RequestID(ctx)),
		zap.Error(err),
	)
	return status.Error(codes.Internal, err.Error())
}
