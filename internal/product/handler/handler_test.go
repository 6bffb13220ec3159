package handler

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/fekuna/affiliate-catalog-service/internal/logger"
	"github.com/fekuna/affiliate-catalog-service/internal/model"
	"github.com/fekuna/affiliate-catalog-service/internal/product"
	"github.com/fekuna/affiliate-catalog-service/internal/product/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type fakeUseCase struct {
	product.UseCase

	filters *dto.ProductFilters
	items   []dto.CreateProductInput
	err     error
}

func (f *fakeUseCase) GetProduct(_ context.Context, id int64) (*model.Product, error) {
	if id != 41 {
		return nil, product.ErrProductNotFound
	}
	categoryID := int64(2)
	return &model.Product{
		BaseModel:  model.BaseModel{ID: 41},
		ItemID:     "987",
		Name:       "iPhone case",
		Price:      decimal.RequireFromString("129.5"),
		CategoryID: &categoryID,
		IsActive:   true,
	}, nil
}

func (f *fakeUseCase) ListProducts(_ context.Context, filters *dto.ProductFilters) ([]model.Product, int, error) {
	f.filters = filters
	return []model.Product{{BaseModel: model.BaseModel{ID: 1}, Name: "cat bed"}}, 7, f.err
}

func (f *fakeUseCase) ImportProducts(_ context.Context, items []dto.CreateProductInput) (*dto.ImportReport, error) {
	f.items = items
	return &dto.ImportReport{BatchID: "b-1", Created: len(items)}, nil
}

func (f *fakeUseCase) ReclassifyUncategorized(context.Context) (*dto.ReclassifyReport, error) {
	return &dto.ReclassifyReport{Scanned: 3, Categorized: 2}, nil
}

func (f *fakeUseCase) CategoryCounts(context.Context) (map[int64]int, error) {
	return map[int64]int{1: 4, 2: 9}, nil
}

func dial(t *testing.T, uc product.UseCase) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterProductServer(srv, NewProductHandler(uc, logger.NewNop()))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func invoke(conn *grpc.ClientConn, method string, in any) (*structpb.Struct, error) {
	out := &structpb.Struct{}
	err := conn.Invoke(context.Background(), "/"+ServiceName+"/"+method, in, out)
	return out, err
}

func TestGetProduct(t *testing.T) {
	conn := dial(t, &fakeUseCase{})

	out, err := invoke(conn, "GetProduct", wrapperspb.Int64(41))
	require.NoError(t, err)

	fields := out.AsMap()
	assert.Equal(t, "987", fields["item_id"])
	assert.Equal(t, "129.5", fields["price"])
	assert.Equal(t, float64(2), fields["category_id"])

	_, err = invoke(conn, "GetProduct", wrapperspb.Int64(1))
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestListProducts(t *testing.T) {
	uc := &fakeUseCase{}
	conn := dial(t, uc)

	req, err := structpb.NewStruct(map[string]any{
		"category_id": 2,
		"is_active":   true,
		"query":       "case",
		"page":        2,
		"page_size":   10,
	})
	require.NoError(t, err)

	out, err := invoke(conn, "ListProducts", req)
	require.NoError(t, err)

	assert.Equal(t, float64(7), out.AsMap()["total"])
	require.NotNil(t, uc.filters.CategoryID)
	assert.Equal(t, int64(2), *uc.filters.CategoryID)
	require.NotNil(t, uc.filters.IsActive)
	assert.True(t, *uc.filters.IsActive)
	assert.Equal(t, "case", uc.filters.SearchQuery)
	assert.Equal(t, 2, uc.filters.Page)

	uc.err = errors.New("db down")
	_, err = invoke(conn, "ListProducts", req)
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestImportProducts(t *testing.T) {
	uc := &fakeUseCase{}
	conn := dial(t, uc)

	req, err := structpb.NewStruct(map[string]any{
		"items": []any{
			map[string]any{"item_id": "987", "name": "iPhone case", "price": "129.50"},
			map[string]any{"item_id": "988", "name": "cat bed", "price": 89, "category_id": 1},
		},
	})
	require.NoError(t, err)

	out, err := invoke(conn, "ImportProducts", req)
	require.NoError(t, err)

	assert.Equal(t, "b-1", out.AsMap()["batch_id"])
	assert.Equal(t, float64(2), out.AsMap()["created"])
	require.Len(t, uc.items, 2)
	assert.True(t, uc.items[0].Price.Equal(decimal.RequireFromString("129.5")))
	require.NotNil(t, uc.items[1].CategoryID)
	assert.Equal(t, int64(1), *uc.items[1].CategoryID)
}

func TestReclassifyAndCounts(t *testing.T) {
	conn := dial(t, &fakeUseCase{})

	out, err := invoke(conn, "ReclassifyUncategorized", &emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, float64(2), out.AsMap()["categorized"])

	out, err = invoke(conn, "CategoryCounts", &emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"1": float64(4), "2": float64(9)}, out.AsMap()["counts"])
}
