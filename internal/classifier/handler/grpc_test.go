package handler

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/fekuna/affiliate-catalog-service/internal/classifier"
	"github.com/fekuna/affiliate-catalog-service/internal/logger"
	"github.com/fekuna/affiliate-catalog-service/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type fakeClassifier struct {
	ids        map[string]int64
	scores     []classifier.CategoryScore
	err        error
	requestIDs []string
}

func (f *fakeClassifier) Classify(ctx context.Context, name string) (*int64, error) {
	f.requestIDs = append(f.requestIDs, middleware.RequestID(ctx))
	if name == "" {
		return nil, classifier.ErrEmptyProductName
	}
	if f.err != nil {
		return nil, f.err
	}
	if id, ok := f.ids[name]; ok {
		return &id, nil
	}
	return nil, nil
}

func (f *fakeClassifier) Explain(_ context.Context, name string) ([]classifier.CategoryScore, error) {
	if name == "" {
		return nil, classifier.ErrEmptyProductName
	}
	return f.scores, f.err
}

func startServer(t *testing.T, fake *fakeClassifier, log logger.ZapLogger) *ClassifierClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(middleware.ContextInterceptor(log)))
	RegisterClassifierServer(srv, NewClassifierHandler(fake, log))
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

	return NewClassifierClient(conn)
}

func TestClassify(t *testing.T) {
	fake := &fakeClassifier{ids: map[string]int64{"iPhone 15 case": 2}}
	client := startServer(t, fake, logger.NewNop())
	ctx := context.Background()

	t.Run("match", func(t *testing.T) {
		out, err := client.Classify(ctx, wrapperspb.String("iPhone 15 case"))
		require.NoError(t, err)

		fields := out.AsMap()
		assert.Equal(t, true, fields["matched"])
		assert.Equal(t, float64(2), fields["category_id"])
	})

	t.Run("no match", func(t *testing.T) {
		out, err := client.Classify(ctx, wrapperspb.String("garden hose"))
		require.NoError(t, err)

		fields := out.AsMap()
		assert.Equal(t, false, fields["matched"])
		assert.Contains(t, fields, "category_id")
		assert.Nil(t, fields["category_id"])
	})

	t.Run("blank name", func(t *testing.T) {
		_, err := client.Classify(ctx, wrapperspb.String(""))
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})
}

func TestClassify_InternalError(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	fake := &fakeClassifier{err: errors.New("boom")}
	client := startServer(t, fake, logger.Wrap(zap.New(core)))

	_, err := client.Classify(context.Background(), wrapperspb.String("anything"))

	assert.Equal(t, codes.Internal, status.Code(err))
	assert.Equal(t, 1, logs.FilterMessage("classifier call failed").Len())
}

func TestExplain(t *testing.T) {
	fake := &fakeClassifier{scores: []classifier.CategoryScore{
		{CategoryID: 2, Name: "Mobile", Score: 19, Matched: []string{"phone", "case"}},
		{CategoryID: 1, Name: "Pets", Score: 1, Matched: []string{"cat"}},
	}}
	client := startServer(t, fake, logger.NewNop())

	out, err := client.Explain(context.Background(), wrapperspb.String("concatenate new phone case"))
	require.NoError(t, err)

	scores, ok := out.AsMap()["scores"].([]any)
	require.True(t, ok)
	require.Len(t, scores, 2)

	first := scores[0].(map[string]any)
	assert.Equal(t, float64(2), first["category_id"])
	assert.Equal(t, "Mobile", first["name"])
	assert.Equal(t, float64(19), first["score"])
	assert.Equal(t, []any{"phone", "case"}, first["matched"])

	_, err = client.Explain(context.Background(), wrapperspb.String(""))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestRequestIDPropagation(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	fake := &fakeClassifier{}
	client := startServer(t, fake, logger.Wrap(zap.New(core)))

	t.Run("caller supplied", func(t *testing.T) {
		ctx := metadata.AppendToOutgoingContext(context.Background(), middleware.RequestIDHeader, "req-123")
		var header metadata.MD

		_, err := client.Classify(ctx, wrapperspb.String("x"), grpc.Header(&header))
		require.NoError(t, err)

		assert.Equal(t, []string{"req-123"}, header.Get(middleware.RequestIDHeader))
		assert.Equal(t, "req-123", fake.requestIDs[len(fake.requestIDs)-1])
	})

	t.Run("generated", func(t *testing.T) {
		var header metadata.MD

		_, err := client.Classify(context.Background(), wrapperspb.String("x"), grpc.Header(&header))
		require.NoError(t, err)

		got := header.Get(middleware.RequestIDHeader)
		require.Len(t, got, 1)
		assert.Len(t, got[0], 36)
		assert.Equal(t, got[0], fake.requestIDs[len(fake.requestIDs)-1])
	})

	entries := logs.FilterMessage("grpc call").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "/"+ServiceName+"/Classify", entries[0].ContextMap()["method"])
	assert.Equal(t, "OK", entries[0].ContextMap()["code"])
}

type staticServer struct {
	ClassifierServer
}

func (staticServer) Classify(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"category_id": 9, "matched": true})
}

func TestServiceDesc(t *testing.T) {
	names := make([]string, 0, len(ServiceDesc.Methods))
	for _, m := range ServiceDesc.Methods {
		names = append(names, m.MethodName)
	}
	assert.Equal(t, []string{"Classify", "Explain"}, names)

	// Any ClassifierServer can be registered, not only *ClassifierHandler.
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterClassifierServer(srv, staticServer{})
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

	out, err := NewClassifierClient(conn).Classify(context.Background(), wrapperspb.String("anything"))
	require.NoError(t, err)
	assert.Equal(t, float64(9), out.GetFields()["category_id"].GetNumberValue())
}
