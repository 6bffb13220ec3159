package listener

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fekuna/affiliate-catalog-service/internal/logger"
	"github.com/fekuna/affiliate-catalog-service/internal/product"
	"github.com/fekuna/affiliate-catalog-service/internal/product/dto"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader hands out queued messages, then blocks until ctx is done.
type fakeReader struct {
	mu   sync.Mutex
	msgs []kafka.Message
	errs []error
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		r.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(r.msgs) > 0 {
		msg := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()

	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) Close() error { return nil }

type fakeUseCase struct {
	product.UseCase

	mu      sync.Mutex
	batches [][]dto.CreateProductInput
	done    chan struct{}
}

func (f *fakeUseCase) ImportProducts(_ context.Context, items []dto.CreateProductInput) (*dto.ImportReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, items)
	f.done <- struct{}{}
	return &dto.ImportReport{Created: len(items)}, nil
}

func TestImportListener(t *testing.T) {
	reader := &fakeReader{
		errs: []error{errors.New("broker unavailable")},
		msgs: []kafka.Message{
			{Value: []byte(`not json`)},
			{Value: []byte(`{"event_type":"PriceChanged","payload":{"items":[{"item_id":"1","name":"x"}]}}`)},
			{Value: []byte(`{"event_id":"evt-1","event_type":"ProductImported","payload":{"source":"shopee","items":[
				{"item_id":"987","shop_id":"55","name":"iPhone case","price":"129.50","affiliate_url":"https://s.shopee.co.th/x"},
				{"item_id":"988","name":"cat bed","price":89}
			]}}`)},
		},
	}
	uc := &fakeUseCase{done: make(chan struct{}, 1)}
	l := NewImportListener(reader, uc, logger.NewNop())
	l.retryDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		l.Start(ctx)
		close(stopped)
	}()

	select {
	case <-uc.done:
	case <-time.After(2 * time.Second):
		t.Fatal("import was never called")
	}
	cancel()
	<-stopped

	uc.mu.Lock()
	defer uc.mu.Unlock()
	require.Len(t, uc.batches, 1)
	items := uc.batches[0]
	require.Len(t, items, 2)
	assert.Equal(t, "987", items[0].ItemID)
	assert.Equal(t, "129.5", items[0].Price.String())
	assert.Nil(t, items[0].CategoryID)
	assert.Equal(t, "89", items[1].Price.String())
}
