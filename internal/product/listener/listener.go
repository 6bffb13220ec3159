package listener

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fekuna/affiliate-catalog-service/internal/broker"
	"github.com/fekuna/affiliate-catalog-service/internal/logger"
	"github.com/fekuna/affiliate-catalog-service/internal/product"
	"github.com/fekuna/affiliate-catalog-service/internal/product/dto"
	"go.uber.org/zap"
)

const EventProductImported = "ProductImported"

type ImportListener struct {
	consumer broker.MessageReader
	uc       product.UseCase
	logger   logger.ZapLogger

	retryDelay time.Duration
}

func NewImportListener(consumer broker.MessageReader, uc product.UseCase, logger logger.ZapLogger) *ImportListener {
	return &ImportListener{
		consumer:   consumer,
		uc:         uc,
		logger:     logger,
		retryDelay: time.Second,
	}
}

// Start blocks until ctx is cancelled.
func (l *ImportListener) Start(ctx context.Context) {
	l.logger.Info("Starting product import listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping product import listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(l.retryDelay):
				}
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

type ProductImportedEvent struct {
	EventID   string                 `json:"event_id"`
	EventType string                 `json:"event_type"`
	Payload   ProductImportedPayload `json:"payload"`
	Timestamp time.Time              `json:"timestamp"`
}

type ProductImportedPayload struct {
	Source string                   `json:"source"`
	Items  []dto.CreateProductInput `json:"items"`
}

func (l *ImportListener) processMessage(ctx context.Context, value []byte) {
	var event ProductImportedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}

	if event.EventType != EventProductImported {
		return
	}

	l.logger.Info("Processing ProductImported event",
		zap.String("event_id", event.EventID),
		zap.Int("items", len(event.Payload.Items)),
	)

	report, err := l.uc.ImportProducts(ctx, event.Payload.Items)
	if err != nil {
		l.logger.Error("Failed to import products",
			zap.String("event_id", event.EventID),
			zap.Error(err),
		)
		return
	}

	if report.Failed > 0 {
		l.logger.Warn("Some imported products were rejected",
			zap.String("event_id", event.EventID),
			zap.String("batch_id", report.BatchID),
			zap.Int("failed", report.Failed),
		)
	}
}
