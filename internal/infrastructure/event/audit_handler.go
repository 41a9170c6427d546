package event

import (
	"context"
	"fmt"

	"github.com/erp/production/internal/domain/shared"
	"github.com/erp/production/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// OrderAuditHandler writes every production order event to the log as an
// audit line carrying the event's JSON payload.
type OrderAuditHandler struct {
	serializer *EventSerializer
	logger     *zap.Logger
}

func NewOrderAuditHandler(serializer *EventSerializer, logger *zap.Logger) *OrderAuditHandler {
	return &OrderAuditHandler{serializer: serializer, logger: logger.Named("audit")}
}

// EventTypes subscribes to every known production order event.
func (h *OrderAuditHandler) EventTypes() []string {
	return h.serializer.RegisteredTypes()
}

// Handle logs one audit line. The event's actor wins over the request's.
func (h *OrderAuditHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	payload, err := h.serializer.Serialize(event)
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", event.EventType(), err)
	}
	ctx = logger.WithOrderNo(ctx, event.AggregateID())
	if actor := event.ActedBy(); actor != "" {
		ctx = logger.WithActorID(ctx, actor)
	}
	logger.WithLogger(ctx, h.logger).Info("production order event",
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
		zap.ByteString("payload", payload),
	)
	return nil
}

var _ shared.EventHandler = (*OrderAuditHandler)(nil)
