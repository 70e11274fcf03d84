package purchase

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/propdesk/internal/config"
	"github.com/Additional-Code/propdesk/internal/messaging"
	"github.com/Additional-Code/propdesk/internal/ordernumber"
	purchasesvc "github.com/Additional-Code/propdesk/internal/service/purchase"
	"github.com/Additional-Code/propdesk/internal/worker"
)

var workerTracer = otel.Tracer("github.com/Additional-Code/propdesk/worker/purchase")

// Module registers purchase-related worker handlers.
var Module = fx.Module("worker_purchase",
	fx.Provide(
		fx.Annotate(
			NewPurchaseCreatedHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewPurchaseCreatedHandler audits purchase-created events. Purchases whose
// order number came from the degraded range are logged at warn level so
// operators can tell allocator degradation apart from business gaps.
func NewPurchaseCreatedHandler(logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: purchaseCreatedHandler(logger),
	}
}

func purchaseCreatedHandler(logger *zap.Logger) messaging.Handler {
	return func(ctx context.Context, msg messaging.Message) error {
		_, span := workerTracer.Start(ctx, "worker.purchases.process", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		if event := msg.Headers["event"]; event != "" && event != purchasesvc.EventPurchaseCreated {
			logger.Debug("skipping unrelated event", zap.String("event", event))
			return nil
		}

		var event purchasesvc.PurchaseCreatedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return fmt.Errorf("decode purchase created: %w", err)
		}

		fields := []zap.Field{
			zap.Int64("id", event.ID),
			zap.Int64("order_number", event.OrderNumber),
			zap.String("product", event.Product),
			zap.Int64("amount_cents", event.AmountCents),
			zap.String("currency", event.Currency),
		}
		if event.Degraded || ordernumber.IsDegraded(event.OrderNumber) {
			span.SetAttributes(attribute.Bool("purchase.order_number_degraded", true))
			logger.Warn("purchase recorded with degraded order number", fields...)
			return nil
		}
		logger.Info("purchase created event processed", fields...)
		return nil
	}
}
