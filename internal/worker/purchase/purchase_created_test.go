package purchase

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Additional-Code/propdesk/internal/config"
	"github.com/Additional-Code/propdesk/internal/messaging"
)

func newObservedHandler() (messaging.Handler, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return purchaseCreatedHandler(zap.New(core)), logs
}

func TestHandlerLogsRegularPurchase(t *testing.T) {
	handler, logs := newObservedHandler()

	err := handler(context.Background(), messaging.Message{
		Topic:   "purchases.events",
		Value:   []byte(`{"id":1,"order_number":100000,"product":"challenge-50k"}`),
		Headers: map[string]string{"event": "purchase.created"},
	})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	entries := logs.FilterMessage("purchase created event processed").All()
	if len(entries) != 1 || entries[0].Level != zapcore.InfoLevel {
		t.Fatalf("entries = %+v", logs.All())
	}
}

func TestHandlerWarnsOnDegradedNumber(t *testing.T) {
	handler, logs := newObservedHandler()

	// Older producers may omit the flag; the range alone is enough.
	err := handler(context.Background(), messaging.Message{Value: []byte(`{"id":2,"order_number":9000123}`)})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	entries := logs.FilterMessage("purchase recorded with degraded order number").All()
	if len(entries) != 1 || entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("entries = %+v", logs.All())
	}
}

func TestHandlerRejectsMalformedPayload(t *testing.T) {
	handler, _ := newObservedHandler()

	if err := handler(context.Background(), messaging.Message{Value: []byte("{")}); err == nil {
		t.Fatal("expected decode error so the message stays uncommitted")
	}
}

func TestHandlerSkipsOtherEvents(t *testing.T) {
	handler, logs := newObservedHandler()

	err := handler(context.Background(), messaging.Message{
		Value:   []byte("not json"),
		Headers: map[string]string{"event": "purchase.refunded"},
	})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if logs.FilterMessage("skipping unrelated event").Len() != 1 {
		t.Fatalf("entries = %+v", logs.All())
	}
}

func TestRegistrationUsesConfiguredTopic(t *testing.T) {
	cfg := config.Config{Messaging: config.Messaging{Kafka: config.Kafka{Topic: "purchases.events"}}}

	reg := NewPurchaseCreatedHandler(zap.NewNop(), cfg)
	if reg.Topic != "purchases.events" || reg.Handler == nil {
		t.Fatalf("registration = %+v", reg)
	}
}
