package messaging

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/Additional-Code/propdesk/internal/config"
)

func TestFromKafkaCopiesPayloadAndHeaders(t *testing.T) {
	key := []byte("purchase-1")
	value := []byte(`{"id":1}`)
	msg := kafka.Message{
		Topic:   "purchases.events",
		Key:     key,
		Value:   value,
		Offset:  7,
		Time:    time.Unix(1700000000, 0),
		Headers: []kafka.Header{{Key: "event", Value: []byte("purchase.created")}},
	}

	got := fromKafka(msg)
	key[0] = 'X'
	value[0] = 'X'

	if !bytes.Equal(got.Key, []byte("purchase-1")) || !bytes.Equal(got.Value, []byte(`{"id":1}`)) {
		t.Fatalf("payload aliased the kafka buffers: %q %q", got.Key, got.Value)
	}
	if got.Headers["event"] != "purchase.created" || got.Offset != 7 || got.Topic != "purchases.events" {
		t.Fatalf("unexpected message: %+v", got)
	}
}

func TestFromKafkaWithoutHeaders(t *testing.T) {
	if got := fromKafka(kafka.Message{}); got.Headers != nil {
		t.Fatalf("headers = %v, want nil", got.Headers)
	}
}

func TestNewClientDisabledIsNoop(t *testing.T) {
	cfg := config.Config{Messaging: config.Messaging{Enabled: false, Kafka: config.Kafka{Topic: "purchases.events"}}}

	client, err := NewClient(fxtest.NewLifecycle(t), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if client.Topic() != "purchases.events" {
		t.Fatalf("topic = %q", client.Topic())
	}
	if err := client.Publish(context.Background(), nil, nil, nil); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.Consume(ctx, func(context.Context, Message) error { return nil }); err == nil {
		t.Fatal("Consume should return once ctx is done")
	}
}

func TestTraceContextTravelsInHeaders(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x4b, 0xf9, 0x2f, 0x35, 0x77, 0xb3, 0x4d, 0xa6, 0xa3, 0xce, 0x92, 0x9d, 0x0e, 0x0e, 0x47, 0x36},
		SpanID:     trace.SpanID{0x00, 0xf0, 0x67, 0xaa, 0x0b, 0xa9, 0x02, 0xb7},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	headers := map[string]string{"event": "purchase.created"}
	out := injectTrace(ctx, headers)
	if _, ok := headers["traceparent"]; ok {
		t.Fatal("injectTrace mutated the caller's headers")
	}
	if out["traceparent"] == "" || out["event"] != "purchase.created" {
		t.Fatalf("headers = %v", out)
	}

	msg := fromKafka(toKafka([]byte("purchase-1"), nil, out))
	got := trace.SpanContextFromContext(extractTrace(context.Background(), msg))
	if got.TraceID() != sc.TraceID() || !got.IsRemote() {
		t.Fatalf("extracted span context = %+v", got)
	}
}
