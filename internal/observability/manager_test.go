package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/Additional-Code/propdesk/internal/config"
)

func TestPrometheusMetricsHandlerServesCounters(t *testing.T) {
	mgr, err := newManager(context.Background(), config.Observability{
		ServiceName:     "propdesk-test",
		ServiceVersion:  "test",
		EnableMetrics:   true,
		MetricsExporter: "prometheus",
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("newManager: %v", err)
	}
	t.Cleanup(func() { _ = mgr.Shutdown(context.Background()) })

	if mgr.TracingEnabled() {
		t.Fatal("tracing should be off")
	}
	if !mgr.MetricsEnabled() || mgr.MetricsHandler() == nil {
		t.Fatal("expected prometheus metrics")
	}

	counter, err := mgr.meterProvider.Meter("test").Int64Counter("order_number.allocations")
	if err != nil {
		t.Fatalf("counter: %v", err)
	}
	counter.Add(context.Background(), 2, metric.WithAttributes())

	rec := httptest.NewRecorder()
	mgr.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "order_number_allocations") {
		t.Fatalf("counter missing from scrape:\n%s", rec.Body.String())
	}
}

func TestUnknownExportersDisableProviders(t *testing.T) {
	mgr, err := newManager(context.Background(), config.Observability{
		ServiceName:     "propdesk-test",
		EnableTracing:   true,
		TraceExporter:   "zipkin",
		EnableMetrics:   true,
		MetricsExporter: "statsd",
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("newManager: %v", err)
	}
	if mgr.TracingEnabled() || mgr.MetricsEnabled() {
		t.Fatal("unknown exporters should leave providers off")
	}
	if err := mgr.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}
