package adapters

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/dejobratic/storefront/internal/checkout/adapters/memory"
	"github.com/dejobratic/storefront/internal/checkout/domain"
	"github.com/dejobratic/storefront/internal/checkout/ports"
	"github.com/dejobratic/storefront/internal/database"
	"github.com/dejobratic/storefront/internal/events"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTracing(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp)))
	t.Cleanup(func() { otel.SetTracerProvider(previous) })
	return exp
}

func newDBMetrics(t *testing.T) (*database.Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	m, err := database.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() failed: %v", err)
	}
	return m, reader
}

func spanNamed(t *testing.T, exp *tracetest.InMemoryExporter, name string) tracetest.SpanStub {
	t.Helper()
	for _, s := range exp.GetSpans() {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("span %q not found", name)
	return tracetest.SpanStub{}
}

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	err := store.Products().Save(context.Background(), domain.Product{
		ID: "p1", Name: "Widget", Category: "tools", Price: decimal.NewFromInt(3), Stock: 2,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return store
}

func TestObservableStockStore(t *testing.T) {
	exp := setupTracing(t)
	m, reader := newDBMetrics(t)
	stock := NewObservableStockStore(seededStore(t).Stock(), m)
	ctx := context.Background()

	if ok, err := stock.Decrement(ctx, "p1", 5); err != nil || ok {
		t.Fatalf("expected refused decrement, got ok=%v err=%v", ok, err)
	}
	if err := stock.Increment(ctx, "ghost", 1); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	for _, s := range exp.GetSpans() {
		if s.Status.Code == codes.Error {
			t.Errorf("expected control-flow outcomes not to mark %s as error", s.Name)
		}
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	hist := rm.ScopeMetrics[0].Metrics[0].Data.(metricdata.Histogram[float64])
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	if count != 2 {
		t.Errorf("expected 2 recorded queries, got %d", count)
	}
}

type brokenOrders struct{ ports.OrderRepository }

func (brokenOrders) Create(context.Context, domain.Order) error {
	return errors.New("connection reset")
}

func TestObservableOrderRepositoryRecordsFailures(t *testing.T) {
	exp := setupTracing(t)
	m, _ := newDBMetrics(t)
	repo := NewObservableOrderRepository(brokenOrders{}, m)

	if err := repo.Create(context.Background(), domain.Order{ID: "o1"}); err == nil {
		t.Fatal("expected error")
	}

	var errored bool
	for _, s := range exp.GetSpans() {
		errored = errored || s.Status.Code == codes.Error
	}
	if !errored {
		t.Error("expected infrastructure failure to mark the span as error")
	}
}

func TestObservableTransactorWrapsInnerStores(t *testing.T) {
	exp := setupTracing(t)
	m, _ := newDBMetrics(t)
	store := seededStore(t)
	tx := NewObservableTransactor(store, m)

	err := tx.WithinTx(context.Background(), func(ctx context.Context, stores ports.Stores) error {
		if _, ok := stores.Stock.(*ObservableStockStore); !ok {
			t.Errorf("expected observable stock store inside the transaction, got %T", stores.Stock)
		}
		_, err := stores.Stock.Decrement(ctx, "p1", 1)
		return err
	})
	if err != nil {
		t.Fatalf("WithinTx() failed: %v", err)
	}

	txSpan := spanNamed(t, exp, "Transactor.WithinTx")
	var nested bool
	for _, s := range exp.GetSpans() {
		if s.Parent.SpanID() == txSpan.SpanContext.SpanID() {
			nested = true
		}
	}
	if !nested {
		t.Error("expected store spans to be children of the transaction span")
	}
}

type failingBus struct{ ports.EventBus }

func (failingBus) PublishOrderPlaced(context.Context, string) error {
	return errors.New("broker unavailable")
}

func TestObservableEventBus(t *testing.T) {
	exp := setupTracing(t)
	reader := sdkmetric.NewManualReader()
	m, err := events.NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() failed: %v", err)
	}
	ctx := context.Background()

	ok := NewObservableEventBus(events.NewLogBus(slog.New(slog.NewTextHandler(io.Discard, nil))), m)
	if err := ok.PublishPaymentApplied(ctx, "o1", "payment.succeeded"); err != nil {
		t.Fatalf("PublishPaymentApplied() failed: %v", err)
	}
	if s := spanNamed(t, exp, "EventBus.PublishPaymentApplied"); s.Status.Code != codes.Ok {
		t.Errorf("expected Ok status, got %v", s.Status.Code)
	}

	broken := NewObservableEventBus(failingBus{}, m)
	if err := broken.PublishOrderPlaced(ctx, "o1"); err == nil {
		t.Fatal("expected publish error")
	}
	if s := spanNamed(t, exp, "EventBus.PublishOrderPlaced"); s.Status.Code != codes.Error {
		t.Errorf("expected Error status, got %v", s.Status.Code)
	}
}
