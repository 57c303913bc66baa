// Package observability provides OpenTelemetry metric instruments for the
// identity kit's stores.
//
// Instruments are created against the globally registered meter provider;
// when the host process installs no provider the instruments are no-ops, so
// the stores can record unconditionally.
package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/authweave/idkit"

// StoreMetrics holds the instruments shared by the state store and the
// persistence adapters.
type StoreMetrics struct {
	Hits      metric.Int64Counter
	Misses    metric.Int64Counter
	Expired   metric.Int64Counter
	Evicted   metric.Int64Counter
	Consumed  metric.Int64Counter
	Revoked   metric.Int64Counter
	SweptKeys metric.Int64Counter
}

// NewStoreMetrics creates the store instruments from the global meter.
func NewStoreMetrics() (*StoreMetrics, error) {
	meter := otel.Meter(meterName)
	m := &StoreMetrics{}

	var err error
	m.Hits, err = meter.Int64Counter(
		"idkit.store.hits",
		metric.WithDescription("Number of store reads that found a live record"),
		metric.WithUnit("{read}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create store.hits counter: %w", err)
	}

	m.Misses, err = meter.Int64Counter(
		"idkit.store.misses",
		metric.WithDescription("Number of store reads that found nothing"),
		metric.WithUnit("{read}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create store.misses counter: %w", err)
	}

	m.Expired, err = meter.Int64Counter(
		"idkit.store.expired",
		metric.WithDescription("Number of records dropped because their TTL passed"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create store.expired counter: %w", err)
	}

	m.Evicted, err = meter.Int64Counter(
		"idkit.store.evicted",
		metric.WithDescription("Number of records evicted by the capacity policy"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create store.evicted counter: %w", err)
	}

	m.Consumed, err = meter.Int64Counter(
		"idkit.store.consumed",
		metric.WithDescription("Number of one-time records consumed"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create store.consumed counter: %w", err)
	}

	m.Revoked, err = meter.Int64Counter(
		"idkit.store.revoked",
		metric.WithDescription("Number of records removed by grant revocation"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create store.revoked counter: %w", err)
	}

	m.SweptKeys, err = meter.Int64Counter(
		"idkit.store.swept",
		metric.WithDescription("Number of records removed by the background sweep"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create store.swept counter: %w", err)
	}

	return m, nil
}

// Add increments a counter with a backend attribute, tolerating a nil
// receiver so stores can run without metrics wired.
func (m *StoreMetrics) Add(ctx context.Context, counter metric.Int64Counter, n int64, backend string) {
	if m == nil || counter == nil {
		return
	}
	counter.Add(ctx, n, metric.WithAttributes(attribute.String("backend", backend)))
}
