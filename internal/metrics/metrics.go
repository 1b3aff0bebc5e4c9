package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated registry served on /metrics.
	Registry = prometheus.NewRegistry()

	// SyncRuns counts sync runs by channel and outcome.
	SyncRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sync_runs_total", Help: "Sync runs by channel and outcome."},
		[]string{"channel", "outcome"},
	)
	// OrdersWritten counts canonical orders upserted per channel.
	OrdersWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_written_total", Help: "Orders upserted per channel."},
		[]string{"channel"},
	)
	// ItemsWritten counts canonical items upserted per channel.
	ItemsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "items_written_total", Help: "Order items upserted per channel."},
		[]string{"channel"},
	)
	// OrdersDeleted counts orders purged by the cancellation flow.
	OrdersDeleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_deleted_total", Help: "Orders deleted by the cancellation purge."},
		[]string{"channel"},
	)
	// SyncDuration tracks run durations in seconds.
	SyncDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "sync_duration_seconds", Help: "Sync run duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"channel"},
	)
)

var regOnce sync.Once

// RegisterDefault registers the collectors on the dedicated registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(SyncRuns)
		Registry.MustRegister(OrdersWritten)
		Registry.MustRegister(ItemsWritten)
		Registry.MustRegister(OrdersDeleted)
		Registry.MustRegister(SyncDuration)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}
