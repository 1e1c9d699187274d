package observability

import "sync"

// Metrics provides counter and gauge recording primitives.
type Metrics interface {
	IncCounter(name string, value float64, labels map[string]string)
	SetGauge(name string, value float64, labels map[string]string)
}

var defaultMetrics Metrics = noopMetrics{}

// SetMetrics overrides the global metrics implementation used by the connector.
func SetMetrics(metrics Metrics) {
	if metrics == nil {
		defaultMetrics = noopMetrics{}
		return
	}
	defaultMetrics = metrics
}

// Telemetry returns the current global metrics collector.
func Telemetry() Metrics {
	return defaultMetrics
}

type noopMetrics struct{}

func (noopMetrics) IncCounter(string, float64, map[string]string) {}
func (noopMetrics) SetGauge(string, float64, map[string]string)   {}

// ReconMetricsSnapshot captures reconciliation-focused runtime counters.
type ReconMetricsSnapshot struct {
	OrderUpdatesApplied int64 `json:"order_updates_applied"`
	DuplicateFills      int64 `json:"duplicate_fills"`
	ForcedCompletions   int64 `json:"forced_completions"`
	UnknownOrderUpdates int64 `json:"unknown_order_updates"`
	PollFailures        int64 `json:"poll_failures"`
}

// RuntimeMetrics accumulates reconciliation metrics in-memory for periodic export.
type RuntimeMetrics struct {
	mu    sync.Mutex
	recon ReconMetricsSnapshot
}

// NewRuntimeMetrics constructs a zeroed metrics accumulator.
func NewRuntimeMetrics() *RuntimeMetrics {
	return new(RuntimeMetrics)
}

// RecordOrderUpdateApplied increments the applied order-update counter.
func (m *RuntimeMetrics) RecordOrderUpdateApplied() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recon.OrderUpdatesApplied++
}

// RecordDuplicateFill increments the duplicate trade-id counter.
func (m *RuntimeMetrics) RecordDuplicateFill() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recon.DuplicateFills++
}

// RecordForcedCompletion increments the fill-implied-completion counter.
func (m *RuntimeMetrics) RecordForcedCompletion() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recon.ForcedCompletions++
}

// RecordUnknownOrderUpdate increments the counter for updates without a tracked order.
func (m *RuntimeMetrics) RecordUnknownOrderUpdate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recon.UnknownOrderUpdates++
}

// RecordPollFailure increments the polling transport-failure counter.
func (m *RuntimeMetrics) RecordPollFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recon.PollFailures++
}

// Snapshot copies the current reconciliation metrics state for reporting.
func (m *RuntimeMetrics) Snapshot() ReconMetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recon
}
