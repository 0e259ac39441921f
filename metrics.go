package zoctree

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus.
type MetricsCollector interface {
	// RecordInsert is called after each insert operation.
	// duration is the total time taken, err is nil if successful.
	RecordInsert(duration time.Duration, err error)

	// RecordDelete is called after each delete operation.
	RecordDelete(duration time.Duration, err error)

	// RecordUpdate is called after each update operation.
	RecordUpdate(duration time.Duration, err error)

	// RecordRangeQuery is called after each range or radius query.
	// matched is the number of entries returned.
	RecordRangeQuery(matched int, duration time.Duration, err error)

	// RecordNearest is called after each nearest-neighbor query.
	// k is the number of neighbors requested.
	RecordNearest(k int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordInsert(time.Duration, error)          {}
func (NoopMetricsCollector) RecordDelete(time.Duration, error)          {}
func (NoopMetricsCollector) RecordUpdate(time.Duration, error)          {}
func (NoopMetricsCollector) RecordRangeQuery(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordNearest(int, time.Duration, error)    {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	InsertCount      atomic.Int64
	InsertErrors     atomic.Int64
	InsertTotalNanos atomic.Int64
	DeleteCount      atomic.Int64
	DeleteErrors     atomic.Int64
	UpdateCount      atomic.Int64
	UpdateErrors     atomic.Int64
	RangeQueryCount  atomic.Int64
	RangeQueryErrors atomic.Int64
	RangeMatched     atomic.Int64
	NearestCount     atomic.Int64
	NearestErrors    atomic.Int64
	NearestTotalK    atomic.Int64
}

// RecordInsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordInsert(duration time.Duration, err error) {
	b.InsertCount.Add(1)
	b.InsertTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.InsertErrors.Add(1)
	}
}

// RecordDelete implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDelete(duration time.Duration, err error) {
	b.DeleteCount.Add(1)
	if err != nil {
		b.DeleteErrors.Add(1)
	}
}

// RecordUpdate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUpdate(duration time.Duration, err error) {
	b.UpdateCount.Add(1)
	if err != nil {
		b.UpdateErrors.Add(1)
	}
}

// RecordRangeQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRangeQuery(matched int, duration time.Duration, err error) {
	b.RangeQueryCount.Add(1)
	b.RangeMatched.Add(int64(matched))
	if err != nil {
		b.RangeQueryErrors.Add(1)
	}
}

// RecordNearest implements MetricsCollector.
func (b *BasicMetricsCollector) RecordNearest(k int, duration time.Duration, err error) {
	b.NearestCount.Add(1)
	b.NearestTotalK.Add(int64(k))
	if err != nil {
		b.NearestErrors.Add(1)
	}
}
