// Package metrics provides application-level metrics collection.
// This is a lightweight metrics foundation using atomic counters.
package metrics

import (
	"sync/atomic"
	"time"
)

// Metrics holds application metrics using atomic counters for thread safety.
type Metrics struct {
	// Directory metrics
	walletsCreated   atomic.Int64
	walletHits       atomic.Int64
	lookupsTotal     atomic.Int64
	lookupMisses     atomic.Int64
	walletsDeleted   atomic.Int64
	storageErrors    atomic.Int64
	corruptLines     atomic.Int64
	airaIDsBackfilled atomic.Int64

	// HTTP metrics
	httpRequestsTotal atomic.Int64
	httpErrorsTotal   atomic.Int64
	httpRateLimited   atomic.Int64
	httpLatencyNanos  atomic.Int64
}

// Global is the global metrics instance.
// Use this for recording metrics throughout the application.
//
//nolint:gochecknoglobals // Intentional global for metrics access
var Global = &Metrics{}

// RecordCreate records a GetOrCreate call that generated a new record.
func (m *Metrics) RecordCreate() {
	m.walletsCreated.Add(1)
}

// RecordHit records a GetOrCreate call answered by an existing record.
func (m *Metrics) RecordHit() {
	m.walletHits.Add(1)
}

// RecordLookup records a Lookup call and whether it found a record.
func (m *Metrics) RecordLookup(found bool) {
	m.lookupsTotal.Add(1)
	if !found {
		m.lookupMisses.Add(1)
	}
}

// RecordDelete records a Delete call that removed a record.
func (m *Metrics) RecordDelete() {
	m.walletsDeleted.Add(1)
}

// RecordStorageError records a failed store read or write.
func (m *Metrics) RecordStorageError() {
	m.storageErrors.Add(1)
}

// RecordCorruptLines records n malformed lines skipped during a load.
func (m *Metrics) RecordCorruptLines(n int) {
	if n > 0 {
		m.corruptLines.Add(int64(n))
	}
}

// RecordBackfill records n AIRA IDs assigned to legacy records.
func (m *Metrics) RecordBackfill(n int) {
	if n > 0 {
		m.airaIDsBackfilled.Add(int64(n))
	}
}

// RecordHTTPRequest records a served request with its status and duration.
func (m *Metrics) RecordHTTPRequest(status int, duration time.Duration) {
	m.httpRequestsTotal.Add(1)
	m.httpLatencyNanos.Add(duration.Nanoseconds())
	if status >= 500 {
		m.httpErrorsTotal.Add(1)
	}
}

// RecordRateLimited records a request rejected by the rate limiter.
func (m *Metrics) RecordRateLimited() {
	m.httpRateLimited.Add(1)
}

// Snapshot is a point-in-time copy of all metrics.
type Snapshot struct {
	WalletsCreated    int64   `json:"walletsCreated"`
	WalletHits        int64   `json:"walletHits"`
	LookupsTotal      int64   `json:"lookupsTotal"`
	LookupMisses      int64   `json:"lookupMisses"`
	WalletsDeleted    int64   `json:"walletsDeleted"`
	StorageErrors     int64   `json:"storageErrors"`
	CorruptLines      int64   `json:"corruptLines"`
	AiraIDsBackfilled int64   `json:"airaIdsBackfilled"`
	HTTPRequestsTotal int64   `json:"httpRequestsTotal"`
	HTTPErrorsTotal   int64   `json:"httpErrorsTotal"`
	HTTPRateLimited   int64   `json:"httpRateLimited"`
	HTTPLatencyAvgMs  float64 `json:"httpLatencyAvgMs"`
}

// Snapshot returns a point-in-time copy of all metrics.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		WalletsCreated:    m.walletsCreated.Load(),
		WalletHits:        m.walletHits.Load(),
		LookupsTotal:      m.lookupsTotal.Load(),
		LookupMisses:      m.lookupMisses.Load(),
		WalletsDeleted:    m.walletsDeleted.Load(),
		StorageErrors:     m.storageErrors.Load(),
		CorruptLines:      m.corruptLines.Load(),
		AiraIDsBackfilled: m.airaIDsBackfilled.Load(),
		HTTPRequestsTotal: m.httpRequestsTotal.Load(),
		HTTPErrorsTotal:   m.httpErrorsTotal.Load(),
		HTTPRateLimited:   m.httpRateLimited.Load(),
		HTTPLatencyAvgMs:  m.HTTPLatencyAvgMs(),
	}
}

// HTTPLatencyAvgMs returns the average request latency in milliseconds.
// Returns 0 if no requests have been served.
func (m *Metrics) HTTPLatencyAvgMs() float64 {
	reqs := m.httpRequestsTotal.Load()
	if reqs == 0 {
		return 0
	}
	nanos := m.httpLatencyNanos.Load()
	return float64(nanos) / float64(reqs) / 1e6
}

// HitRate returns the share of GetOrCreate calls answered by an existing
// record, as a percentage (0-100).
// Returns 0 if no GetOrCreate calls have occurred.
func (m *Metrics) HitRate() float64 {
	hits := m.walletHits.Load()
	total := hits + m.walletsCreated.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// Reset resets all metrics to zero.
// Useful for testing.
func (m *Metrics) Reset() {
	m.walletsCreated.Store(0)
	m.walletHits.Store(0)
	m.lookupsTotal.Store(0)
	m.lookupMisses.Store(0)
	m.walletsDeleted.Store(0)
	m.storageErrors.Store(0)
	m.corruptLines.Store(0)
	m.airaIDsBackfilled.Store(0)
	m.httpRequestsTotal.Store(0)
	m.httpErrorsTotal.Store(0)
	m.httpRateLimited.Store(0)
	m.httpLatencyNanos.Store(0)
}
