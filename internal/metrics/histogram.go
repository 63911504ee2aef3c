package metrics

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Histogram counts latencies into fixed buckets. Bounds are inclusive upper
// limits in microseconds and must be ascending; anything above the last bound
// lands in an implicit overflow bucket.
type Histogram struct {
	bounds []int64
	counts []atomic.Int64 // len(bounds)+1, last is overflow
	total  atomic.Int64
	sum    atomic.Int64 // microseconds
}

// NewHistogram returns a histogram over the given bounds (microseconds).
func NewHistogram(boundsMicros []int64) *Histogram {
	b := make([]int64, len(boundsMicros))
	copy(b, boundsMicros)
	return &Histogram{
		bounds: b,
		counts: make([]atomic.Int64, len(b)+1),
	}
}

// Observe records one measurement.
func (h *Histogram) Observe(d time.Duration) {
	micros := d.Microseconds()
	i := sort.Search(len(h.bounds), func(i int) bool { return micros <= h.bounds[i] })
	h.counts[i].Add(1)
	h.total.Add(1)
	h.sum.Add(micros)
}

// Since observes the time elapsed from start.
func (h *Histogram) Since(start time.Time) {
	h.Observe(time.Since(start))
}

// Snapshot is a point-in-time summary of a Histogram.
type Snapshot struct {
	Count  int64   `json:"count"`
	MeanMs float64 `json:"mean_ms"`
	P50Ms  float64 `json:"p50_ms"`
	P95Ms  float64 `json:"p95_ms"`
	P99Ms  float64 `json:"p99_ms"`
}

// Snapshot summarizes the histogram. Percentiles report the upper bound of
// the bucket holding them; the overflow bucket reports the last bound.
func (h *Histogram) Snapshot() Snapshot {
	total := h.total.Load()
	if total == 0 {
		return Snapshot{}
	}
	counts := make([]int64, len(h.counts))
	for i := range h.counts {
		counts[i] = h.counts[i].Load()
	}
	return Snapshot{
		Count:  total,
		MeanMs: float64(h.sum.Load()) / float64(total) / 1000,
		P50Ms:  h.percentile(counts, total, 50),
		P95Ms:  h.percentile(counts, total, 95),
		P99Ms:  h.percentile(counts, total, 99),
	}
}

func (h *Histogram) percentile(counts []int64, total int64, p int) float64 {
	target := int64(math.Ceil(float64(total) * float64(p) / 100))
	var cum int64
	for i, c := range counts {
		cum += c
		if cum < target {
			continue
		}
		if i >= len(h.bounds) {
			i = len(h.bounds) - 1
		}
		if i < 0 {
			return 0
		}
		return float64(h.bounds[i]) / 1000
	}
	return 0
}

// Counter is a monotonically increasing count.
type Counter struct {
	n atomic.Int64
}

// Inc adds one.
func (c *Counter) Inc() { c.n.Add(1) }

// Add adds delta.
func (c *Counter) Add(delta int64) { c.n.Add(delta) }

// Value returns the current count.
func (c *Counter) Value() int64 { return c.n.Load() }

// Registry holds named histograms and counters.
type Registry struct {
	mu       sync.RWMutex
	hists    map[string]*Histogram
	counters map[string]*Counter
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		hists:    make(map[string]*Histogram),
		counters: make(map[string]*Counter),
	}
}

// Histogram returns the histogram registered under name, creating it with
// bounds on first use.
func (r *Registry) Histogram(name string, bounds []int64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.hists[name]; ok {
		return h
	}
	h := NewHistogram(bounds)
	r.hists[name] = h
	return h
}

// Counter returns the counter registered under name, creating it on first use.
func (r *Registry) Counter(name string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.counters[name]; ok {
		return c
	}
	c := &Counter{}
	r.counters[name] = c
	return c
}

// Report is the JSON shape served on /metrics.
type Report struct {
	Latency  map[string]Snapshot `json:"latency"`
	Counters map[string]int64    `json:"counters"`
}

// Report snapshots everything registered.
func (r *Registry) Report() Report {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rep := Report{
		Latency:  make(map[string]Snapshot, len(r.hists)),
		Counters: make(map[string]int64, len(r.counters)),
	}
	for name, h := range r.hists {
		rep.Latency[name] = h.Snapshot()
	}
	for name, c := range r.counters {
		rep.Counters[name] = c.Value()
	}
	return rep
}

// BucketsLookup suits in-memory catalog and cart operations.
var BucketsLookup = []int64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

// BucketsRemote suits calls that leave the process (index queries, notifier).
var BucketsRemote = []int64{1000, 5000, 10000, 25000, 50000, 100000, 250000, 500000, 1000000, 5000000}
