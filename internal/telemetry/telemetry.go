// Package telemetry records per-cycle detection timings in a bounded ring
// buffer and checks them against fixed performance budgets. It observes the
// pipeline; nothing in the pipeline depends on it.
package telemetry

import (
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Cycle is one detection cycle's worth of measurements.
type Cycle struct {
	TileFetch    time.Duration `json:"tileFetchMs"`
	CacheHit     bool          `json:"cacheHit"`
	Extraction   time.Duration `json:"extractionMs"`
	TreeCount    int           `json:"treeCount"`
	RasterPixels int           `json:"rasterPixels"`
	Render       time.Duration `json:"renderMs"`
	RecordedAt   time.Time     `json:"recordedAt"`
}

// Total is the end-to-end duration of the cycle.
func (c Cycle) Total() time.Duration {
	return c.TileFetch + c.Extraction + c.Render
}

// Budgets are the per-stage limits a healthy detection cycle stays under.
type Budgets struct {
	Total      time.Duration
	TileFetch  time.Duration
	Extraction time.Duration
}

// DefaultBudgets returns the fixed performance budgets.
func DefaultBudgets() Budgets {
	return Budgets{
		Total:      3 * time.Second,
		TileFetch:  2 * time.Second,
		Extraction: 500 * time.Millisecond,
	}
}

// Stats summarizes the recorded cycles.
type Stats struct {
	Cycles        int           `json:"cycles"`
	CacheHitRate  float64       `json:"cacheHitRate"`
	MeanTotal     time.Duration `json:"meanTotalMs"`
	P95Total      time.Duration `json:"p95TotalMs"`
	MeanFetch     time.Duration `json:"meanFetchMs"`
	P95Fetch      time.Duration `json:"p95FetchMs"`
	MeanExtract   time.Duration `json:"meanExtractMs"`
	P95Extract    time.Duration `json:"p95ExtractMs"`
	MeanTreeCount float64       `json:"meanTreeCount"`
}

// BudgetReport is the pass/fail check of p95 timings against budgets.
type BudgetReport struct {
	TotalOK      bool `json:"totalOk"`
	TileFetchOK  bool `json:"tileFetchOk"`
	ExtractionOK bool `json:"extractionOk"`
	Pass         bool `json:"pass"`
}

const defaultCapacity = 50

// Recorder keeps the last N cycles in a circular buffer. It is an injected
// dependency, not a package singleton, so tests get fresh instances.
type Recorder struct {
	mu      sync.RWMutex
	budgets Budgets
	cycles  []Cycle
	next    int
	filled  bool
}

// NewRecorder creates a Recorder holding up to capacity cycles
// (the default 50 when capacity <= 0).
func NewRecorder(capacity int, budgets Budgets) *Recorder {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Recorder{
		budgets: budgets,
		cycles:  make([]Cycle, capacity),
	}
}

// Record appends a cycle, overwriting the oldest once full.
func (r *Recorder) Record(c Cycle) {
	if c.RecordedAt.IsZero() {
		c.RecordedAt = time.Now()
	}
	r.mu.Lock()
	r.cycles[r.next] = c
	r.next++
	if r.next == len(r.cycles) {
		r.next = 0
		r.filled = true
	}
	r.mu.Unlock()
}

// snapshot copies the recorded cycles, oldest first.
func (r *Recorder) snapshot() []Cycle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.filled {
		out := make([]Cycle, r.next)
		copy(out, r.cycles[:r.next])
		return out
	}
	out := make([]Cycle, 0, len(r.cycles))
	out = append(out, r.cycles[r.next:]...)
	out = append(out, r.cycles[:r.next]...)
	return out
}

// Len returns the number of recorded cycles.
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.filled {
		return len(r.cycles)
	}
	return r.next
}

// Stats computes aggregate and p95 statistics over the recorded cycles.
func (r *Recorder) Stats() Stats {
	cycles := r.snapshot()
	if len(cycles) == 0 {
		return Stats{}
	}

	n := len(cycles)
	totals := make([]float64, n)
	fetches := make([]float64, n)
	extracts := make([]float64, n)
	hits := 0
	treeSum := 0

	for i, c := range cycles {
		totals[i] = float64(c.Total())
		fetches[i] = float64(c.TileFetch)
		extracts[i] = float64(c.Extraction)
		if c.CacheHit {
			hits++
		}
		treeSum += c.TreeCount
	}

	return Stats{
		Cycles:        n,
		CacheHitRate:  float64(hits) / float64(n),
		MeanTotal:     time.Duration(stat.Mean(totals, nil)),
		P95Total:      percentile(totals, 0.95),
		MeanFetch:     time.Duration(stat.Mean(fetches, nil)),
		P95Fetch:      percentile(fetches, 0.95),
		MeanExtract:   time.Duration(stat.Mean(extracts, nil)),
		P95Extract:    percentile(extracts, 0.95),
		MeanTreeCount: float64(treeSum) / float64(n),
	}
}

// CheckBudgets compares p95 timings against the configured budgets.
func (r *Recorder) CheckBudgets() BudgetReport {
	s := r.Stats()
	report := BudgetReport{
		TotalOK:      s.P95Total <= r.budgets.Total,
		TileFetchOK:  s.P95Fetch <= r.budgets.TileFetch,
		ExtractionOK: s.P95Extract <= r.budgets.Extraction,
	}
	report.Pass = report.TotalOK && report.TileFetchOK && report.ExtractionOK
	return report
}

func percentile(values []float64, p float64) time.Duration {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return time.Duration(stat.Quantile(p, stat.Empirical, sorted, nil))
}
