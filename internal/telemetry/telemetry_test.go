package telemetry

import (
	"testing"
	"time"
)

func TestRecorderBounded(t *testing.T) {
	r := NewRecorder(5, DefaultBudgets())

	for i := 0; i < 12; i++ {
		r.Record(Cycle{TileFetch: time.Duration(i) * time.Millisecond})
		if r.Len() > 5 {
			t.Fatalf("recorder grew to %d after cycle %d, bound is 5", r.Len(), i)
		}
	}
	if r.Len() != 5 {
		t.Errorf("Len = %d, expected 5", r.Len())
	}

	// Only the newest five cycles remain: fetch times 7..11 ms.
	s := r.Stats()
	if want := 9 * time.Millisecond; s.MeanFetch != want {
		t.Errorf("MeanFetch = %v, expected %v", s.MeanFetch, want)
	}
}

func TestRecorderDefaultCapacity(t *testing.T) {
	r := NewRecorder(0, DefaultBudgets())
	for i := 0; i < 60; i++ {
		r.Record(Cycle{})
	}
	if r.Len() != 50 {
		t.Errorf("Len = %d, expected default capacity 50", r.Len())
	}
}

func TestStatsEmpty(t *testing.T) {
	r := NewRecorder(10, DefaultBudgets())
	if s := r.Stats(); s.Cycles != 0 {
		t.Errorf("empty recorder Stats.Cycles = %d", s.Cycles)
	}
}

func TestStats(t *testing.T) {
	r := NewRecorder(10, DefaultBudgets())
	r.Record(Cycle{TileFetch: 100 * time.Millisecond, Extraction: 50 * time.Millisecond, Render: 10 * time.Millisecond, CacheHit: true, TreeCount: 20})
	r.Record(Cycle{TileFetch: 200 * time.Millisecond, Extraction: 70 * time.Millisecond, Render: 10 * time.Millisecond, TreeCount: 40})

	s := r.Stats()
	if s.Cycles != 2 {
		t.Fatalf("Cycles = %d, expected 2", s.Cycles)
	}
	if s.CacheHitRate != 0.5 {
		t.Errorf("CacheHitRate = %v, expected 0.5", s.CacheHitRate)
	}
	if want := 150 * time.Millisecond; s.MeanFetch != want {
		t.Errorf("MeanFetch = %v, expected %v", s.MeanFetch, want)
	}
	if want := 220 * time.Millisecond; s.MeanTotal != want {
		t.Errorf("MeanTotal = %v, expected %v", s.MeanTotal, want)
	}
	if s.MeanTreeCount != 30 {
		t.Errorf("MeanTreeCount = %v, expected 30", s.MeanTreeCount)
	}
	if s.P95Fetch < s.MeanFetch {
		t.Errorf("P95Fetch %v below the mean %v", s.P95Fetch, s.MeanFetch)
	}
}

func TestCycleTotal(t *testing.T) {
	c := Cycle{TileFetch: time.Second, Extraction: 300 * time.Millisecond, Render: 50 * time.Millisecond}
	if want := 1350 * time.Millisecond; c.Total() != want {
		t.Errorf("Total = %v, expected %v", c.Total(), want)
	}
}

func TestCheckBudgets(t *testing.T) {
	t.Run("within budget", func(t *testing.T) {
		r := NewRecorder(10, DefaultBudgets())
		for i := 0; i < 10; i++ {
			r.Record(Cycle{TileFetch: 500 * time.Millisecond, Extraction: 100 * time.Millisecond, Render: 20 * time.Millisecond})
		}
		report := r.CheckBudgets()
		if !report.Pass || !report.TotalOK || !report.TileFetchOK || !report.ExtractionOK {
			t.Errorf("expected pass, got %+v", report)
		}
	})

	t.Run("slow fetch fails", func(t *testing.T) {
		r := NewRecorder(10, DefaultBudgets())
		for i := 0; i < 10; i++ {
			r.Record(Cycle{TileFetch: 2500 * time.Millisecond, Extraction: 100 * time.Millisecond})
		}
		report := r.CheckBudgets()
		if report.TileFetchOK {
			t.Error("fetch beyond budget should fail")
		}
		if report.Pass {
			t.Error("overall report should fail")
		}
	})

	t.Run("slow extraction fails", func(t *testing.T) {
		r := NewRecorder(10, DefaultBudgets())
		for i := 0; i < 10; i++ {
			r.Record(Cycle{TileFetch: 100 * time.Millisecond, Extraction: 800 * time.Millisecond})
		}
		report := r.CheckBudgets()
		if report.ExtractionOK {
			t.Error("extraction beyond budget should fail")
		}
		if report.TileFetchOK {
			t.Error("fetch within budget should pass")
		}
	})
}
