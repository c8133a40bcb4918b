package models

import (
	"testing"
	"time"
)

func TestRunStatsAdd(t *testing.T) {
	var s RunStats
	for _, src := range []SummarySource{SourceCache, SourceGenerated, SourceGenerated, SourcePlaceholder, SourceError} {
		s.Add(src)
	}
	want := RunStats{Rows: 5, CacheHits: 1, Generated: 2, Placeholders: 1, Failures: 1}
	if s != want {
		t.Errorf("expected %+v, got %+v", want, s)
	}
}

func TestRunRecordDuration(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := RunRecord{StartedAt: start, FinishedAt: start.Add(90 * time.Second)}
	if r.Duration() != 90*time.Second {
		t.Errorf("expected 90s, got %v", r.Duration())
	}
}
