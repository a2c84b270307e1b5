package service

import (
	"testing"
	"time"
)

func TestBatchAverageSeconds(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		lastFinished time.Time
		want         float64
	}{
		{"hundred seconds over ten items", start.Add(100 * time.Second), 10},
		{"zero span", start, 0},
		{"sub-second span", start.Add(2500 * time.Millisecond), 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := batchAverageSeconds(start, tt.lastFinished, metricBatchSize); got != tt.want {
				t.Errorf("batchAverageSeconds = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBatchAverageClampsClockSkew(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	// finished before started: skewed clocks must not make the metric negative
	if got := batchAverageSeconds(start, start.Add(-5*time.Second), metricBatchSize); got != 0 {
		t.Errorf("skewed batch average = %v, want 0", got)
	}
}
