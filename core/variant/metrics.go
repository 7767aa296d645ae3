package variant

import "time"

// Reuse paths reported to Metrics.VariantReused.
const (
	ReuseFastPath   = "fast"
	ReuseLockedPath = "locked"
)

// Metrics receives counters and timings about the variant lifecycle.
type Metrics interface {
	ObserveGeneration(questionType string, d time.Duration, broken bool)
	VariantCreated(questionType string, broken bool)
	VariantReused(path string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveGeneration(string, time.Duration, bool) {}
func (nopMetrics) VariantCreated(string, bool)                   {}
func (nopMetrics) VariantReused(string)                          {}
