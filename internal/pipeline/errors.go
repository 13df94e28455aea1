package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrRateLimited is returned when a user starts runs faster than allowed
	ErrRateLimited = errors.New("content generation rate limit exceeded")

	// ErrNoEligibleCars is returned when selection leaves nothing to generate for
	ErrNoEligibleCars = errors.New("no eligible cars to generate content for")
)

// GradingUnavailableError means the research grade could not be obtained.
// The research itself was never judged.
type GradingUnavailableError struct {
	Err error
}

func (e *GradingUnavailableError) Error() string {
	return fmt.Sprintf("research grading unavailable: %v", e.Err)
}

func (e *GradingUnavailableError) Unwrap() error { return e.Err }

// QualityBelowThresholdError means a checkpoint was evaluated and did not pass
type QualityBelowThresholdError struct {
	Checkpoint string
	Metric     string
	Value      float64
	Threshold  float64
}

func (e *QualityBelowThresholdError) Error() string {
	return fmt.Sprintf("%s checkpoint failed: %s %.1f below threshold %.1f", e.Checkpoint, e.Metric, e.Value, e.Threshold)
}

// IsGradingUnavailable reports whether err came from a failed grading call
func IsGradingUnavailable(err error) bool {
	var target *GradingUnavailableError
	return errors.As(err, &target)
}

// IsQualityBelowThreshold reports whether err came from a failed checkpoint
func IsQualityBelowThreshold(err error) bool {
	var target *QualityBelowThresholdError
	return errors.As(err, &target)
}
