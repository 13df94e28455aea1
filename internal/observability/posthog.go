// Package observability sends pipeline outcomes to PostHog product analytics
package observability

import (
	"errors"
	"fmt"

	"dealerstudio/internal/config"
	"dealerstudio/internal/core"
	"dealerstudio/internal/logger"
	"dealerstudio/internal/persistence"
	"dealerstudio/internal/pipeline"

	"github.com/posthog/posthog-go"
)

// Event names
const (
	EventPipelineCompleted = "content_pipeline_completed"
	EventPipelineFailed    = "content_pipeline_failed"
)

// EventProperties contains properties for an event
type EventProperties map[string]interface{}

type enqueuer interface {
	Enqueue(posthog.Message) error
	Close() error
}

// PostHogClient wraps the PostHog SDK. A disabled client drops every event.
type PostHogClient struct {
	client  enqueuer
	enabled bool
}

// NewPostHogClient creates a new PostHog analytics client
func NewPostHogClient(cfg config.PostHogConfig) (*PostHogClient, error) {
	if !cfg.Enabled {
		return &PostHogClient{enabled: false}, nil
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("PostHog enabled but missing API key")
	}

	client, err := posthog.NewWithConfig(cfg.APIKey, posthog.Config{
		Endpoint: cfg.Host,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create PostHog client: %w", err)
	}
	return &PostHogClient{client: client, enabled: true}, nil
}

// IsEnabled returns whether PostHog tracking is enabled
func (p *PostHogClient) IsEnabled() bool {
	return p.enabled
}

// Capture sends an event to PostHog
func (p *PostHogClient) Capture(distinctID string, event string, properties EventProperties) error {
	if !p.enabled {
		return nil
	}
	props := posthog.NewProperties()
	for k, v := range properties {
		props.Set(k, v)
	}
	return p.client.Enqueue(posthog.Capture{
		DistinctId: distinctID,
		Event:      event,
		Properties: props,
	})
}

// TrackRunCompleted records a finished pipeline run
func (p *PostHogClient) TrackRunCompleted(userID string, result core.PipelineResult) {
	failed, cached := 0, 0
	for _, it := range result.Content {
		if !it.Success {
			failed++
		}
		if it.Cached {
			cached++
		}
	}
	m := result.QualityMetrics
	err := p.Capture(userID, EventPipelineCompleted, EventProperties{
		"run_id":             result.RunID,
		"dealer_id":          result.DealerID,
		"items":              len(result.Content),
		"failed_items":       failed,
		"cached_items":       cached,
		"skipped_cars":       len(result.SkippedCars),
		"total_cost":         result.TotalCost.String(),
		"overall_score":      m.Report.Overall,
		"approved":           m.Report.Approved,
		"text_uniqueness":    m.Metrics.TextUniqueness,
		"accuracy":           m.Metrics.Accuracy,
		"image_success_rate": m.Metrics.ImageSuccessRate,
	})
	if err != nil {
		logger.Warn("Failed to enqueue analytics event", "event", EventPipelineCompleted, "error", err.Error())
	}
}

// TrackRunFailed records a pipeline run that returned an error
func (p *PostHogClient) TrackRunFailed(userID, runID string, runErr error) {
	props := EventProperties{
		"run_id":        runID,
		"error_type":    ErrorType(runErr),
		"error_message": runErr.Error(),
	}
	var qerr *pipeline.QualityBelowThresholdError
	if errors.As(runErr, &qerr) {
		props["checkpoint"] = qerr.Checkpoint
		props["metric"] = qerr.Metric
		props["value"] = qerr.Value
		props["threshold"] = qerr.Threshold
	}
	if err := p.Capture(userID, EventPipelineFailed, props); err != nil {
		logger.Warn("Failed to enqueue analytics event", "event", EventPipelineFailed, "error", err.Error())
	}
}

// ErrorType buckets a pipeline error for dashboards
func ErrorType(err error) string {
	switch {
	case errors.Is(err, pipeline.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, pipeline.ErrNoEligibleCars):
		return "no_eligible_cars"
	case errors.Is(err, persistence.ErrNotFound):
		return "not_found"
	case pipeline.IsGradingUnavailable(err):
		return "grading_unavailable"
	case pipeline.IsQualityBelowThreshold(err):
		return "quality_below_threshold"
	default:
		return "internal"
	}
}

// Close flushes pending events
func (p *PostHogClient) Close() error {
	if !p.enabled {
		return nil
	}
	return p.client.Close()
}
