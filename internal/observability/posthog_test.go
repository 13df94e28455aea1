package observability

import (
	"errors"
	"fmt"
	"testing"

	"dealerstudio/internal/config"
	"dealerstudio/internal/core"
	"dealerstudio/internal/persistence"
	"dealerstudio/internal/pipeline"

	"github.com/posthog/posthog-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnqueuer struct {
	messages []posthog.Message
	closed   bool
}

func (f *fakeEnqueuer) Enqueue(m posthog.Message) error {
	f.messages = append(f.messages, m)
	return nil
}

func (f *fakeEnqueuer) Close() error {
	f.closed = true
	return nil
}

func TestDisabledClientDropsEvents(t *testing.T) {
	c, err := NewPostHogClient(config.PostHogConfig{})
	require.NoError(t, err)
	assert.False(t, c.IsEnabled())
	assert.NoError(t, c.Capture("u1", "anything", nil))
	c.TrackRunFailed("u1", "r1", errors.New("boom"))
	assert.NoError(t, c.Close())
}

func TestEnabledClientRequiresKey(t *testing.T) {
	_, err := NewPostHogClient(config.PostHogConfig{Enabled: true})
	assert.Error(t, err)
}

func TestTrackRunCompleted(t *testing.T) {
	fake := &fakeEnqueuer{}
	c := &PostHogClient{client: fake, enabled: true}

	c.TrackRunCompleted("u1", core.PipelineResult{
		RunID:     "r1",
		DealerID:  "d1",
		TotalCost: decimal.RequireFromString("0.16"),
		Content: []core.ContentItem{
			{Success: true},
			{Success: false},
			{Success: true, Cached: true},
		},
	})

	require.Len(t, fake.messages, 1)
	capture, ok := fake.messages[0].(posthog.Capture)
	require.True(t, ok)
	assert.Equal(t, "u1", capture.DistinctId)
	assert.Equal(t, EventPipelineCompleted, capture.Event)
	assert.Equal(t, "0.16", capture.Properties["total_cost"])
	assert.Equal(t, 1, capture.Properties["failed_items"])
	assert.Equal(t, 1, capture.Properties["cached_items"])

	require.NoError(t, c.Close())
	assert.True(t, fake.closed)
}

func TestTrackRunFailedCarriesCheckpoint(t *testing.T) {
	fake := &fakeEnqueuer{}
	c := &PostHogClient{client: fake, enabled: true}

	c.TrackRunFailed("u1", "r1", fmt.Errorf("run: %w", &pipeline.QualityBelowThresholdError{
		Checkpoint: pipeline.CheckpointImageQuality, Metric: "image_success_rate", Value: 25, Threshold: 50,
	}))

	require.Len(t, fake.messages, 1)
	capture := fake.messages[0].(posthog.Capture)
	assert.Equal(t, EventPipelineFailed, capture.Event)
	assert.Equal(t, "quality_below_threshold", capture.Properties["error_type"])
	assert.Equal(t, pipeline.CheckpointImageQuality, capture.Properties["checkpoint"])
	assert.Equal(t, 25.0, capture.Properties["value"])
}

func TestErrorType(t *testing.T) {
	tests := map[string]error{
		"rate_limited":            pipeline.ErrRateLimited,
		"no_eligible_cars":        pipeline.ErrNoEligibleCars,
		"not_found":               fmt.Errorf("load: %w", persistence.ErrNotFound),
		"grading_unavailable":     &pipeline.GradingUnavailableError{Err: errors.New("timeout")},
		"quality_below_threshold": &pipeline.QualityBelowThresholdError{},
		"internal":                errors.New("boom"),
	}
	for want, err := range tests {
		assert.Equal(t, want, ErrorType(err))
	}
}
