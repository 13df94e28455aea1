package pipeline

import (
	"context"
	"time"

	"dealerstudio/internal/core"
)

// These interfaces define the contracts between pipeline components.
// They allow stages to be swapped out in tests and keep the orchestrator
// free of transport details.

// DataSource reads the dealer and inventory a run works on
type DataSource interface {
	// DealerByUserID loads the storefront owned by userID
	DealerByUserID(ctx context.Context, userID string) (core.DealerContext, error)

	// AvailableCars returns the dealer's unsold cars, restricted to carIDs when non-empty
	AvailableCars(ctx context.Context, dealerID string, carIDs []string) ([]core.Car, error)

	// RecentCarIDs lists cars whose generated content has not expired yet
	RecentCarIDs(ctx context.Context, dealerID string, now time.Time) ([]string, error)
}

// ContentStore persists a finished run
type ContentStore interface {
	SaveRun(ctx context.Context, result core.PipelineResult) error
}

// TextGenerator writes the caption for one car on one platform
type TextGenerator interface {
	Generate(ctx context.Context, car core.Car, platform core.Platform, rc core.ResearchContext) (core.TextContent, error)
}

// ImageGenerator produces the marketing image for one car on one platform.
// It never returns an error; failures are reported through ImageResult.Success.
type ImageGenerator interface {
	Generate(ctx context.Context, car core.Car, platform core.Platform, dealer core.DealerContext, originalURL string) core.ImageResult
}

// Analytics receives run outcomes
type Analytics interface {
	TrackRunCompleted(userID string, result core.PipelineResult)
	TrackRunFailed(userID, runID string, err error)
}

// RateLimiter decides whether a user may start another run
type RateLimiter interface {
	Allow(ctx context.Context, userID string) error
}

type noopAnalytics struct{}

func (noopAnalytics) TrackRunCompleted(string, core.PipelineResult) {}
func (noopAnalytics) TrackRunFailed(string, string, error)          {}
