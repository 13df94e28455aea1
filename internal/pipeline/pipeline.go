// Package pipeline runs the weekly content generation workflow: select cars,
// research, write captions and images, then gate the batch on quality.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"dealerstudio/internal/cache"
	"dealerstudio/internal/core"
	"dealerstudio/internal/cost"
	"dealerstudio/internal/logger"
	"dealerstudio/internal/quality"
	"dealerstudio/internal/research"
	"dealerstudio/internal/scoring"
	"dealerstudio/internal/selector"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Config holds pipeline configuration
type Config struct {
	Platforms       []core.Platform
	MaxCars         int           // Cars picked per run when none are requested explicitly
	ContentValidity time.Duration // generated_at + ContentValidity = expires_at
	CacheTTL        time.Duration
	BlockOnFailure  bool // Stop the run when a checkpoint fails
	Policy          *scoring.Policy
}

// DefaultConfig returns the production defaults
func DefaultConfig() *Config {
	return &Config{
		Platforms:       append([]core.Platform(nil), core.AllPlatforms...),
		MaxCars:         5,
		ContentValidity: 7 * 24 * time.Hour,
		CacheTTL:        time.Hour,
		BlockOnFailure:  true,
		Policy:          scoring.DefaultPolicy(),
	}
}

// Dependencies are the collaborators a Pipeline calls. Source, Text and
// Images are required; the rest fall back to no-op implementations.
type Dependencies struct {
	Source    DataSource
	Store     ContentStore
	Text      TextGenerator
	Images    ImageGenerator
	Grader    research.Grader
	Cache     cache.ContentCache
	Limiter   RateLimiter
	Analytics Analytics
}

// Pipeline orchestrates one weekly content run
type Pipeline struct {
	deps       Dependencies
	config     *Config
	selector   *selector.Selector
	researcher *research.Researcher
	evaluator  *quality.Evaluator
	now        func() time.Time
	newID      func() string
}

// NewPipeline creates a pipeline. A nil config uses DefaultConfig.
func NewPipeline(deps Dependencies, config *Config) (*Pipeline, error) {
	if deps.Source == nil {
		return nil, fmt.Errorf("data source is required")
	}
	if deps.Text == nil {
		return nil, fmt.Errorf("text generator is required")
	}
	if deps.Images == nil {
		return nil, fmt.Errorf("image generator is required")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Policy == nil {
		config.Policy = scoring.DefaultPolicy()
	}
	if len(config.Platforms) == 0 {
		config.Platforms = append([]core.Platform(nil), core.AllPlatforms...)
	}
	if config.ContentValidity <= 0 {
		config.ContentValidity = 7 * 24 * time.Hour
	}
	if deps.Grader == nil {
		deps.Grader = research.StaticGrader{Score: 100}
	}
	if deps.Cache == nil {
		deps.Cache = cache.Noop{}
	}
	if deps.Limiter == nil {
		deps.Limiter = NoopRateLimiter{}
	}
	if deps.Analytics == nil {
		deps.Analytics = noopAnalytics{}
	}

	p := &Pipeline{
		deps:       deps,
		config:     config,
		researcher: research.NewResearcher(config.Policy),
		evaluator:  quality.NewEvaluator(config.Policy),
		now:        time.Now,
		newID:      func() string { return uuid.NewString() },
	}
	p.selector = selector.New(config.Policy, func() time.Time { return p.now() })
	return p, nil
}

// GenerateWeeklyContent runs the whole pipeline for the dealer owned by userID.
// An empty carIDs lets the selector choose among cars without unexpired content.
// Per-item failures are recorded on the items; a failed checkpoint fails the run.
func (p *Pipeline) GenerateWeeklyContent(ctx context.Context, userID string, carIDs []string) (*core.PipelineResult, error) {
	runID := p.newID()
	log := logger.With("run_id", runID, "user_id", userID)

	result, err := p.run(ctx, &log, runID, userID, carIDs)
	if err != nil {
		log.Error().Err(err).Msg("Content pipeline failed")
		p.deps.Analytics.TrackRunFailed(userID, runID, err)
		return nil, err
	}

	log.Info().
		Int("items", len(result.Content)).
		Str("total_cost", result.TotalCost.String()).
		Float64("overall", result.QualityMetrics.Report.Overall).
		Msg("Content pipeline completed")
	p.deps.Analytics.TrackRunCompleted(userID, *result)
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, log *zerolog.Logger, runID, userID string, carIDs []string) (*core.PipelineResult, error) {
	if err := p.deps.Limiter.Allow(ctx, userID); err != nil {
		return nil, err
	}

	dealer, err := p.deps.Source.DealerByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load dealer for user %s: %w", userID, err)
	}

	generatedAt := p.now().UTC()
	selected, skipped, err := p.selectCars(ctx, log, dealer, carIDs, generatedAt)
	if err != nil {
		return nil, err
	}
	log.Info().Int("cars", len(selected)).Int("skipped", len(skipped)).Msg("Cars selected")

	// Research checkpoint
	rc := p.researcher.Build(dealer, selected, generatedAt)
	researchGate := NewResearchGate(p.deps.Grader, rc, p.config.Policy.Quality.MinResearchScore, p.config.BlockOnFailure)
	if err := NewQualityGateRunner(researchGate).RunGates(ctx); err != nil {
		return nil, err
	}

	ledger := cost.NewLedger()
	var items []core.ContentItem
	for _, car := range selected {
		for _, platform := range p.config.Platforms {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("content generation interrupted: %w", err)
			}
			item, err := p.generateItem(ctx, log, dealer, car, platform, rc, ledger, generatedAt)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
	}

	byKind := ledger.TotalByKind()
	log.Info().
		Int("items", len(items)).
		Str("text_cost", byKind[cost.KindText].String()).
		Str("image_cost", byKind[cost.KindImage].String()).
		Msg("Content generated")

	// Image quality checkpoint, then the final batch check
	if err := NewQualityGateRunner(
		NewImageQualityGate(items, p.config.Policy.Quality.MinImageSuccessRate, p.config.BlockOnFailure),
	).RunGates(ctx); err != nil {
		return nil, err
	}

	summary := p.evaluator.Evaluate(items, selected, dealer)
	summary.Metrics.ResearchScore = researchGate.Score()
	if err := NewQualityGateRunner(
		NewFinalQualityGate(summary, p.config.Policy.Quality, p.config.BlockOnFailure),
	).RunGates(ctx); err != nil {
		return nil, err
	}

	return &core.PipelineResult{
		RunID:          runID,
		DealerID:       dealer.ID,
		Content:        items,
		QualityMetrics: summary,
		GeneratedAt:    generatedAt,
		ExpiresAt:      generatedAt.Add(p.config.ContentValidity),
		TotalCost:      ledger.Total(),
		SkippedCars:    skipped,
	}, nil
}

// selectCars loads the candidates and ranks them. Explicitly requested cars
// are not filtered by recent content.
func (p *Pipeline) selectCars(ctx context.Context, log *zerolog.Logger, dealer core.DealerContext, carIDs []string, now time.Time) ([]core.Car, []string, error) {
	cars, err := p.deps.Source.AvailableCars(ctx, dealer.ID, carIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load cars for dealer %s: %w", dealer.ID, err)
	}

	limit := len(carIDs)
	if limit == 0 {
		limit = p.config.MaxCars
		recent, err := p.deps.Source.RecentCarIDs(ctx, dealer.ID, now)
		if err != nil {
			log.Warn().Err(err).Msg("Could not load recent content, not excluding any cars")
		} else {
			cars = selector.ExcludeRecent(cars, recent)
		}
	}

	ranking := p.selector.SelectTop(cars, limit)
	skipped := make([]string, 0, len(ranking.Skipped))
	for _, s := range ranking.Skipped {
		log.Warn().Str("car_id", s.CarID).Str("reason", s.Reason).Msg("Skipping malformed car")
		skipped = append(skipped, s.CarID)
	}
	if len(ranking.Scores) == 0 {
		return nil, skipped, ErrNoEligibleCars
	}

	selected := make([]core.Car, 0, len(ranking.Scores))
	for _, s := range ranking.Scores {
		selected = append(selected, s.Car)
	}
	return selected, skipped, nil
}

// generateItem produces one (car, platform) item. Text and image failures
// are recorded on the item; only a ledger error is returned.
func (p *Pipeline) generateItem(
	ctx context.Context,
	log *zerolog.Logger,
	dealer core.DealerContext,
	car core.Car,
	platform core.Platform,
	rc core.ResearchContext,
	ledger *cost.Ledger,
	now time.Time,
) (core.ContentItem, error) {
	itemLog := log.With().Str("car_id", car.ID).Str("platform", string(platform)).Logger()
	original := car.CoverImage()
	key := cache.Key(dealer.ID, car.ID, platform)

	cached, ok, err := p.deps.Cache.Get(ctx, key)
	if err != nil {
		itemLog.Warn().Err(err).Msg("Content cache read failed")
	}
	if ok {
		cached.ID = p.newID()
		cached.Cached = true
		cached.Cost = decimal.Zero
		cached.CreatedAt = now
		itemLog.Debug().Msg("Reusing cached content")
		return cached, nil
	}

	item := core.ContentItem{
		ID:            p.newID(),
		CarID:         car.ID,
		Platform:      platform,
		ImageURL:      original,
		OriginalImage: original,
		Hashtags:      []string{},
		Cost:          decimal.Zero,
		CreatedAt:     now,
	}

	text, err := p.deps.Text.Generate(ctx, car, platform, rc)
	if err != nil {
		itemLog.Warn().Err(err).Msg("Caption generation failed")
		item.ImageStatus = core.ImageSkipped
		item.Errors = append(item.Errors, err.Error())
		return item, nil
	}
	item.Text = text.Text
	item.Hashtags = text.Hashtags
	if err := ledger.Record(cost.Entry{Kind: cost.KindText, CarID: car.ID, Platform: string(platform), Amount: text.Cost}); err != nil {
		return item, fmt.Errorf("failed to record caption cost: %w", err)
	}

	image := p.deps.Images.Generate(ctx, car, platform, dealer, original)
	item.Transform = image.Transformation
	if image.Success {
		item.ImageURL = image.URL
		item.ImageStatus = core.ImageEdited
		if err := ledger.Record(cost.Entry{Kind: cost.KindImage, CarID: car.ID, Platform: string(platform), Amount: image.Cost}); err != nil {
			return item, fmt.Errorf("failed to record image cost: %w", err)
		}
	} else {
		item.ImageURL = original
		item.ImageStatus = core.ImageFallback
		item.Errors = append(item.Errors, image.Error)
	}

	item.Cost = cost.Sum(text.Cost, imageCost(image))
	item.Success = image.Success

	if item.Success {
		if err := p.deps.Cache.Set(ctx, key, item, p.config.CacheTTL); err != nil {
			itemLog.Warn().Err(err).Msg("Content cache write failed")
		}
	}
	return item, nil
}

func imageCost(r core.ImageResult) decimal.Decimal {
	if !r.Success {
		return decimal.Zero
	}
	return r.Cost
}

// Close releases the content cache
func (p *Pipeline) Close() error {
	if err := p.deps.Cache.Close(); err != nil {
		return fmt.Errorf("failed to close content cache: %w", err)
	}
	return nil
}

// Persist writes a finished run to the content calendar
func (p *Pipeline) Persist(ctx context.Context, result *core.PipelineResult) error {
	if p.deps.Store == nil {
		return fmt.Errorf("no content store configured")
	}
	if result == nil {
		return fmt.Errorf("nothing to persist")
	}
	if err := p.deps.Store.SaveRun(ctx, *result); err != nil {
		return fmt.Errorf("failed to persist run %s: %w", result.RunID, err)
	}
	return nil
}

// RankCars scores the dealer's available cars without generating anything
func (p *Pipeline) RankCars(ctx context.Context, userID string, count int) (selector.Ranking, error) {
	dealer, err := p.deps.Source.DealerByUserID(ctx, userID)
	if err != nil {
		return selector.Ranking{}, fmt.Errorf("failed to load dealer for user %s: %w", userID, err)
	}
	cars, err := p.deps.Source.AvailableCars(ctx, dealer.ID, nil)
	if err != nil {
		return selector.Ranking{}, fmt.Errorf("failed to load cars for dealer %s: %w", dealer.ID, err)
	}
	return p.selector.SelectTop(cars, count), nil
}
