package pipeline

import (
	"context"
	"fmt"

	"dealerstudio/internal/cache"
	"dealerstudio/internal/config"
	"dealerstudio/internal/content"
	"dealerstudio/internal/core"
	"dealerstudio/internal/cost"
	"dealerstudio/internal/llm"
	"dealerstudio/internal/logger"
	"dealerstudio/internal/research"
	"dealerstudio/internal/scoring"
	"dealerstudio/internal/visual"
)

// Builder helps construct a fully configured Pipeline from application config
type Builder struct {
	cfg       *config.Config
	policy    *scoring.Policy
	source    DataSource
	store     ContentStore
	cache     cache.ContentCache
	analytics Analytics
	text      TextGenerator
	images    ImageGenerator
	grader    research.Grader
}

// NewBuilder creates a builder for cfg
func NewBuilder(cfg *config.Config) *Builder {
	return &Builder{cfg: cfg, policy: scoring.DefaultPolicy()}
}

// WithDatabase reads dealers and cars from db and persists runs to it
func (b *Builder) WithDatabase(db *DatabaseAdapter) *Builder {
	b.source = db
	b.store = db
	return b
}

// WithSource sets the data source without a content store
func (b *Builder) WithSource(source DataSource) *Builder {
	b.source = source
	return b
}

// WithCache sets the content cache instead of building one from config
func (b *Builder) WithCache(c cache.ContentCache) *Builder {
	b.cache = c
	return b
}

// WithAnalytics sets the analytics sink
func (b *Builder) WithAnalytics(a Analytics) *Builder {
	b.analytics = a
	return b
}

// WithPolicy replaces the default scoring policy
func (b *Builder) WithPolicy(policy *scoring.Policy) *Builder {
	b.policy = policy
	return b
}

// WithTextGenerator overrides the caption generator
func (b *Builder) WithTextGenerator(g TextGenerator) *Builder {
	b.text = g
	return b
}

// WithImageGenerator overrides the image generator
func (b *Builder) WithImageGenerator(g ImageGenerator) *Builder {
	b.images = g
	return b
}

// WithGrader overrides the research grader
func (b *Builder) WithGrader(g research.Grader) *Builder {
	b.grader = g
	return b
}

// Build constructs the pipeline. Without a grading key the research
// checkpoint always passes. Without an image key every image falls back to
// the original photo, which fails the image checkpoint, so Build refuses that
// combination unless checkpoints are non-blocking.
func (b *Builder) Build(ctx context.Context) (*Pipeline, error) {
	if b.cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if b.source == nil {
		return nil, fmt.Errorf("data source is required")
	}

	pcfg, err := b.pipelineConfig()
	if err != nil {
		return nil, err
	}
	text, err := b.buildText()
	if err != nil {
		return nil, err
	}
	images, err := b.buildImages(pcfg.BlockOnFailure)
	if err != nil {
		return nil, err
	}
	grader := b.buildGrader(ctx)

	contentCache := b.cache
	if contentCache == nil {
		contentCache, err = cache.New(ctx, b.cfg.Cache)
		if err != nil {
			// Non-fatal: run without a cache
			logger.Warn("Failed to initialize content cache, continuing without it", "error", err.Error())
			contentCache = cache.Noop{}
		}
	}

	return NewPipeline(Dependencies{
		Source:    b.source,
		Store:     b.store,
		Text:      text,
		Images:    images,
		Grader:    grader,
		Cache:     contentCache,
		Limiter:   NewRateLimiter(b.cfg.Pipeline.RateLimit),
		Analytics: b.analytics,
	}, pcfg)
}

func (b *Builder) buildText() (TextGenerator, error) {
	if b.text != nil {
		return b.text, nil
	}
	oc := b.cfg.AI.OpenAI
	client, err := llm.NewOpenAIClient(oc)
	if err != nil {
		return nil, fmt.Errorf("failed to create caption model client: %w", err)
	}
	pricing, err := textPricing(client.ModelName(), oc)
	if err != nil {
		return nil, err
	}
	return content.NewTextGenerator(client, b.policy, pricing), nil
}

// textPricing uses configured token prices when both are set and the list
// price of model otherwise.
func textPricing(model string, oc config.OpenAIConfig) (cost.TokenPricing, error) {
	switch {
	case oc.InputPricePer1K == "" && oc.OutputPricePer1K == "":
		pricing := cost.PricingFor(model)
		if pricing.InputPer1K.IsZero() && pricing.OutputPer1K.IsZero() {
			logger.Warn("No list price for caption model, captions will be recorded as free", "model", model)
		}
		return pricing, nil
	case oc.InputPricePer1K == "" || oc.OutputPricePer1K == "":
		return cost.TokenPricing{}, fmt.Errorf("set both ai.openai.input_price_per_1k and ai.openai.output_price_per_1k, or neither")
	default:
		return cost.NewTokenPricing(model, oc.InputPricePer1K, oc.OutputPricePer1K)
	}
}

func (b *Builder) buildImages(blocking bool) (ImageGenerator, error) {
	if b.images != nil {
		return b.images, nil
	}
	fc := b.cfg.AI.Fal
	var editor visual.Editor
	client, err := visual.NewFalClient(fc)
	switch {
	case err != nil && blocking:
		return nil, fmt.Errorf("image editing is unavailable and every run would fail the %s checkpoint: %w", CheckpointImageQuality, err)
	case err != nil:
		logger.Warn("Image editing disabled, every image will fall back to the original photo and fail the image checkpoint", "reason", err.Error())
	default:
		editor = client
	}

	gen := visual.NewImageGenerator(editor, b.policy)
	if fc.CostPerImage != "" {
		price, err := cost.ParseAmount(fc.CostPerImage)
		if err != nil {
			return nil, fmt.Errorf("invalid ai.fal.cost_per_image: %w", err)
		}
		gen.WithCostPerImage(price)
	}
	return gen, nil
}

func (b *Builder) buildGrader(ctx context.Context) research.Grader {
	if b.grader != nil {
		return b.grader
	}
	client, err := llm.NewGeminiClient(ctx, b.cfg.AI.Gemini)
	if err != nil {
		logger.Warn("Research grading model unavailable, research checkpoint will always pass", "reason", err.Error())
		return research.StaticGrader{Score: 100}
	}
	return research.NewModelGrader(client)
}

func (b *Builder) pipelineConfig() (*Config, error) {
	pcfg := DefaultConfig()
	pcfg.Policy = b.policy
	pc := b.cfg.Pipeline
	if len(pc.Platforms) > 0 {
		pcfg.Platforms = pcfg.Platforms[:0]
		for _, name := range pc.Platforms {
			p, err := core.ParsePlatform(name)
			if err != nil {
				return nil, err
			}
			pcfg.Platforms = append(pcfg.Platforms, p)
		}
	}
	if pc.MaxCars > 0 {
		pcfg.MaxCars = pc.MaxCars
	}
	if pc.ContentValidity > 0 {
		pcfg.ContentValidity = pc.ContentValidity
	}
	if b.cfg.Cache.ContentTTL > 0 {
		pcfg.CacheTTL = b.cfg.Cache.ContentTTL
	}
	pcfg.BlockOnFailure = pc.BlockOnFailure
	return pcfg, nil
}
