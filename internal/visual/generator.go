package visual

import (
	"context"
	"fmt"

	"dealerstudio/internal/core"
	"dealerstudio/internal/logger"
	"dealerstudio/internal/scoring"

	"github.com/shopspring/decimal"
)

// Editor edits a source photo and returns the URL of the result.
type Editor interface {
	Edit(ctx context.Context, req EditRequest) (string, error)
}

// ImageGenerator produces marketing images and never fails the batch: any
// error degrades to the original photo with zero cost.
type ImageGenerator struct {
	editor       Editor
	policy       *scoring.Policy
	costPerImage decimal.Decimal
}

// NewImageGenerator creates a generator. A nil policy uses the defaults and
// the per-image cost comes from the policy.
func NewImageGenerator(editor Editor, policy *scoring.Policy) *ImageGenerator {
	if policy == nil {
		policy = scoring.DefaultPolicy()
	}
	return &ImageGenerator{editor: editor, policy: policy, costPerImage: policy.Visual.CostPerImage}
}

// WithCostPerImage overrides the per-image price.
func (g *ImageGenerator) WithCostPerImage(cost decimal.Decimal) *ImageGenerator {
	g.costPerImage = cost
	return g
}

// Generate edits originalURL for car on platform.
func (g *ImageGenerator) Generate(ctx context.Context, car core.Car, platform core.Platform, dealer core.DealerContext, originalURL string) core.ImageResult {
	class := ClassifyCar(g.policy.Visual, car)
	t := SelectTransformation(g.policy.Visual, class, platform)
	spec := g.policy.PlatformSpec(platform)

	result := core.ImageResult{
		URL:            originalURL,
		OriginalURL:    originalURL,
		Transformation: t.Name,
		Cost:           decimal.Zero,
	}

	fail := func(err error) core.ImageResult {
		logger.Warn("Image edit failed, using original photo",
			"car_id", car.ID, "platform", string(platform), "transformation", t.Name, "error", err.Error())
		result.Error = err.Error()
		return result
	}

	if originalURL == "" {
		return fail(fmt.Errorf("car %s has no photo to edit", car.ID))
	}
	if g.editor == nil {
		return fail(fmt.Errorf("no image editor configured"))
	}

	url, err := g.editor.Edit(ctx, EditRequest{
		Prompt:      BuildPrompt(car, dealer, t, spec),
		ImageURLs:   []string{originalURL},
		NumImages:   1,
		AspectRatio: spec.AspectRatio,
	})
	if err != nil {
		return fail(err)
	}

	result.URL = url
	result.Cost = g.costPerImage
	result.Success = true
	return result
}
