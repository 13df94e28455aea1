// Package content writes platform specific captions for dealer cars.
package content

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"dealerstudio/internal/core"
	"dealerstudio/internal/cost"
	"dealerstudio/internal/llm"
	"dealerstudio/internal/scoring"

	"github.com/shopspring/decimal"
)

var hashtagPattern = regexp.MustCompile(`#\w+`)

const captionSystemPrompt = "You are a social media copywriter for Indian used car dealerships. " +
	"Write ready-to-post captions. Never use placeholders such as [Phone], <dealer name> or XXX: " +
	"use the exact contact details you are given."

// TextGenerator produces captions through a language model.
type TextGenerator struct {
	model   llm.Generator
	policy  *scoring.Policy
	pricing cost.TokenPricing
}

// NewTextGenerator creates a generator. A nil policy uses the defaults.
func NewTextGenerator(model llm.Generator, policy *scoring.Policy, pricing cost.TokenPricing) *TextGenerator {
	if policy == nil {
		policy = scoring.DefaultPolicy()
	}
	return &TextGenerator{model: model, policy: policy, pricing: pricing}
}

// Generate writes the caption for car on platform. WhatsApp never calls the
// model. Model errors are returned to the caller unchanged apart from wrapping.
func (g *TextGenerator) Generate(ctx context.Context, car core.Car, platform core.Platform, rc core.ResearchContext) (core.TextContent, error) {
	if platform == core.PlatformWhatsApp {
		return core.TextContent{
			Text:     WhatsAppTemplate(car, rc.Dealer),
			Hashtags: []string{},
			Cost:     decimal.Zero,
		}, nil
	}
	if g.model == nil {
		return core.TextContent{}, fmt.Errorf("no text model configured")
	}

	spec := g.policy.PlatformSpec(platform)
	resp, err := g.model.Generate(ctx, llm.Request{
		System: captionSystemPrompt,
		Prompt: BuildPrompt(car, spec, rc),
	})
	if err != nil {
		return core.TextContent{}, fmt.Errorf("generate %s caption for car %s: %w", platform, car.ID, err)
	}

	text := truncateRunes(strings.TrimSpace(resp.Text), spec.MaxChars)
	hashtags := ExtractHashtags(text)
	if spec.HashtagCount > 0 && len(hashtags) > spec.HashtagCount {
		hashtags = hashtags[:spec.HashtagCount]
	}

	return core.TextContent{
		Text:     text,
		Hashtags: hashtags,
		Model:    resp.Model,
		Cost:     g.pricing.Price(resp.PromptTokens, resp.CompletionTokens),
	}, nil
}

// BuildPrompt renders the caption prompt for one car and platform.
func BuildPrompt(car core.Car, spec scoring.PlatformSpec, rc core.ResearchContext) string {
	d := rc.Dealer
	var b strings.Builder

	fmt.Fprintf(&b, "Write a %s post for this car.\n\n", spec.Platform)

	b.WriteString("CAR:\n")
	fmt.Fprintf(&b, "- %s\n", car.DisplayName())
	fmt.Fprintf(&b, "- Price: %s\n", core.FormatINR(car.Price))
	if car.Mileage > 0 {
		fmt.Fprintf(&b, "- Driven: %s km\n", core.GroupIndian(int64(car.Mileage)))
	}
	if car.FuelType != "" {
		fmt.Fprintf(&b, "- Fuel: %s\n", car.FuelType)
	}
	if car.Transmission != "" {
		fmt.Fprintf(&b, "- Transmission: %s\n", car.Transmission)
	}
	location := car.Location
	if location == "" {
		location = d.Location
	}
	if location != "" {
		fmt.Fprintf(&b, "- Location: %s\n", location)
	}
	for _, p := range rc.SellingPoints[car.ID] {
		fmt.Fprintf(&b, "- %s\n", p)
	}

	b.WriteString("\nDEALER (use these exact details, no placeholders):\n")
	fmt.Fprintf(&b, "- Name: %s\n", d.BusinessName)
	if d.Location != "" {
		fmt.Fprintf(&b, "- Showroom: %s\n", d.Location)
	}
	if contact := d.ContactLine(); contact != "" {
		fmt.Fprintf(&b, "- Contact: %s\n", contact)
	}

	if rc.Season.Kind != "" && rc.Season.Kind != core.SeasonNone {
		fmt.Fprintf(&b, "\nSEASON: %s\n", rc.Season.Message)
	}

	b.WriteString("\nREQUIREMENTS:\n")
	fmt.Fprintf(&b, "- Tone: %s\n", spec.Tone)
	fmt.Fprintf(&b, "- Between %d and %d characters in total\n", spec.MinLength, spec.MaxChars)
	if spec.HashtagCount > 0 {
		fmt.Fprintf(&b, "- End with exactly %d relevant hashtags\n", spec.HashtagCount)
	} else {
		b.WriteString("- No hashtags\n")
	}
	fmt.Fprintf(&b, "- Mention the year %d, the brand %s and the city\n", car.Year, car.Brand)
	b.WriteString("- Include a clear call to action to call, WhatsApp or visit\n")
	b.WriteString("- Do not invent features, discounts or warranties that are not listed above\n")

	return b.String()
}

// WhatsAppTemplate renders the pre-approved broadcast template. {{1}} is
// filled with the customer's name by the messaging provider.
func WhatsAppTemplate(car core.Car, d core.DealerContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi {{1}}! 🚗 The %s is now available at %s", car.DisplayName(), d.BusinessName)
	if d.Location != "" {
		fmt.Fprintf(&b, ", %s", d.Location)
	}
	fmt.Fprintf(&b, " for %s.", core.FormatINR(car.Price))
	if car.Mileage > 0 {
		fmt.Fprintf(&b, " Driven %s km.", core.GroupIndian(int64(car.Mileage)))
	}
	if contact := d.ContactLine(); contact != "" {
		fmt.Fprintf(&b, " %s.", contact)
	}
	b.WriteString(" Reply YES to book a test drive.")
	return b.String()
}

// ExtractHashtags returns the hashtags in text in first-seen order without duplicates.
func ExtractHashtags(text string) []string {
	matches := hashtagPattern.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, tag := range matches {
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	return out
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit]))
}
