package cost

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var thousand = decimal.NewFromInt(1000)

// TokenPricing is the USD price of a text model per 1K tokens.
type TokenPricing struct {
	Model       string
	InputPer1K  decimal.Decimal
	OutputPer1K decimal.Decimal
}

// PricingTable holds list prices for the text models the pipeline is known to use.
var PricingTable = map[string]TokenPricing{
	"gpt-4o-mini": {
		Model:       "gpt-4o-mini",
		InputPer1K:  decimal.RequireFromString("0.00015"),
		OutputPer1K: decimal.RequireFromString("0.0006"),
	},
	"gpt-4o": {
		Model:       "gpt-4o",
		InputPer1K:  decimal.RequireFromString("0.0025"),
		OutputPer1K: decimal.RequireFromString("0.01"),
	},
	"gemini-flash-lite-latest": {
		Model:       "gemini-flash-lite-latest",
		InputPer1K:  decimal.RequireFromString("0.000075"),
		OutputPer1K: decimal.RequireFromString("0.0003"),
	},
}

// NewTokenPricing parses per-1K prices given as decimal strings.
func NewTokenPricing(model, inputPer1K, outputPer1K string) (TokenPricing, error) {
	in, err := decimal.NewFromString(inputPer1K)
	if err != nil {
		return TokenPricing{}, fmt.Errorf("invalid input price %q: %w", inputPer1K, err)
	}
	out, err := decimal.NewFromString(outputPer1K)
	if err != nil {
		return TokenPricing{}, fmt.Errorf("invalid output price %q: %w", outputPer1K, err)
	}
	if in.IsNegative() || out.IsNegative() {
		return TokenPricing{}, fmt.Errorf("token prices must not be negative")
	}
	return TokenPricing{Model: model, InputPer1K: in, OutputPer1K: out}, nil
}

// PricingFor returns the table entry for model, or a zero price when unknown.
func PricingFor(model string) TokenPricing {
	if p, ok := PricingTable[model]; ok {
		return p
	}
	return TokenPricing{Model: model}
}

// Price returns the cost of one call. Negative token counts are treated as zero.
func (p TokenPricing) Price(promptTokens, completionTokens int) decimal.Decimal {
	if promptTokens < 0 {
		promptTokens = 0
	}
	if completionTokens < 0 {
		completionTokens = 0
	}
	in := p.InputPer1K.Mul(decimal.NewFromInt(int64(promptTokens))).Div(thousand)
	out := p.OutputPer1K.Mul(decimal.NewFromInt(int64(completionTokens))).Div(thousand)
	return in.Add(out)
}

// ParseAmount parses a non-negative decimal amount such as a per-image price.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("amount %q must not be negative", s)
	}
	return d, nil
}
