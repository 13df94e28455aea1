package scoring

import (
	"testing"

	"dealerstudio/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicyWeightsSumToOne(t *testing.T) {
	p := DefaultPolicy()
	assert.InDelta(t, 1.0, p.Selector.Weights.Sum(), 1e-9)
}

func TestPriceRangeFor(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name      string
		brand     string
		wantRange PriceRange
		wantKnown bool
	}{
		{name: "exact brand", brand: "Maruti Suzuki", wantRange: PriceRange{Min: 200000, Max: 800000}, wantKnown: true},
		{name: "padded lowercase", brand: "  hyundai ", wantRange: PriceRange{Min: 300000, Max: 1200000}, wantKnown: true},
		{name: "unknown brand gets default band", brand: "Lada", wantRange: p.Selector.DefaultPriceRange, wantKnown: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, known := p.Selector.PriceRangeFor(tt.brand)
			assert.Equal(t, tt.wantRange, got)
			assert.Equal(t, tt.wantKnown, known)
		})
	}
}

func TestEveryPlatformHasASpec(t *testing.T) {
	p := DefaultPolicy()
	for _, platform := range core.AllPlatforms {
		spec, ok := p.Platforms[platform]
		require.True(t, ok, "missing spec for %s", platform)
		assert.LessOrEqual(t, spec.MinLength, spec.MaxLength)
		assert.NotEmpty(t, spec.AspectRatio)
	}
	assert.Zero(t, p.PlatformSpec(core.PlatformWhatsApp).HashtagCount)
}

func TestSeasonsCoverElevenMonths(t *testing.T) {
	seen := map[int]bool{}
	for _, rule := range DefaultPolicy().Seasons {
		for _, m := range rule.Months {
			assert.False(t, seen[m], "month %d assigned twice", m)
			seen[m] = true
		}
	}
	assert.Len(t, seen, 11)
	assert.False(t, seen[3], "March has no seasonal rule")
}

func TestEveryTransformationIsDefined(t *testing.T) {
	v := DefaultPolicy().Visual
	for _, name := range v.ClassTransformations {
		_, ok := v.Transformations[name]
		assert.True(t, ok, name)
	}
	for _, name := range v.PlatformOverrides {
		_, ok := v.Transformations[name]
		assert.True(t, ok, name)
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-3, 0, 10))
	assert.Equal(t, 10.0, Clamp(12, 0, 10))
	assert.Equal(t, 4.5, Clamp(4.5, 0, 10))
}
