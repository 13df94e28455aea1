// Package visual turns a dealer's car photo into a marketing image.
package visual

import (
	"strings"

	"dealerstudio/internal/core"
	"dealerstudio/internal/scoring"
)

// ClassifyCar infers the body class used to pick a scene. Luxury wins over
// body style; unknown models fall back to the policy default.
func ClassifyCar(policy scoring.VisualPolicy, car core.Car) string {
	brand := strings.ToLower(car.Brand)
	for _, lux := range policy.LuxuryBrands {
		if brand == lux || strings.HasPrefix(brand, lux+" ") {
			return scoring.ClassLuxury
		}
	}
	if policy.LuxuryPriceThreshold > 0 && car.Price >= policy.LuxuryPriceThreshold {
		return scoring.ClassLuxury
	}

	model := strings.ToLower(car.Model)
	switch {
	case containsAny(model, policy.SUVKeywords):
		return scoring.ClassSUV
	case containsAny(model, policy.SedanKeywords):
		return scoring.ClassSedan
	case containsAny(model, policy.HatchbackKeywords):
		return scoring.ClassHatchback
	}
	return policy.DefaultClass
}

// SelectTransformation picks the scene for a car class on a platform.
// Platform overrides take precedence over the class mapping.
func SelectTransformation(policy scoring.VisualPolicy, class string, platform core.Platform) scoring.Transformation {
	name, ok := policy.PlatformOverrides[platform]
	if !ok {
		name, ok = policy.ClassTransformations[class]
	}
	if !ok {
		name = policy.ClassTransformations[policy.DefaultClass]
	}
	if t, ok := policy.Transformations[name]; ok {
		return t
	}
	return policy.Transformations[scoring.UrbanLifestyle]
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
