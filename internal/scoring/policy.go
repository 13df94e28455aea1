// Package scoring holds every weight table and threshold used to rank cars
// and to judge generated content. Changing a number here changes behaviour
// everywhere; nothing else in the module hard-codes a threshold.
package scoring

import (
	"regexp"
	"strings"

	"dealerstudio/internal/core"

	"github.com/shopspring/decimal"
)

// PriceRange is the price band (INR) in which a brand sells well.
type PriceRange struct {
	Min int64
	Max int64
}

// SelectorWeights weight the five car sub-scores. They sum to 1.0.
type SelectorWeights struct {
	Price        float64
	Brand        float64
	Condition    float64
	Verification float64
	Demand       float64
}

// Sum returns the total weight.
func (w SelectorWeights) Sum() float64 {
	return w.Price + w.Brand + w.Condition + w.Verification + w.Demand
}

// SelectorPolicy drives the car selector.
type SelectorPolicy struct {
	Weights SelectorWeights

	// Price fit
	BrandPriceRanges   map[string]PriceRange
	DefaultPriceRange  PriceRange // Applied to brands not in the table
	InRangeScore       float64
	NearRangeScore     float64 // Within NearRangeTolerance of either bound
	OutOfRangeScore    float64
	NearRangeTolerance float64

	// Brand popularity (0-10)
	BrandPopularity   map[string]float64
	DefaultPopularity float64

	// Condition
	ConditionBase        float64
	AgePenaltyPerYear    float64
	MileagePenaltyPer10k float64

	// Verification and listing completeness
	VerificationBase  float64
	VerifiedBonus     float64
	FeaturedBonus     float64
	PhotoBonus        float64 // Awarded at MinPhotos photos
	MinPhotos         int
	FeatureBonusEach  float64
	MaxFeatureBonus   float64
	DescriptionBonus  float64
	MinDescriptionLen int

	// Demand
	DemandBase          float64
	FuelDemand          map[string]float64
	AutomaticBonus      float64
	HighDemandLocations []string
	LocationBonus       float64

	MaxProbability float64
}

// QualityPolicy holds the content thresholds and heuristic weights.
type QualityPolicy struct {
	MinTextUniqueness   float64
	MinAccuracy         float64
	MinImageSuccessRate float64
	MinResearchScore    float64

	UniquenessFloor   float64
	UniquenessCeiling float64
	MinWordLength     int // Words must be longer than this to count

	BrandWeight    float64
	ContactWeight  float64
	LocationWeight float64

	EmojiWeight    float64
	CTAWeight      float64
	HashtagWeight  float64
	LengthWeight   float64
	EmojiAllowList []string
	CTAPattern     *regexp.Regexp
	ContactPattern *regexp.Regexp

	RegionalTerms []string
}

// PlatformSpec parameterises generation for one platform.
type PlatformSpec struct {
	Platform     core.Platform
	AspectRatio  string
	MaxChars     int
	HashtagCount int
	Tone         string
	MinLength    int
	MaxLength    int
}

// SeasonRule maps calendar months to a season.
type SeasonRule struct {
	Season core.Season
	Months []int
}

// Transformation is a named visual scene template.
type Transformation struct {
	Name         string
	Scene        string
	Lighting     string
	Storytelling string
}

// Transformation names.
const (
	AdventureScene        = "adventure_scene"
	ProfessionalLifestyle = "professional_lifestyle"
	FamilyOuting          = "family_outing"
	UrbanLifestyle        = "urban_lifestyle"
	PremiumLocation       = "premium_location"
)

// Car body classes used to pick a transformation.
const (
	ClassSUV       = "suv"
	ClassSedan     = "sedan"
	ClassHatchback = "hatchback"
	ClassLuxury    = "luxury"
)

// VisualPolicy drives car classification and image prompt selection.
type VisualPolicy struct {
	LuxuryBrands         []string
	LuxuryPriceThreshold int64
	SUVKeywords          []string
	SedanKeywords        []string
	HatchbackKeywords    []string
	DefaultClass         string
	ClassTransformations map[string]string
	PlatformOverrides    map[core.Platform]string
	Transformations      map[string]Transformation
	CostPerImage         decimal.Decimal
}

// Policy is the full scoring policy.
type Policy struct {
	Selector  SelectorPolicy
	Quality   QualityPolicy
	Platforms map[core.Platform]PlatformSpec
	Seasons   []SeasonRule
	Visual    VisualPolicy
}

// PlatformSpec returns the spec for p, falling back to Instagram's.
func (p *Policy) PlatformSpec(platform core.Platform) PlatformSpec {
	if spec, ok := p.Platforms[platform]; ok {
		return spec
	}
	return p.Platforms[core.PlatformInstagram]
}

// PriceRangeFor returns the configured band for brand and whether the brand was known.
func (s *SelectorPolicy) PriceRangeFor(brand string) (PriceRange, bool) {
	r, ok := s.BrandPriceRanges[normalizeBrand(brand)]
	if !ok {
		return s.DefaultPriceRange, false
	}
	return r, true
}

// PopularityFor returns the popularity score for brand.
func (s *SelectorPolicy) PopularityFor(brand string) float64 {
	if v, ok := s.BrandPopularity[normalizeBrand(brand)]; ok {
		return v
	}
	return s.DefaultPopularity
}

func normalizeBrand(brand string) string {
	return strings.ToLower(strings.TrimSpace(brand))
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// DefaultPolicy returns the production tables.
func DefaultPolicy() *Policy {
	return &Policy{
		Selector:  defaultSelectorPolicy(),
		Quality:   defaultQualityPolicy(),
		Platforms: defaultPlatforms(),
		Seasons:   defaultSeasons(),
		Visual:    defaultVisualPolicy(),
	}
}

func defaultSelectorPolicy() SelectorPolicy {
	return SelectorPolicy{
		Weights: SelectorWeights{
			Price:        0.25,
			Brand:        0.20,
			Condition:    0.20,
			Verification: 0.15,
			Demand:       0.20,
		},
		BrandPriceRanges: map[string]PriceRange{
			"maruti suzuki": {Min: 200000, Max: 800000},
			"maruti":        {Min: 200000, Max: 800000},
			"hyundai":       {Min: 300000, Max: 1200000},
			"tata":          {Min: 300000, Max: 1500000},
			"mahindra":      {Min: 500000, Max: 2000000},
			"honda":         {Min: 400000, Max: 1500000},
			"toyota":        {Min: 600000, Max: 3500000},
			"kia":           {Min: 600000, Max: 2000000},
			"renault":       {Min: 250000, Max: 900000},
			"volkswagen":    {Min: 400000, Max: 1500000},
			"skoda":         {Min: 500000, Max: 2000000},
			"mg":            {Min: 800000, Max: 2500000},
			"bmw":           {Min: 2000000, Max: 8000000},
			"mercedes-benz": {Min: 2500000, Max: 10000000},
			"audi":          {Min: 2000000, Max: 7000000},
		},
		DefaultPriceRange:  PriceRange{Min: 300000, Max: 1500000},
		InRangeScore:       8,
		NearRangeScore:     6,
		OutOfRangeScore:    4,
		NearRangeTolerance: 0.2,
		BrandPopularity: map[string]float64{
			"maruti suzuki": 9.5,
			"maruti":        9.5,
			"hyundai":       9,
			"tata":          8.5,
			"mahindra":      8.5,
			"toyota":        8.5,
			"honda":         8,
			"kia":           8,
			"renault":       6.5,
			"volkswagen":    7,
			"skoda":         7,
			"mg":            7,
			"bmw":           7.5,
			"mercedes-benz": 7.5,
			"audi":          7,
		},
		DefaultPopularity:    5,
		ConditionBase:        10,
		AgePenaltyPerYear:    0.5,
		MileagePenaltyPer10k: 0.5,
		VerificationBase:     4,
		VerifiedBonus:        3,
		FeaturedBonus:        1,
		PhotoBonus:           1,
		MinPhotos:            3,
		FeatureBonusEach:     0.25,
		MaxFeatureBonus:      1,
		DescriptionBonus:     0.5,
		MinDescriptionLen:    40,
		DemandBase:           5,
		FuelDemand: map[string]float64{
			"petrol":   1.5,
			"cng":      2,
			"diesel":   1,
			"hybrid":   1.5,
			"electric": 1,
		},
		AutomaticBonus:      1.5,
		HighDemandLocations: []string{"mumbai", "delhi", "bangalore", "bengaluru", "pune", "hyderabad", "chennai", "ahmedabad", "gurgaon", "noida"},
		LocationBonus:       1.5,
		MaxProbability:      95,
	}
}

func defaultQualityPolicy() QualityPolicy {
	return QualityPolicy{
		MinTextUniqueness:   90,
		MinAccuracy:         80,
		MinImageSuccessRate: 50,
		MinResearchScore:    80,
		UniquenessFloor:     70,
		UniquenessCeiling:   100,
		MinWordLength:       2,
		BrandWeight:         40,
		ContactWeight:       30,
		LocationWeight:      30,
		EmojiWeight:         25,
		CTAWeight:           25,
		HashtagWeight:       20,
		LengthWeight:        30,
		EmojiAllowList:      []string{"🚗", "🚙", "🏎️", "✨", "🔥", "💯", "📞", "👉", "⭐", "🎉", "🪔", "💍", "🌧️", "✅", "📍", "💰"},
		CTAPattern:          regexp.MustCompile(`(?i)\b(call|contact|visit|book|dm|message|whatsapp|test drive|enquire|inquire)\b`),
		ContactPattern:      regexp.MustCompile(`(?i)(\+?\d[\d\s-]{7,}\d|\bcall\b|\bwhatsapp\b|\bcontact\b|\bdm\b|www\.|https?://)`),
		RegionalTerms:       []string{"₹", "rs", "inr", "lakh", "lakhs", "km", "diwali", "festive", "wedding", "monsoon", "india"},
	}
}

func defaultPlatforms() map[core.Platform]PlatformSpec {
	return map[core.Platform]PlatformSpec{
		core.PlatformInstagram: {
			Platform:     core.PlatformInstagram,
			AspectRatio:  "1:1",
			MaxChars:     2200,
			HashtagCount: 15,
			Tone:         "energetic, visual and emoji-rich",
			MinLength:    100,
			MaxLength:    2200,
		},
		core.PlatformFacebook: {
			Platform:     core.PlatformFacebook,
			AspectRatio:  "16:9",
			MaxChars:     500,
			HashtagCount: 5,
			Tone:         "friendly, community focused and trustworthy",
			MinLength:    80,
			MaxLength:    500,
		},
		core.PlatformLinkedIn: {
			Platform:     core.PlatformLinkedIn,
			AspectRatio:  "16:9",
			MaxChars:     1300,
			HashtagCount: 5,
			Tone:         "professional, value focused and concise",
			MinLength:    150,
			MaxLength:    1300,
		},
		core.PlatformWhatsApp: {
			Platform:     core.PlatformWhatsApp,
			AspectRatio:  "1:1",
			MaxChars:     1024,
			HashtagCount: 0,
			Tone:         "conversational and direct",
			MinLength:    20,
			MaxLength:    1024,
		},
	}
}

func defaultSeasons() []SeasonRule {
	return []SeasonRule{
		{
			Season: core.Season{Kind: core.SeasonFestival, Multiplier: 1.35, Message: "Festive season offers are live. Bring home a car this Diwali!"},
			Months: []int{10, 11},
		},
		{
			Season: core.Season{Kind: core.SeasonWedding, Multiplier: 1.20, Message: "Wedding season is here. Arrive in style with a trusted pre-owned car."},
			Months: []int{12, 1, 2, 4, 5},
		},
		{
			Season: core.Season{Kind: core.SeasonMonsoon, Multiplier: 1.10, Message: "Monsoon ready cars, inspected and safe for the rains."},
			Months: []int{6, 7, 8, 9},
		},
	}
}

func defaultVisualPolicy() VisualPolicy {
	return VisualPolicy{
		LuxuryBrands:         []string{"bmw", "mercedes", "mercedes-benz", "audi", "jaguar", "land rover", "volvo", "lexus", "porsche"},
		LuxuryPriceThreshold: 2500000,
		SUVKeywords:          []string{"creta", "seltos", "xuv", "scorpio", "fortuner", "brezza", "nexon", "harrier", "safari", "thar", "venue", "sonet", "hector", "ecosport", "duster", "innova", "ertiga", "bolero", "compass", "kushaq", "taigun"},
		SedanKeywords:        []string{"city", "ciaz", "verna", "dzire", "amaze", "slavia", "virtus", "corolla", "camry", "aura", "tigor", "octavia", "elantra"},
		HatchbackKeywords:    []string{"swift", "baleno", "i20", "i10", "alto", "wagon", "celerio", "tiago", "altroz", "polo", "jazz", "kwid", "glanza", "ignis", "s-presso"},
		DefaultClass:         ClassHatchback,
		ClassTransformations: map[string]string{
			ClassSUV:       AdventureScene,
			ClassSedan:     ProfessionalLifestyle,
			ClassHatchback: UrbanLifestyle,
			ClassLuxury:    PremiumLocation,
		},
		PlatformOverrides: map[core.Platform]string{
			core.PlatformLinkedIn: ProfessionalLifestyle,
			core.PlatformFacebook: FamilyOuting,
		},
		Transformations: map[string]Transformation{
			AdventureScene: {
				Name:         AdventureScene,
				Scene:        "a scenic mountain road or open highway with rugged terrain in the background",
				Lighting:     "golden hour sunlight with long soft shadows",
				Storytelling: "freedom, weekend getaways and confidence on any road",
			},
			ProfessionalLifestyle: {
				Name:         ProfessionalLifestyle,
				Scene:        "a modern corporate office driveway with glass buildings",
				Lighting:     "clean, bright daylight with crisp reflections",
				Storytelling: "success, reliability and a polished daily commute",
			},
			FamilyOuting: {
				Name:         FamilyOuting,
				Scene:        "a pleasant residential street or park entrance suited to a family day out",
				Lighting:     "warm, natural afternoon light",
				Storytelling: "safety, space and memories with the family",
			},
			UrbanLifestyle: {
				Name:         UrbanLifestyle,
				Scene:        "a vibrant city street with cafes and soft bokeh lights",
				Lighting:     "evening city glow with balanced highlights",
				Storytelling: "easy city driving, smart ownership and everyday convenience",
			},
			PremiumLocation: {
				Name:         PremiumLocation,
				Scene:        "the entrance of a luxury hotel or an upscale waterfront promenade",
				Lighting:     "dramatic, high contrast twilight lighting",
				Storytelling: "prestige, refinement and an elevated lifestyle",
			},
		},
		CostPerImage: decimal.RequireFromString("0.039"),
	}
}
