package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Platform identifies a social channel content is generated for.
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformWhatsApp  Platform = "whatsapp"
)

// AllPlatforms lists every supported platform in generation order.
var AllPlatforms = []Platform{PlatformInstagram, PlatformFacebook, PlatformLinkedIn, PlatformWhatsApp}

// ParsePlatform converts a user supplied name into a Platform.
func ParsePlatform(name string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range AllPlatforms {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown platform %q", name)
}

// Car is a vehicle listed by a dealer. The pipeline only reads it.
type Car struct {
	ID           string   `json:"id"`           // Unique identifier for the car
	DealerID     string   `json:"dealer_id"`    // Owning dealer
	Brand        string   `json:"brand"`        // Manufacturer, e.g. "Maruti Suzuki"
	Model        string   `json:"model"`        // Model name, e.g. "Swift VXI"
	Year         int      `json:"year"`         // Registration year
	Price        int64    `json:"price"`        // Asking price in INR
	Mileage      int      `json:"mileage"`      // Odometer reading in km
	FuelType     string   `json:"fuel_type"`    // petrol, diesel, cng, electric, hybrid
	Transmission string   `json:"transmission"` // manual or automatic
	Location     string   `json:"location"`     // City the car is available in
	Images       []string `json:"images"`       // Ordered photo URLs, first is the cover
	Features     []string `json:"features"`     // Listed features
	IsVerified   bool     `json:"is_verified"`  // Inspection completed by the dealer
	IsFeatured   bool     `json:"is_featured"`  // Promoted on the storefront
	Description  string   `json:"description"`  // Free text from the listing
}

// Validate reports the first missing field that the pipeline depends on.
func (c Car) Validate() error {
	switch {
	case strings.TrimSpace(c.ID) == "":
		return fmt.Errorf("car has no id")
	case strings.TrimSpace(c.Brand) == "":
		return fmt.Errorf("car %s has no brand", c.ID)
	case strings.TrimSpace(c.Model) == "":
		return fmt.Errorf("car %s has no model", c.ID)
	case c.Price <= 0:
		return fmt.Errorf("car %s has no price", c.ID)
	case c.Year <= 0:
		return fmt.Errorf("car %s has no year", c.ID)
	}
	return nil
}

// CoverImage returns the first listing photo, or "" when the car has none.
func (c Car) CoverImage() string {
	if len(c.Images) == 0 {
		return ""
	}
	return c.Images[0]
}

// DisplayName is the "2020 Maruti Suzuki Swift" form used in prompts and captions.
func (c Car) DisplayName() string {
	return fmt.Sprintf("%d %s %s", c.Year, c.Brand, c.Model)
}

// DealerContext holds the storefront facts supplied by the caller for one run.
type DealerContext struct {
	ID           string `json:"id"`            // Dealer identifier
	UserID       string `json:"user_id"`       // Account that owns the storefront
	BusinessName string `json:"business_name"` // Brand token used in captions
	Location     string `json:"location"`      // City of the showroom
	LogoURL      string `json:"logo_url"`      // Logo used as branding context
	Description  string `json:"description"`   // Short business description
	Phone        string `json:"phone"`         // Contact phone
	WhatsApp     string `json:"whatsapp"`      // WhatsApp business number
	Email        string `json:"email"`         // Contact email
	Website      string `json:"website"`       // Storefront URL
}

// ContactLine is the contact string embedded in prompts and templates.
func (d DealerContext) ContactLine() string {
	var parts []string
	if d.Phone != "" {
		parts = append(parts, "Call "+d.Phone)
	}
	if d.WhatsApp != "" && d.WhatsApp != d.Phone {
		parts = append(parts, "WhatsApp "+d.WhatsApp)
	}
	if d.Website != "" {
		parts = append(parts, d.Website)
	}
	return strings.Join(parts, " | ")
}

// SeasonKind names a seasonal demand period.
type SeasonKind string

const (
	SeasonFestival SeasonKind = "festival"
	SeasonWedding  SeasonKind = "wedding"
	SeasonMonsoon  SeasonKind = "monsoon-friendly"
	SeasonNone     SeasonKind = "none"
)

// Season is the demand context for the month a run happens in.
type Season struct {
	Kind       SeasonKind `json:"kind"`
	Multiplier float64    `json:"multiplier"` // Demand multiplier applied to messaging
	Message    string     `json:"message"`    // Canned seasonal hook
}

// ResearchContext is the bundle the research stage hands to generators.
type ResearchContext struct {
	Dealer        DealerContext       `json:"dealer"`
	Season        Season              `json:"season"`
	BusinessFacts []string            `json:"business_facts"`
	SellingPoints map[string][]string `json:"selling_points"` // Keyed by car ID
	PreparedAt    time.Time           `json:"prepared_at"`
}

// TextContent is the caption produced for one car and platform.
type TextContent struct {
	Text     string          `json:"text"`
	Hashtags []string        `json:"hashtags"`
	Model    string          `json:"model"` // Empty when no model call was made
	Cost     decimal.Decimal `json:"cost"`
}

// ImageResult is the outcome of one image edit. When Success is false the URL
// is the untouched original photo and Cost is zero.
type ImageResult struct {
	URL            string          `json:"url"`
	OriginalURL    string          `json:"original_url"`
	Transformation string          `json:"transformation"`
	Cost           decimal.Decimal `json:"cost"`
	Success        bool            `json:"success"`
	Error          string          `json:"error,omitempty"`
}

// ImageStatus records what happened to the image step of a content item.
type ImageStatus string

const (
	ImageEdited   ImageStatus = "edited"   // Edit succeeded
	ImageFallback ImageStatus = "fallback" // Edit failed, original photo reused
	ImageSkipped  ImageStatus = "skipped"  // Never attempted because the text step failed
)

// ContentItem is one generated (text, image) pair for one car on one platform.
type ContentItem struct {
	ID            string          `json:"id"`
	CarID         string          `json:"car_id"`
	Platform      Platform        `json:"platform"`
	Text          string          `json:"text"`
	Hashtags      []string        `json:"hashtags"`
	ImageURL      string          `json:"image_url"`
	OriginalImage string          `json:"original_image"`
	ImageStatus   ImageStatus     `json:"image_status"`
	Transform     string          `json:"transformation,omitempty"`
	Success       bool            `json:"success"`
	Cost          decimal.Decimal `json:"cost"`
	Cached        bool            `json:"cached"`
	Errors        []string        `json:"errors,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// CarScore is the selector's breakdown for one car. Every component is in [0,10].
type CarScore struct {
	Car          Car     `json:"car"`
	Price        float64 `json:"price_score"`
	Brand        float64 `json:"brand_score"`
	Condition    float64 `json:"condition_score"`
	Verification float64 `json:"verification_score"`
	Demand       float64 `json:"demand_score"`
	Total        float64 `json:"total"`       // Weighted sum, at most 10
	Probability  float64 `json:"probability"` // Estimated sale probability, at most 95
}

// QualityMetrics are the raw heuristic numbers behind a report.
type QualityMetrics struct {
	TextUniqueness    float64 `json:"text_uniqueness"`    // 70-100
	LexicalRatio      float64 `json:"lexical_ratio"`      // distinct/total words, 0-1
	Accuracy          float64 `json:"accuracy"`           // 0-100
	BrandCompliance   float64 `json:"brand_compliance"`   // 0-100
	Engagement        float64 `json:"engagement"`         // 0-100
	RegionalRelevance float64 `json:"regional_relevance"` // 0-100
	ImageSuccessRate  float64 `json:"image_success_rate"` // 0-100
	ResearchScore     float64 `json:"research_score"`     // 0-100, from the grader
	ItemsEvaluated    int     `json:"items_evaluated"`
}

// QualityReport is derived once per batch and never updated.
type QualityReport struct {
	BrandCompliance   float64  `json:"brand_compliance"`
	Accuracy          float64  `json:"accuracy"`
	Engagement        float64  `json:"engagement"`
	RegionalRelevance float64  `json:"regional_relevance"`
	Overall           float64  `json:"overall"`
	Approved          bool     `json:"approved"`
	Suggestions       []string `json:"suggestions"`
}

// QualitySummary is what the orchestrator returns as quality_metrics.
type QualitySummary struct {
	Metrics QualityMetrics `json:"metrics"`
	Report  QualityReport  `json:"report"`
}

// PipelineResult is the return value of one weekly content run.
type PipelineResult struct {
	RunID          string          `json:"run_id"`
	DealerID       string          `json:"dealer_id"`
	Content        []ContentItem   `json:"content"`
	QualityMetrics QualitySummary  `json:"quality_metrics"`
	GeneratedAt    time.Time       `json:"generated_at"`
	ExpiresAt      time.Time       `json:"expires_at"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	SkippedCars    []string        `json:"skipped_cars,omitempty"`
}

// GroupIndian formats n with Indian digit grouping, e.g. 1,23,456.
func GroupIndian(n int64) string {
	sign := ""
	if n < 0 {
		sign, n = "-", -n
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return sign + s
	}
	head, tail := s[:len(s)-3], s[len(s)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return sign + strings.Join(groups, ",") + "," + tail
}

// FormatINR renders a rupee amount such as ₹4,50,000.
func FormatINR(amount int64) string {
	return "₹" + GroupIndian(amount)
}
