// Package research builds the context bundle handed to the content generators.
package research

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"dealerstudio/internal/core"
	"dealerstudio/internal/scoring"
)

// DetectSeason maps a calendar month to its demand season. Months not
// covered by any rule get SeasonNone with a multiplier of 1.
func DetectSeason(rules []scoring.SeasonRule, month time.Month) core.Season {
	for _, rule := range rules {
		for _, m := range rule.Months {
			if time.Month(m) == month {
				return rule.Season
			}
		}
	}
	return core.Season{
		Kind:       core.SeasonNone,
		Multiplier: 1.0,
		Message:    "Great deals on certified pre-owned cars all year round.",
	}
}

// Researcher assembles research context from already loaded data.
type Researcher struct {
	policy *scoring.Policy
}

// NewResearcher creates a researcher. A nil policy uses the defaults.
func NewResearcher(policy *scoring.Policy) *Researcher {
	if policy == nil {
		policy = scoring.DefaultPolicy()
	}
	return &Researcher{policy: policy}
}

// Build returns the context for one run. It performs no I/O and returns the
// same result for the same inputs.
func (r *Researcher) Build(dealer core.DealerContext, cars []core.Car, now time.Time) core.ResearchContext {
	season := DetectSeason(r.policy.Seasons, now.Month())
	rc := core.ResearchContext{
		Dealer:        dealer,
		Season:        season,
		BusinessFacts: businessFacts(dealer),
		SellingPoints: make(map[string][]string, len(cars)),
		PreparedAt:    now,
	}
	for _, car := range cars {
		rc.SellingPoints[car.ID] = r.sellingPoints(car, season, now)
	}
	return rc
}

func businessFacts(d core.DealerContext) []string {
	var facts []string
	if d.BusinessName != "" {
		if d.Location != "" {
			facts = append(facts, fmt.Sprintf("%s is a used car dealership in %s", d.BusinessName, d.Location))
		} else {
			facts = append(facts, fmt.Sprintf("%s is a used car dealership", d.BusinessName))
		}
	}
	if desc := strings.TrimSpace(d.Description); desc != "" {
		facts = append(facts, desc)
	}
	if contact := d.ContactLine(); contact != "" {
		facts = append(facts, "Contact: "+contact)
	}
	if d.Email != "" {
		facts = append(facts, "Email: "+d.Email)
	}
	facts = append(facts,
		"Every car is inspected before listing",
		"Transparent pricing with easy financing and paperwork support",
	)
	return facts
}

func (r *Researcher) sellingPoints(car core.Car, season core.Season, now time.Time) []string {
	var points []string

	age := now.Year() - car.Year
	switch {
	case age <= 1:
		points = append(points, fmt.Sprintf("Nearly new %d model", car.Year))
	case age <= 4:
		points = append(points, fmt.Sprintf("Only %d years old", age))
	}

	if car.Mileage > 0 && car.Mileage < 30000 {
		points = append(points, fmt.Sprintf("Low mileage, just %s km driven", core.GroupIndian(int64(car.Mileage))))
	}
	if fuel := strings.ToLower(car.FuelType); fuel == "cng" || fuel == "electric" || fuel == "hybrid" {
		points = append(points, fmt.Sprintf("Economical %s running costs", fuel))
	}
	if strings.Contains(strings.ToLower(car.Transmission), "auto") {
		points = append(points, "Automatic transmission for easy city driving")
	}
	if car.IsVerified {
		points = append(points, "Dealer verified and inspected")
	}

	if rng, known := r.policy.Selector.PriceRangeFor(car.Brand); known && car.Price <= rng.Max {
		points = append(points, fmt.Sprintf("Competitively priced for a %s", car.Brand))
	}

	features := car.Features
	if len(features) > 3 {
		features = features[:3]
	}
	if len(features) > 0 {
		points = append(points, "Features: "+strings.Join(features, ", "))
	}

	if season.Kind != core.SeasonNone {
		points = append(points, season.Message)
	}
	return points
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
