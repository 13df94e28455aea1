// Package selector ranks a dealer's inventory to decide which cars get content.
package selector

import (
	"math"
	"sort"
	"strings"
	"time"

	"dealerstudio/internal/core"
	"dealerstudio/internal/scoring"
)

// Skipped records a car that could not be scored.
type Skipped struct {
	CarID  string `json:"car_id"`
	Reason string `json:"reason"`
}

// Ranking is the selector output.
type Ranking struct {
	Scores  []core.CarScore `json:"scores"`
	Skipped []Skipped       `json:"skipped,omitempty"`
}

// Selector scores cars with a fixed policy. It holds no mutable state.
type Selector struct {
	policy scoring.SelectorPolicy
	now    func() time.Time
}

// New creates a selector. A nil now uses time.Now.
func New(policy *scoring.Policy, now func() time.Time) *Selector {
	if policy == nil {
		policy = scoring.DefaultPolicy()
	}
	if now == nil {
		now = time.Now
	}
	return &Selector{policy: policy.Selector, now: now}
}

// Rank scores every valid car and orders them best first. Cars with equal
// totals are ordered by ID so repeated calls return the same order.
func (s *Selector) Rank(cars []core.Car) Ranking {
	var ranking Ranking
	for _, car := range cars {
		if err := car.Validate(); err != nil {
			ranking.Skipped = append(ranking.Skipped, Skipped{CarID: car.ID, Reason: err.Error()})
			continue
		}
		ranking.Scores = append(ranking.Scores, s.Score(car))
	}

	sort.SliceStable(ranking.Scores, func(i, j int) bool {
		a, b := ranking.Scores[i], ranking.Scores[j]
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		return a.Car.ID < b.Car.ID
	})
	return ranking
}

// SelectTop returns the n best cars. n <= 0 returns every valid car.
func (s *Selector) SelectTop(cars []core.Car, n int) Ranking {
	ranking := s.Rank(cars)
	if n > 0 && len(ranking.Scores) > n {
		ranking.Scores = ranking.Scores[:n]
	}
	return ranking
}

// Score computes the sub-scores and weighted total for one car.
func (s *Selector) Score(car core.Car) core.CarScore {
	w := s.policy.Weights
	score := core.CarScore{
		Car:          car,
		Price:        s.priceScore(car),
		Brand:        s.brandScore(car),
		Condition:    s.conditionScore(car),
		Verification: s.verificationScore(car),
		Demand:       s.demandScore(car),
	}
	score.Total = score.Price*w.Price +
		score.Brand*w.Brand +
		score.Condition*w.Condition +
		score.Verification*w.Verification +
		score.Demand*w.Demand
	score.Total = scoring.Clamp(score.Total, 0, 10)
	score.Probability = math.Min(score.Total/10*100, s.policy.MaxProbability)
	return score
}

func (s *Selector) priceScore(car core.Car) float64 {
	r, _ := s.policy.PriceRangeFor(car.Brand)
	price := float64(car.Price)
	lo, hi := float64(r.Min), float64(r.Max)

	switch {
	case price >= lo && price <= hi:
		return scoring.Clamp(s.policy.InRangeScore, 0, 10)
	case price >= lo*(1-s.policy.NearRangeTolerance) && price <= hi*(1+s.policy.NearRangeTolerance):
		return scoring.Clamp(s.policy.NearRangeScore, 0, 10)
	default:
		return scoring.Clamp(s.policy.OutOfRangeScore, 0, 10)
	}
}

func (s *Selector) brandScore(car core.Car) float64 {
	return scoring.Clamp(s.policy.PopularityFor(car.Brand), 0, 10)
}

func (s *Selector) conditionScore(car core.Car) float64 {
	age := s.now().Year() - car.Year
	if age < 0 {
		age = 0
	}
	score := s.policy.ConditionBase -
		float64(age)*s.policy.AgePenaltyPerYear -
		float64(car.Mileage)/10000*s.policy.MileagePenaltyPer10k
	return scoring.Clamp(score, 0, 10)
}

func (s *Selector) verificationScore(car core.Car) float64 {
	score := s.policy.VerificationBase
	if car.IsVerified {
		score += s.policy.VerifiedBonus
	}
	if car.IsFeatured {
		score += s.policy.FeaturedBonus
	}
	if len(car.Images) >= s.policy.MinPhotos {
		score += s.policy.PhotoBonus
	}
	score += math.Min(float64(len(car.Features))*s.policy.FeatureBonusEach, s.policy.MaxFeatureBonus)
	if len(strings.TrimSpace(car.Description)) >= s.policy.MinDescriptionLen {
		score += s.policy.DescriptionBonus
	}
	return scoring.Clamp(score, 0, 10)
}

func (s *Selector) demandScore(car core.Car) float64 {
	score := s.policy.DemandBase
	fuel := strings.ToLower(car.FuelType)
	if bonus, ok := s.policy.FuelDemand[fuel]; ok {
		score += bonus
	} else {
		// "petrol+cng" style values: first match in name order keeps Rank deterministic.
		names := make([]string, 0, len(s.policy.FuelDemand))
		for name := range s.policy.FuelDemand {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if strings.Contains(fuel, name) {
				score += s.policy.FuelDemand[name]
				break
			}
		}
	}
	if strings.Contains(strings.ToLower(car.Transmission), "auto") {
		score += s.policy.AutomaticBonus
	}
	location := strings.ToLower(car.Location)
	for _, city := range s.policy.HighDemandLocations {
		if strings.Contains(location, city) {
			score += s.policy.LocationBonus
			break
		}
	}
	return scoring.Clamp(score, 0, 10)
}

// ExcludeRecent drops cars that still have unexpired generated content.
func ExcludeRecent(cars []core.Car, recentIDs []string) []core.Car {
	if len(recentIDs) == 0 {
		return cars
	}
	recent := make(map[string]struct{}, len(recentIDs))
	for _, id := range recentIDs {
		recent[id] = struct{}{}
	}
	out := make([]core.Car, 0, len(cars))
	for _, car := range cars {
		if _, ok := recent[car.ID]; ok {
			continue
		}
		out = append(out, car)
	}
	return out
}
