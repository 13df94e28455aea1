package quality

import (
	"fmt"

	"dealerstudio/internal/core"
	"dealerstudio/internal/scoring"
)

// Evaluator scores a batch of content items.
type Evaluator struct {
	policy *scoring.Policy
}

// NewEvaluator creates an evaluator. A nil policy uses the defaults.
func NewEvaluator(policy *scoring.Policy) *Evaluator {
	if policy == nil {
		policy = scoring.DefaultPolicy()
	}
	return &Evaluator{policy: policy}
}

// Policy returns the quality thresholds in use.
func (e *Evaluator) Policy() scoring.QualityPolicy {
	return e.policy.Quality
}

// Evaluate computes metrics and the report for a batch. Text metrics are
// averaged over items that carry text; cars are looked up by ID. The
// result is derived fresh on every call.
func (e *Evaluator) Evaluate(items []core.ContentItem, cars []core.Car, dealer core.DealerContext) core.QualitySummary {
	q := e.policy.Quality
	byID := make(map[string]core.Car, len(cars))
	for _, c := range cars {
		byID[c.ID] = c
	}

	var (
		m                                         core.QualityMetrics
		uniq, ratio, acc, brand, engage, regional float64
		n                                         int
	)
	for _, it := range items {
		if it.Text == "" {
			continue
		}
		car := byID[it.CarID]
		spec := e.policy.PlatformSpec(it.Platform)

		u := TextUniqueness(q, it.Text)
		uniq += u.Score
		ratio += u.Ratio
		acc += Accuracy(it.Text, car, dealer)
		brand += BrandCompliance(q, it.Text, dealer)
		engage += Engagement(q, spec, it.Text, it.Hashtags)
		regional += RegionalRelevance(q, it.Text, car, dealer)
		n++
	}
	if n > 0 {
		f := float64(n)
		m.TextUniqueness = uniq / f
		m.LexicalRatio = ratio / f
		m.Accuracy = acc / f
		m.BrandCompliance = brand / f
		m.Engagement = engage / f
		m.RegionalRelevance = regional / f
	}
	m.ImageSuccessRate = ImageSuccessRate(items)
	m.ItemsEvaluated = n

	report := core.QualityReport{
		BrandCompliance:   m.BrandCompliance,
		Accuracy:          m.Accuracy,
		Engagement:        m.Engagement,
		RegionalRelevance: m.RegionalRelevance,
		Overall:           (m.BrandCompliance + m.Accuracy + m.Engagement + m.RegionalRelevance) / 4,
		Approved:          Approve(q, m),
		Suggestions:       e.suggestions(m),
	}
	return core.QualitySummary{Metrics: m, Report: report}
}

func (e *Evaluator) suggestions(m core.QualityMetrics) []string {
	q := e.policy.Quality
	out := []string{}
	if m.ItemsEvaluated == 0 {
		return append(out, "No captions were generated; check the text model configuration")
	}
	if m.TextUniqueness < q.MinTextUniqueness {
		out = append(out, fmt.Sprintf("Captions repeat words too often (uniqueness %.0f, need %.0f); vary the wording", m.TextUniqueness, q.MinTextUniqueness))
	}
	if m.Accuracy < q.MinAccuracy {
		out = append(out, fmt.Sprintf("Mention the year, brand and city of every car (accuracy %.0f, need %.0f)", m.Accuracy, q.MinAccuracy))
	}
	if m.ImageSuccessRate < q.MinImageSuccessRate {
		out = append(out, fmt.Sprintf("Most image edits failed (%.0f%% succeeded); check the source photos and the image service", m.ImageSuccessRate))
	}
	if m.BrandCompliance < q.BrandWeight+q.ContactWeight {
		out = append(out, "Include the dealership name and contact details in each caption")
	}
	if m.Engagement < 50 {
		out = append(out, "Add emojis, a clear call to action and hashtags")
	}
	if m.RegionalRelevance < 50 {
		out = append(out, "Reference the city and local terms such as lakh or ₹ pricing")
	}
	return out
}
