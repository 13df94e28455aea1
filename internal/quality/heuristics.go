// Package quality scores generated captions and images against the policy thresholds.
package quality

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"dealerstudio/internal/core"
	"dealerstudio/internal/scoring"
)

// Uniqueness is the lexical diversity of one caption.
type Uniqueness struct {
	Ratio float64 // distinct / total counted words, 0-1
	Score float64 // Ratio scaled onto [floor, ceiling]
	Words int     // words counted
}

// TextUniqueness measures distinct lowercase words longer than
// policy.MinWordLength against all such words. It is a lexical diversity
// proxy, not a comparison with earlier posts. Text with no countable words
// scores the floor.
func TextUniqueness(policy scoring.QualityPolicy, text string) Uniqueness {
	words := countedWords(text, policy.MinWordLength)
	if len(words) == 0 {
		return Uniqueness{Score: policy.UniquenessFloor}
	}
	distinct := make(map[string]struct{}, len(words))
	for _, w := range words {
		distinct[w] = struct{}{}
	}
	ratio := float64(len(distinct)) / float64(len(words))
	span := policy.UniquenessCeiling - policy.UniquenessFloor
	return Uniqueness{
		Ratio: ratio,
		Score: scoring.Clamp(policy.UniquenessFloor+ratio*span, policy.UniquenessFloor, policy.UniquenessCeiling),
		Words: len(words),
	}
}

func countedWords(text string, minLen int) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) > minLen {
			out = append(out, f)
		}
	}
	return out
}

// Accuracy is the percentage of {year, brand, location} found verbatim
// (case-insensitive) in text. The car's city is used, falling back to the
// dealer's when the listing has none.
func Accuracy(text string, car core.Car, dealer core.DealerContext) float64 {
	lower := strings.ToLower(text)
	location := car.Location
	if strings.TrimSpace(location) == "" {
		location = dealer.Location
	}

	year := ""
	if car.Year > 0 {
		year = strconv.Itoa(car.Year)
	}
	checks := []string{year, car.Brand, location}
	found := 0
	for _, c := range checks {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" && strings.Contains(lower, c) {
			found++
		}
	}
	return float64(found) / float64(len(checks)) * 100
}

// BrandCompliance weighs the dealer name, a contact marker and the showroom location.
func BrandCompliance(policy scoring.QualityPolicy, text string, dealer core.DealerContext) float64 {
	lower := strings.ToLower(text)
	score := 0.0
	if name := strings.ToLower(strings.TrimSpace(dealer.BusinessName)); name != "" && strings.Contains(lower, name) {
		score += policy.BrandWeight
	}
	if hasContact(policy, text, dealer) {
		score += policy.ContactWeight
	}
	if loc := strings.ToLower(strings.TrimSpace(dealer.Location)); loc != "" && strings.Contains(lower, loc) {
		score += policy.LocationWeight
	}
	return scoring.Clamp(score, 0, 100)
}

func hasContact(policy scoring.QualityPolicy, text string, dealer core.DealerContext) bool {
	for _, c := range []string{dealer.Phone, dealer.WhatsApp, dealer.Email, dealer.Website} {
		if c != "" && strings.Contains(text, c) {
			return true
		}
	}
	return policy.ContactPattern != nil && policy.ContactPattern.MatchString(text)
}

// Engagement weighs emoji use, a call to action, hashtags and a caption
// length inside the platform window.
func Engagement(policy scoring.QualityPolicy, spec scoring.PlatformSpec, text string, hashtags []string) float64 {
	score := 0.0
	for _, e := range policy.EmojiAllowList {
		if strings.Contains(text, e) {
			score += policy.EmojiWeight
			break
		}
	}
	if policy.CTAPattern != nil && policy.CTAPattern.MatchString(text) {
		score += policy.CTAWeight
	}
	if len(hashtags) > 0 {
		score += policy.HashtagWeight
	}
	if n := utf8.RuneCountInString(text); n >= spec.MinLength && n <= spec.MaxLength {
		score += policy.LengthWeight
	}
	return scoring.Clamp(score, 0, 100)
}

// RegionalRelevance gives half the score for naming the city and the other
// half for regional terms (currency, lakh, festivals), 25 per term.
func RegionalRelevance(policy scoring.QualityPolicy, text string, car core.Car, dealer core.DealerContext) float64 {
	lower := strings.ToLower(text)
	score := 0.0
	for _, loc := range []string{car.Location, dealer.Location} {
		if loc = strings.ToLower(strings.TrimSpace(loc)); loc != "" && strings.Contains(lower, loc) {
			score += 50
			break
		}
	}

	words := make(map[string]struct{})
	for _, w := range countedWords(lower, 0) {
		words[w] = struct{}{}
	}
	matched := 0
	for _, term := range policy.RegionalTerms {
		if matched == 2 {
			break
		}
		if _, ok := words[term]; ok || (!isWord(term) && strings.Contains(lower, term)) {
			matched++
		}
	}
	return scoring.Clamp(score+float64(matched)*25, 0, 100)
}

// ImageSuccessRate is the percentage of attempted image edits that succeeded.
// Items whose image step was never attempted are not counted.
func ImageSuccessRate(items []core.ContentItem) float64 {
	attempted, ok := 0, 0
	for _, it := range items {
		switch it.ImageStatus {
		case core.ImageEdited:
			attempted++
			ok++
		case core.ImageFallback:
			attempted++
		}
	}
	if attempted == 0 {
		return 0
	}
	return float64(ok) / float64(attempted) * 100
}

// Approve applies the batch approval rule: uniqueness, accuracy and image
// success must all meet their thresholds.
func Approve(policy scoring.QualityPolicy, m core.QualityMetrics) bool {
	return m.TextUniqueness >= policy.MinTextUniqueness &&
		m.Accuracy >= policy.MinAccuracy &&
		m.ImageSuccessRate >= policy.MinImageSuccessRate
}

func isWord(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
