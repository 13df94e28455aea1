package research

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"dealerstudio/internal/core"
	"dealerstudio/internal/llm"
)

// Grader scores a research context from 0 to 100. An error means the grade
// could not be obtained, never that the research was poor.
type Grader interface {
	Grade(ctx context.Context, rc core.ResearchContext) (float64, error)
}

// StaticGrader returns a fixed score. It stands in when no grading model is configured.
type StaticGrader struct {
	Score float64
}

// Grade returns the fixed score.
func (g StaticGrader) Grade(ctx context.Context, rc core.ResearchContext) (float64, error) {
	return g.Score, nil
}

// ModelGrader asks a language model to grade the research.
type ModelGrader struct {
	model llm.Generator
}

// NewModelGrader creates a grader backed by model.
func NewModelGrader(model llm.Generator) *ModelGrader {
	return &ModelGrader{model: model}
}

const gradingSystemPrompt = "You review marketing research for used car dealerships. Reply with a single integer from 0 to 100 and nothing else."

var scorePattern = regexp.MustCompile(`\b(\d{1,3})\b`)

// Grade asks the model for a score and parses it.
func (g *ModelGrader) Grade(ctx context.Context, rc core.ResearchContext) (float64, error) {
	resp, err := g.model.Generate(ctx, llm.Request{
		System:      gradingSystemPrompt,
		Prompt:      GradingPrompt(rc),
		MaxTokens:   8,
		Temperature: 0.1,
	})
	if err != nil {
		return 0, fmt.Errorf("research grading call failed: %w", err)
	}
	return ParseGrade(resp.Text)
}

// GradingPrompt renders the research context for the grading model.
func GradingPrompt(rc core.ResearchContext) string {
	var b strings.Builder
	b.WriteString("Grade how complete and useful this research is for writing social media posts.\n")
	b.WriteString("Consider dealer facts, seasonal relevance and whether every car has concrete selling points.\n\n")
	fmt.Fprintf(&b, "Dealer: %s (%s)\n", rc.Dealer.BusinessName, rc.Dealer.Location)
	fmt.Fprintf(&b, "Season: %s (demand x%.2f) %s\n", rc.Season.Kind, rc.Season.Multiplier, rc.Season.Message)
	b.WriteString("Business facts:\n")
	for _, f := range rc.BusinessFacts {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	b.WriteString("Selling points per car:\n")
	for _, id := range sortedKeys(rc.SellingPoints) {
		fmt.Fprintf(&b, "- %s: %s\n", id, strings.Join(rc.SellingPoints[id], "; "))
	}
	b.WriteString("\nScore (0-100):")
	return b.String()
}

// ParseGrade extracts the first integer in [0,100] from a model reply.
func ParseGrade(text string) (float64, error) {
	for _, m := range scorePattern.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n > 100 {
			continue
		}
		return float64(n), nil
	}
	return 0, fmt.Errorf("no score in grading response %q", truncate(text, 80))
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
