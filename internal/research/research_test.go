package research

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"dealerstudio/internal/core"
	"dealerstudio/internal/llm"
	"dealerstudio/internal/scoring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockGenerator struct {
	GenerateFunc func(ctx context.Context, req llm.Request) (llm.Completion, error)
}

func (m *mockGenerator) Generate(ctx context.Context, req llm.Request) (llm.Completion, error) {
	return m.GenerateFunc(ctx, req)
}

func (m *mockGenerator) ModelName() string { return "mock" }

func testDealer() core.DealerContext {
	return core.DealerContext{
		ID: "d1", BusinessName: "Sharma Motors", Location: "Pune",
		Phone: "+91 98765 43210", Website: "https://sharmamotors.in",
		Description: "Family run dealership since 1998.",
	}
}

func TestDetectSeason(t *testing.T) {
	rules := scoring.DefaultPolicy().Seasons
	tests := []struct {
		month time.Month
		kind  core.SeasonKind
		mult  float64
	}{
		{time.October, core.SeasonFestival, 1.35},
		{time.November, core.SeasonFestival, 1.35},
		{time.December, core.SeasonWedding, 1.20},
		{time.January, core.SeasonWedding, 1.20},
		{time.May, core.SeasonWedding, 1.20},
		{time.July, core.SeasonMonsoon, 1.10},
		{time.March, core.SeasonNone, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.month.String(), func(t *testing.T) {
			s := DetectSeason(rules, tt.month)
			assert.Equal(t, tt.kind, s.Kind)
			assert.Equal(t, tt.mult, s.Multiplier)
			assert.NotEmpty(t, s.Message)
		})
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	r := NewResearcher(nil)
	now := time.Date(2025, time.October, 5, 10, 0, 0, 0, time.UTC)
	cars := []core.Car{
		{ID: "c1", Brand: "Maruti Suzuki", Model: "Swift", Year: 2024, Price: 600000, Mileage: 8000, FuelType: "CNG", IsVerified: true, Features: []string{"abs", "airbags", "camera", "alloys"}},
		{ID: "c2", Brand: "Hyundai", Model: "Creta", Year: 2019, Price: 1100000, Mileage: 60000, Transmission: "Automatic"},
	}

	first := r.Build(testDealer(), cars, now)
	second := r.Build(testDealer(), cars, now)
	assert.Equal(t, first, second)

	assert.Equal(t, core.SeasonFestival, first.Season.Kind)
	assert.Equal(t, now, first.PreparedAt)
	require.Len(t, first.SellingPoints, 2)

	swift := strings.Join(first.SellingPoints["c1"], " | ")
	assert.Contains(t, swift, "Nearly new 2024 model")
	assert.Contains(t, swift, "8,000 km")
	assert.Contains(t, swift, "cng")
	assert.Contains(t, swift, "Features: abs, airbags, camera")
	assert.NotContains(t, swift, "alloys")
	assert.Contains(t, swift, first.Season.Message)

	assert.Contains(t, strings.Join(first.SellingPoints["c2"], " | "), "Automatic transmission")
	assert.Contains(t, first.BusinessFacts[0], "Sharma Motors")
	assert.Contains(t, strings.Join(first.BusinessFacts, "\n"), "+91 98765 43210")
}

func TestBuildWithoutSeason(t *testing.T) {
	r := NewResearcher(nil)
	now := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	rc := r.Build(testDealer(), []core.Car{{ID: "c", Brand: "Tata", Model: "Nexon", Year: 2015, Price: 500000}}, now)
	assert.Equal(t, core.SeasonNone, rc.Season.Kind)
	for _, p := range rc.SellingPoints["c"] {
		assert.NotEqual(t, rc.Season.Message, p)
	}
}

func TestParseGrade(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "85", want: 85},
		{in: "Score: 92/100", want: 92},
		{in: "I'd say 250 no wait 70", want: 70},
		{in: "excellent", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseGrade(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseGradeTruncatesMultibyteReply(t *testing.T) {
	reply := "naïve " + strings.Repeat("é", 100)

	_, err := ParseGrade(reply)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), `\x`, "reply must be cut on a character boundary")
	assert.Contains(t, err.Error(), strings.Repeat("é", 20)+"...")
	assert.Equal(t, "héllo", truncate("héllo", 5))
	assert.Equal(t, "hé...", truncate("héllo", 2))
}

func TestModelGrader(t *testing.T) {
	var prompt string
	g := NewModelGrader(&mockGenerator{GenerateFunc: func(ctx context.Context, req llm.Request) (llm.Completion, error) {
		prompt = req.Prompt
		return llm.Completion{Text: "88"}, nil
	}})
	rc := NewResearcher(nil).Build(testDealer(), []core.Car{{ID: "c9", Brand: "Kia", Model: "Sonet", Year: 2022, Price: 900000}}, time.Now())

	score, err := g.Grade(context.Background(), rc)
	require.NoError(t, err)
	assert.Equal(t, 88.0, score)
	assert.Contains(t, prompt, "Sharma Motors")
	assert.Contains(t, prompt, "c9")
}

func TestModelGraderCallFailure(t *testing.T) {
	g := NewModelGrader(&mockGenerator{GenerateFunc: func(ctx context.Context, req llm.Request) (llm.Completion, error) {
		return llm.Completion{}, errors.New("quota exceeded")
	}})
	_, err := g.Grade(context.Background(), core.ResearchContext{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestStaticGrader(t *testing.T) {
	score, err := StaticGrader{Score: 90}.Grade(context.Background(), core.ResearchContext{})
	require.NoError(t, err)
	assert.Equal(t, 90.0, score)
}
