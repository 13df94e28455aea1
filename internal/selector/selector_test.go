package selector

import (
	"testing"
	"time"

	"dealerstudio/internal/core"
	"dealerstudio/internal/scoring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
}

func sampleCars() []core.Car {
	return []core.Car{
		{
			ID: "car-swift", Brand: "Maruti Suzuki", Model: "Swift VXI", Year: 2020, Price: 450000,
			Mileage: 30000, FuelType: "Petrol", Transmission: "Manual", Location: "Pune",
			Images: []string{"a.jpg", "b.jpg", "c.jpg"}, IsVerified: true,
		},
		{
			ID: "car-creta", Brand: "Hyundai", Model: "Creta SX", Year: 2022, Price: 1400000,
			Mileage: 15000, FuelType: "Diesel", Transmission: "Automatic", Location: "Mumbai",
			Images: []string{"a.jpg"}, Features: []string{"sunroof", "abs", "airbags", "camera"},
		},
		{
			ID: "car-unknown", Brand: "Lada", Model: "Niva", Year: 2012, Price: 200000,
			Mileage: 140000, FuelType: "Petrol", Location: "Jaipur",
		},
	}
}

func TestPriceScoreWithinBrandRange(t *testing.T) {
	s := New(nil, fixedNow)
	score := s.Score(core.Car{ID: "c1", Brand: "Maruti Suzuki", Model: "Swift", Year: 2020, Price: 450000})
	assert.Equal(t, 8.0, score.Price)
}

func TestPriceScoreBands(t *testing.T) {
	s := New(nil, fixedNow)

	tests := []struct {
		name  string
		price int64
		want  float64
	}{
		{name: "in range", price: 800000, want: 8},
		{name: "just above range", price: 900000, want: 6},
		{name: "just below range", price: 170000, want: 6},
		{name: "far above range", price: 2000000, want: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := s.Score(core.Car{ID: "c", Brand: "Maruti Suzuki", Model: "Alto", Year: 2020, Price: tt.price})
			assert.Equal(t, tt.want, score.Price)
		})
	}
}

func TestUnknownBrandUsesDefaults(t *testing.T) {
	p := scoring.DefaultPolicy()
	s := New(p, fixedNow)
	score := s.Score(core.Car{ID: "c", Brand: "Lada", Model: "Niva", Year: 2020, Price: 500000})
	assert.Equal(t, p.Selector.DefaultPopularity, score.Brand)
	assert.Equal(t, p.Selector.InRangeScore, score.Price)
}

func TestSubScoresStayInBounds(t *testing.T) {
	s := New(nil, fixedNow)
	extreme := []core.Car{
		{ID: "old", Brand: "Tata", Model: "Indica", Year: 1990, Price: 1, Mileage: 900000},
		{
			ID: "perfect", Brand: "Maruti Suzuki", Model: "Swift", Year: 2030, Price: 500000,
			FuelType: "CNG", Transmission: "AMT Automatic", Location: "Delhi NCR",
			Images: []string{"1", "2", "3", "4"}, Features: []string{"a", "b", "c", "d", "e", "f", "g"},
			IsVerified: true, IsFeatured: true, Description: "Single owner, full service history, accident free and inspected.",
		},
	}
	for _, car := range append(sampleCars(), extreme...) {
		score := s.Score(car)
		for name, v := range map[string]float64{
			"price": score.Price, "brand": score.Brand, "condition": score.Condition,
			"verification": score.Verification, "demand": score.Demand,
		} {
			assert.GreaterOrEqual(t, v, 0.0, "%s %s", car.ID, name)
			assert.LessOrEqual(t, v, 10.0, "%s %s", car.ID, name)
		}
		assert.LessOrEqual(t, score.Total, 10.0)
		assert.LessOrEqual(t, score.Probability, 95.0)
	}
}

func TestProbabilityCappedAt95(t *testing.T) {
	p := scoring.DefaultPolicy()
	p.Selector.InRangeScore = 10
	p.Selector.BrandPopularity["maruti suzuki"] = 10
	p.Selector.VerificationBase = 10
	p.Selector.DemandBase = 10
	s := New(p, fixedNow)

	score := s.Score(core.Car{ID: "c", Brand: "Maruti Suzuki", Model: "Swift", Year: 2025, Price: 500000})
	assert.Equal(t, 10.0, score.Total)
	assert.Equal(t, 95.0, score.Probability)
}

func TestRankIsDeterministic(t *testing.T) {
	s := New(nil, fixedNow)
	cars := sampleCars()

	first := s.Rank(cars)
	second := s.Rank(cars)
	require.Len(t, first.Scores, 3)
	assert.Equal(t, first, second)

	for i := 1; i < len(first.Scores); i++ {
		assert.GreaterOrEqual(t, first.Scores[i-1].Total, first.Scores[i].Total)
	}
}

func TestRankBreaksTiesByID(t *testing.T) {
	s := New(nil, fixedNow)
	car := core.Car{Brand: "Honda", Model: "City", Year: 2019, Price: 700000}
	b, a := car, car
	b.ID, a.ID = "b", "a"

	ranking := s.Rank([]core.Car{b, a})
	require.Len(t, ranking.Scores, 2)
	assert.Equal(t, "a", ranking.Scores[0].Car.ID)
	assert.Equal(t, "b", ranking.Scores[1].Car.ID)
}

func TestRankSkipsMalformedCars(t *testing.T) {
	s := New(nil, fixedNow)
	cars := append(sampleCars(), core.Car{ID: "no-price", Brand: "Kia", Model: "Seltos", Year: 2021})

	ranking := s.Rank(cars)
	assert.Len(t, ranking.Scores, 3)
	require.Len(t, ranking.Skipped, 1)
	assert.Equal(t, "no-price", ranking.Skipped[0].CarID)
}

func TestSelectTop(t *testing.T) {
	s := New(nil, fixedNow)
	assert.Len(t, s.SelectTop(sampleCars(), 2).Scores, 2)
	assert.Len(t, s.SelectTop(sampleCars(), 0).Scores, 3)
	assert.Len(t, s.SelectTop(sampleCars(), 10).Scores, 3)
}

func TestExcludeRecent(t *testing.T) {
	cars := sampleCars()
	out := ExcludeRecent(cars, []string{"car-creta"})
	require.Len(t, out, 2)
	for _, c := range out {
		assert.NotEqual(t, "car-creta", c.ID)
	}
	assert.Len(t, ExcludeRecent(cars, nil), 3)
}
