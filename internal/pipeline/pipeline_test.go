package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"dealerstudio/internal/cache"
	"dealerstudio/internal/core"
	"dealerstudio/internal/persistence"
	"dealerstudio/internal/research"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, time.October, 7, 10, 0, 0, 0, time.UTC)

// mockSource implements DataSource for testing
type mockSource struct {
	dealer    core.DealerContext
	cars      []core.Car
	recent    []string
	dealerErr error
	requested []string
}

func (m *mockSource) DealerByUserID(ctx context.Context, userID string) (core.DealerContext, error) {
	if m.dealerErr != nil {
		return core.DealerContext{}, m.dealerErr
	}
	return m.dealer, nil
}

func (m *mockSource) AvailableCars(ctx context.Context, dealerID string, carIDs []string) ([]core.Car, error) {
	m.requested = carIDs
	return (&StaticSource{Cars: m.cars}).AvailableCars(ctx, dealerID, carIDs)
}

func (m *mockSource) RecentCarIDs(ctx context.Context, dealerID string, now time.Time) ([]string, error) {
	return m.recent, nil
}

// mockText implements TextGenerator for testing
type mockText struct {
	GenerateFunc func(car core.Car, platform core.Platform) (core.TextContent, error)
	calls        int
}

func (m *mockText) Generate(ctx context.Context, car core.Car, platform core.Platform, rc core.ResearchContext) (core.TextContent, error) {
	m.calls++
	if m.GenerateFunc != nil {
		return m.GenerateFunc(car, platform)
	}
	return goodCaption(car), nil
}

// mockImages implements ImageGenerator for testing
type mockImages struct {
	GenerateFunc func(car core.Car, platform core.Platform) bool
}

func (m *mockImages) Generate(ctx context.Context, car core.Car, platform core.Platform, dealer core.DealerContext, originalURL string) core.ImageResult {
	ok := true
	if m.GenerateFunc != nil {
		ok = m.GenerateFunc(car, platform)
	}
	if !ok {
		return core.ImageResult{URL: originalURL, OriginalURL: originalURL, Cost: decimal.Zero, Transformation: "urban_lifestyle", Error: "edit failed"}
	}
	return core.ImageResult{
		URL:            fmt.Sprintf("https://cdn.example.com/%s-%s.jpg", car.ID, platform),
		OriginalURL:    originalURL,
		Transformation: "urban_lifestyle",
		Cost:           decimal.RequireFromString("0.039"),
		Success:        true,
	}
}

// mockAnalytics records run outcomes
type mockAnalytics struct {
	completed []core.PipelineResult
	failed    []error
}

func (m *mockAnalytics) TrackRunCompleted(userID string, result core.PipelineResult) {
	m.completed = append(m.completed, result)
}

func (m *mockAnalytics) TrackRunFailed(userID, runID string, err error) {
	m.failed = append(m.failed, err)
}

// mockStore implements ContentStore for testing
type mockStore struct {
	saved []core.PipelineResult
}

func (m *mockStore) SaveRun(ctx context.Context, result core.PipelineResult) error {
	m.saved = append(m.saved, result)
	return nil
}

type graderFunc func() (float64, error)

func (f graderFunc) Grade(ctx context.Context, rc core.ResearchContext) (float64, error) { return f() }

func goodCaption(car core.Car) core.TextContent {
	return core.TextContent{
		Text: fmt.Sprintf("Grab this %d %s %s in %s at Sharma Motors! 🚗 Call +91 98765 43210 today. #UsedCars #%s",
			car.Year, car.Brand, car.Model, car.Location, car.Location),
		Hashtags: []string{"#UsedCars", "#" + car.Location},
		Model:    "gpt-4o-mini",
		Cost:     decimal.RequireFromString("0.001"),
	}
}

func testDealer() core.DealerContext {
	return core.DealerContext{ID: "d1", UserID: "u1", BusinessName: "Sharma Motors", Location: "Pune", Phone: "+91 98765 43210"}
}

func testCars() []core.Car {
	return []core.Car{
		{ID: "c1", DealerID: "d1", Brand: "Maruti Suzuki", Model: "Swift", Year: 2020, Price: 450000, Mileage: 30000,
			FuelType: "petrol", Transmission: "manual", Location: "Pune", Images: []string{"https://img/c1.jpg"}, IsVerified: true},
		{ID: "c2", DealerID: "d1", Brand: "Hyundai", Model: "Creta", Year: 2021, Price: 1200000, Mileage: 25000,
			FuelType: "diesel", Transmission: "automatic", Location: "Pune", Images: []string{"https://img/c2.jpg"}},
	}
}

type fixture struct {
	source    *mockSource
	text      *mockText
	images    *mockImages
	analytics *mockAnalytics
	store     *mockStore
	deps      Dependencies
	config    *Config
}

func newFixture() *fixture {
	f := &fixture{
		source:    &mockSource{dealer: testDealer(), cars: testCars()},
		text:      &mockText{},
		images:    &mockImages{},
		analytics: &mockAnalytics{},
		store:     &mockStore{},
	}
	f.deps = Dependencies{
		Source:    f.source,
		Store:     f.store,
		Text:      f.text,
		Images:    f.images,
		Grader:    research.StaticGrader{Score: 90},
		Analytics: f.analytics,
	}
	f.config = DefaultConfig()
	f.config.Platforms = []core.Platform{core.PlatformInstagram, core.PlatformFacebook}
	return f
}

func (f *fixture) build(t *testing.T) *Pipeline {
	t.Helper()
	p, err := NewPipeline(f.deps, f.config)
	require.NoError(t, err)
	p.now = func() time.Time { return testNow }
	n := 0
	p.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return p
}

func findItem(t *testing.T, items []core.ContentItem, carID string, platform core.Platform) core.ContentItem {
	t.Helper()
	for _, it := range items {
		if it.CarID == carID && it.Platform == platform {
			return it
		}
	}
	t.Fatalf("no item for %s on %s", carID, platform)
	return core.ContentItem{}
}

func sumCosts(items []core.ContentItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Cost)
	}
	return total
}

func TestNewPipelineRequiresCollaborators(t *testing.T) {
	_, err := NewPipeline(Dependencies{}, nil)
	assert.Error(t, err)

	f := newFixture()
	f.deps.Images = nil
	_, err = NewPipeline(f.deps, nil)
	assert.Error(t, err)
}

func TestGenerateWeeklyContent(t *testing.T) {
	f := newFixture()
	p := f.build(t)

	result, err := p.GenerateWeeklyContent(context.Background(), "u1", nil)
	require.NoError(t, err)

	assert.Equal(t, "id-1", result.RunID)
	assert.Equal(t, "d1", result.DealerID)
	require.Len(t, result.Content, 4)

	// Cars are processed one at a time, every platform before the next car
	assert.Equal(t, result.Content[0].CarID, result.Content[1].CarID)
	assert.Equal(t, result.Content[2].CarID, result.Content[3].CarID)
	assert.NotEqual(t, result.Content[0].CarID, result.Content[2].CarID)
	assert.Equal(t, core.PlatformInstagram, result.Content[0].Platform)
	assert.Equal(t, core.PlatformFacebook, result.Content[1].Platform)

	for _, it := range result.Content {
		assert.True(t, it.Success)
		assert.Equal(t, core.ImageEdited, it.ImageStatus)
		assert.NotEqual(t, it.OriginalImage, it.ImageURL)
		assert.True(t, it.Cost.Equal(decimal.RequireFromString("0.040")), it.Cost.String())
	}

	assert.True(t, result.TotalCost.Equal(decimal.RequireFromString("0.16")), result.TotalCost.String())
	assert.True(t, result.TotalCost.Equal(sumCosts(result.Content)))
	assert.Equal(t, testNow, result.GeneratedAt)
	assert.Equal(t, testNow.Add(7*24*time.Hour), result.ExpiresAt)
	assert.True(t, result.QualityMetrics.Report.Approved)
	assert.Equal(t, 90.0, result.QualityMetrics.Metrics.ResearchScore)
	assert.Equal(t, 100.0, result.QualityMetrics.Metrics.ImageSuccessRate)

	require.Len(t, f.analytics.completed, 1)
	assert.Empty(t, f.analytics.failed)
}

func TestImageFailureFallsBackToOriginal(t *testing.T) {
	f := newFixture()
	f.images.GenerateFunc = func(car core.Car, platform core.Platform) bool {
		return platform == core.PlatformInstagram
	}
	p := f.build(t)

	result, err := p.GenerateWeeklyContent(context.Background(), "u1", nil)
	require.NoError(t, err)

	for _, it := range result.Content {
		if it.Platform == core.PlatformFacebook {
			assert.False(t, it.Success)
			assert.Equal(t, core.ImageFallback, it.ImageStatus)
			assert.Equal(t, it.OriginalImage, it.ImageURL)
			assert.True(t, it.Cost.Equal(decimal.RequireFromString("0.001")), "only the caption is charged")
			assert.Contains(t, it.Errors, "edit failed")
		}
	}
	assert.Equal(t, 50.0, result.QualityMetrics.Metrics.ImageSuccessRate)
	assert.True(t, result.TotalCost.Equal(sumCosts(result.Content)))
}

func TestImageCheckpointFailsRun(t *testing.T) {
	f := newFixture()
	f.images.GenerateFunc = func(core.Car, core.Platform) bool { return false }
	p := f.build(t)

	result, err := p.GenerateWeeklyContent(context.Background(), "u1", nil)
	assert.Nil(t, result)

	var qerr *QualityBelowThresholdError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, CheckpointImageQuality, qerr.Checkpoint)
	assert.Equal(t, 0.0, qerr.Value)
	require.Len(t, f.analytics.failed, 1)
}

func TestResearchCheckpoint(t *testing.T) {
	t.Run("grading call fails", func(t *testing.T) {
		f := newFixture()
		f.deps.Grader = graderFunc(func() (float64, error) { return 0, errors.New("timeout") })
		p := f.build(t)

		_, err := p.GenerateWeeklyContent(context.Background(), "u1", nil)
		assert.True(t, IsGradingUnavailable(err))
		assert.False(t, IsQualityBelowThreshold(err))
		assert.Zero(t, f.text.calls, "no content is generated after a failed checkpoint")
	})

	t.Run("grade below threshold", func(t *testing.T) {
		f := newFixture()
		f.deps.Grader = research.StaticGrader{Score: 60}
		p := f.build(t)

		_, err := p.GenerateWeeklyContent(context.Background(), "u1", nil)
		var qerr *QualityBelowThresholdError
		require.ErrorAs(t, err, &qerr)
		assert.Equal(t, CheckpointResearch, qerr.Checkpoint)
		assert.Equal(t, 60.0, qerr.Value)
		assert.Equal(t, 80.0, qerr.Threshold)
		assert.False(t, IsGradingUnavailable(err))
	})
}

func TestCaptionFailureIsRecordedOnItem(t *testing.T) {
	f := newFixture()
	f.text.GenerateFunc = func(car core.Car, platform core.Platform) (core.TextContent, error) {
		if car.ID == "c2" && platform == core.PlatformFacebook {
			return core.TextContent{}, errors.New("model overloaded")
		}
		return goodCaption(car), nil
	}
	p := f.build(t)

	result, err := p.GenerateWeeklyContent(context.Background(), "u1", nil)
	require.NoError(t, err)
	require.Len(t, result.Content, 4)

	failed := findItem(t, result.Content, "c2", core.PlatformFacebook)
	assert.False(t, failed.Success)
	assert.Equal(t, core.ImageSkipped, failed.ImageStatus)
	assert.Equal(t, failed.OriginalImage, failed.ImageURL)
	assert.True(t, failed.Cost.IsZero())
	assert.Contains(t, failed.Errors[0], "model overloaded")

	// Skipped images do not count against the success rate
	assert.Equal(t, 100.0, result.QualityMetrics.Metrics.ImageSuccessRate)
	assert.Equal(t, 3, result.QualityMetrics.Metrics.ItemsEvaluated)
}

func TestFinalCheckpointRejectsRepetitiveCaptions(t *testing.T) {
	f := newFixture()
	f.text.GenerateFunc = func(car core.Car, platform core.Platform) (core.TextContent, error) {
		return core.TextContent{Text: fmt.Sprintf("%d %s Pune car car car car car car car car", car.Year, car.Brand)}, nil
	}
	p := f.build(t)

	_, err := p.GenerateWeeklyContent(context.Background(), "u1", nil)
	var qerr *QualityBelowThresholdError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, CheckpointFinalQuality, qerr.Checkpoint)
	assert.Equal(t, "text_uniqueness", qerr.Metric)
}

func TestRateLimited(t *testing.T) {
	f := newFixture()
	f.deps.Limiter = NewLocalRateLimiter(1, 1)
	p := f.build(t)

	_, err := p.GenerateWeeklyContent(context.Background(), "u1", nil)
	require.NoError(t, err)

	_, err = p.GenerateWeeklyContent(context.Background(), "u1", nil)
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestCacheHitReusesContent(t *testing.T) {
	f := newFixture()
	mem := cache.NewMemoryCache(nil)
	f.deps.Cache = mem
	cached := core.ContentItem{
		ID: "old", CarID: "c1", Platform: core.PlatformInstagram, Text: goodCaption(testCars()[0]).Text,
		Success: true, ImageStatus: core.ImageEdited, Cost: decimal.RequireFromString("0.04"),
	}
	require.NoError(t, mem.Set(context.Background(), cache.Key("d1", "c1", core.PlatformInstagram), cached, time.Hour))
	p := f.build(t)

	result, err := p.GenerateWeeklyContent(context.Background(), "u1", nil)
	require.NoError(t, err)

	hit := findItem(t, result.Content, "c1", core.PlatformInstagram)
	assert.True(t, hit.Cached)
	assert.Equal(t, cached.Text, hit.Text)
	assert.True(t, hit.Cost.IsZero())
	assert.NotEqual(t, "old", hit.ID)
	assert.Equal(t, 3, f.text.calls)
	assert.True(t, result.TotalCost.Equal(sumCosts(result.Content)))

	// Fresh successful items are written back
	_, ok, err := mem.Get(context.Background(), cache.Key("d1", "c2", core.PlatformFacebook))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCarSelection(t *testing.T) {
	t.Run("recent content is excluded", func(t *testing.T) {
		f := newFixture()
		f.source.recent = []string{"c1"}
		p := f.build(t)

		result, err := p.GenerateWeeklyContent(context.Background(), "u1", nil)
		require.NoError(t, err)
		for _, it := range result.Content {
			assert.Equal(t, "c2", it.CarID)
		}
	})

	t.Run("requested cars bypass recent filter", func(t *testing.T) {
		f := newFixture()
		f.source.recent = []string{"c1"}
		p := f.build(t)

		result, err := p.GenerateWeeklyContent(context.Background(), "u1", []string{"c1"})
		require.NoError(t, err)
		assert.Equal(t, []string{"c1"}, f.source.requested)
		require.Len(t, result.Content, 2)
		assert.Equal(t, "c1", result.Content[0].CarID)
	})

	t.Run("malformed cars are skipped", func(t *testing.T) {
		f := newFixture()
		f.source.cars = append(f.source.cars, core.Car{ID: "bad", Brand: "Tata", Model: "Nexon", Year: 2022})
		p := f.build(t)

		result, err := p.GenerateWeeklyContent(context.Background(), "u1", nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"bad"}, result.SkippedCars)
		assert.Len(t, result.Content, 4)
	})

	t.Run("max cars limits selection", func(t *testing.T) {
		f := newFixture()
		f.config.MaxCars = 1
		p := f.build(t)

		result, err := p.GenerateWeeklyContent(context.Background(), "u1", nil)
		require.NoError(t, err)
		assert.Len(t, result.Content, 2)
	})

	t.Run("nothing eligible", func(t *testing.T) {
		f := newFixture()
		f.source.cars = nil
		p := f.build(t)

		_, err := p.GenerateWeeklyContent(context.Background(), "u1", nil)
		assert.ErrorIs(t, err, ErrNoEligibleCars)
	})
}

func TestDealerLookupFailure(t *testing.T) {
	f := newFixture()
	f.source.dealerErr = persistence.ErrNotFound
	p := f.build(t)

	_, err := p.GenerateWeeklyContent(context.Background(), "u1", nil)
	assert.ErrorIs(t, err, persistence.ErrNotFound)
	require.Len(t, f.analytics.failed, 1)
}

func TestCancelledContextStopsRun(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	f.deps.Grader = graderFunc(func() (float64, error) {
		cancel()
		return 95, nil
	})
	p := f.build(t)

	_, err := p.GenerateWeeklyContent(ctx, "u1", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.text.calls)
}

func TestPersist(t *testing.T) {
	f := newFixture()
	p := f.build(t)

	result, err := p.GenerateWeeklyContent(context.Background(), "u1", nil)
	require.NoError(t, err)
	require.NoError(t, p.Persist(context.Background(), result))
	require.Len(t, f.store.saved, 1)
	assert.Equal(t, result.RunID, f.store.saved[0].RunID)

	f.deps.Store = nil
	noStore, err := NewPipeline(f.deps, f.config)
	require.NoError(t, err)
	assert.Error(t, noStore.Persist(context.Background(), result))
}

func TestRankCars(t *testing.T) {
	f := newFixture()
	p := f.build(t)

	ranking, err := p.RankCars(context.Background(), "u1", 1)
	require.NoError(t, err)
	require.Len(t, ranking.Scores, 1)
	assert.LessOrEqual(t, ranking.Scores[0].Total, 10.0)
}

func TestImageCost(t *testing.T) {
	price := decimal.RequireFromString("0.039")
	assert.True(t, imageCost(core.ImageResult{Success: true, Cost: price}).Equal(price))
	assert.True(t, imageCost(core.ImageResult{Success: false, Cost: price}).IsZero())
}

// closingCache records Close calls
type closingCache struct {
	cache.Noop
	closed int
	err    error
}

func (c *closingCache) Close() error {
	c.closed++
	return c.err
}

func TestCloseReleasesCache(t *testing.T) {
	f := newFixture()
	cc := &closingCache{}
	f.deps.Cache = cc
	p := f.build(t)

	require.NoError(t, p.Close())
	assert.Equal(t, 1, cc.closed)

	cc.err = errors.New("connection reset")
	assert.ErrorContains(t, p.Close(), "connection reset")
	assert.Equal(t, 2, cc.closed)
}
