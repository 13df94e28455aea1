package pipeline

import (
	"context"

	"dealerstudio/internal/core"
	"dealerstudio/internal/logger"
	"dealerstudio/internal/quality"
	"dealerstudio/internal/research"
	"dealerstudio/internal/scoring"
)

// QualityGate represents a validation checkpoint in the pipeline
type QualityGate interface {
	// Validate checks if the stage output meets quality requirements
	Validate(ctx context.Context) error

	// Name returns the gate name for logging
	Name() string

	// IsBlocking returns whether failure should stop the pipeline
	IsBlocking() bool
}

// Checkpoint names
const (
	CheckpointResearch     = "research"
	CheckpointImageQuality = "image_quality"
	CheckpointFinalQuality = "final_quality"
)

// ============================================================================
// Research Gate
// ============================================================================

// ResearchGate asks the grader to score the research context
type ResearchGate struct {
	grader    research.Grader
	rc        core.ResearchContext
	threshold float64
	blocking  bool
	score     float64
}

// NewResearchGate creates the research checkpoint
func NewResearchGate(grader research.Grader, rc core.ResearchContext, threshold float64, blocking bool) *ResearchGate {
	return &ResearchGate{grader: grader, rc: rc, threshold: threshold, blocking: blocking}
}

func (g *ResearchGate) Name() string     { return CheckpointResearch }
func (g *ResearchGate) IsBlocking() bool { return g.blocking }

// Score returns the grade from the last Validate call
func (g *ResearchGate) Score() float64 { return g.score }

// Validate grades the research. A failed grading call and a low grade are
// reported as different error types.
func (g *ResearchGate) Validate(ctx context.Context) error {
	score, err := g.grader.Grade(ctx, g.rc)
	if err != nil {
		return &GradingUnavailableError{Err: err}
	}
	g.score = score
	if score < g.threshold {
		return &QualityBelowThresholdError{
			Checkpoint: CheckpointResearch,
			Metric:     "research_score",
			Value:      score,
			Threshold:  g.threshold,
		}
	}
	return nil
}

// ============================================================================
// Image Quality Gate
// ============================================================================

// ImageQualityGate checks the share of image edits that succeeded
type ImageQualityGate struct {
	items     []core.ContentItem
	threshold float64
	blocking  bool
}

// NewImageQualityGate creates the image checkpoint
func NewImageQualityGate(items []core.ContentItem, threshold float64, blocking bool) *ImageQualityGate {
	return &ImageQualityGate{items: items, threshold: threshold, blocking: blocking}
}

func (g *ImageQualityGate) Name() string     { return CheckpointImageQuality }
func (g *ImageQualityGate) IsBlocking() bool { return g.blocking }

func (g *ImageQualityGate) Validate(ctx context.Context) error {
	rate := quality.ImageSuccessRate(g.items)
	if rate < g.threshold {
		return &QualityBelowThresholdError{
			Checkpoint: CheckpointImageQuality,
			Metric:     "image_success_rate",
			Value:      rate,
			Threshold:  g.threshold,
		}
	}
	return nil
}

// ============================================================================
// Final Quality Gate
// ============================================================================

// FinalQualityGate applies the batch approval rule to the evaluated metrics
type FinalQualityGate struct {
	summary  core.QualitySummary
	policy   scoring.QualityPolicy
	blocking bool
}

// NewFinalQualityGate creates the final checkpoint
func NewFinalQualityGate(summary core.QualitySummary, policy scoring.QualityPolicy, blocking bool) *FinalQualityGate {
	return &FinalQualityGate{summary: summary, policy: policy, blocking: blocking}
}

func (g *FinalQualityGate) Name() string     { return CheckpointFinalQuality }
func (g *FinalQualityGate) IsBlocking() bool { return g.blocking }

// Validate reports the first failed threshold in uniqueness, accuracy, image order
func (g *FinalQualityGate) Validate(ctx context.Context) error {
	if g.summary.Report.Approved {
		return nil
	}
	m := g.summary.Metrics
	checks := []struct {
		metric    string
		value     float64
		threshold float64
	}{
		{"text_uniqueness", m.TextUniqueness, g.policy.MinTextUniqueness},
		{"accuracy", m.Accuracy, g.policy.MinAccuracy},
		{"image_success_rate", m.ImageSuccessRate, g.policy.MinImageSuccessRate},
	}
	for _, c := range checks {
		if c.value < c.threshold {
			return &QualityBelowThresholdError{
				Checkpoint: CheckpointFinalQuality,
				Metric:     c.metric,
				Value:      c.value,
				Threshold:  c.threshold,
			}
		}
	}
	return &QualityBelowThresholdError{Checkpoint: CheckpointFinalQuality, Metric: "approval"}
}

// ============================================================================
// Quality Gate Runner
// ============================================================================

// QualityGateRunner executes a series of quality gates
type QualityGateRunner struct {
	gates []QualityGate
}

// NewQualityGateRunner creates a new gate runner
func NewQualityGateRunner(gates ...QualityGate) *QualityGateRunner {
	return &QualityGateRunner{gates: gates}
}

// AddGate adds a quality gate to the runner
func (r *QualityGateRunner) AddGate(gate QualityGate) {
	r.gates = append(r.gates, gate)
}

// RunGates executes all gates in sequence and stops at the first blocking failure
func (r *QualityGateRunner) RunGates(ctx context.Context) error {
	passed, warnings := 0, 0
	for _, gate := range r.gates {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := gate.Validate(ctx)
		if err == nil {
			passed++
			logger.Debug("Quality gate passed", "gate", gate.Name())
			continue
		}
		if gate.IsBlocking() {
			logger.Error("Quality gate failed, stopping pipeline", err, "gate", gate.Name())
			return err
		}
		warnings++
		logger.Warn("Quality gate failed (non-blocking)", "gate", gate.Name(), "error", err.Error())
	}
	if len(r.gates) > 0 {
		logger.Debug("Quality gates complete", "passed", passed, "warnings", warnings)
	}
	return nil
}
