// Package summarizer produces the manager-facing narrative for an analysis
// job by calling a text-generation model.
package summarizer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/models"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/scoring"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/telemetry"
)

const (
	NoRiskMessage     = "No high-risk transactions detected. Operations look normal."
	MissingKeyMessage = "Summarizer unavailable: GEMINI_API_KEY is not set."
	errorPrefix       = "Error generating explanation: "
)

// Generator is the remote text-generation call.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Request is everything a summary or follow-up answer is built from.
type Request struct {
	Annotations []models.RiskAnnotation
	// Content is the document text for jobs that could not be scored row by row.
	Content      string
	Guidance     string
	PriorSummary string
	IsFollowUp   bool
}

// Narrator applies the summarization policy around a Generator. It never
// returns an error: remote failures come back as in-band text.
type Narrator struct {
	gen     Generator
	timeout time.Duration
}

// New returns a Narrator. A nil gen reports MissingKeyMessage for every
// request that would need a remote call.
func New(gen Generator, timeout time.Duration) *Narrator {
	return &Narrator{gen: gen, timeout: timeout}
}

// HighRisk keeps only annotations above the anomaly threshold, in order.
func HighRisk(annotations []models.RiskAnnotation) []models.RiskAnnotation {
	out := make([]models.RiskAnnotation, 0, len(annotations))
	for _, a := range annotations {
		if a.RiskScore > scoring.AnomalyThreshold {
			out = append(out, a)
		}
	}
	return out
}

// Summarize returns the narrative for req.
func (n *Narrator) Summarize(ctx context.Context, req Request) string {
	log := zap.S().Named("summarizer")

	highRisk := HighRisk(req.Annotations)
	if !req.IsFollowUp && req.Content == "" && len(highRisk) == 0 {
		telemetry.SummarizerRequests.WithLabelValues("skipped").Inc()
		return NoRiskMessage
	}
	if n.gen == nil {
		telemetry.SummarizerRequests.WithLabelValues("unconfigured").Inc()
		return MissingKeyMessage
	}

	prompt := buildPrompt(req, highRisk)
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := n.gen.Generate(ctx, prompt)
	if err != nil {
		telemetry.SummarizerRequests.WithLabelValues("error").Inc()
		log.Warnw("generation failed", "follow_up", req.IsFollowUp, "error", err)
		return errorPrefix + err.Error()
	}
	telemetry.SummarizerRequests.WithLabelValues("ok").Inc()
	log.Infow("generation done", "follow_up", req.IsFollowUp, "high_risk", len(highRisk),
		"duration_ms", time.Since(start).Milliseconds())
	return text
}
