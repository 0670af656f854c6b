package summarizer_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/models"
	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/summarizer"
)

type fakeGenerator struct {
	calls   int
	prompts []string
	reply   string
	err     error
	block   bool
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.reply, f.err
}

func annotation(merchant string, score int) models.RiskAnnotation {
	return models.RiskAnnotation{
		Row:       models.Row{"merchant": merchant, "amount": 1.0},
		RiskScore: score,
		IsAnomaly: score > 50,
		Reason:    "Unknown merchant",
	}
}

func TestSummarize_NoHighRiskSkipsRemoteCall(t *testing.T) {
	gen := &fakeGenerator{reply: "should not be used"}
	n := summarizer.New(gen, time.Second)

	got := n.Summarize(context.Background(), summarizer.Request{
		Annotations: []models.RiskAnnotation{annotation("Acme", 0), annotation("unknown", 50)},
		Guidance:    "focus on travel",
	})

	assert.Equal(t, summarizer.NoRiskMessage, got)
	assert.Equal(t, 0, gen.calls)
}

func TestSummarize_ForwardsOnlyHighRisk(t *testing.T) {
	gen := &fakeGenerator{reply: "two suspicious vendors"}
	n := summarizer.New(gen, time.Second)

	got := n.Summarize(context.Background(), summarizer.Request{
		Annotations: []models.RiskAnnotation{annotation("Acme", 10), annotation("ShadyCo", 80), annotation("Other", 51)},
		Guidance:    "focus on travel",
	})

	assert.Equal(t, "two suspicious vendors", got)
	require.Equal(t, 1, gen.calls)
	prompt := gen.prompts[0]
	assert.Contains(t, prompt, "ShadyCo")
	assert.Contains(t, prompt, "Other")
	assert.NotContains(t, prompt, "Acme")
	assert.Contains(t, prompt, "focus on travel")
}

func TestSummarize_RemoteFailureIsInBand(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("quota exceeded")}
	n := summarizer.New(gen, time.Second)

	got := n.Summarize(context.Background(), summarizer.Request{
		Annotations: []models.RiskAnnotation{annotation("ShadyCo", 80)},
	})

	assert.Equal(t, "Error generating explanation: quota exceeded", got)
}

func TestSummarize_TimeoutIsInBand(t *testing.T) {
	gen := &fakeGenerator{block: true}
	n := summarizer.New(gen, 10*time.Millisecond)

	got := n.Summarize(context.Background(), summarizer.Request{
		Annotations: []models.RiskAnnotation{annotation("ShadyCo", 80)},
	})

	assert.True(t, strings.HasPrefix(got, "Error generating explanation: "), got)
	assert.Contains(t, got, context.DeadlineExceeded.Error())
}

func TestSummarize_NilGeneratorReportsMissingKey(t *testing.T) {
	n := summarizer.New(nil, time.Second)

	got := n.Summarize(context.Background(), summarizer.Request{
		Annotations: []models.RiskAnnotation{annotation("ShadyCo", 80)},
	})
	assert.Equal(t, summarizer.MissingKeyMessage, got)

	// The short-circuit still wins when nothing is high-risk.
	got = n.Summarize(context.Background(), summarizer.Request{})
	assert.Equal(t, summarizer.NoRiskMessage, got)
}

func TestSummarize_FollowUpUsesPriorSummary(t *testing.T) {
	gen := &fakeGenerator{reply: "The largest was 6000."}
	n := summarizer.New(gen, time.Second)

	got := n.Summarize(context.Background(), summarizer.Request{
		PriorSummary: "Report: ShadyCo charged 6000.",
		Guidance:     "Which charge was largest?",
		IsFollowUp:   true,
	})

	assert.Equal(t, "The largest was 6000.", got)
	require.Equal(t, 1, gen.calls)
	assert.Contains(t, gen.prompts[0], "Report: ShadyCo charged 6000.")
	assert.Contains(t, gen.prompts[0], "Which charge was largest?")
}

func TestSummarize_TextContentIsForwarded(t *testing.T) {
	gen := &fakeGenerator{reply: "narrative"}
	n := summarizer.New(gen, 0)

	got := n.Summarize(context.Background(), summarizer.Request{Content: "wire 9000 to unknown"})

	assert.Equal(t, "narrative", got)
	require.Equal(t, 1, gen.calls)
	assert.Contains(t, gen.prompts[0], "wire 9000 to unknown")
}

func TestHighRisk(t *testing.T) {
	in := []models.RiskAnnotation{annotation("a", 51), annotation("b", 50), annotation("c", 100)}
	out := summarizer.HighRisk(in)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Row["merchant"])
	assert.Equal(t, "c", out[1].Row["merchant"])
}
