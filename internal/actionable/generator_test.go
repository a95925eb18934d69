package actionable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zanzara-go/internal/aggregator"
	"zanzara-go/internal/pipeline"
	"zanzara-go/internal/processor"
)

func TestGenerateFailures(t *testing.T) {
	for _, kind := range []string{
		processor.KindPayloadTooLarge, processor.KindUnsupportedFormat, processor.KindFetchFailed,
		processor.KindMissingTemplate, processor.KindTemplateUnreadable, processor.KindCredentialMissing, processor.KindCanceled,
		"rate_limit", "connection", "status", "empty_response", "something_else",
	} {
		h := Generate(processor.Report{Error: "x", ErrorKind: kind, ErrorStage: "analysis"})
		require.NotNil(t, h, kind)
		assert.NotEmpty(t, h.Insight, kind)
		assert.NotEmpty(t, h.Action, kind)
	}

	h := Generate(processor.Report{Error: "x", ErrorKind: "rate_limit", ErrorStage: "transcription"})
	assert.Contains(t, h.Insight, "transcription")
}

func TestGenerateSuccess(t *testing.T) {
	assert.Nil(t, Generate(processor.Report{Mode: pipeline.ModeFull, ExamplesUsed: 6}))
	assert.Nil(t, Generate(processor.Report{Mode: pipeline.ModeTranscribeOnly}))

	h := Generate(processor.Report{Mode: pipeline.ModeFull, ExamplesUsed: 0})
	require.NotNil(t, h)
	assert.Contains(t, h.Insight, "without example")

	h = Generate(processor.Report{
		Mode:         pipeline.ModeFull,
		ExamplesUsed: 6,
		Warnings:     []pipeline.Warning{{Code: pipeline.WarnEmptyTranscript}},
	})
	require.NotNil(t, h)
	assert.Contains(t, h.Insight, "No speech")
}

func TestAnnotateKeepsExisting(t *testing.T) {
	r := processor.Report{Error: "x", ErrorKind: processor.KindMissingTemplate}
	Annotate(&r)
	require.NotNil(t, r.Hint)
	first := r.Hint
	Annotate(&r)
	assert.Same(t, first, r.Hint)
}

func TestForSummary(t *testing.T) {
	s := aggregator.Summary{Total: 4, Failed: 3, FailuresByKind: map[string]int{"rate_limit": 2, "status": 1}}
	h := ForSummary(s)
	assert.Contains(t, h.Insight, "75%")
	assert.Contains(t, h.Insight, "rate_limit")
	assert.Equal(t, "Wait a minute and try again", h.Action)

	h = ForSummary(aggregator.Summary{Total: 4, EmptyTranscripts: 1})
	assert.Contains(t, h.Insight, "empty transcript")

	h = ForSummary(aggregator.Summary{Total: 4, Succeeded: 4})
	assert.Equal(t, "No strong failure pattern detected", h.Insight)
}
