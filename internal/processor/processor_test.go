package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zanzara-go/internal/apierr"
	"zanzara-go/internal/credentials"
	"zanzara-go/internal/media"
	"zanzara-go/internal/pipeline"
	"zanzara-go/internal/templates"
)

type fakeRunner struct {
	res  pipeline.Result
	err  error
	last pipeline.Request
}

func (f *fakeRunner) Run(_ context.Context, req pipeline.Request) (pipeline.Result, error) {
	f.last = req
	res := f.res
	res.Mode = req.Mode
	return res, f.err
}

func TestProcessSuccess(t *testing.T) {
	r := &fakeRunner{res: pipeline.Result{
		InvocationID: "inv-1",
		State:        pipeline.StateDone,
		States:       []pipeline.State{pipeline.StateIdle, pipeline.StateDone},
		Transcript:   "ciao",
		Prompt:       "PROMPT",
		Analysis:     "# A",
		ExamplesUsed: 6,
	}}
	blob := media.New("a.mp3", "audio/mpeg", []byte("abc"))

	rep := Process(context.Background(), r, Job{Source: "a.mp3", Media: blob, Instructions: "x"})
	assert.Equal(t, "inv-1", rep.InvocationID)
	assert.Equal(t, pipeline.ModeFull, rep.Mode)
	assert.Equal(t, pipeline.StateDone, rep.State)
	assert.Equal(t, "ciao", rep.Transcript)
	assert.Equal(t, "# A", rep.Analysis)
	assert.Empty(t, rep.Prompt)
	assert.Equal(t, http.StatusOK, rep.StatusCode)
	assert.False(t, rep.Failed())
	assert.Equal(t, "a.mp3", rep.File.Name)
	assert.Equal(t, int64(3), rep.File.SizeBytes)
	assert.Equal(t, "x", r.last.Instructions)
}

func TestProcessShowPromptAndMode(t *testing.T) {
	r := &fakeRunner{res: pipeline.Result{State: pipeline.StateDone, Prompt: "PROMPT"}}
	rep := Process(context.Background(), r, Job{ShowPrompt: true, TranscribeOnly: true})
	assert.Equal(t, "PROMPT", rep.Prompt)
	assert.Equal(t, pipeline.ModeTranscribeOnly, r.last.Mode)
	assert.Equal(t, pipeline.ModeTranscribeOnly, rep.Mode)
}

func TestProcessFailureKeepsPartialResult(t *testing.T) {
	r := &fakeRunner{
		res: pipeline.Result{State: pipeline.StateAnalysisFailed, Transcript: "testo"},
		err: apierr.Wrap(apierr.StageAnalysis, "gpt-4o", &openai.APIError{HTTPStatusCode: 429, Message: "slow"}),
	}
	rep := Process(context.Background(), r, Job{})
	assert.True(t, rep.Failed())
	assert.Equal(t, "testo", rep.Transcript)
	assert.Equal(t, "analysis", rep.ErrorStage)
	assert.Equal(t, "rate_limit", rep.ErrorKind)
	assert.Equal(t, http.StatusTooManyRequests, rep.StatusCode)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err    error
		stage  string
		kind   string
		status int
	}{
		{nil, "", "", 200},
		{&media.TooLargeError{Size: 30 << 20, Limit: media.MaxBytes}, "transcription", KindPayloadTooLarge, 413},
		{fmt.Errorf("%w: x.txt", media.ErrUnsupportedFormat), "", KindUnsupportedFormat, 415},
		{fmt.Errorf("%w: ftp://x", media.ErrInvalidURL), "", KindInvalidURL, 400},
		{fmt.Errorf("%w: 503", media.ErrFetch), "", KindFetchFailed, 502},
		{templates.ErrMissingTemplate, "analysis", KindMissingTemplate, 500},
		{fmt.Errorf("%w: prompt.txt: permission denied", templates.ErrUnreadableTemplate), "analysis", KindTemplateUnreadable, 500},
		{credentials.ErrCredentialMissing, "", KindCredentialMissing, 401},
		{context.Canceled, "", KindCanceled, 504},
		{apierr.Empty(apierr.StageAnalysis, "gpt-4o"), "analysis", "empty_response", 502},
		{apierr.Wrap(apierr.StageTranscription, "whisper-1", context.DeadlineExceeded), "transcription", "connection", 504},
		{errors.New("boom"), "", KindUnknown, 500},
	}
	for _, c := range cases {
		stage, kind, status := Classify(c.err)
		assert.Equal(t, c.stage, stage, "%v", c.err)
		assert.Equal(t, c.kind, kind, "%v", c.err)
		assert.Equal(t, c.status, status, "%v", c.err)
	}
}

func TestFailedReport(t *testing.T) {
	blob := media.New("big.wav", "audio/wav", []byte("x"))
	rep := Failed("big.wav", blob.Details(), false, &media.TooLargeError{Size: 26214401, Limit: media.MaxBytes})
	assert.Equal(t, pipeline.StateTranscriptionFailed, rep.State)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rep.StatusCode)
	assert.Contains(t, rep.Error, "25 MB")
}

func TestReportJSON(t *testing.T) {
	rep := Report{Mode: pipeline.ModeFull, State: pipeline.StateDone, StatusCode: 200}
	b, err := json.Marshal(rep)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, "done", m["state"])
	assert.NotContains(t, m, "error")
	assert.NotContains(t, m, "prompt")
	assert.Contains(t, m, "transcript")
}
