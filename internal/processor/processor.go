package processor

import (
	"context"
	"errors"
	"net/http"
	"time"

	"zanzara-go/internal/apierr"
	"zanzara-go/internal/credentials"
	"zanzara-go/internal/media"
	"zanzara-go/internal/pipeline"
	"zanzara-go/internal/templates"
	"zanzara-go/internal/types"
)

// Error kinds for failures that do not come from a vendor call. Vendor
// failures use the apierr kinds.
const (
	KindPayloadTooLarge    = "payload_too_large"
	KindUnsupportedFormat  = "unsupported_format"
	KindInvalidURL         = "invalid_url"
	KindFetchFailed        = "fetch_failed"
	KindMissingTemplate    = "missing_template"
	KindTemplateUnreadable = "template_unreadable"
	KindCredentialMissing  = "credential_missing"
	KindCanceled           = "canceled"
	KindUnknown            = "unknown"
)

// Runner is satisfied by *pipeline.Controller.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

type Job struct {
	// Source names where the media came from: a path, a URL or a manifest id.
	Source         string
	Media          media.Blob
	Instructions   string
	TranscribeOnly bool
	ShowPrompt     bool
}

// Report is returned by /process and printed by the CLI.
type Report struct {
	InvocationID string             `json:"invocation_id,omitempty"`
	Source       string             `json:"source,omitempty"`
	File         types.FileDetails  `json:"file"`
	Mode         pipeline.Mode      `json:"mode"`
	State        pipeline.State     `json:"state"`
	States       []pipeline.State   `json:"states,omitempty"`
	Transcript   string             `json:"transcript"`
	Prompt       string             `json:"prompt,omitempty"`
	Analysis     string             `json:"analysis,omitempty"`
	ExamplesUsed int                `json:"examples_used"`
	Warnings     []pipeline.Warning `json:"warnings,omitempty"`
	Error        string             `json:"error,omitempty"`
	ErrorStage   string             `json:"error_stage,omitempty"`
	ErrorKind    string             `json:"error_kind,omitempty"`
	StatusCode   int                `json:"status_code"`
	Hint         *types.Hint        `json:"hint,omitempty"`
	DurationMs   int64              `json:"duration_ms"`
}

func (r Report) Failed() bool { return r.Error != "" }

// Process runs one invocation and shapes the outcome for output. It never
// returns an error: failures are carried in the report.
func Process(ctx context.Context, runner Runner, job Job) Report {
	start := time.Now()
	mode := pipeline.ModeFull
	if job.TranscribeOnly {
		mode = pipeline.ModeTranscribeOnly
	}

	res, err := runner.Run(ctx, pipeline.Request{
		Media:        job.Media,
		Instructions: job.Instructions,
		Mode:         mode,
	})

	rep := Report{
		InvocationID: res.InvocationID,
		Source:       job.Source,
		File:         job.Media.Details(),
		Mode:         res.Mode,
		State:        res.State,
		States:       res.States,
		Transcript:   res.Transcript,
		Analysis:     res.Analysis,
		ExamplesUsed: res.ExamplesUsed,
		Warnings:     res.Warnings,
	}
	if job.ShowPrompt {
		rep.Prompt = res.Prompt
	}
	rep.setError(err)
	rep.DurationMs = time.Since(start).Milliseconds()
	return rep
}

// Failed builds the report for a job that never reached the pipeline, such
// as an oversize upload or a download that did not complete.
func Failed(source string, file types.FileDetails, transcribeOnly bool, err error) Report {
	mode := pipeline.ModeFull
	if transcribeOnly {
		mode = pipeline.ModeTranscribeOnly
	}
	rep := Report{
		Source: source,
		File:   file,
		Mode:   mode,
		State:  pipeline.StateTranscriptionFailed,
	}
	rep.setError(err)
	return rep
}

func (r *Report) setError(err error) {
	if err == nil {
		r.StatusCode = http.StatusOK
		return
	}
	r.Error = err.Error()
	r.ErrorStage, r.ErrorKind, r.StatusCode = Classify(err)
}

// Classify maps an invocation error to its stage, kind and HTTP status.
func Classify(err error) (stage, kind string, status int) {
	var ae *apierr.Error
	switch {
	case err == nil:
		return "", "", http.StatusOK
	case errors.As(err, &ae):
		return string(ae.Stage), string(ae.Kind), ae.HTTPStatus()
	case errors.Is(err, media.ErrPayloadTooLarge):
		return string(apierr.StageTranscription), KindPayloadTooLarge, http.StatusRequestEntityTooLarge
	case errors.Is(err, media.ErrUnsupportedFormat):
		return "", KindUnsupportedFormat, http.StatusUnsupportedMediaType
	case errors.Is(err, media.ErrInvalidURL):
		return "", KindInvalidURL, http.StatusBadRequest
	case errors.Is(err, media.ErrFetch):
		return "", KindFetchFailed, http.StatusBadGateway
	case errors.Is(err, templates.ErrMissingTemplate):
		return string(apierr.StageAnalysis), KindMissingTemplate, http.StatusInternalServerError
	case errors.Is(err, templates.ErrUnreadableTemplate):
		return string(apierr.StageAnalysis), KindTemplateUnreadable, http.StatusInternalServerError
	case errors.Is(err, credentials.ErrCredentialMissing):
		return "", KindCredentialMissing, http.StatusUnauthorized
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "", KindCanceled, http.StatusGatewayTimeout
	default:
		return "", KindUnknown, http.StatusInternalServerError
	}
}
