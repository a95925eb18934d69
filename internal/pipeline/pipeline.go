// internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"zanzara-go/internal/analysis"
	"zanzara-go/internal/logger"
	"zanzara-go/internal/media"
	"zanzara-go/internal/prompt"
	"zanzara-go/internal/templates"
	"zanzara-go/internal/transcription"
)

type Mode string

const (
	ModeFull           Mode = "full"
	ModeTranscribeOnly Mode = "transcribe_only"
)

type State string

const (
	StateIdle                State = "idle"
	StateTranscribing        State = "transcribing"
	StateTranscriptionFailed State = "transcription_failed"
	StateTranscribed         State = "transcribed"
	StateAnalyzing           State = "analyzing"
	StateAnalysisFailed      State = "analysis_failed"
	StateDone                State = "done"
)

func (s State) Terminal() bool {
	return s == StateDone || s == StateTranscriptionFailed || s == StateAnalysisFailed
}

const WarnEmptyTranscript = "empty_transcript"

type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// TemplateSource is satisfied by *templates.Store.
type TemplateSource interface {
	LoadTemplate() (string, error)
	LoadExamples() templates.ExampleSet
}

type Request struct {
	Media        media.Blob
	Instructions string
	Mode         Mode
}

// Result holds whatever one invocation produced, including the transcript
// when analysis fails afterwards.
type Result struct {
	InvocationID          string
	Mode                  Mode
	State                 State
	States                []State
	Transcript            string
	Prompt                string
	Analysis              string
	ExamplesUsed          int
	Warnings              []Warning
	TranscriptionDuration time.Duration
	AnalysisDuration      time.Duration
}

// Observer is told about every state an invocation enters.
type Observer func(invocationID string, s State)

// Controller sequences transcription and analysis for one invocation at a
// time. It holds no per-invocation state.
type Controller struct {
	templates   TemplateSource
	transcriber transcription.Transcriber
	analyzer    analysis.Analyzer
	maxBytes    int64
	log         *logger.Logger
	observer    Observer
}

type Option func(*Controller)

func WithObserver(o Observer) Option     { return func(c *Controller) { c.observer = o } }
func WithMaxBytes(n int64) Option        { return func(c *Controller) { c.maxBytes = n } }
func WithLogger(l *logger.Logger) Option { return func(c *Controller) { c.log = l } }

func New(ts TemplateSource, tr transcription.Transcriber, an analysis.Analyzer, opts ...Option) *Controller {
	c := &Controller{
		templates:   ts,
		transcriber: tr,
		analyzer:    an,
		maxBytes:    media.MaxBytes,
	}
	for _, o := range opts {
		o(c)
	}
	if c.log == nil {
		c.log = logger.New()
	}
	c.log = c.log.With("component", "pipeline")
	return c
}

// Run drives one invocation to a terminal state. On failure the partial
// result is returned with the error; nothing is retried.
func (c *Controller) Run(ctx context.Context, req Request) (Result, error) {
	res := Result{InvocationID: uuid.New().String(), Mode: req.Mode}
	if res.Mode == "" {
		res.Mode = ModeFull
	}
	log := c.log.WithInvocation(res.InvocationID).With("mode", res.Mode)
	c.enter(&res, StateIdle)

	c.enter(&res, StateTranscribing)
	if err := media.CheckSize(req.Media.Size, c.maxBytes); err != nil {
		log.WithError(err).Warn("media rejected before transcription")
		c.enter(&res, StateTranscriptionFailed)
		return res, err
	}
	start := time.Now()
	text, err := c.transcriber.Transcribe(ctx, req.Media)
	res.TranscriptionDuration = time.Since(start)
	if err != nil {
		log.WithError(err).Error("transcription failed")
		c.enter(&res, StateTranscriptionFailed)
		return res, err
	}
	res.Transcript = text
	c.enter(&res, StateTranscribed)
	if strings.TrimSpace(text) == "" {
		res.Warnings = append(res.Warnings, Warning{Code: WarnEmptyTranscript, Message: "the transcript is empty"})
		log.Warn("empty transcript")
	}

	if res.Mode == ModeTranscribeOnly {
		c.enter(&res, StateDone)
		log.Info("transcription only, analysis skipped")
		return res, nil
	}

	c.enter(&res, StateAnalyzing)
	tmpl, err := c.templates.LoadTemplate()
	if err != nil {
		log.WithError(err).Error("cannot analyze without the prompt template")
		c.enter(&res, StateAnalysisFailed)
		return res, err
	}
	set := c.templates.LoadExamples()
	for _, w := range set.Warnings {
		res.Warnings = append(res.Warnings, Warning{Code: string(w.Code), Message: w.Message})
	}
	res.ExamplesUsed = set.Loaded()
	res.Prompt = prompt.Assemble(tmpl, set.Texts, req.Instructions, text)

	start = time.Now()
	out, err := c.analyzer.Analyze(ctx, res.Prompt)
	res.AnalysisDuration = time.Since(start)
	if err != nil {
		log.WithError(err).Error("analysis failed")
		c.enter(&res, StateAnalysisFailed)
		return res, err
	}
	res.Analysis = out
	c.enter(&res, StateDone)
	log.WithField("examples", res.ExamplesUsed).Info("pipeline done")
	return res, nil
}

func (c *Controller) enter(res *Result, s State) {
	res.State = s
	res.States = append(res.States, s)
	c.log.WithField("invocation_id", res.InvocationID).WithField("state", s).Debug("state change")
	if c.observer != nil {
		c.observer(res.InvocationID, s)
	}
}
