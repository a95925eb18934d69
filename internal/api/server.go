// Package api exposes the pipeline over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"zanzara-go/internal/actionable"
	"zanzara-go/internal/aggregator"
	"zanzara-go/internal/config"
	"zanzara-go/internal/credentials"
	"zanzara-go/internal/dataset"
	"zanzara-go/internal/logger"
	"zanzara-go/internal/media"
	"zanzara-go/internal/pipeline"
	"zanzara-go/internal/processor"
	"zanzara-go/internal/types"
)

// KeyHeader carries a per-request API key when the server has none configured.
const KeyHeader = "X-OpenAI-Key"

// formOverhead is added to the media limit for multipart framing and fields.
const formOverhead = 1 << 20

// RunnerFactory builds a pipeline for one API key.
type RunnerFactory func(apiKey string) (processor.Runner, error)

type Options struct {
	Config     *config.Config
	Store      pipeline.TemplateSource
	APIKey     string
	Logger     *logger.Logger
	HTTPClient *http.Client
	// Runners defaults to pipeline.FromConfig.
	Runners RunnerFactory
}

type Server struct {
	cfg     *config.Config
	store   pipeline.TemplateSource
	apiKey  string
	log     *logger.Logger
	client  *http.Client
	runners RunnerFactory
	shared  processor.Runner
}

func New(opts Options) *Server {
	s := &Server{
		cfg:     opts.Config,
		store:   opts.Store,
		apiKey:  opts.APIKey,
		log:     opts.Logger,
		client:  opts.HTTPClient,
		runners: opts.Runners,
	}
	if s.log == nil {
		s.log = logger.New()
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: s.cfg.Media.FetchTimeout}
	}
	if s.runners == nil {
		s.runners = func(key string) (processor.Runner, error) {
			return pipeline.FromConfig(s.cfg, key, s.store, s.log)
		}
	}
	if s.apiKey != "" || s.cfg.MockOnly() {
		if r, err := s.runners(s.apiKey); err == nil {
			s.shared = r
		}
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.health)
	mux.HandleFunc("/readyz", s.ready)
	mux.HandleFunc("/process", s.process)
	mux.HandleFunc("/demo", s.demo)
	return mux
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.log.WithRequest(r).Debug("health check")
	fmt.Fprint(w, "ok")
}

// Readiness reports whether the template and examples can be loaded.
func (s *Server) Readiness() types.Readiness {
	rd := types.Readiness{CredentialsReady: s.apiKey != "" || s.cfg.MockOnly()}
	if _, err := s.store.LoadTemplate(); err != nil {
		rd.TemplateError = err.Error()
	} else {
		rd.TemplateLoaded = true
	}
	set := s.store.LoadExamples()
	rd.ExamplesLoaded = set.Loaded()
	rd.ExamplesExpected = set.Expected
	for _, w := range set.Warnings {
		rd.Warnings = append(rd.Warnings, w.Message)
	}
	return rd
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	rd := s.Readiness()
	status := http.StatusOK
	if !rd.TemplateLoaded {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, rd, s.log.WithRequest(r))
}

// runner picks the shared pipeline, or builds one for the request's key.
func (s *Server) runner(r *http.Request) (processor.Runner, error) {
	if s.shared != nil {
		return s.shared, nil
	}
	key := strings.TrimSpace(r.Header.Get(KeyHeader))
	if key == "" {
		return nil, credentials.ErrCredentialMissing
	}
	return s.runners(key)
}

func (s *Server) process(w http.ResponseWriter, r *http.Request) {
	reqLog := s.log.WithRequest(r).With("handler", "process")
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "use POST", reqLog)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Media.MaxBytes+formOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			rep := processor.Failed("", types.FileDetails{}, false, &media.TooLargeError{Size: tooBig.Limit + 1, Limit: s.cfg.Media.MaxBytes})
			s.respond(w, rep, reqLog)
			return
		case errors.Is(err, http.ErrNotMultipart):
			if err := r.ParseForm(); err != nil {
				writeError(w, http.StatusBadRequest, "invalid form: "+err.Error(), reqLog)
				return
			}
		default:
			writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error(), reqLog)
			return
		}
	}

	transcribeOnly, err := formBool(r, "transcribe_only")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), reqLog)
		return
	}
	showPrompt, err := formBool(r, "show_prompt")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), reqLog)
		return
	}
	instructions := r.FormValue("instructions")

	runner, err := s.runner(r)
	if err != nil {
		reqLog.WithError(err).Warn("no credentials")
		s.respond(w, processor.Failed("", types.FileDetails{}, transcribeOnly, err), reqLog)
		return
	}

	var blob media.Blob
	var source string
	switch {
	case r.MultipartForm != nil && len(r.MultipartForm.File["file"]) > 0:
		fh := r.MultipartForm.File["file"][0]
		source = fh.Filename
		blob, err = media.FromMultipart(fh, s.cfg.Media.MaxBytes)
		if err != nil {
			file := types.FileDetails{Name: fh.Filename, SizeBytes: fh.Size, MIMEType: fh.Header.Get("Content-Type")}
			s.respond(w, processor.Failed(source, file, transcribeOnly, err), reqLog)
			return
		}
	case r.FormValue("audio_url") != "":
		source = r.FormValue("audio_url")
		blob, err = media.Fetch(r.Context(), s.client, source, media.FetchOptions{
			Limit:      s.cfg.Media.MaxBytes,
			MaxElapsed: s.cfg.Media.FetchMaxElapsed,
		})
		if err != nil {
			s.respond(w, processor.Failed(source, types.FileDetails{Name: source}, transcribeOnly, err), reqLog)
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "missing file or audio_url", reqLog)
		return
	}

	reqLog = reqLog.With("source", source).With("size", blob.Size)
	reqLog.Info("process request received")
	rep := processor.Process(r.Context(), runner, processor.Job{
		Source:         source,
		Media:          blob,
		Instructions:   instructions,
		TranscribeOnly: transcribeOnly,
		ShowPrompt:     showPrompt,
	})
	reqLog.WithField("duration_ms", rep.DurationMs).WithField("state", rep.State).Info("processor finished")
	s.respond(w, rep, reqLog)
}

type demoResponse struct {
	Reports []processor.Report `json:"reports"`
	Summary aggregator.Summary `json:"summary"`
	Hint    types.Hint         `json:"hint"`
}

// demo runs the first rows of the configured manifest.
func (s *Server) demo(w http.ResponseWriter, r *http.Request) {
	reqLog := s.log.WithRequest(r).With("handler", "demo")
	if s.cfg.Dataset.Path == "" {
		writeError(w, http.StatusNotFound, "no dataset configured", reqLog)
		return
	}
	limit := s.cfg.Dataset.DemoLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", reqLog)
			return
		}
		limit = n
	}

	records, err := dataset.Load(s.cfg.Dataset.Path)
	if err != nil {
		reqLog.WithError(err).Error("dataset load error")
		writeError(w, http.StatusInternalServerError, "dataset load error", reqLog)
		return
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	runner, err := s.runner(r)
	if err != nil {
		_, _, status := processor.Classify(err)
		writeError(w, status, err.Error(), reqLog)
		return
	}
	reqLog.WithField("records", len(records)).Info("demo invoked")
	reports := dataset.Run(r.Context(), runner, records, dataset.RunOptions{
		HTTPClient: s.client,
		Fetch:      media.FetchOptions{Limit: s.cfg.Media.MaxBytes, MaxElapsed: s.cfg.Media.FetchMaxElapsed},
		Logger:     reqLog,
	})
	sum := aggregator.Summarize(reports)
	writeJSON(w, http.StatusOK, demoResponse{Reports: reports, Summary: sum, Hint: actionable.ForSummary(sum)}, reqLog)
}

func (s *Server) respond(w http.ResponseWriter, rep processor.Report, log *logger.Logger) {
	actionable.Annotate(&rep)
	if rep.Failed() {
		log.WithField("error_kind", rep.ErrorKind).WithField("status", rep.StatusCode).Warn(rep.Error)
	}
	writeJSON(w, rep.StatusCode, rep, log)
}

func formBool(r *http.Request, name string) (bool, error) {
	v := strings.TrimSpace(r.FormValue(name))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: expected true or false, got %q", name, v)
	}
	return b, nil
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string, log *logger.Logger) {
	log.WithField("status", status).Warn(msg)
	writeJSON(w, status, errorBody{Error: msg}, log)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}, log *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.WithError(err).Error("failed to write response")
	}
}
