package pipeline

import (
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"zanzara-go/internal/analysis"
	"zanzara-go/internal/config"
	"zanzara-go/internal/credentials"
	"zanzara-go/internal/logger"
	"zanzara-go/internal/transcription"
)

const defaultBaseURL = "https://api.openai.com/v1"

// NewOpenAIClient builds the vendor client shared by both stages.
func NewOpenAIClient(cfg config.OpenAI, apiKey string) *openai.Client {
	c := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" && cfg.BaseURL != defaultBaseURL {
		c.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		c.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return openai.NewClientWithConfig(c)
}

// FromConfig wires real or mock stages. A stage that talks to the vendor
// needs apiKey; without one it fails with credentials.ErrCredentialMissing.
func FromConfig(cfg *config.Config, apiKey string, ts TemplateSource, log *logger.Logger, opts ...Option) (*Controller, error) {
	if apiKey == "" && !cfg.MockOnly() {
		return nil, credentials.ErrCredentialMissing
	}

	var client *openai.Client
	if !cfg.MockOnly() {
		client = NewOpenAIClient(cfg.OpenAI, apiKey)
	}

	var tr transcription.Transcriber
	if cfg.Mock.Transcribe {
		log.Info("mock transcription mode ON")
		tr = transcription.Mock{MaxBytes: cfg.Media.MaxBytes}
	} else {
		tr = transcription.NewClient(client, cfg.OpenAI.TranscriptionModel, cfg.Media.MaxBytes, log)
	}

	var an analysis.Analyzer
	if cfg.Mock.LLM {
		log.Info("mock LLM mode ON")
		an = analysis.Mock{}
	} else {
		an = analysis.NewClient(client, cfg.OpenAI.AnalysisModel, cfg.OpenAI.Temperature, log)
	}

	base := []Option{WithMaxBytes(cfg.Media.MaxBytes), WithLogger(log)}
	return New(ts, tr, an, append(base, opts...)...), nil
}
