package transcription

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"zanzara-go/internal/apierr"
	"zanzara-go/internal/logger"
	"zanzara-go/internal/media"
)

// Transcriber turns media into plain text. An empty string is a valid result.
type Transcriber interface {
	Transcribe(ctx context.Context, blob media.Blob) (string, error)
}

type audioAPI interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
}

// Client calls the hosted speech-to-text endpoint once per invocation.
type Client struct {
	api      audioAPI
	model    string
	maxBytes int64
	log      *logger.Logger
}

func NewClient(api audioAPI, model string, maxBytes int64, log *logger.Logger) *Client {
	if log == nil {
		log = logger.New()
	}
	return &Client{
		api:      api,
		model:    model,
		maxBytes: maxBytes,
		log:      log.With("module", "transcription"),
	}
}

func (c *Client) Model() string { return c.model }

func (c *Client) Transcribe(ctx context.Context, blob media.Blob) (string, error) {
	if err := media.CheckSize(blob.Size, c.maxBytes); err != nil {
		return "", err
	}
	log := c.log.WithField("file", blob.Name).WithField("size_bytes", blob.Size).WithField("model", c.model)
	log.Info("starting transcription")

	start := time.Now()
	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.model,
		FilePath: blob.Name,
		Reader:   bytes.NewReader(blob.Data),
		Format:   openai.AudioResponseFormatText,
	})
	if err != nil {
		err = apierr.Wrap(apierr.StageTranscription, c.model, err)
		log.WithField("error", err.Error()).Error("transcription failed")
		return "", err
	}

	text, err := Normalize(resp)
	if err != nil {
		return "", apierr.Wrap(apierr.StageTranscription, c.model, err)
	}
	log.WithField("duration_ms", time.Since(start).Milliseconds()).
		WithField("chars", len(text)).
		Info("transcription completed")
	return text, nil
}

// Normalize accepts every shape the speech-to-text boundary can hand back
// (raw text or a structured response) and returns trimmed plain text.
func Normalize(v any) (string, error) {
	switch r := v.(type) {
	case string:
		return strings.TrimSpace(r), nil
	case []byte:
		return strings.TrimSpace(string(r)), nil
	case openai.AudioResponse:
		return fromResponse(r), nil
	case *openai.AudioResponse:
		if r == nil {
			return "", errors.New("nil transcription response")
		}
		return fromResponse(*r), nil
	default:
		return "", fmt.Errorf("unexpected transcription response type %T", v)
	}
}

func fromResponse(r openai.AudioResponse) string {
	if text := strings.TrimSpace(r.Text); text != "" || len(r.Segments) == 0 {
		return text
	}
	parts := make([]string, 0, len(r.Segments))
	for _, s := range r.Segments {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// Mock returns a fixed transcript without network calls.
type Mock struct {
	Text     string
	MaxBytes int64
}

func (m Mock) Transcribe(ctx context.Context, blob media.Blob) (string, error) {
	if err := media.CheckSize(blob.Size, m.MaxBytes); err != nil {
		return "", err
	}
	if m.Text == "" {
		return "MOCK TRANSCRIPT: the host complains about the traffic and the callers disagree.", nil
	}
	return m.Text, nil
}
