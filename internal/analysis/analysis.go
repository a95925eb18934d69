// Package analysis sends the assembled prompt to the hosted chat model.
package analysis

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"zanzara-go/internal/apierr"
	"zanzara-go/internal/logger"
)

const DefaultTemperature float32 = 0.8

// Analyzer turns an assembled prompt into generated text.
type Analyzer interface {
	Analyze(ctx context.Context, prompt string) (string, error)
}

type chatAPI interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Client struct {
	api         chatAPI
	model       string
	temperature float32
	log         *logger.Logger
}

func NewClient(api chatAPI, model string, temperature float32, log *logger.Logger) *Client {
	if log == nil {
		log = logger.New()
	}
	return &Client{
		api:         api,
		model:       model,
		temperature: temperature,
		log:         log.With("component", "analysis"),
	}
}

func (c *Client) Model() string { return c.model }

func (c *Client) Analyze(ctx context.Context, prompt string) (string, error) {
	return c.Request(ctx, prompt, c.model, c.temperature)
}

// Request sends one chat completion holding a single user message and returns
// the first choice's content, trimmed. Nothing is retried.
func (c *Client) Request(ctx context.Context, prompt, modelID string, temperature float32) (string, error) {
	// a zero temperature is dropped by omitempty and the provider default applies
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}
	log := c.log.WithField("model", modelID).WithField("prompt_chars", len(prompt))
	log.Info("analysis request")

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: modelID,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: temperature,
	})
	if err != nil {
		err = apierr.Wrap(apierr.StageAnalysis, modelID, err)
		log.WithField("error", err.Error()).Error("analysis failed")
		return "", err
	}
	if len(resp.Choices) == 0 {
		log.Error("analysis response has no choices")
		return "", apierr.Empty(apierr.StageAnalysis, modelID)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		log.WithField("finish_reason", resp.Choices[0].FinishReason).Error("analysis response is blank")
		return "", apierr.Empty(apierr.StageAnalysis, modelID)
	}

	log.WithField("duration_ms", time.Since(start).Milliseconds()).
		WithField("total_tokens", resp.Usage.TotalTokens).
		Info("analysis completed")
	return content, nil
}

// Mock returns a deterministic article without network calls.
type Mock struct {
	Text string
}

func (m Mock) Analyze(ctx context.Context, prompt string) (string, error) {
	if m.Text != "" {
		return m.Text, nil
	}
	return fmt.Sprintf("## MOCK ANALYSIS\n\nPrompt received (%d chars).", len(prompt)), nil
}
