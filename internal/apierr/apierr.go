// Package apierr classifies failures of the hosted speech-to-text and chat
// APIs into a closed set of kinds, tagged with the stage that made the call.
package apierr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	openai "github.com/sashabaranov/go-openai"
)

type Stage string

const (
	StageTranscription Stage = "transcription"
	StageAnalysis      Stage = "analysis"
)

type Kind string

const (
	KindConnection    Kind = "connection"
	KindRateLimit     Kind = "rate_limit"
	KindStatus        Kind = "status"
	KindEmptyResponse Kind = "empty_response"
	KindUnknown       Kind = "unknown"
)

// Error is returned by both vendor call sites. Every instance is fatal to the
// invocation that produced it.
type Error struct {
	Stage      Stage
	Kind       Kind
	Model      string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindConnection:
		return fmt.Sprintf("%s: connection to the API failed (%s): %s", e.Stage, e.Model, e.Message)
	case KindRateLimit:
		return fmt.Sprintf("%s: rate limit exceeded for %s: %s", e.Stage, e.Model, e.Message)
	case KindStatus:
		return fmt.Sprintf("%s: API error: status %d - %s", e.Stage, e.StatusCode, e.Message)
	case KindEmptyResponse:
		return fmt.Sprintf("%s: %s returned no usable response", e.Stage, e.Model)
	default:
		return fmt.Sprintf("%s: unexpected error calling %s: %s", e.Stage, e.Model, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus is the status the HTTP layer answers with for this failure.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindConnection:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// Wrap classifies err. A nil err returns nil.
func Wrap(stage Stage, model string, err error) error {
	if err == nil {
		return nil
	}
	e := &Error{Stage: stage, Model: model, Err: err, Message: err.Error()}

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	var netErr net.Error
	var urlErr *url.Error

	switch {
	case errors.As(err, &apiErr):
		e.StatusCode = apiErr.HTTPStatusCode
		e.Message = apiErr.Message
		e.Kind = statusKind(apiErr.HTTPStatusCode)
	case errors.As(err, &reqErr):
		e.StatusCode = reqErr.HTTPStatusCode
		if reqErr.Err != nil {
			e.Message = reqErr.Err.Error()
		}
		e.Kind = statusKind(reqErr.HTTPStatusCode)
	case errors.Is(err, context.DeadlineExceeded):
		e.Kind = KindConnection
	case errors.As(err, &netErr), errors.As(err, &urlErr):
		e.Kind = KindConnection
	default:
		e.Kind = KindUnknown
	}
	return e
}

func statusKind(code int) Kind {
	switch {
	case code == http.StatusTooManyRequests:
		return KindRateLimit
	case code >= 300 || code < 200:
		return KindStatus
	default:
		return KindUnknown
	}
}

// Empty reports a response that carried no completion.
func Empty(stage Stage, model string) error {
	return &Error{Stage: stage, Kind: KindEmptyResponse, Model: model, Message: "no choices in response"}
}

// KindOf returns the kind of a classified error, or "" for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// StageOf returns the stage of a classified error, or "".
func StageOf(err error) Stage {
	var e *Error
	if errors.As(err, &e) {
		return e.Stage
	}
	return ""
}
