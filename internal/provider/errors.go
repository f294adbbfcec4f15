package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
	"google.golang.org/genai"
)

// ErrorKind classifies completion failures.
type ErrorKind int

const (
	// KindTransport: the backend could not be reached or the call was cut short.
	KindTransport ErrorKind = iota + 1
	// KindBackend: the backend answered with an error status.
	KindBackend
	// KindMalformed: the backend answered, but not with a usable completion.
	KindMalformed
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindBackend:
		return "backend"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// CompletionError is returned by every Client for a failed completion.
type CompletionError struct {
	Kind       ErrorKind
	Provider   string
	StatusCode int // set for KindBackend
	Message    string
	Err        error
}

func (e *CompletionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("completion (%s): %s error, status %d: %s", e.Provider, e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("completion (%s): %s error: %s", e.Provider, e.Kind, e.Message)
}

func (e *CompletionError) Unwrap() error { return e.Err }

// Retryable reports whether repeating the same request could succeed.
// Nothing in this package retries; callers decide.
func (e *CompletionError) Retryable() bool {
	switch e.Kind {
	case KindTransport:
		return !errors.Is(e.Err, context.Canceled)
	case KindBackend:
		return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
	default:
		return false
	}
}

func malformed(provider, format string, args ...any) *CompletionError {
	return &CompletionError{Kind: KindMalformed, Provider: provider, Message: fmt.Sprintf(format, args...)}
}

// classify maps an SDK error onto a CompletionError.
func classify(provider string, err error) *CompletionError {
	var ce *CompletionError
	if errors.As(err, &ce) {
		return ce
	}

	var oaiErr *openai.Error
	if errors.As(err, &oaiErr) {
		msg := oaiErr.Message
		if msg == "" {
			msg = http.StatusText(oaiErr.StatusCode)
		}
		return &CompletionError{Kind: KindBackend, Provider: provider, StatusCode: oaiErr.StatusCode, Message: msg, Err: err}
	}

	var antErr *anthropic.Error
	if errors.As(err, &antErr) {
		return &CompletionError{Kind: KindBackend, Provider: provider, StatusCode: antErr.StatusCode, Message: http.StatusText(antErr.StatusCode), Err: err}
	}

	var gErr genai.APIError
	if errors.As(err, &gErr) {
		return &CompletionError{Kind: KindBackend, Provider: provider, StatusCode: gErr.Code, Message: gErr.Message, Err: err}
	}
	var gErrPtr *genai.APIError
	if errors.As(err, &gErrPtr) && gErrPtr != nil {
		return &CompletionError{Kind: KindBackend, Provider: provider, StatusCode: gErrPtr.Code, Message: gErrPtr.Message, Err: err}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &CompletionError{Kind: KindMalformed, Provider: provider, Message: "undecodable response body", Err: err}
	}

	return &CompletionError{Kind: KindTransport, Provider: provider, Message: err.Error(), Err: err}
}
