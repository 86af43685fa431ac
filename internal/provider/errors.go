package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Digital-Shane/title-scout/internal/fetch"
)

// ErrorCode classifies provider failures.
type ErrorCode string

const (
	CodeTransport       ErrorCode = "TRANSPORT"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeSchema          ErrorCode = "SCHEMA"
	CodeConfiguration   ErrorCode = "CONFIGURATION"
	CodeIdentifierParse ErrorCode = "IDENTIFIER_PARSE"
	CodeRateLimited     ErrorCode = "RATE_LIMITED"
	CodeAuthFailed      ErrorCode = "AUTH_FAILED"
	CodeUnavailable     ErrorCode = "UNAVAILABLE"
	CodeUnknown         ErrorCode = "UNKNOWN"
)

// Sentinels matched by errors.Is against any *ProviderError of that code.
var (
	ErrNotFound      = errors.New("not found")
	ErrSchema        = errors.New("unexpected document structure")
	ErrConfiguration = errors.New("missing configuration")
	ErrTransport     = errors.New("transport failure")
)

// ProviderError represents an error from a provider.
type ProviderError struct {
	Provider   string
	Code       ErrorCode
	Message    string
	Retry      bool
	RetryAfter int // Seconds to wait before retry
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err != nil && !strings.Contains(e.Message, e.Err.Error()) {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is matches the code sentinels.
func (e *ProviderError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Code == CodeNotFound
	case ErrSchema:
		return e.Code == CodeSchema
	case ErrConfiguration:
		return e.Code == CodeConfiguration
	case ErrTransport:
		return e.Code == CodeTransport || e.Code == CodeUnavailable || e.Code == CodeRateLimited
	}
	return false
}

// NotFound builds a NOT_FOUND error.
func NotFound(provider, format string, args ...any) error {
	return &ProviderError{Provider: provider, Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Schema builds a SCHEMA error for a document that no longer matches the
// expected layout.
func Schema(provider, format string, args ...any) error {
	return &ProviderError{Provider: provider, Code: CodeSchema, Message: fmt.Sprintf(format, args...)}
}

// MissingSetting builds the CONFIGURATION error returned by constructors.
func MissingSetting(provider, key string) error {
	return &ProviderError{
		Provider: provider,
		Code:     CodeConfiguration,
		Message:  fmt.Sprintf("setting %q is required", key),
	}
}

// IdentifierParse builds an IDENTIFIER_PARSE error.
func IdentifierParse(provider, input string) error {
	return &ProviderError{
		Provider: provider,
		Code:     CodeIdentifierParse,
		Message:  fmt.Sprintf("no identifier in %q", input),
	}
}

// CodeOf returns the code of the first ProviderError in err's chain.
func CodeOf(err error) ErrorCode {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// IsNotFound reports whether err is a NOT_FOUND failure.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// Retryable reports whether a caller may retry err.
func Retryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retry
	}
	return false
}

// FromFetch maps a fetch failure onto the provider taxonomy.
func FromFetch(provider string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	var fe *fetch.Error
	if !errors.As(err, &fe) {
		return &ProviderError{Provider: provider, Code: CodeTransport, Message: "request failed", Retry: true, Err: err}
	}
	switch {
	case fe.NotFound():
		return &ProviderError{Provider: provider, Code: CodeNotFound, Message: "document not found", Err: err}
	case fe.Kind == fetch.KindStatus && (fe.StatusCode == 401 || fe.StatusCode == 403):
		return &ProviderError{Provider: provider, Code: CodeAuthFailed, Message: "authentication failed", Err: err}
	case fe.Kind == fetch.KindStatus && fe.StatusCode == 429:
		return &ProviderError{Provider: provider, Code: CodeRateLimited, Message: "rate limit exceeded", Retry: true, RetryAfter: 10, Err: err}
	case fe.Kind == fetch.KindStatus && fe.StatusCode >= 500:
		return &ProviderError{Provider: provider, Code: CodeUnavailable, Message: "service unavailable", Retry: true, RetryAfter: 30, Err: err}
	case fe.Kind == fetch.KindMalformed:
		return &ProviderError{Provider: provider, Code: CodeSchema, Message: "malformed response", Err: err}
	}
	return &ProviderError{Provider: provider, Code: CodeTransport, Message: "request failed", Retry: true, Err: err}
}

// MapSDKError maps an SDK error by inspecting its message; SDK clients do not
// expose typed errors.
func MapSDKError(provider string, err error) error {
	if err == nil {
		return nil
	}
	var pe *ProviderError
	if errors.As(err, &pe) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "401") || strings.Contains(errStr, "unauthorized") || strings.Contains(errStr, "invalid api key") || strings.Contains(errStr, "missing omdb api key"):
		return &ProviderError{Provider: provider, Code: CodeAuthFailed, Message: "authentication failed", Err: err}
	case strings.Contains(errStr, "429") || strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "limit reached") || strings.Contains(errStr, "too many"):
		return &ProviderError{Provider: provider, Code: CodeRateLimited, Message: "rate limit exceeded", Retry: true, RetryAfter: 10, Err: err}
	case strings.Contains(errStr, "404") || strings.Contains(errStr, "not found"):
		return &ProviderError{Provider: provider, Code: CodeNotFound, Message: "not found", Err: err}
	case strings.Contains(errStr, "503") || strings.Contains(errStr, "unavailable"):
		return &ProviderError{Provider: provider, Code: CodeUnavailable, Message: "service unavailable", Retry: true, RetryAfter: 30, Err: err}
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "connection") || strings.Contains(errStr, "no such host"):
		return &ProviderError{Provider: provider, Code: CodeTransport, Message: "request failed", Retry: true, Err: err}
	case strings.Contains(errStr, "unmarshal") || strings.Contains(errStr, "invalid character"):
		return &ProviderError{Provider: provider, Code: CodeSchema, Message: "unexpected response", Err: err}
	}
	return &ProviderError{Provider: provider, Code: CodeUnknown, Message: "provider error", Err: err}
}
