package adapter

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstream matches every *UpstreamError.
	ErrUpstream = errors.New("upstream error")

	// ErrCandleUnavailable matches every *CandleUnavailableError.
	ErrCandleUnavailable = errors.New("candle unavailable")

	// ErrTimeout is wrapped into errors caused by a transport timeout.
	ErrTimeout = errors.New("upstream timeout")
)

// UpstreamError reports a non-success status or a malformed response from a
// market-data source. Body holds the raw response body.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Body       string
	Reason     string
}

func (e *UpstreamError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Provider, e.Reason)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Body)
}

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// Malformed builds an UpstreamError for a response that could not be
// narrowed into a candle.
func Malformed(provider string, body []byte, format string, args ...any) *UpstreamError {
	return &UpstreamError{
		Provider:   provider,
		StatusCode: 200,
		Body:       string(body),
		Reason:     fmt.Sprintf(format, args...),
	}
}

// CandleUnavailableError is returned once a retry budget is exhausted.
type CandleUnavailableError struct {
	AssetName string
	Attempts  int
	Err       error
}

func (e *CandleUnavailableError) Error() string {
	return fmt.Sprintf("could not get candle for %s after %d attempts: %v", e.AssetName, e.Attempts, e.Err)
}

func (e *CandleUnavailableError) Is(target error) bool { return target == ErrCandleUnavailable }

func (e *CandleUnavailableError) Unwrap() error { return e.Err }
