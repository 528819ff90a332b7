package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors
var (
	// ErrInvalidReference indicates no Drive file identifier could be
	// extracted from the input URL.
	ErrInvalidReference = errors.New("invalid file reference")

	// ErrPermissionDenied indicates the requester lacks access to the
	// file. Terminal for the file: every strategy hits the same ACL.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrConfirmationRequired indicates Drive interposed a confirmation
	// page. Handled inside the strategies, never surfaced upward.
	ErrConfirmationRequired = errors.New("confirmation required")

	// ErrEmptyResult indicates a strategy completed without producing a
	// valid media file.
	ErrEmptyResult = errors.New("empty result")

	// ErrUnsupportedFormat indicates a strategy cannot handle this file.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrChainExhausted indicates every strategy was attempted without a
	// validated result.
	ErrChainExhausted = errors.New("all download strategies exhausted")

	// ErrCacheMiss indicates a cache miss
	ErrCacheMiss = errors.New("cache miss")

	// ErrRateLimited indicates rate limiting was encountered
	ErrRateLimited = errors.New("rate limited")

	// ErrTimeout indicates a timeout occurred
	ErrTimeout = errors.New("timeout")
)

// FetchError represents an error during fetching
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError creates a new FetchError
func NewFetchError(url string, statusCode int, err error) *FetchError {
	return &FetchError{
		URL:        url,
		StatusCode: statusCode,
		Err:        err,
	}
}

// RetryableError indicates an error that can be retried
type RetryableError struct {
	Err        error
	RetryAfter int // Seconds to wait before retry, 0 if unknown
}

func (e *RetryableError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("retryable error (retry after %ds): %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("retryable error: %v", e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var retryable *RetryableError
	if errors.As(err, &retryable) {
		return true
	}

	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		switch fetchErr.StatusCode {
		case 429, 502, 503, 504:
			return true
		}
	}

	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTimeout)
}

// StrategyError represents a failure inside one strategy execution
type StrategyError struct {
	Strategy string
	FileID   string
	Err      error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("strategy %s failed for %s: %v", e.Strategy, e.FileID, e.Err)
}

func (e *StrategyError) Unwrap() error {
	return e.Err
}

// NewStrategyError creates a new StrategyError
func NewStrategyError(strategy, fileID string, err error) *StrategyError {
	return &StrategyError{
		Strategy: strategy,
		FileID:   fileID,
		Err:      err,
	}
}

// Class is the engine-level classification of a strategy failure. It
// decides whether to retry, advance the chain, or abort the file.
type Class int

const (
	// ClassNetwork: transient transport failure. Retried with bounded
	// attempts inside the strategy; advances the chain once exhausted.
	ClassNetwork Class = iota
	// ClassPermissionDenied: terminal for the file, short-circuits the
	// remaining strategies.
	ClassPermissionDenied
	// ClassEmptyResult: the strategy produced nothing usable; advance.
	ClassEmptyResult
	// ClassUnsupportedFormat: the strategy cannot handle this file; advance.
	ClassUnsupportedFormat
	// ClassInvalidReference: the reference itself is unusable; abort
	// before any strategy runs.
	ClassInvalidReference
)

func (c Class) String() string {
	switch c {
	case ClassPermissionDenied:
		return "permission_denied"
	case ClassEmptyResult:
		return "empty_result"
	case ClassUnsupportedFormat:
		return "unsupported_format"
	case ClassInvalidReference:
		return "invalid_reference"
	default:
		return "network_error"
	}
}

// Classify maps any strategy failure onto the classification table.
// Unclassified errors map to ClassNetwork with no retries remaining,
// so they advance the chain instead of crashing the batch.
func Classify(err error) Class {
	switch {
	case errors.Is(err, ErrInvalidReference):
		return ClassInvalidReference
	case errors.Is(err, ErrPermissionDenied):
		return ClassPermissionDenied
	case errors.Is(err, ErrEmptyResult):
		return ClassEmptyResult
	case errors.Is(err, ErrUnsupportedFormat):
		return ClassUnsupportedFormat
	}

	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		switch fetchErr.StatusCode {
		case 401, 403:
			return ClassPermissionDenied
		case 404, 410:
			return ClassEmptyResult
		}
	}

	return ClassNetwork
}
