package domain

import (
	"context"
	"io"
	"net/http"
	"time"
)

// Strategy is one self-contained extraction technique capable of
// producing a media stream from a file identifier. Strategies share no
// mutable state; each owns its HTTP session for the duration of an
// attempt.
type Strategy interface {
	// Name returns the strategy name
	Name() string
	// Attempt downloads the referenced file to destPath. The returned
	// attempt is always non-nil and carries timing and byte counts even
	// on failure; the error mirrors attempt.Err for classification.
	Attempt(ctx context.Context, ref *FileReference, destPath string) (*DownloadAttempt, error)
}

// Fetcher defines the interface for HTTP fetching with stealth capabilities
type Fetcher interface {
	// Get fetches content from a URL into memory
	Get(ctx context.Context, url string) (*Response, error)
	// GetWithHeaders fetches content with custom headers
	GetWithHeaders(ctx context.Context, url string, headers map[string]string) (*Response, error)
	// Stream opens a streaming response, following redirects manually so
	// browser headers and cookies propagate across every hop. The caller
	// owns the body and must close it.
	Stream(ctx context.Context, url string, headers map[string]string) (*StreamResponse, error)
	// GetCookies returns cookies accumulated for a URL
	GetCookies(url string) []*http.Cookie
	// Close releases resources
	Close() error
}

// Response represents a fully buffered HTTP response
type Response struct {
	StatusCode  int
	Body        []byte
	Headers     http.Header
	ContentType string
	// URL is the final URL after any redirects were followed.
	URL string
}

// StreamResponse represents a streaming HTTP response. Body must be
// closed by the caller on every exit path.
type StreamResponse struct {
	StatusCode    int
	Headers       http.Header
	ContentType   string
	ContentLength int64
	URL           string
	Body          io.ReadCloser
}

// Cache defines the interface for caching resolved media URLs
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores a value in cache with TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Has checks if a key exists in cache
	Has(ctx context.Context, key string) bool
	// Delete removes a key from cache
	Delete(ctx context.Context, key string) error
	// Close releases cache resources
	Close() error
}

// ProgressSink receives per-attempt transfer events. The engine and
// strategies emit; a renderer (progress bar, logger) consumes. The
// engine itself has no console-formatting responsibility.
type ProgressSink interface {
	// AttemptStarted signals a strategy began transferring. totalBytes
	// is -1 when the size is unknown.
	AttemptStarted(strategy, fileID string, totalBytes int64)
	// Transferred reports n additional bytes written to disk.
	Transferred(n int64)
	// AttemptFinished signals the attempt ended with the given outcome.
	AttemptFinished(strategy string, outcome Outcome, bytes int64)
}
