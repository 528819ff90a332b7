package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imdouglasoliveira/DownMeets/internal/domain"
	"github.com/imdouglasoliveira/DownMeets/internal/utils"
)

// fakeStrategy is a scripted strategy for engine tests.
type fakeStrategy struct {
	name    string
	err     error
	content []byte
	panics  bool
	calls   int
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Attempt(ctx context.Context, ref *domain.FileReference, destPath string) (*domain.DownloadAttempt, error) {
	f.calls++
	if f.panics {
		panic("scripted panic")
	}

	start := time.Now()
	attempt := domain.NewAttempt(f.name)
	if f.err != nil {
		return attempt.Finish(start, f.err), f.err
	}

	if err := os.WriteFile(destPath, f.content, 0o644); err != nil {
		return attempt.Finish(start, err), err
	}
	attempt.Outcome = domain.OutcomeSuccess
	attempt.BytesWritten = int64(len(f.content))
	return attempt.Finish(start, nil), nil
}

func validMedia() []byte {
	// Binary-looking payload comfortably above the size floor.
	data := make([]byte, 8192)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func htmlPage() []byte {
	page := []byte("<!DOCTYPE html><html><body>not a recording</body></html>")
	// Pad past the size floor so only the content sniff can reject it.
	return append(page, make([]byte, 8192)...)
}

func newTestEngine(strategies ...domain.Strategy) *Engine {
	return New(Options{
		Strategies: strategies,
		Validator:  NewValidator(4096),
		Logger:     utils.NewLogger(utils.LoggerOptions{Level: "error", Format: "json"}),
	})
}

func testRef() *domain.FileReference {
	return &domain.FileReference{ID: "ABC123", URL: "https://drive.google.com/file/d/ABC123/view"}
}

func TestFirstStrategyWins(t *testing.T) {
	first := &fakeStrategy{name: "yt-dlp", content: validMedia()}
	second := &fakeStrategy{name: "page-scrape", content: validMedia()}

	dest := filepath.Join(t.TempDir(), "meet_ABC123.mp4")
	result := newTestEngine(first, second).Download(context.Background(), testRef(), dest)

	require.True(t, result.Succeeded())
	assert.Equal(t, dest, result.Path)
	assert.Len(t, result.Attempts, 1)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls, "later strategies must not run after a success")
}

func TestAdvancesPastFailures(t *testing.T) {
	first := &fakeStrategy{name: "yt-dlp", err: fmt.Errorf("%w: not installed", domain.ErrUnsupportedFormat)}
	second := &fakeStrategy{name: "page-scrape", err: fmt.Errorf("%w: no playback URLs", domain.ErrEmptyResult)}
	third := &fakeStrategy{name: "api-download", content: validMedia()}

	dest := filepath.Join(t.TempDir(), "meet_ABC123.mp4")
	result := newTestEngine(first, second, third).Download(context.Background(), testRef(), dest)

	require.True(t, result.Succeeded())
	assert.Len(t, result.Attempts, 3)
	assert.Equal(t, domain.OutcomeSuccess, result.Attempts[2].Outcome)
	assert.Equal(t, "api-download", result.Winner().Strategy)
}

func TestPermissionDeniedShortCircuits(t *testing.T) {
	first := &fakeStrategy{name: "yt-dlp", err: fmt.Errorf("%w: locked", domain.ErrPermissionDenied)}
	second := &fakeStrategy{name: "page-scrape", content: validMedia()}

	dest := filepath.Join(t.TempDir(), "meet_ABC123.mp4")
	result := newTestEngine(first, second).Download(context.Background(), testRef(), dest)

	require.False(t, result.Succeeded())
	assert.ErrorIs(t, result.Err, domain.ErrPermissionDenied)
	assert.Len(t, result.Attempts, 1)
	assert.Equal(t, 0, second.calls, "permission failure must stop the chain")
}

func TestChainExhausted(t *testing.T) {
	first := &fakeStrategy{name: "yt-dlp", err: fmt.Errorf("%w", domain.ErrEmptyResult)}
	second := &fakeStrategy{name: "page-scrape", err: fmt.Errorf("%w", domain.ErrEmptyResult)}
	third := &fakeStrategy{name: "api-download", err: fmt.Errorf("%w", domain.ErrEmptyResult)}

	dest := filepath.Join(t.TempDir(), "meet_ABC123.mp4")
	result := newTestEngine(first, second, third).Download(context.Background(), testRef(), dest)

	require.False(t, result.Succeeded())
	assert.ErrorIs(t, result.Err, domain.ErrChainExhausted)
	assert.Len(t, result.Attempts, 3)
	assert.NoFileExists(t, dest)
}

func TestInvalidFileAdvancesChain(t *testing.T) {
	// First strategy "succeeds" but saved an HTML page under .mp4.
	first := &fakeStrategy{name: "page-scrape", content: htmlPage()}
	second := &fakeStrategy{name: "api-download", content: validMedia()}

	dest := filepath.Join(t.TempDir(), "meet_ABC123.mp4")
	result := newTestEngine(first, second).Download(context.Background(), testRef(), dest)

	require.True(t, result.Succeeded())
	assert.Len(t, result.Attempts, 2)
	assert.Equal(t, domain.OutcomeEmpty, result.Attempts[0].Outcome)
	assert.ErrorIs(t, result.Attempts[0].Err, domain.ErrEmptyResult)
	assert.Equal(t, "api-download", result.Winner().Strategy)
}

func TestPanicIsContained(t *testing.T) {
	first := &fakeStrategy{name: "yt-dlp", panics: true}
	second := &fakeStrategy{name: "page-scrape", content: validMedia()}

	dest := filepath.Join(t.TempDir(), "meet_ABC123.mp4")

	var result *domain.DownloadResult
	require.NotPanics(t, func() {
		result = newTestEngine(first, second).Download(context.Background(), testRef(), dest)
	})

	require.True(t, result.Succeeded())
	assert.Len(t, result.Attempts, 2)
	assert.Equal(t, domain.OutcomeFailure, result.Attempts[0].Outcome)
	assert.Contains(t, result.Attempts[0].Err.Error(), "panicked")
}

func TestCancelledContextStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	first := &fakeStrategy{name: "yt-dlp", content: validMedia()}
	dest := filepath.Join(t.TempDir(), "meet_ABC123.mp4")
	result := newTestEngine(first).Download(ctx, testRef(), dest)

	require.False(t, result.Succeeded())
	assert.ErrorIs(t, result.Err, context.Canceled)
	assert.Equal(t, 0, first.calls)
}
