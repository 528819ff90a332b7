package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imdouglasoliveira/DownMeets/internal/domain"
	"github.com/imdouglasoliveira/DownMeets/internal/output"
	"github.com/imdouglasoliveira/DownMeets/internal/state"
	"github.com/imdouglasoliveira/DownMeets/internal/utils"
)

func TestReadURLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	content := `# recordings from the offsite
https://drive.google.com/file/d/aaa/view

https://drive.google.com/file/d/bbb/view
   # indented comment
https://drive.google.com/open?id=ccc
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	urls, err := ReadURLFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://drive.google.com/file/d/aaa/view",
		"https://drive.google.com/file/d/bbb/view",
		"https://drive.google.com/open?id=ccc",
	}, urls)
}

func TestReadURLFileMissing(t *testing.T) {
	_, err := ReadURLFile(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

// fakeDownloader scripts per-file outcomes and records call order.
type fakeDownloader struct {
	fail    map[string]error
	content []byte
	order   []string
}

func (f *fakeDownloader) Download(ctx context.Context, ref *domain.FileReference, destPath string) *domain.DownloadResult {
	f.order = append(f.order, ref.ID)
	result := &domain.DownloadResult{Reference: ref}

	if err, ok := f.fail[ref.ID]; ok {
		result.Err = err
		result.Attempts = []*domain.DownloadAttempt{
			{Strategy: "page-scrape", Outcome: domain.OutcomeFailure, Err: err},
		}
		return result
	}

	os.WriteFile(destPath, f.content, 0o644)
	result.Path = destPath
	result.Attempts = []*domain.DownloadAttempt{
		{Strategy: "page-scrape", Outcome: domain.OutcomeSuccess, BytesWritten: int64(len(f.content))},
	}
	return result
}

func newTestScheduler(t *testing.T, dl Downloader, force bool) (*Scheduler, *output.Writer, *state.Manager) {
	t.Helper()

	writer := output.New(t.TempDir(), false)
	require.NoError(t, writer.Prepare())

	history := state.NewManager(writer.BaseDir())
	require.NoError(t, history.Load())

	s := NewScheduler(SchedulerOptions{
		Downloader: dl,
		Writer:     writer,
		History:    history,
		Delay:      0,
		Force:      force,
		Logger:     utils.NewLogger(utils.LoggerOptions{Level: "error", Format: "json"}),
	})
	return s, writer, history
}

func TestRunDownloadsInOrder(t *testing.T) {
	dl := &fakeDownloader{content: []byte("media")}
	s, _, history := newTestScheduler(t, dl, false)

	summary, err := s.Run(context.Background(), []string{
		"https://drive.google.com/file/d/aaa/view",
		"https://drive.google.com/file/d/bbb/view",
	})

	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, []string{"aaa", "bbb"}, dl.order)

	require.NotNil(t, history.Get("aaa"))
	assert.Equal(t, "page-scrape", history.Get("aaa").Strategy)
}

func TestRunContinuesPastFailures(t *testing.T) {
	dl := &fakeDownloader{
		content: []byte("media"),
		fail:    map[string]error{"bad": domain.ErrChainExhausted},
	}
	s, _, _ := newTestScheduler(t, dl, false)

	summary, err := s.Run(context.Background(), []string{
		"https://drive.google.com/file/d/bad/view",
		"https://drive.google.com/file/d/good/view",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, []string{"bad", "good"}, dl.order)
}

func TestRunCountsUnparseableURLs(t *testing.T) {
	dl := &fakeDownloader{content: []byte("media")}
	s, _, _ := newTestScheduler(t, dl, false)

	summary, err := s.Run(context.Background(), []string{
		"https://example.com/not-a-drive-link",
		"https://drive.google.com/file/d/good/view",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Succeeded)
	require.Len(t, summary.Results, 2)
	assert.ErrorIs(t, summary.Results[0].Err, domain.ErrInvalidReference)
}

func TestRunSkipsExistingDownloads(t *testing.T) {
	dl := &fakeDownloader{content: []byte("media")}
	s, writer, _ := newTestScheduler(t, dl, false)

	require.NoError(t, os.WriteFile(writer.PathFor("done"), []byte("already here"), 0o644))

	summary, err := s.Run(context.Background(), []string{
		"https://drive.google.com/file/d/done/view",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Empty(t, dl.order)
}

func TestRunForceRedownloads(t *testing.T) {
	dl := &fakeDownloader{content: []byte("fresh media")}

	writer := output.New(t.TempDir(), true)
	require.NoError(t, writer.Prepare())
	history := state.NewManager(writer.BaseDir())
	require.NoError(t, history.Load())

	s := NewScheduler(SchedulerOptions{
		Downloader: dl,
		Writer:     writer,
		History:    history,
		Force:      true,
		Logger:     utils.NewLogger(utils.LoggerOptions{Level: "error", Format: "json"}),
	})

	require.NoError(t, os.WriteFile(writer.PathFor("done"), []byte("stale"), 0o644))

	summary, err := s.Run(context.Background(), []string{
		"https://drive.google.com/file/d/done/view",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, []string{"done"}, dl.order)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dl := &fakeDownloader{content: []byte("media")}
	s, _, _ := newTestScheduler(t, dl, false)

	_, err := s.Run(ctx, []string{"https://drive.google.com/file/d/aaa/view"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, dl.order)
}

func TestRunDelaysBetweenDownloads(t *testing.T) {
	dl := &fakeDownloader{content: []byte("media")}

	writer := output.New(t.TempDir(), false)
	require.NoError(t, writer.Prepare())
	history := state.NewManager(writer.BaseDir())
	require.NoError(t, history.Load())

	s := NewScheduler(SchedulerOptions{
		Downloader: dl,
		Writer:     writer,
		History:    history,
		Delay:      30 * time.Millisecond,
		Logger:     utils.NewLogger(utils.LoggerOptions{Level: "error", Format: "json"}),
	})

	start := time.Now()
	summary, err := s.Run(context.Background(), []string{
		"https://drive.google.com/file/d/aaa/view",
		"https://drive.google.com/file/d/bbb/view",
		"https://drive.google.com/file/d/ccc/view",
	})

	require.NoError(t, err)
	assert.Equal(t, 3, summary.Succeeded)
	// Two gaps between three downloads, none before the first.
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestSleepCtxHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := sleepCtx(ctx, 5*time.Second)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Less(t, time.Since(start), time.Second)
}
