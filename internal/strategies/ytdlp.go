package strategies

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/imdouglasoliveira/DownMeets/internal/domain"
	"github.com/imdouglasoliveira/DownMeets/internal/drive"
	"github.com/imdouglasoliveira/DownMeets/internal/utils"
)

// YtdlpStrategy shells out to yt-dlp, which knows Drive's player
// internals and handles format selection on its own. It is the first
// strategy in the chain: when it works it produces the best result with
// no scraping on our side.
type YtdlpStrategy struct {
	deps *Dependencies
}

// NewYtdlpStrategy creates the yt-dlp extraction strategy
func NewYtdlpStrategy(deps *Dependencies) *YtdlpStrategy {
	return &YtdlpStrategy{deps: deps}
}

// Name returns the strategy name
func (s *YtdlpStrategy) Name() string {
	return NameYtdlp
}

// Attempt implements domain.Strategy.
func (s *YtdlpStrategy) Attempt(ctx context.Context, ref *domain.FileReference, destPath string) (*domain.DownloadAttempt, error) {
	start := time.Now()
	attempt := domain.NewAttempt(s.Name())
	logger := s.deps.Logger.WithStrategy(s.Name()).WithFileID(ref.ID)

	if err := utils.EnsureDir(destPath); err != nil {
		return attempt.Finish(start, err), err
	}

	viewBase := s.deps.ViewBase
	if viewBase == "" {
		viewBase = drive.ViewBaseURL
	}
	viewURL := drive.ViewURL(viewBase, ref.ID)

	dl := ytdlp.New().
		NoPlaylist().
		ForceOverwrites().
		Format("best").
		Output(destPath)

	started := false
	var lastBytes int64
	dl.ProgressFunc(500*time.Millisecond, func(update ytdlp.ProgressUpdate) {
		if !started {
			total := int64(update.TotalBytes)
			if total <= 0 {
				total = -1
			}
			s.deps.Progress.AttemptStarted(s.Name(), ref.ID, total)
			started = true
		}
		downloaded := int64(update.DownloadedBytes)
		if delta := downloaded - lastBytes; delta > 0 {
			s.deps.Progress.Transferred(delta)
			lastBytes = downloaded
		}
	})

	logger.Debug().Str("url", viewURL).Msg("running yt-dlp")
	_, runErr := dl.Run(ctx, viewURL)
	if runErr != nil {
		err := classifyYtdlpError(runErr)
		if started {
			s.deps.Progress.AttemptFinished(s.Name(), domain.OutcomeFailure, lastBytes)
		}
		os.Remove(destPath)
		return attempt.Finish(start, err), err
	}

	info, statErr := os.Stat(destPath)
	if statErr != nil {
		err := fmt.Errorf("%w: yt-dlp reported success but produced no file", domain.ErrEmptyResult)
		if started {
			s.deps.Progress.AttemptFinished(s.Name(), domain.OutcomeEmpty, 0)
		}
		return attempt.Finish(start, err), err
	}

	attempt.Outcome = domain.OutcomeSuccess
	attempt.BytesWritten = info.Size()
	if started {
		s.deps.Progress.AttemptFinished(s.Name(), domain.OutcomeSuccess, info.Size())
	}
	return attempt.Finish(start, nil), nil
}

// classifyYtdlpError maps yt-dlp failures onto the error taxonomy so
// the engine can decide whether to continue the chain.
func classifyYtdlpError(err error) error {
	msg := err.Error()

	if errors.Is(err, exec.ErrNotFound) || strings.Contains(msg, "executable file not found") {
		return fmt.Errorf("%w: yt-dlp binary not installed", domain.ErrUnsupportedFormat)
	}

	switch {
	case strings.Contains(msg, "Unsupported URL"),
		strings.Contains(msg, "No video formats found"),
		strings.Contains(msg, "Requested format is not available"):
		return fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, firstLine(msg))
	case strings.Contains(msg, "This video is private"),
		strings.Contains(msg, "You need access"),
		strings.Contains(msg, "Sign in"):
		return fmt.Errorf("%w: %s", domain.ErrPermissionDenied, firstLine(msg))
	}

	return fmt.Errorf("yt-dlp failed: %s", firstLine(msg))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
