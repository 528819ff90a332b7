package batch

import (
	"context"
	"time"

	"github.com/imdouglasoliveira/DownMeets/internal/domain"
	"github.com/imdouglasoliveira/DownMeets/internal/drive"
	"github.com/imdouglasoliveira/DownMeets/internal/output"
	"github.com/imdouglasoliveira/DownMeets/internal/state"
	"github.com/imdouglasoliveira/DownMeets/internal/utils"
)

// Downloader runs the strategy chain for one reference.
type Downloader interface {
	Download(ctx context.Context, ref *domain.FileReference, destPath string) *domain.DownloadResult
}

// Scheduler walks a list of share URLs sequentially, spacing downloads
// with a fixed delay. Sequential on purpose: hammering Drive with
// parallel view-only extractions is the quickest way to get the whole
// session rate-limited.
type Scheduler struct {
	downloader Downloader
	writer     *output.Writer
	history    *state.Manager
	delay      time.Duration
	force      bool
	logger     *utils.Logger
}

// SchedulerOptions contains options for creating a Scheduler
type SchedulerOptions struct {
	Downloader Downloader
	Writer     *output.Writer
	History    *state.Manager
	Delay      time.Duration
	Force      bool
	Logger     *utils.Logger
}

// NewScheduler creates a batch scheduler
func NewScheduler(opts SchedulerOptions) *Scheduler {
	logger := opts.Logger
	if logger == nil {
		logger = utils.NewDefaultLogger()
	}
	return &Scheduler{
		downloader: opts.Downloader,
		writer:     opts.Writer,
		history:    opts.History,
		delay:      opts.Delay,
		force:      opts.Force,
		logger:     logger.WithComponent("batch"),
	}
}

// Summary aggregates the outcome of one batch run.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Results   []*domain.DownloadResult
}

// Run processes every URL in order. A failed URL never aborts the
// batch; the summary carries the per-file results for reporting. Run
// returns early only when the context is cancelled.
func (s *Scheduler) Run(ctx context.Context, urls []string) (*Summary, error) {
	summary := &Summary{Total: len(urls)}
	downloaded := false

	for i, rawURL := range urls {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		logger := s.logger.With().Int("index", i+1).Int("total", len(urls)).Logger()

		ref, err := drive.ParseReference(rawURL)
		if err != nil {
			logger.Error().Str("url", rawURL).Err(err).Msg("skipping unparseable URL")
			summary.Failed++
			summary.Results = append(summary.Results, &domain.DownloadResult{
				Reference: &domain.FileReference{URL: rawURL},
				Err:       err,
			})
			continue
		}

		if s.shouldSkip(ref.ID) {
			logger.Info().Str("file_id", ref.ID).Msg("already downloaded, skipping")
			summary.Skipped++
			continue
		}

		// Space out requests, but never before the first download.
		if downloaded && s.delay > 0 {
			logger.Info().Dur("delay", s.delay).Msg("waiting before next download")
			if err := sleepCtx(ctx, s.delay); err != nil {
				return summary, err
			}
		}
		downloaded = true

		destPath := s.writer.PathFor(ref.ID)
		result := s.downloader.Download(ctx, ref, destPath)
		summary.Results = append(summary.Results, result)

		if result.Succeeded() {
			summary.Succeeded++
			s.record(ref, result)
		} else {
			summary.Failed++
			s.logFailure(ref, result)
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
		}
	}

	return summary, nil
}

func (s *Scheduler) shouldSkip(fileID string) bool {
	if s.force {
		return false
	}
	return s.writer.ShouldSkip(fileID)
}

func (s *Scheduler) record(ref *domain.FileReference, result *domain.DownloadResult) {
	if s.history == nil {
		return
	}

	record := &state.Record{
		URL:          ref.URL,
		FileID:       ref.ID,
		Path:         result.Path,
		DownloadedAt: time.Now(),
	}
	if winner := result.Winner(); winner != nil {
		record.Strategy = winner.Strategy
		record.BytesWritten = winner.BytesWritten
	}
	s.history.Set(record)

	if err := s.history.Save(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to save download history")
	}
}

// logFailure reports every attempt with its classified reason so a
// batch log is enough to see why a file could not be fetched.
func (s *Scheduler) logFailure(ref *domain.FileReference, result *domain.DownloadResult) {
	logger := s.logger.WithFileID(ref.ID)
	for _, attempt := range result.Attempts {
		if attempt.Err == nil {
			continue
		}
		logger.Warn().
			Str("strategy", attempt.Strategy).
			Str("reason", domain.Classify(attempt.Err).String()).
			Err(attempt.Err).
			Msg("attempt failed")
	}
	logger.Error().Err(result.Err).Msg("download failed")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
