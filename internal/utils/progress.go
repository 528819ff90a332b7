package utils

import (
	"github.com/schollz/progressbar/v3"

	"github.com/imdouglasoliveira/DownMeets/internal/domain"
)

// BarSink renders transfer progress with a byte-denominated progress
// bar. One bar per attempt; finished bars are cleared so the next
// strategy starts fresh.
type BarSink struct {
	bar *progressbar.ProgressBar
}

// NewBarSink creates a progress sink backed by schollz/progressbar.
func NewBarSink() *BarSink {
	return &BarSink{}
}

func (s *BarSink) AttemptStarted(strategy, fileID string, totalBytes int64) {
	desc := "Downloading [" + strategy + "] " + fileID
	if totalBytes < 0 {
		s.bar = progressbar.NewOptions64(-1,
			progressbar.OptionSetDescription(desc),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetRenderBlankState(true),
		)
		return
	}
	s.bar = progressbar.NewOptions64(totalBytes,
		progressbar.OptionSetDescription(desc),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowCount(),
	)
}

func (s *BarSink) Transferred(n int64) {
	if s.bar != nil {
		_ = s.bar.Add64(n)
	}
}

func (s *BarSink) AttemptFinished(strategy string, outcome domain.Outcome, bytes int64) {
	if s.bar != nil {
		_ = s.bar.Clear()
		s.bar = nil
	}
}

// NopSink discards all progress events. Used in tests and quiet mode.
type NopSink struct{}

func (NopSink) AttemptStarted(strategy, fileID string, totalBytes int64)          {}
func (NopSink) Transferred(n int64)                                              {}
func (NopSink) AttemptFinished(strategy string, outcome domain.Outcome, b int64) {}
