package strategies

import (
	"context"
	"fmt"
	"time"

	"github.com/imdouglasoliveira/DownMeets/internal/domain"
	"github.com/imdouglasoliveira/DownMeets/internal/drive"
	"github.com/imdouglasoliveira/DownMeets/internal/fetcher"
)

// APIStrategy drives the uc?export=download endpoint. For small files
// it answers with media directly; for anything large or unscannable it
// answers with a confirmation interstitial that must be acknowledged
// before the media is released. Last in the chain because view-only
// files usually have this endpoint disabled outright.
type APIStrategy struct {
	deps *Dependencies
}

// NewAPIStrategy creates the direct download endpoint strategy
func NewAPIStrategy(deps *Dependencies) *APIStrategy {
	return &APIStrategy{deps: deps}
}

// Name returns the strategy name
func (s *APIStrategy) Name() string {
	return NameAPI
}

// Attempt implements domain.Strategy.
func (s *APIStrategy) Attempt(ctx context.Context, ref *domain.FileReference, destPath string) (*domain.DownloadAttempt, error) {
	start := time.Now()
	attempt := domain.NewAttempt(s.Name())
	logger := s.deps.Logger.WithStrategy(s.Name()).WithFileID(ref.ID)

	ucURL := drive.UCDownloadURL(s.deps.ViewBase, ref.ID, "")
	n, err := s.fetch(ctx, ref, ucURL, destPath, true)
	if err != nil {
		return attempt.Finish(start, err), err
	}

	logger.Debug().Int64("bytes", n).Msg("download endpoint delivered media")
	attempt.Outcome = domain.OutcomeSuccess
	attempt.BytesWritten = n
	return attempt.Finish(start, nil), nil
}

// fetch requests downloadURL and saves the media stream. When the
// endpoint answers with a confirmation page and allowConfirm is set,
// the acknowledgment is performed and the request retried once.
func (s *APIStrategy) fetch(ctx context.Context, ref *domain.FileReference, downloadURL, destPath string, allowConfirm bool) (int64, error) {
	stream, err := s.deps.Fetcher.Stream(ctx, downloadURL, fetcher.DriveHeaders(""))
	if err != nil {
		return 0, err
	}

	if !isHTMLResponse(stream.ContentType) {
		s.deps.Progress.AttemptStarted(s.Name(), ref.ID, stream.ContentLength)
		n, err := saveStream(stream, destPath, s.deps.Progress)
		if err != nil {
			s.deps.Progress.AttemptFinished(s.Name(), domain.OutcomeFailure, n)
			return n, err
		}
		s.deps.Progress.AttemptFinished(s.Name(), domain.OutcomeSuccess, n)
		return n, nil
	}

	// The endpoint answered with a page instead of media.
	body, err := readBounded(stream.Body)
	if err != nil {
		return 0, err
	}

	if drive.IsPermissionPage(body) {
		return 0, fmt.Errorf("%w: download endpoint requires access", domain.ErrPermissionDenied)
	}

	conf, ok := s.deps.Detector.Detect(stream.URL, body, s.deps.Fetcher.GetCookies(stream.URL))
	if !ok {
		return 0, fmt.Errorf("%w: download endpoint returned a page with no media", domain.ErrEmptyResult)
	}
	if !allowConfirm {
		return 0, fmt.Errorf("%w: confirmation loop not resolved by token", domain.ErrConfirmationRequired)
	}

	confirmURL, err := confirmDownloadURL(s.deps.ViewBase, s.deps.DownloadBase, ref.ID, conf)
	if err != nil {
		return 0, err
	}
	return s.fetch(ctx, ref, confirmURL, destPath, false)
}
