package strategies

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/imdouglasoliveira/DownMeets/internal/cache"
	"github.com/imdouglasoliveira/DownMeets/internal/domain"
	"github.com/imdouglasoliveira/DownMeets/internal/drive"
	"github.com/imdouglasoliveira/DownMeets/internal/fetcher"
)

// mediaURLPattern matches playback URLs embedded in the player page
// markup and its inline script blobs.
var mediaURLPattern = regexp.MustCompile(`https://[A-Za-z0-9.-]*googleusercontent\.com/[^"'\\\s<>]+`)

// jsEscapes undoes the JavaScript string escaping Drive applies to URLs
// embedded in inline scripts.
var jsEscapes = strings.NewReplacer(
	"\\u003d", "=",
	"\\u0026", "&",
	"\\/", "/",
	"&amp;", "&",
)

// ScrapeStrategy fetches the file's player page with a full browser
// identity and pulls the signed playback URLs out of the markup. It is
// the workhorse for view-only recordings, where the download endpoints
// are disabled but the player still has to stream the media.
type ScrapeStrategy struct {
	deps *Dependencies
}

// NewScrapeStrategy creates the player-page scrape strategy
func NewScrapeStrategy(deps *Dependencies) *ScrapeStrategy {
	return &ScrapeStrategy{deps: deps}
}

// Name returns the strategy name
func (s *ScrapeStrategy) Name() string {
	return NameScrape
}

// Attempt implements domain.Strategy.
func (s *ScrapeStrategy) Attempt(ctx context.Context, ref *domain.FileReference, destPath string) (*domain.DownloadAttempt, error) {
	start := time.Now()
	attempt := domain.NewAttempt(s.Name())
	logger := s.deps.Logger.WithStrategy(s.Name()).WithFileID(ref.ID)

	// A previously resolved playback URL may still be live.
	if cached := s.cachedMediaURL(ctx, ref.ID); cached != "" {
		logger.Debug().Msg("trying cached playback URL")
		if n, err := s.downloadMedia(ctx, ref, cached, destPath); err == nil {
			attempt.Outcome = domain.OutcomeSuccess
			attempt.BytesWritten = n
			return attempt.Finish(start, nil), nil
		}
		// Signed URLs expire; a dead one is dropped, not fatal.
		s.dropCachedMediaURL(ctx, ref.ID)
	}

	viewURL := drive.ViewURL(s.deps.ViewBase, ref.ID)
	resp, err := s.deps.Fetcher.GetWithHeaders(ctx, viewURL, fetcher.DriveHeaders(""))
	if err != nil {
		err = fmt.Errorf("failed to fetch player page: %w", err)
		return attempt.Finish(start, err), err
	}

	if drive.IsPermissionPage(resp.Body) {
		err = fmt.Errorf("%w: player page requires access", domain.ErrPermissionDenied)
		return attempt.Finish(start, err), err
	}

	// Large unscannable files answer the first request with a virus-scan
	// interstitial instead of the player. Acknowledge it once.
	if conf, ok := s.deps.Detector.Detect(resp.URL, resp.Body, s.deps.Fetcher.GetCookies(resp.URL)); ok {
		confirmURL, cerr := confirmDownloadURL(s.deps.ViewBase, s.deps.DownloadBase, ref.ID, conf)
		if cerr != nil {
			return attempt.Finish(start, cerr), cerr
		}
		logger.Debug().Msg("acknowledging confirmation interstitial")
		n, dlErr := s.downloadMedia(ctx, ref, confirmURL, destPath)
		if dlErr != nil {
			dlErr = fmt.Errorf("confirmed download failed: %w", dlErr)
			return attempt.Finish(start, dlErr), dlErr
		}
		attempt.Outcome = domain.OutcomeSuccess
		attempt.BytesWritten = n
		return attempt.Finish(start, nil), nil
	}

	candidates := extractMediaURLs(resp.Body)
	if len(candidates) == 0 {
		err = fmt.Errorf("%w: no playback URLs in player page", domain.ErrEmptyResult)
		return attempt.Finish(start, err), err
	}
	logger.Debug().Int("candidates", len(candidates)).Msg("extracted playback URLs")

	var lastErr error
	for _, mediaURL := range candidates {
		n, dlErr := s.downloadMedia(ctx, ref, mediaURL, destPath)
		if dlErr != nil {
			lastErr = dlErr
			continue
		}

		s.cacheMediaURL(ctx, ref.ID, mediaURL)
		attempt.Outcome = domain.OutcomeSuccess
		attempt.BytesWritten = n
		return attempt.Finish(start, nil), nil
	}

	err = fmt.Errorf("all playback URLs failed: %w", lastErr)
	return attempt.Finish(start, err), err
}

// downloadMedia streams one playback URL to destPath. An HTML response
// means the URL resolved to a page, not media; that is a failure here
// so the next candidate gets a turn.
func (s *ScrapeStrategy) downloadMedia(ctx context.Context, ref *domain.FileReference, mediaURL, destPath string) (int64, error) {
	stream, err := s.deps.Fetcher.Stream(ctx, mediaURL, fetcher.DriveHeaders(""))
	if err != nil {
		return 0, err
	}

	if isHTMLResponse(stream.ContentType) {
		stream.Body.Close()
		return 0, fmt.Errorf("%w: playback URL returned a page", domain.ErrEmptyResult)
	}

	s.deps.Progress.AttemptStarted(s.Name(), ref.ID, stream.ContentLength)
	n, err := saveStream(stream, destPath, s.deps.Progress)
	if err != nil {
		s.deps.Progress.AttemptFinished(s.Name(), domain.OutcomeFailure, n)
		return n, err
	}
	s.deps.Progress.AttemptFinished(s.Name(), domain.OutcomeSuccess, n)
	return n, nil
}

func (s *ScrapeStrategy) cachedMediaURL(ctx context.Context, fileID string) string {
	if s.deps.Cache == nil {
		return ""
	}
	value, err := s.deps.Cache.Get(ctx, cache.MediaURLKey(fileID))
	if err != nil {
		return ""
	}
	return string(value)
}

func (s *ScrapeStrategy) cacheMediaURL(ctx context.Context, fileID, mediaURL string) {
	if s.deps.Cache == nil {
		return
	}
	_ = s.deps.Cache.Set(ctx, cache.MediaURLKey(fileID), []byte(mediaURL), s.deps.CacheTTL)
}

func (s *ScrapeStrategy) dropCachedMediaURL(ctx context.Context, fileID string) {
	if s.deps.Cache == nil {
		return
	}
	_ = s.deps.Cache.Delete(ctx, cache.MediaURLKey(fileID))
}

// extractMediaURLs pulls candidate playback URLs from the player page,
// deduplicated in document order. videoplayback URLs come first; they
// carry the full recording while /media variants are sometimes
// range-limited.
func extractMediaURLs(body []byte) []string {
	unescaped := jsEscapes.Replace(string(body))
	matches := mediaURLPattern.FindAllString(unescaped, -1)

	seen := make(map[string]bool)
	var playback, media []string
	for _, m := range matches {
		if seen[m] {
			continue
		}
		seen[m] = true
		switch {
		case strings.Contains(m, "videoplayback"):
			playback = append(playback, m)
		case strings.Contains(m, "/media"):
			media = append(media, m)
		}
	}
	return append(playback, media...)
}
