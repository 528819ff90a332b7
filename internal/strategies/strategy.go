package strategies

import (
	"fmt"
	"time"

	"github.com/imdouglasoliveira/DownMeets/internal/cache"
	"github.com/imdouglasoliveira/DownMeets/internal/domain"
	"github.com/imdouglasoliveira/DownMeets/internal/drive"
	"github.com/imdouglasoliveira/DownMeets/internal/fetcher"
	"github.com/imdouglasoliveira/DownMeets/internal/utils"
)

// Strategy names in chain order.
const (
	NameYtdlp  = "yt-dlp"
	NameScrape = "page-scrape"
	NameAPI    = "api-download"
)

// Dependencies contains shared infrastructure injected into strategies.
// One set is built per run and shared across the whole chain so cookies
// accumulated by an earlier strategy benefit the later ones.
type Dependencies struct {
	Fetcher  domain.Fetcher
	Cache    domain.Cache // nil when caching is disabled
	Detector drive.ConfirmDetector
	Logger   *utils.Logger
	Progress domain.ProgressSink
	CacheTTL time.Duration

	// ViewBase and DownloadBase override the provider hosts. Empty means
	// the real Drive endpoints.
	ViewBase     string
	DownloadBase string
}

// DependencyOptions contains options for creating Dependencies
type DependencyOptions struct {
	Timeout      time.Duration
	MaxRetries   int
	UserAgent    string
	ProxyURL     string
	CacheEnabled bool
	CacheDir     string
	CacheTTL     time.Duration
	Logger       *utils.Logger
	Progress     domain.ProgressSink
}

// NewDependencies creates the shared strategy dependencies
func NewDependencies(opts DependencyOptions) (*Dependencies, error) {
	logger := opts.Logger
	if logger == nil {
		logger = utils.NewDefaultLogger()
	}

	progress := opts.Progress
	if progress == nil {
		progress = utils.NopSink{}
	}

	client, err := fetcher.NewClient(fetcher.ClientOptions{
		Timeout:    opts.Timeout,
		MaxRetries: opts.MaxRetries,
		UserAgent:  opts.UserAgent,
		ProxyURL:   opts.ProxyURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create fetcher: %w", err)
	}

	var mediaCache domain.Cache
	if opts.CacheEnabled {
		c, err := cache.New(cache.Options{
			Directory: opts.CacheDir,
		})
		if err != nil {
			// A broken cache never blocks a download.
			logger.Warn().Err(err).Msg("cache unavailable, continuing without it")
		} else {
			mediaCache = c
		}
	}

	cacheTTL := opts.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Minute
	}

	return &Dependencies{
		Fetcher:  client,
		Cache:    mediaCache,
		Detector: drive.NewDefaultDetector(),
		Logger:   logger,
		Progress: progress,
		CacheTTL: cacheTTL,
	}, nil
}

// Close releases all dependency resources
func (d *Dependencies) Close() error {
	var firstErr error
	if d.Fetcher != nil {
		if err := d.Fetcher.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if d.Cache != nil {
		if err := d.Cache.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Chain returns the strategies in priority order. The specialized
// extractor goes first because it handles format selection itself, then
// the player-page scrape, then the direct download endpoint.
func Chain(deps *Dependencies) []domain.Strategy {
	return []domain.Strategy{
		NewYtdlpStrategy(deps),
		NewScrapeStrategy(deps),
		NewAPIStrategy(deps),
	}
}
