package app

import (
	"context"
	"fmt"
	"time"

	"github.com/imdouglasoliveira/DownMeets/internal/batch"
	"github.com/imdouglasoliveira/DownMeets/internal/config"
	"github.com/imdouglasoliveira/DownMeets/internal/domain"
	"github.com/imdouglasoliveira/DownMeets/internal/drive"
	"github.com/imdouglasoliveira/DownMeets/internal/engine"
	"github.com/imdouglasoliveira/DownMeets/internal/output"
	"github.com/imdouglasoliveira/DownMeets/internal/state"
	"github.com/imdouglasoliveira/DownMeets/internal/strategies"
	"github.com/imdouglasoliveira/DownMeets/internal/utils"
)

// Orchestrator wires configuration, the strategy chain, the engine,
// and the bookkeeping together. It is the single entry point the CLI
// talks to.
type Orchestrator struct {
	cfg     *config.Config
	logger  *utils.Logger
	deps    *strategies.Dependencies
	engine  *engine.Engine
	writer  *output.Writer
	history *state.Manager
	force   bool
}

// OrchestratorOptions contains options for creating an Orchestrator
type OrchestratorOptions struct {
	Config   *config.Config
	Logger   *utils.Logger
	Progress domain.ProgressSink
	Force    bool
}

// NewOrchestrator creates an orchestrator with all dependencies wired
func NewOrchestrator(opts OrchestratorOptions) (*Orchestrator, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	logger := opts.Logger
	if logger == nil {
		logger = utils.NewDefaultLogger()
	}

	deps, err := strategies.NewDependencies(strategies.DependencyOptions{
		Timeout:      cfg.Download.Timeout,
		MaxRetries:   cfg.Download.MaxRetries,
		UserAgent:    cfg.Stealth.UserAgent,
		CacheEnabled: cfg.Cache.Enabled,
		CacheDir:     cfg.Cache.Directory,
		CacheTTL:     cfg.Cache.TTL,
		Logger:       logger,
		Progress:     opts.Progress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create strategy dependencies: %w", err)
	}

	eng := engine.New(engine.Options{
		Strategies: strategies.Chain(deps),
		Validator:  engine.NewValidator(cfg.Download.MinValidSize),
		Logger:     logger,
	})

	writer := output.New(cfg.Output.Directory, cfg.Output.Overwrite || opts.Force)
	history := state.NewManager(writer.BaseDir())
	if err := history.Load(); err != nil {
		logger.Warn().Err(err).Msg("failed to load download history")
	}

	return &Orchestrator{
		cfg:     cfg,
		logger:  logger,
		deps:    deps,
		engine:  eng,
		writer:  writer,
		history: history,
		force:   opts.Force,
	}, nil
}

// Close releases orchestrator resources
func (o *Orchestrator) Close() error {
	return o.deps.Close()
}

// DownloadOne resolves a single share URL and runs the strategy chain
// against it.
func (o *Orchestrator) DownloadOne(ctx context.Context, rawURL string) (*domain.DownloadResult, error) {
	ref, err := drive.ParseReference(rawURL)
	if err != nil {
		return nil, err
	}

	if err := o.writer.Prepare(); err != nil {
		return nil, err
	}

	if !o.force && o.writer.ShouldSkip(ref.ID) {
		o.logger.Info().Str("file_id", ref.ID).Msg("already downloaded, skipping")
		return &domain.DownloadResult{Reference: ref, Path: o.writer.PathFor(ref.ID)}, nil
	}

	result := o.engine.Download(ctx, ref, o.writer.PathFor(ref.ID))
	if result.Succeeded() {
		o.recordSuccess(ref, result)
	}
	return result, nil
}

// DownloadBatch processes every URL in the given file sequentially,
// spacing downloads by the configured delay.
func (o *Orchestrator) DownloadBatch(ctx context.Context, urlFile string) (*batch.Summary, error) {
	urls, err := batch.ReadURLFile(urlFile)
	if err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("%w: no URLs in %s", domain.ErrEmptyResult, urlFile)
	}

	if err := o.writer.Prepare(); err != nil {
		return nil, err
	}

	scheduler := batch.NewScheduler(batch.SchedulerOptions{
		Downloader: o.engine,
		Writer:     o.writer,
		History:    o.history,
		Delay:      o.cfg.Download.Delay,
		Force:      o.force,
		Logger:     o.logger,
	})

	return scheduler.Run(ctx, urls)
}

func (o *Orchestrator) recordSuccess(ref *domain.FileReference, result *domain.DownloadResult) {
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
	o.history.Set(record)
	if err := o.history.Save(); err != nil {
		o.logger.Warn().Err(err).Msg("failed to save download history")
	}
}
