package engine

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/imdouglasoliveira/DownMeets/internal/domain"
	"github.com/imdouglasoliveira/DownMeets/internal/utils"
)

// Engine runs the strategy chain for one file. Strategies execute in
// their fixed priority order; the first validated result wins and the
// remaining strategies never run. A permission failure short-circuits
// the chain, everything else advances it.
type Engine struct {
	strategies []domain.Strategy
	validator  *Validator
	logger     *utils.Logger
}

// Options contains options for creating an Engine
type Options struct {
	Strategies []domain.Strategy
	Validator  *Validator
	Logger     *utils.Logger
}

// New creates a download engine
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = utils.NewDefaultLogger()
	}
	validator := opts.Validator
	if validator == nil {
		validator = NewValidator(0)
	}
	return &Engine{
		strategies: opts.Strategies,
		validator:  validator,
		logger:     logger.WithComponent("engine"),
	}
}

// Download runs the chain against one reference, writing the recording
// to destPath. The result always carries every attempt made, in order,
// whether or not any succeeded.
func (e *Engine) Download(ctx context.Context, ref *domain.FileReference, destPath string) *domain.DownloadResult {
	result := &domain.DownloadResult{Reference: ref}
	logger := e.logger.WithFileID(ref.ID)

	for _, strategy := range e.strategies {
		if err := ctx.Err(); err != nil {
			result.Err = err
			return result
		}

		logger.Info().Str("strategy", strategy.Name()).Msg("attempting download")
		attempt := e.runStrategy(ctx, strategy, ref, destPath)
		result.Attempts = append(result.Attempts, attempt)

		if attempt.Err != nil {
			class := domain.Classify(attempt.Err)
			logger.Warn().
				Str("strategy", strategy.Name()).
				Str("class", class.String()).
				Dur("elapsed", attempt.Elapsed).
				Err(attempt.Err).
				Msg("strategy failed")

			if class == domain.ClassPermissionDenied {
				// Every strategy hits the same ACL; trying the rest only
				// burns requests against a locked file.
				result.Err = attempt.Err
				return result
			}
			continue
		}

		if err := e.validator.Validate(destPath); err != nil {
			os.Remove(destPath)
			attempt.Outcome = domain.OutcomeEmpty
			attempt.Err = err
			logger.Warn().
				Str("strategy", strategy.Name()).
				Err(err).
				Msg("produced file failed validation")
			continue
		}

		logger.Info().
			Str("strategy", strategy.Name()).
			Int64("bytes", attempt.BytesWritten).
			Dur("elapsed", attempt.Elapsed).
			Msg("download complete")
		result.Path = destPath
		return result
	}

	result.Err = fmt.Errorf("%w: %d strategies tried", domain.ErrChainExhausted, len(result.Attempts))
	return result
}

// runStrategy executes one strategy, converting a panic into a normal
// failed attempt so one misbehaving extractor cannot take down a batch.
func (e *Engine) runStrategy(ctx context.Context, strategy domain.Strategy, ref *domain.FileReference, destPath string) (attempt *domain.DownloadAttempt) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("strategy %s panicked: %v", strategy.Name(), r)
			attempt = domain.NewAttempt(strategy.Name()).Finish(start, err)
		}
	}()

	attempt, err := strategy.Attempt(ctx, ref, destPath)
	if attempt == nil {
		attempt = domain.NewAttempt(strategy.Name()).Finish(start, err)
	}
	return attempt
}
