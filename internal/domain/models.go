package domain

import "time"

// FileReference identifies one Drive-hosted file. It is constructed once
// per input URL by the resolver and is immutable afterwards.
type FileReference struct {
	// ID is the opaque Drive file identifier from the share URL.
	ID string
	// URL is the original share URL as supplied by the user.
	URL string
}

// Outcome is the result of a single strategy attempt.
type Outcome string

const (
	// OutcomeSuccess means the strategy produced a validated media file.
	OutcomeSuccess Outcome = "success"
	// OutcomeFailure means the strategy returned or raised an error.
	OutcomeFailure Outcome = "failure"
	// OutcomeEmpty means the strategy completed but the file was missing,
	// zero-length, or an HTML page saved under a media extension.
	OutcomeEmpty Outcome = "empty"
)

// DownloadAttempt records one execution of one strategy against one
// FileReference.
type DownloadAttempt struct {
	Strategy     string
	Outcome      Outcome
	BytesWritten int64
	Elapsed      time.Duration
	Err          error
}

// NewAttempt creates an attempt for the given strategy with the failure
// outcome preset; callers flip it on success.
func NewAttempt(strategy string) *DownloadAttempt {
	return &DownloadAttempt{
		Strategy: strategy,
		Outcome:  OutcomeFailure,
	}
}

// Finish stamps the elapsed time and records the terminal error, if any.
func (a *DownloadAttempt) Finish(start time.Time, err error) *DownloadAttempt {
	a.Elapsed = time.Since(start)
	a.Err = err
	return a
}

// DownloadResult is the outcome of a whole engine run for one
// FileReference: either a path to a validated non-empty file, or an
// exhausted-chain failure carrying every recorded attempt.
type DownloadResult struct {
	Reference *FileReference
	Path      string
	Attempts  []*DownloadAttempt
	Err       error
}

// Succeeded reports whether any strategy produced a validated file.
func (r *DownloadResult) Succeeded() bool {
	return r.Err == nil && r.Path != ""
}

// Winner returns the attempt that produced the validated file, or nil.
func (r *DownloadResult) Winner() *DownloadAttempt {
	for _, a := range r.Attempts {
		if a.Outcome == OutcomeSuccess {
			return a
		}
	}
	return nil
}
