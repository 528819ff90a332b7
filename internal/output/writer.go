package output

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/imdouglasoliveira/DownMeets/internal/utils"
)

// DefaultExtension is the container Drive serves Meet recordings in.
const DefaultExtension = ".mp4"

// Writer maps file identifiers to deterministic paths in the output
// directory. Deterministic names make re-runs idempotent: the same
// recording always lands in the same place.
type Writer struct {
	baseDir   string
	overwrite bool
}

// New creates a writer rooted at baseDir
func New(baseDir string, overwrite bool) *Writer {
	return &Writer{
		baseDir:   utils.ExpandPath(baseDir),
		overwrite: overwrite,
	}
}

// BaseDir returns the output directory
func (w *Writer) BaseDir() string {
	return w.baseDir
}

// Prepare creates the output directory
func (w *Writer) Prepare() error {
	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

// PathFor returns the destination path for a file identifier. The
// identifier alphabet is already filesystem-safe, so the ID goes into
// the name untouched.
func (w *Writer) PathFor(fileID string) string {
	return filepath.Join(w.baseDir, "meet_"+fileID+DefaultExtension)
}

// NamedPath returns a path for a user-chosen name, sanitized and given
// the default extension when it has none.
func (w *Writer) NamedPath(name string) string {
	clean := utils.SanitizeFilename(name)
	if filepath.Ext(clean) == "" {
		clean += DefaultExtension
	}
	return filepath.Join(w.baseDir, clean)
}

// ShouldSkip reports whether a download for fileID can be skipped
// because a non-empty file already exists and overwriting is off.
func (w *Writer) ShouldSkip(fileID string) bool {
	if w.overwrite {
		return false
	}
	info, err := os.Stat(w.PathFor(fileID))
	return err == nil && info.Size() > 0
}
