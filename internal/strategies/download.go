package strategies

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/imdouglasoliveira/DownMeets/internal/domain"
	"github.com/imdouglasoliveira/DownMeets/internal/drive"
	"github.com/imdouglasoliveira/DownMeets/internal/utils"
)

// maxHTMLBody bounds how much of a suspected interstitial page is
// buffered for inspection.
const maxHTMLBody = 2 << 20

// countingWriter forwards writes and reports byte counts to a sink.
type countingWriter struct {
	w        io.Writer
	n        int64
	progress domain.ProgressSink
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	if cw.progress != nil {
		cw.progress.Transferred(int64(n))
	}
	return n, err
}

// saveStream writes a media stream to destPath, reporting progress as
// bytes land on disk. A write or read failure removes the partial file.
func saveStream(stream *domain.StreamResponse, destPath string, progress domain.ProgressSink) (int64, error) {
	defer stream.Body.Close()

	if err := utils.EnsureDir(destPath); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}

	cw := &countingWriter{w: f, progress: progress}
	_, copyErr := io.Copy(cw, stream.Body)
	closeErr := f.Close()

	if copyErr != nil || closeErr != nil {
		os.Remove(destPath)
		if copyErr != nil {
			return cw.n, fmt.Errorf("failed to write media stream: %w", copyErr)
		}
		return cw.n, fmt.Errorf("failed to close output file: %w", closeErr)
	}

	return cw.n, nil
}

// isHTMLResponse reports whether a response announces an HTML body
// instead of media.
func isHTMLResponse(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "text/html")
}

// readBounded buffers at most maxHTMLBody bytes of a body and closes it.
func readBounded(body io.ReadCloser) ([]byte, error) {
	defer body.Close()
	data, err := io.ReadAll(io.LimitReader(body, maxHTMLBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, nil
}

// confirmDownloadURL builds the acknowledged download URL from a
// detected confirmation: the interstitial form's action plus its hidden
// fields when present, otherwise the uc endpoint with the confirm token.
func confirmDownloadURL(viewBase, downloadBase, fileID string, conf *drive.Confirmation) (string, error) {
	if conf.Action == "" {
		return drive.UCDownloadURL(viewBase, fileID, conf.Token), nil
	}

	action := conf.Action
	if strings.HasPrefix(action, "/") {
		base := downloadBase
		if base == "" {
			base = drive.DownloadBaseURL
		}
		action = base + action
	}

	u, err := url.Parse(action)
	if err != nil {
		return "", fmt.Errorf("%w: bad confirmation form action %q", domain.ErrConfirmationRequired, conf.Action)
	}

	q := u.Query()
	for name, value := range conf.Fields {
		q.Set(name, value)
	}
	if q.Get("id") == "" {
		q.Set("id", fileID)
	}
	if q.Get("export") == "" {
		q.Set("export", "download")
	}
	if q.Get("confirm") == "" && conf.Token != "" {
		q.Set("confirm", conf.Token)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}
