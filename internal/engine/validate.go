package engine

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/imdouglasoliveira/DownMeets/internal/domain"
)

// sniffLen is how many leading bytes content sniffing examines,
// matching http.DetectContentType.
const sniffLen = 512

// Validator decides whether a file a strategy produced is an actual
// recording. Strategies can "succeed" by saving an error page under a
// media extension; the validator is what keeps those out of the output
// directory.
type Validator struct {
	minSize int64
}

// NewValidator creates a validator. Files smaller than minSize bytes
// are rejected; no real recording is that small.
func NewValidator(minSize int64) *Validator {
	if minSize <= 0 {
		minSize = 4 * 1024
	}
	return &Validator{minSize: minSize}
}

// Validate returns nil when path holds plausible media. Every rejection
// wraps ErrEmptyResult so the engine treats the attempt as empty and
// moves on.
func (v *Validator) Validate(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: no file produced", domain.ErrEmptyResult)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: zero-byte file", domain.ErrEmptyResult)
	}
	if info.Size() < v.minSize {
		return fmt.Errorf("%w: file is %d bytes, below the %d byte minimum", domain.ErrEmptyResult, info.Size(), v.minSize)
	}

	head, err := readHead(path, sniffLen)
	if err != nil {
		return fmt.Errorf("%w: unreadable file", domain.ErrEmptyResult)
	}
	if isHTMLContent(head) {
		return fmt.Errorf("%w: saved content is a page, not media", domain.ErrEmptyResult)
	}

	return nil
}

func readHead(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := f.Read(buf)
	if err != nil && read == 0 {
		return nil, err
	}
	return buf[:read], nil
}

// isHTMLContent sniffs the leading bytes for HTML. Both the stdlib
// detector and an explicit tag check run; Drive error pages sometimes
// start with enough binary-looking noise to fool the sniffer alone.
func isHTMLContent(head []byte) bool {
	contentType := http.DetectContentType(head)
	if strings.Contains(contentType, "text/html") {
		return true
	}

	trimmed := bytes.TrimLeft(head, " \t\r\n")
	lower := bytes.ToLower(trimmed)
	return bytes.HasPrefix(lower, []byte("<!doctype html")) || bytes.HasPrefix(lower, []byte("<html"))
}
