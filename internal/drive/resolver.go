package drive

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/imdouglasoliveira/DownMeets/internal/domain"
)

// ViewBaseURL is the default host serving the Drive web UI.
const ViewBaseURL = "https://drive.google.com"

// DownloadBaseURL is the default host serving confirmed downloads for
// large or unscanned files.
const DownloadBaseURL = "https://drive.usercontent.google.com"

// idToken is the shape of a Drive file identifier.
var idToken = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// pathIDPattern matches /file/d/<id>/... and /d/<id>/... share forms.
var pathIDPattern = regexp.MustCompile(`/d/([A-Za-z0-9_-]+)`)

// ParseReference extracts the Drive file identifier from a share URL.
// Both /file/d/<id>/view and /open?id=<id> forms are accepted, as are
// direct uc?id=<id> links. No network request is ever made here; a URL
// with no recognizable identifier fails with ErrInvalidReference.
func ParseReference(rawURL string) (*domain.FileReference, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty URL", domain.ErrInvalidReference)
	}

	if m := pathIDPattern.FindStringSubmatch(trimmed); m != nil {
		return &domain.FileReference{ID: m[1], URL: trimmed}, nil
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidReference, trimmed)
	}
	if id := u.Query().Get("id"); id != "" && idToken.MatchString(id) {
		return &domain.FileReference{ID: id, URL: trimmed}, nil
	}

	return nil, fmt.Errorf("%w: no file identifier in %s", domain.ErrInvalidReference, trimmed)
}

// ViewURL returns the web view page URL for a file identifier.
func ViewURL(base, id string) string {
	if base == "" {
		base = ViewBaseURL
	}
	return base + "/file/d/" + id + "/view"
}

// UCDownloadURL returns the direct-download endpoint URL for a file
// identifier, optionally carrying a confirmation token.
func UCDownloadURL(base, id, confirmToken string) string {
	if base == "" {
		base = ViewBaseURL
	}
	u := base + "/uc?export=download&id=" + url.QueryEscape(id)
	if confirmToken != "" {
		u += "&confirm=" + url.QueryEscape(confirmToken)
	}
	return u
}
