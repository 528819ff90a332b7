package state

import "time"

// Record is the bookkeeping entry for one completed download.
type Record struct {
	URL          string    `json:"url"`
	FileID       string    `json:"file_id"`
	Path         string    `json:"path"`
	Strategy     string    `json:"strategy"`
	BytesWritten int64     `json:"bytes_written"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

// History is the on-disk shape of the download history file: records
// keyed by file identifier.
type History struct {
	Records map[string]*Record `json:"records"`
}

// NewHistory creates an empty history
func NewHistory() *History {
	return &History{Records: make(map[string]*Record)}
}
