package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// HistoryFileName is the bookkeeping file kept alongside the downloads.
const HistoryFileName = "metadata.json"

// Manager owns the download history file. It is safe for concurrent
// use, though the batch scheduler is sequential today.
type Manager struct {
	path string

	mu      sync.Mutex
	history *History
	dirty   bool
}

// NewManager creates a history manager for the given output directory
func NewManager(outputDir string) *Manager {
	return &Manager{
		path:    filepath.Join(outputDir, HistoryFileName),
		history: NewHistory(),
	}
}

// Load reads the history file. A missing file is an empty history, not
// an error; a corrupt file is replaced rather than crashing the run.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		m.history = NewHistory()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read history file: %w", err)
	}

	var h History
	if err := json.Unmarshal(data, &h); err != nil {
		m.history = NewHistory()
		m.dirty = true
		return nil
	}
	if h.Records == nil {
		h.Records = make(map[string]*Record)
	}
	m.history = &h
	return nil
}

// Save writes the history file if anything changed since the last save.
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.dirty {
		return nil
	}

	data, err := json.MarshalIndent(m.history, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write history file: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace history file: %w", err)
	}

	m.dirty = false
	return nil
}

// Get returns the record for a file identifier, or nil.
func (m *Manager) Get(fileID string) *Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.Records[fileID]
}

// Set stores a record for a file identifier.
func (m *Manager) Set(record *Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history.Records[record.FileID] = record
	m.dirty = true
}

// Len returns the number of records
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history.Records)
}
