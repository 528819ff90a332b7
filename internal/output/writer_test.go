package output

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathForIsDeterministic(t *testing.T) {
	w := New("/data/meets", false)

	assert.Equal(t, filepath.Join("/data/meets", "meet_ABC123.mp4"), w.PathFor("ABC123"))
	assert.Equal(t, w.PathFor("ABC123"), w.PathFor("ABC123"))
	assert.Equal(t, filepath.Join("/data/meets", "meet_a_b-c.mp4"), w.PathFor("a_b-c"))
}

func TestNamedPath(t *testing.T) {
	w := New("/data/meets", false)

	assert.Equal(t, filepath.Join("/data/meets", "standup-recording.mp4"), w.NamedPath("standup recording"))
	assert.Equal(t, filepath.Join("/data/meets", "kept.mkv"), w.NamedPath("kept.mkv"))
}

func TestShouldSkip(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, false)
	require.NoError(t, w.Prepare())

	assert.False(t, w.ShouldSkip("ABC123"), "nothing downloaded yet")

	require.NoError(t, os.WriteFile(w.PathFor("ABC123"), []byte("media"), 0o644))
	assert.True(t, w.ShouldSkip("ABC123"))

	// Zero-byte leftovers never count as done.
	require.NoError(t, os.WriteFile(w.PathFor("EMPTY"), nil, 0o644))
	assert.False(t, w.ShouldSkip("EMPTY"))
}

func TestShouldSkipWithOverwrite(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, true)
	require.NoError(t, w.Prepare())
	require.NoError(t, os.WriteFile(w.PathFor("ABC123"), []byte("media"), 0o644))

	assert.False(t, w.ShouldSkip("ABC123"))
}

func TestPrepareCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "meets")
	w := New(dir, false)

	require.NoError(t, w.Prepare())
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
