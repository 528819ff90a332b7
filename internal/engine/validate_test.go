package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imdouglasoliveira/DownMeets/internal/domain"
)

func writeTemp(t *testing.T, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meet_test.mp4")
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestValidateMissingFile(t *testing.T) {
	v := NewValidator(4096)
	err := v.Validate(filepath.Join(t.TempDir(), "nope.mp4"))
	assert.ErrorIs(t, err, domain.ErrEmptyResult)
}

func TestValidateZeroByteFile(t *testing.T) {
	v := NewValidator(4096)
	err := v.Validate(writeTemp(t, nil))
	assert.ErrorIs(t, err, domain.ErrEmptyResult)
}

func TestValidateBelowSizeFloor(t *testing.T) {
	v := NewValidator(4096)
	err := v.Validate(writeTemp(t, make([]byte, 100)))
	assert.ErrorIs(t, err, domain.ErrEmptyResult)
}

func TestValidateHTMLSavedAsMedia(t *testing.T) {
	v := NewValidator(4096)

	page := append([]byte("<!DOCTYPE html><html><body>You need access</body></html>"), make([]byte, 8192)...)
	err := v.Validate(writeTemp(t, page))
	assert.ErrorIs(t, err, domain.ErrEmptyResult)

	// Leading whitespace and case must not hide the page.
	page2 := append([]byte("\n\t  <HTML><body>err</body></HTML>"), make([]byte, 8192)...)
	err = v.Validate(writeTemp(t, page2))
	assert.ErrorIs(t, err, domain.ErrEmptyResult)
}

func TestValidateAcceptsBinaryMedia(t *testing.T) {
	v := NewValidator(4096)

	data := make([]byte, 16384)
	for i := range data {
		data[i] = byte(i * 7 % 256)
	}
	assert.NoError(t, v.Validate(writeTemp(t, data)))
}

func TestValidatorDefaultFloor(t *testing.T) {
	v := NewValidator(0)
	assert.Equal(t, int64(4096), v.minSize)
}
