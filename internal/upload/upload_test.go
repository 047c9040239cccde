package upload_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskline/internal/config"
	"taskline/internal/upload"
)

func TestCheckAcceptsAllowedFile(t *testing.T) {
	p := upload.FromConfig(config.Default())
	f, err := p.Check("reports/Q1.PDF", "application/pdf", []byte("%PDF-1.7 body"))
	require.NoError(t, err)
	assert.Equal(t, "Q1.PDF", f.Name)
	assert.Equal(t, "application/pdf", f.MediaType)
	assert.Equal(t, int64(13), f.Size)
}

func TestCheckDetectsMediaType(t *testing.T) {
	p := upload.FromConfig(config.Default())
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	f, err := p.Check("chart.png", "", png)
	require.NoError(t, err)
	assert.Equal(t, "image/png", f.MediaType)

	f, err = p.Check("notes.txt", "application/octet-stream", []byte("plain words"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(f.MediaType, "text/plain"), f.MediaType)
}

func TestCheckRejects(t *testing.T) {
	p := upload.Policy{MaxBytes: 8, AllowedExtensions: []string{"txt"}}

	_, err := p.Check("big.txt", "text/plain", bytes.Repeat([]byte("a"), 9))
	var rej *upload.RejectedError
	require.True(t, errors.As(err, &rej))
	assert.True(t, rej.TooLarge)
	assert.Contains(t, rej.Reason, "8 B")

	_, err = p.Check("run.exe", "", []byte("MZ"))
	require.True(t, errors.As(err, &rej))
	assert.False(t, rej.TooLarge)

	_, err = p.Check("noext", "", []byte("x"))
	require.Error(t, err)

	_, err = p.Check("", "", []byte("x"))
	require.Error(t, err)

	_, err = p.Check("empty.txt", "", nil)
	require.Error(t, err)
}
