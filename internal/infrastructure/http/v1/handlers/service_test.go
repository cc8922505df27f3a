package handlers

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"majifix/internal/core/entity"
	"majifix/internal/core/locale"
	"majifix/internal/domain/service"
)

type failingWriter struct{ err error }

func (w *failingWriter) Write(p []byte) (int, error) { return 0, w.err }

func TestWriteCSV(t *testing.T) {
	h := NewServiceHandler(nil, locale.Config{Default: "en", Supported: []string{"en"}})
	services := []*service.Service{
		{
			Base: entity.NewBase(),
			Code: "W",
			Name: locale.Localized{"en": "Water Leakage"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, h.writeCSV(&buf, services))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "code,name"))
	assert.True(t, strings.HasPrefix(lines[1], "W,Water Leakage"))
}

func TestWriteCSV_ReportsWriterFailure(t *testing.T) {
	h := NewServiceHandler(nil, locale.Config{Default: "en", Supported: []string{"en"}})

	broken := errors.New("client went away")
	err := h.writeCSV(&failingWriter{err: broken}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, broken)
}
