package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleErrorWritesContext(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, false)
	t.Cleanup(func() { Init(false) })

	HandleError(errors.New("boom"), "pump cycle")

	out := buf.String()
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "pump cycle")
	assert.Contains(t, out, "ERR")
}

func TestHandleErrorNil(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, false)
	t.Cleanup(func() { Init(false) })

	HandleError(nil, "ignored")
	assert.Empty(t, buf.String())
}

func TestInteractiveSuppressesConsole(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, false)
	SetInteractive(true)
	t.Cleanup(func() {
		SetInteractive(false)
		Init(false)
	})

	Info().Msg("hidden")
	Error().Msg("also hidden")
	assert.Empty(t, buf.String())

	SetInteractive(false)
	Info().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestInitWithFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, InitWithFile(false, FileConfig{Dir: dir}))
	t.Cleanup(func() {
		_ = Close()
		Init(false)
	})

	assert.Equal(t, filepath.Join(dir, logFileName), FilePath())

	SetInteractive(true)
	HandleError(errors.New("disk gone"), "exec")
	SetInteractive(false)

	require.NoError(t, Close())
	assert.Empty(t, FilePath())

	data, err := os.ReadFile(filepath.Join(dir, logFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"context":"exec"`)
	assert.Contains(t, string(data), "disk gone")
}
