package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	require.Equal(t, slog.LevelWarn, parseLogLevel("warn"))
	require.Equal(t, slog.LevelError, parseLogLevel("error"))
	require.Equal(t, slog.LevelInfo, parseLogLevel("info"))
	require.Equal(t, slog.LevelInfo, parseLogLevel("verbose"))
}

func TestLogFileWriterKeepsTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "server.log")
	w, file, err := newLogFileWriter(path)
	require.NoError(t, err)
	defer file.Close()
	w.max, w.keep = 64, 16

	_, err = w.Write(bytes.Repeat([]byte("a"), 60))
	require.NoError(t, err)
	_, err = w.Write([]byte("0123456789abcdef"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "0123456789abcdef", string(data))

	_, err = w.Write([]byte("!"))
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "0123456789abcdef!", string(data))
}
