package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "WARN", "text")
	defer InitWithWriter(os.Stdout, "INFO", "text")

	Info("hidden %d", 1)
	Warn("shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden 1")
	assert.Contains(t, out, "shown 2")
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "DEBUG", "json")
	defer InitWithWriter(os.Stdout, "INFO", "text")

	Debug("node %s written", "ns=5;i=5003")

	line := strings.TrimSpace(buf.String())
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "node ns=5;i=5003 written", entry["message"])
}

func TestSetLevel_IgnoresUnknown(t *testing.T) {
	SetLevel("ERROR")
	SetLevel("VERBOSE")
	assert.Equal(t, LevelError, GetLevel())
	SetLevel("info")
	assert.Equal(t, LevelInfo, GetLevel())
}

func TestInit_FileOutput(t *testing.T) {
	path := t.TempDir() + "/server.log"
	require.NoError(t, Init(Config{Level: "INFO", Format: "json", Output: path}))
	defer InitWithWriter(os.Stdout, "INFO", "text")

	Info("server is ready")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "server is ready")
}

func TestInit_ClosesPreviousFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(Config{Level: "INFO", Format: "json", Output: dir + "/first.log"}))
	defer InitWithWriter(os.Stdout, "INFO", "text")

	mu.RLock()
	first := logFile
	mu.RUnlock()
	require.NotNil(t, first)

	require.NoError(t, Init(Config{Level: "INFO", Format: "json", Output: dir + "/second.log"}))
	_, err := first.Write([]byte("late\n"))
	assert.ErrorIs(t, err, os.ErrClosed)

	Info("after reopen")
	data, err := os.ReadFile(dir + "/second.log")
	require.NoError(t, err)
	assert.Contains(t, string(data), "after reopen")

	InitWithWriter(os.Stdout, "INFO", "text")
	mu.RLock()
	assert.Nil(t, logFile)
	mu.RUnlock()
	_, err = os.ReadFile(dir + "/second.log")
	require.NoError(t, err)
}

func TestClose_ReleasesFile(t *testing.T) {
	path := t.TempDir() + "/server.log"
	require.NoError(t, Init(Config{Level: "INFO", Format: "text", Output: path}))
	defer InitWithWriter(os.Stdout, "INFO", "text")

	mu.RLock()
	f := logFile
	mu.RUnlock()

	require.NoError(t, Close())
	_, err := f.Write([]byte("late\n"))
	assert.ErrorIs(t, err, os.ErrClosed)
	assert.NoError(t, Close())
}
