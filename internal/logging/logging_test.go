package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func readEntries(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []map[string]interface{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e map[string]interface{}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		entries = append(entries, e)
	}
	return entries
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "run.log")

	logger, err := New(Options{Path: path})
	require.NoError(t, err)
	logger.Debug("hidden")
	logger.Info("carry-over started", zap.Int("items", 3))
	_ = logger.Sync()

	entries := readEntries(t, path)
	require.Len(t, entries, 1)
	assert.Equal(t, "carry-over started", entries[0]["msg"])
	assert.Equal(t, float64(3), entries[0]["items"])
}

func TestNewVerbose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")

	logger, err := New(Options{Path: path, Verbose: true})
	require.NoError(t, err)
	logger.Debug("wiql", zap.String("query", "SELECT"))
	_ = logger.Sync()

	entries := readEntries(t, path)
	require.Len(t, entries, 1)
	assert.Equal(t, "debug", entries[0]["level"])
}

func TestNewDefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	logger, err := New(Options{})
	require.NoError(t, err)
	logger.Info("hello")
	_ = logger.Sync()

	_, err = os.Stat(filepath.Join(home, ".carryover", DefaultFile))
	assert.NoError(t, err)
}
