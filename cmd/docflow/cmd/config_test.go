package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigInitCommand(t *testing.T) {
	target := filepath.Join(t.TempDir(), "docflow.yaml")

	output, err := execute(t, "config", "init", target)
	require.NoError(t, err)
	assert.Contains(t, output, "Configuration written to")

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "match_threshold")
	assert.Contains(t, string(data), "process_task_url")
}

func TestConfigShowCommand(t *testing.T) {
	output, err := execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, output, "extraction:")
	assert.Contains(t, output, "server:")
}
