package cmd

import (
	"encoding/json"
	"testing"

	"github.com/MeKo-Tech/docflow/internal/approval"
	"github.com/MeKo-Tech/docflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApproveCommand(t *testing.T) {
	rules := testutil.WriteFile(t, testutil.CreateTempDir(t), "rules.yaml", []byte(`
custom_form:
  Accept1:
    Validation_Score: 0.8
  Reject:
    Validation_Score: 0.3
`))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"accept", []string{"--validation", "0.9", "--matching", "0", "--extraction", "0"}, approval.StatusApproved},
		{"reject", []string{"--validation", "0.1", "--matching", "0", "--extraction", "0"}, approval.StatusRejected},
		{"review", []string{"--validation", "0.5", "--matching", "0", "--extraction", "0"}, approval.StatusReview},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"approve", "--class", "custom_form", "--rules", rules}, tt.args...)
			output, err := execute(t, args...)
			require.NoError(t, err)

			var d approval.Decision
			require.NoError(t, json.Unmarshal([]byte(output), &d))
			assert.Equal(t, tt.want, d.Status)
		})
	}
}

func TestApproveCommand_Errors(t *testing.T) {
	_, err := execute(t, "approve", "--class", "")
	assert.ErrorContains(t, err, "--class is required")

	_, err = execute(t, "approve", "--class", "x", "--rules", "/nonexistent/rules.yaml")
	assert.Error(t, err)
}
