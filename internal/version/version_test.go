package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	oldV, oldC, oldD := Version, GitCommit, BuildDate
	t.Cleanup(func() { Version, GitCommit, BuildDate = oldV, oldC, oldD })

	Version, GitCommit, BuildDate = "1.2.3", "abc123", "2026-01-02"
	s := String()
	assert.Contains(t, s, "docflow 1.2.3")
	assert.Contains(t, s, "commit abc123")
	assert.Contains(t, s, "built 2026-01-02")

	v, c, d := Info()
	assert.Equal(t, []string{"1.2.3", "abc123", "2026-01-02"}, []string{v, c, d})
}
