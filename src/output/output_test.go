package output

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bytehawks/distillery/src/target"
)

func TestSectionFrame(t *testing.T) {
	var buf bytes.Buffer
	sec := NewSection(&buf, "Paths", 1500*time.Millisecond, false)
	sec.KV("path.base", "/opt/bytehawks")
	sec.Separator()
	sec.Close()

	out := buf.String()
	assert.Contains(t, out, "── Paths ")
	assert.Contains(t, out, " 1.5s ──")
	assert.Contains(t, out, "│ path.base")
	assert.Contains(t, out, "/opt/bytehawks")
	assert.Contains(t, out, "├"+strings.Repeat("─", sectionWidth))
	assert.Contains(t, out, "└"+strings.Repeat("─", sectionWidth))
}

func TestStatusIcon(t *testing.T) {
	assert.Equal(t, "✓", StatusIcon("success", false))
	assert.Equal(t, "✗", StatusIcon("failed", false))
	assert.Equal(t, "⊘", StatusIcon("warning", false))
	assert.Equal(t, colorGreen+"✓"+colorReset, StatusIcon("success", true))
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "<1ms", formatElapsed(0))
	assert.Equal(t, "250ms", formatElapsed(250*time.Millisecond))
	assert.Equal(t, "2.0s", formatElapsed(2*time.Second))
	assert.Equal(t, "1m30.0s", formatElapsed(90*time.Second))
}

func TestSectionAttempts(t *testing.T) {
	var buf bytes.Buffer
	sec := NewSection(&buf, "Registry", 0, false)
	SectionAttempts(sec, &target.AttemptLog{Attempts: []target.Attempt{
		{Target: "registry/primary/harbor", Number: 1, Reason: target.ReasonTimeout, Err: errors.New("deadline exceeded")},
		{Target: "registry/fallback/ghcr", Number: 1, Duration: 40 * time.Millisecond},
	}}, false)
	sec.Close()

	out := buf.String()
	assert.Contains(t, out, "registry/primary/harbor #1")
	assert.Contains(t, out, "timeout: deadline exceeded ✗")
	assert.Contains(t, out, "registry/fallback/ghcr #1")
	assert.Contains(t, out, "40ms ✓")
}

func TestSectionStartOutsideCI(t *testing.T) {
	t.Setenv("GITLAB_CI", "")
	t.Setenv("GITHUB_ACTIONS", "")

	var buf bytes.Buffer
	SectionStart(&buf, "id", "name")
	SectionEnd(&buf, "id")
	assert.Empty(t, buf.String())
}

func TestSectionStartGitHubActions(t *testing.T) {
	t.Setenv("GITLAB_CI", "")
	t.Setenv("GITHUB_ACTIONS", "true")

	var buf bytes.Buffer
	SectionStart(&buf, "dist_paths", "Paths")
	SectionEnd(&buf, "dist_paths")
	assert.Equal(t, "::group::Paths\n::endgroup::\n", buf.String())
}

func TestUseColorRespectsNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.False(t, UseColor())
}
