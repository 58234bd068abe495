package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// CI environment detection.

func IsCI() bool {
	return os.Getenv("CI") == "true"
}

func IsGitLabCI() bool {
	return os.Getenv("GITLAB_CI") == "true"
}

func IsGitHubActions() bool {
	return os.Getenv("GITHUB_ACTIONS") == "true"
}

// Collapsible log groups. GitLab and GitHub Actions each have their own
// markers; elsewhere nothing is written.

func SectionStart(w io.Writer, id, name string) {
	switch {
	case IsGitLabCI():
		fmt.Fprintf(w, "\033[0Ksection_start:%d:%s\r\033[0K%s\n", time.Now().Unix(), id, name)
	case IsGitHubActions():
		fmt.Fprintf(w, "::group::%s\n", name)
	}
}

func SectionEnd(w io.Writer, id string) {
	switch {
	case IsGitLabCI():
		fmt.Fprintf(w, "\033[0Ksection_end:%d:%s\r\033[0K\n", time.Now().Unix(), id)
	case IsGitHubActions():
		fmt.Fprintln(w, "::endgroup::")
	}
}

// CIHeader prints a compact pipeline context line at the start of a CI run.
func CIHeader(w io.Writer) {
	if !IsCI() {
		return
	}
	var parts []string
	for _, kv := range []struct{ key, env string }{
		{"tag", "CI_COMMIT_TAG"},
		{"ref", "GITHUB_REF_NAME"},
		{"pipeline", "CI_PIPELINE_ID"},
		{"run", "GITHUB_RUN_ID"},
		{"runner", "CI_RUNNER_DESCRIPTION"},
	} {
		if v := os.Getenv(kv.env); v != "" {
			parts = append(parts, kv.key+"="+v)
		}
	}
	if sha := os.Getenv("CI_COMMIT_SHA"); len(sha) >= 8 {
		parts = append(parts, "sha="+sha[:8])
	} else if sha := os.Getenv("GITHUB_SHA"); len(sha) >= 8 {
		parts = append(parts, "sha="+sha[:8])
	}
	if len(parts) > 0 {
		fmt.Fprintf(w, "  ci: %s\n", strings.Join(parts, "  "))
	}
}
