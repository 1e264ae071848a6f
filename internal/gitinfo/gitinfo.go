// gitinfo.go reads Git metadata to resolve image versions and stamp output.
package gitinfo

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// DirtyVersion is the image version deployed from a working tree with
// uncommitted changes. It is never skipped by the registry tag check, so
// local edits always rebuild.
const DirtyVersion = "dirty"

// Head returns the current git commit hash and dirty state if the repository is available.
func Head(ctx context.Context, dir string) (commit string, dirty bool, err error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "HEAD")
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return "", false, err
	}
	commit = strings.TrimSpace(string(output))
	statusCmd := exec.CommandContext(ctx, "git", "status", "--porcelain")
	statusCmd.Dir = dir
	statusOut, err := statusCmd.Output()
	if err != nil {
		return commit, false, fmt.Errorf("git status: %w", err)
	}
	dirty = len(strings.TrimSpace(string(statusOut))) > 0
	return commit, dirty, nil
}

// ImageVersion resolves the version tag for an image built from dir: the
// short commit hash, or DirtyVersion when uncommitted changes are present.
func ImageVersion(ctx context.Context, dir string) (string, error) {
	commit, dirty, err := Head(ctx, dir)
	if err != nil {
		return "", fmt.Errorf("resolve image version: %w", err)
	}
	if dirty {
		return DirtyVersion, nil
	}
	if len(commit) > 12 {
		commit = commit[:12]
	}
	return commit, nil
}
