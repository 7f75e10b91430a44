// Package runner copies generated scripts to remote servers and executes
// them, returning the combined output.
package runner

import (
	"context"
	"fmt"
	"io"
	"strings"

	"fksctl/internal/config"
	"fksctl/internal/logging"
)

// remoteScriptPath is the fixed location the script is staged at on every
// target. One deployment touches one target at a time, so a fixed path is
// safe.
const remoteScriptPath = "/tmp/fksctl-deploy.sh"

// sessionRunner is the slice of ssh.Pool the runner needs.
type sessionRunner interface {
	Run(ctx context.Context, host, command string) (stdout, stderr string, err error)
	RunWithInput(ctx context.Context, host, command string, input io.Reader) (stdout, stderr string, err error)
}

// Runner executes script bodies on remote targets over SSH.
type Runner struct {
	pool sessionRunner
}

// New creates a Runner backed by the given SSH pool.
func New(pool sessionRunner) *Runner {
	return &Runner{pool: pool}
}

// Run stages the script body on the target, executes it, and removes the
// remote copy. The script's combined stdout/stderr is returned in all cases
// so callers can surface remote failures verbatim. Cleanup is best-effort
// and never surfaced.
func (r *Runner) Run(ctx context.Context, target config.Target, body string) (string, error) {
	log := logging.L().With("component", "runner", "host", target.Host)

	upload := fmt.Sprintf("cat > %s && chmod +x %s", remoteScriptPath, remoteScriptPath)
	if _, stderr, err := r.pool.RunWithInput(ctx, target.Host, upload, strings.NewReader(body)); err != nil {
		return "", fmt.Errorf("runner: failed to stage script on %s: %w (stderr: %s)", target.Host, err, strings.TrimSpace(stderr))
	}

	// The script redirects stderr into stdout itself via bash; capture both
	// here as well in case bash fails to start.
	stdout, stderr, execErr := r.pool.Run(ctx, target.Host, fmt.Sprintf("bash %s 2>&1", remoteScriptPath))
	output := stdout
	if s := strings.TrimSpace(stderr); s != "" {
		output = output + s
	}

	if _, _, err := r.pool.Run(ctx, target.Host, fmt.Sprintf("rm -f %s", remoteScriptPath)); err != nil {
		log.Debugw("failed to remove remote script", "path", remoteScriptPath, "err", err)
	}

	if execErr != nil {
		return output, fmt.Errorf("runner: script failed on %s: %w", target.Host, execErr)
	}
	return output, nil
}
