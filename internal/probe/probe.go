// Package probe implements the pre-deployment connectivity gate: a cheap
// remote no-op over SSH that tells the orchestrator whether a target is
// reachable before any state is mutated.
package probe

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fksctl/internal/config"
	"fksctl/internal/logging"
)

// probeTimeout bounds one connectivity check, connect included.
const probeTimeout = 10 * time.Second

// commandRunner is the slice of ssh.Pool the prober needs.
type commandRunner interface {
	Run(ctx context.Context, host, command string) (stdout, stderr string, err error)
}

// Prober checks SSH reachability of deployment targets.
type Prober struct {
	pool commandRunner
}

// New creates a Prober backed by the given SSH pool.
func New(pool commandRunner) *Prober {
	return &Prober{pool: pool}
}

// Probe runs a no-op echo on the target and returns nil only if it answers
// within the timeout. It has no side effects beyond the transient connection.
func (p *Prober) Probe(ctx context.Context, target config.Target) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	stdout, _, err := p.pool.Run(ctx, target.Host, "echo ok")
	if err != nil {
		return fmt.Errorf("probe: %s is unreachable: %w", target.Host, err)
	}
	if strings.TrimSpace(stdout) != "ok" {
		return fmt.Errorf("probe: unexpected response from %s: %q", target.Host, strings.TrimSpace(stdout))
	}

	logging.L().Infow("target reachable", "host", target.Host, "role", target.Role)
	return nil
}
