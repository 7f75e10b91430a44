// Package deployer implements the per-role deployment steps: each builds the
// role's remote script and hands it to the script runner.
package deployer

import (
	"context"
	"fmt"
	"strings"

	"fksctl/internal/config"
	"fksctl/internal/logging"
	"fksctl/internal/script"
)

// ScriptRunner is the slice of runner.Runner the deployer needs.
type ScriptRunner interface {
	Run(ctx context.Context, target config.Target, body string) (string, error)
}

// Deployer deploys FKS roles onto remote targets.
type Deployer struct {
	runner ScriptRunner
}

// New creates a Deployer backed by the given script runner.
func New(runner ScriptRunner) *Deployer {
	return &Deployer{runner: runner}
}

// DeployAuth pulls and starts the auth stack on the target.
func (d *Deployer) DeployAuth(ctx context.Context, target config.Target) error {
	return d.deploy(ctx, target, script.Auth())
}

// DeployAPI pulls and starts the API stack on the target. When authHost is
// non-empty the generated script exposes the auth service URL to the API
// containers before they start.
func (d *Deployer) DeployAPI(ctx context.Context, target config.Target, authHost string) error {
	return d.deploy(ctx, target, script.API(authHost))
}

// DeployWeb pulls and starts the web stack on the target.
func (d *Deployer) DeployWeb(ctx context.Context, target config.Target) error {
	return d.deploy(ctx, target, script.Web())
}

// DeploySingle pulls and starts the full stack on a single-node target.
func (d *Deployer) DeploySingle(ctx context.Context, target config.Target) error {
	return d.deploy(ctx, target, script.Single())
}

func (d *Deployer) deploy(ctx context.Context, target config.Target, body string) error {
	log := logging.L().With("component", "deployer", "host", target.Host, "role", target.Role)
	log.Infow("🚀 deploying role")

	output, err := d.runner.Run(ctx, target, body)
	if out := strings.TrimSpace(output); out != "" {
		log.Infow(fmt.Sprintf("remote output:\n%s", out))
	}
	if err != nil {
		return fmt.Errorf("deployer: %s deployment on %s failed: %w", target.Role, target.Host, err)
	}

	log.Infow("✅ role deployed")
	return nil
}
