// Package orchestrator sequences multi-server FKS deployments: connectivity
// gate, ordered per-role deploys (auth before api before web), then
// best-effort DNS reconciliation.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"fksctl/internal/config"
	"fksctl/internal/health"
	"fksctl/internal/logging"
)

// Prober checks a target's SSH reachability without side effects.
type Prober interface {
	Probe(ctx context.Context, target config.Target) error
}

// RoleDeployer performs the per-role deployment steps.
type RoleDeployer interface {
	DeployAuth(ctx context.Context, target config.Target) error
	DeployAPI(ctx context.Context, target config.Target, authHost string) error
	DeployWeb(ctx context.Context, target config.Target) error
	DeploySingle(ctx context.Context, target config.Target) error
}

// Resolver resolves a target to its mesh address.
type Resolver interface {
	Resolve(ctx context.Context, target config.Target) (string, error)
}

// Reconciler updates DNS records for resolved targets, best-effort.
type Reconciler interface {
	Reconcile(ctx context.Context, topo config.Topology, resolved map[config.Role]string)
}

// HealthChecker probes role service ports read-only.
type HealthChecker interface {
	Check(ctx context.Context, topo config.Topology) []health.Result
}

// Collaborators bundles the injected components, real or fake.
type Collaborators struct {
	Prober   Prober
	Deployer RoleDeployer
	Resolver Resolver
	DNS      Reconciler
	Health   HealthChecker
}

// Orchestrator runs the deployment state machine over one immutable topology.
type Orchestrator struct {
	topo  config.Topology
	c     Collaborators
	state State
}

// New creates an Orchestrator for the given topology.
func New(topo config.Topology, c Collaborators) *Orchestrator {
	return &Orchestrator{topo: topo, c: c, state: StateInitial}
}

// State returns the current pipeline state.
func (o *Orchestrator) State() State {
	return o.state
}

func (o *Orchestrator) enter(s State) {
	logging.L().Debugw("state transition", "from", o.state, "to", s)
	o.state = s
}

type deployStep struct {
	state State
	run   func(ctx context.Context) error
}

// Deploy runs the full pipeline. Already-completed steps are left as-is on
// failure; there is no rollback.
func (o *Orchestrator) Deploy(ctx context.Context) error {
	log := logging.L().With("component", "orchestrator", "mode", o.topo.Mode)
	start := time.Now()

	if err := o.validate(); err != nil {
		return err
	}

	if err := o.probe(ctx); err != nil {
		o.enter(AbortUnreachable)
		return fmt.Errorf("orchestrator: aborting, not all targets reachable: %w", err)
	}

	for _, step := range o.deploySteps() {
		o.enter(step.state)
		if err := step.run(ctx); err != nil {
			o.enter(AbortDeployFailed)
			return fmt.Errorf("orchestrator: %w", err)
		}
	}

	// DNS is best-effort and never aborts the pipeline.
	o.enter(StateReconcileDNS)
	o.reconcileDNS(ctx)

	o.enter(StateDone)
	log.Infow("🎉 deployment complete", "duration", time.Since(start).Round(time.Second))
	return nil
}

// HealthCheck validates the topology and reports per-service health. An
// unhealthy service is informational, never a command failure.
func (o *Orchestrator) HealthCheck(ctx context.Context) ([]health.Result, error) {
	if err := o.validate(); err != nil {
		return nil, err
	}

	results := o.c.Health.Check(ctx, o.topo)

	healthy := 0
	for _, r := range results {
		if r.Healthy {
			healthy++
		}
	}
	logging.L().Infow("health check complete", "healthy", healthy, "total", len(results))

	o.enter(StateDone)
	return results, nil
}

// UpdateDNS validates the topology, resolves mesh addresses, and reconciles
// DNS records without deploying anything.
func (o *Orchestrator) UpdateDNS(ctx context.Context) error {
	if err := o.validate(); err != nil {
		return err
	}

	o.enter(StateReconcileDNS)
	o.reconcileDNS(ctx)

	o.enter(StateDone)
	return nil
}

func (o *Orchestrator) validate() error {
	o.enter(StateValidate)
	if err := o.topo.Validate(); err != nil {
		o.enter(AbortMissingArgs)
		return err
	}
	return nil
}

// probe gates deployment on every target answering; multi-mode never does a
// partial deployment.
func (o *Orchestrator) probe(ctx context.Context) error {
	if o.topo.Mode == config.ModeMulti {
		o.enter(StateProbeAll)
	} else {
		o.enter(StateProbe)
	}

	var errs error
	for _, target := range o.topo.Targets {
		if err := o.c.Prober.Probe(ctx, target); err != nil {
			logging.L().Errorw("target unreachable", "host", target.Host, "role", target.Role, "err", err)
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (o *Orchestrator) deploySteps() []deployStep {
	if o.topo.Mode == config.ModeSingle {
		target := o.topo.Targets[0]
		return []deployStep{
			{StateDeploySingle, func(ctx context.Context) error {
				return o.c.Deployer.DeploySingle(ctx, target)
			}},
		}
	}

	// The validated multi topology always carries all three roles.
	auth, _ := o.topo.TargetFor(config.RoleAuth)
	api, _ := o.topo.TargetFor(config.RoleAPI)
	web, _ := o.topo.TargetFor(config.RoleWeb)

	return []deployStep{
		{StateDeployAuth, func(ctx context.Context) error {
			return o.c.Deployer.DeployAuth(ctx, auth)
		}},
		{StateDeployAPI, func(ctx context.Context) error {
			return o.c.Deployer.DeployAPI(ctx, api, auth.Host)
		}},
		{StateDeployWeb, func(ctx context.Context) error {
			return o.c.Deployer.DeployWeb(ctx, web)
		}},
	}
}

func (o *Orchestrator) reconcileDNS(ctx context.Context) {
	resolved := make(map[config.Role]string)
	for _, target := range o.topo.Targets {
		addr, err := o.c.Resolver.Resolve(ctx, target)
		if err != nil {
			logging.L().Warnw("address resolution failed; role omitted from DNS update",
				"host", target.Host, "role", target.Role, "err", err)
			continue
		}
		resolved[target.Role] = addr
	}

	o.c.DNS.Reconcile(ctx, o.topo, resolved)
}
