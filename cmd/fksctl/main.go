package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fksctl/internal/config"
	"fksctl/internal/deployer"
	"fksctl/internal/dns"
	"fksctl/internal/health"
	"fksctl/internal/logging"
	"fksctl/internal/mesh"
	"fksctl/internal/orchestrator"
	"fksctl/internal/probe"
	"fksctl/internal/runner"
	"fksctl/internal/ssh"
)

func main() {
	if err := logging.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logging: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	ctx := withSignals(context.Background())

	if len(os.Args) < 2 {
		usage()
		exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "deploy":
		runDeploy(ctx, args)
	case "health-check":
		runHealthCheck(ctx, args)
	case "update-dns":
		runUpdateDNS(ctx, args)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		usage()
		exit(2)
	}
}

// exit flushes the logger before terminating so abort reasons reach the log
// file.
func exit(code int) {
	logging.Sync()
	os.Exit(code)
}

func withSignals(parent context.Context) context.Context {
	ctx, _ := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	return ctx
}

func usage() {
	fmt.Fprint(os.Stderr, `fksctl - FKS multi-server deployment orchestrator

Usage:
  fksctl deploy       --mode {single|multi} [target flags]  - Deploy services to target servers
  fksctl health-check --mode {single|multi} [target flags]  - Report per-service health, read-only
  fksctl update-dns   --mode {single|multi} [target flags]  - Point DNS records at mesh addresses

Target flags:
  --server H          target host (single mode)
  --auth-server H     auth server host (multi mode)
  --api-server H      API server host (multi mode)
  --web-server H      web server host (multi mode)
  --user U            SSH user on the targets (default: fks_user)
  --config PATH       load the topology from a JSON file instead of flags

`)
}

// targetFlags holds the flag values shared by every command.
type targetFlags struct {
	mode       string
	server     string
	authServer string
	apiServer  string
	webServer  string
	user       string
	configPath string
}

func registerTargetFlags(fs *flag.FlagSet) *targetFlags {
	t := &targetFlags{}
	fs.StringVar(&t.mode, "mode", "", "deployment topology: single or multi")
	fs.StringVar(&t.server, "server", "", "target host (single mode)")
	fs.StringVar(&t.authServer, "auth-server", "", "auth server host (multi mode)")
	fs.StringVar(&t.apiServer, "api-server", "", "API server host (multi mode)")
	fs.StringVar(&t.webServer, "web-server", "", "web server host (multi mode)")
	fs.StringVar(&t.user, "user", config.DefaultUser, "SSH user on the targets")
	fs.StringVar(&t.configPath, "config", "", "load the topology from a JSON file instead of flags")
	return t
}

func (t *targetFlags) topology() (config.Topology, error) {
	if t.configPath != "" {
		return config.Load(t.configPath)
	}
	return config.FromFlags(config.TargetFlags{
		Mode:       t.mode,
		Server:     t.server,
		AuthServer: t.authServer,
		APIServer:  t.apiServer,
		WebServer:  t.webServer,
		User:       t.user,
	})
}

// build wires the real components behind the orchestrator's interfaces. The
// returned pool must be closed by the caller.
func build(topo config.Topology, envCfg config.Env) (*orchestrator.Orchestrator, *ssh.Pool) {
	auth := make(map[string]ssh.AuthConfig, len(topo.Targets))
	for _, target := range topo.Targets {
		auth[target.Host] = ssh.AuthConfig{
			Username:       target.User,
			PrivateKeyPath: envCfg.SSHKeyPath,
			Password:       envCfg.SSHPassword,
		}
	}
	pool := ssh.NewPool(auth)

	o := orchestrator.New(topo, orchestrator.Collaborators{
		Prober:   probe.New(pool),
		Deployer: deployer.New(runner.New(pool)),
		Resolver: mesh.New(envCfg, pool),
		DNS:      dns.New(envCfg),
		Health:   health.New(),
	})
	return o, pool
}

func setup(fs *flag.FlagSet, t *targetFlags, args []string) (config.Topology, config.Env) {
	if err := fs.Parse(args); err != nil {
		exit(2)
	}

	topo, err := t.topology()
	if err != nil {
		logging.L().Errorw("invalid arguments", "err", err)
		exit(1)
	}

	envCfg, err := config.LoadEnv()
	if err != nil {
		logging.L().Errorw("failed to load environment", "err", err)
		exit(1)
	}

	return topo, envCfg
}

func runDeploy(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("deploy", flag.ExitOnError)
	t := registerTargetFlags(fs)
	dryRun := fs.Bool("dry-run", false, "validate the configuration without deploying")

	topo, envCfg := setup(fs, t, args)

	log := logging.L().With("command", "deploy", "mode", topo.Mode)

	if *dryRun {
		log.Infow("dry-run mode: configuration is valid", "targets", len(topo.Targets))
		return
	}

	o, pool := build(topo, envCfg)
	defer pool.Close()

	if err := o.Deploy(ctx); err != nil {
		log.Errorw("deployment failed", "state", o.State(), "err", err)
		exit(1)
	}
}

func runHealthCheck(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("health-check", flag.ExitOnError)
	t := registerTargetFlags(fs)

	topo, envCfg := setup(fs, t, args)

	o, pool := build(topo, envCfg)
	defer pool.Close()

	results, err := o.HealthCheck(ctx)
	if err != nil {
		logging.L().Errorw("health check failed", "err", err)
		exit(1)
	}

	// Unhealthy services are informational; the command itself succeeds.
	for _, r := range results {
		status := "healthy"
		if !r.Healthy {
			status = "unhealthy"
		}
		fmt.Printf("%s\t%s\t%s\n", r.Target.Host, r.Service, status)
	}
}

func runUpdateDNS(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("update-dns", flag.ExitOnError)
	t := registerTargetFlags(fs)

	topo, envCfg := setup(fs, t, args)

	o, pool := build(topo, envCfg)
	defer pool.Close()

	if err := o.UpdateDNS(ctx); err != nil {
		logging.L().Errorw("DNS update failed", "err", err)
		exit(1)
	}
}
