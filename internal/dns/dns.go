// Package dns performs best-effort DNS reconciliation after a deployment by
// invoking the external DNS update helper. DNS is an optional enhancement,
// not a correctness requirement: every failure path here warns and returns.
package dns

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"fksctl/internal/config"
	"fksctl/internal/logging"
)

// singleServiceName is the DNS record name used for single-node installs.
const singleServiceName = "fks"

// Reconciler drives the external DNS update helper.
type Reconciler struct {
	env config.Env

	// run executes the helper; injectable for tests.
	run  func(ctx context.Context, name string, args ...string) ([]byte, error)
	stat func(string) (os.FileInfo, error)
}

// New creates a Reconciler over the given environment.
func New(env config.Env) *Reconciler {
	return &Reconciler{
		env: env,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
		stat: os.Stat,
	}
}

// Reconcile points DNS records at whichever targets resolved to a mesh
// address. Roles missing from resolved are simply omitted; reconciliation is
// skipped entirely when credentials or the helper are absent. Reconcile
// never fails the pipeline.
func (r *Reconciler) Reconcile(ctx context.Context, topo config.Topology, resolved map[config.Role]string) {
	log := logging.L().With("component", "dns")

	if !r.env.HasDNSCredentials() {
		log.Warnw("DNS credentials not set; skipping DNS update",
			"need", "CLOUDFLARE_API_TOKEN, CLOUDFLARE_ZONE_ID")
		return
	}

	if !r.helperUsable() {
		log.Warnw("DNS update helper missing or not executable; skipping DNS update",
			"helper", r.env.DNSHelper)
		return
	}

	var args []string
	switch topo.Mode {
	case config.ModeMulti:
		args = []string{"update-multi-server"}
		for _, role := range []config.Role{config.RoleAuth, config.RoleAPI, config.RoleWeb} {
			addr, ok := resolved[role]
			if !ok || addr == "" {
				log.Warnw("no resolved address for role; omitting from DNS update", "role", role)
				continue
			}
			args = append(args, "--"+string(role)+"-ip", addr)
		}
		if len(args) == 1 {
			log.Warnw("no addresses resolved; skipping DNS update")
			return
		}

	case config.ModeSingle:
		addr := resolved[config.RoleSingle]
		if addr == "" {
			log.Warnw("no resolved address for single-node target; skipping DNS update")
			return
		}
		args = []string{"update-service", "--service", singleServiceName, "--ip", addr}

	default:
		log.Warnw("unknown topology mode; skipping DNS update", "mode", topo.Mode)
		return
	}

	log.Infow("updating DNS records", "helper", r.env.DNSHelper, "args", strings.Join(args, " "))
	out, err := r.run(ctx, r.env.DNSHelper, args...)
	if err != nil {
		log.Warnw("DNS update helper failed", "err", err, "output", strings.TrimSpace(string(out)))
		return
	}
	log.Infow("DNS records updated")
}

func (r *Reconciler) helperUsable() bool {
	info, err := r.stat(r.env.DNSHelper)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}
