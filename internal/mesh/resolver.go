// Package mesh resolves deployment targets to their tailnet addresses so DNS
// records can point at the private mesh rather than public IPs.
package mesh

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	tsclient "github.com/tailscale/tailscale-client-go/v2"

	"fksctl/internal/config"
	"fksctl/internal/logging"
)

// resolveTimeout bounds each resolution tier.
const resolveTimeout = 5 * time.Second

// commandRunner is the slice of ssh.Pool the remote tier needs.
type commandRunner interface {
	Run(ctx context.Context, host, command string) (stdout, stderr string, err error)
}

// deviceLister is satisfied by the Tailscale API client's device resource.
type deviceLister interface {
	List(ctx context.Context) ([]tsclient.Device, error)
}

// Resolver resolves hostnames to mesh addresses. Resolution failure is never
// fatal: callers treat an error as "skip DNS for this target".
//
// Tiers, in order:
//  1. Tailnet API device list, when API credentials are configured.
//  2. Local tailscale client state (`tailscale status --json`).
//  3. Remote query over SSH (`tailscale ip -4` on the target itself).
type Resolver struct {
	devices  deviceLister
	pool     commandRunner
	lookPath func(string) (string, error)
	output   func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// New creates a Resolver. The tailnet API tier is enabled only when the
// environment carries Tailscale API credentials.
func New(env config.Env, pool commandRunner) *Resolver {
	r := &Resolver{
		pool:     pool,
		lookPath: exec.LookPath,
		output: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
	}
	if env.HasTailscaleAPI() {
		client := &tsclient.Client{
			APIKey:  env.TailscaleAPIKey,
			Tailnet: env.TailscaleTailnet,
		}
		r.devices = client.Devices()
	}
	return r
}

// Resolve returns the mesh address for the target, or an error when every
// tier fails.
func (r *Resolver) Resolve(ctx context.Context, target config.Target) (string, error) {
	log := logging.L().With("component", "mesh", "host", target.Host)

	if r.devices != nil {
		if addr, err := r.resolveAPI(ctx, target.Host); err == nil {
			log.Infow("resolved via tailnet API", "addr", addr)
			return addr, nil
		} else {
			log.Debugw("tailnet API resolution failed", "err", err)
		}
	}

	if addr, err := r.resolveLocal(ctx, target.Host); err == nil {
		log.Infow("resolved via local tailscale state", "addr", addr)
		return addr, nil
	} else {
		log.Debugw("local resolution failed", "err", err)
	}

	addr, err := r.resolveRemote(ctx, target.Host)
	if err != nil {
		return "", fmt.Errorf("mesh: failed to resolve %s: %w", target.Host, err)
	}
	log.Infow("resolved via remote query", "addr", addr)
	return addr, nil
}

func (r *Resolver) resolveAPI(ctx context.Context, host string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	devices, err := r.devices.List(ctx)
	if err != nil {
		return "", fmt.Errorf("mesh: tailnet device list failed: %w", err)
	}

	for _, d := range devices {
		if !matchesHost(d.Hostname, d.Name, host) {
			continue
		}
		if addr := firstMeshIPv4(d.Addresses); addr != "" {
			return addr, nil
		}
	}
	return "", fmt.Errorf("mesh: no tailnet device matches %s", host)
}

func (r *Resolver) resolveLocal(ctx context.Context, host string) (string, error) {
	if _, err := r.lookPath("tailscale"); err != nil {
		return "", fmt.Errorf("mesh: tailscale CLI not available: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	out, err := r.output(ctx, "tailscale", "status", "--json")
	if err != nil {
		return "", fmt.Errorf("mesh: tailscale status failed: %w", err)
	}
	return peerAddrFromStatus(out, host)
}

func (r *Resolver) resolveRemote(ctx context.Context, host string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	stdout, stderr, err := r.pool.Run(ctx, host, "tailscale ip -4")
	if err != nil {
		return "", fmt.Errorf("mesh: remote tailscale query failed: %w (stderr: %s)", err, strings.TrimSpace(stderr))
	}

	addr := firstMeshIPv4(strings.Fields(stdout))
	if addr == "" {
		return "", fmt.Errorf("mesh: remote tailscale query on %s returned no usable address: %q", host, strings.TrimSpace(stdout))
	}
	return addr, nil
}

// statusDoc mirrors the parts of `tailscale status --json` the resolver
// reads.
type statusDoc struct {
	Self *statusPeer            `json:"Self"`
	Peer map[string]*statusPeer `json:"Peer"`
}

type statusPeer struct {
	HostName     string   `json:"HostName"`
	DNSName      string   `json:"DNSName"`
	TailscaleIPs []string `json:"TailscaleIPs"`
}

func peerAddrFromStatus(data []byte, host string) (string, error) {
	var doc statusDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("mesh: failed to parse tailscale status: %w", err)
	}

	peers := make([]*statusPeer, 0, len(doc.Peer)+1)
	if doc.Self != nil {
		peers = append(peers, doc.Self)
	}
	for _, p := range doc.Peer {
		peers = append(peers, p)
	}

	for _, p := range peers {
		if !matchesHost(p.HostName, p.DNSName, host) {
			continue
		}
		if addr := firstMeshIPv4(p.TailscaleIPs); addr != "" {
			return addr, nil
		}
	}
	return "", fmt.Errorf("mesh: no peer in local tailscale state matches %s", host)
}

// matchesHost reports whether host names the peer, comparing against the
// bare hostname and the first label of the peer's DNS name.
func matchesHost(hostname, dnsName, host string) bool {
	if strings.EqualFold(hostname, host) {
		return true
	}
	label, _, _ := strings.Cut(dnsName, ".")
	return label != "" && strings.EqualFold(label, host)
}
