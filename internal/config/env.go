package config

import (
	"fmt"

	"github.com/caarlos0/env/v9"
)

// Env holds everything fksctl reads from the process environment. It is
// parsed once during startup and passed by value; components never read the
// environment themselves.
type Env struct {
	// Cloudflare credentials gate DNS reconciliation. Their absence is
	// non-fatal: deploys still run, DNS updates are skipped with a warning.
	CloudflareAPIToken string `env:"CLOUDFLARE_API_TOKEN"`
	CloudflareZoneID   string `env:"CLOUDFLARE_ZONE_ID"`

	// Tailscale API access enables tailnet-wide peer resolution without a
	// local tailscale client. Optional; the resolver falls back to the local
	// CLI and then to a remote query over SSH.
	TailscaleAPIKey  string `env:"TAILSCALE_API_KEY"`
	TailscaleTailnet string `env:"TAILSCALE_TAILNET"`

	// SSH authentication. Keys are pre-provisioned by the server setup
	// workflow; the password is only a fallback for freshly created servers.
	SSHKeyPath  string `env:"FKS_SSH_KEY" envDefault:"~/.ssh/id_ed25519"`
	SSHPassword string `env:"FKS_SSH_PASSWORD"`

	// DNSHelper is the path to the DNS update helper script.
	DNSHelper string `env:"FKS_DNS_HELPER" envDefault:"scripts/update-dns.sh"`
}

// LoadEnv parses the process environment into an Env value.
func LoadEnv() (Env, error) {
	var e Env
	if err := env.Parse(&e); err != nil {
		return Env{}, fmt.Errorf("config: failed to parse environment: %w", err)
	}
	e.SSHKeyPath = ExpandHome(e.SSHKeyPath)
	return e, nil
}

// HasDNSCredentials reports whether the Cloudflare credentials required for
// DNS reconciliation are present.
func (e Env) HasDNSCredentials() bool {
	return e.CloudflareAPIToken != "" && e.CloudflareZoneID != ""
}

// HasTailscaleAPI reports whether tailnet API resolution is configured.
func (e Env) HasTailscaleAPI() bool {
	return e.TailscaleAPIKey != "" && e.TailscaleTailnet != ""
}
