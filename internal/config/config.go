package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Role identifies which slice of the FKS platform a target server runs.
type Role string

const (
	RoleAuth   Role = "auth"
	RoleAPI    Role = "api"
	RoleWeb    Role = "web"
	RoleSingle Role = "single"
)

// Mode selects the deployment topology.
type Mode string

const (
	ModeSingle Mode = "single"
	ModeMulti  Mode = "multi"
)

// DefaultUser is the SSH user provisioned on FKS servers by the setup
// pipeline.
const DefaultUser = "fks_user"

// Target is one remote server taking part in a deployment. Targets are built
// once during argument parsing and never mutated afterwards.
type Target struct {
	Host string `json:"host"` // Hostname or mesh address (required)
	User string `json:"user"` // SSH username (default: fks_user)
	Role Role   `json:"role"` // auth, api, web, or single
}

// Topology is the full set of targets for one invocation.
type Topology struct {
	Mode    Mode     `json:"mode"`
	Targets []Target `json:"targets"`
}

// TargetFlags carries the raw CLI flag values shared by every command.
type TargetFlags struct {
	Mode       string
	Server     string
	AuthServer string
	APIServer  string
	WebServer  string
	User       string
}

// FromFlags builds a validated topology from CLI flags.
func FromFlags(f TargetFlags) (Topology, error) {
	var topo Topology

	switch Mode(strings.ToLower(strings.TrimSpace(f.Mode))) {
	case ModeSingle:
		topo.Mode = ModeSingle
		topo.Targets = []Target{
			{Host: f.Server, User: f.User, Role: RoleSingle},
		}
	case ModeMulti:
		topo.Mode = ModeMulti
		topo.Targets = []Target{
			{Host: f.AuthServer, User: f.User, Role: RoleAuth},
			{Host: f.APIServer, User: f.User, Role: RoleAPI},
			{Host: f.WebServer, User: f.User, Role: RoleWeb},
		}
	default:
		return Topology{}, fmt.Errorf("config: mode must be 'single' or 'multi', got %q", f.Mode)
	}

	if err := topo.Validate(); err != nil {
		return Topology{}, err
	}
	topo.ApplyDefaults()

	return topo, nil
}

// Load loads a topology from a JSON file, validates it, and applies defaults.
func Load(path string) (Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Topology{}, fmt.Errorf("config: failed to read config file %s: %w", path, err)
	}

	var topo Topology
	if err := json.Unmarshal(data, &topo); err != nil {
		return Topology{}, fmt.Errorf("config: failed to parse config file %s: %w", path, err)
	}

	if err := topo.Validate(); err != nil {
		return Topology{}, fmt.Errorf("config: invalid configuration in %s: %w", path, err)
	}
	topo.ApplyDefaults()

	return topo, nil
}

// Validate enforces the topology invariants: single mode has exactly one
// target with the single role; multi mode has exactly three targets covering
// the auth, api, and web roles.
func (t Topology) Validate() error {
	switch t.Mode {
	case ModeSingle:
		if len(t.Targets) != 1 {
			return fmt.Errorf("config: single mode requires exactly one target, got %d", len(t.Targets))
		}
		if t.Targets[0].Host == "" {
			return fmt.Errorf("config: single mode requires --server")
		}
		if t.Targets[0].Role != RoleSingle {
			return fmt.Errorf("config: single mode target must have role %q, got %q", RoleSingle, t.Targets[0].Role)
		}

	case ModeMulti:
		if len(t.Targets) != 3 {
			return fmt.Errorf("config: multi mode requires exactly three targets, got %d", len(t.Targets))
		}
		seen := map[Role]bool{}
		for _, tgt := range t.Targets {
			switch tgt.Role {
			case RoleAuth, RoleAPI, RoleWeb:
			default:
				return fmt.Errorf("config: multi mode target role must be auth, api, or web, got %q", tgt.Role)
			}
			if tgt.Host == "" {
				return fmt.Errorf("config: multi mode requires --auth-server, --api-server, and --web-server (missing %s)", tgt.Role)
			}
			if seen[tgt.Role] {
				return fmt.Errorf("config: duplicate role %q in multi mode targets", tgt.Role)
			}
			seen[tgt.Role] = true
		}

	default:
		return fmt.Errorf("config: mode must be 'single' or 'multi', got %q", t.Mode)
	}

	return nil
}

// ApplyDefaults fills in per-target defaults.
func (t *Topology) ApplyDefaults() {
	for i := range t.Targets {
		if t.Targets[i].User == "" {
			t.Targets[i].User = DefaultUser
		}
	}
}

// TargetFor returns the target holding the given role, if any.
func (t Topology) TargetFor(role Role) (Target, bool) {
	for _, tgt := range t.Targets {
		if tgt.Role == role {
			return tgt, true
		}
	}
	return Target{}, false
}

// ExpandHome expands a leading "~/" in a path against the current user's home
// directory. Paths without the prefix are returned unchanged.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
