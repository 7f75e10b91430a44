// Package health implements the read-only health-check command: TCP probes
// against each role's well-known port. Unhealthy services are reported, never
// treated as a command failure.
package health

import (
	"context"
	"fmt"
	"net"
	"time"

	"fksctl/internal/config"
	"fksctl/internal/logging"
)

// checkTimeout bounds one port probe.
const checkTimeout = 5 * time.Second

// servicePort maps a role to the local port its primary service listens on.
type servicePort struct {
	Role config.Role
	Name string
	Port int
}

// rolePorts is the fixed table of well-known service ports per role.
var rolePorts = []servicePort{
	{Role: config.RoleAuth, Name: "auth", Port: 9000},
	{Role: config.RoleAPI, Name: "api", Port: 8000},
	{Role: config.RoleWeb, Name: "web", Port: 3000},
}

// Result is the outcome of probing one service on one target.
type Result struct {
	Target  config.Target
	Service string
	Healthy bool
}

// Checker probes role service ports on deployment targets.
type Checker struct {
	// dial is injectable for tests; defaults to net.DialTimeout.
	dial func(network, addr string, timeout time.Duration) (net.Conn, error)
}

// New creates a Checker using real TCP dials.
func New() *Checker {
	return &Checker{dial: net.DialTimeout}
}

// Check probes every target in the topology. Multi-mode targets are probed
// on their own role's port; a single-node target is probed on all role
// ports. Check only reports; it never fails.
func (c *Checker) Check(ctx context.Context, topo config.Topology) []Result {
	log := logging.L().With("component", "health")

	var results []Result
	for _, target := range topo.Targets {
		for _, sp := range rolePorts {
			if topo.Mode == config.ModeMulti && sp.Role != target.Role {
				continue
			}
			if ctx.Err() != nil {
				return results
			}

			healthy := c.probePort(target.Host, sp.Port)
			results = append(results, Result{Target: target, Service: sp.Name, Healthy: healthy})

			if healthy {
				log.Infow("service healthy", "host", target.Host, "service", sp.Name, "port", sp.Port)
			} else {
				log.Warnw("service unhealthy", "host", target.Host, "service", sp.Name, "port", sp.Port)
			}
		}
	}
	return results
}

func (c *Checker) probePort(host string, port int) bool {
	conn, err := c.dial("tcp", fmt.Sprintf("%s:%d", host, port), checkTimeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
