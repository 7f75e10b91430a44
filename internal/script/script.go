// Package script builds the per-role bash scripts that run on FKS servers
// during a deployment. Scripts are generated from typed parameters; every
// interpolated value is shell-quoted, so hostnames containing metacharacters
// cannot break out of the script.
package script

import (
	"fmt"
	"strings"
	"time"
)

// checkoutDir is the fixed service checkout on every FKS server, cloned by
// the provisioning workflow before deployments run.
const checkoutDir = "$HOME/fks"

// Well-known local service ports.
const (
	AuthPort = 9000
	APIPort  = 8000
	WebPort  = 3000
)

// AuthServiceURL is the externally-addressable auth URL handed to the API
// service so it can discover its auth dependency at boot.
func AuthServiceURL(authHost string) string {
	return fmt.Sprintf("http://%s:%d", authHost, AuthPort)
}

type export struct {
	name  string
	value string
}

type spec struct {
	manifest  string
	grace     time.Duration
	exports   []export
	endpoints []string
}

// Auth builds the deployment script for the auth server.
func Auth() string {
	return build(spec{
		manifest: "docker-compose.auth.yml",
		grace:    30 * time.Second,
		endpoints: []string{
			fmt.Sprintf("http://localhost:%d/api/health", AuthPort),
			fmt.Sprintf("http://localhost:%d/ping", AuthPort),
		},
	})
}

// API builds the deployment script for the API server. When authHost is
// non-empty the script exports FKS_AUTH_SERVICE_URL before starting the
// containers; when empty no such line is emitted and the service boots
// without auth discovery.
func API(authHost string) string {
	s := spec{
		manifest: "docker-compose.api.yml",
		grace:    60 * time.Second,
		endpoints: []string{
			fmt.Sprintf("http://localhost:%d/health", APIPort),
			fmt.Sprintf("http://localhost:%d/docs", APIPort),
		},
	}
	if authHost != "" {
		s.exports = append(s.exports, export{
			name:  "FKS_AUTH_SERVICE_URL",
			value: AuthServiceURL(authHost),
		})
	}
	return build(s)
}

// Web builds the deployment script for the web server. The web containers
// have no boot-time dependency discovery, so the script takes no parameters.
func Web() string {
	return build(spec{
		manifest: "docker-compose.web.yml",
		grace:    30 * time.Second,
		endpoints: []string{
			fmt.Sprintf("http://localhost:%d/", WebPort),
		},
	})
}

// Single builds the deployment script for a single-node install running the
// full stack from the default manifest.
func Single() string {
	return build(spec{
		manifest: "docker-compose.yml",
		grace:    90 * time.Second,
		endpoints: []string{
			fmt.Sprintf("http://localhost:%d/api/health", AuthPort),
			fmt.Sprintf("http://localhost:%d/health", APIPort),
			fmt.Sprintf("http://localhost:%d/", WebPort),
		},
	})
}

func build(s spec) string {
	var b strings.Builder

	b.WriteString("#!/usr/bin/env bash\n")
	b.WriteString("set -euo pipefail\n\n")
	fmt.Fprintf(&b, "cd \"%s\"\n\n", checkoutDir)

	for _, e := range s.exports {
		fmt.Fprintf(&b, "export %s=%s\n", e.name, Quote(e.value))
	}
	if len(s.exports) > 0 {
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "echo \"[deploy] pulling images (%s)\"\n", s.manifest)
	fmt.Fprintf(&b, "docker compose -f %s pull\n\n", Quote(s.manifest))

	b.WriteString("echo \"[deploy] starting containers\"\n")
	fmt.Fprintf(&b, "docker compose -f %s up -d\n\n", Quote(s.manifest))

	grace := int(s.grace / time.Second)
	fmt.Fprintf(&b, "echo \"[deploy] waiting %ds for services to settle\"\n", grace)
	fmt.Fprintf(&b, "sleep %d\n\n", grace)

	fmt.Fprintf(&b, "docker compose -f %s ps\n\n", Quote(s.manifest))

	// Diagnostic probes only: service warm-up time varies, so failures here
	// must not fail the deployment.
	b.WriteString("check() {\n")
	b.WriteString("    if curl -fsS --max-time 5 \"$1\" >/dev/null 2>&1; then\n")
	b.WriteString("        echo \"[deploy] OK $1\"\n")
	b.WriteString("    else\n")
	b.WriteString("        echo \"[deploy] WARN no response from $1\"\n")
	b.WriteString("    fi\n")
	b.WriteString("}\n")
	for _, ep := range s.endpoints {
		fmt.Fprintf(&b, "check %s\n", Quote(ep))
	}

	return b.String()
}

// Quote wraps s in single quotes with embedded single quotes escaped, making
// it safe to splice into a bash script.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
