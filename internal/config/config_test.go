package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"fksctl/internal/config"
)

func TestFromFlagsMulti(t *testing.T) {
	topo, err := config.FromFlags(config.TargetFlags{
		Mode:       "multi",
		AuthServer: "fks-auth",
		APIServer:  "fks-api",
		WebServer:  "fks-web",
		User:       "deploy",
	})
	if err != nil {
		t.Fatalf("FromFlags failed: %v", err)
	}

	if topo.Mode != config.ModeMulti {
		t.Errorf("mode = %q, want multi", topo.Mode)
	}
	if len(topo.Targets) != 3 {
		t.Fatalf("got %d targets, want 3", len(topo.Targets))
	}

	auth, ok := topo.TargetFor(config.RoleAuth)
	if !ok || auth.Host != "fks-auth" || auth.User != "deploy" {
		t.Errorf("auth target = %+v, want host fks-auth user deploy", auth)
	}
}

func TestFromFlagsMultiMissingHost(t *testing.T) {
	cases := map[string]config.TargetFlags{
		"missing auth": {Mode: "multi", APIServer: "b", WebServer: "c"},
		"missing api":  {Mode: "multi", AuthServer: "a", WebServer: "c"},
		"missing web":  {Mode: "multi", AuthServer: "a", APIServer: "b"},
		"missing all":  {Mode: "multi"},
	}

	for name, flags := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := config.FromFlags(flags); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestFromFlagsSingle(t *testing.T) {
	topo, err := config.FromFlags(config.TargetFlags{Mode: "single", Server: "fks-one"})
	if err != nil {
		t.Fatalf("FromFlags failed: %v", err)
	}

	if len(topo.Targets) != 1 {
		t.Fatalf("got %d targets, want 1", len(topo.Targets))
	}
	if topo.Targets[0].Role != config.RoleSingle {
		t.Errorf("role = %q, want single", topo.Targets[0].Role)
	}
	if topo.Targets[0].User != config.DefaultUser {
		t.Errorf("user = %q, want default %q", topo.Targets[0].User, config.DefaultUser)
	}
}

func TestFromFlagsSingleMissingServer(t *testing.T) {
	if _, err := config.FromFlags(config.TargetFlags{Mode: "single"}); err == nil {
		t.Error("expected validation error, got nil")
	}
}

func TestFromFlagsUnknownMode(t *testing.T) {
	if _, err := config.FromFlags(config.TargetFlags{Mode: "cluster", Server: "x"}); err == nil {
		t.Error("expected validation error, got nil")
	}
}

func TestValidateRejectsDuplicateRoles(t *testing.T) {
	topo := config.Topology{
		Mode: config.ModeMulti,
		Targets: []config.Target{
			{Host: "a", Role: config.RoleAuth},
			{Host: "b", Role: config.RoleAuth},
			{Host: "c", Role: config.RoleWeb},
		},
	}
	if err := topo.Validate(); err == nil {
		t.Error("expected validation error for duplicate roles, got nil")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topology.json")
	body := `{
		"mode": "multi",
		"targets": [
			{"host": "fks-auth", "role": "auth"},
			{"host": "fks-api", "role": "api"},
			{"host": "fks-web", "role": "web"}
		]
	}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	topo, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	api, ok := topo.TargetFor(config.RoleAPI)
	if !ok || api.Host != "fks-api" {
		t.Errorf("api target = %+v, want host fks-api", api)
	}
	if api.User != config.DefaultUser {
		t.Errorf("user default not applied, got %q", api.User)
	}
}

func TestLoadRejectsInvalidTopology(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topology.json")
	body := `{"mode": "multi", "targets": [{"host": "only-one", "role": "auth"}]}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := config.Load(path); err == nil {
		t.Error("expected validation error, got nil")
	}
}
