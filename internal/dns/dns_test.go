package dns

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"fksctl/internal/config"
)

type helperCall struct {
	name string
	args []string
}

func writeHelper(t *testing.T, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "update-dns.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), mode); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestReconciler(env config.Env, calls *[]helperCall, runErr error) *Reconciler {
	r := New(env)
	r.run = func(_ context.Context, name string, args ...string) ([]byte, error) {
		*calls = append(*calls, helperCall{name: name, args: args})
		return []byte("ok"), runErr
	}
	return r
}

func multiTopology() config.Topology {
	return config.Topology{
		Mode: config.ModeMulti,
		Targets: []config.Target{
			{Host: "fks-auth", Role: config.RoleAuth},
			{Host: "fks-api", Role: config.RoleAPI},
			{Host: "fks-web", Role: config.RoleWeb},
		},
	}
}

func TestReconcileSkipsWithoutCredentials(t *testing.T) {
	var calls []helperCall
	env := config.Env{DNSHelper: writeHelper(t, 0o755)} // no token, no zone
	r := newTestReconciler(env, &calls, nil)

	r.Reconcile(context.Background(), multiTopology(), map[config.Role]string{
		config.RoleAuth: "100.64.0.1",
	})

	if len(calls) != 0 {
		t.Errorf("helper invoked %d times without credentials, want 0", len(calls))
	}
}

func TestReconcileSkipsWhenHelperMissing(t *testing.T) {
	var calls []helperCall
	env := config.Env{
		CloudflareAPIToken: "tok",
		CloudflareZoneID:   "zone",
		DNSHelper:          filepath.Join(t.TempDir(), "does-not-exist.sh"),
	}
	r := newTestReconciler(env, &calls, nil)

	r.Reconcile(context.Background(), multiTopology(), map[config.Role]string{
		config.RoleAuth: "100.64.0.1",
	})

	if len(calls) != 0 {
		t.Errorf("helper invoked %d times while missing, want 0", len(calls))
	}
}

func TestReconcileSkipsWhenHelperNotExecutable(t *testing.T) {
	var calls []helperCall
	env := config.Env{
		CloudflareAPIToken: "tok",
		CloudflareZoneID:   "zone",
		DNSHelper:          writeHelper(t, 0o644),
	}
	r := newTestReconciler(env, &calls, nil)

	r.Reconcile(context.Background(), multiTopology(), map[config.Role]string{
		config.RoleAuth: "100.64.0.1",
	})

	if len(calls) != 0 {
		t.Errorf("helper invoked %d times while not executable, want 0", len(calls))
	}
}

func TestReconcileMultiPartialAddresses(t *testing.T) {
	var calls []helperCall
	env := config.Env{
		CloudflareAPIToken: "tok",
		CloudflareZoneID:   "zone",
		DNSHelper:          writeHelper(t, 0o755),
	}
	r := newTestReconciler(env, &calls, nil)

	// web did not resolve; it must simply be omitted.
	r.Reconcile(context.Background(), multiTopology(), map[config.Role]string{
		config.RoleAuth: "100.64.0.1",
		config.RoleAPI:  "100.64.0.2",
	})

	if len(calls) != 1 {
		t.Fatalf("helper invoked %d times, want 1", len(calls))
	}

	want := []string{"update-multi-server", "--auth-ip", "100.64.0.1", "--api-ip", "100.64.0.2"}
	got := calls[0].args
	if len(got) != len(want) {
		t.Fatalf("args = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("args = %v, want %v", got, want)
		}
	}
}

func TestReconcileMultiNothingResolved(t *testing.T) {
	var calls []helperCall
	env := config.Env{
		CloudflareAPIToken: "tok",
		CloudflareZoneID:   "zone",
		DNSHelper:          writeHelper(t, 0o755),
	}
	r := newTestReconciler(env, &calls, nil)

	r.Reconcile(context.Background(), multiTopology(), map[config.Role]string{})

	if len(calls) != 0 {
		t.Errorf("helper invoked %d times with nothing resolved, want 0", len(calls))
	}
}

func TestReconcileSingle(t *testing.T) {
	var calls []helperCall
	env := config.Env{
		CloudflareAPIToken: "tok",
		CloudflareZoneID:   "zone",
		DNSHelper:          writeHelper(t, 0o755),
	}
	r := newTestReconciler(env, &calls, nil)

	topo := config.Topology{
		Mode:    config.ModeSingle,
		Targets: []config.Target{{Host: "fks-one", Role: config.RoleSingle}},
	}
	r.Reconcile(context.Background(), topo, map[config.Role]string{
		config.RoleSingle: "100.64.0.9",
	})

	if len(calls) != 1 {
		t.Fatalf("helper invoked %d times, want 1", len(calls))
	}
	want := []string{"update-service", "--service", "fks", "--ip", "100.64.0.9"}
	got := calls[0].args
	if len(got) != len(want) {
		t.Fatalf("args = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("args = %v, want %v", got, want)
		}
	}
}

func TestReconcileSwallowsHelperFailure(t *testing.T) {
	var calls []helperCall
	env := config.Env{
		CloudflareAPIToken: "tok",
		CloudflareZoneID:   "zone",
		DNSHelper:          writeHelper(t, 0o755),
	}
	r := newTestReconciler(env, &calls, errors.New("exit status 1"))

	// Must not panic or propagate; Reconcile has no error return by design.
	r.Reconcile(context.Background(), multiTopology(), map[config.Role]string{
		config.RoleAuth: "100.64.0.1",
	})

	if len(calls) != 1 {
		t.Errorf("helper invoked %d times, want 1", len(calls))
	}
}
