package runner_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"fksctl/internal/config"
	"fksctl/internal/runner"
)

type fakePool struct {
	commands []string
	uploaded string

	execErr    error
	execOutput string
	cleanupErr error
}

func (f *fakePool) Run(_ context.Context, _, command string) (string, string, error) {
	f.commands = append(f.commands, command)
	if strings.HasPrefix(command, "bash ") {
		return f.execOutput, "", f.execErr
	}
	if strings.HasPrefix(command, "rm ") {
		return "", "", f.cleanupErr
	}
	return "", "", nil
}

func (f *fakePool) RunWithInput(_ context.Context, _, command string, input io.Reader) (string, string, error) {
	f.commands = append(f.commands, command)
	data, err := io.ReadAll(input)
	if err != nil {
		return "", "", err
	}
	f.uploaded = string(data)
	return "", "", nil
}

var target = config.Target{Host: "fks-api", User: "fks_user", Role: config.RoleAPI}

func TestRunStagesExecutesAndCleansUp(t *testing.T) {
	pool := &fakePool{execOutput: "containers started\n"}
	r := runner.New(pool)

	out, err := r.Run(context.Background(), target, "#!/usr/bin/env bash\necho hi\n")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out != "containers started\n" {
		t.Errorf("output = %q", out)
	}

	if pool.uploaded != "#!/usr/bin/env bash\necho hi\n" {
		t.Errorf("uploaded body = %q", pool.uploaded)
	}

	if len(pool.commands) != 3 {
		t.Fatalf("commands = %v, want stage+exec+cleanup", pool.commands)
	}
	if !strings.Contains(pool.commands[0], "cat > /tmp/fksctl-deploy.sh") ||
		!strings.Contains(pool.commands[0], "chmod +x") {
		t.Errorf("stage command = %q", pool.commands[0])
	}
	if pool.commands[1] != "bash /tmp/fksctl-deploy.sh 2>&1" {
		t.Errorf("exec command = %q", pool.commands[1])
	}
	if pool.commands[2] != "rm -f /tmp/fksctl-deploy.sh" {
		t.Errorf("cleanup command = %q", pool.commands[2])
	}
}

func TestRunPropagatesScriptFailureWithOutput(t *testing.T) {
	pool := &fakePool{execOutput: "pull failed\n", execErr: errors.New("exit status 1")}
	r := runner.New(pool)

	out, err := r.Run(context.Background(), target, "body")
	if err == nil {
		t.Fatal("expected error from failing script")
	}
	if out != "pull failed\n" {
		t.Errorf("output = %q, want remote output preserved on failure", out)
	}

	// Cleanup still runs after a failed script.
	if got := pool.commands[len(pool.commands)-1]; got != "rm -f /tmp/fksctl-deploy.sh" {
		t.Errorf("last command = %q, want cleanup", got)
	}
}

func TestRunCleanupFailureNotSurfaced(t *testing.T) {
	pool := &fakePool{cleanupErr: errors.New("permission denied")}
	r := runner.New(pool)

	if _, err := r.Run(context.Background(), target, "body"); err != nil {
		t.Errorf("cleanup failure surfaced as error: %v", err)
	}
}
