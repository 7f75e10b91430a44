package ssh

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/multierr"
)

// Pool lazily opens and caches one SSH client per host so a multi-step
// deployment reuses a single connection per server.
type Pool struct {
	mu      sync.Mutex
	auth    map[string]AuthConfig
	clients map[string]*Client
}

// NewPool creates a pool over the given per-host authentication configs.
func NewPool(auth map[string]AuthConfig) *Pool {
	return &Pool{
		auth:    auth,
		clients: make(map[string]*Client),
	}
}

func (p *Pool) client(ctx context.Context, host string) (*Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[host]; ok {
		return c, nil
	}

	auth, ok := p.auth[host]
	if !ok {
		return nil, fmt.Errorf("ssh: no authentication configured for host %s", host)
	}

	c, err := NewClient(ctx, host, auth)
	if err != nil {
		return nil, err
	}
	p.clients[host] = c
	return c, nil
}

// Run executes a command on the named host, connecting on first use.
func (p *Pool) Run(ctx context.Context, host, command string) (stdout, stderr string, err error) {
	c, err := p.client(ctx, host)
	if err != nil {
		return "", "", err
	}
	return c.Run(ctx, command)
}

// RunWithInput executes a command on the named host with the given stdin.
func (p *Pool) RunWithInput(ctx context.Context, host, command string, input io.Reader) (stdout, stderr string, err error) {
	c, err := p.client(ctx, host)
	if err != nil {
		return "", "", err
	}
	return c.RunWithInput(ctx, command, input)
}

// Close closes every open connection and reports all close errors.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs error
	for host, c := range p.clients {
		if err := c.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("ssh: closing connection to %s: %w", host, err))
		}
		delete(p.clients, host)
	}
	return errs
}
