package ssh

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"golang.org/x/crypto/ssh"
)

// dialTimeout bounds both the TCP dial and the SSH handshake. Probes rely on
// this staying short so an unreachable server fails the run quickly.
const dialTimeout = 10 * time.Second

// Client wraps an SSH client connection for remote command execution.
type Client struct {
	client *ssh.Client
	host   string
}

// AuthConfig contains SSH authentication configuration for one host.
type AuthConfig struct {
	Username       string
	Password       string
	PrivateKeyPath string
	Port           int // SSH port (default: 22)
}

// NewClient opens an SSH connection to host using the provided authentication.
func NewClient(ctx context.Context, host string, auth AuthConfig) (*Client, error) {
	var authMethods []ssh.AuthMethod

	// Key authentication is preferred; the setup workflow provisions keys on
	// every server before deployment runs.
	if auth.PrivateKeyPath != "" {
		keyData, err := os.ReadFile(auth.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("ssh: failed to read private key from %s: %w", auth.PrivateKeyPath, err)
		}
		signer, err := ssh.ParsePrivateKey(keyData)
		if err != nil {
			return nil, fmt.Errorf("ssh: failed to parse private key from %s: %w", auth.PrivateKeyPath, err)
		}
		authMethods = append(authMethods, ssh.PublicKeys(signer))
	}

	if auth.Password != "" {
		authMethods = append(authMethods, ssh.Password(auth.Password))
	}

	if len(authMethods) == 0 {
		return nil, fmt.Errorf("ssh: no authentication method provided (need private key or password)")
	}

	config := &ssh.ClientConfig{
		User:            auth.Username,
		Auth:            authMethods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // automation against ephemeral mesh addresses
		Timeout:         dialTimeout,
	}

	addr := host
	if _, _, err := net.SplitHostPort(host); err != nil {
		port := "22"
		if auth.Port > 0 {
			port = fmt.Sprintf("%d", auth.Port)
		}
		addr = net.JoinHostPort(host, port)
	}

	dialer := &net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("ssh: failed to dial %s: %w", addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh: failed to establish connection to %s: %w", addr, err)
	}

	return &Client{
		client: ssh.NewClient(sshConn, chans, reqs),
		host:   host,
	}, nil
}

// Run executes a command on the remote host and returns stdout and stderr.
func (c *Client) Run(ctx context.Context, command string) (stdout, stderr string, err error) {
	return c.run(ctx, command, nil)
}

// RunWithInput executes a command on the remote host with the given stdin.
func (c *Client) RunWithInput(ctx context.Context, command string, input io.Reader) (stdout, stderr string, err error) {
	return c.run(ctx, command, input)
}

func (c *Client) run(ctx context.Context, command string, input io.Reader) (string, string, error) {
	session, err := c.client.NewSession()
	if err != nil {
		return "", "", fmt.Errorf("ssh: failed to create session on %s: %w", c.host, err)
	}
	defer session.Close()

	var stdoutBuf, stderrBuf bytes.Buffer
	session.Stdout = &stdoutBuf
	session.Stderr = &stderrBuf
	if input != nil {
		session.Stdin = input
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- session.Run(command)
	}()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return "", "", ctx.Err()
	case err := <-errChan:
		return stdoutBuf.String(), stderrBuf.String(), err
	}
}

// Close closes the SSH connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// Host returns the hostname this client is connected to.
func (c *Client) Host() string {
	return c.host
}
