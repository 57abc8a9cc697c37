/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/carverauto/fleetradar/pkg/logger"
	"github.com/carverauto/fleetradar/pkg/models"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SSHDialer opens SSH connections with the fleet credentials.
type SSHDialer struct {
	config         *ssh.ClientConfig
	port           string
	connectTimeout time.Duration
	logger         logger.Logger
}

var _ Dialer = (*SSHDialer)(nil)

// NewSSHDialer builds the client configuration. Host keys are checked
// against KnownHostsFile when set and accepted blindly otherwise.
func NewSSHDialer(cfg models.SSHConfig, log logger.Logger) (*SSHDialer, error) {
	auth, err := authMethods(cfg)
	if err != nil {
		return nil, err
	}

	hostKeys := ssh.InsecureIgnoreHostKey() //nolint:gosec // verified only when known_hosts_file is set

	if cfg.KnownHostsFile != "" {
		hostKeys, err = knownhosts.New(cfg.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load known hosts: %w", err)
		}
	}

	timeout := time.Duration(cfg.ConnectTimeout)
	if timeout <= 0 {
		timeout = time.Duration(models.DefaultConnectTimeout)
	}

	port := cfg.Port
	if port == 0 {
		port = models.DefaultSSHPort
	}

	return &SSHDialer{
		config: &ssh.ClientConfig{
			User:            cfg.Username,
			Auth:            auth,
			HostKeyCallback: hostKeys,
			Timeout:         timeout,
		},
		port:           strconv.Itoa(port),
		connectTimeout: timeout,
		logger:         log,
	}, nil
}

func authMethods(cfg models.SSHConfig) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if cfg.PrivateKeyFile != "" {
		pem, err := os.ReadFile(cfg.PrivateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key: %w", err)
		}

		var signer ssh.Signer
		if cfg.PrivateKeyPassphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(pem, []byte(cfg.PrivateKeyPassphrase))
		} else {
			signer, err = ssh.ParsePrivateKey(pem)
		}

		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}

		methods = append(methods, ssh.PublicKeys(signer))
	}

	if cfg.Password != "" {
		password := cfg.Password

		// macOS sshd commonly only offers keyboard-interactive.
		methods = append(methods,
			ssh.Password(password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}

				return answers, nil
			}),
		)
	}

	if len(methods) == 0 {
		return nil, ErrNoAuthMethod
	}

	return methods, nil
}

// Dial connects and authenticates within the connect timeout or ctx,
// whichever ends first.
func (d *SSHDialer) Dial(ctx context.Context, addr string) (Session, error) {
	hostPort := net.JoinHostPort(addr, d.port)

	dialer := net.Dialer{Timeout: d.connectTimeout}

	conn, err := dialer.DialContext(ctx, "tcp", hostPort)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", hostPort, err)
	}

	if err := conn.SetDeadline(time.Now().Add(d.connectTimeout)); err != nil {
		_ = conn.Close()
		return nil, err
	}

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })

	c, chans, reqs, err := ssh.NewClientConn(conn, hostPort, d.config)
	if !stop() || err != nil {
		_ = conn.Close()

		if err == nil {
			err = ctx.Err()
		}

		return nil, fmt.Errorf("SSH handshake with %s failed: %w", hostPort, err)
	}

	if err := conn.SetDeadline(time.Time{}); err != nil {
		_ = conn.Close()
		return nil, err
	}

	d.logger.Debug().Str("address", addr).Msg("SSH session established")

	return &sshSession{client: ssh.NewClient(c, chans, reqs)}, nil
}

type sshSession struct {
	client *ssh.Client
}

// Run executes command on a new channel. When ctx ends first the remote
// process is signalled, the channel closed and ErrCommandTimeout returned.
func (s *sshSession) Run(ctx context.Context, command string) (Output, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return Output{}, fmt.Errorf("%w: %w", ErrSessionClosed, err)
	}
	defer func() { _ = sess.Close() }()

	var stdout, stderr bytes.Buffer

	sess.Stdout = &stdout
	sess.Stderr = &stderr

	if err := sess.Start(command); err != nil {
		return Output{}, fmt.Errorf("failed to start %q: %w", command, err)
	}

	done := make(chan error, 1)

	go func() { done <- sess.Wait() }()

	select {
	case <-ctx.Done():
		_ = sess.Signal(ssh.SIGKILL)
		_ = sess.Close()

		return Output{}, fmt.Errorf("%w: %q: %w", ErrCommandTimeout, command, ctx.Err())
	case err := <-done:
		out := Output{Stdout: stdout.String(), Stderr: stderr.String()}

		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			out.ExitCode = exitErr.ExitStatus()
			return out, fmt.Errorf("%w: %q exited %d", ErrNonZeroExit, command, out.ExitCode)
		}

		if err != nil {
			return out, fmt.Errorf("%q failed: %w", command, err)
		}

		return out, nil
	}
}

func (s *sshSession) Close() error {
	return s.client.Close()
}
