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

//go:generate mockgen -destination=mock_remote.go -package=remote github.com/carverauto/fleetradar/pkg/remote Dialer,Session

// Package remote is the command channel used to query fleet hosts.
package remote

import (
	"context"
	"errors"
)

var (
	ErrCommandTimeout = errors.New("remote command timed out")
	ErrNonZeroExit    = errors.New("remote command exited with non-zero status")
	ErrNoAuthMethod   = errors.New("no SSH authentication method configured")
	ErrSessionClosed  = errors.New("session closed")
)

// Output is what a remote command wrote before it exited.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Dialer opens a session to one host.
type Dialer interface {
	Dial(ctx context.Context, addr string) (Session, error)
}

// Session runs commands on an open connection. Run is safe for concurrent
// use; each call gets its own channel.
type Session interface {
	Run(ctx context.Context, command string) (Output, error)
	Close() error
}
