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

package scan

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

const (
	defaultPingTimeout = time.Second
	protocolICMP       = 1
	replyBufferSize    = 1500
)

// ICMPPinger sends one echo request per Ping call on its own socket, so
// concurrent pings never consume each other's replies.
type ICMPPinger struct {
	timeout    time.Duration
	privileged bool
	identifier int
	seq        atomic.Uint32
}

var _ Pinger = (*ICMPPinger)(nil)

// NewICMPPinger creates a pinger. Unprivileged pingers use datagram ICMP
// sockets (net.ipv4.ping_group_range on Linux); privileged ones use raw sockets.
func NewICMPPinger(timeout time.Duration, privileged bool) *ICMPPinger {
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}

	return &ICMPPinger{
		timeout:    timeout,
		privileged: privileged,
		identifier: os.Getpid() & 0xffff,
	}
}

// Ping returns the round trip time of one echo, ErrNoReply when nothing
// answered before the timeout or ctx ended, or a local socket error.
func (p *ICMPPinger) Ping(ctx context.Context, addr string) (time.Duration, error) {
	ip := net.ParseIP(addr).To4()
	if ip == nil {
		return 0, fmt.Errorf("%w: %s", ErrNotIPv4, addr)
	}

	network, dst := "udp4", net.Addr(&net.UDPAddr{IP: ip})
	if p.privileged {
		network, dst = "ip4:icmp", &net.IPAddr{IP: ip}
	}

	conn, err := icmp.ListenPacket(network, "0.0.0.0")
	if err != nil {
		return 0, fmt.Errorf("failed to open ICMP socket: %w", err)
	}
	defer func() { _ = conn.Close() }()

	deadline := time.Now().Add(p.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := conn.SetDeadline(deadline); err != nil {
		return 0, err
	}

	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	seq := int(p.seq.Add(1) & 0xffff)

	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Body: &icmp.Echo{
			ID:   p.identifier,
			Seq:  seq,
			Data: []byte("fleetradar"),
		},
	}

	payload, err := msg.Marshal(nil)
	if err != nil {
		return 0, err
	}

	start := time.Now()

	if _, err := conn.WriteTo(payload, dst); err != nil {
		return 0, fmt.Errorf("failed to send echo to %s: %w", addr, err)
	}

	buf := make([]byte, replyBufferSize)

	for {
		n, peer, err := conn.ReadFrom(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return 0, ErrNoReply
			}

			return 0, err
		}

		if err := p.matchReply(buf[:n], peer, ip, seq); err != nil {
			continue
		}

		return time.Since(start), nil
	}
}

// matchReply checks sequence and peer. Datagram sockets have the kernel
// rewrite the echo ID, so the ID is only compared on raw sockets.
func (p *ICMPPinger) matchReply(data []byte, peer net.Addr, want net.IP, seq int) error {
	reply, err := icmp.ParseMessage(protocolICMP, data)
	if err != nil {
		return err
	}

	if reply.Type != ipv4.ICMPTypeEchoReply {
		return errUnexpectedPacket
	}

	echo, ok := reply.Body.(*icmp.Echo)
	if !ok || echo.Seq != seq || (p.privileged && echo.ID != p.identifier) {
		return errUnexpectedPacket
	}

	if !peerIP(peer).Equal(want) {
		return errUnexpectedPacket
	}

	return nil
}

func peerIP(addr net.Addr) net.IP {
	switch a := addr.(type) {
	case *net.UDPAddr:
		return a.IP
	case *net.IPAddr:
		return a.IP
	default:
		return nil
	}
}
