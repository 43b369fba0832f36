package socks

import (
	"context"
	"io"
	"net"
	"sync"
	"time"
)

type stage int

const (
	stageGreeting stage = iota
	stageConnectReply
	stageEstablished
)

// Tunnel is a net.Conn that transparently negotiates a SOCKS5 CONNECT before
// forwarding payload bytes. Writes and pipe attachments issued before the
// handshake completes are queued and flushed, in order, the instant the
// tunnel reaches the Established stage — callers never need to wait for
// Established themselves. Reads issued before Established return (0, nil).
type Tunnel struct {
	dialer     ContextDialer
	proxyAddr  string
	targetAddr string

	mu      sync.Mutex
	stage   stage
	conn    net.Conn
	err     error
	pending [][]byte
	pipes   []io.Writer
	ready   chan struct{}
}

// NewTunnel starts the SOCKS5 handshake to proxyAddr in the background and
// returns immediately. The returned Tunnel behaves as a net.Conn sink/source
// for targetAddr once the handshake completes; until then it buffers.
func NewTunnel(ctx context.Context, dialer ContextDialer, proxyAddr, targetAddr string) *Tunnel {
	t := &Tunnel{
		dialer:     dialer,
		proxyAddr:  proxyAddr,
		targetAddr: targetAddr,
		ready:      make(chan struct{}),
	}
	go t.negotiate(ctx)
	return t
}

func (t *Tunnel) negotiate(ctx context.Context) {
	conn, err := Dial(ctx, t.dialer, t.proxyAddr, t.targetAddr)

	t.mu.Lock()
	defer t.mu.Unlock()

	if err != nil {
		t.err = err
		t.stage = stageEstablished // terminal: no further negotiation possible
		close(t.ready)
		return
	}

	t.conn = conn
	t.stage = stageEstablished

	for _, buf := range t.pending {
		if _, werr := conn.Write(buf); werr != nil {
			t.err = werr
			break
		}
	}
	t.pending = nil

	for _, w := range t.pipes {
		go func(w io.Writer) { _, _ = io.Copy(w, conn) }(w)
	}
	t.pipes = nil

	close(t.ready)
}

// Wait blocks until the handshake has resolved (success or failure).
func (t *Tunnel) Wait() error {
	<-t.ready
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Write queues bytes if the tunnel isn't Established yet, otherwise writes
// straight through. Order is preserved either way.
func (t *Tunnel) Write(p []byte) (int, error) {
	t.mu.Lock()
	if t.stage != stageEstablished {
		buf := make([]byte, len(p))
		copy(buf, p)
		t.pending = append(t.pending, buf)
		t.mu.Unlock()
		return len(p), nil
	}
	conn, err := t.conn, t.err
	t.mu.Unlock()

	if err != nil {
		return 0, err
	}
	return conn.Write(p)
}

// Read returns (0, nil) before Established, per the buffered-I/O contract.
func (t *Tunnel) Read(p []byte) (int, error) {
	t.mu.Lock()
	established := t.stage == stageEstablished
	conn, err := t.conn, t.err
	t.mu.Unlock()

	if !established {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return conn.Read(p)
}

// PipeTo attaches w as a sink for all bytes read from the tunnel once
// established. If already established, the copy starts immediately.
func (t *Tunnel) PipeTo(w io.Writer) {
	t.mu.Lock()
	if t.stage != stageEstablished {
		t.pipes = append(t.pipes, w)
		t.mu.Unlock()
		return
	}
	conn := t.conn
	t.mu.Unlock()
	go func() { _, _ = io.Copy(w, conn) }()
}

func (t *Tunnel) Close() error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (t *Tunnel) LocalAddr() net.Addr {
	if t.conn != nil {
		return t.conn.LocalAddr()
	}
	return nil
}

func (t *Tunnel) RemoteAddr() net.Addr {
	if t.conn != nil {
		return t.conn.RemoteAddr()
	}
	return nil
}

func (t *Tunnel) SetDeadline(dl time.Time) error {
	if t.conn != nil {
		return t.conn.SetDeadline(dl)
	}
	return nil
}

func (t *Tunnel) SetReadDeadline(dl time.Time) error {
	if t.conn != nil {
		return t.conn.SetReadDeadline(dl)
	}
	return nil
}

func (t *Tunnel) SetWriteDeadline(dl time.Time) error {
	if t.conn != nil {
		return t.conn.SetWriteDeadline(dl)
	}
	return nil
}

var _ net.Conn = (*Tunnel)(nil)
