package ftp

import (
	"fmt"
	"net"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// multiAcceptServer is mockServer generalized to accept more than one
// connection, since sizeProbe.verify opens a second, independent control
// connection while the first one (the transfer's own) is still open.
type multiAcceptServer struct {
	listener  net.Listener
	addr      string
	sizeReply string
}

func newMultiAcceptServer(t *testing.T, sizeReply string) *multiAcceptServer {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return &multiAcceptServer{listener: l, addr: l.Addr().String(), sizeReply: sizeReply}
}

func (s *multiAcceptServer) start() {
	go func() {
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				return
			}
			go s.serve(conn)
		}
	}()
}

func (s *multiAcceptServer) serve(conn net.Conn) {
	defer conn.Close()
	fmt.Fprintf(conn, "220 Service ready\r\n")

	tc := textproto.NewConn(conn)
	defer tc.Close()

	for {
		line, err := tc.ReadLine()
		if err != nil {
			return
		}
		parts := strings.SplitN(line, " ", 2)
		cmd := strings.ToUpper(parts[0])
		switch cmd {
		case "USER":
			_ = tc.PrintfLine("331 User name okay, need password.")
		case "PASS":
			_ = tc.PrintfLine("230 User logged in, proceed.")
		case "TYPE":
			_ = tc.PrintfLine("200 Command okay.")
		case "STRU":
			_ = tc.PrintfLine("200 Command okay.")
		case "SIZE":
			_ = tc.PrintfLine("%s", s.sizeReply)
		case "QUIT":
			_ = tc.PrintfLine("221 Service closing control connection.")
			return
		default:
			_ = tc.PrintfLine("502 Command not implemented.")
		}
	}
}

func (s *multiAcceptServer) stop() {
	s.listener.Close()
}

func TestSizeProbe_VerifyMatchingSizeSucceeds(t *testing.T) {
	t.Parallel()
	srv := newMultiAcceptServer(t, "213 4096")
	srv.start()
	defer srv.stop()

	c, err := Dial(srv.addr, WithTimeout(1*time.Second))
	require.NoError(t, err)
	defer func() { _ = c.Quit() }()
	require.NoError(t, c.Login("anonymous", "anonymous"))

	probe := newSizeProbe(c, "remote.bin", 4096)
	ok, err := probe.verify()
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSizeProbe_VerifyMismatchedSizeFails(t *testing.T) {
	t.Parallel()
	srv := newMultiAcceptServer(t, "213 100")
	srv.start()
	defer srv.stop()

	c, err := Dial(srv.addr, WithTimeout(1*time.Second))
	require.NoError(t, err)
	defer func() { _ = c.Quit() }()
	require.NoError(t, c.Login("anonymous", "anonymous"))

	probe := newSizeProbe(c, "remote.bin", 4096)
	ok, err := probe.verify()
	require.NoError(t, err, "a size mismatch is a truncated upload, not a probe error")
	require.False(t, ok)
}

func TestSizeProbe_VerifyPropagatesSizeCommandFailure(t *testing.T) {
	t.Parallel()
	srv := newMultiAcceptServer(t, "550 File not found")
	srv.start()
	defer srv.stop()

	c, err := Dial(srv.addr, WithTimeout(1*time.Second))
	require.NoError(t, err)
	defer func() { _ = c.Quit() }()
	require.NoError(t, c.Login("anonymous", "anonymous"))

	probe := newSizeProbe(c, "remote.bin", 4096)
	_, err = probe.verify()
	require.Error(t, err)
}
