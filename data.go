package ftp

import (
	"crypto/tls"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/mossbrook/ftpx/internal/socks"
)

var (
	// pasvRegex matches the PASV response format: 227 Entering Passive Mode (h1,h2,h3,h4,p1,p2)
	pasvRegex = regexp.MustCompile(`\((\d+),(\d+),(\d+),(\d+),(\d+),(\d+)\)`)

	// epsvRegex matches the EPSV response format: 229 Entering Extended Passive Mode (|||port|)
	epsvRegex = regexp.MustCompile(`\(\|\|\|(\d+)\|\)`)
)

// parsePASV parses a PASV response and returns the host and port.
// Example: "227 Entering Passive Mode (192,168,1,1,195,149)"
// Returns: "192.168.1.1:50069" (195*256 + 149 = 50069)
func parsePASV(response string) (string, error) {
	matches := pasvRegex.FindStringSubmatch(response)
	if len(matches) != 7 {
		return "", fmt.Errorf("invalid PASV response: %s", response)
	}

	var h [4]int
	for i := range 4 {
		val, err := strconv.Atoi(matches[i+1])
		if err != nil || val < 0 || val > 255 {
			return "", fmt.Errorf("invalid PASV IP part: %s", matches[i+1])
		}
		h[i] = val
	}
	host := fmt.Sprintf("%d.%d.%d.%d", h[0], h[1], h[2], h[3])
	if ip := net.ParseIP(host); ip == nil || ip.To4() == nil {
		return "", fmt.Errorf("invalid IPv4 address from PASV: %s", host)
	}

	p1, err1 := strconv.Atoi(matches[5])
	p2, err2 := strconv.Atoi(matches[6])
	if err1 != nil || err2 != nil || p1 < 0 || p1 > 255 || p2 < 0 || p2 > 255 {
		return "", fmt.Errorf("invalid PASV port parts: %s, %s", matches[5], matches[6])
	}
	port := p1*256 + p2

	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

// parseEPSV parses an EPSV response and returns the port.
// Example: "229 Entering Extended Passive Mode (|||6446|)"
// Returns: "6446"
func parseEPSV(response string) (string, error) {
	matches := epsvRegex.FindStringSubmatch(response)
	if len(matches) != 2 {
		return "", fmt.Errorf("invalid EPSV response: %s", response)
	}

	port, err := strconv.Atoi(matches[1])
	if err != nil || port < 0 || port > 65535 {
		return "", fmt.Errorf("invalid EPSV port: %s", matches[1])
	}

	return matches[1], nil
}

// privateBlocks are the RFC1918 ranges a PASV-announced address is checked
// against before it is trusted over the control connection's remote host.
var privateBlocks = mustParseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		nets = append(nets, n)
	}
	return nets
}

func isPrivateIP(ip net.IP) bool {
	for _, n := range privateBlocks {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// resolveDataAddr resolves the host half of a PASV/EPSV-announced data
// address against the control connection's remote host. Two repairs apply:
//
//   - 0.0.0.0 is always replaced (some servers announce the wildcard when
//     they can't determine their own address).
//   - An RFC1918 private address is replaced by the control host whenever
//     the control host itself is NOT a private address — a classic
//     NAT misconfiguration where the server advertises its LAN-side IP to
//     clients arriving from the public internet.
//
// A private control host (e.g. a server reached over a VPN) is left alone:
// in that case the private PASV address is plausibly genuine.
func resolveDataAddr(pasvAddr, controlHost string) string {
	host, port, err := net.SplitHostPort(pasvAddr)
	if err != nil {
		return pasvAddr
	}

	if host == "0.0.0.0" {
		return net.JoinHostPort(controlHost, port)
	}

	ip := net.ParseIP(host)
	controlIP := net.ParseIP(controlHost)
	if ip != nil && controlIP != nil && isPrivateIP(ip) && !isPrivateIP(controlIP) {
		return net.JoinHostPort(controlHost, port)
	}

	return pasvAddr
}

// openDataConn opens a passive-mode data connection, optionally tunneled
// through a SOCKS5 proxy and wrapped in TLS. Active mode (PORT/EPRT) is out
// of scope: this client only ever asks the server to listen.
func (c *Client) openDataConn() (net.Conn, error) {
	return c.openPassiveDataConn()
}

// openPassiveDataConn opens a data connection using passive mode (PASV/EPSV).
func (c *Client) openPassiveDataConn() (net.Conn, error) {
	addr, err := c.resolvePassiveAddr()
	if err != nil {
		return nil, err
	}

	dataConn, err := c.dialData(addr)
	if err != nil {
		return nil, &DataConnectError{Addr: addr, Err: err}
	}

	if c.tlsConfig != nil {
		tlsConn := tls.Client(dataConn, c.tlsConfig)
		if err := tlsConn.Handshake(); err != nil {
			dataConn.Close()
			return nil, &DataConnectError{Addr: addr, Err: fmt.Errorf("TLS handshake: %w", err)}
		}
		dataConn = tlsConn
	}

	if c.timeout > 0 {
		return &deadlineConn{Conn: dataConn, timeout: c.timeout}, nil
	}

	return dataConn, nil
}

// openPassiveDataConnTunneled is openPassiveDataConn's counterpart for the
// case a SOCKS5 proxy handles the data channel and the caller only ever
// writes to it (STOR/APPE): it starts the PASV/EPSV negotiation the same
// way, but hands back a socks.Tunnel that begins buffering writes while the
// SOCKS handshake to the proxy runs in the background, instead of blocking
// the upload's io.Copy on that handshake's round trip. Not used for reads
// (LIST/MLSD/RETR): Tunnel.Read returns (0, nil) until the handshake
// resolves, which would spin a bufio.Scanner or io.Copy destination reading
// from it, so those keep using the synchronous dial in openPassiveDataConn.
func (c *Client) openPassiveDataConnTunneled() (net.Conn, error) {
	addr, err := c.resolvePassiveAddr()
	if err != nil {
		return nil, err
	}

	tunnel := &tunnelConn{Tunnel: socks.NewTunnel(c.dialContext(), c.underlyingDialer(), c.socksProxyAddr, addr)}

	if c.timeout > 0 {
		return &deadlineConn{Conn: tunnel, timeout: c.timeout}, nil
	}
	return tunnel, nil
}

// tunnelConn makes Close wait for the SOCKS5 handshake to resolve before
// closing the underlying connection. Tunnel.Close on its own closes nothing
// and reports no error if the handshake hasn't reached Established yet,
// which would silently drop whatever writes are still queued; waiting here
// ensures every byte written during upload actually reaches the proxy (or
// the handshake's failure surfaces) before the data connection is torn down.
type tunnelConn struct {
	*socks.Tunnel
}

func (t *tunnelConn) Close() error {
	waitErr := t.Tunnel.Wait()
	closeErr := t.Tunnel.Close()
	if waitErr != nil {
		return waitErr
	}
	return closeErr
}

// waitForTunnelFlush blocks until dataConn's SOCKS5 handshake, if any, has
// resolved and its queued writes have been flushed to the real connection.
// The size probe's whole premise is that the bytes it's about to ask the
// server about have actually left this process; Tunnel's buffered Write
// returns as soon as a write is queued, well before that's guaranteed, so
// the probe has to wait here first rather than right after Close (which
// only runs once the transfer is already finishing).
func waitForTunnelFlush(dataConn net.Conn) {
	conn := dataConn
	if d, ok := conn.(*deadlineConn); ok {
		conn = d.Conn
	}
	if w, ok := conn.(interface{ Wait() error }); ok {
		_ = w.Wait()
	}
}

// resolvePassiveAddr runs the EPSV/PASV negotiation and returns the address
// the server told us to connect to for the data channel.
func (c *Client) resolvePassiveAddr() (string, error) {
	var addr string

	if !c.disableEPSV {
		if resp, err := c.sendCommand("EPSV"); err == nil {
			if resp.Code == 502 {
				c.disableEPSV = true
			} else if resp.Is2xx() {
				port, parseErr := parseEPSV(resp.String())
				if parseErr == nil {
					addr = net.JoinHostPort(c.host, port)
				}
			}
		}
	}

	if addr != "" {
		return addr, nil
	}

	resp, err := c.sendCommand("PASV")
	if err != nil {
		return "", fmt.Errorf("PASV failed: %w", err)
	}

	if !resp.Is2xx() {
		return "", &ProtocolError{
			Command:  "PASV",
			Response: resp.Message,
			Code:     resp.Code,
		}
	}

	addr, err = parsePASV(resp.String())
	if err != nil {
		return "", err
	}

	return resolveDataAddr(addr, c.host), nil
}

// isUploadCommand reports whether cmd sends bytes to the server over the
// data connection rather than receiving them.
func isUploadCommand(cmd string) bool {
	return cmd == "STOR" || cmd == "APPE"
}

// dialData opens the data connection, reusing the same dialer/proxy the
// control channel was opened through so both channels present as the same
// client to the remote.
func (c *Client) dialData(addr string) (net.Conn, error) {
	return c.dial("tcp", addr)
}

// cmdDataConnFrom executes a command that requires a data connection.
// It opens the data connection, sends the command, and returns the response and data connection.
// The caller is responsible for closing the data connection and reading the final response.
//
// Always called from inside a task already running on the client's
// taskQueue (see runExclusive in client.go) — it sends the command via
// doSendCommand, not sendCommand, so it doesn't submit a second, nested
// task to the same queue.
func (c *Client) cmdDataConnFrom(cmd string, args ...string) (*Response, net.Conn, error) {
	var dataConn net.Conn
	var err error

	if c.socksProxyAddr != "" && c.tlsConfig == nil && isUploadCommand(cmd) {
		dataConn, err = c.openPassiveDataConnTunneled()
	} else {
		dataConn, err = c.openDataConn()
	}
	if err != nil {
		return nil, nil, err
	}

	c.mu.Lock()
	c.activeDataConn = dataConn
	c.mu.Unlock()
	atomic.StoreInt32(&c.transferInProgress, 1)

	resp, err := c.doSendCommand(cmd, args...)
	if err != nil {
		dataConn.Close()
		c.mu.Lock()
		c.activeDataConn = nil
		c.mu.Unlock()
		atomic.StoreInt32(&c.transferInProgress, 0)
		return nil, nil, err
	}

	if resp.Code < 100 || resp.Code >= 400 {
		dataConn.Close()
		c.mu.Lock()
		c.activeDataConn = nil
		c.mu.Unlock()
		atomic.StoreInt32(&c.transferInProgress, 0)
		return resp, nil, &ProtocolError{
			Command:  cmd,
			Response: resp.Message,
			Code:     resp.Code,
		}
	}

	return resp, dataConn, nil
}

// finishDataConn reconciles the two independent completion signals of a
// transfer — the data channel closing and the control channel's final
// response — through resolveTransfer. See resolver.go for the decision
// table; this just wires the data-side close into it.
func (c *Client) finishDataConn(dataConn net.Conn) error {
	return c.finishDataConnWithProbe(dataConn, false, false)
}

// finishDataConnWithProbe is finishDataConn extended with the outcome of a
// SOCKS5 size probe that already ran against the local source's EOF, before
// this call closes the data socket (see upload in transfer.go and
// sizeprobe.go) — probed reports whether one ran at all, and
// remoteSizeAlright its verdict.
//
// The data-side close and the control-side response read race genuinely:
// closing a TCP connection can itself block or return ECONNRESET (a proxy
// tearing down its half early), while the server is independently writing
// its final "226 Transfer complete" down the control channel. Both legs run
// concurrently and resolveTransfer reconciles whatever order they land in.
func (c *Client) finishDataConnWithProbe(dataConn net.Conn, probed, remoteSizeAlright bool) error {
	dataErrCh := make(chan error, 1)
	go func() { dataErrCh <- dataConn.Close() }()

	if c.timeout > 0 {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.timeout))
	}
	resp, respErr := readResponse(c.reader)
	dataErr := <-dataErrCh

	c.mu.Lock()
	c.activeDataConn = nil
	c.mu.Unlock()
	atomic.StoreInt32(&c.transferInProgress, 0)

	if c.logger != nil && resp != nil {
		c.logger.Debug("ftp data transfer complete", "code", resp.Code, "message", resp.Message, "data_close_err", dataErr)
	}

	outcome := resolveTransfer(resp, respErr, dataErr, probed, remoteSizeAlright)
	if outcome.verdict == verdictSuccess {
		return nil
	}
	return outcome.err
}
