package ftp

import "fmt"

// sizeProbe resolves the "did the upload really finish" ambiguity a SOCKS5
// proxy introduces: the local pipeline can observe end-of-input as soon as
// the proxy accepts the last byte, before the proxy has finished forwarding
// to the real server. It opens a second, fully independent control
// connection — its own TCP (or SOCKS) dial, its own login — and asks the
// server for the file's size with SIZE. That sidesteps the upload's own
// data connection entirely: the server's own bookkeeping is the one thing
// not in question. It runs as soon as the local source reaches EOF, before
// the upload's data socket is closed, not after.
type sizeProbe struct {
	client       *Client
	remotePath   string
	expectedSize int64
}

// newSizeProbe captures what's needed to re-verify remotePath's size after
// the upload's own data connection finished ambiguously. It must be created
// before the transfer starts, since expectedSize is the number of bytes the
// local side believes it sent.
func newSizeProbe(c *Client, remotePath string, expectedSize int64) *sizeProbe {
	return &sizeProbe{client: c, remotePath: remotePath, expectedSize: expectedSize}
}

// verify reconnects and compares the server's SIZE answer against
// expectedSize. Returns false (not an error) if the sizes genuinely
// disagree — that is a truncated upload, not a probe failure.
func (p *sizeProbe) verify() (bool, error) {
	probeConn, err := p.client.reconnectForProbe()
	if err != nil {
		return false, fmt.Errorf("failed to open verification connection: %w", err)
	}
	defer probeConn.Quit()

	size, err := probeConn.Size(p.remotePath)
	if err != nil {
		return false, fmt.Errorf("SIZE query failed: %w", err)
	}

	return size == p.expectedSize, nil
}
