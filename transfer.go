package ftp

import (
	"fmt"
	"io"
	"net"

	"github.com/mossbrook/ftpx/internal/ratelimit"
)

// countingWriter tracks how many bytes have been written through it, so an
// upload tunneled through a SOCKS5 proxy can be independently verified by
// sizeProbe after an ambiguous data-connection reset.
type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// upload drives a STOR/APPE-shaped transfer: it copies r to dataConn, then
// resolves the two completion signals. When a SOCKS5 proxy is configured,
// the size probe runs the moment the local source reaches EOF — before
// dataConn is closed — per the pass-through's end-of-input contract: the
// proxy can accept the last local byte well before it finishes forwarding
// to the real server, so a probe run only in reaction to a later close
// error would already be too late to catch a clean-looking truncation.
func (c *Client) upload(cmd, remotePath string, r io.Reader, dataConn net.Conn) error {
	cw := &countingWriter{w: dataConn}
	dst := io.Writer(cw)
	if c.limiter != nil {
		dst = ratelimit.NewWriter(dst, c.limiter)
	}

	_, copyErr := io.Copy(dst, r)

	var probed, remoteSizeAlright bool
	var probeErr error
	if copyErr == nil && c.socksProxyAddr != "" {
		waitForTunnelFlush(dataConn)
		probed = true
		remoteSizeAlright, probeErr = newSizeProbe(c, remotePath, cw.n).verify()
	}

	finishErr := c.finishDataConnWithProbe(dataConn, probed, remoteSizeAlright)

	if copyErr != nil {
		return fmt.Errorf("%s failed: %w", cmd, copyErr)
	}
	if probeErr != nil {
		return fmt.Errorf("size probe after SOCKS5 upload: %w", probeErr)
	}
	if probed && !remoteSizeAlright {
		return fmt.Errorf("upload truncated: remote size does not match bytes sent")
	}
	if finishErr != nil {
		return finishErr
	}
	return nil
}

// download drives a RETR-shaped transfer: copies dataConn to w and resolves
// completion. Downloads never need the size probe — the local byte count
// the caller ends up with IS the ground truth, unlike an upload where the
// server's bookkeeping is the only authority.
func (c *Client) download(w io.Writer, dataConn net.Conn) error {
	src := io.Reader(dataConn)
	if c.limiter != nil {
		src = ratelimit.NewReader(src, c.limiter)
	}

	_, copyErr := io.Copy(w, src)
	finishErr := c.finishDataConn(dataConn)

	if copyErr != nil {
		return fmt.Errorf("download failed: %w", copyErr)
	}
	if finishErr != nil {
		return finishErr
	}
	return nil
}

// Store uploads data from an io.Reader to the remote path.
// The transfer is performed in binary mode (TYPE I).
//
// Example:
//
//	file, err := os.Open("local.txt")
//	if err != nil {
//	    return err
//	}
//	defer file.Close()
//
//	err = client.Store("remote.txt", file)
func (c *Client) Store(remotePath string, r io.Reader) error {
	if err := c.Type("I"); err != nil {
		return fmt.Errorf("failed to set binary mode: %w", err)
	}

	return c.runExclusive(func() error {
		_, dataConn, err := c.cmdDataConnFrom("STOR", remotePath)
		if err != nil {
			return err
		}
		return c.upload("STOR", remotePath, r, dataConn)
	})
}

// StoreFrom uploads a local file to the remote path.
// This is a convenience wrapper around Store.
func (c *Client) StoreFrom(remotePath, localPath string) error {
	file, err := c.filesystem().Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open local file: %w", err)
	}
	defer file.Close()

	return c.Store(remotePath, file)
}

// Retrieve downloads data from the remote path to an io.Writer.
// The transfer is performed in binary mode (TYPE I).
//
// Example:
//
//	file, err := os.Create("local.txt")
//	if err != nil {
//	    return err
//	}
//	defer file.Close()
//
//	err = client.Retrieve("remote.txt", file)
func (c *Client) Retrieve(remotePath string, w io.Writer) error {
	if err := c.Type("I"); err != nil {
		return fmt.Errorf("failed to set binary mode: %w", err)
	}

	return c.runExclusive(func() error {
		_, dataConn, err := c.cmdDataConnFrom("RETR", remotePath)
		if err != nil {
			return err
		}
		return c.download(w, dataConn)
	})
}

// RetrieveTo downloads a remote file to a local path.
// This is a convenience wrapper around Retrieve.
func (c *Client) RetrieveTo(remotePath, localPath string) error {
	fsys := c.filesystem()

	file, err := fsys.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file: %w", err)
	}
	defer file.Close()

	if err := c.Retrieve(remotePath, file); err != nil {
		_ = fsys.Remove(localPath)
		return err
	}
	return nil
}

// Append appends data from an io.Reader to the remote path.
// If the file doesn't exist, it will be created.
// The transfer is performed in binary mode (TYPE I).
func (c *Client) Append(remotePath string, r io.Reader) error {
	if err := c.Type("I"); err != nil {
		return fmt.Errorf("failed to set binary mode: %w", err)
	}

	return c.runExclusive(func() error {
		_, dataConn, err := c.cmdDataConnFrom("APPE", remotePath)
		if err != nil {
			return err
		}
		return c.upload("APPE", remotePath, r, dataConn)
	})
}

// RestartAt sets the restart marker for the next transfer.
// This allows resuming a transfer from a specific byte offset.
// The offset applies to the next RETR or STOR command.
// This implements RFC 3959 - The FTP REST Extension.
//
// Example:
//
//	err := client.RestartAt(1024)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = client.Retrieve("file.bin", writer) // Resumes from byte 1024
func (c *Client) RestartAt(offset int64) error {
	resp, err := c.sendCommand("REST", fmt.Sprintf("%d", offset))
	if err != nil {
		return err
	}

	// REST should return 350 (Requested file action pending further information)
	if resp.Code != 350 {
		return &ProtocolError{
			Command:  "REST",
			Response: resp.Message,
			Code:     resp.Code,
		}
	}

	return nil
}

// RetrieveFrom downloads a file starting from the specified byte offset.
// This is useful for resuming interrupted downloads.
// The transfer is performed in binary mode (TYPE I).
//
// Example:
//
//	file, err := os.OpenFile("large.bin", os.O_WRONLY|os.O_APPEND, 0644)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer file.Close()
//
//	info, _ := file.Stat()
//	err = client.RetrieveFrom("large.bin", file, info.Size())
func (c *Client) RetrieveFrom(remotePath string, w io.Writer, offset int64) error {
	if err := c.Type("I"); err != nil {
		return fmt.Errorf("failed to set binary mode: %w", err)
	}

	if offset > 0 {
		if err := c.RestartAt(offset); err != nil {
			return fmt.Errorf("failed to set restart marker: %w", err)
		}
	}

	return c.runExclusive(func() error {
		_, dataConn, err := c.cmdDataConnFrom("RETR", remotePath)
		if err != nil {
			return err
		}
		return c.download(w, dataConn)
	})
}

// StoreAt uploads a file starting from the specified byte offset.
// This allows resuming an interrupted upload by appending to an existing file.
// The transfer is performed in binary mode (TYPE I).
//
// Note: This uses APPE (append) mode when offset > 0, which may not be supported
// by all servers for resume functionality. For true resume support, the server
// must support REST+STOR, which is less common.
func (c *Client) StoreAt(remotePath string, r io.Reader, offset int64) error {
	if err := c.Type("I"); err != nil {
		return fmt.Errorf("failed to set binary mode: %w", err)
	}

	cmd := "STOR"
	if offset > 0 {
		cmd = "APPE"
	}

	return c.runExclusive(func() error {
		var dataConn net.Conn
		var err error
		if cmd == "APPE" {
			_, dataConn, err = c.cmdDataConnFrom("APPE", remotePath)
		} else {
			_, dataConn, err = c.cmdDataConnFrom("STOR", remotePath)
		}
		if err != nil {
			return err
		}
		return c.upload(cmd, remotePath, r, dataConn)
	})
}
