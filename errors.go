package ftp

import (
	"errors"
	"fmt"
	"net"
)

// isTimeoutErr reports whether err is a net.Error that timed out, the
// signal a deadline-exceeded read or write surfaces as.
func isTimeoutErr(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// ConnectionError wraps a TCP-level failure, TLS handshake failure, or
// unexpected close on the control channel. Once returned, the channel is
// unusable: a fresh Dial is required to recover.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("ftp: connection error during %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TimeoutError reports an idle timeout exceeded on the active socket. It is
// always fatal: the server's state is unknown once a deadline fires mid
// read or write, so the client must reconnect rather than keep using the
// connection.
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("ftp: timeout during %s: %v", e.Op, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// DataConnectError reports a failure to open the data socket, whether
// dialing the PASV/EPSV-announced address directly or through a SOCKS5
// proxy.
type DataConnectError struct {
	Addr string
	Err  error
}

func (e *DataConnectError) Error() string {
	return fmt.Sprintf("ftp: failed to open data connection to %s: %v", e.Addr, e.Err)
}

func (e *DataConnectError) Unwrap() error { return e.Err }

// SocksError reports a SOCKS5 negotiation failure on either the control or
// a data connection. It wraps the underlying *socks.Error, which carries
// the negotiation stage and the mapped RFC 1928 reason string.
type SocksError struct {
	Err error
}

func (e *SocksError) Error() string {
	return fmt.Sprintf("ftp: socks5 negotiation failed: %v", e.Err)
}

func (e *SocksError) Unwrap() error { return e.Err }

// ClientClosed is returned for any operation submitted against a client
// whose control channel has already been torn down via Quit.
type ClientClosed struct{}

func (e *ClientClosed) Error() string {
	return "ftp: operation submitted against a closed client"
}

// ProtocolError represents an FTP protocol error with full context of the
// command/response conversation. This provides detailed debugging information
// beyond simple error messages.
type ProtocolError struct {
	// Command is the FTP command that was sent (e.g., "STOR file.txt")
	Command string

	// Response is the raw response received from the server (e.g., "550 Permission denied")
	Response string

	// Code is the numeric FTP response code (e.g., 550)
	Code int
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("ftp: %s failed: %s (code %d)", e.Command, e.Response, e.Code)
}

// Is2xx returns true if the error code is in the 2xx range (success).
func (e *ProtocolError) Is2xx() bool {
	return e.Code >= 200 && e.Code < 300
}

// Is3xx returns true if the error code is in the 3xx range (intermediate).
func (e *ProtocolError) Is3xx() bool {
	return e.Code >= 300 && e.Code < 400
}

// Is4xx returns true if the error code is in the 4xx range (temporary failure).
func (e *ProtocolError) Is4xx() bool {
	return e.Code >= 400 && e.Code < 500
}

// Is5xx returns true if the error code is in the 5xx range (permanent failure).
func (e *ProtocolError) Is5xx() bool {
	return e.Code >= 500 && e.Code < 600
}

// IsTemporary returns true if the error is a temporary failure (4xx).
// This can be used to implement retry logic.
func (e *ProtocolError) IsTemporary() bool {
	return e.Is4xx()
}

// IsPermanent returns true if the error is a permanent failure (5xx).
func (e *ProtocolError) IsPermanent() bool {
	return e.Is5xx()
}
