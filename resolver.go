package ftp

import (
	"errors"
	"net"
	"syscall"
)

// verdict is the outcome transferResolver reaches once both the data
// channel's close and the control channel's final response have landed.
type verdict int

const (
	verdictSuccess verdict = iota
	verdictError
)

type transferOutcome struct {
	verdict verdict
	err     error
}

// resolveTransfer is the one-shot decision table for a completed transfer.
// It is handed both completion signals after they've already raced to
// completion (see finishDataConnWithProbe), plus the outcome of any SOCKS5
// size probe that already ran (on local EOF, before the data socket was
// closed — see upload in transfer.go), and decides without blocking
// whether the transfer succeeded or failed.
func resolveTransfer(resp *Response, respErr, dataErr error, probed, remoteSizeAlright bool) transferOutcome {
	if respErr != nil {
		return transferOutcome{verdict: verdictError, err: &wrappedError{op: "read completion response", err: respErr}}
	}

	if !resp.Is2xx() {
		return transferOutcome{verdict: verdictError, err: &ProtocolError{
			Command:  "DATA_TRANSFER",
			Response: resp.Message,
			Code:     resp.Code,
		}}
	}

	if dataErr == nil || !isResetLike(dataErr) {
		return transferOutcome{verdict: verdictSuccess}
	}

	// Control channel is happy, but the data channel reset instead of
	// closing cleanly. Over a direct connection that's suspicious enough
	// to reject outright. Over a SOCKS5 proxy it's the known failure mode
	// where the proxy's own connection to the server drops a beat after
	// accepting the last byte — the independent size probe already ran
	// before this close, so it's the authority: treat the reset as success
	// iff the probe confirmed the server has every byte.
	if probed && remoteSizeAlright {
		return transferOutcome{verdict: verdictSuccess}
	}
	return transferOutcome{verdict: verdictError, err: &wrappedError{op: "data connection", err: dataErr}}
}

// isResetLike reports whether err is the kind of abrupt teardown
// (ECONNRESET or the use-of-closed-connection Go wraps it as) that a SOCKS
// proxy produces when it closes its server-side leg first.
func isResetLike(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, syscall.ECONNRESET)
	}
	return false
}

type wrappedError struct {
	op  string
	err error
}

func (e *wrappedError) Error() string { return e.op + ": " + e.err.Error() }
func (e *wrappedError) Unwrap() error { return e.err }
