package ftp

import (
	"bufio"
	"fmt"
	"strings"
	"time"
)

// Response represents an FTP server response.
type Response struct {
	// Code is the three-digit response code (e.g., 220, 550)
	Code int

	// Message is the human-readable message from the server
	Message string

	// Lines contains all lines of the response (for multi-line responses)
	Lines []string
}

// Is2xx returns true if the response code is in the 2xx range (success).
func (r *Response) Is2xx() bool {
	return r.Code >= 200 && r.Code < 300
}

// Is3xx returns true if the response code is in the 3xx range (intermediate).
func (r *Response) Is3xx() bool {
	return r.Code >= 300 && r.Code < 400
}

// Is4xx returns true if the response code is in the 4xx range (temporary failure).
func (r *Response) Is4xx() bool {
	return r.Code >= 400 && r.Code < 500
}

// Is5xx returns true if the response code is in the 5xx range (permanent failure).
func (r *Response) Is5xx() bool {
	return r.Code >= 500 && r.Code < 600
}

// String returns the full response as a string.
func (r *Response) String() string {
	return strings.Join(r.Lines, "\n")
}

// readResponse reads one complete FTP response (single- or multi-line) from
// the control connection. Framing is delegated to responseParser — the same
// pure byte-stream parser exercised directly in parser_test.go — so the
// line-by-line reading here and the chunked feed() path share one set of
// framing rules instead of drifting apart.
//
// Single-line format: "220 Welcome\r\n"
// Multi-line format:
//
//	"220-Welcome to FTP\r\n"
//	"220-This is line 2\r\n"
//	"220 Ready\r\n"
func readResponse(r *bufio.Reader) (*Response, error) {
	var p responseParser
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}

		trimmed := strings.TrimRight(line, "\r\n")
		resp, perr := p.consumeLine([]byte(trimmed))
		if perr != nil {
			return nil, perr
		}
		if resp != nil {
			return resp, nil
		}
	}
}

// sendCommand sends an FTP command and returns the response. It runs as
// its own exclusive task on the client's taskQueue, so it never
// interleaves with another command or with an in-flight transfer's final
// response read.
func (c *Client) sendCommand(command string, args ...string) (*Response, error) {
	var resp *Response
	var err error
	if !c.tasks.submit(func() {
		resp, err = c.doSendCommand(command, args...)
	}) {
		return nil, &ClientClosed{}
	}
	return resp, err
}

// doSendCommand is sendCommand's body, callable directly by code that is
// already running inside a taskQueue task (cmdDataConnFrom, during a
// wrapped transfer) to avoid submitting a nested task to the same queue,
// which would deadlock the single worker goroutine.
func (c *Client) doSendCommand(command string, args ...string) (*Response, error) {
	// Build the full command
	var cmd string
	if len(args) > 0 {
		cmd = fmt.Sprintf("%s %s", command, strings.Join(args, " "))
	} else {
		cmd = command
	}

	// Log if debug is enabled. PASS arguments are redacted before they
	// ever reach the logger — see redact.go.
	if c.logger != nil {
		c.logger.Debug("ftp command", "cmd", redactCommandLine(cmd))
	}

	// Lock the client to prevent concurrent commands
	c.mu.Lock()
	defer c.mu.Unlock()

	// Update last command time
	c.lastCommand = time.Now()

	// Set write deadline
	if c.timeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
			return nil, fmt.Errorf("failed to set write deadline: %w", err)
		}
	}

	// Send the command, transcoded to the configured wire charset
	wireCmd, err := encodeCommandLine(c.encoding, cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to encode command: %w", err)
	}
	_, err = fmt.Fprintf(c.conn, "%s\r\n", wireCmd)
	if err != nil {
		if isTimeoutErr(err) {
			return nil, &TimeoutError{Op: "send command", Err: err}
		}
		return nil, &ConnectionError{Op: "send command", Err: err}
	}

	// Set read deadline for response
	// Note: We set it on the underlying connection, not the bufio Reader
	if c.timeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return nil, &ConnectionError{Op: "set read deadline", Err: err}
		}
	}

	// Read the response
	resp, err := readResponse(c.reader)
	if err != nil {
		if isTimeoutErr(err) {
			return nil, &TimeoutError{Op: "read response", Err: err}
		}
		return nil, &ConnectionError{Op: "read response", Err: err}
	}
	resp.Message = decodeResponseText(c.encoding, resp.Message)

	// Log the response if debug is enabled
	if c.logger != nil {
		c.logger.Debug("ftp response", "code", resp.Code, "message", resp.Message)
	}

	return resp, nil
}

// expectCode sends a command and verifies the response code matches the expected code.
// Returns an error if the code doesn't match or if the command fails.
func (c *Client) expectCode(expectedCode int, command string, args ...string) (*Response, error) {
	resp, err := c.sendCommand(command, args...)
	if err != nil {
		return nil, err
	}

	if resp.Code != expectedCode {
		return resp, &ProtocolError{
			Command:  command,
			Response: resp.Message,
			Code:     resp.Code,
		}
	}

	return resp, nil
}

// expect2xx sends a command and verifies the response is in the 2xx range (success).
func (c *Client) expect2xx(command string, args ...string) (*Response, error) {
	resp, err := c.sendCommand(command, args...)
	if err != nil {
		return nil, err
	}

	if !resp.Is2xx() {
		return resp, &ProtocolError{
			Command:  command,
			Response: resp.Message,
			Code:     resp.Code,
		}
	}

	return resp, nil
}
