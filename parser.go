package ftp

import (
	"fmt"
	"strconv"
)

// parseFrame tracks the in-progress multi-line block across feed() calls,
// so the parser can be driven with arbitrarily-chunked input.
type parseFrame struct {
	inMultiline bool
	code        int
	codeStr     string
	lines       []string
}

// responseParser is the pure, total byte-stream framer described in the
// ResponseParser component: it consumes bytes, buffers a residual, and
// emits completed Response values in wire order. It never blocks and never
// reorders.
type responseParser struct {
	residual []byte
	frame    parseFrame
}

// feed appends data to the residual, extracts every complete line, and
// returns the Response values that completed as a result. Partial lines and
// an in-progress multi-line block are retained for the next feed call.
func (p *responseParser) feed(data []byte) ([]*Response, error) {
	p.residual = append(p.residual, data...)

	var out []*Response
	for {
		line, rest, ok := cutLine(p.residual)
		if !ok {
			break
		}
		p.residual = rest

		resp, err := p.consumeLine(line)
		if err != nil {
			return out, err
		}
		if resp != nil {
			out = append(out, resp)
		}
	}
	return out, nil
}

// cutLine extracts one CRLF- or LF-terminated line from buf, tolerating a
// bare LF per spec.md's "tolerate bare \n".
func cutLine(buf []byte) (line []byte, rest []byte, ok bool) {
	for i, b := range buf {
		if b == '\n' {
			end := i
			if end > 0 && buf[end-1] == '\r' {
				end--
			}
			return buf[:end], buf[i+1:], true
		}
	}
	return nil, buf, false
}

func (p *responseParser) consumeLine(line []byte) (*Response, error) {
	if !p.frame.inMultiline {
		return p.consumeOpeningLine(line)
	}
	return p.consumeContinuationLine(line)
}

func (p *responseParser) consumeOpeningLine(line []byte) (*Response, error) {
	code, sep, text, err := splitCodeLine(line)
	if err != nil {
		return nil, err
	}

	switch sep {
	case ' ':
		return &Response{
			Code:    code,
			Message: text,
			Lines:   []string{string(line)},
		}, nil
	case '-':
		p.frame = parseFrame{
			inMultiline: true,
			code:        code,
			codeStr:     strconv.Itoa(code),
			lines:       []string{string(line)},
		}
		return nil, nil
	default:
		return nil, &ProtocolError{Command: "PARSE", Response: string(line), Code: code}
	}
}

func (p *responseParser) consumeContinuationLine(line []byte) (*Response, error) {
	// RFC 2389 continuation: lines starting with a space belong to the
	// block regardless of content, with leading whitespace preserved.
	if len(line) > 0 && line[0] == ' ' {
		p.frame.lines = append(p.frame.lines, string(line))
		return nil, nil
	}

	if len(line) < 4 || string(line[0:3]) != p.frame.codeStr {
		// A continuation with a different code prefix does not close the
		// block — it is just another accumulated line (spec.md §8: "must
		// NOT terminate the block").
		p.frame.lines = append(p.frame.lines, string(line))
		return nil, nil
	}

	p.frame.lines = append(p.frame.lines, string(line))

	switch line[3] {
	case ' ':
		resp := &Response{
			Code:    p.frame.code,
			Message: joinMultilineMessage(p.frame.lines),
			Lines:   p.frame.lines,
		}
		p.frame = parseFrame{}
		return resp, nil
	case '-':
		return nil, nil
	default:
		return nil, &ProtocolError{Command: "PARSE", Response: string(line), Code: p.frame.code}
	}
}

// splitCodeLine validates the 3-digit code prefix of a response line and
// returns the code, the separator byte (' ' or '-'), and the text after it.
// Per spec.md §9, response codes are assumed ASCII regardless of the
// configured charset.
func splitCodeLine(line []byte) (code int, sep byte, text string, err error) {
	if len(line) < 4 {
		return 0, 0, "", fmt.Errorf("invalid response line: %q", line)
	}
	code, convErr := strconv.Atoi(string(line[0:3]))
	if convErr != nil || code < 100 || code > 599 {
		return 0, 0, "", &ProtocolError{Command: "PARSE", Response: string(line), Code: code}
	}
	return code, line[3], string(line[4:]), nil
}

func joinMultilineMessage(lines []string) string {
	var msgLines []string
	for _, l := range lines {
		if len(l) > 0 && l[0] == ' ' {
			msgLines = append(msgLines, l[1:])
			continue
		}
		if len(l) > 4 {
			msgLines = append(msgLines, l[4:])
		} else {
			msgLines = append(msgLines, "")
		}
	}
	return joinLines(msgLines)
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}
