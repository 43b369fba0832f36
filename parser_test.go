package ftp

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResponseParser_SingleLineWholeBuffer(t *testing.T) {
	t.Parallel()
	var p responseParser

	resps, err := p.feed([]byte("220 Welcome\r\n"))
	require.NoError(t, err)
	require.Len(t, resps, 1)
	require.Equal(t, 220, resps[0].Code)
	require.Equal(t, "Welcome", resps[0].Message)
}

func TestResponseParser_MultiLine(t *testing.T) {
	t.Parallel()
	var p responseParser

	resps, err := p.feed([]byte("220-Welcome to FTP\r\n220-This is line 2\r\n220 Ready\r\n"))
	require.NoError(t, err)
	require.Len(t, resps, 1)
	require.Equal(t, 220, resps[0].Code)
	require.Equal(t, "Welcome to FTP\nThis is line 2\nReady", resps[0].Message)
}

func TestResponseParser_ChunkedAcrossFeedCalls(t *testing.T) {
	t.Parallel()
	var p responseParser

	whole := "220-Welcome\r\n220 Ready\r\n"
	var all []*Response
	for i := 0; i < len(whole); i++ {
		resps, err := p.feed([]byte{whole[i]})
		require.NoError(t, err)
		all = append(all, resps...)
	}

	require.Len(t, all, 1)
	require.Equal(t, 220, all[0].Code)
	require.Equal(t, "Welcome\nReady", all[0].Message)
}

func TestResponseParser_ToleratesBareLF(t *testing.T) {
	t.Parallel()
	var p responseParser

	resps, err := p.feed([]byte("220 Welcome\n"))
	require.NoError(t, err)
	require.Len(t, resps, 1)
	require.Equal(t, "Welcome", resps[0].Message)
}

func TestResponseParser_RFC2389LeadingSpaceContinuation(t *testing.T) {
	t.Parallel()
	var p responseParser

	resps, err := p.feed([]byte("211-Features:\r\n UTF8\r\n MLST type*;size*;\r\n211 End\r\n"))
	require.NoError(t, err)
	require.Len(t, resps, 1)
	require.Equal(t, 211, resps[0].Code)
	require.Len(t, resps[0].Lines, 4)
}

func TestResponseParser_MultipleResponsesInOneFeed(t *testing.T) {
	t.Parallel()
	var p responseParser

	resps, err := p.feed([]byte("220 Welcome\r\n230 Logged in\r\n"))
	require.NoError(t, err)
	require.Len(t, resps, 2)
	require.Equal(t, 220, resps[0].Code)
	require.Equal(t, 230, resps[1].Code)
}

func TestResponseParser_InvalidCodeErrors(t *testing.T) {
	t.Parallel()
	var p responseParser

	_, err := p.feed([]byte("abc Not a code\r\n"))
	require.Error(t, err)
}

func TestReadResponse_UsesParser(t *testing.T) {
	t.Parallel()
	reader := bufio.NewReader(strings.NewReader("220-hi\r\n220 there\r\n"))
	resp, err := readResponse(reader)
	require.NoError(t, err)
	require.Equal(t, 220, resp.Code)
	require.Equal(t, "hi\nthere", resp.Message)
}
