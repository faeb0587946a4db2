package http

import (
	"bytes"
	"errors"
)

// PathBufMax bounds the path token; anything longer is rejected outright
// rather than truncated.
const PathBufMax = 1024

var (
	// ErrIncomplete means the terminator has not arrived yet; the caller
	// should keep reading.
	ErrIncomplete = errors.New("incomplete HTTP request")

	// ErrMalformed covers everything this subset refuses to serve: non-GET
	// methods, broken request lines, oversized or empty path tokens.
	ErrMalformed = errors.New("malformed HTTP request")
)

var (
	crlfcrlf = []byte("\r\n\r\n")
	crlf     = []byte("\r\n")
)

// ParseRequest parses the GET-only request subset out of buf.
//
// The terminator is located first: without \r\n\r\n the request is
// incomplete and the caller keeps accumulating bytes. Once complete, the
// request line must be "GET <path> HTTP/x.y"; a path of "/" is rewritten to
// "/index.html". No filesystem access happens here.
func ParseRequest(buf []byte) (Request, error) {
	var req Request

	term := bytes.Index(buf, crlfcrlf)
	if term == -1 {
		return req, ErrIncomplete
	}

	if !bytes.HasPrefix(buf, []byte("GET ")) {
		return req, ErrMalformed
	}
	req.Method = "GET"

	// Tokens live on the request line only; a space inside a header must
	// not be mistaken for the path delimiter.
	lineEnd := bytes.Index(buf, crlf)

	// Tolerate extra spaces between method and path, like the original.
	i := 4
	for i < lineEnd && buf[i] == ' ' {
		i++
	}
	if i >= lineEnd {
		return req, ErrMalformed
	}

	// The path token ends at the next space; a request line without a
	// version token after it is malformed.
	j := bytes.IndexByte(buf[i:lineEnd], ' ')
	if j == -1 {
		return req, ErrMalformed
	}
	if j >= PathBufMax {
		return req, ErrMalformed
	}
	end := i + j

	req.Path = string(buf[i:end])
	if req.Path == "/" {
		req.Path = "/index.html"
	}
	req.Proto = string(buf[end+1 : lineEnd])

	return req, nil
}

// WantsKeepAlive reports whether the client asked for a persistent
// connection: an explicit Connection header wins, otherwise HTTP/1.1
// defaults to keep-alive.
func WantsKeepAlive(buf []byte, proto string) bool {
	if containsToken(buf, []byte("connection: close")) {
		return false
	}
	if containsToken(buf, []byte("connection: keep-alive")) {
		return true
	}
	return proto == "HTTP/1.1"
}

// containsToken does a case-insensitive substring scan over the raw header
// block. Good enough for the two fixed tokens above.
func containsToken(buf, token []byte) bool {
	return bytes.Contains(bytes.ToLower(buf), token)
}
