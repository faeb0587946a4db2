package http

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

// TestParseRequestBasic tests well-formed GET requests
func TestParseRequestBasic(t *testing.T) {
	tests := []struct {
		raw   string
		path  string
		proto string
	}{
		{"GET /index.html HTTP/1.0\r\n\r\n", "/index.html", "HTTP/1.0"},
		{"GET /a/b/c.css HTTP/1.1\r\nHost: x\r\n\r\n", "/a/b/c.css", "HTTP/1.1"},
		{"GET / HTTP/1.1\r\n\r\n", "/index.html", "HTTP/1.1"},
		{"GET  /spaced HTTP/1.0\r\n\r\n", "/spaced", "HTTP/1.0"},
	}

	for _, tt := range tests {
		req, err := ParseRequest([]byte(tt.raw))
		if err != nil {
			t.Errorf("ParseRequest(%q): unexpected error %v", tt.raw, err)
			continue
		}
		if req.Method != "GET" {
			t.Errorf("ParseRequest(%q): method %q, want GET", tt.raw, req.Method)
		}
		if req.Path != tt.path {
			t.Errorf("ParseRequest(%q): path %q, want %q", tt.raw, req.Path, tt.path)
		}
		if req.Proto != tt.proto {
			t.Errorf("ParseRequest(%q): proto %q, want %q", tt.raw, req.Proto, tt.proto)
		}
	}
}

// TestParseRequestIncomplete tests that requests without a terminator are
// reported as incomplete, not malformed
func TestParseRequestIncomplete(t *testing.T) {
	tests := []string{
		"",
		"G",
		"GET /index.html",
		"GET /index.html HTTP/1.0\r\n",
		"GET /index.html HTTP/1.0\r\nHost: x\r\n",
	}

	for _, raw := range tests {
		_, err := ParseRequest([]byte(raw))
		if !errors.Is(err, ErrIncomplete) {
			t.Errorf("ParseRequest(%q): got %v, want ErrIncomplete", raw, err)
		}
	}
}

// TestParseRequestMalformed tests rejection of non-GET and broken requests
func TestParseRequestMalformed(t *testing.T) {
	tests := []string{
		"BLAH /x\r\n\r\n",
		"POST /x HTTP/1.1\r\n\r\n",
		"get /x HTTP/1.1\r\n\r\n",
		"GET \r\n\r\n",
		"GET\r\n\r\n",
		"\r\n\r\n",
		"GET /x\r\n\r\n",
		"GET /index.html\r\n\r\n",
		"GET /plain\r\nHost: x\r\n\r\n",
	}

	for _, raw := range tests {
		_, err := ParseRequest([]byte(raw))
		if !errors.Is(err, ErrMalformed) {
			t.Errorf("ParseRequest(%q): got %v, want ErrMalformed", raw, err)
		}
	}
}

// TestParseRequestOversizedPath tests the fixed path length cap
func TestParseRequestOversizedPath(t *testing.T) {
	long := "/" + strings.Repeat("a", PathBufMax)
	raw := []byte("GET " + long + " HTTP/1.0\r\n\r\n")

	if _, err := ParseRequest(raw); !errors.Is(err, ErrMalformed) {
		t.Errorf("oversized path: got %v, want ErrMalformed", err)
	}

	// One byte under the cap parses fine.
	ok := "/" + strings.Repeat("a", PathBufMax-2)
	req, err := ParseRequest([]byte("GET " + ok + " HTTP/1.0\r\n\r\n"))
	if err != nil {
		t.Fatalf("max-length path: unexpected error %v", err)
	}
	if req.Path != ok {
		t.Errorf("max-length path mangled: got %d bytes", len(req.Path))
	}
}

// TestParseRequestMissingVersion tests that a request line without a
// version token is rejected, not served
func TestParseRequestMissingVersion(t *testing.T) {
	if _, err := ParseRequest([]byte("GET /x\r\n\r\n")); !errors.Is(err, ErrMalformed) {
		t.Errorf("no version token: got %v, want ErrMalformed", err)
	}
}

// TestWantsKeepAlive tests keep-alive negotiation against header and version
func TestWantsKeepAlive(t *testing.T) {
	tests := []struct {
		raw   string
		proto string
		want  bool
	}{
		{"GET / HTTP/1.1\r\n\r\n", "HTTP/1.1", true},
		{"GET / HTTP/1.0\r\n\r\n", "HTTP/1.0", false},
		{"GET / HTTP/1.1\r\nConnection: close\r\n\r\n", "HTTP/1.1", false},
		{"GET / HTTP/1.0\r\nConnection: keep-alive\r\n\r\n", "HTTP/1.0", true},
		{"GET / HTTP/1.0\r\nConnection: Keep-Alive\r\n\r\n", "HTTP/1.0", true},
		{"GET / HTTP/1.1\r\nConnection: CLOSE\r\n\r\n", "HTTP/1.1", false},
	}

	for _, tt := range tests {
		if got := WantsKeepAlive([]byte(tt.raw), tt.proto); got != tt.want {
			t.Errorf("WantsKeepAlive(%q): got %v, want %v", tt.raw, got, tt.want)
		}
	}
}

// TestParseRequestIgnoresBodyBytes tests that bytes past the terminator do
// not disturb parsing
func TestParseRequestIgnoresBodyBytes(t *testing.T) {
	raw := []byte("GET /x.html HTTP/1.1\r\n\r\nGET /next HTTP/1.1\r\n\r\n")
	req, err := ParseRequest(raw)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if req.Path != "/x.html" {
		t.Errorf("path %q, want /x.html", req.Path)
	}
	if !bytes.Contains(raw, []byte("/next")) {
		t.Fatal("test input lost its trailing bytes")
	}
}
