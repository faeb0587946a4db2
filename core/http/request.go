package http

// Request is the parsed form of a request line. Only GET is ever accepted,
// so the interesting parts are the rewritten path and the protocol token
// used for keep-alive defaults.
type Request struct {
	Method string
	Path   string
	Proto  string
}
