package http

import "strings"

// StatusText returns the reason phrase for the small status set this server
// emits.
func StatusText(code int) string {
	switch code {
	case StatusOK:
		return "OK"
	case StatusBadRequest:
		return "Bad Request"
	case StatusNotFound:
		return "Not Found"
	case StatusRequestTooLarge:
		return "Request Entity Too Large"
	default:
		return "Internal Server Error"
	}
}

// Status codes the server can produce.
const (
	StatusOK              = 200
	StatusBadRequest      = 400
	StatusNotFound        = 404
	StatusRequestTooLarge = 413
	StatusInternalError   = 500
)

// errorBody returns the plain-text body sent with an error status.
func errorBody(code int) string {
	switch code {
	case StatusBadRequest:
		return "Bad Request"
	case StatusNotFound:
		return "Not Found"
	case StatusRequestTooLarge:
		return "Request Too Large"
	default:
		return "Internal Server Error"
	}
}

// AppendFileHeader appends a 200 header for a file body of contentLen bytes.
// The body itself is streamed separately, chunk by chunk.
func AppendFileHeader(dst []byte, contentLen int64, contentType string, keepAlive bool) []byte {
	dst = append(dst, "HTTP/1.1 200 OK\r\nContent-Length: "...)
	dst = appendInt(dst, contentLen)
	dst = append(dst, "\r\nContent-Type: "...)
	dst = append(dst, contentType...)
	dst = appendConnection(dst, keepAlive)
	return append(dst, "\r\n\r\n"...)
}

// AppendError appends a complete error response, header and body. Error
// responses from the reactors always close; the thread pool may keep a 404
// connection alive.
func AppendError(dst []byte, code int, keepAlive bool) []byte {
	body := errorBody(code)

	dst = append(dst, "HTTP/1.1 "...)
	dst = appendInt(dst, int64(code))
	dst = append(dst, ' ')
	dst = append(dst, StatusText(code)...)
	dst = append(dst, "\r\nContent-Length: "...)
	dst = appendInt(dst, int64(len(body)))
	dst = append(dst, "\r\nContent-Type: text/plain"...)
	dst = appendConnection(dst, keepAlive)
	dst = append(dst, "\r\n\r\n"...)
	return append(dst, body...)
}

func appendConnection(dst []byte, keepAlive bool) []byte {
	if keepAlive {
		return append(dst, "\r\nConnection: keep-alive"...)
	}
	return append(dst, "\r\nConnection: close"...)
}

// ContentType guesses a MIME type from the file extension,
// case-insensitively.
func ContentType(path string) string {
	dot := strings.LastIndexByte(path, '.')
	if dot == -1 {
		return "application/octet-stream"
	}
	switch strings.ToLower(path[dot:]) {
	case ".html":
		return "text/html"
	case ".css":
		return "text/css"
	case ".js":
		return "application/javascript"
	case ".png":
		return "image/png"
	case ".jpg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}

// appendInt appends the decimal form of i without going through fmt.
func appendInt(b []byte, i int64) []byte {
	if i == 0 {
		return append(b, '0')
	}

	var digits [20]byte
	n := 0
	for i > 0 {
		digits[n] = byte('0' + i%10)
		i /= 10
		n++
	}

	for n > 0 {
		n--
		b = append(b, digits[n])
	}

	return b
}
