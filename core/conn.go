package core

import (
	"bytes"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/searchktools/c10k-httpd/core/http"
)

// Connection lifecycle states. The sequence only ever advances:
// reading -> sending header -> sending file -> closing. Error paths jump
// straight to sending header with an error body staged.
type connState uint8

const (
	stateReadingRequest connState = iota
	stateSendingHeader
	stateSendingFile
	stateClosing
)

// ioResult tells the reactor what to do after a handler step.
type ioResult uint8

const (
	// ioKeep: progress persisted, wait for the next notification.
	ioKeep ioResult = iota
	// ioWantWrite: a response is staged; the notify reactor arms write
	// interest, the poll reactor picks it up from the state on the next
	// interest rebuild.
	ioWantWrite
	// ioClose: the connection is finished or dead; release the slot.
	ioClose
)

var terminator = []byte("\r\n\r\n")

// conn is one pooled connection slot. Buffers are attached lazily (or
// eagerly, by arena policy) and survive across client lifetimes.
type conn struct {
	fd    int
	state connState

	reqBuf []byte
	reqLen int

	respBuf  []byte
	respLen  int
	respSent int

	file       *os.File
	fileOffset int64
	fileSize   int64

	lastActive time.Time
}

// initConn is the eager allocation policy hook for the arena.
func initConn(c *conn) {
	c.fd = -1
	c.reqBuf = make([]byte, RequestBufSize)
	c.respBuf = make([]byte, 0, ResponseBufSize)
}

// attach binds a freshly accepted socket to this slot and resets all
// per-request progress.
func (c *conn) attach(fd int) {
	c.fd = fd
	c.state = stateReadingRequest
	c.reqLen = 0
	c.respLen = 0
	c.respSent = 0
	c.fileOffset = 0
	c.fileSize = 0
	c.lastActive = time.Now()

	if c.reqBuf == nil {
		c.reqBuf = make([]byte, RequestBufSize)
	}
}

// release closes the socket and any open file and resets progress counters.
// Buffers are kept for slot reuse.
func (c *conn) release() {
	c.closeFile()
	if c.fd >= 0 {
		unix.Close(c.fd)
		c.fd = -1
	}
	c.state = stateReadingRequest
	c.reqLen = 0
	c.respLen = 0
	c.respSent = 0
}

func (c *conn) closeFile() {
	if c.file != nil {
		c.file.Close()
		c.file = nil
	}
	c.fileOffset = 0
	c.fileSize = 0
}

// onReadable performs one bounded non-blocking receive and, once the
// terminator arrives, processes the request. A would-block read is not an
// error; a zero-length read means the peer is gone.
func (c *conn) onReadable(svc *service) ioResult {
	if c.state != stateReadingRequest {
		return ioKeep
	}

	c.lastActive = time.Now()

	n, err := unix.Read(c.fd, c.reqBuf[c.reqLen:])
	if err != nil {
		if err == unix.EAGAIN {
			return ioKeep
		}
		return ioClose
	}
	if n == 0 {
		return ioClose
	}
	c.reqLen += n

	if !bytes.Contains(c.reqBuf[:c.reqLen], terminator) {
		if c.reqLen >= len(c.reqBuf) {
			// Buffer full without a terminator: answer 413, then the
			// connection is torn down once the response drains.
			c.stageError(http.StatusRequestTooLarge)
			return ioWantWrite
		}
		return ioKeep
	}

	return c.process(svc)
}

// process parses the request, resolves the target under the document root
// and stages either a file response header or an error body.
func (c *conn) process(svc *service) ioResult {
	req, err := http.ParseRequest(c.reqBuf[:c.reqLen])
	if err != nil {
		c.stageError(http.StatusBadRequest)
		return ioWantWrite
	}

	path, err := svc.resolver.Resolve(req.Path)
	if err != nil {
		c.stageError(http.StatusNotFound)
		return ioWantWrite
	}

	st, err := os.Stat(path)
	if err != nil || !st.Mode().IsRegular() {
		c.stageError(http.StatusNotFound)
		return ioWantWrite
	}

	f, err := os.Open(path)
	if err != nil {
		c.stageError(http.StatusInternalError)
		return ioWantWrite
	}

	c.file = f
	c.fileSize = st.Size()
	c.fileOffset = 0

	c.ensureRespBuf()
	c.respBuf = http.AppendFileHeader(c.respBuf[:0], c.fileSize, http.ContentType(path), false)
	c.respLen = len(c.respBuf)
	c.respSent = 0
	c.state = stateSendingHeader

	svc.stats.RequestServed()
	return ioWantWrite
}

// stageError stages a complete error response. Reactor error responses
// always carry Connection: close.
func (c *conn) stageError(code int) {
	c.closeFile()
	c.ensureRespBuf()
	c.respBuf = http.AppendError(c.respBuf[:0], code, false)
	c.respLen = len(c.respBuf)
	c.respSent = 0
	c.state = stateSendingHeader
}

func (c *conn) ensureRespBuf() {
	if c.respBuf == nil {
		c.respBuf = make([]byte, 0, ResponseBufSize)
	}
}

// onWritable performs one bounded non-blocking send: staged header/error
// bytes first, then file chunks read at the current offset. Progress lives
// entirely in the counters, so a partial write resumes on the next
// notification.
func (c *conn) onWritable(svc *service) ioResult {
	c.lastActive = time.Now()

	switch c.state {
	case stateSendingHeader:
		n, err := unix.Write(c.fd, c.respBuf[c.respSent:c.respLen])
		if err != nil {
			if err == unix.EAGAIN {
				return ioKeep
			}
			return ioClose
		}
		c.respSent += n
		svc.stats.AddBytesSent(int64(n))

		if c.respSent < c.respLen {
			return ioKeep
		}
		if c.file == nil {
			c.state = stateClosing
			return ioClose
		}
		c.state = stateSendingFile
		return ioKeep

	case stateSendingFile:
		remaining := c.fileSize - c.fileOffset
		if remaining <= 0 {
			c.state = stateClosing
			return ioClose
		}

		buf := c.respBuf[:cap(c.respBuf)]
		chunk := int64(len(buf))
		if remaining < chunk {
			chunk = remaining
		}

		n, err := c.file.ReadAt(buf[:chunk], c.fileOffset)
		if n <= 0 {
			svc.log.Warn().Err(err).
				Str("file", c.file.Name()).
				Int64("offset", c.fileOffset).
				Msg("file read failed")
			return ioClose
		}

		m, werr := unix.Write(c.fd, buf[:n])
		if werr != nil {
			if werr == unix.EAGAIN {
				return ioKeep
			}
			return ioClose
		}
		c.fileOffset += int64(m)
		svc.stats.AddBytesSent(int64(m))

		if c.fileOffset >= c.fileSize {
			c.state = stateClosing
			return ioClose
		}
		return ioKeep

	default:
		return ioKeep
	}
}

// wantsWrite reports whether the current state needs write readiness, used
// by the poll reactor when rebuilding its interest set.
func (c *conn) wantsWrite() bool {
	return c.state == stateSendingHeader || c.state == stateSendingFile
}
