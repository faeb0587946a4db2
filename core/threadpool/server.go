// Package threadpool implements the blocking-I/O backend: one accepting
// goroutine feeding a bounded queue, and a fixed set of workers each owning
// one connection at a time for its whole lifetime, keep-alive included.
package threadpool

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/searchktools/c10k-httpd/core/docroot"
	"github.com/searchktools/c10k-httpd/core/http"
	"github.com/searchktools/c10k-httpd/core/observability"
	"github.com/searchktools/c10k-httpd/core/pools"
)

const (
	// DefaultWorkers is the worker-goroutine count.
	DefaultWorkers = 200
	// DefaultQueueSize is the pending-connection cap Q; the (Q+1)-th
	// pending connection is closed without being enqueued.
	DefaultQueueSize = 10000
	// DefaultKeepAliveMax caps requests served on one connection.
	DefaultKeepAliveMax = 100
	// DefaultKeepAliveTimeout is re-armed before each subsequent request
	// on a persistent connection.
	DefaultKeepAliveTimeout = 5 * time.Second
	// DefaultSocketTimeout applies to the first read and to writes.
	DefaultSocketTimeout = 10 * time.Second

	requestBufSize = 4096
	fileChunkSize  = 32768
)

var (
	terminator = []byte("\r\n\r\n")

	errRequestTooLarge = errors.New("request exceeds buffer without terminator")
)

// Options configures the thread-pool backend.
type Options struct {
	Bind string
	Port int

	Workers          int
	QueueSize        int
	KeepAliveMax     int
	KeepAliveTimeout time.Duration
	SocketTimeout    time.Duration
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.Workers <= 0 {
		out.Workers = DefaultWorkers
	}
	if out.QueueSize <= 0 {
		out.QueueSize = DefaultQueueSize
	}
	if out.KeepAliveMax <= 0 {
		out.KeepAliveMax = DefaultKeepAliveMax
	}
	if out.KeepAliveTimeout <= 0 {
		out.KeepAliveTimeout = DefaultKeepAliveTimeout
	}
	if out.SocketTimeout <= 0 {
		out.SocketTimeout = DefaultSocketTimeout
	}
	return out
}

// Server is the thread-pool backend.
type Server struct {
	opts     Options
	resolver *docroot.Resolver
	stats    *observability.Stats
	log      zerolog.Logger

	queue *connQueue
	bufs  *pools.BytePool

	ln     net.Listener
	wg     sync.WaitGroup
	closed atomic.Bool
}

// New creates the thread-pool backend.
func New(opts Options, resolver *docroot.Resolver, stats *observability.Stats, log zerolog.Logger) *Server {
	opts = opts.withDefaults()
	return &Server{
		opts:     opts,
		resolver: resolver,
		stats:    stats,
		log:      log,
		queue:    newConnQueue(opts.QueueSize),
		bufs:     pools.NewBytePool(),
	}
}

// Listen binds the listener without starting the workers. Run calls it
// implicitly; callers that need the bound address first may call it
// themselves.
func (s *Server) Listen() error {
	if s.ln != nil {
		return nil
	}
	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", s.opts.Bind, s.opts.Port))
	if err != nil {
		return err
	}
	s.ln = ln
	return nil
}

// Addr reports the bound listener address, nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Run starts the workers and the accept loop; it returns after Shutdown or
// on an unrecoverable listener error.
func (s *Server) Run() error {
	if err := s.Listen(); err != nil {
		return err
	}
	ln := s.ln

	for i := 0; i < s.opts.Workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}

	s.log.Info().
		Str("backend", "threadpool").
		Str("addr", ln.Addr().String()).
		Int("workers", s.opts.Workers).
		Int("queue_size", s.opts.QueueSize).
		Msg("thread pool listening")

	for {
		c, err := ln.Accept()
		if err != nil {
			if s.closed.Load() {
				return nil
			}
			s.log.Warn().Err(err).Msg("accept failed")
			continue
		}

		if tc, ok := c.(*net.TCPConn); ok {
			tc.SetNoDelay(true)
		}

		// Load shedding, not backpressure: a full queue closes the new
		// socket immediately and the acceptor moves on.
		if !s.queue.Push(c) {
			c.Close()
		}
	}
}

// Shutdown is two-phase: stop accepting and wake the workers, then join
// every worker before returning.
func (s *Server) Shutdown() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	if s.ln != nil {
		s.ln.Close()
	}
	s.queue.Shutdown()
	s.wg.Wait()
}

// QueueLen reports the pending-connection count.
func (s *Server) QueueLen() int {
	return s.queue.Len()
}

func (s *Server) worker() {
	defer s.wg.Done()
	for {
		c, ok := s.queue.Pop()
		if !ok {
			return
		}
		s.handleConn(c)
	}
}

// handleConn owns the connection exclusively for its whole lifetime,
// serving sequential requests until the client stops asking for
// persistence, an error occurs, a timeout fires, or the request cap is
// reached.
func (s *Server) handleConn(c net.Conn) {
	defer c.Close()

	s.stats.ConnOpened()
	defer s.stats.ConnClosed()

	reqBuf := s.bufs.Get(requestBufSize)
	defer s.bufs.Put(reqBuf)
	chunk := s.bufs.Get(fileChunkSize)
	defer s.bufs.Put(chunk)

	for served := 0; served < s.opts.KeepAliveMax; served++ {
		timeout := s.opts.SocketTimeout
		if served > 0 {
			timeout = s.opts.KeepAliveTimeout
		}
		c.SetReadDeadline(time.Now().Add(timeout))

		raw, err := readRequest(c, reqBuf)
		if err != nil {
			if errors.Is(err, errRequestTooLarge) || errors.Is(err, http.ErrMalformed) {
				s.writeError(c, http.StatusBadRequest, false)
			}
			// Timeouts, resets and EOF get no response at all.
			return
		}

		req, err := http.ParseRequest(raw)
		if err != nil {
			s.writeError(c, http.StatusBadRequest, false)
			return
		}

		keep := http.WantsKeepAlive(raw, req.Proto)

		c.SetWriteDeadline(time.Now().Add(s.opts.SocketTimeout))
		keepOK := s.serveRequest(c, req, keep, chunk)
		s.stats.RequestServed()

		if !keep || !keepOK {
			return
		}
	}
}

// readRequest accumulates bytes until the terminator appears. A buffer
// filled without one is oversized; this backend reports that as a plain
// 400.
func readRequest(c net.Conn, buf []byte) ([]byte, error) {
	total := 0
	for {
		if total == len(buf) {
			return nil, errRequestTooLarge
		}
		n, err := c.Read(buf[total:])
		if n > 0 {
			total += n
			if bytes.Contains(buf[:total], terminator) {
				return buf[:total], nil
			}
		}
		if err != nil {
			if err == io.EOF && total > 0 {
				// Stream ended without a terminator.
				return nil, http.ErrMalformed
			}
			return nil, err
		}
	}
}

// serveRequest resolves and streams the target file. The return value says
// whether the connection may stay alive: true only for 200 and 404
// responses that were written completely.
func (s *Server) serveRequest(c net.Conn, req http.Request, keep bool, chunk []byte) bool {
	path, err := s.resolver.Resolve(req.Path)
	if err != nil {
		return s.writeError(c, http.StatusNotFound, keep)
	}

	st, err := os.Stat(path)
	if err != nil || !st.Mode().IsRegular() {
		return s.writeError(c, http.StatusNotFound, keep)
	}

	f, err := os.Open(path)
	if err != nil {
		s.writeError(c, http.StatusInternalError, false)
		return false
	}
	defer f.Close()

	hdr := http.AppendFileHeader(chunk[:0], st.Size(), http.ContentType(path), keep)
	if err := writeAll(c, hdr); err != nil {
		return false
	}
	s.stats.AddBytesSent(int64(len(hdr)))

	for {
		n, err := f.Read(chunk)
		if n > 0 {
			if werr := writeAll(c, chunk[:n]); werr != nil {
				return false
			}
			s.stats.AddBytesSent(int64(n))
		}
		if err == io.EOF {
			return true
		}
		if err != nil {
			return false
		}
	}
}

// writeError sends a complete error response. Only 404 may offer
// keep-alive; everything else closes.
func (s *Server) writeError(c net.Conn, code int, keep bool) bool {
	if code != http.StatusNotFound {
		keep = false
	}
	resp := http.AppendError(nil, code, keep)
	if err := writeAll(c, resp); err != nil {
		return false
	}
	s.stats.AddBytesSent(int64(len(resp)))
	return keep
}

// writeAll tolerates short writes.
func writeAll(c net.Conn, b []byte) error {
	for len(b) > 0 {
		n, err := c.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}
