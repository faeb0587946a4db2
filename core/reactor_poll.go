package core

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/searchktools/c10k-httpd/core/docroot"
	"github.com/searchktools/c10k-httpd/core/observability"
	"github.com/searchktools/c10k-httpd/core/pools"
)

// PollServer is the level-triggered reactor backend. One goroutine owns
// every socket; each iteration rebuilds the complete poll set from
// connection states and blocks on unix.Poll with a short bounded timeout,
// so its per-iteration cost scales with the number of registered
// descriptors.
type PollServer struct {
	opts Options
	svc  service

	arena   *pools.Arena[conn]
	handles map[int]int // fd -> arena handle

	listenFD int
	pollfds  []unix.PollFd
	stop     atomic.Bool
}

// NewPollServer creates the poll reactor.
func NewPollServer(opts Options, resolver *docroot.Resolver, stats *observability.Stats, log zerolog.Logger) *PollServer {
	opts = opts.withDefaults()
	return &PollServer{
		opts:    opts,
		svc:     service{resolver: resolver, stats: stats, log: log},
		arena:   newArena(opts),
		handles: make(map[int]int, 1024),
		pollfds: make([]unix.PollFd, 0, 1024),
	}
}

// Run executes the event loop until Shutdown.
func (s *PollServer) Run() error {
	raiseFileLimit(s.svc.log)

	lfd, err := newListenSocket(s.opts.Bind, s.opts.Port)
	if err != nil {
		return err
	}
	s.listenFD = lfd

	s.svc.log.Info().
		Str("backend", "poll").
		Str("bind", s.opts.Bind).
		Int("port", s.opts.Port).
		Int("max_connections", s.arena.Cap()).
		Msg("reactor listening")

	lastSweep := time.Now()

	for !s.stop.Load() {
		s.rebuildInterest()

		n, err := unix.Poll(s.pollfds, PollTimeoutMs)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			s.teardown()
			return fmt.Errorf("poll: %w", err)
		}

		if n > 0 {
			s.dispatch()
		}

		if s.opts.IdleTimeout > 0 && time.Since(lastSweep) >= time.Second {
			s.sweepIdle()
			lastSweep = time.Now()
		}
	}

	s.teardown()
	return nil
}

// Shutdown stops the loop; it is observed at the next poll tick.
func (s *PollServer) Shutdown() {
	s.stop.Store(true)
}

// rebuildInterest recreates the full poll set from connection states:
// reading connections want POLLIN, sending ones POLLOUT.
func (s *PollServer) rebuildInterest() {
	s.pollfds = s.pollfds[:0]
	s.pollfds = append(s.pollfds, unix.PollFd{Fd: int32(s.listenFD), Events: unix.POLLIN})

	for fd, h := range s.handles {
		c := s.arena.Get(h)
		ev := int16(unix.POLLIN)
		if c.wantsWrite() {
			ev = unix.POLLOUT
		}
		s.pollfds = append(s.pollfds, unix.PollFd{Fd: int32(fd), Events: ev})
	}
}

// dispatch walks the poll results in report order. Each ready connection
// gets exactly one handler step.
func (s *PollServer) dispatch() {
	for i := range s.pollfds {
		pfd := &s.pollfds[i]
		if pfd.Revents == 0 {
			continue
		}
		fd := int(pfd.Fd)

		if fd == s.listenFD {
			if pfd.Revents&unix.POLLIN != 0 {
				s.acceptAll()
			}
			continue
		}

		h, ok := s.handles[fd]
		if !ok {
			continue
		}
		c := s.arena.Get(h)

		if pfd.Revents&(unix.POLLERR|unix.POLLNVAL) != 0 {
			s.closeConn(fd, h)
			continue
		}

		var res ioResult
		switch {
		case pfd.Revents&unix.POLLIN != 0:
			res = c.onReadable(&s.svc)
		case pfd.Revents&unix.POLLOUT != 0:
			res = c.onWritable(&s.svc)
		case pfd.Revents&unix.POLLHUP != 0:
			res = ioClose
		default:
			continue
		}

		if res == ioClose {
			s.closeConn(fd, h)
		}
	}
}

// acceptAll drains every pending connection behind one listener
// notification. Admission failures are non-fatal: pool exhaustion closes
// the socket immediately, accept errors are logged and the loop continues.
func (s *PollServer) acceptAll() {
	for {
		nfd, _, err := unix.Accept(s.listenFD)
		if err != nil {
			if err == unix.EAGAIN {
				return
			}
			if err == unix.EINTR {
				continue
			}
			s.svc.log.Warn().Err(err).Msg("accept failed")
			return
		}

		h, c, ok := s.arena.Acquire()
		if !ok {
			// Hard backpressure: no slot, no response, just close.
			unix.Close(nfd)
			continue
		}

		if err := configureClient(nfd); err != nil {
			unix.Close(nfd)
			s.arena.Release(h)
			continue
		}

		c.attach(nfd)
		s.handles[nfd] = h
		s.svc.stats.ConnOpened()
	}
}

func (s *PollServer) closeConn(fd, h int) {
	c := s.arena.Get(h)
	c.release()
	delete(s.handles, fd)
	s.arena.Release(h)
	s.svc.stats.ConnClosed()
}

func (s *PollServer) sweepIdle() {
	now := time.Now()
	for fd, h := range s.handles {
		c := s.arena.Get(h)
		if now.Sub(c.lastActive) > s.opts.IdleTimeout {
			s.closeConn(fd, h)
		}
	}
}

func (s *PollServer) teardown() {
	for fd, h := range s.handles {
		s.closeConn(fd, h)
	}
	unix.Close(s.listenFD)
}
