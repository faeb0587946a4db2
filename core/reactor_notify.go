package core

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"

	"github.com/searchktools/c10k-httpd/core/docroot"
	"github.com/searchktools/c10k-httpd/core/observability"
	"github.com/searchktools/c10k-httpd/core/poller"
	"github.com/searchktools/c10k-httpd/core/pools"
)

// NotifyServer is the scalable reactor backend. Registrations with the
// kernel poller (epoll/kqueue) persist for the life of each connection;
// write interest is armed only once a response is staged, so steady-state
// cost is independent of the number of registered descriptors.
type NotifyServer struct {
	opts Options
	svc  service

	arena   *pools.Arena[conn]
	handles map[int]int // fd -> arena handle

	p        poller.Poller
	listenFD int
	stop     atomic.Bool
}

// NewNotifyServer creates the notify reactor.
func NewNotifyServer(opts Options, resolver *docroot.Resolver, stats *observability.Stats, log zerolog.Logger) *NotifyServer {
	opts = opts.withDefaults()
	return &NotifyServer{
		opts:    opts,
		svc:     service{resolver: resolver, stats: stats, log: log},
		arena:   newArena(opts),
		handles: make(map[int]int, 1024),
	}
}

// Run executes the event loop until Shutdown.
func (s *NotifyServer) Run() error {
	raiseFileLimit(s.svc.log)

	lfd, err := newListenSocket(s.opts.Bind, s.opts.Port)
	if err != nil {
		return err
	}
	s.listenFD = lfd

	p, err := poller.NewPoller()
	if err != nil {
		unix.Close(lfd)
		return fmt.Errorf("poller: %w", err)
	}
	s.p = p

	if err := p.Add(lfd); err != nil {
		s.teardown()
		return fmt.Errorf("register listener: %w", err)
	}

	s.svc.log.Info().
		Str("backend", "notify").
		Str("bind", s.opts.Bind).
		Int("port", s.opts.Port).
		Int("max_connections", s.arena.Cap()).
		Msg("reactor listening")

	lastSweep := time.Now()

	for !s.stop.Load() {
		events, err := s.p.Wait(PollTimeoutMs)
		if err != nil {
			s.teardown()
			return fmt.Errorf("poller wait: %w", err)
		}

		for _, ev := range events {
			if ev.FD == s.listenFD {
				s.acceptAll()
				continue
			}
			s.handleEvent(ev)
		}

		if s.opts.IdleTimeout > 0 && time.Since(lastSweep) >= time.Second {
			s.sweepIdle()
			lastSweep = time.Now()
		}
	}

	s.teardown()
	return nil
}

// Shutdown stops the loop; it is observed at the next wait timeout.
func (s *NotifyServer) Shutdown() {
	s.stop.Store(true)
}

// handleEvent runs at most one bounded I/O step for the connection, then
// adjusts write interest to match any state transition.
func (s *NotifyServer) handleEvent(ev poller.Event) {
	h, ok := s.handles[ev.FD]
	if !ok {
		return
	}
	c := s.arena.Get(h)

	if ev.Readable {
		switch c.onReadable(&s.svc) {
		case ioClose:
			s.closeConn(ev.FD, h)
			return
		case ioWantWrite:
			if err := s.p.ModWrite(ev.FD, true); err != nil {
				s.closeConn(ev.FD, h)
			}
			return
		}
	}

	if ev.Writable {
		if c.onWritable(&s.svc) == ioClose {
			s.closeConn(ev.FD, h)
			return
		}
	}

	// Hang-up with nothing to consume: the peer is gone.
	if ev.Hup && !ev.Readable && !ev.Writable {
		s.closeConn(ev.FD, h)
	}
}

// acceptAll drains every pending connection behind one listener
// notification, same admission rules as the poll reactor.
func (s *NotifyServer) acceptAll() {
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
			unix.Close(nfd)
			continue
		}

		if err := configureClient(nfd); err != nil {
			unix.Close(nfd)
			s.arena.Release(h)
			continue
		}

		if err := s.p.Add(nfd); err != nil {
			unix.Close(nfd)
			s.arena.Release(h)
			s.svc.log.Warn().Err(err).Msg("poller registration failed")
			continue
		}

		c.attach(nfd)
		s.handles[nfd] = h
		s.svc.stats.ConnOpened()
	}
}

// closeConn deregisters before closing so no further events arrive for a
// recycled descriptor.
func (s *NotifyServer) closeConn(fd, h int) {
	s.p.Remove(fd)
	c := s.arena.Get(h)
	c.release()
	delete(s.handles, fd)
	s.arena.Release(h)
	s.svc.stats.ConnClosed()
}

func (s *NotifyServer) sweepIdle() {
	now := time.Now()
	for fd, h := range s.handles {
		c := s.arena.Get(h)
		if now.Sub(c.lastActive) > s.opts.IdleTimeout {
			s.closeConn(fd, h)
		}
	}
}

func (s *NotifyServer) teardown() {
	for fd, h := range s.handles {
		s.closeConn(fd, h)
	}
	s.p.Close()
	unix.Close(s.listenFD)
}
