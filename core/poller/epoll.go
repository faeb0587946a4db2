//go:build linux

package poller

import "golang.org/x/sys/unix"

const maxEvents = 1024

// EpollPoller is the epoll-based readiness backend.
type EpollPoller struct {
	epfd   int
	events []unix.EpollEvent
	batch  []Event
}

// NewPoller creates the platform poller (Linux: epoll).
func NewPoller() (Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}

	return &EpollPoller{
		epfd:   epfd,
		events: make([]unix.EpollEvent, maxEvents),
		batch:  make([]Event, 0, maxEvents),
	}, nil
}

// Add registers fd for read readiness. EPOLLRDHUP is included so peer
// shutdown surfaces as an event instead of a zero-length read later.
func (p *EpollPoller) Add(fd int) error {
	ev := unix.EpollEvent{
		Events: unix.EPOLLIN | unix.EPOLLRDHUP,
		Fd:     int32(fd),
	}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

// ModWrite re-arms the interest set: EPOLLOUT replaces EPOLLIN while a
// response is being sent, EPOLLRDHUP stays set for hang-up detection.
func (p *EpollPoller) ModWrite(fd int, enable bool) error {
	events := uint32(unix.EPOLLRDHUP)
	if enable {
		events |= unix.EPOLLOUT
	} else {
		events |= unix.EPOLLIN
	}
	ev := unix.EpollEvent{
		Events: events,
		Fd:     int32(fd),
	}
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

// Remove deregisters fd.
func (p *EpollPoller) Remove(fd int) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// Wait collects one batch of events.
func (p *EpollPoller) Wait(timeoutMs int) ([]Event, error) {
	n, err := unix.EpollWait(p.epfd, p.events, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}

	p.batch = p.batch[:0]
	for i := 0; i < n; i++ {
		ev := &p.events[i]
		p.batch = append(p.batch, Event{
			FD:       int(ev.Fd),
			Readable: ev.Events&unix.EPOLLIN != 0,
			Writable: ev.Events&unix.EPOLLOUT != 0,
			Hup:      ev.Events&(unix.EPOLLHUP|unix.EPOLLERR|unix.EPOLLRDHUP) != 0,
		})
	}
	return p.batch, nil
}

// Close closes the epoll descriptor.
func (p *EpollPoller) Close() error {
	return unix.Close(p.epfd)
}
