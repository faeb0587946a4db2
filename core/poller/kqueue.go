//go:build darwin

package poller

import "golang.org/x/sys/unix"

const maxEvents = 1024

// KqueuePoller is the kqueue-based readiness backend.
type KqueuePoller struct {
	kqfd   int
	events []unix.Kevent_t
	batch  []Event
}

// NewPoller creates the platform poller (Darwin: kqueue).
func NewPoller() (Poller, error) {
	kqfd, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}

	return &KqueuePoller{
		kqfd:   kqfd,
		events: make([]unix.Kevent_t, maxEvents),
		batch:  make([]Event, 0, maxEvents),
	}, nil
}

// Add registers fd for read readiness.
func (p *KqueuePoller) Add(fd int) error {
	ev := unix.Kevent_t{
		Ident:  uint64(fd),
		Filter: unix.EVFILT_READ,
		Flags:  unix.EV_ADD | unix.EV_ENABLE,
	}
	_, err := unix.Kevent(p.kqfd, []unix.Kevent_t{ev}, nil, nil)
	return err
}

// ModWrite swaps the read and write filters. Kqueue filters are independent
// registrations, so the outgoing one is deleted explicitly; a filter that
// was never armed reports ENOENT, which is fine.
func (p *KqueuePoller) ModWrite(fd int, enable bool) error {
	arm, disarm := unix.EVFILT_WRITE, unix.EVFILT_READ
	if !enable {
		arm, disarm = unix.EVFILT_READ, unix.EVFILT_WRITE
	}

	ev := unix.Kevent_t{
		Ident:  uint64(fd),
		Filter: int16(arm),
		Flags:  unix.EV_ADD | unix.EV_ENABLE,
	}
	if _, err := unix.Kevent(p.kqfd, []unix.Kevent_t{ev}, nil, nil); err != nil {
		return err
	}

	ev = unix.Kevent_t{
		Ident:  uint64(fd),
		Filter: int16(disarm),
		Flags:  unix.EV_DELETE,
	}
	if _, err := unix.Kevent(p.kqfd, []unix.Kevent_t{ev}, nil, nil); err != nil && err != unix.ENOENT {
		return err
	}
	return nil
}

// Remove deregisters both filters; a missing write filter is not an error.
func (p *KqueuePoller) Remove(fd int) error {
	evs := []unix.Kevent_t{
		{Ident: uint64(fd), Filter: unix.EVFILT_READ, Flags: unix.EV_DELETE},
		{Ident: uint64(fd), Filter: unix.EVFILT_WRITE, Flags: unix.EV_DELETE},
	}
	for _, ev := range evs {
		if _, err := unix.Kevent(p.kqfd, []unix.Kevent_t{ev}, nil, nil); err != nil && err != unix.ENOENT {
			return err
		}
	}
	return nil
}

// Wait collects one batch of events.
func (p *KqueuePoller) Wait(timeoutMs int) ([]Event, error) {
	ts := unix.NsecToTimespec(int64(timeoutMs) * 1e6)

	n, err := unix.Kevent(p.kqfd, nil, p.events, &ts)
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
			FD:       int(ev.Ident),
			Readable: ev.Filter == unix.EVFILT_READ,
			Writable: ev.Filter == unix.EVFILT_WRITE,
			Hup:      ev.Flags&unix.EV_EOF != 0,
		})
	}
	return p.batch, nil
}

// Close closes the kqueue descriptor.
func (p *KqueuePoller) Close() error {
	return unix.Close(p.kqfd)
}
