// Package poller abstracts the kernel readiness-notification mechanisms used
// by the notify reactor: epoll on Linux, kqueue on BSD/macOS. Registrations
// are persistent; write interest is armed and disarmed explicitly as
// connections transition between reading and sending.
package poller

// Event is one readiness notification for a descriptor. Events within a
// single Wait batch are delivered in the order the kernel reported them.
type Event struct {
	FD       int
	Readable bool
	Writable bool
	Hup      bool
}

// Poller is the readiness-notification interface.
type Poller interface {
	// Add registers fd for read readiness. The registration persists until
	// Remove.
	Add(fd int) error

	// ModWrite switches an already-registered fd between read and write
	// interest. Enabling write drops read interest: a connection sending a
	// response never returns to reading, and leaving read armed would spin
	// the loop on unread pipelined bytes. Hang-up detection stays active
	// either way.
	ModWrite(fd int, enable bool) error

	// Remove deregisters fd entirely.
	Remove(fd int) error

	// Wait blocks up to timeoutMs for events. A nil slice with nil error
	// means the wait timed out.
	Wait(timeoutMs int) ([]Event, error)

	Close() error
}
