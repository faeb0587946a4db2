package core

import (
	"fmt"
	"net"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// newListenSocket creates a non-blocking IPv4 listener. An empty bind
// address listens on all interfaces.
func newListenSocket(bind string, port int) (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, fmt.Errorf("socket: %w", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("SO_REUSEADDR: %w", err)
	}
	// Non-fatal; lets multiple instances share the port for load spreading.
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)

	sa := &unix.SockaddrInet4{Port: port}
	if bind != "" {
		ip := net.ParseIP(bind)
		if ip == nil || ip.To4() == nil {
			unix.Close(fd)
			return -1, fmt.Errorf("invalid bind address %q", bind)
		}
		copy(sa.Addr[:], ip.To4())
	}

	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("bind %s:%d: %w", bind, port, err)
	}
	if err := unix.Listen(fd, ListenBacklog); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("listen: %w", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("set nonblock: %w", err)
	}

	return fd, nil
}

// configureClient puts an accepted socket into the shape the reactors
// expect: non-blocking, Nagle off.
func configureClient(fd int) error {
	if err := unix.SetNonblock(fd, true); err != nil {
		return err
	}
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
}

// raiseFileLimit lifts RLIMIT_NOFILE toward its hard cap. Serving tens of
// thousands of sockets under default limits fails at accept, so this runs
// before the listener is created. Failure is logged, not fatal.
func raiseFileLimit(log zerolog.Logger) {
	var rl unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
		log.Warn().Err(err).Msg("getrlimit failed")
		return
	}
	rl.Cur = rl.Max
	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
		log.Warn().Err(err).Msg("could not raise file descriptor limit")
		return
	}
	log.Debug().Uint64("nofile", uint64(rl.Cur)).Msg("file descriptor limit raised")
}
