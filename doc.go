/*
Package c10khttpd is a static file server built to handle very large numbers
of concurrent connections, with three interchangeable concurrency backends
behind one connection-lifecycle contract.

Backends

  - poll: a level-triggered single-threaded reactor. The full interest set
    is rebuilt from connection states every iteration and handed to poll(2)
    with a short bounded timeout.
  - notify: an edge-notified single-threaded reactor over a persistent
    registration poller (epoll on Linux, kqueue on BSD/macOS) with a
    fixed-capacity pre-allocated connection pool. Write interest is armed
    only once a response exists and disarmed on completion.
  - threadpool: a bounded worker pool over blocking I/O with keep-alive.
    One accepting goroutine feeds a mutex/condvar queue; a full queue sheds
    new connections at admission time.

All three serve the same GET-only HTTP subset: requests are parsed once the
CRLFCRLF terminator arrives, paths resolve under a canonical document root
with a containment check, and files stream back in fixed-size chunks so
per-connection memory stays bounded regardless of file size.

Modules

  - cmd/c10kd: entry binary
  - config: flag + environment configuration
  - app: lifecycle wiring and signal handling
  - core: connection state machine and the two reactors
  - core/poller: epoll/kqueue readiness backends
  - core/pools: connection slot arena and tiered byte pool
  - core/http: request parser and response builders
  - core/docroot: path resolution and containment
  - core/threadpool: bounded queue worker-pool backend
  - core/observability: counters, stats log, admin endpoint

Quick start:

	c10kd -root /var/www -port 8080 -backend notify
*/
package c10khttpd
