// Package core implements the two single-threaded reactor backends and the
// connection lifecycle state machine they share. Both reactors drive the
// same conn state machine over a fixed-capacity arena; they differ only in
// how readiness is discovered: the poll reactor rebuilds its full interest
// set every iteration, the notify reactor keeps persistent registrations and
// re-arms write interest on state transitions.
package core

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/searchktools/c10k-httpd/core/docroot"
	"github.com/searchktools/c10k-httpd/core/observability"
	"github.com/searchktools/c10k-httpd/core/pools"
)

// Options configures a reactor backend.
type Options struct {
	Bind string
	Port int

	// MaxConnections is the pool capacity K; the (K+1)-th simultaneous
	// connection is closed at accept with no protocol exchange.
	MaxConnections int

	// Preallocate switches the arena to eager buffer allocation at startup
	// instead of lazy allocation on first use.
	Preallocate bool

	// IdleTimeout, when positive, closes connections with no I/O activity
	// for that long. Zero disables the sweep, matching the original
	// behavior of never reaping idle reactor connections.
	IdleTimeout time.Duration
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.MaxConnections <= 0 {
		out.MaxConnections = DefaultMaxConnections
	}
	return out
}

// service bundles the collaborators every connection handler needs, passed
// explicitly instead of living in package state.
type service struct {
	resolver *docroot.Resolver
	stats    *observability.Stats
	log      zerolog.Logger
}

// newArena builds the connection arena for the configured allocation policy.
func newArena(opts Options) *pools.Arena[conn] {
	if opts.Preallocate {
		return pools.NewArena(opts.MaxConnections, initConn)
	}
	return pools.NewArena[conn](opts.MaxConnections, nil)
}
