//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Definition of Network.
//

package netcore

import (
	"context"
	"log/slog"
	"net"
	"time"
)

// Network allows dialing and measuring SCTP/TCP connections.
//
// The zero value is ready to use.
//
// A [*Network] is safe for concurrent use by multiple goroutines as long as
// you don't modify its fields after construction and the underlying fields you
// may set (e.g., DialContextFunc) are also safe.
type Network struct {
	// DialContextFunc is the optional dialer for creating new
	// connections. If this field is nil, we use the [net] package
	// for TCP and [NewStreamSocket] for SCTP.
	DialContextFunc func(ctx context.Context, network, address string) (net.Conn, error)

	// Logger is the optional structured logger for emitting
	// structured diagnostic events. If this field is nil, we
	// will not be emitting structured logs.
	Logger *slog.Logger

	// LookupHostFunc is the optional function to resolve a domain
	// name to IP addresses. If this field is nil, we use the
	// default [*net.Resolver] from the [net] package.
	LookupHostFunc func(ctx context.Context, domain string) ([]string, error)

	// TimeNow is an optional function that returns the current time.
	// If this field is nil, the [time.Now] function will be used.
	TimeNow func() time.Time

	// WrapConn is an optional function to wrap a connection to emit
	// structured logs. [WrapConn] is the default wrapper to use.
	WrapConn func(ctx context.Context, netx *Network, network string, conn net.Conn) net.Conn

	// DialContextTimeout is the optional timeout to use for limiting
	// the maximum time spent creating a single connection.
	DialContextTimeout time.Duration
}

// NewNetwork creates a new [*Network] that wraps connections
// using [WrapConn] whenever a Logger is configured.
func NewNetwork() *Network {
	return &Network{WrapConn: WrapConn}
}

// DefaultNetwork is the default [*Network] used by this package.
var DefaultNetwork = &Network{}

// timeNow is a function that returns the current time.
func (nx *Network) timeNow() time.Time {
	if nx.TimeNow != nil {
		return nx.TimeNow()
	}
	return time.Now()
}
