//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/ooni/probe-cli/blob/v3.20.1/internal/netxlite/dialer.go
//
// SCTP and TCP conn dialer.
//

package netcore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/rbmk-project/sctpscan/errclass"
)

// DialContext establishes a new SCTP/TCP connection.
//
// The network must be one of "sctp", "sctp4", "sctp6", "tcp", "tcp4",
// and "tcp6". The address may contain a domain name, in which case
// we resolve it and sequentially try each resolved address.
func (nx *Network) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if _, ok := transportForNetwork(network); !ok {
		return nil, fmt.Errorf("netcore: unsupported network %q", network)
	}

	// resolve the endpoints to connect to
	endpoints, err := nx.maybeLookupEndpoint(ctx, address)
	if err != nil {
		return nil, err
	}

	// sequentially attempt with each available endpoint
	return nx.sequentialDial(ctx, network, nx.dialLog, endpoints...)
}

// dialContextFunc is a function used to dial a connection.
type dialContextFunc func(ctx context.Context, network, address string) (net.Conn, error)

// sequentialDial attempts to dial the endpoints in sequence until one
// of them succeeds. It returns the first successfully established network
// connection, on success, and the union of all errors, otherwise.
func (nx *Network) sequentialDial(
	ctx context.Context,
	network string,
	fx dialContextFunc,
	endpoints ...string,
) (net.Conn, error) {
	if len(endpoints) <= 0 {
		return nil, errors.New("netcore: no endpoints to dial")
	}
	var errv []error
	for _, endpoint := range endpoints {
		conn, err := fx(ctx, network, endpoint)
		if conn != nil && err == nil {
			return conn, nil
		}
		errv = append(errv, err)
	}
	return nil, errors.Join(errv...)
}

// dialLog dials and emits the connectStart and connectDone events.
func (nx *Network) dialLog(ctx context.Context, network, address string) (net.Conn, error) {
	if nx.DialContextTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, nx.DialContextTimeout)
		defer cancel()
	}

	t0 := nx.emitConnectStart(ctx, network, address)
	conn, err := nx.dialNet(ctx, network, address)
	nx.emitConnectDone(ctx, network, address, t0, conn, err)
	if err != nil {
		return nil, err
	}
	return nx.maybeWrapConn(ctx, network, conn), nil
}

// dialNet dials using either the user-provided dialer or the default ones.
func (nx *Network) dialNet(ctx context.Context, network, address string) (net.Conn, error) {
	// if there's an user provided dialer func, use it
	if nx.DialContextFunc != nil {
		return nx.DialContextFunc(ctx, network, address)
	}

	// SCTP is not supported by the net package
	if transport, _ := transportForNetwork(network); transport == TransportSCTP {
		return dialStream(ctx, transport, address)
	}

	// otherwise use the net package
	child := &net.Dialer{}
	child.SetMultipathTCP(false)
	return child.DialContext(ctx, network, address)
}

// emitConnectStart emits the connectStart event.
func (nx *Network) emitConnectStart(ctx context.Context, network, address string) time.Time {
	t0 := nx.timeNow()
	if nx.Logger != nil {
		nx.Logger.InfoContext(
			ctx,
			"connectStart",
			slog.String("protocol", network),
			slog.String("remoteAddr", address),
			slog.Time("t", t0),
		)
	}
	return t0
}

// emitConnectDone emits the connectDone event.
func (nx *Network) emitConnectDone(ctx context.Context,
	network, address string, t0 time.Time, conn net.Conn, err error) {
	if nx.Logger != nil {
		nx.Logger.InfoContext(
			ctx,
			"connectDone",
			slog.Any("err", err),
			slog.String("errClass", errclass.New(err)),
			slog.String("localAddr", connLocalEndpoint(conn)),
			slog.String("protocol", network),
			slog.String("remoteAddr", address),
			slog.Time("t0", t0),
			slog.Time("t", nx.timeNow()),
		)
	}
}

// connLocalEndpoint returns the local endpoint of conn, if any.
func connLocalEndpoint(conn net.Conn) string {
	if conn == nil {
		return ""
	}
	return endpointString(conn.LocalAddr())
}
