//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/ooni/probe-cli/blob/v3.20.1/internal/measurexlite/conn.go
//
// Association wrapper emitting structured logs for I/O and close events.
//

package netcore

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rbmk-project/sctpscan/errclass"
	"github.com/rbmk-project/sctpscan/netipx"
)

// endpointString formats the endpoint of addr or returns the empty string.
func endpointString(addr net.Addr) string {
	if ap, ok := netipx.Endpoint(addr); ok {
		return ap.String()
	}
	return ""
}

// maybeWrapConn wraps a connection when it makes sense to do so.
func (nx *Network) maybeWrapConn(ctx context.Context, network string, conn net.Conn) net.Conn {
	if conn != nil && nx.Logger != nil && nx.WrapConn != nil {
		conn = nx.WrapConn(ctx, nx, network, conn)
	}
	return conn
}

// WrapConn wraps a given [net.Conn] to emit structured logs.
//
// We take the network as an argument because SCTP conns created through
// [net.FileConn] report TCP local and remote addresses.
func WrapConn(ctx context.Context, netx *Network, network string, conn net.Conn) net.Conn {
	return &connWrapper{
		conn:     conn,
		ctx:      ctx,
		laddr:    endpointString(conn.LocalAddr()),
		netx:     netx,
		protocol: network,
		raddr:    endpointString(conn.RemoteAddr()),
	}
}

// connWrapper wraps a [net.Conn] and counts the bytes it transfers.
type connWrapper struct {
	closeonce sync.Once
	conn      net.Conn
	ctx       context.Context // only used for logging
	laddr     string
	netx      *Network // may contain nil logger!
	protocol  string
	raddr     string
	received  atomic.Int64
	sent      atomic.Int64
}

// Close implements [net.Conn].
//
// The closeDone event reports the bytes sent and received over the
// lifetime of the association.
func (c *connWrapper) Close() (err error) {
	c.closeonce.Do(func() {
		t0 := c.netx.timeNow()
		c.emit("closeStart", slog.Time("t", t0))
		err = c.conn.Close()
		c.emit(
			"closeDone",
			slog.Int64("bytesReceived", c.received.Load()),
			slog.Int64("bytesSent", c.sent.Load()),
			slog.Any("err", err),
			slog.String("errClass", errclass.New(err)),
			slog.Time("t0", t0),
			slog.Time("t", c.netx.timeNow()),
		)
	})
	return
}

// LocalAddr implements [net.Conn].
func (c *connWrapper) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// Read implements [net.Conn].
func (c *connWrapper) Read(buf []byte) (int, error) {
	t0 := c.netx.timeNow()
	c.emit("readStart", slog.Int("ioBufferSize", len(buf)), slog.Time("t", t0))
	count, err := c.conn.Read(buf)
	c.received.Add(int64(count))
	c.emitIODone("readDone", t0, count, err)
	return count, err
}

// RemoteAddr implements [net.Conn].
func (c *connWrapper) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// SetDeadline implements [net.Conn].
func (c *connWrapper) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

// SetReadDeadline implements [net.Conn].
func (c *connWrapper) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// SetWriteDeadline implements [net.Conn].
func (c *connWrapper) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}

// Write implements [net.Conn].
func (c *connWrapper) Write(data []byte) (int, error) {
	t0 := c.netx.timeNow()
	c.emit("writeStart", slog.Int("ioBufferSize", len(data)), slog.Time("t", t0))
	count, err := c.conn.Write(data)
	c.sent.Add(int64(count))
	c.emitIODone("writeDone", t0, count, err)
	return count, err
}

// emitIODone emits the event following a read or a write.
func (c *connWrapper) emitIODone(msg string, t0 time.Time, count int, err error) {
	c.emit(
		msg,
		slog.Int("ioBytesCount", count),
		slog.Any("err", err),
		slog.String("errClass", errclass.New(err)),
		slog.Time("t0", t0),
		slog.Time("t", c.netx.timeNow()),
	)
}

// emit emits an event carrying the association endpoints.
func (c *connWrapper) emit(msg string, attrs ...slog.Attr) {
	if c.netx.Logger == nil {
		return
	}
	attrs = append(attrs,
		slog.String("localAddr", c.laddr),
		slog.String("protocol", c.protocol),
		slog.String("remoteAddr", c.raddr),
	)
	c.netx.Logger.LogAttrs(c.ctx, slog.LevelInfo, msg, attrs...)
}
