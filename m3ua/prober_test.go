// SPDX-License-Identifier: GPL-3.0-or-later

package m3ua

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/netip"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rbmk-project/common/mocks"
	"github.com/rbmk-project/sctpscan/netcore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveOnce accepts a single connection, reads the request, and writes reply.
func serveOnce(t *testing.T, reply []byte) (netip.AddrPort, <-chan []byte) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	requests := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 64)
		count, _ := conn.Read(buf)
		requests <- buf[:count]
		if reply != nil {
			conn.Write(reply)
		}
	}()
	return netip.MustParseAddrPort(ln.Addr().String()), requests
}

func TestProber(t *testing.T) {
	t.Run("ASPUP_ACK", func(t *testing.T) {
		endpoint, requests := serveOnce(t, []byte{0x01, 0x00, 0x03, 0x04, 0x00, 0x00, 0x00, 0x08})

		var buf bytes.Buffer
		p := &Prober{
			Network:   netcore.NewNetwork(),
			Transport: netcore.TransportTCP,
			Timeout:   5 * time.Second,
			Logger:    slog.New(slog.NewJSONHandler(&buf, nil)),
		}
		reply, err := p.Probe(context.Background(), endpoint)
		require.NoError(t, err)
		assert.True(t, reply.IsASPUpAck())
		assert.Equal(t, endpoint.Addr(), reply.LocalAddr.Addr())
		assert.NotZero(t, reply.LocalAddr.Port())
		assert.Equal(t, BuildASPUP(), <-requests)
		assert.Contains(t, buf.String(), `"msg":"m3uaProbeDone"`)
		assert.Contains(t, buf.String(), `"m3uaMessage":"ASPSM/ASPUP_ACK"`)
	})

	t.Run("unexpected message", func(t *testing.T) {
		endpoint, _ := serveOnce(t, []byte{0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x08})
		p := &Prober{Transport: netcore.TransportTCP}
		reply, err := p.Probe(context.Background(), endpoint)
		require.NoError(t, err)
		assert.False(t, reply.IsASPUpAck())
		assert.Equal(t, "MGMT/ERR", reply.Header.String())
	})

	t.Run("peer closes without replying", func(t *testing.T) {
		endpoint, _ := serveOnce(t, nil)
		p := &Prober{Transport: netcore.TransportTCP}
		reply, err := p.Probe(context.Background(), endpoint)
		assert.ErrorIs(t, err, io.EOF)
		assert.Nil(t, reply)
	})

	t.Run("garbage reply", func(t *testing.T) {
		endpoint, _ := serveOnce(t, []byte("HTTP/1.1 400 Bad Request\r\n\r\n"))
		p := &Prober{Transport: netcore.TransportTCP}
		reply, err := p.Probe(context.Background(), endpoint)
		assert.ErrorIs(t, err, ErrVersion)
		assert.Nil(t, reply)
	})

	t.Run("dial failure", func(t *testing.T) {
		expectedErr := errors.New("mocked dial error")
		p := &Prober{
			Network: &netcore.Network{
				DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
					assert.Equal(t, "sctp", network)
					assert.Equal(t, "10.0.0.1:2905", address)
					return nil, expectedErr
				},
			},
		}
		reply, err := p.Probe(context.Background(), netip.MustParseAddrPort("10.0.0.1:2905"))
		assert.ErrorIs(t, err, expectedErr)
		assert.Nil(t, reply)
	})

	t.Run("timeout while reading", func(t *testing.T) {
		client, server := net.Pipe()
		defer server.Close()
		go io.Copy(io.Discard, server)

		p := &Prober{
			Timeout: 50 * time.Millisecond,
			Network: &netcore.Network{
				DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
					return client, nil
				},
			},
		}
		reply, err := p.Probe(context.Background(), netip.MustParseAddrPort("10.0.0.1:2905"))
		assert.ErrorIs(t, err, os.ErrDeadlineExceeded)
		assert.Nil(t, reply)
	})

	t.Run("write failure", func(t *testing.T) {
		closed := false
		conn := &mocks.Conn{
			MockWrite: func(b []byte) (int, error) {
				return 0, net.ErrClosed
			},
			MockSetDeadline: func(t time.Time) error {
				return nil
			},
			MockClose: func() error {
				closed = true
				return nil
			},
		}
		p := &Prober{
			Network: &netcore.Network{
				DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
					return conn, nil
				},
			},
		}
		reply, err := p.Probe(context.Background(), netip.MustParseAddrPort("10.0.0.1:2905"))
		assert.ErrorIs(t, err, net.ErrClosed)
		assert.Nil(t, reply)
		assert.True(t, closed)
	})
}

func TestProberDefaults(t *testing.T) {
	p := &Prober{}
	assert.Equal(t, DefaultTimeout, p.timeout())
	assert.Same(t, netcore.DefaultNetwork, p.network())
	assert.True(t, strings.HasPrefix(p.Transport.String(), "sctp"))
}
