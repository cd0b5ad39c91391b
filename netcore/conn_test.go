// SPDX-License-Identifier: GPL-3.0-or-later

package netcore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/rbmk-project/common/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointString(t *testing.T) {
	assert.Equal(t, "", endpointString(nil))
	assert.Equal(t, "", endpointString(&net.UnixAddr{Name: "/tmp/sock", Net: "unix"}))
	assert.Equal(t, "127.0.0.1:2905", endpointString(&net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 2905}))
	assert.Equal(t, "[2001:db8::1]:2905", endpointString(&net.TCPAddr{IP: net.ParseIP("2001:db8::1"), Port: 2905}))
}

func TestMaybeWrapConn(t *testing.T) {
	t.Run("nil connection", func(t *testing.T) {
		nx := &Network{}
		assert.Nil(t, nx.maybeWrapConn(context.Background(), "tcp", nil))
	})

	t.Run("no logger configured", func(t *testing.T) {
		nx := &Network{WrapConn: WrapConn}
		conn := &mocks.Conn{}
		assert.Equal(t, conn, nx.maybeWrapConn(context.Background(), "sctp", conn))
	})

	t.Run("no wrapper configured", func(t *testing.T) {
		nx := &Network{
			Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		}
		conn := &mocks.Conn{}
		assert.Equal(t, conn, nx.maybeWrapConn(context.Background(), "sctp", conn))
	})

	t.Run("full wrapping", func(t *testing.T) {
		nx := &Network{
			Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
			WrapConn: WrapConn,
		}
		conn := &mocks.Conn{
			MockLocalAddr: func() net.Addr {
				return &net.TCPAddr{IP: net.ParseIP("127.0.0.1"), Port: 54321}
			},
			MockRemoteAddr: func() net.Addr {
				return &net.TCPAddr{IP: net.ParseIP("10.0.0.2"), Port: 2905}
			},
		}
		wrapped := nx.maybeWrapConn(context.Background(), "sctp", conn)
		require.IsType(t, &connWrapper{}, wrapped)
		cw := wrapped.(*connWrapper)
		assert.Equal(t, "127.0.0.1:54321", cw.laddr)
		assert.Equal(t, "10.0.0.2:2905", cw.raddr)
		assert.Equal(t, "sctp", cw.protocol)
	})

	t.Run("unknown addresses", func(t *testing.T) {
		nx := &Network{
			Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
			WrapConn: WrapConn,
		}
		conn := &mocks.Conn{
			MockLocalAddr:  func() net.Addr { return nil },
			MockRemoteAddr: func() net.Addr { return nil },
		}
		cw := nx.maybeWrapConn(context.Background(), "sctp", conn).(*connWrapper)
		assert.Empty(t, cw.laddr)
		assert.Empty(t, cw.raddr)
	})
}

// fixedTime is the time returned by the clock of the wrapped conns.
var fixedTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// newTestWrapper wraps conn with a JSON logger writing into the returned buffer.
func newTestWrapper(conn net.Conn) (*bytes.Buffer, *connWrapper) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
	wrapper := &connWrapper{
		conn:     conn,
		ctx:      context.Background(),
		laddr:    "10.0.0.1:40000",
		netx:     &Network{Logger: logger, TimeNow: func() time.Time { return fixedTime }},
		protocol: "sctp",
		raddr:    "10.0.0.2:2905",
	}
	return &buf, wrapper
}

// decodeLogs parses the JSON log lines in buf.
func decodeLogs(t *testing.T, buf *bytes.Buffer) []map[string]any {
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestConnWrapperClose(t *testing.T) {
	tests := []struct {
		name        string
		closeErr    error
		wantErr     any
		wantErrClss string
	}{
		{name: "success", closeErr: nil, wantErr: nil, wantErrClss: ""},
		{name: "failure", closeErr: errors.New("mocked close error"), wantErr: "mocked close error", wantErrClss: "EGENERIC"},
		{name: "already closed", closeErr: net.ErrClosed, wantErr: net.ErrClosed.Error(), wantErrClss: "EINTR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			buf, wrapper := newTestWrapper(&mocks.Conn{
				MockClose: func() error {
					calls++
					return tt.closeErr
				},
			})

			assert.ErrorIs(t, wrapper.Close(), tt.closeErr)
			assert.NoError(t, wrapper.Close())
			assert.Equal(t, 1, calls)

			logs := decodeLogs(t, buf)
			require.Len(t, logs, 2)
			assert.Equal(t, map[string]any{
				"level":      "INFO",
				"msg":        "closeStart",
				"localAddr":  "10.0.0.1:40000",
				"protocol":   "sctp",
				"remoteAddr": "10.0.0.2:2905",
				"t":          fixedTime.Format(time.RFC3339Nano),
			}, logs[0])
			assert.Equal(t, map[string]any{
				"level":         "INFO",
				"msg":           "closeDone",
				"bytesReceived": float64(0),
				"bytesSent":     float64(0),
				"err":           tt.wantErr,
				"errClass":      tt.wantErrClss,
				"localAddr":     "10.0.0.1:40000",
				"protocol":      "sctp",
				"remoteAddr":    "10.0.0.2:2905",
				"t0":            fixedTime.Format(time.RFC3339Nano),
				"t":             fixedTime.Format(time.RFC3339Nano),
			}, logs[1])
		})
	}

	t.Run("no logger configured", func(t *testing.T) {
		wrapper := &connWrapper{
			conn: &mocks.Conn{MockClose: func() error { return nil }},
			ctx:  context.Background(),
			netx: &Network{},
		}
		assert.NoError(t, wrapper.Close())
	})
}

func TestConnWrapperIO(t *testing.T) {
	writes := 0
	buf, wrapper := newTestWrapper(&mocks.Conn{
		MockRead: func(b []byte) (int, error) {
			return copy(b, []byte{0x01, 0x00, 0x03, 0x04, 0x00, 0x00, 0x00, 0x08}), nil
		},
		MockWrite: func(b []byte) (int, error) {
			writes++
			if writes > 1 {
				return 0, io.ErrClosedPipe
			}
			return len(b), nil
		},
		MockClose: func() error { return nil },
	})

	count, err := wrapper.Write([]byte{0x01, 0x00, 0x03, 0x01, 0x00, 0x00, 0x00, 0x08})
	require.NoError(t, err)
	assert.Equal(t, 8, count)

	count, err = wrapper.Read(make([]byte, 1024))
	require.NoError(t, err)
	assert.Equal(t, 8, count)

	count, err = wrapper.Write([]byte{0x01})
	assert.ErrorIs(t, err, io.ErrClosedPipe)
	assert.Equal(t, 0, count)

	require.NoError(t, wrapper.Close())

	logs := decodeLogs(t, buf)
	require.Len(t, logs, 8)

	var msgs []string
	for _, entry := range logs {
		msgs = append(msgs, entry["msg"].(string))
	}
	assert.Equal(t, []string{
		"writeStart", "writeDone",
		"readStart", "readDone",
		"writeStart", "writeDone",
		"closeStart", "closeDone",
	}, msgs)

	assert.Equal(t, float64(1024), logs[2]["ioBufferSize"])
	assert.Equal(t, map[string]any{
		"level":        "INFO",
		"msg":          "readDone",
		"ioBytesCount": float64(8),
		"err":          nil,
		"errClass":     "",
		"localAddr":    "10.0.0.1:40000",
		"protocol":     "sctp",
		"remoteAddr":   "10.0.0.2:2905",
		"t0":           fixedTime.Format(time.RFC3339Nano),
		"t":            fixedTime.Format(time.RFC3339Nano),
	}, logs[3])
	assert.Equal(t, "io: read/write on closed pipe", logs[5]["err"])
	assert.Equal(t, "EGENERIC", logs[5]["errClass"])

	// the failed write does not count
	assert.Equal(t, float64(8), logs[7]["bytesSent"])
	assert.Equal(t, float64(8), logs[7]["bytesReceived"])
}
