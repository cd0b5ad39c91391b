// SPDX-License-Identifier: GPL-3.0-or-later

package netcore

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/rbmk-project/common/mocks"
	"github.com/rbmk-project/common/runtimex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockAssociation returns a mocked conn between the given endpoints.
func newMockAssociation(local, remote string) *mocks.Conn {
	return &mocks.Conn{
		MockLocalAddr: func() net.Addr {
			return net.TCPAddrFromAddrPort(runtimex.Try1(netip.ParseAddrPort(local)))
		},
		MockRemoteAddr: func() net.Addr {
			return net.TCPAddrFromAddrPort(runtimex.Try1(netip.ParseAddrPort(remote)))
		},
	}
}

// newJSONLogger returns a JSON logger without the time key.
func newJSONLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

func TestNetwork_DialContext(t *testing.T) {
	t.Run("unsupported networks", func(t *testing.T) {
		for _, network := range []string{"udp", "unix", "ip4", ""} {
			nx := &Network{
				DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
					t.Fatal("should not be called")
					return nil, nil
				},
			}
			conn, err := nx.DialContext(context.Background(), network, "127.0.0.1:2905")
			assert.ErrorContains(t, err, "unsupported network", network)
			assert.Nil(t, conn)
		}
	})

	t.Run("lookup failure", func(t *testing.T) {
		expectedErr := errors.New("mocked lookup error")
		nx := &Network{
			LookupHostFunc: func(ctx context.Context, domain string) ([]string, error) {
				assert.Equal(t, "stp.example.net", domain)
				return nil, expectedErr
			},
		}
		conn, err := nx.DialContext(context.Background(), "sctp", "stp.example.net:2905")
		assert.ErrorIs(t, err, expectedErr)
		assert.Nil(t, conn)
	})

	t.Run("tries every resolved address", func(t *testing.T) {
		mockConn := newMockAssociation("10.0.0.1:40000", "10.0.0.3:2905")
		var dialed []string
		nx := &Network{
			LookupHostFunc: func(ctx context.Context, domain string) ([]string, error) {
				return []string{"10.0.0.2", "10.0.0.3"}, nil
			},
			DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
				assert.Equal(t, "sctp", network)
				dialed = append(dialed, address)
				if address == "10.0.0.2:2905" {
					return nil, errors.New("mocked dial error")
				}
				return mockConn, nil
			},
		}
		conn, err := nx.DialContext(context.Background(), "sctp", "stp.example.net:2905")
		require.NoError(t, err)
		assert.Equal(t, mockConn, conn)
		assert.Equal(t, []string{"10.0.0.2:2905", "10.0.0.3:2905"}, dialed)
	})

	t.Run("wraps the conn when logging", func(t *testing.T) {
		var buf bytes.Buffer
		nx := &Network{
			DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
				return newMockAssociation("10.0.0.1:40000", "10.0.0.2:2905"), nil
			},
			Logger:   newJSONLogger(&buf),
			WrapConn: WrapConn,
		}
		conn, err := nx.DialContext(context.Background(), "sctp4", "10.0.0.2:2905")
		require.NoError(t, err)
		assert.IsType(t, &connWrapper{}, conn)
	})
}

func TestNetwork_sequentialDial(t *testing.T) {
	t.Run("empty endpoints list", func(t *testing.T) {
		nx := &Network{}
		conn, err := nx.sequentialDial(context.Background(), "sctp", nx.dialLog)
		assert.Error(t, err)
		assert.Nil(t, conn)
	})

	t.Run("all endpoints fail", func(t *testing.T) {
		err1 := errors.New("error 1")
		err2 := errors.New("error 2")
		nx := &Network{
			DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
				if address == "10.0.0.1:2905" {
					return nil, err1
				}
				return nil, err2
			},
		}
		conn, err := nx.sequentialDial(context.Background(), "sctp", nx.dialLog, "10.0.0.1:2905", "10.0.0.2:2905")
		assert.Nil(t, conn)
		assert.ErrorIs(t, err, err1)
		assert.ErrorIs(t, err, err2)
	})

	t.Run("stops at the first success", func(t *testing.T) {
		mockConn := &mocks.Conn{}
		attempts := 0
		nx := &Network{
			DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
				attempts++
				return mockConn, nil
			},
		}
		conn, err := nx.sequentialDial(context.Background(), "sctp", nx.dialLog, "10.0.0.1:2905", "10.0.0.2:2905")
		require.NoError(t, err)
		assert.Equal(t, mockConn, conn)
		assert.Equal(t, 1, attempts)
	})
}

func TestNetwork_dialLog(t *testing.T) {
	fixedTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		conn          net.Conn
		err           error
		wantErr       any
		wantErrClass  string
		wantLocalAddr string
	}{
		{
			name:          "success",
			conn:          newMockAssociation("10.0.0.1:40000", "10.0.0.2:2905"),
			wantLocalAddr: "10.0.0.1:40000",
		},
		{
			name:         "failure",
			err:          &net.OpError{Op: "dial", Err: errors.New("mocked")},
			wantErr:      "dial: mocked",
			wantErrClass: "EGENERIC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			nx := &Network{
				Logger:  newJSONLogger(&buf),
				TimeNow: func() time.Time { return fixedTime },
				DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
					return tt.conn, tt.err
				},
			}

			conn, err := nx.dialLog(context.Background(), "sctp", "10.0.0.2:2905")
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				assert.Nil(t, conn)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.conn, conn)
			}

			logs := decodeLogs(t, &buf)
			require.Len(t, logs, 2)
			assert.Equal(t, map[string]any{
				"level":      "INFO",
				"msg":        "connectStart",
				"protocol":   "sctp",
				"remoteAddr": "10.0.0.2:2905",
				"t":          fixedTime.Format(time.RFC3339Nano),
			}, logs[0])
			assert.Equal(t, map[string]any{
				"level":      "INFO",
				"msg":        "connectDone",
				"err":        tt.wantErr,
				"errClass":   tt.wantErrClass,
				"localAddr":  tt.wantLocalAddr,
				"protocol":   "sctp",
				"remoteAddr": "10.0.0.2:2905",
				"t0":         fixedTime.Format(time.RFC3339Nano),
				"t":          fixedTime.Format(time.RFC3339Nano),
			}, logs[1])
		})
	}

	t.Run("honors DialContextTimeout", func(t *testing.T) {
		nx := &Network{
			DialContextTimeout: time.Second,
			DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
				deadline, ok := ctx.Deadline()
				assert.True(t, ok)
				assert.WithinDuration(t, time.Now().Add(time.Second), deadline, 500*time.Millisecond)
				return nil, context.DeadlineExceeded
			},
		}
		_, err := nx.dialLog(context.Background(), "sctp", "10.0.0.2:2905")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestNetwork_dialNet(t *testing.T) {
	t.Run("using custom dialer", func(t *testing.T) {
		mockConn := &mocks.Conn{}
		nx := &Network{
			DialContextFunc: func(ctx context.Context, network, address string) (net.Conn, error) {
				return mockConn, nil
			},
		}
		conn, err := nx.dialNet(context.Background(), "sctp", "10.0.0.2:2905")
		assert.NoError(t, err)
		assert.Equal(t, mockConn, conn)
	})

	t.Run("using net package for tcp", func(t *testing.T) {
		listener := runtimex.Try1(net.Listen("tcp", "127.0.0.1:0"))
		defer listener.Close()

		nx := &Network{}
		conn, err := nx.dialNet(context.Background(), "tcp", listener.Addr().String())
		require.NoError(t, err)
		assert.Equal(t, listener.Addr().String(), conn.RemoteAddr().String())
		conn.Close()
	})
}
