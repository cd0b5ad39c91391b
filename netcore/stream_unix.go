//go:build unix

//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Blocking-style dialing on top of non-blocking stream sockets.
//

package netcore

import (
	"context"
	"net"
	"net/netip"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// aLongTimeAgo is a deadline in the past used to interrupt waits.
var aLongTimeAgo = time.Unix(1, 0)

// dialStream dials a stream connection using [NewStreamSocket] and waits
// for the connect to complete using the Go runtime poller. The address must
// contain an IP address, not a domain name.
func dialStream(ctx context.Context, transport Transport, address string) (net.Conn, error) {
	remote, err := netip.ParseAddrPort(address)
	if err != nil {
		return nil, err
	}
	fd, err := NewStreamSocket(transport, remote)
	if err != nil {
		return nil, err
	}

	// os.NewFile registers non-blocking descriptors with the runtime
	// poller, which gives us deadlines for free.
	file := os.NewFile(uintptr(fd), transport.String()+":"+address)
	defer file.Close()

	if err := waitConnected(ctx, file); err != nil {
		return nil, err
	}

	// net.FileConn duplicates the descriptor, hence the deferred close.
	return net.FileConn(file)
}

// waitConnected waits for a pending connect to complete.
func waitConnected(ctx context.Context, file *os.File) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = file.SetWriteDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = file.SetWriteDeadline(aLongTimeAgo)
	})
	defer stop()

	rawConn, err := file.SyscallConn()
	if err != nil {
		return err
	}

	var connectErr error
	err = rawConn.Write(func(fd uintptr) bool {
		writable, err := isWritable(int(fd))
		if err != nil {
			connectErr = err
			return true
		}
		if !writable {
			return false // wait for the poller to wake us up
		}
		connectErr = SocketError(int(fd))
		return true
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return connectErr
}

// isWritable returns whether fd is writable without blocking.
func isWritable(fd int) (bool, error) {
	pfds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLOUT}}
	for {
		count, err := unix.Poll(pfds, 0)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, os.NewSyscallError("poll", err)
		}
		return count > 0 && pfds[0].Revents&(unix.POLLOUT|unix.POLLERR|unix.POLLHUP) != 0, nil
	}
}
