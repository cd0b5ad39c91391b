//go:build unix

//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Non-blocking stream sockets.
//

package netcore

import (
	"net/netip"
	"os"

	"golang.org/x/sys/unix"
)

// NewStreamSocket creates a non-blocking, close-on-exec stream socket for
// the given transport, binds it to the wildcard address using an ephemeral
// port, and issues a non-blocking connect to remote.
//
// On success, the returned file descriptor is either connected or has a
// connect in progress: wait for it to become writable and then use
// [SocketError] to learn the outcome. The caller owns the descriptor.
//
// On failure, no descriptor is leaked and the error is an [*os.SyscallError]
// whose Syscall field tells which step failed. A "connect" failure means
// that the kernel refused the connect immediately (e.g., ENETUNREACH),
// while other steps indicate local resource problems (e.g., EMFILE).
func NewStreamSocket(transport Transport, remote netip.AddrPort) (int, error) {
	rsa, lsa, family := sockaddrs(remote)
	fd, err := unix.Socket(family, unix.SOCK_STREAM, transport.protocol())
	if err != nil {
		return -1, os.NewSyscallError("socket", err)
	}
	unix.CloseOnExec(fd)
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, os.NewSyscallError("setnonblock", err)
	}
	if err := unix.Bind(fd, lsa); err != nil {
		unix.Close(fd)
		return -1, os.NewSyscallError("bind", err)
	}
	switch err := unix.Connect(fd, rsa); err {
	case nil, unix.EINPROGRESS, unix.EINTR:
		return fd, nil
	default:
		unix.Close(fd)
		return -1, os.NewSyscallError("connect", err)
	}
}

// SocketError returns the pending error of a socket (SO_ERROR), or
// nil if the socket has no pending error.
func SocketError(fd int) error {
	value, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return os.NewSyscallError("getsockopt", err)
	}
	if value != 0 {
		return os.NewSyscallError("connect", unix.Errno(value))
	}
	return nil
}

// CloseSocket closes a descriptor returned by [NewStreamSocket].
func CloseSocket(fd int) error {
	return unix.Close(fd)
}

// protocol returns the IPPROTO_XXX value for the transport.
func (t Transport) protocol() int {
	if t == TransportTCP {
		return unix.IPPROTO_TCP
	}
	return unix.IPPROTO_SCTP
}

// sockaddrs returns the remote sockaddr, the wildcard local sockaddr
// of the same family, and the address family.
func sockaddrs(remote netip.AddrPort) (rsa, lsa unix.Sockaddr, family int) {
	addr := remote.Addr().Unmap()
	if addr.Is4() {
		return &unix.SockaddrInet4{Port: int(remote.Port()), Addr: addr.As4()},
			&unix.SockaddrInet4{}, unix.AF_INET
	}
	return &unix.SockaddrInet6{Port: int(remote.Port()), Addr: addr.As16()},
		&unix.SockaddrInet6{}, unix.AF_INET6
}
