//go:build !unix

//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Non-blocking stream sockets (unsupported platforms).
//

package netcore

import (
	"errors"
	"net/netip"
	"os"
)

// NewStreamSocket is not supported on this platform.
func NewStreamSocket(transport Transport, remote netip.AddrPort) (int, error) {
	return -1, os.NewSyscallError("socket", errors.ErrUnsupported)
}

// SocketError is not supported on this platform.
func SocketError(fd int) error {
	return os.NewSyscallError("getsockopt", errors.ErrUnsupported)
}

// CloseSocket is not supported on this platform.
func CloseSocket(fd int) error {
	return os.NewSyscallError("close", errors.ErrUnsupported)
}
