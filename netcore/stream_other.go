//go:build !unix

//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Blocking-style dialing on top of non-blocking stream sockets (unsupported).
//

package netcore

import (
	"context"
	"errors"
	"net"
)

// dialStream is not supported on this platform.
func dialStream(ctx context.Context, transport Transport, address string) (net.Conn, error) {
	return nil, &net.OpError{Op: "dial", Net: transport.String(), Err: errors.ErrUnsupported}
}
