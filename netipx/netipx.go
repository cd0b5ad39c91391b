// SPDX-License-Identifier: GPL-3.0-or-later

// Package netipx contains [net/netip] extensions.
//
// Besides address conversions, it expands the textual host and port
// specifications accepted on the command line (single addresses, CIDR
// blocks, inclusive ranges, comma lists, and host names) into the
// sorted, deduplicated lists the scanner consumes.
package netipx

import (
	"net"
	"net/netip"
)

// Endpoint returns the unmapped [netip.AddrPort] of a TCP or UDP address.
//
// Stream sockets of any protocol (including SCTP) adopted through
// [net.FileConn] report [*net.TCPAddr] addresses, so this also works
// for SCTP associations. The boolean is false for nil and for any
// other address type.
func Endpoint(addr net.Addr) (netip.AddrPort, bool) {
	var ap netip.AddrPort
	switch v := addr.(type) {
	case *net.TCPAddr:
		ap = v.AddrPort()
	case *net.UDPAddr:
		ap = v.AddrPort()
	default:
		return netip.AddrPort{}, false
	}
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port()), ap.IsValid()
}
