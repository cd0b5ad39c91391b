//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Transport protocols.
//

package netcore

import (
	"fmt"
	"strings"
)

// Transport is a connection-oriented transport protocol.
//
// The zero value is [TransportSCTP].
type Transport int

const (
	// TransportSCTP is SCTP using one-to-one style sockets.
	TransportSCTP Transport = iota

	// TransportTCP is TCP.
	TransportTCP
)

// String returns the lowercase protocol name, which is also
// the network name accepted by [*Network.DialContext].
func (t Transport) String() string {
	switch t {
	case TransportSCTP:
		return "sctp"
	case TransportTCP:
		return "tcp"
	default:
		return fmt.Sprintf("transport(%d)", int(t))
	}
}

// ParseTransport parses a transport name ("sctp" or "tcp").
func ParseTransport(name string) (Transport, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sctp":
		return TransportSCTP, nil
	case "tcp":
		return TransportTCP, nil
	default:
		return 0, fmt.Errorf("netcore: unknown transport %q", name)
	}
}

// transportForNetwork maps a dial network name to a [Transport].
func transportForNetwork(network string) (Transport, bool) {
	switch network {
	case "sctp", "sctp4", "sctp6":
		return TransportSCTP, true
	case "tcp", "tcp4", "tcp6":
		return TransportTCP, true
	default:
		return 0, false
	}
}
