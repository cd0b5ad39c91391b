// SPDX-License-Identifier: GPL-3.0-or-later

/*
Package netcore provides non-blocking stream sockets and an SCTP/TCP dialer.

This package is designed to facilitate measuring SCTP and TCP connection
events via the [log/slog] package.

# Features

- [NewStreamSocket] creates a non-blocking SCTP or TCP socket bound to an
ephemeral local port and issues a non-blocking connect, for callers that
multiplex many pending connects themselves;

- [*Network] dials SCTP and TCP connections compatible with [net.Conn],
optionally emitting structured logs;

- [DNSOverUDPLookup] resolves domain names using a specific DNS server.

# Design Documents

This package is experimental and has no design documents for now.
*/
package netcore
