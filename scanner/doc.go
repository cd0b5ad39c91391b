// SPDX-License-Identifier: GPL-3.0-or-later

/*
Package scanner implements a bounded-concurrency, non-blocking connection
scanning engine for SCTP (and TCP) endpoints.

A [*Scanner] pulls [Target] values from a [Producer], issues non-blocking
connects using [netcore.NewStreamSocket], and multiplexes the pending sockets
using the platform readiness API (epoll on Linux, kqueue on Darwin). At most
Concurrency connects are outstanding at any time, and every attempt is resolved
exactly once as a success, a failure, or a timeout.

The event loop runs on the goroutine calling [*Scanner.Scan], which owns all
the scan state. Independent scans may run concurrently because each of them
creates its own poller.

Example:

	hosts, _ := netipx.ParseHosts("10.0.0.0/24")
	result, err := scanner.Scan(ctx, scanner.NewSequence(hosts, []uint16{2905}), 1024, time.Second)
*/
package scanner
