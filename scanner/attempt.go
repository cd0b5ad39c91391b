// SPDX-License-Identifier: GPL-3.0-or-later

package scanner

import (
	"errors"
	"time"
)

// attempt is an outstanding non-blocking connect.
type attempt struct {
	// target is the target we're connecting to.
	target Target

	// fd is the socket registered with the poller.
	fd int

	// startedAt is when we issued the connect.
	startedAt time.Time

	// sc is the scan owning this attempt.
	sc *scan
}

// expired returns whether the attempt has been outstanding for at least timeout.
func (a *attempt) expired(now time.Time, timeout time.Duration) bool {
	return now.Sub(a.startedAt) >= timeout
}

// Close deregisters the socket from the poller and closes it.
//
// The scan detaches each attempt from its [closepool.Pool] before closing
// it, which guarantees that Close runs exactly once per attempt.
func (a *attempt) Close() error {
	return errors.Join(a.sc.poller.remove(a.fd), a.sc.closeFD(a.fd))
}
