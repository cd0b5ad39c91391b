// SPDX-License-Identifier: GPL-3.0-or-later

package scanner

import "time"

// timeoutMillis converts a poll timeout to milliseconds rounding up, so
// that a short positive timeout does not turn into a busy loop.
func timeoutMillis(timeout time.Duration) int {
	if timeout <= 0 {
		return 0
	}
	return int((timeout + time.Millisecond - 1) / time.Millisecond)
}
