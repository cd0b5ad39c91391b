// SPDX-License-Identifier: GPL-3.0-or-later

package scanner

import "slices"

// collector accumulates resolutions while the event loop runs.
type collector struct {
	open  []Target
	stats Stats
}

// newCollector creates a new [*collector].
func newCollector() *collector {
	return &collector{open: []Target{}}
}

// add records a resolution.
func (c *collector) add(res Resolution) {
	c.stats.Total++
	switch res.Outcome {
	case OutcomeSuccess:
		c.stats.Open++
		c.open = append(c.open, res.Target)
	case OutcomeRefused:
		c.stats.Refused++
	case OutcomeUnreachable:
		c.stats.Unreachable++
	case OutcomeTimedOut:
		c.stats.TimedOut++
	case OutcomeAdmissionFailed:
		c.stats.AdmissionFailed++
	default:
		c.stats.Failed++
	}
}

// observeInFlight records the current number of outstanding attempts.
func (c *collector) observeInFlight(count int) {
	c.stats.PeakInFlight = max(c.stats.PeakInFlight, count)
}

// result returns the final [*Result] with open targets sorted.
func (c *collector) result() *Result {
	slices.SortFunc(c.open, Target.Compare)
	return &Result{Open: c.open, Stats: c.stats}
}
