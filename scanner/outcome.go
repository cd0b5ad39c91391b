// SPDX-License-Identifier: GPL-3.0-or-later

package scanner

import (
	"time"

	"github.com/rbmk-project/sctpscan/errclass"
)

// Outcome is the way in which a connection attempt was resolved.
type Outcome int

const (
	// OutcomeSuccess means the connect completed successfully.
	OutcomeSuccess Outcome = iota

	// OutcomeRefused means the peer refused the connection.
	OutcomeRefused

	// OutcomeUnreachable means the host or network was unreachable.
	OutcomeUnreachable

	// OutcomeTimedOut means the connect did not complete in time.
	OutcomeTimedOut

	// OutcomeFailed means the connect failed for any other reason.
	OutcomeFailed

	// OutcomeAdmissionFailed means we could not create or register
	// the socket, so the target was dropped without connecting.
	OutcomeAdmissionFailed
)

// String returns the lowercase name of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRefused:
		return "refused"
	case OutcomeUnreachable:
		return "unreachable"
	case OutcomeTimedOut:
		return "timed_out"
	case OutcomeFailed:
		return "failed"
	case OutcomeAdmissionFailed:
		return "admission_failed"
	default:
		return "unknown"
	}
}

// classifyConnectError maps a connect error to an [Outcome].
func classifyConnectError(err error) Outcome {
	switch errclass.New(err) {
	case "":
		return OutcomeSuccess
	case errclass.ECONNREFUSED:
		return OutcomeRefused
	case errclass.EHOSTUNREACH, errclass.ENETUNREACH, errclass.ENETDOWN:
		return OutcomeUnreachable
	case errclass.ETIMEDOUT:
		return OutcomeTimedOut
	default:
		return OutcomeFailed
	}
}

// Resolution describes how the attempt to connect to a target was resolved.
type Resolution struct {
	// Target is the target we tried to connect to.
	Target Target

	// Outcome is the outcome of the attempt.
	Outcome Outcome

	// Err is the error that occurred, or nil on success.
	Err error

	// Elapsed is the time elapsed since the connect was issued.
	Elapsed time.Duration
}

// Stats contains aggregate counters for a scan.
type Stats struct {
	// Total is the number of resolved targets.
	Total int

	// Open is the number of successful connects.
	Open int

	// Refused is the number of refused connects.
	Refused int

	// Unreachable is the number of connects failed with unreachable errors.
	Unreachable int

	// TimedOut is the number of connects that did not complete in time.
	TimedOut int

	// Failed is the number of connects failed with other errors.
	Failed int

	// AdmissionFailed is the number of targets dropped because we
	// could not create or register their socket.
	AdmissionFailed int

	// PeakInFlight is the maximum number of simultaneously
	// outstanding connects observed during the scan.
	PeakInFlight int
}

// Result is the result of a scan.
type Result struct {
	// Open contains the targets accepting connections sorted
	// using [Target.Compare].
	Open []Target

	// Stats contains the aggregate counters.
	Stats Stats
}
