// SPDX-License-Identifier: GPL-3.0-or-later

package scanner

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig indicates that the [*Scanner] configuration is invalid.
var ErrInvalidConfig = errors.New("scanner: invalid configuration")

// AdmissionError indicates that we could not create or register the
// socket for a target. The target is dropped and never retried.
type AdmissionError struct {
	// Target is the target we could not admit.
	Target Target

	// Op is the failed operation (e.g., "socket", "register").
	Op string

	// Err is the underlying error.
	Err error
}

// Error implements error.
func (e *AdmissionError) Error() string {
	return fmt.Sprintf("scanner: cannot admit %s: %s: %s", e.Target, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *AdmissionError) Unwrap() error {
	return e.Err
}

// FatalSetupError indicates that the readiness multiplexer could not be
// created or failed while waiting. It aborts the whole scan.
type FatalSetupError struct {
	// Op is the failed operation (e.g., "create", "wait").
	Op string

	// Err is the underlying error.
	Err error
}

// Error implements error.
func (e *FatalSetupError) Error() string {
	return fmt.Sprintf("scanner: poller %s: %s", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *FatalSetupError) Unwrap() error {
	return e.Err
}
