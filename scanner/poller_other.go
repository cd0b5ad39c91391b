//go:build !linux && !darwin

// SPDX-License-Identifier: GPL-3.0-or-later

package scanner

import (
	"errors"
	"time"
)

// poller is not implemented on this platform.
type poller struct{}

// newPoller always fails with [errors.ErrUnsupported].
func newPoller(size int) (*poller, error) {
	return nil, errors.ErrUnsupported
}

func (p *poller) add(fd int) error { return errors.ErrUnsupported }

func (p *poller) remove(fd int) error { return errors.ErrUnsupported }

func (p *poller) wait(timeout time.Duration, ready []int) ([]int, error) {
	return ready, errors.ErrUnsupported
}

func (p *poller) close() error { return nil }
