//go:build darwin

// SPDX-License-Identifier: GPL-3.0-or-later

package scanner

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// poller waits for sockets to become writable using kqueue.
type poller struct {
	kq     int
	events []unix.Kevent_t
}

// newPoller creates a [*poller] returning at most size events per wait.
func newPoller(size int) (*poller, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, os.NewSyscallError("kqueue", err)
	}
	unix.CloseOnExec(kq)
	return &poller{kq: kq, events: make([]unix.Kevent_t, max(size, 1))}, nil
}

// add registers fd for writability. Errors are reported through EV_EOF.
func (p *poller) add(fd int) error {
	return p.control(fd, unix.EV_ADD|unix.EV_ENABLE)
}

// remove deregisters fd.
func (p *poller) remove(fd int) error {
	return p.control(fd, unix.EV_DELETE)
}

// control applies flags to the EVFILT_WRITE filter of fd.
func (p *poller) control(fd int, flags uint16) error {
	changes := []unix.Kevent_t{{
		Ident:  uint64(fd),
		Filter: unix.EVFILT_WRITE,
		Flags:  flags,
	}}
	if _, err := unix.Kevent(p.kq, changes, nil, nil); err != nil {
		return os.NewSyscallError("kevent", err)
	}
	return nil
}

// wait waits at most timeout for registered descriptors to become ready
// and appends them to ready. An interrupted wait returns no descriptors.
func (p *poller) wait(timeout time.Duration, ready []int) ([]int, error) {
	ts := unix.NsecToTimespec(int64(timeoutMillis(timeout)) * int64(time.Millisecond))
	count, err := unix.Kevent(p.kq, nil, p.events, &ts)
	if err == unix.EINTR {
		return ready, nil
	}
	if err != nil {
		return ready, os.NewSyscallError("kevent", err)
	}
	for _, ev := range p.events[:count] {
		ready = append(ready, int(ev.Ident))
	}
	return ready, nil
}

// close closes the kqueue descriptor.
func (p *poller) close() error {
	return unix.Close(p.kq)
}
