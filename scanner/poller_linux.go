//go:build linux

// SPDX-License-Identifier: GPL-3.0-or-later

package scanner

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// poller waits for sockets to become writable using epoll.
type poller struct {
	epfd   int
	events []unix.EpollEvent
}

// newPoller creates a [*poller] returning at most size events per wait.
func newPoller(size int) (*poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, os.NewSyscallError("epoll_create1", err)
	}
	return &poller{epfd: epfd, events: make([]unix.EpollEvent, max(size, 1))}, nil
}

// add registers fd for writability. Errors and hangups are always reported.
func (p *poller) add(fd int) error {
	ev := &unix.EpollEvent{Events: unix.EPOLLOUT, Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, ev); err != nil {
		return os.NewSyscallError("epoll_ctl", err)
	}
	return nil
}

// remove deregisters fd.
func (p *poller) remove(fd int) error {
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return os.NewSyscallError("epoll_ctl", err)
	}
	return nil
}

// wait waits at most timeout for registered descriptors to become ready
// and appends them to ready. An interrupted wait returns no descriptors.
func (p *poller) wait(timeout time.Duration, ready []int) ([]int, error) {
	count, err := unix.EpollWait(p.epfd, p.events, timeoutMillis(timeout))
	if err == unix.EINTR {
		return ready, nil
	}
	if err != nil {
		return ready, os.NewSyscallError("epoll_wait", err)
	}
	for _, ev := range p.events[:count] {
		ready = append(ready, int(ev.Fd))
	}
	return ready, nil
}

// close closes the epoll descriptor.
func (p *poller) close() error {
	return unix.Close(p.epfd)
}
