// SPDX-License-Identifier: GPL-3.0-or-later

package scanner

import (
	"cmp"
	"iter"
	"net/netip"
)

// Target is an endpoint to scan.
type Target struct {
	// Addr is the IP address to connect to.
	Addr netip.Addr

	// Port is the port to connect to.
	Port uint16
}

// AddrPort returns the target as a [netip.AddrPort].
func (t Target) AddrPort() netip.AddrPort {
	return netip.AddrPortFrom(t.Addr, t.Port)
}

// String returns the "ip:port" representation of the target, using
// square brackets around IPv6 addresses.
func (t Target) String() string {
	return t.AddrPort().String()
}

// Compare orders targets by address and then by port.
func (t Target) Compare(other Target) int {
	if c := t.Addr.Compare(other.Addr); c != 0 {
		return c
	}
	return cmp.Compare(t.Port, other.Port)
}

// Producer produces the targets to scan.
//
// Next returns the next target and true, or the zero value and false when
// the sequence is exhausted. Once exhausted, a producer remains exhausted.
type Producer interface {
	Next() (Target, bool)
}

// Sequence is a [Producer] generating the cartesian product of a list of
// hosts and a list of ports. The outer loop iterates over hosts and the
// inner loop over ports, both in the order in which they were supplied.
//
// Construct using [NewSequence].
type Sequence struct {
	hosts []netip.Addr
	ports []uint16
	host  int
	port  int
}

var _ Producer = &Sequence{}

// NewSequence creates a new [*Sequence] for the given hosts and ports.
func NewSequence(hosts []netip.Addr, ports []uint16) *Sequence {
	return &Sequence{hosts: hosts, ports: ports}
}

// Len returns the total number of targets in the sequence.
func (s *Sequence) Len() int {
	return len(s.hosts) * len(s.ports)
}

// Next implements [Producer].
func (s *Sequence) Next() (Target, bool) {
	if len(s.ports) <= 0 || s.host >= len(s.hosts) {
		return Target{}, false
	}
	target := Target{Addr: s.hosts[s.host], Port: s.ports[s.port]}
	if s.port++; s.port >= len(s.ports) {
		s.port = 0
		s.host++
	}
	return target, true
}

// SeqProducer adapts an [iter.Seq] of targets to the [Producer] interface.
//
// Construct using [NewSeqProducer]. [*Scanner.Scan] calls Stop when it
// returns, which releases the resources held by the iterator.
type SeqProducer struct {
	next func() (Target, bool)
	stop func()
	done bool
}

var _ Producer = &SeqProducer{}

// NewSeqProducer creates a new [*SeqProducer] pulling from seq.
func NewSeqProducer(seq iter.Seq[Target]) *SeqProducer {
	next, stop := iter.Pull(seq)
	return &SeqProducer{next: next, stop: stop}
}

// Next implements [Producer].
func (p *SeqProducer) Next() (Target, bool) {
	if p.done {
		return Target{}, false
	}
	target, ok := p.next()
	if !ok {
		p.done = true
	}
	return target, ok
}

// Stop stops the underlying iterator. Further calls to Next
// report that the sequence is exhausted.
func (p *SeqProducer) Stop() {
	p.done = true
	p.stop()
}

// stopper is implemented by producers that need to release resources.
type stopper interface {
	Stop()
}
