// SPDX-License-Identifier: GPL-3.0-or-later

// Package closepool tracks in-flight [io.Closer] instances by key
// and closes whatever is still registered in a single operation.
package closepool

import (
	"cmp"
	"errors"
	"io"
	"slices"
	"sync"
)

// Pool tracks a set of [io.Closer] indexed by a key (e.g., a file
// descriptor). Removing a handle detaches it from the pool, so each
// handle is closed either by its owner or by [*Pool.Close], never both.
//
// The zero value is ready to use.
type Pool[K comparable] struct {
	// handles contains the [io.Closer] to close.
	handles map[K]entry

	// seq orders entries by insertion.
	seq uint64

	// mu provides mutual exclusion.
	mu sync.Mutex
}

// entry is an [io.Closer] registered with a [*Pool].
type entry struct {
	closer io.Closer
	seq    uint64
}

// Add registers closer under key. It returns false, leaving the pool
// unmodified, if the key is already registered.
func (p *Pool[K]) Add(key K, closer io.Closer) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handles == nil {
		p.handles = make(map[K]entry)
	}
	if _, found := p.handles[key]; found {
		return false
	}
	p.seq++
	p.handles[key] = entry{closer: closer, seq: p.seq}
	return true
}

// Remove detaches the [io.Closer] registered under key and returns it
// to the caller, who becomes responsible for closing it.
func (p *Pool[K]) Remove(key K) (io.Closer, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, found := p.handles[key]
	if !found {
		return nil, false
	}
	delete(p.handles, key)
	return e.closer, true
}

// Len returns the number of registered handles.
func (p *Pool[K]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.handles)
}

// Close closes all the registered [io.Closer] iterating in backward
// order of registration and leaves the pool empty. The returned error
// is the join of all the errors that occurred when closing.
func (p *Pool[K]) Close() error {
	// Lock and copy the [io.Closer] to close.
	p.mu.Lock()
	entries := make([]entry, 0, len(p.handles))
	for _, e := range p.handles {
		entries = append(entries, e)
	}
	p.handles = nil
	p.mu.Unlock()

	slices.SortFunc(entries, func(a, b entry) int {
		return cmp.Compare(b.seq, a.seq)
	})

	// Close all the [io.Closer].
	var errv []error
	for _, e := range entries {
		if err := e.closer.Close(); err != nil {
			errv = append(errv, err)
		}
	}
	return errors.Join(errv...)
}
