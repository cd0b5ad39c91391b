// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// progressInterval is the minimum interval between progress updates.
const progressInterval = 200 * time.Millisecond

// console writes human-oriented status messages to the terminal.
type console struct {
	w     io.Writer
	quiet bool
}

// Printf prints a status line unless the console is quiet.
func (c *console) Printf(format string, args ...any) {
	if c.quiet {
		return
	}
	fmt.Fprintf(c.w, format+"\n", args...)
}

// newProgress creates a progress line for total units of work.
func (c *console) newProgress(label string, total int) *progress {
	return &progress{
		disabled: c.quiet,
		label:    label,
		t0:       time.Now(),
		total:    total,
		w:        c.w,
	}
}

// progress renders a single self-overwriting progress line.
//
// The zero value is not ready to use; construct using [*console.newProgress].
type progress struct {
	count    int
	disabled bool
	label    string
	last     time.Time
	mu       sync.Mutex
	t0       time.Time
	total    int
	w        io.Writer
}

// Add records delta completed units of work.
func (p *progress) Add(delta int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count += delta
	if now := time.Now(); now.Sub(p.last) >= progressInterval || p.count >= p.total {
		p.last = now
		p.render(now)
	}
}

// Done renders the final state and terminates the line.
func (p *progress) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disabled {
		return
	}
	p.render(time.Now())
	fmt.Fprintln(p.w)
}

func (p *progress) render(now time.Time) {
	if p.disabled {
		return
	}
	var percent float64
	if p.total > 0 {
		percent = 100 * float64(p.count) / float64(p.total)
	}
	elapsed := now.Sub(p.t0).Truncate(100 * time.Millisecond)
	fmt.Fprintf(p.w, "\r%s: %d/%d (%.0f%%) %s", p.label, p.count, p.total, percent, elapsed)
}
