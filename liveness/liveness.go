// SPDX-License-Identifier: GPL-3.0-or-later

// Package liveness filters hosts that answer to ICMP echo requests.
//
// We shell out to the system ping(8) command, which does not require
// raw socket privileges, and run a bounded number of probes in parallel.
package liveness

import (
	"context"
	"log/slog"
	"math"
	"net/netip"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/rbmk-project/sctpscan/errclass"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultConcurrency is the default number of parallel probes.
	DefaultConcurrency = 100

	// DefaultTimeout is the default time to wait for each echo reply.
	DefaultTimeout = time.Second

	// DefaultCommand is the default ping command.
	DefaultCommand = "ping"
)

// Filter probes hosts using ping(8) and keeps the ones that are alive.
//
// The zero value is ready to use.
type Filter struct {
	// Concurrency is the optional maximum number of parallel
	// probes. If zero, we use [DefaultConcurrency].
	Concurrency int

	// Timeout is the optional time to wait for each echo reply. If
	// zero, we use [DefaultTimeout]. The ping command only accepts
	// whole seconds, so we round up to the next second.
	Timeout time.Duration

	// Command is the optional ping command to execute. If empty,
	// we use [DefaultCommand].
	Command string

	// Logger is the optional structured logger.
	Logger *slog.Logger

	// OnProbe is the optional function called after each probe
	// completes. Calls are serialized.
	OnProbe func(addr netip.Addr, alive bool)

	// TimeNow is an optional function that returns the current time.
	// If this field is nil, the [time.Now] function will be used.
	TimeNow func() time.Time

	// runFunc optionally overrides running the command.
	runFunc func(ctx context.Context, name string, args ...string) error
}

// Alive pings all the hosts and returns the ones that replied, in the
// same order in which they appear in hosts. When the context is done, we
// stop launching probes and return the hosts found alive so far along
// with the context error, including when the context is done while the
// last probes are still running.
func (f *Filter) Alive(ctx context.Context, hosts []netip.Addr) ([]netip.Addr, error) {
	var (
		alive = make([]bool, len(hosts))
		mu    sync.Mutex
		sem   = semaphore.NewWeighted(int64(f.concurrency()))
		wg    sync.WaitGroup
	)
	var err error
	for idx, addr := range hosts {
		if err = sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			ok := f.probe(ctx, addr)
			mu.Lock()
			defer mu.Unlock()
			alive[idx] = ok
			if f.OnProbe != nil {
				f.OnProbe(addr, ok)
			}
		}()
	}
	wg.Wait()

	// probes interrupted by the context look like dead hosts
	if err == nil {
		err = ctx.Err()
	}

	var out []netip.Addr
	for idx, ok := range alive {
		if ok {
			out = append(out, hosts[idx])
		}
	}
	return out, err
}

// probe pings a single host.
func (f *Filter) probe(ctx context.Context, addr netip.Addr) bool {
	// ping enforces its own timeout, this one guards against a stuck process
	ctx, cancel := context.WithTimeout(ctx, f.timeout()+time.Second)
	defer cancel()

	t0 := f.emitPingStart(ctx, addr)
	err := f.run(ctx, f.command(), f.args(addr)...)
	f.emitPingDone(ctx, addr, t0, err)
	return err == nil
}

// args returns the ping arguments for addr.
func (f *Filter) args(addr netip.Addr) []string {
	secs := int(math.Ceil(f.timeout().Seconds()))
	args := []string{"-c1", "-W" + strconv.Itoa(max(secs, 1))}
	if addr = addr.Unmap(); addr.Is6() {
		args = append([]string{"-6"}, args...)
	}
	return append(args, addr.String())
}

// run runs the command and returns nil if it exits successfully.
func (f *Filter) run(ctx context.Context, name string, args ...string) error {
	if f.runFunc != nil {
		return f.runFunc(ctx, name, args...)
	}
	return exec.CommandContext(ctx, name, args...).Run()
}

func (f *Filter) concurrency() int {
	if f.Concurrency > 0 {
		return f.Concurrency
	}
	return DefaultConcurrency
}

func (f *Filter) timeout() time.Duration {
	if f.Timeout > 0 {
		return f.Timeout
	}
	return DefaultTimeout
}

func (f *Filter) command() string {
	if f.Command != "" {
		return f.Command
	}
	return DefaultCommand
}

func (f *Filter) timeNow() time.Time {
	if f.TimeNow != nil {
		return f.TimeNow()
	}
	return time.Now()
}

// emitPingStart emits the pingStart event.
func (f *Filter) emitPingStart(ctx context.Context, addr netip.Addr) time.Time {
	t0 := f.timeNow()
	if f.Logger != nil {
		f.Logger.DebugContext(
			ctx,
			"pingStart",
			slog.String("remoteAddr", addr.String()),
			slog.Time("t", t0),
		)
	}
	return t0
}

// emitPingDone emits the pingDone event.
func (f *Filter) emitPingDone(ctx context.Context, addr netip.Addr, t0 time.Time, err error) {
	if f.Logger != nil {
		f.Logger.DebugContext(
			ctx,
			"pingDone",
			slog.Bool("alive", err == nil),
			slog.Any("err", err),
			slog.String("errClass", errclass.New(err)),
			slog.String("remoteAddr", addr.String()),
			slog.Time("t0", t0),
			slog.Time("t", f.timeNow()),
		)
	}
}
