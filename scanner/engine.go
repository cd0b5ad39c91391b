// SPDX-License-Identifier: GPL-3.0-or-later

package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rbmk-project/sctpscan/closepool"
	"github.com/rbmk-project/sctpscan/errclass"
	"github.com/rbmk-project/sctpscan/netcore"
)

// DefaultPollInterval is the default maximum time spent
// blocked waiting for sockets to become writable.
const DefaultPollInterval = 100 * time.Millisecond

// maxEventsPerWait bounds the events returned by a single poller wait.
const maxEventsPerWait = 1024

// State is the state of the scan event loop.
type State int

const (
	// StateRunning means we are still pulling targets.
	StateRunning State = iota

	// StateDraining means the producer is exhausted and we
	// are waiting for outstanding attempts to resolve.
	StateDraining

	// StateDone means the scan is complete.
	StateDone
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Scanner scans targets using non-blocking connects.
//
// Construct using a struct literal. Concurrency and Timeout are mandatory.
//
// A [*Scanner] is safe for concurrent use by multiple goroutines as long
// as you don't modify its fields after construction.
type Scanner struct {
	// Concurrency is the maximum number of outstanding connects.
	Concurrency int

	// Timeout is the maximum time to wait for each connect.
	Timeout time.Duration

	// PollInterval is the optional maximum time spent blocked waiting
	// for sockets to become writable. If zero, we use [DefaultPollInterval].
	// The interval never exceeds Timeout.
	PollInterval time.Duration

	// Transport is the transport protocol to use. The zero value
	// is [netcore.TransportSCTP].
	Transport netcore.Transport

	// Logger is the optional structured logger. Per-attempt events
	// are emitted at the debug level.
	Logger *slog.Logger

	// OnResolve is the optional function called on the event loop
	// goroutine each time a target is resolved. It must not block.
	OnResolve func(Resolution)

	// connect optionally overrides [netcore.NewStreamSocket].
	connect func(transport netcore.Transport, remote netip.AddrPort) (int, error)

	// closeFD optionally overrides [netcore.CloseSocket].
	closeFD func(fd int) error
}

// Scan is a convenience function that scans targets using a [*Scanner]
// with the given concurrency and timeout and SCTP as the transport.
func Scan(ctx context.Context, targets Producer, concurrency int, timeout time.Duration) (*Result, error) {
	s := &Scanner{Concurrency: concurrency, Timeout: timeout}
	return s.Scan(ctx, targets)
}

// Scan scans all the targets produced by targets and returns the result.
//
// Connect failures and timeouts are reported in the [*Result] and never
// cause Scan to fail. Scan returns an error wrapping [ErrInvalidConfig]
// for invalid configurations and a [*FatalSetupError] when the poller
// fails. When ctx is done, Scan stops pulling targets, closes all the
// outstanding sockets, and returns the partial result along with the
// context error.
//
// If targets has a Stop method (e.g., [*SeqProducer]), Scan calls it
// before returning.
func (s *Scanner) Scan(ctx context.Context, targets Producer) (*Result, error) {
	if st, ok := targets.(stopper); ok {
		defer st.Stop()
	}
	if s.Concurrency <= 0 {
		return nil, fmt.Errorf("%w: concurrency must be positive, got %d", ErrInvalidConfig, s.Concurrency)
	}
	if s.Timeout <= 0 {
		return nil, fmt.Errorf("%w: timeout must be positive, got %s", ErrInvalidConfig, s.Timeout)
	}

	p, err := newPoller(min(s.Concurrency, maxEventsPerWait))
	if err != nil {
		return nil, &FatalSetupError{Op: "create", Err: err}
	}
	defer p.close()

	sc := &scan{
		Scanner:      s,
		collector:    newCollector(),
		ctx:          ctx,
		id:           uuid.NewString(),
		inflight:     make(map[int]*attempt),
		pollInterval: s.pollInterval(),
		poller:       p,
		state:        StateRunning,
		targets:      targets,
	}
	return sc.run()
}

// pollInterval returns the effective poll interval.
func (s *Scanner) pollInterval() time.Duration {
	interval := s.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return min(interval, s.Timeout)
}

// scan is the state of a running scan. It is owned by the goroutine
// running the event loop and therefore requires no locking.
type scan struct {
	*Scanner
	collector    *collector
	ctx          context.Context
	exhausted    bool
	id           string
	inflight     map[int]*attempt
	pool         closepool.Pool[int]
	pollInterval time.Duration
	poller       *poller
	ready        []int
	state        State
	t0           time.Time
	targets      Producer
}

// run runs the event loop until completion or cancellation.
func (sc *scan) run() (*Result, error) {
	sc.emitScanStart()
	for {
		sc.refill()
		if err := sc.ctx.Err(); err != nil {
			return sc.abort(err)
		}
		if sc.exhausted {
			if len(sc.inflight) <= 0 {
				break
			}
			sc.setState(StateDraining)
		}

		ready, err := sc.poller.wait(sc.pollInterval, sc.ready[:0])
		sc.ready = ready
		if err != nil {
			return sc.abort(&FatalSetupError{Op: "wait", Err: err})
		}
		for _, fd := range ready {
			sc.resolveReady(fd)
		}
		sc.sweep(time.Now())
	}
	return sc.finish(nil)
}

// refill admits new targets until the in-flight set is full, the
// producer is exhausted, or the context is done.
func (sc *scan) refill() {
	for len(sc.inflight) < sc.Concurrency && !sc.exhausted {
		if sc.ctx.Err() != nil {
			return
		}
		target, ok := sc.targets.Next()
		if !ok {
			sc.exhausted = true
			return
		}
		sc.admit(target)
	}
}

// admit issues a non-blocking connect to target and registers the socket
// with the poller. Targets that cannot be admitted are resolved immediately.
func (sc *scan) admit(target Target) {
	t0 := time.Now()
	sc.emitConnectStart(target, t0)

	fd, err := sc.connect(sc.Transport, target.AddrPort())
	if err != nil {
		var serr *os.SyscallError
		if errors.As(err, &serr) && serr.Syscall == "connect" {
			sc.resolve(target, classifyConnectError(err), err, t0)
			return
		}
		op := "socket"
		if serr != nil {
			op = serr.Syscall
		}
		sc.resolve(target, OutcomeAdmissionFailed, &AdmissionError{Target: target, Op: op, Err: err}, t0)
		return
	}

	if err := sc.poller.add(fd); err != nil {
		_ = sc.closeFD(fd)
		sc.resolve(target, OutcomeAdmissionFailed, &AdmissionError{Target: target, Op: "register", Err: err}, t0)
		return
	}

	a := &attempt{target: target, fd: fd, startedAt: t0, sc: sc}
	sc.inflight[fd] = a
	sc.pool.Add(fd, a)
	sc.collector.observeInFlight(len(sc.inflight))
}

// resolveReady resolves the attempt whose socket became writable.
func (sc *scan) resolveReady(fd int) {
	a, found := sc.inflight[fd]
	if !found {
		return
	}
	err := netcore.SocketError(fd)
	sc.release(a)
	sc.resolve(a.target, classifyConnectError(err), err, a.startedAt)
}

// sweep resolves all the attempts outstanding for at least the timeout.
func (sc *scan) sweep(now time.Time) {
	for _, a := range sc.inflight {
		if !a.expired(now, sc.Timeout) {
			continue
		}
		sc.release(a)
		err := fmt.Errorf("connect %s: %w", a.target, os.ErrDeadlineExceeded)
		sc.resolve(a.target, OutcomeTimedOut, err, a.startedAt)
	}
}

// release removes the attempt from the in-flight set and closes it.
func (sc *scan) release(a *attempt) {
	delete(sc.inflight, a.fd)
	closer, found := sc.pool.Remove(a.fd)
	if !found {
		return
	}
	if err := closer.Close(); err != nil && sc.Logger != nil {
		sc.Logger.DebugContext(
			sc.ctx,
			"closeDone",
			slog.Any("err", err),
			slog.String("errClass", errclass.New(err)),
			slog.String("remoteAddr", a.target.String()),
			slog.String("scanID", sc.id),
		)
	}
}

// resolve records the resolution of a target.
func (sc *scan) resolve(target Target, outcome Outcome, err error, t0 time.Time) {
	res := Resolution{
		Target:  target,
		Outcome: outcome,
		Err:     err,
		Elapsed: time.Since(t0),
	}
	sc.collector.add(res)
	sc.emitConnectDone(res, t0)
	if sc.OnResolve != nil {
		sc.OnResolve(res)
	}
}

// abort closes all the outstanding attempts and terminates the scan.
func (sc *scan) abort(err error) (*Result, error) {
	count := len(sc.inflight)
	clear(sc.inflight)
	if cerr := sc.pool.Close(); cerr != nil && sc.Logger != nil {
		sc.Logger.WarnContext(
			sc.ctx,
			"scanCloseInFlight",
			slog.Int("count", count),
			slog.Any("err", cerr),
			slog.String("errClass", errclass.New(cerr)),
			slog.String("scanID", sc.id),
		)
	}
	return sc.finish(err)
}

// finish transitions to [StateDone] and returns the result.
func (sc *scan) finish(err error) (*Result, error) {
	sc.setState(StateDone)
	result := sc.collector.result()
	sc.emitScanDone(result, err)
	return result, err
}

// setState transitions to the given state.
func (sc *scan) setState(state State) {
	if sc.state == state {
		return
	}
	if sc.Logger != nil {
		sc.Logger.InfoContext(
			sc.ctx,
			"scanStateChange",
			slog.String("from", sc.state.String()),
			slog.String("scanID", sc.id),
			slog.String("to", state.String()),
			slog.Time("t", time.Now()),
		)
	}
	sc.state = state
}

// connect issues a non-blocking connect.
func (sc *scan) connect(transport netcore.Transport, remote netip.AddrPort) (int, error) {
	if sc.Scanner.connect != nil {
		return sc.Scanner.connect(transport, remote)
	}
	return netcore.NewStreamSocket(transport, remote)
}

// closeFD closes a socket.
func (sc *scan) closeFD(fd int) error {
	if sc.Scanner.closeFD != nil {
		return sc.Scanner.closeFD(fd)
	}
	return netcore.CloseSocket(fd)
}

// emitScanStart emits the scanStart event.
func (sc *scan) emitScanStart() {
	sc.t0 = time.Now()
	if sc.Logger != nil {
		sc.Logger.InfoContext(
			sc.ctx,
			"scanStart",
			slog.Int("concurrency", sc.Concurrency),
			slog.Duration("pollInterval", sc.pollInterval),
			slog.String("protocol", sc.Transport.String()),
			slog.String("scanID", sc.id),
			slog.Duration("timeout", sc.Timeout),
			slog.Time("t", sc.t0),
		)
	}
}

// emitScanDone emits the scanDone event.
func (sc *scan) emitScanDone(result *Result, err error) {
	if sc.Logger != nil {
		sc.Logger.InfoContext(
			sc.ctx,
			"scanDone",
			slog.Int("admissionFailed", result.Stats.AdmissionFailed),
			slog.Any("err", err),
			slog.String("errClass", errclass.New(err)),
			slog.Int("failed", result.Stats.Failed),
			slog.Int("open", result.Stats.Open),
			slog.Int("peakInFlight", result.Stats.PeakInFlight),
			slog.Int("refused", result.Stats.Refused),
			slog.String("scanID", sc.id),
			slog.Int("timedOut", result.Stats.TimedOut),
			slog.Int("total", result.Stats.Total),
			slog.Int("unreachable", result.Stats.Unreachable),
			slog.Time("t0", sc.t0),
			slog.Time("t", time.Now()),
		)
	}
}

// emitConnectStart emits the connectStart event.
func (sc *scan) emitConnectStart(target Target, t0 time.Time) {
	if sc.Logger != nil {
		sc.Logger.DebugContext(
			sc.ctx,
			"connectStart",
			slog.String("protocol", sc.Transport.String()),
			slog.String("remoteAddr", target.String()),
			slog.String("scanID", sc.id),
			slog.Time("t", t0),
		)
	}
}

// emitConnectDone emits the connectDone event.
func (sc *scan) emitConnectDone(res Resolution, t0 time.Time) {
	if sc.Logger != nil {
		sc.Logger.DebugContext(
			sc.ctx,
			"connectDone",
			slog.Any("err", res.Err),
			slog.String("errClass", errclass.New(res.Err)),
			slog.String("outcome", res.Outcome.String()),
			slog.String("protocol", sc.Transport.String()),
			slog.String("remoteAddr", res.Target.String()),
			slog.String("scanID", sc.id),
			slog.Time("t0", t0),
			slog.Time("t", time.Now()),
		)
	}
}
