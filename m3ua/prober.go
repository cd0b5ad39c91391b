// SPDX-License-Identifier: GPL-3.0-or-later

package m3ua

import (
	"context"
	"log/slog"
	"net/netip"
	"time"

	"github.com/rbmk-project/sctpscan/errclass"
	"github.com/rbmk-project/sctpscan/netcore"
	"github.com/rbmk-project/sctpscan/netipx"
)

// DefaultTimeout is the default timeout for a whole probe.
const DefaultTimeout = 5 * time.Second

// maxMessageSize is the maximum reply size we read.
const maxMessageSize = 1024

// Prober sends an ASPUP over a new association and reads the reply.
//
// The zero value is ready to use.
type Prober struct {
	// Network is the optional [*netcore.Network] used to dial. If
	// nil, we use [netcore.DefaultNetwork].
	Network *netcore.Network

	// Transport is the transport to use. The zero value
	// is [netcore.TransportSCTP].
	Transport netcore.Transport

	// Timeout is the optional timeout for the whole probe. If
	// zero, we use [DefaultTimeout].
	Timeout time.Duration

	// Logger is the optional structured logger.
	Logger *slog.Logger
}

// Probe connects to target, sends an ASPUP message and returns the
// first message received in response.
func (p *Prober) Probe(ctx context.Context, target netip.AddrPort) (*Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()

	t0 := p.emitProbeStart(ctx, target)
	reply, err := p.probe(ctx, target)
	p.emitProbeDone(ctx, target, t0, reply, err)
	return reply, err
}

func (p *Prober) probe(ctx context.Context, target netip.AddrPort) (*Reply, error) {
	conn, err := p.network().DialContext(ctx, p.Transport.String(), target.String())
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if _, err := conn.Write(BuildASPUP()); err != nil {
		return nil, err
	}

	buf := make([]byte, maxMessageSize)
	count, err := conn.Read(buf)
	if err != nil {
		return nil, err
	}
	header, err := ParseHeader(buf[:count])
	if err != nil {
		return nil, err
	}
	laddr, _ := netipx.Endpoint(conn.LocalAddr())
	return &Reply{Header: header, Raw: buf[:count], LocalAddr: laddr}, nil
}

func (p *Prober) network() *netcore.Network {
	if p.Network != nil {
		return p.Network
	}
	return netcore.DefaultNetwork
}

func (p *Prober) timeout() time.Duration {
	if p.Timeout > 0 {
		return p.Timeout
	}
	return DefaultTimeout
}

// emitProbeStart emits the m3uaProbeStart event.
func (p *Prober) emitProbeStart(ctx context.Context, target netip.AddrPort) time.Time {
	t0 := time.Now()
	if p.Logger != nil {
		p.Logger.InfoContext(
			ctx,
			"m3uaProbeStart",
			slog.String("protocol", p.Transport.String()),
			slog.String("remoteAddr", target.String()),
			slog.Time("t", t0),
		)
	}
	return t0
}

// emitProbeDone emits the m3uaProbeDone event.
func (p *Prober) emitProbeDone(ctx context.Context,
	target netip.AddrPort, t0 time.Time, reply *Reply, err error) {
	if p.Logger != nil {
		var message string
		if reply != nil {
			message = reply.Header.String()
		}
		p.Logger.InfoContext(
			ctx,
			"m3uaProbeDone",
			slog.Any("err", err),
			slog.String("errClass", errclass.New(err)),
			slog.String("m3uaMessage", message),
			slog.String("protocol", p.Transport.String()),
			slog.String("remoteAddr", target.String()),
			slog.Time("t0", t0),
			slog.Time("t", time.Now()),
		)
	}
}
