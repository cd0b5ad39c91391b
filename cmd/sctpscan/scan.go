// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/rbmk-project/sctpscan/errclass"
	"github.com/rbmk-project/sctpscan/liveness"
	"github.com/rbmk-project/sctpscan/m3ua"
	"github.com/rbmk-project/sctpscan/metrics"
	"github.com/rbmk-project/sctpscan/netcore"
	"github.com/rbmk-project/sctpscan/netipx"
	"github.com/rbmk-project/sctpscan/scanner"
	"golang.org/x/sync/errgroup"
)

// maxParallelProbes bounds the number of parallel M3UA probes.
const maxParallelProbes = 16

// runScan runs the ping and scan phases and prints the results.
func runScan(ctx context.Context, opts *scanOptions, stdout, stderr io.Writer) error {
	logger := newLogger(stderr, opts.common)
	netx := newNetwork(opts.common, logger)
	ui := &console{w: stderr, quiet: opts.noProgress}
	proto := strings.ToUpper(opts.common.transport.String())

	expander := &netipx.Expander{LookupHost: netx.LookupHost}
	hosts, err := expander.ParseHosts(ctx, opts.ips)
	if err != nil {
		return err
	}
	ports, err := netipx.ParsePorts(opts.ports)
	if err != nil {
		return err
	}

	var mx *metrics.Metrics
	if opts.metricsFile != "" {
		mx = metrics.New(opts.common.transport.String())
		defer func() {
			if err := mx.WriteToTextfile(opts.metricsFile); err != nil {
				logger.WarnContext(ctx, "cannot write metrics", slog.Any("err", err))
			}
		}()
	}

	alive := hosts
	if !opts.skipPing {
		ui.Printf("Pinging %d hosts to find alive ones...", len(hosts))
		bar := ui.newProgress("Pinging", len(hosts))
		filter := &liveness.Filter{
			Concurrency: opts.pingConcurrency,
			Timeout:     opts.pingTimeout,
			Logger:      logger,
			OnProbe: func(addr netip.Addr, ok bool) {
				bar.Add(1)
				if mx != nil {
					mx.ObserveProbe(ok)
				}
			},
		}
		alive, err = filter.Alive(ctx, hosts)
		bar.Done()
		if err != nil {
			return err
		}
		ui.Printf("%d hosts alive, %d down", len(alive), len(hosts)-len(alive))
		if len(alive) <= 0 {
			ui.Printf("No alive hosts found, exiting.")
			return nil
		}
	}

	ui.Printf("Scanning %d hosts x %d ports...", len(alive), len(ports))
	bar := ui.newProgress("Scanning", len(alive)*len(ports))
	s := &scanner.Scanner{
		Concurrency: opts.concurrency,
		Timeout:     opts.timeout,
		Transport:   opts.common.transport,
		Logger:      logger,
		OnResolve: func(res scanner.Resolution) {
			bar.Add(1)
			if mx != nil {
				mx.ObserveResolution(res)
			}
		},
	}
	t0 := time.Now()
	result, scanErr := s.Scan(ctx, scanner.NewSequence(alive, ports))
	bar.Done()
	if result == nil {
		return scanErr
	}
	if mx != nil {
		mx.ObserveScan(result, time.Since(t0))
	}

	var probes map[scanner.Target]string
	if opts.probeM3UA && scanErr == nil {
		prober := &m3ua.Prober{Network: netx, Transport: opts.common.transport, Logger: logger}
		probes = probeAll(ctx, prober, result.Open)
	}

	if err := writeResults(stdout, opts.format, proto, result, probes); err != nil {
		return err
	}
	if len(result.Open) <= 0 {
		ui.Printf("No open %s ports detected on alive hosts.", proto)
	}
	return scanErr
}

// newNetwork creates the [*netcore.Network] used for DNS lookups and probes.
func newNetwork(opts commonOptions, logger *slog.Logger) *netcore.Network {
	netx := netcore.NewNetwork()
	netx.Logger = logger
	if opts.dnsServer != "" {
		netx.LookupHostFunc = netcore.DNSOverUDPLookup(dnsServerEndpoint(opts.dnsServer))
	}
	return netx
}

// dnsServerEndpoint adds the default DNS port to server if needed.
func dnsServerEndpoint(server string) string {
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(strings.Trim(server, "[]"), "53")
}

// probeAll sends an M3UA ASPUP to each target and describes the replies.
func probeAll(ctx context.Context, prober *m3ua.Prober, targets []scanner.Target) map[scanner.Target]string {
	var (
		group errgroup.Group
		mu    sync.Mutex
		out   = make(map[scanner.Target]string, len(targets))
	)
	group.SetLimit(maxParallelProbes)
	for _, target := range targets {
		group.Go(func() error {
			reply, err := prober.Probe(ctx, target.AddrPort())
			mu.Lock()
			out[target] = describeReply(reply, err)
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()
	return out
}

// describeReply returns a short description of an M3UA probe result.
func describeReply(reply *m3ua.Reply, err error) string {
	switch {
	case err != nil && errors.Is(err, m3ua.ErrVersion):
		return "not M3UA"
	case err != nil:
		return "error: " + errclass.New(err)
	default:
		return reply.Header.String()
	}
}
