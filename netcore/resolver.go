//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/ooni/probe-cli/blob/v3.20.1/internal/netxlite/dialer.go
//
// Code for DNS lookups.
//

package netcore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/miekg/dns"
	"github.com/rbmk-project/dnscore"
	"github.com/rbmk-project/sctpscan/errclass"
)

// LookupHost resolves a domain name to IP addresses emitting structured
// logs. If the domain is already an IP address, we return it as is.
func (nx *Network) LookupHost(ctx context.Context, domain string) ([]string, error) {
	return nx.maybeLookupHost(ctx, domain)
}

// maybeLookupEndpoint resolves the domain name inside an endpoint into
// a list of SCTP/TCP endpoints. If the domain name is already an IP
// address, we short circuit the lookup.
func (nx *Network) maybeLookupEndpoint(ctx context.Context, endpoint string) ([]string, error) {
	domain, port, err := net.SplitHostPort(endpoint)
	if err != nil {
		return nil, err
	}

	addrs, err := nx.maybeLookupHost(ctx, domain)
	if err != nil {
		return nil, err
	}

	var endpoints []string
	for _, addr := range addrs {
		endpoints = append(endpoints, net.JoinHostPort(addr, port))
	}
	return endpoints, nil
}

// maybeLookupHost resolves a domain name to IP addresses unless the domain
// is already an IP address, in which case we short circuit the lookup.
func (nx *Network) maybeLookupHost(ctx context.Context, domain string) ([]string, error) {
	// handle the case where domain is already an IP address
	if net.ParseIP(domain) != nil {
		return []string{domain}, nil
	}

	t0 := nx.emitLookupHostStart(ctx, domain)
	addrs, err := nx.doLookupHost(ctx, domain)
	nx.emitLookupHostDone(ctx, domain, t0, addrs, err)
	return addrs, err
}

// doLookupHost performs the DNS lookup.
func (nx *Network) doLookupHost(ctx context.Context, domain string) ([]string, error) {
	// if there is a custom LookupHostFunc, use it
	if nx.LookupHostFunc != nil {
		return nx.LookupHostFunc(ctx, domain)
	}

	// otherwise fallback to the system resolver
	reso := &net.Resolver{}
	return reso.LookupHost(ctx, domain)
}

// emitLookupHostStart emits a structured event before the lookup.
func (nx *Network) emitLookupHostStart(ctx context.Context, domain string) time.Time {
	t0 := nx.timeNow()
	if nx.Logger != nil {
		nx.Logger.InfoContext(
			ctx,
			"lookupHostStart",
			slog.String("dnsLookupDomain", domain),
			slog.Time("t", t0),
		)
	}
	return t0
}

// emitLookupHostDone emits a structured event after the lookup.
func (nx *Network) emitLookupHostDone(ctx context.Context,
	domain string, t0 time.Time, addrs []string, err error) {
	if nx.Logger != nil {
		nx.Logger.InfoContext(
			ctx,
			"lookupHostDone",
			slog.String("dnsLookupDomain", domain),
			slog.Any("dnsResolvedAddrs", addrs),
			slog.Any("err", err),
			slog.String("errClass", errclass.New(err)),
			slog.Time("t0", t0),
			slog.Time("t", nx.timeNow()),
		)
	}
}

// ErrNoAnswer is returned by [DNSOverUDPLookup] when the server
// returns neither A nor AAAA records for the domain.
var ErrNoAnswer = errors.New("netcore: no answer")

// DNSOverUDPLookup returns a function suitable for the LookupHostFunc field
// of [*Network] that queries the given DNS server (e.g., "8.8.8.8:53") over
// UDP for both A and AAAA records.
func DNSOverUDPLookup(server string) func(ctx context.Context, domain string) ([]string, error) {
	txp := &dnscore.Transport{}
	serverAddr := dnscore.NewServerAddr(dnscore.ProtocolUDP, server)
	return func(ctx context.Context, domain string) ([]string, error) {
		var (
			addrs []string
			errv  []error
		)
		for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
			found, err := dnsQuery(ctx, txp, serverAddr, domain, qtype)
			if err != nil {
				errv = append(errv, err)
				continue
			}
			addrs = append(addrs, found...)
		}
		if len(addrs) > 0 {
			return addrs, nil
		}
		if len(errv) > 0 {
			return nil, errors.Join(errv...)
		}
		return nil, fmt.Errorf("lookup %s: %w", domain, ErrNoAnswer)
	}
}

// dnsQuery performs a single DNS round trip and extracts the addresses.
func dnsQuery(ctx context.Context, txp *dnscore.Transport,
	serverAddr *dnscore.ServerAddr, domain string, qtype uint16) ([]string, error) {
	query, err := dnscore.NewQuery(dns.Fqdn(domain), qtype)
	if err != nil {
		return nil, err
	}
	resp, err := txp.Query(ctx, serverAddr, query)
	if err != nil {
		return nil, err
	}
	if resp.Rcode == dns.RcodeNameError {
		return nil, fmt.Errorf("lookup %s: no such host", domain)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("lookup %s: %s", domain, dns.RcodeToString[resp.Rcode])
	}
	var addrs []string
	for _, ans := range resp.Answer {
		switch rr := ans.(type) {
		case *dns.A:
			addrs = append(addrs, rr.A.String())
		case *dns.AAAA:
			addrs = append(addrs, rr.AAAA.String())
		}
	}
	return addrs, nil
}
