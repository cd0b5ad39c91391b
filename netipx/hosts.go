//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Host specification expansion.
//

package netipx

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"go4.org/netipx"
)

// DefaultMaxHosts is the default value of [Expander.MaxHosts].
const DefaultMaxHosts = 1 << 20

var (
	// ErrEmptySpec indicates that a host or port specification is empty.
	ErrEmptySpec = errors.New("netipx: empty specification")

	// ErrTooManyHosts indicates that a host specification expands
	// to more addresses than [Expander.MaxHosts] allows.
	ErrTooManyHosts = errors.New("netipx: too many hosts")

	// ErrNoLookup indicates that a host specification contains a
	// domain name but the [Expander] cannot resolve names.
	ErrNoLookup = errors.New("netipx: cannot resolve domain names")
)

// Expander expands textual host specifications into address lists.
//
// The zero value is ready to use and rejects domain names.
type Expander struct {
	// LookupHost is the optional function used to resolve domain
	// names. If nil, domain names cause [ErrNoLookup].
	LookupHost func(ctx context.Context, domain string) ([]string, error)

	// MaxHosts is the optional limit on the number of addresses a
	// single specification may expand to. If zero or negative, we
	// use [DefaultMaxHosts].
	MaxHosts int
}

// ParseHosts expands spec using a zero-value [Expander].
func ParseHosts(spec string) ([]netip.Addr, error) {
	return (&Expander{}).ParseHosts(context.Background(), spec)
}

// ParseHosts expands a comma-separated host specification into a sorted
// and deduplicated list of addresses. Each token is one of:
//
//   - a single address: "10.0.0.1", "2001:db8::1";
//
//   - a CIDR block: "10.0.0.0/24" (host bits are ignored);
//
//   - an inclusive range: "10.0.0.1-10.0.0.20";
//
//   - a domain name resolved through LookupHost.
//
// For CIDR blocks we only include usable hosts: we exclude the network
// and broadcast addresses of IPv4 blocks larger than /31 and the first
// address of IPv6 blocks larger than /127.
func (e *Expander) ParseHosts(ctx context.Context, spec string) ([]netip.Addr, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, ErrEmptySpec
	}
	var builder netipx.IPSetBuilder
	for _, token := range strings.Split(spec, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if err := e.addToken(ctx, &builder, token); err != nil {
			return nil, err
		}
	}
	set, err := builder.IPSet()
	if err != nil {
		return nil, fmt.Errorf("netipx: building address set: %w", err)
	}
	return e.collect(set)
}

// addToken adds the addresses described by a single token to the builder.
func (e *Expander) addToken(ctx context.Context, builder *netipx.IPSetBuilder, token string) error {
	// CIDR blocks
	if strings.Contains(token, "/") {
		prefix, err := netip.ParsePrefix(token)
		if err != nil {
			return fmt.Errorf("netipx: invalid CIDR %q: %w", token, err)
		}
		builder.AddRange(usableRange(prefix.Masked()))
		return nil
	}

	// inclusive ranges (note that domain names may contain dashes)
	if first, last, found := strings.Cut(token, "-"); found {
		from, errFrom := netip.ParseAddr(strings.TrimSpace(first))
		to, errTo := netip.ParseAddr(strings.TrimSpace(last))
		if errFrom == nil && errTo == nil {
			r := netipx.IPRangeFrom(from.Unmap(), to.Unmap())
			if !r.IsValid() {
				return fmt.Errorf("netipx: invalid range %q", token)
			}
			builder.AddRange(r)
			return nil
		}
	}

	// single addresses
	if addr, err := netip.ParseAddr(token); err == nil {
		builder.Add(addr.Unmap())
		return nil
	}

	// domain names
	return e.addDomain(ctx, builder, token)
}

// addDomain resolves a domain name and adds the results to the builder.
func (e *Expander) addDomain(ctx context.Context, builder *netipx.IPSetBuilder, domain string) error {
	if e.LookupHost == nil {
		return fmt.Errorf("%w: %q", ErrNoLookup, domain)
	}
	addrs, err := e.LookupHost(ctx, domain)
	if err != nil {
		return fmt.Errorf("netipx: resolving %q: %w", domain, err)
	}
	for _, entry := range addrs {
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return fmt.Errorf("netipx: resolving %q: invalid address %q", domain, entry)
		}
		builder.Add(addr.Unmap())
	}
	return nil
}

// collect flattens the set into a sorted list of addresses.
func (e *Expander) collect(set *netipx.IPSet) ([]netip.Addr, error) {
	limit := e.MaxHosts
	if limit <= 0 {
		limit = DefaultMaxHosts
	}
	var out []netip.Addr
	for _, r := range set.Ranges() {
		for addr := r.From(); ; addr = addr.Next() {
			if len(out) >= limit {
				return nil, fmt.Errorf("%w: more than %d addresses", ErrTooManyHosts, limit)
			}
			out = append(out, addr)
			if addr == r.To() {
				break
			}
		}
	}
	return out, nil
}

// usableRange returns the range of usable host addresses in prefix.
func usableRange(prefix netip.Prefix) netipx.IPRange {
	r := netipx.RangeOfPrefix(prefix)
	switch {
	case prefix.Addr().Is4() && prefix.Bits() < 31:
		return netipx.IPRangeFrom(r.From().Next(), r.To().Prev())
	case prefix.Addr().Is6() && prefix.Bits() < 127:
		return netipx.IPRangeFrom(r.From().Next(), r.To())
	default:
		return r
	}
}
