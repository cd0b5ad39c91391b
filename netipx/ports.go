//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Port specification expansion.
//

package netipx

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ParsePorts parses a port specification and returns a sorted,
// deduplicated list of ports. Supported forms:
//
//   - single: "2905"
//
//   - range: "2905-2910"
//
//   - list: "2905,3868,9900-9905"
//
// Ports must be in the 1..65535 range.
func ParsePorts(spec string) ([]uint16, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, ErrEmptySpec
	}
	seen := make(map[uint16]struct{})
	for _, token := range strings.Split(spec, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			return nil, fmt.Errorf("netipx: empty token in port spec %q", spec)
		}
		first, last, isRange := strings.Cut(token, "-")
		if !isRange {
			last = first
		}
		start, err := parsePort(first)
		if err != nil {
			return nil, err
		}
		end, err := parsePort(last)
		if err != nil {
			return nil, err
		}
		if start > end {
			return nil, fmt.Errorf("netipx: range start greater than end: %q", token)
		}
		for port := int(start); port <= int(end); port++ {
			seen[uint16(port)] = struct{}{}
		}
	}
	out := make([]uint16, 0, len(seen))
	for port := range seen {
		out = append(out, port)
	}
	slices.Sort(out)
	return out, nil
}

// parsePort parses a single port number.
func parsePort(value string) (uint16, error) {
	port, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("netipx: invalid port %q: %w", value, err)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("netipx: port %d out of range 1..65535", port)
	}
	return uint16(port), nil
}
