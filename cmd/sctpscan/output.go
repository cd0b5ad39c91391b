// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/rbmk-project/sctpscan/scanner"
)

// openPort is the serialized form of an open port.
type openPort struct {
	IP   string `json:"ip"`
	Port uint16 `json:"port"`
	M3UA string `json:"m3ua,omitempty"`
}

// reportStats is the serialized form of [scanner.Stats].
type reportStats struct {
	Total           int `json:"total"`
	Open            int `json:"open"`
	Refused         int `json:"refused"`
	Unreachable     int `json:"unreachable"`
	TimedOut        int `json:"timed_out"`
	Failed          int `json:"failed"`
	AdmissionFailed int `json:"admission_failed"`
	PeakInFlight    int `json:"peak_in_flight"`
}

// scanReport is the serialized form of a scan result.
type scanReport struct {
	Protocol string      `json:"protocol"`
	Open     []openPort  `json:"open"`
	Stats    reportStats `json:"stats"`
}

// writeResults writes the open ports to w using the given format.
//
// The probes map is nil unless the user requested M3UA probing.
func writeResults(w io.Writer, format, proto string,
	result *scanner.Result, probes map[scanner.Target]string) error {
	switch format {
	case "json":
		return writeJSON(w, proto, result, probes)
	case "plain":
		return writePlain(w, result, probes)
	default:
		return writeTable(w, proto, result, probes)
	}
}

func writeTable(w io.Writer, proto string, result *scanner.Result, probes map[scanner.Target]string) error {
	if len(result.Open) <= 0 {
		return nil
	}
	fmt.Fprintf(w, "Open %s Ports\n", proto)
	table := tablewriter.NewWriter(w)
	if probes != nil {
		table.Header("IP", "Port", "M3UA")
	} else {
		table.Header("IP", "Port")
	}
	for _, target := range result.Open {
		row := []string{target.Addr.String(), strconv.Itoa(int(target.Port))}
		if probes != nil {
			row = append(row, probes[target])
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

func writePlain(w io.Writer, result *scanner.Result, probes map[scanner.Target]string) error {
	for _, target := range result.Open {
		var err error
		if probes != nil {
			_, err = fmt.Fprintf(w, "%s\t%s\n", target, probes[target])
		} else {
			_, err = fmt.Fprintf(w, "%s\n", target)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w io.Writer, proto string, result *scanner.Result, probes map[scanner.Target]string) error {
	report := scanReport{
		Protocol: strings.ToLower(proto),
		Open:     make([]openPort, 0, len(result.Open)),
		Stats:    reportStats(result.Stats),
	}
	for _, target := range result.Open {
		report.Open = append(report.Open, openPort{
			IP:   target.Addr.String(),
			Port: target.Port,
			M3UA: probes[target],
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
