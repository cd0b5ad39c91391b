// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rbmk-project/sctpscan/netcore"
	"github.com/spf13/viper"
)

// scanOptions contains the validated scan configuration.
type scanOptions struct {
	common          commonOptions
	concurrency     int
	format          string
	ips             string
	metricsFile     string
	noProgress      bool
	pingConcurrency int
	pingTimeout     time.Duration
	ports           string
	probeM3UA       bool
	skipPing        bool
	timeout         time.Duration
}

// commonOptions contains the options shared by all commands.
type commonOptions struct {
	dnsServer string
	logFormat string
	logLevel  string
	transport netcore.Transport
}

// newCommonOptions reads and validates the common options.
func newCommonOptions(v *viper.Viper) (commonOptions, error) {
	transport, err := netcore.ParseTransport(v.GetString("transport"))
	if err != nil {
		return commonOptions{}, err
	}
	opts := commonOptions{
		dnsServer: v.GetString("dns-server"),
		logFormat: strings.ToLower(v.GetString("log-format")),
		logLevel:  strings.ToLower(v.GetString("log-level")),
		transport: transport,
	}
	if _, err := parseLevel(opts.logLevel); err != nil {
		return commonOptions{}, err
	}
	switch opts.logFormat {
	case "text", "json":
	default:
		return commonOptions{}, fmt.Errorf("invalid log format %q", opts.logFormat)
	}
	return opts, nil
}

// newScanOptions reads and validates the scan options.
func newScanOptions(v *viper.Viper) (*scanOptions, error) {
	common, err := newCommonOptions(v)
	if err != nil {
		return nil, err
	}
	opts := &scanOptions{
		common:          common,
		concurrency:     v.GetInt("concurrency"),
		format:          strings.ToLower(v.GetString("format")),
		ips:             strings.TrimSpace(v.GetString("ips")),
		metricsFile:     v.GetString("metrics-file"),
		noProgress:      v.GetBool("no-progress"),
		pingConcurrency: v.GetInt("ping-concurrency"),
		ports:           v.GetString("ports"),
		probeM3UA:       v.GetBool("probe-m3ua"),
		skipPing:        v.GetBool("skip-ping"),
	}
	if opts.ips == "" {
		return nil, errNoTargets
	}
	if opts.concurrency <= 0 {
		return nil, fmt.Errorf("invalid concurrency %d: must be positive", opts.concurrency)
	}
	if opts.pingConcurrency <= 0 {
		return nil, fmt.Errorf("invalid ping concurrency %d: must be positive", opts.pingConcurrency)
	}
	if opts.timeout, err = parseSeconds(v.GetString("timeout")); err != nil {
		return nil, fmt.Errorf("invalid timeout: %w", err)
	}
	if opts.pingTimeout, err = parseSeconds(v.GetString("ping-timeout")); err != nil {
		return nil, fmt.Errorf("invalid ping timeout: %w", err)
	}
	switch opts.format {
	case "table", "json", "plain":
	default:
		return nil, fmt.Errorf("invalid format %q", opts.format)
	}
	return opts, nil
}

// maxSeconds is the largest number of seconds fitting a [time.Duration].
const maxSeconds = float64(math.MaxInt64 / int64(time.Second))

// parseSeconds parses a positive duration given either in the Go
// syntax (e.g., "500ms") or as a number of seconds (e.g., "1.5").
func parseSeconds(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	var duration time.Duration
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		if math.IsNaN(secs) || math.IsInf(secs, 0) || secs > maxSeconds {
			return 0, fmt.Errorf("%q is out of range", value)
		}
		duration = time.Duration(secs * float64(time.Second))
	} else if duration, err = time.ParseDuration(value); err != nil {
		return 0, err
	}
	if duration <= 0 {
		return 0, fmt.Errorf("%q is not positive", value)
	}
	return duration, nil
}
