// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// envPrefix is the prefix of the environment variables we read.
	envPrefix = "SCTPSCAN"

	// default values mirroring the original scanner
	defaultPorts           = "2905-2905"
	defaultConcurrency     = 1024
	defaultTimeout         = "1s"
	defaultPingConcurrency = 100
	defaultPingTimeout     = "1s"
)

// errNoTargets indicates that the user did not specify --ips.
var errNoTargets = errors.New("required flag \"ips\" not set")

// newRootCmd creates the sctpscan command writing results to stdout and
// diagnostics to stderr.
func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   "sctpscan",
		Short: "Fast SCTP scanner with host-alive pre-check",
		Long: `sctpscan pings the given hosts to find the alive ones and then
scans them for open SCTP ports using non-blocking connects, keeping at
most --concurrency connects outstanding at any time.`,
		Example: `  sctpscan -i 10.0.0.0/24 -p 2905-2910
  sctpscan -i 10.0.0.1-10.0.0.20,stp.example.net --probe-m3ua
  sctpscan -i 127.0.0.1 -p 22,80,443 --transport tcp --skip-ping`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(v, cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := newScanOptions(v)
			if err != nil {
				return err
			}
			return runScan(cmd.Context(), opts, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.PersistentFlags()
	flags.String("config", "", "YAML configuration file")
	flags.String("log-level", "warn", "log level: debug, info, warn, or error")
	flags.String("log-format", "text", "log format: text or json")
	flags.String("transport", "sctp", "transport protocol: sctp or tcp")
	flags.String("dns-server", "", "resolve host names using this DNS-over-UDP server (e.g., 8.8.8.8:53)")

	flags = cmd.Flags()
	flags.StringP("ips", "i", "", "IP range (start-end), CIDR, host name, or comma list")
	flags.StringP("ports", "p", defaultPorts, "port range, e.g. 2905-2910, or comma list")
	flags.IntP("concurrency", "c", defaultConcurrency, "max simultaneous connection attempts")
	flags.StringP("timeout", "T", defaultTimeout, "per-connect timeout (duration or seconds)")
	flags.Int("ping-concurrency", defaultPingConcurrency, "max simultaneous pings")
	flags.String("ping-timeout", defaultPingTimeout, "ping timeout (duration or seconds)")
	flags.Bool("skip-ping", false, "scan all hosts without pinging them first")
	flags.Bool("probe-m3ua", false, "send an M3UA ASPUP to every open port")
	flags.String("format", "table", "output format: table, json, or plain")
	flags.String("metrics-file", "", "write Prometheus metrics to this file")
	flags.Bool("no-progress", false, "do not print progress information")

	cmd.AddCommand(newProbeCmd(v, stdout, stderr))
	return cmd
}

// loadConfig binds flags and environment variables to v and reads
// the configuration file, if any. Flags take precedence over the
// environment, which takes precedence over the configuration file.
func loadConfig(v *viper.Viper, flags *pflag.FlagSet) error {
	if err := v.BindPFlags(flags); err != nil {
		return err
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("cannot read config file: %w", err)
		}
	}
	return nil
}
