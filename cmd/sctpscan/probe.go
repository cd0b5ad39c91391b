// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"strconv"
	"time"

	"github.com/rbmk-project/sctpscan/m3ua"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// defaultProbeTimeout is the default timeout of the probe command.
const defaultProbeTimeout = "5s"

// errUnexpectedReply indicates that the peer did not acknowledge ASPUP.
var errUnexpectedReply = errors.New("peer did not reply with ASPUP_ACK")

// newProbeCmd creates the probe subcommand.
func newProbeCmd(v *viper.Viper, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe <host> <port>",
		Short: "Send an M3UA ASPUP to a single endpoint",
		Long: `probe connects to the given endpoint, sends an M3UA ASP Up message,
and prints the header of the first message received in response.`,
		Example: `  sctpscan probe 10.0.0.1 2905`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			common, err := newCommonOptions(v)
			if err != nil {
				return err
			}
			timeout, err := parseSeconds(v.GetString("timeout"))
			if err != nil {
				return fmt.Errorf("invalid timeout: %w", err)
			}
			return runProbe(cmd.Context(), common, timeout, args[0], args[1], stdout, stderr)
		},
	}
	cmd.Flags().StringP("timeout", "T", defaultProbeTimeout, "connect and read timeout (duration or seconds)")
	return cmd
}

// runProbe implements the probe subcommand.
func runProbe(ctx context.Context, opts commonOptions, timeout time.Duration,
	host, port string, stdout, stderr io.Writer) error {
	logger := newLogger(stderr, opts)
	netx := newNetwork(opts, logger)

	portnum, err := strconv.ParseUint(port, 10, 16)
	if err != nil || portnum == 0 {
		return fmt.Errorf("invalid port %q", port)
	}
	addrs, err := netx.LookupHost(ctx, host)
	if err != nil {
		return err
	}
	if len(addrs) <= 0 {
		return fmt.Errorf("no addresses for %q", host)
	}
	addr, err := netip.ParseAddr(addrs[0])
	if err != nil {
		return err
	}
	endpoint := netip.AddrPortFrom(addr.Unmap(), uint16(portnum))

	prober := &m3ua.Prober{
		Network:   netx,
		Transport: opts.transport,
		Timeout:   timeout,
		Logger:    logger,
	}
	fmt.Fprintf(stdout, "Sending ASPUP to %s over %s\n", endpoint, opts.transport)
	reply, err := prober.Probe(ctx, endpoint)
	if err != nil {
		return err
	}
	if reply.LocalAddr.IsValid() {
		fmt.Fprintf(stdout, "Local endpoint %s\n", reply.LocalAddr)
	}
	fmt.Fprintf(stdout, "Received %s (version=%d class=%d type=%d length=%d)\n",
		reply.Header, reply.Header.Version, reply.Header.Class, reply.Header.Type, reply.Header.Length)
	if !reply.IsASPUpAck() {
		return errUnexpectedReply
	}
	fmt.Fprintln(stdout, "ASP is up")
	return nil
}
