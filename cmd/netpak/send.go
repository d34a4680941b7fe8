package main

import (
	"crypto/tls"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/netpak/netpak"
)

var (
	useTLS   bool
	insecure bool
	wait     time.Duration
)

var sendCmd = &cobra.Command{
	Use:   "send MESSAGE...",
	Short: "Connect and send each argument as one package, printing replies",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var conn *netpak.Conn
		var err error
		if useTLS {
			tlsCfg := &tls.Config{InsecureSkipVerify: insecure}
			conn, err = netpak.DialTLSContext(cmd.Context(), cfg.Addr, tlsCfg, connOptions()...)
		} else {
			conn, err = netpak.DialContext(cmd.Context(), cfg.Addr, connOptions()...)
		}
		if err != nil {
			return err
		}
		defer conn.Close()

		replies := make(chan netpak.Package, len(args))
		conn.OnPackage(func(p netpak.Package) { replies <- p })

		if err := conn.Start(cmd.Context()); err != nil {
			return err
		}

		for _, arg := range args {
			if err := conn.Send(netpak.RawMessage(arg)); err != nil {
				return err
			}
		}

		deadline := time.After(wait)
		for range args {
			select {
			case p := <-replies:
				fmt.Println(string(p.Message.Body()))
			case <-deadline:
				logger.Warn("timed out waiting for replies", "waited", wait)
				return nil
			case <-cmd.Context().Done():
				return cmd.Context().Err()
			}
		}
		return nil
	},
}

func init() {
	sendCmd.Flags().BoolVar(&useTLS, "tls", false, "connect over TLS")
	sendCmd.Flags().BoolVar(&insecure, "insecure", false, "skip peer certificate validation")
	sendCmd.Flags().DurationVar(&wait, "wait", 5*time.Second, "how long to wait for replies")
	rootCmd.AddCommand(sendCmd)
}
