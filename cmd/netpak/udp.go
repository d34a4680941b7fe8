package main

import (
	"fmt"
	"net"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/netpak/netpak"
)

var peer string

var udpCmd = &cobra.Command{
	Use:   "udp [MESSAGE...]",
	Short: "Exchange datagrams: send the arguments to --peer, print everything received",
	RunE: func(cmd *cobra.Command, args []string) error {
		endpoint, err := netpak.ListenPacket(cfg.Addr, connOptions()...)
		if err != nil {
			return err
		}
		defer endpoint.Close()

		endpoint.OnPackage(func(p netpak.Package) {
			fmt.Printf("%s> %s\n", p.From, p.Message.Body())
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := endpoint.Start(ctx); err != nil {
			return err
		}
		logger.Info("datagram endpoint ready", "addr", endpoint.LocalAddr())

		if len(args) > 0 {
			if peer == "" {
				return fmt.Errorf("--peer is required to send")
			}
			to, err := net.ResolveUDPAddr("udp", peer)
			if err != nil {
				return err
			}
			sender := endpoint.To(to)
			for _, arg := range args {
				if err := sender.Send(netpak.RawMessage(arg)); err != nil {
					return err
				}
			}
		}

		<-ctx.Done()
		return nil
	},
}

func init() {
	udpCmd.Flags().StringVar(&peer, "peer", "", "remote address to send datagrams to")
	rootCmd.AddCommand(udpCmd)
}
