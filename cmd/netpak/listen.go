package main

import (
	"context"
	"crypto/tls"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/netpak/netpak"
)

var (
	tlsCert string
	tlsKey  string
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Run an echo acceptor that returns every package to its sender",
	RunE: func(cmd *cobra.Command, args []string) error {
		cert := tlsCert
		key := tlsKey
		if cert == "" {
			cert = cfg.TLSCert
		}
		if key == "" {
			key = cfg.TLSKey
		}

		var listener *netpak.Listener
		var err error
		if cert != "" && key != "" {
			var pair tls.Certificate
			pair, err = tls.LoadX509KeyPair(cert, key)
			if err != nil {
				return err
			}
			listener, err = netpak.ListenTLS(cfg.Addr, &tls.Config{
				Certificates: []tls.Certificate{pair},
			}, connOptions()...)
		} else {
			listener, err = netpak.Listen(cfg.Addr, connOptions()...)
		}
		if err != nil {
			return err
		}
		defer listener.Close()

		listener.OnConnect(func(conn *netpak.Conn) {
			logger.Info("client connected", "id", conn.ID(), "addr", conn.RemoteAddr())

			conn.OnPackage(func(p netpak.Package) {
				if sendErr := conn.Send(p.Message); sendErr != nil {
					logger.Error("echo failed", "id", conn.ID(), "error", sendErr)
				}
			})
			conn.OnStopped(func(stopErr error) {
				if stopErr != nil {
					logger.Error("connection stopped", "id", conn.ID(), "error", stopErr)
				} else {
					logger.Info("client disconnected", "id", conn.ID())
				}
				conn.Close()
			})

			if startErr := conn.Start(context.Background()); startErr != nil {
				logger.Error("failed to start connection", "id", conn.ID(), "error", startErr)
				conn.Close()
			}
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logger.Info("listening", "addr", listener.Addr(), "tls", cert != "")
		return listener.Serve(ctx)
	},
}

func init() {
	listenCmd.Flags().StringVar(&tlsCert, "tls-cert", "", "path to the server certificate (PEM)")
	listenCmd.Flags().StringVar(&tlsKey, "tls-key", "", "path to the server private key (PEM)")
	rootCmd.AddCommand(listenCmd)
}
