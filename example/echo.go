package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/netpak/netpak"
)

// A minimal echo server: every package a client sends comes straight back.
// Framing, reassembly, and connection lifecycle are handled by the library;
// the handler only sees whole packages.
func main() {
	listener, err := netpak.Listen("127.0.0.1:12345")
	if err != nil {
		slog.Error("failed to listen", "error", err)
		return
	}

	listener.OnConnect(func(conn *netpak.Conn) {
		slog.Info("client connected", "id", conn.ID(), "addr", conn.RemoteAddr())

		conn.OnPackage(func(p netpak.Package) {
			if err := conn.Send(p.Message); err != nil {
				slog.Error("echo failed", "id", conn.ID(), "error", err)
			}
		})
		conn.OnStopped(func(err error) {
			if err != nil {
				slog.Error("connection stopped", "id", conn.ID(), "error", err)
			}
			conn.Close()
		})

		if err := conn.Start(context.Background()); err != nil {
			slog.Error("failed to start connection", "id", conn.ID(), "error", err)
			conn.Close()
		}
	})

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		slog.Info("shutting down server...")
		cancel()
	}()

	slog.Info("server start", "addr", listener.Addr())
	if err := listener.Serve(ctx); err != nil {
		slog.Error("server error", "error", err)
	}
}
