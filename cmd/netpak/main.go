package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/netpak/netpak"
)

var (
	// Global flags
	cfgFile string
	addr    string
	debug   bool

	// Shared state set during PersistentPreRun
	cfg    *Config
	logger netpak.Logger
)

// rootCmd is the base command for netpak.
var rootCmd = &cobra.Command{
	Use:   "netpak",
	Short: "netpak — exchange framed packages over TCP, TLS, and UDP",
	Long: `Netpak is a small plumbing tool for the netpak transport library.
It runs an echo acceptor, connects and sends packages, or exchanges
datagrams, using the same framing and lifecycle as the library itself.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = defaultConfigPath()
		}
		var err error
		cfg, err = loadConfig(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if addr != "" {
			cfg.Addr = addr
		}

		level := zerolog.InfoLevel
		if debug {
			level = zerolog.DebugLevel
		}
		output := zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}
		zl := zerolog.New(output).Level(level).With().Timestamp().Logger()
		logger = netpak.NewZerologLogger(zl)

		return nil
	},
}

// connOptions translates the config into library options.
func connOptions() []netpak.Option {
	opts := []netpak.Option{netpak.LoggerOption(logger)}
	if cfg.MaxPackageSize > 0 {
		opts = append(opts, netpak.MaxPackageSizeOption(cfg.MaxPackageSize))
	}
	if cfg.BufferSize > 0 {
		opts = append(opts, netpak.BufferSizeOption(cfg.BufferSize))
	}
	return opts
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.netpak/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&addr, "addr", "", "address to listen on or connect to")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
