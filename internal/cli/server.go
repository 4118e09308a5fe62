package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Server flags
	port     int
	bindAddr string
	funds    []string
)

// serverCmd represents the server command (default action)
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the swap escrow server",
	Long: `Start the swapd server which provides:
- HTTP JSON-RPC API endpoints
- WebSocket stream of offer lifecycle events
- Prometheus metrics and a health check endpoint

This is the default command when no subcommand is specified.`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)

	// Set server as the default command
	rootCmd.RunE = runServer

	// Server-specific flags, overriding the [server] section
	serverCmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on")
	serverCmd.Flags().StringVar(&bindAddr, "bind", "", "address to bind to")
	serverCmd.Flags().StringSliceVar(&funds, "fund", nil, "credit a standalone account, as account=amount (repeatable)")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if bindAddr != "" {
		cfg.Server.Bind = bindAddr
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := newDaemon(ctx, cfg, standalone, log)
	if err != nil {
		return err
	}
	if err := d.fund(funds); err != nil {
		d.close()
		return err
	}

	if !quiet {
		fmt.Fprintln(cmd.OutOrStdout(), "Starting swapd")
		fmt.Fprintln(cmd.OutOrStdout(), "Server Configuration:")
		fmt.Fprintf(cmd.OutOrStdout(), "  - HTTP JSON-RPC: http://%s/\n", cfg.Server.Addr())
		fmt.Fprintf(cmd.OutOrStdout(), "  - WebSocket:     ws://%s/ws\n", cfg.Server.Addr())
		fmt.Fprintf(cmd.OutOrStdout(), "  - Metrics:       http://%s/metrics\n", cfg.Server.Addr())
		fmt.Fprintf(cmd.OutOrStdout(), "  - Health Check:  http://%s/health\n", cfg.Server.Addr())
		if standalone {
			fmt.Fprintln(cmd.OutOrStdout(), "  - Standalone:    in-process registry")
		}
	}

	log.Info("Starting swapd",
		zap.String("version", rootCmd.Version),
		zap.String("database", cfg.Database.Backend),
		zap.Bool("standalone", standalone))
	return d.run(ctx)
}
