package cli

import (
	"fmt"
	"os"

	"github.com/LeJamon/goSwapd/internal/config"
	"github.com/LeJamon/goSwapd/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	configFile string
	debug      bool
	verbose    bool
	quiet      bool
	standalone bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "swapd",
	Short: "swapd - escrow engine for two-party multi-asset swaps",
	Long: `swapd holds custody of the assets two parties promised each other and
releases everything at once when both sides have delivered, or returns
everything when the offer is cancelled.`,
	Version:       "0.1.0-dev",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "conf", "", "configuration file path (default ./swapd.toml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable normally suppressed debug logging")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")
	rootCmd.PersistentFlags().BoolVar(&standalone, "standalone", false, "use an in-process registry instead of remote ones")
}

// loadConfig reads the file named by --conf, or swapd.toml
func loadConfig() (*config.Config, error) {
	paths := config.DefaultConfigPaths()
	if configFile != "" {
		paths = config.ConfigPaths{Main: configFile}
	}
	return config.LoadConfig(paths)
}

// logLevel applies the command line overrides to the configured level
func logLevel(configured string) string {
	switch {
	case debug || verbose:
		return "debug"
	case quiet:
		return "warn"
	}
	return configured
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(logLevel(cfg.LogLevel), debug)
}
