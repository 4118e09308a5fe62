package cli

import (
	"fmt"

	"github.com/LeJamon/goSwapd/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration file helpers",
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Load and validate the configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Configuration %s is valid\n", cfg.GetConfigPath())
		fmt.Fprintf(out, "  - Admin:          %s\n", cfg.Engine.Admin)
		fmt.Fprintf(out, "  - Fee collector:  %s\n", cfg.Engine.FeeCollector)
		fmt.Fprintf(out, "  - Base fee:       %s\n", cfg.Engine.BaseFee)
		fmt.Fprintf(out, "  - Database:       %s (%s)\n", cfg.Database.Backend, cfg.Database.Path)
		if cfg.Journal.Enabled() {
			fmt.Fprintf(out, "  - Journal:        %s\n", cfg.Journal.Driver)
		} else {
			fmt.Fprintf(out, "  - Journal:        disabled\n")
		}
		fmt.Fprintf(out, "  - Listen address: %s\n", cfg.Server.Addr())
		fmt.Fprintf(out, "  - Registries:     %d\n", len(cfg.Registry.Endpoints))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init <path>",
	Short: "Write an example configuration file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SaveExampleConfig(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Example configuration written to %s\n", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configCheckCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}
