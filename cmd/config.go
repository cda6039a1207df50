package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/cellsleep/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration related commands",
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Load and validate the configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigCheck,
}

func init() {
	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (macro %d, %s backend, %s snapshots)\n",
		cfgPath, cfg.Sleep.Macro, cfg.Network.Backend, cfg.Snapshot.Type)
	return err
}
