package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/cellsleep/infra/logger"
	"github.com/kilianp07/cellsleep/qa/scenarios"
)

var checkExpected bool

var scenarioCmd = &cobra.Command{
	Use:   "scenario <file.yaml>",
	Short: "Run one offline cycle over a scenario file and print the policy",
	Args:  cobra.ExactArgs(1),
	RunE:  runScenario,
}

func init() {
	scenarioCmd.Flags().BoolVar(&checkExpected, "check", false, "fail when the result differs from the expected section")
	rootCmd.AddCommand(scenarioCmd)
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := scenarios.Load(args[0])
	if err != nil {
		return fmt.Errorf("load scenario: %w", err)
	}
	res, err := scenarios.Run(contextOf(cmd), sc, logger.New("scenario"))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}
	if checkExpected {
		return res.Check(sc.Expected)
	}
	return nil
}
