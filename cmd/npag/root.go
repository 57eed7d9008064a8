// Package cmd builds the cobra CLI shell around a user-supplied
// structural model and dataset loader: "run" fits an NPAG model to a
// dataset, "simulate" runs the predictor forward over a densified event
// timeline without fitting. Neither the structural model nor the dataset
// parser lives in this module; a per-study binary supplies both, the way
// the original engine took its model as a constructor argument rather
// than discovering it at runtime.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/npag-go/npag"
	"github.com/npag-go/npag/scenario"
)

// ScenarioLoader parses a dataset at path into the per-subject records
// Fit and Simulate consume. Left to the caller: dataset formats vary by
// study and parsing one is explicitly not this module's concern.
type ScenarioLoader func(path string) ([]*scenario.Scenario, error)

// NewRootCommand builds the "npag" root command, wiring predictor and
// loadScenarios into its "run" and "simulate" subcommands.
func NewRootCommand(predictor npag.Predictor, loadScenarios ScenarioLoader) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "npag",
		Short: "Nonparametric Adaptive Grid population PK estimation",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.toml", "path to the run configuration file")

	root.AddCommand(newRunCommand(predictor, loadScenarios, &configPath))
	root.AddCommand(newSimulateCommand(predictor, loadScenarios, &configPath))

	return root
}

// Execute builds the root command for (predictor, loadScenarios) and runs
// it against os.Args. A per-study main package is expected to call this
// directly.
func Execute(predictor npag.Predictor, loadScenarios ScenarioLoader) error {
	return NewRootCommand(predictor, loadScenarios).Execute()
}
