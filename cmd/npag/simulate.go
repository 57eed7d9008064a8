package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/npag-go/npag"
	"github.com/npag-go/npag/config"
	"github.com/npag-go/npag/internal/gauss"
)

func newSimulateCommand(predictor npag.Predictor, loadScenarios ScenarioLoader, configPath *string) *cobra.Command {
	var outPath string
	var noise float64

	simCmd := &cobra.Command{
		Use:   "simulate",
		Short: "run the predictor forward over a prior, without fitting",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(predictor, loadScenarios, *configPath, outPath, noise)
		},
	}
	simCmd.Flags().StringVar(&outPath, "out", "simulation.csv", "path to write predicted concentrations")
	simCmd.Flags().Float64Var(&noise, "noise", 0, "standard deviation of Gaussian observation noise to add to each prediction (0 disables)")
	return simCmd
}

func runSimulate(predictor npag.Predictor, loadScenarios ScenarioLoader, configPath, outPath string, noise float64) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("cmd: loading config: %w", err)
	}

	scenarios, err := loadScenarios(cfg.Paths.Data)
	if err != nil {
		return fmt.Errorf("cmd: loading dataset: %w", err)
	}

	names := paramNames(cfg)
	if cfg.Paths.Prior == "" {
		return fmt.Errorf("cmd: simulate requires paths.prior")
	}
	theta, err := loadPriorTheta(cfg.Paths.Prior, len(names))
	if err != nil {
		return fmt.Errorf("cmd: loading prior: %w", err)
	}
	nPts, _ := theta.Dims()

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("cmd: creating %s: %w", outPath, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()
	if err := w.Write([]string{"id", "point", "time", "pred"}); err != nil {
		return fmt.Errorf("cmd: writing header: %w", err)
	}

	var noiseGen *gauss.Generator
	var sigmas []float64
	if noise > 0 {
		noiseGen = gauss.NewGenerator(cfg.Seed)
	}

	ctx := context.Background()
	for _, subj := range scenarios {
		dense := subj.AddEventInterval(cfg.IDelta, cfg.TAD)
		times := dense.ObsTimes()

		for j := 0; j < nPts; j++ {
			params := theta.RowView(j)
			pred, err := predictor.Predict(ctx, params, dense)
			if err != nil {
				return fmt.Errorf("cmd: predicting subject %s point %d: %w", subj.ID, j, err)
			}
			if noiseGen != nil {
				if len(sigmas) != len(pred) {
					sigmas = make([]float64, len(pred))
				}
				for k := range sigmas {
					sigmas[k] = noise
				}
				errs := noiseGen.Sample(sigmas)
				for k := range pred {
					pred[k] += errs[k]
				}
			}
			for k, t := range times {
				row := []string{
					subj.ID,
					strconv.Itoa(j),
					strconv.FormatFloat(t, 'g', -1, 64),
					strconv.FormatFloat(pred[k], 'g', -1, 64),
				}
				if err := w.Write(row); err != nil {
					return fmt.Errorf("cmd: writing row: %w", err)
				}
			}
		}
	}
	return nil
}
