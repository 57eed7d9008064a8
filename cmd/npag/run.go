package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/npag-go/npag"
	"github.com/npag-go/npag/cache"
	"github.com/npag-go/npag/config"
	"github.com/npag-go/npag/driver"
	"github.com/npag-go/npag/grid"
	"github.com/npag-go/npag/logging"
	"github.com/npag-go/npag/progress"
	"github.com/npag-go/npag/scenario"
	"github.com/npag-go/npag/sigma"
	"github.com/npag-go/npag/sobol"
)

func newRunCommand(predictor npag.Predictor, loadScenarios ScenarioLoader, configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "fit an NPAG model to a dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFit(predictor, loadScenarios, *configPath)
		},
	}
}

// paramNames returns the random-effect parameter names in a stable order:
// alphabetical by name. Theta's column order, and therefore the parameter
// vector index a Predictor receives, follows this same order.
func paramNames(cfg *config.Settings) []string {
	names := make([]string, 0, len(cfg.Random))
	for name := range cfg.Random {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func boundsFrom(cfg *config.Settings, names []string) []grid.Range {
	bounds := make([]grid.Range, len(names))
	for i, name := range names {
		b := cfg.Random[name]
		bounds[i] = grid.Range{Low: b[0], High: b[1]}
	}
	return bounds
}

// excludeScenarios drops every subject whose ID appears in exclude,
// implementing config.exclude's documented effect.
func excludeScenarios(scenarios []*scenario.Scenario, exclude []string) []*scenario.Scenario {
	if len(exclude) == 0 {
		return scenarios
	}
	drop := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		drop[id] = true
	}

	kept := make([]*scenario.Scenario, 0, len(scenarios))
	for _, s := range scenarios {
		if !drop[s.ID] {
			kept = append(kept, s)
		}
	}
	return kept
}

func runFit(predictor npag.Predictor, loadScenarios ScenarioLoader, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("cmd: loading config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Paths.Log)
	if err != nil {
		return fmt.Errorf("cmd: setting up logging: %w", err)
	}
	defer func() { _ = logger.Desugar().Sync() }()

	scenarios, err := loadScenarios(cfg.Paths.Data)
	if err != nil {
		logger.Errorw("failed to load dataset", "path", cfg.Paths.Data, "error", err)
		return fmt.Errorf("cmd: loading dataset: %w", err)
	}
	scenarios = excludeScenarios(scenarios, cfg.Exclude)

	names := paramNames(cfg)
	bounds := boundsFrom(cfg, names)

	var theta0 *mat.Dense
	if cfg.Paths.Prior != "" {
		theta0, err = loadPriorTheta(cfg.Paths.Prior, len(names))
		if err != nil {
			return fmt.Errorf("cmd: loading prior: %w", err)
		}
	} else {
		theta0 = sobol.InitialGrid(cfg.Init, bounds, cfg.Seed)
	}

	var predCache cache.Cache
	if cfg.Cache {
		lru, err := cache.NewLRU(100_000)
		if err != nil {
			return fmt.Errorf("cmd: building prediction cache: %w", err)
		}
		predCache = lru
	}

	hub := progress.NewHub()
	var cycleLog *progress.CycleLogger
	if cfg.Output {
		dir := filepath.Dir(cfg.Paths.Log)
		if dir == "" || dir == "." {
			dir = "."
		}
		cycleLog, err = progress.NewCycleLogger(filepath.Join(dir, "cycles.csv"))
		if err != nil {
			return fmt.Errorf("cmd: opening cycle log: %w", err)
		}
	}

	model := sigma.Model{Poly: cfg.Error.Poly, Class: cfg.Error.Class, Gamma: cfg.Error.Value}

	initRows, _ := theta0.Dims()
	logger.Infow("starting NPAG run", "subjects", len(scenarios), "initPoints", initRows, "cycles", cfg.Cycles)

	res, err := driver.Fit(context.Background(), driver.Options{
		Predictor: predictor,
		Scenarios: scenarios,
		Theta0:    theta0,
		Bounds:    bounds,
		Model:     model,
		MaxCycles: cfg.Cycles,
		Cache:     predCache,
		Hub:       hub,
		CycleLog:  cycleLog,
		Logger:    logger,
	})
	if err != nil {
		logger.Errorw("fit failed", "error", err)
		return fmt.Errorf("cmd: fit: %w", err)
	}

	rows, _ := res.Theta.Dims()
	logger.Infow("fit finished",
		"cycles", res.Cycles,
		"converged", res.Converged,
		"supportPoints", rows,
		"negTwoLL", res.NegTwoLL,
	)
	return nil
}
