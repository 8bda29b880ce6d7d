package app

import (
	"context"
	"fmt"
	"slices"

	"github.com/vk/mechnet/internal/comp"
	"github.com/vk/mechnet/internal/ctxlog"
	"github.com/vk/mechnet/internal/graph"
)

// Run executes the main application logic: build the composition from the
// loaded model, evaluate it over the configured trials, and print every
// trial's terminal-node values.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	c, err := comp.Build(ctx, a.model)
	if err != nil {
		return fmt.Errorf("failed to build composition: %w", err)
	}
	origins := len(c.NodesByRole(graph.RoleOrigin))
	a.logger.Debug("Composition built.",
		"composition", c.Name(), "sets", len(c.ConsiderationQueue()), "origins", origins)

	trials := a.model.Run.Trials
	if a.config.Trials > 0 {
		trials = a.config.Trials
	}
	if trials <= 0 {
		trials = 1
	}

	inputs := make(comp.Inputs, len(a.model.Inputs))
	for name, series := range a.model.Inputs {
		inputs[name] = series
	}

	a.logger.Info("Starting evaluation.", "composition", c.Name(), "trials", trials)
	results, err := c.Run(ctx, inputs, comp.RunOptions{
		Trials:  trials,
		Context: a.config.Context,
	})
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}
	a.logger.Info("Evaluation finished.", "trials_completed", len(results))

	a.printResults(results)
	return nil
}

// printResults writes one line per trial per terminal node to the app's
// output writer.
func (a *App) printResults(results comp.Results) {
	for t, result := range results {
		names := make([]string, 0, len(result))
		for name := range result {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			fmt.Fprintf(a.outW, "trial %d: %s = %v\n", t, name, result[name])
		}
	}
}
