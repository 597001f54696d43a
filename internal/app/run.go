package app

import (
	"context"
	"fmt"
	"sort"

	"github.com/healthmetrics/cascade/internal/ctxlog"
	"github.com/healthmetrics/cascade/internal/execctx"
	"github.com/healthmetrics/cascade/internal/executor"
	"github.com/healthmetrics/cascade/internal/jobgraph"
	"github.com/healthmetrics/cascade/internal/locations"
	"github.com/healthmetrics/cascade/internal/plan"
	"github.com/healthmetrics/cascade/internal/settings"
)

// Run loads settings and locations, plans the recipes, compiles the job
// graph, narrows it to any requested selection, and then either prints it
// or hands it to the executor.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	doc, err := settings.Load(ctx, a.config.SettingsPath)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	a.logger.Debug("Settings loaded.", "title", doc.Model.Title)

	hier, err := locations.Load(ctx, doc.Model.LocationsFile)
	if err != nil {
		return fmt.Errorf("failed to load location hierarchy: %w", err)
	}

	recipeGraph, err := plan.BuildRecipeGraph(ctx, doc, hier)
	if err != nil {
		return fmt.Errorf("failed to plan recipes: %w", err)
	}
	a.logger.Debug("Recipe graph planned.", "recipe_count", recipeGraph.Len())

	graph, err := jobgraph.Compile(ctx, recipeGraph)
	if err != nil {
		return fmt.Errorf("failed to compile job graph: %w", err)
	}
	a.logger.Info("Job graph compiled.", "job_count", graph.Len())

	var ec *execctx.Context
	if a.config.RunID != nil {
		ec = execctx.Attach(a.config.BaseDir, *a.config.RunID)
		a.logger.Info("Attached to existing run.", "run_id", ec.RunID.String())
	} else {
		ec = execctx.New(a.config.BaseDir)
	}
	query := a.query()
	if query.Empty() {
		graph = graph.WithContext(ec)
	} else {
		graph = graph.Select(query, ec)
		a.logger.Info("Selected sub-graph.", "job_count", graph.Len())
		if graph.Len() == 0 {
			return fmt.Errorf("selection matched no jobs")
		}
	}

	if a.config.PrintGraph {
		a.printGraph(graph)
		return nil
	}

	opts := []executor.Option{executor.WithWorkers(a.config.Workers)}
	if a.config.MockRun {
		opts = append(opts, executor.WithMockRun())
	}
	exec, err := executor.New(graph, opts...)
	if err != nil {
		return err
	}

	a.logger.Info("Starting execution.", "run_id", ec.RunID.String(), "mock", a.config.MockRun)
	if err := exec.Run(ctx); err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	a.logger.Info("Execution finished.")
	return nil
}

// query assembles the sub-graph selection from the configured selectors.
func (a *App) query() jobgraph.Query {
	return jobgraph.Query{
		LocationID: a.config.LocationID,
		Recipe:     a.config.Recipe,
		Sex:        a.config.Sex,
		Name:       a.config.Name,
	}
}

// printGraph writes a deterministic listing of the graph's jobs and edges.
func (a *App) printGraph(graph *jobgraph.JobGraph) {
	ids := graph.Jobs()
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	if root, ok := graph.Root(); ok {
		fmt.Fprintf(a.outW, "root: %s\n", root)
	}
	for _, id := range ids {
		j, _ := graph.Job(id)
		fmt.Fprintf(a.outW, "job %s multiplicity=%d memory_gb=%g threads=%d\n",
			id, j.Multiplicity(), j.MemoryGB(), j.Threads())
	}

	edges := graph.Edges()
	sort.Slice(edges, func(i, j int) bool {
		if edges[i][0].String() != edges[j][0].String() {
			return edges[i][0].String() < edges[j][0].String()
		}
		return edges[i][1].String() < edges[j][1].String()
	})
	for _, edge := range edges {
		fmt.Fprintf(a.outW, "edge %s -> %s\n", edge[0], edge[1])
	}
}
