package jobgraph

import (
	"context"
	"fmt"

	"github.com/healthmetrics/cascade/internal/ctxlog"
	"github.com/healthmetrics/cascade/internal/dag"
	"github.com/healthmetrics/cascade/internal/execctx"
	"github.com/healthmetrics/cascade/internal/identity"
	"github.com/healthmetrics/cascade/internal/job"
)

// JobGraph is the compiled, executable dependency graph. Nodes are keyed
// by JobID and carry the Job itself; edges mean "must complete before".
// After compilation the graph is only ever read, so any number of
// concurrent readers are safe.
type JobGraph struct {
	graph   *dag.Graph[identity.JobID, job.Job]
	root    identity.JobID
	hasRoot bool
	// ec is run-time metadata attached when a sub-graph is selected for
	// execution. The graph itself never inspects it.
	ec *execctx.Context
}

// boundary records a recipe's external dependency surface: other recipes
// only ever depend on its first and last job, never on its internals.
type boundary struct {
	input  identity.JobID
	output identity.JobID
}

// Compile transforms a recipe graph into the job graph. Each recipe's jobs
// are chained in their declared order; for every recipe-level edge, one
// job-level edge runs from the source recipe's last job to the destination
// recipe's first job. The compiled graph's root is the root recipe's first
// job.
func Compile(ctx context.Context, rg *RecipeGraph) (*JobGraph, error) {
	logger := ctxlog.FromContext(ctx)

	// Reject any empty recipe before building anything, so a single bad
	// recipe aborts compilation rather than yielding a partial graph.
	for _, recipeID := range rg.Recipes() {
		jobs, _ := rg.JobList(recipeID)
		if len(jobs) < 1 {
			return nil, &MalformedRecipeError{Recipe: recipeID}
		}
	}

	jg := &JobGraph{graph: dag.New[identity.JobID, job.Job]()}
	boundaries := make(map[identity.RecipeID]boundary)
	rootRecipe, hasRootRecipe := rg.Root()

	for _, recipeID := range rg.Recipes() {
		jobs, _ := rg.JobList(recipeID)

		jobIDs := make([]identity.JobID, len(jobs))
		for i, j := range jobs {
			jobIDs[i] = j.Identifier()
			if err := jg.graph.AddNode(jobIDs[i], j); err != nil {
				return nil, fmt.Errorf("recipe %s: %w", recipeID, err)
			}
		}

		// Chain the recipe's jobs in declared order. A single-job recipe
		// has no consecutive pairs and therefore no internal edges.
		for i := 0; i+1 < len(jobIDs); i++ {
			if err := jg.graph.AddEdge(jobIDs[i], jobIDs[i+1]); err != nil {
				return nil, fmt.Errorf("recipe %s: %w", recipeID, err)
			}
		}

		boundaries[recipeID] = boundary{input: jobIDs[0], output: jobIDs[len(jobIDs)-1]}

		if hasRootRecipe && recipeID == rootRecipe {
			jg.root = jobIDs[0]
			jg.hasRoot = true
		}
	}

	if !jg.hasRoot {
		return nil, &CompileError{Reason: "could not find a root node for the graph"}
	}

	for _, edge := range rg.Edges() {
		from, to := boundaries[edge[0]], boundaries[edge[1]]
		if err := jg.graph.AddEdge(from.output, to.input); err != nil {
			return nil, fmt.Errorf("recipe edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}

	logger.Debug("Compiled job graph.",
		"recipes", rg.Len(), "jobs", jg.graph.Len(), "root", jg.root.String())
	return jg, nil
}

// Root returns the job the whole run starts from.
func (g *JobGraph) Root() (identity.JobID, bool) {
	return g.root, g.hasRoot
}

// Context returns the execution context attached to this graph, if any.
func (g *JobGraph) Context() *execctx.Context {
	return g.ec
}

// WithContext returns a shallow copy of the graph carrying ec as run-time
// metadata. The node and edge structure is shared, which is safe because
// compiled graphs are never mutated.
func (g *JobGraph) WithContext(ec *execctx.Context) *JobGraph {
	return &JobGraph{graph: g.graph, root: g.root, hasRoot: g.hasRoot, ec: ec}
}

// Job returns the job stored under the given identifier.
func (g *JobGraph) Job(id identity.JobID) (job.Job, bool) {
	return g.graph.Payload(id)
}

// Jobs returns every job identifier, in unspecified order.
func (g *JobGraph) Jobs() []identity.JobID {
	return g.graph.Nodes()
}

// Edges returns every "must complete before" pair, in unspecified order.
func (g *JobGraph) Edges() [][2]identity.JobID {
	return g.graph.Edges()
}

// HasEdge reports whether from must complete before to, directly.
func (g *JobGraph) HasEdge(from, to identity.JobID) bool {
	return g.graph.HasEdge(from, to)
}

// Dependencies returns the direct predecessors of a job.
func (g *JobGraph) Dependencies(id identity.JobID) ([]identity.JobID, error) {
	return g.graph.Dependencies(id)
}

// Dependents returns the direct successors of a job.
func (g *JobGraph) Dependents(id identity.JobID) ([]identity.JobID, error) {
	return g.graph.Dependents(id)
}

// Len returns the number of jobs in the graph.
func (g *JobGraph) Len() int {
	return g.graph.Len()
}
