// Package jobgraph turns a graph of recipes into the executable graph of
// jobs. Recipes order work coarsely, per location and sex; the compiled
// job graph orders every individual job, which is what an execution engine
// consumes.
package jobgraph

import (
	"fmt"

	"github.com/healthmetrics/cascade/internal/dag"
	"github.com/healthmetrics/cascade/internal/identity"
	"github.com/healthmetrics/cascade/internal/job"
)

// RecipeGraph is a DAG of recipes. Each node carries the ordered list of
// jobs to run for that recipe; edges express recipe-level ordering. Exactly
// one recipe is designated root before compilation.
type RecipeGraph struct {
	graph   *dag.Graph[identity.RecipeID, []job.Job]
	root    identity.RecipeID
	hasRoot bool
}

// NewRecipeGraph creates an empty recipe graph.
func NewRecipeGraph() *RecipeGraph {
	return &RecipeGraph{graph: dag.New[identity.RecipeID, []job.Job]()}
}

// AddRecipe adds a recipe node with its ordered job list. The list is kept
// as given; the compiler chains the jobs in exactly this order.
func (g *RecipeGraph) AddRecipe(id identity.RecipeID, jobs []job.Job) error {
	return g.graph.AddNode(id, jobs)
}

// AddDependency records that every job of `from` must complete before any
// job of `to` starts.
func (g *RecipeGraph) AddDependency(from, to identity.RecipeID) error {
	return g.graph.AddEdge(from, to)
}

// SetRoot designates the recipe the whole run starts from. The recipe must
// already be in the graph.
func (g *RecipeGraph) SetRoot(id identity.RecipeID) error {
	if !g.graph.HasNode(id) {
		return fmt.Errorf("root recipe not in graph: %s", id)
	}
	g.root = id
	g.hasRoot = true
	return nil
}

// Root returns the designated root recipe, if one was set.
func (g *RecipeGraph) Root() (identity.RecipeID, bool) {
	return g.root, g.hasRoot
}

// Recipes returns all recipe IDs, in unspecified order.
func (g *RecipeGraph) Recipes() []identity.RecipeID {
	return g.graph.Nodes()
}

// JobList returns the ordered job list of one recipe.
func (g *RecipeGraph) JobList(id identity.RecipeID) ([]job.Job, bool) {
	return g.graph.Payload(id)
}

// Edges returns every recipe-level dependency as a [from, to] pair.
func (g *RecipeGraph) Edges() [][2]identity.RecipeID {
	return g.graph.Edges()
}

// Len returns the number of recipes.
func (g *RecipeGraph) Len() int {
	return g.graph.Len()
}

// DetectCycles reports an error if recipe dependencies form a cycle.
func (g *RecipeGraph) DetectCycles() error {
	return g.graph.DetectCycles()
}
