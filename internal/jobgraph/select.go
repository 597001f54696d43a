package jobgraph

import (
	"github.com/healthmetrics/cascade/internal/dag"
	"github.com/healthmetrics/cascade/internal/execctx"
	"github.com/healthmetrics/cascade/internal/identity"
	"github.com/healthmetrics/cascade/internal/job"
)

func newJobDag() *dag.Graph[identity.JobID, job.Job] {
	return dag.New[identity.JobID, job.Job]()
}

// Query selects jobs by identifier attributes. Nil fields impose no
// constraint; set fields must all match. An empty Query selects every job.
type Query struct {
	LocationID *int
	Recipe     *string
	Sex        *identity.Sex
	Name       *string
}

// Empty reports whether the query constrains nothing.
func (q Query) Empty() bool {
	return q.LocationID == nil && q.Recipe == nil && q.Sex == nil && q.Name == nil
}

// Matches reports whether the job identifier satisfies every set predicate.
func (q Query) Matches(id identity.JobID) bool {
	if q.LocationID != nil && id.LocationID != *q.LocationID {
		return false
	}
	if q.Recipe != nil && id.Recipe != *q.Recipe {
		return false
	}
	if q.Sex != nil && id.Sex != *q.Sex {
		return false
	}
	if q.Name != nil && id.Name != *q.Name {
		return false
	}
	return true
}

// Select computes the induced subgraph over the jobs matching q, attaching
// ec as the new graph's execution context. The receiver is never mutated.
// Edges survive only when both endpoints are selected; if selection drops
// a dependency edge, the caller is responsible for knowing the
// predecessor's outputs already exist. The root carries over only when the
// root job itself is selected.
func (g *JobGraph) Select(q Query, ec *execctx.Context) *JobGraph {
	sub := &JobGraph{graph: newJobDag(), ec: ec}

	for _, id := range g.graph.Nodes() {
		if !q.Matches(id) {
			continue
		}
		j, _ := g.graph.Payload(id)
		// The parent graph already guarantees unique identifiers.
		_ = sub.graph.AddNode(id, j)
	}

	for _, edge := range g.graph.Edges() {
		if sub.graph.HasNode(edge[0]) && sub.graph.HasNode(edge[1]) {
			_ = sub.graph.AddEdge(edge[0], edge[1])
		}
	}

	if g.hasRoot && sub.graph.HasNode(g.root) {
		sub.root = g.root
		sub.hasRoot = true
	}

	return sub
}
