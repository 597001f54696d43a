// Package locations loads the location hierarchy a cascade runs over. The
// hierarchy is a rooted tree of locations read from a YAML file; planning
// walks it to decide which recipes exist and how they depend on each other.
package locations

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/healthmetrics/cascade/internal/ctxlog"
	"github.com/healthmetrics/cascade/internal/dag"
)

// Record is one location as stored in the hierarchy file.
type Record struct {
	ID     int    `yaml:"id"`
	Parent int    `yaml:"parent"` // 0 marks the root
	Name   string `yaml:"name"`
	Level  int    `yaml:"level"`
}

// Hierarchy is the rooted tree of locations.
type Hierarchy struct {
	graph *dag.Graph[int, Record]
	root  int
}

// Load reads a YAML hierarchy file and builds the tree. Exactly one record
// must have parent 0; every other record's parent must exist.
func Load(ctx context.Context, path string) (*Hierarchy, error) {
	logger := ctxlog.FromContext(ctx)

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading locations file: %w", err)
	}

	var records []Record
	if err := yaml.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("parsing locations file %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("locations file %s contains no locations", path)
	}

	h := &Hierarchy{graph: dag.New[int, Record]()}
	rootFound := false
	for _, rec := range records {
		if rec.ID <= 0 {
			return nil, fmt.Errorf("location id must be positive, got %d", rec.ID)
		}
		if err := h.graph.AddNode(rec.ID, rec); err != nil {
			return nil, fmt.Errorf("locations file %s: %w", path, err)
		}
		if rec.Parent == 0 {
			if rootFound {
				return nil, fmt.Errorf("locations file %s has more than one root", path)
			}
			h.root = rec.ID
			rootFound = true
		}
	}
	if !rootFound {
		return nil, fmt.Errorf("locations file %s has no root location", path)
	}

	for _, rec := range records {
		if rec.Parent == 0 {
			continue
		}
		if err := h.graph.AddEdge(rec.Parent, rec.ID); err != nil {
			return nil, fmt.Errorf("location %d: %w", rec.ID, err)
		}
	}

	if err := h.graph.DetectCycles(); err != nil {
		return nil, fmt.Errorf("locations file %s: %w", path, err)
	}

	logger.Debug("Loaded location hierarchy.", "count", h.graph.Len(), "root", h.root)
	return h, nil
}

// Root returns the top location of the hierarchy.
func (h *Hierarchy) Root() int {
	return h.root
}

// Contains reports whether the hierarchy has the given location.
func (h *Hierarchy) Contains(id int) bool {
	return h.graph.HasNode(id)
}

// Record returns the stored record for one location.
func (h *Hierarchy) Record(id int) (Record, bool) {
	return h.graph.Payload(id)
}

// Parent returns a location's parent, or false for the root.
func (h *Hierarchy) Parent(id int) (int, bool) {
	deps, err := h.graph.Dependencies(id)
	if err != nil || len(deps) == 0 {
		return 0, false
	}
	return deps[0], true
}

// Children returns a location's children in ascending ID order.
func (h *Hierarchy) Children(id int) []int {
	kids, err := h.graph.Dependents(id)
	if err != nil {
		return nil
	}
	sort.Ints(kids)
	return kids
}

// All returns every location in breadth-first order from the root, children
// in ascending ID order. The order is deterministic so that planning always
// produces the same recipe graph.
func (h *Hierarchy) All() []int {
	order := []int{h.root}
	for i := 0; i < len(order); i++ {
		order = append(order, h.Children(order[i])...)
	}
	return order
}

// DescendantsTo returns every location at the given level or deeper, in
// the same breadth-first order as All. These are the locations that
// estimate each sex separately when a run splits at that level.
func (h *Hierarchy) DescendantsTo(level int) []int {
	var out []int
	for _, id := range h.All() {
		rec, _ := h.Record(id)
		if rec.Level >= level {
			out = append(out, id)
		}
	}
	return out
}

// Drill returns the chain of locations from the root down to target,
// inclusive at both ends.
func (h *Hierarchy) Drill(target int) ([]int, error) {
	if !h.graph.HasNode(target) {
		return nil, fmt.Errorf("drill location %d not in hierarchy", target)
	}

	var chain []int
	for at := target; ; {
		chain = append(chain, at)
		parent, ok := h.Parent(at)
		if !ok {
			break
		}
		at = parent
	}

	// Reverse from target->root to root->target.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}
