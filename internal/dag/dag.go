// Package dag implements a small directed acyclic graph with typed node
// payloads. Node keys are comparable values supplied by the caller, which
// lets identity types act directly as graph keys. All operations on the
// graph are concurrency-safe.
package dag

import (
	"fmt"
	"sync"
)

// Graph is a collection of nodes and their directed edges. K is the node
// key type, P the payload type attached to every node.
type Graph[K comparable, P any] struct {
	// mutex protects the nodes map during concurrent access.
	mutex sync.RWMutex
	// nodes stores all nodes in the graph, keyed by their unique ID.
	nodes map[K]*node[K, P]
}

// node represents a single vertex in the graph. It is un-exported to
// enforce interaction with the graph via the public API, not by direct
// struct manipulation.
type node[K comparable, P any] struct {
	id      K
	payload P
	// deps holds the set of nodes that this node depends on (predecessors).
	deps map[K]*node[K, P]
	// dependents holds the set of nodes that depend on this node (successors).
	dependents map[K]*node[K, P]
}

// New creates and returns an initialized, empty Graph.
func New[K comparable, P any]() *Graph[K, P] {
	return &Graph[K, P]{
		nodes: make(map[K]*node[K, P]),
	}
}

// AddNode adds a new node with the given ID and payload. A duplicate ID is
// an error: node keys are identity, and two nodes claiming the same
// identity always indicates a malformed input graph.
func (g *Graph[K, P]) AddNode(id K, payload P) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[id]; ok {
		return fmt.Errorf("duplicate node: %v", id)
	}

	g.nodes[id] = &node[K, P]{
		id:         id,
		payload:    payload,
		deps:       make(map[K]*node[K, P]),
		dependents: make(map[K]*node[K, P]),
	}
	return nil
}

// AddEdge creates a directed edge from the `fromID` node to the `toID`
// node, meaning `toID` depends on `fromID`. An error is returned if either
// node does not exist or if the edge would create a self-reference.
func (g *Graph[K, P]) AddEdge(fromID, toID K) error {
	if fromID == toID {
		return fmt.Errorf("self-referential edge not allowed: %v -> %v", fromID, toID)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %v", fromID)
	}

	toNode, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %v", toID)
	}

	toNode.deps[fromID] = fromNode
	fromNode.dependents[toID] = toNode

	return nil
}

// HasNode reports whether a node with the given ID exists.
func (g *Graph[K, P]) HasNode(id K) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// HasEdge reports whether a directed edge fromID -> toID exists.
func (g *Graph[K, P]) HasEdge(fromID, toID K) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	fromNode, ok := g.nodes[fromID]
	if !ok {
		return false
	}
	_, ok = fromNode.dependents[toID]
	return ok
}

// Payload returns the payload attached to the given node.
func (g *Graph[K, P]) Payload(id K) (P, bool) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	n, ok := g.nodes[id]
	if !ok {
		var zero P
		return zero, false
	}
	return n.payload, true
}

// Len returns the number of nodes in the graph.
func (g *Graph[K, P]) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.nodes)
}

// Nodes returns the IDs of all nodes, in unspecified order.
func (g *Graph[K, P]) Nodes() []K {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	ids := make([]K, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	return ids
}

// Edges returns every directed edge as a [from, to] pair, in unspecified order.
func (g *Graph[K, P]) Edges() [][2]K {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	var edges [][2]K
	for id, n := range g.nodes {
		for depID := range n.dependents {
			edges = append(edges, [2]K{id, depID})
		}
	}
	return edges
}

// Dependencies returns the IDs of nodes the given node depends on.
func (g *Graph[K, P]) Dependencies(id K) ([]K, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %v", id)
	}

	deps := make([]K, 0, len(n.deps))
	for depID := range n.deps {
		deps = append(deps, depID)
	}
	return deps, nil
}

// Dependents returns the IDs of nodes that depend on the given node.
func (g *Graph[K, P]) Dependents(id K) ([]K, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %v", id)
	}

	dependents := make([]K, 0, len(n.dependents))
	for depID := range n.dependents {
		dependents = append(dependents, depID)
	}
	return dependents, nil
}

// DetectCycles checks the graph for any cycles. It returns a non-nil error
// if a cycle is found, naming the first node involved in the detected cycle.
func (g *Graph[K, P]) DetectCycles() error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	// Classic depth-first search with three sets of nodes:
	// permanent: fully visited and known not to be part of a cycle.
	// temporary: currently in the recursion stack.
	// unvisited: all other nodes.
	permanent := make(map[K]bool)
	temporary := make(map[K]bool)

	var visit func(n *node[K, P]) error
	visit = func(n *node[K, P]) error {
		if permanent[n.id] {
			return nil
		}
		if temporary[n.id] {
			// A node already in our recursion stack means a cycle.
			return fmt.Errorf("cycle detected involving node '%v'", n.id)
		}

		temporary[n.id] = true

		for _, dependent := range n.dependents {
			if err := visit(dependent); err != nil {
				return err
			}
		}

		delete(temporary, n.id)
		permanent[n.id] = true

		return nil
	}

	for _, n := range g.nodes {
		if !permanent[n.id] {
			if err := visit(n); err != nil {
				return err
			}
		}
	}

	return nil
}
