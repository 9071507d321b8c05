// SPDX-License-Identifier: MPL-2.0

// Package dag orders the nodes of a directed graph topologically. It is used
// to order the roles of one playbook phase by their "after" relations.
package dag

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrCycle is the sentinel error wrapped by CycleError.
var ErrCycle = errors.New("dependency cycle")

type (
	// CycleError indicates that the graph contains a cycle, preventing topological ordering.
	CycleError struct {
		// Cycle is one cycle of the graph, closed: the first node is repeated
		// at the end ("a -> b -> a").
		Cycle []string
	}

	// Graph is a directed graph for topological sorting.
	// Nodes are identified by string keys. Edges represent "must run before" relationships:
	// an edge from A to B means A must complete before B starts.
	Graph struct {
		// adjacency maps each node to its outgoing neighbors (nodes that depend on it).
		adjacency map[string][]string
		nodeSet   map[string]bool
	}
)

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Cycle, " -> "))
}

// Unwrap returns ErrCycle for errors.Is compatibility.
func (e *CycleError) Unwrap() error { return ErrCycle }

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		adjacency: make(map[string][]string),
		nodeSet:   make(map[string]bool),
	}
}

// AddNode adds a node to the graph. If the node already exists, this is a no-op.
func (g *Graph) AddNode(name string) {
	g.nodeSet[name] = true
}

// AddEdge adds a directed edge from -> to, meaning "from" must run before "to".
// Both nodes are implicitly added if they don't exist. Repeated edges are
// stored once.
func (g *Graph) AddEdge(from, to string) {
	g.AddNode(from)
	g.AddNode(to)
	if !slices.Contains(g.adjacency[from], to) {
		g.adjacency[from] = append(g.adjacency[from], to)
	}
}

// Nodes returns every node in lexical order.
func (g *Graph) Nodes() []string {
	nodes := make([]string, 0, len(g.nodeSet))
	for n := range g.nodeSet {
		nodes = append(nodes, n)
	}
	slices.Sort(nodes)
	return nodes
}

// TopologicalSort returns a valid execution order using Kahn's algorithm.
// Returns CycleError if the graph contains a cycle.
// Among the nodes that are ready at the same time the lexically smallest is
// taken first, so the order depends only on the graph, never on insertion.
func (g *Graph) TopologicalSort() ([]string, error) {
	nodes := g.Nodes()
	if len(nodes) == 0 {
		return nil, nil
	}

	inDegree := make(map[string]int, len(nodes))
	for _, neighbors := range g.adjacency {
		for _, neighbor := range neighbors {
			inDegree[neighbor]++
		}
	}

	var ready []string
	for _, node := range nodes {
		if inDegree[node] == 0 {
			ready = append(ready, node)
		}
	}

	result := make([]string, 0, len(nodes))
	for len(ready) > 0 {
		node := ready[0]
		ready = ready[1:]
		result = append(result, node)

		for _, neighbor := range g.adjacency[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				i, _ := slices.BinarySearch(ready, neighbor)
				ready = slices.Insert(ready, i, neighbor)
			}
		}
	}

	if len(result) != len(nodes) {
		return nil, &CycleError{Cycle: g.findCycle(inDegree)}
	}
	return result, nil
}

// findCycle returns one cycle among the nodes Kahn's algorithm could not
// release. Each of them lies on a cycle or downstream of one, so a depth-first
// walk restricted to them finds a back edge.
func (g *Graph) findCycle(inDegree map[string]int) []string {
	const (
		unvisited = iota
		onPath
		done
	)
	stuck := func(n string) bool { return inDegree[n] > 0 }
	state := map[string]int{}
	var path []string

	var visit func(n string) []string
	visit = func(n string) []string {
		state[n] = onPath
		path = append(path, n)
		next := slices.Clone(g.adjacency[n])
		slices.Sort(next)
		for _, m := range next {
			if !stuck(m) {
				continue
			}
			switch state[m] {
			case onPath:
				i := slices.Index(path, m)
				return append(slices.Clone(path[i:]), m)
			case unvisited:
				if c := visit(m); c != nil {
					return c
				}
			}
		}
		state[n] = done
		path = path[:len(path)-1]
		return nil
	}

	for _, n := range g.Nodes() {
		if stuck(n) && state[n] == unvisited {
			if c := visit(n); c != nil {
				return c
			}
		}
	}
	return nil
}
