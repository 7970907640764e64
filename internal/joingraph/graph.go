// Package joingraph implements the join-path algorithms used by the
// validator (cycle and diamond detection) and the resolver (shortest path,
// explicit path-name overrides).
package joingraph

import (
	"sort"

	"github.com/orionsql/semlayer/internal/model"
)

// Edge is one hop of the undirected join graph. Join always points at the
// DataObject.Joins entry that declared this pair; Reversed marks a hop
// traveling from the declared Target back to the declared From, which is
// the only direction that can turn a many_to_one join into a fanout risk
// (spec's "reversed many-to-one edge" into the "many" side).
type Edge struct {
	From     string
	To       string
	PathName string
	Join     *model.Join
	Reversed bool
}

// Graph is an adjacency-map projection of a SemanticModel's joins, built
// once per validation/resolution pass. edges is undirected (every declared
// join contributes both a forward and a reverse Edge) and backs find-path
// routing; directed holds only the declared forward direction and backs
// cycle detection, matching spec §4.2's "undirected and directed
// projections" of the same join set.
type Graph struct {
	edges    map[string][]Edge
	directed map[string][]Edge
	nodes    map[string]bool
}

// Build constructs a Graph from every DataObject's declared joins.
func Build(m *model.SemanticModel) *Graph {
	g := &Graph{edges: map[string][]Edge{}, directed: map[string][]Edge{}, nodes: map[string]bool{}}
	for i := range m.DataObjects {
		obj := &m.DataObjects[i]
		g.nodes[obj.Name] = true
		for j := range obj.Joins {
			join := &obj.Joins[j]
			forward := Edge{From: obj.Name, To: join.Target, PathName: join.PathName, Join: join}
			backward := Edge{From: join.Target, To: obj.Name, PathName: join.PathName, Join: join, Reversed: true}
			g.edges[obj.Name] = append(g.edges[obj.Name], forward)
			g.edges[join.Target] = append(g.edges[join.Target], backward)
			g.directed[obj.Name] = append(g.directed[obj.Name], forward)
		}
	}
	return g
}

// Neighbors returns the undirected edges from name in deterministic,
// lexicographically sorted-by-target order (ties in path length are broken
// the same way throughout the resolver, per the documented tie-break rule).
func (g *Graph) Neighbors(name string) []Edge {
	return sortedEdges(g.edges[name])
}

// directedNeighbors returns only the edges declared outbound from name,
// used by HasCycle so a plain many_to_one join is never mistaken for a
// 2-cycle with its own implicit reverse hop.
func (g *Graph) directedNeighbors(name string) []Edge {
	return sortedEdges(g.directed[name])
}

func sortedEdges(in []Edge) []Edge {
	edges := append([]Edge(nil), in...)
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].To != edges[j].To {
			return edges[i].To < edges[j].To
		}
		return edges[i].PathName < edges[j].PathName
	})
	return edges
}

// HasCycle reports whether the join graph, treated as directed, contains a
// cycle reachable from any node — used by the validator to reject
// structurally invalid models outright (spec.md §4.1 step 2).
func (g *Graph) HasCycle() (bool, []string) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[string]int{}
	var path []string

	var visit func(n string) []string
	visit = func(n string) []string {
		color[n] = gray
		path = append(path, n)
		for _, e := range g.directedNeighbors(n) {
			switch color[e.To] {
			case gray:
				cyc := append([]string(nil), path...)
				cyc = append(cyc, e.To)
				return cyc
			case white:
				if cyc := visit(e.To); cyc != nil {
					return cyc
				}
			}
		}
		path = path[:len(path)-1]
		color[n] = black
		return nil
	}

	names := make([]string, 0, len(g.nodes))
	for n := range g.nodes {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if color[n] == white {
			if cyc := visit(n); cyc != nil {
				return true, cyc
			}
		}
	}
	return false, nil
}

// Path is one shortest route discovered by FindPath.
type Path struct {
	Steps []Edge
}

// FindPath performs a breadth-first search from start to target, honoring
// an optional preferred path name. When more than one shortest path
// exists and no path name was requested, the lexicographically first
// candidate (by each hop's target name) wins, matching Neighbors' sort.
// A nil result with ok=false means no path exists; ambiguous==true means
// more than one distinct shortest path matched the request and the caller
// must raise AMBIGUOUS_JOIN.
func (g *Graph) FindPath(start, target, preferPathName string) (path *Path, ambiguous bool, ok bool) {
	if start == target {
		return &Path{}, false, true
	}

	type frame struct {
		node string
		path []Edge
	}
	visited := map[string]bool{start: true}
	queue := []frame{{node: start}}
	var shortest []Edge
	var shortestAlt [][]Edge

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if shortest != nil && len(cur.path) >= len(shortest) && len(cur.path) > 0 {
			// BFS already guarantees shortest-first discovery per level;
			// once a shortest path is found we only keep collecting
			// same-length alternates at that same level.
			if len(cur.path) > len(shortest) {
				continue
			}
		}

		for _, e := range g.Neighbors(cur.node) {
			if preferPathName != "" && e.To == target && e.PathName != "" && e.PathName != preferPathName {
				continue
			}
			nextPath := append(append([]Edge(nil), cur.path...), e)
			if e.To == target {
				if shortest == nil {
					shortest = nextPath
					shortestAlt = [][]Edge{nextPath}
				} else if len(nextPath) == len(shortest) {
					shortestAlt = append(shortestAlt, nextPath)
				}
				continue
			}
			if visited[e.To] {
				continue
			}
			visited[e.To] = true
			queue = append(queue, frame{node: e.To, path: nextPath})
		}
	}

	if shortest == nil {
		return nil, false, false
	}
	if preferPathName == "" && len(shortestAlt) > 1 {
		distinctTargetPaths := map[string]bool{}
		for _, alt := range shortestAlt {
			distinctTargetPaths[alt[len(alt)-1].PathName] = true
		}
		if len(distinctTargetPaths) > 1 {
			return &Path{Steps: shortest}, true, true
		}
	}
	return &Path{Steps: shortest}, false, true
}
