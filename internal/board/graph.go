package board

import (
	"fmt"
	"sort"
)

// Graph is a read-only view of the map: regions and the adjacency list.
// It is safe for concurrent use.
type Graph struct {
	order     []string
	index     map[string]int
	region    map[string]string
	neighbors map[string][]string
}

var defaultGraph = mustBuild(cityDefs, adjacency)

// Default returns the shared graph of the standard map.
func Default() *Graph {
	return defaultGraph
}

// NewGraph builds a graph from city definitions and an adjacency list.
func NewGraph(defs []CityDef, adj map[string][]string) (*Graph, error) {
	g := &Graph{
		order:     make([]string, 0, len(defs)),
		index:     make(map[string]int, len(defs)),
		region:    make(map[string]string, len(defs)),
		neighbors: make(map[string][]string, len(defs)),
	}
	for i, def := range defs {
		if _, dup := g.index[def.Name]; dup {
			return nil, fmt.Errorf("duplicate city %q", def.Name)
		}
		g.order = append(g.order, def.Name)
		g.index[def.Name] = i
		g.region[def.Name] = def.Region
		g.neighbors[def.Name] = append([]string(nil), adj[def.Name]...)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func mustBuild(defs []CityDef, adj map[string][]string) *Graph {
	g, err := NewGraph(defs, adj)
	if err != nil {
		panic(fmt.Sprintf("board: invalid static map: %v", err))
	}
	return g
}

// Validate checks that every neighbor is a known city, that adjacency is
// symmetric and that every city can be reached from every other.
func (g *Graph) Validate() error {
	for _, city := range g.order {
		for _, n := range g.neighbors[city] {
			if _, ok := g.index[n]; !ok {
				return fmt.Errorf("city %q lists unknown neighbor %q", city, n)
			}
			if n == city {
				return fmt.Errorf("city %q lists itself as neighbor", city)
			}
			if !g.IsNeighbor(n, city) {
				return fmt.Errorf("adjacency not symmetric: %q -> %q", city, n)
			}
		}
	}
	if len(g.order) > 0 {
		for _, city := range g.order[1:] {
			if g.Distance(g.order[0], city) < 0 {
				return fmt.Errorf("city %q is unreachable from %q", city, g.order[0])
			}
		}
	}
	return nil
}

// Cities returns every city name in canonical order.
func (g *Graph) Cities() []string {
	return append([]string(nil), g.order...)
}

// Has reports whether the city exists on the map.
func (g *Graph) Has(city string) bool {
	_, ok := g.index[city]
	return ok
}

// Index returns the canonical position of the city, or -1.
func (g *Graph) Index(city string) int {
	if i, ok := g.index[city]; ok {
		return i
	}
	return -1
}

// Region returns the region a city belongs to.
func (g *Graph) Region(city string) string {
	return g.region[city]
}

// Neighbors returns the adjacent cities in adjacency-list order.
func (g *Graph) Neighbors(city string) []string {
	return append([]string(nil), g.neighbors[city]...)
}

// IsNeighbor reports whether b is adjacent to a.
func (g *Graph) IsNeighbor(a, b string) bool {
	for _, n := range g.neighbors[a] {
		if n == b {
			return true
		}
	}
	return false
}

// ShortestStepToward runs a breadth-first search from start and returns the
// first step of a shortest path to any of targets. The avoid city, when not
// empty, is treated as already visited. It returns false when start is itself
// a target or no path exists.
func (g *Graph) ShortestStepToward(start string, targets []string, avoid string) (string, bool) {
	goal := make(map[string]bool, len(targets))
	for _, t := range targets {
		goal[t] = true
	}
	if goal[start] {
		return "", false
	}

	type node struct {
		city  string
		first string
	}

	visited := map[string]bool{start: true}
	if avoid != "" {
		visited[avoid] = true
	}
	queue := []node{{city: start}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if goal[cur.city] {
			return cur.first, true
		}

		for _, n := range g.neighbors[cur.city] {
			if visited[n] {
				continue
			}
			visited[n] = true
			first := cur.first
			if first == "" {
				first = n
			}
			queue = append(queue, node{city: n, first: first})
		}
	}
	return "", false
}

// StepToward prefers a route that does not pass through avoid and falls back
// to an unrestricted search.
func (g *Graph) StepToward(start string, targets []string, avoid string) (string, bool) {
	if avoid != "" {
		if step, ok := g.ShortestStepToward(start, targets, avoid); ok {
			return step, true
		}
	}
	return g.ShortestStepToward(start, targets, "")
}

// Distance returns the number of moves between two cities, or -1 when they
// are disconnected.
func (g *Graph) Distance(from, to string) int {
	if from == to {
		return 0
	}
	dist := map[string]int{from: 0}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range g.neighbors[cur] {
			if _, seen := dist[n]; seen {
				continue
			}
			dist[n] = dist[cur] + 1
			if n == to {
				return dist[n]
			}
			queue = append(queue, n)
		}
	}
	return -1
}

// SortCanonical orders city names by map position; names not on the map go
// last, alphabetically.
func (g *Graph) SortCanonical(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		a, b := g.Index(names[i]), g.Index(names[j])
		switch {
		case a >= 0 && b >= 0:
			return a < b
		case a >= 0:
			return true
		case b >= 0:
			return false
		default:
			return names[i] < names[j]
		}
	})
}
