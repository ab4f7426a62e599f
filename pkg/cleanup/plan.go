//go:generate mockgen -destination=./mocks/cleanup.go . Uninstaller

// Package cleanup computes and executes dependency-ordered removal of superseded packages.
//
// Removal units are the strongly connected components of the dependency graph, so
// packages that depend on each other are removed together. Units are ordered so that a
// package is always removed before the packages it depends on.
package cleanup

import (
	"context"
	"sort"

	"github.com/cperrin88/coupler-launcher/pkg/model"
)

// Uninstaller removes one installed package version.
type Uninstaller interface {
	Uninstall(ctx context.Context, pkg model.PackageVersion) error
}

// Plan returns the removal units for installed minus keep, dependents first.
// The graph covers the candidates and every installed package reachable from them, so
// cycles through kept packages are detected. Kept packages never appear in the plan.
func Plan(installed, keep []model.PackageVersion) model.CleanupPlan {
	keepIDs := make(map[string]bool, len(keep))
	for _, k := range keep {
		keepIDs[k.ID()] = true
	}

	g := newGraph(installed)
	var candidates []string
	for _, id := range g.ids {
		if !keepIDs[id] {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return model.CleanupPlan{}
	}

	reachable := g.reachableFrom(candidates)
	components := g.strongComponents(reachable)

	var plan model.CleanupPlan
	// Components come out dependencies first; removal needs the reverse.
	for i := len(components) - 1; i >= 0; i-- {
		var unit []model.PackageVersion
		for _, id := range components[i] {
			if !keepIDs[id] {
				unit = append(unit, g.nodes[id])
			}
		}
		if len(unit) > 0 {
			plan.Units = append(plan.Units, unit)
		}
	}
	return plan
}

// graph is the dependency graph over installed package versions. An edge A→B means A
// depends on B.
type graph struct {
	ids   []string
	nodes map[string]model.PackageVersion
	edges map[string][]string
}

func newGraph(installed []model.PackageVersion) *graph {
	g := &graph{
		nodes: make(map[string]model.PackageVersion, len(installed)),
		edges: make(map[string][]string, len(installed)),
	}
	for _, p := range installed {
		if _, dup := g.nodes[p.ID()]; dup {
			continue
		}
		g.nodes[p.ID()] = p
		g.ids = append(g.ids, p.ID())
	}
	sort.Strings(g.ids)

	for _, from := range g.ids {
		for _, to := range g.ids {
			if from != to && g.nodes[from].DependsOn(g.nodes[to]) {
				g.edges[from] = append(g.edges[from], to)
			}
		}
	}
	return g
}

// reachableFrom returns the start nodes and everything they depend on, transitively.
func (g *graph) reachableFrom(start []string) map[string]bool {
	seen := make(map[string]bool, len(g.ids))
	stack := append([]string(nil), start...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		stack = append(stack, g.edges[id]...)
	}
	return seen
}

// strongComponents runs Tarjan's algorithm over the nodes in subset. A component is
// emitted only after every component it depends on. Members are sorted by ID.
func (g *graph) strongComponents(subset map[string]bool) [][]string {
	var (
		index      int
		stack      []string
		onStack    = make(map[string]bool)
		indexes    = make(map[string]int)
		lowlinks   = make(map[string]int)
		components [][]string
	)

	var connect func(v string)
	connect = func(v string) {
		indexes[v] = index
		lowlinks[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.edges[v] {
			if !subset[w] {
				continue
			}
			if _, visited := indexes[w]; !visited {
				connect(w)
				lowlinks[v] = min(lowlinks[v], lowlinks[w])
			} else if onStack[w] {
				lowlinks[v] = min(lowlinks[v], indexes[w])
			}
		}

		if lowlinks[v] != indexes[v] {
			return
		}
		var component []string
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			component = append(component, w)
			if w == v {
				break
			}
		}
		sort.Strings(component)
		components = append(components, component)
	}

	// Walking roots in reverse keeps unrelated units in ID order once the caller reverses.
	for i := len(g.ids) - 1; i >= 0; i-- {
		id := g.ids[i]
		if !subset[id] {
			continue
		}
		if _, visited := indexes[id]; !visited {
			connect(id)
		}
	}
	return components
}
