package resolver

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-version"

	"github.com/cperrin88/coupler-launcher/pkg/errors"
	"github.com/cperrin88/coupler-launcher/pkg/installed"
	"github.com/cperrin88/coupler-launcher/pkg/model"
)

// planPackages resolves the required packages and their transitive dependencies against
// the installed database. Decisions are ordered dependencies first.
func (r *Resolver) planPackages(ctx context.Context, cat model.ReleaseCatalog, required []string) ([]model.Decision, error) {
	g := &graph{
		r:           r,
		indexURL:    cat.IndexURL,
		constraints: make(map[string][]string),
		selected:    make(map[string]selection),
		deps:        make(map[string][]string),
		visiting:    make(map[string]struct{}),
		roots:       make(map[string]bool),
	}

	roots := required
	if len(roots) == 0 {
		roots = cat.Names()
	}
	for _, name := range roots {
		g.roots[name] = true
		g.addConstraint(name, r.cfg.Constraints[name])
		if err := g.resolve(ctx, name); err != nil {
			return nil, err
		}
	}

	order := g.topoOrder(roots)
	decisions := make([]model.Decision, 0, len(order))
	for _, name := range order {
		decisions = append(decisions, g.decision(name))
	}
	return decisions, nil
}

// selection is the version chosen for one package name.
type selection struct {
	desc      model.ArtifactDescriptor
	installed *installed.Package
	action    model.Action
	reason    string
}

type graph struct {
	r           *Resolver
	indexURL    string
	constraints map[string][]string // name -> constraints (AND)
	selected    map[string]selection
	deps        map[string][]string
	visiting    map[string]struct{}
	roots       map[string]bool
}

func (g *graph) addConstraint(name, c string) {
	if c == "" {
		return
	}
	g.constraints[name] = append(g.constraints[name], c)
}

// combined parses the accumulated constraints of name. Invalid constraints are ignored.
func (g *graph) combined(name string) version.Constraints {
	var out version.Constraints
	seen := make(map[string]struct{})
	for _, c := range g.constraints[name] {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		parsed, err := version.NewConstraint(c)
		if err != nil {
			continue
		}
		out = append(out, parsed...)
	}
	return out
}

func (g *graph) resolve(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// A package inside a dependency cycle is resolved once.
	if _, ok := g.visiting[name]; ok {
		return nil
	}
	g.visiting[name] = struct{}{}
	defer delete(g.visiting, name)

	sel, err := g.choose(ctx, name)
	if err != nil {
		return err
	}

	prev, had := g.selected[name]
	if had && prev.desc.VersionKey == sel.desc.VersionKey {
		return nil
	}
	g.selected[name] = sel
	g.deps[name] = nil
	for _, dep := range sel.desc.Dependencies {
		g.deps[name] = append(g.deps[name], dep.Name)
		g.addConstraint(dep.Name, dep.VersionConstraint)
		if err := g.resolve(ctx, dep.Name); err != nil {
			return err
		}
	}
	return nil
}

// choose compares the highest installed version of name with the highest remote version
// strictly greater than it. Without a usable installed version the highest remote version
// satisfying the accumulated constraints is chosen.
func (g *graph) choose(ctx context.Context, name string) (selection, error) {
	constraints := g.combined(name)
	remote, err := g.r.querier.Versions(ctx, g.indexURL, name)
	if err != nil {
		return selection{}, err
	}

	current := g.r.store.DB.Highest(name)
	var currentVersion *version.Version
	if current != nil {
		if v, err := version.NewVersion(current.Version); err == nil && constraints.Check(v) {
			currentVersion = v
		}
	}

	var best *model.ArtifactDescriptor
	for i := range remote {
		v := remote[i].GetVersion()
		if v == nil || !constraints.Check(v) {
			continue
		}
		if currentVersion != nil && !v.GreaterThan(currentVersion) {
			continue
		}
		if best == nil || v.GreaterThan(best.GetVersion()) {
			best = &remote[i]
		}
	}

	switch {
	case best != nil && current == nil:
		return selection{desc: *best, action: model.ActionInstall, reason: "new package installation"}, nil
	case best != nil:
		return selection{
			desc:      *best,
			installed: current,
			action:    model.ActionUpdate,
			reason:    fmt.Sprintf("updating from %s to %s", current.Version, best.VersionKey),
		}, nil
	case currentVersion != nil:
		return selection{
			desc:      installedDescriptor(current),
			installed: current,
			action:    model.ActionSkip,
			reason:    "already at the newest version",
		}, nil
	}

	constraint := constraints.String()
	if constraint == "" {
		constraint = "any version"
	}
	return selection{}, fmt.Errorf("%s (%s): %w", name, constraint, errors.ErrPackageNotFound)
}

func installedDescriptor(p *installed.Package) model.ArtifactDescriptor {
	return model.ArtifactDescriptor{
		Name:         p.Name,
		VersionKey:   p.Version,
		DownloadPath: p.InstalledFrom,
		Checksum:     p.Checksum,
		Dependencies: p.Dependencies,
	}
}

// topoOrder lists selected names with dependencies before their dependents.
func (g *graph) topoOrder(roots []string) []string {
	order := make([]string, 0, len(g.selected))
	seen := make(map[string]bool, len(g.selected))
	var dfs func(n string)
	dfs = func(n string) {
		if seen[n] {
			return
		}
		seen[n] = true
		for _, m := range g.deps[n] {
			dfs(m)
		}
		if _, ok := g.selected[n]; ok {
			order = append(order, n)
		}
	}
	for _, root := range roots {
		dfs(root)
	}
	return order
}

func (g *graph) decision(name string) model.Decision {
	sel := g.selected[name]
	d := model.Decision{
		Name:               name,
		Action:             sel.action,
		Reason:             sel.reason,
		Descriptor:         sel.desc,
		Expected:           sel.desc.Checksum,
		LocalPath:          g.r.store.PackageDir(name, sel.desc.VersionKey),
		InstallationReason: model.InstallationReasonAutomatic,
	}
	if g.roots[name] {
		d.InstallationReason = model.InstallationReasonManual
	}
	if sel.action == model.ActionSkip && sel.installed != nil && sel.installed.Dir != "" {
		d.LocalPath = sel.installed.Dir
	}
	return d
}
