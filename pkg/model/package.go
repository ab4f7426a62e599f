package model

import (
	"fmt"

	"github.com/hashicorp/go-version"
)

// Dependency represents a dependency with a name and an optional version constraint.
type Dependency struct {
	Name              string `json:"name"`
	VersionConstraint string `json:"version_constraint,omitempty"`
}

// Matches reports whether p satisfies this dependency. An empty or unparsable
// constraint accepts any version of the named package.
func (d Dependency) Matches(p PackageVersion) bool {
	if d.Name != p.Name {
		return false
	}
	if d.VersionConstraint == "" {
		return true
	}
	constraint, err := version.NewConstraint(d.VersionConstraint)
	if err != nil {
		return true
	}
	v := p.GetVersion()
	if v == nil {
		return false
	}
	return constraint.Check(v)
}

// PackageVersion is one node of the dependency graph. An edge A→B means A depends on B.
type PackageVersion struct {
	Name         string       `json:"name"`
	Version      string       `json:"version"`
	Dependencies []Dependency `json:"dependencies,omitempty"`
}

// ID returns name@version.
func (p PackageVersion) ID() string {
	return fmt.Sprintf("%s@%s", p.Name, p.Version)
}

// GetVersion returns the parsed version or nil.
func (p PackageVersion) GetVersion() *version.Version {
	v, err := version.NewVersion(p.Version)
	if err != nil {
		return nil
	}
	return v
}

// DependsOn reports whether p declares a dependency satisfied by other.
func (p PackageVersion) DependsOn(other PackageVersion) bool {
	for _, dep := range p.Dependencies {
		if dep.Matches(other) {
			return true
		}
	}
	return false
}

// CleanupPlan lists removal units with dependents before their dependencies.
// Every unit is one strongly connected component of the dependency graph.
type CleanupPlan struct {
	Units [][]PackageVersion
}

// Empty reports whether there is nothing to remove.
func (p CleanupPlan) Empty() bool {
	return len(p.Units) == 0
}

// IDs returns the IDs of every package in removal order.
func (p CleanupPlan) IDs() []string {
	var ids []string
	for _, unit := range p.Units {
		for _, pkg := range unit {
			ids = append(ids, pkg.ID())
		}
	}
	return ids
}
