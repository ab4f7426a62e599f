// Package registry reads JSON package indexes and exposes them as a catalog source
// that also answers per-package version queries.
package registry

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/go-version"

	"github.com/cperrin88/coupler-launcher/pkg/errors"
	"github.com/cperrin88/coupler-launcher/pkg/model"
	"github.com/cperrin88/coupler-launcher/pkg/platform"
)

// FormatVersion is written by NewIndex.
const FormatVersion = "1.0"

// Index is the document served at a registry URL.
type Index struct {
	FormatVersion string     `json:"format_version"`
	LastUpdate    time.Time  `json:"last_update"`
	Packages      []*Package `json:"packages"`
}

// Package is one published version of a package.
type Package struct {
	Name         string             `json:"name"`
	Version      string             `json:"version"`
	Description  string             `json:"description,omitempty"`
	URL          string             `json:"url"`
	Checksum     string             `json:"checksum,omitempty"`
	Size         int64              `json:"size,omitempty"`
	OS           string             `json:"os,omitempty"`
	Arch         string             `json:"arch,omitempty"`
	Dependencies []model.Dependency `json:"dependencies,omitempty"`
}

// GetVersion returns the parsed version of this package.
func (p *Package) GetVersion() *version.Version {
	v, err := version.NewVersion(p.Version)
	if err != nil {
		return nil
	}
	return v
}

// MatchPlatform checks if this package can be installed on target.
func (p *Package) MatchPlatform(target platform.Platform) bool {
	return platform.Platform{OS: p.OS, Arch: p.Arch}.Matches(target)
}

// NewIndex creates a new index with the current timestamp.
func NewIndex() *Index {
	return &Index{FormatVersion: FormatVersion, LastUpdate: time.Now()}
}

// ParseIndex parses an index from JSON data.
func ParseIndex(data []byte) (*Index, error) {
	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, errors.Wrap(err, "failed to parse index")
	}
	if index.FormatVersion == "" {
		return nil, fmt.Errorf("missing format version in index")
	}
	return &index, nil
}

// ToJSON converts the index to JSON bytes.
func (idx *Index) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal index to JSON")
	}
	return data, nil
}

// FindPackages returns every version of name that can run on target, oldest first.
// Versions that do not parse are dropped.
func (idx *Index) FindPackages(name string, target platform.Platform) []*Package {
	var packages []*Package
	for _, pkg := range idx.Packages {
		if pkg.Name != name || !pkg.MatchPlatform(target) || pkg.GetVersion() == nil {
			continue
		}
		packages = append(packages, pkg)
	}
	sort.SliceStable(packages, func(i, j int) bool {
		return packages[i].GetVersion().LessThan(packages[j].GetVersion())
	})
	return packages
}

// AddPackage adds a package version, replacing an existing entry with the same name, version and platform.
func (idx *Index) AddPackage(pkg *Package) {
	for i, existing := range idx.Packages {
		if existing.Name == pkg.Name && existing.Version == pkg.Version &&
			existing.OS == pkg.OS && existing.Arch == pkg.Arch {
			idx.Packages[i] = pkg
			idx.LastUpdate = time.Now()
			return
		}
	}
	idx.Packages = append(idx.Packages, pkg)
	idx.LastUpdate = time.Now()
}
