// Package model provides the data structures shared by the stages of an update cycle:
// catalog descriptors, installed artifacts, package versions and cleanup plans.
package model

import (
	"sort"
	"strings"

	"github.com/hashicorp/go-version"

	"github.com/cperrin88/coupler-launcher/pkg/platform"
)

// ArtifactDescriptor is the remote description of the newest build of one logical artifact.
type ArtifactDescriptor struct {
	// Name is the logical name with the build suffix stripped.
	Name string `json:"name"`
	// Basename is the remote filename, used verbatim as the local filename.
	Basename string `json:"basename"`
	// VersionKey is the marker used to pick the newest build (date or version).
	VersionKey string `json:"version_key"`
	// DownloadPath is the absolute URL of the artifact.
	DownloadPath string `json:"download_path"`
	// Checksum is optional.
	Checksum     string       `json:"checksum,omitempty"`
	OS           string       `json:"os,omitempty"`
	Arch         string       `json:"arch,omitempty"`
	Dependencies []Dependency `json:"dependencies,omitempty"`
}

// ShortName is the last dash separated segment of the logical name
// ("coupler-dependencies" → "dependencies").
func (a ArtifactDescriptor) ShortName() string {
	if i := strings.LastIndex(a.Name, "-"); i >= 0 && i < len(a.Name)-1 {
		return a.Name[i+1:]
	}
	return a.Name
}

// GetVersion parses VersionKey as a version. It returns nil when the key is not one.
func (a ArtifactDescriptor) GetVersion() *version.Version {
	v, err := version.NewVersion(a.VersionKey)
	if err != nil {
		return nil
	}
	return v
}

// MatchPlatform checks if this artifact can run on p.
func (a ArtifactDescriptor) MatchPlatform(p platform.Platform) bool {
	return platform.Platform{OS: a.OS, Arch: a.Arch}.Matches(p)
}

// PackageVersion returns the dependency graph node for this artifact.
func (a ArtifactDescriptor) PackageVersion() PackageVersion {
	return PackageVersion{Name: a.Name, Version: a.VersionKey, Dependencies: a.Dependencies}
}

// ReleaseCatalog maps logical names onto their newest descriptor.
type ReleaseCatalog struct {
	IndexURL  string
	Artifacts map[string]ArtifactDescriptor
}

// NewReleaseCatalog creates an empty catalog for indexURL.
func NewReleaseCatalog(indexURL string) ReleaseCatalog {
	return ReleaseCatalog{IndexURL: indexURL, Artifacts: make(map[string]ArtifactDescriptor)}
}

// Get returns the descriptor for name.
func (c ReleaseCatalog) Get(name string) (ArtifactDescriptor, bool) {
	d, ok := c.Artifacts[name]
	return d, ok
}

// Len returns the number of logical names.
func (c ReleaseCatalog) Len() int {
	return len(c.Artifacts)
}

// Names returns the logical names in sorted order.
func (c ReleaseCatalog) Names() []string {
	names := make([]string, 0, len(c.Artifacts))
	for name := range c.Artifacts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Missing returns the names from required that the catalog does not contain, in input order.
func (c ReleaseCatalog) Missing(required []string) []string {
	var missing []string
	for _, name := range required {
		if _, ok := c.Artifacts[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// InstalledArtifact is a file that is present and valid in the installation root.
type InstalledArtifact struct {
	Name        string `json:"name"`
	LocalPath   string `json:"local_path"`
	LocalDigest string `json:"local_digest,omitempty"`
}

// RedirectResolution is the end of a redirect chain.
type RedirectResolution struct {
	FinalURL string
	ETag     string
	Hops     int
}
