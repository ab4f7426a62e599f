//go:generate mockgen -destination=./mocks/catalog.go . Source,VersionQuerier

// Package catalog reads remote release listings and reduces them to the newest
// build per logical artifact name.
package catalog

import (
	"context"

	"github.com/cperrin88/coupler-launcher/pkg/model"
)

// Entry is one raw row of a remote listing.
type Entry struct {
	// Name is the logical name when the source knows it. Otherwise it is derived
	// from Filename by stripping the build suffix.
	Name     string
	Filename string
	// Marker orders builds of the same name: a date or a version. May be empty.
	Marker   string
	Checksum string
	// Href is the link to the file, relative to the index URL or absolute.
	Href         string
	OS           string
	Arch         string
	Dependencies []model.Dependency
}

// Source retrieves raw listing rows from an index URL.
type Source interface {
	Entries(ctx context.Context, indexURL string) ([]Entry, error)
}

// VersionQuerier is implemented by sources that expose every published version of a name.
// The resolver switches to numeric version comparison when its source implements it.
type VersionQuerier interface {
	Versions(ctx context.Context, indexURL, name string) ([]model.ArtifactDescriptor, error)
}

// DocumentFetcher reads a remote document into memory.
type DocumentFetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}
