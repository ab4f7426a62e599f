package registry

import (
	"context"
	"net/url"
	"path"
	"sync"

	"github.com/cperrin88/coupler-launcher/internal/logger"
	"github.com/cperrin88/coupler-launcher/pkg/catalog"
	"github.com/cperrin88/coupler-launcher/pkg/errors"
	"github.com/cperrin88/coupler-launcher/pkg/model"
	"github.com/cperrin88/coupler-launcher/pkg/platform"
)

// Client implements catalog.Source and catalog.VersionQuerier for a JSON registry index.
// Parsed indexes are cached for the lifetime of the client, which is one update cycle.
type Client struct {
	fetcher  catalog.DocumentFetcher
	platform platform.Platform

	mu    sync.Mutex
	cache map[string]*Index
}

// NewClient creates a registry client that only reports packages installable on target.
func NewClient(fetcher catalog.DocumentFetcher, target platform.Platform) *Client {
	return &Client{
		fetcher:  fetcher,
		platform: target,
		cache:    make(map[string]*Index),
	}
}

// Index fetches and parses the index at indexURL.
func (c *Client) Index(ctx context.Context, indexURL string) (*Index, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if idx, ok := c.cache[indexURL]; ok {
		return idx, nil
	}
	data, err := c.fetcher.Fetch(ctx, indexURL)
	if err != nil {
		return nil, err
	}
	idx, err := ParseIndex(data)
	if err != nil {
		return nil, &errors.CatalogUnreachableError{URL: indexURL, Err: err}
	}
	logger.Debug("Loaded registry index", logger.Fields{"url": indexURL, "packages": len(idx.Packages)})
	c.cache[indexURL] = idx
	return idx, nil
}

// Entries implements catalog.Source. Every installable package version becomes an
// entry whose marker is its version.
func (c *Client) Entries(ctx context.Context, indexURL string) ([]catalog.Entry, error) {
	idx, err := c.Index(ctx, indexURL)
	if err != nil {
		return nil, err
	}
	var entries []catalog.Entry
	for _, pkg := range idx.Packages {
		if !pkg.MatchPlatform(c.platform) {
			continue
		}
		entries = append(entries, entryFor(pkg))
	}
	return entries, nil
}

// Versions implements catalog.VersionQuerier. Descriptors are returned oldest first.
func (c *Client) Versions(ctx context.Context, indexURL, name string) ([]model.ArtifactDescriptor, error) {
	idx, err := c.Index(ctx, indexURL)
	if err != nil {
		return nil, err
	}
	base, _ := url.Parse(indexURL)
	pkgs := idx.FindPackages(name, c.platform)
	out := make([]model.ArtifactDescriptor, 0, len(pkgs))
	for _, pkg := range pkgs {
		out = append(out, descriptorFor(base, pkg))
	}
	return out, nil
}

func entryFor(pkg *Package) catalog.Entry {
	return catalog.Entry{
		Name:         pkg.Name,
		Filename:     archiveName(pkg),
		Marker:       pkg.Version,
		Checksum:     pkg.Checksum,
		Href:         pkg.URL,
		OS:           pkg.OS,
		Arch:         pkg.Arch,
		Dependencies: pkg.Dependencies,
	}
}

func descriptorFor(base *url.URL, pkg *Package) model.ArtifactDescriptor {
	download := pkg.URL
	if ref, err := url.Parse(pkg.URL); err == nil && base != nil {
		download = base.ResolveReference(ref).String()
	}
	return model.ArtifactDescriptor{
		Name:         pkg.Name,
		Basename:     archiveName(pkg),
		VersionKey:   pkg.Version,
		DownloadPath: download,
		Checksum:     pkg.Checksum,
		OS:           pkg.OS,
		Arch:         pkg.Arch,
		Dependencies: pkg.Dependencies,
	}
}

func archiveName(pkg *Package) string {
	if u, err := url.Parse(pkg.URL); err == nil {
		if base := path.Base(u.Path); base != "" && base != "." && base != "/" {
			return base
		}
	}
	return pkg.Name + "-" + pkg.Version
}
