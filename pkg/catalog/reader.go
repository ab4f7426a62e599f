package catalog

import (
	"context"
	goerrors "errors"
	"fmt"
	"net/url"
	"regexp"

	"github.com/cperrin88/coupler-launcher/internal/logger"
	"github.com/cperrin88/coupler-launcher/pkg/errors"
	"github.com/cperrin88/coupler-launcher/pkg/model"
)

// DefaultBuildPattern matches the build identifier suffix of a release filename,
// e.g. "-3f9a2c1.jar" in "coupler-3f9a2c1.jar".
const DefaultBuildPattern = `-[0-9a-f]{7,40}(\.[A-Za-z0-9]+)+$`

// Reader turns a Source listing into a ReleaseCatalog.
type Reader struct {
	source  Source
	pattern *regexp.Regexp
}

// NewReader creates a Reader. An empty buildPattern selects DefaultBuildPattern.
func NewReader(source Source, buildPattern string) (*Reader, error) {
	if buildPattern == "" {
		buildPattern = DefaultBuildPattern
	}
	pattern, err := regexp.Compile(buildPattern)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid build pattern %q", buildPattern)
	}
	return &Reader{source: source, pattern: pattern}, nil
}

// Source returns the underlying listing source.
func (r *Reader) Source() Source {
	return r.source
}

// Pattern returns the compiled build suffix pattern.
func (r *Reader) Pattern() *regexp.Regexp {
	return r.pattern
}

// FetchLatest retrieves the listing at indexURL and keeps the newest entry per logical name.
func (r *Reader) FetchLatest(ctx context.Context, indexURL string) (model.ReleaseCatalog, error) {
	entries, err := r.source.Entries(ctx, indexURL)
	if err != nil {
		if goerrors.Is(err, context.Canceled) {
			return model.ReleaseCatalog{}, err
		}
		var unreachable *errors.CatalogUnreachableError
		if goerrors.As(err, &unreachable) {
			return model.ReleaseCatalog{}, err
		}
		return model.ReleaseCatalog{}, &errors.CatalogUnreachableError{URL: indexURL, Err: err}
	}
	if len(entries) == 0 {
		return model.ReleaseCatalog{}, &errors.CatalogUnreachableError{URL: indexURL, Err: fmt.Errorf("listing has no entries")}
	}

	cat := Reduce(indexURL, entries, r.pattern)
	if cat.Len() == 0 {
		return model.ReleaseCatalog{}, &errors.CatalogUnreachableError{URL: indexURL, Err: fmt.Errorf("listing has no usable entries")}
	}

	for _, name := range cat.Names() {
		d, _ := cat.Get(name)
		logger.Debug("Latest file", logger.Fields{"name": name, "basename": d.Basename, "marker": d.VersionKey})
	}
	return cat, nil
}

// LogicalName strips the build suffix matched by pattern from filename.
func LogicalName(filename string, pattern *regexp.Regexp) string {
	if pattern == nil {
		return filename
	}
	return pattern.ReplaceAllString(filename, "")
}

// Reduce folds entries into a catalog holding the entry with the greatest marker per
// logical name. On equal markers the entry seen first is kept. Rows without a filename
// or with an unparsable marker are skipped.
func Reduce(indexURL string, entries []Entry, pattern *regexp.Regexp) model.ReleaseCatalog {
	cat := model.NewReleaseCatalog(indexURL)
	base, _ := url.Parse(indexURL)

	for _, e := range entries {
		if e.Filename == "" && e.Name == "" {
			logger.Debug("Skipping row without filename", logger.Fields{"href": e.Href})
			continue
		}
		if !ValidMarker(e.Marker) {
			logger.Debug("Skipping row with unparsable marker", logger.Fields{"file": e.Filename, "marker": e.Marker})
			continue
		}

		d := descriptorFor(base, e, pattern)
		if cur, ok := cat.Artifacts[d.Name]; ok && CompareMarkers(d.VersionKey, cur.VersionKey) <= 0 {
			continue
		}
		cat.Artifacts[d.Name] = d
	}
	return cat
}

func descriptorFor(base *url.URL, e Entry, pattern *regexp.Regexp) model.ArtifactDescriptor {
	name := e.Name
	if name == "" {
		name = LogicalName(e.Filename, pattern)
	}
	basename := e.Filename
	if basename == "" {
		basename = name
	}
	href := e.Href
	if href == "" {
		href = url.PathEscape(basename)
	}
	return model.ArtifactDescriptor{
		Name:         name,
		Basename:     basename,
		VersionKey:   e.Marker,
		DownloadPath: resolveHref(base, href),
		Checksum:     e.Checksum,
		OS:           e.OS,
		Arch:         e.Arch,
		Dependencies: e.Dependencies,
	}
}

func resolveHref(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil || base == nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
