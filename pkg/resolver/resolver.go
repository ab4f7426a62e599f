// Package resolver decides, per catalog artifact, whether to install, update or keep the
// local copy and carries those decisions out.
//
// Two strategies exist and are selected by the capabilities of the catalog source. A plain
// catalog.Source is compared by marker: the local file named by the catalog basename is
// verified against the published checksum, or the entity tag when no checksum is published.
// A source that also implements catalog.VersionQuerier is compared numerically against the
// installed package database and pulls transitive dependencies.
package resolver

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/cperrin88/coupler-launcher/internal/logger"
	"github.com/cperrin88/coupler-launcher/pkg/archive"
	"github.com/cperrin88/coupler-launcher/pkg/catalog"
	"github.com/cperrin88/coupler-launcher/pkg/download"
	"github.com/cperrin88/coupler-launcher/pkg/errors"
	"github.com/cperrin88/coupler-launcher/pkg/installed"
	"github.com/cperrin88/coupler-launcher/pkg/model"
)

const (
	// DefaultConcurrency bounds the number of parallel downloads.
	DefaultConcurrency = 4
	// DefaultIntegrityRetries is the number of extra downloads after an integrity mismatch.
	DefaultIntegrityRetries = 1
)

// Downloader is what the resolver needs from the fetcher.
type Downloader interface {
	download.Fetcher
	download.Manager
}

// Config is the explicit configuration of a Resolver.
type Config struct {
	// Root is the installation root. Artifact files live at <Root>/<basename>.
	Root string
	// BuildPattern identifies older builds of the same logical name. Nil disables
	// stale file detection.
	BuildPattern *regexp.Regexp
	Concurrency  int
	// IntegrityRetries is the number of re-downloads after a digest mismatch. Zero
	// selects DefaultIntegrityRetries and a negative value disables retries.
	IntegrityRetries int
	// Constraints restrict the versions of required packages, keyed by name.
	Constraints map[string]string
}

// Hooks receive resolver activity. Calls are serialized.
type Hooks struct {
	OnVerify   func(d model.ArtifactDescriptor)
	OnDownload func(d model.Decision)
	OnProgress func(name string, done, total int64)
}

// Resolver plans and applies install/update decisions for one update cycle.
type Resolver struct {
	cfg       Config
	source    catalog.Source
	querier   catalog.VersionQuerier
	fetcher   Downloader
	store     *installed.Store
	extractor *archive.Extractor
	hooks     Hooks

	mu sync.Mutex
}

// New creates a Resolver. store is required when source implements catalog.VersionQuerier.
func New(cfg Config, source catalog.Source, fetcher Downloader, store *installed.Store, hooks Hooks) (*Resolver, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("resolver root: %w", errors.ErrInvalidPath)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	switch {
	case cfg.IntegrityRetries == 0:
		cfg.IntegrityRetries = DefaultIntegrityRetries
	case cfg.IntegrityRetries < 0:
		cfg.IntegrityRetries = 0
	}

	r := &Resolver{
		cfg:       cfg,
		source:    source,
		fetcher:   fetcher,
		store:     store,
		extractor: archive.NewExtractor(),
		hooks:     hooks,
	}
	if q, ok := source.(catalog.VersionQuerier); ok {
		if store == nil {
			return nil, fmt.Errorf("version queries need an installed package store")
		}
		r.querier = q
	}
	return r, nil
}

// Numeric reports whether the resolver compares installed package versions instead of markers.
func (r *Resolver) Numeric() bool {
	return r.querier != nil
}

// Plan checks that every required name is in cat and decides what to do for each artifact.
// Nothing is downloaded when a required name is missing.
func (r *Resolver) Plan(ctx context.Context, cat model.ReleaseCatalog, required []string) ([]model.Decision, error) {
	if missing := cat.Missing(required); len(missing) > 0 {
		return nil, &errors.ArtifactMissingRequiredError{Names: missing}
	}

	var (
		decisions []model.Decision
		err       error
	)
	if r.Numeric() {
		decisions, err = r.planPackages(ctx, cat, required)
	} else {
		decisions, err = r.planFiles(ctx, cat)
	}
	if err != nil {
		return nil, err
	}

	for _, d := range decisions {
		logger.Debug("Decision", logger.Fields{"name": d.Name, "action": d.Action, "reason": d.Reason})
	}
	return decisions, nil
}

// Install runs Apply or ApplyPackages depending on the strategy.
func (r *Resolver) Install(ctx context.Context, decisions []model.Decision) ([]model.InstalledArtifact, error) {
	if r.Numeric() {
		return r.ApplyPackages(ctx, decisions)
	}
	return r.Apply(ctx, decisions)
}

func (r *Resolver) notifyVerify(d model.ArtifactDescriptor) {
	if r.hooks.OnVerify == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks.OnVerify(d)
}

func (r *Resolver) notifyDownload(d model.Decision) {
	if r.hooks.OnDownload == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks.OnDownload(d)
}

func (r *Resolver) progress(name string) download.ProgressFunc {
	if r.hooks.OnProgress == nil {
		return nil
	}
	return func(done, total int64) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.hooks.OnProgress(name, done, total)
	}
}
