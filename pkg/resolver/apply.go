package resolver

import (
	"context"
	goerrors "errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/cperrin88/coupler-launcher/internal/logger"
	"github.com/cperrin88/coupler-launcher/pkg/download"
	"github.com/cperrin88/coupler-launcher/pkg/errors"
	"github.com/cperrin88/coupler-launcher/pkg/fsutil"
	"github.com/cperrin88/coupler-launcher/pkg/installed"
	"github.com/cperrin88/coupler-launcher/pkg/model"
	"github.com/cperrin88/coupler-launcher/pkg/verify"
)

const (
	downloadsDir = ".downloads"
	stagingDir   = ".staging"
)

// Apply carries out file decisions on a bounded pool. Each download is verified before it
// replaces the local file, and stale files are removed only once the new file is in place.
// The result lists every artifact in decision order, skipped ones included.
func (r *Resolver) Apply(ctx context.Context, decisions []model.Decision) ([]model.InstalledArtifact, error) {
	results := make([]model.InstalledArtifact, len(decisions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for i, d := range decisions {
		g.Go(func() error {
			if d.NeedsDownload() {
				if err := r.fetchFile(gctx, d); err != nil {
					return err
				}
			}
			r.removeStale(d)

			digest, err := verify.Digest(d.LocalPath)
			if err != nil {
				return fmt.Errorf("%s is not usable after install: %w", d.LocalPath, err)
			}
			results[i] = model.InstalledArtifact{Name: d.Name, LocalPath: d.LocalPath, LocalDigest: digest}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// fetchFile downloads d and retries integrity mismatches up to the configured budget.
func (r *Resolver) fetchFile(ctx context.Context, d model.Decision) error {
	var check download.CheckFunc
	if d.Expected != "" {
		check = func(tmpPath string) error { return verify.Check(tmpPath, d.Expected) }
	}

	var err error
	for attempt := 0; attempt <= r.cfg.IntegrityRetries; attempt++ {
		r.notifyDownload(d)
		err = r.fetcher.DownloadVerified(ctx, d.Descriptor.DownloadPath, d.LocalPath, r.progress(d.Name), check)
		if err == nil || !goerrors.Is(err, errors.ErrIntegrityMismatch) {
			return err
		}
		logger.Warn("Downloaded file failed verification", logger.Fields{
			"name":    d.Name,
			"attempt": attempt + 1,
			"error":   err,
		})
	}
	return err
}

func (r *Resolver) removeStale(d model.Decision) {
	for _, path := range d.Stale {
		if err := fsutil.RemoveIfExists(path); err != nil {
			logger.Warn("Could not remove superseded file", logger.Fields{"path": path, "error": err})
			continue
		}
		logger.Debug("Removed superseded file", logger.Fields{"path": path})
	}
}

// ApplyPackages downloads the archives of package decisions, extracts each into
// packages/<name>/<version> and records it in the installed database. Decisions are
// processed in order, so dependencies are recorded before their dependents.
func (r *Resolver) ApplyPackages(ctx context.Context, decisions []model.Decision) ([]model.InstalledArtifact, error) {
	if r.store == nil {
		return nil, fmt.Errorf("installing packages needs an installed package store")
	}

	archives, err := r.fetchArchives(ctx, decisions)
	if err != nil {
		return nil, err
	}

	results := make([]model.InstalledArtifact, 0, len(decisions))
	for _, d := range decisions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if d.NeedsDownload() {
			archivePath := archives[d.Descriptor.PackageVersion().ID()]
			if err := r.installPackage(ctx, d, archivePath); err != nil {
				return nil, err
			}
			_ = os.Remove(archivePath)
		} else if err := r.promote(d); err != nil {
			return nil, err
		}
		results = append(results, model.InstalledArtifact{
			Name:        d.Name,
			LocalPath:   d.LocalPath,
			LocalDigest: d.Descriptor.Checksum,
		})
	}
	return results, nil
}

// fetchArchives downloads every archive that needs it, retrying the batch on an
// integrity mismatch. Verified archives from an earlier attempt are reused.
func (r *Resolver) fetchArchives(ctx context.Context, decisions []model.Decision) (map[string]string, error) {
	var items []download.Item
	for _, d := range decisions {
		if !d.NeedsDownload() {
			continue
		}
		u, err := url.Parse(d.Descriptor.DownloadPath)
		if err != nil {
			return nil, fmt.Errorf("invalid download URL for %s: %w", d.Name, err)
		}
		items = append(items, download.Item{
			ID:       d.Descriptor.PackageVersion().ID(),
			URL:      u,
			Checksum: d.Expected,
			Filename: d.Descriptor.Basename,
		})
		r.notifyDownload(d)
	}
	if len(items) == 0 {
		return map[string]string{}, nil
	}

	opts := download.Options{
		Dir:         filepath.Join(r.store.PackagesDir, downloadsDir),
		Concurrency: r.cfg.Concurrency,
		Progress:    r.hooks.OnProgress,
	}

	var (
		paths map[string]string
		err   error
	)
	for attempt := 0; attempt <= r.cfg.IntegrityRetries; attempt++ {
		paths, err = r.fetcher.FetchAll(ctx, items, opts)
		if err == nil || !goerrors.Is(err, errors.ErrIntegrityMismatch) {
			break
		}
		logger.Warn("Package archive failed verification", logger.Fields{"attempt": attempt + 1, "error": err})
	}
	return paths, err
}

// installPackage extracts into a staging directory and moves the result into place.
func (r *Resolver) installPackage(ctx context.Context, d model.Decision, archivePath string) error {
	stagingRoot := filepath.Join(r.store.PackagesDir, stagingDir)
	if err := fsutil.EnsureDir(stagingRoot); err != nil {
		return err
	}
	staging, err := os.MkdirTemp(stagingRoot, d.Name+"-*")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(staging) }()

	if err := r.extractor.ExtractAll(ctx, archivePath, staging); err != nil {
		return fmt.Errorf("failed to extract %s: %w", d.Descriptor.Basename, err)
	}

	if err := os.RemoveAll(d.LocalPath); err != nil {
		return fmt.Errorf("failed to clear %s: %w", d.LocalPath, err)
	}
	if err := fsutil.EnsureFileDir(d.LocalPath); err != nil {
		return err
	}
	if err := fsutil.Move(staging, d.LocalPath); err != nil {
		return fmt.Errorf("failed to move package into place: %w", err)
	}

	logger.Info("Installed package", logger.Fields{"package": d.Descriptor.PackageVersion().ID(), "dir": d.LocalPath})
	return r.store.Record(&installed.Package{
		Name:               d.Name,
		Version:            d.Descriptor.VersionKey,
		Dir:                d.LocalPath,
		Checksum:           d.Descriptor.Checksum,
		InstalledFrom:      d.Descriptor.DownloadPath,
		Dependencies:       d.Descriptor.Dependencies,
		InstallationReason: d.InstallationReason,
	})
}

// promote marks a kept dependency as manual once it is requested directly.
func (r *Resolver) promote(d model.Decision) error {
	pkg := r.store.DB.Find(d.Name, d.Descriptor.VersionKey)
	if pkg == nil || d.InstallationReason != model.InstallationReasonManual || pkg.InstallationReason == d.InstallationReason {
		return nil
	}
	if err := r.store.DB.SetInstallationReason(d.Name, d.Descriptor.VersionKey, d.InstallationReason); err != nil {
		return err
	}
	return r.store.DB.Save(r.store.Path())
}
