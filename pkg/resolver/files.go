package resolver

import (
	"context"
	goerrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/cperrin88/coupler-launcher/internal/logger"
	"github.com/cperrin88/coupler-launcher/pkg/catalog"
	"github.com/cperrin88/coupler-launcher/pkg/model"
	"github.com/cperrin88/coupler-launcher/pkg/verify"
)

// planFiles decides for every artifact of cat by comparing the local file named by the
// catalog basename.
func (r *Resolver) planFiles(ctx context.Context, cat model.ReleaseCatalog) ([]model.Decision, error) {
	local, err := r.localFiles()
	if err != nil {
		return nil, err
	}

	decisions := make([]model.Decision, 0, cat.Len())
	for _, name := range cat.Names() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		desc, _ := cat.Get(name)
		d, err := r.decideFile(ctx, desc, local[name])
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}
	return decisions, nil
}

// localFiles groups the regular files in the root by logical name.
func (r *Resolver) localFiles() (map[string][]string, error) {
	entries, err := os.ReadDir(r.cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to list installation root: %w", err)
	}
	out := make(map[string][]string)
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := catalog.LogicalName(e.Name(), r.cfg.BuildPattern)
		out[name] = append(out[name], e.Name())
	}
	return out, nil
}

func (r *Resolver) decideFile(ctx context.Context, desc model.ArtifactDescriptor, localNames []string) (model.Decision, error) {
	d := model.Decision{
		Name:       desc.Name,
		Descriptor: desc,
		LocalPath:  filepath.Join(r.cfg.Root, desc.Basename),
		Expected:   desc.Checksum,
	}

	info, err := os.Stat(d.LocalPath)
	present := err == nil && info.Mode().IsRegular()
	for _, basename := range localNames {
		if basename != desc.Basename {
			d.Stale = append(d.Stale, filepath.Join(r.cfg.Root, basename))
		}
	}
	sort.Strings(d.Stale)

	switch {
	case !present && len(d.Stale) == 0:
		d.Action = model.ActionInstall
		d.Reason = "not installed"
		return d, nil
	case !present:
		d.Action = model.ActionUpdate
		d.Reason = fmt.Sprintf("superseded by %s", desc.Basename)
		return d, nil
	}

	r.notifyVerify(desc)
	if d.Expected == "" {
		etag, err := r.entityTag(ctx, desc)
		if err != nil {
			return d, err
		}
		d.Expected = etag
	}

	switch {
	case d.Expected == "" && !usable(d.LocalPath):
		d.Action = model.ActionUpdate
		d.Reason = "local file unusable"
		logger.Infof("%s is empty or unreadable; will redownload it", desc.Basename)
	case d.Expected == "":
		d.Action = model.ActionSkip
		d.Reason = "present, no digest published"
	case verify.IsValid(d.LocalPath, d.Expected):
		d.Action = model.ActionSkip
		d.Reason = "verified"
		logger.Infof("%s looks good", desc.Basename)
	default:
		d.Action = model.ActionUpdate
		d.Reason = "digest mismatch"
		logger.Infof("%s seems to be corrupt; will redownload it", desc.Basename)
	}
	return d, nil
}

// usable reports whether path is a non-empty regular file that can be read in full.
func usable(path string) bool {
	_, err := verify.Digest(path)
	return err == nil
}

// entityTag returns the entity tag of the artifact when it can be compared with a file
// digest. A failed lookup is not fatal: the local file then counts as valid.
func (r *Resolver) entityTag(ctx context.Context, desc model.ArtifactDescriptor) (string, error) {
	res, err := r.fetcher.Resolve(ctx, desc.DownloadPath)
	if err != nil {
		if goerrors.Is(err, context.Canceled) {
			return "", err
		}
		logger.Warn("Could not resolve entity tag", logger.Fields{"url": desc.DownloadPath, "error": err})
		return "", nil
	}
	if !verify.LooksLikeDigest(res.ETag) {
		logger.Debug("Entity tag is not a digest", logger.Fields{"url": res.FinalURL, "etag": res.ETag})
		return "", nil
	}
	return res.ETag, nil
}
