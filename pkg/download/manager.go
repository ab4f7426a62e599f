package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cperrin88/coupler-launcher/internal/logger"
	"github.com/cperrin88/coupler-launcher/pkg/errors"
	"github.com/cperrin88/coupler-launcher/pkg/fsutil"
	"github.com/cperrin88/coupler-launcher/pkg/verify"
)

// FetchAll downloads multiple items concurrently and returns a map of item IDs to downloaded file paths.
// Items sharing a URL are downloaded once. The first failure cancels the remaining downloads.
func (c *Client) FetchAll(ctx context.Context, items []Item, opts Options) (map[string]string, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = max(2, runtime.NumCPU()/2)
	}
	if opts.Dir == "" || !filepath.IsAbs(opts.Dir) {
		return nil, fmt.Errorf("download dir must be absolute: %w: %s", errors.ErrInvalidPath, opts.Dir)
	}
	if err := fsutil.EnsureDir(opts.Dir); err != nil {
		return nil, errors.Wrap(err, "could not create download dir")
	}

	byURL, err := buildURLIndex(items)
	if err != nil {
		return nil, err
	}

	var progressMu sync.Mutex
	results := make([]string, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for _, key := range sortedKeys(byURL) {
		indexes := byURL[key]
		item := items[indexes[0]]
		g.Go(func() error {
			var onProgress ProgressFunc
			if opts.Progress != nil {
				onProgress = func(done, total int64) {
					progressMu.Lock()
					defer progressMu.Unlock()
					opts.Progress(item.ID, done, total)
				}
			}
			p, err := c.fetchOne(gctx, item, opts.Dir, onProgress)
			if err != nil {
				return err
			}
			for _, i := range indexes {
				results[i] = p
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return mapResultsByID(items, results), nil
}

func buildURLIndex(items []Item) (map[string][]int, error) {
	byURL := make(map[string][]int)
	for i, it := range items {
		if it.URL == nil {
			return nil, fmt.Errorf("item %d has nil URL: %w", i, errors.ErrDownloadFailed)
		}
		key := it.URL.String()
		byURL[key] = append(byURL[key], i)
	}
	return byURL, nil
}

func mapResultsByID(items []Item, results []string) map[string]string {
	out := make(map[string]string, len(items))
	for i, it := range items {
		out[it.ID] = results[i]
	}
	return out
}

func (c *Client) fetchOne(ctx context.Context, item Item, dir string, onProgress ProgressFunc) (string, error) {
	absPath := filepath.Join(dir, selectFilename(item))
	if item.Checksum != "" && verify.IsValid(absPath, item.Checksum) {
		logger.Debug("Reusing downloaded file", logger.Fields{"id": item.ID, "path": absPath})
		return absPath, nil
	}

	var check CheckFunc
	if item.Checksum != "" {
		check = func(tmpPath string) error { return verify.Check(tmpPath, item.Checksum) }
	}
	if err := c.DownloadVerified(ctx, item.URL.String(), absPath, onProgress, check); err != nil {
		return "", errors.Wrapf(err, "fetch %s", item.ID)
	}
	return absPath, nil
}

func selectFilename(item Item) string {
	if item.Filename != "" {
		return item.Filename
	}
	if base := path.Base(item.URL.Path); base != "" && base != "/" && base != "." {
		return base
	}
	h := sha256.Sum256([]byte(item.URL.String()))
	return hex.EncodeToString(h[:])
}

func sortedKeys(m map[string][]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
