package download

import (
	"context"
	"net/url"

	"github.com/cperrin88/coupler-launcher/pkg/model"
)

// UnknownTotal is passed to a ProgressFunc when the server sent no Content-Length.
const UnknownTotal int64 = -1

// ProgressFunc receives the number of bytes written so far and the expected total.
type ProgressFunc func(done, total int64)

// CheckFunc validates a fully received temporary file before it is moved into place.
type CheckFunc func(tmpPath string) error

// Fetcher retrieves single resources through a bounded redirect chain.
type Fetcher interface {
	// Resolve follows redirects with metadata-only requests and returns the final URL and entity tag.
	Resolve(ctx context.Context, rawURL string) (model.RedirectResolution, error)
	// Download streams rawURL to dest. dest is only replaced once the full body was received.
	Download(ctx context.Context, rawURL, dest string, onProgress ProgressFunc) error
	// DownloadVerified is Download with a check that runs before the rename.
	DownloadVerified(ctx context.Context, rawURL, dest string, onProgress ProgressFunc, check CheckFunc) error
	// Fetch reads a small document, such as a catalog listing, into memory.
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// Manager downloads batches of remote artifacts.
type Manager interface {
	// FetchAll downloads all items, respecting Options (e.g., concurrency and destination dir).
	// It returns a map from Item.ID to absolute local file path.
	FetchAll(ctx context.Context, items []Item, opts Options) (map[string]string, error)
}

// Item represents one remote resource to download.
type Item struct {
	ID       string   // stable identifier (e.g., name@version). Must be unique within a batch.
	URL      *url.URL // source URL to download
	Checksum string   // optional MD5 or SHA-256 hex digest; verified before the file is finalized
	Filename string   // optional preferred filename; if empty, a name will be derived
}

// Options control the behavior of FetchAll.
type Options struct {
	Dir         string // destination directory. Must be absolute.
	Concurrency int    // number of parallel downloads; if <=0, a sane default is used
	// Progress is called with the item ID. Calls are serialized.
	Progress func(id string, done, total int64)
}
