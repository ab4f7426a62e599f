// Package archive unpacks registry package archives into the packages directory.
package archive

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"

	"github.com/cperrin88/coupler-launcher/pkg/errors"
	"github.com/cperrin88/coupler-launcher/pkg/fsutil"
)

// Extractor unpacks archives in any format mholt/archives can identify.
type Extractor struct {
	// StripSingleRoot drops a lone top-level directory (jdk-21.0.1/bin/java → bin/java).
	StripSingleRoot bool
}

// NewExtractor returns an Extractor that strips a single root directory.
func NewExtractor() *Extractor {
	return &Extractor{StripSingleRoot: true}
}

// ExtractAll unpacks archivePath into destDir. Entries escaping destDir are rejected.
func (e *Extractor) ExtractAll(ctx context.Context, archivePath, destDir string) error {
	fsys, err := archives.FileSystem(ctx, archivePath, nil)
	if err != nil {
		return fmt.Errorf("failed to open archive file %s: %w", archivePath, err)
	}
	if closer, ok := fsys.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	if err := fsutil.EnsureDir(destDir); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	root := "."
	if e.StripSingleRoot {
		if single, ok := singleRootDir(fsys); ok {
			root = single
		}
	}

	return fs.WalkDir(fsys, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel := path
		if root != "." {
			rel = strings.TrimPrefix(strings.TrimPrefix(path, root), "/")
		}
		if rel == "" || rel == "." {
			return nil
		}
		return extractEntry(fsys, path, rel, destDir, d)
	})
}

// Create packs sourceDir into a gzipped tarball at archivePath.
func (e *Extractor) Create(ctx context.Context, sourceDir, archivePath string) error {
	absolutePath, err := filepath.Abs(sourceDir)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for source directory: %w", err)
	}

	files, err := archives.FilesFromDisk(ctx, nil, map[string]string{
		absolutePath + string(os.PathSeparator): "",
	})
	if err != nil {
		return fmt.Errorf("failed to read files from disk: %w", err)
	}

	file, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %w", archivePath, err)
	}
	defer func() {
		_ = file.Sync()
		_ = file.Close()
	}()

	format := archives.CompressedArchive{
		Compression: archives.Gz{},
		Archival:    archives.Tar{},
	}
	if err := format.Archive(ctx, file, files); err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	return nil
}

func singleRootDir(fsys fs.FS) (string, bool) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil || len(entries) != 1 || !entries[0].IsDir() {
		return "", false
	}
	return entries[0].Name(), true
}

// safeTarget joins rel onto destDir and refuses paths that leave it.
func safeTarget(destDir, rel string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(rel))
	within, err := filepath.Rel(destDir, target)
	if err != nil || within == ".." || strings.HasPrefix(within, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry %q escapes destination: %w", rel, errors.ErrInvalidPath)
	}
	return target, nil
}

func extractEntry(fsys fs.FS, path, rel, destDir string, d fs.DirEntry) error {
	target, err := safeTarget(destDir, rel)
	if err != nil {
		return err
	}

	if d.IsDir() {
		return os.MkdirAll(target, fsutil.DirModeDefault)
	}

	info, err := d.Info()
	if err != nil {
		return fmt.Errorf("failed to get file info for %s: %w", path, err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return writeSymlink(fsys, path, target, destDir)
	}
	return writeRegularFile(fsys, path, target, info)
}

func writeSymlink(fsys fs.FS, path, target, destDir string) error {
	link, err := fsys.Open(path)
	if err != nil {
		return fmt.Errorf("failed to read symlink %s: %w", path, err)
	}
	defer func() { _ = link.Close() }()

	linkBytes, err := io.ReadAll(link)
	if err != nil {
		return fmt.Errorf("failed to read symlink target %s: %w", path, err)
	}
	linkTarget := string(linkBytes)

	resolved := linkTarget
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(filepath.Dir(target), linkTarget)
	}
	if _, err := safeTarget(destDir, mustRel(destDir, resolved)); err != nil {
		return err
	}

	if err := fsutil.EnsureFileDir(target); err != nil {
		return fmt.Errorf("failed to create parent directory for symlink %s: %w", path, err)
	}
	_ = os.Remove(target)
	return os.Symlink(linkTarget, target)
}

func mustRel(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return ".."
	}
	return filepath.ToSlash(rel)
}

func writeRegularFile(fsys fs.FS, path, target string, info fs.FileInfo) error {
	src, err := fsys.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", path, err)
	}
	defer func() { _ = src.Close() }()

	if err := fsutil.EnsureFileDir(target); err != nil {
		return fmt.Errorf("failed to create parent directory for %s: %w", path, err)
	}

	perm := info.Mode().Perm()
	if perm == 0 {
		perm = fsutil.FileModeDefault
	}
	dst, err := fsutil.CreateFilePerm(target, perm)
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", target, err)
	}
	defer func() { _ = dst.Close() }()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to copy file %s: %w", path, err)
	}
	if err := os.Chmod(target, perm); err != nil {
		return fmt.Errorf("failed to set permissions for %s: %w", target, err)
	}
	if err := os.Chtimes(target, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("failed to set modification time for %s: %w", target, err)
	}
	return nil
}
