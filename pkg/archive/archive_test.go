package archive

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cperrin88/coupler-launcher/pkg/errors"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		fullPath := filepath.Join(root, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0o755))
		require.NoError(t, os.WriteFile(fullPath, []byte(content), 0o644))
	}
}

func TestExtractor_CreateAndExtractAll(t *testing.T) {
	tempDir := t.TempDir()
	files := map[string]string{
		"bin/jruby":          "#!/bin/sh",
		"lib/jruby.jar":      "jar bytes",
		"lib/ruby/stdlib.rb": "puts 1",
	}
	sourceDir := filepath.Join(tempDir, "source")
	writeTree(t, sourceDir, files)

	ex := NewExtractor()
	ctx := context.Background()
	archivePath := filepath.Join(tempDir, "pkg.tar.gz")
	require.NoError(t, ex.Create(ctx, sourceDir, archivePath))

	destDir := filepath.Join(tempDir, "packages", "jruby", "9.4.0")
	require.NoError(t, ex.ExtractAll(ctx, archivePath, destDir))

	for path, want := range files {
		got, err := os.ReadFile(filepath.Join(destDir, path))
		require.NoError(t, err, path)
		assert.Equal(t, want, string(got))
	}
}

func TestExtractor_StripsSingleRootDirectory(t *testing.T) {
	tempDir := t.TempDir()
	sourceDir := filepath.Join(tempDir, "source")
	writeTree(t, sourceDir, map[string]string{
		"jdk-21.0.1/bin/java": "java",
		"jdk-21.0.1/release":  "JAVA_VERSION=21",
	})

	ex := NewExtractor()
	ctx := context.Background()
	archivePath := filepath.Join(tempDir, "jre.tar.gz")
	require.NoError(t, ex.Create(ctx, sourceDir, archivePath))

	stripped := filepath.Join(tempDir, "stripped")
	require.NoError(t, ex.ExtractAll(ctx, archivePath, stripped))
	assert.FileExists(t, filepath.Join(stripped, "bin", "java"))
	assert.FileExists(t, filepath.Join(stripped, "release"))

	kept := filepath.Join(tempDir, "kept")
	require.NoError(t, (&Extractor{}).ExtractAll(ctx, archivePath, kept))
	assert.FileExists(t, filepath.Join(kept, "jdk-21.0.1", "bin", "java"))
}

func TestExtractor_ExtractAllMissingArchive(t *testing.T) {
	err := NewExtractor().ExtractAll(context.Background(), filepath.Join(t.TempDir(), "missing.tar.gz"), t.TempDir())
	assert.Error(t, err)
}

func TestExtractor_ExtractAllCanceled(t *testing.T) {
	tempDir := t.TempDir()
	sourceDir := filepath.Join(tempDir, "source")
	writeTree(t, sourceDir, map[string]string{"a.txt": "a", "b.txt": "b"})

	archivePath := filepath.Join(tempDir, "pkg.tar.gz")
	require.NoError(t, NewExtractor().Create(context.Background(), sourceDir, archivePath))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewExtractor().ExtractAll(ctx, archivePath, filepath.Join(tempDir, "out"))
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(tempDir, "out", "a.txt"))
}

func TestSafeTarget(t *testing.T) {
	dest := t.TempDir()

	target, err := safeTarget(dest, "lib/a.jar")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "lib", "a.jar"), target)

	_, err = safeTarget(dest, "../outside")
	assert.ErrorIs(t, err, errors.ErrInvalidPath)

	_, err = safeTarget(dest, "lib/../../outside")
	assert.ErrorIs(t, err, errors.ErrInvalidPath)
}
