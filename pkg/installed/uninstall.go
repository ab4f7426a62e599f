package installed

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cperrin88/coupler-launcher/internal/logger"
	"github.com/cperrin88/coupler-launcher/pkg/errors"
	"github.com/cperrin88/coupler-launcher/pkg/fsutil"
	"github.com/cperrin88/coupler-launcher/pkg/model"
)

// Store couples a Database with its file and the packages directory.
// It installs and uninstalls package directories and keeps the file in sync.
type Store struct {
	DB          *Database
	PackagesDir string
}

// OpenStore creates packagesDir if needed and loads <packagesDir>/installed.json.
func OpenStore(packagesDir string) (*Store, error) {
	if err := fsutil.EnsureDir(packagesDir); err != nil {
		return nil, fmt.Errorf("failed to create packages directory: %w", err)
	}
	db, err := Open(filepath.Join(packagesDir, DatabaseFile))
	if err != nil {
		return nil, err
	}
	return &Store{DB: db, PackagesDir: packagesDir}, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return filepath.Join(s.PackagesDir, DatabaseFile)
}

// PackageDir returns packages/<name>/<version>.
func (s *Store) PackageDir(name, ver string) string {
	return filepath.Join(s.PackagesDir, name, ver)
}

// Record adds pkg to the database and saves it.
func (s *Store) Record(pkg *Package) error {
	s.DB.Add(pkg)
	return s.DB.Save(s.Path())
}

// PackageVersions lists the recorded packages as dependency graph nodes.
func (s *Store) PackageVersions() []model.PackageVersion {
	return s.DB.PackageVersions()
}

// Uninstall removes the directory of pv and its database record.
func (s *Store) Uninstall(ctx context.Context, pv model.PackageVersion) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pkg := s.DB.Find(pv.Name, pv.Version)
	if pkg == nil {
		return fmt.Errorf("%s: %w", pv.ID(), errors.ErrPackageNotFound)
	}

	dir := pkg.Dir
	if dir == "" {
		dir = s.PackageDir(pkg.Name, pkg.Version)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove package directory %s: %w", dir, err)
	}
	s.tryRemoveEmptyParent(filepath.Dir(dir))

	s.DB.Remove(pkg.Name, pkg.Version)
	if err := s.DB.Save(s.Path()); err != nil {
		return fmt.Errorf("failed to save database after uninstall: %w", err)
	}
	logger.Info("Uninstalled package", logger.Fields{"package": pv.ID()})
	return nil
}

// tryRemoveEmptyParent removes packages/<name> once its last version is gone.
func (s *Store) tryRemoveEmptyParent(dir string) {
	if filepath.Clean(dir) == filepath.Clean(s.PackagesDir) {
		return
	}
	if err := os.Remove(dir); err == nil {
		logger.Debug("Removed empty directory", logger.Fields{"dir": dir})
	}
}
