// Package installed provides a JSON-backed record of the registry packages extracted
// under the installation root.
package installed

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/go-version"

	"github.com/cperrin88/coupler-launcher/pkg/errors"
	"github.com/cperrin88/coupler-launcher/pkg/model"
)

// DatabaseFile is the name of the database inside the packages directory.
const DatabaseFile = "installed.json"

const formatVersion = "1"

// Package is one installed version of a registry package.
type Package struct {
	Name               string                   `json:"name"`
	Version            string                   `json:"version"`
	Dir                string                   `json:"dir"`
	Checksum           string                   `json:"checksum,omitempty"`
	InstalledAt        time.Time                `json:"installed_at"`
	InstalledFrom      string                   `json:"installed_from,omitempty"`
	Dependencies       []model.Dependency       `json:"dependencies,omitempty"`
	InstallationReason model.InstallationReason `json:"installation_reason,omitempty"`
}

// PackageVersion returns the dependency graph node for this package.
func (p *Package) PackageVersion() model.PackageVersion {
	return model.PackageVersion{Name: p.Name, Version: p.Version, Dependencies: p.Dependencies}
}

// ID returns name@version.
func (p *Package) ID() string {
	return p.PackageVersion().ID()
}

// Database is the set of installed packages. It is safe for concurrent use.
type Database struct {
	FormatVersion string     `json:"format_version"`
	LastUpdate    time.Time  `json:"last_update"`
	Packages      []*Package `json:"packages"`
	rwMutex       sync.RWMutex
}

// NewDatabase creates an empty database.
func NewDatabase() *Database {
	return &Database{
		FormatVersion: formatVersion,
		LastUpdate:    time.Now(),
		Packages:      make([]*Package, 0),
	}
}

// Open loads the database at dbPath. A missing file yields an empty database.
func Open(dbPath string) (*Database, error) {
	db := NewDatabase()
	if err := db.Load(dbPath); err != nil {
		return nil, err
	}
	return db, nil
}

// Load replaces the contents of db with the file at dbPath, if it exists.
func (db *Database) Load(dbPath string) error {
	cleanPath := filepath.Clean(dbPath)
	if !filepath.IsAbs(cleanPath) {
		return fmt.Errorf("database path must be absolute: %s: %w", dbPath, errors.ErrInvalidPath)
	}

	file, err := os.Open(cleanPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open database file: %w", err)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("failed to read database: %w", err)
	}

	db.rwMutex.Lock()
	defer db.rwMutex.Unlock()
	if err := json.Unmarshal(data, db); err != nil {
		return fmt.Errorf("failed to parse database: %w", err)
	}
	return nil
}

// Save writes the database to dbPath through a temporary file and a rename.
func (db *Database) Save(dbPath string) (err error) {
	cleanPath := filepath.Clean(dbPath)
	if !filepath.IsAbs(cleanPath) {
		return fmt.Errorf("database path must be absolute: %s: %w", dbPath, errors.ErrInvalidPath)
	}

	db.rwMutex.RLock()
	data, err := json.MarshalIndent(db, "", "  ")
	db.rwMutex.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal database to JSON: %w", err)
	}

	dbDir := filepath.Dir(cleanPath)
	tmpFile, err := os.CreateTemp(dbDir, "installed-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file in %s: %w", dbDir, err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to write to temporary file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to sync temporary file to disk: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Rename(tmpPath, cleanPath); err != nil {
		return fmt.Errorf("failed to rename temporary file to %s: %w", cleanPath, err)
	}
	return nil
}

// Find returns the package with the given name and version, or nil.
func (db *Database) Find(name, ver string) *Package {
	db.rwMutex.RLock()
	defer db.rwMutex.RUnlock()

	for _, pkg := range db.Packages {
		if pkg.Name == name && pkg.Version == ver {
			return pkg
		}
	}
	return nil
}

// Versions returns every installed version of name, oldest first.
func (db *Database) Versions(name string) []*Package {
	db.rwMutex.RLock()
	defer db.rwMutex.RUnlock()

	var out []*Package
	for _, pkg := range db.Packages {
		if pkg.Name == name {
			out = append(out, pkg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return lessVersion(out[i].Version, out[j].Version)
	})
	return out
}

// Highest returns the newest installed version of name, or nil.
func (db *Database) Highest(name string) *Package {
	versions := db.Versions(name)
	if len(versions) == 0 {
		return nil
	}
	return versions[len(versions)-1]
}

// Add records pkg, replacing an entry with the same name and version.
func (db *Database) Add(pkg *Package) {
	db.rwMutex.Lock()
	defer db.rwMutex.Unlock()

	if pkg.InstalledAt.IsZero() {
		pkg.InstalledAt = time.Now()
	}
	db.LastUpdate = time.Now()
	for i, existing := range db.Packages {
		if existing.Name == pkg.Name && existing.Version == pkg.Version {
			db.Packages[i] = pkg
			return
		}
	}
	db.Packages = append(db.Packages, pkg)
}

// Remove deletes the record for name@ver.
func (db *Database) Remove(name, ver string) bool {
	db.rwMutex.Lock()
	defer db.rwMutex.Unlock()

	for i, pkg := range db.Packages {
		if pkg.Name == name && pkg.Version == ver {
			db.Packages = append(db.Packages[:i], db.Packages[i+1:]...)
			db.LastUpdate = time.Now()
			return true
		}
	}
	return false
}

// All returns a copy of the installed package list.
func (db *Database) All() []*Package {
	db.rwMutex.RLock()
	defer db.rwMutex.RUnlock()

	out := make([]*Package, len(db.Packages))
	copy(out, db.Packages)
	return out
}

// PackageVersions returns the dependency graph nodes of every installed package.
func (db *Database) PackageVersions() []model.PackageVersion {
	db.rwMutex.RLock()
	defer db.rwMutex.RUnlock()

	out := make([]model.PackageVersion, 0, len(db.Packages))
	for _, pkg := range db.Packages {
		out = append(out, pkg.PackageVersion())
	}
	return out
}

// SetInstallationReason updates the installation reason of name@ver.
func (db *Database) SetInstallationReason(name, ver string, reason model.InstallationReason) error {
	db.rwMutex.Lock()
	defer db.rwMutex.Unlock()

	for _, pkg := range db.Packages {
		if pkg.Name == name && pkg.Version == ver {
			pkg.InstallationReason = reason
			db.LastUpdate = time.Now()
			return nil
		}
	}
	return fmt.Errorf("package %s@%s not found: %w", name, ver, errors.ErrPackageNotFound)
}

func lessVersion(a, b string) bool {
	va, errA := version.NewVersion(a)
	vb, errB := version.NewVersion(b)
	if errA != nil || errB != nil {
		return a < b
	}
	return va.LessThan(vb)
}
