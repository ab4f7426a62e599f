// Package installroot resolves and prepares the per-user installation root.
package installroot

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gofrs/flock"

	"github.com/cperrin88/coupler-launcher/internal/logger"
	"github.com/cperrin88/coupler-launcher/pkg/errors"
	"github.com/cperrin88/coupler-launcher/pkg/fsutil"
	"github.com/cperrin88/coupler-launcher/pkg/platform"
)

// LockFileName is created inside the root while an update cycle owns it.
const LockFileName = ".lock"

// Options describes everything Resolve needs; no environment is read here.
type Options struct {
	// Override takes precedence over the OS convention when non-empty.
	Override string
	// OS is an OS name or family tag ("windows", "linux", ...).
	OS      string
	Home    string
	AppData string
	AppName string
}

// Resolve returns the absolute, existing and writable installation root.
func Resolve(opts Options) (string, error) {
	dir, err := candidate(opts)
	if err != nil {
		return "", err
	}
	if err := prepare(dir); err != nil {
		return "", err
	}
	logger.Info("COUPLER DIR", logger.Fields{"path": dir})
	return dir, nil
}

func candidate(opts Options) (string, error) {
	if opts.Override != "" {
		abs, err := filepath.Abs(opts.Override)
		if err != nil {
			return "", &errors.DirectoryUnavailableError{Path: opts.Override, Err: err}
		}
		return abs, nil
	}

	if opts.AppName == "" {
		return "", &errors.DirectoryUnavailableError{Err: fmt.Errorf("application name is empty")}
	}

	var base, name string
	switch platform.FamilyOf(opts.OS) {
	case platform.FamilyWindows:
		base, name = opts.AppData, opts.AppName
	default:
		base, name = opts.Home, "."+opts.AppName
	}
	if base == "" {
		return "", &errors.DirectoryUnavailableError{
			Path: name,
			Err:  fmt.Errorf("no base directory known for %s", platform.FamilyOf(opts.OS)),
		}
	}

	abs, err := filepath.Abs(filepath.Join(base, name))
	if err != nil {
		return "", &errors.DirectoryUnavailableError{Path: filepath.Join(base, name), Err: err}
	}
	return abs, nil
}

func prepare(dir string) error {
	if err := fsutil.EnsureDir(dir); err != nil {
		return &errors.DirectoryUnavailableError{Path: dir, Err: err}
	}
	info, err := os.Stat(dir)
	if err != nil {
		return &errors.DirectoryUnavailableError{Path: dir, Err: err}
	}
	if !info.IsDir() {
		return &errors.DirectoryUnavailableError{Path: dir, Err: fmt.Errorf("not a directory")}
	}
	if err := fsutil.CheckWritable(dir); err != nil {
		return &errors.DirectoryUnavailableError{Path: dir, Err: err}
	}
	return nil
}

// Subdir derives root/name and prepares it the same way Resolve prepares the root.
func Subdir(root, name string) (string, error) {
	if name == "" || filepath.IsAbs(name) {
		return "", &errors.DirectoryUnavailableError{Path: name, Err: errors.ErrInvalidPath}
	}
	dir := filepath.Join(root, name)
	if err := prepare(dir); err != nil {
		return "", err
	}
	return dir, nil
}

// Lock is an exclusive claim on an installation root. It is an advisory file lock, so
// the operating system drops it when the owning process dies.
type Lock struct {
	path  string
	flock *flock.Flock
}

// Acquire takes the lock file of root without blocking. It fails with ErrRootLocked when
// another process holds it. A lock file left behind by a process that no longer runs is
// taken over.
func Acquire(root string) (*Lock, error) {
	path := filepath.Join(root, LockFileName)
	fl := flock.New(path, flock.SetPermissions(fsutil.FileModeDefault))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, &errors.DirectoryUnavailableError{Path: root, Err: err}
	}
	if !locked {
		return nil, errors.Wrapf(errors.ErrRootLocked, "lock file %s", path)
	}

	// The PID is informational; the kernel lock is what excludes other processes.
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), fsutil.FileModeDefault); err != nil {
		logger.Debug("Could not record lock owner", logger.Fields{"path": path, "error": err})
	}
	return &Lock{path: path, flock: fl}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string { return l.path }

// Release unlocks the root. The lock file itself stays in place so that a process
// waiting on it never locks an unlinked file. Releasing twice is a no-op.
func (l *Lock) Release() error {
	if l == nil || l.flock == nil {
		return nil
	}
	err := l.flock.Unlock()
	l.flock = nil
	return err
}
