package cleanup

import (
	"context"
	goerrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/cperrin88/coupler-launcher/internal/logger"
	"github.com/cperrin88/coupler-launcher/pkg/errors"
	"github.com/cperrin88/coupler-launcher/pkg/model"
)

// Report is the outcome of Execute.
type Report struct {
	// Removed lists name@version of every uninstalled package in removal order.
	Removed  []string
	Failures []*errors.CleanupUnitFailedError
}

// Err joins the unit failures, or returns nil when every unit was removed.
func (r Report) Err() error {
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, f)
	}
	return goerrors.Join(errs...)
}

// Execute uninstalls the units of plan in order. It is best-effort: a unit that is still
// required by a package remaining installed, or whose uninstall fails, is reported and
// the remaining units continue. After cancellation no further unit is started and the
// rest are reported with the context error.
func Execute(ctx context.Context, plan model.CleanupPlan, installed []model.PackageVersion, u Uninstaller) Report {
	remaining := make(map[string]model.PackageVersion, len(installed))
	for _, p := range installed {
		remaining[p.ID()] = p
	}

	var report Report
	for _, unit := range plan.Units {
		ids := unitIDs(unit)
		if err := ctx.Err(); err != nil {
			report.Failures = append(report.Failures, &errors.CleanupUnitFailedError{Unit: ids, Err: err})
			continue
		}

		if dependent, ok := referencedBy(unit, remaining); ok {
			report.fail(ids, fmt.Errorf("still required by %s", dependent))
			continue
		}

		failed := false
		for _, pkg := range unit {
			if err := u.Uninstall(ctx, pkg); err != nil {
				report.fail(ids, fmt.Errorf("uninstall %s: %w", pkg.ID(), err))
				failed = true
				break
			}
			delete(remaining, pkg.ID())
			report.Removed = append(report.Removed, pkg.ID())
		}
		if !failed {
			logger.Info("Removed package unit", logger.Fields{"unit": ids})
		}
	}
	return report
}

func (r *Report) fail(ids []string, err error) {
	failure := &errors.CleanupUnitFailedError{Unit: ids, Err: err}
	logger.Warn("Cleanup unit failed", logger.Fields{"unit": ids, "error": err})
	r.Failures = append(r.Failures, failure)
}

func unitIDs(unit []model.PackageVersion) []string {
	ids := make([]string, 0, len(unit))
	for _, p := range unit {
		ids = append(ids, p.ID())
	}
	return ids
}

// referencedBy finds a package outside unit that remains installed and has a dependency
// only members of unit satisfy. A dependency also met by another remaining package does
// not block removal.
func referencedBy(unit []model.PackageVersion, remaining map[string]model.PackageVersion) (string, bool) {
	members := make(map[string]bool, len(unit))
	for _, p := range unit {
		members[p.ID()] = true
	}
	ids := make([]string, 0, len(remaining))
	for id := range remaining {
		if !members[id] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	satisfiedOutside := func(dep model.Dependency) bool {
		for _, id := range ids {
			if dep.Matches(remaining[id]) {
				return true
			}
		}
		return false
	}

	for _, id := range ids {
		for _, dep := range remaining[id].Dependencies {
			for _, p := range unit {
				if dep.Matches(p) && !satisfiedOutside(dep) {
					return id, true
				}
			}
		}
	}
	return "", false
}

// PruneCandidates lists the regular files in root matching the glob pattern that are not
// listed in keep.
func PruneCandidates(root, pattern string, keep []string) ([]string, error) {
	if pattern == "" {
		return nil, nil
	}
	matches, err := filepath.Glob(filepath.Join(root, pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid prune pattern %q: %w", pattern, err)
	}

	kept := make(map[string]bool, len(keep))
	for _, k := range keep {
		kept[filepath.Clean(k)] = true
	}

	var out []string
	for _, path := range matches {
		if kept[filepath.Clean(path)] {
			continue
		}
		info, err := os.Lstat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		out = append(out, path)
	}
	return out, nil
}

// PruneFiles removes the files PruneCandidates reports. It is best-effort and returns
// the removed paths and the joined removal failures.
func PruneFiles(root, pattern string, keep []string) ([]string, error) {
	candidates, err := PruneCandidates(root, pattern, keep)
	if err != nil {
		return nil, err
	}

	var (
		removed []string
		errs    []error
	)
	for _, path := range candidates {
		if err := os.Remove(path); err != nil {
			errs = append(errs, err)
			continue
		}
		logger.Debug("Pruned obsolete file", logger.Fields{"path": path})
		removed = append(removed, path)
	}
	return removed, goerrors.Join(errs...)
}
