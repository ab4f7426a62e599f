// Package orchestrator runs one update cycle: discover the catalog, decide and install what
// is missing or stale, then remove what became obsolete.
package orchestrator

import (
	"context"
	goerrors "errors"
	"fmt"
	"sync"

	"github.com/cperrin88/coupler-launcher/internal/logger"
	"github.com/cperrin88/coupler-launcher/pkg/cleanup"
	"github.com/cperrin88/coupler-launcher/pkg/download"
	"github.com/cperrin88/coupler-launcher/pkg/errors"
	"github.com/cperrin88/coupler-launcher/pkg/model"
	"github.com/cperrin88/coupler-launcher/pkg/resolver"
)

// Orchestrator ties the catalog reader, the resolver and the installed package store together.
// One Orchestrator may run per installation root at a time; the host holds the root lock.
type Orchestrator struct {
	Config   Config
	Catalog  CatalogReader
	Resolver Planner
	// Packages is nil for file catalogs.
	Packages PackageStore
	Hooks    Hooks

	mu    sync.Mutex
	state State
}

// New constructs an Orchestrator. Wire the resolver afterwards with SetResolver so that its
// activity is reported through ResolverHooks.
func New(cfg Config, reader CatalogReader, packages PackageStore, hooks Hooks) *Orchestrator {
	return &Orchestrator{
		Config:   cfg,
		Catalog:  reader,
		Packages: packages,
		Hooks:    hooks,
		state:    StateIdle,
	}
}

// SetResolver attaches the planner used by Run.
func (o *Orchestrator) SetResolver(p Planner) {
	o.Resolver = p
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == "" {
		return StateIdle
	}
	return o.state
}

// ResolverHooks translates resolver activity into orchestrator events.
func (o *Orchestrator) ResolverHooks() resolver.Hooks {
	return resolver.Hooks{
		OnVerify: func(d model.ArtifactDescriptor) {
			o.emit(Event{Phase: o.State(), ID: d.Name, Msg: fmt.Sprintf("Verifying %s...", d.ShortName())})
		},
		OnDownload: func(d model.Decision) {
			o.busy(true)
			o.emit(Event{Phase: o.State(), ID: d.Name, Msg: fmt.Sprintf("Downloading %s...", d.Descriptor.ShortName())})
		},
		OnProgress: func(name string, done, total int64) {
			if o.Hooks.OnProgress != nil {
				o.Hooks.OnProgress(name, done, total)
			}
		},
	}
}

// Run executes one update cycle. The returned Result is never nil. On failure its State is
// StateFailed and the error is returned as well.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	res := &Result{Root: o.Config.Root}
	if o.Catalog == nil || o.Resolver == nil {
		return o.fail(ctx, res, fmt.Errorf("orchestrator is not configured"))
	}
	logger.Debug("Starting update cycle", logger.Fields{"root": o.Config.Root, "index": o.Config.IndexURL})

	o.transition(StateDiscoveringCatalog, "Checking for updates...")
	cat, err := o.Catalog.FetchLatest(ctx, o.Config.IndexURL)
	if err != nil {
		return o.fail(ctx, res, err)
	}

	o.transition(StateResolvingVersions, "Checking installed files...")
	decisions, err := o.Resolver.Plan(ctx, cat, o.Config.Required)
	if err != nil {
		return o.fail(ctx, res, err)
	}
	res.Decisions = decisions

	o.transition(StateInstalling, installMessage(decisions))
	artifacts, err := o.Resolver.Install(ctx, decisions)
	o.busy(false)
	if err != nil {
		return o.fail(ctx, res, err)
	}
	res.Artifacts = artifacts
	if err := ctx.Err(); err != nil {
		return o.fail(ctx, res, err)
	}

	o.transition(StateCleaningUp, "Removing obsolete files...")
	o.cleanup(ctx, res)
	if err := ctx.Err(); err != nil {
		return o.fail(ctx, res, err)
	}

	res.Paths = make(map[string]string, len(artifacts))
	for _, a := range artifacts {
		res.Paths[a.Name] = a.LocalPath
	}
	res.State = StateReady
	o.transition(StateReady, "Up to date")
	return res, nil
}

// cleanup removes superseded packages and obsolete files. Failures are reported, never fatal.
func (o *Orchestrator) cleanup(ctx context.Context, res *Result) {
	if o.Packages != nil {
		keep := make([]model.PackageVersion, 0, len(res.Decisions))
		for _, d := range res.Decisions {
			keep = append(keep, d.Descriptor.PackageVersion())
		}
		res.Packages = keep

		installed := o.Packages.PackageVersions()
		plan := cleanup.Plan(installed, keep)
		if !plan.Empty() {
			logger.Info("Removing superseded packages", logger.Fields{"packages": plan.IDs()})
			res.Cleanup = cleanup.Execute(ctx, plan, installed, o.Packages)
		}
		for _, failure := range res.Cleanup.Failures {
			o.emit(Event{Phase: StateCleaningUp, Msg: failure.Error()})
		}
	}

	// Every download of this cycle has finished, so temp files left here come from an
	// interrupted earlier run.
	leftovers, err := cleanup.PruneFiles(o.Config.Root, download.TempPattern, nil)
	if err != nil {
		logger.Warn("Could not remove interrupted downloads", logger.Fields{"error": err})
	}
	res.Pruned = append(res.Pruned, leftovers...)

	if o.Config.Prune == "" {
		return
	}
	keepPaths := make([]string, 0, len(res.Artifacts))
	for _, a := range res.Artifacts {
		keepPaths = append(keepPaths, a.LocalPath)
	}
	pruned, err := cleanup.PruneFiles(o.Config.Root, o.Config.Prune, keepPaths)
	if err != nil {
		logger.Warn("Could not remove obsolete files", logger.Fields{"error": err})
	}
	res.Pruned = append(res.Pruned, pruned...)
}

// fail moves to StateFailed. After cancellation the context error is wrapped so callers can
// match it.
func (o *Orchestrator) fail(ctx context.Context, res *Result, err error) (*Result, error) {
	if ctxErr := ctx.Err(); ctxErr != nil && !goerrors.Is(err, ctxErr) {
		err = errors.Wrap(ctxErr, err.Error())
	}
	o.busy(false)
	res.State = StateFailed
	res.Paths = nil
	o.transition(StateFailed, err.Error())
	logger.Error("Update failed", logger.Fields{"error": err})
	return res, err
}

func (o *Orchestrator) transition(s State, msg string) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	logger.Debug("State change", logger.Fields{"state": s})
	o.emit(Event{Phase: s, Msg: msg})
}

func (o *Orchestrator) emit(e Event) {
	if o.Hooks.OnEvent != nil {
		o.Hooks.OnEvent(e)
	}
}

func (o *Orchestrator) busy(b bool) {
	if o.Hooks.OnBusy != nil {
		o.Hooks.OnBusy(b)
	}
}

func installMessage(decisions []model.Decision) string {
	n := 0
	for _, d := range decisions {
		if d.NeedsDownload() {
			n++
		}
	}
	if n == 0 {
		return "Everything is up to date"
	}
	return fmt.Sprintf("Installing %d update(s)...", n)
}
