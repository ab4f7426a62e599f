//go:generate mockgen -destination=./mocks/orchestrator.go . CatalogReader,Planner,PackageStore

package orchestrator

import (
	"context"

	"github.com/cperrin88/coupler-launcher/pkg/cleanup"
	"github.com/cperrin88/coupler-launcher/pkg/model"
)

// CatalogReader discovers the newest release of every artifact.
type CatalogReader interface {
	FetchLatest(ctx context.Context, indexURL string) (model.ReleaseCatalog, error)
}

// Planner is the subset of the resolver used by the orchestrator.
type Planner interface {
	Plan(ctx context.Context, cat model.ReleaseCatalog, required []string) ([]model.Decision, error)
	Install(ctx context.Context, decisions []model.Decision) ([]model.InstalledArtifact, error)
}

// PackageStore is the installed package state cleaned up after a registry install.
type PackageStore interface {
	cleanup.Uninstaller
	PackageVersions() []model.PackageVersion
}

// State is a step of the update cycle.
type State string

// Update cycle states. Failed is terminal and reachable from every other state.
const (
	StateIdle               State = "idle"
	StateDiscoveringCatalog State = "discovering-catalog"
	StateResolvingVersions  State = "resolving-versions"
	StateInstalling         State = "installing"
	StateCleaningUp         State = "cleaning-up"
	StateReady              State = "ready"
	StateFailed             State = "failed"
)

// Event represents a simple progress notification.
type Event struct {
	Phase State
	ID    string // artifact name, empty for phase changes
	Msg   string
}

// Hooks carries callbacks for progress events. Calls are serialized.
type Hooks struct {
	OnEvent func(Event)
	// OnBusy is true while a determinate download is running.
	OnBusy     func(busy bool)
	OnProgress func(id string, done, total int64)
}

// Config is the explicit configuration of one update cycle.
type Config struct {
	Root     string
	IndexURL string
	// Required names must be present in the catalog. In registry mode they are also the
	// packages to install; empty selects every catalog name.
	Required []string
	// Prune is a glob relative to Root for obsolete artifact files. Empty disables pruning.
	Prune string
}

// Result is the outcome of Run.
type Result struct {
	State State
	Root  string
	// Paths maps artifact names to local paths. It is set only when State is Ready.
	Paths     map[string]string
	Decisions []model.Decision
	Artifacts []model.InstalledArtifact
	// Packages are the package versions kept by this cycle in registry mode.
	Packages []model.PackageVersion
	Cleanup  cleanup.Report
	Pruned   []string
}
