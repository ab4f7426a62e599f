package cli

import (
	"fmt"
	"os"
	"runtime"

	"github.com/cperrin88/coupler-launcher/internal/logger"
	"github.com/cperrin88/coupler-launcher/pkg/catalog"
	"github.com/cperrin88/coupler-launcher/pkg/config"
	"github.com/cperrin88/coupler-launcher/pkg/download"
	"github.com/cperrin88/coupler-launcher/pkg/installed"
	"github.com/cperrin88/coupler-launcher/pkg/installroot"
	"github.com/cperrin88/coupler-launcher/pkg/orchestrator"
	"github.com/cperrin88/coupler-launcher/pkg/registry"
	"github.com/cperrin88/coupler-launcher/pkg/resolver"
)

// These variables will be set by the main package
var (
	ConfigPath *string
	Verbose    *bool
	RootDir    *string
)

func loadConfig() (*config.Config, error) {
	configPath := getConfigPath()
	if configPath == "" {
		return nil, fmt.Errorf("failed to determine config file path")
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func getConfigPath() string {
	if ConfigPath != nil && *ConfigPath != "" {
		return *ConfigPath
	}

	defaultPath, err := config.GetDefaultConfigPath()
	if err != nil {
		logger.Warn("Failed to get default config path, using empty path", logger.Fields{"error": err})
		return ""
	}
	return defaultPath
}

// rootOverride picks the installation root override: --root, then COUPLER_HOME, then the config file.
func rootOverride(cfg *config.Config) string {
	if RootDir != nil && *RootDir != "" {
		return *RootDir
	}
	if env := os.Getenv(EnvHome); env != "" {
		return env
	}
	return cfg.InstallRoot
}

func resolveRoot(cfg *config.Config) (string, error) {
	home, _ := os.UserHomeDir()
	return installroot.Resolve(installroot.Options{
		Override: rootOverride(cfg),
		OS:       runtime.GOOS,
		Home:     home,
		AppData:  os.Getenv(EnvAppData),
		AppName:  cfg.AppName,
	})
}

// initLogging configures the logger for root. The log file is rotated by size.
func initLogging(cfg *config.Config, root string) {
	level := cfg.Settings.LogLevel
	if Verbose != nil && *Verbose {
		level = "debug"
	}
	logger.InitLogger(level, cfg.LogFilePath(root))
}

// engine bundles the components of an update cycle for one installation root.
type engine struct {
	cfg    *config.Config
	root   string
	client *download.Client
	reader *catalog.Reader
	// store is nil unless the catalog is a registry.
	store *installed.Store
}

func newEngine(cfg *config.Config, root string) (*engine, error) {
	client := download.NewClient(download.Config{
		Timeout:      cfg.Settings.HTTPTimeout,
		UserAgent:    cfg.Settings.UserAgent,
		MaxRedirects: cfg.Settings.MaxRedirects,
		MaxRetries:   cfg.Settings.MaxRetries,
		Auth:         cfg.Authenticator(),
	})

	e := &engine{cfg: cfg, root: root, client: client}

	var source catalog.Source
	switch cfg.Catalog.Format {
	case config.FormatPage:
		page, err := catalog.NewHTMLPage(client, cfg.BuildPattern())
		if err != nil {
			return nil, err
		}
		source = page
	case config.FormatRegistry:
		source = registry.NewClient(client, cfg.Platform())
		packagesDir, err := installroot.Subdir(root, PackagesDir)
		if err != nil {
			return nil, err
		}
		if e.store, err = installed.OpenStore(packagesDir); err != nil {
			return nil, err
		}
	default:
		source = catalog.NewHTMLListing(client)
	}

	reader, err := catalog.NewReader(source, cfg.BuildPattern())
	if err != nil {
		return nil, err
	}
	e.reader = reader
	return e, nil
}

func (e *engine) orchestrator(hooks orchestrator.Hooks) (*orchestrator.Orchestrator, error) {
	var packages orchestrator.PackageStore
	if e.store != nil {
		packages = e.store
	}

	o := orchestrator.New(orchestrator.Config{
		Root:     e.root,
		IndexURL: e.cfg.IndexURL(),
		Required: e.cfg.Required(),
		Prune:    e.cfg.Catalog.Prune,
	}, e.reader, packages, hooks)

	r, err := resolver.New(resolver.Config{
		Root:             e.root,
		BuildPattern:     e.reader.Pattern(),
		Concurrency:      e.cfg.Settings.Concurrency,
		IntegrityRetries: e.cfg.Settings.IntegrityRetries,
		Constraints:      e.cfg.Constraints(),
	}, e.reader.Source(), e.client, e.store, o.ResolverHooks())
	if err != nil {
		return nil, err
	}
	o.SetResolver(r)
	return o, nil
}

// withRoot loads the configuration, resolves and locks the installation root and runs fn.
func withRoot(fn func(cfg *config.Config, root string) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	root, err := resolveRoot(cfg)
	if err != nil {
		return err
	}
	initLogging(cfg, root)
	defer logger.Close()

	lock, err := installroot.Acquire(root)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("Failed to release lock", logger.Fields{"path": lock.Path(), "error": err})
		}
	}()

	return fn(cfg, root)
}
