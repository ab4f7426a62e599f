// Package config provides configuration management for the coupler launcher.
// It handles loading, validating and saving the YAML configuration that names the
// release catalog, the required artifacts and the transport settings of an update cycle.
package config

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-version"
	"gopkg.in/yaml.v3"

	"github.com/cperrin88/coupler-launcher/pkg/catalog"
	"github.com/cperrin88/coupler-launcher/pkg/errors"
	"github.com/cperrin88/coupler-launcher/pkg/fsutil"
	"github.com/cperrin88/coupler-launcher/pkg/platform"
)

// Catalog formats.
const (
	FormatHTML     = "html"
	FormatPage     = "page"
	FormatRegistry = "registry"
)

// Config represents the application configuration.
type Config struct {
	// InstallRoot overrides the platform default installation root.
	InstallRoot string `yaml:"install_root,omitempty"`
	AppName     string `yaml:"app_name"`

	Catalog  CatalogConfig  `yaml:"catalog"`
	Registry RegistryConfig `yaml:"registry,omitempty"`

	// General settings
	Settings Settings `yaml:"settings"`
}

// CatalogConfig describes where releases are listed and which of them are mandatory.
type CatalogConfig struct {
	URL          string   `yaml:"url"`
	Format       string   `yaml:"format"`
	BuildPattern string   `yaml:"build_pattern,omitempty"`
	Required     []string `yaml:"required"`
	// Prune is a glob of obsolete files removed from the installation root.
	Prune string `yaml:"prune,omitempty"`
	// Auth holds credentials sent to the catalog host only.
	Auth *AuthConfig `yaml:"auth,omitempty"`
}

// RegistryConfig configures the JSON registry used when the catalog format is "registry".
type RegistryConfig struct {
	// URL of the index.json. Catalog.URL is used when empty.
	URL      string          `yaml:"url,omitempty"`
	Packages []PackageConfig `yaml:"packages,omitempty"`
}

// PackageConfig is one package to keep installed.
type PackageConfig struct {
	Name       string `yaml:"name"`
	Constraint string `yaml:"constraint,omitempty"`
}

// PlatformConfig overrides the platform used to filter registry packages.
type PlatformConfig struct {
	// OS overrides the target operating system. If empty, the current OS is used.
	OS string `yaml:"os,omitempty"`
	// Arch overrides the target architecture. If empty, the current architecture is used.
	Arch string `yaml:"arch,omitempty"`
}

// Settings represents general application settings.
type Settings struct {
	// Network settings
	HTTPTimeout  time.Duration `yaml:"http_timeout"`
	MaxRedirects int           `yaml:"max_redirects"`
	MaxRetries   int           `yaml:"max_retries"`
	UserAgent    string        `yaml:"user_agent,omitempty"`

	IntegrityRetries int `yaml:"integrity_retries"`
	Concurrency      int `yaml:"concurrency"`

	// Platform settings
	Platform PlatformConfig `yaml:"platform,omitempty"`

	// Output settings
	LogLevel string `yaml:"log_level"` // debug, info, warn, error
	// LogFile defaults to <root>/logs/launcher.log when empty. "-" disables the file.
	LogFile string `yaml:"log_file,omitempty"`
}

// Default configuration values.
const (
	DefaultAppName          = "coupler"
	DefaultCatalogURL       = "http://biostat.mc.vanderbilt.edu/coupler/"
	DefaultPrune            = "*.jar"
	DefaultHTTPTimeout      = 60 * time.Second
	DefaultMaxRedirects     = 20
	DefaultMaxRetries       = 2
	DefaultIntegrityRetries = 1
	DefaultConcurrency      = 4
	DefaultLogLevel         = "info"

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2
)

// DefaultRequired is the mandatory artifact set of the launcher.
var DefaultRequired = []string{"coupler", "coupler-dependencies"}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		AppName: DefaultAppName,
		Catalog: CatalogConfig{
			URL:      DefaultCatalogURL,
			Format:   FormatHTML,
			Required: append([]string(nil), DefaultRequired...),
			Prune:    DefaultPrune,
		},
		Settings: Settings{
			HTTPTimeout:      DefaultHTTPTimeout,
			MaxRedirects:     DefaultMaxRedirects,
			MaxRetries:       DefaultMaxRetries,
			IntegrityRetries: DefaultIntegrityRetries,
			Concurrency:      DefaultConcurrency,
			LogLevel:         DefaultLogLevel,
		},
	}
}

// LoadConfig loads configuration from a file. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrConfigValidation, err)
	}

	return &config, nil
}

// SaveConfig writes the configuration through a temporary file and renames it into place.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	if err := fsutil.EnsureFileDir(absPath); err != nil {
		return errors.Wrap(errors.ErrConfigDirectory, err.Error())
	}

	tempPath := absPath + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fsutil.FileModeDefault)
	if err != nil {
		return errors.Wrap(errors.ErrConfigFileCreate, err.Error())
	}

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(YAMLIndent)

	if err := encoder.Encode(c); err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigEncode, err.Error())
	}

	_ = encoder.Close()
	_ = file.Close()

	if err := os.Rename(tempPath, absPath); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigFileRename, err.Error())
	}
	return nil
}

// ToYAML converts the config to YAML bytes.
func (c *Config) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(errors.ErrConfigMarshal, err.Error())
	}
	return data, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.ErrConfigValidation
	}
	if err := validateCatalog(c.Catalog); err != nil {
		return err
	}
	if err := validateRegistry(c.Registry); err != nil {
		return err
	}
	return validateSettings(c.Settings)
}

func validateCatalog(cat CatalogConfig) error {
	if cat.URL == "" {
		return errors.ErrMissingCatalogURL
	}
	u, err := url.Parse(cat.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("catalog url %q must be absolute", cat.URL)
	}
	switch cat.Format {
	case FormatHTML, FormatPage, FormatRegistry:
	default:
		return errors.ErrInvalidFormatWithDetails(cat.Format)
	}
	if cat.BuildPattern != "" {
		if _, err := regexp.Compile(cat.BuildPattern); err != nil {
			return errors.Wrapf(err, "invalid build_pattern %q", cat.BuildPattern)
		}
	}
	if cat.Prune != "" {
		if _, err := filepath.Match(cat.Prune, ""); err != nil {
			return errors.Wrapf(err, "invalid prune pattern %q", cat.Prune)
		}
	}
	return cat.Auth.validate()
}

func validateRegistry(reg RegistryConfig) error {
	seen := make(map[string]bool, len(reg.Packages))
	for i, pkg := range reg.Packages {
		if pkg.Name == "" {
			return fmt.Errorf("%w: package at index %d has no name", errors.ErrInvalidPackage, i)
		}
		if seen[pkg.Name] {
			return fmt.Errorf("%w: %s is listed twice", errors.ErrInvalidPackage, pkg.Name)
		}
		seen[pkg.Name] = true
		if pkg.Constraint != "" {
			if _, err := version.NewConstraint(pkg.Constraint); err != nil {
				return fmt.Errorf("%w: %s: %w", errors.ErrInvalidPackage, pkg.Name, err)
			}
		}
	}
	return nil
}

func validateSettings(s Settings) error {
	if s.HTTPTimeout < 0 {
		return errors.ErrNegativeTimeout
	}
	if s.Concurrency < 1 {
		return errors.ErrInvalidConcurrency
	}
	if s.MaxRedirects < 0 || s.MaxRetries < 0 {
		return fmt.Errorf("max_redirects and max_retries cannot be negative")
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(s.LogLevel)] {
		return errors.ErrInvalidLogLevelWithDetails(s.LogLevel)
	}
	return nil
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "coupler-launcher", "config.yaml"), nil
}

// IndexURL returns the URL the catalog reader starts from.
func (c *Config) IndexURL() string {
	if c.Catalog.Format == FormatRegistry && c.Registry.URL != "" {
		return c.Registry.URL
	}
	return c.Catalog.URL
}

// Required lists the names that must be present in the catalog. In registry mode the
// configured packages are required as well.
func (c *Config) Required() []string {
	out := append([]string(nil), c.Catalog.Required...)
	if c.Catalog.Format != FormatRegistry {
		return out
	}
	for _, pkg := range c.Registry.Packages {
		found := false
		for _, name := range out {
			if name == pkg.Name {
				found = true
				break
			}
		}
		if !found {
			out = append(out, pkg.Name)
		}
	}
	return out
}

// Constraints maps registry package names to their version constraints.
func (c *Config) Constraints() map[string]string {
	out := make(map[string]string, len(c.Registry.Packages))
	for _, pkg := range c.Registry.Packages {
		if pkg.Constraint != "" {
			out[pkg.Name] = pkg.Constraint
		}
	}
	return out
}

// Platform returns the target platform with configured overrides applied.
func (c *Config) Platform() platform.Platform {
	p := platform.CurrentPlatform()
	if c.Settings.Platform.OS != "" {
		p.OS = platform.NormalizeOS(c.Settings.Platform.OS)
	}
	if c.Settings.Platform.Arch != "" {
		p.Arch = platform.NormalizeArch(c.Settings.Platform.Arch)
	}
	return p
}

// BuildPattern returns the configured build suffix pattern or the catalog default.
func (c *Config) BuildPattern() string {
	if c.Catalog.BuildPattern != "" {
		return c.Catalog.BuildPattern
	}
	return catalog.DefaultBuildPattern
}

// LogFilePath resolves the log file for root. It returns "" when logging to a file is disabled.
func (c *Config) LogFilePath(root string) string {
	switch c.Settings.LogFile {
	case "-":
		return ""
	case "":
		return filepath.Join(root, "logs", "launcher.log")
	default:
		return c.Settings.LogFile
	}
}

// applyDefaults fills in missing values with defaults.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.AppName == "" {
		c.AppName = defaults.AppName
	}
	if c.Catalog.URL == "" {
		c.Catalog.URL = defaults.Catalog.URL
	}
	if c.Catalog.Format == "" {
		c.Catalog.Format = defaults.Catalog.Format
	}
	// The mandatory set only applies to file catalogs; a registry names its packages.
	if c.Catalog.Required == nil && c.Catalog.Format != FormatRegistry {
		c.Catalog.Required = defaults.Catalog.Required
	}
	if c.Settings.HTTPTimeout == 0 {
		c.Settings.HTTPTimeout = defaults.Settings.HTTPTimeout
	}
	if c.Settings.MaxRedirects == 0 {
		c.Settings.MaxRedirects = defaults.Settings.MaxRedirects
	}
	if c.Settings.IntegrityRetries == 0 {
		c.Settings.IntegrityRetries = defaults.Settings.IntegrityRetries
	}
	if c.Settings.Concurrency == 0 {
		c.Settings.Concurrency = defaults.Settings.Concurrency
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = defaults.Settings.LogLevel
	}
}
