// Package errors holds the error taxonomy of the update engine together with small
// wrapping helpers.
package errors

import "fmt"

// Sentinels for the update cycle. Each typed error in types.go matches exactly one of them.
var (
	ErrDirectoryUnavailable    = fmt.Errorf("installation directory unavailable")
	ErrCatalogUnreachable      = fmt.Errorf("catalog unreachable")
	ErrArtifactMissingRequired = fmt.Errorf("required artifact missing")
	ErrUnexpectedResponse      = fmt.Errorf("unexpected remote response")
	ErrTooManyRedirects        = fmt.Errorf("too many redirects")
	ErrNetworkTimeout          = fmt.Errorf("network timeout")
	ErrIntegrityMismatch       = fmt.Errorf("integrity mismatch")
	ErrCleanupUnitFailed       = fmt.Errorf("cleanup unit failed")
)

// Config errors.
var (
	ErrEmptyConfigPath   = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath = fmt.Errorf("invalid config file path")
	ErrConfigParse       = fmt.Errorf("failed to parse config")
	ErrConfigValidation  = fmt.Errorf("invalid configuration")
	ErrConfigEncode      = fmt.Errorf("failed to encode config")
	ErrConfigDirectory   = fmt.Errorf("failed to create config directory")
	ErrConfigFileCreate  = fmt.Errorf("failed to create config file")
	ErrConfigFileRename  = fmt.Errorf("failed to rename temporary config file")
	ErrConfigMarshal     = fmt.Errorf("failed to marshal config to YAML")
	ErrConfigFileExists  = fmt.Errorf("configuration file already exists")
)

// Misc errors.
var (
	ErrInvalidPath        = fmt.Errorf("invalid path")
	ErrDownloadFailed     = fmt.Errorf("download failed")
	ErrPackageNotFound    = fmt.Errorf("package not found")
	ErrRootLocked         = fmt.Errorf("installation directory is locked by another instance")
	ErrInvalidLogLevel    = fmt.Errorf("invalid log level")
	ErrInvalidFormat      = fmt.Errorf("invalid catalog format")
	ErrInvalidConcurrency = fmt.Errorf("concurrency must be at least 1")
	ErrNegativeTimeout    = fmt.Errorf("http_timeout cannot be negative")
	ErrMissingCatalogURL  = fmt.Errorf("catalog url cannot be empty")
	ErrInvalidPackage     = fmt.Errorf("invalid registry package")
	ErrInvalidAuth        = fmt.Errorf("invalid catalog credentials")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ErrInvalidLogLevelWithDetails is a helper to create a wrapped error with the invalid level and valid options.
func ErrInvalidLogLevelWithDetails(level string) error {
	return fmt.Errorf("%w: '%s', must be one of: debug, info, warn, error", ErrInvalidLogLevel, level)
}

// ErrInvalidFormatWithDetails is a helper to create a wrapped error with the invalid catalog format.
func ErrInvalidFormatWithDetails(format string) error {
	return fmt.Errorf("%w: '%s', must be one of: html, page, registry", ErrInvalidFormat, format)
}
