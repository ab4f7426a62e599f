package errors

import (
	"fmt"
	"strings"
)

type (
	// DirectoryUnavailableError is returned when the installation root cannot be created or written.
	DirectoryUnavailableError struct {
		Path string
		Err  error
	}

	// CatalogUnreachableError is returned when the remote listing cannot be fetched or is empty.
	CatalogUnreachableError struct {
		URL string
		Err error
	}

	// ArtifactMissingRequiredError is returned when a mandatory logical name is absent from the catalog.
	ArtifactMissingRequiredError struct {
		Names []string
	}

	// UnexpectedRemoteResponseError carries the HTTP status that ended a request.
	UnexpectedRemoteResponseError struct {
		URL    string
		Status int
	}

	// TooManyRedirectsError is returned when a redirect chain exceeds the configured hop limit.
	TooManyRedirectsError struct {
		URL  string
		Hops int
	}

	// NetworkTimeoutError is returned when a network call exceeds its deadline.
	NetworkTimeoutError struct {
		URL string
		Err error
	}

	// IntegrityMismatchError is returned when a file digest does not match the expected value.
	IntegrityMismatchError struct {
		Path     string
		Expected string
		Actual   string
	}

	// CleanupUnitFailedError reports one removal unit that could not be uninstalled.
	CleanupUnitFailedError struct {
		Unit []string
		Err  error
	}
)

func (e *DirectoryUnavailableError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrDirectoryUnavailable, e.Path, e.Err)
}

func (e *DirectoryUnavailableError) Unwrap() error { return e.Err }

func (e *DirectoryUnavailableError) Is(target error) bool { return target == ErrDirectoryUnavailable }

func (e *CatalogUnreachableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", ErrCatalogUnreachable, e.URL)
	}
	return fmt.Sprintf("%s: %s: %v", ErrCatalogUnreachable, e.URL, e.Err)
}

func (e *CatalogUnreachableError) Unwrap() error { return e.Err }

func (e *CatalogUnreachableError) Is(target error) bool { return target == ErrCatalogUnreachable }

func (e *ArtifactMissingRequiredError) Error() string {
	return fmt.Sprintf("Missing %s runtime files", strings.Join(e.Names, " and "))
}

func (e *ArtifactMissingRequiredError) Is(target error) bool {
	return target == ErrArtifactMissingRequired
}

func (e *UnexpectedRemoteResponseError) Error() string {
	return fmt.Sprintf("%s: HTTP %d from %s", ErrUnexpectedResponse, e.Status, e.URL)
}

func (e *UnexpectedRemoteResponseError) Is(target error) bool {
	return target == ErrUnexpectedResponse || target == ErrDownloadFailed
}

func (e *TooManyRedirectsError) Error() string {
	return fmt.Sprintf("%s: stopped after %d hops at %s", ErrTooManyRedirects, e.Hops, e.URL)
}

func (e *TooManyRedirectsError) Is(target error) bool { return target == ErrTooManyRedirects }

func (e *NetworkTimeoutError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrNetworkTimeout, e.URL, e.Err)
}

func (e *NetworkTimeoutError) Unwrap() error { return e.Err }

func (e *NetworkTimeoutError) Is(target error) bool { return target == ErrNetworkTimeout }

func (e *IntegrityMismatchError) Error() string {
	return fmt.Sprintf("%s: %s: expected %s, got %s", ErrIntegrityMismatch, e.Path, e.Expected, e.Actual)
}

func (e *IntegrityMismatchError) Is(target error) bool { return target == ErrIntegrityMismatch }

func (e *CleanupUnitFailedError) Error() string {
	return fmt.Sprintf("%s: [%s]: %v", ErrCleanupUnitFailed, strings.Join(e.Unit, ", "), e.Err)
}

func (e *CleanupUnitFailedError) Unwrap() error { return e.Err }

func (e *CleanupUnitFailedError) Is(target error) bool { return target == ErrCleanupUnitFailed }
