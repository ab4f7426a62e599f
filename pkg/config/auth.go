package config

import (
	"fmt"
	"net/url"

	"github.com/cperrin88/coupler-launcher/pkg/auth"
	"github.com/cperrin88/coupler-launcher/pkg/errors"
)

// AuthConfig holds the credentials of the catalog host. At most one scheme may be set.
type AuthConfig struct {
	BasicAuth  *BasicAuth  `yaml:"basic,omitempty"`
	HeaderAuth *HeaderAuth `yaml:"header,omitempty"`
	BearerAuth *BearerAuth `yaml:"bearer,omitempty"`
}

// BasicAuth holds configuration for HTTP Basic Authentication.
type BasicAuth struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// HeaderAuth holds configuration for custom header-based authentication.
type HeaderAuth struct {
	Headers map[string]string `yaml:"headers"`
}

// BearerAuth holds configuration for Bearer token authentication.
type BearerAuth struct {
	Token string `yaml:"token"`
}

func (a *AuthConfig) validate() error {
	if a == nil {
		return nil
	}
	set := 0
	for _, present := range []bool{a.BasicAuth != nil, a.HeaderAuth != nil, a.BearerAuth != nil} {
		if present {
			set++
		}
	}
	switch {
	case set > 1:
		return fmt.Errorf("%w: catalog.auth sets more than one scheme", errors.ErrInvalidAuth)
	case a.BasicAuth != nil && a.BasicAuth.Username == "":
		return fmt.Errorf("%w: basic auth needs a username", errors.ErrInvalidAuth)
	case a.HeaderAuth != nil && len(a.HeaderAuth.Headers) == 0:
		return fmt.Errorf("%w: header auth needs at least one header", errors.ErrInvalidAuth)
	case a.BearerAuth != nil && a.BearerAuth.Token == "":
		return fmt.Errorf("%w: bearer auth needs a token", errors.ErrInvalidAuth)
	}
	return nil
}

// toAuthenticator returns nil when no scheme is configured.
func (a *AuthConfig) toAuthenticator() auth.Authenticator {
	switch {
	case a == nil:
		return nil
	case a.BasicAuth != nil:
		return auth.BasicAuth{Username: a.BasicAuth.Username, Password: a.BasicAuth.Password}
	case a.HeaderAuth != nil:
		return auth.HeaderAuth{Headers: a.HeaderAuth.Headers}
	case a.BearerAuth != nil:
		return auth.BearerAuth{Token: a.BearerAuth.Token}
	default:
		return nil
	}
}

// Authenticator returns the catalog credentials scoped to the host of IndexURL, or nil
// when none are configured.
func (c *Config) Authenticator() auth.Authenticator {
	a := c.Catalog.Auth.toAuthenticator()
	if a == nil {
		return nil
	}
	u, err := url.Parse(c.IndexURL())
	if err != nil || u.Host == "" {
		return nil
	}
	return auth.HostScoped{Host: u.Host, Auth: a}
}
