// Package auth decorates catalog and download requests with credentials.
package auth

import (
	"net/http"
	"strings"
)

// Authenticator applies credentials to an outgoing request.
type Authenticator interface {
	Apply(req *http.Request) error
	Type() Type
}

// Type names an authentication scheme.
type Type string

// Authentication types.
const (
	BasicAuthType  Type = "basic"
	HeaderAuthType Type = "header"
	BearerAuthType Type = "bearer"
)

// BasicAuth represents HTTP Basic Authentication credentials.
type BasicAuth struct {
	Username string
	Password string
}

// Apply sets the Authorization header.
func (b BasicAuth) Apply(req *http.Request) error {
	req.SetBasicAuth(b.Username, b.Password)
	return nil
}

// Type returns BasicAuthType.
func (b BasicAuth) Type() Type { return BasicAuthType }

// HeaderAuth sends fixed headers, for example an API key.
type HeaderAuth struct {
	Headers map[string]string
}

// Apply sets every configured header.
func (h HeaderAuth) Apply(req *http.Request) error {
	for k, v := range h.Headers {
		req.Header.Set(k, v)
	}
	return nil
}

// Type returns HeaderAuthType.
func (h HeaderAuth) Type() Type { return HeaderAuthType }

// BearerAuth represents Bearer token authentication.
type BearerAuth struct {
	Token string
}

// Apply sets the Authorization header.
func (b BearerAuth) Apply(req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+b.Token)
	return nil
}

// Type returns BearerAuthType.
func (b BearerAuth) Type() Type { return BearerAuthType }

// HostScoped applies Auth only to requests for Host. Artifacts are often redirected to
// a mirror or CDN, which must not receive the catalog credentials.
type HostScoped struct {
	Host string
	Auth Authenticator
}

// Apply delegates to Auth when the request host matches, ignoring case.
func (s HostScoped) Apply(req *http.Request) error {
	if s.Auth == nil || req.URL == nil || !strings.EqualFold(req.URL.Host, s.Host) {
		return nil
	}
	return s.Auth.Apply(req)
}

// Type returns the type of the wrapped authenticator.
func (s HostScoped) Type() Type {
	if s.Auth == nil {
		return ""
	}
	return s.Auth.Type()
}
