package auth_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cperrin88/coupler-launcher/pkg/auth"
)

func newRequest(t *testing.T, rawURL string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, rawURL, http.NoBody)
	require.NoError(t, err)
	return req
}

func TestAuthenticators(t *testing.T) {
	tests := []struct {
		name   string
		auth   auth.Authenticator
		header string
		want   string
		typ    auth.Type
	}{
		{"basic", auth.BasicAuth{Username: "user", Password: "pass"}, "Authorization", "Basic dXNlcjpwYXNz", auth.BasicAuthType},
		{"bearer", auth.BearerAuth{Token: "t0k3n"}, "Authorization", "Bearer t0k3n", auth.BearerAuthType},
		{"header", auth.HeaderAuth{Headers: map[string]string{"X-Api-Key": "k"}}, "X-Api-Key", "k", auth.HeaderAuthType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newRequest(t, "http://biostat.example.org/coupler/")
			require.NoError(t, tt.auth.Apply(req))
			assert.Equal(t, tt.want, req.Header.Get(tt.header))
			assert.Equal(t, tt.typ, tt.auth.Type())
		})
	}
}

func TestHostScoped(t *testing.T) {
	scoped := auth.HostScoped{Host: "Biostat.example.org", Auth: auth.BearerAuth{Token: "secret"}}
	assert.Equal(t, auth.BearerAuthType, scoped.Type())

	catalogReq := newRequest(t, "http://biostat.example.org/coupler/coupler-1a2b3c4.jar")
	require.NoError(t, scoped.Apply(catalogReq))
	assert.Equal(t, "Bearer secret", catalogReq.Header.Get("Authorization"))

	mirrorReq := newRequest(t, "https://cdn.example.net/coupler-1a2b3c4.jar")
	require.NoError(t, scoped.Apply(mirrorReq))
	assert.Empty(t, mirrorReq.Header.Get("Authorization"))

	assert.Equal(t, auth.Type(""), auth.HostScoped{Host: "x"}.Type())
}
