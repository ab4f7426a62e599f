package config

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cperrin88/coupler-launcher/pkg/auth"
	"github.com/cperrin88/coupler-launcher/pkg/errors"
)

func TestAuthenticator_ScopedToCatalogHost(t *testing.T) {
	cfg, err := LoadConfigFromReader(strings.NewReader(`
catalog:
  url: https://downloads.example.org/coupler/
  format: html
  auth:
    basic:
      username: lab
      password: pw
`))
	require.NoError(t, err)

	a := cfg.Authenticator()
	require.NotNil(t, a)
	assert.Equal(t, auth.BasicAuthType, a.Type())

	req, err := http.NewRequest(http.MethodGet, "https://downloads.example.org/coupler/x.jar", http.NoBody)
	require.NoError(t, err)
	require.NoError(t, a.Apply(req))
	user, pass, ok := req.BasicAuth()
	require.True(t, ok)
	assert.Equal(t, "lab", user)
	assert.Equal(t, "pw", pass)

	other, err := http.NewRequest(http.MethodGet, "https://mirror.example.net/x.jar", http.NoBody)
	require.NoError(t, err)
	require.NoError(t, a.Apply(other))
	assert.Empty(t, other.Header.Get("Authorization"))
}

func TestAuthenticator_NoneConfigured(t *testing.T) {
	assert.Nil(t, DefaultConfig().Authenticator())
}

func TestAuthConfig_Validation(t *testing.T) {
	tests := map[string]string{
		"two schemes": `
    bearer: {token: t}
    header: {headers: {X-Key: k}}`,
		"basic without username": `
    basic: {password: pw}`,
		"empty bearer": `
    bearer: {token: ""}`,
		"header without headers": `
    header: {headers: {}}`,
	}
	for name, authYAML := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadConfigFromReader(strings.NewReader(`
catalog:
  url: https://downloads.example.org/coupler/
  format: html
  auth:` + authYAML + "\n"))
			assert.ErrorIs(t, err, errors.ErrInvalidAuth)
			assert.ErrorIs(t, err, errors.ErrConfigValidation)
		})
	}
}
