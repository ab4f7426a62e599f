package registry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cperrin88/coupler-launcher/pkg/catalog"
	"github.com/cperrin88/coupler-launcher/pkg/download"
	"github.com/cperrin88/coupler-launcher/pkg/errors"
	"github.com/cperrin88/coupler-launcher/pkg/platform"
)

const indexJSON = `{
  "format_version": "1.0",
  "last_update": "2024-08-16T10:00:00Z",
  "packages": [
    {"name": "jruby", "version": "9.4.0", "url": "pkgs/jruby-9.4.0.tar.gz", "checksum": "a1"},
    {"name": "jruby", "version": "9.10.1", "url": "pkgs/jruby-9.10.1.tar.gz", "checksum": "a2",
     "dependencies": [{"name": "jre", "version_constraint": ">= 17"}]},
    {"name": "jre", "version": "17.0.2", "url": "https://cdn.example.com/jre-17-linux.tar.gz", "os": "linux", "arch": "amd64"},
    {"name": "jre", "version": "17.0.2", "url": "https://cdn.example.com/jre-17-windows.zip", "os": "windows", "arch": "amd64"},
    {"name": "jre", "version": "21.0.1", "url": "https://cdn.example.com/jre-21-linux.tar.gz", "os": "linux", "arch": "amd64"},
    {"name": "broken", "version": "not-a-version", "url": "pkgs/broken.tar.gz"}
  ]
}`

var linux = platform.Platform{OS: "linux", Arch: "amd64"}

func newServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(indexJSON))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestParseIndex(t *testing.T) {
	idx, err := ParseIndex([]byte(indexJSON))
	require.NoError(t, err)
	assert.Equal(t, "1.0", idx.FormatVersion)
	assert.Len(t, idx.Packages, 6)
	assert.Equal(t, ">= 17", idx.Packages[1].Dependencies[0].VersionConstraint)

	_, err = ParseIndex([]byte(`{"packages": []}`))
	assert.Error(t, err)

	_, err = ParseIndex([]byte(`not json`))
	assert.Error(t, err)
}

func TestIndex_FindPackages(t *testing.T) {
	idx, err := ParseIndex([]byte(indexJSON))
	require.NoError(t, err)

	jre := idx.FindPackages("jre", linux)
	require.Len(t, jre, 2)
	assert.Equal(t, "17.0.2", jre[0].Version)
	assert.Equal(t, "21.0.1", jre[1].Version)

	jruby := idx.FindPackages("jruby", linux)
	require.Len(t, jruby, 2)
	assert.Equal(t, "9.10.1", jruby[1].Version, "versions sort numerically")

	assert.Empty(t, idx.FindPackages("broken", linux))
}

func TestIndex_AddPackageAndToJSON(t *testing.T) {
	idx := NewIndex()
	idx.AddPackage(&Package{Name: "a", Version: "1.0.0", URL: "a.tgz"})
	idx.AddPackage(&Package{Name: "a", Version: "1.0.0", URL: "a2.tgz"})
	idx.AddPackage(&Package{Name: "a", Version: "1.1.0", URL: "a3.tgz"})
	require.Len(t, idx.Packages, 2)
	assert.Equal(t, "a2.tgz", idx.Packages[0].URL)

	data, err := idx.ToJSON()
	require.NoError(t, err)
	parsed, err := ParseIndex(data)
	require.NoError(t, err)
	assert.Len(t, parsed.Packages, 2)
}

func TestClient_EntriesFeedCatalogReader(t *testing.T) {
	server := newServer(t, nil)
	indexURL := server.URL + "/index.json"

	client := NewClient(download.NewClient(download.Config{}), linux)
	reader, err := catalog.NewReader(client, "")
	require.NoError(t, err)

	cat, err := reader.FetchLatest(context.Background(), indexURL)
	require.NoError(t, err)

	jruby, ok := cat.Get("jruby")
	require.True(t, ok)
	assert.Equal(t, "9.10.1", jruby.VersionKey)
	assert.Equal(t, "jruby-9.10.1.tar.gz", jruby.Basename)
	assert.Equal(t, server.URL+"/pkgs/jruby-9.10.1.tar.gz", jruby.DownloadPath)
	require.Len(t, jruby.Dependencies, 1)

	jre, ok := cat.Get("jre")
	require.True(t, ok)
	assert.Equal(t, "21.0.1", jre.VersionKey)
	assert.Equal(t, "linux", jre.OS)

	_, ok = cat.Get("broken")
	assert.False(t, ok, "unparsable versions are skipped")
}

func TestClient_Versions(t *testing.T) {
	var hits atomic.Int32
	server := newServer(t, &hits)
	indexURL := server.URL + "/index.json"

	client := NewClient(download.NewClient(download.Config{}), platform.Platform{OS: "windows", Arch: "amd64"})
	versions, err := client.Versions(context.Background(), indexURL, "jre")
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, "17.0.2", versions[0].VersionKey)
	assert.Equal(t, "jre-17-windows.zip", versions[0].Basename)

	_, err = client.Versions(context.Background(), indexURL, "jruby")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load(), "index is fetched once per client")

	var _ catalog.VersionQuerier = client
}

func TestClient_InvalidIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	defer server.Close()

	client := NewClient(download.NewClient(download.Config{}), linux)
	_, err := client.Entries(context.Background(), server.URL)
	assert.ErrorIs(t, err, errors.ErrCatalogUnreachable)
}
