package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/cperrin88/coupler-launcher/pkg/config"
	"github.com/cperrin88/coupler-launcher/pkg/errors"
	"github.com/cperrin88/coupler-launcher/pkg/orchestrator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setGlobals(t *testing.T, cfgPath, root string) {
	t.Helper()
	verbose := false
	ConfigPath = &cfgPath
	RootDir = &root
	Verbose = &verbose
	t.Cleanup(func() {
		ConfigPath, RootDir, Verbose = nil, nil, nil
	})
}

func TestRootOverride_Precedence(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.InstallRoot = "/from/config"

	setGlobals(t, "", "")
	t.Setenv(EnvHome, "")
	assert.Equal(t, "/from/config", rootOverride(cfg))

	t.Setenv(EnvHome, "/from/env")
	assert.Equal(t, "/from/env", rootOverride(cfg))

	flag := "/from/flag"
	RootDir = &flag
	assert.Equal(t, "/from/flag", rootOverride(cfg))
}

func TestResolveRoot_CreatesDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "coupler")
	setGlobals(t, "", root)

	got, err := resolveRoot(config.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, root, got)
	assert.DirExists(t, root)
}

func TestNewEngine_Registry(t *testing.T) {
	root := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Catalog.Format = config.FormatRegistry
	cfg.Registry.URL = "http://localhost/index.json"

	e, err := newEngine(cfg, root)
	require.NoError(t, err)
	require.NotNil(t, e.store)
	assert.DirExists(t, filepath.Join(root, PackagesDir))

	o, err := e.orchestrator(orchestrator.Hooks{})
	require.NoError(t, err)
	assert.NotNil(t, o.Packages)
}

func TestNewEngine_ListingHasNoStore(t *testing.T) {
	e, err := newEngine(config.DefaultConfig(), t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, e.store)

	o, err := e.orchestrator(orchestrator.Hooks{})
	require.NoError(t, err)
	assert.Nil(t, o.Packages)
}

func TestConfigCommands(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	setGlobals(t, cfgPath, "")

	cmd := NewConfigCmd()
	cmd.SetArgs([]string{"init"})
	require.NoError(t, cmd.Execute())
	assert.FileExists(t, cfgPath)

	cmd = NewConfigCmd()
	cmd.SetArgs([]string{"init"})
	err := cmd.Execute()
	require.ErrorIs(t, err, errors.ErrConfigFileExists)

	cmd = NewConfigCmd()
	cmd.SetArgs([]string{"set", "concurrency", "8"})
	require.NoError(t, cmd.Execute())

	var out bytes.Buffer
	cmd = NewConfigCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"get", "concurrency"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "8\n", out.String())

	cmd = NewConfigCmd()
	cmd.SetArgs([]string{"set", "concurrency", "0"})
	require.Error(t, cmd.Execute())

	out.Reset()
	cmd = NewConfigCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"show"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "catalog.url")
	assert.Contains(t, out.String(), config.DefaultCatalogURL)

	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "concurrency: 8")
}
