package cleanup_test

import (
	"context"
	goerrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/cperrin88/coupler-launcher/pkg/cleanup"
	mock_cleanup "github.com/cperrin88/coupler-launcher/pkg/cleanup/mocks"
	"github.com/cperrin88/coupler-launcher/pkg/errors"
	"github.com/cperrin88/coupler-launcher/pkg/installed"
	"github.com/cperrin88/coupler-launcher/pkg/model"
)

func pv(name, ver string, deps ...string) model.PackageVersion {
	p := model.PackageVersion{Name: name, Version: ver}
	for _, d := range deps {
		p.Dependencies = append(p.Dependencies, model.Dependency{Name: d})
	}
	return p
}

func TestExecute_RemovesInOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	u := mock_cleanup.NewMockUninstaller(ctrl)

	a, b, c := pv("a", "1", "b"), pv("b", "1", "c"), pv("c", "1")
	all := []model.PackageVersion{a, b, c}
	gomock.InOrder(
		u.EXPECT().Uninstall(gomock.Any(), a).Return(nil),
		u.EXPECT().Uninstall(gomock.Any(), b).Return(nil),
		u.EXPECT().Uninstall(gomock.Any(), c).Return(nil),
	)

	report := cleanup.Execute(context.Background(), cleanup.Plan(all, nil), all, u)
	assert.Equal(t, []string{"a@1", "b@1", "c@1"}, report.Removed)
	assert.Empty(t, report.Failures)
	assert.NoError(t, report.Err())
}

func TestExecute_BestEffort(t *testing.T) {
	ctrl := gomock.NewController(t)
	u := mock_cleanup.NewMockUninstaller(ctrl)

	broken, fine := pv("broken", "1"), pv("fine", "1")
	all := []model.PackageVersion{broken, fine}
	u.EXPECT().Uninstall(gomock.Any(), broken).Return(goerrors.New("permission denied"))
	u.EXPECT().Uninstall(gomock.Any(), fine).Return(nil)

	report := cleanup.Execute(context.Background(), cleanup.Plan(all, nil), all, u)
	assert.Equal(t, []string{"fine@1"}, report.Removed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, []string{"broken@1"}, report.Failures[0].Unit)
	assert.ErrorIs(t, report.Err(), errors.ErrCleanupUnitFailed)
	assert.ErrorContains(t, report.Err(), "permission denied")
}

func TestExecute_StillRequiredDependencyIsKept(t *testing.T) {
	ctrl := gomock.NewController(t)
	u := mock_cleanup.NewMockUninstaller(ctrl)

	app, lib := pv("app", "1", "lib"), pv("lib", "1")
	all := []model.PackageVersion{app, lib}
	u.EXPECT().Uninstall(gomock.Any(), app).Return(goerrors.New("busy"))

	report := cleanup.Execute(context.Background(), cleanup.Plan(all, nil), all, u)
	assert.Empty(t, report.Removed)
	require.Len(t, report.Failures, 2)
	assert.Equal(t, []string{"lib@1"}, report.Failures[1].Unit)
	assert.ErrorContains(t, report.Failures[1], "still required by app@1")
}

func TestExecute_DependencyMetByAnotherVersion(t *testing.T) {
	ctrl := gomock.NewController(t)
	u := mock_cleanup.NewMockUninstaller(ctrl)

	app := pv("app", "1", "jre")
	jre17, jre21 := pv("jre", "17.0.2"), pv("jre", "21.0.1")
	all := []model.PackageVersion{app, jre17, jre21}
	u.EXPECT().Uninstall(gomock.Any(), jre17).Return(nil)

	plan := cleanup.Plan(all, []model.PackageVersion{app, jre21})
	report := cleanup.Execute(context.Background(), plan, all, u)
	assert.Equal(t, []string{"jre@17.0.2"}, report.Removed)
	assert.NoError(t, report.Err())
}

func TestExecute_Canceled(t *testing.T) {
	ctrl := gomock.NewController(t)
	u := mock_cleanup.NewMockUninstaller(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	a, b := pv("a", "1"), pv("b", "1")
	all := []model.PackageVersion{a, b}
	u.EXPECT().Uninstall(gomock.Any(), a).DoAndReturn(func(context.Context, model.PackageVersion) error {
		cancel()
		return nil
	})

	report := cleanup.Execute(ctx, cleanup.Plan(all, nil), all, u)
	assert.Equal(t, []string{"a@1"}, report.Removed)
	require.Len(t, report.Failures, 1)
	assert.ErrorIs(t, report.Failures[0], context.Canceled)
}

func TestExecute_WithStore(t *testing.T) {
	store, err := installed.OpenStore(filepath.Join(t.TempDir(), "packages"))
	require.NoError(t, err)

	for _, ver := range []string{"17.0.2", "21.0.1"} {
		dir := store.PackageDir("jre", ver)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, store.Record(&installed.Package{Name: "jre", Version: ver, Dir: dir}))
	}

	all := store.DB.PackageVersions()
	keep := []model.PackageVersion{{Name: "jre", Version: "21.0.1"}}
	report := cleanup.Execute(context.Background(), cleanup.Plan(all, keep), all, store)
	require.NoError(t, report.Err())
	assert.Equal(t, []string{"jre@17.0.2"}, report.Removed)
	assert.NoDirExists(t, store.PackageDir("jre", "17.0.2"))
	assert.DirExists(t, store.PackageDir("jre", "21.0.1"))
}

func TestPruneFiles(t *testing.T) {
	root := t.TempDir()
	write := func(name string) string {
		path := filepath.Join(root, name)
		require.NoError(t, os.WriteFile(path, []byte(name), 0o644))
		return path
	}
	old := write("coupler-1.0.jar")
	current := write("coupler-2.0.jar")
	other := write("notes.txt")
	require.NoError(t, os.Mkdir(filepath.Join(root, "lib.jar"), 0o755))

	removed, err := cleanup.PruneFiles(root, "*.jar", []string{current})
	require.NoError(t, err)
	assert.Equal(t, []string{old}, removed)
	assert.NoFileExists(t, old)
	assert.FileExists(t, current)
	assert.FileExists(t, other)
	assert.DirExists(t, filepath.Join(root, "lib.jar"))

	removed, err = cleanup.PruneFiles(root, "", nil)
	assert.NoError(t, err)
	assert.Empty(t, removed)

	_, err = cleanup.PruneFiles(root, "[", nil)
	assert.Error(t, err)
}
