package orchestrator

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	goerrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/cperrin88/coupler-launcher/pkg/archive"
	"github.com/cperrin88/coupler-launcher/pkg/catalog"
	"github.com/cperrin88/coupler-launcher/pkg/download"
	"github.com/cperrin88/coupler-launcher/pkg/errors"
	"github.com/cperrin88/coupler-launcher/pkg/installed"
	"github.com/cperrin88/coupler-launcher/pkg/model"
	ocmocks "github.com/cperrin88/coupler-launcher/pkg/orchestrator/mocks"
	"github.com/cperrin88/coupler-launcher/pkg/platform"
	"github.com/cperrin88/coupler-launcher/pkg/registry"
	"github.com/cperrin88/coupler-launcher/pkg/resolver"
	"github.com/cperrin88/coupler-launcher/pkg/verify"
)

var defaultRequired = []string{"coupler", "coupler-dependencies"}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// recorder collects hook calls.
type recorder struct {
	mu     sync.Mutex
	events []Event
	busy   []bool
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		OnEvent: func(e Event) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, e)
		},
		OnBusy: func(b bool) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.busy = append(r.busy, b)
		},
	}
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Msg)
	}
	return out
}

func (r *recorder) phases() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []State
	for _, e := range r.events {
		if e.ID == "" && (len(out) == 0 || out[len(out)-1] != e.Phase) {
			out = append(out, e.Phase)
		}
	}
	return out
}

// listingServer serves an HTML listing under /files/ and the files it links to.
type listingServer struct {
	*httptest.Server
	mu    sync.Mutex
	rows  []string
	files map[string]string
	gets  int
}

func newListingServer(t *testing.T) *listingServer {
	t.Helper()
	s := &listingServer{files: make(map[string]string)}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if r.URL.Path == "/files/" {
			_, _ = fmt.Fprintf(w, "<html><body><table><tbody>%s</tbody></table></body></html>", strings.Join(s.rows, "\n"))
			return
		}
		body, ok := s.files[strings.TrimPrefix(r.URL.Path, "/files/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if r.Method == http.MethodGet {
			s.gets++
		}
		_, _ = fmt.Fprint(w, body)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *listingServer) publish(filename, marker, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, fmt.Sprintf(`<tr><td><a href="%s">%s</a></td><td>%s</td><td>%s</td></tr>`,
		filename, filename, marker, md5Hex(body)))
	s.files[filename] = body
}

func (s *listingServer) getCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets
}

func newListingOrchestrator(t *testing.T, s *listingServer, root string, rec *recorder) *Orchestrator {
	t.Helper()
	client := download.NewClient(download.Config{})
	reader, err := catalog.NewReader(catalog.NewHTMLListing(client), "")
	require.NoError(t, err)

	o := New(Config{
		Root:     root,
		IndexURL: s.URL + "/files/",
		Required: defaultRequired,
		Prune:    "*.jar",
	}, reader, nil, rec.hooks())

	r, err := resolver.New(resolver.Config{Root: root, BuildPattern: reader.Pattern()}, reader.Source(), client, nil, o.ResolverHooks())
	require.NoError(t, err)
	o.SetResolver(r)
	return o
}

func TestRun_ListingUpdateEndToEnd(t *testing.T) {
	s := newListingServer(t)
	s.publish("coupler-1111111.jar", "2024-01-01", "d1")
	s.publish("coupler-2222222.jar", "2024-02-01", "d2")
	s.publish("coupler-dependencies-3333333.jar", "2023-11-20", "deps")

	root := t.TempDir()
	old := filepath.Join(root, "coupler-1111111.jar")
	require.NoError(t, os.WriteFile(old, []byte("d1"), 0o644))
	leftover := filepath.Join(root, "plugin-0000000.jar")
	require.NoError(t, os.WriteFile(leftover, []byte("x"), 0o644))

	rec := &recorder{}
	o := newListingOrchestrator(t, s, root, rec)

	res, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateReady, res.State)
	assert.Equal(t, StateReady, o.State())

	couplerPath := filepath.Join(root, "coupler-2222222.jar")
	assert.Equal(t, map[string]string{
		"coupler":              couplerPath,
		"coupler-dependencies": filepath.Join(root, "coupler-dependencies-3333333.jar"),
	}, res.Paths)
	assert.True(t, verify.IsValid(couplerPath, md5Hex("d2")))
	assert.NoFileExists(t, old)
	assert.NoFileExists(t, leftover)
	assert.Equal(t, []string{leftover}, res.Pruned)

	assert.Equal(t, []State{
		StateDiscoveringCatalog, StateResolvingVersions, StateInstalling, StateCleaningUp, StateReady,
	}, rec.phases())
	msgs := rec.messages()
	assert.Contains(t, msgs, "Checking for updates...")
	assert.Contains(t, msgs, "Downloading coupler...")
	assert.Contains(t, msgs, "Downloading dependencies...")
	require.NotEmpty(t, rec.busy)
	assert.True(t, rec.busy[0])
	assert.False(t, rec.busy[len(rec.busy)-1])
}

func TestRun_SecondRunVerifiesWithoutDownloading(t *testing.T) {
	s := newListingServer(t)
	s.publish("coupler-2222222.jar", "2024-02-01", "d2")
	s.publish("coupler-dependencies-3333333.jar", "2023-11-20", "deps")

	root := t.TempDir()
	_, err := newListingOrchestrator(t, s, root, &recorder{}).Run(context.Background())
	require.NoError(t, err)
	gets := s.getCount()

	rec := &recorder{}
	res, err := newListingOrchestrator(t, s, root, rec).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateReady, res.State)
	assert.Equal(t, gets, s.getCount())
	assert.Contains(t, rec.messages(), "Verifying coupler...")
	assert.Contains(t, rec.messages(), "Verifying dependencies...")
	assert.Contains(t, rec.messages(), "Everything is up to date")
}

func TestRun_RemovesInterruptedDownloads(t *testing.T) {
	s := newListingServer(t)
	s.publish("coupler-2222222.jar", "2024-02-01", "d2")
	s.publish("coupler-dependencies-3333333.jar", "2023-11-20", "deps")

	root := t.TempDir()
	partial := filepath.Join(root, "dl-123456.tmp")
	require.NoError(t, os.WriteFile(partial, []byte("half a jar"), 0o644))

	o := newListingOrchestrator(t, s, root, &recorder{})
	o.Config.Prune = ""
	res, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateReady, res.State)
	assert.NoFileExists(t, partial)
	assert.Equal(t, []string{partial}, res.Pruned)
	assert.FileExists(t, filepath.Join(root, "coupler-2222222.jar"))
}

func TestRun_MissingRequiredArtifact(t *testing.T) {
	s := newListingServer(t)
	s.publish("other-4444444.jar", "2024-01-01", "o")

	rec := &recorder{}
	o := newListingOrchestrator(t, s, t.TempDir(), rec)

	res, err := o.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrArtifactMissingRequired)
	assert.Equal(t, "Missing coupler and coupler-dependencies runtime files", err.Error())
	assert.Equal(t, StateFailed, res.State)
	assert.Nil(t, res.Paths)
	assert.Zero(t, s.getCount())
	assert.Equal(t, []State{StateDiscoveringCatalog, StateResolvingVersions, StateFailed}, rec.phases())
	msgs := rec.messages()
	assert.Equal(t, "Missing coupler and coupler-dependencies runtime files", msgs[len(msgs)-1])
}

func TestRun_CatalogUnreachable(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := ocmocks.NewMockCatalogReader(ctrl)
	planner := ocmocks.NewMockPlanner(ctrl)

	unreachable := &errors.CatalogUnreachableError{URL: "http://catalog", Err: goerrors.New("connection refused")}
	reader.EXPECT().FetchLatest(gomock.Any(), "http://catalog").Return(model.ReleaseCatalog{}, unreachable)

	o := New(Config{Root: t.TempDir(), IndexURL: "http://catalog"}, reader, nil, Hooks{})
	o.SetResolver(planner)

	res, err := o.Run(context.Background())
	assert.ErrorIs(t, err, errors.ErrCatalogUnreachable)
	assert.Equal(t, StateFailed, res.State)
}

func TestRun_NotConfigured(t *testing.T) {
	res, err := New(Config{}, nil, nil, Hooks{}).Run(context.Background())
	assert.Error(t, err)
	assert.Equal(t, StateFailed, res.State)
}

func TestRun_CanceledDuringInstall(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := ocmocks.NewMockCatalogReader(ctrl)
	planner := ocmocks.NewMockPlanner(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	cat := model.NewReleaseCatalog("http://catalog")
	decisions := []model.Decision{{Name: "coupler", Action: model.ActionInstall}}

	reader.EXPECT().FetchLatest(gomock.Any(), gomock.Any()).Return(cat, nil)
	planner.EXPECT().Plan(gomock.Any(), cat, gomock.Any()).Return(decisions, nil)
	planner.EXPECT().Install(gomock.Any(), decisions).DoAndReturn(
		func(context.Context, []model.Decision) ([]model.InstalledArtifact, error) {
			cancel()
			return nil, goerrors.New("download interrupted")
		})

	o := New(Config{Root: t.TempDir(), IndexURL: "http://catalog"}, reader, nil, Hooks{})
	o.SetResolver(planner)

	res, err := o.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateFailed, res.State)
	assert.Nil(t, res.Paths)
}

func TestRun_CleanupFailureIsNotFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := ocmocks.NewMockCatalogReader(ctrl)
	planner := ocmocks.NewMockPlanner(ctrl)
	store := ocmocks.NewMockPackageStore(ctrl)

	cat := model.NewReleaseCatalog("http://registry/index.json")
	current := model.ArtifactDescriptor{Name: "jre", VersionKey: "21.0.1"}
	decisions := []model.Decision{{Name: "jre", Action: model.ActionUpdate, Descriptor: current}}
	artifacts := []model.InstalledArtifact{{Name: "jre", LocalPath: "/root/packages/jre/21.0.1"}}
	old := model.PackageVersion{Name: "jre", Version: "17.0.2"}

	reader.EXPECT().FetchLatest(gomock.Any(), gomock.Any()).Return(cat, nil)
	planner.EXPECT().Plan(gomock.Any(), cat, gomock.Any()).Return(decisions, nil)
	planner.EXPECT().Install(gomock.Any(), decisions).Return(artifacts, nil)
	store.EXPECT().PackageVersions().Return([]model.PackageVersion{old, current.PackageVersion()})
	store.EXPECT().Uninstall(gomock.Any(), old).Return(goerrors.New("file in use"))

	rec := &recorder{}
	o := New(Config{Root: t.TempDir(), IndexURL: cat.IndexURL}, reader, store, rec.hooks())
	o.SetResolver(planner)

	res, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateReady, res.State)
	assert.Equal(t, map[string]string{"jre": "/root/packages/jre/21.0.1"}, res.Paths)
	require.Len(t, res.Cleanup.Failures, 1)
	assert.ErrorIs(t, res.Cleanup.Err(), errors.ErrCleanupUnitFailed)
}

func publishPackage(t *testing.T, idx *registry.Index, archives map[string][]byte, name, ver string) {
	t.Helper()
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "VERSION"), []byte(ver), 0o644))
	archivePath := filepath.Join(t.TempDir(), name+"-"+ver+".tar.gz")
	require.NoError(t, archive.NewExtractor().Create(context.Background(), src, archivePath))
	data, err := os.ReadFile(archivePath)
	require.NoError(t, err)

	urlPath := "/pkgs/" + filepath.Base(archivePath)
	archives[urlPath] = data
	idx.AddPackage(&registry.Package{
		Name:     name,
		Version:  ver,
		URL:      urlPath[1:],
		Checksum: md5Hex(string(data)),
		OS:       platform.OSLinux,
		Arch:     platform.ArchAMD64,
	})
}

func TestRun_RegistryUpdateRemovesSupersededPackage(t *testing.T) {
	idx := registry.NewIndex()
	archives := make(map[string][]byte)
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if r.URL.Path == "/index.json" {
			data, err := idx.ToJSON()
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			_, _ = w.Write(data)
			return
		}
		data, ok := archives[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}))
	t.Cleanup(server.Close)

	root := t.TempDir()
	run := func() *Result {
		client := download.NewClient(download.Config{})
		source := registry.NewClient(client, platform.Platform{OS: platform.OSLinux, Arch: platform.ArchAMD64})
		reader, err := catalog.NewReader(source, "")
		require.NoError(t, err)
		store, err := installed.OpenStore(filepath.Join(root, "packages"))
		require.NoError(t, err)

		o := New(Config{Root: root, IndexURL: server.URL + "/index.json", Required: []string{"jre"}}, reader, store, Hooks{})
		r, err := resolver.New(resolver.Config{Root: root}, source, client, store, o.ResolverHooks())
		require.NoError(t, err)
		o.SetResolver(r)

		res, err := o.Run(context.Background())
		require.NoError(t, err)
		return res
	}

	mu.Lock()
	publishPackage(t, idx, archives, "jre", "17.0.2")
	mu.Unlock()
	res := run()
	jre17 := filepath.Join(root, "packages", "jre", "17.0.2")
	assert.Equal(t, jre17, res.Paths["jre"])
	assert.FileExists(t, filepath.Join(jre17, "VERSION"))

	mu.Lock()
	publishPackage(t, idx, archives, "jre", "21.0.1")
	mu.Unlock()
	res = run()
	jre21 := filepath.Join(root, "packages", "jre", "21.0.1")
	assert.Equal(t, jre21, res.Paths["jre"])
	assert.Equal(t, []string{"jre@17.0.2"}, res.Cleanup.Removed)
	assert.NoDirExists(t, jre17)
	assert.FileExists(t, filepath.Join(jre21, "VERSION"))
	assert.Equal(t, []model.PackageVersion{{Name: "jre", Version: "21.0.1"}}, res.Packages)
}
