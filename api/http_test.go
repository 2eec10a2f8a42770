package api

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/splitcast/splitcast-api/config"
	"github.com/splitcast/splitcast-api/pipeline"
	"github.com/splitcast/splitcast-api/store"
)

func testRouterDeps(t *testing.T) (config.Cli, *pipeline.Coordinator) {
	t.Helper()
	dir := t.TempDir()
	cli := config.Cli{
		UploadDir: filepath.Join(dir, "uploads"),
		HLSDir:    filepath.Join(dir, "hls"),
		Workers:   map[string]string{},
	}
	return cli, pipeline.NewCoordinator(cli, store.NewStore(filepath.Join(dir, "status.json")))
}

func TestInitServer(t *testing.T) {
	require := require.New(t)
	cli, engine := testRouterDeps(t)
	router := NewSplitcastAPIRouter(cli, engine)

	for _, route := range [][2]string{
		{"GET", "/ok"},
		{"GET", "/metrics"},
		{"GET", "/upload"},
		{"POST", "/upload"},
		{"GET", "/watch/:videoID"},
		{"GET", "/status/:videoID"},
		{"GET", "/download_source/:videoID"},
		{"GET", "/hls/:videoID/*filepath"},
	} {
		handle, _, _ := router.Lookup(route[0], route[1])
		require.NotNil(handle, "missing route %s %s", route[0], route[1])
	}
}

func TestRootRedirectsToUploadPage(t *testing.T) {
	cli, engine := testRouterDeps(t)
	router := NewSplitcastAPIRouter(cli, engine)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/upload", rec.Header().Get("Location"))
}

func TestHLSRouteSetsCORSHeaders(t *testing.T) {
	cli, engine := testRouterDeps(t)
	router := NewSplitcastAPIRouter(cli, engine)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/hls/vid-1/master.m3u8", nil))
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
