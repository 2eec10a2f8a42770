package api

import (
	"context"
	"net/http"
	"os"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/splitcast/splitcast-api/config"
	"github.com/splitcast/splitcast-api/handlers"
	"github.com/splitcast/splitcast-api/log"
	"github.com/splitcast/splitcast-api/middleware"
	"github.com/splitcast/splitcast-api/pipeline"
)

func ListenAndServe(ctx context.Context, cli config.Cli, engine *pipeline.Coordinator) error {
	router := NewSplitcastAPIRouter(cli, engine)
	server := http.Server{Addr: cli.HTTPAddress, Handler: router}
	ctx, cancel := context.WithCancel(ctx)

	log.LogNoVideoID(
		"Starting Splitcast API!",
		"version", config.Version,
		"host", cli.HTTPAddress,
	)

	var err error
	go func() {
		err = server.ListenAndServe()
		cancel()
	}()

	<-ctx.Done()
	if err != nil {
		return err
	}

	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

func NewSplitcastAPIRouter(cli config.Cli, engine *pipeline.Coordinator) *httprouter.Router {
	router := httprouter.New()
	logger := kitlog.With(kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr)), "ts", kitlog.DefaultTimestampUTC)
	withLogging := middleware.LogRequest(logger)
	withCORS := middleware.AllowCORS()
	capacity := &middleware.CapacityMiddleware{}

	splitcastHandlers := &handlers.SplitcastAPIHandlersCollection{
		Pipeline:  engine,
		Store:     engine.Store,
		UploadDir: cli.UploadDir,
		HLSDir:    cli.HLSDir,
	}

	// Simple endpoint for healthchecks
	router.GET("/ok", withLogging(splitcastHandlers.Ok()))
	router.Handler("GET", "/metrics", promhttp.Handler())

	// Browser pages
	router.GET("/", withLogging(splitcastHandlers.RootRedirect()))
	router.GET("/upload", withLogging(splitcastHandlers.UploadPage()))
	router.GET("/watch/:videoID", withLogging(splitcastHandlers.WatchPage()))

	// Upload and status API
	router.POST("/upload",
		withLogging(
			capacity.HasCapacity(
				engine,
				splitcastHandlers.Upload(),
			),
		),
	)
	router.GET("/status/:videoID", withLogging(splitcastHandlers.Status()))

	// Worker-facing source download
	router.GET("/download_source/:videoID", withLogging(splitcastHandlers.DownloadSource()))

	// HLS delivery, CORS-open for browser players on other origins
	router.GET("/hls/:videoID/*filepath", withLogging(withCORS(splitcastHandlers.ServeHLS())))

	return router
}
