package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"
	"github.com/peterbourgon/ff/v3"
	"golang.org/x/sync/errgroup"

	"github.com/splitcast/splitcast-api/api"
	"github.com/splitcast/splitcast-api/config"
	"github.com/splitcast/splitcast-api/log"
	"github.com/splitcast/splitcast-api/pipeline"
	"github.com/splitcast/splitcast-api/store"
	"github.com/splitcast/splitcast-api/video"
)

func main() {
	err := flag.Set("logtostderr", "true")
	if err != nil {
		glog.Fatal(err)
	}
	fs := flag.NewFlagSet("splitcast-api", flag.ExitOnError)
	cli := config.Cli{}

	version := fs.Bool("version", false, "print application version")

	fs.StringVar(&cli.HTTPAddress, "http-addr", "0.0.0.0:5000", "Address to bind the HTTP API and player pages to")
	fs.StringVar(&cli.UploadDir, "upload-dir", "uploads", "Directory for uploaded source videos, kept until processing completes")
	fs.StringVar(&cli.HLSDir, "hls-dir", "static/hls", "Directory the per-video HLS output trees are written to")
	fs.StringVar(&cli.StatusFile, "status-file", "video_status.json", "Path of the JSON file the processing state is mirrored to")
	config.CommaMapFlag(fs, &cli.Workers, "workers", map[string]string{}, "Comma separated rendition=URL mapping of converter workers, e.g. 360p=http://w1:5001,480p=http://w2:5001,720p=http://w3:5001")
	config.RenditionsFlag(fs, &cli.Renditions, "renditions", video.DefaultRenditions, "Comma separated transcoding ladder as label:height:videoBitrate:audioBitrate, e.g. 360p:360:800k:96k")
	fs.DurationVar(&cli.FFmpegTimeout, "ffmpeg-timeout", config.DefaultFFmpegTimeout, "Advisory per-rendition conversion timeout passed to the workers")
	fs.IntVar(&config.MaxInFlightPipelines, "max-inflight-pipelines", 8, "Maximum number of videos processed concurrently")
	_ = fs.String("config", "", "config file (optional)")

	err = ff.Parse(fs, os.Args[1:],
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithEnvVarPrefix("SPLITCAST"),
	)
	if err != nil {
		glog.Fatalf("error parsing cli: %s", err)
	}
	cli.ParseLegacyEnv()
	if len(fs.Args()) > 0 {
		glog.Fatalf("unexpected extra arguments on command line: %v", fs.Args())
	}

	if *version {
		fmt.Printf("splitcast-api version: %s\n", config.Version)
		return
	}

	if err := cli.Validate(); err != nil {
		glog.Fatalf("invalid configuration: %s", err)
	}

	for _, dir := range []string{cli.UploadDir, cli.HLSDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			glog.Fatalf("error creating directory %s: %s", dir, err)
		}
	}

	videoStore := store.NewStore(cli.StatusFile)
	videoStore.Load()
	for _, id := range videoStore.FailInterrupted() {
		log.Log(id, "marked as failed after server restart")
	}

	engine := pipeline.NewCoordinator(cli, videoStore)

	group, ctx := errgroup.WithContext(context.Background())

	group.Go(func() error {
		return handleSignals(ctx)
	})

	group.Go(func() error {
		return api.ListenAndServe(ctx, cli, engine)
	})

	err = group.Wait()
	glog.Infof("Shutdown complete. Reason for shutdown: %s", err)
}

func handleSignals(ctx context.Context) error {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)
	for {
		select {
		case s := <-c:
			glog.Errorf("caught signal=%v, attempting clean shutdown", s)
			return fmt.Errorf("caught signal=%v", s)
		case <-ctx.Done():
			return nil
		}
	}
}
