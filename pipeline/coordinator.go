// Package pipeline drives the per-video state machine: distribute the job to
// the converter workers, poll them to completion, collect the HLS artifacts
// and write the master manifest.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/splitcast/splitcast-api/clients"
	"github.com/splitcast/splitcast-api/config"
	"github.com/splitcast/splitcast-api/log"
	"github.com/splitcast/splitcast-api/metrics"
	"github.com/splitcast/splitcast-api/store"
	"github.com/splitcast/splitcast-api/video"
)

// Job carries everything a single video's pipeline run needs. SourceURL is
// the externally reachable URL workers pull the upload from, derived during
// the upload request.
type Job struct {
	VideoID    string
	SourcePath string
	SourceURL  string
}

// Coordinator owns the pipeline goroutines. It is called from the upload
// handler and never blocks: StartPipeline schedules the run in background.
type Coordinator struct {
	Store *store.Store

	client     *clients.WorkerClient
	workers    map[string]string
	renditions []video.Rendition
	hlsDir     string

	ffmpegTimeout time.Duration
	pollInterval  time.Duration
	pollGrace     time.Duration

	inFlight atomic.Int64
}

func NewCoordinator(cli config.Cli, videoStore *store.Store) *Coordinator {
	return &Coordinator{
		Store:         videoStore,
		client:        clients.NewWorkerClient(),
		workers:       cli.Workers,
		renditions:    cli.Renditions,
		hlsDir:        cli.HLSDir,
		ffmpegTimeout: cli.FFmpegTimeout,
		pollInterval:  config.PollInterval,
		pollGrace:     config.PollDeadlineGrace,
	}
}

// InFlight reports the number of running pipelines, used by the capacity
// middleware to bound concurrent uploads.
func (c *Coordinator) InFlight() int64 {
	return c.inFlight.Load()
}

// StartPipeline launches the background run for one uploaded video. A panic
// inside the run becomes a terminal error status, never a crash.
func (c *Coordinator) StartPipeline(ctx context.Context, job Job) {
	c.inFlight.Add(1)
	metrics.Metrics.PipelinesInFlight.Inc()

	go func() {
		defer func() {
			c.inFlight.Add(-1)
			metrics.Metrics.PipelinesInFlight.Dec()
		}()
		if err := recovered(func() error {
			c.runPipeline(ctx, job)
			return nil
		}); err != nil {
			log.LogError(job.VideoID, "panic in pipeline goroutine", err)
			c.fail(job.VideoID, fmt.Sprintf("internal pipeline failure: %s", err))
		}
	}()
}

// runPipeline walks the state machine to a terminal state. Each phase updates
// the store before it starts so viewers polling /status see progress.
func (c *Coordinator) runPipeline(ctx context.Context, job Job) {
	log.Log(job.VideoID, "starting distributed processing")

	videoHLSDir := filepath.Join(c.hlsDir, job.VideoID)
	if err := os.MkdirAll(videoHLSDir, 0755); err != nil {
		c.fail(job.VideoID, fmt.Sprintf("failed to create HLS directory: %s", err))
		return
	}

	c.Store.Update(job.VideoID, store.WithStatus(store.StatusDistributing))
	active := c.distribute(ctx, job)
	if len(active) == 0 {
		log.Log(job.VideoID, "no converters started successfully, aborting")
		c.fail(job.VideoID, "No conversion jobs could be started")
		return
	}

	c.Store.Update(job.VideoID, store.WithStatus(store.StatusPolling))
	completed := c.poll(ctx, job, active)
	if len(completed) == 0 {
		c.fail(job.VideoID, "Processing failed: no renditions finished successfully")
		return
	}
	log.Log(job.VideoID, "renditions completed", "completed", fmt.Sprintf("%v", completed))

	c.Store.Update(job.VideoID, store.WithStatus(store.StatusCollecting))
	collected := c.collect(ctx, job, active, completed)
	if len(collected) == 0 {
		c.fail(job.VideoID, "Failed to collect any usable HLS playlists")
		return
	}

	c.Store.Update(job.VideoID, store.WithStatus(store.StatusManifesting))
	if err := c.writeMasterManifest(job.VideoID, collected); err != nil {
		c.fail(job.VideoID, fmt.Sprintf("Failed to write master playlist: %s", err))
		return
	}

	c.Store.Update(job.VideoID,
		store.WithStatus(store.StatusReady),
		store.WithManifestPath(filepath.Join(job.VideoID, "master.m3u8")),
	)
	metrics.Metrics.PipelineResults.WithLabelValues(strconv.FormatBool(true)).Inc()
	log.Log(job.VideoID, "video processing completed")

	// The record is already ready; a stuck source file is an operator
	// nuisance, not a pipeline failure.
	if err := os.Remove(job.SourcePath); err != nil {
		log.LogError(job.VideoID, "could not remove source file", err, "path", job.SourcePath)
	}
}

// fail writes the terminal error state exactly once per attempt.
func (c *Coordinator) fail(videoID, reason string) {
	c.Store.Update(videoID, store.WithStatus(store.StatusError), store.WithError(reason))
	metrics.Metrics.PipelineResults.WithLabelValues(strconv.FormatBool(false)).Inc()
}

func (c *Coordinator) observePhase(phase string, start time.Time) {
	metrics.Metrics.PipelinePhaseDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}

func recovered(f func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in pipeline: %v", rec)
		}
	}()
	return f()
}
