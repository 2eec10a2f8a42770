package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/splitcast/splitcast-api/clients"
	"github.com/splitcast/splitcast-api/log"
	"github.com/splitcast/splitcast-api/metrics"
	"github.com/splitcast/splitcast-api/store"
)

// distribute POSTs the conversion job to every configured rendition's worker
// in parallel. It returns the active set: rendition label to worker base URL
// for each worker that answered processing_started. Failed triggers are
// recorded on the video's error log and excluded from later phases.
func (c *Coordinator) distribute(ctx context.Context, job Job) map[string]string {
	defer c.observePhase("distribute", time.Now())

	var mu sync.Mutex
	active := map[string]string{}

	group, ctx := errgroup.WithContext(ctx)
	for _, rendition := range c.renditions {
		rendition := rendition
		workerURL := c.workers[rendition.Name]
		group.Go(func() error {
			err := c.client.StartConversion(ctx, workerURL, clients.ConvertRequest{
				VideoID:      job.VideoID,
				SourceURL:    job.SourceURL,
				TargetHeight: rendition.Height,
				VideoBitrate: rendition.VideoBitrate,
				AudioBitrate: rendition.AudioBitrate,
				Timeout:      int(c.ffmpegTimeout.Seconds()),
			})
			if err == nil {
				log.Log(job.VideoID, "triggered conversion", "rendition", rendition.Name, "worker", workerURL)
				mu.Lock()
				active[rendition.Name] = workerURL
				mu.Unlock()
				return nil
			}

			diag := triggerDiagnostic(rendition.Name, workerURL, err)
			log.LogError(job.VideoID, "failed to trigger conversion", err, "rendition", rendition.Name, "worker", workerURL)
			c.Store.Update(job.VideoID, store.WithError(diag))
			metrics.Metrics.WorkerRequestFailures.WithLabelValues("trigger").Inc()
			return nil
		})
	}
	_ = group.Wait()

	return active
}

func triggerDiagnostic(rendition, workerURL string, err error) string {
	var httpErr *clients.HTTPError
	var rejected *clients.RejectedError
	switch {
	case clients.IsTimeout(err):
		return fmt.Sprintf("timeout contacting converter %s for %s", workerURL, rendition)
	case errors.As(err, &rejected):
		reason := rejected.Reason
		if reason == "" {
			reason = "unknown error from converter"
		}
		return fmt.Sprintf("failed to start %s on %s: %s", rendition, workerURL, reason)
	case errors.As(err, &httpErr):
		return fmt.Sprintf("HTTP error contacting converter %s for %s: status %d", workerURL, rendition, httpErr.Code)
	default:
		return fmt.Sprintf("error contacting converter %s for %s: %s", workerURL, rendition, err)
	}
}
