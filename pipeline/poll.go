package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/splitcast/splitcast-api/clients"
	"github.com/splitcast/splitcast-api/log"
	"github.com/splitcast/splitcast-api/store"
)

// poll walks a FIFO queue of the renditions whose workers accepted the job,
// querying one worker per turn with a sleep between turns. Transient trouble
// (timeouts, 5xx, unknown statuses) re-enqueues the rendition; definitive
// answers move it to the completed or failed set. The whole phase is bounded
// by the worker timeout plus a grace period, after which whatever is still
// pending is failed.
func (c *Coordinator) poll(ctx context.Context, job Job, active map[string]string) []string {
	defer c.observePhase("poll", time.Now())

	queue := make([]string, 0, len(active))
	for _, r := range c.renditions {
		if _, ok := active[r.Name]; ok {
			queue = append(queue, r.Name)
		}
	}

	deadline := time.Now().Add(c.ffmpegTimeout + c.pollGrace)
	var completed []string
	first := true

	for len(queue) > 0 {
		if time.Now().After(deadline) {
			diag := fmt.Sprintf("polling timed out after %s for renditions: %v", c.ffmpegTimeout+c.pollGrace, queue)
			log.Log(job.VideoID, "polling deadline exceeded", "pending", fmt.Sprintf("%v", queue))
			c.Store.Update(job.VideoID, store.WithError(diag))
			break
		}
		if !first {
			time.Sleep(c.pollInterval)
		}
		first = false

		rendition := queue[0]
		queue = queue[1:]
		workerURL := active[rendition]

		workerStatus, workerErr, err := c.client.Status(ctx, workerURL, job.VideoID)
		if err != nil {
			var httpErr *clients.HTTPError
			switch {
			case clients.IsTimeout(err):
				// The worker may just be busy transcoding; ask again later.
				log.Log(job.VideoID, "timeout polling worker, will retry", "rendition", rendition)
				queue = append(queue, rendition)
			case errors.As(err, &httpErr) && httpErr.Code == 404:
				diag := fmt.Sprintf("polling %s failed with 404 (converter lost state or invalid ID)", rendition)
				log.Log(job.VideoID, "worker lost job state", "rendition", rendition)
				c.Store.Update(job.VideoID, store.WithError(diag))
			case errors.Is(err, clients.ErrMalformedResponse):
				diag := fmt.Sprintf("invalid JSON response from %s status endpoint", rendition)
				log.LogError(job.VideoID, "malformed status response", err, "rendition", rendition)
				c.Store.Update(job.VideoID, store.WithError(diag))
			default:
				log.LogError(job.VideoID, "error polling worker, will retry", err, "rendition", rendition)
				queue = append(queue, rendition)
			}
			continue
		}

		switch workerStatus {
		case clients.WorkerStatusCompleted:
			log.Log(job.VideoID, "conversion completed", "rendition", rendition)
			completed = append(completed, rendition)
			c.Store.Update(job.VideoID, store.WithQualityDone(rendition))
		case clients.WorkerStatusError:
			if workerErr == "" {
				workerErr = fmt.Sprintf("unknown error reported by %s converter", rendition)
			}
			diag := fmt.Sprintf("%s conversion failed: %s", rendition, workerErr)
			log.Log(job.VideoID, "conversion failed on worker", "rendition", rendition, "worker_error", workerErr)
			c.Store.Update(job.VideoID, store.WithError(diag))
		case clients.WorkerStatusPending, clients.WorkerStatusProcessing, clients.WorkerStatusDownloading:
			queue = append(queue, rendition)
		default:
			log.Log(job.VideoID, "unknown status from worker, will retry", "rendition", rendition, "worker_status", workerStatus)
			queue = append(queue, rendition)
		}
	}

	return completed
}
