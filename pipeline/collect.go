package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/splitcast/splitcast-api/log"
	"github.com/splitcast/splitcast-api/store"
)

// DownloadRetryBackoff bounds the retries around one artifact download.
// Overridable so tests don't wait out the real intervals.
var DownloadRetryBackoff = func() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(5*time.Second), 3)
}

// collect pulls the HLS artifacts for every completed rendition into
// <hlsDir>/<videoID>/<label>/ and returns label -> relative playlist path
// for everything usable. A rendition that fails collection has its directory
// removed and is excluded; siblings are unaffected.
func (c *Coordinator) collect(ctx context.Context, job Job, active map[string]string, completed []string) map[string]string {
	defer c.observePhase("collect", time.Now())

	collected := map[string]string{}

	for _, rendition := range completed {
		workerURL := active[rendition]
		renditionDir := filepath.Join(c.hlsDir, job.VideoID, rendition)
		if err := os.MkdirAll(renditionDir, 0755); err != nil {
			c.Store.Update(job.VideoID, store.WithError(fmt.Sprintf("failed to create directory for %s: %s", rendition, err)))
			continue
		}

		files, err := c.client.ListFiles(ctx, workerURL, job.VideoID)
		if err != nil {
			diag := fmt.Sprintf("failed to list files for %s from %s: %s", rendition, workerURL, err)
			log.LogError(job.VideoID, "failed to list rendition files", err, "rendition", rendition)
			c.Store.Update(job.VideoID, store.WithError(diag))
			continue
		}
		if len(files) == 0 {
			diag := fmt.Sprintf("converter for %s reported completion but returned no files", rendition)
			log.Log(job.VideoID, "empty file list from worker", "rendition", rendition)
			c.Store.Update(job.VideoID, store.WithError(diag))
			continue
		}

		playlist, err := c.downloadRenditionFiles(ctx, job, workerURL, rendition, renditionDir, files)
		if err != nil {
			c.Store.Update(job.VideoID, store.WithError(err.Error()))
			removeRenditionDir(job.VideoID, renditionDir)
			continue
		}
		if playlist == "" {
			diag := fmt.Sprintf("files collected for %s but no .m3u8 playlist was found", rendition)
			log.Log(job.VideoID, "no playlist in collected rendition", "rendition", rendition)
			c.Store.Update(job.VideoID, store.WithError(diag))
			removeRenditionDir(job.VideoID, renditionDir)
			continue
		}

		collected[rendition] = rendition + "/" + playlist
		log.Log(job.VideoID, "collected rendition", "rendition", rendition, "playlist", collected[rendition])
	}

	return collected
}

// downloadRenditionFiles fetches every artifact of one rendition and returns
// the playlist filename it saw. Filenames are validated before any
// filesystem join; a single unsafe name aborts the whole rendition.
func (c *Coordinator) downloadRenditionFiles(ctx context.Context, job Job, workerURL, rendition, renditionDir string, files []string) (string, error) {
	var playlist string
	for _, filename := range files {
		if strings.Contains(filename, "..") || strings.HasPrefix(filename, "/") {
			return "", fmt.Errorf("invalid filename %q received from %s converter", filename, rendition)
		}
		if strings.HasSuffix(filename, ".m3u8") {
			playlist = filename
		}

		dst := filepath.Join(renditionDir, filename)
		err := backoff.Retry(func() error {
			return c.client.FetchFile(ctx, workerURL, job.VideoID, filename, dst)
		}, DownloadRetryBackoff())
		if err != nil {
			return "", fmt.Errorf("failed to download %s for %s from %s: %s", filename, rendition, workerURL, err)
		}
	}
	return playlist, nil
}

func removeRenditionDir(videoID, dir string) {
	if err := os.RemoveAll(dir); err != nil {
		log.LogError(videoID, "could not remove partially collected directory", err, "dir", dir)
	}
}
