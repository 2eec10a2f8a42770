package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"

	"github.com/splitcast/splitcast-api/config"
	apierrors "github.com/splitcast/splitcast-api/errors"
	"github.com/splitcast/splitcast-api/log"
	"github.com/splitcast/splitcast-api/metrics"
	"github.com/splitcast/splitcast-api/pipeline"
)

type UploadResponse struct {
	Success bool   `json:"success"`
	VideoID string `json:"video_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

var hostPattern = regexp.MustCompile(`^[A-Za-z0-9.:\-\[\]]+$`)

// Upload accepts the multipart video upload, persists the source file,
// registers the status record and spawns the processing pipeline. The
// response carries the freshly minted video ID the client polls with.
func (d *SplitcastAPIHandlersCollection) Upload() httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		metrics.Metrics.UploadRequestCount.Inc()

		req.Body = http.MaxBytesReader(w, req.Body, config.MaxSourceBytes)
		file, header, err := req.FormFile("video")
		if err != nil {
			var maxBytesErr *http.MaxBytesError
			if errors.As(err, &maxBytesErr) {
				apierrors.WriteHTTPPayloadTooLarge(w, "Upload exceeds the maximum allowed size", err)
				return
			}
			apierrors.WriteHTTPBadRequest(w, "No video file part in the request", err)
			return
		}
		defer file.Close()
		if header.Filename == "" {
			apierrors.WriteHTTPBadRequest(w, "No selected file", nil)
			return
		}

		videoID := uuid.New().String()
		log.AddContext(videoID, "filename", header.Filename)

		if err := os.MkdirAll(d.UploadDir, 0755); err != nil {
			apierrors.WriteHTTPInternalServerError(w, "Failed to prepare upload directory", err)
			return
		}

		savePath := filepath.Join(d.UploadDir, videoID+sanitizeExtension(header.Filename))
		if err := saveUpload(file, savePath); err != nil {
			var maxBytesErr *http.MaxBytesError
			_ = os.Remove(savePath)
			if errors.As(err, &maxBytesErr) {
				apierrors.WriteHTTPPayloadTooLarge(w, "Upload exceeds the maximum allowed size", err)
				return
			}
			log.LogError(videoID, "file save failed", err, "path", savePath)
			apierrors.WriteHTTPInternalServerError(w, "File save failed", err)
			return
		}
		log.Log(videoID, "file save completed", "path", savePath)

		d.Store.Create(videoID)

		sourceURL, err := sourceURLFor(req, videoID)
		if err != nil {
			// Workers cannot pull the source without a reachable URL, so the
			// upload is rejected rather than starting a broken pipeline.
			log.LogError(videoID, "failed to determine external source URL", err)
			_ = os.Remove(savePath)
			d.Store.Remove(videoID)
			apierrors.WriteHTTPInternalServerError(w, "Server configuration error: cannot determine external URL", err)
			return
		}
		log.AddContext(videoID, "source_url", sourceURL)

		d.Pipeline.StartPipeline(context.Background(), pipeline.Job{
			VideoID:    videoID,
			SourcePath: savePath,
			SourceURL:  sourceURL,
		})

		writeJSON(w, UploadResponse{Success: true, VideoID: videoID})
	}
}

// sanitizeExtension keeps only alphanumeric characters of the original
// extension and falls back to .mp4.
func sanitizeExtension(filename string) string {
	ext := path.Ext(filename)
	var b strings.Builder
	for _, c := range ext {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			b.WriteRune(c)
		}
	}
	if b.Len() == 0 {
		return ".mp4"
	}
	return "." + b.String()
}

func saveUpload(src io.Reader, dst string) error {
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	info, err := os.Stat(dst)
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return fmt.Errorf("file save resulted in an empty file")
	}
	return nil
}

// sourceURLFor derives the worker-reachable URL of the upload's source
// endpoint, honoring reverse-proxy headers. There is deliberately no
// localhost fallback: a URL the workers cannot reach is worse than failing
// the upload.
func sourceURLFor(req *http.Request, videoID string) (string, error) {
	scheme := req.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		scheme = "http"
		if req.TLS != nil {
			scheme = "https"
		}
	}

	host := req.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = req.Host
	}
	if host == "" {
		return "", fmt.Errorf("no Host or X-Forwarded-Host header on upload request")
	}
	if !hostPattern.MatchString(host) {
		return "", fmt.Errorf("invalid characters in host header: %q", host)
	}

	return fmt.Sprintf("%s://%s/download_source/%s", scheme, host, videoID), nil
}

func writeJSON(w http.ResponseWriter, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.LogNoVideoID("failed to write JSON response", "error", err)
	}
}
