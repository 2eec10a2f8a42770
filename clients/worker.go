package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"

	"github.com/splitcast/splitcast-api/config"
	"github.com/splitcast/splitcast-api/metrics"
)

// Statuses a converter worker reports for a running job. Anything outside
// this set is treated by the pipeline as still-running.
const (
	WorkerStatusPending     = "pending"
	WorkerStatusProcessing  = "processing"
	WorkerStatusDownloading = "downloading"
	WorkerStatusCompleted   = "completed"
	WorkerStatusError       = "error"
)

// ConvertRequest is the payload POSTed to <worker>/convert. Timeout is the
// advisory bound, in seconds, for the worker's ffmpeg run.
type ConvertRequest struct {
	VideoID      string `json:"video_id"`
	SourceURL    string `json:"source_url"`
	TargetHeight int    `json:"target_height"`
	VideoBitrate string `json:"video_bitrate"`
	AudioBitrate string `json:"audio_bitrate"`
	Timeout      int    `json:"timeout"`
}

type workerResponse struct {
	Status string   `json:"status"`
	Error  string   `json:"error"`
	Files  []string `json:"files"`
}

// HTTPError reports a non-2xx response so the pipeline can dispatch on the
// code (404 during polling means the worker lost its state).
type HTTPError struct {
	Code int
	URL  string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d from %s", e.Code, e.URL)
}

// RejectedError is a worker answering /convert with anything other than
// processing_started.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	if e.Reason == "" {
		return "worker refused conversion: unknown error from converter"
	}
	return "worker refused conversion: " + e.Reason
}

// ErrMalformedResponse marks a response body that was not valid JSON.
var ErrMalformedResponse = errors.New("malformed worker response")

// IsTimeout reports whether the error was a transport or deadline timeout
// rather than a definitive worker answer.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// WorkerClient wraps the four HTTP operations of the converter contract.
// It never retries; retry policy belongs to the pipeline, which knows which
// phase it is in.
type WorkerClient struct {
	trigger *http.Client
	status  *http.Client
	list    *http.Client
	fetch   *http.Client
}

func NewWorkerClient() *WorkerClient {
	return &WorkerClient{
		trigger: &http.Client{Timeout: config.TriggerTimeout},
		status:  &http.Client{Timeout: config.StatusTimeout},
		list:    &http.Client{Timeout: config.ListTimeout},
		fetch:   &http.Client{Timeout: config.FetchTimeout},
	}
}

// StartConversion POSTs a job to <worker>/convert. The worker is only
// considered active on a processing_started answer.
func (c *WorkerClient) StartConversion(ctx context.Context, workerURL string, convertReq ConvertRequest) error {
	payload, err := json.Marshal(convertReq)
	if err != nil {
		return fmt.Errorf("failed to marshal convert request: %w", err)
	}

	url := workerURL + "/convert"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build convert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.trigger.Do(req)
	if err != nil {
		metrics.Metrics.WorkerRequestFailures.WithLabelValues("convert").Inc()
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.Metrics.WorkerRequestFailures.WithLabelValues("convert").Inc()
		return &HTTPError{Code: resp.StatusCode, URL: url}
	}

	var body workerResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		metrics.Metrics.WorkerRequestFailures.WithLabelValues("convert").Inc()
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if body.Status != "processing_started" {
		metrics.Metrics.WorkerRequestFailures.WithLabelValues("convert").Inc()
		return &RejectedError{Reason: body.Error}
	}
	return nil
}

// Status queries <worker>/status/<videoID> and returns the worker's reported
// status plus its error message, if any.
func (c *WorkerClient) Status(ctx context.Context, workerURL, videoID string) (status string, workerErr string, err error) {
	url := fmt.Sprintf("%s/status/%s", workerURL, videoID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", fmt.Errorf("failed to build status request: %w", err)
	}

	resp, err := c.status.Do(req)
	if err != nil {
		metrics.Metrics.WorkerRequestFailures.WithLabelValues("status").Inc()
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.Metrics.WorkerRequestFailures.WithLabelValues("status").Inc()
		return "", "", &HTTPError{Code: resp.StatusCode, URL: url}
	}

	var body workerResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		metrics.Metrics.WorkerRequestFailures.WithLabelValues("status").Inc()
		return "", "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return body.Status, body.Error, nil
}

// ListFiles retrieves the artifact filenames a completed worker holds for
// the video.
func (c *WorkerClient) ListFiles(ctx context.Context, workerURL, videoID string) ([]string, error) {
	url := fmt.Sprintf("%s/files/%s", workerURL, videoID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build file list request: %w", err)
	}

	resp, err := c.list.Do(req)
	if err != nil {
		metrics.Metrics.WorkerRequestFailures.WithLabelValues("list").Inc()
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.Metrics.WorkerRequestFailures.WithLabelValues("list").Inc()
		return nil, &HTTPError{Code: resp.StatusCode, URL: url}
	}

	var body workerResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		metrics.Metrics.WorkerRequestFailures.WithLabelValues("list").Inc()
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return body.Files, nil
}

// FetchFile streams <worker>/files/<videoID>/<filename> to dst. Segments can
// be large, so the copy uses a wide buffer and the generous fetch timeout.
func (c *WorkerClient) FetchFile(ctx context.Context, workerURL, videoID, filename, dst string) error {
	url := fmt.Sprintf("%s/files/%s/%s", workerURL, videoID, filename)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build file fetch request: %w", err)
	}

	resp, err := c.fetch.Do(req)
	if err != nil {
		metrics.Metrics.WorkerRequestFailures.WithLabelValues("fetch").Inc()
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.Metrics.WorkerRequestFailures.WithLabelValues("fetch").Inc()
		return &HTTPError{Code: resp.StatusCode, URL: url}
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	buf := make([]byte, 32*1024*4)
	if _, err := io.CopyBuffer(out, resp.Body, buf); err != nil {
		out.Close()
		metrics.Metrics.WorkerRequestFailures.WithLabelValues("fetch").Inc()
		return fmt.Errorf("failed to download %s: %w", url, err)
	}
	return out.Close()
}
