package clients

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStartConversionSendsContractPayload(t *testing.T) {
	var received ConvertRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/convert", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "processing_started"})
	}))
	defer ts.Close()

	client := NewWorkerClient()
	err := client.StartConversion(context.Background(), ts.URL, ConvertRequest{
		VideoID:      "vid-1",
		SourceURL:    "http://example.com/download_source/vid-1",
		TargetHeight: 720,
		VideoBitrate: "2800k",
		AudioBitrate: "128k",
		Timeout:      3600,
	})
	require.NoError(t, err)
	require.Equal(t, "vid-1", received.VideoID)
	require.Equal(t, 720, received.TargetHeight)
	require.Equal(t, "2800k", received.VideoBitrate)
	require.Equal(t, 3600, received.Timeout)
}

func TestStartConversionRejection(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": "ffmpeg not installed"})
	}))
	defer ts.Close()

	err := NewWorkerClient().StartConversion(context.Background(), ts.URL, ConvertRequest{VideoID: "vid-1"})
	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	require.Contains(t, rejected.Error(), "ffmpeg not installed")
}

func TestStartConversionHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	err := NewWorkerClient().StartConversion(context.Background(), ts.URL, ConvertRequest{VideoID: "vid-1"})
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusInternalServerError, httpErr.Code)
}

func TestStatusReportsWorkerState(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/status/vid-1", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": "input corrupt"})
	}))
	defer ts.Close()

	status, workerErr, err := NewWorkerClient().Status(context.Background(), ts.URL, "vid-1")
	require.NoError(t, err)
	require.Equal(t, WorkerStatusError, status)
	require.Equal(t, "input corrupt", workerErr)
}

func TestStatusMalformedJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer ts.Close()

	_, _, err := NewWorkerClient().Status(context.Background(), ts.URL, "vid-1")
	require.True(t, errors.Is(err, ErrMalformedResponse))
}

func TestStatus404IsHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	_, _, err := NewWorkerClient().Status(context.Background(), ts.URL, "vid-1")
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusNotFound, httpErr.Code)
}

func TestListFiles(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/files/vid-1", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string][]string{"files": {"playlist.m3u8", "segment000.ts"}})
	}))
	defer ts.Close()

	files, err := NewWorkerClient().ListFiles(context.Background(), ts.URL, "vid-1")
	require.NoError(t, err)
	require.Equal(t, []string{"playlist.m3u8", "segment000.ts"}, files)
}

func TestFetchFileStreamsToDisk(t *testing.T) {
	content := []byte("segment bytes here")
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/files/vid-1/segment000.ts", r.URL.Path)
		_, _ = w.Write(content)
	}))
	defer ts.Close()

	dst := filepath.Join(t.TempDir(), "segment000.ts")
	require.NoError(t, NewWorkerClient().FetchFile(context.Background(), ts.URL, "vid-1", "segment000.ts", dst))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, content, got)
}

func TestFetchFileHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	dst := filepath.Join(t.TempDir(), "out.ts")
	err := NewWorkerClient().FetchFile(context.Background(), ts.URL, "vid-1", "out.ts", dst)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusBadGateway, httpErr.Code)
}

func TestIsTimeout(t *testing.T) {
	require.True(t, IsTimeout(context.DeadlineExceeded))
	require.False(t, IsTimeout(errors.New("connection refused")))
	require.False(t, IsTimeout(nil))
}
