package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/julienschmidt/httprouter"

	apierrors "github.com/splitcast/splitcast-api/errors"
)

var hlsContentTypes = map[string]string{
	".m3u8": "application/vnd.apple.mpegurl",
	".ts":   "video/mp2t",
}

// ServeHLS serves manifests and segments from the per-video HLS output tree.
// Paths are resolved under HLSDir and anything that escapes it is rejected.
func (d *SplitcastAPIHandlersCollection) ServeHLS() httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, params httprouter.Params) {
		videoID := params.ByName("videoID")
		if !videoIDPattern.MatchString(videoID) {
			apierrors.WriteHTTPBadRequest(w, "Invalid video ID format", nil)
			return
		}

		rel := strings.TrimPrefix(params.ByName("filepath"), "/")
		if rel == "" || strings.Contains(rel, "..") {
			apierrors.WriteHTTPBadRequest(w, "Invalid file path", nil)
			return
		}

		root, err := filepath.Abs(filepath.Join(d.HLSDir, videoID))
		if err != nil {
			apierrors.WriteHTTPInternalServerError(w, "Error resolving HLS directory", err)
			return
		}
		path, err := filepath.Abs(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil || !strings.HasPrefix(path, root+string(os.PathSeparator)) {
			apierrors.WriteHTTPBadRequest(w, "Invalid file path", nil)
			return
		}

		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			apierrors.WriteHTTPNotFound(w, "File not found", err)
			return
		}

		if ct, ok := hlsContentTypes[strings.ToLower(filepath.Ext(path))]; ok {
			w.Header().Set("Content-Type", ct)
		}
		http.ServeFile(w, req, path)
	}
}
