package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/julienschmidt/httprouter"

	apierrors "github.com/splitcast/splitcast-api/errors"
	"github.com/splitcast/splitcast-api/log"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// DownloadSource serves the uploaded source file to converter workers. The
// file is located by ID prefix since the extension is chosen at upload time;
// exactly one match must exist.
func (d *SplitcastAPIHandlersCollection) DownloadSource() httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, params httprouter.Params) {
		videoID := params.ByName("videoID")
		if !videoIDPattern.MatchString(videoID) {
			apierrors.WriteHTTPBadRequest(w, "Invalid video ID format", nil)
			return
		}

		rec, known := d.Store.Get(videoID)
		if !known {
			apierrors.WriteHTTPNotFound(w, "Video ID not found", nil)
			return
		}

		entries, err := os.ReadDir(d.UploadDir)
		if err != nil {
			apierrors.WriteHTTPInternalServerError(w, "Error accessing upload directory", err)
			return
		}

		var matches []string
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if strings.HasPrefix(entry.Name(), videoID+".") {
				matches = append(matches, entry.Name())
			}
		}

		switch len(matches) {
		case 0:
			if !rec.Status.Terminal() {
				// The record says processing is in flight but the bytes the
				// workers need are gone.
				log.Log(videoID, "source file missing while record is non-terminal", "status", string(rec.Status))
				apierrors.WriteHTTPInternalServerError(w, "Source file inconsistency detected", nil)
				return
			}
			apierrors.WriteHTTPNotFound(w, "Source video file not found or already processed", nil)
			return
		case 1:
		default:
			log.Log(videoID, "multiple source files found", "matches", strings.Join(matches, ","))
			apierrors.WriteHTTPInternalServerError(w, "Source file ambiguity error", nil)
			return
		}

		path := filepath.Join(d.UploadDir, matches[0])
		info, err := os.Stat(path)
		if err != nil {
			apierrors.WriteHTTPInternalServerError(w, "Error accessing source file", err)
			return
		}
		if info.Size() == 0 {
			apierrors.WriteHTTPInternalServerError(w, "Source file is empty", nil)
			return
		}

		log.Log(videoID, "serving source file", "path", path, "size", info.Size())
		http.ServeFile(w, req, path)
	}
}
