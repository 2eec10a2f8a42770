package handlers

import (
	"html/template"
	"net/http"

	"github.com/julienschmidt/httprouter"

	apierrors "github.com/splitcast/splitcast-api/errors"
)

var uploadPageTemplate = template.Must(template.New("upload").Parse(`<!DOCTYPE html>
<html>
<head><title>Upload Video</title></head>
<body>
  <h1>Upload a video</h1>
  <form method="post" action="/upload" enctype="multipart/form-data">
    <input type="file" name="video" accept="video/*" required>
    <button type="submit">Upload</button>
  </form>
</body>
</html>
`))

var watchPageTemplate = template.Must(template.New("watch").Parse(`<!DOCTYPE html>
<html>
<head>
  <title>Watch {{.VideoID}}</title>
  <script src="https://cdn.jsdelivr.net/npm/hls.js@latest"></script>
</head>
<body>
  <video id="player" controls autoplay></video>
  <p id="status">Checking status...</p>
  <script>
    var videoID = {{.VideoID}};
    var src = "/hls/" + videoID + "/master.m3u8";
    function attach() {
      var video = document.getElementById("player");
      document.getElementById("status").textContent = "";
      if (Hls.isSupported()) {
        var hls = new Hls();
        hls.loadSource(src);
        hls.attachMedia(video);
      } else if (video.canPlayType("application/vnd.apple.mpegurl")) {
        video.src = src;
      }
    }
    function poll() {
      fetch("/status/" + videoID).then(function (r) { return r.json(); }).then(function (s) {
        if (s.status === "ready") { attach(); return; }
        if (s.status === "error" || s.status === "not_found") {
          document.getElementById("status").textContent = "Status: " + s.status + (s.error ? " (" + s.error + ")" : "");
          return;
        }
        document.getElementById("status").textContent = "Status: " + s.status;
        setTimeout(poll, 3000);
      });
    }
    poll();
  </script>
</body>
</html>
`))

// RootRedirect sends browsers hitting the bare host to the upload form.
func (d *SplitcastAPIHandlersCollection) RootRedirect() httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		http.Redirect(w, req, "/upload", http.StatusFound)
	}
}

// UploadPage renders the browser upload form.
func (d *SplitcastAPIHandlersCollection) UploadPage() httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := uploadPageTemplate.Execute(w, nil); err != nil {
			apierrors.WriteHTTPInternalServerError(w, "Failed to render page", err)
		}
	}
}

// WatchPage renders a player shell that polls the status API and attaches
// an HLS player once the video is ready.
func (d *SplitcastAPIHandlersCollection) WatchPage() httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, params httprouter.Params) {
		videoID := params.ByName("videoID")
		if !videoIDPattern.MatchString(videoID) {
			apierrors.WriteHTTPBadRequest(w, "Invalid video ID format", nil)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := watchPageTemplate.Execute(w, struct{ VideoID string }{videoID}); err != nil {
			apierrors.WriteHTTPInternalServerError(w, "Failed to render page", err)
		}
	}
}
