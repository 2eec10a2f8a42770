package handlers

import (
	"io"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/splitcast/splitcast-api/log"
)

func (d *SplitcastAPIHandlersCollection) Ok() httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
		if _, err := io.WriteString(w, "OK"); err != nil {
			log.LogNoVideoID("Failed to write HTTP response for " + req.URL.Path)
		}
	}
}
