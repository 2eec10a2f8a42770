package handlers

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// Status returns the record for the viewer page's polling loop. Unknown IDs
// get a not_found record with HTTP 200 so the client keeps one contract for
// every answer.
func (d *SplitcastAPIHandlersCollection) Status() httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, params httprouter.Params) {
		rec, _ := d.Store.Get(params.ByName("videoID"))
		writeJSON(w, rec)
	}
}
