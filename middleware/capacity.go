package middleware

import (
	"net/http"
	"sync/atomic"

	"github.com/julienschmidt/httprouter"

	"github.com/splitcast/splitcast-api/config"
	"github.com/splitcast/splitcast-api/errors"
	"github.com/splitcast/splitcast-api/metrics"
	"github.com/splitcast/splitcast-api/pipeline"
)

type CapacityMiddleware struct {
	uploadRequestsInFlight atomic.Int64
}

// HasCapacity rejects new uploads with HTTP 429 once the number of running
// pipelines plus uploads still in their handler reaches the configured cap.
func (c *CapacityMiddleware) HasCapacity(engine *pipeline.Coordinator, next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		metrics.Metrics.HTTPRequestsInFlight.Add(1)
		defer metrics.Metrics.HTTPRequestsInFlight.Add(-1)

		inFlightReqs := c.uploadRequestsInFlight.Add(1)
		defer c.uploadRequestsInFlight.Add(-1)

		if int(engine.InFlight())+int(inFlightReqs)-1 >= config.MaxInFlightPipelines {
			errors.WriteHTTPTooManyRequests(w, "Too many videos processing, try again later", nil)
			return
		}

		next(w, r, ps)
	}
}
