package handlers

import (
	"github.com/splitcast/splitcast-api/pipeline"
	"github.com/splitcast/splitcast-api/store"
)

// SplitcastAPIHandlersCollection carries the dependencies shared by the HTTP
// handlers: the pipeline engine, the status store and the two artifact
// directories.
type SplitcastAPIHandlersCollection struct {
	Pipeline  *pipeline.Coordinator
	Store     *store.Store
	UploadDir string
	HLSDir    string
}
