package config

import "time"

var Version string

// Upload cap. Uploads of exactly this size succeed; one byte more is rejected.
var MaxSourceBytes int64 = 1024 * 1024 * 1024

// Advisory timeout passed to workers for one ffmpeg run. The polling deadline
// is derived from it, so raising this stretches the whole pipeline budget.
const DefaultFFmpegTimeout = 3600 * time.Second

// Extra slack on top of the worker timeout before the poll phase gives up on
// still-pending renditions.
const PollDeadlineGrace = 600 * time.Second

const PollInterval = 20 * time.Second

// Per-call timeout bounds for the worker client. Retry policy lives in the
// pipeline, so these must stay tight.
const (
	TriggerTimeout = 20 * time.Second
	StatusTimeout  = 15 * time.Second
	ListTimeout    = 20 * time.Second
	FetchTimeout   = 120 * time.Second
)

// MaxInFlightPipelines bounds concurrent video pipelines; uploads beyond it
// get 429 and the uploader retries.
var MaxInFlightPipelines = 8
