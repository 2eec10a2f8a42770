// Package store holds the per-video processing state: a mutex-guarded map
// mirrored to a JSON file after every mutation. It is the only shared mutable
// state in the process; handlers read copies, the owning pipeline goroutine
// writes through Update.
package store

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/splitcast/splitcast-api/log"
)

type Status string

const (
	StatusUploaded     Status = "uploaded"
	StatusDistributing Status = "distributing"
	StatusPolling      Status = "polling"
	StatusCollecting   Status = "collecting"
	StatusManifesting  Status = "manifesting"
	StatusReady        Status = "ready"
	StatusError        Status = "error"

	// Returned to API callers for unknown IDs; never stored.
	StatusNotFound Status = "not_found"
)

func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusError
}

// Record is the persistent state of one video. Error accumulates newline
// joined diagnostics and only ever grows within a processing attempt.
type Record struct {
	Status        Status   `json:"status"`
	Error         string   `json:"error,omitempty"`
	QualitiesDone []string `json:"qualities_done"`
	ManifestPath  string   `json:"manifest_path,omitempty"`
}

func (r *Record) clone() Record {
	out := *r
	out.QualitiesDone = append([]string(nil), r.QualitiesDone...)
	return out
}

type Store struct {
	mu      sync.Mutex
	records map[string]*Record
	path    string
}

func NewStore(path string) *Store {
	return &Store{
		records: map[string]*Record{},
		path:    path,
	}
}

// Load reads the status file if it exists. A corrupt file is logged and left
// in place; the store starts empty rather than refusing to boot.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		log.LogNoVideoID("status file not found, starting fresh", "path", s.path)
		return
	}
	if err != nil {
		log.LogNoVideoID("failed to read status file, starting fresh", "path", s.path, "error", err)
		return
	}

	records := map[string]*Record{}
	if err := json.Unmarshal(data, &records); err != nil {
		log.LogNoVideoID("failed to parse status file, starting fresh", "path", s.path, "error", err)
		return
	}
	s.records = records
	log.LogNoVideoID("loaded video status", "path", s.path, "videos", len(records))
}

// Get returns a copy of the record, so callers never observe a half-applied
// transition.
func (s *Store) Get(videoID string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[videoID]
	if !ok {
		return Record{Status: StatusNotFound, QualitiesDone: []string{}}, false
	}
	return rec.clone(), true
}

// Create registers a fresh record. The record exists from the moment the
// source file is durably written until it is explicitly removed.
func (s *Store) Create(videoID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[videoID] = &Record{Status: StatusUploaded, QualitiesDone: []string{}}
	s.persistLocked()
}

// Remove deletes a record, used when an upload is aborted before its pipeline
// starts.
func (s *Store) Remove(videoID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, videoID)
	s.persistLocked()
}

// An UpdateOpt mutates one field of a record inside the store lock.
type UpdateOpt func(*Record)

// WithStatus moves the record through the state machine. Terminal states are
// never regressed to non-terminal ones.
func WithStatus(status Status) UpdateOpt {
	return func(r *Record) {
		if r.Status.Terminal() && !status.Terminal() {
			return
		}
		r.Status = status
	}
}

// WithError appends a diagnostic. Existing messages are kept, joined by
// newline.
func WithError(msg string) UpdateOpt {
	return func(r *Record) {
		if msg == "" {
			return
		}
		if r.Error != "" {
			r.Error = r.Error + "\n" + msg
			return
		}
		r.Error = msg
	}
}

// WithQualityDone records one collected rendition label. Duplicates are
// ignored.
func WithQualityDone(label string) UpdateOpt {
	return func(r *Record) {
		for _, q := range r.QualitiesDone {
			if q == label {
				return
			}
		}
		r.QualitiesDone = append(r.QualitiesDone, label)
	}
}

func WithManifestPath(path string) UpdateOpt {
	return func(r *Record) {
		r.ManifestPath = path
	}
}

// Update is the single mutation entry point. All opts are applied under one
// lock acquisition and the whole map is rewritten to disk before the lock is
// released, so readers and the file always see whole transitions.
func (s *Store) Update(videoID string, opts ...UpdateOpt) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[videoID]
	if !ok {
		rec = &Record{Status: StatusUploaded, QualitiesDone: []string{}}
		s.records[videoID] = rec
	}
	for _, opt := range opts {
		opt(rec)
	}
	s.persistLocked()
}

// FailInterrupted marks every non-terminal record as errored. Called once on
// startup: the pipeline goroutines that owned those records died with the
// previous process and the workers are not guaranteed to still hold state
// for the IDs.
func (s *Store) FailInterrupted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var failed []string
	for id, rec := range s.records {
		if rec.Status.Terminal() {
			continue
		}
		WithStatus(StatusError)(rec)
		WithError("processing interrupted by server restart")(rec)
		failed = append(failed, id)
	}
	if len(failed) > 0 {
		s.persistLocked()
	}
	return failed
}

func (s *Store) persistLocked() {
	data, err := json.MarshalIndent(s.records, "", "    ")
	if err != nil {
		log.LogNoVideoID("failed to marshal video status", "error", err)
		return
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		log.LogNoVideoID("failed to save status file", "path", s.path, "error", err)
	}
}
