package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "video_status.json"))
}

func TestGetUnknownIDReturnsNotFound(t *testing.T) {
	s := newTestStore(t)

	rec, ok := s.Get("nope")
	require.False(t, ok)
	require.Equal(t, StatusNotFound, rec.Status)
	require.NotNil(t, rec.QualitiesDone)
}

func TestCreateThenUpdateProgressesStatus(t *testing.T) {
	s := newTestStore(t)
	s.Create("vid-1")

	rec, ok := s.Get("vid-1")
	require.True(t, ok)
	require.Equal(t, StatusUploaded, rec.Status)

	s.Update("vid-1", WithStatus(StatusDistributing))
	s.Update("vid-1", WithStatus(StatusPolling), WithQualityDone("360p"))

	rec, _ = s.Get("vid-1")
	require.Equal(t, StatusPolling, rec.Status)
	require.Equal(t, []string{"360p"}, rec.QualitiesDone)
}

func TestErrorAppendsAndNeverTruncates(t *testing.T) {
	s := newTestStore(t)
	s.Create("vid-1")

	s.Update("vid-1", WithError("first failure"))
	s.Update("vid-1", WithError("second failure"))
	s.Update("vid-1", WithError(""))

	rec, _ := s.Get("vid-1")
	require.Equal(t, "first failure\nsecond failure", rec.Error)
}

func TestQualitiesDoneHasNoDuplicates(t *testing.T) {
	s := newTestStore(t)
	s.Create("vid-1")

	s.Update("vid-1", WithQualityDone("480p"))
	s.Update("vid-1", WithQualityDone("480p"))
	s.Update("vid-1", WithQualityDone("360p"))

	rec, _ := s.Get("vid-1")
	require.Equal(t, []string{"480p", "360p"}, rec.QualitiesDone)
}

func TestTerminalStatusIsNeverRegressed(t *testing.T) {
	s := newTestStore(t)
	s.Create("vid-1")

	s.Update("vid-1", WithStatus(StatusReady), WithManifestPath("vid-1/master.m3u8"))
	s.Update("vid-1", WithStatus(StatusPolling))

	rec, _ := s.Get("vid-1")
	require.Equal(t, StatusReady, rec.Status)

	s.Update("vid-1", WithStatus(StatusError))
	rec, _ = s.Get("vid-1")
	require.Equal(t, StatusError, rec.Status)
}

func TestCopyOnReadProtectsStoreState(t *testing.T) {
	s := newTestStore(t)
	s.Create("vid-1")
	s.Update("vid-1", WithQualityDone("360p"))

	rec, _ := s.Get("vid-1")
	rec.QualitiesDone[0] = "mutated"
	rec.Status = StatusError

	fresh, _ := s.Get("vid-1")
	require.Equal(t, []string{"360p"}, fresh.QualitiesDone)
	require.Equal(t, StatusUploaded, fresh.Status)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "video_status.json")

	s := NewStore(path)
	s.Create("vid-1")
	s.Update("vid-1",
		WithStatus(StatusReady),
		WithQualityDone("720p"),
		WithQualityDone("360p"),
		WithManifestPath("vid-1/master.m3u8"),
		WithError("480p conversion failed: worker exploded"),
	)

	reloaded := NewStore(path)
	reloaded.Load()

	rec, ok := reloaded.Get("vid-1")
	require.True(t, ok)
	require.Equal(t, StatusReady, rec.Status)
	require.Equal(t, []string{"720p", "360p"}, rec.QualitiesDone)
	require.Equal(t, "vid-1/master.m3u8", rec.ManifestPath)
	require.Equal(t, "480p conversion failed: worker exploded", rec.Error)
}

func TestLoadToleratesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "video_status.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	s := NewStore(path)
	s.Load()

	_, ok := s.Get("anything")
	require.False(t, ok)

	// The bad file stays on disk for inspection.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "{not json", string(data))
}

func TestRemoveDeletesRecordAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "video_status.json")

	s := NewStore(path)
	s.Create("vid-1")
	s.Remove("vid-1")

	reloaded := NewStore(path)
	reloaded.Load()
	_, ok := reloaded.Get("vid-1")
	require.False(t, ok)
}

func TestFailInterruptedSweepsNonTerminalRecords(t *testing.T) {
	s := newTestStore(t)
	s.Create("stuck")
	s.Update("stuck", WithStatus(StatusPolling))
	s.Create("done")
	s.Update("done", WithStatus(StatusReady), WithManifestPath("done/master.m3u8"))

	failed := s.FailInterrupted()
	require.Equal(t, []string{"stuck"}, failed)

	rec, _ := s.Get("stuck")
	require.Equal(t, StatusError, rec.Status)
	require.Contains(t, rec.Error, "interrupted by server restart")

	rec, _ = s.Get("done")
	require.Equal(t, StatusReady, rec.Status)
}
