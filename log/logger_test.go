package log

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoggerCacheReusesPerVideoLogger(t *testing.T) {
	first := getLogger("cache-test-id")
	second := getLogger("cache-test-id")
	require.NotNil(t, first)
	require.NotNil(t, second)

	cached, found := loggerCache.Get("cache-test-id")
	require.True(t, found)
	require.NotNil(t, cached)
}

func TestLoggingDoesNotPanicWithoutContext(t *testing.T) {
	require.NotPanics(t, func() {
		Log("some-id", "message", "key", "value")
		LogNoVideoID("message with no id")
		AddContext("some-id", "source", "http://example.com/video.mp4")
		Log("some-id", "another message")
	})
}
