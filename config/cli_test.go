package config

import (
	"flag"
	"testing"

	"github.com/splitcast/splitcast-api/video"
	"github.com/stretchr/testify/require"
)

func TestCommaMapFlag(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var dest map[string]string
	CommaMapFlag(fs, &dest, "workers", map[string]string{}, "")

	require.NoError(t, fs.Parse([]string{"-workers", "360p=http://one:9000,720p=http://two:9000"}))
	require.Equal(t, map[string]string{
		"360p": "http://one:9000",
		"720p": "http://two:9000",
	}, dest)
}

func TestCommaMapFlagRejectsBarePairs(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var dest map[string]string
	CommaMapFlag(fs, &dest, "workers", map[string]string{}, "")

	require.Error(t, fs.Parse([]string{"-workers", "360p"}))
}

func TestRenditionsFlagDefault(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var dest []video.Rendition
	RenditionsFlag(fs, &dest, "renditions", video.DefaultRenditions, "")

	require.NoError(t, fs.Parse(nil))
	require.Equal(t, video.DefaultRenditions, dest)
}

func TestValidateRequiresWorkerPerRendition(t *testing.T) {
	cli := Cli{
		Renditions: video.DefaultRenditions,
		Workers: map[string]string{
			"360p": "http://one:9000",
			"480p": "http://two:9000",
		},
	}
	require.ErrorContains(t, cli.Validate(), "720p")

	cli.Workers["720p"] = "not-a-url"
	require.ErrorContains(t, cli.Validate(), "not absolute")

	cli.Workers["720p"] = "http://three:9000"
	require.NoError(t, cli.Validate())
}
