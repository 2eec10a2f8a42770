package video

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Rendition describes one target output of the transcoding fan-out: a ladder
// rung with its label ("720p"), target height and bitrates. The bitrate fields
// keep the ffmpeg-style shorthand ("2800k") that the workers consume directly.
type Rendition struct {
	Name         string
	Height       int
	VideoBitrate string
	AudioBitrate string
}

// DefaultRenditions is the ladder used when no -renditions flag is given.
var DefaultRenditions = []Rendition{
	{Name: "360p", Height: 360, VideoBitrate: "800k", AudioBitrate: "96k"},
	{Name: "480p", Height: 480, VideoBitrate: "1400k", AudioBitrate: "128k"},
	{Name: "720p", Height: 720, VideoBitrate: "2800k", AudioBitrate: "128k"},
}

// Bandwidth returns the rendition's video bitrate in bits per second, as
// required for the BANDWIDTH attribute of a master playlist entry.
func (r Rendition) Bandwidth() (uint32, error) {
	s := strings.TrimSpace(r.VideoBitrate)
	mult := 1
	switch {
	case strings.HasSuffix(s, "k"), strings.HasSuffix(s, "K"):
		mult = 1000
		s = s[:len(s)-1]
	case strings.HasSuffix(s, "m"), strings.HasSuffix(s, "M"):
		mult = 1000000
		s = s[:len(s)-1]
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid video bitrate %q for rendition %s", r.VideoBitrate, r.Name)
	}
	return uint32(n * mult), nil
}

// ParseRenditions parses a comma separated list of rendition specs in the form
// label:height:videoBitrate:audioBitrate, e.g. "360p:360:800k:96k".
func ParseRenditions(s string) ([]Rendition, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("empty renditions spec")
	}
	var out []Rendition
	seen := map[string]bool{}
	for _, part := range strings.Split(s, ",") {
		fields := strings.Split(strings.TrimSpace(part), ":")
		if len(fields) != 4 {
			return nil, fmt.Errorf("invalid rendition spec %q, want label:height:vbitrate:abitrate", part)
		}
		height, err := strconv.Atoi(fields[1])
		if err != nil || height <= 0 {
			return nil, fmt.Errorf("invalid height in rendition spec %q", part)
		}
		r := Rendition{
			Name:         fields[0],
			Height:       height,
			VideoBitrate: fields[2],
			AudioBitrate: fields[3],
		}
		if r.Name == "" {
			return nil, fmt.Errorf("empty label in rendition spec %q", part)
		}
		if seen[r.Name] {
			return nil, fmt.Errorf("duplicate rendition label %q", r.Name)
		}
		if _, err := r.Bandwidth(); err != nil {
			return nil, err
		}
		seen[r.Name] = true
		out = append(out, r)
	}
	return out, nil
}

// SortByHeightDesc orders renditions highest-first, the order master playlist
// entries are written in so players pick the best rung available.
func SortByHeightDesc(renditions []Rendition) {
	sort.Slice(renditions, func(a, b int) bool {
		return renditions[a].Height > renditions[b].Height
	})
}
