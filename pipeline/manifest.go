package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/grafov/m3u8"

	"github.com/splitcast/splitcast-api/video"
)

const MasterManifestFilename = "master.m3u8"

// writeMasterManifest produces <hlsDir>/<videoID>/master.m3u8 listing the
// collected renditions ordered by height descending, so players pick the
// highest rung first. BANDWIDTH is the rendition's video bitrate in bits per
// second.
func (c *Coordinator) writeMasterManifest(videoID string, collected map[string]string) error {
	defer c.observePhase("manifest", time.Now())

	renditions := make([]video.Rendition, 0, len(collected))
	for _, r := range c.renditions {
		if _, ok := collected[r.Name]; ok {
			renditions = append(renditions, r)
		}
	}
	video.SortByHeightDesc(renditions)

	master := m3u8.NewMasterPlaylist()
	for _, r := range renditions {
		bandwidth, err := r.Bandwidth()
		if err != nil {
			return err
		}
		master.Append(collected[r.Name], &m3u8.MediaPlaylist{}, m3u8.VariantParams{
			Bandwidth:  bandwidth,
			Resolution: fmt.Sprintf("%dx%d", r.Height, r.Height),
			Name:       r.Name,
		})
	}

	path := filepath.Join(c.hlsDir, videoID, MasterManifestFilename)
	if err := os.WriteFile(path, master.Encode().Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
