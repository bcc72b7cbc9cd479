package transcoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"media-renditions/internal/logging"
)

// Info describes a probed video source. Width is corrected for
// anamorphic sources using the sample aspect ratio, and Aspect is the
// display aspect ratio used for output sizing.
type Info struct {
	Duration float64
	Width    int
	Height   int
	Aspect   float64
}

type probeOutput struct {
	Streams []struct {
		CodecType          string `json:"codec_type"`
		Width              int    `json:"width"`
		Height             int    `json:"height"`
		SampleAspectRatio  string `json:"sample_aspect_ratio"`
		DisplayAspectRatio string `json:"display_aspect_ratio"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe reads dimensions, aspect ratio and duration from a video file
// using ffprobe.
func (t *Transcoder) Probe(ctx context.Context, path string) (*Info, error) {
	cmd := exec.CommandContext(ctx, t.FFprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe error: %w - %s", err, stderr.String())
	}

	var out probeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("parsing ffprobe output: %w", err)
	}

	info := &Info{}
	info.Duration, _ = strconv.ParseFloat(out.Format.Duration, 64)

	for _, s := range out.Streams {
		if s.CodecType != "video" {
			continue
		}
		info.Width = s.Width
		info.Height = s.Height

		// Anamorphic sources store a non-square sample aspect ratio;
		// correct the width so sizing math works on display pixels
		if n, d, ok := parseRatio(s.SampleAspectRatio); ok && n != d {
			info.Width = s.Width * n / d
		}
		if n, d, ok := parseRatio(s.DisplayAspectRatio); ok {
			info.Aspect = float64(n) / float64(d)
		}
		break
	}

	if info.Width == 0 || info.Height == 0 {
		return nil, fmt.Errorf("no video stream found in %s", path)
	}
	if info.Aspect == 0 {
		info.Aspect = float64(info.Width) / float64(info.Height)
	}

	logging.Debug("Probed %s: %dx%d aspect %.3f duration %.1fs",
		path, info.Width, info.Height, info.Aspect, info.Duration)
	return info, nil
}

func parseRatio(s string) (int, int, bool) {
	num, den, found := strings.Cut(s, ":")
	if !found {
		return 0, 0, false
	}
	n, err1 := strconv.Atoi(num)
	d, err2 := strconv.Atoi(den)
	if err1 != nil || err2 != nil || n <= 0 || d <= 0 {
		return 0, 0, false
	}
	return n, d, true
}
