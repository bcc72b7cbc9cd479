package transcoder

import (
	"context"
	"fmt"
	"os"
	"time"

	"media-renditions/internal/logging"
	"media-renditions/internal/metrics"
)

// ExtractPoster grabs a single PNG frame from src at the given offset
// into the video. An offset at or past the end of the clip falls back
// to the midpoint so short videos still get a representative frame.
func (t *Transcoder) ExtractPoster(ctx context.Context, src, dst string, info *Info, offset time.Duration, deinterlace bool) error {
	seek := offset.Seconds()
	if info.Duration > 0 && seek >= info.Duration {
		seek = info.Duration / 2
	}

	args := []string{
		"-y",
		"-ss", fmt.Sprintf("%.3f", seek),
		"-i", src,
		"-vframes", "1",
		"-an",
	}
	if deinterlace {
		args = append(args, "-vf", "yadif")
	}
	args = append(args, "-vcodec", "png", dst)

	if err := t.runFFmpeg(ctx, args); err != nil {
		removePartial(dst)
		metrics.PostersExtracted.WithLabelValues("error").Inc()
		return fmt.Errorf("poster extraction: %w", err)
	}

	fi, err := os.Stat(dst)
	if err != nil || fi.Size() == 0 {
		removePartial(dst)
		metrics.PostersExtracted.WithLabelValues("error").Inc()
		return fmt.Errorf("poster extraction produced no output for %s", src)
	}

	metrics.PostersExtracted.WithLabelValues("success").Inc()
	logging.Debug("Extracted poster %s at %.1fs", dst, seek)
	return nil
}
