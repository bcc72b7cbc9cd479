package transcoder

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"media-renditions/internal/logging"
	"media-renditions/internal/metrics"
	"media-renditions/internal/profile"
)

// Transcoder invokes external encoder binaries to produce video
// derivatives and poster frames. Binary paths are injectable so tests
// can substitute stub executables.
type Transcoder struct {
	FFmpegPath  string
	FFprobePath string

	// FLVToolPath, when set, post-processes flv output with a metadata
	// update pass. Empty disables the fixup.
	FLVToolPath string
}

// New creates a transcoder using the given binary paths.
func New(ffmpegPath, ffprobePath, flvToolPath string) *Transcoder {
	return &Transcoder{
		FFmpegPath:  ffmpegPath,
		FFprobePath: ffprobePath,
		FLVToolPath: flvToolPath,
	}
}

var vpxFlags = []string{
	"-qcomp", "0.6",
	"-g", "360",
	"-qmin", "0",
	"-qmax", "60",
	"-quality", "best",
	"-rc_lookahead", "16",
}

// Transcode encodes src into dst according to the video profile and the
// resolved output geometry. Two-pass profiles run an analysis pass into
// a null sink first. A nonzero exit or a zero-byte output fails the
// transcode; partial output files are always removed on failure.
func (t *Transcoder) Transcode(ctx context.Context, src, dst string, p *profile.Profile, size Size) error {
	if p.Video == nil {
		return fmt.Errorf("profile %q has no video parameters", p.Name)
	}
	container := string(p.Video.Type)
	start := time.Now()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating cache directory for %s: %w", dst, err)
	}

	twoPass := p.Video.TwoPass && supportsTwoPass(p.Video.Type)
	passLog := dst + ".2pass"
	if twoPass {
		defer cleanupPassLogs(passLog)
	}

	if twoPass {
		args := t.buildArgs(src, os.DevNull, p, size, 1, passLog)
		if err := t.runFFmpeg(ctx, args); err != nil {
			return fmt.Errorf("%s pass 1: %w", container, err)
		}
	}

	finalPass := 0
	if twoPass {
		finalPass = 2
	}
	args := t.buildArgs(src, dst, p, size, finalPass, passLog)
	if err := t.runFFmpeg(ctx, args); err != nil {
		removePartial(dst)
		return fmt.Errorf("%s encode: %w", container, err)
	}

	if p.Video.Type == profile.VideoFLV && t.FLVToolPath != "" {
		if err := t.runCommand(ctx, t.FLVToolPath, "-U", dst); err != nil {
			removePartial(dst)
			return fmt.Errorf("flv metadata fixup: %w", err)
		}
	}

	fi, err := os.Stat(dst)
	if err != nil {
		return fmt.Errorf("%s encode produced no output: %w", container, err)
	}
	if fi.Size() == 0 {
		removePartial(dst)
		return fmt.Errorf("%s encode produced a zero-byte file", container)
	}

	metrics.TranscodeDuration.WithLabelValues(container).Observe(time.Since(start).Seconds())
	logging.Info("Transcoded %s -> %s (%dx%d) in %v",
		filepath.Base(src), filepath.Base(dst), size.Width, size.Height, time.Since(start))
	return nil
}

// buildArgs assembles the ffmpeg command line for one pass. pass is 0
// for single-pass, 1 for the analysis pass and 2 for the final pass.
// Argument order is deterministic for a given profile and size.
func (t *Transcoder) buildArgs(src, dst string, p *profile.Profile, size Size, pass int, passLog string) []string {
	v := p.Video
	args := []string{"-y", "-i", src}

	switch v.Type {
	case profile.VideoMP4:
		args = append(args, "-vcodec", "libx264")
	case profile.VideoOGV:
		args = append(args, "-vcodec", "libtheora")
	case profile.VideoWebM:
		args = append(args, "-vcodec", "libvpx", "-slices", "2")
		args = append(args, vpxFlags...)
	case profile.VideoFLV:
		args = append(args, "-f", "flv")
	}

	if v.VideoBitrate > 0 {
		args = append(args, "-b:v", fmt.Sprintf("%dk", v.VideoBitrate))
	}

	if pass == 1 {
		args = append(args, "-an", "-pass", "1", "-passlogfile", passLog)
	} else {
		args = append(args, t.audioArgs(v)...)
		if pass == 2 {
			args = append(args, "-pass", "2", "-passlogfile", passLog)
		}
	}

	if vf := videoFilter(v, size); vf != "" {
		args = append(args, "-vf", vf)
	}
	args = append(args, "-s", fmt.Sprintf("%dx%d", size.Width, size.Height))

	if pass == 1 {
		args = append(args, "-f", "rawvideo")
	}
	return append(args, dst)
}

func (t *Transcoder) audioArgs(v *profile.VideoParams) []string {
	if v.AudioBitrate == 0 {
		return []string{"-an"}
	}
	ab := fmt.Sprintf("%dk", v.AudioBitrate)
	switch v.Type {
	case profile.VideoMP4:
		return []string{"-acodec", "aac", "-ac", "2", "-b:a", ab}
	case profile.VideoOGV, profile.VideoWebM:
		return []string{"-acodec", "libvorbis", "-ac", "2", "-b:a", ab}
	case profile.VideoFLV:
		return []string{"-acodec", "libmp3lame", "-ar", "22050", "-b:a", ab}
	}
	return nil
}

// videoFilter chains deinterlacing before padding so the bars stay clean.
func videoFilter(v *profile.VideoParams, size Size) string {
	var filters []string
	if v.Deinterlace {
		filters = append(filters, "yadif")
	}
	if size.PadFilter != "" {
		filters = append(filters, size.PadFilter)
	}
	return strings.Join(filters, ",")
}

func supportsTwoPass(vt profile.VideoType) bool {
	return vt == profile.VideoMP4 || vt == profile.VideoWebM
}

func (t *Transcoder) runFFmpeg(ctx context.Context, args []string) error {
	return t.runCommand(ctx, t.FFmpegPath, args...)
}

func (t *Transcoder) runCommand(ctx context.Context, bin string, args ...string) error {
	logging.Debug("Running %s %s", bin, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 2000 {
			msg = msg[len(msg)-2000:]
		}
		return fmt.Errorf("%s: %w - %s", filepath.Base(bin), err, msg)
	}
	return nil
}

func removePartial(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logging.Error("Failed to remove partial output %s: %v", path, err)
	}
}

func cleanupPassLogs(passLog string) {
	matches, err := filepath.Glob(passLog + "*")
	if err != nil {
		return
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			logging.Debug("Failed to remove pass log %s: %v", m, err)
		}
	}
}
