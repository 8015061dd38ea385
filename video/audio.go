package video

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"
	"github.com/voforge/voforge-api/subprocess"
)

const narrationSampleRate = 48000

// GenerateSilence writes a stereo pcm_s16le wav of the given duration.
func GenerateSilence(ctx context.Context, outPath string, durationMS int64) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return err
	}
	durationS := float64(durationMS) / 1000.0
	if durationS < 0.001 {
		durationS = 0.001
	}

	cmd := ffmpeg.Input(fmt.Sprintf("anullsrc=r=%d:cl=stereo", narrationSampleRate), ffmpeg.KwArgs{"f": "lavfi"}).
		Output(outPath, ffmpeg.KwArgs{
			"t":   fmt.Sprintf("%.3f", durationS),
			"c:a": "pcm_s16le",
		}).
		OverWriteOutput().
		Compile()
	if _, err := subprocess.Run(ctx, cmd); err != nil {
		return fmt.Errorf("ffmpeg silence wav failed: %w", err)
	}
	return nil
}

// TrimToDuration trims a wav to maxMS, applying a short fade-out so the cut
// is not audible. Returns the new duration in milliseconds.
func TrimToDuration(ctx context.Context, prober Prober, path string, maxMS int64) (int64, error) {
	if maxMS <= 0 {
		maxMS = 1
	}
	maxS := float64(maxMS) / 1000.0
	fadeS := 0.025
	if half := maxS / 2; fadeS > half {
		fadeS = half
	}
	if fadeS < 0 {
		fadeS = 0
	}

	filters := []string{
		fmt.Sprintf("atrim=end=%.3f", maxS),
		"asetpts=N/SR/TB",
	}
	if fadeS > 0 {
		start := maxS - fadeS
		if start < 0 {
			start = 0
		}
		filters = append(filters, fmt.Sprintf("afade=t=out:d=%.3f:st=%.3f", fadeS, start))
	}

	tmp := strings.TrimSuffix(path, filepath.Ext(path)) + ".trim.wav"
	cmd := ffmpeg.Input(path).
		Output(tmp, ffmpeg.KwArgs{
			"af":  strings.Join(filters, ","),
			"c:a": "pcm_s16le",
		}).
		OverWriteOutput().
		Compile()
	if _, err := subprocess.Run(ctx, cmd); err != nil {
		return 0, fmt.Errorf("ffmpeg trim audio failed: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return 0, err
	}

	info, err := prober.ProbeMedia(ctx, path)
	if err != nil {
		return 0, err
	}
	return info.DurationMS, nil
}

// PostprocessNarration runs the best-effort cleanup pass on generated
// narration audio: remove leading silence, normalize loudness and soft-limit
// to reduce clipping risk. Failures leave the input untouched.
func PostprocessNarration(ctx context.Context, path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}

	filters := strings.Join([]string{
		"silenceremove=start_periods=1:start_duration=0.02:start_threshold=-50dB",
		"loudnorm=I=-16:TP=-1.5:LRA=11",
		"alimiter=limit=-1.0",
	}, ",")

	tmp := strings.TrimSuffix(path, filepath.Ext(path)) + ".post.wav"
	cmd := ffmpeg.Input(path).
		Output(tmp, ffmpeg.KwArgs{
			"af":  filters,
			"c:a": "pcm_s16le",
		}).
		OverWriteOutput().
		Compile()
	if _, err := subprocess.Run(ctx, cmd); err != nil {
		_ = os.Remove(tmp)
		return
	}
	if _, err := os.Stat(tmp); err == nil {
		_ = os.Rename(tmp, path)
	}
}
