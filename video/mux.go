package video

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/voforge/voforge-api/subprocess"
)

// MixSegment is one narration segment placed on the output audio timeline.
type MixSegment struct {
	StartMS int64
	EndMS   int64
}

// BuildFilterScript renders the filter_complex script that trims, delays and
// mixes every segment wav onto a single narration track bounded by the video
// duration.
func BuildFilterScript(segments []MixSegment, totalDurationMS int64) string {
	lines := make([]string, 0, len(segments)+2)
	for i, seg := range segments {
		delay := seg.StartMS
		durationMS := seg.EndMS - seg.StartMS
		if durationMS < 1 {
			durationMS = 1
		}
		durationS := float64(durationMS) / 1000.0
		lines = append(lines, fmt.Sprintf(
			"[%d:a]atrim=end=%.3f,asetpts=N/SR/TB,adelay=%d|%d,apad[a%d];",
			i, durationS, delay, delay, i,
		))
	}

	var mixInputs strings.Builder
	for i := range segments {
		mixInputs.WriteString(fmt.Sprintf("[a%d]", i))
	}
	lines = append(lines, fmt.Sprintf(
		"%samix=inputs=%d:dropout_transition=0:normalize=0[aout];",
		mixInputs.String(), len(segments),
	))

	endS := float64(totalDurationMS) / 1000.0
	lines = append(lines, fmt.Sprintf("[aout]atrim=end=%.3f,asetpts=N/SR/TB[narr]", endS))
	return strings.Join(lines, "\n")
}

// WriteFilterScript writes the filter script to disk for ffmpeg's
// -filter_complex_script and for export provenance.
func WriteFilterScript(segments []MixSegment, outPath string, totalDurationMS int64) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return err
	}
	return os.WriteFile(outPath, []byte(BuildFilterScript(segments, totalDurationMS)), 0644)
}

// MixNarration mixes the per-segment wavs into a single 48kHz stereo
// narration wav. The -map order is load-bearing, so the argv is built by
// hand rather than through ffmpeg-go kwargs.
func MixNarration(ctx context.Context, segmentWavs []string, filterScript, outWav string) ([]string, error) {
	if err := os.MkdirAll(filepath.Dir(outWav), 0755); err != nil {
		return nil, err
	}
	args := []string{"-y"}
	for _, wav := range segmentWavs {
		args = append(args, "-i", wav)
	}
	args = append(args,
		"-filter_complex_script", filterScript,
		"-map", "[narr]",
		"-ar", fmt.Sprintf("%d", narrationSampleRate), "-ac", "2",
		"-c:a", "pcm_s16le",
		outWav,
	)
	res, err := subprocess.Run(ctx, subprocess.Command(ctx, "ffmpeg", args...))
	if err != nil {
		return res.Args, fmt.Errorf("ffmpeg mix narration failed: %w", err)
	}
	return res.Args, nil
}

// MuxFinal muxes the source video stream with the narration track, copying
// video and encoding narration to AAC.
func MuxFinal(ctx context.Context, inputMP4, narrationWav, outMP4 string) ([]string, error) {
	if err := os.MkdirAll(filepath.Dir(outMP4), 0755); err != nil {
		return nil, err
	}
	args := []string{
		"-y",
		"-i", inputMP4,
		"-i", narrationWav,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac", "-b:a", "192k",
		"-shortest",
		outMP4,
	}
	res, err := subprocess.Run(ctx, subprocess.Command(ctx, "ffmpeg", args...))
	if err != nil {
		return res.Args, fmt.Errorf("ffmpeg mux final failed: %w", err)
	}
	return res.Args, nil
}

// AttachCaptions embeds the SRT track into the mp4 container as mov_text.
func AttachCaptions(ctx context.Context, inputMP4, srtPath, outMP4 string) ([]string, error) {
	if err := os.MkdirAll(filepath.Dir(outMP4), 0755); err != nil {
		return nil, err
	}
	args := []string{
		"-y",
		"-i", inputMP4,
		"-i", srtPath,
		"-c", "copy",
		"-c:s", "mov_text",
		outMP4,
	}
	res, err := subprocess.Run(ctx, subprocess.Command(ctx, "ffmpeg", args...))
	if err != nil {
		return res.Args, fmt.Errorf("ffmpeg attach srt failed: %w", err)
	}
	return res.Args, nil
}
