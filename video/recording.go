package video

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	ffmpeg "github.com/u2takey/ffmpeg-go"
	"github.com/voforge/voforge-api/subprocess"
)

// RecordingProfile is the standard output profile for captured demo
// recordings.
type RecordingProfile struct {
	Container   string `json:"container"`
	VideoCodec  string `json:"video_codec"`
	PixelFormat string `json:"pixel_format"`
	AudioCodec  string `json:"audio_codec"`
	VideoPreset string `json:"video_preset"`
	FPS         int    `json:"fps"`
	MovFlags    string `json:"movflags"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

func StandardRecordingProfile() RecordingProfile {
	return RecordingProfile{
		Container:   "mp4",
		VideoCodec:  "libx264",
		PixelFormat: "yuv420p",
		AudioCodec:  "aac",
		VideoPreset: "veryfast",
		FPS:         30,
		MovFlags:    "+faststart",
		Width:       1280,
		Height:      720,
	}
}

// TranscodeRecording converts a browser capture (webm) into the standard mp4
// recording profile. Returns the exact ffmpeg argv used so callers can record
// provenance.
func TranscodeRecording(ctx context.Context, prober Prober, sourcePath, outPath string, profile RecordingProfile) ([]string, error) {
	sourceInfo, err := prober.ProbeMedia(ctx, sourcePath)
	if err != nil {
		return nil, fmt.Errorf("failed to probe recording source: %w", err)
	}

	kwargs := ffmpeg.KwArgs{
		"c:v":      profile.VideoCodec,
		"preset":   profile.VideoPreset,
		"pix_fmt":  profile.PixelFormat,
		"movflags": profile.MovFlags,
		"r":        profile.FPS,
	}
	if sourceInfo.HasAudio {
		kwargs["c:a"] = profile.AudioCodec
		kwargs["b:a"] = "128k"
	} else {
		kwargs["an"] = ""
	}

	cmd := ffmpeg.Input(sourcePath).
		Output(outPath, kwargs).
		OverWriteOutput().
		Compile()
	res, err := subprocess.Run(ctx, cmd)
	if err != nil {
		if mediaErr, ok := err.(*subprocess.MediaToolError); ok {
			return res.Args, fmt.Errorf("ffmpeg transcode failed (exit=%d): %s", mediaErr.ExitCode, mediaErr.StderrTail)
		}
		return res.Args, err
	}

	stat, err := os.Stat(outPath)
	if err != nil || stat.Size() <= 0 {
		return res.Args, fmt.Errorf("ffmpeg transcode produced empty %s", filepath.Base(outPath))
	}
	return res.Args, nil
}
