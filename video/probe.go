package video

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gopkg.in/vansante/go-ffprobe.v2"
)

// MediaInfo is the parsed ffprobe output for a media file. Audio-only files
// (narration wavs) leave the video fields zeroed.
type MediaInfo struct {
	DurationMS int64
	Width      int
	Height     int
	FPS        float64
	HasVideo   bool
	HasAudio   bool
	VideoCodec string
	AudioCodec string
	SizeBytes  int64
	Format     string
}

type Prober interface {
	ProbeMedia(ctx context.Context, path string) (MediaInfo, error)
}

type Probe struct{}

func (p Probe) ProbeMedia(ctx context.Context, path string) (MediaInfo, error) {
	var data *ffprobe.ProbeData
	operation := func() error {
		probeCtx, probeCancel := context.WithTimeout(ctx, 60*time.Second)
		defer probeCancel()
		var err error
		data, err = ffprobe.ProbeURL(probeCtx, path, "-loglevel", "error")
		return err
	}

	backOff := backoff.NewExponentialBackOff()
	backOff.InitialInterval = 500 * time.Millisecond
	backOff.MaxInterval = 2 * time.Second
	backOff.MaxElapsedTime = 0 // don't impose a timeout as part of the retries
	if err := backoff.Retry(operation, backoff.WithMaxRetries(backOff, 3)); err != nil {
		return MediaInfo{}, fmt.Errorf("error probing: %w", err)
	}
	return parseProbeOutput(data)
}

func parseProbeOutput(data *ffprobe.ProbeData) (MediaInfo, error) {
	if data.Format == nil {
		return MediaInfo{}, fmt.Errorf("error parsing media: format information missing")
	}

	info := MediaInfo{
		DurationMS: int64(data.Format.DurationSeconds * 1000),
		Format:     data.Format.FormatName,
	}
	if data.Format.Size != "" {
		size, err := strconv.ParseInt(data.Format.Size, 10, 64)
		if err != nil {
			return MediaInfo{}, fmt.Errorf("error parsing filesize from probed data: %w", err)
		}
		info.SizeBytes = size
	}

	if videoStream := data.FirstVideoStream(); videoStream != nil {
		info.HasVideo = true
		info.VideoCodec = videoStream.CodecName
		info.Width = videoStream.Width
		info.Height = videoStream.Height
		fps, err := parseFps(videoStream.AvgFrameRate)
		if err != nil {
			return MediaInfo{}, fmt.Errorf("error parsing avg fps from probed data: %w", err)
		}
		if fps == 0 {
			fps, err = parseFps(videoStream.RFrameRate)
			if err != nil {
				return MediaInfo{}, fmt.Errorf("error parsing r_frame_rate from probed data: %w", err)
			}
		}
		info.FPS = fps
	}
	if audioStream := data.FirstAudioStream(); audioStream != nil {
		info.HasAudio = true
		info.AudioCodec = audioStream.CodecName
	}
	return info, nil
}

func parseFps(framerate string) (float64, error) {
	if framerate == "" {
		return 0, nil
	}
	parts := strings.Split(framerate, "/")
	if len(parts) < 2 {
		fps, err := strconv.ParseFloat(framerate, 64)
		if err != nil {
			return 0, fmt.Errorf("error parsing framerate: %w", err)
		}
		return fps, nil
	}
	num, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, fmt.Errorf("error parsing framerate numerator: %w", err)
	}
	den, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, fmt.Errorf("error parsing framerate denominator: %w", err)
	}
	if den == 0 {
		return 0, nil
	}
	return num / den, nil
}
