package tts

import (
	"context"
	"fmt"
	"time"

	"github.com/voforge/voforge-api/log"
	"github.com/voforge/voforge-api/metrics"
	"github.com/voforge/voforge-api/video"
)

// SegmentRequest is one narration segment to turn into audio.
type SegmentRequest struct {
	Text              string
	Params            map[string]interface{}
	Endpoint          string
	Mode              string
	Provider          string
	AudioPromptPath   string
	APIKey            string
	CacheDir          string
	OutPath           string
	SegmentDurationMS int64

	// SkipTrim keeps audio that runs past the segment window (previews
	// have no window to honor).
	SkipTrim bool
}

// Attempt records one synthesis try for provenance.
type Attempt struct {
	Kind  string `json:"kind"`
	Error string `json:"error,omitempty"`
}

// SegmentResult is what the pipeline stores per segment.
type SegmentResult struct {
	AudioPath       string    `json:"audio_path"`
	AudioSHA256     string    `json:"audio_sha256"`
	AudioDurationMS int64     `json:"audio_duration_ms"`
	CacheHit        bool      `json:"cache_hit"`
	Attempts        []Attempt `json:"attempts"`
}

// Engine synthesizes narration segments with cache lookup, post-processing
// and a silence fallback so a render never aborts on a flaky TTS backend.
type Engine struct {
	Prober video.Prober

	// Injectable for tests; defaults talk to the real endpoint and ffmpeg.
	Synthesize  func(ctx context.Context, req SegmentRequest) error
	Postprocess func(ctx context.Context, path string)
	Silence     func(ctx context.Context, path string, durationMS int64) error
	Trim        func(ctx context.Context, prober video.Prober, path string, maxMS int64) (int64, error)
}

func NewEngine() *Engine {
	return &Engine{
		Prober: video.Probe{},
		Synthesize: func(ctx context.Context, req SegmentRequest) error {
			client, err := NewClient(req.Endpoint, req.Mode, req.APIKey)
			if err != nil {
				return err
			}
			return client.Synthesize(ctx, req.Text, req.Params, req.OutPath)
		},
		Postprocess: video.PostprocessNarration,
		Silence: func(ctx context.Context, path string, durationMS int64) error {
			return video.GenerateSilence(ctx, path, durationMS)
		},
		Trim: video.TrimToDuration,
	}
}

// RenderSegment produces req.OutPath: cache hit, fresh synthesis, or silence
// of the segment duration as the last resort. The returned result always has
// a usable audio file.
func (e *Engine) RenderSegment(ctx context.Context, jobID string, req SegmentRequest) (SegmentResult, error) {
	result := SegmentResult{AudioPath: req.OutPath}

	key, err := BuildCacheKey(CacheKeyInput{
		Text:            req.Text,
		Params:          req.Params,
		Endpoint:        req.Endpoint,
		Mode:            req.Mode,
		AudioPromptPath: req.AudioPromptPath,
		Provider:        req.Provider,
	})
	if err != nil {
		return result, err
	}
	cachePath := CachePath(req.CacheDir, key)

	if hit, err := Restore(cachePath, req.OutPath); err == nil && hit {
		metrics.Metrics.TTSCacheLookupCount.WithLabelValues("hit").Inc()
		info, err := e.Prober.ProbeMedia(ctx, req.OutPath)
		if err == nil && info.DurationMS > 0 {
			result.CacheHit = true
			result.AudioDurationMS = info.DurationMS
			result.AudioSHA256, _ = FileSHA256(req.OutPath)
			return result, nil
		}
		// unreadable cache entry: fall through to fresh synthesis
		log.Log(jobID, "discarding unplayable tts cache entry", "cache_path", cachePath)
	}
	metrics.Metrics.TTSCacheLookupCount.WithLabelValues("miss").Inc()

	synthStart := time.Now()
	if err := e.synthesizeFresh(ctx, req); err != nil {
		result.Attempts = append(result.Attempts, Attempt{Kind: "tts", Error: err.Error()})
		log.LogError(jobID, "tts synthesis failed, falling back to silence", err, "text_len", len(req.Text))
		if silErr := e.Silence(ctx, req.OutPath, req.SegmentDurationMS); silErr != nil {
			return result, fmt.Errorf("tts synthesis failed (%v) and silence fallback failed: %w", err, silErr)
		}
		result.Attempts = append(result.Attempts, Attempt{Kind: "silence"})
		result.AudioDurationMS = req.SegmentDurationMS
		result.AudioSHA256, _ = FileSHA256(req.OutPath)
		return result, nil
	}
	metrics.Metrics.TTSSynthesisDurationSec.Observe(time.Since(synthStart).Seconds())
	result.Attempts = append(result.Attempts, Attempt{Kind: "tts"})

	if err := Store(req.OutPath, cachePath); err != nil {
		log.LogError(jobID, "failed to store tts cache entry", err)
	}

	info, err := e.Prober.ProbeMedia(ctx, req.OutPath)
	if err == nil {
		result.AudioDurationMS = info.DurationMS
	}
	result.AudioSHA256, _ = FileSHA256(req.OutPath)
	return result, nil
}

func (e *Engine) synthesizeFresh(ctx context.Context, req SegmentRequest) error {
	if err := e.Synthesize(ctx, req); err != nil {
		return err
	}
	e.Postprocess(ctx, req.OutPath)

	info, err := e.Prober.ProbeMedia(ctx, req.OutPath)
	if err != nil {
		return fmt.Errorf("synthesized audio is unreadable: %w", err)
	}
	if info.DurationMS <= 0 {
		return fmt.Errorf("synthesized audio has zero duration")
	}

	if !req.SkipTrim && req.SegmentDurationMS > 0 && info.DurationMS > req.SegmentDurationMS {
		if _, err := e.Trim(ctx, e.Prober, req.OutPath, req.SegmentDurationMS); err != nil {
			return fmt.Errorf("failed to trim synthesized audio: %w", err)
		}
	}
	return nil
}
