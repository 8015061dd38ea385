package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/voforge/voforge-api/tts"
)

// PreviewTTS synthesizes a one-off sample outside the render flow, with its
// own cache namespace so previews never collide with render segments. A
// durationMS of 0 means unbounded: the fallback duration is estimated from
// the word count and nothing is trimmed.
func (p *Pipeline) PreviewTTS(ctx context.Context, jobID, projectID, text, profileID string, durationMS int64, paramsOverride map[string]interface{}) (string, *tts.SegmentResult, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil, fmt.Errorf("preview text must be non-empty")
	}
	proj, err := p.Store.Load(projectID)
	if err != nil {
		return "", nil, err
	}
	profile, err := tts.ResolveProfile(proj, profileID)
	if err != nil {
		return "", nil, err
	}
	endpoint := tts.ResolveEndpoint(profile, proj.Settings.TTS.Endpoint, p.DefaultTTSEndpoint)
	params := tts.ResolveParams(proj.Settings.TTS.DefaultParams, profile, paramsOverride)

	previewDir := filepath.Join(p.Store.WorkDir(projectID), "previews")
	if err := os.MkdirAll(previewDir, 0755); err != nil {
		return "", nil, err
	}
	outPath := filepath.Join(previewDir, fmt.Sprintf("preview_%s.wav", timestampToken()))

	skipTrim := false
	if durationMS <= 0 {
		durationMS = estimateSpeechMS(text, proj.Settings.Narration.WordsPerSecond)
		skipTrim = true
	}

	result, err := p.Engine.RenderSegment(ctx, jobID, tts.SegmentRequest{
		Text:              text,
		Params:            params,
		Endpoint:          endpoint,
		Mode:              p.TTSMode,
		Provider:          profile.Provider,
		AudioPromptPath:   profile.AudioPromptPath,
		CacheDir:          p.Store.CacheDir(projectID, "tts_preview"),
		OutPath:           outPath,
		SegmentDurationMS: durationMS,
		SkipTrim:          skipTrim,
	})
	if err != nil {
		return "", nil, err
	}
	return outPath, &result, nil
}

// estimateSpeechMS sizes the silence fallback for previews, where no
// timeline segment bounds the duration.
func estimateSpeechMS(text string, wordsPerSecond float64) int64 {
	if wordsPerSecond <= 0 {
		wordsPerSecond = 2.25
	}
	words := len(strings.Fields(text))
	ms := int64(float64(words) / wordsPerSecond * 1000)
	if ms < 1000 {
		ms = 1000
	}
	return ms
}
