package pipeline

import (
	"context"
	"fmt"

	"github.com/voforge/voforge-api/config"
)

// Run dispatches a render job on the project's narration mode. Legacy modes
// from older documents are preserved by the store but cannot be executed.
func (p *Pipeline) Run(ctx context.Context, jobID, projectID string) (*RenderResult, error) {
	proj, err := p.Store.Load(projectID)
	if err != nil {
		return nil, err
	}
	mode := proj.Settings.NarrationMode
	if mode == "" {
		mode = p.DefaultNarrationMode
	}

	switch mode {
	case config.NarrationModeTTSOnly:
		return p.TTSOnly(ctx, jobID, projectID, RenderOptions{RenderMode: "tts_only"})
	case config.NarrationModeUnified, config.NarrationModeTimelineUnified:
		return p.Unified(ctx, jobID, projectID)
	default:
		return nil, fmt.Errorf(
			"unsupported narration_mode '%s': supported modes are tts_only, timeline_unified, unified", mode)
	}
}
