package pipeline

import (
	"context"
	"fmt"

	"github.com/voforge/voforge-api/log"
)

// Unified captures the demo first and narrates over whatever it produced:
// the captured recording when it is playable, the uploaded input otherwise.
func (p *Pipeline) Unified(ctx context.Context, jobID, projectID string) (*RenderResult, error) {
	unifiedRunID := "unified_" + timestampToken()

	record, res, err := p.DemoCapture(ctx, jobID, projectID, DemoCaptureOptions{
		Trigger:     "unified_pipeline",
		Correlation: map[string]interface{}{"unified_run_id": unifiedRunID},
	})
	if err != nil {
		return nil, err
	}
	if !res.OK {
		return nil, fmt.Errorf("unified pipeline aborted: demo capture failed: %s", res.Error)
	}

	sourcePath := SelectSourceVideo(
		res.RawDemoMP4,
		res.ArtifactSummary.RawDemoPlayable,
		p.Store.InputVideoPath(projectID),
	)
	log.Log(jobID, "unified source selected", "unified_run_id", unifiedRunID, "source", sourcePath)

	render, err := p.TTSOnly(ctx, jobID, projectID, RenderOptions{
		SourceVideoPath: sourcePath,
		RenderMode:      "unified",
		RenderContext: map[string]interface{}{
			"demo_run_id":    record.RunID,
			"unified_run_id": unifiedRunID,
		},
	})
	if err != nil {
		return render, err
	}

	p.backfillDemoCorrelation(jobID, projectID, record.RunID, render, sourcePath)
	return render, nil
}

// backfillDemoCorrelation writes the finished render's identity onto the
// demo run that produced its source video.
func (p *Pipeline) backfillDemoCorrelation(jobID, projectID, runID string, render *RenderResult, sourcePath string) {
	proj, err := p.Store.Load(projectID)
	if err != nil {
		log.LogError(jobID, "failed to reload project for correlation backfill", err)
		return
	}
	for i := range proj.Demo.Runs {
		if proj.Demo.Runs[i].RunID != runID {
			continue
		}
		if proj.Demo.Runs[i].Correlation == nil {
			proj.Demo.Runs[i].Correlation = map[string]interface{}{}
		}
		proj.Demo.Runs[i].Correlation["render_id"] = render.RenderID
		proj.Demo.Runs[i].Correlation["render_mode"] = render.Mode
		proj.Demo.Runs[i].Correlation["source_video_path"] = sourcePath
		if err := p.Store.Save(proj); err != nil {
			log.LogError(jobID, "failed to save correlation backfill", err)
		}
		return
	}
	log.Log(jobID, "demo run missing for correlation backfill", "run_id", runID)
}
