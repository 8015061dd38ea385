package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/voforge/voforge-api/demo"
	"github.com/voforge/voforge-api/log"
	"github.com/voforge/voforge-api/store"
)

// DemoCaptureOptions parametrize one capture run.
type DemoCaptureOptions struct {
	ExecutionMode string
	RunID         string
	Trigger       string
	Correlation   map[string]interface{}
	HistoryLimit  int
}

// DemoCapture validates the project's action events, runs the demo runner
// into work/demo_runs/<run_id> and appends the normalized record to the
// project's run history.
func (p *Pipeline) DemoCapture(ctx context.Context, jobID, projectID string, opts DemoCaptureOptions) (store.DemoRunRecord, *demo.RunResult, error) {
	proj, err := p.Store.Load(projectID)
	if err != nil {
		return store.DemoRunRecord{}, nil, err
	}

	actions, err := demo.ParseActionEvents(proj.Timeline)
	if err != nil {
		return store.DemoRunRecord{}, nil, fmt.Errorf("action validation failed: %w", err)
	}
	if len(actions) == 0 {
		return store.DemoRunRecord{}, nil, fmt.Errorf("timeline has no action events to capture")
	}

	executionMode := demo.ResolveExecutionMode(
		opts.ExecutionMode, proj.Settings.DemoCaptureExecutionMode, p.DefaultExecutionMode)

	runID := opts.RunID
	if runID == "" {
		runID = "demo_" + timestampToken()
	}
	runDir := filepath.Join(p.Store.WorkDir(projectID), "demo_runs", runID)

	trigger := opts.Trigger
	if trigger == "" {
		trigger = "api_demo_run"
	}
	_ = p.Store.AppendLog(projectID, fmt.Sprintf(
		"demo capture %s started (execution_mode=%s actions=%d trigger=%s)",
		runID, executionMode, len(actions), trigger))

	runner := demo.NewRunner(projectID, runDir, executionMode, runID, jobID)
	res := p.Capture(ctx, runner, actions)

	record := store.NewDemoRunRecord(res)
	record.HistoryLimit = opts.HistoryLimit
	record.Correlation["trigger"] = trigger
	record.Correlation["queue_name"] = p.QueueName
	for k, v := range opts.Correlation {
		record.Correlation[k] = v
	}

	// reload: the capture may have taken minutes and the document can have
	// moved underneath us
	proj, err = p.Store.Load(projectID)
	if err != nil {
		return record, res, err
	}
	record = proj.AppendDemoRun(record)
	if err := p.Store.Save(proj); err != nil {
		return record, res, err
	}

	_ = p.Store.AppendLog(projectID, fmt.Sprintf(
		"demo capture %s finished (mode=%s ok=%t actions_executed=%d)",
		runID, res.Mode, res.OK, res.ActionsExecuted))
	log.Log(jobID, "demo capture recorded", "run_id", runID, "mode", res.Mode, "ok", res.OK)
	return record, res, nil
}
