package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/peterbourgon/ff/v3"
	"golang.org/x/sync/errgroup"

	"github.com/voforge/voforge-api/config"
	"github.com/voforge/voforge-api/log"
	"github.com/voforge/voforge-api/metrics"
	"github.com/voforge/voforge-api/pipeline"
	"github.com/voforge/voforge-api/queue"
	"github.com/voforge/voforge-api/store"
)

type renderJobArgs struct {
	ProjectID string `json:"project_id"`
}

type demoCaptureJobArgs struct {
	ProjectID     string `json:"project_id"`
	ExecutionMode string `json:"execution_mode"`
}

func main() {
	fs := flag.NewFlagSet("voforge-worker", flag.ExitOnError)
	cli := config.DefaultCli()

	version := fs.Bool("version", false, "print application version")

	fs.IntVar(&cli.PromPort, "prom-port", cli.PromPort+1, "Prometheus metrics listen port")
	fs.StringVar(&cli.QueueURL, "queue-url", cli.QueueURL, "Redis URL for the job queue")
	fs.StringVar(&cli.QueueName, "queue-name", cli.QueueName, "Queue name to pop jobs from")
	fs.StringVar(&cli.DataDir, "data-dir", cli.DataDir, "Root directory for project storage")
	fs.StringVar(&cli.TTSEndpoint, "tts-endpoint", cli.TTSEndpoint, "TTS synthesis endpoint")
	fs.StringVar(&cli.TTSMode, "tts-mode", cli.TTSMode, "TTS request mode: chatterbox_tts_json or openai_audio_speech")
	fs.StringVar(&cli.NarrationMode, "narration-mode", cli.NarrationMode, "Default narration mode when a project has none")
	fs.StringVar(&cli.DemoCaptureExecutionMode, "demo-capture-execution-mode", cli.DemoCaptureExecutionMode, "Default demo capture execution mode")
	_ = fs.String("config", "", "config file (optional)")

	err := ff.Parse(fs, os.Args[1:],
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithEnvVars(),
	)
	if err != nil {
		log.LogError("", "error parsing cli", err)
		os.Exit(1)
	}

	if *version {
		fmt.Printf("voforge-worker version: %s\n", config.Version)
		return
	}

	st := store.New(cli.DataDir)
	q, err := queue.New(cli.QueueURL, cli.QueueName)
	if err != nil {
		log.LogError("", "error connecting to queue backend", err)
		os.Exit(1)
	}
	pl := pipeline.New(st, cli)

	worker := queue.NewWorker(q)
	worker.Register("pipeline.run", func(ctx context.Context, jobID string, args json.RawMessage) (interface{}, error) {
		var job renderJobArgs
		if err := json.Unmarshal(args, &job); err != nil {
			return nil, fmt.Errorf("invalid pipeline.run args: %w", err)
		}
		return pl.Run(ctx, jobID, job.ProjectID)
	})
	worker.Register("demo.capture", func(ctx context.Context, jobID string, args json.RawMessage) (interface{}, error) {
		var job demoCaptureJobArgs
		if err := json.Unmarshal(args, &job); err != nil {
			return nil, fmt.Errorf("invalid demo.capture args: %w", err)
		}
		record, res, err := pl.DemoCapture(ctx, jobID, job.ProjectID, pipeline.DemoCaptureOptions{
			ExecutionMode: job.ExecutionMode,
			Trigger:       "queue_demo_run",
			Correlation:   map[string]interface{}{"queue_job_id": jobID},
		})
		if err != nil {
			return nil, err
		}
		if !res.OK {
			return record, fmt.Errorf("demo capture failed: %s", res.Error)
		}
		return record, nil
	})

	group, ctx := errgroup.WithContext(context.Background())

	group.Go(func() error {
		return handleSignals(ctx)
	})

	group.Go(func() error {
		return metrics.ListenAndServe(cli.PromPort)
	})

	group.Go(func() error {
		log.LogNoJobID("Starting Voforge worker!",
			"version", config.Version, "queue", cli.QueueName)
		return worker.Run(ctx)
	})

	err = group.Wait()
	log.LogNoJobID("Shutdown complete", "reason", err)
}

func handleSignals(ctx context.Context) error {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)
	select {
	case s := <-c:
		return fmt.Errorf("caught signal=%v", s)
	case <-ctx.Done():
		return nil
	}
}
