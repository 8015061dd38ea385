package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/peterbourgon/ff/v3"
	"golang.org/x/sync/errgroup"

	"github.com/voforge/voforge-api/api"
	"github.com/voforge/voforge-api/config"
	"github.com/voforge/voforge-api/log"
	"github.com/voforge/voforge-api/metrics"
	"github.com/voforge/voforge-api/pipeline"
	"github.com/voforge/voforge-api/queue"
	"github.com/voforge/voforge-api/store"
)

func main() {
	fs := flag.NewFlagSet("voforge-api", flag.ExitOnError)
	cli := config.DefaultCli()

	version := fs.Bool("version", false, "print application version")

	fs.StringVar(&cli.HTTPAddress, "http-addr", cli.HTTPAddress, "Address to bind the HTTP API to")
	fs.IntVar(&cli.PromPort, "prom-port", cli.PromPort, "Prometheus metrics listen port")
	fs.StringVar(&cli.QueueURL, "queue-url", cli.QueueURL, "Redis URL for the job queue")
	fs.StringVar(&cli.QueueName, "queue-name", cli.QueueName, "Queue name jobs are pushed onto")
	fs.StringVar(&cli.DataDir, "data-dir", cli.DataDir, "Root directory for project storage")
	fs.StringVar(&cli.TTSEndpoint, "tts-endpoint", cli.TTSEndpoint, "TTS synthesis endpoint")
	fs.StringVar(&cli.TTSMode, "tts-mode", cli.TTSMode, "TTS request mode: chatterbox_tts_json or openai_audio_speech")
	fs.StringVar(&cli.NarrationMode, "narration-mode", cli.NarrationMode, "Default narration mode for new projects")
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
	if len(fs.Args()) > 0 {
		log.LogNoJobID("unexpected extra arguments on command line", "args", fmt.Sprintf("%v", fs.Args()))
		os.Exit(1)
	}

	if *version {
		fmt.Printf("voforge-api version: %s\n", config.Version)
		return
	}

	st := store.New(cli.DataDir)
	q, err := queue.New(cli.QueueURL, cli.QueueName)
	if err != nil {
		log.LogError("", "error connecting to queue backend", err)
		os.Exit(1)
	}
	pl := pipeline.New(st, cli)

	group, ctx := errgroup.WithContext(context.Background())

	group.Go(func() error {
		return handleSignals(ctx)
	})

	group.Go(func() error {
		return metrics.ListenAndServe(cli.PromPort)
	})

	group.Go(func() error {
		return api.ListenAndServe(ctx, cli, st, pl, q)
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
