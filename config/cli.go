package config

import "github.com/voforge/voforge-api/demo"

// Cli holds the runtime configuration shared by the API server and the
// queue worker. Values are populated from flags and environment variables
// by the entrypoints.
type Cli struct {
	HTTPAddress string
	PromPort    int

	QueueURL  string
	QueueName string

	DataDir string

	TTSEndpoint string
	TTSMode     string

	NarrationMode            string
	DemoCaptureExecutionMode string
}

// DefaultCli mirrors the documented environment defaults.
func DefaultCli() Cli {
	return Cli{
		HTTPAddress:              "0.0.0.0:8000",
		PromPort:                 2112,
		QueueURL:                 "redis://redis:6379/0",
		QueueName:                "default",
		DataDir:                  "/data",
		TTSEndpoint:              "http://tts:8080/tts",
		TTSMode:                  "chatterbox_tts_json",
		NarrationMode:            NarrationModeTTSOnly,
		DemoCaptureExecutionMode: demo.ExecutionModePlaywrightOptional,
	}
}
