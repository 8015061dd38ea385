package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	synthesisTimeout   = 120 * time.Second
	healthProbeTimeout = 3 * time.Second
)

// Client speaks one of the two supported synthesis request shapes.
type Client struct {
	Endpoint string
	Mode     string
	APIKey   string

	httpClient *http.Client
}

func NewClient(endpoint, mode, apiKey string) (*Client, error) {
	if !clientModes[mode] {
		return nil, fmt.Errorf("unsupported tts mode: %s", mode)
	}
	return &Client{
		Endpoint:   endpoint,
		Mode:       mode,
		APIKey:     apiKey,
		httpClient: &http.Client{Timeout: synthesisTimeout},
	}, nil
}

func (c *Client) buildBody(text string, params map[string]interface{}) (map[string]interface{}, string) {
	switch c.Mode {
	case ModeOpenAIAudioSpeech:
		body := map[string]interface{}{
			"input":  text,
			"format": "wav",
		}
		if model, ok := params["model"]; ok {
			body["model"] = model
		}
		if voice, ok := params["voice"]; ok {
			body["voice"] = voice
		}
		apiKey := c.APIKey
		if v, ok := params["api_key"].(string); ok && v != "" {
			apiKey = v
		}
		return body, apiKey
	default:
		// chatterbox_tts_json: text plus every param inlined
		body := map[string]interface{}{"text": text}
		for k, v := range params {
			if k == "api_key" {
				continue
			}
			body[k] = v
		}
		return body, ""
	}
}

// Synthesize POSTs one segment's text and writes the returned audio bytes to
// outPath. Transient failures are retried with the standard backoff policy.
func (c *Client) Synthesize(ctx context.Context, text string, params map[string]interface{}, outPath string) error {
	body, apiKey := c.buildBody(text, params)
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal tts request: %w", err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 2 * time.Second
	policy.MaxElapsedTime = 0

	return backoff.Retry(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("tts request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			tail, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
			err := fmt.Errorf("tts endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(tail)))
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return backoff.Permanent(err)
			}
			return err
		}

		out, err := os.Create(outPath)
		if err != nil {
			return backoff.Permanent(err)
		}
		if _, err := io.Copy(out, resp.Body); err != nil {
			_ = out.Close()
			return err
		}
		return out.Close()
	}, backoff.WithMaxRetries(policy, 3))
}

// HealthURL derives the health probe URL from a synthesis endpoint, e.g.
// http://tts:8080/tts -> http://tts:8080/health.
func HealthURL(endpoint string) string {
	base := strings.TrimSuffix(strings.TrimSuffix(endpoint, "/"), "/tts")
	return base + "/health"
}

// ProbeHealth reports whether the synthesis endpoint looks alive. Anything
// below 500 counts: some deployments answer health checks with 404.
func ProbeHealth(ctx context.Context, endpoint string) bool {
	ctx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, HealthURL(endpoint), nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 500
}
