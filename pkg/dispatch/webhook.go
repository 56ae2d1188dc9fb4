package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/aretw0/chatflow/pkg/interpolate"
	json "github.com/goccy/go-json"
	"github.com/oliveagle/jsonpath"
)

// WebhookErrorVar receives the failure message of a webhook action.
const WebhookErrorVar = "webhook_error"

// maxWebhookBody caps the response body read from a webhook.
const maxWebhookBody = 1 << 20

// WebhookConfig is the config of a webhook action.
type WebhookConfig struct {
	URL     string            `mapstructure:"url"`
	Method  string            `mapstructure:"method"`
	Headers map[string]string `mapstructure:"headers"`
	Body    map[string]any    `mapstructure:"body"`
	// TimeoutSeconds bounds the whole call.
	TimeoutSeconds float64 `mapstructure:"timeout_seconds"`
	// ResponseMap maps variable names to JSONPath expressions evaluated on the response.
	ResponseMap map[string]string `mapstructure:"response_map"`
}

var webhookDefaults = WebhookConfig{
	Method:         http.MethodPost,
	TimeoutSeconds: 5,
	Headers:        map[string]string{"Content-Type": "application/json"},
}

func (d *Dispatcher) webhook(ctx context.Context, config, vars map[string]any) (map[string]any, error) {
	var cfg WebhookConfig
	if err := decode(config, &cfg); err != nil {
		return webhookFailure(err), nil
	}
	if err := mergo.Merge(&cfg, webhookDefaults); err != nil {
		return webhookFailure(err), nil
	}

	url := interpolate.Render(cfg.URL, vars)
	if url == "" {
		return webhookFailure(fmt.Errorf("webhook requires a url")), nil
	}

	var body io.Reader
	if len(cfg.Body) > 0 && cfg.Method != http.MethodGet {
		raw, err := json.Marshal(interpolate.Map(cfg.Body, vars))
		if err != nil {
			return webhookFailure(err), nil
		}
		body = bytes.NewReader(raw)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.TimeoutSeconds*float64(time.Second)))
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(cfg.Method), url, body)
	if err != nil {
		return webhookFailure(err), nil
	}
	for k, v := range cfg.Headers {
		req.Header.Set(k, interpolate.Render(v, vars))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Warn("webhook call failed", "url", url, "err", err)
		return webhookFailure(err), nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxWebhookBody))
	if err != nil {
		return webhookFailure(err), nil
	}
	if resp.StatusCode >= 300 {
		return webhookFailure(fmt.Errorf("webhook returned status %d", resp.StatusCode)), nil
	}

	result := map[string]any{"webhook_status": resp.StatusCode}
	if len(cfg.ResponseMap) == 0 || len(bytes.TrimSpace(raw)) == 0 {
		return result, nil
	}

	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return webhookFailure(fmt.Errorf("decode webhook response: %w", err)), nil
	}
	for name, path := range cfg.ResponseMap {
		if !strings.HasPrefix(path, "$") {
			path = "$." + path
		}
		value, err := jsonpath.JsonPathLookup(payload, path)
		if err != nil {
			d.logger.Debug("response_map path not found", "variable", name, "path", path, "err", err)
			continue
		}
		result[name] = value
	}
	return result, nil
}

func webhookFailure(err error) map[string]any {
	return map[string]any{WebhookErrorVar: err.Error()}
}
