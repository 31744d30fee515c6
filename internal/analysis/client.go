package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const keyHeader = "Ocp-Apim-Subscription-Key"

// Config for the analysis client.
type Config struct {
	Endpoint     string        // service base URL
	Key          string        // subscription key
	ModelID      string        // fixed custom model identifier
	APIVersion   string        // default 2024-02-29-preview
	PollInterval time.Duration // delay between operation polls
	Timeout      time.Duration // overall cap on one analyze call
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2024-02-29-preview"
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: 60 * time.Second},
		logger: logger,
	}
}

// operation is the wire envelope of the asynchronous analyze operation.
type operation struct {
	Status        string  `json:"status"`
	AnalyzeResult *Result `json:"analyzeResult"`
	Error         *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Analyze submits raw document bytes against the configured model and blocks
// until the operation reaches a terminal state. The service answers the
// submission with an Operation-Location URL which is polled until the result
// is ready.
func (c *Client) Analyze(ctx context.Context, content []byte) (*Result, error) {
	reqID := uuid.New().String()
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	url := fmt.Sprintf("%s/documentintelligence/documentModels/%s:analyze?api-version=%s",
		strings.TrimRight(c.cfg.Endpoint, "/"), c.cfg.ModelID, c.cfg.APIVersion)

	c.logger.Info("analysis.submit",
		"req_id", reqID,
		"model_id", c.cfg.ModelID,
		"content_length", len(content),
	)

	opURL, err := c.submit(ctx, url, content)
	if err != nil {
		c.logger.Error("analysis.submit_failed", "req_id", reqID, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}

	res, err := c.poll(ctx, reqID, opURL)
	if err != nil {
		c.logger.Error("analysis.failed", "req_id", reqID, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}

	c.logger.Info("analysis.ok",
		"req_id", reqID,
		"documents", len(res.Documents),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (c *Client) submit(ctx context.Context, url string, content []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set(keyHeader, c.cfg.Key)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit analyze: %w", err)
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.Warn("analysis.response_body_close_error", "error", err)
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusAccepted {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("analyze status %d: %s", resp.StatusCode, string(raw))
	}

	opURL := resp.Header.Get("Operation-Location")
	if opURL == "" {
		return "", fmt.Errorf("analyze accepted without Operation-Location header")
	}
	return opURL, nil
}

func (c *Client) poll(ctx context.Context, reqID, opURL string) (*Result, error) {
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		raw, err := c.get(ctx, opURL)
		if err != nil {
			return nil, err
		}
		if err := ValidateJSONAgainstSchema(BuildOperationSchema(), raw); err != nil {
			return nil, fmt.Errorf("operation response: %w", err)
		}

		var op operation
		if err := json.Unmarshal(raw, &op); err != nil {
			return nil, fmt.Errorf("decode operation: %w", err)
		}

		switch op.Status {
		case "succeeded":
			if op.AnalyzeResult == nil {
				return nil, fmt.Errorf("operation succeeded without analyzeResult")
			}
			return op.AnalyzeResult, nil
		case "failed":
			if op.Error != nil {
				return nil, fmt.Errorf("analyze operation failed: %s: %s", op.Error.Code, op.Error.Message)
			}
			return nil, fmt.Errorf("analyze operation failed")
		}

		c.logger.Debug("analysis.poll", "req_id", reqID, "status", op.Status)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("analyze operation: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set(keyHeader, c.cfg.Key)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll operation: %w", err)
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.logger.Warn("analysis.response_body_close_error", "error", err)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("operation status %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}
