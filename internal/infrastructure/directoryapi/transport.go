package directoryapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kirillkom/directory-console/internal/infrastructure/resilience"
)

// getJSON reads path into out. Reads are retried and guarded by the circuit
// breaker when an executor is configured.
func (c *Client) getJSON(ctx context.Context, path string, out any, operation string) error {
	call := func(ctx context.Context) error {
		return c.do(ctx, http.MethodGet, path, nil, out, operation)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "directory."+operation, call, classifyDirectoryError)
	} else {
		err = call(ctx)
	}
	return mapError(operation, err)
}

// sendJSON performs a write exactly once.
func (c *Client) sendJSON(ctx context.Context, method, path string, payload any, out any, operation string) error {
	var body []byte
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", operation, err)
		}
		body = raw
	}
	return mapError(operation, c.do(ctx, method, path, body, out, operation))
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any, operation string) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("directory %s rate limit: %w", operation, err)
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("directory %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("directory_request",
		"operation", operation,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &HTTPStatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(raw),
		}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

var _ resilience.ErrorClassifier = classifyDirectoryError
