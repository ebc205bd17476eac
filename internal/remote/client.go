// Package remote is the single HTTP call path to the wallet/gateway backend.
// Every failure it reports is an *internal.AppError of one of four classes:
// transport, timeout, application or unexpected.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/frahmantamala/wallet-payments/internal"
)

const maxResponseBytes = 1 << 20

// Doer is satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient Doer
	logger     *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, httpClient Doer, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Call posts payload as JSON to path, validates the reply against schema and decodes it into out.
// A panic anywhere in the call is recovered and reported as an unexpected error.
func (c *Client) Call(ctx context.Context, path string, payload any, schema *openapi3.Schema, out any) (appErr *internal.AppError) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("remote call panicked", "path", path, "panic", r)
			appErr = internal.NewUnexpectedError(fmt.Errorf("panic: %v", r))
		}
	}()

	body, err := json.Marshal(payload)
	if err != nil {
		return internal.NewUnexpectedError(fmt.Errorf("marshal request: %w", err))
	}

	ctx, cancel := internal.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return internal.NewUnexpectedError(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token := internal.BearerTokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.logger.Warn("remote call timed out", "path", path, "timeout", c.timeout)
			return internal.NewTimeoutError(err)
		}
		c.logger.Error("remote call failed", "path", path, "error", err)
		return internal.NewTransportError("Could not reach payment service", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return internal.NewTimeoutError(err)
		}
		return internal.NewTransportError("Could not read payment service response", err)
	}

	c.logger.Debug("remote call completed",
		"path", path,
		"status_code", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	var decoded any
	decodeErr := json.Unmarshal(raw, &decoded)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if msg := errorField(decoded); decodeErr == nil && msg != "" {
			return internal.NewApplicationError(msg, internal.ErrCodeRemoteRejected)
		}
		return internal.NewTransportError(fmt.Sprintf("Payment service returned status %d", resp.StatusCode), nil)
	}

	if decodeErr != nil {
		c.logger.Warn("remote response is not JSON", "path", path, "error", decodeErr)
		return malformed(decodeErr)
	}

	if schema != nil {
		if err := schema.VisitJSON(decoded); err != nil {
			c.logger.Warn("remote response failed schema validation", "path", path, "error", err)
			return malformed(err)
		}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return malformed(err)
		}
	}
	return nil
}

func errorField(decoded any) string {
	obj, ok := decoded.(map[string]any)
	if !ok {
		return ""
	}
	msg, _ := obj["error"].(string)
	return strings.TrimSpace(msg)
}

func malformed(cause error) *internal.AppError {
	return internal.NewApplicationError("Malformed response from payment service", internal.ErrCodeMalformedResponse).
		WithCause(cause)
}
