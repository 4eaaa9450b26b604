package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/cedisense/cedisense-bfa/internal/domain"
	"github.com/cedisense/cedisense-bfa/internal/infra/resilience"

	"go.uber.org/zap"
)

// ============================================================
// HTTP helpers for GET, POST, PATCH
// ============================================================

// doGet reads from PostgREST. Reads are idempotent, so transport failures
// are retried with backoff; 4xx replies are not.
func (c *Client) doGet(ctx context.Context, table, path string) ([]byte, error) {
	url := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)

	var body []byte
	err := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
		resp, err := c.execute(ctx, func() (*http.Request, error) {
			return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		})
		if err != nil {
			c.logger.Warn("supabase: GET failed",
				zap.String("path", path),
				zap.Error(err),
			)
			var open *domain.ErrCircuitOpen
			if errors.As(err, &open) {
				return resilience.Permanent(err)
			}
			return err
		}
		if resp.status < 200 || resp.status >= 300 {
			c.logger.Warn("supabase: GET non-2xx",
				zap.String("path", path),
				zap.Int("status", resp.status),
				zap.String("body", string(resp.body)),
			)
			return resilience.Permanent(parseError(table, resp.status, resp.body))
		}
		body = resp.body
		return nil
	})
	if err != nil {
		return nil, wrapExternal(table, err)
	}

	c.logger.Debug("supabase: GET OK", zap.String("path", path))
	return body, nil
}

// doPost inserts a row. Writes are never retried here.
func (c *Client) doPost(ctx context.Context, table string, data map[string]any) ([]byte, error) {
	url := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, table)
	jsonBody, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	resp, err := c.execute(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	})
	if err != nil {
		c.logger.Error("supabase: POST request failed",
			zap.String("table", table),
			zap.Error(err),
		)
		return nil, wrapExternal(table, err)
	}

	if resp.status < 200 || resp.status >= 300 {
		c.logger.Warn("supabase: POST non-2xx",
			zap.String("table", table),
			zap.Int("status", resp.status),
			zap.String("body", string(resp.body)),
		)
		return nil, parseError(table, resp.status, resp.body)
	}

	c.logger.Debug("supabase: POST OK", zap.String("table", table), zap.Int("status", resp.status))
	return resp.body, nil
}

// doPatch updates the rows matched by path. Writes are never retried here.
func (c *Client) doPatch(ctx context.Context, table, path string, data map[string]any) error {
	url := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, path)
	jsonBody, err := json.Marshal(data)
	if err != nil {
		return err
	}

	resp, err := c.execute(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(jsonBody))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Prefer", "return=minimal")
		return req, nil
	})
	if err != nil {
		c.logger.Error("supabase: PATCH request failed",
			zap.String("path", path),
			zap.Error(err),
		)
		return wrapExternal(table, err)
	}

	if resp.status < 200 || resp.status >= 300 {
		c.logger.Warn("supabase: PATCH non-2xx",
			zap.String("path", path),
			zap.Int("status", resp.status),
			zap.String("body", string(resp.body)),
		)
		return parseError(table, resp.status, resp.body)
	}

	c.logger.Debug("supabase: PATCH OK", zap.String("path", path))
	return nil
}
