// Package supabase is the PostgREST adapter for the wallets, transactions
// and transfers tables of the Supabase project backing the app.
package supabase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/cedisense/cedisense-bfa/internal/domain"
	"github.com/cedisense/cedisense-bfa/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("supabase")

const serviceName = "supabase"

// Client wraps HTTP calls to Supabase PostgREST API.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	serviceRoleKey string
	cb             *gobreaker.CircuitBreaker
	bulkhead       *resilience.Bulkhead
	cfg            resilience.Config
	logger         *zap.Logger
}

// NewClient creates a Supabase client.
func NewClient(httpClient *http.Client, baseURL, apiKey, serviceRoleKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         apiKey,
		serviceRoleKey: serviceRoleKey,
		cb:             cb,
		bulkhead:       resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg:            cfg,
		logger:         logger,
	}
}

// response is a PostgREST reply that made it through the breaker.
// Status is always below 500.
type response struct {
	status int
	body   []byte
}

// execute sends one request through the bulkhead and the circuit breaker.
// Only transport failures and 5xx replies count against the breaker; 4xx
// replies come back as a response for the caller to map.
func (c *Client) execute(ctx context.Context, newReq func() (*http.Request, error)) (*response, error) {
	if err := c.bulkhead.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.bulkhead.Release()

	out, err := c.cb.Execute(func() (any, error) {
		req, err := newReq()
		if err != nil {
			return nil, err
		}
		c.setHeaders(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 500 {
			return nil, fmt.Errorf("supabase returned status %d: %s", resp.StatusCode, string(body))
		}
		return &response{status: resp.StatusCode, body: body}, nil
	})
	if err != nil {
		if resilience.IsOpen(err) {
			return nil, &domain.ErrCircuitOpen{Service: serviceName}
		}
		return nil, err
	}
	return out.(*response), nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.serviceRoleKey))
	req.Header.Set("Content-Type", "application/json")
	if req.Header.Get("Prefer") == "" {
		req.Header.Set("Prefer", "return=representation")
	}
}

// Ping checks PostgREST reachability for the health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Supabase.Ping")
	defer span.End()

	_, err := c.doGet(ctx, "wallets", "wallets?select=id&limit=1")
	return err
}

// wrapExternal tags transport-level failures with the service name while
// letting typed domain errors through untouched.
func wrapExternal(table string, err error) error {
	var (
		notFound   *domain.ErrNotFound
		constraint *domain.ErrConstraintViolation
		schema     *domain.ErrSchemaMismatch
		open       *domain.ErrCircuitOpen
	)
	switch {
	case err == nil:
		return nil
	case errors.As(err, &notFound), errors.As(err, &constraint), errors.As(err, &schema), errors.As(err, &open):
		return err
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	return &domain.ErrExternalService{Service: serviceName + "/" + table, Err: err}
}
