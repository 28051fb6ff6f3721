// Package backend is the HTTP client for the dashboard API: the assistant
// conversation, the stored portfolio and the transaction ledger.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/portfolio-dashboard/internal/circuitbreaker"
	apperrors "github.com/portfolio-dashboard/internal/errors"
	"github.com/portfolio-dashboard/internal/logging"
	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/retry"
)

const fallbackErrorMessage = "Failed to send message"

// APIError is a non-2xx answer. Error returns the server's message as is,
// so it can be shown to the user directly.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Config configures a Client
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxRetries        int
}

// Client talks to the dashboard API with a bearer token per call
type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	breaker *circuitbreaker.CircuitBreaker
	retry   *retry.RetryConfig
	logger  *logging.Logger
}

// NewClient creates a client. httpClient may be nil.
func NewClient(cfg Config, httpClient *http.Client, logger *logging.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		burst = max(int(cfg.RequestsPerSecond), 1)
	}

	retryCfg := retry.DefaultRetryConfig()
	if cfg.MaxRetries > 0 {
		retryCfg.MaxAttempts = cfg.MaxRetries
	}
	retryCfg.ShouldRetry = isRetryable

	breakerCfg := circuitbreaker.DefaultConfig("dashboard_backend")
	breakerCfg.IsFailure = isRetryable

	logger = logger.WithField("component", "backend_client")
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  httpClient,
		limiter: rate.NewLimiter(limit, burst),
		breaker: circuitbreaker.New(breakerCfg, logger),
		retry:   retryCfg,
		logger:  logger,
	}
}

type sendMessageRequest struct {
	Message string `json:"message"`
}

type sendMessageResponse struct {
	Messages []models.ConversationMessage `json:"messages"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ListMessages fetches the stored conversation (GET /ai/messages)
func (c *Client) ListMessages(ctx context.Context, token string) ([]models.ConversationMessage, error) {
	var out []models.ConversationMessage
	if err := c.getJSON(ctx, token, "/ai/messages", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SendMessage posts text and returns the updated conversation (POST /ai/messages).
// It is never retried: a repeat would append the message twice.
func (c *Client) SendMessage(ctx context.Context, token, text string) ([]models.ConversationMessage, error) {
	var out sendMessageResponse
	if err := c.do(ctx, http.MethodPost, token, "/ai/messages", sendMessageRequest{Message: text}, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// GetPortfolio fetches the stored portfolio record (GET /portfolio)
func (c *Client) GetPortfolio(ctx context.Context, token string) (*models.PortfolioData, error) {
	var out models.PortfolioData
	if err := c.getJSON(ctx, token, "/portfolio", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTransactions fetches the full ledger (GET /transactions)
func (c *Client) GetTransactions(ctx context.Context, token string) ([]models.Transaction, error) {
	var out []models.Transaction
	if err := c.getJSON(ctx, token, "/transactions", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// BreakerState reports whether calls are currently being let through
func (c *Client) BreakerState() circuitbreaker.State {
	return c.breaker.State()
}

func (c *Client) getJSON(ctx context.Context, token, path string, out interface{}) error {
	result := retry.WithExponentialBackoff(logging.WithLogger(ctx, c.logger), c.retry, func(ctx context.Context, attempt int) error {
		return c.do(ctx, http.MethodGet, token, path, nil, out)
	})
	if result.Success {
		return nil
	}
	return result.LastError
}

func (c *Client) do(ctx context.Context, method, token, path string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	return c.breaker.Execute(func() error {
		return c.roundTrip(ctx, method, token, path, body, out)
	})
}

func (c *Client) roundTrip(ctx context.Context, method, token, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return apperrors.NewBackendError(0, fmt.Sprintf("%s %s failed", method, path), err)
	}
	defer resp.Body.Close()

	c.logger.WithFields(map[string]interface{}{
		"method":   method,
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	}).Debug("Backend request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewBackendError(resp.StatusCode, "malformed response body", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: fallbackErrorMessage}
	var body errorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil && body.Error != "" {
		apiErr.Message = body.Error
	}
	return apiErr
}

// isRetryable retries 5xx answers and transport failures. The same errors
// count against the circuit breaker.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	return apperrors.IsRetryable(err)
}
