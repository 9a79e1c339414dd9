// Package bankapi is the HTTP client of the quiz bank service.
package bankapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pavelanni/quizexam/internal/model"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:8080"

// DefaultTimeout bounds every request.
const DefaultTimeout = 5 * time.Second

// ErrNotFound matches APIErrors with a not-found code.
var ErrNotFound = errors.New("not found")

// APIError is a non-success envelope returned by the service.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("bank service: code %d", e.Code)
	}
	return fmt.Sprintf("bank service: code %d: %s", e.Code, e.Message)
}

// Is lets errors.Is match ErrNotFound.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Code == model.CodeNotFound
}

// Client talks to the quiz bank service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	lang       string
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLanguage sets the Accept-Language header sent with every request.
func WithLanguage(lang string) Option {
	return func(c *Client) { c.lang = lang }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// call performs one request and decodes the envelope. The returned error is
// set only when no envelope could be obtained.
func call[T any](ctx context.Context, c *Client, method, path string, query url.Values, body any) (model.Result[T], error) {
	var res model.Result[T]

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return res, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return res, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.lang != "" {
		req.Header.Set("Accept-Language", c.lang)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return res, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.logger.Debug("bank service request", "method", method, "path", path,
		"status", resp.StatusCode, "duration", time.Since(start))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return res, fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(data, &res); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			// Proxies and crashed servers answer without an envelope.
			return model.Result[T]{Code: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}, nil
		}
		return res, fmt.Errorf("decode response of %s %s: %w", method, path, err)
	}
	if res.Code == 0 {
		res.Code = resp.StatusCode
	}
	return res, nil
}

// unwrap turns a non-success envelope into an APIError.
func unwrap[T any](res model.Result[T], err error) (T, error) {
	if err != nil {
		var zero T
		return zero, err
	}
	if !res.OK() {
		var zero T
		return zero, &APIError{Code: res.Code, Message: res.Message}
	}
	return res.Data, nil
}

func idPath(prefix string, id int64) string {
	return prefix + "/" + strconv.FormatInt(id, 10)
}

// GetBankInfo fetches bank metadata and returns the raw envelope.
func (c *Client) GetBankInfo(ctx context.Context, bankID int64) (model.Result[model.QuizBank], error) {
	return call[model.QuizBank](ctx, c, http.MethodGet, idPath("/api/quiz-banks", bankID), nil, nil)
}

// GetQuestionsForBank fetches a bank's questions and returns the raw envelope.
func (c *Client) GetQuestionsForBank(ctx context.Context, bankID int64) (model.Result[[]model.Question], error) {
	return call[[]model.Question](ctx, c, http.MethodGet, idPath("/api/quiz-questions/bank", bankID), nil, nil)
}
