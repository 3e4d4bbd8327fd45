// Package api talks to the execution-sheet REST backend.
//
// Every call carries the session's bearer token and a fresh X-Request-ID.
// Non-2xx responses become *ServerError with the backend's text, transport
// failures become *NetworkError.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/trailblaze/fieldops/internal/auth"
	"github.com/trailblaze/fieldops/internal/observability"
)

const maxResponseBytes = 10 << 20

// Client is a thin wrapper over the backend's HTTP API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     logrus.FieldLogger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client, e.g. with an httptest one.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the request logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) { c.logger = l }
}

// New constructs a client for baseURL (server plus base path, e.g.
// http://host/rest). An empty token makes every call fail with
// auth.ErrAuthenticationMissing before anything is sent.
func New(baseURL, token string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   strings.TrimSpace(token),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

// HTTPClient exposes the underlying client so photo loads share its
// transport and timeout.
func (c *Client) HTTPClient() *http.Client { return c.httpClient }

// Message is the {"message": ...} acknowledgement most mutations return,
// plus the ids some of them add.
type Message struct {
	Message                     string   `json:"message"`
	ActivityID                  string   `json:"activityId,omitempty"`
	OperationExecutionID        string   `json:"operationExecutionId,omitempty"`
	ParcelOperationExecutionIDs []string `json:"parcelOperationExecutionIds,omitempty"`
	RemainingPhotos             *int     `json:"remainingPhotos,omitempty"`
}

// doJSON sends body (if any) as JSON and decodes the response into out.
// out may be nil, or a *string to receive the raw body.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
		contentType = "application/json"
	}
	return c.send(ctx, method, path, reader, contentType, out)
}

func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) error {
	if c.token == "" {
		return auth.ErrAuthenticationMissing
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("api: build %s %s: %w", method, path, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	log := c.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"method":     method,
		"path":       path,
	})

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.RecordAPIRequest(method, 0)
		log.WithError(err).Warn("request failed")
		return &NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()
	observability.RecordAPIRequest(method, resp.StatusCode)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		log.WithError(err).Warn("reading response failed")
		return &NetworkError{Op: method + " " + path, Err: err}
	}
	log = log.WithFields(logrus.Fields{"status": resp.StatusCode, "took": time.Since(start).Round(time.Millisecond)})

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		serr := newServerError(resp.StatusCode, data)
		log.WithField("message", serr.Message).Warn("request rejected")
		return serr
	}
	log.Debug("request ok")

	if out == nil {
		return nil
	}
	if s, ok := out.(*string); ok {
		*s = string(data)
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		// some mutations answer with plain text on success
		if m, ok := out.(*Message); ok {
			m.Message = strings.TrimSpace(string(data))
			return nil
		}
		return fmt.Errorf("api: decode %s %s: %w", method, path, err)
	}
	return nil
}
