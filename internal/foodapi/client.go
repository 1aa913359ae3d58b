// Package foodapi is the client for the remote food donation API. It has one
// method per resource action, attaches the caller's identity, and turns
// non-2xx responses into *Error values.
package foodapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"foodshare/internal/metrics"
	"foodshare/internal/utils"
	"foodshare/pkg/types"

	"github.com/sirupsen/logrus"
)

const (
	HeaderUserEmail   = "x-user-email"
	HeaderUserName    = "x-user-name"
	HeaderUserPicture = "x-user-picture"
	HeaderRequestID   = "X-Request-ID"

	maxErrorBodyBytes = 64 << 10
)

type Client struct {
	baseURL         *url.URL
	httpClient      *http.Client
	logger          logrus.FieldLogger
	metrics         *metrics.Metrics
	identityHeaders bool
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithIdentityHeaders additionally sends the unsigned x-user-* headers that
// older deployments of the API trust. The bearer token is always sent.
func WithIdentityHeaders(enabled bool) Option {
	return func(c *Client) {
		c.identityHeaders = enabled
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("foodapi: base url is required")
	}

	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("foodapi: parse base url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("foodapi: base url must be http or https, got %q", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// call describes one API round trip.
type call struct {
	operation  string
	method     string
	path       string
	query      url.Values
	body       any
	session    *types.Session
	defaultErr string
}

// endpoint joins an already-escaped path onto the base URL.
func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	escaped := strings.TrimSuffix(c.baseURL.EscapedPath(), "/") + "/" + strings.TrimPrefix(path, "/")
	if unescaped, err := url.PathUnescape(escaped); err == nil {
		u.Path = unescaped
		u.RawPath = escaped
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do performs cl and returns the raw success body.
func (c *Client) do(ctx context.Context, cl call) ([]byte, error) {
	started := time.Now()

	var body io.Reader
	if cl.body != nil {
		data, err := json.Marshal(cl.body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode body: %w", cl.operation, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.endpoint(cl.path, cl.query), body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", cl.operation, err)
	}

	requestID := utils.ShortID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.attachIdentity(req, cl.session)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveAPI(cl.operation, started, err)
		return nil, fmt.Errorf("%s: %w", cl.operation, err)
	}
	defer resp.Body.Close()

	entry := c.logger.WithFields(logrus.Fields{
		"operation":   cl.operation,
		"status":      resp.StatusCode,
		"request_id":  requestID,
		"duration_ms": time.Since(started).Milliseconds(),
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		apiErr := newError(resp.StatusCode, raw, cl.defaultErr)
		c.metrics.ObserveAPI(cl.operation, started, apiErr)
		entry.WithError(apiErr).Debug("food api call failed")
		return nil, apiErr
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.ObserveAPI(cl.operation, started, err)
		return nil, fmt.Errorf("%s: read response: %w", cl.operation, err)
	}

	c.metrics.ObserveAPI(cl.operation, started, nil)
	entry.Debug("food api call")

	return raw, nil
}

func (c *Client) attachIdentity(req *http.Request, sess *types.Session) {
	if sess == nil {
		return
	}

	if sess.IDToken != "" {
		req.Header.Set("Authorization", "Bearer "+sess.IDToken)
	}

	if !c.identityHeaders {
		return
	}

	if sess.User.Email != "" {
		req.Header.Set(HeaderUserEmail, sess.User.Email)
	}
	if sess.User.DisplayName != "" {
		req.Header.Set(HeaderUserName, sess.User.DisplayName)
	}
	if sess.User.PhotoURL != "" {
		req.Header.Set(HeaderUserPicture, sess.User.PhotoURL)
	}
}

func requireSession(operation string, sess *types.Session) error {
	if sess == nil {
		return fmt.Errorf("%s: %w", operation, types.ErrSignInRequired)
	}
	return nil
}

func requireID(operation, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%s: %w", operation, types.ErrMissingID)
	}
	return nil
}
