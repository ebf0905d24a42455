// Package plane is the HTTP client for the target application's REST API:
// session-cookie authentication, read-only discovery endpoints, and the
// create/link write endpoints used during a backfill run.
package plane

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/planeseed/planeseed/internal/logger"
	"github.com/planeseed/planeseed/internal/ratelimit"
)

// ErrAlreadyExists marks write conflicts the seeder treats as success-ish:
// the record is there, just not created by this run.
var ErrAlreadyExists = errors.New("record already exists")

// StatusError is a non-success response from the target API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("api returned %d: %s", e.Code, truncateBody(e.Body))
}

// Config locates and authenticates against one target deployment.
type Config struct {
	BaseURL  string // e.g. http://localhost:8000
	WebURL   string // Referer base, e.g. http://localhost:3000
	Email    string
	Password string
	PoolSize int // authenticated sessions; size to the worker count
}

// Client wraps a pool of authenticated sessions. Every outbound call passes
// through the shared rate budget before it is dispatched.
type Client struct {
	cfg    Config
	budget *ratelimit.Budget
	pool   *sessionPool
	log    *logrus.Logger
}

// NewClient creates an unauthenticated client; call Login before use.
func NewClient(cfg Config, budget *ratelimit.Budget) *Client {
	if cfg.WebURL == "" {
		cfg.WebURL = cfg.BaseURL
	}
	return &Client{cfg: cfg, budget: budget, log: logger.Get()}
}

// Login authenticates the admin credentials and fills the session pool.
func (c *Client) Login(ctx context.Context) error {
	pool, err := newSessionPool(ctx, c.cfg.PoolSize, func(ctx context.Context) (*Session, error) {
		s, err := newSession()
		if err != nil {
			return nil, err
		}
		if err := s.authenticate(ctx, c.cfg.BaseURL, c.cfg.WebURL, c.cfg.Email, c.cfg.Password); err != nil {
			return nil, err
		}
		return s, nil
	})
	if err != nil {
		return err
	}
	c.pool = pool
	c.log.WithField("sessions", c.cfg.PoolSize).Info("Authenticated against target API")
	return nil
}

// LoginAs opens a standalone session for a non-admin user. Used for
// invitation acceptance, profile setup and quick links, which must run as
// the user they affect.
func (c *Client) LoginAs(ctx context.Context, email, password string) (*Session, error) {
	s, err := newSession()
	if err != nil {
		return nil, err
	}
	if err := s.authenticate(ctx, c.cfg.BaseURL, c.cfg.WebURL, email, password); err != nil {
		return nil, err
	}
	return s, nil
}

// BaseURL returns the deployment root, without the /api prefix.
func (c *Client) BaseURL() string { return c.cfg.BaseURL }

func (c *Client) apiURL(path string) string {
	return c.cfg.BaseURL + "/api" + path
}

func (c *Client) referer(path string) string {
	return c.cfg.BaseURL + path
}

// withSession runs fn with a pooled session unless an explicit one is given.
func (c *Client) withSession(ctx context.Context, s *Session, fn func(*Session) error) error {
	if s != nil {
		return fn(s)
	}
	if c.pool == nil {
		return fmt.Errorf("client not logged in")
	}
	pooled, err := c.pool.acquire(ctx)
	if err != nil {
		return err
	}
	defer c.pool.release(pooled)
	return fn(pooled)
}

func (c *Client) do(ctx context.Context, s *Session, req *http.Request) (int, []byte, error) {
	if err := c.budget.Wait(ctx); err != nil {
		return 0, nil, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// get issues a rate-limited GET against an /api path.
func (c *Client) get(ctx context.Context, s *Session, path string) (int, []byte, error) {
	var (
		status int
		body   []byte
	)
	err := c.withSession(ctx, s, func(sess *Session) error {
		req, err := http.NewRequestWithContext(ctx, "GET", c.apiURL(path), nil)
		if err != nil {
			return err
		}
		status, body, err = c.do(ctx, sess, req)
		return err
	})
	return status, body, err
}

// postJSON issues a rate-limited JSON POST with CSRF and Referer headers.
func (c *Client) postJSON(ctx context.Context, s *Session, path, referer string, payload any) (int, []byte, error) {
	return c.sendJSON(ctx, s, "POST", path, referer, payload)
}

// patchJSON issues a rate-limited JSON PATCH.
func (c *Client) patchJSON(ctx context.Context, s *Session, path, referer string, payload any) (int, []byte, error) {
	return c.sendJSON(ctx, s, "PATCH", path, referer, payload)
}

func (c *Client) sendJSON(ctx context.Context, s *Session, method, path, referer string, payload any) (int, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal payload: %w", err)
	}

	var (
		status int
		body   []byte
	)
	err = c.withSession(ctx, s, func(sess *Session) error {
		req, err := http.NewRequestWithContext(ctx, method, c.apiURL(path), bytes.NewReader(data))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-CSRFToken", sess.csrf)
		req.Header.Set("Referer", referer)
		status, body, err = c.do(ctx, sess, req)
		return err
	})
	return status, body, err
}

// postForm issues a form-encoded POST against a non-/api path (the auth
// endpoints live at the deployment root).
func (c *Client) postForm(ctx context.Context, s *Session, path, referer string, form url.Values) (int, []byte, error) {
	var (
		status int
		body   []byte
	)
	err := c.withSession(ctx, s, func(sess *Session) error {
		if form.Get("csrfmiddlewaretoken") == "" {
			form.Set("csrfmiddlewaretoken", sess.csrf)
		}
		req, err := http.NewRequestWithContext(ctx, "POST",
			c.cfg.BaseURL+path, strings.NewReader(form.Encode()))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Referer", referer)
		status, body, err = c.do(ctx, sess, req)
		return err
	})
	return status, body, err
}

// decodeList unmarshals either a bare JSON array or the paginated envelope
// {"results": [...]} into v (a pointer to a slice). Callers never see which
// shape the server chose.
func decodeList(data []byte, v any) error {
	var envelope struct {
		Results json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Results != nil {
		return json.Unmarshal(envelope.Results, v)
	}
	return json.Unmarshal(data, v)
}

// getList fetches and decodes a collection endpoint, tolerating both
// response shapes. Non-200 statuses are returned as *StatusError.
func (c *Client) getList(ctx context.Context, s *Session, path string, v any) error {
	status, body, err := c.get(ctx, s, path)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return &StatusError{Code: status, Body: string(body)}
	}
	if err := decodeList(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// conflict reports whether a write response is an "already exists" outcome.
// The API has no structured error code; 409, or 400 with a known message
// fragment, is the only signal available.
func conflict(status int, body string, markers ...string) bool {
	if status == http.StatusConflict {
		return true
	}
	if status != http.StatusBadRequest {
		return false
	}
	lower := strings.ToLower(body)
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// writeResult maps a create/link response onto the package error taxonomy.
func writeResult(status int, body []byte, markers ...string) error {
	if status == http.StatusOK || status == http.StatusCreated || status == http.StatusNoContent {
		return nil
	}
	if conflict(status, string(body), markers...) {
		return fmt.Errorf("%w (status %d)", ErrAlreadyExists, status)
	}
	return &StatusError{Code: status, Body: string(body)}
}
