// Package kohclient is the Go client for the king-of-hills HTTP API.
package kohclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/ellecpu/king-of-hills/pkg/kohdto"
)

// HeaderProvider allows injecting per-request headers
type HeaderProvider func() map[string]string

type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 10 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) CreateMatch(ctx context.Context, req kohdto.CreateMatchRequest) (*kohdto.MatchView, error) {
	var view kohdto.MatchView
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/matches", req, &view, false); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *Client) GetMatch(ctx context.Context, matchID string) (*kohdto.MatchView, error) {
	var view kohdto.MatchView
	if err := c.doJSON(ctx, fasthttp.MethodGet, "/api/matches/"+matchID, nil, &view, true); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *Client) PlayMove(ctx context.Context, matchID string, req kohdto.MoveRequest) (*kohdto.MoveResult, error) {
	var res kohdto.MoveResult
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/matches/"+matchID+"/moves", req, &res, false); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Resign(ctx context.Context, matchID, playerID string) (*kohdto.MatchView, error) {
	req := map[string]string{"player_id": playerID}
	var view kohdto.MatchView
	if err := c.doJSON(ctx, fasthttp.MethodPost, "/api/matches/"+matchID+"/resign", req, &view, false); err != nil {
		return nil, err
	}
	return &view, nil
}

// BoardPNG fetches the rendered board image for a match.
func (c *Client) BoardPNG(ctx context.Context, matchID string) ([]byte, error) {
	url := c.baseURL + "/api/matches/" + matchID + "/board.png"
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(url)
	c.applyHeaders(req)

	if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if status := resp.StatusCode(); status != fasthttp.StatusOK {
		return nil, fmt.Errorf("koh api error: status=%d body=%s", status, truncate(string(resp.Body()), 512))
	}
	return append([]byte(nil), resp.Body()...), nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	url := c.baseURL + path
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(url)
	req.Header.SetContentType("application/json")
	c.applyHeaders(req)

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry {
		attempts = c.retryMax
		if attempts <= 0 {
			attempts = 1
		}
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		deadline := c.computeDeadline(ctx)
		err := c.http.DoDeadline(req, resp, deadline)
		if err != nil {
			if attempt == attempts || !retry {
				return fmt.Errorf("request failed: %w", err)
			}
			lastErr = err
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			err := apiError(status, resp.Body())
			if attempt == attempts || !retry || !shouldRetryStatus(status) {
				return err
			}
			lastErr = err
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if out != nil {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

func (c *Client) applyHeaders(req *fasthttp.Request) {
	if c.headers == nil {
		return
	}
	for k, v := range c.headers() {
		if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
			req.Header.Set(k, v)
		}
	}
}

// apiError surfaces the server's structured error when the body parses
// as one, falling back to the raw payload.
func apiError(status int, body []byte) error {
	var derr kohdto.DomainError
	if json.Unmarshal(body, &derr) == nil && derr.Code != "" {
		return fmt.Errorf("koh api error: status=%d code=%s message=%s", status, derr.Code, derr.Message)
	}
	return fmt.Errorf("koh api error: status=%d body=%s", status, truncate(string(body), 512))
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	if dl, ok := ctx.Deadline(); ok {
		clientDL := time.Now().Add(c.defaultTimeout)
		if dl.Before(clientDL) {
			return dl
		}
		return clientDL
	}
	return time.Now().Add(c.defaultTimeout)
}

func (c *Client) sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base // 100ms, 200ms ...
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
