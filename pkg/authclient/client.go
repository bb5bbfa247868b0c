// Package authclient is a small client for the auth API that keeps the
// access token fresh transparently: a request rejected with an expired
// token triggers exactly one refresh and one replay.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// ErrLoggedOut is returned by Refresh when no refresh token is stored.
var ErrLoggedOut = errors.New("authclient: not logged in")

type Tokens struct {
	Access  string
	Refresh string
}

type Client struct {
	base string
	http *http.Client

	mu     sync.RWMutex
	tokens Tokens
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: baseURL,
		http: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) SetTokens(access, refresh string) {
	c.mu.Lock()
	c.tokens = Tokens{Access: access, Refresh: refresh}
	c.mu.Unlock()
}

func (c *Client) Tokens() Tokens {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokens
}

// Logout discards the stored tokens. With stateless server tokens this is
// the whole logout.
func (c *Client) Logout() {
	c.mu.Lock()
	c.tokens = Tokens{}
	c.mu.Unlock()
}

// Do sends req with the current access token attached. When the server
// answers 401 TOKEN_EXPIRED and the request has not been retried yet, it
// refreshes the access token once and replays the request; when the
// refresh itself fails, the stored tokens are cleared and the original
// 401 response is returned.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.do(req, false)
}

func (c *Client) do(req *http.Request, retried bool) (*http.Response, error) {
	if access := c.Tokens().Access; access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || retried {
		return resp, nil
	}

	code, restored, err := peekErrorCode(resp)
	if err != nil {
		return nil, err
	}
	resp = restored
	if code != "TOKEN_EXPIRED" {
		// invalid or missing token means tampering or misconfiguration,
		// not staleness; refreshing would not help
		return resp, nil
	}

	// mark before attempting the refresh: at most one refresh per request
	retried = true

	if err := c.Refresh(req.Context()); err != nil {
		c.Logout()
		return resp, nil
	}

	replay, err := cloneRequest(req)
	if err != nil {
		return resp, nil
	}
	resp.Body.Close()
	return c.do(replay, retried)
}

// Refresh exchanges the stored refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context) error {
	refresh := c.Tokens().Refresh
	if refresh == "" {
		return ErrLoggedOut
	}

	payload, _ := json.Marshal(map[string]string{"refresh_token": refresh})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/auth/refresh", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("authclient: refresh rejected with status %d", resp.StatusCode)
	}

	var body struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return err
	}
	if body.Data.AccessToken == "" {
		return errors.New("authclient: refresh response missing access token")
	}

	c.mu.Lock()
	c.tokens.Access = body.Data.AccessToken
	c.mu.Unlock()
	return nil
}

// peekErrorCode reads the envelope's error_code and hands back a response
// whose body can still be read by the caller.
func peekErrorCode(resp *http.Response) (string, *http.Response, error) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	resp.Body.Close()
	if err != nil {
		return "", nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(raw))

	var env struct {
		ErrorCode string `json:"error_code"`
	}
	_ = json.Unmarshal(raw, &env)
	return env.ErrorCode, resp, nil
}

func cloneRequest(req *http.Request) (*http.Request, error) {
	replay := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return replay, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("authclient: request body cannot be replayed")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	replay.Body = body
	return replay, nil
}
