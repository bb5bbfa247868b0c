package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// AccountSummary mirrors the account object returned by the verify
// endpoint.
type AccountSummary struct {
	ID            string  `json:"id"`
	Email         *string `json:"email"`
	Phone         *string `json:"phone"`
	Name          string  `json:"name"`
	Role          string  `json:"role"`
	EmailVerified bool    `json:"email_verified"`
	PhoneVerified bool    `json:"phone_verified"`
	ReferralCode  string  `json:"referral_code"`
}

// Login asks the server to send a login code to the identifier.
func (c *Client) Login(ctx context.Context, emailOrPhone string) error {
	return c.postJSON(ctx, "/auth/login", map[string]string{"email_or_phone": emailOrPhone}, nil)
}

// Verify submits a code; on success the returned token pair is stored on
// the client.
func (c *Client) Verify(ctx context.Context, emailOrPhone, code string) (*AccountSummary, error) {
	var data struct {
		AccessToken  string         `json:"access_token"`
		RefreshToken string         `json:"refresh_token"`
		Account      AccountSummary `json:"account"`
	}
	if err := c.postJSON(ctx, "/auth/verify", map[string]string{
		"email_or_phone": emailOrPhone,
		"code":           code,
	}, &data); err != nil {
		return nil, err
	}
	c.SetTokens(data.AccessToken, data.RefreshToken)
	return &data.Account, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env struct {
		Success   bool            `json:"success"`
		ErrorCode string          `json:"error_code"`
		Message   string          `json:"message"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return err
	}
	if !env.Success {
		return fmt.Errorf("authclient: %s (%s)", env.Message, env.ErrorCode)
	}
	if out != nil {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}
