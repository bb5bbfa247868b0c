package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"driveon/internal/platform/config"
	phttp "driveon/internal/platform/http"
	"driveon/internal/platform/notify"
	"driveon/internal/platform/security"
)

// fakeSender records dispatched codes instead of talking to a provider.
type fakeSender struct {
	mu    sync.Mutex
	codes map[string]string
	calls int
	fail  bool
}

func newFakeSender() *fakeSender {
	return &fakeSender{codes: make(map[string]string)}
}

func (f *fakeSender) Send(_ context.Context, recipient, code string) (notify.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return notify.SendResult{}, errors.New("SMS sending failed: provider down")
	}
	f.codes[recipient] = code
	return notify.SendResult{Status: "sent"}, nil
}

func (f *fakeSender) codeFor(recipient string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.codes[recipient]
}

func testConfig() config.Config {
	return config.Config{
		Env:            "test",
		AccessSecret:   "test-access-secret",
		RefreshSecret:  "test-refresh-secret",
		AccessTTL:      15 * time.Minute,
		RefreshTTL:     7 * 24 * time.Hour,
		OTPValidity:    10 * time.Minute,
		TestPhones:     []string{"9993911855"},
		DeliveryPolicy: config.DeliveryLenient,
	}
}

func newTestApp(cfg config.Config, sender *fakeSender) *fiber.App {
	m := NewModule(cfg, zap.NewNop())
	if sender != nil {
		m.WithSenders(sender, sender)
	}
	return phttp.NewServer(phttp.Options{AppName: "test"}, m)
}

type envelope struct {
	Success   bool                   `json:"success"`
	ErrorCode string                 `json:"error_code"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data"`
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}, token string) (int, envelope) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, env
}

func register(t *testing.T, app *fiber.App, email, phone string) (int, envelope) {
	t.Helper()
	return doJSON(t, app, fiber.MethodPost, "/api/v1/auth/register", map[string]string{
		"email": email,
		"phone": phone,
	}, "")
}

func TestRegisterVerifyIssuesTokens(t *testing.T) {
	sender := newFakeSender()
	app := newTestApp(testConfig(), sender)

	status, env := register(t, app, "a@x.com", "9876543210")
	if status != fiber.StatusCreated || !env.Success {
		t.Fatalf("register = %d %+v", status, env)
	}
	if env.Data["otp_sent"] != true || env.Data["phone"] != "9876543210" {
		t.Fatalf("register data = %+v", env.Data)
	}

	code := sender.codeFor("9876543210")
	if code == "" {
		t.Fatal("no code dispatched to the phone")
	}

	status, env = doJSON(t, app, fiber.MethodPost, "/api/v1/auth/verify", map[string]string{
		"email_or_phone": "9876543210",
		"code":           code,
	}, "")
	if status != fiber.StatusOK || !env.Success {
		t.Fatalf("verify = %d %+v", status, env)
	}
	if env.Data["access_token"] == "" || env.Data["refresh_token"] == "" {
		t.Fatal("verify did not return both tokens")
	}
	acc := env.Data["account"].(map[string]interface{})
	if acc["phone_verified"] != true || acc["email_verified"] != false {
		t.Fatalf("account flags = %+v, want phone verified only", acc)
	}

	// the access token must open protected routes
	access := env.Data["access_token"].(string)
	status, env = doJSON(t, app, fiber.MethodGet, "/api/v1/auth/me", nil, access)
	if status != fiber.StatusOK || !env.Success {
		t.Fatalf("me = %d %+v", status, env)
	}

	status, env = doJSON(t, app, fiber.MethodPost, "/api/v1/auth/logout", nil, access)
	if status != fiber.StatusOK || !env.Success {
		t.Fatalf("logout = %d %+v", status, env)
	}
}

func TestRegisterConflictMessages(t *testing.T) {
	sender := newFakeSender()
	app := newTestApp(testConfig(), sender)

	if status, _ := register(t, app, "a@x.com", "9876543210"); status != fiber.StatusCreated {
		t.Fatalf("seed register = %d", status)
	}

	cases := []struct {
		email, phone, wantCode string
	}{
		{"a@x.com", "9000000001", "EMAIL_TAKEN"},
		{"b@x.com", "9876543210", "PHONE_TAKEN"},
		{"a@x.com", "9876543210", "EMAIL_PHONE_TAKEN"},
	}
	for _, tc := range cases {
		status, env := register(t, app, tc.email, tc.phone)
		if status != fiber.StatusConflict || env.ErrorCode != tc.wantCode {
			t.Errorf("register(%s, %s) = %d %s, want 409 %s", tc.email, tc.phone, status, env.ErrorCode, tc.wantCode)
		}
	}
}

func TestLoginUnknownIdentifier(t *testing.T) {
	app := newTestApp(testConfig(), newFakeSender())

	status, env := doJSON(t, app, fiber.MethodPost, "/api/v1/auth/login", map[string]string{
		"email_or_phone": "nobody@x.com",
	}, "")
	if status != fiber.StatusNotFound || env.ErrorCode != "NOT_FOUND" {
		t.Fatalf("login = %d %s, want 404 NOT_FOUND", status, env.ErrorCode)
	}
}

func TestVerifyWrongAndReplayedCode(t *testing.T) {
	sender := newFakeSender()
	app := newTestApp(testConfig(), sender)

	register(t, app, "a@x.com", "9876543210")
	code := sender.codeFor("9876543210")

	status, env := doJSON(t, app, fiber.MethodPost, "/api/v1/auth/verify", map[string]string{
		"email_or_phone": "9876543210", "code": "000000",
	}, "")
	if status != fiber.StatusBadRequest || env.ErrorCode != "INVALID_OTP" {
		t.Fatalf("wrong code = %d %s, want 400 INVALID_OTP", status, env.ErrorCode)
	}

	if status, _ := doJSON(t, app, fiber.MethodPost, "/api/v1/auth/verify", map[string]string{
		"email_or_phone": "9876543210", "code": code,
	}, ""); status != fiber.StatusOK {
		t.Fatalf("first verify = %d", status)
	}

	// exactly-once: replaying the consumed code is indistinguishable from
	// a wrong code
	status, env = doJSON(t, app, fiber.MethodPost, "/api/v1/auth/verify", map[string]string{
		"email_or_phone": "9876543210", "code": code,
	}, "")
	if status != fiber.StatusBadRequest || env.ErrorCode != "INVALID_OTP" {
		t.Fatalf("replayed code = %d %s, want 400 INVALID_OTP", status, env.ErrorCode)
	}
}

func TestResendNewestCodeWins(t *testing.T) {
	sender := newFakeSender()
	app := newTestApp(testConfig(), sender)

	register(t, app, "a@x.com", "9876543210")

	status, env := doJSON(t, app, fiber.MethodPost, "/api/v1/auth/resend", map[string]string{
		"email_or_phone": "9876543210",
		"purpose":        "register",
	}, "")
	if status != fiber.StatusOK || env.Data["otp_sent"] != true {
		t.Fatalf("resend = %d %+v", status, env)
	}

	latest := sender.codeFor("9876543210")
	if status, _ := doJSON(t, app, fiber.MethodPost, "/api/v1/auth/verify", map[string]string{
		"email_or_phone": "9876543210", "code": latest,
	}, ""); status != fiber.StatusOK {
		t.Fatalf("verify latest code = %d", status)
	}
}

func TestTestNumberNeverTouchesGateway(t *testing.T) {
	// a real gateway against a provider that always fails: a test number
	// must still sail through with the fixed code
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.DeliveryPolicy = config.DeliveryStrict
	cfg.SMSBaseURL = srv.URL

	m := NewModule(cfg, zap.NewNop())
	m.WithSenders(notify.NewSMSGateway(srv.URL, "key", "DRVON", cfg.TestPhones, time.Second, zap.NewNop()), nil)
	app := phttp.NewServer(phttp.Options{AppName: "test"}, m)

	status, env := register(t, app, "qa@x.com", "9993911855")
	if status != fiber.StatusCreated || env.Data["otp_sent"] != true {
		t.Fatalf("register test number = %d %+v", status, env)
	}

	status, env = doJSON(t, app, fiber.MethodPost, "/api/v1/auth/verify", map[string]string{
		"email_or_phone": "9993911855",
		"code":           security.TestCode,
	}, "")
	if status != fiber.StatusOK || !env.Success {
		t.Fatalf("verify fixed code = %d %+v", status, env)
	}
}

func TestDeliveryFailurePolicies(t *testing.T) {
	t.Run("strict aborts but keeps side effects", func(t *testing.T) {
		sender := newFakeSender()
		sender.fail = true
		cfg := testConfig()
		cfg.DeliveryPolicy = config.DeliveryStrict
		app := newTestApp(cfg, sender)

		status, env := register(t, app, "a@x.com", "9876543210")
		if status != fiber.StatusServiceUnavailable || env.ErrorCode != "DELIVERY_FAILED" {
			t.Fatalf("register = %d %s, want 503 DELIVERY_FAILED", status, env.ErrorCode)
		}

		// the account was created before delivery; the conflict proves it
		// survived the failed dispatch
		status, env = register(t, app, "a@x.com", "9876543210")
		if status != fiber.StatusConflict || env.ErrorCode != "EMAIL_PHONE_TAKEN" {
			t.Fatalf("re-register = %d %s, want 409 EMAIL_PHONE_TAKEN", status, env.ErrorCode)
		}
	})

	t.Run("lenient continues", func(t *testing.T) {
		sender := newFakeSender()
		sender.fail = true
		app := newTestApp(testConfig(), sender)

		status, env := register(t, app, "a@x.com", "9876543210")
		if status != fiber.StatusCreated || env.Data["otp_sent"] != true {
			t.Fatalf("register = %d %+v, want success under lenient policy", status, env)
		}
	})
}

func TestRefreshEndpoint(t *testing.T) {
	sender := newFakeSender()
	app := newTestApp(testConfig(), sender)

	register(t, app, "a@x.com", "9876543210")
	_, env := doJSON(t, app, fiber.MethodPost, "/api/v1/auth/verify", map[string]string{
		"email_or_phone": "9876543210", "code": sender.codeFor("9876543210"),
	}, "")
	refresh := env.Data["refresh_token"].(string)

	status, env := doJSON(t, app, fiber.MethodPost, "/api/v1/auth/refresh", map[string]string{
		"refresh_token": refresh,
	}, "")
	if status != fiber.StatusOK || env.Data["access_token"] == "" {
		t.Fatalf("refresh = %d %+v", status, env)
	}

	status, env = doJSON(t, app, fiber.MethodPost, "/api/v1/auth/refresh", map[string]string{
		"refresh_token": "garbage",
	}, "")
	if status != fiber.StatusUnauthorized || env.ErrorCode != "INVALID_REFRESH" {
		t.Fatalf("bad refresh = %d %s, want 401 INVALID_REFRESH", status, env.ErrorCode)
	}
}

func expiredAccessToken(t *testing.T, cfg config.Config) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":  "acc-1",
		"role": "standard",
		"iat":  time.Now().Add(-time.Hour).Unix(),
		"exp":  time.Now().Add(-time.Minute).Unix(),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.AccessSecret))
	if err != nil {
		t.Fatalf("signing expired token: %v", err)
	}
	return tok
}

func TestMiddlewareDistinguishesExpiredFromInvalid(t *testing.T) {
	cfg := testConfig()
	app := newTestApp(cfg, newFakeSender())

	status, env := doJSON(t, app, fiber.MethodGet, "/api/v1/auth/me", nil, "garbage-token")
	if status != fiber.StatusUnauthorized || env.ErrorCode != "INVALID_TOKEN" {
		t.Fatalf("garbage token = %d %s, want 401 INVALID_TOKEN", status, env.ErrorCode)
	}

	status, env = doJSON(t, app, fiber.MethodGet, "/api/v1/auth/me", nil, expiredAccessToken(t, cfg))
	if status != fiber.StatusUnauthorized || env.ErrorCode != "TOKEN_EXPIRED" {
		t.Fatalf("expired token = %d %s, want 401 TOKEN_EXPIRED", status, env.ErrorCode)
	}
}
