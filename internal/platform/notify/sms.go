package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SendResult reports how a code left the gateway. Test numbers are
// skipped without touching the provider and still count as success.
type SendResult struct {
	Status string // "sent" or "skipped"
	IsTest bool
}

type CodeSender interface {
	Send(ctx context.Context, recipient, code string) (SendResult, error)
}

// SMSGateway dispatches codes through an HTTP SMS provider.
type SMSGateway struct {
	baseURL     string
	apiKey      string
	senderID    string
	testNumbers map[string]struct{}
	client      *http.Client
	log         *zap.Logger
}

func NewSMSGateway(baseURL, apiKey, senderID string, testNumbers []string, timeout time.Duration, log *zap.Logger) *SMSGateway {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	set := make(map[string]struct{}, len(testNumbers))
	for _, n := range testNumbers {
		set[n] = struct{}{}
	}
	return &SMSGateway{
		baseURL:     baseURL,
		apiKey:      apiKey,
		senderID:    senderID,
		testNumbers: set,
		client:      &http.Client{Timeout: timeout},
		log:         log,
	}
}

// Send dispatches the code to phone. Delivery failures are wrapped with a
// stable "SMS sending failed" prefix so callers can branch on them
// distinctly from other failures.
func (g *SMSGateway) Send(ctx context.Context, phone, code string) (SendResult, error) {
	if _, ok := g.testNumbers[phone]; ok {
		g.log.Info("test number, sms skipped", zap.String("phone", phone))
		return SendResult{Status: "skipped", IsTest: true}, nil
	}

	form := url.Values{}
	form.Set("route", "otp")
	form.Set("sender_id", g.senderID)
	form.Set("variables_values", code)
	form.Set("numbers", phone)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return SendResult{}, fmt.Errorf("SMS sending failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("authorization", g.apiKey)

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return SendResult{}, fmt.Errorf("SMS sending failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		g.log.Warn("sms provider rejected message",
			zap.String("phone", phone),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", body))
		return SendResult{}, fmt.Errorf("SMS sending failed: provider status %d", resp.StatusCode)
	}

	g.log.Info("sms sent",
		zap.String("phone", phone),
		zap.Duration("took", time.Since(start)))
	return SendResult{Status: "sent"}, nil
}
