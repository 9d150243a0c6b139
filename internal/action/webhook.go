package action

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"autoclip/pkg/errors"
)

const webhookTimeout = 10 * time.Second

// HTTPWebhookSender delivers webhook calls with a bounded timeout. A 429 is
// reported as a rate limit error and a 5xx as a network-class error so the
// retry layer treats them as transient; 4xx responses are permanent.
type HTTPWebhookSender struct {
	client *http.Client
}

func NewHTTPWebhookSender() *HTTPWebhookSender {
	return &HTTPWebhookSender{
		client: &http.Client{Timeout: webhookTimeout},
	}
}

func (s *HTTPWebhookSender) Send(ctx context.Context, url, method string, headers map[string]string, body map[string]interface{}) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return 0, errors.ErrValidation.WithMessagef("invalid webhook request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, errors.ErrNetwork.WithMessage("webhook delivery failed").WithCause(err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return resp.StatusCode, errors.ErrRateLimit.WithMessagef("webhook endpoint rate limited: %d", resp.StatusCode)
	case resp.StatusCode >= 500:
		return resp.StatusCode, errors.ErrNetwork.WithMessagef("webhook endpoint error: %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return resp.StatusCode, errors.ErrValidation.WithMessagef("webhook rejected: %d", resp.StatusCode)
	}

	return resp.StatusCode, nil
}
