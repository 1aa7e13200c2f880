package eventsink

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// WebhookSink posts committed events to an HTTP endpoint, signing each body
// with HMAC-SHA256.
type WebhookSink struct {
	*dispatcher
	endpoint string
	secret   []byte
	client   *http.Client
}

func NewWebhookSink(endpoint string, secret []byte, client *http.Client, opts ...Option) (*WebhookSink, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("eventsink: webhook endpoint required")
	}
	if len(secret) == 0 {
		return nil, errors.New("eventsink: webhook secret required")
	}
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	sink := &WebhookSink{
		endpoint: endpoint,
		secret:   append([]byte(nil), secret...),
		client:   client,
	}
	sink.dispatcher = newDispatcher("webhook", sink.send, opts...)
	return sink, nil
}

func (s *WebhookSink) send(ctx context.Context, job delivery) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(job.body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Quark-Event", job.eventType)
	req.Header.Set("X-Quark-Signature", Sign(s.secret, job.body))
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("eventsink: webhook delivery failed with status %d", resp.StatusCode)
}

// Sign returns the signature header value for body.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
