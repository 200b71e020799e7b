package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Webhook posts a form-encoded `message` field with a bearer token, the
// shape LINE Notify and compatible push services accept.
type Webhook struct {
	URL    string
	Token  string
	Client *http.Client
}

// NewWebhook returns nil when endpoint is empty. A non-positive timeout
// falls back to DefaultNotifyTimeout.
func NewWebhook(endpoint, token string, timeout time.Duration) *Webhook {
	if endpoint == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = DefaultNotifyTimeout
	}
	return &Webhook{
		URL:    endpoint,
		Token:  token,
		Client: &http.Client{Timeout: timeout},
	}
}

func (w *Webhook) Send(ctx context.Context, message string) error {
	if w == nil || w.URL == "" {
		return errors.New("webhook disabled")
	}
	form := url.Values{"message": {message}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+w.Token)

	resp, err := w.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("webhook non-2xx: %s", resp.Status)
	}
	return nil
}
