package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/iliyamo/user-account-service/internal/config"
)

// Pusher delivers mobile push notifications through the FCM legacy
// HTTP endpoint. Like the mailer it degrades to a logged no-op when
// no server key is configured.
type Pusher struct {
	key      string
	endpoint string
	client   *http.Client
}

func NewPusher(cfg config.Config) *Pusher {
	return &Pusher{
		key:      cfg.FCMKey,
		endpoint: cfg.FCMEndpoint,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type pushRequest struct {
	To           string           `json:"to"`
	Notification pushNotification `json:"notification"`
}

type pushNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Enabled reports whether a server key is configured.
func (p *Pusher) Enabled() bool { return p.key != "" }

// Send posts one notification to the device identified by token.
func (p *Pusher) Send(ctx context.Context, token, title, body string) error {
	if !p.Enabled() {
		return nil
	}
	payload, err := json.Marshal(pushRequest{
		To:           token,
		Notification: pushNotification{Title: title, Body: body},
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+p.key)

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("push gateway returned %d", resp.StatusCode)
	}
	return nil
}
