// Package feishu implements a Feishu group-robot notifier.
package feishu

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fevolq/money/internal/notifier"
)

// Feishu posts rich-text messages to a group robot webhook.
type Feishu struct {
	url    string
	client *http.Client
}

// New creates a new Feishu notifier
func New(url string) *Feishu {
	return &Feishu{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (f *Feishu) Name() string { return "feishu" }

// Send posts the message as a zh-cn post payload. An unconfigured URL is
// a silent no-op.
func (f *Feishu) Send(msg notifier.Message) error {
	if f.url == "" {
		return nil
	}

	payload := map[string]any{
		"msg_type": "post",
		"content": map[string]any{
			"post": map[string]any{
				"zh-cn": map[string]any{
					"title": msg.Title,
					"content": [][]map[string]any{
						{
							{"tag": "text", "text": msg.Content},
						},
					},
				},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("feishu: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequest("POST", f.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("feishu: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("feishu: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("feishu: server returned %d", resp.StatusCode)
	}
	return nil
}
