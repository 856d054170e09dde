// Package serverchan implements a ServerChan (Server酱) push notifier.
package serverchan

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fevolq/money/internal/notifier"
)

// Upstream limits on message fields.
const (
	maxTitleLen   = 32
	maxContentLen = 32 * 1024
	maxShortLen   = 64
)

// ServerChan delivers messages through the sctapi.ftqq.com push service.
type ServerChan struct {
	key     string
	baseURL string
	client  *http.Client
}

// New creates a new ServerChan notifier
func New(key string) *ServerChan {
	return &ServerChan{
		key:     key,
		baseURL: "https://sctapi.ftqq.com",
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *ServerChan) Name() string { return "serverchan" }

// Send posts the message as a form payload. An unconfigured key is a
// silent no-op.
func (s *ServerChan) Send(msg notifier.Message) error {
	if s.key == "" {
		return nil
	}
	if err := checkLengths(msg); err != nil {
		return err
	}

	form := url.Values{
		"title": {msg.Title},
		"desp":  {msg.Content},
	}
	if msg.Short != "" {
		form.Set("short", msg.Short)
	}

	u := fmt.Sprintf("%s/%s.send", s.baseURL, s.key)
	resp, err := s.client.Post(u, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("serverchan: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("serverchan: server returned %d", resp.StatusCode)
	}
	return nil
}

func checkLengths(msg notifier.Message) error {
	if n := len([]rune(msg.Title)); n >= maxTitleLen {
		return fmt.Errorf("serverchan: title too long (%d chars)", n)
	}
	if n := len(msg.Content); n >= maxContentLen {
		return fmt.Errorf("serverchan: content too long (%d bytes)", n)
	}
	if n := len([]rune(msg.Short)); msg.Short != "" && n >= maxShortLen {
		return fmt.Errorf("serverchan: short too long (%d chars)", n)
	}
	return nil
}
