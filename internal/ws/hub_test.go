package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/fevolq/money/internal/cache"
)

type frame struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
	Msg   string `json:"msg"`
}

func dialTestHub(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatal(err)
	}
	return f
}

func TestRegisterBroadcastsUserCount(t *testing.T) {
	hub := NewHub(cache.New(), time.UTC, zap.NewNop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dialTestHub(t, srv)

	f := readFrame(t, conn)
	if f.Type != "user" || f.Value != float64(1) {
		t.Errorf("expected user-count frame for 1 client, got %+v", f)
	}

	dialTestHub(t, srv)
	f = readFrame(t, conn)
	if f.Type != "user" || f.Value != float64(2) {
		t.Errorf("expected user-count frame for 2 clients, got %+v", f)
	}
}

func TestBroadcastReachesAllClients(t *testing.T) {
	hub := NewHub(cache.New(), time.UTC, zap.NewNop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	a := dialTestHub(t, srv)
	readFrame(t, a)
	b := dialTestHub(t, srv)
	readFrame(t, a) // second user-count frame
	readFrame(t, b)

	hub.Broadcast(map[string]any{"type": "notice", "msg": "hello"})

	for _, conn := range []*websocket.Conn{a, b} {
		f := readFrame(t, conn)
		if f.Type != "notice" || f.Msg != "hello" {
			t.Errorf("unexpected frame %+v", f)
		}
	}
}

func TestBroadcastDedupSuppressesRepeats(t *testing.T) {
	hub := NewHub(cache.New(), time.UTC, zap.NewNop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dialTestHub(t, srv)
	readFrame(t, conn)

	hub.BroadcastDedup(map[string]any{"type": "alert", "msg": "once"}, "k1")
	if f := readFrame(t, conn); f.Msg != "once" {
		t.Fatalf("first delivery missing, got %+v", f)
	}

	hub.BroadcastDedup(map[string]any{"type": "alert", "msg": "once"}, "k1")
	hub.BroadcastDedup(map[string]any{"type": "alert", "msg": "other"}, "k2")

	// The k1 repeat must be skipped; the next frame is k2.
	if f := readFrame(t, conn); f.Msg != "other" {
		t.Errorf("expected k2 delivery after suppressed repeat, got %+v", f)
	}
}

func TestEchoesClientFrames(t *testing.T) {
	hub := NewHub(cache.New(), time.UTC, zap.NewNop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dialTestHub(t, srv)
	readFrame(t, conn)

	if err := conn.WriteJSON(map[string]any{"type": "ping", "msg": "pong"}); err != nil {
		t.Fatal(err)
	}
	if f := readFrame(t, conn); f.Type != "ping" || f.Msg != "pong" {
		t.Errorf("expected echo, got %+v", f)
	}
}

func TestUnregisterOnDisconnect(t *testing.T) {
	hub := NewHub(cache.New(), time.UTC, zap.NewNop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	a := dialTestHub(t, srv)
	readFrame(t, a)
	b := dialTestHub(t, srv)
	readFrame(t, a)

	b.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Count() != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("expected 1 client after disconnect, have %d", hub.Count())
		}
		time.Sleep(10 * time.Millisecond)
	}

	if f := readFrame(t, a); f.Type != "user" || f.Value != float64(1) {
		t.Errorf("expected user-count frame after disconnect, got %+v", f)
	}
}
