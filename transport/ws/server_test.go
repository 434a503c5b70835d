package ws

import (
	"encoding/json"
	"math/rand"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm-cable/bonsai/chunk"
	"github.com/pthm-cable/bonsai/config"
	"github.com/pthm-cable/bonsai/physics/physicstest"
	"github.com/pthm-cable/bonsai/protocol"
)

func dial(t *testing.T) *websocket.Conn {
	t.Helper()
	cfg := config.Default()
	cfg.Soil.Grid = 2
	c := chunk.New(cfg, physicstest.New(), rand.New(rand.NewSource(1)))
	h, err := protocol.NewHandler(c)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	srv := httptest.NewServer(NewServer(h).Handler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, msg string) map[string]any {
	t.Helper()
	_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal %s: %v", b, err)
	}
	return out
}

func TestServer_OneResponsePerRequest(t *testing.T) {
	conn := dial(t)

	resp := roundTrip(t, conn, `{"type":"add-plant","id":"1","position":[0,0,20],"genome":"c:c"}`)
	if resp["ok"] != true || resp["id"] != "1" {
		t.Fatalf("expected ok add-plant response, got %v", resp)
	}

	resp = roundTrip(t, conn, `{"type":"step","id":"2"}`)
	if resp["ok"] != true || resp["type"] != "step" {
		t.Fatalf("expected ok step response, got %v", resp)
	}
	result := resp["result"].(map[string]any)
	if result["plants"] != float64(1) {
		t.Errorf("expected 1 plant, got %v", result["plants"])
	}
	for _, key := range []string{"bio", "sync", "light", "physics", "despawn"} {
		if _, ok := result[key]; !ok {
			t.Errorf("expected %s timing in step result", key)
		}
	}
}

func TestServer_ErrorKeepsConnection(t *testing.T) {
	conn := dial(t)

	resp := roundTrip(t, conn, `not json`)
	if resp["ok"] != false {
		t.Fatalf("expected failure, got %v", resp)
	}
	errBody := resp["error"].(map[string]any)
	if errBody["code"] != protocol.ErrBadRequest {
		t.Errorf("expected %s, got %v", protocol.ErrBadRequest, errBody["code"])
	}

	resp = roundTrip(t, conn, `{"type":"serialize"}`)
	if resp["ok"] != true {
		t.Errorf("expected connection to survive a bad request, got %v", resp)
	}
}
