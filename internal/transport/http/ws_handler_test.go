package http

import (
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestWebSocketAnswerFlow(t *testing.T) {
	h := newHarness(t)
	_, snap := h.do(t, http.MethodPost, "/api/sessions", "", nil)
	id := snap["sessionId"].(string)

	u := "ws" + h.server.URL[len("http"):] + "/ws/sessions/" + id
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Initial state first.
	_, payload := readNext(conn, t, "state")
	if payload["question"] == nil {
		t.Fatalf("expected a question in the initial state, got %v", payload)
	}

	if err := conn.WriteJSON(map[string]any{"type": "answer", "payload": map[string]any{"index": 1}}); err != nil {
		t.Fatalf("write answer: %v", err)
	}
	_, payload = readNext(conn, t, "state")
	feedback, ok := payload["feedback"].(map[string]any)
	if !ok || feedback["correct"] != true {
		t.Fatalf("expected correct feedback, got %v", payload["feedback"])
	}

	if err := conn.WriteJSON(map[string]any{"type": "advance"}); err != nil {
		t.Fatalf("write advance: %v", err)
	}
	_, payload = readNext(conn, t, "state")
	question, _ := payload["question"].(map[string]any)
	if question["number"] != float64(2) {
		t.Fatalf("expected second question, got %v", payload["question"])
	}

	// Advancing again without an answer is rejected.
	if err := conn.WriteJSON(map[string]any{"type": "advance"}); err != nil {
		t.Fatalf("write advance: %v", err)
	}
	_, payload = readNext(conn, t, "error")
	if payload["error"] == "" {
		t.Fatalf("expected error message, got %v", payload)
	}

	if err := conn.WriteJSON(map[string]any{"type": "dance"}); err != nil {
		t.Fatalf("write unknown: %v", err)
	}
	readNext(conn, t, "error")
}

func TestWebSocketUnknownSession(t *testing.T) {
	h := newHarness(t)
	u := "ws" + h.server.URL[len("http"):] + "/ws/sessions/missing"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", resp)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}
