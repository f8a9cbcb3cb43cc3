package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"medialit-game-service/internal/app"
	"medialit-game-service/internal/domain"
	"medialit-game-service/internal/infra/memory"
	"medialit-game-service/internal/stage"
)

func newTestHandler(t *testing.T) *WSHandler {
	t.Helper()
	catalog, err := stage.NewCatalog(nil)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	content := memory.NewContentRepository(memory.NewStaticContentLoader(map[string]domain.StageContent{
		"stage2": {StageID: "stage2", Cards: sampleCards()},
	}), time.Minute)
	service := app.NewGameServiceWithTick(catalog, memory.NewSessionRegistry(), content, memory.NewReporter(), time.Hour)
	return NewWSHandler(service)
}

func sampleCards() []domain.PromptCard {
	cards := make([]domain.PromptCard, 12)
	for i := range cards {
		cards[i] = domain.PromptCard{
			ID:               "c" + string(rune('a'+i)),
			Text:             "Which source is the original?",
			Options:          []domain.AnswerOption{{Key: "a", Text: "Source A"}, {Key: "b", Text: "Source B"}},
			CorrectAnswerKey: "a",
		}
	}
	return cards
}

func TestWebSocketRoundFlow(t *testing.T) {
	handler := newTestHandler(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?stage=2"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Initial snapshot shows the instructions phase.
	snap := readSnapshot(t, conn)
	if snap.Phase != domain.PhaseInstructions || snap.TotalRounds != 10 {
		t.Fatalf("unexpected initial snapshot %+v", snap)
	}

	writeIntent(t, conn, "start", nil)
	snap = awaitPhase(t, conn, domain.PhaseActive)
	if snap.CurrentRound != 1 || snap.Prompt == nil {
		t.Fatalf("expected round 1 with a prompt, got %+v", snap)
	}

	writeIntent(t, conn, "select", map[string]any{"answer": "a"})
	writeIntent(t, conn, "submit", nil)

	snap = awaitPhase(t, conn, domain.PhaseFeedback)
	if snap.LastOutcome != domain.OutcomeCorrect || snap.XPTotal == 0 {
		t.Fatalf("expected correct feedback, got %+v", snap)
	}

	writeIntent(t, conn, "advance", nil)
	snap = awaitPhase(t, conn, domain.PhaseActive)
	if snap.CurrentRound != 2 {
		t.Fatalf("expected round 2, got %+v", snap)
	}
}

func TestWebSocketRejectsUnknownStage(t *testing.T) {
	handler := newTestHandler(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	resp, err := http.Get(server.URL + "/ws?stage=9")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown stage, got %d", resp.StatusCode)
	}
}

func TestWebSocketSurfacesStateErrors(t *testing.T) {
	handler := newTestHandler(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?stage=2"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	readSnapshot(t, conn) // initial

	// Selecting before start is a state error, surfaced but non-fatal.
	writeIntent(t, conn, "select", map[string]any{"answer": "a"})
	typ, _ := readFrame(t, conn)
	if typ != "error" {
		t.Fatalf("expected error frame, got %s", typ)
	}

	// The session still works afterwards.
	writeIntent(t, conn, "start", nil)
	snap := awaitPhase(t, conn, domain.PhaseActive)
	if snap.CurrentRound != 1 {
		t.Fatalf("expected round 1 after recovery, got %+v", snap)
	}
}

func writeIntent(t *testing.T, conn *websocket.Conn, typ string, payload map[string]any) {
	t.Helper()
	msg := map[string]any{"type": typ}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return msg.Type, msg.Payload
}

func readSnapshot(t *testing.T, conn *websocket.Conn) domain.Snapshot {
	t.Helper()
	typ, payload := readFrame(t, conn)
	if typ != "snapshot" {
		t.Fatalf("expected snapshot frame, got %s", typ)
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	return snap
}

// awaitPhase skims snapshot frames until the session reaches the phase.
func awaitPhase(t *testing.T, conn *websocket.Conn, phase domain.Phase) domain.Snapshot {
	t.Helper()
	for i := 0; i < 20; i++ {
		snap := readSnapshot(t, conn)
		if snap.Phase == phase {
			return snap
		}
	}
	t.Fatalf("never saw phase %q", phase)
	return domain.Snapshot{}
}
