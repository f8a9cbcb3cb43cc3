package http

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"medialit-game-service/internal/app"
	"medialit-game-service/internal/domain"
)

// WSHandler is the presentation adapter: it upgrades HTTP requests to
// websockets, forwards player intents into the game service, and pushes
// session snapshots (including timer ticks) back out. It never owns game
// state itself.
type WSHandler struct {
	service  *app.GameService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	Answer string `json:"answer"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS creates a game session for the requested stage and runs the intent
// loop until the client disconnects.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	stageNum, err := strconv.Atoi(r.URL.Query().Get("stage"))
	if err != nil {
		http.Error(w, "missing or invalid stage", http.StatusBadRequest)
		return
	}

	session, err := h.service.CreateSession(r.Context(), stageNum)
	if err != nil {
		status := http.StatusInternalServerError
		if err == domain.ErrStageNotFound || err == domain.ErrContentNotFound {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	defer h.service.DropSession(session.ID())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := session.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Single writer goroutine; gorilla connections do not allow concurrent writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "snapshot", Payload: snap}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.dispatch(session, inbound); err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// dispatch routes one inbound intent to the session. State errors come back
// to the client as validation messages; they never tear the session down.
func (h *WSHandler) dispatch(session sessionIntents, inbound inboundMessage) error {
	switch inbound.Type {
	case "start":
		return session.Start()
	case "select":
		var payload selectPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errInvalidPayload
		}
		return session.SelectCandidate(payload.Answer)
	case "hint":
		return session.UseHint()
	case "submit":
		return session.Submit()
	case "advance":
		return session.Advance()
	case "reset":
		session.Reset()
		return nil
	default:
		return errUnsupportedType
	}
}

// sessionIntents is the slice of the engine session the transport needs.
type sessionIntents interface {
	Start() error
	SelectCandidate(answer string) error
	UseHint() error
	Submit() error
	Advance() error
	Reset()
}

var (
	errInvalidPayload  = &wsError{"invalid payload"}
	errUnsupportedType = &wsError{"unsupported message type"}
)

type wsError struct{ msg string }

func (e *wsError) Error() string { return e.msg }
