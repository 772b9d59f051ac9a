package http

import (
	"encoding/json"
	"net/http"

	"debate-lab-service/internal/app"
	"debate-lab-service/internal/logging"
	"debate-lab-service/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// WSHandler streams battle snapshots to spectators and participants.
type WSHandler struct {
	battles  *app.BattleService
	upgrader websocket.Upgrader
}

func NewWSHandler(battles *app.BattleService) *WSHandler {
	return &WSHandler{
		battles: battles,
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

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and pushes a "battle" message with the current
// state, then one after every recorded round. Clients only listen; anything
// they send other than "ping" is answered with an error message.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	battleID := chi.URLParam(r, "id")
	updates, cancel, err := h.battles.Subscribe(r.Context(), battleID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	metrics.WebSocketConnections.Inc()
	defer metrics.WebSocketConnections.Dec()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// single writer: gorilla connections do not allow concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				logging.Ctx(r.Context()).Debug().Err(err).Str("battleId", battleID).Msg("ws write error")
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case battle, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "battle", Payload: battle}:
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
		var reply outboundMessage[any]
		switch inbound.Type {
		case "ping":
			reply = outboundMessage[any]{Type: "pong", Payload: struct{}{}}
		default:
			reply = outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
		select {
		case send <- reply:
		case <-writerDone:
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
