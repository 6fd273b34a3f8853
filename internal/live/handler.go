package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/factoria/game-engine/internal/auth"
	"github.com/factoria/game-engine/internal/metrics"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	writeWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true // Allow all origins during development.
	},
}

// Handler serves the websocket endpoint. Every connection carries a signed
// player token; the session code arrives as a query parameter and an empty
// one opens a fresh session.
type Handler struct {
	lobby    *Lobby
	verifier *auth.Verifier
}

// NewHandler builds the websocket handler.
func NewHandler(lobby *Lobby, verifier *auth.Verifier) *Handler {
	return &Handler{lobby: lobby, verifier: verifier}
}

// ServeWS handles GET /ws?token=...&session=... upgrade requests.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	claims, err := h.verifier.Verify(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("ws upgrade failed", "err", err)
		return
	}

	// The request context dies with the hijacked connection; session work
	// continues past it.
	ctx := context.Background()
	code := r.URL.Query().Get("session")
	rt, client, err := h.lobby.Join(ctx, code, claims.UserID)
	if err != nil {
		writeClose(conn, err.Error())
		conn.Close()
		return
	}

	metrics.WSClientConnected()
	slog.Info("ws client connected", "code", rt.Code(), "user", claims.UserID)
	client.Send(rt.Welcome(ctx, client))

	go h.writePump(conn, client)
	h.readPump(conn, rt, client)
}

// readPump decodes inbound frames and hands them to the runtime. Runs on
// the request goroutine until the connection drops.
func (h *Handler) readPump(conn *websocket.Conn, rt *Runtime, client *Client) {
	defer func() {
		h.lobby.Leave(rt, client)
		metrics.WSClientDisconnected()
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			client.Send(errorMessage("Malformed message", err))
			continue
		}
		rt.HandleMessage(context.Background(), client, msg)
	}
}

// writePump drains the client's outbound buffer and keeps the connection
// alive through proxies with periodic pings.
func (h *Handler) writePump(conn *websocket.Conn, client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case data, ok := <-client.Outbound():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeClose(conn *websocket.Conn, reason string) {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason))
}
