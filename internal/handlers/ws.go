package handlers

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/worklyhq/workly-backend/internal/realtime"
	"github.com/worklyhq/workly-backend/internal/utils"
)

// WSHandler serves the refresh-event feed. Authentication runs via a token
// query param because websocket upgrades skip the cookie middleware chain.
type WSHandler struct {
	Hub       *realtime.Hub
	JWTSecret string
}

func NewWSHandler(hub *realtime.Hub, secret string) *WSHandler {
	return &WSHandler{Hub: hub, JWTSecret: secret}
}

func (h *WSHandler) Handle(conn *websocket.Conn) {
	claims, err := utils.ParseJWT(h.JWTSecret, conn.Query("token"))
	if err != nil {
		_ = conn.Close()
		return
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		_ = conn.Close()
		return
	}

	client := &realtime.Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Conn:   realtime.NewWebSocketConn(conn),
		Send:   make(chan []byte, 64),
	}
	h.Hub.RegisterClient(client)
	defer h.Hub.UnregisterClient(client)

	go func() {
		for msg := range client.Send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}()

	// clients only listen; the read loop just detects the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
