package handlers

import (
	"log"
	"net/http"

	"neowatch/internal/middleware"
	"neowatch/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Происхождение проверяет CORS на уровне фронтенда,
	// сам сокет закрыт bearer-токеном
	CheckOrigin: func(r *http.Request) bool { return true },
}

type ChatHandler struct {
	hub *ws.Hub
}

func NewChatHandler(hub *ws.Hub) *ChatHandler {
	return &ChatHandler{hub: hub}
}

// Serve поднимает websocket-соединение и запускает насосы клиента.
// Комната из query-параметра подключается сразу, дальше клиент
// управляет подписками событиями join-room/leave-room.
func (h *ChatHandler) Serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Chat: websocket upgrade failed: %v", err)
		return
	}

	client := ws.NewClient(h.hub, conn, middleware.UserID(c), middleware.UserName(c))

	go client.WritePump()

	if roomID := c.Query("room"); roomID != "" {
		if err := h.hub.Join(c.Request.Context(), client, roomID); err != nil {
			log.Printf("Chat: initial join failed: %v", err)
		}
	}

	go client.ReadPump()
}
