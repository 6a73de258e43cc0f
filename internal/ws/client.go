package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"neowatch/internal/models"
	"neowatch/internal/service"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second    // Время на отправку сообщения клиенту
	pongWait       = 60 * time.Second    // Время ожидания pong от клиента
	pingPeriod     = (pongWait * 9) / 10 // Период ping, должен быть меньше pongWait
	maxMessageSize = 4096                // Максимальный размер входящего кадра
)

// Типы событий протокола чата
const (
	EventJoinRoom    = "join-room"
	EventLeaveRoom   = "leave-room"
	EventSendMessage = "send-message"
	EventRoomHistory = "room-history"
	EventNewMessage  = "new-message"
	EventSendError   = "send-error"
)

type Event struct {
	Type     string               `json:"type"`
	RoomID   string               `json:"roomId,omitempty"`
	Body     string               `json:"body,omitempty"`
	Message  *models.ChatMessage  `json:"message,omitempty"`
	Messages []models.ChatMessage `json:"messages,omitempty"`
	Reason   string               `json:"reason,omitempty"`
}

// Client связывает websocket-соединение с хабом.
// Одно соединение = один Client, у пользователя их может быть несколько.
type Client struct {
	ID       uuid.UUID
	UserID   string
	UserName string

	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func NewClient(hub *Hub, conn *websocket.Conn, userID, userName string) *Client {
	return &Client{
		ID:       uuid.New(),
		UserID:   userID,
		UserName: userName,
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, 64),
	}
}

// deliver кладет событие в буфер отправки; переполненный буфер
// означает зависшего клиента, событие для него теряется
func (c *Client) deliver(event Event) {
	data := marshalEvent(event)
	if data == nil {
		return
	}
	select {
	case c.send <- data:
	default:
		log.Printf("Chat client %s send buffer full, dropping event", c.ID)
	}
}

// ReadPump читает события клиента и передает их хабу
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Disconnect(c)
		close(c.send)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Chat client %s read error: %v", c.ID, err)
			}
			break
		}

		var event Event
		if err := json.Unmarshal(data, &event); err != nil {
			c.deliver(Event{Type: EventSendError, Reason: "malformed event"})
			continue
		}

		c.handleEvent(event)
	}
}

func (c *Client) handleEvent(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch event.Type {
	case EventJoinRoom:
		if err := c.hub.Join(ctx, c, event.RoomID); err != nil {
			log.Printf("Chat client %s join error: %v", c.ID, err)
			c.deliver(Event{Type: EventSendError, Reason: "failed to join room"})
		}
	case EventLeaveRoom:
		c.hub.Leave(c, event.RoomID)
	case EventSendMessage:
		if err := c.hub.SendMessage(ctx, c, event.RoomID, event.Body); err != nil {
			// Ошибка уходит только отправителю, рассылки нет
			reason := "failed to send message"
			if errors.Is(err, service.ErrInvalidMessage) {
				reason = "message must be between 1 and 500 characters"
			}
			c.deliver(Event{Type: EventSendError, Reason: reason})
		}
	default:
		c.deliver(Event{Type: EventSendError, Reason: "unknown event type"})
	}
}

// WritePump пишет события из буфера в соединение и держит ping
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("Chat client %s write error: %v", c.ID, err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
