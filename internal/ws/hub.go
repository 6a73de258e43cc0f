package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"unicode/utf8"

	"neowatch/internal/models"
	"neowatch/internal/repository"
	"neowatch/internal/service"
)

// GeneralRoom зарезервирован под общую комнату, остальные комнаты
// именуются идентификатором астероида
const GeneralRoom = "general"

// historyLimit задает, сколько последних сообщений получает новый подписчик
const historyLimit = 50

// Hub хранит подписки соединений по комнатам и рассылает сообщения.
// Реестр процесс-локальный, журнал сообщений персистентный.
type Hub struct {
	chatRepo repository.ChatRepository

	mu      sync.Mutex
	rooms   map[string]map[*Client]bool
	members map[*Client]map[string]bool
}

func NewHub(chatRepo repository.ChatRepository) *Hub {
	return &Hub{
		chatRepo: chatRepo,
		rooms:    make(map[string]map[*Client]bool),
		members:  make(map[*Client]map[string]bool),
	}
}

// Join подписывает соединение на комнату и отдает ему историю:
// не более 50 последних сообщений, от старых к новым.
// Реплей и подписка идут под той же блокировкой, что и рассылка:
// новый подписчик сначала получает историю, потом живые сообщения,
// сообщение не может попасть и в реплей, и в живую доставку.
func (h *Hub) Join(ctx context.Context, c *Client, roomID string) error {
	if roomID == "" {
		roomID = GeneralRoom
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// Историю читаем до регистрации: упавший реплей не оставляет
	// соединение подписанным
	messages, err := h.chatRepo.GetRecentByRoom(ctx, roomID, historyLimit)
	if err != nil {
		return err
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}

	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][c] = true
	if h.members[c] == nil {
		h.members[c] = make(map[string]bool)
	}
	h.members[c][roomID] = true

	c.deliver(Event{
		Type:     EventRoomHistory,
		RoomID:   roomID,
		Messages: messages,
	})

	return nil
}

// Leave отписывает соединение от комнаты, идемпотентен
func (h *Hub) Leave(c *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, roomID)
}

// Disconnect снимает соединение со всех его комнат
func (h *Hub) Disconnect(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for roomID := range h.members[c] {
		h.leaveLocked(c, roomID)
	}
	delete(h.members, c)
}

// SendMessage валидирует сообщение, пишет его в журнал и рассылает
// всем текущим подписчикам комнаты. Порядок доставки внутри процесса
// совпадает с порядком записи: журнал и рассылка под одной блокировкой.
func (h *Hub) SendMessage(ctx context.Context, c *Client, roomID, body string) error {
	if roomID == "" {
		roomID = GeneralRoom
	}
	// Лимит считается в символах, не в байтах
	if n := utf8.RuneCountInString(body); n < 1 || n > models.MaxChatMessageLength {
		return service.ErrInvalidMessage
	}

	message := &models.ChatMessage{
		UserID:   c.UserID,
		UserName: c.UserName,
		RoomID:   roomID,
		Message:  body,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.chatRepo.Create(ctx, message); err != nil {
		return err
	}

	event := Event{
		Type:    EventNewMessage,
		RoomID:  roomID,
		Message: message,
	}

	for subscriber := range h.rooms[roomID] {
		subscriber.deliver(event)
	}

	return nil
}

// RoomCount возвращает число подписчиков комнаты
func (h *Hub) RoomCount(roomID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[roomID])
}

func (h *Hub) leaveLocked(c *Client, roomID string) {
	if subscribers, ok := h.rooms[roomID]; ok {
		delete(subscribers, c)
		if len(subscribers) == 0 {
			delete(h.rooms, roomID)
		}
	}
	if joined, ok := h.members[c]; ok {
		delete(joined, roomID)
	}
}

func marshalEvent(event Event) []byte {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Chat hub: failed to marshal event: %v", err)
		return nil
	}
	return data
}
