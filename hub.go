package main

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	hubWriteWait   = 10 * time.Second
	hubSendBacklog = 32
	hubMaxMsgBytes = 4096
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Inbound operations.
const (
	opSendChatMessage      = "SendChatMessage"
	opUpdatePlayerPosition = "UpdatePlayerPosition"
	opJoinRoom             = "JoinRoom"
	opLeaveRoom            = "LeaveRoom"
)

// Outbound events.
const (
	evReceiveChatMessage = "ReceiveChatMessage"
	evPlayerMoved        = "PlayerMoved"
)

type hubInbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type hubOutbound struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

type chatPayload struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

type movePayload struct {
	UserID string  `json:"userId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

type roomPayload struct {
	Room string `json:"room"`
}

// Hub is the in-memory broadcast surface. It holds no durable state and is
// deliberately independent of the HTTP persistence path.
type Hub struct {
	mu      sync.Mutex
	clients map[*hubClient]struct{}
	rooms   map[string]map[*hubClient]struct{}
}

type hubClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

func newHub() *Hub {
	return &Hub{
		clients: make(map[*hubClient]struct{}),
		rooms:   make(map[string]map[*hubClient]struct{}),
	}
}

func (h *Hub) addClient(c *hubClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	log.Println("hub: client connected:", c.id)
}

func (h *Hub) removeClient(c *hubClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	for name, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, name)
		}
	}
	h.mu.Unlock()
	log.Println("hub: client disconnected:", c.id)
}

func (h *Hub) joinRoom(c *hubClient, name string) {
	if name == "" {
		return
	}
	h.mu.Lock()
	members, ok := h.rooms[name]
	if !ok {
		members = make(map[*hubClient]struct{})
		h.rooms[name] = members
	}
	members[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) leaveRoom(c *hubClient, name string) {
	h.mu.Lock()
	if members, ok := h.rooms[name]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, name)
		}
	}
	h.mu.Unlock()
}

// broadcast sends to every connected client, skipping except when set.
func (h *Hub) broadcast(msg hubOutbound, except *hubClient) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Println("hub: marshal failed:", err)
		return
	}
	h.mu.Lock()
	for c := range h.clients {
		if c == except {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Slow consumer; drop the event rather than block the hub.
		}
	}
	h.mu.Unlock()
}

// broadcastRoom scopes a broadcast to one named room.
func (h *Hub) broadcastRoom(name string, msg hubOutbound, except *hubClient) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Println("hub: marshal failed:", err)
		return
	}
	h.mu.Lock()
	for c := range h.rooms[name] {
		if c == except {
			continue
		}
		select {
		case c.send <- data:
		default:
		}
	}
	h.mu.Unlock()
}

func (h *Hub) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) roomSize(name string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[name])
}

func (h *Hub) serveWS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("hub: upgrade failed:", err)
			return
		}

		c := &hubClient{
			id:   uuid.NewString(),
			conn: conn,
			send: make(chan []byte, hubSendBacklog),
		}
		h.addClient(c)

		go c.writePump()
		h.readPump(c)
	}
}

func (h *Hub) readPump(c *hubClient) {
	defer func() {
		h.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(hubMaxMsgBytes)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var msg hubInbound
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Println("hub: bad message from", c.id, ":", err)
			continue
		}
		h.dispatch(c, msg)
	}
}

func (h *Hub) dispatch(c *hubClient, msg hubInbound) {
	switch msg.Type {
	case opSendChatMessage:
		var p chatPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		h.broadcast(hubOutbound{Type: evReceiveChatMessage, Payload: p}, nil)

	case opUpdatePlayerPosition:
		var p movePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		// The mover already knows where it is.
		h.broadcast(hubOutbound{Type: evPlayerMoved, Payload: p}, c)

	case opJoinRoom:
		var p roomPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		h.joinRoom(c, p.Room)

	case opLeaveRoom:
		var p roomPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return
		}
		h.leaveRoom(c, p.Room)

	default:
		log.Println("hub: unknown op from", c.id, ":", msg.Type)
	}
}

func (c *hubClient) writePump() {
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(hubWriteWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
