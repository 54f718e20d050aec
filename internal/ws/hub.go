package ws

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Hub relays in-progress draft edits between committee members viewing the
// same timetable. It is best-effort and eventually consistent: nothing here
// touches the ledger, and only an explicit Save through the edit endpoint
// commits a diff. Two concurrent saves race last-writer-wins at the cell
// level; the ledger itself stays structurally consistent.
type Hub struct {
	rooms      map[string]map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan roomMessage
}

type roomMessage struct {
	room   string
	sender *client
	data   []byte
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	room string
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan roomMessage, 64),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			if h.rooms[c.room] == nil {
				h.rooms[c.room] = make(map[*client]bool)
			}
			h.rooms[c.room][c] = true
		case c := <-h.unregister:
			if clients, ok := h.rooms[c.room]; ok {
				if _, ok := clients[c]; ok {
					delete(clients, c)
					close(c.send)
					if len(clients) == 0 {
						delete(h.rooms, c.room)
					}
				}
			}
		case msg := <-h.broadcast:
			for c := range h.rooms[msg.room] {
				if c == msg.sender {
					continue
				}
				select {
				case c.send <- msg.data:
				default:
					// Slow consumer, drop it.
					delete(h.rooms[msg.room], c)
					close(c.send)
				}
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeTimetable upgrades the connection and joins the timetable's room.
// Messages are opaque JSON blobs relayed as-is to everyone else in the room.
func ServeTimetable(h *Hub) gin.HandlerFunc {
	return func(ginCtx *gin.Context) {
		conn, err := upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
		if err != nil {
			log.Println("⚠️ Websocket upgrade failed:", err)
			return
		}
		c := &client{
			hub:  h,
			conn: conn,
			send: make(chan []byte, 16),
			room: ginCtx.Param("id"),
		}
		h.register <- c
		go c.writePump()
		go c.readPump()
	}
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.hub.broadcast <- roomMessage{room: c.room, sender: c, data: data}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}
