package services

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/chachabrian/railparcel-backend/internal/models"
	"github.com/chachabrian/railparcel-backend/pkg/logger"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one websocket connection of a station user.
type Client struct {
	UserID    uint
	StationID uint
	conn      *websocket.Conn
	send      chan []byte
	hub       *Hub
}

// Hub tracks connected clients per station and pushes parcel events to them.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mutex      sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run processes registrations until ctx is cancelled, then closes every
// client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			logger.Debug("websocket client connected", "user_id", client.UserID, "station_id", client.StationID)

		case client := <-h.unregister:
			h.remove(client)
			logger.Debug("websocket client disconnected", "user_id", client.UserID, "station_id", client.StationID)

		case <-ctx.Done():
			close(h.done)
			h.mutex.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mutex.Unlock()
			return
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

// BroadcastToStation queues a frame for every client of the station and
// returns how many clients took it. Slow clients are skipped.
func (h *Hub) BroadcastToStation(stationID uint, message []byte) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	sent := 0
	for client := range h.clients {
		if client.StationID != stationID {
			continue
		}
		select {
		case client.send <- message:
			sent++
		default:
			logger.Warn("websocket send buffer full", "user_id", client.UserID, "station_id", stationID)
		}
	}
	return sent
}

func (h *Hub) ConnectedClients() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Frame is the envelope of every pushed event.
type Frame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

const (
	FrameMessageCreated = "message_created"
	FrameParcelUpdated  = "parcel_updated"
)

type ParcelUpdate struct {
	ID             uint                `json:"id"`
	TrackingNumber string              `json:"tracking_number"`
	Status         models.ParcelStatus `json:"status"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

func (h *Hub) MessagesCreated(ctx context.Context, messages []models.Message) error {
	for _, msg := range messages {
		data, err := json.Marshal(Frame{Type: FrameMessageCreated, Data: msg})
		if err != nil {
			return err
		}
		h.BroadcastToStation(msg.ToStationID, data)
	}
	return nil
}

func (h *Hub) ParcelUpdated(ctx context.Context, parcel models.Parcel) error {
	data, err := json.Marshal(Frame{Type: FrameParcelUpdated, Data: ParcelUpdate{
		ID:             parcel.ID,
		TrackingNumber: parcel.TrackingNumber,
		Status:         parcel.Status,
		UpdatedAt:      parcel.UpdatedAt,
	}})
	if err != nil {
		return err
	}

	h.BroadcastToStation(parcel.SenderStationID, data)
	if parcel.ReceiverStationID != parcel.SenderStationID {
		h.BroadcastToStation(parcel.ReceiverStationID, data)
	}
	return nil
}

// ServeWS upgrades the request and attaches the connection to the station.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID, stationID uint) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &Client{
		UserID:    userID,
		StationID: stationID,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		hub:       h,
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return nil
	}

	go client.writePump()
	go client.readPump()
	return nil
}

// readPump only watches for close and pong frames; clients do not send
// commands.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket read error", "error", err, "user_id", c.UserID)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("websocket write error", "error", err, "user_id", c.UserID)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
