package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"ecodrop-backend/internal/tracking"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 2048
)

// Client represents a WebSocket client connection. At most one dwell
// tracking session runs per client; starting a new one replaces it.
type Client struct {
	UserID string
	conn   *websocket.Conn
	hub    *Hub
	send   chan []byte

	mu      sync.Mutex
	tracker *tracking.Tracker
	source  *tracking.ChannelSource
}

// IncomingMessage represents a message from the client
type IncomingMessage struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

// NewClient creates a new WebSocket client
func NewClient(userID string, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		UserID:  userID,
		conn:    conn,
		hub:     hub,
		send:    make(chan []byte, 256),
		tracker: tracking.NewTracker(),
	}
}

// ReadPump pumps messages from the WebSocket connection to the tracker
func (c *Client) ReadPump() {
	defer func() {
		c.stopTracking()
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var msg IncomingMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Invalid message format: %v", err)
			continue
		}

		switch msg.Type {
		case "ping":
			c.reply(map[string]interface{}{
				"type":      "pong",
				"timestamp": time.Now().Format(time.RFC3339),
			})

		case "start_tracking":
			c.handleStartTracking(msg.Data)

		case "position":
			c.handlePosition(msg.Data)

		case "position_error":
			c.handlePositionError(msg.Data)

		case "stop_tracking":
			c.stopTracking()
			c.reply(map[string]interface{}{"type": "tracking_stopped"})
		}
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current WebSocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
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

// reply marshals and queues one outbound message, dropping it when the
// writer has fallen behind
func (c *Client) reply(data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Printf("❌ Failed to marshal message: %v", err)
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

// handleStartTracking resolves the requested bin and begins a dwell session
func (c *Client) handleStartTracking(data map[string]interface{}) {
	binID, ok := data["bin_id"].(string)
	if !ok || binID == "" {
		c.reply(map[string]interface{}{
			"type":  "tracking_error",
			"error": "bin_id is required",
		})
		return
	}

	bin, err := c.hub.bins.GetBin(context.Background(), binID)
	if err != nil {
		c.reply(map[string]interface{}{
			"type":  "tracking_error",
			"error": "Bin not found",
		})
		return
	}

	dest := tracking.Destination{
		BinID:     bin.ID,
		BinName:   bin.Name,
		Address:   bin.Address,
		Latitude:  bin.Latitude,
		Longitude: bin.Longitude,
	}

	source := tracking.NewChannelSource()

	c.mu.Lock()
	if c.source != nil {
		c.source.Close()
	}
	c.source = source
	tracker := c.tracker
	c.mu.Unlock()

	userID := c.UserID
	err = tracker.Start(dest, source,
		func(state tracking.LocationState) {
			c.reply(map[string]interface{}{
				"type": "tracking_state",
				"data": state,
			})
		},
		func(trackErr error) {
			var te *tracking.TrackingError
			if errors.As(trackErr, &te) {
				log.Printf("⚠️ Tracking degraded for %s: %v", userID, te)
			}
			c.reply(map[string]interface{}{
				"type":  "tracking_error",
				"error": "Unable to track your location. Check your GPS signal.",
			})
		})
	if err != nil {
		c.reply(map[string]interface{}{
			"type":  "tracking_error",
			"error": "Could not start tracking",
		})
		return
	}

	log.Printf("📍 Tracking started: user %s → bin %s", c.UserID, bin.ID)
	c.reply(map[string]interface{}{
		"type": "tracking_started",
		"data": dest,
	})
}

// handlePosition feeds one client-reported fix into the active session
func (c *Client) handlePosition(data map[string]interface{}) {
	c.mu.Lock()
	source := c.source
	c.mu.Unlock()
	if source == nil {
		return
	}

	latitude, okLat := data["latitude"].(float64)
	longitude, okLng := data["longitude"].(float64)
	if !okLat || !okLng {
		log.Printf("❌ Invalid position from %s", c.UserID)
		return
	}

	pos := tracking.Position{
		Latitude:  latitude,
		Longitude: longitude,
		Timestamp: time.Now(),
	}
	if a, ok := data["accuracy"].(float64); ok {
		pos.Accuracy = &a
	}
	if ts, ok := data["timestamp"].(float64); ok {
		pos.Timestamp = time.Unix(int64(ts), 0)
	}

	source.Deliver(pos)
}

// handlePositionError forwards a client-side geolocation failure
func (c *Client) handlePositionError(data map[string]interface{}) {
	c.mu.Lock()
	source := c.source
	c.mu.Unlock()
	if source == nil {
		return
	}

	reason, _ := data["reason"].(string)
	if reason == "" {
		reason = "position unavailable"
	}
	source.Fail(errors.New(reason))
}

// stopTracking ends the active dwell session, if any
func (c *Client) stopTracking() {
	c.mu.Lock()
	source := c.source
	c.source = nil
	c.mu.Unlock()

	if source != nil {
		source.Close()
	}
	c.tracker.Stop()
}
