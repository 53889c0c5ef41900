// Package hub fans campaign conversation events out to websocket subscribers.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/hasebahmdai-arch/lead-nurturing-agent/pkg/logx"
)

const (
	sendBuffer     = 64
	writeTimeout   = 10 * time.Second
	readTimeout    = 60 * time.Second
	pingInterval   = (readTimeout * 9) / 10
	maxMessageSize = 4096
)

// CampaignTopic is the topic of a campaign's live feed.
func CampaignTopic(campaignID int64) string {
	return fmt.Sprintf("campaign-%d", campaignID)
}

// Connection is one websocket subscriber of a topic.
type Connection struct {
	ID    string
	Topic string
	Conn  *websocket.Conn
	Send  chan []byte
	mu    sync.Mutex
}

func (c *Connection) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.Conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.Conn.WriteMessage(messageType, data)
}

type topicMessage struct {
	topic string
	data  []byte
}

// Hub tracks subscribers per topic. All map changes happen on the Run loop.
type Hub struct {
	connections map[string]*Connection
	topics      map[string]map[string]bool

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan topicMessage
	done       chan struct{}

	mu sync.RWMutex
}

func New() *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		topics:      make(map[string]map[string]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		broadcast:   make(chan topicMessage, 256),
		done:        make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until ctx is done, then closes
// every subscriber.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()
	for {
		select {
		case <-ctx.Done():
			return
		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn.ID] = conn
			if h.topics[conn.Topic] == nil {
				h.topics[conn.Topic] = make(map[string]bool)
			}
			h.topics[conn.Topic][conn.ID] = true
			h.mu.Unlock()
			logx.Debug().Str("conn_id", conn.ID).Str("topic", conn.Topic).Msg("feed subscriber registered")
		case conn := <-h.unregister:
			h.remove(conn)
		case msg := <-h.broadcast:
			h.mu.RLock()
			var slow []*Connection
			for id := range h.topics[msg.topic] {
				conn := h.connections[id]
				select {
				case conn.Send <- msg.data:
				default:
					slow = append(slow, conn)
				}
			}
			h.mu.RUnlock()
			for _, conn := range slow {
				logx.Warn().Str("conn_id", conn.ID).Msg("feed subscriber buffer full, closing")
				h.remove(conn)
			}
		}
	}
}

func (h *Hub) remove(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[conn.ID]; !ok {
		return
	}
	delete(h.connections, conn.ID)
	if ids := h.topics[conn.Topic]; ids != nil {
		delete(ids, conn.ID)
		if len(ids) == 0 {
			delete(h.topics, conn.Topic)
		}
	}
	close(conn.Send)
	logx.Debug().Str("conn_id", conn.ID).Msg("feed subscriber unregistered")
}

func (h *Hub) shutdown() {
	close(h.done)
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conn := range h.connections {
		close(conn.Send)
		delete(h.connections, id)
	}
	h.topics = make(map[string]map[string]bool)
}

// Publish marshals v and sends it to every subscriber of topic. It never
// blocks on a stopped hub.
func (h *Hub) Publish(topic string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode feed event: %w", err)
	}
	select {
	case h.broadcast <- topicMessage{topic: topic, data: data}:
		return nil
	case <-h.done:
		return fmt.Errorf("hub stopped")
	}
}

// Subscribers returns the number of connections on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Serve registers ws on topic and pumps messages until either side closes.
// It returns once the connection is registered.
func (h *Hub) Serve(ws *websocket.Conn, topic string) error {
	conn := &Connection{ID: uuid.NewString(), Topic: topic, Conn: ws, Send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- conn:
	case <-h.done:
		_ = ws.Close()
		return fmt.Errorf("hub stopped")
	}
	go h.writePump(conn)
	go h.readPump(conn)
	return nil
}

// readPump only watches for pongs and the close frame; the feed is one-way.
func (h *Hub) readPump(conn *Connection) {
	defer func() {
		select {
		case h.unregister <- conn:
		case <-h.done:
		}
		_ = conn.Conn.Close()
	}()

	conn.Conn.SetReadLimit(maxMessageSize)
	_ = conn.Conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		return conn.Conn.SetReadDeadline(time.Now().Add(readTimeout))
	})
	for {
		if _, _, err := conn.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logx.Debug().Err(err).Str("conn_id", conn.ID).Msg("feed read error")
			}
			return
		}
	}
}

func (h *Hub) writePump(conn *Connection) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = conn.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			if !ok {
				_ = conn.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.write(websocket.TextMessage, message); err != nil {
				logx.Debug().Err(err).Str("conn_id", conn.ID).Msg("feed write failed")
				return
			}
		case <-ticker.C:
			if err := conn.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
