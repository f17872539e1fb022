// Package websocket 按文档推送摄取进度
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nymav/drax-tbs/internal/domain/events"
	"github.com/nymav/drax-tbs/internal/infrastructure/log"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	sendBuffer   = 32
)

// Hub WebSocket 连接管理中心，按文档 ID 分组
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Client]struct{}
	last   map[string][]byte // 每个文档最近一次推送，新订阅者连上后立即收到
	closed bool

	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// Client 单个订阅连接
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	documentID string
	send       chan []byte
	done       chan struct{}
	closeOnce  sync.Once
}

// NewHub 创建 Hub
func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[*Client]struct{}),
		last:  make(map[string][]byte),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // 本机服务，允许所有来源
			},
		},
		logger: log.NewModuleLogger("websocket", "hub"),
	}
}

// ServeDocument 升级连接并订阅指定文档的进度
func (h *Hub) ServeDocument(w http.ResponseWriter, r *http.Request, documentID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	client := &Client{
		hub:        h,
		conn:       conn,
		documentID: documentID,
		send:       make(chan []byte, sendBuffer),
		done:       make(chan struct{}),
	}
	if !h.register(client) {
		_ = conn.Close()
		return fmt.Errorf("hub is closed")
	}

	go client.writePump()
	go client.readPump()
	return nil
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	room := h.rooms[c.documentID]
	if room == nil {
		room = make(map[*Client]struct{})
		h.rooms[c.documentID] = room
	}
	room[c] = struct{}{}

	if data, ok := h.last[c.documentID]; ok {
		c.send <- data
	}

	h.logger.Debug("Progress subscriber connected",
		"document_id", c.documentID,
		"subscribers", len(room),
	)
	return true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if room, ok := h.rooms[c.documentID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, c.documentID)
		}
	}
	h.mu.Unlock()

	c.close()
}

// Broadcast 向订阅该文档的所有连接推送 JSON 消息
func (h *Hub) Broadcast(documentID string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	h.mu.Lock()
	h.last[documentID] = data
	var slow []*Client
	for c := range h.rooms[documentID] {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	// 缓冲区满的连接直接断开，客户端可重连获取最新状态
	for _, c := range slow {
		h.logger.Warn("Send buffer full, dropping subscriber", "document_id", documentID)
		h.unregister(c)
	}
	return nil
}

// HandleEvent 订阅事件总线上的摄取进度
func (h *Hub) HandleEvent(event events.Event) error {
	e, ok := event.(*events.IngestionEvent)
	if !ok {
		return nil
	}
	return h.Broadcast(e.DocumentID, e)
}

// Subscribers 当前订阅某文档的连接数
func (h *Hub) Subscribers(documentID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[documentID])
}

// Close 关闭所有连接
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var all []*Client
	for _, room := range h.rooms {
		for c := range room {
			all = append(all, c)
		}
	}
	h.rooms = make(map[string]map[*Client]struct{})
	h.mu.Unlock()

	for _, c := range all {
		c.close()
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// readPump 只处理控制帧，客户端断开时注销
func (c *Client) readPump() {
	defer c.hub.unregister(c)

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("Subscriber read error", "document_id", c.documentID, "error", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.unregister(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.unregister(c)
				return
			}
		}
	}
}
