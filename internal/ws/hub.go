package ws

import (
	"sync"

	"messagely/internal/metrics"
)

// Hub 管理每个账号的在线连接，新消息写库成功后推送给收件人。
// 连接集合用互斥锁直接维护，账号最后一条连接断开时删除对应表项，
// 不会残留空集合或后台协程。
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]bool
}

func NewHub() *Hub { return &Hub{clients: make(map[string]map[*Client]bool)} }

// Register 把连接挂到指定账号下。
func (h *Hub) Register(username string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[username]
	if set == nil {
		set = make(map[*Client]bool)
		h.clients[username] = set
	}
	set[c] = true
	metrics.WsConnections.Inc()
}

// Unregister 摘掉连接并关闭其发送通道。重复调用是幂等的。
func (h *Hub) Unregister(username string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[username]
	if set == nil || !set[c] {
		return
	}
	delete(set, c)
	close(c.send)
	metrics.WsConnections.Dec()
	if len(set) == 0 {
		delete(h.clients, username)
	}
}

// Notify 把事件投递给某账号的所有在线连接，账号不在线时直接丢弃。
// 发送缓冲已满的慢连接就地摘除。
func (h *Hub) Notify(username string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[username]
	for c := range set {
		select {
		case c.send <- payload:
		default:
			delete(set, c)
			close(c.send)
			metrics.WsConnections.Dec()
		}
	}
	if set != nil && len(set) == 0 {
		delete(h.clients, username)
	}
}

// Online 返回某账号当前的连接数。
func (h *Hub) Online(username string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[username])
}

// Tracked 返回当前持有连接的账号数。
func (h *Hub) Tracked() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
