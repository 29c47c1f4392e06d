package status

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

type Kind int

const (
	INFO Kind = iota
	ERROR
	PROGRESS
	// LOADED hides the loading indicator, sent once per load
	LOADED
)

var kindNames = [...]string{"INFO", "ERROR", "PROGRESS", "LOADED"}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

type Message struct {
	Message  string    `json:"message"`
	Time     time.Time `json:"time"`
	Type     Kind      `json:"type"`
	Progress float32   `json:"progress"`
}

const (
	loadingShown int32 = iota
	loadingHidden
	loadingFailed
)

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func (c *client) writePump() {
	ticker := time.NewTicker(time.Second * 30)
	defer func() {
		ticker.Stop()
		c.hub.unregisterClient(c)
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(40 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("[status] ws write msg error: %v", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(40 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[status] ws write ping error: %v", err)
				return
			}
		}
	}
}

// readPump drains control frames, the page never sends data
func (c *client) readPump() {
	defer func() {
		// no broadcast can reach c.send once unregistered
		c.hub.unregisterClient(c)
		close(c.send)
	}()
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Hub broadcasts loading indicator state and progress to websocket clients
// and in process subscribers. The last message is replayed to new clients.
type Hub struct {
	broadcast chan *Message
	quit      chan struct{}
	closeOnce sync.Once

	lock        sync.Mutex
	clients     map[*client]bool
	subscribers map[chan Message]bool
	lastMessage []byte

	loading int32
}

func NewHub() *Hub {
	h := &Hub{
		broadcast:   make(chan *Message, 16),
		quit:        make(chan struct{}),
		clients:     make(map[*client]bool),
		subscribers: make(map[chan Message]bool),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case s := <-h.broadcast:
			data, err := json.Marshal(s)
			if err != nil {
				log.Printf("[status] marshal error: %v", err)
				continue
			}
			h.lock.Lock()
			h.lastMessage = data
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					log.Printf("[status] client too slow, message dropped")
				}
			}
			for sub := range h.subscribers {
				select {
				case sub <- *s:
				default:
				}
			}
			h.lock.Unlock()
		case <-h.quit:
			return
		}
	}
}

func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.quit) })
}

// NewClient registers websocket connection and starts its pumps
func (h *Hub) NewClient(conn *websocket.Conn) {
	c := &client{hub: h, conn: conn, send: make(chan []byte, 32)}
	h.lock.Lock()
	h.clients[c] = true
	if h.lastMessage != nil {
		c.send <- h.lastMessage
	}
	h.lock.Unlock()
	go c.writePump()
	go c.readPump()
}

func (h *Hub) unregisterClient(c *client) {
	h.lock.Lock()
	defer h.lock.Unlock()
	delete(h.clients, c)
}

// Subscribe returns channel receiving every following message.
// Messages are dropped when the channel buffer is full.
func (h *Hub) Subscribe(buffer int) (<-chan Message, func()) {
	ch := make(chan Message, buffer)
	h.lock.Lock()
	h.subscribers[ch] = true
	h.lock.Unlock()
	return ch, func() {
		h.lock.Lock()
		delete(h.subscribers, ch)
		h.lock.Unlock()
	}
}

func (h *Hub) Status(msg string, kind Kind, progress float32) {
	if math.IsNaN(float64(progress)) || math.IsInf(float64(progress), 0) {
		progress = 0
	}
	select {
	case h.broadcast <- &Message{
		Message:  msg,
		Time:     time.Now(),
		Type:     kind,
		Progress: progress}:
	case <-h.quit:
	}
}

func (h *Hub) Info(format string, a ...interface{}) {
	h.Status(fmt.Sprintf(format, a...), INFO, 0.0)
}

func (h *Hub) Error(format string, a ...interface{}) {
	h.Status(fmt.Sprintf(format, a...), ERROR, 0.0)
}

func (h *Hub) Progress(progress float32, format string, a ...interface{}) {
	h.Status(fmt.Sprintf(format, a...), PROGRESS, progress)
}

// ShowLoading rearms the indicator for a new load
func (h *Hub) ShowLoading(format string, a ...interface{}) {
	atomic.StoreInt32(&h.loading, loadingShown)
	h.Info(format, a...)
}

// HideLoading sends LOADED once, following calls until ShowLoading are no-ops
func (h *Hub) HideLoading() bool {
	if !atomic.CompareAndSwapInt32(&h.loading, loadingShown, loadingHidden) {
		return false
	}
	h.Status("loaded", LOADED, 1)
	return true
}

// FailLoading replaces the indicator with an error, LOADED is never sent for this load
func (h *Hub) FailLoading(err error) bool {
	if !atomic.CompareAndSwapInt32(&h.loading, loadingShown, loadingFailed) {
		return false
	}
	h.Error("failed to load model: %v", err)
	return true
}

// LoadingVisible reports whether the page should still show the indicator
func (h *Hub) LoadingVisible() bool {
	return atomic.LoadInt32(&h.loading) == loadingShown
}
