package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	// DefaultSendBuffer é a fila de saída por cliente; cheia, o cliente é desconectado
	DefaultSendBuffer = 64
)

// client tem uma fila de saída própria; só writePump escreve na conexão
type client struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

// enqueue nunca bloqueia: retorna false se a fila estiver cheia ou fechada
func (c *client) enqueue(b []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// writePump drena a fila com deadline por escrita e envia pings periódicos
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

// Hub gerencia conexões WebSocket e assinaturas por tópico
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader

	// SendBuffer define o tamanho da fila de cada cliente criado depois de alterado
	SendBuffer int

	mu sync.RWMutex
	// topic -> set of clients
	subs map[string]map[*client]struct{}
}

// NewHub cria uma instância de Hub com política customizada de origem (CORS)
func NewHub(log *zap.Logger, allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		log:        log,
		upgrader:   websocket.Upgrader{CheckOrigin: allowOrigin},
		SendBuffer: DefaultSendBuffer,
		subs:       make(map[string]map[*client]struct{}),
	}
}

// ServeHTTP gerencia o ciclo de vida de uma conexão WebSocket.
// Permite subscribe/unsubscribe em tópicos e responde a pings.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("ws upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, h.SendBuffer)}
	go c.writePump()
	defer h.drop(c)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		switch msg.Type {
		case "subscribe":
			if msg.Topic == "" {
				break
			}
			h.mu.Lock()
			if _, ok := h.subs[msg.Topic]; !ok {
				h.subs[msg.Topic] = make(map[*client]struct{})
			}
			h.subs[msg.Topic][c] = struct{}{}
			h.mu.Unlock()
			c.enqueue(mustJSON(map[string]string{"type": "subscribed", "topic": msg.Topic}))
		case "unsubscribe":
			h.unsubscribe(msg.Topic, c)
		case "ping":
			c.enqueue(mustJSON(map[string]string{"type": "pong"}))
		}
	}
}

func (h *Hub) unsubscribe(topic string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.subs[topic]; ok {
		delete(m, c)
		if len(m) == 0 {
			delete(h.subs, topic)
		}
	}
}

// drop remove o cliente de todas as assinaturas e fecha sua fila;
// writePump então encerra a conexão, o que também derruba o loop de leitura
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	for topic, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, topic)
		}
	}
	h.mu.Unlock()
	c.close()
}

// Broadcast enfileira a atualização para os inscritos no tópico sem bloquear.
// Clientes com a fila cheia são desconectados.
func (h *Hub) Broadcast(update Update) {
	h.mu.RLock()
	set := h.subs[update.Topic]
	conns := make([]*client, 0, len(set))
	for c := range set {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	if len(conns) == 0 {
		return
	}

	b := mustJSON(update)
	for _, c := range conns {
		if !c.enqueue(b) {
			h.log.Warn("ws client too slow, dropping", zap.String("topic", update.Topic))
			h.drop(c)
		}
	}
}

// Subscribers retorna quantos clientes estão inscritos no tópico
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}
