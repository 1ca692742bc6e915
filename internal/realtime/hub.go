// Package realtime pushes order events to connected admin dashboards over
// websockets.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gianlucacontedesign/terpenitos/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

// Evento is the JSON message sent to every dashboard.
type Evento struct {
	Tipo     string          `json:"type"`
	PedidoID uint            `json:"order_id"`
	Estado   string          `json:"status"`
	Total    decimal.Decimal `json:"total"`
	Fecha    time.Time       `json:"at"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub owns the set of connected clients. All membership changes and
// broadcasts go through Run's goroutine.
type Hub struct {
	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}
	upgrader   websocket.Upgrader
}

// NewHub accepts upgrades from the given origins; an empty list falls back to
// gorilla's same-host check.
func NewHub(allowedOrigins []string) *Hub {
	h := &Hub{
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
	}
	if len(allowedOrigins) > 0 {
		permitidos := make(map[string]struct{}, len(allowedOrigins))
		for _, o := range allowedOrigins {
			permitidos[o] = struct{}{}
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			_, ok := permitidos[origin]
			return ok
		}
	}
	return h
}

// Run serves the hub until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// slow consumer
					close(c.send)
					delete(h.clients, c)
				}
			}
		}
	}
}

func (h *Hub) publicar(ev Evento) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- data:
	default:
		log.Warn().Str("type", ev.Tipo).Msg("realtime: broadcast lleno, evento descartado")
	}
}

func (h *Hub) PedidoCreado(_ context.Context, p *model.Pedido) {
	h.publicar(Evento{Tipo: "pedido_creado", PedidoID: p.ID, Estado: p.Estado, Total: p.Total, Fecha: time.Now()})
}

func (h *Hub) EstadoActualizado(_ context.Context, p *model.Pedido) {
	h.publicar(Evento{Tipo: "estado_actualizado", PedidoID: p.ID, Estado: p.Estado, Total: p.Total, Fecha: time.Now()})
}

// ServeWS upgrades the request and streams events until the client leaves.
// Access control happens before this handler.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Debug().Err(err).Msg("realtime: upgrade rechazado")
		return
	}
	cl := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- cl:
	case <-h.done:
		conn.Close()
		return
	}

	go h.writePump(cl)
	h.readPump(cl)
}

// readPump only drains control frames; dashboards never send data.
func (h *Hub) readPump(cl *client) {
	defer func() {
		select {
		case h.unregister <- cl:
		case <-h.done:
		}
		cl.conn.Close()
	}()
	cl.conn.SetReadLimit(512)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
