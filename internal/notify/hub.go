package notify

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/castcore/internal/casting"
	"github.com/lawnchairsociety/castcore/internal/config"
	"github.com/lawnchairsociety/castcore/internal/entity"
	"github.com/lawnchairsociety/castcore/internal/logger"
)

const writeWait = 10 * time.Second

// Handler processes an inbound frame from a subscriber and returns the frame
// to send back to it, or nil.
type Handler func(ctx context.Context, client uuid.UUID, data []byte) []byte

type subscriber struct {
	id   uuid.UUID
	conn *websocket.Conn
	ip   string
	unit entity.ID // zero receives every event
	send chan []byte
}

func (s *subscriber) wants(units ...entity.ID) bool {
	if s.unit == 0 {
		return true
	}
	for _, u := range units {
		if u == s.unit {
			return true
		}
	}
	return false
}

// Hub fans cast events out to websocket subscribers. It implements
// casting.Notifier and is safe for use by several partitions at once.
// Subscribers that fall behind by more than their send buffer are dropped.
type Hub struct {
	cfg      config.WebSocketConfig
	limiter  *connLimiter
	upgrader websocket.Upgrader
	handler  Handler
	log      *slog.Logger

	seq atomic.Uint64

	mu      sync.RWMutex
	clients map[uuid.UUID]*subscriber
	closed  bool
}

// NewHub creates a hub. handler may be nil for a send-only hub.
func NewHub(ws config.WebSocketConfig, conns config.ConnectionsConfig, handler Handler) *Hub {
	h := &Hub{
		cfg:     ws,
		limiter: newConnLimiter(conns),
		handler: handler,
		log:     logger.Component("notify"),
		clients: make(map[uuid.UUID]*subscriber),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			allowed := h.cfg.IsOriginAllowed(origin, r.Host)
			if !allowed {
				h.log.Warn("Subscriber rejected - origin not allowed",
					"origin", origin,
					"host", r.Host,
					"remote_addr", r.RemoteAddr)
			}
			return allowed
		},
	}
	return h
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and serves the subscriber until it disconnects.
// The optional "unit" query parameter limits events to those involving that unit.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var unit entity.ID
	if s := r.URL.Query().Get("unit"); s != "" {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			http.Error(w, "invalid unit", http.StatusBadRequest)
			return
		}
		unit = entity.ID(id)
	}

	ip := clientIP(r)
	if !h.limiter.acquire(ip) {
		h.log.Warn("Subscriber rejected - limit exceeded",
			"remote_addr", r.RemoteAddr,
			"client_ip", ip)
		http.Error(w, "Too many connections. Please try again later.", http.StatusTooManyRequests)
		return
	}
	defer h.limiter.release(ip)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("WebSocket upgrade failed", "error", err)
		return
	}

	size := h.cfg.SendBuffer
	if size <= 0 {
		size = 1
	}
	s := &subscriber{
		id:   uuid.New(),
		conn: conn,
		ip:   ip,
		unit: unit,
		send: make(chan []byte, size),
	}
	welcome, _ := Encode(FrameWelcome, 0, Welcome{Client: s.id.String(), Unit: uint64(unit)})
	s.send <- welcome
	if !h.register(s) {
		conn.Close()
		return
	}
	h.log.Info("Subscriber connected", "client", s.id, "client_ip", ip, "unit", unit)

	go h.writePump(s)
	h.readPump(r.Context(), s)
}

func (h *Hub) register(s *subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[s.id] = s
	return true
}

// drop removes a subscriber and closes its send queue, which ends its write pump.
func (h *Hub) drop(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(s.send)
	}
}

func (h *Hub) readPump(ctx context.Context, s *subscriber) {
	defer func() {
		h.drop(s.id)
		h.log.Info("Subscriber disconnected", "client", s.id)
	}()

	if h.cfg.MaxMessageSize > 0 {
		s.conn.SetReadLimit(h.cfg.MaxMessageSize)
	}
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("Subscriber read failed", "client", s.id, "error", err)
			}
			return
		}
		if h.handler == nil {
			continue
		}
		if reply := h.handler(ctx, s.id, data); reply != nil {
			h.sendTo(s.id, reply)
		}
	}
}

func (h *Hub) writePump(s *subscriber) {
	defer s.conn.Close()
	for frame := range s.send {
		s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := s.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			h.log.Debug("Subscriber write failed", "client", s.id, "error", err)
			// closing the connection ends the read pump, which drops the subscriber
			return
		}
	}
	s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

// sendTo queues a frame for one subscriber, dropping it if its queue is full.
func (h *Hub) sendTo(id uuid.UUID, frame []byte) {
	h.mu.RLock()
	s, ok := h.clients[id]
	full := false
	if ok {
		select {
		case s.send <- frame:
		default:
			full = true
		}
	}
	h.mu.RUnlock()
	if full {
		h.log.Warn("Subscriber too slow, dropping", "client", id)
		h.drop(id)
	}
}

func (h *Hub) broadcast(typ string, body any, units ...entity.ID) {
	frame, err := Encode(typ, h.seq.Add(1), body)
	if err != nil {
		h.log.Error("Failed to encode frame", "type", typ, "error", err)
		return
	}

	var slow []uuid.UUID
	h.mu.RLock()
	for id, s := range h.clients {
		if !s.wants(units...) {
			continue
		}
		select {
		case s.send <- frame:
		default:
			slow = append(slow, id)
		}
	}
	h.mu.RUnlock()

	for _, id := range slow {
		h.log.Warn("Subscriber too slow, dropping", "client", id)
		h.drop(id)
	}
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, s := range h.clients {
		delete(h.clients, id)
		close(s.send)
	}
}

func (h *Hub) CastStarted(ev casting.CastStarted) {
	h.broadcast(FrameStarted, startedBody(ev), ev.Caster, ev.Target)
}

func (h *Hub) CastResult(ev casting.CastResult) {
	h.broadcast(FrameResult, resultBody(ev), ev.Caster)
}

func (h *Hub) EffectApplied(ev casting.EffectApplied) {
	h.broadcast(FrameEffect, effectBody(ev), ev.Caster, ev.Target)
}

func (h *Hub) ChannelUpdate(ev casting.ChannelUpdate) {
	h.broadcast(FrameChannel, channelBody(ev), ev.Caster)
}

func (h *Hub) CastDelayed(ev casting.CastDelayed) {
	h.broadcast(FrameDelayed, delayedBody(ev), ev.Caster)
}
