package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/arterycheck/arterycheck/server/internal/api"
)

const (
	writeWait = 10 * time.Second

	// pongWait bounds the silence allowed from a client. pingEvery must stay
	// below it.
	pongWait  = 60 * time.Second
	pingEvery = (pongWait * 9) / 10

	// queueDepth is how many pending dashboards a slow client may hold
	// before it is dropped.
	queueDepth = 8

	// maxInbound caps client frames; clients only send control frames.
	maxInbound = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  512,
	WriteBufferSize: 8192,
	// The dashboard is served from the same origin or behind a proxy that
	// enforces its own origin policy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EventDashboard is the only event the hub emits.
const EventDashboard = "dashboard"

// Message is the JSON envelope of every frame sent to clients.
type Message struct {
	Event string                `json:"event"`
	Data  api.DashboardResponse `json:"data"`
}

// Source builds the dashboard payload. *api.Handler satisfies it.
type Source interface {
	Dashboard(ctx context.Context) (api.DashboardResponse, error)
}

// Hub keeps the set of connected dashboard clients and pushes a fresh
// dashboard to all of them on every tick and after every Notify.
type Hub struct {
	src      Source
	interval time.Duration
	notify   chan struct{}

	mu    sync.Mutex
	peers map[*peer]struct{}
}

type peer struct {
	conn   *websocket.Conn
	queue  chan []byte
	remote string
}

// New creates a Hub that reads from src. interval is the periodic refresh;
// zero or negative disables it and the hub only pushes on Notify.
func New(src Source, interval time.Duration) *Hub {
	return &Hub{
		src:      src,
		interval: interval,
		notify:   make(chan struct{}, 1),
		peers:    make(map[*peer]struct{}),
	}
}

// Notify asks Run to push a new dashboard as soon as possible. It never
// blocks; notifications that arrive while one is pending are merged.
func (h *Hub) Notify() {
	select {
	case h.notify <- struct{}{}:
	default:
	}
}

// Run pushes dashboards until ctx is cancelled, then disconnects every
// client.
func (h *Hub) Run(ctx context.Context) {
	var tick <-chan time.Time
	if h.interval > 0 {
		t := time.NewTicker(h.interval)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-ctx.Done():
			h.dropAll()
			return
		case <-tick:
			h.push(ctx)
		case <-h.notify:
			h.push(ctx)
		}
	}
}

// ServeHTTP upgrades the request and streams dashboards to the client until
// the connection closes. The first frame is sent immediately.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("ws: upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	p := &peer{conn: conn, queue: make(chan []byte, queueDepth), remote: r.RemoteAddr}
	if frame, err := h.frame(r.Context()); err == nil {
		p.queue <- frame
	} else {
		slog.Warn("ws: initial dashboard failed", "remote", p.remote, "err", err)
	}

	h.add(p)
	defer h.drop(p)
	slog.Debug("ws: client connected", "remote", p.remote)

	go p.writeLoop()
	p.readLoop()
	slog.Debug("ws: client disconnected", "remote", p.remote)
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

func (h *Hub) add(p *peer) {
	h.mu.Lock()
	h.peers[p] = struct{}{}
	h.mu.Unlock()
}

// drop removes p and closes its queue, which ends its writeLoop. Safe to call
// more than once.
func (h *Hub) drop(p *peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.peers[p]; ok {
		delete(h.peers, p)
		close(p.queue)
	}
}

func (h *Hub) dropAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for p := range h.peers {
		delete(h.peers, p)
		close(p.queue)
	}
}

func (h *Hub) push(ctx context.Context) {
	if h.Count() == 0 {
		return
	}
	frame, err := h.frame(ctx)
	if err != nil {
		slog.Warn("ws: build dashboard failed", "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for p := range h.peers {
		select {
		case p.queue <- frame:
		default:
			slog.Warn("ws: client too slow, disconnecting", "remote", p.remote)
			delete(h.peers, p)
			close(p.queue)
		}
	}
}

func (h *Hub) frame(ctx context.Context) ([]byte, error) {
	d, err := h.src.Dashboard(ctx)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Event: EventDashboard, Data: d})
}

// writeLoop sends queued frames and keepalive pings. It owns all writes to
// the connection and closes it on exit.
func (p *peer) writeLoop() {
	ping := time.NewTicker(pingEvery)
	defer ping.Stop()
	defer p.conn.Close()

	for {
		var (
			kind = websocket.PingMessage
			data []byte
		)
		select {
		case frame, ok := <-p.queue:
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
				p.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)) //nolint:errcheck
				return
			}
			kind, data = websocket.TextMessage, frame
		case <-ping.C:
		}
		p.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
		if err := p.conn.WriteMessage(kind, data); err != nil {
			return
		}
	}
}

// readLoop consumes client frames so pongs and close frames are processed.
// It returns once the connection fails or the client goes quiet.
func (p *peer) readLoop() {
	defer p.conn.Close()
	p.conn.SetReadLimit(maxInbound)
	p.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := p.conn.ReadMessage(); err != nil {
			return
		}
	}
}
