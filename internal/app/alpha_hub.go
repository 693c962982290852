// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jacksonchui/Social-Media-Intervention/internal/session"
)

const (
	hubSendBuf   = 32
	writeTimeout = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// AlphaMessage is one overlay update sent to websocket clients and to the
// alpha MQTT topic.
type AlphaMessage struct {
	Alpha    float64   `json:"alpha"`
	Progress float64   `json:"progress"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

func newAlphaMessage(u session.Update, at time.Time) AlphaMessage {
	msg := AlphaMessage{Alpha: u.Alpha, Progress: u.Progress, At: at}
	if u.Err != nil {
		msg.Error = u.Err.Error()
	}
	return msg
}

// SessionView is the part of session.Manager served over HTTP.
type SessionView interface {
	Log() (session.Log, bool)
	Running() bool
	PeriodIntervals() int
	RecordVisit(medium string) error
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
	addr string
}

// AlphaHub fans alpha updates out to websocket clients and serves the
// current session.
type AlphaHub struct {
	view   SessionView
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*hubClient]struct{}
	closed  bool
}

func NewAlphaHub(view SessionView, logger *slog.Logger) *AlphaHub {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &AlphaHub{
		view:    view,
		logger:  logger,
		clients: make(map[*hubClient]struct{}),
	}
}

// Handler serves /ws/alpha, /api/session and /api/visit.
func (h *AlphaHub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/alpha", h.serveWS)
	mux.HandleFunc("GET /api/session", h.serveSession)
	mux.HandleFunc("POST /api/visit", h.serveVisit)
	return mux
}

// Broadcast queues msg for every client. Clients whose queue is full are
// disconnected.
func (h *AlphaHub) Broadcast(msg AlphaMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("alpha marshal failed", "err", err)
		return
	}

	var slow []*hubClient
	h.mu.Lock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	for _, c := range slow {
		h.remove(c, "slow_client")
	}
}

// Clients returns the number of connected websocket clients.
func (h *AlphaHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client. Later connections are refused.
func (h *AlphaHub) Close() {
	h.mu.Lock()
	clients := make([]*hubClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.closed = true
	h.mu.Unlock()

	for _, c := range clients {
		h.remove(c, "shutdown")
	}
}

func (h *AlphaHub) remove(c *hubClient, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	close(c.send)
	_ = c.conn.Close()
	h.logger.Info("ws client disconnected", "remote_addr", c.addr, "reason", reason, "clients", n)
}

func (h *AlphaHub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "err", err)
		return
	}

	c := &hubClient{conn: conn, send: make(chan []byte, hubSendBuf), addr: r.RemoteAddr}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("ws client registered", "remote_addr", c.addr, "clients", n)

	go h.writePump(c)
	h.readPump(c)
}

// readPump discards client frames and notices disconnects.
func (h *AlphaHub) readPump(c *hubClient) {
	defer h.remove(c, "closed")
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("ws read error", "remote_addr", c.addr, "err", err)
			}
			return
		}
	}
}

func (h *AlphaHub) writePump(c *hubClient) {
	for payload := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Warn("ws write error", "remote_addr", c.addr, "err", err)
			h.remove(c, "write_error")
			return
		}
	}
}

// sessionStatus is the /api/session response.
type sessionStatus struct {
	Running         bool      `json:"running"`
	ID              string    `json:"id,omitempty"`
	StartTime       time.Time `json:"start_time,omitzero"`
	Periods         int       `json:"periods"`
	PeriodIntervals int       `json:"period_intervals"`
	SocialMedia     []string  `json:"social_media"`
}

func (h *AlphaHub) serveSession(w http.ResponseWriter, _ *http.Request) {
	l, ok := h.view.Log()
	if !ok {
		http.Error(w, "no session yet", http.StatusServiceUnavailable)
		return
	}

	status := sessionStatus{
		Running:         h.view.Running(),
		ID:              l.ID,
		StartTime:       l.StartTime,
		Periods:         len(l.PeriodLogs),
		PeriodIntervals: h.view.PeriodIntervals(),
		SocialMedia:     append([]string{}, l.SocialMedia...),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		h.logger.Warn("json encode error", "err", err)
	}
}

type visitRequest struct {
	Medium string `json:"medium"`
}

func (h *AlphaHub) serveVisit(w http.ResponseWriter, r *http.Request) {
	var req visitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	err := h.view.RecordVisit(req.Medium)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, session.ErrEmptyMedium):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, session.ErrNotRunning):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
