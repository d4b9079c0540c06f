// Package inspector serves a live view of a running scheduler over HTTP.
//
// Routes:
//
//	GET /         page showing the published view, updated on every cycle
//	GET /view     the published view as an HTML fragment
//	GET /cycles   recent cycle reports (JSON)
//	GET /sites    per call site render and skip counts (JSON)
//	GET /profile  a full profile document (JSON)
//	GET /metrics  Prometheus metrics, when a gatherer is configured
//	GET /ws       cycle reports pushed as JSON WebSocket messages
package inspector

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/memo/pkg/compose"
	"github.com/vango-dev/memo/pkg/profile"
	"github.com/vango-dev/memo/pkg/render"
	"github.com/vango-dev/memo/pkg/vdom"
)

// Source is what the inspector reads from. *compose.Scheduler implements
// it.
type Source interface {
	View() *vdom.VNode
	Sites() []compose.SiteStats
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithGatherer serves g at /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// Server is the inspector HTTP server.
type Server struct {
	source   Source
	recorder *profile.Recorder
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	renderer *render.Renderer

	clients  map[*websocket.Conn]bool
	mu       sync.RWMutex
	upgrader websocket.Upgrader
}

// New creates an inspector for source. rec must be registered as an
// observer of the same scheduler.
func New(source Source, rec *profile.Recorder, opts ...Option) *Server {
	s := &Server{
		source:   source,
		recorder: rec,
		logger:   slog.Default(),
		renderer: render.NewRenderer(render.RendererConfig{Pretty: true}),
		clients:  make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the inspector's routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/view", s.handleView)
	r.Get("/cycles", s.handleCycles)
	r.Get("/sites", s.handleSites)
	r.Get("/profile", s.handleProfile)
	r.Get("/ws", s.handleWebSocket)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Run pushes every recorded cycle to the connected WebSocket clients until
// ctx is done, then closes them.
func (s *Server) Run(ctx context.Context) {
	reports, cancel := s.recorder.Subscribe(64)
	defer cancel()
	defer s.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-reports:
			if !ok {
				return
			}
			s.broadcast(r)
		}
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page := vdom.El("html",
		vdom.El("head", vdom.El("title", "memo inspector")),
		vdom.El("body",
			vdom.Main(vdom.ID("view"), s.source.View()),
			vdom.El("pre", vdom.ID("cycles")),
		),
	)
	if err := s.renderer.RenderToWriter(w, page); err != nil {
		s.logger.Error("render index", "error", err)
		return
	}
	w.Write([]byte(clientScript))
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.renderer.RenderToWriter(w, s.source.View()); err != nil {
		s.logger.Error("render view", "error", err)
	}
}

func (s *Server) handleCycles(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.recorder.Cycles())
}

func (s *Server) handleSites(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.source.Sites())
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.recorder.Profile(s.source.Sites()))
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// handleWebSocket registers a client and keeps it until it disconnects.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	conn.Close()
}

// broadcast sends a report to all connected clients.
func (s *Server) broadcast(report compose.CycleReport) {
	data, err := json.Marshal(report)
	if err != nil {
		return
	}

	s.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}
	s.mu.RUnlock()

	for _, client := range clients {
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			s.mu.Lock()
			delete(s.clients, client)
			s.mu.Unlock()
			client.Close()
		}
	}
}

// ClientCount returns the number of connected WebSocket clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Close closes all client connections.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for client := range s.clients {
		client.Close()
		delete(s.clients, client)
	}
}

// clientScript refreshes the view and appends cycle summaries as reports
// arrive on /ws.
const clientScript = `
<script>
(function() {
    'use strict';
    var log = document.getElementById('cycles');
    var view = document.getElementById('view');
    var protocol = location.protocol === 'https:' ? 'wss:' : 'ws:';
    var ws = new WebSocket(protocol + '//' + location.host + '/ws');
    ws.onmessage = function(e) {
        var r = JSON.parse(e.data);
        var line = '#' + r.id + ' ' + r.cause + ': ' +
            (r.rendered || []).length + ' rendered, ' +
            (r.skipped || []).length + ' skipped';
        if (r.error) { line += ' FAILED ' + r.error; }
        log.textContent = line + '\n' + log.textContent;
        if (!r.error) {
            fetch('/view').then(function(res) { return res.text(); }).then(function(html) {
                view.innerHTML = html;
            });
        }
    };
})();
</script>
`
