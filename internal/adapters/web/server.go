package web

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/emperornerd/GhostWalk/internal/core/services/scheduler"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Local status panel; only requests without an Origin header
		// (non-browser clients) are upgraded.
		return r.Header.Get("Origin") == ""
	},
}

// Server exposes the metrics panel over HTTP: a status page, a JSON
// snapshot, Prometheus metrics, and a websocket feed paced at the
// display contract's 0.5 Hz.
type Server struct {
	Addr     string
	Snapshot func() scheduler.Snapshot

	srv *http.Server
}

func NewServer(addr string, snapshot func() scheduler.Snapshot) *Server {
	return &Server{Addr: addr, Snapshot: snapshot}
}

// Run serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWS)
	r.Handle("/metrics", promhttp.Handler())

	s.srv = &http.Server{
		Addr:              s.Addr,
		Handler:           otelhttp.NewHandler(r, "ghostwalk-dashboard"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.Snapshot()); err != nil {
		log.Printf("status encode: %v", err)
	}
}

// handleWS pushes a snapshot every 2 seconds until the client leaves.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := conn.WriteJSON(s.Snapshot()); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}

const indexHTML = `<!DOCTYPE html>
<html>
<head><title>GhostWalk</title>
<style>
body { background:#000; color:#0f0; font-family:monospace; padding:2em; }
h1 { color:#f80; }
td { padding:0 1em 0 0; }
.low { color:#f00; }
</style></head>
<body>
<h1>GHOST WALK</h1>
<div>--- TRAFFIC METRICS ---</div>
<table id="t"></table>
<script>
async function tick() {
  const s = await (await fetch('/api/status')).json();
  const rows = [
    ['Free RAM', Math.floor(s.free_heap/1024) + ' KB' + (s.low_memory ? ' [LOW]' : '')],
    ['Active / Dormant', s.active + ' / ' + s.dormant],
    ['Total Packets', s.total_packets],
    ['Noise/Junk', s.junk_packets],
    ['Band', '2.4G[' + pct(s.packets_2g, s) + '%] 5G[' + pct(s.packets_5g, s) + '%]'],
    ['Found SSIDs', s.learned_ssids],
    ['Last', s.last_learned_ssid || 'None'],
    ['Interactions', s.interactions],
    ['Mesh', s.mesh_detected ? 'DETECTED' : 'quiet'],
    ['Radio', (s.is_5ghz ? '5GHz' : '2.4GHz') + ' ch ' + s.channel],
    ['Uptime', Math.floor(s.uptime/1e9) + 's'],
  ];
  document.getElementById('t').innerHTML =
    rows.map(r => '<tr><td>' + r[0] + '</td><td>' + r[1] + '</td></tr>').join('');
}
function pct(n, s) { const t = s.packets_2g + s.packets_5g; return t ? Math.floor(n*100/t) : 0; }
tick(); setInterval(tick, 2000);
</script>
</body></html>`
