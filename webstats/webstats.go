// Package webstats exposes profiler and CDL statistics over HTTP: a
// runtime dashboard from github.com/go-echarts/statsview (goroutines,
// heap, GC pauses - useful when a ROM's script layer or a pathological
// CDL size is suspected of causing the debugger itself to slow down),
// plus a small JSON endpoint for this module's own ProfiledFunction and
// CDL stats, wrapped in github.com/rs/cors so a browser-based front end
// on a different origin can poll it.
package webstats

import (
	"encoding/json"
	"net/http"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"github.com/rs/cors"

	"github.com/jetsetilly/retrodbg/callstack"
	"github.com/jetsetilly/retrodbg/cdl"
)

// Server owns the statsview runtime dashboard plus a debugger-specific
// JSON stats endpoint. The two listen on separate addresses: statsview
// manages its own HTTP server internally.
type Server struct {
	jsonAddr string
	mgr      *statsview.Manager
	mux      *http.ServeMux
}

// New returns a Server that will serve the runtime dashboard on
// dashboardAddr (eg. ":18066") and this package's own JSON stats
// endpoints on jsonAddr, once Start is called. Profiler and cdlStats
// are read at request time, not copied up front, so the dashboard
// always reflects current state.
func New(dashboardAddr, jsonAddr string, profiler *callstack.Profiler, cdlStats func() map[string]cdl.Stats) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/profiler", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(profiler.All())
	})

	mux.HandleFunc("/debug/cdl", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(cdlStats())
	})

	mgr := statsview.New(
		viewer.WithAddr(dashboardAddr),
		viewer.WithTheme(viewer.ThemeWesteros),
	)

	return &Server{jsonAddr: jsonAddr, mgr: mgr, mux: mux}
}

// Start runs the statsview dashboard (its own internal HTTP server) and
// this package's own CORS-wrapped JSON endpoints, both in background
// goroutines. It returns immediately.
func (s *Server) Start() {
	go s.mgr.Start()

	handler := cors.Default().Handler(s.mux)
	go func() {
		_ = http.ListenAndServe(s.jsonAddr, handler)
	}()
}

// Stop tears down the statsview dashboard.
func (s *Server) Stop() {
	s.mgr.Stop()
}
