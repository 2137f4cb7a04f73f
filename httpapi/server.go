// Package httpapi implements the bridge's HTTP Facade (spec's Component F
// and §6's bridge HTTP API): session creation and polling endpoints backed
// by a session.Manager. No routing framework appears anywhere in the
// retrieval pack, so this is stdlib net/http and encoding/json throughout.
package httpapi

import (
	"net/http"
	"strings"

	"github.com/kiosk-nfc/nfc-bridge-core/internal/logging"
	"github.com/kiosk-nfc/nfc-bridge-core/session"
)

// Server serves the bridge's HTTP API over a session.Manager.
type Server struct {
	manager *session.Manager
	mux     *http.ServeMux
}

// NewServer builds a Server routing the five endpoints spec §6 defines.
func NewServer(manager *session.Manager) *Server {
	s := &Server{manager: manager, mux: http.NewServeMux()}

	s.mux.HandleFunc("/api/nfc/sessions", s.handleSessionsCollection)
	s.mux.HandleFunc("/api/nfc/sessions/", s.handleSessionsItem)
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/", s.handleNotFound)

	return s
}

// ServeHTTP implements http.Handler, recovering from panics in any handler
// and translating them into a 500 rather than crashing the process — the
// worker never panics per spec §7, but handlers still shouldn't be able to
// take the whole process down.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.Warnf("panic handling %s %s: %v", r.Method, r.URL.Path, rec)
			writeError(w, http.StatusInternalServerError, "internal error", "")
		}
	}()
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleSessionsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateSession(w, r)
	case http.MethodGet:
		s.handleListSessions(w, r)
	default:
		writeError(w, http.StatusNotFound, "not found", "")
	}
}

func (s *Server) handleSessionsItem(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimPrefix(r.URL.Path, "/api/nfc/sessions/")
	if sessionID == "" || strings.Contains(sessionID, "/") {
		writeError(w, http.StatusNotFound, "not found", "")
		return
	}
	s.handleGetSession(w, r, sessionID)
}

func (s *Server) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "not found", "")
}
