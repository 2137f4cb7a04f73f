package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kiosk-nfc/nfc-bridge-core/internal/logging"
	"github.com/kiosk-nfc/nfc-bridge-core/session"
)

const isoLayout = time.RFC3339

// handleCreateSession implements POST /api/nfc/sessions.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusNotFound, "not found", "")
		return
	}

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	if strings.TrimSpace(req.OrderID) == "" {
		writeError(w, http.StatusBadRequest, "orderId is required", "")
		return
	}

	sess, err := s.manager.CreateSession(req.OrderID, req.ReceiptURL)
	if err != nil {
		if errors.Is(err, session.ErrShutdown) {
			writeError(w, http.StatusServiceUnavailable, "bridge is shutting down", "")
			return
		}
		logging.Warnf("create session failed: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create session", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, createSessionResponse{
		SessionID: sess.ID,
		Status:    string(sess.Status),
		ExpiresAt: sess.ExpiresAt.Format(isoLayout),
		Message:   "NFC session created",
	})
}

// handleGetSession implements GET /api/nfc/sessions/:sessionId.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusNotFound, "not found", "")
		return
	}

	sess, ok := s.manager.GetSession(sessionID)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found", "")
		return
	}

	writeJSON(w, http.StatusOK, sessionStatusResponse{
		SessionID: sess.ID,
		Status:    string(sess.Status),
		ExpiresAt: sess.ExpiresAt.Format(isoLayout),
		Message:   sess.Error,
	})
}

// handleListSessions implements GET /api/nfc/sessions.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusNotFound, "not found", "")
		return
	}

	sessions := s.manager.ListSessions()
	summaries := make([]sessionSummary, 0, len(sessions))
	for _, sess := range sessions {
		summaries = append(summaries, sessionSummary{
			SessionID: sess.ID,
			OrderID:   sess.OrderID,
			Status:    string(sess.Status),
			CreatedAt: sess.CreatedAt.Format(isoLayout),
			ExpiresAt: sess.ExpiresAt.Format(isoLayout),
		})
	}

	writeJSON(w, http.StatusOK, listSessionsResponse{Total: len(summaries), Sessions: summaries})
}

// handleHealth implements GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusNotFound, "not found", "")
		return
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(isoLayout),
		Sessions:  s.manager.Stats(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Warnf("failed to encode JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, errMsg, message string) {
	writeJSON(w, status, errorResponse{Error: errMsg, Message: message})
}
