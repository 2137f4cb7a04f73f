package httpapi

import "github.com/kiosk-nfc/nfc-bridge-core/session"

// createSessionRequest is the body of POST /api/nfc/sessions.
type createSessionRequest struct {
	OrderID    string `json:"orderId"`
	ReceiptURL string `json:"receiptUrl,omitempty"`
}

// createSessionResponse is the 201 body for POST /api/nfc/sessions.
type createSessionResponse struct {
	SessionID string `json:"sessionId"`
	Status    string `json:"status"`
	ExpiresAt string `json:"expiresAt"`
	Message   string `json:"message"`
}

// sessionStatusResponse is the body for GET /api/nfc/sessions/:sessionId.
type sessionStatusResponse struct {
	SessionID string `json:"sessionId"`
	Status    string `json:"status"`
	ExpiresAt string `json:"expiresAt"`
	Message   string `json:"message,omitempty"`
}

// sessionSummary is one entry of GET /api/nfc/sessions.
type sessionSummary struct {
	SessionID string `json:"sessionId"`
	OrderID   string `json:"orderId"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
	ExpiresAt string `json:"expiresAt"`
}

// listSessionsResponse is the body for GET /api/nfc/sessions.
type listSessionsResponse struct {
	Total    int              `json:"total"`
	Sessions []sessionSummary `json:"sessions"`
}

// healthResponse is the body for GET /api/health.
type healthResponse struct {
	Status    string        `json:"status"`
	Timestamp string        `json:"timestamp"`
	Sessions  session.Stats `json:"sessions"`
}

// errorResponse is the body of every non-2xx JSON response.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
