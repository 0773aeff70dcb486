package management

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/yishaik/winter-wellness-bot/internal/log"
	"github.com/yishaik/winter-wellness-bot/internal/sessions"
)

const sessionCookieName = "ww_session"

// Handlers contains the HTTP handlers for the management API
type Handlers struct {
	controller *Controller
}

// NewHandlers creates a new Handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
	}
}

// sendJSON sends a JSON response
func (h *Handlers) sendJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response in JSON format
func (h *Handlers) sendError(w http.ResponseWriter, statusCode int, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResponse := map[string]interface{}{
		"error":     message,
		"status":    statusCode,
		"timestamp": time.Now().Unix(),
	}

	if err != nil {
		errorResponse["details"] = err.Error()
	}

	json.NewEncoder(w).Encode(errorResponse)
}

// Login handles the login request and sets a session cookie
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Token string `json:"token"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid JSON payload", err)
		return
	}

	if request.Token == "" {
		h.sendError(w, http.StatusBadRequest, "Token is required", nil)
		return
	}

	if request.Token != h.controller.mgmt.AuthToken {
		h.sendError(w, http.StatusUnauthorized, "Invalid token", nil)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    request.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   86400 * 7, // 7 days
	})

	h.sendJSON(w, map[string]interface{}{
		"success": true,
		"message": "Login successful",
	})
}

// Logout handles the logout request and clears the session cookie
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})

	h.sendJSON(w, map[string]interface{}{
		"success": true,
		"message": "Logout successful",
	})
}

// GetAuthStatus checks if the current session is authenticated
func (h *Handlers) GetAuthStatus(w http.ResponseWriter, r *http.Request) {
	authenticated := false

	authHeader := r.Header.Get("Authorization")
	if authHeader != "" && authHeader == "Bearer "+h.controller.mgmt.AuthToken {
		authenticated = true
	}

	if !authenticated {
		cookie, err := r.Cookie(sessionCookieName)
		if err == nil && cookie.Value == h.controller.mgmt.AuthToken {
			authenticated = true
		}
	}

	h.sendJSON(w, map[string]interface{}{
		"authenticated": authenticated,
	})
}

// GetStatus returns the status of the management API
func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
		"message":   "Management API is running",
	}

	h.sendJSON(w, status)
}

// GetConfig returns the current configuration with secrets masked
func (h *Handlers) GetConfig(w http.ResponseWriter, r *http.Request) {
	redacted := *h.controller.cfg
	redacted.Bot.Token = maskSecret(redacted.Bot.Token)
	redacted.Management.AuthToken = maskSecret(redacted.Management.AuthToken)
	if redacted.History.TimescaleDSN != "" {
		redacted.History.TimescaleDSN = "(redacted)"
	}

	h.sendJSON(w, redacted)
}

// GetSessions runs the segmenter over the configured history sources and
// returns the detected sessions for the requested window (default 48h).
func (h *Handlers) GetSessions(w http.ResponseWriter, r *http.Request) {
	hours := 48
	if v := r.URL.Query().Get("hours"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 24*31 {
			h.sendError(w, http.StatusBadRequest, "Invalid hours parameter", err)
			return
		}
		hours = parsed
	}

	now := time.Now()
	samples, err := h.controller.history.Fetch(r.Context(), now.Add(-time.Duration(hours)*time.Hour), now)
	if err != nil {
		h.sendError(w, http.StatusBadGateway, "History fetch failed", err)
		return
	}

	params := sessions.Params{
		ThresholdC:     h.controller.cfg.Sessions.ThresholdC,
		MinDurationMin: h.controller.cfg.Sessions.MinDurationMin,
		GapMinutes:     h.controller.cfg.Sessions.GapMinutes,
	}
	found := sessions.Infer(samples, params)

	h.sendJSON(w, map[string]interface{}{
		"window_hours": hours,
		"sample_count": len(samples),
		"params": map[string]interface{}{
			"threshold_c":      params.ThresholdC,
			"min_duration_min": params.MinDurationMin,
			"gap_minutes":      params.GapMinutes,
		},
		"sessions": found,
	})
}

// GetLogs returns recent entries from the in-memory log buffer
func (h *Handlers) GetLogs(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > 1000 {
			h.sendError(w, http.StatusBadRequest, "Invalid limit parameter", err)
			return
		}
		limit = parsed
	}

	entries := log.GetLogBuffer().Recent(limit)
	h.sendJSON(w, map[string]interface{}{
		"count":   len(entries),
		"entries": entries,
	})
}

// maskSecret keeps just enough of a secret to recognize it.
func maskSecret(s string) string {
	if len(s) <= 4 {
		if s == "" {
			return ""
		}
		return "****"
	}
	return s[:4] + "****"
}
