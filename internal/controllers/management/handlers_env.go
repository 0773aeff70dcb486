package management

import (
	"encoding/json"
	"net/http"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
)

// envKeyPattern is the shape of an acceptable environment variable name.
var envKeyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// sensitiveKeyFragments marks env values that must not be echoed back.
var sensitiveKeyFragments = []string{"TOKEN", "SECRET", "PASSWORD", "DSN", "KEY"}

// GetEnvFile returns the configured .env file with sensitive values masked
func (h *Handlers) GetEnvFile(w http.ResponseWriter, r *http.Request) {
	path := h.controller.mgmt.EnvFile
	if path == "" {
		h.sendError(w, http.StatusNotFound, "No env file configured", nil)
		return
	}

	vars, err := godotenv.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			h.sendJSON(w, map[string]interface{}{"path": path, "vars": map[string]string{}})
			return
		}
		h.sendError(w, http.StatusInternalServerError, "Failed to read env file", err)
		return
	}

	masked := make(map[string]string, len(vars))
	for k, v := range vars {
		if isSensitiveKey(k) {
			masked[k] = maskSecret(v)
		} else {
			masked[k] = v
		}
	}

	h.sendJSON(w, map[string]interface{}{
		"path": path,
		"vars": masked,
	})
}

// UpdateEnvFile merges the submitted variables into the .env file. Submitting
// an empty string removes the key. Changes take effect on service restart.
func (h *Handlers) UpdateEnvFile(w http.ResponseWriter, r *http.Request) {
	path := h.controller.mgmt.EnvFile
	if path == "" {
		h.sendError(w, http.StatusNotFound, "No env file configured", nil)
		return
	}

	var updates map[string]string
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid JSON payload", err)
		return
	}
	if len(updates) == 0 {
		h.sendError(w, http.StatusBadRequest, "No variables submitted", nil)
		return
	}
	for k := range updates {
		if !envKeyPattern.MatchString(k) {
			h.sendError(w, http.StatusBadRequest, "Invalid variable name: "+k, nil)
			return
		}
	}

	vars, err := godotenv.Read(path)
	if err != nil {
		if !os.IsNotExist(err) {
			h.sendError(w, http.StatusInternalServerError, "Failed to read env file", err)
			return
		}
		vars = map[string]string{}
	}

	var removed, updated int
	for k, v := range updates {
		if v == "" {
			if _, ok := vars[k]; ok {
				delete(vars, k)
				removed++
			}
			continue
		}
		vars[k] = v
		updated++
	}

	if err := godotenv.Write(vars, path); err != nil {
		h.sendError(w, http.StatusInternalServerError, "Failed to write env file", err)
		return
	}

	h.sendJSON(w, map[string]interface{}{
		"success": true,
		"updated": updated,
		"removed": removed,
		"message": "Saved. Restart the service for changes to take effect.",
	})
}

func isSensitiveKey(key string) bool {
	for _, fragment := range sensitiveKeyFragments {
		if strings.Contains(key, fragment) {
			return true
		}
	}
	return false
}
