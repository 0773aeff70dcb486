package management

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/gorilla/mux"
)

// SystemInfo represents basic system information
type SystemInfo struct {
	OS           string `json:"os"`
	Architecture string `json:"architecture"`
	Hostname     string `json:"hostname"`
	Timestamp    int64  `json:"timestamp"`
}

// ServiceStatus is one systemd unit's state as reported by systemctl.
type ServiceStatus struct {
	Unit        string `json:"unit"`
	ActiveState string `json:"active_state"`
	SubState    string `json:"sub_state,omitempty"`
	Description string `json:"description,omitempty"`
}

// GetSystemInfo returns basic system information
func (h *Handlers) GetSystemInfo(w http.ResponseWriter, r *http.Request) {
	hostname, _ := os.Hostname()

	info := SystemInfo{
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		Hostname:     hostname,
		Timestamp:    time.Now().Unix(),
	}

	h.sendJSON(w, info)
}

// GetServices returns the status of every allowlisted systemd unit
func (h *Handlers) GetServices(w http.ResponseWriter, r *http.Request) {
	units := h.controller.mgmt.ServiceUnits
	statuses := make([]ServiceStatus, 0, len(units))
	for _, unit := range units {
		status, err := h.queryUnit(r.Context(), unit)
		if err != nil {
			h.sendError(w, http.StatusInternalServerError, "Failed to query unit "+unit, err)
			return
		}
		statuses = append(statuses, status)
	}

	h.sendJSON(w, map[string]interface{}{
		"services":  statuses,
		"count":     len(statuses),
		"timestamp": time.Now().Unix(),
	})
}

// GetService returns the status of one allowlisted unit
func (h *Handlers) GetService(w http.ResponseWriter, r *http.Request) {
	unit := mux.Vars(r)["unit"]
	if !h.unitAllowed(unit) {
		h.sendError(w, http.StatusForbidden, "Unit is not in the managed allowlist", nil)
		return
	}

	status, err := h.queryUnit(r.Context(), unit)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "Failed to query unit", err)
		return
	}
	h.sendJSON(w, status)
}

// ControlService starts, stops, or restarts an allowlisted unit
func (h *Handlers) ControlService(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	unit := vars["unit"]
	action := vars["action"]

	if !h.unitAllowed(unit) {
		h.sendError(w, http.StatusForbidden, "Unit is not in the managed allowlist", nil)
		return
	}
	switch action {
	case "start", "stop", "restart":
	default:
		h.sendError(w, http.StatusBadRequest, "Action must be start, stop, or restart", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, "systemctl", action, unit).CombinedOutput()
	if err != nil {
		h.sendError(w, http.StatusInternalServerError,
			fmt.Sprintf("systemctl %s %s failed: %s", action, unit, strings.TrimSpace(string(output))), err)
		return
	}

	status, err := h.queryUnit(r.Context(), unit)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "Unit state unknown after "+action, err)
		return
	}

	h.sendJSON(w, map[string]interface{}{
		"success": true,
		"action":  action,
		"status":  status,
	})
}

// queryUnit reads a unit's state via systemctl show. A non-running unit is a
// normal status, not an error.
func (h *Handlers) queryUnit(ctx context.Context, unit string) (ServiceStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, "systemctl", "show", unit,
		"--property=ActiveState,SubState,Description", "--no-pager").Output()
	if err != nil {
		return ServiceStatus{}, fmt.Errorf("systemctl show %s: %w", unit, err)
	}

	status := ServiceStatus{Unit: unit}
	for _, line := range strings.Split(string(out), "\n") {
		key, value, found := strings.Cut(strings.TrimSpace(line), "=")
		if !found {
			continue
		}
		switch key {
		case "ActiveState":
			status.ActiveState = value
		case "SubState":
			status.SubState = value
		case "Description":
			status.Description = value
		}
	}
	return status, nil
}

func (h *Handlers) unitAllowed(unit string) bool {
	for _, allowed := range h.controller.mgmt.ServiceUnits {
		if unit == allowed {
			return true
		}
	}
	return false
}
