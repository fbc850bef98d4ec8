package handler

import (
	"net/http"
)

// SettingsHandler exposes the effective configuration for diagnostics. The
// caller provides an already-sanitized view; secrets never reach this
// handler.
type SettingsHandler struct {
	settings any
}

// NewSettingsHandler creates a SettingsHandler for the given settings view.
func NewSettingsHandler(settings any) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

// Settings responds with the running configuration.
// GET /api/settings
func (h *SettingsHandler) Settings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.settings)
}
