package handler

import (
	"net/http"
)

// AliveResponse is the payload of the liveness endpoint. Monitoring expects
// this exact shape, so the field names are fixed.
type AliveResponse struct {
	Name            string   `json:"Name"`
	Version         string   `json:"Version"`
	Env             *string  `json:"Env"`
	IsDebug         bool     `json:"IsDebug"`
	IssueIndicators []string `json:"IssueIndicators"`
}

// HealthHandler serves the liveness endpoint.
type HealthHandler struct {
	name    string
	version string
}

// NewHealthHandler creates a HealthHandler reporting the given service name
// and version.
func NewHealthHandler(name, version string) *HealthHandler {
	return &HealthHandler{name: name, version: version}
}

// IsAlive responds with the service identity.
// GET /api/isAlive
func (h *HealthHandler) IsAlive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, AliveResponse{
		Name:            h.name,
		Version:         h.version,
		IssueIndicators: []string{},
	})
}
