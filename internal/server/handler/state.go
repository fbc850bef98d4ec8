package handler

import (
	"net/http"

	events "github.com/quantex/marketfeed/internal/handler"
	"github.com/quantex/marketfeed/internal/transport"
)

// SinkStatus reports the connection state of the primary downstream sink.
type SinkStatus interface {
	Status() transport.Status
}

// StateResponse is the payload of the state endpoint.
type StateResponse struct {
	Sanitizer string         `json:"sanitizer"`
	Exchanges []events.State `json:"exchanges"`
}

// StateHandler exposes a point-in-time view of the running pipelines and the
// downstream sanitizer connection.
type StateHandler struct {
	pipelines []*events.Events
	sink      SinkStatus
}

// NewStateHandler creates a StateHandler over the given pipelines.
func NewStateHandler(pipelines []*events.Events, sink SinkStatus) *StateHandler {
	return &StateHandler{pipelines: pipelines, sink: sink}
}

// State responds with per-exchange pipeline state and sink connectivity.
// GET /api/state
func (h *StateHandler) State(w http.ResponseWriter, r *http.Request) {
	resp := StateResponse{
		Exchanges: make([]events.State, 0, len(h.pipelines)),
	}
	if h.sink != nil {
		resp.Sanitizer = string(h.sink.Status())
	}
	for _, p := range h.pipelines {
		resp.Exchanges = append(resp.Exchanges, p.State())
	}
	writeJSON(w, http.StatusOK, resp)
}
