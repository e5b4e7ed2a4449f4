package api

import "net/http"

// StatsHandler exposes the service's operational counters.
type StatsHandler struct {
	provider StatsProvider
}

// NewStatsHandler creates a StatsHandler.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider}
}

// HandleStats serves GET /stats.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{})
		return
	}
	writeJSON(w, http.StatusOK, h.provider.GetStats())
}
