package api

import "net/http"

// ProgressHandler handles progress requests.
type ProgressHandler struct {
	provider ProgressProvider
}

// NewProgressHandler creates a new progress handler.
func NewProgressHandler(provider ProgressProvider) *ProgressHandler {
	return &ProgressHandler{provider: provider}
}

// HandleProgress handles GET /progress requests.
func (h *ProgressHandler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethod)
		return
	}
	if h.provider == nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", ErrNoProgress)
		return
	}
	writeJSON(w, http.StatusOK, h.provider.Progress())
}
