package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Adilet2205/CRM_Reminders/internal/jobs"
	log "github.com/sirupsen/logrus"
)

// DispatchHandler exposes the on-demand trigger for the timer
// dispatch run.
type DispatchHandler struct {
	Dispatcher *jobs.TimerDispatcher
}

// NewDispatchHandler creates a new instance of DispatchHandler.
func NewDispatchHandler(dispatcher *jobs.TimerDispatcher) *DispatchHandler {
	return &DispatchHandler{Dispatcher: dispatcher}
}

// POST /jobs/process-timers
//
// Returns 200 with the aggregate summary for any run that got past the
// due-timer query, even if every individual timer failed. Only a fatal
// fetch failure produces a 500.
func (h *DispatchHandler) ProcessTimersHandler(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Dispatcher.ProcessDueTimers(r.Context())
	if err != nil {
		log.WithError(err).Error("Timer dispatch run failed")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if summary.Total == 0 {
		json.NewEncoder(w).Encode(map[string]string{"message": "No timers to process"})
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":    "Timer processing completed",
		"total":      summary.Total,
		"successful": summary.Successful,
		"failed":     summary.Failed,
	})
}
