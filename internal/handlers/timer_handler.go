package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Adilet2205/CRM_Reminders/internal/models"
	"github.com/Adilet2205/CRM_Reminders/internal/services"
	"github.com/Adilet2205/CRM_Reminders/pkg/middleware"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TimerHandler handles HTTP requests related to timers.
type TimerHandler struct {
	Service *services.TimerService
}

// NewTimerHandler creates a new instance of TimerHandler.
func NewTimerHandler(service *services.TimerService) *TimerHandler {
	return &TimerHandler{Service: service}
}

// CreateTimerHandler handles the creation of a new timer.
func (h *TimerHandler) CreateTimerHandler(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var timer models.Timer
	if err := json.NewDecoder(r.Body).Decode(&timer); err != nil {
		logrus.WithError(err).Warn("Invalid request payload during timer creation")
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	// Timers default to assignment to their creator.
	if timer.AssignedTo.IsZero() {
		if userID, err := primitive.ObjectIDFromHex(claims.UserID); err == nil {
			timer.AssignedTo = userID
		}
	}

	created, err := h.Service.CreateTimer(r.Context(), &timer)
	if err != nil {
		logrus.WithError(err).Warn("Failed to create timer")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	logrus.WithFields(logrus.Fields{
		"userID":  claims.UserID,
		"timerID": created.ID.Hex(),
	}).Info("Timer successfully created")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

// GetTimerHandler handles fetching a single timer by its ID.
func (h *TimerHandler) GetTimerHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	timerID, err := primitive.ObjectIDFromHex(vars["id"])
	if err != nil {
		http.Error(w, "Invalid timer ID", http.StatusBadRequest)
		return
	}

	timer, err := h.Service.GetTimer(r.Context(), timerID)
	if err != nil {
		http.Error(w, "Timer not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(timer)
}

// GetTimersHandler lists timers attached to a CRM entity, selected by
// the entity_type and entity_id query parameters.
func (h *TimerHandler) GetTimersHandler(w http.ResponseWriter, r *http.Request) {
	entityType := r.URL.Query().Get("entity_type")
	entityID, err := primitive.ObjectIDFromHex(r.URL.Query().Get("entity_id"))
	if entityType == "" || err != nil {
		http.Error(w, "entity_type and entity_id are required", http.StatusBadRequest)
		return
	}

	timers, err := h.Service.GetTimersByEntity(r.Context(), entityType, entityID)
	if err != nil {
		logrus.WithError(err).Error("Failed to fetch timers")
		http.Error(w, "Failed to fetch timers", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(timers)
}

// UpdateTimerHandler applies a partial update to a timer.
func (h *TimerHandler) UpdateTimerHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	timerID, err := primitive.ObjectIDFromHex(vars["id"])
	if err != nil {
		http.Error(w, "Invalid timer ID", http.StatusBadRequest)
		return
	}

	var update map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if err := h.Service.UpdateTimer(r.Context(), timerID, update); err != nil {
		logrus.WithError(err).Warn("Failed to update timer")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "Timer updated"})
}

// CompleteTimerHandler marks a timer completed.
func (h *TimerHandler) CompleteTimerHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	timerID, err := primitive.ObjectIDFromHex(vars["id"])
	if err != nil {
		http.Error(w, "Invalid timer ID", http.StatusBadRequest)
		return
	}

	if err := h.Service.CompleteTimer(r.Context(), timerID); err != nil {
		logrus.WithError(err).Error("Failed to complete timer")
		http.Error(w, "Failed to complete timer", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "Timer completed"})
}

// DeleteTimerHandler deletes a timer.
func (h *TimerHandler) DeleteTimerHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	timerID, err := primitive.ObjectIDFromHex(vars["id"])
	if err != nil {
		http.Error(w, "Invalid timer ID", http.StatusBadRequest)
		return
	}

	if err := h.Service.DeleteTimer(r.Context(), timerID); err != nil {
		logrus.WithError(err).Error("Failed to delete timer")
		http.Error(w, "Failed to delete timer", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "Timer deleted"})
}
