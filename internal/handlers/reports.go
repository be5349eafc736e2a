package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/IceMocha1125/Water-Level-Monitoring/internal/models"
	"github.com/IceMocha1125/Water-Level-Monitoring/internal/store"
)

// AlertReader reads the append-only alert log
type AlertReader interface {
	ListAlertEvents(ctx context.Context, filters store.AlertFilters, limit int) ([]*models.AlertEvent, error)
}

// DeliveryReader reads the delivery log for one alert
type DeliveryReader interface {
	ListDeliveryRecords(ctx context.Context, alertID string) ([]*models.DeliveryRecord, error)
}

// ReadingReader reads recent readings
type ReadingReader interface {
	ListReadings(ctx context.Context, limit int) ([]*models.Reading, error)
}

// ReportsHandler serves the read-only boundary consumed by the dashboard
// and reporting collaborators.
type ReportsHandler struct {
	alerts     AlertReader
	deliveries DeliveryReader
	readings   ReadingReader
}

// NewReportsHandler creates a reports handler
func NewReportsHandler(alerts AlertReader, deliveries DeliveryReader, readings ReadingReader) *ReportsHandler {
	return &ReportsHandler{
		alerts:     alerts,
		deliveries: deliveries,
		readings:   readings,
	}
}

// Alerts handles GET /api/v1/alerts
func (h *ReportsHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var filters store.AlertFilters
	if s := r.URL.Query().Get("status"); s != "" {
		status := models.Status(s)
		if !status.IsValid() {
			writeJSONError(w, http.StatusBadRequest, "unknown status")
			return
		}
		filters.Status = &status
	}
	if s := r.URL.Query().Get("since"); s != "" {
		since, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		filters.Since = &since
	}

	events, err := h.alerts.ListAlertEvents(r.Context(), filters, parseLimit(r))
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if events == nil {
		events = []*models.AlertEvent{}
	}

	writeJSON(w, map[string]interface{}{"alerts": events})
}

// Deliveries handles GET /api/v1/deliveries?alert_id=
func (h *ReportsHandler) Deliveries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	alertID := r.URL.Query().Get("alert_id")
	if alertID == "" {
		writeJSONError(w, http.StatusBadRequest, "alert_id is required")
		return
	}

	records, err := h.deliveries.ListDeliveryRecords(r.Context(), alertID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []*models.DeliveryRecord{}
	}

	writeJSON(w, map[string]interface{}{"deliveries": records})
}

// Readings handles GET /api/v1/readings
func (h *ReportsHandler) Readings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	readings, err := h.readings.ListReadings(r.Context(), parseLimit(r))
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if readings == nil {
		readings = []*models.Reading{}
	}

	writeJSON(w, map[string]interface{}{"readings": readings})
}

func parseLimit(r *http.Request) int {
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 50
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
