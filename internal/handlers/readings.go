package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/IceMocha1125/Water-Level-Monitoring/internal/cooldown"
	"github.com/IceMocha1125/Water-Level-Monitoring/internal/engine"
	"github.com/IceMocha1125/Water-Level-Monitoring/internal/metrics"
	"github.com/IceMocha1125/Water-Level-Monitoring/internal/models"
)

// ReadingSubmitter runs the alert cycle for one reading
type ReadingSubmitter interface {
	HandleReading(ctx context.Context, reading *models.Reading) (*engine.Result, error)
}

// ReadingsHandler accepts water-level readings over HTTP. The same handler
// backs the sensor ingestion endpoint and the auth-gated manual trigger
// used for operational testing; they differ only in routing and middleware.
type ReadingsHandler struct {
	submitter ReadingSubmitter

	// Label recorded on ingestion metrics, e.g. "http" or "trigger"
	source string
}

// NewReadingsHandler creates a readings handler
func NewReadingsHandler(submitter ReadingSubmitter, source string) *ReadingsHandler {
	if source == "" {
		source = "http"
	}
	return &ReadingsHandler{submitter: submitter, source: source}
}

// ReadingInput is the incoming JSON payload
type ReadingInput struct {
	Level      *float64 `json:"level"`
	Location   string   `json:"location"`
	ObservedAt string   `json:"observed_at,omitempty"`
}

// SubmitResponse is the ack returned to clients
type SubmitResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status,omitempty"`
	Alerted bool   `json:"alerted"`
	AlertID string `json:"alert_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ServeHTTP handles the reading submission request
func (h *ReadingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType != "application/json" && contentType != "" {
		h.writeError(w, http.StatusUnsupportedMediaType, "content-type must be application/json")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var input ReadingInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		metrics.ReadingsTotal.WithLabelValues(h.source, "rejected").Inc()
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	reading, err := h.convertInput(input)
	if err != nil {
		metrics.ReadingsTotal.WithLabelValues(h.source, "rejected").Inc()
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.submitter.HandleReading(r.Context(), reading)
	if err != nil {
		switch {
		case isValidationError(err):
			metrics.ReadingsTotal.WithLabelValues(h.source, "rejected").Inc()
			h.writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, engine.ErrRosterUnavailable),
			errors.Is(err, cooldown.ErrGateUnavailable):
			h.writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			h.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	metrics.ReadingsTotal.WithLabelValues(h.source, "accepted").Inc()

	resp := SubmitResponse{
		Success: true,
		Status:  string(result.Status),
		Alerted: result.Alerted,
	}
	if result.Alert != nil {
		resp.AlertID = result.Alert.ID
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// convertInput converts ReadingInput to a Reading
func (h *ReadingsHandler) convertInput(input ReadingInput) (*models.Reading, error) {
	if input.Level == nil {
		return nil, fmt.Errorf("level is required")
	}

	reading := &models.Reading{
		Level:    *input.Level,
		Location: input.Location,
	}

	if input.ObservedAt != "" {
		ts, err := time.Parse(time.RFC3339, input.ObservedAt)
		if err != nil {
			return nil, fmt.Errorf("observed_at: %w", err)
		}
		reading.ObservedAt = ts
	}

	return reading, nil
}

func isValidationError(err error) bool {
	return errors.Is(err, models.ErrInvalidLevel) ||
		errors.Is(err, models.ErrEmptyLocation) ||
		errors.Is(err, models.ErrLocationTooLong) ||
		errors.Is(err, models.ErrFutureObservation)
}

func (h *ReadingsHandler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(SubmitResponse{
		Success: false,
		Error:   message,
	})
}
