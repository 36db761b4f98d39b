package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"parking-system/internal/logging"
	"parking-system/internal/parking"
)

type Meta struct {
	TraceID   string `json:"trace_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Kind    string `json:"kind,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Store   string `json:"store"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type EntryRequest struct {
	VehicleType string `json:"vehicle_type"`
	VehicleID   string `json:"vehicle_id"`
}

type ExitRequest struct {
	VehicleID string `json:"vehicle_id"`
}

type EntryResponse struct {
	TicketID        int       `json:"ticket_id"`
	SpotID          int       `json:"spot_id"`
	VehicleType     string    `json:"vehicle_type"`
	VehicleID       string    `json:"vehicle_id"`
	InTime          time.Time `json:"in_time"`
	DiscountPercent int       `json:"discount_percent"`
	Warning         string    `json:"warning,omitempty"`
}

type ExitResponse struct {
	TicketID        int       `json:"ticket_id"`
	SpotID          int       `json:"spot_id"`
	VehicleID       string    `json:"vehicle_id"`
	Price           string    `json:"price"`
	DiscountPercent int       `json:"discount_percent"`
	OutTime         time.Time `json:"out_time"`
	DurationMinutes float64   `json:"duration_minutes"`
}

type TicketResponse struct {
	TicketID        int        `json:"ticket_id"`
	SpotID          int        `json:"spot_id"`
	VehicleType     string     `json:"vehicle_type"`
	VehicleID       string     `json:"vehicle_id"`
	State           string     `json:"state"`
	InTime          time.Time  `json:"in_time"`
	OutTime         *time.Time `json:"out_time,omitempty"`
	Price           string     `json:"price"`
	DiscountPercent int        `json:"discount_percent"`
}

type SpotStatus struct {
	SpotID      int    `json:"spot_id"`
	VehicleType string `json:"vehicle_type"`
	Available   bool   `json:"available"`
}

type StatusResponse struct {
	Total     int          `json:"total"`
	Occupied  int          `json:"occupied"`
	Available int          `json:"available"`
	Spots     []SpotStatus `json:"spots"`
}

func newTicketResponse(t *parking.Ticket) TicketResponse {
	return TicketResponse{
		TicketID:        t.ID,
		SpotID:          t.Spot.ID,
		VehicleType:     t.Spot.Category.String(),
		VehicleID:       t.VehicleID,
		State:           string(t.State()),
		InTime:          t.InTime,
		OutTime:         t.OutTime,
		Price:           t.Price.StringFixed(2),
		DiscountPercent: t.DiscountPercent,
	}
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func extractMeta(ctx context.Context) *Meta {
	meta := &Meta{}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		meta.TraceID = span.SpanContext().TraceID().String()
	}

	if reqID, ok := ctx.Value(RequestIDKey).(string); ok {
		meta.RequestID = reqID
	}

	return meta
}

func WriteSuccess(ctx context.Context, w http.ResponseWriter, status int, message string, data any) {
	WriteJSON(w, status, Response{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    extractMeta(ctx),
	})
}

func WriteError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Response{
		Success: false,
		Error:   message,
		Meta:    extractMeta(ctx),
	})
}

// WriteParkingError maps a lifecycle error to a status code by its kind.
func WriteParkingError(ctx context.Context, w http.ResponseWriter, err error) {
	kind := parking.KindOf(err)
	status := statusForError(err)

	if status >= http.StatusInternalServerError {
		logging.Error(ctx).Err(err).Str("kind", string(kind)).Int("status", status).Msg("parking operation failed")
	}

	WriteJSON(w, status, Response{
		Success: false,
		Error:   err.Error(),
		Kind:    string(kind),
		Meta:    extractMeta(ctx),
	})
}

func statusForError(err error) int {
	switch parking.KindOf(err) {
	case parking.KindValidation:
		if errors.Is(err, parking.ErrTicketNotFound) {
			return http.StatusNotFound
		}
		if errors.Is(err, parking.ErrAlreadyDeparted) {
			return http.StatusConflict
		}
		return http.StatusBadRequest
	case parking.KindCapacity:
		return http.StatusConflict
	case parking.KindPrecondition:
		return http.StatusInternalServerError
	default:
		return http.StatusServiceUnavailable
	}
}
