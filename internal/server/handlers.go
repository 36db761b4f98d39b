package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"parking-system/internal/logging"
	"parking-system/internal/parking"
)

// Store is the read side the API needs beyond the lifecycle operations.
type Store interface {
	ListSpots(ctx context.Context) ([]parking.Spot, error)
	TicketByVehicle(ctx context.Context, vehicleID string) (*parking.Ticket, error)
	Ping(ctx context.Context) error
}

type Handler struct {
	lifecycle   parking.Lifecycle
	store       Store
	serviceName string
}

func NewHandler(lifecycle parking.Lifecycle, store Store, serviceName string) *Handler {
	if serviceName == "" {
		serviceName = "parking-system"
	}
	return &Handler{
		lifecycle:   lifecycle,
		store:       store,
		serviceName: serviceName,
	}
}

// requestInput answers the lifecycle's questions from a decoded request.
type requestInput struct {
	selection int
	vehicleID string
}

func (in requestInput) ReadSelection() int {
	return in.selection
}

func (in requestInput) ReadVehicleID() (string, error) {
	vehicleID := strings.TrimSpace(in.vehicleID)
	if vehicleID == "" {
		return "", parking.ErrInvalidVehicleID
	}
	return vehicleID, nil
}

func selectionFor(vehicleType string) int {
	category, err := parking.ParseCategory(vehicleType)
	if err != nil {
		return -1
	}
	switch category {
	case parking.Car:
		return parking.SelectCar
	case parking.Bike:
		return parking.SelectBike
	}
	return -1
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := HealthResponse{
		Status:  "healthy",
		Service: h.serviceName,
		Store:   "up",
		Meta:    extractMeta(ctx),
	}
	status := http.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		resp.Status = "unhealthy"
		resp.Store = "down"
		status = http.StatusServiceUnavailable
	}
	WriteJSON(w, status, resp)
}

func (h *Handler) EnterVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req EntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	receipt, err := h.lifecycle.ProcessIncomingVehicle(ctx, requestInput{
		selection: selectionFor(req.VehicleType),
		vehicleID: req.VehicleID,
	})
	if err != nil {
		WriteParkingError(ctx, w, err)
		return
	}

	resp := EntryResponse{
		TicketID:        receipt.Ticket.ID,
		SpotID:          receipt.SpotID,
		VehicleType:     receipt.Category.String(),
		VehicleID:       receipt.VehicleID,
		InTime:          receipt.InTime,
		DiscountPercent: receipt.DiscountPercent,
	}
	if receipt.SpotPersistErr != nil {
		logging.Warn(ctx).Err(receipt.SpotPersistErr).Int("spot_id", receipt.SpotID).Msg("ticket issued without recording spot occupancy")
		resp.Warning = receipt.SpotPersistErr.Error()
	}
	WriteSuccess(ctx, w, http.StatusCreated, "Vehicle parked successfully", resp)
}

func (h *Handler) ExitVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ExitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	receipt, err := h.lifecycle.ProcessExitingVehicle(ctx, requestInput{vehicleID: req.VehicleID})
	if err != nil {
		WriteParkingError(ctx, w, err)
		return
	}

	WriteSuccess(ctx, w, http.StatusOK, "Please pay the parking fare", ExitResponse{
		TicketID:        receipt.Ticket.ID,
		SpotID:          receipt.SpotID,
		VehicleID:       receipt.VehicleID,
		Price:           receipt.Price.StringFixed(2),
		DiscountPercent: receipt.Ticket.DiscountPercent,
		OutTime:         receipt.OutTime,
		DurationMinutes: receipt.Duration.Minutes(),
	})
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	spots, err := h.store.ListSpots(ctx)
	if err != nil {
		WriteError(ctx, w, http.StatusServiceUnavailable, "Unable to read parking spots")
		return
	}

	resp := StatusResponse{
		Total: len(spots),
		Spots: make([]SpotStatus, 0, len(spots)),
	}
	for _, spot := range spots {
		if spot.Available {
			resp.Available++
		} else {
			resp.Occupied++
		}
		resp.Spots = append(resp.Spots, SpotStatus{
			SpotID:      spot.ID,
			VehicleType: spot.Category.String(),
			Available:   spot.Available,
		})
	}

	WriteSuccess(ctx, w, http.StatusOK, "Status retrieved successfully", resp)
}

func (h *Handler) FindTicket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	vehicleID := strings.TrimSpace(chi.URLParam(r, "vehicleID"))
	if vehicleID == "" {
		WriteError(ctx, w, http.StatusBadRequest, "Vehicle registration number is required")
		return
	}

	ticket, err := h.store.TicketByVehicle(ctx, vehicleID)
	if errors.Is(err, parking.ErrTicketNotFound) {
		WriteError(ctx, w, http.StatusNotFound, "Ticket not found")
		return
	}
	if err != nil {
		WriteError(ctx, w, http.StatusServiceUnavailable, "Unable to read ticket")
		return
	}

	WriteSuccess(ctx, w, http.StatusOK, "Ticket found", newTicketResponse(ticket))
}
