// Package handlers is the HTTP edge of the office-hours service. Handlers
// decode and validate wire input, delegate to the directory and the ledger,
// and map domain errors to status codes. No business rules live here.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/campusdesk/officehours/internal/availability"
	"github.com/campusdesk/officehours/internal/booking"
	"github.com/campusdesk/officehours/internal/model"
	"github.com/campusdesk/officehours/internal/timefmt"
)

// ProfessorDirectory is the slice of professor storage the handlers need.
type ProfessorDirectory interface {
	Create(ctx context.Context, p model.Professor) error
	Get(ctx context.Context, id string) (model.Professor, error)
	List(ctx context.Context) ([]model.Professor, error)
	Template(ctx context.Context, professorID string) (availability.WeeklyTemplate, error)
	ReplaceTemplate(ctx context.Context, professorID string, tpl availability.WeeklyTemplate) error
}

// Ledger is the booking lifecycle as seen from the transport edge.
type Ledger interface {
	Create(ctx context.Context, c booking.Candidate) (model.Booking, error)
	Cancel(ctx context.Context, bookingID string) (model.Booking, error)
	Update(ctx context.Context, bookingID string, p booking.Patch) (model.Booking, error)
	ListByProfessor(ctx context.Context, professorID string) ([]model.Booking, error)
}

type API struct {
	professors ProfessorDirectory
	ledger     Ledger
	logger     *slog.Logger

	// GridMinutes overrides the default grid instants when non-empty.
	GridMinutes []int
}

func NewAPI(professors ProfessorDirectory, ledger Ledger, logger *slog.Logger) *API {
	return &API{professors: professors, ledger: ledger, logger: logger}
}

// Register mounts all routes on the mux using method patterns.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/professors", a.listProfessors)
	mux.HandleFunc("POST /api/v1/professors", a.createProfessor)
	mux.HandleFunc("GET /api/v1/professors/{id}", a.getProfessor)
	mux.HandleFunc("PUT /api/v1/professors/{id}/hours", a.replaceHours)
	mux.HandleFunc("GET /api/v1/professors/{id}/schedule", a.getSchedule)
	mux.HandleFunc("GET /api/v1/professors/{id}/bookings", a.listBookings)
	mux.HandleFunc("POST /api/v1/bookings", a.createBooking)
	mux.HandleFunc("PATCH /api/v1/bookings/{id}", a.updateBooking)
	mux.HandleFunc("DELETE /api/v1/bookings/{id}", a.cancelBooking)
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error("write response failed", "error", err)
	}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *API) writeError(w http.ResponseWriter, status int, code, message string) {
	a.writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// writeDomainError maps ledger and directory errors onto the wire. Anything
// unmapped is a 500 with a generic body so internals never leak.
func (a *API) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, timefmt.ErrMalformedTimeLabel):
		a.writeError(w, http.StatusBadRequest, "malformed_time_label", err.Error())
	case errors.Is(err, booking.ErrNoOfficeHours):
		a.writeError(w, http.StatusBadRequest, "no_office_hours", err.Error())
	case errors.Is(err, booking.ErrOutsideOfficeHours):
		a.writeError(w, http.StatusBadRequest, "outside_office_hours", err.Error())
	case errors.Is(err, booking.ErrSlotAlreadyBooked):
		a.writeError(w, http.StatusConflict, "slot_already_booked", err.Error())
	case errors.Is(err, booking.ErrBookingNotFound):
		a.writeError(w, http.StatusNotFound, "booking_not_found", err.Error())
	case errors.Is(err, booking.ErrUnknownProfessor):
		a.writeError(w, http.StatusNotFound, "unknown_professor", err.Error())
	case errors.Is(err, booking.ErrStorageUnavailable):
		a.logger.Error("storage unavailable", "error", err)
		a.writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "storage unavailable")
	default:
		a.logger.Error("unhandled error", "error", err)
		a.writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
