package handlers

import (
	"net/http"
	"strings"

	"github.com/campusdesk/officehours/internal/availability"
	"github.com/campusdesk/officehours/internal/booking"
	"github.com/campusdesk/officehours/internal/model"
	"github.com/campusdesk/officehours/internal/timefmt"
)

type bookingResponse struct {
	ID           string `json:"id"`
	ProfessorID  string `json:"professor_id"`
	Weekday      string `json:"weekday"`
	Start        string `json:"start"`
	End          string `json:"end"`
	StudentName  string `json:"student_name"`
	StudentEmail string `json:"student_email"`
	Status       string `json:"status"`
}

func toBookingResponse(b model.Booking) bookingResponse {
	return bookingResponse{
		ID:           b.ID,
		ProfessorID:  b.ProfessorID,
		Weekday:      string(b.Weekday),
		Start:        timefmt.FormatMinutes(b.StartMinute),
		End:          timefmt.FormatMinutes(b.EndMinute),
		StudentName:  b.StudentName,
		StudentEmail: b.StudentEmail,
		Status:       b.Status,
	}
}

type createBookingRequest struct {
	ProfessorID  string `json:"professor_id"`
	Weekday      string `json:"weekday"`
	Start        string `json:"start"`
	End          string `json:"end"`
	StudentName  string `json:"student_name"`
	StudentEmail string `json:"student_email"`
}

func (a *API) createBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}
	if req.ProfessorID == "" {
		a.writeError(w, http.StatusBadRequest, "missing_field", "professor_id is required")
		return
	}
	if strings.TrimSpace(req.StudentName) == "" {
		a.writeError(w, http.StatusBadRequest, "missing_field", "student_name is required")
		return
	}
	day, ok := availability.ParseWeekday(req.Weekday)
	if !ok {
		a.writeError(w, http.StatusBadRequest, "invalid_weekday", "unknown weekday "+req.Weekday)
		return
	}

	b, err := a.ledger.Create(r.Context(), booking.Candidate{
		ProfessorID:  req.ProfessorID,
		Weekday:      day,
		StartLabel:   req.Start,
		EndLabel:     req.End,
		StudentName:  strings.TrimSpace(req.StudentName),
		StudentEmail: strings.TrimSpace(req.StudentEmail),
	})
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, toBookingResponse(b))
}

type updateBookingRequest struct {
	Weekday      *string `json:"weekday"`
	Start        *string `json:"start"`
	End          *string `json:"end"`
	StudentName  *string `json:"student_name"`
	StudentEmail *string `json:"student_email"`
}

func (a *API) updateBooking(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateBookingRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}

	patch := booking.Patch{
		StartLabel:   req.Start,
		EndLabel:     req.End,
		StudentName:  req.StudentName,
		StudentEmail: req.StudentEmail,
	}
	if req.Weekday != nil {
		day, ok := availability.ParseWeekday(*req.Weekday)
		if !ok {
			a.writeError(w, http.StatusBadRequest, "invalid_weekday", "unknown weekday "+*req.Weekday)
			return
		}
		patch.Weekday = &day
	}

	b, err := a.ledger.Update(r.Context(), id, patch)
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toBookingResponse(b))
}

func (a *API) cancelBooking(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	b, err := a.ledger.Cancel(r.Context(), id)
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, toBookingResponse(b))
}

func (a *API) listBookings(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	bookings, err := a.ledger.ListByProfessor(r.Context(), id)
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	out := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingResponse(b))
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"bookings": out})
}
