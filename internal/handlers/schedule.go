package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/campusdesk/officehours/internal/schedule"
	"github.com/campusdesk/officehours/internal/storage"
	"github.com/campusdesk/officehours/internal/timefmt"
)

const defaultSlotMinutes = 15

type scheduleEntry struct {
	Weekday   string `json:"weekday"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Status    string `json:"status"`
	BookingID string `json:"booking_id,omitempty"`
}

type scheduleResponse struct {
	Professor professorResponse `json:"professor"`
	View      string            `json:"view"`
	Week      int               `json:"week"`
	Dates     []string          `json:"dates"`
	Entries   []scheduleEntry   `json:"entries"`
}

// getSchedule composes the weekly view. Query params: week (offset, default
// 0), view (interval or grid, default grid), step (interval slot length in
// minutes, default 15).
func (a *API) getSchedule(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	prof, err := a.professors.Get(r.Context(), id)
	if err != nil {
		if storage.IsNotFound(err) {
			a.writeError(w, http.StatusNotFound, "unknown_professor", "unknown professor")
			return
		}
		a.writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "storage unavailable")
		return
	}

	week := 0
	if raw := r.URL.Query().Get("week"); raw != "" {
		week, err = strconv.Atoi(raw)
		if err != nil {
			a.writeError(w, http.StatusBadRequest, "invalid_week", "week must be an integer")
			return
		}
	}
	view := r.URL.Query().Get("view")
	if view == "" {
		view = "grid"
	}
	if view != "grid" && view != "interval" {
		a.writeError(w, http.StatusBadRequest, "invalid_view", "view must be grid or interval")
		return
	}
	step := defaultSlotMinutes
	if raw := r.URL.Query().Get("step"); raw != "" {
		step, err = strconv.Atoi(raw)
		if err != nil || step <= 0 {
			a.writeError(w, http.StatusBadRequest, "invalid_step", "step must be a positive integer")
			return
		}
	}

	tpl, err := a.professors.Template(r.Context(), id)
	if err != nil {
		a.writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "storage unavailable")
		return
	}
	bookings, err := a.ledger.ListByProfessor(r.Context(), id)
	if err != nil {
		a.writeDomainError(w, err)
		return
	}

	var composed []schedule.Entry
	if view == "interval" {
		composed = schedule.ComposeIntervalWeek(tpl, bookings, step)
	} else {
		grid := a.GridMinutes
		if len(grid) == 0 {
			grid = schedule.DefaultGridMinutes()
		}
		composed = schedule.ComposeGridWeek(tpl, bookings, grid)
	}

	entries := make([]scheduleEntry, 0, len(composed))
	for _, e := range composed {
		entries = append(entries, scheduleEntry{
			Weekday:   string(e.Weekday),
			Start:     timefmt.FormatMinutes(e.StartMinute),
			End:       timefmt.FormatMinutes(e.EndMinute),
			Status:    string(e.Status),
			BookingID: e.BookingID,
		})
	}

	dates := make([]string, 0, 5)
	for _, d := range schedule.WeekDates(time.Now(), week) {
		dates = append(dates, d.Format("2006-01-02"))
	}

	a.writeJSON(w, http.StatusOK, scheduleResponse{
		Professor: toProfessorResponse(prof),
		View:      view,
		Week:      week,
		Dates:     dates,
		Entries:   entries,
	})
}
