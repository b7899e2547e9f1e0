package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/campusdesk/officehours/internal/availability"
	"github.com/campusdesk/officehours/internal/model"
	"github.com/campusdesk/officehours/internal/storage"
	"github.com/campusdesk/officehours/internal/timefmt"
)

type professorResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Department string `json:"department,omitempty"`
	Email      string `json:"email,omitempty"`
	Office     string `json:"office,omitempty"`
	AvatarURL  string `json:"avatar_url,omitempty"`
}

func toProfessorResponse(p model.Professor) professorResponse {
	return professorResponse{
		ID:         p.ID,
		Name:       p.Name,
		Department: p.Department,
		Email:      p.Email,
		Office:     p.Office,
		AvatarURL:  p.AvatarURL,
	}
}

func (a *API) listProfessors(w http.ResponseWriter, r *http.Request) {
	profs, err := a.professors.List(r.Context())
	if err != nil {
		a.writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "storage unavailable")
		return
	}
	out := make([]professorResponse, 0, len(profs))
	for _, p := range profs {
		out = append(out, toProfessorResponse(p))
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"professors": out})
}

type createProfessorRequest struct {
	Name       string `json:"name"`
	Department string `json:"department"`
	Email      string `json:"email"`
	Office     string `json:"office"`
	AvatarURL  string `json:"avatar_url"`
}

func (a *API) createProfessor(w http.ResponseWriter, r *http.Request) {
	var req createProfessorRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		a.writeError(w, http.StatusBadRequest, "missing_field", "name is required")
		return
	}

	p := model.Professor{
		ID:         uuid.NewString(),
		Name:       strings.TrimSpace(req.Name),
		Department: req.Department,
		Email:      req.Email,
		Office:     req.Office,
		AvatarURL:  req.AvatarURL,
	}
	if err := a.professors.Create(r.Context(), p); err != nil {
		a.writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "storage unavailable")
		return
	}
	a.writeJSON(w, http.StatusCreated, toProfessorResponse(p))
}

func (a *API) getProfessor(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, err := a.professors.Get(r.Context(), id)
	if err != nil {
		if storage.IsNotFound(err) {
			a.writeError(w, http.StatusNotFound, "unknown_professor", "unknown professor")
			return
		}
		a.writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "storage unavailable")
		return
	}
	a.writeJSON(w, http.StatusOK, toProfessorResponse(p))
}

// hoursRequest is the wire form of a weekly template: clock labels per
// weekday, validated and converted to minutes here.
type hoursRequest map[string][]struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (a *API) replaceHours(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := a.professors.Get(r.Context(), id); err != nil {
		if storage.IsNotFound(err) {
			a.writeError(w, http.StatusNotFound, "unknown_professor", "unknown professor")
			return
		}
		a.writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "storage unavailable")
		return
	}

	var req hoursRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, "bad_json", err.Error())
		return
	}

	tpl := availability.WeeklyTemplate{}
	for dayName, ranges := range req {
		day, ok := availability.ParseWeekday(dayName)
		if !ok {
			a.writeError(w, http.StatusBadRequest, "invalid_weekday", "unknown weekday "+dayName)
			return
		}
		for _, rr := range ranges {
			start, err := timefmt.ParseClockLabel(rr.Start)
			if err != nil {
				a.writeError(w, http.StatusBadRequest, "malformed_time_label", err.Error())
				return
			}
			end, err := timefmt.ParseClockLabel(rr.End)
			if err != nil {
				a.writeError(w, http.StatusBadRequest, "malformed_time_label", err.Error())
				return
			}
			if start >= end {
				a.writeError(w, http.StatusBadRequest, "invalid_range", "range start must precede end")
				return
			}
			tpl[day] = append(tpl[day], availability.Range{StartMinute: start, EndMinute: end})
		}
	}

	if err := a.professors.ReplaceTemplate(r.Context(), id, tpl); err != nil {
		a.writeError(w, http.StatusServiceUnavailable, "storage_unavailable", "storage unavailable")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
