package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/campusdesk/officehours/internal/availability"
	"github.com/campusdesk/officehours/internal/booking"
	"github.com/campusdesk/officehours/internal/model"
	"github.com/campusdesk/officehours/internal/timefmt"
	"github.com/campusdesk/officehours/libs/runtime"
)

type fakeDirectory struct {
	mu    sync.Mutex
	profs map[string]model.Professor
	tpls  map[string]availability.WeeklyTemplate
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		profs: map[string]model.Professor{},
		tpls:  map[string]availability.WeeklyTemplate{},
	}
}

func (d *fakeDirectory) Create(_ context.Context, p model.Professor) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.profs[p.ID] = p
	return nil
}

func (d *fakeDirectory) Get(_ context.Context, id string) (model.Professor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.profs[id]
	if !ok {
		return model.Professor{}, pgx.ErrNoRows
	}
	return p, nil
}

func (d *fakeDirectory) List(_ context.Context) ([]model.Professor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []model.Professor
	for _, p := range d.profs {
		out = append(out, p)
	}
	return out, nil
}

func (d *fakeDirectory) Template(_ context.Context, id string) (availability.WeeklyTemplate, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tpls[id], nil
}

func (d *fakeDirectory) ReplaceTemplate(_ context.Context, id string, tpl availability.WeeklyTemplate) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tpls[id] = tpl
	return nil
}

// fakeLedger reproduces the production ledger's contract: validation against
// the template, then an atomic slot claim so concurrent identical creates
// cannot both succeed.
type fakeLedger struct {
	mu       sync.Mutex
	dir      *fakeDirectory
	bookings map[string]model.Booking
	slots    map[string]string // slot key -> booking id
}

func newFakeLedger(dir *fakeDirectory) *fakeLedger {
	return &fakeLedger{
		dir:      dir,
		bookings: map[string]model.Booking{},
		slots:    map[string]string{},
	}
}

func slotKey(professorID string, day availability.Weekday, start, end int) string {
	return fmt.Sprintf("%s|%s|%d|%d", professorID, day, start, end)
}

func (l *fakeLedger) Create(ctx context.Context, c booking.Candidate) (model.Booking, error) {
	if _, err := l.dir.Get(ctx, c.ProfessorID); err != nil {
		return model.Booking{}, booking.ErrUnknownProfessor
	}
	tpl, _ := l.dir.Template(ctx, c.ProfessorID)

	b, err := booking.Validate(tpl, nil, c)
	if err != nil {
		return model.Booking{}, err
	}
	b.ID = uuid.NewString()
	b.CreatedAt = time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()
	key := slotKey(b.ProfessorID, b.Weekday, b.StartMinute, b.EndMinute)
	if _, taken := l.slots[key]; taken {
		return model.Booking{}, booking.ErrSlotAlreadyBooked
	}
	l.slots[key] = b.ID
	l.bookings[b.ID] = b
	return b, nil
}

func (l *fakeLedger) Cancel(_ context.Context, id string) (model.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.bookings[id]
	if !ok || !b.Active() {
		return model.Booking{}, booking.ErrBookingNotFound
	}
	now := time.Now()
	b.Status = model.BookingStatusCancelled
	b.CancelledAt = &now
	l.bookings[id] = b
	delete(l.slots, slotKey(b.ProfessorID, b.Weekday, b.StartMinute, b.EndMinute))
	return b, nil
}

func (l *fakeLedger) Update(ctx context.Context, id string, p booking.Patch) (model.Booking, error) {
	l.mu.Lock()
	b, ok := l.bookings[id]
	l.mu.Unlock()
	if !ok || !b.Active() {
		return model.Booking{}, booking.ErrBookingNotFound
	}

	if p.StudentName != nil {
		b.StudentName = *p.StudentName
	}
	if p.StudentEmail != nil {
		b.StudentEmail = *p.StudentEmail
	}

	if p.Weekday != nil || p.StartLabel != nil || p.EndLabel != nil {
		cand := booking.Candidate{
			ProfessorID:  b.ProfessorID,
			Weekday:      b.Weekday,
			StartLabel:   timefmt.FormatMinutes(b.StartMinute),
			EndLabel:     timefmt.FormatMinutes(b.EndMinute),
			StudentName:  b.StudentName,
			StudentEmail: b.StudentEmail,
		}
		if p.Weekday != nil {
			cand.Weekday = *p.Weekday
		}
		if p.StartLabel != nil {
			cand.StartLabel = *p.StartLabel
		}
		if p.EndLabel != nil {
			cand.EndLabel = *p.EndLabel
		}
		tpl, _ := l.dir.Template(ctx, b.ProfessorID)
		validated, err := booking.Validate(tpl, nil, cand)
		if err != nil {
			return model.Booking{}, err
		}

		l.mu.Lock()
		defer l.mu.Unlock()
		newKey := slotKey(b.ProfessorID, validated.Weekday, validated.StartMinute, validated.EndMinute)
		if holder, taken := l.slots[newKey]; taken && holder != b.ID {
			return model.Booking{}, booking.ErrSlotAlreadyBooked
		}
		delete(l.slots, slotKey(b.ProfessorID, b.Weekday, b.StartMinute, b.EndMinute))
		b.Weekday = validated.Weekday
		b.StartMinute = validated.StartMinute
		b.EndMinute = validated.EndMinute
		l.slots[newKey] = b.ID
		l.bookings[id] = b
		return b, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.bookings[id] = b
	return b, nil
}

func (l *fakeLedger) ListByProfessor(ctx context.Context, professorID string) ([]model.Booking, error) {
	if _, err := l.dir.Get(ctx, professorID); err != nil {
		return nil, booking.ErrUnknownProfessor
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []model.Booking
	for _, b := range l.bookings {
		if b.ProfessorID == professorID && b.Active() {
			out = append(out, b)
		}
	}
	return out, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeDirectory, *fakeLedger) {
	t.Helper()
	dir := newFakeDirectory()
	ledger := newFakeLedger(dir)
	api := NewAPI(dir, ledger, runtime.NewLogger("test"))

	mux := http.NewServeMux()
	api.Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, dir, ledger
}

func seedProfessor(t *testing.T, dir *fakeDirectory) string {
	t.Helper()
	id := uuid.NewString()
	if err := dir.Create(context.Background(), model.Professor{ID: id, Name: "Prof. Ada Byron", Email: "ada@example.edu"}); err != nil {
		t.Fatal(err)
	}
	// 9:00 AM - 12:00 PM Monday, nothing else.
	if err := dir.ReplaceTemplate(context.Background(), id, availability.WeeklyTemplate{
		availability.Monday: {{StartMinute: 540, EndMinute: 720}},
	}); err != nil {
		t.Fatal(err)
	}
	return id
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestCreateBookingAppearsInSchedule(t *testing.T) {
	srv, dir, _ := newTestServer(t)
	profID := seedProfessor(t, dir)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/bookings", map[string]string{
		"professor_id":  profID,
		"weekday":       "Mon",
		"start":         "9:00 AM",
		"end":           "10:00 AM",
		"student_name":  "Dana Hart",
		"student_email": "dana@example.edu",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status %d, body %v", resp.StatusCode, body)
	}
	bookingID, _ := body["id"].(string)
	if bookingID == "" {
		t.Fatal("create response missing booking id")
	}

	resp, sched := doJSON(t, http.MethodGet, srv.URL+"/api/v1/professors/"+profID+"/schedule", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("schedule: status %d", resp.StatusCode)
	}
	entries, _ := sched["entries"].([]any)
	found := false
	for _, raw := range entries {
		e := raw.(map[string]any)
		if e["weekday"] == "Mon" && e["start"] == "9:00 AM" {
			if e["status"] != "booked" {
				t.Fatalf("9:00 AM Monday should be booked, got %v", e["status"])
			}
			if e["booking_id"] != bookingID {
				t.Fatalf("expected booking id %s, got %v", bookingID, e["booking_id"])
			}
			found = true
		}
	}
	if !found {
		t.Fatal("9:00 AM Monday entry missing from schedule")
	}
}

func TestCancelFreesSlot(t *testing.T) {
	srv, dir, _ := newTestServer(t)
	profID := seedProfessor(t, dir)

	_, created := doJSON(t, http.MethodPost, srv.URL+"/api/v1/bookings", map[string]string{
		"professor_id": profID,
		"weekday":      "Mon",
		"start":        "9:00 AM",
		"end":          "10:00 AM",
		"student_name": "Dana Hart",
	})
	bookingID := created["id"].(string)

	resp, body := doJSON(t, http.MethodDelete, srv.URL+"/api/v1/bookings/"+bookingID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel: status %d, body %v", resp.StatusCode, body)
	}
	if body["status"] != "cancelled" {
		t.Fatalf("expected cancelled status, got %v", body["status"])
	}

	// The slot is bookable again.
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/v1/bookings", map[string]string{
		"professor_id": profID,
		"weekday":      "Mon",
		"start":        "9:00 AM",
		"end":          "10:00 AM",
		"student_name": "Eli Nash",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("rebook after cancel: status %d, body %v", resp.StatusCode, body)
	}
}

func TestCancelMissingBookingIs404(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp, _ := doJSON(t, http.MethodDelete, srv.URL+"/api/v1/bookings/"+uuid.NewString(), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestCreateBookingValidationFailures(t *testing.T) {
	srv, dir, _ := newTestServer(t)
	profID := seedProfessor(t, dir)

	cases := []struct {
		name string
		body map[string]string
		want int
	}{
		{
			name: "outside office hours",
			body: map[string]string{"professor_id": profID, "weekday": "Mon", "start": "8:00 AM", "end": "9:00 AM", "student_name": "D"},
			want: http.StatusBadRequest,
		},
		{
			name: "no office hours that day",
			body: map[string]string{"professor_id": profID, "weekday": "Fri", "start": "9:00 AM", "end": "10:00 AM", "student_name": "D"},
			want: http.StatusBadRequest,
		},
		{
			name: "malformed time label",
			body: map[string]string{"professor_id": profID, "weekday": "Mon", "start": "nine", "end": "10:00 AM", "student_name": "D"},
			want: http.StatusBadRequest,
		},
		{
			name: "unknown weekday",
			body: map[string]string{"professor_id": profID, "weekday": "Sun", "start": "9:00 AM", "end": "10:00 AM", "student_name": "D"},
			want: http.StatusBadRequest,
		},
		{
			name: "unknown professor",
			body: map[string]string{"professor_id": uuid.NewString(), "weekday": "Mon", "start": "9:00 AM", "end": "10:00 AM", "student_name": "D"},
			want: http.StatusNotFound,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/bookings", tc.body)
			if resp.StatusCode != tc.want {
				t.Fatalf("status %d, want %d, body %v", resp.StatusCode, tc.want, body)
			}
		})
	}
}

func TestDuplicateBookingConflicts(t *testing.T) {
	srv, dir, _ := newTestServer(t)
	profID := seedProfessor(t, dir)

	body := map[string]string{
		"professor_id": profID,
		"weekday":      "Mon",
		"start":        "10:00 AM",
		"end":          "11:00 AM",
		"student_name": "Dana Hart",
	}
	if resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/v1/bookings", body); resp.StatusCode != http.StatusCreated {
		t.Fatalf("first create: status %d", resp.StatusCode)
	}
	resp, errBody := doJSON(t, http.MethodPost, srv.URL+"/api/v1/bookings", body)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("second create: status %d, body %v", resp.StatusCode, errBody)
	}
}

func TestConcurrentIdenticalCreatesOneWins(t *testing.T) {
	srv, dir, _ := newTestServer(t)
	profID := seedProfessor(t, dir)

	const n = 8
	body := map[string]string{
		"professor_id": profID,
		"weekday":      "Mon",
		"start":        "11:00 AM",
		"end":          "12:00 PM",
		"student_name": "Dana Hart",
	}

	var wg sync.WaitGroup
	statuses := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var buf bytes.Buffer
			_ = json.NewEncoder(&buf).Encode(body)
			resp, err := http.Post(srv.URL+"/api/v1/bookings", "application/json", &buf)
			if err != nil {
				return
			}
			resp.Body.Close()
			statuses[i] = resp.StatusCode
		}(i)
	}
	wg.Wait()

	created, conflicted := 0, 0
	for _, s := range statuses {
		switch s {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflicted++
		}
	}
	if created != 1 {
		t.Fatalf("exactly one create must win, got %d (statuses %v)", created, statuses)
	}
	if conflicted != n-1 {
		t.Fatalf("expected %d conflicts, got %d (statuses %v)", n-1, conflicted, statuses)
	}
}

func TestUpdateOutsideHoursLeavesBookingUnchanged(t *testing.T) {
	srv, dir, ledger := newTestServer(t)
	profID := seedProfessor(t, dir)

	_, created := doJSON(t, http.MethodPost, srv.URL+"/api/v1/bookings", map[string]string{
		"professor_id": profID,
		"weekday":      "Mon",
		"start":        "9:00 AM",
		"end":          "10:00 AM",
		"student_name": "Dana Hart",
	})
	bookingID := created["id"].(string)

	resp, _ := doJSON(t, http.MethodPatch, srv.URL+"/api/v1/bookings/"+bookingID, map[string]string{
		"start": "7:00 AM",
		"end":   "8:00 AM",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	b := ledger.bookings[bookingID]
	if b.StartMinute != 540 || b.EndMinute != 600 {
		t.Fatalf("failed update must not move the booking, got %d-%d", b.StartMinute, b.EndMinute)
	}
}

func TestUpdateStudentFieldsOnly(t *testing.T) {
	srv, dir, _ := newTestServer(t)
	profID := seedProfessor(t, dir)

	_, created := doJSON(t, http.MethodPost, srv.URL+"/api/v1/bookings", map[string]string{
		"professor_id": profID,
		"weekday":      "Mon",
		"start":        "9:00 AM",
		"end":          "10:00 AM",
		"student_name": "Dana Hart",
	})
	bookingID := created["id"].(string)

	resp, body := doJSON(t, http.MethodPatch, srv.URL+"/api/v1/bookings/"+bookingID, map[string]string{
		"student_name": "Dana H. Hart",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: status %d, body %v", resp.StatusCode, body)
	}
	if body["student_name"] != "Dana H. Hart" {
		t.Fatalf("student name not updated: %v", body["student_name"])
	}
	if body["start"] != "9:00 AM" {
		t.Fatalf("slot must be unchanged, got start %v", body["start"])
	}
}

func TestReplaceHoursValidation(t *testing.T) {
	srv, dir, _ := newTestServer(t)
	profID := seedProfessor(t, dir)

	resp, _ := doJSON(t, http.MethodPut, srv.URL+"/api/v1/professors/"+profID+"/hours", map[string]any{
		"Mon": []map[string]string{{"start": "10:00 AM", "end": "9:00 AM"}},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("inverted range should be rejected, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPut, srv.URL+"/api/v1/professors/"+profID+"/hours", map[string]any{
		"Tue": []map[string]string{{"start": "1:00 PM", "end": "3:00 PM"}},
	})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("valid replace should succeed, got %d", resp.StatusCode)
	}
	tpl, _ := dir.Template(context.Background(), profID)
	if len(tpl[availability.Tuesday]) != 1 || tpl[availability.Tuesday][0].StartMinute != 780 {
		t.Fatalf("template not replaced: %v", tpl)
	}
}

func TestGetScheduleUnknownProfessor(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/v1/professors/"+uuid.NewString()+"/schedule", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGetScheduleIntervalView(t *testing.T) {
	srv, dir, _ := newTestServer(t)
	profID := seedProfessor(t, dir)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/v1/professors/"+profID+"/schedule?view=interval&step=60", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	entries, _ := body["entries"].([]any)
	// Monday 9:00-12:00 at step 60 yields exactly three slots.
	if len(entries) != 3 {
		t.Fatalf("expected 3 interval slots, got %d", len(entries))
	}
	dates, _ := body["dates"].([]any)
	if len(dates) != 5 {
		t.Fatalf("expected 5 week dates, got %d", len(dates))
	}
}
