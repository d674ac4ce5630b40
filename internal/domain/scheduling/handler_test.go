package scheduling

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func doJSON(t *testing.T, e *echo.Echo, handler echo.HandlerFunc, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestCheckAvailabilityHandler(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)
	e := echo.New()

	q := url.Values{"username": {"house"}, "date": {"2026-09-07"}, "time": {"10:00"}}
	rec := doJSON(t, e, h.CheckAvailability, http.MethodGet, "/api/v1/availability?"+q.Encode(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result AvailabilityResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !result.Available {
		t.Error("expected available")
	}
}

func TestCheckAvailabilityHandlerErrors(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)
	e := echo.New()

	tests := []struct {
		name  string
		query url.Values
		want  int
	}{
		{"missing params", url.Values{"username": {"house"}}, http.StatusBadRequest},
		{"unknown doctor", url.Values{"username": {"ghost"}, "date": {"2026-09-07"}, "time": {"10:00"}}, http.StatusNotFound},
		{"bad time", url.Values{"username": {"house"}, "date": {"2026-09-07"}, "time": {"10am"}}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, e, h.CheckAvailability, http.MethodGet, "/api/v1/availability?"+tt.query.Encode(), "")
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestBookAppointmentHandler(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)
	e := echo.New()

	// Booking accepts the parameters as a query string, like the check does.
	q := url.Values{
		"doctor_username":  {"house"},
		"patient_username": {"alice"},
		"date":             {"2026-09-07"},
		"time":             {"10:00"},
	}
	rec := doJSON(t, e, h.BookAppointment, http.MethodPost, "/api/v1/appointments/book?"+q.Encode(), "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var appt Appointment
	if err := json.Unmarshal(rec.Body.Bytes(), &appt); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if appt.Status != StatusScheduled {
		t.Errorf("status = %s", appt.Status)
	}
	f.notifier.waitEvent(t)

	// Same triple again.
	rec = doJSON(t, e, h.BookAppointment, http.MethodPost, "/api/v1/appointments/book?"+q.Encode(), "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate: expected 400, got %d", rec.Code)
	}
}

func TestBookAppointmentHandlerErrors(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)
	e := echo.New()

	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing fields", `{"doctor_username":"house"}`, http.StatusBadRequest},
		{"unknown doctor", `{"doctor_username":"ghost","patient_username":"alice","date":"2026-09-07","time":"10:00"}`, http.StatusNotFound},
		{"past", `{"doctor_username":"house","patient_username":"alice","date":"2020-01-01","time":"10:00"}`, http.StatusBadRequest},
		{"bad format", `{"doctor_username":"house","patient_username":"alice","date":"2026-09-07","time":"later"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, e, h.BookAppointment, http.MethodPost, "/api/v1/appointments/book", tt.body)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestAddWorkingHourHandler(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)
	e := echo.New()

	body := `{"doctor_username":"house","day_of_week":0,"start_time":"09:00","end_time":"17:00"}`
	rec := doJSON(t, e, h.AddWorkingHour, http.MethodPost, "/api/v1/working-hours", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	// Overlapping window.
	body = `{"doctor_username":"house","day_of_week":0,"start_time":"10:00","end_time":"11:00"}`
	rec = doJSON(t, e, h.AddWorkingHour, http.MethodPost, "/api/v1/working-hours", body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("overlap: expected 400, got %d", rec.Code)
	}

	// Inverted range.
	body = `{"doctor_username":"house","day_of_week":0,"start_time":"18:00","end_time":"17:00"}`
	rec = doJSON(t, e, h.AddWorkingHour, http.MethodPost, "/api/v1/working-hours", body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("inverted range: expected 400, got %d", rec.Code)
	}
}

func TestListWorkingHoursHandler(t *testing.T) {
	f := newFixture()
	h := NewHandler(f.svc)
	e := echo.New()

	rec := doJSON(t, e, h.ListWorkingHours, http.MethodGet, "/api/v1/working-hours?doctor=house", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected empty array, got %s", rec.Body.String())
	}

	rec = doJSON(t, e, h.ListWorkingHours, http.MethodGet, "/api/v1/working-hours?doctor=ghost", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown doctor: expected 404, got %d", rec.Code)
	}
}
