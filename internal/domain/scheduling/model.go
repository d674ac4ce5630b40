// Package scheduling implements doctor availability checks, appointment
// booking, and working-hour management.
package scheduling

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDoctorNotFound       = errors.New("doctor not found")
	ErrNotFound             = errors.New("not found")
	ErrInvalidTimeFormat    = errors.New("invalid date or time format")
	ErrInvalidRange         = errors.New("start time must be before end time")
	ErrInvalidDay           = errors.New("day_of_week must be between 0 and 6")
	ErrOverlapConflict      = errors.New("working hour overlaps with an existing schedule")
	ErrDuplicateAppointment = errors.New("an appointment already exists for this time")
	ErrPastAppointment      = errors.New("appointment time must be in the future")
)

// TimeOfDay is a wall-clock time without a date, stored as minutes since
// midnight. Working-hour windows compare these values numerically.
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay from hour and minute.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS" (seconds are dropped).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		t, err = time.Parse("15:04", s)
	}
	if err != nil {
		return 0, ErrInvalidTimeFormat
	}
	return NewTimeOfDay(t.Hour(), t.Minute()), nil
}

// TimeOfDayOf extracts the wall-clock time of t. Adding an hour to a late
// timestamp first and then calling this wraps past midnight.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return NewTimeOfDay(t.Hour(), t.Minute())
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// DayOfWeek returns the weekday of t with Monday as 0 and Sunday as 6.
func DayOfWeek(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// WorkingHour maps to the working_hours table. DayOfWeek runs Monday=0
// through Sunday=6.
type WorkingHour struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	DayOfWeek int       `db:"day_of_week" json:"day_of_week"`
	StartTime TimeOfDay `db:"start_time" json:"start_time"`
	EndTime   TimeOfDay `db:"end_time" json:"end_time"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCanceled  AppointmentStatus = "canceled"
)

// Valid reports whether s is a known status.
func (s AppointmentStatus) Valid() bool {
	return s == StatusScheduled || s == StatusCanceled
}

// Appointment maps to the appointments table. Usernames are joined in for
// API responses and notifications.
type Appointment struct {
	ID              uuid.UUID         `db:"id" json:"id"`
	DoctorID        uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	PatientID       uuid.UUID         `db:"patient_id" json:"patient_id"`
	DoctorUsername  string            `db:"doctor_username" json:"doctor_username"`
	PatientUsername string            `db:"patient_username" json:"patient_username"`
	DateTime        time.Time         `db:"date_time" json:"date_time"`
	Status          AppointmentStatus `db:"status" json:"status"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time         `db:"updated_at" json:"updated_at"`
}

// TimeWindow is a working-hour window offered as an alternative slot.
type TimeWindow struct {
	StartTime TimeOfDay `json:"start_time"`
	EndTime   TimeOfDay `json:"end_time"`
}

// Alternatives lists fallback options when the requested slot is taken.
// Both lists may be empty.
type Alternatives struct {
	Doctors []string     `json:"doctors"`
	Times   []TimeWindow `json:"times"`
}

// AvailabilityResult is the outcome of an availability check.
type AvailabilityResult struct {
	Available    bool          `json:"available"`
	Doctor       string        `json:"doctor,omitempty"`
	DateTime     *time.Time    `json:"datetime,omitempty"`
	Alternatives *Alternatives `json:"alternatives,omitempty"`
}
