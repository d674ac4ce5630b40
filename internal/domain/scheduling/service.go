package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/cliniq/cliniq/internal/domain/identity"
	"github.com/cliniq/cliniq/internal/platform/notification"
)

// Notifier delivers appointment messages to both parties. Dispatch is
// fire-and-forget: delivery failures never affect a committed booking.
type Notifier interface {
	NotifyAppointment(ctx context.Context, ev notification.AppointmentEvent) error
}

// TxRunner executes fn inside a database transaction. Tests pass a
// passthrough runner.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

const notifyTimeout = 10 * time.Second

// Service implements availability checks, booking, and working-hour
// management.
type Service struct {
	appointments AppointmentRepository
	hours        WorkingHourRepository
	users        identity.Repository
	notifier     Notifier
	runTx        TxRunner
	loc          *time.Location
	now          func() time.Time
}

func NewService(appointments AppointmentRepository, hours WorkingHourRepository, users identity.Repository, notifier Notifier, runTx TxRunner, loc *time.Location) *Service {
	if runTx == nil {
		runTx = func(ctx context.Context, fn func(ctx context.Context) error) error {
			return fn(ctx)
		}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		appointments: appointments,
		hours:        hours,
		users:        users,
		notifier:     notifier,
		runTx:        runTx,
		loc:          loc,
		now:          time.Now,
	}
}

// asNotFound turns an identity lookup miss into the given scheduling
// sentinel. Any other repository error, a connection failure for one, passes
// through so it is not mistaken for a bad username.
func asNotFound(err, sentinel error) error {
	if errors.Is(err, identity.ErrNotFound) {
		return sentinel
	}
	return err
}

// parseDateTime combines "YYYY-MM-DD" and "HH:MM" into a timestamp in the
// service's configured location.
func (s *Service) parseDateTime(dateStr, timeStr string) (time.Time, error) {
	ts, err := time.ParseInLocation("2006-01-02 15:04", dateStr+" "+timeStr, s.loc)
	if err != nil {
		return time.Time{}, ErrInvalidTimeFormat
	}
	return ts, nil
}

// BookAppointment books a slot for a doctor and patient resolved by
// username. The timestamp must be strictly in the future; an exact
// (doctor, patient, timestamp) duplicate is rejected by the store's unique
// index, so a concurrent race yields exactly one success.
func (s *Service) BookAppointment(ctx context.Context, doctorUsername, patientUsername, dateStr, timeStr string) (*Appointment, error) {
	doctor, err := s.users.GetByUsernameAndRole(ctx, doctorUsername, identity.RoleDoctor)
	if err != nil {
		return nil, asNotFound(err, ErrNotFound)
	}
	patient, err := s.users.GetByUsernameAndRole(ctx, patientUsername, identity.RolePatient)
	if err != nil {
		return nil, asNotFound(err, ErrNotFound)
	}

	ts, err := s.parseDateTime(dateStr, timeStr)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, doctor, patient, ts)
}

// CreateAppointment books a slot for users referenced by ID.
func (s *Service) CreateAppointment(ctx context.Context, doctorID, patientID uuid.UUID, at time.Time) (*Appointment, error) {
	doctor, err := s.users.GetByID(ctx, doctorID)
	if err != nil {
		return nil, asNotFound(err, ErrNotFound)
	}
	if doctor.Role != identity.RoleDoctor {
		return nil, ErrNotFound
	}
	patient, err := s.users.GetByID(ctx, patientID)
	if err != nil {
		return nil, asNotFound(err, ErrNotFound)
	}
	if patient.Role != identity.RolePatient {
		return nil, ErrNotFound
	}
	return s.create(ctx, doctor, patient, at.In(s.loc))
}

func (s *Service) create(ctx context.Context, doctor, patient *identity.User, ts time.Time) (*Appointment, error) {
	if !ts.After(s.now()) {
		return nil, ErrPastAppointment
	}

	appt := &Appointment{
		DoctorID:        doctor.ID,
		PatientID:       patient.ID,
		DoctorUsername:  doctor.Username,
		PatientUsername: patient.Username,
		DateTime:        ts,
		Status:          StatusScheduled,
	}
	if err := s.appointments.Create(ctx, appt); err != nil {
		return nil, err
	}

	s.notify(appt, "scheduled")
	return appt, nil
}

// notify dispatches both appointment messages in the background. The booking
// is already committed; errors are logged and dropped.
func (s *Service) notify(appt *Appointment, action string) {
	if s.notifier == nil {
		return
	}
	ev := notification.AppointmentEvent{
		DoctorUsername:  appt.DoctorUsername,
		PatientUsername: appt.PatientUsername,
		DateTime:        appt.DateTime,
		Action:          action,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.NotifyAppointment(ctx, ev); err != nil {
			log.Warn().Err(err).
				Str("doctor", ev.DoctorUsername).
				Str("patient", ev.PatientUsername).
				Str("action", action).
				Msg("appointment notification failed")
		}
	}()
}

// GetAppointment returns one appointment by ID.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

// ListAppointments returns appointments, optionally filtered by doctor and
// patient usernames. An unknown username yields ErrNotFound.
func (s *Service) ListAppointments(ctx context.Context, doctorUsername, patientUsername string, limit, offset int) ([]*Appointment, int, error) {
	var f AppointmentFilter
	if doctorUsername != "" {
		doctor, err := s.users.GetByUsernameAndRole(ctx, doctorUsername, identity.RoleDoctor)
		if err != nil {
			return nil, 0, asNotFound(err, ErrNotFound)
		}
		f.DoctorID = &doctor.ID
	}
	if patientUsername != "" {
		patient, err := s.users.GetByUsernameAndRole(ctx, patientUsername, identity.RolePatient)
		if err != nil {
			return nil, 0, asNotFound(err, ErrNotFound)
		}
		f.PatientID = &patient.ID
	}
	return s.appointments.List(ctx, f, limit, offset)
}

// UpdateAppointmentParams carries the optional fields of an appointment
// update.
type UpdateAppointmentParams struct {
	DateTime *time.Time         `json:"date_time,omitempty"`
	Status   *AppointmentStatus `json:"status,omitempty"`
}

// UpdateAppointment reschedules or changes the status of an appointment.
// A new timestamp must be in the future.
func (s *Service) UpdateAppointment(ctx context.Context, id uuid.UUID, params UpdateAppointmentParams) (*Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if params.DateTime != nil {
		ts := params.DateTime.In(s.loc)
		if !ts.After(s.now()) {
			return nil, ErrPastAppointment
		}
		appt.DateTime = ts
	}
	if params.Status != nil {
		if !params.Status.Valid() {
			return nil, fmt.Errorf("invalid status %q", *params.Status)
		}
		appt.Status = *params.Status
	}
	if err := s.appointments.Update(ctx, appt); err != nil {
		return nil, err
	}

	s.notify(appt, "updated")
	return appt, nil
}

// CancelAppointment marks an appointment canceled. The row is kept.
func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	appt.Status = StatusCanceled
	if err := s.appointments.Update(ctx, appt); err != nil {
		return nil, err
	}

	s.notify(appt, "canceled")
	return appt, nil
}

// AddWorkingHour validates and inserts a working-hour window for a doctor.
// The overlap check and insert run in one transaction.
func (s *Service) AddWorkingHour(ctx context.Context, doctorUsername string, day int, start, end TimeOfDay) (*WorkingHour, error) {
	doctor, err := s.users.GetByUsernameAndRole(ctx, doctorUsername, identity.RoleDoctor)
	if err != nil {
		return nil, asNotFound(err, ErrDoctorNotFound)
	}
	if day < 0 || day > 6 {
		return nil, ErrInvalidDay
	}
	if start >= end {
		return nil, ErrInvalidRange
	}

	w := &WorkingHour{
		DoctorID:  doctor.ID,
		DayOfWeek: day,
		StartTime: start,
		EndTime:   end,
	}
	err = s.runTx(ctx, func(ctx context.Context) error {
		existing, err := s.hours.ListByDoctorAndDay(ctx, doctor.ID, day)
		if err != nil {
			return err
		}
		for _, old := range existing {
			if start < old.EndTime && end > old.StartTime {
				return ErrOverlapConflict
			}
		}
		return s.hours.Create(ctx, w)
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

// ListWorkingHours returns a doctor's windows across the week.
func (s *Service) ListWorkingHours(ctx context.Context, doctorUsername string) ([]*WorkingHour, error) {
	doctor, err := s.users.GetByUsernameAndRole(ctx, doctorUsername, identity.RoleDoctor)
	if err != nil {
		return nil, asNotFound(err, ErrDoctorNotFound)
	}
	return s.hours.ListByDoctor(ctx, doctor.ID)
}

// DeleteWorkingHour removes a window.
func (s *Service) DeleteWorkingHour(ctx context.Context, id uuid.UUID) error {
	return s.hours.Delete(ctx, id)
}
