package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AppointmentFilter narrows appointment listings. Nil fields match all.
type AppointmentFilter struct {
	DoctorID  *uuid.UUID
	PatientID *uuid.UUID
}

// AppointmentRepository is the persistence surface for appointments.
// Create returns ErrDuplicateAppointment when the (doctor, patient,
// timestamp) triple already exists.
type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ExistsScheduledAt(ctx context.Context, doctorID uuid.UUID, at time.Time) (bool, error)
	List(ctx context.Context, f AppointmentFilter, limit, offset int) ([]*Appointment, int, error)
	Update(ctx context.Context, a *Appointment) error
}

// WorkingHourRepository is the persistence surface for working-hour windows.
type WorkingHourRepository interface {
	Create(ctx context.Context, w *WorkingHour) error
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*WorkingHour, error)
	ListByDoctorAndDay(ctx context.Context, doctorID uuid.UUID, day int) ([]*WorkingHour, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// FindAvailableDoctors returns usernames of active doctors, other than
	// excludeDoctor, with a window on day fully containing [slotStart, slotEnd].
	FindAvailableDoctors(ctx context.Context, day int, slotStart, slotEnd TimeOfDay, excludeDoctor uuid.UUID) ([]string, error)
}
