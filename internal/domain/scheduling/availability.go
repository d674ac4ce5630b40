package scheduling

import (
	"context"
	"time"

	"github.com/cliniq/cliniq/internal/domain/identity"
)

// CheckAvailability reports whether a doctor is free at the requested slot.
// When the slot is taken it offers alternative doctors and alternative
// windows of the requested doctor instead. Read-only and idempotent.
func (s *Service) CheckAvailability(ctx context.Context, doctorUsername, dateStr, timeStr string) (*AvailabilityResult, error) {
	doctor, err := s.users.GetByUsernameAndRole(ctx, doctorUsername, identity.RoleDoctor)
	if err != nil {
		return nil, asNotFound(err, ErrDoctorNotFound)
	}

	ts, err := s.parseDateTime(dateStr, timeStr)
	if err != nil {
		return nil, err
	}

	busy, err := s.appointments.ExistsScheduledAt(ctx, doctor.ID, ts)
	if err != nil {
		return nil, err
	}
	if !busy {
		return &AvailabilityResult{Available: true, Doctor: doctor.Username, DateTime: &ts}, nil
	}

	day := DayOfWeek(ts)
	slotStart := TimeOfDayOf(ts)
	// Slot end is the wall-clock time one hour later; late slots wrap past
	// midnight, same as the stored time-of-day windows they compare against.
	slotEnd := TimeOfDayOf(ts.Add(time.Hour))

	altDoctors, err := s.hours.FindAvailableDoctors(ctx, day, slotStart, slotEnd, doctor.ID)
	if err != nil {
		return nil, err
	}

	windows, err := s.hours.ListByDoctorAndDay(ctx, doctor.ID, day)
	if err != nil {
		return nil, err
	}
	// Alternative times drop only windows strictly inside the requested
	// slot. The boundary is looser than the alternative-doctor test above;
	// a window merely touching the slot still gets offered.
	altTimes := make([]TimeWindow, 0, len(windows))
	for _, w := range windows {
		if w.StartTime >= slotStart && w.EndTime <= slotEnd {
			continue
		}
		altTimes = append(altTimes, TimeWindow{StartTime: w.StartTime, EndTime: w.EndTime})
	}

	if altDoctors == nil {
		altDoctors = []string{}
	}
	return &AvailabilityResult{
		Available:    false,
		Alternatives: &Alternatives{Doctors: altDoctors, Times: altTimes},
	}, nil
}
