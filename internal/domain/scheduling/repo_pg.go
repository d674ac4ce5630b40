package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cliniq/cliniq/internal/platform/db"
)

// isUniqueViolation reports whether err is a postgres unique constraint error.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// -- Appointment Repository --

type appointmentRepoPG struct {
	pool *pgxpool.Pool
}

func NewAppointmentRepo(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) db.Querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const appointmentCols = `a.id, a.doctor_id, a.patient_id, d.username, p.username,
	a.date_time, a.status, a.created_at, a.updated_at`

const appointmentFrom = ` FROM appointments a
	JOIN users d ON d.id = a.doctor_id
	JOIN users p ON p.id = a.patient_id`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	a := &Appointment{}
	err := row.Scan(&a.ID, &a.DoctorID, &a.PatientID, &a.DoctorUsername, &a.PatientUsername,
		&a.DateTime, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (id, doctor_id, patient_id, date_time, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		a.ID, a.DoctorID, a.PatientID, a.DateTime, a.Status,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateAppointment
	}
	return err
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+appointmentCols+appointmentFrom+` WHERE a.id = $1`, id))
}

func (r *appointmentRepoPG) ExistsScheduledAt(ctx context.Context, doctorID uuid.UUID, at time.Time) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1 AND date_time = $2 AND status = 'scheduled'
		)`, doctorID, at).Scan(&exists)
	return exists, err
}

func (r *appointmentRepoPG) List(ctx context.Context, f AppointmentFilter, limit, offset int) ([]*Appointment, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	if f.DoctorID != nil {
		args = append(args, *f.DoctorID)
		where += fmt.Sprintf(" AND a.doctor_id = $%d", len(args))
	}
	if f.PatientID != nil {
		args = append(args, *f.PatientID)
		where += fmt.Sprintf(" AND a.patient_id = $%d", len(args))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*)`+appointmentFrom+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+appointmentCols+appointmentFrom+where+
			fmt.Sprintf(" ORDER BY a.date_time LIMIT $%d OFFSET $%d", len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var appts []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning appointment: %w", err)
		}
		appts = append(appts, a)
	}
	return appts, total, rows.Err()
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments SET date_time = $2, status = $3, updated_at = NOW()
		WHERE id = $1`,
		a.ID, a.DateTime, a.Status)
	if isUniqueViolation(err) {
		return ErrDuplicateAppointment
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// -- WorkingHour Repository --

type workingHourRepoPG struct {
	pool *pgxpool.Pool
}

func NewWorkingHourRepo(pool *pgxpool.Pool) WorkingHourRepository {
	return &workingHourRepoPG{pool: pool}
}

func (r *workingHourRepoPG) conn(ctx context.Context) db.Querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// TIME columns travel as pgtype.Time (microseconds since midnight).
func timeOfDayToPG(t TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(t) * 60 * 1_000_000, Valid: true}
}

func timeOfDayFromPG(t pgtype.Time) TimeOfDay {
	return TimeOfDay(t.Microseconds / (60 * 1_000_000))
}

func scanWorkingHour(row pgx.Row) (*WorkingHour, error) {
	w := &WorkingHour{}
	var start, end pgtype.Time
	err := row.Scan(&w.ID, &w.DoctorID, &w.DayOfWeek, &start, &end, &w.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	w.StartTime = timeOfDayFromPG(start)
	w.EndTime = timeOfDayFromPG(end)
	return w, nil
}

const workingHourCols = `id, doctor_id, day_of_week, start_time, end_time, created_at`

func (r *workingHourRepoPG) Create(ctx context.Context, w *WorkingHour) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO working_hours (id, doctor_id, day_of_week, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		w.ID, w.DoctorID, w.DayOfWeek, timeOfDayToPG(w.StartTime), timeOfDayToPG(w.EndTime),
	).Scan(&w.CreatedAt)
}

func (r *workingHourRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*WorkingHour, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+workingHourCols+` FROM working_hours
		 WHERE doctor_id = $1 ORDER BY day_of_week, start_time`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWorkingHours(rows)
}

func (r *workingHourRepoPG) ListByDoctorAndDay(ctx context.Context, doctorID uuid.UUID, day int) ([]*WorkingHour, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+workingHourCols+` FROM working_hours
		 WHERE doctor_id = $1 AND day_of_week = $2 ORDER BY start_time`, doctorID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWorkingHours(rows)
}

func (r *workingHourRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM working_hours WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *workingHourRepoPG) FindAvailableDoctors(ctx context.Context, day int, slotStart, slotEnd TimeOfDay, excludeDoctor uuid.UUID) ([]string, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT DISTINCT u.username FROM users u
		JOIN working_hours w ON w.doctor_id = u.id
		WHERE u.role = 'doctor' AND u.active
		  AND w.day_of_week = $1
		  AND w.start_time <= $2 AND w.end_time >= $3
		  AND u.id <> $4
		ORDER BY u.username`,
		day, timeOfDayToPG(slotStart), timeOfDayToPG(slotEnd), excludeDoctor)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var usernames []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		usernames = append(usernames, name)
	}
	return usernames, rows.Err()
}

func collectWorkingHours(rows pgx.Rows) ([]*WorkingHour, error) {
	var hours []*WorkingHour
	for rows.Next() {
		w, err := scanWorkingHour(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning working hour: %w", err)
		}
		hours = append(hours, w)
	}
	return hours, rows.Err()
}
