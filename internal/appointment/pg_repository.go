package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const appointmentColumns = `id, specialist_id, specialty, date_time, patient_id, status,
	COALESCE(comment, ''), rating, COALESCE(review, ''), enabled, created_at, updated_at`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var patientID *uuid.UUID
	var status *string

	err := row.Scan(
		&a.ID,
		&a.SpecialistID,
		&a.Specialty,
		&a.DateTime,
		&patientID,
		&status,
		&a.Comment,
		&a.Rating,
		&a.Review,
		&a.Enabled,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.PatientID = patientID
	if status != nil {
		st := Status(*status)
		a.Status = &st
	}
	return &a, nil
}

// scanConditional reads the row of a conditional write, where no row
// means the guard in the WHERE clause did not hold.
func scanConditional(row pgx.Row, miss error) (*Appointment, error) {
	a, err := scanAppointment(row)
	if errors.Is(err, ErrAppointmentNotFound) {
		return nil, miss
	}
	return a, err
}

func (r *PgRepository) list(ctx context.Context, query string, args ...any) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func statusStrings(in []Status) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}

// Interface methods

func (r *PgRepository) ListAll(ctx context.Context) ([]Appointment, error) {
	return r.list(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		ORDER BY date_time
	`)
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	return r.list(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY date_time
	`, patientID)
}

func (r *PgRepository) ListBySpecialist(ctx context.Context, specialistID uuid.UUID) ([]Appointment, error) {
	return r.list(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE specialist_id = $1
		  AND patient_id IS NOT NULL
		ORDER BY date_time
	`, specialistID)
}

func (r *PgRepository) ListOpenSlots(ctx context.Context, specialistID uuid.UUID) ([]Appointment, error) {
	return r.list(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE specialist_id = $1
		ORDER BY date_time
	`, specialistID)
}

func (r *PgRepository) ListRange(ctx context.Context, specialistID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	return r.list(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE specialist_id = $1
		  AND date_time >= $2
		  AND date_time < $3
		ORDER BY date_time
	`, specialistID, from, to)
}

func (r *PgRepository) ListAvailable(ctx context.Context, specialty string, from, to time.Time) ([]Appointment, error) {
	return r.list(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE specialty = $1
		  AND enabled
		  AND patient_id IS NULL
		  AND date_time >= $2
		  AND date_time < $3
		ORDER BY date_time
	`, specialty, from, to)
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) GetAt(ctx context.Context, specialistID uuid.UUID, at time.Time) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE specialist_id = $1 AND date_time = $2
	`, specialistID, at)
	return scanAppointment(row)
}

func (r *PgRepository) Create(ctx context.Context, a Appointment) (*Appointment, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	var status *string
	if a.Status != nil {
		s := string(*a.Status)
		status = &s
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, specialist_id, specialty, date_time, patient_id, status, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING `+appointmentColumns,
		a.ID, a.SpecialistID, a.Specialty, a.DateTime, a.PatientID, status, a.Enabled)

	created, err := scanAppointment(row)
	if isUniqueViolation(err) {
		return nil, ErrSlotTaken
	}
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) Update(ctx context.Context, id uuid.UUID, patch Patch) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET enabled = COALESCE($2, enabled),
		    updated_at = now()
		WHERE id = $1
		  AND patient_id IS NULL
		RETURNING `+appointmentColumns,
		id, patch.Enabled)
	a, err := scanAppointment(row)
	if !errors.Is(err, ErrAppointmentNotFound) {
		return a, err
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, ErrSlotTaken
}

func (r *PgRepository) BulkDelete(ctx context.Context, ids []uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM appointments WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PgRepository) Reserve(ctx context.Context, id, patientID uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET patient_id = $2,
		    status = 'pending',
		    updated_at = now()
		WHERE id = $1
		  AND patient_id IS NULL
		  AND enabled
		RETURNING `+appointmentColumns,
		id, patientID)
	return scanConditional(row, ErrSlotTaken)
}

func (r *PgRepository) Transition(ctx context.Context, id uuid.UUID, from []Status, to Status, comment string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    comment = COALESCE(NULLIF($3, ''), comment),
		    updated_at = now()
		WHERE id = $1
		  AND patient_id IS NOT NULL
		  AND COALESCE(status, 'pending') = ANY($4)
		RETURNING `+appointmentColumns,
		id, string(to), comment, statusStrings(from))
	return scanConditional(row, ErrStateChanged)
}

func (r *PgRepository) Rate(ctx context.Context, id uuid.UUID, rating int, review string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET rating = $2,
		    review = $3,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'completed'
		  AND rating IS NULL
		RETURNING `+appointmentColumns,
		id, rating, review)
	return scanConditional(row, ErrStateChanged)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
