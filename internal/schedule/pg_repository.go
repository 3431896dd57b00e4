package schedule

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const scheduleColumns = `id, specialist_id, specialty, weekdays, start_hour, end_hour, created_at, updated_at`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanSchedule(row pgx.Row) (*WeeklySchedule, error) {
	var s WeeklySchedule
	var days []int32

	err := row.Scan(
		&s.ID,
		&s.SpecialistID,
		&s.Specialty,
		&days,
		&s.Hours.Start,
		&s.Hours.End,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}

	s.Weekdays = make([]Weekday, len(days))
	for i, d := range days {
		s.Weekdays[i] = Weekday(d)
	}
	return &s, nil
}

func weekdayArray(days []Weekday) []int32 {
	out := make([]int32, len(days))
	for i, d := range days {
		out[i] = int32(d)
	}
	return out
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *PgRepository) list(ctx context.Context, query string, args ...any) ([]WeeklySchedule, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []WeeklySchedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) ListAll(ctx context.Context) ([]WeeklySchedule, error) {
	return r.list(ctx, `
		SELECT `+scheduleColumns+`
		FROM weekly_schedules
		ORDER BY specialist_id, specialty
	`)
}

func (r *PgRepository) ListBySpecialist(ctx context.Context, specialistID uuid.UUID) ([]WeeklySchedule, error) {
	return r.list(ctx, `
		SELECT `+scheduleColumns+`
		FROM weekly_schedules
		WHERE specialist_id = $1
		ORDER BY specialty
	`, specialistID)
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*WeeklySchedule, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+scheduleColumns+`
		FROM weekly_schedules
		WHERE id = $1
	`, id)
	return scanSchedule(row)
}

func (r *PgRepository) GetBySpecialty(ctx context.Context, specialistID uuid.UUID, specialty string) (*WeeklySchedule, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+scheduleColumns+`
		FROM weekly_schedules
		WHERE specialist_id = $1 AND specialty = $2
	`, specialistID, specialty)
	return scanSchedule(row)
}

func (r *PgRepository) Create(ctx context.Context, s WeeklySchedule) (*WeeklySchedule, error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO weekly_schedules (id, specialist_id, specialty, weekdays, start_hour, end_hour, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING `+scheduleColumns,
		s.ID, s.SpecialistID, s.Specialty, weekdayArray(s.Weekdays), s.Hours.Start, s.Hours.End)

	created, err := scanSchedule(row)
	if err != nil && isUniqueViolation(err) {
		return nil, ErrDuplicateSchedule
	}
	return created, err
}

func (r *PgRepository) Update(ctx context.Context, s WeeklySchedule) (*WeeklySchedule, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE weekly_schedules
		SET weekdays = $2,
		    start_hour = $3,
		    end_hour = $4,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+scheduleColumns,
		s.ID, weekdayArray(s.Weekdays), s.Hours.Start, s.Hours.End)
	return scanSchedule(row)
}

func (r *PgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM weekly_schedules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrScheduleNotFound
	}
	return nil
}
