package medrecord

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const entryColumns = `id, appointment_id, patient_id, specialist_id,
	height, weight, temperature, blood_pressure, fields, created_at`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	var fields []byte

	err := row.Scan(
		&e.ID,
		&e.AppointmentID,
		&e.PatientID,
		&e.SpecialistID,
		&e.Vitals.Height,
		&e.Vitals.Weight,
		&e.Vitals.Temperature,
		&e.Vitals.BloodPressure,
		&fields,
		&e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}

	e.Fields = []DynamicField{}
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &e.Fields); err != nil {
			return nil, fmt.Errorf("decode record fields: %w", err)
		}
	}
	return &e, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *PgRepository) list(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) Create(ctx context.Context, e Entry) (*Entry, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	fields, err := json.Marshal(e.Fields)
	if err != nil {
		return nil, fmt.Errorf("encode record fields: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO medical_records (id, appointment_id, patient_id, specialist_id,
			height, weight, temperature, blood_pressure, fields, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		RETURNING `+entryColumns,
		e.ID, e.AppointmentID, e.PatientID, e.SpecialistID,
		e.Vitals.Height, e.Vitals.Weight, e.Vitals.Temperature, e.Vitals.BloodPressure, fields)

	created, err := scanEntry(row)
	if isUniqueViolation(err) {
		return nil, ErrDuplicateEntry
	}
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*Entry, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+entryColumns+`
		FROM medical_records
		WHERE appointment_id = $1
	`, appointmentID)
	return scanEntry(row)
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Entry, error) {
	return r.list(ctx, `
		SELECT `+entryColumns+`
		FROM medical_records
		WHERE patient_id = $1
		ORDER BY created_at DESC
	`, patientID)
}

func (r *PgRepository) ListBySpecialist(ctx context.Context, specialistID uuid.UUID) ([]Entry, error) {
	return r.list(ctx, `
		SELECT `+entryColumns+`
		FROM medical_records
		WHERE specialist_id = $1
		ORDER BY created_at DESC
	`, specialistID)
}

func (r *PgRepository) ListAll(ctx context.Context) ([]Entry, error) {
	return r.list(ctx, `
		SELECT `+entryColumns+`
		FROM medical_records
		ORDER BY created_at DESC
	`)
}

func (r *PgRepository) PatientsSeenBy(ctx context.Context, specialistID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT patient_id
		FROM medical_records
		WHERE specialist_id = $1
		ORDER BY patient_id
	`, specialistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, err
	}
	return ids, nil
}
