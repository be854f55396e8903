package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// exclusionViolation is the SQLSTATE raised when an insert or update trips
// the appointments_no_overlap constraint.
const exclusionViolation = "23P01"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

// storeErr keeps the driver error in the chain (errors.As still finds
// pgconn.PgError) while tagging the failure as a store problem.
func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}

func scanProfessional(row pgx.Row) (*Professional, error) {
	var p Professional
	err := row.Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&p.Profession,
		&p.Phone,
		&p.Email,
		&p.Address,
		&p.City,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfessionalNotFound
		}
		return nil, storeErr("scan professional", err)
	}
	return &p, nil
}

func scanRule(row pgx.Row) (*AvailabilityRule, error) {
	var r AvailabilityRule
	err := row.Scan(
		&r.ID,
		&r.ProfessionalID,
		&r.DayOfWeek,
		&r.StartTime,
		&r.EndTime,
		&r.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr("scan availability rule", err)
	}
	return &r, nil
}

func scanBlocked(row pgx.Row) (*BlockedInterval, error) {
	var b BlockedInterval
	err := row.Scan(
		&b.ID,
		&b.ProfessionalID,
		&b.StartDatetime,
		&b.EndDatetime,
		&b.Reason,
		&b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBlockedIntervalNotFound
		}
		return nil, storeErr("scan blocked interval", err)
	}
	return &b, nil
}

const appointmentColumns = `
	id, requester_id, provider_id,
	patient_first_name, patient_last_name, patient_phone,
	reason, appointment_date, appointment_time, duration,
	status, notes, starts_at, ends_at, created_at, updated_at
`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.RequesterID,
		&a.ProviderID,
		&a.PatientFirstName,
		&a.PatientLastName,
		&a.PatientPhone,
		&a.Reason,
		&a.Date,
		&a.Time,
		&a.Duration,
		&a.Status,
		&a.Notes,
		&a.StartsAt,
		&a.EndsAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, storeErr("scan appointment", err)
	}
	return &a, nil
}

// Professionals

func (r *PgRepository) GetProfessionalByID(ctx context.Context, id uuid.UUID) (*Professional, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, profession, phone, email, address, city, created_at, updated_at
		FROM professionals
		WHERE id = $1
	`, id)
	return scanProfessional(row)
}

// Availability rules

func (r *PgRepository) GetActiveRule(ctx context.Context, professionalID uuid.UUID, dayOfWeek int) (*AvailabilityRule, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, professional_id, day_of_week, start_time, end_time, is_active
		FROM availabilities
		WHERE professional_id = $1 AND day_of_week = $2 AND is_active
	`, professionalID, dayOfWeek)
	return scanRule(row)
}

func (r *PgRepository) ListAvailability(ctx context.Context, professionalID uuid.UUID) ([]AvailabilityRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, professional_id, day_of_week, start_time, end_time, is_active
		FROM availabilities
		WHERE professional_id = $1
		ORDER BY day_of_week
	`, professionalID)
	if err != nil {
		return nil, storeErr("list availability", err)
	}
	defer rows.Close()

	var result []AvailabilityRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list availability", err)
	}
	return result, nil
}

func (r *PgRepository) ReplaceAvailability(ctx context.Context, professionalID uuid.UUID, rules []AvailabilityRule) ([]AvailabilityRule, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, storeErr("begin replace availability", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM availabilities WHERE professional_id = $1
	`, professionalID); err != nil {
		return nil, storeErr("clear availability", err)
	}

	for _, rule := range rules {
		if _, err := tx.Exec(ctx, `
			INSERT INTO availabilities (id, professional_id, day_of_week, start_time, end_time, is_active)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, rule.ID, rule.ProfessionalID, rule.DayOfWeek, rule.StartTime, rule.EndTime, rule.IsActive); err != nil {
			return nil, storeErr("insert availability rule", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storeErr("commit replace availability", err)
	}

	return rules, nil
}

// Blocked intervals

func (r *PgRepository) ListBlockedIntervals(ctx context.Context, professionalID uuid.UUID, window Window) ([]BlockedInterval, error) {
	q := `
		SELECT id, professional_id, start_datetime, end_datetime, reason, created_at
		FROM blocked_intervals
		WHERE professional_id = $1
	`
	args := []any{professionalID}
	if !window.From.IsZero() {
		args = append(args, window.From)
		q += fmt.Sprintf(" AND end_datetime > $%d", len(args))
	}
	if !window.To.IsZero() {
		args = append(args, window.To)
		q += fmt.Sprintf(" AND start_datetime < $%d", len(args))
	}
	q += " ORDER BY start_datetime"

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, storeErr("list blocked intervals", err)
	}
	defer rows.Close()

	var result []BlockedInterval
	for rows.Next() {
		b, err := scanBlocked(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list blocked intervals", err)
	}
	return result, nil
}

func (r *PgRepository) InsertBlockedInterval(ctx context.Context, bi BlockedInterval) (*BlockedInterval, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO blocked_intervals (id, professional_id, start_datetime, end_datetime, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, professional_id, start_datetime, end_datetime, reason, created_at
	`, bi.ID, bi.ProfessionalID, bi.StartDatetime, bi.EndDatetime, bi.Reason)
	return scanBlocked(row)
}

func (r *PgRepository) DeleteBlockedInterval(ctx context.Context, professionalID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM blocked_intervals WHERE id = $1 AND professional_id = $2
	`, id, professionalID)
	if err != nil {
		return storeErr("delete blocked interval", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBlockedIntervalNotFound
	}
	return nil
}

func (r *PgRepository) DeleteBlockedIntervalsEndedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM blocked_intervals WHERE end_datetime < $1
	`, cutoff)
	if err != nil {
		return 0, storeErr("prune blocked intervals", err)
	}
	return tag.RowsAffected(), nil
}

// Appointments

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListActiveAppointments(ctx context.Context, providerID uuid.UUID, date string) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE provider_id = $1
		  AND appointment_date = $2
		  AND status IN ('pending', 'confirmed')
	`, providerID, date)
	if err != nil {
		return nil, storeErr("list active appointments", err)
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
		return nil, storeErr("list active appointments", err)
	}
	return result, nil
}

func (r *PgRepository) ListAppointmentsForActor(ctx context.Context, actorID uuid.UUID, filter ListFilter) ([]Appointment, int, error) {
	var conds []string
	args := []any{actorID}
	conds = append(conds, "(requester_id = $1 OR provider_id = $1)")

	add := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, cond+" $"+strconv.Itoa(len(args)))
	}
	if filter.Status != "" {
		add("status =", string(filter.Status))
	}
	if filter.RequesterID != uuid.Nil {
		add("requester_id =", filter.RequesterID)
	}
	if filter.ProviderID != uuid.Nil {
		add("provider_id =", filter.ProviderID)
	}
	if filter.DateFrom != "" {
		add("appointment_date >=", filter.DateFrom)
	}
	if filter.DateTo != "" {
		add("appointment_date <=", filter.DateTo)
	}
	where := strings.Join(conds, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx,
		"SELECT count(*) FROM appointments WHERE "+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, storeErr("count appointments", err)
	}

	args = append(args, filter.Limit, filter.Offset)
	q := fmt.Sprintf(`
		SELECT %s
		FROM appointments
		WHERE %s
		ORDER BY appointment_date, appointment_time
		LIMIT $%d OFFSET $%d
	`, appointmentColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, storeErr("list appointments", err)
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, storeErr("list appointments", err)
	}
	return result, total, nil
}

func (r *PgRepository) InsertAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (
			id, requester_id, provider_id,
			patient_first_name, patient_last_name, patient_phone,
			reason, appointment_date, appointment_time, duration,
			status, notes, starts_at, ends_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now(), now())
		RETURNING `+appointmentColumns+`
	`, a.ID, a.RequesterID, a.ProviderID,
		a.PatientFirstName, a.PatientLastName, a.PatientPhone,
		a.Reason, a.Date, a.Time, a.Duration,
		a.Status, a.Notes, a.StartsAt, a.EndsAt)

	appt, err := scanAppointment(row)
	if err != nil {
		if isExclusionViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return appt, nil
}

func (r *PgRepository) UpdateAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    reason = $3,
		    appointment_date = $4,
		    appointment_time = $5,
		    duration = $6,
		    notes = $7,
		    starts_at = $8,
		    ends_at = $9,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, a.ID, a.Status, a.Reason, a.Date, a.Time, a.Duration, a.Notes, a.StartsAt, a.EndsAt)

	appt, err := scanAppointment(row)
	if err != nil {
		if isExclusionViolation(err) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}
	return appt, nil
}

func (r *PgRepository) DeleteAppointment(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM appointments WHERE id = $1
	`, id)
	if err != nil {
		return storeErr("delete appointment", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func isExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == exclusionViolation
}
