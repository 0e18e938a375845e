package clinic

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanAdmin(row pgx.Row) (*Admin, error) {
	var a Admin

	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.PasswordCipher,
		&a.Role,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAdminNotFound
		}
		return nil, err
	}

	return &a, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.PatientName,
		&a.PatientAge,
		&a.Phone,
		&a.Section,
		&a.DoctorID,
		&a.Date,
		&a.PaymentID,
		&a.OrderID,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

const appointmentColumns = `id, patient_name, patient_age, phone, section, doctor_id,
		       date, payment_id, order_id, status, created_at, updated_at`

// Interface methods

func (r *PgRepository) GetAdminByEmail(ctx context.Context, email string) (*Admin, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, password_cipher, role, created_at, updated_at
		FROM admins
		WHERE email = $1
	`, email)
	return scanAdmin(row)
}

func (r *PgRepository) GetAdminByID(ctx context.Context, id uuid.UUID) (*Admin, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, email, password_cipher, role, created_at, updated_at
		FROM admins
		WHERE id = $1
	`, id)
	return scanAdmin(row)
}

func (r *PgRepository) CreateAdmin(ctx context.Context, a *Admin) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO admins (id, email, password_cipher, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
	`, a.ID, a.Email, a.PasswordCipher, a.Role)
	return err
}

func (r *PgRepository) CreateAppointment(ctx context.Context, a *Appointment) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, patient_name, patient_age, phone, section, doctor_id,
		                          date, payment_id, order_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		RETURNING `+appointmentColumns+`
	`, a.ID, a.PatientName, a.PatientAge, a.Phone, a.Section, a.DoctorID,
		a.Date, a.PaymentID, a.OrderID, a.Status)

	return scanAppointment(row)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointments(ctx context.Context) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PgRepository) ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		ORDER BY date
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, to Status) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, id, to)

	return scanAppointment(row)
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
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
