package clinic

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrAdminNotFound       = errors.New("admin not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetAdminByEmail(ctx context.Context, email string) (*Admin, error)
	GetAdminByID(ctx context.Context, id uuid.UUID) (*Admin, error)
	CreateAdmin(ctx context.Context, a *Admin) error

	CreateAppointment(ctx context.Context, a *Appointment) (*Appointment, error)
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListAppointments(ctx context.Context) ([]Appointment, error)
	ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, to Status) (*Appointment, error)
}
