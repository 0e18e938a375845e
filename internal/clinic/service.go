package clinic

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinic-appointment-api/internal/auth"
	"github.com/clinicdesk/clinic-appointment-api/internal/mail"
	"github.com/clinicdesk/clinic-appointment-api/internal/payment"
)

var (
	// ErrInvalidCredentials covers unknown email, wrong password, and
	// undecryptable stored ciphertext alike, so a caller cannot tell which
	// of them failed.
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrSignatureMismatch = errors.New("payment signature mismatch")
)

type Service struct {
	repo          Repository
	cipher        *auth.PasswordCipher
	gateway       payment.Gateway
	sender        mail.Sender
	paymentSecret string
}

func NewService(repo Repository, cipher *auth.PasswordCipher, gateway payment.Gateway, sender mail.Sender, paymentSecret string) *Service {
	return &Service{
		repo:          repo,
		cipher:        cipher,
		gateway:       gateway,
		sender:        sender,
		paymentSecret: paymentSecret,
	}
}

// Login authenticates an admin or doctor by decrypting the stored password
// and comparing it to the submitted one.
func (s *Service) Login(ctx context.Context, email, password string) (*Admin, error) {
	admin, err := s.repo.GetAdminByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAdminNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load admin: %w", err)
	}

	stored, err := s.cipher.Decrypt(admin.PasswordCipher)
	if err != nil {
		// fail closed, indistinguishable from a mismatch
		return nil, ErrInvalidCredentials
	}
	if stored != password {
		return nil, ErrInvalidCredentials
	}

	return admin, nil
}

func (s *Service) AdminByID(ctx context.Context, id uuid.UUID) (*Admin, error) {
	admin, err := s.repo.GetAdminByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAdminNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load admin: %w", err)
	}
	return admin, nil
}

// CreateOrder asks the gateway for a new order. amount is in major currency
// units; the gateway wants minor units, hence the x100 conversion. Nothing
// is persisted at this stage.
func (s *Service) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*payment.Order, error) {
	order, err := s.gateway.CreateOrder(ctx, amount*100, currency, receipt)
	if err != nil {
		return nil, fmt.Errorf("gateway order: %w", err)
	}
	return order, nil
}

// BookingDetails are the appointment fields the client submits together
// with the gateway's payment proof.
type BookingDetails struct {
	PatientName string
	PatientAge  int
	Phone       string
	Section     string
	DoctorID    uuid.UUID
	Date        time.Time
}

// ValidatePayment is the only path that creates an appointment: the
// signature gate must pass before anything is persisted. The new
// appointment starts Pending.
func (s *Service) ValidatePayment(ctx context.Context, orderID, paymentID, signature string, b BookingDetails) (*Appointment, error) {
	if !payment.VerifySignature(orderID, paymentID, signature, s.paymentSecret) {
		return nil, ErrSignatureMismatch
	}

	appt := &Appointment{
		ID:          uuid.New(),
		PatientName: b.PatientName,
		PatientAge:  b.PatientAge,
		Phone:       b.Phone,
		Section:     b.Section,
		DoctorID:    b.DoctorID,
		Date:        b.Date,
		PaymentID:   paymentID,
		OrderID:     orderID,
		Status:      StatusPending,
	}

	created, err := s.repo.CreateAppointment(ctx, appt)
	if err != nil {
		return nil, fmt.Errorf("save appointment: %w", err)
	}
	return created, nil
}

func (s *Service) ListAppointments(ctx context.Context) ([]Appointment, error) {
	appts, err := s.repo.ListAppointments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

func (s *Service) ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Appointment, error) {
	appts, err := s.repo.ListAppointmentsByDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list appointments by doctor: %w", err)
	}
	return appts, nil
}

// StatusChangeResult reports a committed status change together with the
// outcome of the follow-up notification. A non-nil NotificationErr never
// means the status change was rolled back.
type StatusChangeResult struct {
	Appointment     *Appointment
	NotificationErr error
}

// Approve moves an appointment to Approved and emails the given address.
// Re-approving an already Approved appointment is an unguarded overwrite.
func (s *Service) Approve(ctx context.Context, id uuid.UUID, userEmail string) (*StatusChangeResult, error) {
	return s.changeStatus(ctx, id, userEmail, StatusApproved,
		"Appointment Approved",
		"Your appointment has been successfully approved.")
}

// Cancel is symmetric to Approve.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, userEmail string) (*StatusChangeResult, error) {
	return s.changeStatus(ctx, id, userEmail, StatusCanceled,
		"Appointment Canceled",
		"Your appointment has been canceled.")
}

func (s *Service) changeStatus(ctx context.Context, id uuid.UUID, userEmail string, to Status, subject, body string) (*StatusChangeResult, error) {
	appt, err := s.repo.UpdateAppointmentStatus(ctx, id, to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	res := &StatusChangeResult{Appointment: appt}

	// The status change above is already committed; a send failure is
	// reported alongside it, never undone.
	if err := s.sender.Send(ctx, userEmail, subject, body); err != nil {
		log.Printf("notification send failed for appointment %s: %v", id, err)
		res.NotificationErr = err
	}

	return res, nil
}
