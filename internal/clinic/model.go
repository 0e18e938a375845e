package clinic

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusCanceled Status = "Canceled"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleDoctor Role = "doctor"
)

// Admin is an administrator or doctor account. Accounts are created only by
// the seed tool; this code path reads them on login and never updates them.
// PasswordCipher holds the reversibly encrypted password and is never
// serialized to clients.
type Admin struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	PasswordCipher string    `json:"-"`
	Role           Role      `json:"role"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Appointment is created only after payment signature verification, with
// status Pending. Status moves to Approved or Canceled by explicit admin
// action; rows are never deleted.
type Appointment struct {
	ID          uuid.UUID `json:"id"`
	PatientName string    `json:"patientName"`
	PatientAge  int       `json:"patientAge"`
	Phone       string    `json:"phone"`
	Section     string    `json:"section"`
	DoctorID    uuid.UUID `json:"doctor"`
	Date        time.Time `json:"date"`
	PaymentID   string    `json:"paymentId"`
	OrderID     string    `json:"orderId"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
