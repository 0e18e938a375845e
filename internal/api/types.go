package api

import (
	"github.com/clinicdesk/clinic-appointment-api/internal/clinic"
)

// Field casing on login follows the existing clients.
type LoginRequest struct {
	Email    string `json:"Email"`
	Password string `json:"Password"`
}

type LoginResponse struct {
	Token string `json:"token"`
	ID    string `json:"id"`
}

type BookingRequest struct {
	Amount   int64  `json:"amount"` // major currency units
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type ValidateOrderRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
	PatientName       string `json:"patientName"`
	PatientAge        int    `json:"patientAge"`
	Phone             string `json:"phone"`
	Section           string `json:"section"`
	Doctor            string `json:"doctor"`
	Date              string `json:"date"` // RFC 3339
}

type ValidateOrderResponse struct {
	Msg         string              `json:"msg"`
	OrderID     string              `json:"orderId"`
	PaymentID   string              `json:"paymentId"`
	Appointment *clinic.Appointment `json:"appointment"`
}

type StatusChangeRequest struct {
	AppointmentID string `json:"appointmentId"`
	UserEmail     string `json:"userEmail"`
}

type StatusChangeResponse struct {
	Message    string `json:"message"`
	EmailSent  bool   `json:"emailSent"`
	EmailError string `json:"emailError,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
