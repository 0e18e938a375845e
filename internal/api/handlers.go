package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicdesk/clinic-appointment-api/internal/auth"
	"github.com/clinicdesk/clinic-appointment-api/internal/clinic"
	redisclient "github.com/clinicdesk/clinic-appointment-api/internal/redis"
)

func loginHandler(svc *clinic.Service, throttle redisclient.Throttle, jwtSecret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.Email == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "missing_credentials", "Email and Password are required")
			return
		}

		if throttle != nil && !throttle.Allow(r.Context(), req.Email) {
			writeError(w, http.StatusTooManyRequests, "too_many_attempts", "try again later")
			return
		}

		admin, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, clinic.ErrInvalidCredentials) {
				if throttle != nil {
					throttle.RecordFailure(r.Context(), req.Email)
				}
				writeError(w, http.StatusUnauthorized, "invalid_credentials", "")
				return
			}
			internalError(w, r, err)
			return
		}

		token, err := auth.IssueToken(admin.ID.String(), jwtSecret)
		if err != nil {
			internalError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, LoginResponse{Token: token, ID: admin.ID.String()})
	}
}

func getAdminHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_id", "id must be a valid UUID")
			return
		}

		admin, err := svc.AdminByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, clinic.ErrAdminNotFound) {
				writeError(w, http.StatusNotFound, "not_found", "")
				return
			}
			internalError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, admin)
	}
}

func bookingHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.Amount <= 0 || req.Currency == "" {
			writeError(w, http.StatusBadRequest, "invalid_order", "amount and currency are required")
			return
		}

		order, err := svc.CreateOrder(r.Context(), req.Amount, req.Currency, req.Receipt)
		if err != nil {
			log.Printf("gateway error request_id=%s: %v", GetRequestID(r.Context()), err)
			writeError(w, http.StatusInternalServerError, "gateway_error", "")
			return
		}

		writeJSON(w, http.StatusOK, order)
	}
}

func validateOrderHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ValidateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, err := uuid.Parse(req.Doctor)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor", "doctor must be a valid UUID")
			return
		}
		date, err := time.Parse(time.RFC3339, req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be RFC 3339")
			return
		}

		appt, err := svc.ValidatePayment(r.Context(),
			req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature,
			clinic.BookingDetails{
				PatientName: req.PatientName,
				PatientAge:  req.PatientAge,
				Phone:       req.Phone,
				Section:     req.Section,
				DoctorID:    doctorID,
				Date:        date,
			})
		if err != nil {
			if errors.Is(err, clinic.ErrSignatureMismatch) {
				writeError(w, http.StatusBadRequest, "payment_signature_mismatch", "transaction is not legit")
				return
			}
			internalError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, ValidateOrderResponse{
			Msg:         "success",
			OrderID:     appt.OrderID,
			PaymentID:   appt.PaymentID,
			Appointment: appt,
		})
	}
}

func listAppointmentsHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appts, err := svc.ListAppointments(r.Context())
		if err != nil {
			internalError(w, r, err)
			return
		}
		if appts == nil {
			appts = []clinic.Appointment{}
		}
		writeJSON(w, http.StatusOK, appts)
	}
}

func doctorAppointmentsHandler(svc *clinic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "doctorId"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor", "doctorId must be a valid UUID")
			return
		}

		appts, err := svc.ListAppointmentsByDoctor(r.Context(), doctorID)
		if err != nil {
			internalError(w, r, err)
			return
		}
		if len(appts) == 0 {
			writeError(w, http.StatusNotFound, "no_appointments", "")
			return
		}

		writeJSON(w, http.StatusOK, appts)
	}
}

func approveAppointmentHandler(svc *clinic.Service) http.HandlerFunc {
	return statusChangeHandler(svc.Approve, "Appointment approved")
}

func cancelAppointmentHandler(svc *clinic.Service) http.HandlerFunc {
	return statusChangeHandler(svc.Cancel, "Appointment canceled")
}

func statusChangeHandler(change func(context.Context, uuid.UUID, string) (*clinic.StatusChangeResult, error), message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StatusChangeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		id, err := uuid.Parse(req.AppointmentID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointmentId must be a valid UUID")
			return
		}
		if req.UserEmail == "" {
			writeError(w, http.StatusBadRequest, "missing_email", "userEmail is required")
			return
		}

		res, err := change(r.Context(), id, req.UserEmail)
		if err != nil {
			if errors.Is(err, clinic.ErrAppointmentNotFound) {
				writeError(w, http.StatusNotFound, "appointment_not_found", "")
				return
			}
			internalError(w, r, err)
			return
		}

		resp := StatusChangeResponse{
			Message:   message,
			EmailSent: res.NotificationErr == nil,
		}
		if res.NotificationErr != nil {
			// the status change is committed even though the mail failed
			resp.EmailError = "notification_failed"
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

// writeError returns an opaque machine code. Raw collaborator errors are
// logged server-side and never sent to clients.
func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	log.Printf("internal error request_id=%s: %v", GetRequestID(r.Context()), err)
	writeError(w, http.StatusInternalServerError, "internal_error", "")
}
