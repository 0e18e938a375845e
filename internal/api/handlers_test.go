package api_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/clinic-appointment-api/internal/api"
	"github.com/clinicdesk/clinic-appointment-api/internal/auth"
	"github.com/clinicdesk/clinic-appointment-api/internal/clinic"
	"github.com/clinicdesk/clinic-appointment-api/internal/payment"
)

const (
	testJWTSecret     = "handler-test-jwt-secret"
	testCipherSecret  = "handler-test-cipher-secret"
	testPaymentSecret = "handler-test-payment-secret"
)

// ----- fakes -----

type fakeRepo struct {
	admins       map[uuid.UUID]*clinic.Admin
	appointments map[uuid.UUID]*clinic.Appointment
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		admins:       make(map[uuid.UUID]*clinic.Admin),
		appointments: make(map[uuid.UUID]*clinic.Appointment),
	}
}

func (r *fakeRepo) GetAdminByEmail(ctx context.Context, email string) (*clinic.Admin, error) {
	for _, a := range r.admins {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, clinic.ErrAdminNotFound
}

func (r *fakeRepo) GetAdminByID(ctx context.Context, id uuid.UUID) (*clinic.Admin, error) {
	a, ok := r.admins[id]
	if !ok {
		return nil, clinic.ErrAdminNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeRepo) CreateAdmin(ctx context.Context, a *clinic.Admin) error {
	cp := *a
	r.admins[a.ID] = &cp
	return nil
}

func (r *fakeRepo) CreateAppointment(ctx context.Context, a *clinic.Appointment) (*clinic.Appointment, error) {
	cp := *a
	r.appointments[a.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeRepo) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*clinic.Appointment, error) {
	a, ok := r.appointments[id]
	if !ok {
		return nil, clinic.ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeRepo) ListAppointments(ctx context.Context) ([]clinic.Appointment, error) {
	var out []clinic.Appointment
	for _, a := range r.appointments {
		out = append(out, *a)
	}
	return out, nil
}

func (r *fakeRepo) ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]clinic.Appointment, error) {
	var out []clinic.Appointment
	for _, a := range r.appointments {
		if a.DoctorID == doctorID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *fakeRepo) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, to clinic.Status) (*clinic.Appointment, error) {
	a, ok := r.appointments[id]
	if !ok {
		return nil, clinic.ErrAppointmentNotFound
	}
	a.Status = to
	cp := *a
	return &cp, nil
}

type fakeGateway struct {
	lastAmount int64
}

func (g *fakeGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*payment.Order, error) {
	g.lastAmount = amountMinor
	return &payment.Order{
		ID:       "order_fake123",
		Amount:   amountMinor,
		Currency: currency,
		Receipt:  receipt,
		Status:   "created",
	}, nil
}

type fakeSender struct {
	sent     int
	failWith error
}

func (s *fakeSender) Send(ctx context.Context, to, subject, body string) error {
	if s.failWith != nil {
		return s.failWith
	}
	s.sent++
	return nil
}

type fakeThrottle struct {
	allow    bool
	failures int
}

func (t *fakeThrottle) Allow(ctx context.Context, key string) bool { return t.allow }
func (t *fakeThrottle) RecordFailure(ctx context.Context, key string) {
	t.failures++
}

// ----- setup -----

type fixture struct {
	handler  http.Handler
	repo     *fakeRepo
	gateway  *fakeGateway
	sender   *fakeSender
	throttle *fakeThrottle
}

func setup(t *testing.T) *fixture {
	t.Helper()

	repo := newFakeRepo()
	gateway := &fakeGateway{}
	sender := &fakeSender{}
	throttle := &fakeThrottle{allow: true}

	cipher := auth.NewPasswordCipher(testCipherSecret)
	svc := clinic.NewService(repo, cipher, gateway, sender, testPaymentSecret)

	handler := api.NewRouter(api.RouterConfig{
		Service:   svc,
		Throttle:  throttle,
		JWTSecret: testJWTSecret,
		Env:       "test",
		Version:   "test",
	})

	return &fixture{
		handler:  handler,
		repo:     repo,
		gateway:  gateway,
		sender:   sender,
		throttle: throttle,
	}
}

func (f *fixture) seedAdmin(t *testing.T, email, password string, role clinic.Role) uuid.UUID {
	t.Helper()
	cipher := auth.NewPasswordCipher(testCipherSecret)
	ciphertext, err := cipher.Encrypt(password)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	id := uuid.New()
	f.repo.admins[id] = &clinic.Admin{
		ID:             id,
		Email:          email,
		PasswordCipher: ciphertext,
		Role:           role,
	}
	return id
}

func (f *fixture) seedAppointment(doctorID uuid.UUID) *clinic.Appointment {
	a := &clinic.Appointment{
		ID:          uuid.New(),
		PatientName: "Test Patient",
		PatientAge:  30,
		Phone:       "9000000000",
		Section:     "Cardiology",
		DoctorID:    doctorID,
		Date:        time.Now().Add(48 * time.Hour),
		PaymentID:   "pay_seed",
		OrderID:     "order_" + uuid.New().String()[:8],
		Status:      clinic.StatusPending,
	}
	f.repo.appointments[a.ID] = a
	return a
}

func (f *fixture) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rec.Body.String())
	}
}

func errCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error string `json:"error"`
	}
	decodeJSON(t, rec, &resp)
	return resp.Error
}

func signPayment(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(testPaymentSecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// ----- login -----

func TestLoginEndpoint(t *testing.T) {
	f := setup(t)
	id := f.seedAdmin(t, "admin@clinic.test", "correct-horse", clinic.RoleAdmin)

	rec := f.do(t, "POST", "/login", map[string]string{
		"Email": "admin@clinic.test", "Password": "correct-horse",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
		ID    string `json:"id"`
	}
	decodeJSON(t, rec, &resp)
	if resp.ID != id.String() {
		t.Errorf("id mismatch: %s", resp.ID)
	}

	subject, err := auth.VerifyToken(resp.Token, testJWTSecret)
	if err != nil {
		t.Fatalf("returned token does not verify: %v", err)
	}
	if subject != id.String() {
		t.Errorf("token subject mismatch: %s", subject)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	f := setup(t)
	f.seedAdmin(t, "admin@clinic.test", "correct-horse", clinic.RoleAdmin)

	rec := f.do(t, "POST", "/login", map[string]string{
		"Email": "admin@clinic.test", "Password": "wrong",
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if code := errCode(t, rec); code != "invalid_credentials" {
		t.Errorf("error code: %s", code)
	}
	if f.throttle.failures != 1 {
		t.Errorf("expected 1 recorded failure, got %d", f.throttle.failures)
	}
}

func TestLoginUnknownEmailSameError(t *testing.T) {
	f := setup(t)

	rec := f.do(t, "POST", "/login", map[string]string{
		"Email": "nobody@clinic.test", "Password": "whatever",
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if code := errCode(t, rec); code != "invalid_credentials" {
		t.Errorf("error code: %s", code)
	}
}

func TestLoginThrottled(t *testing.T) {
	f := setup(t)
	f.seedAdmin(t, "admin@clinic.test", "correct-horse", clinic.RoleAdmin)
	f.throttle.allow = false

	rec := f.do(t, "POST", "/login", map[string]string{
		"Email": "admin@clinic.test", "Password": "correct-horse",
	}, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if code := errCode(t, rec); code != "too_many_attempts" {
		t.Errorf("error code: %s", code)
	}
}

func TestLoginMissingFields(t *testing.T) {
	f := setup(t)

	rec := f.do(t, "POST", "/login", map[string]string{"Email": "a@b.test"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

// ----- admin lookup -----

func TestGetAdminRequiresToken(t *testing.T) {
	f := setup(t)
	id := f.seedAdmin(t, "admin@clinic.test", "pw", clinic.RoleAdmin)

	rec := f.do(t, "GET", "/Getdatas/"+id.String(), nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestGetAdminRejectsBadToken(t *testing.T) {
	f := setup(t)
	id := f.seedAdmin(t, "admin@clinic.test", "pw", clinic.RoleAdmin)

	rec := f.do(t, "GET", "/Getdatas/"+id.String(), nil, map[string]string{"pass": "not.a.token"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", rec.Code)
	}
	if code := errCode(t, rec); code != "invalid_token" {
		t.Errorf("error code: %s", code)
	}
}

func TestGetAdminSubjectMismatch(t *testing.T) {
	f := setup(t)
	id := f.seedAdmin(t, "admin@clinic.test", "pw", clinic.RoleAdmin)
	other := f.seedAdmin(t, "other@clinic.test", "pw", clinic.RoleAdmin)

	token, _ := auth.IssueToken(other.String(), testJWTSecret)
	rec := f.do(t, "GET", "/Getdatas/"+id.String(), nil, map[string]string{"pass": token})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign token, got %d", rec.Code)
	}
	if code := errCode(t, rec); code != "subject_mismatch" {
		t.Errorf("error code: %s", code)
	}
}

func TestGetAdmin(t *testing.T) {
	f := setup(t)
	id := f.seedAdmin(t, "admin@clinic.test", "pw", clinic.RoleAdmin)

	token, _ := auth.IssueToken(id.String(), testJWTSecret)
	rec := f.do(t, "GET", "/Getdatas/"+id.String(), nil, map[string]string{"pass": token})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body map[string]any
	decodeJSON(t, rec, &body)
	if body["email"] != "admin@clinic.test" {
		t.Errorf("email: %v", body["email"])
	}
	// the stored ciphertext must never be serialized
	if bytes.Contains(rec.Body.Bytes(), []byte("password")) {
		t.Error("response leaks password field")
	}
}

// ----- booking -----

func TestBookingConvertsToMinorUnits(t *testing.T) {
	f := setup(t)

	rec := f.do(t, "POST", "/booking", map[string]any{
		"amount": 500, "currency": "INR", "receipt": "r-1",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if f.gateway.lastAmount != 50000 {
		t.Errorf("expected gateway amount 50000, got %d", f.gateway.lastAmount)
	}

	var order payment.Order
	decodeJSON(t, rec, &order)
	if order.Amount != 50000 {
		t.Errorf("order amount: %d", order.Amount)
	}
}

func TestBookingRejectsInvalid(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"zero amount", map[string]any{"amount": 0, "currency": "INR"}},
		{"negative amount", map[string]any{"amount": -5, "currency": "INR"}},
		{"missing currency", map[string]any{"amount": 500}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, "POST", "/booking", tt.body, nil)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if code := errCode(t, rec); code != "invalid_order" {
				t.Errorf("error code: %s", code)
			}
		})
	}
}

// ----- payment validation -----

func validBookingBody(doctorID uuid.UUID) map[string]any {
	orderID := "order_" + uuid.New().String()[:8]
	paymentID := "pay_" + uuid.New().String()[:8]
	return map[string]any{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
		"razorpay_signature":  signPayment(orderID, paymentID),
		"patientName":         "Test Patient",
		"patientAge":          30,
		"phone":               "9000000000",
		"section":             "Cardiology",
		"doctor":              doctorID.String(),
		"date":                time.Now().Add(48 * time.Hour).Format(time.RFC3339),
	}
}

func TestValidateOrder(t *testing.T) {
	f := setup(t)
	doctorID := uuid.New()

	rec := f.do(t, "POST", "/order/validate", validBookingBody(doctorID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Msg         string             `json:"msg"`
		Appointment clinic.Appointment `json:"appointment"`
	}
	decodeJSON(t, rec, &resp)
	if resp.Msg != "success" {
		t.Errorf("msg: %s", resp.Msg)
	}
	if resp.Appointment.Status != clinic.StatusPending {
		t.Errorf("expected Pending, got %s", resp.Appointment.Status)
	}
	if len(f.repo.appointments) != 1 {
		t.Errorf("expected 1 persisted appointment, got %d", len(f.repo.appointments))
	}
}

func TestValidateOrderBadSignature(t *testing.T) {
	f := setup(t)
	body := validBookingBody(uuid.New())
	body["razorpay_signature"] = "deadbeef"

	rec := f.do(t, "POST", "/order/validate", body, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if code := errCode(t, rec); code != "payment_signature_mismatch" {
		t.Errorf("error code: %s", code)
	}
	if len(f.repo.appointments) != 0 {
		t.Error("appointment persisted despite bad signature")
	}
}

func TestValidateOrderBadDate(t *testing.T) {
	f := setup(t)
	body := validBookingBody(uuid.New())
	body["date"] = "31/12/2026"

	rec := f.do(t, "POST", "/order/validate", body, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if code := errCode(t, rec); code != "invalid_date" {
		t.Errorf("error code: %s", code)
	}
}

func TestValidateOrderBadDoctor(t *testing.T) {
	f := setup(t)
	body := validBookingBody(uuid.New())
	body["doctor"] = "not-a-uuid"

	rec := f.do(t, "POST", "/order/validate", body, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if code := errCode(t, rec); code != "invalid_doctor" {
		t.Errorf("error code: %s", code)
	}
}

// ----- listing -----

func TestGetAppointmentsEmpty(t *testing.T) {
	f := setup(t)

	rec := f.do(t, "GET", "/getappointments", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var appts []clinic.Appointment
	decodeJSON(t, rec, &appts)
	if appts == nil {
		t.Error("expected empty array, got null")
	}
	if len(appts) != 0 {
		t.Errorf("expected 0 appointments, got %d", len(appts))
	}
}

func TestGetAppointments(t *testing.T) {
	f := setup(t)
	f.seedAppointment(uuid.New())
	f.seedAppointment(uuid.New())

	rec := f.do(t, "GET", "/getappointments", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var appts []clinic.Appointment
	decodeJSON(t, rec, &appts)
	if len(appts) != 2 {
		t.Errorf("expected 2 appointments, got %d", len(appts))
	}
}

// ----- doctor listing -----

func TestDoctorAppointmentsRequiresMatchingToken(t *testing.T) {
	f := setup(t)
	doctorID := f.seedAdmin(t, "doc@clinic.test", "pw", clinic.RoleDoctor)
	f.seedAppointment(doctorID)

	otherToken, _ := auth.IssueToken(uuid.New().String(), testJWTSecret)
	rec := f.do(t, "GET", "/appointments/"+doctorID.String(), nil, map[string]string{"pass": otherToken})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestDoctorAppointmentsEmpty(t *testing.T) {
	f := setup(t)
	doctorID := f.seedAdmin(t, "doc@clinic.test", "pw", clinic.RoleDoctor)

	token, _ := auth.IssueToken(doctorID.String(), testJWTSecret)
	rec := f.do(t, "GET", "/appointments/"+doctorID.String(), nil, map[string]string{"pass": token})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for empty schedule, got %d", rec.Code)
	}
	if code := errCode(t, rec); code != "no_appointments" {
		t.Errorf("error code: %s", code)
	}
}

func TestDoctorAppointments(t *testing.T) {
	f := setup(t)
	doctorID := f.seedAdmin(t, "doc@clinic.test", "pw", clinic.RoleDoctor)
	f.seedAppointment(doctorID)
	f.seedAppointment(doctorID)
	f.seedAppointment(uuid.New()) // someone else's

	token, _ := auth.IssueToken(doctorID.String(), testJWTSecret)
	rec := f.do(t, "GET", "/appointments/"+doctorID.String(), nil, map[string]string{"pass": token})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var appts []clinic.Appointment
	decodeJSON(t, rec, &appts)
	if len(appts) != 2 {
		t.Errorf("expected 2 appointments, got %d", len(appts))
	}
	for _, a := range appts {
		if a.DoctorID != doctorID {
			t.Errorf("foreign appointment in result: %s", a.ID)
		}
	}
}

// ----- status changes -----

func TestApproveAppointment(t *testing.T) {
	f := setup(t)
	appt := f.seedAppointment(uuid.New())

	rec := f.do(t, "POST", "/approve-appointment", map[string]string{
		"appointmentId": appt.ID.String(),
		"userEmail":     "patient@example.com",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		EmailSent bool `json:"emailSent"`
	}
	decodeJSON(t, rec, &resp)
	if !resp.EmailSent {
		t.Error("expected emailSent true")
	}
	if f.repo.appointments[appt.ID].Status != clinic.StatusApproved {
		t.Error("status not Approved")
	}
	if f.sender.sent != 1 {
		t.Errorf("expected 1 mail, got %d", f.sender.sent)
	}
}

func TestApproveAppointmentMailFailure(t *testing.T) {
	f := setup(t)
	appt := f.seedAppointment(uuid.New())
	f.sender.failWith = fmt.Errorf("smtp down")

	rec := f.do(t, "POST", "/approve-appointment", map[string]string{
		"appointmentId": appt.ID.String(),
		"userEmail":     "patient@example.com",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 despite mail failure, got %d", rec.Code)
	}

	var resp struct {
		EmailSent  bool   `json:"emailSent"`
		EmailError string `json:"emailError"`
	}
	decodeJSON(t, rec, &resp)
	if resp.EmailSent {
		t.Error("expected emailSent false")
	}
	if resp.EmailError != "notification_failed" {
		t.Errorf("emailError: %s", resp.EmailError)
	}
	if f.repo.appointments[appt.ID].Status != clinic.StatusApproved {
		t.Error("status change rolled back on mail failure")
	}
}

func TestCancelAppointment(t *testing.T) {
	f := setup(t)
	appt := f.seedAppointment(uuid.New())

	rec := f.do(t, "POST", "/cancel-appointment", map[string]string{
		"appointmentId": appt.ID.String(),
		"userEmail":     "patient@example.com",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if f.repo.appointments[appt.ID].Status != clinic.StatusCanceled {
		t.Error("status not Canceled")
	}
}

func TestStatusChangeMissingAppointment(t *testing.T) {
	f := setup(t)

	rec := f.do(t, "POST", "/approve-appointment", map[string]string{
		"appointmentId": uuid.New().String(),
		"userEmail":     "patient@example.com",
	}, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if code := errCode(t, rec); code != "appointment_not_found" {
		t.Errorf("error code: %s", code)
	}
}

func TestStatusChangeBadRequest(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name string
		body map[string]string
	}{
		{"bad id", map[string]string{"appointmentId": "nope", "userEmail": "a@b.test"}},
		{"missing email", map[string]string{"appointmentId": uuid.New().String()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, "POST", "/cancel-appointment", tt.body, nil)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}
