package api

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/transfa/schoolfees-service/internal/app"
	"github.com/transfa/schoolfees-service/internal/auth"
	"github.com/transfa/schoolfees-service/internal/domain"
	"github.com/transfa/schoolfees-service/internal/store"
	"github.com/transfa/schoolfees-service/pkg/paystackclient"
)

const testPaystackSecret = "sk_test_webhook"

// apiRepoStub embeds the Repository interface; tests override only what they exercise.
type apiRepoStub struct {
	store.Repository

	mu           sync.Mutex
	users        map[string]*domain.User
	activeTokens map[uuid.UUID]string
	settledRefs  map[string]bool
	settled      []domain.Settlement
	settleCalls  int
	writes       int
	schools      map[uuid.UUID]*domain.School
	payments     []domain.PaymentInput
}

func newAPIRepoStub(users ...*domain.User) *apiRepoStub {
	s := &apiRepoStub{
		users:        make(map[string]*domain.User),
		activeTokens: make(map[uuid.UUID]string),
		settledRefs:  make(map[string]bool),
		schools:      make(map[uuid.UUID]*domain.School),
	}
	for _, u := range users {
		s.users[u.Email] = u
	}
	return s
}

func (s *apiRepoStub) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[email]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func (s *apiRepoStub) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *apiRepoStub) ReplaceActiveRefreshToken(ctx context.Context, userID uuid.UUID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeTokens[userID] = token
	return nil
}

func (s *apiRepoStub) GetActiveRefreshToken(ctx context.Context, userID uuid.UUID) (*domain.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.activeTokens[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &domain.RefreshToken{Token: token, UserID: userID, IsActive: true}, nil
}

func (s *apiRepoStub) DeactivateRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.activeTokens, userID)
	return nil
}

func (s *apiRepoStub) SettlePayment(ctx context.Context, settlement domain.Settlement) (*domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settleCalls++
	if s.settledRefs[settlement.Reference] {
		return nil, store.ErrAlreadySettled
	}
	s.settledRefs[settlement.Reference] = true
	s.settled = append(s.settled, settlement)
	s.writes++
	return &domain.Payment{ID: uuid.New(), TransactionReference: settlement.Reference, SchoolID: settlement.SchoolID}, nil
}

func (s *apiRepoStub) ListSchools(ctx context.Context, nameFilter string) ([]domain.School, error) {
	return nil, nil
}

func (s *apiRepoStub) CreateSchool(ctx context.Context, input domain.SchoolInput) (*domain.School, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.schools {
		if existing.Name == input.Name {
			return nil, store.ErrAlreadyExists
		}
	}
	s.writes++
	school := &domain.School{ID: uuid.New(), Name: input.Name, Location: input.Location, RegistrationFee: input.RegistrationFee}
	s.schools[school.ID] = school
	return school, nil
}

func (s *apiRepoStub) GetSchool(ctx context.Context, id uuid.UUID) (*domain.School, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if school, ok := s.schools[id]; ok {
		return school, nil
	}
	return nil, store.ErrNotFound
}

func (s *apiRepoStub) DeleteSchool(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.schools[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.schools, id)
	return nil
}

func (s *apiRepoStub) CreateUser(ctx context.Context, input domain.NewUser) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[input.Email]; exists {
		return nil, store.ErrAlreadyExists
	}
	user := &domain.User{
		ID:             uuid.New(),
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		Email:          input.Email,
		HashedPassword: input.HashedPassword,
		Roles:          []string{input.RoleName},
	}
	s.users[user.Email] = user
	return user, nil
}

func (s *apiRepoStub) CreatePayment(ctx context.Context, input domain.PaymentInput) (*domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments = append(s.payments, input)
	return &domain.Payment{ID: uuid.New(), SchoolID: input.SchoolID, PaymentStatus: input.PaymentStatus, TransactionReference: input.TransactionReference}, nil
}

type testServer struct {
	handler http.Handler
	repo    *apiRepoStub
}

func newTestServer(t *testing.T, repo *apiRepoStub, paystackURL string, limiter app.RateLimiter) *testServer {
	t.Helper()
	tokens := auth.NewTokenService("api-test-secret", time.Minute, time.Hour)
	gateway := paystackclient.NewClient(paystackURL, testPaystackSecret, 2*time.Second, nil)

	authSvc := app.NewAuthService(repo, tokens, nil, "schoolfees.events", nil, nil)
	paymentSvc := app.NewPaymentService(repo, gateway, nil, app.PaymentServiceConfig{
		AdminWalletID:  uuid.New(),
		DefaultEmail:   "payments@schoolfees.test",
		EventsExchange: "schoolfees.events",
	}, nil, nil)
	adminSvc := app.NewAdminService(repo, nil)

	cookies := CookieConfig{AccessTTL: time.Minute, RefreshTTL: time.Hour}
	h := NewHandlers(authSvc, paymentSvc, adminSvc, cookies, nil)
	routerCfg := RouterConfig{
		RateLimiter:      limiter,
		LoginLimitPerMin: 5,
		USSDLimitPerMin:  5,
		USSDPhoneLimit:   2,
		USSDPhoneWindow:  10 * time.Minute,
		OTPAttemptLimit:  3,
		OTPAttemptWindow: 15 * time.Minute,
	}
	return &testServer{
		handler: Routes(h, routerCfg),
		repo:    repo,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body []byte, headers map[string]string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T, email, password string) []*http.Cookie {
	t.Helper()
	form := url.Values{"username": {email}, "password": {password}}
	rec := s.do(t, http.MethodPost, "/users/login", []byte(form.Encode()), map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	return rec.Result().Cookies()
}

func newAPIUser(t *testing.T, email, password string, roles ...string) *domain.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &domain.User{ID: uuid.New(), Email: email, HashedPassword: hash, Roles: roles}
}

func signedHeaders(body []byte) map[string]string {
	return map[string]string{
		signatureHeader: hex.EncodeToString(paystackclient.Sign(testPaystackSecret, body)),
		"Content-Type":  "application/json",
	}
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var out map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func fakePaystack(t *testing.T) (*httptest.Server, *paystackclient.Metadata) {
	t.Helper()
	captured := &paystackclient.Metadata{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/charge":
			var body struct {
				Reference string                  `json:"reference"`
				Metadata  paystackclient.Metadata `json:"metadata"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode charge: %v", err)
			}
			*captured = body.Metadata
			_, _ = w.Write([]byte(`{"status":true,"message":"Charge attempted","data":{"reference":"` + body.Reference + `","status":"send_otp","display_text":"Please enter OTP"}}`))
		case "/charge/submit_otp":
			_, _ = w.Write([]byte(`{"status":true,"message":"Charge attempted","data":{"reference":"ref","status":"pay_offline","display_text":"Approve on your phone"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server, captured
}

func TestUSSDChargeOTPAndWebhookEndToEnd(t *testing.T) {
	paystack, metadata := fakePaystack(t)
	srv := newTestServer(t, newAPIRepoStub(), paystack.URL, nil)
	schoolID := uuid.New()

	chargeBody, _ := json.Marshal(map[string]interface{}{
		"phone_number": "0551234987",
		"amount":       "10.00",
		"school_id":    schoolID,
		"school_name":  "Achimota",
		"student_name": "Kwame",
		"provider":     "MTN",
	})
	rec := srv.do(t, http.MethodPost, "/paystack/ussd", chargeBody, map[string]string{"Content-Type": "application/json"})
	if rec.Code != http.StatusOK {
		t.Fatalf("ussd: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var charge domain.ChargeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &charge); err != nil {
		t.Fatalf("decode charge: %v", err)
	}
	if charge.Status != "send_otp" || charge.Reference == "" {
		t.Fatalf("unexpected charge response %+v", charge)
	}

	otpBody, _ := json.Marshal(domain.OTPRequest{Reference: charge.Reference, OTP: "123456"})
	rec = srv.do(t, http.MethodPost, "/paystack/ussd/otp", otpBody, map[string]string{"Content-Type": "application/json"})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "pay_offline") {
		t.Fatalf("otp: expected pay_offline, got %d: %s", rec.Code, rec.Body.String())
	}

	event, _ := json.Marshal(map[string]interface{}{
		"event": "charge.success",
		"data": map[string]interface{}{
			"reference": charge.Reference,
			"status":    "success",
			"amount":    1000,
			"paid_at":   "2024-03-01T10:00:00Z",
			"metadata":  metadata,
		},
	})

	rec = srv.do(t, http.MethodPost, "/paystack/webhook", event, signedHeaders(event))
	if rec.Code != http.StatusOK || decodeMessage(t, rec)["message"] != "Webhook received successfully" {
		t.Fatalf("webhook: unexpected response %d: %s", rec.Code, rec.Body.String())
	}
	if len(srv.repo.settled) != 1 {
		t.Fatalf("expected one settlement, got %d", len(srv.repo.settled))
	}
	s := srv.repo.settled[0]
	if s.SchoolID != schoolID || !s.SchoolAmount.Equal(decimal.RequireFromString("8")) || !s.AdminAmount.Equal(decimal.RequireFromString("2")) {
		t.Fatalf("unexpected settlement %+v", s)
	}

	// A replayed delivery is acknowledged and changes nothing.
	rec = srv.do(t, http.MethodPost, "/paystack/webhook", event, signedHeaders(event))
	if rec.Code != http.StatusOK || decodeMessage(t, rec)["message"] != "Webhook received" {
		t.Fatalf("replay: unexpected response %d: %s", rec.Code, rec.Body.String())
	}
	if len(srv.repo.settled) != 1 || srv.repo.settleCalls != 2 {
		t.Fatalf("expected exactly one settlement across two deliveries, got %d", len(srv.repo.settled))
	}
}

func TestWebhookResponses(t *testing.T) {
	validCharge := func(admin string) []byte {
		body, _ := json.Marshal(map[string]interface{}{
			"event": "charge.success",
			"data": map[string]interface{}{
				"reference": "ref-" + admin,
				"metadata": map[string]interface{}{
					"custom_fields": []map[string]string{
						{"display_name": domain.MetaSchoolID, "variable_name": domain.MetaSchoolID, "value": uuid.NewString()},
						{"display_name": domain.MetaAmountPaid, "variable_name": domain.MetaAmountPaid, "value": "10.00"},
						{"display_name": domain.MetaSchoolAmount, "variable_name": domain.MetaSchoolAmount, "value": "8.00"},
						{"display_name": domain.MetaAdminAmount, "variable_name": domain.MetaAdminAmount, "value": admin},
					},
				},
			},
		})
		return body
	}

	tests := []struct {
		name        string
		body        []byte
		headers     func([]byte) map[string]string
		wantStatus  int
		wantKey     string
		wantMessage string
		wantSettled int
	}{
		{
			name:        "bad signature",
			body:        validCharge("2.00"),
			headers:     func([]byte) map[string]string { return map[string]string{signatureHeader: strings.Repeat("ab", 64)} },
			wantStatus:  http.StatusBadRequest,
			wantKey:     "error",
			wantMessage: "Invalid signature",
		},
		{
			name:        "missing signature",
			body:        validCharge("2.00"),
			headers:     func([]byte) map[string]string { return nil },
			wantStatus:  http.StatusBadRequest,
			wantKey:     "error",
			wantMessage: "Invalid signature",
		},
		{
			name:        "malformed json",
			body:        []byte(`{"event":`),
			headers:     signedHeaders,
			wantStatus:  http.StatusBadRequest,
			wantKey:     "error",
			wantMessage: "Invalid payload",
		},
		{
			name:        "non charge event",
			body:        []byte(`{"event":"transfer.success","data":{"reference":"t-1"}}`),
			headers:     signedHeaders,
			wantStatus:  http.StatusOK,
			wantKey:     "message",
			wantMessage: "Webhook received",
		},
		{
			name:        "failed charge",
			body:        []byte(`{"event":"charge.failed","data":{"reference":"f-1","metadata":""}}`),
			headers:     signedHeaders,
			wantStatus:  http.StatusOK,
			wantKey:     "message",
			wantMessage: "Webhook received",
		},
		{
			name:        "split mismatch",
			body:        validCharge("1.00"),
			headers:     signedHeaders,
			wantStatus:  http.StatusOK,
			wantKey:     "message",
			wantMessage: "processing error",
		},
		{
			name:        "valid charge",
			body:        validCharge("2.00"),
			headers:     signedHeaders,
			wantStatus:  http.StatusOK,
			wantKey:     "message",
			wantMessage: "Webhook received successfully",
			wantSettled: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, newAPIRepoStub(), "http://127.0.0.1:0", nil)
			rec := srv.do(t, http.MethodPost, "/paystack/webhook", tt.body, tt.headers(tt.body))
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if got := decodeMessage(t, rec)[tt.wantKey]; got != tt.wantMessage {
				t.Fatalf("expected %s %q, got %q", tt.wantKey, tt.wantMessage, got)
			}
			if srv.repo.writes != tt.wantSettled {
				t.Fatalf("expected %d writes, got %d", tt.wantSettled, srv.repo.writes)
			}
		})
	}
}

func TestWebhookRejectsOversizedBody(t *testing.T) {
	srv := newTestServer(t, newAPIRepoStub(), "http://127.0.0.1:0", nil)
	body := bytes.Repeat([]byte("a"), maxWebhookBodyBytes+1)
	rec := srv.do(t, http.MethodPost, "/paystack/webhook", body, signedHeaders(body))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCookieSessionAndRoleGate(t *testing.T) {
	schoolAdmin := newAPIUser(t, "head@school.edu", "correct-horse", domain.RoleSchoolAdmin)
	superAdmin := newAPIUser(t, "root@schoolfees.test", "root-pass", domain.RoleSuperAdmin)
	srv := newTestServer(t, newAPIRepoStub(schoolAdmin, superAdmin), "http://127.0.0.1:0", nil)
	schoolBody := []byte(`{"name":"Achimota","location":"Accra","registration_fee":"100"}`)
	jsonHeaders := map[string]string{"Content-Type": "application/json"}

	t.Run("missing cookies", func(t *testing.T) {
		rec := srv.do(t, http.MethodGet, "/schools", nil, nil)
		if rec.Code != http.StatusUnauthorized || decodeMessage(t, rec)["error"] != msgCouldNotValidate {
			t.Fatalf("expected 401 %q, got %d: %s", msgCouldNotValidate, rec.Code, rec.Body.String())
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		form := url.Values{"username": {schoolAdmin.Email}, "password": {"nope"}}
		rec := srv.do(t, http.MethodPost, "/users/login", []byte(form.Encode()), map[string]string{
			"Content-Type": "application/x-www-form-urlencoded",
		})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	cookies := srv.login(t, schoolAdmin.Email, "correct-horse")
	for _, c := range cookies {
		if !c.HttpOnly || c.Path != "/" || c.SameSite != http.SameSiteLaxMode {
			t.Fatalf("expected HttpOnly Lax cookie on /, got %+v", c)
		}
	}

	t.Run("school admin can read", func(t *testing.T) {
		rec := srv.do(t, http.MethodGet, "/schools", nil, nil, cookies...)
		if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
			t.Fatalf("expected 200 [], got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("school admin cannot create", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/schools", schoolBody, jsonHeaders, cookies...)
		if rec.Code != http.StatusForbidden || decodeMessage(t, rec)["error"] != msgForbidden {
			t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
		}
		if srv.repo.writes != 0 {
			t.Fatal("expected no write for a forbidden request")
		}
	})

	t.Run("school admin cannot reach platform settings", func(t *testing.T) {
		rec := srv.do(t, http.MethodGet, "/settings/admin/", nil, nil, cookies...)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("super admin can create", func(t *testing.T) {
		rootCookies := srv.login(t, superAdmin.Email, "root-pass")
		rec := srv.do(t, http.MethodPost, "/schools", schoolBody, jsonHeaders, rootCookies...)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("expired access token is refreshed silently", func(t *testing.T) {
		var refresh *http.Cookie
		for _, c := range cookies {
			if c.Name == refreshTokenCookie {
				refresh = c
			}
		}
		stale := &http.Cookie{Name: accessTokenCookie, Value: "expired"}
		rec := srv.do(t, http.MethodGet, "/users/me", nil, nil, stale, refresh)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var renewed bool
		for _, c := range rec.Result().Cookies() {
			if c.Name == accessTokenCookie && c.Value != "" && c.MaxAge == 60 {
				renewed = true
			}
		}
		if !renewed {
			t.Fatal("expected a new access_token cookie")
		}
	})

	t.Run("logout clears cookies", func(t *testing.T) {
		rec := srv.do(t, http.MethodPost, "/users/logout", nil, nil, cookies...)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		for _, c := range rec.Result().Cookies() {
			if c.MaxAge >= 0 {
				t.Fatalf("expected cleared cookie, got %+v", c)
			}
		}
		if _, ok := srv.repo.activeTokens[schoolAdmin.ID]; ok {
			t.Fatal("expected the session to be deactivated")
		}
	})
}

type limiterStub struct {
	count int
	err   error
}

func (l *limiterStub) ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (int, int, error) {
	l.count++
	return l.count, 42, l.err
}

func TestLoginRateLimit(t *testing.T) {
	user := newAPIUser(t, "head@school.edu", "correct-horse")
	limiter := &limiterStub{}
	srv := newTestServer(t, newAPIRepoStub(user), "http://127.0.0.1:0", limiter)

	form := []byte(url.Values{"username": {user.Email}, "password": {"wrong"}}.Encode())
	headers := map[string]string{"Content-Type": "application/x-www-form-urlencoded"}
	for i := 0; i < 5; i++ {
		if rec := srv.do(t, http.MethodPost, "/users/login", form, headers); rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, rec.Code)
		}
	}
	rec := srv.do(t, http.MethodPost, "/users/login", form, headers)
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") != "42" {
		t.Fatalf("expected 429 with Retry-After, got %d %q", rec.Code, rec.Header().Get("Retry-After"))
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	user := newAPIUser(t, "head@school.edu", "correct-horse")
	srv := newTestServer(t, newAPIRepoStub(user), "http://127.0.0.1:0", &limiterStub{err: errors.New("redis down")})
	srv.login(t, user.Email, "correct-horse")
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{err: errors.New("boom"), status: http.StatusInternalServerError},
		{err: store.ErrNotFound, status: http.StatusNotFound},
		{err: store.ErrAlreadyExists, status: http.StatusConflict},
		{err: store.ErrInvalidData, status: http.StatusBadRequest},
		{err: store.ErrInvalidSearchCriteria, status: http.StatusBadRequest},
		{err: store.ErrForeignKeyViolation, status: http.StatusBadRequest},
		{err: app.ErrValidation, status: http.StatusBadRequest},
		{err: app.ErrIncorrectCredentials, status: http.StatusUnauthorized},
		{err: app.ErrRefreshTokenReuse, status: http.StatusUnauthorized},
		{err: &paystackclient.GatewayError{Message: "Invalid provider", Kind: paystackclient.ErrInvalidProvider}, status: http.StatusBadRequest},
		{err: &paystackclient.GatewayError{Kind: paystackclient.ErrIncorrectOTP}, status: http.StatusBadRequest},
		{err: &paystackclient.GatewayError{Kind: paystackclient.ErrGatewayError}, status: http.StatusBadGateway},
		{err: &paystackclient.GatewayError{Kind: paystackclient.ErrGatewayTimeout}, status: http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		if got, _ := statusForError(tt.err); got != tt.status {
			t.Fatalf("%v: expected %d, got %d", tt.err, tt.status, got)
		}
	}

	if _, msg := statusForError(errors.New("pq: connection refused")); msg != msgInternalError {
		t.Fatalf("expected internal details to be hidden, got %q", msg)
	}
}
