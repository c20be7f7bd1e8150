/**
 * @description
 * This file contains the HTTP handlers for the auth and Paystack endpoints of the
 * schoolfees-service. Handlers parse the request, call the application services, and
 * write the response. They act as the bridge between the web layer and the business
 * logic layer.
 *
 * @dependencies
 * - internal/app: Auth, payment and admin services.
 * - go.uber.org/zap: Structured logging.
 */

package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/transfa/schoolfees-service/internal/app"
	"github.com/transfa/schoolfees-service/internal/domain"
	"go.uber.org/zap"
)

// Handlers holds the application services the handlers use.
type Handlers struct {
	auth     *app.AuthService
	payments *app.PaymentService
	admin    *app.AdminService
	cookies  CookieConfig
	logger   *zap.Logger
}

// NewHandlers creates a new instance of Handlers.
func NewHandlers(auth *app.AuthService, payments *app.PaymentService, admin *app.AdminService, cookies CookieConfig, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		auth:     auth,
		payments: payments,
		admin:    admin,
		cookies:  cookies,
		logger:   logger.With(zap.String("component", "api")),
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type verifyResponse struct {
	Reference       string          `json:"reference"`
	Status          string          `json:"status"`
	Amount          decimal.Decimal `json:"amount"`
	GatewayResponse string          `json:"gateway_response,omitempty"`
}

// decodeJSON reads a JSON body into dst and answers 400 when it cannot.
func (h *Handlers) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// SignupHandler registers a new user.
func (h *Handlers) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.SignupRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	user, err := h.auth.Signup(r.Context(), req)
	if err != nil {
		respondError(w, h.logger, "signup", err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// LoginHandler accepts the form fields username and password and sets the session cookies.
func (h *Handlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid form body")
		return
	}
	_, pair, err := h.auth.Login(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		respondError(w, h.logger, "login", err)
		return
	}
	h.cookies.setAccess(w, pair.AccessToken)
	h.cookies.setRefresh(w, pair.RefreshToken)
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, TokenType: pair.TokenType})
}

// RefreshHandler issues a new access token from the refresh cookie.
func (h *Handlers) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	pair, err := h.auth.Refresh(r.Context(), cookieValue(r, refreshTokenCookie))
	if err != nil {
		respondError(w, h.logger, "refresh", err)
		return
	}
	h.cookies.setAccess(w, pair.AccessToken)
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, TokenType: pair.TokenType})
}

// LogoutHandler ends the session and clears both cookies.
func (h *Handlers) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, msgCouldNotValidate)
		return
	}
	if err := h.auth.Logout(r.Context(), user.ID); err != nil {
		respondError(w, h.logger, "logout", err)
		return
	}
	h.cookies.clear(w)
	writeMessage(w, http.StatusOK, "Logged out")
}

// MeHandler returns the authenticated user.
func (h *Handlers) MeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, msgCouldNotValidate)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// InitiateUSSDHandler starts a mobile money charge.
func (h *Handlers) InitiateUSSDHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.USSDChargeRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.payments.InitiateUSSDCharge(r.Context(), req)
	if err != nil {
		respondError(w, h.logger, "ussd_charge", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// SubmitOTPHandler completes a pending charge with the payer's OTP.
func (h *Handlers) SubmitOTPHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.OTPRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.payments.SubmitOTP(r.Context(), req)
	if err != nil {
		respondError(w, h.logger, "ussd_otp", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// VerifyTransactionHandler asks the gateway for the state of a reference.
func (h *Handlers) VerifyTransactionHandler(w http.ResponseWriter, r *http.Request) {
	reference := strings.TrimSpace(chi.URLParam(r, "reference"))
	result, err := h.payments.VerifyTransaction(r.Context(), reference)
	if err != nil {
		respondError(w, h.logger, "verify_transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{
		Reference:       result.Reference,
		Status:          result.Status,
		Amount:          result.Amount,
		GatewayResponse: result.GatewayResp,
	})
}
