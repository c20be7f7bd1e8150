/**
 * @description
 * This file sets up the HTTP router for the schoolfees-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies the
 * middleware for authentication, role checks, rate limiting and CORS.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS for the browser dashboard, with credentials for the cookies.
 * - github.com/prometheus/client_golang: The /metrics endpoint.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/transfa/schoolfees-service/internal/app"
	"github.com/transfa/schoolfees-service/internal/domain"
)

// RouterConfig carries the router-level settings that are not part of a handler.
// USSD charges are limited per client IP and per phone number, OTP submissions per charge reference.
type RouterConfig struct {
	AllowedOrigins   []string
	RateLimiter      app.RateLimiter
	LoginLimitPerMin int
	USSDLimitPerMin  int
	USSDPhoneLimit   int
	USSDPhoneWindow  time.Duration
	OTPAttemptLimit  int
	OTPAttemptWindow time.Duration
}

// Routes creates and returns the router for the schoolfees-service.
func Routes(h *Handlers, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})
	r.Handle("/metrics", promhttp.Handler())

	authenticated := CookieAuthMiddleware(h.auth, h.cookies, h.logger)
	superAdmin := RequireRole(domain.RoleSuperAdmin)
	staff := RequireRole(domain.RoleSuperAdmin, domain.RoleAdmin)

	loginLimit := RateLimit(cfg.RateLimiter, RateLimitRule{
		Scope: app.ScopeLogin, Limit: cfg.LoginLimitPerMin, Window: time.Minute, Subject: LoginSubject,
	}, h.logger)
	ussdClientLimit := RateLimit(cfg.RateLimiter, RateLimitRule{
		Scope: app.ScopeUSSDClient, Limit: cfg.USSDLimitPerMin, Window: time.Minute, Subject: ClientIP,
	}, h.logger)
	ussdPhoneLimit := RateLimit(cfg.RateLimiter, RateLimitRule{
		Scope: app.ScopeUSSDPhone, Limit: cfg.USSDPhoneLimit, Window: windowOrMinute(cfg.USSDPhoneWindow), Subject: PhoneSubject,
	}, h.logger)
	otpLimit := RateLimit(cfg.RateLimiter, RateLimitRule{
		Scope: app.ScopeOTP, Limit: cfg.OTPAttemptLimit, Window: windowOrMinute(cfg.OTPAttemptWindow), Subject: ChargeSubject,
	}, h.logger)

	r.Route("/paystack", func(r chi.Router) {
		r.Post("/webhook", h.PaystackWebhookHandler)
		r.With(ussdClientLimit, ussdPhoneLimit).Post("/ussd", h.InitiateUSSDHandler)
		r.With(ussdClientLimit, otpLimit).Post("/ussd/otp", h.SubmitOTPHandler)
		r.With(authenticated, superAdmin).Get("/transactions/{reference}", h.VerifyTransactionHandler)
	})

	r.Route("/users", func(r chi.Router) {
		r.Post("/signup", h.SignupHandler)
		r.With(loginLimit).Post("/login", h.LoginHandler)
		r.Post("/login/refresh", h.RefreshHandler)
		r.With(authenticated).Post("/logout", h.LogoutHandler)
		r.With(authenticated).Get("/me", h.MeHandler)
	})

	// Group routes that require a session.
	r.Group(func(r chi.Router) {
		r.Use(authenticated)

		r.Route("/schools", func(r chi.Router) {
			r.Get("/", h.ListSchoolsHandler)
			r.Get("/{id}", h.GetSchoolHandler)
			r.With(staff).Post("/", h.CreateSchoolHandler)
			r.With(staff).Put("/{id}", h.UpdateSchoolHandler)
			r.With(staff).Delete("/{id}", h.DeleteSchoolHandler)
		})

		r.Route("/students", func(r chi.Router) {
			r.Get("/", h.ListStudentsHandler)
			r.Get("/{id}", h.GetStudentHandler)
			r.Get("/index/{index_number}", h.GetStudentByIndexHandler)
			r.With(staff).Post("/", h.CreateStudentHandler)
			r.With(staff).Put("/{id}", h.UpdateStudentHandler)
			r.With(staff).Delete("/{id}", h.DeleteStudentHandler)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/", h.ListPaymentsHandler)
			r.With(superAdmin).Post("/", h.CreatePaymentHandler)
			r.Get("/{id}", h.GetPaymentHandler)
			r.Get("/reference/{reference}", h.GetPaymentByReferenceHandler)
			r.With(superAdmin).Delete("/{id}", h.DeletePaymentHandler)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", h.ListTransactionsHandler)
			r.Get("/{id}", h.GetTransactionHandler)
			r.With(superAdmin).Post("/", h.CreateTransactionHandler)
			r.With(superAdmin).Put("/{id}", h.UpdateTransactionHandler)
			r.With(superAdmin).Delete("/{id}", h.DeleteTransactionHandler)
		})

		// Platform administration is reserved for super admins.
		r.Group(func(r chi.Router) {
			r.Use(superAdmin)

			r.Route("/roles", func(r chi.Router) {
				r.Get("/", h.ListRolesHandler)
				r.Post("/", h.CreateRoleHandler)
				r.Get("/{id}", h.GetRoleHandler)
				r.Put("/{id}", h.UpdateRoleHandler)
				r.Delete("/{id}", h.DeleteRoleHandler)
				r.Get("/{id}/users", h.ListRoleMembersHandler)
			})

			r.Route("/user-roles", func(r chi.Router) {
				r.Post("/", h.AssignUserRoleHandler)
				r.Delete("/{user_id}/{role_id}", h.RevokeUserRoleHandler)
			})

			r.Route("/settings/admin", func(r chi.Router) {
				r.Get("/", h.ListSettingsHandler)
				r.Get("/search", h.ListSettingsHandler)
				r.Post("/", h.CreateSettingHandler)
				r.Get("/{key}", h.GetSettingHandler)
				r.Put("/{key}", h.UpdateSettingHandler)
				r.Delete("/{key}", h.DeleteSettingHandler)
			})

			r.Route("/wallets/schools", func(r chi.Router) {
				r.Get("/", h.ListSchoolWalletsHandler)
				r.Post("/", h.CreateSchoolWalletHandler)
				r.Get("/school/{school_id}", h.GetSchoolWalletBySchoolHandler)
				r.Get("/{id}", h.GetSchoolWalletHandler)
				r.Put("/{id}", h.UpdateSchoolWalletHandler)
				r.Delete("/{id}", h.DeleteSchoolWalletHandler)
			})

			r.Route("/wallets/admin", func(r chi.Router) {
				r.Get("/", h.ListAdminWalletsHandler)
				r.Post("/", h.CreateAdminWalletHandler)
				r.Get("/search", h.SearchAdminWalletHandler)
				r.Get("/{id}", h.GetAdminWalletHandler)
				r.Put("/{id}/balance", h.UpdateAdminWalletBalanceHandler)
				r.Delete("/{id}", h.DeleteAdminWalletHandler)
			})

			r.Route("/wallets/super-admin", func(r chi.Router) {
				r.Get("/", h.ListSuperAdminWalletsHandler)
				r.Post("/", h.CreateSuperAdminWalletHandler)
				r.Get("/wallet/{user_id}", h.GetSuperAdminWalletHandler)
				r.Put("/wallet/{user_id}", h.UpdateSuperAdminWalletHandler)
				r.Delete("/wallet/{user_id}", h.DeleteSuperAdminWalletHandler)
			})
		})
	})

	return r
}

func windowOrMinute(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Minute
	}
	return d
}
