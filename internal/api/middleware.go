/**
 * @description
 * This file contains the custom middleware of the schoolfees-service: cookie session
 * authentication, the role gate, and Redis-backed rate limiting for the public endpoints.
 *
 * @dependencies
 * - internal/app: Session resolution and the rate limiter contract.
 * - go.uber.org/zap: Structured logging.
 */

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/transfa/schoolfees-service/internal/app"
	"github.com/transfa/schoolfees-service/internal/domain"
	"go.uber.org/zap"
)

const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const currentUserKey contextKey = "currentUser"

// Authenticator resolves the user behind a pair of session cookies.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken, refreshToken string) (*app.Session, error)
}

// CookieConfig controls the attributes of the session cookies.
type CookieConfig struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (c CookieConfig) setAccess(w http.ResponseWriter, token string) {
	http.SetCookie(w, c.cookie(accessTokenCookie, token, int(c.AccessTTL.Seconds())))
}

func (c CookieConfig) setRefresh(w http.ResponseWriter, token string) {
	http.SetCookie(w, c.cookie(refreshTokenCookie, token, int(c.RefreshTTL.Seconds())))
}

func (c CookieConfig) clear(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(accessTokenCookie, "", -1))
	http.SetCookie(w, c.cookie(refreshTokenCookie, "", -1))
}

func (c CookieConfig) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// CookieAuthMiddleware authenticates requests from the access/refresh cookie pair and puts
// the user into the request context. A silently refreshed access token is sent back as a cookie.
func CookieAuthMiddleware(authenticator Authenticator, cookies CookieConfig, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := authenticator.Authenticate(r.Context(), cookieValue(r, accessTokenCookie), cookieValue(r, refreshTokenCookie))
			if err != nil {
				respondError(w, logger, "auth_middleware", err)
				return
			}
			if session.RefreshedAccessToken != "" {
				cookies.setAccess(w, session.RefreshedAccessToken)
			}
			ctx := context.WithValue(r.Context(), currentUserKey, session.User)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CurrentUser returns the authenticated user stored by CookieAuthMiddleware.
func CurrentUser(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(currentUserKey).(*domain.User)
	return user, ok && user != nil
}

// RequireRole lets the request through when the user holds any of the given roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := CurrentUser(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, msgCouldNotValidate)
				return
			}
			for _, role := range roles {
				if user.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, msgForbidden)
		})
	}
}

// RateLimitRule describes one fixed-window limit.
type RateLimitRule struct {
	Scope   string
	Limit   int
	Window  time.Duration
	Subject func(r *http.Request) string
}

// RateLimit rejects requests over the rule's limit with 429 and a Retry-After header.
// When the limiter itself fails the request is let through and the failure logged.
func RateLimit(limiter app.RateLimiter, rule RateLimitRule, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || rule.Limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := rule.Subject(r)
			count, retryAfter, err := limiter.ConsumeRateLimit(r.Context(), rule.Scope, subject, rule.Limit, rule.Window)
			if err != nil {
				logger.Warn("rate limiter unavailable", zap.String("scope", rule.Scope), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if count > rule.Limit {
				logger.Info("rate limit exceeded",
					zap.String("scope", rule.Scope),
					zap.String("outcome", "reject"),
					zap.Int("count", count),
				)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeError(w, http.StatusTooManyRequests, msgRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP is the rate limit subject for anonymous endpoints.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// LoginSubject limits login attempts per submitted username, falling back to the client IP.
func LoginSubject(r *http.Request) string {
	if subject := app.UsernameSubject(r.PostFormValue("username")); subject != "" {
		return subject
	}
	return "ip:" + ClientIP(r)
}

// PhoneSubject limits USSD charges per mobile money number, falling back to the client IP.
func PhoneSubject(r *http.Request) string {
	if subject := app.PhoneSubject(peekJSONString(r, "phone_number")); subject != "" {
		return subject
	}
	return "ip:" + ClientIP(r)
}

// ChargeSubject limits OTP submissions per charge reference, falling back to the client IP.
func ChargeSubject(r *http.Request) string {
	if subject := app.ChargeSubject(peekJSONString(r, "reference")); subject != "" {
		return subject
	}
	return "ip:" + ClientIP(r)
}

const maxPeekBytes = 64 << 10

// peekJSONString reads a top-level string field from a JSON body and leaves the body
// intact for the handler.
func peekJSONString(r *http.Request, field string) string {
	if r.Body == nil {
		return ""
	}
	buf, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBytes))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(buf), r.Body), r.Body}
	if err != nil {
		return ""
	}
	var fields map[string]json.RawMessage
	if json.Unmarshal(buf, &fields) != nil {
		return ""
	}
	var value string
	if json.Unmarshal(fields[field], &value) != nil {
		return ""
	}
	return value
}
