/**
 * @description
 * JSON response helpers and the single place where service and store errors become HTTP
 * status codes. Client-facing messages never carry driver or gateway internals; the full
 * error is logged instead.
 */

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/transfa/schoolfees-service/internal/app"
	"github.com/transfa/schoolfees-service/internal/store"
	"github.com/transfa/schoolfees-service/pkg/paystackclient"
	"go.uber.org/zap"
)

const (
	msgInternalError      = "Internal server error"
	msgCouldNotValidate   = "Could not validate credentials"
	msgInvalidCredentials = "Invalid credentials"
	msgIncorrectLogin     = "Incorrect username or password"
	msgForbidden          = "Insufficient permissions"
	msgRateLimited        = "Too many requests. Please wait and try again."
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// statusForError maps an error onto the response status and client message.
func statusForError(err error) (int, string) {
	var gwErr *paystackclient.GatewayError

	switch {
	case errors.Is(err, app.ErrValidation):
		return http.StatusBadRequest, strings.TrimPrefix(err.Error(), app.ErrValidation.Error()+": ")
	case errors.Is(err, store.ErrInvalidSearchCriteria):
		return http.StatusBadRequest, store.ErrInvalidSearchCriteria.Error()
	case errors.Is(err, store.ErrInvalidData):
		return http.StatusBadRequest, "Invalid data"
	case errors.Is(err, store.ErrForeignKeyViolation):
		return http.StatusBadRequest, "Referenced record does not exist"
	case errors.Is(err, paystackclient.ErrBelowMinimumAmount),
		errors.Is(err, paystackclient.ErrAboveMaximumAmount),
		errors.Is(err, paystackclient.ErrInvalidProvider),
		errors.Is(err, paystackclient.ErrIncorrectOTP):
		if errors.As(err, &gwErr) && gwErr.Message != "" {
			return http.StatusBadRequest, gwErr.Message
		}
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, app.ErrIncorrectCredentials):
		return http.StatusUnauthorized, msgIncorrectLogin
	case errors.Is(err, app.ErrMissingCredentials):
		return http.StatusUnauthorized, msgCouldNotValidate
	case errors.Is(err, app.ErrInvalidCredentials):
		return http.StatusUnauthorized, msgInvalidCredentials
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, store.ErrAlreadyExists):
		return http.StatusConflict, "Already exists"
	case errors.Is(err, paystackclient.ErrGatewayTimeout):
		return http.StatusGatewayTimeout, "Payment gateway timed out"
	case errors.Is(err, paystackclient.ErrGatewayError):
		return http.StatusBadGateway, "Payment gateway error"
	default:
		return http.StatusInternalServerError, msgInternalError
	}
}

// respondError writes the mapped error. Server-side failures are logged with the endpoint.
func respondError(w http.ResponseWriter, logger *zap.Logger, endpoint string, err error) {
	status, message := statusForError(err)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", zap.String("endpoint", endpoint), zap.Int("status", status), zap.Error(err))
	case status == http.StatusUnauthorized:
		logger.Info("request rejected", zap.String("endpoint", endpoint), zap.String("reason", "unauthorized"), zap.Error(err))
	default:
		logger.Debug("request rejected", zap.String("endpoint", endpoint), zap.Int("status", status), zap.Error(err))
	}
	writeError(w, status, message)
}
