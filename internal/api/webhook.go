package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/transfa/schoolfees-service/internal/app"
	"github.com/transfa/schoolfees-service/pkg/paystackclient"
	"go.uber.org/zap"
)

const (
	maxWebhookBodyBytes = 1 << 20
	signatureHeader     = "x-paystack-signature"
)

// PaystackWebhookHandler verifies and applies a Paystack event. Once the signature checks out
// the gateway always gets a 200, so a permanent data error is not retried forever.
func (h *Handlers) PaystackWebhookHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		h.logger.Warn("webhook body rejected", zap.String("endpoint", "webhook"), zap.Error(err))
		writeError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	if !h.payments.VerifyWebhookSignature(body, r.Header.Get(signatureHeader)) {
		h.logger.Warn("webhook signature mismatch", zap.String("endpoint", "webhook"), zap.String("outcome", "reject"))
		writeError(w, http.StatusBadRequest, "Invalid signature")
		return
	}

	var event paystackclient.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		h.logger.Warn("webhook payload malformed", zap.String("endpoint", "webhook"), zap.Error(err))
		writeError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	if !event.IsChargeEvent() {
		h.logger.Info("webhook event ignored", zap.String("event", event.Event))
		writeMessage(w, http.StatusOK, "Webhook received")
		return
	}

	outcome, err := h.payments.SettleCharge(r.Context(), event)
	if err != nil {
		writeMessage(w, http.StatusOK, "processing error")
		return
	}
	if outcome == app.SettlementSettled {
		writeMessage(w, http.StatusOK, "Webhook received successfully")
		return
	}
	writeMessage(w, http.StatusOK, "Webhook received")
}
