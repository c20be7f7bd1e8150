/**
 * @description
 * This file contains the payment logic of the schoolfees-service: starting a mobile money
 * USSD charge through Paystack, completing it with an OTP, and settling the charge when
 * Paystack reports it through the webhook.
 *
 * Key features:
 * - The 80/20 school/admin split is computed when the charge is initiated and carried in
 *   the charge metadata. Settlement only checks that the carried amounts add up.
 * - Settlement is idempotent per gateway reference. A replayed webhook changes nothing.
 * - `payment.settled` is published after commit on a best-effort basis.
 *
 * @dependencies
 * - github.com/shopspring/decimal: Money arithmetic.
 * - internal/store: Settlement persistence.
 * - pkg/paystackclient: Gateway calls and webhook payloads.
 * - pkg/rabbitmq: Event publishing.
 * - go.uber.org/zap: Structured logging.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/transfa/schoolfees-service/internal/domain"
	"github.com/transfa/schoolfees-service/internal/metrics"
	"github.com/transfa/schoolfees-service/internal/store"
	"github.com/transfa/schoolfees-service/pkg/paystackclient"
	"github.com/transfa/schoolfees-service/pkg/rabbitmq"
	"go.uber.org/zap"
)

// PaymentGateway is the subset of the Paystack client the payment flow needs.
type PaymentGateway interface {
	InitiateUSSDCharge(ctx context.Context, req paystackclient.ChargeRequest) (*paystackclient.ChargeResult, error)
	SubmitOTP(ctx context.Context, reference, otp string) (*paystackclient.ChargeResult, error)
	VerifyTransaction(ctx context.Context, reference string) (*paystackclient.ChargeResult, error)
	VerifySignature(rawBody []byte, signature string) bool
}

// SettlementOutcome describes what a webhook delivery did.
type SettlementOutcome string

const (
	SettlementSettled   SettlementOutcome = "settled"
	SettlementDuplicate SettlementOutcome = "duplicate"
	SettlementIgnored   SettlementOutcome = "ignored"
)

// PaymentServiceConfig carries the settings the payment flow reads.
type PaymentServiceConfig struct {
	AdminWalletID  uuid.UUID
	DefaultEmail   string
	EventsExchange string
}

// PaymentService orchestrates USSD charges and webhook settlement.
type PaymentService struct {
	repo      store.Repository
	gateway   PaymentGateway
	publisher rabbitmq.Publisher
	cfg       PaymentServiceConfig
	logger    *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewPaymentService(repo store.Repository, gateway PaymentGateway, publisher rabbitmq.Publisher, cfg PaymentServiceConfig, logger *zap.Logger, m *metrics.Metrics) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = &rabbitmq.EventProducerFallback{Logger: logger}
	}
	return &PaymentService{
		repo:      repo,
		gateway:   gateway,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.With(zap.String("component", "payment_service")),
		metrics:   m,
		now:       time.Now,
	}
}

// InitiateUSSDCharge validates the request, splits the amount and starts the charge.
func (s *PaymentService) InitiateUSSDCharge(ctx context.Context, req domain.USSDChargeRequest) (*domain.ChargeResponse, error) {
	phone := strings.TrimSpace(req.PhoneNumber)
	if phone == "" {
		return nil, validationError("phone_number is required")
	}
	if req.SchoolID == uuid.Nil {
		return nil, validationError("school_id is required")
	}
	if strings.TrimSpace(req.SchoolName) == "" || strings.TrimSpace(req.StudentName) == "" {
		return nil, validationError("school_name and student_name are required")
	}
	if !req.Amount.IsPositive() {
		return nil, validationError("amount must be greater than zero")
	}
	amount := req.Amount.Round(2)
	if !amount.Equal(req.Amount) {
		return nil, validationError("amount must have at most two decimal places")
	}
	provider, err := domain.ParseNetworkProvider(req.Provider)
	if err != nil {
		return nil, validationError("provider must be one of MTN, ATL or VOD")
	}
	email := strings.TrimSpace(req.Email)
	if email == "" {
		email = s.cfg.DefaultEmail
	}
	if email == "" {
		return nil, validationError("email is required")
	}

	schoolAmount, adminAmount := domain.SplitAmount(amount)
	reference := domain.NewChargeReference(phone, req.SchoolID.String(), s.now())

	fields := []paystackclient.CustomField{
		customField(domain.MetaStudentName, strings.TrimSpace(req.StudentName)),
		customField(domain.MetaSchoolName, strings.TrimSpace(req.SchoolName)),
		customField(domain.MetaSchoolID, req.SchoolID.String()),
		customField(domain.MetaAmountPaid, amount.StringFixed(2)),
		customField(domain.MetaSchoolAmount, schoolAmount.StringFixed(2)),
		customField(domain.MetaAdminAmount, adminAmount.StringFixed(2)),
		customField(domain.MetaPhoneNumber, phone),
	}
	if req.StudentID != nil {
		fields = append(fields, customField(domain.MetaStudentID, req.StudentID.String()))
	}

	started := time.Now()
	result, err := s.gateway.InitiateUSSDCharge(ctx, paystackclient.ChargeRequest{
		Email:     email,
		Phone:     phone,
		Provider:  string(provider),
		Amount:    amount,
		Reference: reference,
		Metadata:  paystackclient.Metadata{CustomFields: fields},
	})
	s.metrics.GatewayCall("charge", gatewayResult(err), time.Since(started))
	if err != nil {
		s.logger.Warn("ussd charge failed",
			zap.String("reference", reference),
			zap.String("school_id", req.SchoolID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("ussd charge initiated",
		zap.String("reference", result.Reference),
		zap.String("status", result.Status),
		zap.String("amount", amount.StringFixed(2)),
	)
	return chargeResponse(result, reference), nil
}

// SubmitOTP completes a charge that is waiting for the payer's one-time password.
func (s *PaymentService) SubmitOTP(ctx context.Context, req domain.OTPRequest) (*domain.ChargeResponse, error) {
	reference := strings.TrimSpace(req.Reference)
	otp := strings.TrimSpace(req.OTP)
	if reference == "" || otp == "" {
		return nil, validationError("reference and otp are required")
	}

	started := time.Now()
	result, err := s.gateway.SubmitOTP(ctx, reference, otp)
	s.metrics.GatewayCall("submit_otp", gatewayResult(err), time.Since(started))
	if err != nil {
		s.logger.Warn("otp submission failed", zap.String("reference", reference), zap.Error(err))
		return nil, err
	}
	return chargeResponse(result, reference), nil
}

// VerifyTransaction returns the gateway's view of a transaction.
func (s *PaymentService) VerifyTransaction(ctx context.Context, reference string) (*paystackclient.ChargeResult, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, validationError("reference is required")
	}
	started := time.Now()
	result, err := s.gateway.VerifyTransaction(ctx, reference)
	s.metrics.GatewayCall("verify", gatewayResult(err), time.Since(started))
	return result, err
}

// VerifyWebhookSignature checks a webhook body against its signature header.
func (s *PaymentService) VerifyWebhookSignature(rawBody []byte, signature string) bool {
	ok := s.gateway.VerifySignature(rawBody, signature)
	if !ok {
		s.metrics.Settlement(metrics.OutcomeBadSignature)
	}
	return ok
}

// SettleCharge applies a verified charge event. Only charge.success moves money.
func (s *PaymentService) SettleCharge(ctx context.Context, event paystackclient.WebhookEvent) (SettlementOutcome, error) {
	reference := strings.TrimSpace(event.Data.Reference)
	if event.Event != paystackclient.EventChargeSuccess {
		s.logger.Info("charge event acknowledged without settlement",
			zap.String("event", event.Event),
			zap.String("reference", reference),
			zap.String("outcome", string(SettlementIgnored)),
		)
		s.metrics.Settlement(metrics.OutcomeIgnored)
		return SettlementIgnored, nil
	}

	settlement, err := s.buildSettlement(event)
	if err != nil {
		s.logger.Error("rejected charge event",
			zap.String("reference", reference),
			zap.String("outcome", metrics.OutcomeInvalid),
			zap.Error(err),
		)
		s.metrics.Settlement(metrics.OutcomeInvalid)
		return "", err
	}

	payment, err := s.repo.SettlePayment(ctx, settlement)
	if err != nil {
		if errors.Is(err, store.ErrAlreadySettled) {
			s.logger.Info("charge already settled",
				zap.String("reference", reference),
				zap.String("outcome", string(SettlementDuplicate)),
			)
			s.metrics.Settlement(metrics.OutcomeDuplicate)
			return SettlementDuplicate, nil
		}
		s.logger.Error("settlement failed",
			zap.String("reference", reference),
			zap.String("school_id", settlement.SchoolID.String()),
			zap.String("outcome", metrics.OutcomeFailed),
			zap.Error(err),
		)
		s.metrics.Settlement(metrics.OutcomeFailed)
		return "", err
	}

	s.metrics.Settlement(metrics.OutcomeSettled)
	s.logger.Info("charge settled",
		zap.String("reference", reference),
		zap.String("payment_id", payment.ID.String()),
		zap.String("school_id", settlement.SchoolID.String()),
		zap.String("total", settlement.TotalAmount.StringFixed(2)),
		zap.String("outcome", string(SettlementSettled)),
	)

	evt := domain.PaymentSettledEvent{
		PaymentID:    payment.ID,
		Reference:    settlement.Reference,
		SchoolID:     settlement.SchoolID,
		StudentName:  settlement.StudentName,
		TotalAmount:  settlement.TotalAmount,
		SchoolAmount: settlement.SchoolAmount,
		AdminAmount:  settlement.AdminAmount,
		Currency:     domain.Currency,
		SettledAt:    settlement.PaidAt,
	}
	if err := s.publisher.Publish(ctx, s.cfg.EventsExchange, domain.RoutingKeyPaymentSettled, evt); err != nil {
		s.logger.Warn("failed to publish settlement event", zap.String("reference", reference), zap.Error(err))
	}
	return SettlementSettled, nil
}

// buildSettlement reads the charge metadata and checks the split before anything is written.
func (s *PaymentService) buildSettlement(event paystackclient.WebhookEvent) (domain.Settlement, error) {
	data := event.Data
	meta := data.Metadata

	reference := strings.TrimSpace(data.Reference)
	if reference == "" {
		return domain.Settlement{}, fmt.Errorf("%w: missing reference", ErrInvalidSettlement)
	}

	total, err := metaAmount(meta, domain.MetaAmountPaid)
	if err != nil {
		return domain.Settlement{}, err
	}
	schoolAmount, err := metaAmount(meta, domain.MetaSchoolAmount)
	if err != nil {
		return domain.Settlement{}, err
	}
	adminAmount, err := metaAmount(meta, domain.MetaAdminAmount)
	if err != nil {
		return domain.Settlement{}, err
	}
	if !schoolAmount.Add(adminAmount).Equal(total) {
		return domain.Settlement{}, fmt.Errorf("%w: school %s + admin %s != total %s",
			ErrSettlementMismatch, schoolAmount.String(), adminAmount.String(), total.String())
	}
	if expected, _ := domain.SplitAmount(total); !schoolAmount.Equal(expected) {
		return domain.Settlement{}, fmt.Errorf("%w: school share %s is not 80%% of %s",
			ErrSettlementMismatch, schoolAmount.String(), total.String())
	}
	if data.Amount > 0 {
		if charged := paystackclient.FromPesewas(data.Amount); !charged.Equal(total) {
			return domain.Settlement{}, fmt.Errorf("%w: charged %s but metadata says %s",
				ErrSettlementMismatch, charged.String(), total.String())
		}
	}

	rawSchoolID, _ := meta.Field(domain.MetaSchoolID)
	schoolID, err := uuid.Parse(strings.TrimSpace(rawSchoolID))
	if err != nil {
		return domain.Settlement{}, fmt.Errorf("%w: school id %q is not a uuid", ErrInvalidSettlement, rawSchoolID)
	}

	var studentID *uuid.UUID
	if raw, ok := meta.Field(domain.MetaStudentID); ok && strings.TrimSpace(raw) != "" {
		parsed, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			return domain.Settlement{}, fmt.Errorf("%w: student id %q is not a uuid", ErrInvalidSettlement, raw)
		}
		studentID = &parsed
	}

	if s.cfg.AdminWalletID == uuid.Nil {
		return domain.Settlement{}, ErrAdminWalletNotConfigured
	}

	paidAt := s.now().UTC()
	if data.PaidAt != nil && !data.PaidAt.IsZero() {
		paidAt = data.PaidAt.UTC()
	}

	schoolName, _ := meta.Field(domain.MetaSchoolName)
	studentName, _ := meta.Field(domain.MetaStudentName)
	phone, _ := meta.Field(domain.MetaPhoneNumber)

	return domain.Settlement{
		Reference:     reference,
		SchoolID:      schoolID,
		SchoolName:    strings.TrimSpace(schoolName),
		StudentID:     studentID,
		StudentName:   strings.TrimSpace(studentName),
		PhoneNumber:   strings.TrimSpace(phone),
		TotalAmount:   total,
		SchoolAmount:  schoolAmount,
		AdminAmount:   adminAmount,
		AdminWalletID: s.cfg.AdminWalletID,
		PaidAt:        paidAt,
	}, nil
}

func metaAmount(meta paystackclient.Metadata, name string) (decimal.Decimal, error) {
	raw, ok := meta.Field(name)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: missing %q", ErrInvalidSettlement, name)
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q is not a number", ErrInvalidSettlement, name)
	}
	if !amount.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("%w: %q must be greater than zero", ErrSettlementMismatch, name)
	}
	return amount, nil
}

func customField(name, value string) paystackclient.CustomField {
	return paystackclient.CustomField{DisplayName: name, VariableName: name, Value: value}
}

func chargeResponse(result *paystackclient.ChargeResult, fallbackReference string) *domain.ChargeResponse {
	reference := result.Reference
	if reference == "" {
		reference = fallbackReference
	}
	return &domain.ChargeResponse{Reference: reference, Status: result.Status, DisplayText: result.DisplayText}
}

func gatewayResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, paystackclient.ErrGatewayTimeout):
		return "timeout"
	case errors.Is(err, paystackclient.ErrGatewayError):
		return "error"
	default:
		return "rejected"
	}
}
