package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/transfa/schoolfees-service/internal/domain"
	"github.com/transfa/schoolfees-service/internal/store"
	"github.com/transfa/schoolfees-service/pkg/paystackclient"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var testAdminWalletID = uuid.MustParse("7b0f3c8e-2d2a-4a57-9d7e-1f1f6f0c0a11")

func newTestPaymentService(repo *repoStub, gateway *gatewayStub, publisher *recordingPublisher, logger *zap.Logger) *PaymentService {
	if publisher == nil {
		publisher = &recordingPublisher{}
	}
	return NewPaymentService(repo, gateway, publisher, PaymentServiceConfig{
		AdminWalletID:  testAdminWalletID,
		DefaultEmail:   "payments@schoolfees.test",
		EventsExchange: "schoolfees.events",
	}, logger, nil)
}

func chargeEvent(eventType, total, school, admin string, schoolID string) paystackclient.WebhookEvent {
	return paystackclient.WebhookEvent{
		Event: eventType,
		Data: paystackclient.ChargeData{
			Reference: "ref-123",
			Status:    "success",
			Metadata: paystackclient.Metadata{CustomFields: []paystackclient.CustomField{
				customField(domain.MetaStudentName, "Kwame"),
				customField(domain.MetaSchoolName, "Achimota"),
				customField(domain.MetaSchoolID, schoolID),
				customField(domain.MetaAmountPaid, total),
				customField(domain.MetaSchoolAmount, school),
				customField(domain.MetaAdminAmount, admin),
				customField(domain.MetaPhoneNumber, "0551234987"),
			}},
		},
	}
}

func TestInitiateUSSDChargeBuildsSplitMetadata(t *testing.T) {
	gateway := &gatewayStub{}
	svc := newTestPaymentService(newRepoStub(), gateway, nil, nil)
	schoolID := uuid.New()
	studentID := uuid.New()

	resp, err := svc.InitiateUSSDCharge(context.Background(), domain.USSDChargeRequest{
		PhoneNumber: "0551234987",
		Amount:      decimal.RequireFromString("10.00"),
		SchoolID:    schoolID,
		SchoolName:  "Achimota",
		StudentName: "Kwame",
		StudentID:   &studentID,
		Provider:    "MTN",
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if resp.Status != "send_otp" || resp.Reference == "" {
		t.Fatalf("unexpected response %+v", resp)
	}

	if len(gateway.chargeRequests) != 1 {
		t.Fatalf("expected one gateway call, got %d", len(gateway.chargeRequests))
	}
	req := gateway.chargeRequests[0]
	if req.Provider != "mtn" || req.Email != "payments@schoolfees.test" {
		t.Fatalf("expected provider code and default email, got %q %q", req.Provider, req.Email)
	}

	want := map[string]string{
		domain.MetaAmountPaid:   "10.00",
		domain.MetaSchoolAmount: "8.00",
		domain.MetaAdminAmount:  "2.00",
		domain.MetaSchoolID:     schoolID.String(),
		domain.MetaStudentID:    studentID.String(),
		domain.MetaPhoneNumber:  "0551234987",
	}
	for name, value := range want {
		if got, ok := req.Metadata.Field(name); !ok || got != value {
			t.Fatalf("expected metadata %q=%q, got %q", name, value, got)
		}
	}
}

func TestInitiateUSSDChargeValidation(t *testing.T) {
	valid := domain.USSDChargeRequest{
		PhoneNumber: "0551234987",
		Amount:      decimal.RequireFromString("10"),
		SchoolID:    uuid.New(),
		SchoolName:  "Achimota",
		StudentName: "Kwame",
		Provider:    "VOD",
	}

	tests := []struct {
		name   string
		mutate func(*domain.USSDChargeRequest)
	}{
		{name: "unknown provider", mutate: func(r *domain.USSDChargeRequest) { r.Provider = "GLO" }},
		{name: "missing phone", mutate: func(r *domain.USSDChargeRequest) { r.PhoneNumber = " " }},
		{name: "zero amount", mutate: func(r *domain.USSDChargeRequest) { r.Amount = decimal.Zero }},
		{name: "sub-pesewa amount", mutate: func(r *domain.USSDChargeRequest) { r.Amount = decimal.RequireFromString("10.005") }},
		{name: "missing school", mutate: func(r *domain.USSDChargeRequest) { r.SchoolID = uuid.Nil }},
		{name: "missing student name", mutate: func(r *domain.USSDChargeRequest) { r.StudentName = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway := &gatewayStub{}
			svc := newTestPaymentService(newRepoStub(), gateway, nil, nil)
			req := valid
			tt.mutate(&req)
			if _, err := svc.InitiateUSSDCharge(context.Background(), req); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if len(gateway.chargeRequests) != 0 {
				t.Fatal("expected no gateway call for invalid input")
			}
		})
	}
}

func TestInitiateUSSDChargePropagatesGatewayErrors(t *testing.T) {
	gateway := &gatewayStub{chargeErr: &paystackclient.GatewayError{Message: "Invalid provider", Kind: paystackclient.ErrInvalidProvider}}
	svc := newTestPaymentService(newRepoStub(), gateway, nil, nil)
	_, err := svc.InitiateUSSDCharge(context.Background(), domain.USSDChargeRequest{
		PhoneNumber: "0551234987",
		Amount:      decimal.RequireFromString("10"),
		SchoolID:    uuid.New(),
		SchoolName:  "Achimota",
		StudentName: "Kwame",
		Provider:    "ATL",
	})
	if !errors.Is(err, paystackclient.ErrInvalidProvider) {
		t.Fatalf("expected ErrInvalidProvider, got %v", err)
	}
}

func TestSubmitOTPRequiresReferenceAndOTP(t *testing.T) {
	svc := newTestPaymentService(newRepoStub(), &gatewayStub{}, nil, nil)
	if _, err := svc.SubmitOTP(context.Background(), domain.OTPRequest{Reference: "ref"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	resp, err := svc.SubmitOTP(context.Background(), domain.OTPRequest{Reference: "ref", OTP: "123456"})
	if err != nil || resp.Status != "pay_offline" {
		t.Fatalf("expected pay_offline, got %+v %v", resp, err)
	}
}

func TestSettleChargeSettlesAndPublishes(t *testing.T) {
	repo := newRepoStub()
	publisher := &recordingPublisher{}
	svc := newTestPaymentService(repo, &gatewayStub{}, publisher, nil)
	schoolID := uuid.New()
	paidAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	event := chargeEvent(paystackclient.EventChargeSuccess, "10.00", "8.00", "2.00", schoolID.String())
	event.Data.Amount = 1000
	event.Data.PaidAt = &paidAt

	outcome, err := svc.SettleCharge(context.Background(), event)
	if err != nil || outcome != SettlementSettled {
		t.Fatalf("expected settled, got %q %v", outcome, err)
	}
	if len(repo.settled) != 1 {
		t.Fatalf("expected one settlement, got %d", len(repo.settled))
	}
	s := repo.settled[0]
	if s.SchoolID != schoolID || s.AdminWalletID != testAdminWalletID || !s.PaidAt.Equal(paidAt) {
		t.Fatalf("unexpected settlement %+v", s)
	}
	if !s.SchoolAmount.Equal(decimal.RequireFromString("8")) || !s.AdminAmount.Equal(decimal.RequireFromString("2")) {
		t.Fatalf("unexpected split %s/%s", s.SchoolAmount, s.AdminAmount)
	}
	if len(publisher.events) != 1 || publisher.events[0].routingKey != domain.RoutingKeyPaymentSettled {
		t.Fatalf("expected one payment.settled event, got %+v", publisher.events)
	}
}

func TestSettleChargeMismatchWritesNothingAndLogsError(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	repo := newRepoStub()
	publisher := &recordingPublisher{}
	svc := newTestPaymentService(repo, &gatewayStub{}, publisher, zap.New(core))
	schoolID := uuid.New().String()

	tests := []struct {
		name    string
		event   paystackclient.WebhookEvent
		wantErr error
	}{
		{name: "split does not add up", event: chargeEvent(paystackclient.EventChargeSuccess, "10.00", "8.00", "1.00", schoolID), wantErr: ErrSettlementMismatch},
		{name: "zero admin share", event: chargeEvent(paystackclient.EventChargeSuccess, "10.00", "10.00", "0", schoolID), wantErr: ErrSettlementMismatch},
		{name: "split off 80/20", event: chargeEvent(paystackclient.EventChargeSuccess, "10.00", "5.00", "5.00", schoolID), wantErr: ErrSettlementMismatch},
		{name: "bad school id", event: chargeEvent(paystackclient.EventChargeSuccess, "10.00", "8.00", "2.00", "not-a-uuid"), wantErr: ErrInvalidSettlement},
		{name: "non numeric amount", event: chargeEvent(paystackclient.EventChargeSuccess, "ten", "8.00", "2.00", schoolID), wantErr: ErrInvalidSettlement},
		{name: "charged amount differs", event: func() paystackclient.WebhookEvent {
			e := chargeEvent(paystackclient.EventChargeSuccess, "10.00", "8.00", "2.00", schoolID)
			e.Data.Amount = 500
			return e
		}(), wantErr: ErrSettlementMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := logs.FilterMessage("rejected charge event").Len()
			if _, err := svc.SettleCharge(context.Background(), tt.event); !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			entries := logs.FilterMessage("rejected charge event").All()
			if len(entries) != before+1 || entries[len(entries)-1].Level != zapcore.ErrorLevel {
				t.Fatalf("expected one error log, got %d entries", len(entries)-before)
			}
		})
	}

	if repo.settleCalls != 0 {
		t.Fatalf("expected zero writes, got %d settle calls", repo.settleCalls)
	}
	if len(publisher.events) != 0 {
		t.Fatalf("expected no events, got %d", len(publisher.events))
	}
}

func TestSettleChargeReplayIsNoop(t *testing.T) {
	repo := newRepoStub()
	repo.settleResults = []error{nil, store.ErrAlreadySettled}
	publisher := &recordingPublisher{}
	svc := newTestPaymentService(repo, &gatewayStub{}, publisher, nil)
	event := chargeEvent(paystackclient.EventChargeSuccess, "10.00", "8.00", "2.00", uuid.New().String())

	first, err := svc.SettleCharge(context.Background(), event)
	if err != nil || first != SettlementSettled {
		t.Fatalf("expected first delivery to settle, got %q %v", first, err)
	}
	second, err := svc.SettleCharge(context.Background(), event)
	if err != nil || second != SettlementDuplicate {
		t.Fatalf("expected replay to be a duplicate, got %q %v", second, err)
	}
	if len(repo.settled) != 1 {
		t.Fatalf("expected exactly one settlement, got %d", len(repo.settled))
	}
	if len(publisher.events) != 1 {
		t.Fatalf("expected one event, got %d", len(publisher.events))
	}
}

func TestSettleChargeIgnoresOtherChargeEvents(t *testing.T) {
	repo := newRepoStub()
	svc := newTestPaymentService(repo, &gatewayStub{}, nil, nil)
	outcome, err := svc.SettleCharge(context.Background(), chargeEvent("charge.failed", "10.00", "8.00", "2.00", uuid.New().String()))
	if err != nil || outcome != SettlementIgnored {
		t.Fatalf("expected ignored, got %q %v", outcome, err)
	}
	if repo.settleCalls != 0 {
		t.Fatal("expected no settlement for charge.failed")
	}
}

func TestSettleChargeSurfacesStoreErrors(t *testing.T) {
	repo := newRepoStub()
	repo.settleResults = []error{store.ErrSchoolWalletNotFound}
	publisher := &recordingPublisher{}
	svc := newTestPaymentService(repo, &gatewayStub{}, publisher, nil)

	_, err := svc.SettleCharge(context.Background(), chargeEvent(paystackclient.EventChargeSuccess, "10.00", "8.00", "2.00", uuid.New().String()))
	if !errors.Is(err, store.ErrSchoolWalletNotFound) {
		t.Fatalf("expected ErrSchoolWalletNotFound, got %v", err)
	}
	if len(publisher.events) != 0 {
		t.Fatal("expected no event for a failed settlement")
	}
}

func TestSettleChargeWithoutAdminWallet(t *testing.T) {
	repo := newRepoStub()
	svc := NewPaymentService(repo, &gatewayStub{}, &recordingPublisher{}, PaymentServiceConfig{}, nil, nil)
	_, err := svc.SettleCharge(context.Background(), chargeEvent(paystackclient.EventChargeSuccess, "10.00", "8.00", "2.00", uuid.New().String()))
	if !errors.Is(err, ErrAdminWalletNotConfigured) {
		t.Fatalf("expected ErrAdminWalletNotConfigured, got %v", err)
	}
	if repo.settleCalls != 0 {
		t.Fatal("expected zero writes")
	}
}
