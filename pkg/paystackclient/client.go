/**
 * @description
 * This package provides a client for the Paystack API. It covers the mobile-money
 * USSD charge flow (initiate charge, submit OTP), transaction verification, and the
 * HMAC-SHA512 signature check applied to incoming webhooks.
 *
 * Key features:
 * - Amounts are accepted in cedis as decimals and sent to Paystack in pesewas.
 * - Upstream failures are mapped to typed errors (`ErrInvalidProvider`,
 *   `ErrAboveMaximumAmount`, `ErrBelowMinimumAmount`, `ErrIncorrectOTP`, `ErrGatewayError`)
 *   and transport timeouts to the retryable `ErrGatewayTimeout`.
 *
 * @dependencies
 * - github.com/shopspring/decimal: Exact money arithmetic.
 * - go.uber.org/zap: Structured logging.
 */
package paystackclient

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SignatureHeader is the header Paystack signs webhook deliveries with.
const SignatureHeader = "x-paystack-signature"

var (
	ErrInvalidProvider    = errors.New("invalid provider")
	ErrAboveMaximumAmount = errors.New("amount above maximum transaction limit")
	ErrBelowMinimumAmount = errors.New("amount below minimum transaction limit")
	ErrIncorrectOTP       = errors.New("incorrect otp")
	ErrGatewayError       = errors.New("payment gateway error")
	ErrGatewayTimeout     = errors.New("payment gateway timeout")
)

// MinimumAmount is the smallest charge Paystack accepts for GHS mobile money.
var MinimumAmount = decimal.NewFromInt(1)

var pesewasPerCedi = decimal.NewFromInt(100)

// knownGatewayMessages maps substrings of Paystack error messages to typed errors.
var knownGatewayMessages = []struct {
	fragment string
	kind     error
}{
	{fragment: "invalid provider", kind: ErrInvalidProvider},
	{fragment: "maximum transaction limit", kind: ErrAboveMaximumAmount},
	{fragment: "minimum amount", kind: ErrBelowMinimumAmount},
	{fragment: "incorrect otp", kind: ErrIncorrectOTP},
}

// GatewayError is a failed Paystack call. Kind is one of the package's sentinel errors.
type GatewayError struct {
	StatusCode int
	Message    string
	Kind       error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("paystack api error: status=%d message=%q", e.StatusCode, e.Message)
}

func (e *GatewayError) Unwrap() error {
	return e.Kind
}

func classifyMessage(statusCode int, message string) *GatewayError {
	lowered := strings.ToLower(message)
	for _, known := range knownGatewayMessages {
		if strings.Contains(lowered, known.fragment) {
			return &GatewayError{StatusCode: statusCode, Message: message, Kind: known.kind}
		}
	}
	return &GatewayError{StatusCode: statusCode, Message: message, Kind: ErrGatewayError}
}

// Client is a client for the Paystack API.
type Client struct {
	BaseURL    string
	SecretKey  string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// NewClient creates a new Paystack API client with a bounded request timeout.
func NewClient(baseURL, secretKey string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		SecretKey:  secretKey,
		HTTPClient: &http.Client{Timeout: timeout},
		Logger:     logger.With(zap.String("component", "paystack_client")),
	}
}

// CustomField is one entry of the charge metadata shown on the Paystack dashboard.
type CustomField struct {
	DisplayName  string `json:"display_name"`
	VariableName string `json:"variable_name"`
	Value        string `json:"value"`
}

// Metadata is the charge metadata echoed back in webhook events.
type Metadata struct {
	CustomFields []CustomField `json:"custom_fields"`
}

// Field returns the value of the custom field with the given variable name.
func (m Metadata) Field(variableName string) (string, bool) {
	for _, f := range m.CustomFields {
		if f.VariableName == variableName {
			return f.Value, true
		}
	}
	return "", false
}

// UnmarshalJSON accepts custom field values of any JSON scalar type.
func (f *CustomField) UnmarshalJSON(data []byte) error {
	var raw struct {
		DisplayName  string          `json:"display_name"`
		VariableName string          `json:"variable_name"`
		Value        json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.DisplayName = raw.DisplayName
	f.VariableName = raw.VariableName
	f.Value = ""
	if len(raw.Value) == 0 || string(raw.Value) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw.Value, &s); err == nil {
		f.Value = s
		return nil
	}
	f.Value = strings.TrimSpace(string(raw.Value))
	return nil
}

// ChargeRequest describes a mobile money charge in cedis.
type ChargeRequest struct {
	Email     string
	Phone     string
	Provider  string
	Amount    decimal.Decimal
	Reference string
	Metadata  Metadata
}

type mobileMoney struct {
	Phone    string `json:"phone"`
	Provider string `json:"provider"`
}

type chargePayload struct {
	Email       string      `json:"email"`
	Amount      int64       `json:"amount"`
	Currency    string      `json:"currency"`
	Reference   string      `json:"reference,omitempty"`
	MobileMoney mobileMoney `json:"mobile_money"`
	Metadata    Metadata    `json:"metadata"`
}

type otpPayload struct {
	OTP       string `json:"otp"`
	Reference string `json:"reference"`
}

// ChargeResult is the outcome of a charge, OTP or verify call.
type ChargeResult struct {
	Reference   string
	Status      string
	DisplayText string
	Amount      decimal.Decimal
	GatewayResp string
}

type apiResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Reference       string      `json:"reference"`
		Status          string      `json:"status"`
		DisplayText     string      `json:"display_text"`
		Amount          json.Number `json:"amount"`
		GatewayResponse string      `json:"gateway_response"`
	} `json:"data"`
}

// ToPesewas converts a cedi amount to the integer pesewa amount Paystack expects.
func ToPesewas(amount decimal.Decimal) int64 {
	return amount.Mul(pesewasPerCedi).Round(0).IntPart()
}

// FromPesewas converts a Paystack pesewa amount back to cedis.
func FromPesewas(pesewas int64) decimal.Decimal {
	return decimal.NewFromInt(pesewas).Div(pesewasPerCedi)
}

// InitiateUSSDCharge starts a mobile money charge for the given phone and provider.
func (c *Client) InitiateUSSDCharge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if req.Amount.LessThan(MinimumAmount) {
		return nil, &GatewayError{Message: "The minimum amount you may send is 1.00 GHS.", Kind: ErrBelowMinimumAmount}
	}
	payload := chargePayload{
		Email:     req.Email,
		Amount:    ToPesewas(req.Amount),
		Currency:  "GHS",
		Reference: req.Reference,
		MobileMoney: mobileMoney{
			Phone:    req.Phone,
			Provider: req.Provider,
		},
		Metadata: req.Metadata,
	}
	return c.do(ctx, http.MethodPost, "/charge", payload, "charge")
}

// SubmitOTP completes a charge that is waiting for the payer's one-time password.
func (c *Client) SubmitOTP(ctx context.Context, reference, otp string) (*ChargeResult, error) {
	return c.do(ctx, http.MethodPost, "/charge/submit_otp", otpPayload{OTP: otp, Reference: reference}, "submit_otp")
}

// VerifyTransaction fetches the gateway's view of a transaction by reference.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*ChargeResult, error) {
	return c.do(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil, "verify")
}

// VerifySignature checks the webhook signature header against HMAC-SHA512 of the raw body.
func (c *Client) VerifySignature(rawBody []byte, signature string) bool {
	return VerifySignature(c.SecretKey, rawBody, signature)
}

// VerifySignature checks a hex HMAC-SHA512 signature in constant time.
func VerifySignature(secret string, rawBody []byte, signature string) bool {
	signature = strings.TrimSpace(signature)
	if secret == "" || signature == "" {
		return false
	}
	provided, err := hex.DecodeString(strings.ToLower(signature))
	if err != nil {
		return false
	}
	return hmac.Equal(provided, Sign(secret, rawBody))
}

// Sign returns the raw HMAC-SHA512 of body under secret.
func Sign(secret string, body []byte) []byte {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}, op string) (*ChargeResult, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s request: %w", op, err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			c.Logger.Warn("paystack request timed out", zap.String("op", op), zap.Error(err))
			return nil, &GatewayError{Message: err.Error(), Kind: ErrGatewayTimeout}
		}
		c.Logger.Warn("paystack request failed", zap.String("op", op), zap.Error(err))
		return nil, &GatewayError{Message: err.Error(), Kind: ErrGatewayError}
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, &GatewayError{StatusCode: resp.StatusCode, Message: err.Error(), Kind: ErrGatewayTimeout}
		}
		return nil, fmt.Errorf("failed to read %s response: %w", op, err)
	}

	var parsed apiResponse
	decoder := json.NewDecoder(bytes.NewReader(bodyBytes))
	decoder.UseNumber()
	decodeErr := decoder.Decode(&parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || decodeErr != nil || !parsed.Status {
		message := parsed.Message
		if decodeErr != nil || message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		gwErr := classifyMessage(resp.StatusCode, message)
		c.Logger.Warn("paystack call rejected",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
			zap.String("message", message),
			zap.Bool("unparsable_body", decodeErr != nil),
		)
		return nil, gwErr
	}

	result := &ChargeResult{
		Reference:   parsed.Data.Reference,
		Status:      parsed.Data.Status,
		DisplayText: parsed.Data.DisplayText,
		GatewayResp: parsed.Data.GatewayResponse,
	}
	if parsed.Data.Amount != "" {
		if pesewas, err := parsed.Data.Amount.Int64(); err == nil {
			result.Amount = FromPesewas(pesewas)
		}
	}
	return result, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
