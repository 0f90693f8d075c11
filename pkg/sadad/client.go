package sadad

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/onlycars/onlycars-backend/pkg/config"
	pkgerrors "github.com/onlycars/onlycars-backend/pkg/errors"
	"github.com/onlycars/onlycars-backend/pkg/logger"
)

var (
	errSecretKeyRequired  = errors.New("sadad secret key is required")
	errMerchantIDRequired = errors.New("sadad merchant id is required")
	errLoggerRequired     = errors.New("sadad logger is required")
)

// Client exposes the Sadad invoice API with centralized auth, logging, and
// error mapping. Sadad ships no Go SDK, so this wraps the REST surface
// directly.
type Client struct {
	http        *http.Client
	baseURL     string
	merchantID  string
	secretKey   string
	callbackURL string
	successURL  string
	failureURL  string
	logger      *logger.Logger
}

// Invoice is the subset of the Sadad invoice resource the platform reads.
type Invoice struct {
	ID         string `json:"invoice_id"`
	Number     string `json:"invoice_number"`
	Status     string `json:"status"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	PaymentURL string `json:"payment_url"`
}

// InvoiceCreateParams carries the fields needed to open a hosted invoice.
type InvoiceCreateParams struct {
	OrderRef      string
	Amount        decimal.Decimal
	Currency      string
	CustomerName  string
	CustomerPhone string
}

type createInvoiceRequest struct {
	MerchantID    string `json:"merchant_id"`
	SecretKey     string `json:"secret_key"`
	OrderRef      string `json:"order_reference"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	CallbackURL   string `json:"callback_url,omitempty"`
	SuccessURL    string `json:"success_url,omitempty"`
	FailureURL    string `json:"failure_url,omitempty"`
}

type apiEnvelope struct {
	Invoice *Invoice `json:"invoice"`
	Message string   `json:"message"`
}

// NewClient initializes the Sadad wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.SadadConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	merchantID := strings.TrimSpace(cfg.MerchantID)
	if merchantID == "" {
		return nil, errMerchantIDRequired
	}
	secretKey := strings.TrimSpace(cfg.SecretKey)
	if secretKey == "" {
		return nil, errSecretKeyRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := &Client{
		http:        &http.Client{Timeout: timeout},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		merchantID:  merchantID,
		secretKey:   secretKey,
		callbackURL: cfg.CallbackURL,
		successURL:  cfg.SuccessURL,
		failureURL:  cfg.FailureURL,
		logger:      logg,
	}

	logg.Info(ctx, "sadad client initialized")
	return c, nil
}

// MerchantID reports the configured merchant.
func (c *Client) MerchantID() string {
	if c == nil {
		return ""
	}
	return c.merchantID
}

// CreateInvoice opens a hosted Sadad invoice for the given order reference.
func (c *Client) CreateInvoice(ctx context.Context, params InvoiceCreateParams) (*Invoice, error) {
	if strings.TrimSpace(params.OrderRef) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order reference is required")
	}
	if params.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice amount must be positive")
	}

	body := createInvoiceRequest{
		MerchantID:    c.merchantID,
		SecretKey:     c.secretKey,
		OrderRef:      params.OrderRef,
		Amount:        params.Amount.StringFixed(2),
		Currency:      params.Currency,
		CustomerName:  params.CustomerName,
		CustomerPhone: params.CustomerPhone,
		CallbackURL:   c.callbackURL,
		SuccessURL:    c.successURL,
		FailureURL:    c.failureURL,
	}

	c.log(ctx, "request", "create_invoice", map[string]any{
		"order_ref": params.OrderRef,
		"amount":    body.Amount,
		"currency":  body.Currency,
	})

	envelope, err := c.do(ctx, http.MethodPost, "/invoices", body)
	if err != nil {
		c.log(ctx, "error", "create_invoice", map[string]any{"error": err.Error()})
		return nil, err
	}
	if envelope.Invoice == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "sadad create invoice returned no invoice")
	}

	c.log(ctx, "response", "create_invoice", map[string]any{
		"invoice_id": envelope.Invoice.ID,
		"status":     envelope.Invoice.Status,
	})
	return envelope.Invoice, nil
}

// GetInvoice fetches the current state of an invoice.
func (c *Client) GetInvoice(ctx context.Context, invoiceID string) (*Invoice, error) {
	if strings.TrimSpace(invoiceID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice id is required")
	}

	c.log(ctx, "request", "get_invoice", map[string]any{"invoice_id": invoiceID})

	envelope, err := c.do(ctx, http.MethodGet, "/invoices/"+invoiceID, nil)
	if err != nil {
		c.log(ctx, "error", "get_invoice", map[string]any{"error": err.Error()})
		return nil, err
	}
	if envelope.Invoice == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
	}

	c.log(ctx, "response", "get_invoice", map[string]any{
		"invoice_id": envelope.Invoice.ID,
		"status":     envelope.Invoice.Status,
	})
	return envelope.Invoice, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*apiEnvelope, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding sadad request")
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building sadad request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "calling sadad")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading sadad response")
	}

	if resp.StatusCode >= 400 {
		return nil, c.mapStatusError(resp.StatusCode, raw)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding sadad response")
	}
	return &envelope, nil
}

func (c *Client) mapStatusError(status int, raw []byte) error {
	message := "sadad request failed"
	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Message != "" {
		message = fmt.Sprintf("sadad: %s", envelope.Message)
	}
	return pkgerrors.New(domainCodeForStatus(status), message)
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusUnprocessableEntity:
		return pkgerrors.CodeStateConflict
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeDependency
	}
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = c.redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("sadad %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("sadad %s", phase))
	}
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"secret", "token", "phone", "email"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}
