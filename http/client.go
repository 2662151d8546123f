package http

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

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	x402 "github.com/x402-foundation/x402-interceptor"
	"github.com/x402-foundation/x402-interceptor/extensions/paymentidentifier"
	"github.com/x402-foundation/x402-interceptor/mechanisms/evm"
	"github.com/x402-foundation/x402-interceptor/pkg/logger"
	"github.com/x402-foundation/x402-interceptor/pkg/metrics"
)

// PaymentReceipt describes a paid request after the retry
type PaymentReceipt struct {
	AuthorizationType x402.AuthorizationType
	Network           x402.Network
	PaymentID         string
	StatusCode        int
	// Settlement is nil when the server sent no decodable payment-response header
	Settlement *x402.SettleResponse
}

// PaymentResponseHook observes every paid retry, successful or not
type PaymentResponseHook func(ctx context.Context, receipt PaymentReceipt)

// RoundTripperOption configures a PaymentRoundTripper
type RoundTripperOption func(*PaymentRoundTripper)

// WithLogger sets the structured logger
func WithLogger(log logger.Logger) RoundTripperOption {
	return func(t *PaymentRoundTripper) {
		if log != nil {
			t.logger = log
		}
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(recorder metrics.Recorder) RoundTripperOption {
	return func(t *PaymentRoundTripper) {
		if recorder != nil {
			t.metrics = recorder
		}
	}
}

// WithOnPaymentResponse registers a hook that runs after every paid retry
func WithOnPaymentResponse(hook PaymentResponseHook) RoundTripperOption {
	return func(t *PaymentRoundTripper) {
		t.onPaymentResponse = append(t.onPaymentResponse, hook)
	}
}

// PaymentRoundTripper implements http.RoundTripper with x402 payment handling.
// Each request is retried at most once, with a single payment attached.
type PaymentRoundTripper struct {
	Transport         http.RoundTripper
	client            *x402.Client
	logger            logger.Logger
	metrics           metrics.Recorder
	onPaymentResponse []PaymentResponseHook
}

// NewPaymentRoundTripper wraps transport, or http.DefaultTransport when nil
func NewPaymentRoundTripper(transport http.RoundTripper, client *x402.Client, opts ...RoundTripperOption) *PaymentRoundTripper {
	if transport == nil {
		transport = http.DefaultTransport
	}
	t := &PaymentRoundTripper{
		Transport: transport,
		client:    client,
		logger:    logger.NoopLogger{},
		metrics:   metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RoundTrip implements http.RoundTripper
func (t *PaymentRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	first, err := replayable(req)
	if err != nil {
		return nil, err
	}

	resp, err := t.Transport.RoundTrip(first)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusPaymentRequired {
		return resp, nil
	}

	log := logger.With(t.logger, map[string]any{
		"correlation_id": uuid.NewString(),
		"method":         req.Method,
		"url":            req.URL.String(),
	})

	// Challenge
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, x402.NewAuthorizationError(x402.StageChallenge, "",
			fmt.Errorf("%w: failed to read 402 body: %w", x402.ErrMalformedPaymentRequired, err))
	}
	required, err := GetPaymentRequiredResponse(resp.Header, body)
	if err != nil {
		log.Warn("malformed payment challenge", map[string]any{"error": err})
		return nil, x402.NewAuthorizationError(x402.StageChallenge, "", err)
	}
	log.Info("payment required", map[string]any{
		"x402_version": required.X402Version,
		"accepts":      len(required.Accepts),
	})
	t.metrics.IncCounter(metrics.EventChallenge, nil)

	// Select
	selected, err := t.client.SelectPaymentRequirements(required.X402Version, required.Accepts)
	if err != nil {
		log.Warn("no payable requirement", map[string]any{
			"authorization_type": t.client.AuthorizationType(),
			"error":              err,
		})
		t.metrics.IncCounter(metrics.EventSelectFailed, map[string]string{"scheme": string(t.client.AuthorizationType())})
		resp.Body = io.NopCloser(bytes.NewReader(body))
		return resp, nil
	}
	labels := map[string]string{
		"network": string(selected.Network),
		"scheme":  string(t.client.AuthorizationType()),
	}

	extensions := required.Extensions
	var paymentID string
	if declared, mandatory := paymentidentifier.Declared(required); declared {
		extensions, paymentID = paymentidentifier.AppendToExtensions(extensions, mandatory)
	}

	// Authorize
	start := time.Now()
	payload, err := t.client.CreatePaymentPayload(ctx, required.X402Version, selected, resourceFor(required, req), extensions)
	t.metrics.ObserveLatency(metrics.OperationAuthorize, time.Since(start), labels)
	if err != nil {
		log.Error("payment authorization failed", map[string]any{
			"stage":   x402.StageAuthorize,
			"scheme":  t.client.AuthorizationType(),
			"network": selected.Network,
			"error":   err,
		})
		t.metrics.IncCounter(metrics.EventAuthorizeFailed, labels)
		return nil, x402.NewAuthorizationError(x402.StageAuthorize, t.client.AuthorizationType(), err)
	}

	name, value, err := EncodePaymentSignatureHeader(payload)
	if err != nil {
		return nil, x402.NewAuthorizationError(x402.StageAuthorize, payload.AuthorizationType, err)
	}

	// Attach & retry
	retry := first.Clone(ctx)
	if first.GetBody != nil {
		if retry.Body, err = first.GetBody(); err != nil {
			return nil, x402.NewAuthorizationError(x402.StageSettle, payload.AuthorizationType,
				fmt.Errorf("failed to replay request body: %w", err))
		}
	}
	retry.Header.Set(name, value)

	log.Info("retrying with payment", map[string]any{
		"authorization_type": payload.AuthorizationType,
		"network":            selected.Network,
		"amount":             humanAmount(selected),
		"asset":              selected.Asset,
		"payment_id":         paymentID,
	})
	t.metrics.IncCounter(metrics.EventRetry, labels)

	start = time.Now()
	paid, err := t.Transport.RoundTrip(retry)
	t.metrics.ObserveLatency(metrics.OperationRetry, time.Since(start), labels)
	if err != nil {
		return nil, err
	}
	paid.Request = retry

	return t.finalize(ctx, log, labels, payload, paymentID, paid)
}

// finalize records the receipt and classifies Permit2 allowance rejections
func (t *PaymentRoundTripper) finalize(ctx context.Context, log logger.Logger, labels map[string]string, payload x402.PaymentPayload, paymentID string, resp *http.Response) (*http.Response, error) {
	receipt := PaymentReceipt{
		AuthorizationType: payload.AuthorizationType,
		Network:           networkOf(payload),
		PaymentID:         paymentID,
		StatusCode:        resp.StatusCode,
	}
	settlement, err := DecodePaymentResponseHeader(resp.Header)
	if err == nil {
		receipt.Settlement = &settlement
		log.Info("payment receipt", map[string]any{
			"status":      resp.StatusCode,
			"success":     settlement.Success,
			"transaction": settlement.Transaction,
		})
	} else {
		log.Debug("payment receipt unavailable", map[string]any{"status": resp.StatusCode, "error": err})
		t.metrics.IncCounter(metrics.EventReceiptMissing, labels)
	}

	for _, hook := range t.onPaymentResponse {
		hook(ctx, receipt)
	}

	if resp.StatusCode < http.StatusBadRequest {
		t.metrics.IncCounter(metrics.EventSettled, labels)
		return resp, nil
	}
	t.metrics.IncCounter(metrics.EventRejected, labels)

	if payload.AuthorizationType != x402.AuthorizationTypePermit2 || resp.StatusCode != http.StatusPaymentRequired {
		return resp, nil
	}

	body, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))
	if readErr != nil {
		return resp, nil
	}

	reason := allowanceReason(body, receipt.Settlement)
	if reason == "" {
		return resp, nil
	}

	log.Warn("permit2 allowance required", map[string]any{"reason": reason})
	t.metrics.IncCounter(metrics.EventAllowance, labels)
	resp.Body.Close()
	return nil, &x402.AuthorizationError{
		Stage:  x402.StageSettle,
		Scheme: x402.AuthorizationTypePermit2,
		Code:   x402.ErrCodeAllowanceRequired,
		Err:    fmt.Errorf("%w: %s", x402.ErrAllowanceRequired, reason),
	}
}

// allowanceReason returns the server's reason when it names a missing Permit2 allowance
func allowanceReason(body []byte, settlement *x402.SettleResponse) string {
	var reasons []string
	if settlement != nil {
		reasons = append(reasons, settlement.ErrorReason)
	}
	var challenge struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &challenge) == nil {
		reasons = append(reasons, challenge.Error)
	}

	for _, reason := range reasons {
		if strings.Contains(strings.ToLower(reason), "allowance") {
			return reason
		}
	}
	return ""
}

// replayable makes sure the request body can be sent twice. Bodies without
// GetBody are buffered before the first dispatch.
func replayable(req *http.Request) (*http.Request, error) {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return req, nil
	}

	data, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to buffer request body: %w", err)
	}

	clone := req.Clone(req.Context())
	clone.Body = io.NopCloser(bytes.NewReader(data))
	clone.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	clone.ContentLength = int64(len(data))
	return clone, nil
}

func resourceFor(required x402.PaymentRequired, req *http.Request) *x402.ResourceInfo {
	if required.Resource != nil {
		return required.Resource
	}
	return &x402.ResourceInfo{URL: req.URL.String()}
}

func networkOf(payload x402.PaymentPayload) x402.Network {
	if payload.Accepted != nil {
		return payload.Accepted.Network
	}
	return payload.Network
}

// humanAmount renders the required amount in token units when the asset is known
func humanAmount(req x402.PaymentRequirements) string {
	raw := req.Required()
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return raw
	}
	info, err := evm.GetAssetInfo(string(req.Network), req.Asset)
	if err != nil {
		return raw
	}
	return amount.Shift(-int32(info.Decimals)).String()
}

// ReceiptFromResponse rebuilds the receipt of a paid response from the payment
// header of resp.Request and the payment-response header of resp. It returns
// x402.ErrReceiptUnavailable when the request carried no payment; when only the
// settlement header is missing the receipt is returned with that error.
func ReceiptFromResponse(resp *http.Response) (PaymentReceipt, error) {
	if resp == nil {
		return PaymentReceipt{}, x402.ErrReceiptUnavailable
	}
	payload, ok, err := PaymentFromRequest(resp.Request)
	if err != nil {
		return PaymentReceipt{}, fmt.Errorf("%w: %w", x402.ErrReceiptUnavailable, err)
	}
	if !ok {
		return PaymentReceipt{}, x402.ErrReceiptUnavailable
	}

	receipt := PaymentReceipt{
		AuthorizationType: payload.AuthorizationType,
		Network:           networkOf(payload),
		StatusCode:        resp.StatusCode,
	}
	if id, err := paymentidentifier.ExtractPaymentIdentifier(payload, false); err == nil {
		receipt.PaymentID = id
	}

	settlement, err := DecodePaymentResponseHeader(resp.Header)
	if err != nil {
		return receipt, err
	}
	receipt.Settlement = &settlement
	return receipt, nil
}

// WrapHTTPClientWithPayment returns a copy of client whose transport pays 402 challenges.
// A nil client wraps http.DefaultClient; the original client is not modified.
func WrapHTTPClientWithPayment(client *http.Client, x402Client *x402.Client, opts ...RoundTripperOption) *http.Client {
	if client == nil {
		client = http.DefaultClient
	}
	wrapped := *client
	wrapped.Transport = NewPaymentRoundTripper(client.Transport, x402Client, opts...)
	return &wrapped
}

// Client is an http.Client preconfigured with a PaymentRoundTripper
type Client struct {
	httpClient *http.Client
}

// NewClient creates a paying HTTP client on top of http.DefaultTransport
func NewClient(x402Client *x402.Client, opts ...RoundTripperOption) *Client {
	return &Client{httpClient: WrapHTTPClientWithPayment(&http.Client{}, x402Client, opts...)}
}

// HTTPClient exposes the underlying *http.Client
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// DoWithPayment performs an HTTP request with automatic payment handling
func (c *Client) DoWithPayment(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		// http.Client wraps transport errors in *url.Error; hand typed payment errors back directly
		var authErr *x402.AuthorizationError
		if errors.As(err, &authErr) {
			return nil, authErr
		}
		return nil, err
	}
	return resp, nil
}

// GetWithPayment performs a GET request with automatic payment handling
func (c *Client) GetWithPayment(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.DoWithPayment(ctx, req)
}

// PostWithPayment performs a POST request with automatic payment handling
func (c *Client) PostWithPayment(ctx context.Context, url string, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return c.DoWithPayment(ctx, req)
}
