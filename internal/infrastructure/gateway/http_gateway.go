package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/courier-billing/internal/application/billing"
	"github.com/jhoicas/courier-billing/internal/domain/entity"
	"github.com/jhoicas/courier-billing/pkg/logger"
)

var _ billing.PaymentGateway = (*HTTPGateway)(nil)

// ── Estructuras JSON ──────────────────────────────────────────────────────────

type chargeRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	PaymentMethodID string          `json:"payment_method_id"`
	CustomerID      string          `json:"customer_id"`
	ReferenceID     string          `json:"reference_id"`
	Kind            string          `json:"kind"`
}

type chargeResponse struct {
	PaymentID     string `json:"payment_id"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
	FailureReason string `json:"failure_reason"`
}

// ── Implementación HTTP ───────────────────────────────────────────────────────

// HTTPConfig parámetros del cliente.
type HTTPConfig struct {
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	RetryMax int
}

// HTTPGateway pasarela de pagos por JSON sobre HTTP. Los errores de red y 5xx se reintentan
// con la misma Idempotency-Key, de modo que un reintento de transporte no duplica el cobro;
// cada llamada a ProcessPayment es un intento nuevo con clave nueva.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	client  *retryablehttp.Client
}

// NewHTTPGateway construye el cliente.
func NewHTTPGateway(cfg HTTPConfig, log *logger.Logger) *HTTPGateway {
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.RetryMax
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	if cfg.Timeout > 0 {
		client.HTTPClient.Timeout = cfg.Timeout
	}
	if log != nil {
		client.Logger = log.Named("gateway").Leveled()
	} else {
		client.Logger = nil
	}
	return &HTTPGateway{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  client,
	}
}

// ProcessPayment envía el cobro (o reembolso si el importe es negativo).
// 2xx, 402 y 422 traen un resultado en el cuerpo; cualquier otra respuesta es un error.
func (g *HTTPGateway) ProcessPayment(ctx context.Context, req billing.GatewayRequest) (*billing.GatewayResult, error) {
	body, err := json.Marshal(chargeRequest{
		Amount:          req.Amount,
		Currency:        req.Currency,
		PaymentMethodID: req.PaymentMethodID,
		CustomerID:      req.CustomerID,
		ReferenceID:     req.ReferenceID,
		Kind:            req.Kind,
	})
	if err != nil {
		return nil, errors.Wrap(err, "gateway: serializar petición")
	}
	path := "/v1/charges"
	if req.Kind == billing.GatewayKindRefund {
		path = "/v1/refunds"
	}
	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "gateway: construir petición")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Idempotency-Key", uuid.New().String())
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "gateway: enviar petición")
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "gateway: leer respuesta")
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300,
		resp.StatusCode == http.StatusPaymentRequired,
		resp.StatusCode == http.StatusUnprocessableEntity:
	default:
		return nil, errors.Newf("gateway: HTTP %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var out chargeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.Wrapf(err, "gateway: respuesta no JSON (HTTP %d)", resp.StatusCode)
	}
	status := entity.PaymentStatus(strings.ToUpper(out.Status))
	switch status {
	case entity.PaymentStatusCompleted, entity.PaymentStatusPending, entity.PaymentStatusFailed:
	default:
		status = entity.PaymentStatusFailed
		if out.FailureReason == "" {
			out.FailureReason = "estado desconocido: " + out.Status
		}
	}
	if resp.StatusCode >= 400 && status == entity.PaymentStatusCompleted {
		status = entity.PaymentStatusFailed
	}
	return &billing.GatewayResult{
		PaymentID:       out.PaymentID,
		Status:          status,
		TransactionID:   out.TransactionID,
		GatewayResponse: string(raw),
		FailureReason:   out.FailureReason,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
