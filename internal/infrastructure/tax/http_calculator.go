package tax

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/courier-billing/internal/application/billing"
	"github.com/jhoicas/courier-billing/pkg/logger"
)

var _ billing.TaxCalculator = (*HTTPTaxCalculator)(nil)

type taxAddress struct {
	Line1      string `json:"line1"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type taxRequest struct {
	Address     taxAddress      `json:"address"`
	Amount      decimal.Decimal `json:"amount"`
	ServiceType string          `json:"service_type,omitempty"`
	Context     string          `json:"context"`
}

type taxResponse struct {
	TotalTax     decimal.Decimal            `json:"total_tax"`
	Rate         decimal.Decimal            `json:"rate"`
	Jurisdiction string                     `json:"jurisdiction"`
	Breakdown    map[string]decimal.Decimal `json:"breakdown"`
	Exempt       bool                       `json:"exempt"`
}

// HTTPTaxCalculator consulta un servicio externo de impuestos (POST {base}/v1/tax/calculate).
type HTTPTaxCalculator struct {
	url    string
	client *retryablehttp.Client
}

// NewHTTPTaxCalculator construye el cliente. Los reintentos cubren errores de red y 5xx.
func NewHTTPTaxCalculator(baseURL string, timeout time.Duration, log *logger.Logger) *HTTPTaxCalculator {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = time.Second
	if timeout > 0 {
		client.HTTPClient.Timeout = timeout
	}
	if log != nil {
		client.Logger = log.Named("tax").Leveled()
	} else {
		client.Logger = nil
	}
	return &HTTPTaxCalculator{
		url:    strings.TrimRight(baseURL, "/") + "/v1/tax/calculate",
		client: client,
	}
}

// CalculateTax envía la base imponible y la dirección de facturación.
func (c *HTTPTaxCalculator) CalculateTax(ctx context.Context, req billing.TaxRequest) (*billing.TaxResult, error) {
	a := req.BillingAddress
	body, err := json.Marshal(taxRequest{
		Address:     taxAddress{Line1: a.Line1, City: a.City, State: a.State, PostalCode: a.PostalCode, Country: a.Country},
		Amount:      req.Amount,
		ServiceType: req.ServiceType,
		Context:     req.Context,
	})
	if err != nil {
		return nil, errors.Wrap(err, "tax: serializar petición")
	}
	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "tax: construir petición")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "tax: enviar petición")
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "tax: leer respuesta")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("tax: HTTP %d: %s", resp.StatusCode, string(raw))
	}
	var out taxResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, errors.Wrap(err, "tax: respuesta no JSON")
	}
	if out.TotalTax.IsNegative() {
		return nil, errors.Newf("tax: impuesto negativo %s", out.TotalTax)
	}
	return &billing.TaxResult{
		TotalTax:     out.TotalTax,
		Rate:         out.Rate,
		Jurisdiction: out.Jurisdiction,
		Breakdown:    out.Breakdown,
		Exempt:       out.Exempt,
		Basis:        req.Amount,
	}, nil
}
