package gateway

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/jhoicas/courier-billing/internal/application/billing"
	"github.com/jhoicas/courier-billing/internal/domain/entity"
)

var _ billing.PaymentGateway = SimulatedGateway{}

// Prefijos de medio de pago reconocidos por la pasarela simulada.
const (
	SimulatedDeclinePrefix = "pm_decline"
	SimulatedErrorPrefix   = "pm_error"
	SimulatedPendingPrefix = "pm_pending"
)

// SimulatedGateway pasarela en proceso para desarrollo. Aprueba todo salvo los medios de pago
// con prefijo pm_decline (rechazo), pm_pending (pendiente) o pm_error (fallo de transporte).
type SimulatedGateway struct{}

// ProcessPayment resuelve el intento según el prefijo del medio de pago.
func (SimulatedGateway) ProcessPayment(ctx context.Context, req billing.GatewayRequest) (*billing.GatewayResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := "sim_" + uuid.New().String()
	switch {
	case strings.HasPrefix(req.PaymentMethodID, SimulatedErrorPrefix):
		return nil, errors.New("simulated gateway: connection reset")
	case strings.HasPrefix(req.PaymentMethodID, SimulatedDeclinePrefix):
		return &billing.GatewayResult{
			PaymentID:       id,
			Status:          entity.PaymentStatusFailed,
			GatewayResponse: `{"status":"FAILED","code":"card_declined"}`,
			FailureReason:   "card_declined",
		}, nil
	case strings.HasPrefix(req.PaymentMethodID, SimulatedPendingPrefix):
		return &billing.GatewayResult{
			PaymentID:       id,
			Status:          entity.PaymentStatusPending,
			GatewayResponse: `{"status":"PENDING"}`,
		}, nil
	}
	return &billing.GatewayResult{
		PaymentID:       id,
		Status:          entity.PaymentStatusCompleted,
		TransactionID:   "txn_" + uuid.New().String()[:8],
		GatewayResponse: `{"status":"COMPLETED"}`,
	}, nil
}
