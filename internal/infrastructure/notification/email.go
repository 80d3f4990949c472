package notification

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/cockroachdb/errors"
	"gopkg.in/gomail.v2"

	"github.com/jhoicas/courier-billing/internal/application/billing"
	"github.com/jhoicas/courier-billing/internal/domain/entity"
	"github.com/jhoicas/courier-billing/internal/domain/money"
)

var _ billing.Notifier = (*EmailNotifier)(nil)

// Sender envía mensajes ya armados (*gomail.Dialer en producción).
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPConfig datos de conexión.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// EmailNotifier notificaciones de facturación por correo.
type EmailNotifier struct {
	sender Sender
	from   string
}

// NewEmailNotifier notificador sobre SMTP.
func NewEmailNotifier(cfg SMTPConfig) *EmailNotifier {
	return NewEmailNotifierWithSender(gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password), cfg.From)
}

// NewEmailNotifierWithSender permite inyectar el transporte.
func NewEmailNotifierWithSender(sender Sender, from string) *EmailNotifier {
	return &EmailNotifier{sender: sender, from: from}
}

var (
	invoiceTmpl = template.Must(template.New("invoice").Parse(
		`Hola {{.Name}},

Adjuntamos la factura {{.Number}} por {{.Total}} {{.Currency}}.
Fecha de vencimiento: {{.DueDate}}.

Gracias por confiar en nosotros.`))

	paymentTmpl = template.Must(template.New("payment").Parse(
		`Hola {{.Name}},

Recibimos su pago de {{.Amount}} {{.Currency}} para la factura {{.Number}}.
Referencia: {{.Reference}}.`))

	failureTmpl = template.Must(template.New("failure").Parse(
		`Hola {{.Name}},

No pudimos procesar el pago de {{.Amount}} {{.Currency}} para la factura {{.Number}}.
Motivo: {{.Reason}}. Por favor actualice su medio de pago.`))

	refundTmpl = template.Must(template.New("refund").Parse(
		`Hola {{.Name}},

Procesamos un reembolso de {{.Amount}} {{.Currency}} asociado a la factura {{.Number}}.`))
)

type mailData struct {
	Name, Number, Total, Currency, DueDate string
	Amount, Reference, Reason              string
}

func invoiceData(inv *entity.Invoice) mailData {
	return mailData{
		Name:     inv.CustomerName,
		Number:   inv.Number,
		Total:    money.Format(inv.Total),
		Currency: inv.Currency,
		DueDate:  inv.DueDate.Format("2006-01-02"),
	}
}

// SendInvoice envía la factura con el PDF adjunto si se proporcionó.
func (n *EmailNotifier) SendInvoice(ctx context.Context, d billing.InvoiceDelivery) error {
	m, err := n.message(d.Recipient, fmt.Sprintf("Factura %s", d.Invoice.Number), invoiceTmpl, invoiceData(d.Invoice))
	if err != nil {
		return err
	}
	if len(d.PDF) > 0 {
		pdf := d.PDF
		m.Attach(d.Invoice.Number+".pdf",
			gomail.SetHeader(map[string][]string{"Content-Type": {"application/pdf"}}),
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(pdf)
				return err
			}))
	}
	return n.send(ctx, m)
}

// SendPaymentConfirmation confirma un cobro completado.
func (n *EmailNotifier) SendPaymentConfirmation(ctx context.Context, inv *entity.Invoice, p *entity.Payment) error {
	data := invoiceData(inv)
	data.Amount = money.Format(p.Amount)
	data.Reference = p.GatewayTransactionID
	if data.Reference == "" {
		data.Reference = p.ID
	}
	return n.deliver(ctx, inv.CustomerEmail, fmt.Sprintf("Pago recibido - factura %s", inv.Number), paymentTmpl, data)
}

// SendPaymentFailure avisa de un cobro rechazado.
func (n *EmailNotifier) SendPaymentFailure(ctx context.Context, inv *entity.Invoice, p *entity.Payment) error {
	data := invoiceData(inv)
	data.Amount = money.Format(p.Amount)
	data.Reason = p.FailureReason
	if data.Reason == "" {
		data.Reason = "rechazado por la entidad"
	}
	return n.deliver(ctx, inv.CustomerEmail, fmt.Sprintf("Pago no procesado - factura %s", inv.Number), failureTmpl, data)
}

// SendRefundConfirmation confirma un reembolso completado.
func (n *EmailNotifier) SendRefundConfirmation(ctx context.Context, inv *entity.Invoice, refund *entity.Payment) error {
	data := invoiceData(inv)
	data.Amount = money.Format(refund.Amount.Abs())
	return n.deliver(ctx, inv.CustomerEmail, fmt.Sprintf("Reembolso - factura %s", inv.Number), refundTmpl, data)
}

func (n *EmailNotifier) deliver(ctx context.Context, to, subject string, tmpl *template.Template, data mailData) error {
	m, err := n.message(to, subject, tmpl, data)
	if err != nil {
		return err
	}
	return n.send(ctx, m)
}

func (n *EmailNotifier) message(to, subject string, tmpl *template.Template, data mailData) (*gomail.Message, error) {
	if strings.TrimSpace(to) == "" {
		return nil, errors.New("email: destinatario vacío")
	}
	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return nil, errors.Wrap(err, "email: plantilla")
	}
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body.String())
	return m, nil
}

func (n *EmailNotifier) send(ctx context.Context, m *gomail.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := n.sender.DialAndSend(m); err != nil {
		return errors.Wrapf(err, "email: enviar a %v", m.GetHeader("To"))
	}
	return nil
}
