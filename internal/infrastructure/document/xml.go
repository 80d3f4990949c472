package document

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/xml"
	"strconv"

	"github.com/beevik/etree"
	"github.com/cockroachdb/errors"
	"github.com/ucarion/c14n"

	"github.com/jhoicas/courier-billing/internal/application/billing"
	"github.com/jhoicas/courier-billing/internal/domain/entity"
	"github.com/jhoicas/courier-billing/internal/domain/money"
)

var _ billing.InvoiceDocumentRenderer = (*XMLRenderer)(nil)

// Namespace y algoritmos del documento.
const (
	NamespaceInvoice = "urn:courier:billing:invoice:1"
	AlgC14N          = "http://www.w3.org/TR/2001/REC-xml-c14n-20010315"
	AlgSHA256        = "http://www.w3.org/2001/04/xmlenc#sha256"
)

// XMLRenderer factura en XML con un digest SHA-256 del nodo <Invoice> canonicalizado (C14N),
// de modo que cualquier copia del documento puede verificarse con VerifyDigest.
type XMLRenderer struct{}

// NewXMLRenderer construye el renderer.
func NewXMLRenderer() *XMLRenderer { return &XMLRenderer{} }

func (XMLRenderer) ContentType() string { return "application/xml" }

// Render arma <InvoiceDocument><Invoice/>…<Integrity/></InvoiceDocument>.
func (XMLRenderer) Render(_ context.Context, inv *entity.Invoice, _ *entity.Customer) ([]byte, error) {
	body := etree.NewDocument()
	body.AddChild(invoiceElement(inv))
	raw, err := body.WriteToBytes()
	if err != nil {
		return nil, errors.Wrap(err, "xml: serializar factura")
	}
	digest, err := digestOf(raw)
	if err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("InvoiceDocument")
	root.CreateAttr("xmlns", NamespaceInvoice)
	invEl := invoiceElement(inv)
	root.AddChild(invEl)
	integrity := root.CreateElement("Integrity")
	integrity.CreateElement("CanonicalizationMethod").CreateAttr("Algorithm", AlgC14N)
	integrity.CreateElement("DigestMethod").CreateAttr("Algorithm", AlgSHA256)
	integrity.CreateElement("DigestValue").SetText(digest)

	doc.Indent(2)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, errors.Wrap(err, "xml: serializar documento")
	}
	return out, nil
}

// VerifyDigest recalcula el digest del nodo <Invoice> y lo compara con <DigestValue>.
func VerifyDigest(data []byte) (bool, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return false, errors.Wrap(err, "xml: documento inválido")
	}
	invEl := doc.FindElement("/InvoiceDocument/Invoice")
	digestEl := doc.FindElement("/InvoiceDocument/Integrity/DigestValue")
	if invEl == nil || digestEl == nil {
		return false, errors.New("xml: faltan Invoice o Integrity")
	}
	stripIndent(invEl)
	sub := etree.NewDocument()
	sub.AddChild(invEl.Copy())
	raw, err := sub.WriteToBytes()
	if err != nil {
		return false, errors.Wrap(err, "xml: serializar factura")
	}
	digest, err := digestOf(raw)
	if err != nil {
		return false, err
	}
	return digest == digestEl.Text(), nil
}

func invoiceElement(inv *entity.Invoice) *etree.Element {
	el := etree.NewElement("Invoice")
	el.CreateAttr("number", inv.Number)
	el.CreateAttr("status", string(inv.Status))
	el.CreateElement("CustomerID").SetText(inv.CustomerID)
	el.CreateElement("CustomerName").SetText(inv.CustomerName)
	el.CreateElement("Currency").SetText(inv.Currency)
	el.CreateElement("IssueDate").SetText(inv.CreatedAt.UTC().Format("2006-01-02"))
	el.CreateElement("DueDate").SetText(inv.DueDate.UTC().Format("2006-01-02"))

	addr := el.CreateElement("BillingAddress")
	a := inv.BillingAddress
	for _, f := range [][2]string{
		{"Line1", a.Line1}, {"Line2", a.Line2}, {"City", a.City},
		{"State", a.State}, {"PostalCode", a.PostalCode}, {"Country", a.Country},
	} {
		if f[1] != "" {
			addr.CreateElement(f[0]).SetText(f[1])
		}
	}

	lines := el.CreateElement("Lines")
	for _, it := range inv.Items {
		l := lines.CreateElement("Line")
		l.CreateAttr("position", strconv.Itoa(it.Position))
		l.CreateAttr("kind", it.Kind)
		if it.ShipmentID != "" {
			l.CreateAttr("shipmentId", it.ShipmentID)
		}
		l.CreateElement("Description").SetText(it.Description)
		l.CreateElement("Quantity").SetText(it.Quantity.String())
		l.CreateElement("UnitPrice").SetText(money.Format(it.UnitPrice))
		l.CreateElement("Amount").SetText(money.Format(it.Amount))
	}

	totals := el.CreateElement("Totals")
	totals.CreateElement("Subtotal").SetText(money.Format(inv.Subtotal))
	totals.CreateElement("Discount").SetText(money.Format(inv.Discount))
	totals.CreateElement("Tax").SetText(money.Format(inv.Tax))
	totals.CreateElement("Total").SetText(money.Format(inv.Total))
	return el
}

func digestOf(raw []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.Entity = map[string]string{}
	canonical, err := c14n.Canonicalize(dec)
	if err != nil {
		return "", errors.Wrap(err, "xml: canonicalizar")
	}
	sum := sha256.Sum256(canonical)
	return base64.StdEncoding.EncodeToString(sum[:]), nil
}

// stripIndent elimina los nodos de texto de solo espacios que añade Indent.
func stripIndent(el *etree.Element) {
	hasElements := len(el.ChildElements()) > 0
	children := append([]etree.Token(nil), el.Child...)
	for _, tok := range children {
		switch t := tok.(type) {
		case *etree.CharData:
			if hasElements && t.IsWhitespace() {
				el.RemoveChild(t)
			}
		case *etree.Element:
			stripIndent(t)
		}
	}
}
