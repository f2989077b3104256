package notify

import (
	"fmt"
	"strings"
	"time"

	"viagens/internal/models"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DisplayDateLayout is how dates appear in customer-facing copy.
const DisplayDateLayout = "02/01/2006"

var methodLabels = map[string]string{
	"pix":           "Pix",
	"cash":          "Dinheiro",
	"dinheiro":      "Dinheiro",
	"card":          "Cartão",
	"cartao":        "Cartão",
	"boleto":        "Boleto",
	"transfer":      "Transferência",
	"transferencia": "Transferência",
}

// Renderer produces localized customer and staff copy.
type Renderer struct {
	p *message.Printer
}

// NewRenderer builds a renderer for locale, falling back to pt-BR when the
// tag cannot be parsed.
func NewRenderer(locale string) *Renderer {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil || tag == language.Und {
		tag = language.BrazilianPortuguese
	}
	return &Renderer{p: message.NewPrinter(tag)}
}

// Money formats cents as "R$ 1.234,56".
func (r *Renderer) Money(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return sign + "R$ " + r.p.Sprintf("%d", cents/100) + fmt.Sprintf(",%02d", cents%100)
}

func (r *Renderer) Date(d models.Date) string {
	if d.IsZero() {
		return "-"
	}
	return d.Format(DisplayDateLayout)
}

func (r *Renderer) Time(t time.Time) string {
	return r.Date(models.DateOf(t))
}

// MethodLabel returns the display name of a payment method.
func MethodLabel(method string) string {
	if label, ok := methodLabels[strings.ToLower(strings.TrimSpace(method))]; ok {
		return label
	}
	if method == "" {
		return "-"
	}
	return method
}

// Receipt is everything a payment receipt mentions.
type Receipt struct {
	Company     *models.CompanyConfig
	Trip        *models.Trip
	Client      *models.Client
	Payment     *models.Payment
	Installment *models.Installment
}

// ReceiptEmail renders the receipt email sent after a payment.
func (r *Renderer) ReceiptEmail(rc Receipt) (subject, body string) {
	tripTitle := "-"
	if rc.Trip != nil {
		tripTitle = rc.Trip.Title
	}
	subject = r.p.Sprintf("receipt.subject", tripTitle)

	var b strings.Builder
	b.WriteString(r.p.Sprintf("receipt.greeting", rc.Client.Name))
	b.WriteString("\n\n")
	b.WriteString(r.p.Sprintf("receipt.body",
		r.Money(rc.Payment.AmountCents), r.Time(rc.Payment.PaidAt), MethodLabel(rc.Payment.Method), tripTitle))
	if rc.Installment != nil {
		b.WriteString(" ")
		b.WriteString(r.p.Sprintf("receipt.installment", rc.Installment.Sequence, rc.Installment.Count))
	}
	b.WriteString("\n")
	if balance := rc.Client.BalanceCents(); balance > 0 {
		b.WriteString(r.p.Sprintf("receipt.balance", r.Money(balance)))
	} else {
		b.WriteString(r.p.Sprintf("receipt.settled"))
	}
	b.WriteString("\n")
	b.WriteString(r.p.Sprintf("receipt.attachment"))
	r.writeSignature(&b, rc.Company)
	return subject, b.String()
}

// ReminderEmail renders an installment reminder; overdue installments get the
// past-tense wording.
func (r *Renderer) ReminderEmail(company *models.CompanyConfig, trip *models.Trip, client *models.Client, inst *models.Installment) (subject, body string) {
	due := r.Date(inst.DueDate)
	subject = r.p.Sprintf("reminder.subject", inst.Sequence, inst.Count, due)

	key := "reminder.body"
	if inst.Status == models.InstallmentOverdue {
		key = "reminder.overdue"
	}
	var b strings.Builder
	b.WriteString(r.p.Sprintf(key, client.Name, inst.Sequence, inst.Count, trip.Title, r.Money(inst.AmountCents), due))
	r.writeSignature(&b, company)
	return subject, b.String()
}

func (r *Renderer) ContractFormAlert(form *models.ContractForm, trip *models.Trip) string {
	return r.p.Sprintf("alert.contract_form", form.Name, len(form.Companions), tripLabel(trip))
}

func (r *Renderer) ContactAlert(c *models.Contact) string {
	return r.p.Sprintf("alert.contact", c.Name, c.Email, c.Message)
}

func (r *Renderer) PaymentAlert(client *models.Client, payment *models.Payment) string {
	return r.p.Sprintf("alert.payment", r.Money(payment.AmountCents), client.Name, MethodLabel(payment.Method))
}

func (r *Renderer) writeSignature(b *strings.Builder, company *models.CompanyConfig) {
	if company == nil || company.Name == "" {
		return
	}
	b.WriteString("\n\n")
	b.WriteString(r.p.Sprintf("signature", company.Name))
	if company.Phone != "" {
		b.WriteString("\n")
		b.WriteString(r.p.Sprintf("contact_line", company.Phone))
	}
}

func tripLabel(trip *models.Trip) string {
	if trip == nil {
		return "-"
	}
	if trip.DepartureDate != nil && !trip.DepartureDate.IsZero() {
		return trip.Title + " (" + trip.DepartureDate.Format(DisplayDateLayout) + ")"
	}
	return trip.Title
}
