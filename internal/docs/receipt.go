package docs

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"viagens/internal/models"
	"viagens/internal/notify"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

const codeLength = 16

// Generator renders receipts and installment booklets as PDF.
type Generator struct {
	render *notify.Renderer
	secret []byte
	now    func() time.Time
}

func NewGenerator(render *notify.Renderer, secret string) *Generator {
	if render == nil {
		render = notify.NewRenderer("pt-BR")
	}
	sum := sha256.Sum256([]byte(secret))
	return &Generator{render: render, secret: sum[:], now: time.Now}
}

// VerificationCode is the short code printed on a receipt and encoded in its
// QR code. It changes if the payment id, client or amount change.
func (g *Generator) VerificationCode(p *models.Payment) string {
	mac := hmac.New(sha256.New, g.secret)
	fmt.Fprintf(mac, "payment:%d:%d:%d", p.ID, p.ClientID, p.AmountCents)
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil))[:codeLength])
}

func (g *Generator) Verify(p *models.Payment, code string) bool {
	want := g.VerificationCode(p)
	return hmac.Equal([]byte(want), []byte(strings.ToUpper(strings.TrimSpace(code))))
}

// Receipt renders a one-page payment receipt.
func (g *Generator) Receipt(rc notify.Receipt) ([]byte, error) {
	if rc.Client == nil || rc.Payment == nil {
		return nil, fmt.Errorf("receipt needs a client and a payment")
	}
	code := g.VerificationCode(rc.Payment)
	qr, err := qrcode.Encode("RECIBO:"+fmt.Sprint(rc.Payment.ID)+":"+code, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr("Recibo de pagamento"), false)
	pdf.AddPage()

	g.header(pdf, tr, rc.Company)

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, tr(fmt.Sprintf("RECIBO Nº %06d", rc.Payment.ID)))
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		"Recebemos de: " + rc.Client.Name,
		"Documento: " + dash(rc.Client.Document),
		"Valor: " + g.render.Money(rc.Payment.AmountCents),
		"Forma de pagamento: " + notify.MethodLabel(rc.Payment.Method),
		"Data do pagamento: " + g.render.Time(rc.Payment.PaidAt),
	}
	if rc.Trip != nil {
		lines = append(lines, "Referente a: "+rc.Trip.Title+" - "+rc.Trip.Destination)
	}
	if rc.Installment != nil {
		lines = append(lines, fmt.Sprintf("Parcela: %d de %d (vencimento %s)",
			rc.Installment.Sequence, rc.Installment.Count, g.render.Date(rc.Installment.DueDate)))
	}
	if rc.Payment.Note != "" {
		lines = append(lines, "Observação: "+rc.Payment.Note)
	}
	for _, s := range lines {
		pdf.Cell(0, 7, tr(s))
		pdf.Ln(7)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, tr("Total do pacote: "+g.render.Money(rc.Client.PackageTotalCents)))
	pdf.Ln(7)
	pdf.Cell(0, 7, tr("Total pago: "+g.render.Money(rc.Client.PaidCents)))
	pdf.Ln(7)
	pdf.Cell(0, 7, tr("Saldo: "+g.render.Money(rc.Client.BalanceCents())))
	pdf.Ln(12)

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(qr))
	y := pdf.GetY()
	pdf.ImageOptions("qr", 15, y, 40, 40, false, opts, 0, "")
	pdf.SetXY(60, y+14)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, tr("Código de verificação: "+code))
	pdf.SetXY(60, y+20)
	pdf.Cell(0, 6, tr("Emitido em "+g.render.Time(g.now())))

	return output(pdf)
}

func (g *Generator) header(pdf *gofpdf.Fpdf, tr func(string) string, company *models.CompanyConfig) {
	if company == nil || company.Name == "" {
		return
	}
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, tr(company.Name))
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 9)
	var parts []string
	for _, p := range []string{company.Document, company.Address, company.Phone, company.Email} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) > 0 {
		pdf.MultiCell(0, 5, tr(strings.Join(parts, " | ")), "", "", false)
	}
	pdf.Ln(6)
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
