package docs

import (
	"errors"
	"fmt"

	"viagens/internal/models"
	"viagens/internal/notify"

	"github.com/phpdave11/gofpdf"
)

var ErrNoInstallments = errors.New("client has no installments")

var statusLabels = map[models.InstallmentStatus]string{
	models.InstallmentPending: "Em aberto",
	models.InstallmentPaid:    "Paga",
	models.InstallmentOverdue: "Vencida",
}

// Booklet renders the installment booklet (carnê): a summary table followed
// by one detachable coupon per installment.
func (g *Generator) Booklet(company *models.CompanyConfig, trip *models.Trip, client *models.Client, items []*models.Installment) ([]byte, error) {
	if len(items) == 0 {
		return nil, ErrNoInstallments
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr("Carnê de parcelas"), false)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	g.header(pdf, tr, company)

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr("Carnê de parcelas"))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, tr("Cliente: "+client.Name))
	pdf.Ln(6)
	if trip != nil {
		pdf.Cell(0, 6, tr("Viagem: "+trip.Title+" - "+trip.Destination))
		pdf.Ln(6)
	}
	pdf.Cell(0, 6, tr("Valor do pacote: "+g.render.Money(client.PackageTotalCents)))
	pdf.Ln(10)

	widths := []float64{30, 45, 50, 45}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range []string{"Parcela", "Vencimento", "Valor", "Situação"} {
		pdf.CellFormat(widths[i], 7, tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	var total int64
	for _, it := range items {
		total += it.AmountCents
		row := []string{
			fmt.Sprintf("%d/%d", it.Sequence, it.Count),
			g.render.Date(it.DueDate),
			g.render.Money(it.AmountCents),
			statusLabel(it.Status),
		}
		for i, v := range row {
			pdf.CellFormat(widths[i], 7, tr(v), "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(widths[0]+widths[1], 7, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[2], 7, tr(g.render.Money(total)), "1", 0, "C", false, 0, "")
	pdf.CellFormat(widths[3], 7, "", "1", 0, "C", false, 0, "")
	pdf.Ln(12)

	for _, it := range items {
		g.coupon(pdf, tr, company, client, it)
	}

	return output(pdf)
}

func (g *Generator) coupon(pdf *gofpdf.Fpdf, tr func(string) string, company *models.CompanyConfig, client *models.Client, it *models.Installment) {
	const height = 32.0
	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	if pdf.GetY()+height > pageH-bottom {
		pdf.AddPage()
	}

	x, y := pdf.GetX(), pdf.GetY()
	pdf.SetDashPattern([]float64{1, 1}, 0)
	pdf.Rect(x, y, 180, height-4, "D")
	pdf.SetDashPattern([]float64{}, 0)

	pdf.SetXY(x+3, y+3)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(120, 6, tr(fmt.Sprintf("Parcela %d de %d", it.Sequence, it.Count)))
	pdf.Cell(0, 6, tr(g.render.Money(it.AmountCents)))

	pdf.SetXY(x+3, y+10)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(120, 6, tr("Cliente: "+client.Name))
	pdf.Cell(0, 6, tr("Vencimento: "+g.render.Date(it.DueDate)))

	pdf.SetXY(x+3, y+17)
	info := "Forma de pagamento: " + notify.MethodLabel(it.Method)
	if company != nil && company.PixKey != "" {
		info += "   Chave Pix: " + company.PixKey
	}
	pdf.Cell(0, 6, tr(info))

	pdf.SetXY(x, y+height)
}

func statusLabel(s models.InstallmentStatus) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}
