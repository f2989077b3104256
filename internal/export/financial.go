package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"viagens/internal/models"

	"github.com/xuri/excelize/v2"
)

// WriteFinancial writes the financial report as XLSX: a summary sheet plus
// expenses per category and clients per payment status.
func WriteFinancial(w io.Writer, title string, r *models.FinancialReport) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetSummary)
	if err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	for _, name := range []string{SheetExpenses, SheetStatus} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("error creating sheet: %w", err)
		}
	}
	_ = f.DeleteSheet("Sheet1")

	styles, err := newStyles(f)
	if err != nil {
		return err
	}

	_ = f.SetCellValue(SheetSummary, "A1", title)
	_ = f.MergeCell(SheetSummary, "A1", "B1")
	_ = f.SetCellStyle(SheetSummary, "A1", "A1", styles.title)

	summary := []struct {
		label string
		value int64
	}{
		{"Receita prevista", r.ExpectedCents},
		{"Recebido", r.ReceivedCents},
		{"A receber", r.OutstandingCents},
		{"Despesas", r.ExpensesCents},
		{"Resultado", r.ResultCents},
	}
	for i, s := range summary {
		row := i + 2
		_ = f.SetCellValue(SheetSummary, fmt.Sprintf("A%d", row), s.label)
		_ = f.SetCellValue(SheetSummary, fmt.Sprintf("B%d", row), cents(s.value))
	}
	_ = f.SetCellStyle(SheetSummary, "B2", fmt.Sprintf("B%d", len(summary)+1), styles.money)
	_ = f.SetColWidth(SheetSummary, "A", "B", 24)

	writeHeader(f, SheetExpenses, 1, []string{"Categoria", "Valor"}, styles.header)
	for i, cat := range sortedKeys(r.ByCategory) {
		row := i + 2
		_ = f.SetCellValue(SheetExpenses, fmt.Sprintf("A%d", row), cat)
		_ = f.SetCellValue(SheetExpenses, fmt.Sprintf("B%d", row), cents(r.ByCategory[cat]))
		_ = f.SetCellStyle(SheetExpenses, fmt.Sprintf("B%d", row), fmt.Sprintf("B%d", row), styles.money)
	}

	writeHeader(f, SheetStatus, 1, []string{"Situação", "Clientes"}, styles.header)
	statuses := make([]string, 0, len(r.ByStatus))
	for s := range r.ByStatus {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)
	for i, s := range statuses {
		label := paymentLabels[models.PaymentStatus(s)]
		if label == "" {
			label = s
		}
		row := i + 2
		_ = f.SetCellValue(SheetStatus, fmt.Sprintf("A%d", row), label)
		_ = f.SetCellValue(SheetStatus, fmt.Sprintf("B%d", row), r.ByStatus[s])
	}

	return f.Write(w)
}

var csvHeaders = []string{
	"id", "viagem", "nome", "documento", "telefone", "email", "nascimento", "idade",
	"faixa", "colo", "principal_id", "poltrona", "total", "pago", "situacao",
}

// WriteClientsCSV writes one line per client. Amounts are decimal reais with
// a dot separator and dates are ISO.
func WriteClientsCSV(w io.Writer, clients []*models.Client, trips map[int64]*models.Trip) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeaders); err != nil {
		return fmt.Errorf("error writing csv header: %w", err)
	}
	for _, c := range clients {
		tripTitle := ""
		if t := trips[c.TripID]; t != nil {
			tripTitle = t.Title
		}
		rec := []string{
			strconv.FormatInt(c.ID, 10),
			tripTitle,
			c.Name,
			c.Document,
			c.Phone,
			c.Email,
			isoDate(c.BirthDate),
			fmt.Sprint(optionalInt(c.Age)),
			string(c.AgeBracket),
			strconv.FormatBool(c.LapChild),
			optionalID(c.PrincipalID),
			fmt.Sprint(optionalInt(c.SeatNumber)),
			strconv.FormatFloat(cents(c.PackageTotalCents), 'f', 2, 64),
			strconv.FormatFloat(cents(c.PaidCents), 'f', 2, 64),
			string(c.PaymentStatus),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("error writing client %d: %w", c.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func isoDate(d *models.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func optionalID(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
