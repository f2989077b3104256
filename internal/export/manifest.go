package export

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"viagens/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	SheetPassengers = "Passageiros"
	SheetRooms      = "Quartos"
	SheetSummary    = "Resumo"
	SheetExpenses   = "Despesas"
	SheetStatus     = "Clientes"
)

var bracketLabels = map[models.AgeBracket]string{
	models.BracketExempt: "Isento",
	models.BracketChild:  "Criança",
	models.BracketAdult:  "Adulto",
}

var paymentLabels = map[models.PaymentStatus]string{
	models.PaymentPaid:    "Pago",
	models.PaymentPartial: "Parcial",
	models.PaymentPending: "Pendente",
}

var manifestHeaders = []string{
	"Poltrona", "Nome", "Documento", "Nascimento", "Idade", "Faixa", "Colo",
	"Acompanhante de", "Quarto", "Telefone", "Total", "Pago", "Situação",
}

// Manifest is everything the trip manifest lists.
type Manifest struct {
	Trip    *models.Trip
	Clients []*models.Client
	Rooms   []*models.Room
}

// WriteManifest writes the passenger manifest and rooming list as XLSX.
func WriteManifest(w io.Writer, m Manifest) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetPassengers)
	if err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if _, err := f.NewSheet(SheetRooms); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	_ = f.DeleteSheet("Sheet1")

	styles, err := newStyles(f)
	if err != nil {
		return err
	}

	title := m.Trip.Title
	if m.Trip.DepartureDate != nil {
		title += " - " + m.Trip.DepartureDate.Format("02/01/2006")
	}
	_ = f.SetCellValue(SheetPassengers, "A1", title)
	_ = f.MergeCell(SheetPassengers, "A1", "M1")
	_ = f.SetCellStyle(SheetPassengers, "A1", "A1", styles.title)

	writeHeader(f, SheetPassengers, 2, manifestHeaders, styles.header)

	names := make(map[int64]string, len(m.Clients))
	for _, c := range m.Clients {
		names[c.ID] = c.Name
	}
	rooms := make(map[int64]string, len(m.Rooms))
	for _, r := range m.Rooms {
		rooms[r.ID] = r.Label
	}

	clients := append([]*models.Client(nil), m.Clients...)
	sort.SliceStable(clients, func(i, j int) bool {
		return seatKey(clients[i]) < seatKey(clients[j])
	})

	row := 3
	for _, c := range clients {
		values := []interface{}{
			optionalInt(c.SeatNumber),
			c.Name,
			c.Document,
			optionalDate(c.BirthDate),
			optionalInt(c.Age),
			bracketLabels[c.AgeBracket],
			yesNo(c.LapChild),
			principalName(c, names),
			roomLabel(c, rooms),
			c.Phone,
			cents(c.PackageTotalCents),
			cents(c.PaidCents),
			paymentLabels[c.PaymentStatus],
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(SheetPassengers, cell, &values); err != nil {
			return fmt.Errorf("error writing row %d: %w", row, err)
		}
		row++
	}
	if row > 3 {
		from, _ := excelize.CoordinatesToCellName(11, 3)
		to, _ := excelize.CoordinatesToCellName(12, row-1)
		_ = f.SetCellStyle(SheetPassengers, from, to, styles.money)
	}
	_ = f.SetColWidth(SheetPassengers, "B", "B", 30)
	_ = f.SetColWidth(SheetPassengers, "C", "J", 16)

	if err := writeRooms(f, m, styles); err != nil {
		return err
	}

	return f.Write(w)
}

func writeRooms(f *excelize.File, m Manifest, styles *sheetStyles) error {
	writeHeader(f, SheetRooms, 1, []string{"Quarto", "Camas", "Capacidade", "Ocupação", "Hóspedes"}, styles.header)

	guests := make(map[int64][]string)
	for _, c := range m.Clients {
		if c.RoomID != nil {
			guests[*c.RoomID] = append(guests[*c.RoomID], c.Name)
		}
	}

	for i, r := range m.Rooms {
		values := []interface{}{r.Label, r.BedConfig, r.Capacity, r.Occupancy, strings.Join(guests[r.ID], ", ")}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetRooms, cell, &values); err != nil {
			return fmt.Errorf("error writing room %s: %w", r.Label, err)
		}
	}
	_ = f.SetColWidth(SheetRooms, "E", "E", 60)
	return nil
}

func writeHeader(f *excelize.File, sheet string, row int, headers []string, style int) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, h)
		_ = f.SetCellStyle(sheet, cell, cell, style)
	}
}

type sheetStyles struct {
	title  int
	header int
	money  int
}

func newStyles(f *excelize.File) (*sheetStyles, error) {
	title, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("error creating style: %w", err)
	}
	header, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("error creating style: %w", err)
	}
	moneyFmt := `"R$" #,##0.00`
	money, err := f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFmt})
	if err != nil {
		return nil, fmt.Errorf("error creating style: %w", err)
	}
	return &sheetStyles{title: title, header: header, money: money}, nil
}

// seatKey orders seated passengers first, by seat number.
func seatKey(c *models.Client) int {
	if c.SeatNumber == nil {
		return 1 << 30
	}
	return *c.SeatNumber
}

func optionalInt(v *int) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func optionalDate(d *models.Date) string {
	if d == nil || d.IsZero() {
		return ""
	}
	return d.Format("02/01/2006")
}

func yesNo(b bool) string {
	if b {
		return "Sim"
	}
	return "Não"
}

func principalName(c *models.Client, names map[int64]string) string {
	if c.PrincipalID == nil {
		return ""
	}
	return names[*c.PrincipalID]
}

func roomLabel(c *models.Client, rooms map[int64]string) string {
	if c.RoomID == nil {
		return ""
	}
	return rooms[*c.RoomID]
}
