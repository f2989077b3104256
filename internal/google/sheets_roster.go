package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"viagens/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

var errSheetNotFound = errors.New("sheet not found")

const maxTitleLen = 90

var rosterHeaders = []interface{}{
	"ID", "Nome", "Documento", "Telefone", "Email", "Nascimento", "Idade", "Faixa",
	"Colo", "Principal", "Poltrona", "Total", "Pago", "Situação",
}

// SheetsService mirrors trip rosters into a spreadsheet, one sheet per trip.
type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string

	mu       sync.Mutex
	sheetIDs map[string]int64
}

func NewSheetsService(ctx context.Context, credentialsFile, spreadsheetID string) (*SheetsService, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}
	return newSheetsService(srv, spreadsheetID), nil
}

func newSheetsService(srv *sheets.Service, spreadsheetID string) *SheetsService {
	return &SheetsService{
		service:       srv,
		spreadsheetID: spreadsheetID,
		sheetIDs:      make(map[string]int64),
	}
}

// TestConnection reads the spreadsheet metadata.
func (s *SheetsService) TestConnection(ctx context.Context) error {
	if _, err := s.service.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// ServiceAccountEmail returns the address the spreadsheet must be shared with.
func ServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}
	var creds struct {
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}
	return creds.ClientEmail, nil
}

// ReplaceRoster rewrites the trip's sheet with the current passenger list,
// creating the sheet on first use.
func (s *SheetsService) ReplaceRoster(ctx context.Context, trip *models.Trip, clients []*models.Client) error {
	if trip == nil {
		return errors.New("trip is nil")
	}
	title := SheetTitle(trip)
	if _, err := s.ensureSheet(ctx, title); err != nil {
		return err
	}

	prefix := quoteTitle(title)
	_, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, prefix+"!A1:Z", &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to clear roster sheet: %w", err)
	}

	values := make([][]interface{}, 0, len(clients)+1)
	values = append(values, rosterHeaders)
	for _, c := range clients {
		values = append(values, rosterRow(c))
	}

	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, prefix+"!A1", &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update roster sheet: %w", err)
	}
	return nil
}

func (s *SheetsService) ensureSheet(ctx context.Context, title string) (int64, error) {
	s.mu.Lock()
	id, ok := s.sheetIDs[title]
	s.mu.Unlock()
	if ok {
		return id, nil
	}

	id, err := s.GetSheetIDByName(ctx, title)
	if errors.Is(err, errSheetNotFound) {
		id, err = s.addSheet(ctx, title)
	}
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.sheetIDs[title] = id
	s.mu.Unlock()
	return id, nil
}

func (s *SheetsService) addSheet(ctx context.Context, title string) (int64, error) {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: title},
			},
		}},
	}
	resp, err := s.service.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("unable to add sheet %q: %w", title, err)
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
		return 0, fmt.Errorf("unable to add sheet %q: empty reply", title)
	}
	return resp.Replies[0].AddSheet.Properties.SheetId, nil
}

// GetSheetIDByName returns the id of the sheet with the given title.
func (s *SheetsService) GetSheetIDByName(ctx context.Context, sheetName string) (int64, error) {
	spreadsheet, err := s.service.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("unable to get spreadsheet: %w", err)
	}
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == sheetName {
			return sheet.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", errSheetNotFound, sheetName)
}

// SheetTitle names the roster sheet of a trip.
func SheetTitle(trip *models.Trip) string {
	title := fmt.Sprintf("%d - %s", trip.ID, strings.TrimSpace(trip.Title))
	if r := []rune(title); len(r) > maxTitleLen {
		title = string(r[:maxTitleLen])
	}
	return title
}

func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func rosterRow(c *models.Client) []interface{} {
	row := []interface{}{
		c.ID,
		c.Name,
		c.Document,
		c.Phone,
		c.Email,
		"",
		"",
		string(c.AgeBracket),
		c.LapChild,
		"",
		"",
		float64(c.PackageTotalCents) / 100,
		float64(c.PaidCents) / 100,
		string(c.PaymentStatus),
	}
	if c.BirthDate != nil {
		row[5] = c.BirthDate.Format("02/01/2006")
	}
	if c.Age != nil {
		row[6] = *c.Age
	}
	if c.PrincipalID != nil {
		row[9] = *c.PrincipalID
	}
	if c.SeatNumber != nil {
		row[10] = *c.SeatNumber
	}
	return row
}
