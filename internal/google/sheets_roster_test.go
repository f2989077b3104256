package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"viagens/internal/models"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

type fakeSheets struct {
	mu       sync.Mutex
	titles   map[string]int64
	calls    []string
	written  *sheets.ValueRange
	failGets bool
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && path == "/v4/spreadsheets/roster_id":
		f.calls = append(f.calls, "get")
		if f.failGets {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":{"code":403,"message":"denied"}}`))
			return
		}
		var resp sheets.Spreadsheet
		for title, id := range f.titles {
			resp.Sheets = append(resp.Sheets, &sheets.Sheet{Properties: &sheets.SheetProperties{Title: title, SheetId: id}})
		}
		_ = json.NewEncoder(w).Encode(resp)
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		f.calls = append(f.calls, "add")
		var req sheets.BatchUpdateSpreadsheetRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		title := req.Requests[0].AddSheet.Properties.Title
		id := int64(100 + len(f.titles))
		f.titles[title] = id
		_ = json.NewEncoder(w).Encode(sheets.BatchUpdateSpreadsheetResponse{
			Replies: []*sheets.Response{{AddSheet: &sheets.AddSheetResponse{Properties: &sheets.SheetProperties{Title: title, SheetId: id}}}},
		})
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		f.calls = append(f.calls, "clear")
		_ = json.NewEncoder(w).Encode(sheets.ClearValuesResponse{})
	case r.Method == http.MethodPut:
		f.calls = append(f.calls, "update")
		var vr sheets.ValueRange
		_ = json.NewDecoder(r.Body).Decode(&vr)
		f.written = &vr
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	default:
		http.NotFound(w, r)
	}
}

func setupMockServer(t *testing.T, fake *fakeSheets) *SheetsService {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)
	srv, err := sheets.NewService(context.Background(), option.WithEndpoint(server.URL), option.WithoutAuthentication())
	if err != nil {
		t.Fatalf("sheets.NewService: %v", err)
	}
	return newSheetsService(srv, "roster_id")
}

func TestSheetsService_TestConnection(t *testing.T) {
	fake := &fakeSheets{titles: map[string]int64{}}
	s := setupMockServer(t, fake)
	if err := s.TestConnection(context.Background()); err != nil {
		t.Fatalf("TestConnection failed: %v", err)
	}

	fake.failGets = true
	if err := s.TestConnection(context.Background()); err == nil {
		t.Fatal("expected error when spreadsheet is not shared")
	}
}

func TestSheetsService_ReplaceRosterCreatesSheet(t *testing.T) {
	fake := &fakeSheets{titles: map[string]int64{"Resumo": 0}}
	s := setupMockServer(t, fake)
	ctx := context.Background()

	age := 8
	seat := 3
	principal := int64(1)
	birth := models.NewDate(2016, 2, 1)
	trip := &models.Trip{ID: 7, Title: "Gramado"}
	clients := []*models.Client{
		{ID: 1, Name: "Ana", PackageTotalCents: 120000, PaidCents: 40000, PaymentStatus: models.PaymentPartial},
		{ID: 2, Name: "Bia", PrincipalID: &principal, Age: &age, BirthDate: &birth, SeatNumber: &seat},
	}

	if err := s.ReplaceRoster(ctx, trip, clients); err != nil {
		t.Fatalf("ReplaceRoster failed: %v", err)
	}
	if got := strings.Join(fake.calls, ","); got != "get,add,clear,update" {
		t.Fatalf("calls = %s", got)
	}
	if _, ok := fake.titles["7 - Gramado"]; !ok {
		t.Fatalf("sheet not created: %v", fake.titles)
	}
	if fake.written == nil || len(fake.written.Values) != 3 {
		t.Fatalf("expected header + 2 rows, got %+v", fake.written)
	}
	if fake.written.Values[2][5] != "01/02/2016" {
		t.Errorf("birth date = %v", fake.written.Values[2][5])
	}

	// second run reuses the cached sheet id
	fake.calls = nil
	if err := s.ReplaceRoster(ctx, trip, clients[:1]); err != nil {
		t.Fatalf("ReplaceRoster failed: %v", err)
	}
	if got := strings.Join(fake.calls, ","); got != "clear,update" {
		t.Fatalf("calls = %s", got)
	}
}

func TestSheetsService_ReplaceRosterExistingSheet(t *testing.T) {
	fake := &fakeSheets{titles: map[string]int64{"7 - Gramado": 55}}
	s := setupMockServer(t, fake)

	if err := s.ReplaceRoster(context.Background(), &models.Trip{ID: 7, Title: "Gramado"}, nil); err != nil {
		t.Fatalf("ReplaceRoster failed: %v", err)
	}
	if got := strings.Join(fake.calls, ","); got != "get,clear,update" {
		t.Fatalf("calls = %s", got)
	}
	if s.sheetIDs["7 - Gramado"] != 55 {
		t.Errorf("sheet id not cached")
	}
}

func TestSheetsService_ReplaceRosterErrors(t *testing.T) {
	fake := &fakeSheets{titles: map[string]int64{}, failGets: true}
	s := setupMockServer(t, fake)

	if err := s.ReplaceRoster(context.Background(), &models.Trip{ID: 1, Title: "X"}, nil); err == nil {
		t.Fatal("expected error")
	}
	if err := s.ReplaceRoster(context.Background(), nil, nil); err == nil {
		t.Fatal("expected error for nil trip")
	}
}

func TestSheetTitle(t *testing.T) {
	long := strings.Repeat("á", 200)
	if got := []rune(SheetTitle(&models.Trip{ID: 1, Title: long})); len(got) != maxTitleLen {
		t.Errorf("title length = %d", len(got))
	}
	if got := quoteTitle("Dona's trip"); got != "'Dona''s trip'" {
		t.Errorf("quoteTitle = %s", got)
	}
}

func TestServiceAccountEmail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	if err := os.WriteFile(path, []byte(`{"client_email":"bot@project.iam.gserviceaccount.com"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	email, err := ServiceAccountEmail(path)
	if err != nil || email != "bot@project.iam.gserviceaccount.com" {
		t.Fatalf("email = %q, err = %v", email, err)
	}
	if _, err := ServiceAccountEmail(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestNewSheetsService_BadCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	if err := os.WriteFile(path, []byte(`not json`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewSheetsService(context.Background(), path, "id"); err == nil {
		t.Fatal("expected error for invalid credentials")
	}
}
