package service

import (
	"context"
	"fmt"
	"io"

	"viagens/internal/database"
	"viagens/internal/export"
	"viagens/internal/models"
)

// ExportService assembles spreadsheet and CSV exports. Each export can be
// streamed to a writer or saved into the export directory.
type ExportService struct {
	db       *database.DB
	company  *CompanyService
	exporter *export.Exporter
}

func NewExportService(db *database.DB, company *CompanyService, exporter *export.Exporter) *ExportService {
	return &ExportService{db: db, company: company, exporter: exporter}
}

// Manifest writes the passenger manifest and rooming list of a trip.
func (s *ExportService) Manifest(ctx context.Context, tripID int64, w io.Writer) error {
	trip, err := s.db.GetTrip(ctx, tripID)
	if err != nil {
		return err
	}
	clients, err := s.db.ListClients(ctx, models.ClientFilter{TripID: tripID})
	if err != nil {
		return err
	}
	rooms, err := s.db.ListRooms(ctx, tripID)
	if err != nil {
		return err
	}
	return export.WriteManifest(w, export.Manifest{Trip: trip, Clients: clients, Rooms: rooms})
}

func (s *ExportService) Financial(ctx context.Context, tripID *int64, w io.Writer) error {
	report, err := s.company.FinancialReport(ctx, tripID)
	if err != nil {
		return err
	}
	title := "Relatório financeiro geral"
	if tripID != nil {
		trip, err := s.db.GetTrip(ctx, *tripID)
		if err != nil {
			return err
		}
		title = "Relatório financeiro - " + trip.Title
	}
	return export.WriteFinancial(w, title, report)
}

// ClientsCSV writes the clients of one trip, or of every trip when tripID is 0.
func (s *ExportService) ClientsCSV(ctx context.Context, tripID int64, w io.Writer) error {
	clients, err := s.db.ListClients(ctx, models.ClientFilter{TripID: tripID})
	if err != nil {
		return err
	}
	trips, err := s.db.ListTrips(ctx, models.TripFilter{})
	if err != nil {
		return err
	}
	byID := make(map[int64]*models.Trip, len(trips))
	for _, t := range trips {
		byID[t.ID] = t
	}
	return export.WriteClientsCSV(w, clients, byID)
}

func (s *ExportService) SaveManifest(ctx context.Context, tripID int64) (string, error) {
	return s.exporter.Save(fmt.Sprintf("manifesto_viagem_%d", tripID), "xlsx", func(w io.Writer) error {
		return s.Manifest(ctx, tripID, w)
	})
}

func (s *ExportService) SaveFinancial(ctx context.Context, tripID *int64) (string, error) {
	prefix := "financeiro"
	if tripID != nil {
		prefix = fmt.Sprintf("financeiro_viagem_%d", *tripID)
	}
	return s.exporter.Save(prefix, "xlsx", func(w io.Writer) error {
		return s.Financial(ctx, tripID, w)
	})
}

func (s *ExportService) SaveClientsCSV(ctx context.Context, tripID int64) (string, error) {
	return s.exporter.Save("clientes", "csv", func(w io.Writer) error {
		return s.ClientsCSV(ctx, tripID, w)
	})
}
