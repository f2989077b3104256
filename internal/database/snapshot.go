package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"viagens/internal/models"
)

// SnapshotVersion is bumped whenever the export layout changes.
const SnapshotVersion = 2

// Snapshot is the full JSON export of the database.
type Snapshot struct {
	Version      int                          `json:"version"`
	ExportedAt   time.Time                    `json:"exported_at"`
	Company      *models.CompanyConfig        `json:"company,omitempty"`
	Trips        []*models.Trip               `json:"trips"`
	Clients      []*models.Client             `json:"clients"`
	Seats        []*models.Seat               `json:"seats"`
	Rooms        []*models.Room               `json:"rooms"`
	Installments []*models.Installment        `json:"installments"`
	Payments     []*models.Payment            `json:"payments"`
	Documents    []*models.Document           `json:"documents"`
	Users        []*models.User               `json:"users"`
	Records      map[string][]json.RawMessage `json:"records"`
}

// Snapshot reads every entity in one transaction so the export is consistent.
func (db *DB) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{Version: SnapshotVersion, ExportedAt: now()}

	err := db.InTx(ctx, func(tx *Store) error {
		var err error
		company, err := tx.GetCompanyConfig(ctx)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return err
		default:
			snap.Company = company
		}

		if snap.Trips, err = tx.ListTrips(ctx, models.TripFilter{}); err != nil {
			return err
		}
		if snap.Clients, err = tx.ListClients(ctx, models.ClientFilter{}); err != nil {
			return err
		}
		for _, trip := range snap.Trips {
			seats, err := tx.ListSeats(ctx, trip.ID)
			if err != nil {
				return err
			}
			snap.Seats = append(snap.Seats, seats...)

			rooms, err := tx.ListRooms(ctx, trip.ID)
			if err != nil {
				return err
			}
			snap.Rooms = append(snap.Rooms, rooms...)

			docs, err := tx.ListDocuments(ctx, models.OwnerTrip, trip.ID)
			if err != nil {
				return err
			}
			snap.Documents = append(snap.Documents, docs...)
		}
		for _, c := range snap.Clients {
			items, err := tx.ListInstallments(ctx, c.ID)
			if err != nil {
				return err
			}
			snap.Installments = append(snap.Installments, items...)

			payments, err := tx.ListPayments(ctx, c.ID)
			if err != nil {
				return err
			}
			snap.Payments = append(snap.Payments, payments...)

			docs, err := tx.ListDocuments(ctx, models.OwnerClient, c.ID)
			if err != nil {
				return err
			}
			snap.Documents = append(snap.Documents, docs...)
		}
		if snap.Users, err = tx.ListUsers(ctx); err != nil {
			return err
		}
		snap.Records, err = tx.rawRecords(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build snapshot: %w", err)
	}
	return snap, nil
}
