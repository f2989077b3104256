package models

import "time"

// CompanyConfig is the single agency profile row printed on receipts.
type CompanyConfig struct {
	Name      string    `json:"name"`
	Document  string    `json:"document"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	PixKey    string    `json:"pix_key,omitempty"`
	Website   string    `json:"website,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Document is an uploaded file attached to a trip or client.
type Document struct {
	ID          int64     `json:"id"`
	OwnerType   string    `json:"owner_type"`
	OwnerID     int64     `json:"owner_id"`
	FileName    string    `json:"file_name"`
	StoredName  string    `json:"-"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	UploadedBy  string    `json:"uploaded_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

const (
	OwnerTrip   = "trip"
	OwnerClient = "client"
)

// FinancialReport aggregates revenue and expenses, optionally for one trip.
type FinancialReport struct {
	TripID           *int64           `json:"trip_id,omitempty"`
	ExpectedCents    int64            `json:"expected_cents"`
	ReceivedCents    int64            `json:"received_cents"`
	OutstandingCents int64            `json:"outstanding_cents"`
	ExpensesCents    int64            `json:"expenses_cents"`
	ResultCents      int64            `json:"result_cents"`
	ByCategory       map[string]int64 `json:"expenses_by_category"`
	ByStatus         map[string]int   `json:"clients_by_status"`
}
