package models

import "time"

// Record kinds kept in the generic JSON record table.
const (
	KindSupplier       = "supplier"
	KindStaffMember    = "staff_member"
	KindContact        = "contact"
	KindContractForm   = "contract_form"
	KindCompanyExpense = "company_expense"
)

// Record is implemented by entities persisted as JSON documents.
type Record interface {
	Kind() string
	Meta() *RecordMeta
}

// RecordMeta carries the storage-managed fields of a Record.
type RecordMeta struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (m *RecordMeta) Meta() *RecordMeta { return m }

type Supplier struct {
	RecordMeta
	Name     string `json:"name"`
	Category string `json:"category"`
	Document string `json:"document,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Email    string `json:"email,omitempty"`
	City     string `json:"city,omitempty"`
	Notes    string `json:"notes,omitempty"`
	Active   bool   `json:"active"`
}

func (*Supplier) Kind() string { return KindSupplier }

type StaffMember struct {
	RecordMeta
	Name           string `json:"name"`
	Role           string `json:"role"`
	Phone          string `json:"phone,omitempty"`
	Email          string `json:"email,omitempty"`
	DailyRateCents int64  `json:"daily_rate_cents"`
	Active         bool   `json:"active"`
}

func (*StaffMember) Kind() string { return KindStaffMember }

type ContactStatus string

const (
	ContactNew      ContactStatus = "new"
	ContactAnswered ContactStatus = "answered"
	ContactArchived ContactStatus = "archived"
)

// Contact is a message left through the public site.
type Contact struct {
	RecordMeta
	Name    string        `json:"name"`
	Email   string        `json:"email"`
	Phone   string        `json:"phone,omitempty"`
	Message string        `json:"message"`
	TripID  *int64        `json:"trip_id,omitempty"`
	Status  ContactStatus `json:"status"`
}

func (*Contact) Kind() string { return KindContact }

type ContractStatus string

const (
	ContractReceived  ContractStatus = "received"
	ContractConverted ContractStatus = "converted"
	ContractRejected  ContractStatus = "rejected"
)

// Companion is a traveller declared on a contract form.
type Companion struct {
	Name      string `json:"name"`
	Document  string `json:"document,omitempty"`
	BirthDate *Date  `json:"birth_date,omitempty"`
	LapChild  bool   `json:"lap_child"`
}

// ContractForm is the public sign-up form for a trip.
type ContractForm struct {
	RecordMeta
	TripID     int64          `json:"trip_id"`
	Name       string         `json:"name"`
	Document   string         `json:"document"`
	BirthDate  *Date          `json:"birth_date,omitempty"`
	Phone      string         `json:"phone"`
	Email      string         `json:"email"`
	Address    string         `json:"address,omitempty"`
	PriceTier  int            `json:"price_tier,omitempty"`
	Companions []Companion    `json:"companions,omitempty"`
	Accepted   bool           `json:"accepted_terms"`
	Status     ContractStatus `json:"status"`
	ClientID   *int64         `json:"client_id,omitempty"`
}

func (*ContractForm) Kind() string { return KindContractForm }

type CompanyExpense struct {
	RecordMeta
	Description string `json:"description"`
	Category    string `json:"category"`
	AmountCents int64  `json:"amount_cents"`
	Date        Date   `json:"date"`
	TripID      *int64 `json:"trip_id,omitempty"`
	SupplierID  *int64 `json:"supplier_id,omitempty"`
	Paid        bool   `json:"paid"`
}

func (*CompanyExpense) Kind() string { return KindCompanyExpense }
