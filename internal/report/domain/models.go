// Package domain contains the AEAT 340 report header, its four aggregated
// line collections and the lifecycle states gating them.
package domain

import (
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// State is a report lifecycle state.
type State string

const (
	StateDraft      State = "draft"
	StateCalculated State = "calculated"
	StateDone       State = "done"
	StateCancelled  State = "cancelled"
)

// transitions is the directed edge set of the report state machine.
var transitions = map[State][]State{
	StateDraft:      {StateCalculated, StateCancelled},
	StateCalculated: {StateDraft, StateDone, StateCancelled},
	StateDone:       {StateCancelled},
	StateCancelled:  {StateDraft},
}

// CanTransition reports whether from→to is a legal lifecycle edge.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StatementType is the declaration statement type.
type StatementType string

const (
	StatementNormal        StatementType = "N"
	StatementComplementary StatementType = "C"
	StatementSubstitutive  StatementType = "S"
)

// SupportType is how the declaration is submitted.
type SupportType string

const (
	SupportDVD        SupportType = "C"
	SupportTelematics SupportType = "T"
)

// Report is the model 340 declaration header owning the aggregated lines.
type Report struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	CompanyID snowflake.ID `gorm:"not null;index"`

	// CompanyName is the presenter name written to the file header.
	CompanyName  string `gorm:"type:text;not null"`
	CompanyTaxID string `gorm:"type:text;not null"`
	Currency     string `gorm:"type:text;not null"`

	FiscalYear     int    `gorm:"not null"`
	FiscalYearCode int    `gorm:"not null"`
	Period         string `gorm:"type:text;not null"`

	Type        StatementType `gorm:"type:text;not null;default:'N'"`
	SupportType SupportType   `gorm:"type:text;not null;default:'T'"`

	PreviousNumber      string `gorm:"type:text"`
	RepresentativeTaxID string `gorm:"type:text"`
	ContactPhone        string `gorm:"type:text"`
	ContactName         string `gorm:"type:text"`

	State           State      `gorm:"type:text;not null;default:'draft'"`
	CalculationDate *time.Time `gorm:""`
	File            []byte     `gorm:"column:file"`

	Metadata  datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`

	IssuedLines         []IssuedLine         `gorm:"foreignKey:ReportID;constraint:OnDelete:CASCADE"`
	ReceivedLines       []ReceivedLine       `gorm:"foreignKey:ReportID;constraint:OnDelete:CASCADE"`
	InvestmentLines     []InvestmentLine     `gorm:"foreignKey:ReportID;constraint:OnDelete:CASCADE"`
	IntracommunityLines []IntracommunityLine `gorm:"foreignKey:ReportID;constraint:OnDelete:CASCADE"`
}

// TableName sets the database table name.
func (Report) TableName() string { return "aeat340_reports" }

// Filename is the declaration file name for the report.
func (r Report) Filename() string {
	return "aeat340-" + strconv.Itoa(r.FiscalYearCode) + "-" + r.Period + ".txt"
}

// Totals are the report-level aggregates, computed on demand and never
// stored redundantly.
type Totals struct {
	TaxableTotal  decimal.Decimal `json:"taxable_total"`
	ShareTaxTotal decimal.Decimal `json:"sharetax_total"`
	RecordCount   int             `json:"record_count"`
	Total         decimal.Decimal `json:"total"`
}

// LineCore carries the fields shared by all four line kinds.
type LineCore struct {
	ID       snowflake.ID `gorm:"primaryKey"`
	ReportID snowflake.ID `gorm:"not null;index"`

	PartyTaxID          string `gorm:"type:text"`
	RepresentativeTaxID string `gorm:"type:text"`
	PartyName           string `gorm:"type:text"`
	PartyCountry        string `gorm:"type:text"`
	PartyIdentifierType string `gorm:"type:text;not null;default:'1'"`
	PartyIdentifier     string `gorm:"type:text"`

	BookKey      string `gorm:"type:text;not null"`
	OperationKey string `gorm:"type:text;not null"`

	IssueDate     time.Time `gorm:"not null"`
	OperationDate time.Time `gorm:"not null"`

	TaxRate decimal.Decimal `gorm:"type:numeric(16,2);not null"`
	Base    decimal.Decimal `gorm:"type:numeric(16,2);not null"`
	Tax     decimal.Decimal `gorm:"type:numeric(16,2);not null"`
	Total   decimal.Decimal `gorm:"type:numeric(16,2);not null"`

	// Cost is required for operation key G (special arrangement parties).
	Cost *decimal.Decimal `gorm:"type:numeric(16,2)"`

	InvoiceNumber string `gorm:"type:text"`
	RecordNumber  string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// Kind tags the four line collections.
type Kind string

const (
	KindIssued         Kind = "issued"
	KindReceived       Kind = "received"
	KindInvestment     Kind = "investment"
	KindIntracommunity Kind = "intracommunity"
)

// ValidBookKeys returns the book keys a line of this kind may carry.
func (k Kind) ValidBookKeys() []string {
	switch k {
	case KindIssued:
		return []string{"E", "F"}
	case KindReceived:
		return []string{"R", "S"}
	case KindInvestment:
		return []string{"I", "J"}
	case KindIntracommunity:
		return []string{"U"}
	default:
		return nil
	}
}

// AcceptsBookKey reports whether key belongs to the kind's valid set.
func (k Kind) AcceptsBookKey(key string) bool {
	for _, valid := range k.ValidBookKeys() {
		if key == valid {
			return true
		}
	}
	return false
}

// KindForBookKey routes a tax record's book key to its line collection.
// Anything outside the issued/received/investment sets is intracommunity.
func KindForBookKey(key string) Kind {
	switch key {
	case "E", "F":
		return KindIssued
	case "R", "S":
		return KindReceived
	case "I", "J":
		return KindInvestment
	default:
		return KindIntracommunity
	}
}

// IssuedLine is an aggregated issued-invoices declaration row.
type IssuedLine struct {
	LineCore

	IssuedInvoiceCount      int    `gorm:"not null;default:0"`
	RecordCount             int    `gorm:"not null;default:0"`
	FirstInvoiceNumber      string `gorm:"type:text"`
	LastInvoiceNumber       string `gorm:"type:text"`
	CorrectiveInvoiceNumber string `gorm:"type:text"`

	EquivalenceTaxRate *decimal.Decimal `gorm:"type:numeric(16,2)"`
	EquivalenceTax     *decimal.Decimal `gorm:"type:numeric(16,2)"`

	PropertyState          string           `gorm:"type:text;not null;default:'0'"`
	CadasterNumber         string           `gorm:"type:text"`
	CashAmount             *decimal.Decimal `gorm:"type:numeric(16,2)"`
	InvoiceFiscalYear      int              `gorm:"not null;default:0"`
	PropertyTransferAmount *decimal.Decimal `gorm:"type:numeric(16,2)"`
}

// TableName sets the database table name.
func (IssuedLine) TableName() string { return "aeat340_report_issued" }

func (IssuedLine) Kind() Kind { return KindIssued }

// ReceivedLine is an aggregated received-invoices declaration row.
type ReceivedLine struct {
	LineCore

	ReceivedInvoiceCount int    `gorm:"not null;default:0"`
	RecordCount          int    `gorm:"not null;default:0"`
	FirstInvoiceNumber   string `gorm:"type:text"`
	LastInvoiceNumber    string `gorm:"type:text"`

	DeducibleAmount *decimal.Decimal `gorm:"type:numeric(16,2)"`
}

// TableName sets the database table name.
func (ReceivedLine) TableName() string { return "aeat340_report_received" }

func (ReceivedLine) Kind() Kind { return KindReceived }

// InvestmentLine is an aggregated investment-goods declaration row.
type InvestmentLine struct {
	LineCore

	ProRata              int              `gorm:"not null;default:0"`
	YearlyRegularization *decimal.Decimal `gorm:"type:numeric(16,2)"`
	SubmissionNumber     string           `gorm:"type:text"`
	Transmissions        *decimal.Decimal `gorm:"type:numeric(16,2)"`
	UsageStartDate       *time.Time       `gorm:""`
	GoodIdentifier       string           `gorm:"type:text"`
}

// TableName sets the database table name.
func (InvestmentLine) TableName() string { return "aeat340_report_investment" }

func (InvestmentLine) Kind() Kind { return KindInvestment }

// IntracommunityLine is an aggregated intracommunity-operations row.
type IntracommunityLine struct {
	LineCore

	IntracommunityOperationType int    `gorm:"not null;default:0"`
	DeclaringKey                string `gorm:"type:text"`
	IntracommunityCountry       string `gorm:"type:text"`
	OperationTerm               int    `gorm:"not null;default:0"`
	GoodsDescription            string `gorm:"type:text"`
	PartyStreet                 string `gorm:"type:text"`
	PartyCity                   string `gorm:"type:text"`
	PartyZip                    string `gorm:"type:text"`
	OtherDocumentation          string `gorm:"type:text"`
}

// TableName sets the database table name.
func (IntracommunityLine) TableName() string { return "aeat340_report_intracommunity" }

func (IntracommunityLine) Kind() Kind { return KindIntracommunity }
