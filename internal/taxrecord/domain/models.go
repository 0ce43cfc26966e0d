// Package domain contains the 340 tax record: one row per (invoice line
// group, applicable tax), extracted at invoice posting and consumed by the
// report aggregator.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/aeat340/internal/invoice/domain"
)

// TaxRecord is the pre-aggregated declaration source row.
type TaxRecord struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	CompanyID  snowflake.ID `gorm:"not null;index"`
	FiscalYear int          `gorm:"not null;index"`
	Month      int          `gorm:"not null;index"`

	PartyName           string `gorm:"type:text;not null"`
	PartyTaxID          string `gorm:"type:text"`
	PartyCountry        string `gorm:"type:text"`
	PartyIdentifierType string `gorm:"type:text;not null;default:'1'"`

	BookKey      string `gorm:"type:text;not null"`
	OperationKey string `gorm:"type:text;not null"`

	// TaxRate is a percentage, e.g. 21.00.
	TaxRate decimal.Decimal `gorm:"type:numeric(16,2);not null"`
	Base    decimal.Decimal `gorm:"type:numeric(16,2);not null"`
	Tax     decimal.Decimal `gorm:"type:numeric(16,2);not null"`
	Total   decimal.Decimal `gorm:"type:numeric(16,2);not null"`

	// Equivalence surtax, present only when the composite tax carried a
	// recargo child. Reported on issued lines only.
	EquivalenceTaxRate *decimal.Decimal `gorm:"type:numeric(16,2)"`
	EquivalenceTax     *decimal.Decimal `gorm:"type:numeric(16,2)"`

	InvoiceID     snowflake.ID `gorm:"not null;index"`
	TaxID         snowflake.ID `gorm:"not null;index"`
	InvoiceNumber string       `gorm:"type:text;not null"`
	IssueDate     time.Time    `gorm:"not null"`
	OperationDate time.Time    `gorm:"not null"`

	// MoveNumber is the accounting move of the invoice, projected into the
	// report line's record number.
	MoveNumber string `gorm:"type:text"`

	// Ticket summary data (operation key B): the number of distinct origin
	// documents folded into the record and their min/max numbers.
	TicketCount       int    `gorm:"not null;default:0"`
	FirstTicketNumber string `gorm:"type:text"`
	LastTicketNumber  string `gorm:"type:text"`

	// CorrectiveInvoiceNumber is the rectified invoice number on credit
	// note records (operation key D).
	CorrectiveInvoiceNumber string `gorm:"type:text"`

	// Back references to the report line each record was folded into.
	// Null until the record is aggregated.
	IssuedLineID         *snowflake.ID `gorm:"index"`
	ReceivedLineID       *snowflake.ID `gorm:"index"`
	InvestmentLineID     *snowflake.ID `gorm:"index"`
	IntracommunityLineID *snowflake.ID `gorm:"index"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`

	InvoiceLines []invoicedomain.InvoiceLine `gorm:"many2many:tax_record_invoice_lines"`
}

// TableName sets the database table name.
func (TaxRecord) TableName() string { return "aeat340_records" }

// FirstLastInvoiceNumber returns the bounds of the origin document numbers
// for ticket summary records. Empty strings when the record carries none.
func (r TaxRecord) FirstLastInvoiceNumber() (string, string) {
	return r.FirstTicketNumber, r.LastTicketNumber
}
