// Package domain contains persistence models for invoice master data read by
// the 340 extractor: invoices, their lines and the taxes applied to them.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/aeat340/internal/aeat"
	"gorm.io/datatypes"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusPosted    InvoiceStatus = "posted"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// InvoiceType distinguishes direction and credit notes.
type InvoiceType string

const (
	TypeOutInvoice    InvoiceType = "out_invoice"
	TypeOutCreditNote InvoiceType = "out_credit_note"
	TypeInInvoice     InvoiceType = "in_invoice"
	TypeInCreditNote  InvoiceType = "in_credit_note"
)

// IsCreditNote reports whether the type is a credit note of either direction.
func (t InvoiceType) IsCreditNote() bool {
	return strings.Contains(string(t), "credit_note")
}

// Direction returns "in" or "out".
func (t InvoiceType) Direction() string {
	if strings.HasPrefix(string(t), "in") {
		return "in"
	}
	return "out"
}

// Invoice is a posted or draft customer/supplier invoice.
type Invoice struct {
	ID          snowflake.ID  `gorm:"primaryKey"`
	CompanyID   snowflake.ID  `gorm:"not null;index"`
	Number      string        `gorm:"type:text;not null"`
	Type        InvoiceType   `gorm:"type:text;not null"`
	Status      InvoiceStatus `gorm:"type:text;not null;default:'draft'"`
	Currency    string        `gorm:"type:text;not null"`
	FiscalYear  int           `gorm:"not null;index"`
	InvoiceDate time.Time     `gorm:"not null"`

	// MoveNumber links the accounting move created at posting. Empty until
	// the invoice is posted.
	MoveNumber string `gorm:"type:text"`

	// RectifiedInvoiceNumber carries, on credit notes, the number of the
	// invoice being corrected.
	RectifiedInvoiceNumber string `gorm:"type:text"`

	PartyName           string `gorm:"type:text;not null"`
	PartyTaxID          string `gorm:"type:text"`
	PartyCountry        string `gorm:"type:text"`
	PartyIdentifierType string `gorm:"type:text;not null;default:'1'"`

	Metadata  datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`

	Lines []InvoiceLine `gorm:"foreignKey:InvoiceID"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// Month returns the calendar month of the invoice date.
func (i Invoice) Month() int {
	return int(i.InvoiceDate.Month())
}

// InvoiceLine is one taxable line of an invoice, carrying its 340 keys.
type InvoiceLine struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	InvoiceID snowflake.ID `gorm:"not null;index"`

	Description string          `gorm:"type:text"`
	Amount      decimal.Decimal `gorm:"type:numeric(16,2);not null"`

	// BookKey and OperationKey drive 340 reporting. A line with an empty
	// book key or a "none of the above" operation key is not reported.
	BookKey      string `gorm:"type:text"`
	OperationKey string `gorm:"type:text"`

	// OriginNumber references the source document (ticket, sale) the line
	// was invoiced from; used for ticket summaries (operation key B).
	OriginNumber string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`

	Taxes []Tax `gorm:"many2many:invoice_line_taxes"`
}

// TableName sets the database table name.
func (InvoiceLine) TableName() string { return "invoice_lines" }

// Reportable reports whether the line carries both keys needed for 340.
func (l InvoiceLine) Reportable() bool {
	return l.BookKey != "" && l.OperationKey != ""
}

// Tax is a tax definition. Composite taxes (equivalence-surtax regimes) have
// children; the parent itself carries no rate of its own.
type Tax struct {
	ID   snowflake.ID `gorm:"primaryKey"`
	Name string       `gorm:"type:text;not null"`

	// Rate is the fraction applied to the base, e.g. 0.21 for 21%.
	Rate decimal.Decimal `gorm:"type:numeric(16,4);not null"`

	// Recargo marks an equivalence-surtax child tax. Only valid on
	// children of a composite tax.
	Recargo bool `gorm:"not null;default:false"`

	ParentID *snowflake.ID `gorm:"index"`
	Children []Tax         `gorm:"foreignKey:ParentID"`

	// AvailableBookKeys lists the 340 book keys the tax may report under.
	AvailableBookKeys datatypes.JSONSlice[string] `gorm:"type:jsonb"`

	DefaultOutBookKey string `gorm:"type:text"`
	DefaultInBookKey  string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Tax) TableName() string { return "taxes" }

// HasBookKey reports whether key is among the tax's available book keys.
func (t Tax) HasBookKey(key string) bool {
	for _, k := range t.AvailableBookKeys {
		if k == key {
			return true
		}
	}
	return false
}

// DefaultBookKey returns the configured default book key for an invoice
// direction ("in" or "out"), or empty.
func (t Tax) DefaultBookKey(direction string) string {
	if direction == "in" {
		return t.DefaultInBookKey
	}
	return t.DefaultOutBookKey
}

// DefaultOperationKey resolves the default 340 operation key for an invoice
// type: credit notes get "D", everything else starts as a several-taxes
// candidate and is corrected at extraction time.
func DefaultOperationKey(t InvoiceType) aeat.OperationKey {
	if t.IsCreditNote() {
		return aeat.OperationKeyCreditNote
	}
	return aeat.OperationKeySeveralTaxes
}
