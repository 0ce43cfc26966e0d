package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Service extracts and maintains 340 tax records for invoices.
type Service interface {
	// CreateForInvoices replaces the tax records of the given invoices with
	// a freshly extracted set. Runs on invoice posting and on demand.
	CreateForInvoices(ctx context.Context, invoiceIDs []snowflake.ID) error

	// CreateForInvoicesTx is CreateForInvoices inside a caller transaction.
	CreateForInvoicesTx(ctx context.Context, tx *gorm.DB, invoiceIDs []snowflake.ID) error

	// DeleteForInvoices removes every tax record linked to the invoices.
	// Runs when an invoice returns to draft or is cancelled.
	DeleteForInvoices(ctx context.Context, invoiceIDs []snowflake.ID) error

	// DeleteForInvoicesTx is DeleteForInvoices inside a caller transaction.
	DeleteForInvoicesTx(ctx context.Context, tx *gorm.DB, invoiceIDs []snowflake.ID) error

	// Reassign overwrites the book and/or operation key of the invoices'
	// lines and re-extracts their records. A non-empty bookKey must be
	// accepted by at least one line's taxes.
	Reassign(ctx context.Context, invoiceIDs []snowflake.ID, bookKey, operationKey string) error
}

var (
	// ErrBookKeyNotAvailable rejects a reassignment no invoice line can take.
	ErrBookKeyNotAvailable = errors.New("book_key_not_available")

	// ErrInvariant marks upstream data corruption: the operation aborts
	// instead of coercing the data.
	ErrInvariant = errors.New("invariant_violation")
)
