package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// Service drives invoice posting transitions. Posting extracts 340 tax
// records; reverting to draft or cancelling removes them.
type Service interface {
	Post(ctx context.Context, ids []snowflake.ID) error
	ReturnToDraft(ctx context.Context, ids []snowflake.ID) error
	Cancel(ctx context.Context, ids []snowflake.ID) error
	GetByID(ctx context.Context, id snowflake.ID) (Invoice, error)
}

var (
	ErrInvoiceNotFound = errors.New("invoice_not_found")
	ErrNotDraft        = errors.New("invoice_not_draft")
	ErrNotPosted       = errors.New("invoice_not_posted")
)
