package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// CreateReportRequest carries the user-editable header fields.
type CreateReportRequest struct {
	CompanyID           snowflake.ID  `json:"company_id"`
	CompanyName         string        `json:"company_name"`
	CompanyTaxID        string        `json:"company_tax_id"`
	Currency            string        `json:"currency"`
	FiscalYear          int           `json:"fiscal_year"`
	FiscalYearCode      int           `json:"fiscal_year_code"`
	Period              string        `json:"period"`
	Type                StatementType `json:"type"`
	SupportType         SupportType   `json:"support_type"`
	PreviousNumber      string        `json:"previous_number"`
	RepresentativeTaxID string        `json:"representative_tax_id"`
	ContactPhone        string        `json:"contact_phone"`
	ContactName         string        `json:"contact_name"`
}

// LineUpdate targets one line of a calculated report.
type LineUpdate struct {
	Kind   Kind
	LineID snowflake.ID
	// Fields maps column names to new values.
	Fields map[string]any
}

// Service drives the report lifecycle and aggregation.
type Service interface {
	Create(ctx context.Context, req CreateReportRequest) (Report, error)
	Get(ctx context.Context, id snowflake.ID) (Report, error)
	List(ctx context.Context) ([]Report, error)

	// Calculate aggregates tax records into report lines and moves the
	// reports draft→calculated. All reports share one transaction.
	Calculate(ctx context.Context, ids []snowflake.ID) error

	// Process builds the declaration file and moves calculated→done.
	Process(ctx context.Context, id snowflake.ID) error

	// Draft deletes the report lines and returns to draft.
	Draft(ctx context.Context, id snowflake.ID) error

	// Cancel moves any non-cancelled report to cancelled.
	Cancel(ctx context.Context, id snowflake.ID) error

	// Totals computes the on-demand report aggregates.
	Totals(ctx context.Context, id snowflake.ID) (Totals, error)

	// UpdateLine modifies a line; only legal while the owning report is
	// calculated.
	UpdateLine(ctx context.Context, update LineUpdate) error

	// DeleteLine removes a line; only legal while the owning report is
	// draft or calculated, unless the deletion cascades from the report.
	DeleteLine(ctx context.Context, kind Kind, lineID snowflake.ID, allowCascade bool) error
}

var (
	ErrReportNotFound    = errors.New("report_not_found")
	ErrInvalidCurrency   = errors.New("invalid_currency")
	ErrInvalidPeriod     = errors.New("invalid_period")
	ErrInvalidBookKey    = errors.New("invalid_book_key")
	ErrInvalidTransition = errors.New("invalid_state_transition")
	ErrLineNotEditable   = errors.New("line_not_editable")
	ErrLineNotDeletable  = errors.New("line_not_deletable")
	ErrLineNotFound      = errors.New("line_not_found")

	// ErrInvariant marks upstream data corruption (e.g. a credit note
	// operation key on a non-credit-note invoice).
	ErrInvariant = errors.New("invariant_violation")
)
