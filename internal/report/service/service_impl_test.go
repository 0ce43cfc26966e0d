package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/aeat340/internal/clock"
	invoicedomain "github.com/smallbiznis/aeat340/internal/invoice/domain"
	"github.com/smallbiznis/aeat340/internal/migration"
	"github.com/smallbiznis/aeat340/internal/report/domain"
	taxrecorddomain "github.com/smallbiznis/aeat340/internal/taxrecord/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
	"gorm.io/gorm"
)

var calcTime = time.Date(2023, 4, 20, 12, 0, 0, 0, time.UTC)

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return node
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(decimal.RequireFromString(want)), "want %s, got %s", want, got)
}

func setupReportService(t *testing.T, node *snowflake.Node) (*Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, migration.Run(db))

	fake := clock.NewFakeClock(calcTime)
	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fake,
	})
	return svc.(*Service), db, fake
}

func createReport(t *testing.T, svc *Service, companyID snowflake.ID, period string) domain.Report {
	t.Helper()
	report, err := svc.Create(context.Background(), domain.CreateReportRequest{
		CompanyID:      companyID,
		CompanyName:    "Compañía Test",
		CompanyTaxID:   "A12345674",
		Currency:       "EUR",
		FiscalYear:     2023,
		FiscalYearCode: 2023,
		Period:         period,
		ContactName:    "Contacto",
		ContactPhone:   "911234567",
	})
	require.NoError(t, err)
	return report
}

type recordSpec struct {
	invoice      *invoicedomain.Invoice
	month        int
	bookKey      string
	operationKey string
	taxRate      string
	base         string
	tax          string
	issueDate    time.Time
	ticketCount  int
	firstTicket  string
	lastTicket   string
}

func seedInvoice(t *testing.T, db *gorm.DB, node *snowflake.Node, companyID snowflake.ID, number string, typ invoicedomain.InvoiceType, date time.Time) *invoicedomain.Invoice {
	t.Helper()
	inv := &invoicedomain.Invoice{
		ID:          node.Generate(),
		CompanyID:   companyID,
		Number:      number,
		Type:        typ,
		Status:      invoicedomain.InvoiceStatusPosted,
		Currency:    "EUR",
		FiscalYear:  date.Year(),
		InvoiceDate: date,
		MoveNumber:  "MOVE-" + number,
		PartyName:   "Cliente",
	}
	require.NoError(t, db.Create(inv).Error)
	return inv
}

func seedRecord(t *testing.T, db *gorm.DB, node *snowflake.Node, companyID snowflake.ID, spec recordSpec) taxrecorddomain.TaxRecord {
	t.Helper()

	base := decimal.RequireFromString(spec.base)
	tax := decimal.RequireFromString(spec.tax)
	issueDate := spec.issueDate
	if issueDate.IsZero() {
		issueDate = spec.invoice.InvoiceDate
	}
	rec := taxrecorddomain.TaxRecord{
		ID:                  node.Generate(),
		CompanyID:           companyID,
		FiscalYear:          spec.invoice.FiscalYear,
		Month:               spec.month,
		PartyName:           spec.invoice.PartyName,
		PartyTaxID:          "00000000T",
		PartyCountry:        "ES",
		PartyIdentifierType: "1",
		BookKey:             spec.bookKey,
		OperationKey:        spec.operationKey,
		TaxRate:             decimal.RequireFromString(spec.taxRate),
		Base:                base,
		Tax:                 tax,
		Total:               base.Add(tax),
		InvoiceID:           spec.invoice.ID,
		TaxID:               node.Generate(),
		InvoiceNumber:       spec.invoice.Number,
		IssueDate:           issueDate,
		OperationDate:       issueDate,
		MoveNumber:          spec.invoice.MoveNumber,
		TicketCount:         spec.ticketCount,
		FirstTicketNumber:   spec.firstTicket,
		LastTicketNumber:    spec.lastTicket,
	}
	require.NoError(t, db.Create(&rec).Error)
	return rec
}

func issuedLines(t *testing.T, db *gorm.DB, reportID snowflake.ID) []domain.IssuedLine {
	t.Helper()
	var lines []domain.IssuedLine
	require.NoError(t, db.Where("report_id = ?", reportID).Order("issue_date ASC, id ASC").Find(&lines).Error)
	return lines
}

func TestCreateValidatesHeader(t *testing.T) {
	node := mustNode(t)
	svc, _, _ := setupReportService(t, node)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateReportRequest{
		Currency: "USD", FiscalYear: 2023, FiscalYearCode: 2023, Period: "1T",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCurrency)

	_, err = svc.Create(ctx, domain.CreateReportRequest{
		Currency: "EUR", FiscalYear: 2023, FiscalYearCode: 2023, Period: "13",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPeriod)

	report, err := svc.Create(ctx, domain.CreateReportRequest{
		Currency: "EUR", FiscalYear: 2023, FiscalYearCode: 2023, Period: "1T",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StateDraft, report.State)
	assert.Equal(t, domain.StatementNormal, report.Type)
	assert.Equal(t, domain.SupportTelematics, report.SupportType)
}

func TestCalculateAppliesCreditNoteSign(t *testing.T) {
	node := mustNode(t)
	svc, db, _ := setupReportService(t, node)
	companyID := node.Generate()
	ctx := context.Background()

	report := createReport(t, svc, companyID, "1T")
	regular := seedInvoice(t, db, node, companyID, "F-1", invoicedomain.TypeOutInvoice,
		time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC))
	creditNote := seedInvoice(t, db, node, companyID, "R-1", invoicedomain.TypeOutCreditNote,
		time.Date(2023, 1, 20, 0, 0, 0, 0, time.UTC))

	seedRecord(t, db, node, companyID, recordSpec{
		invoice: regular, month: 1, bookKey: "E", operationKey: " ",
		taxRate: "21", base: "100", tax: "21",
	})
	seedRecord(t, db, node, companyID, recordSpec{
		invoice: creditNote, month: 1, bookKey: "E", operationKey: " ",
		taxRate: "21", base: "100", tax: "21",
	})

	require.NoError(t, svc.Calculate(ctx, []snowflake.ID{report.ID}))

	lines := issuedLines(t, db, report.ID)
	require.Len(t, lines, 2)
	assertDecimal(t, "100", lines[0].Base)
	assertDecimal(t, "21", lines[0].Tax)
	assertDecimal(t, "-100", lines[1].Base)
	assertDecimal(t, "-21", lines[1].Tax)

	got, err := svc.Get(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateCalculated, got.State)
	require.NotNil(t, got.CalculationDate)
	assert.WithinDuration(t, calcTime, *got.CalculationDate, time.Second)

	totals, err := svc.Totals(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, totals.RecordCount)
	assertDecimal(t, "0", totals.TaxableTotal)
	assertDecimal(t, "0", totals.ShareTaxTotal)
	assertDecimal(t, "0", totals.Total)
}

func TestCalculateMergesRecordsUnderOneKey(t *testing.T) {
	node := mustNode(t)
	svc, db, _ := setupReportService(t, node)
	companyID := node.Generate()
	ctx := context.Background()

	report := createReport(t, svc, companyID, "1T")
	inv := seedInvoice(t, db, node, companyID, "F-2", invoicedomain.TypeOutInvoice,
		time.Date(2023, 2, 5, 0, 0, 0, 0, time.UTC))

	seedRecord(t, db, node, companyID, recordSpec{
		invoice: inv, month: 2, bookKey: "E", operationKey: " ",
		taxRate: "21", base: "100", tax: "21",
	})
	seedRecord(t, db, node, companyID, recordSpec{
		invoice: inv, month: 2, bookKey: "E", operationKey: " ",
		taxRate: "21", base: "200", tax: "42",
	})

	require.NoError(t, svc.Calculate(ctx, []snowflake.ID{report.ID}))

	lines := issuedLines(t, db, report.ID)
	require.Len(t, lines, 1)
	assertDecimal(t, "300", lines[0].Base)
	assertDecimal(t, "63", lines[0].Tax)
	assertDecimal(t, "363", lines[0].Total)

	var records []taxrecorddomain.TaxRecord
	require.NoError(t, db.Where("invoice_id = ?", inv.ID).Find(&records).Error)
	for _, rec := range records {
		require.NotNil(t, rec.IssuedLineID)
		assert.Equal(t, lines[0].ID, *rec.IssuedLineID)
	}
}

func TestCalculateWindowSelectsPeriodMonthsOnly(t *testing.T) {
	node := mustNode(t)
	svc, db, _ := setupReportService(t, node)
	companyID := node.Generate()
	ctx := context.Background()

	report := createReport(t, svc, companyID, "2T")
	march := seedInvoice(t, db, node, companyID, "F-3", invoicedomain.TypeOutInvoice,
		time.Date(2023, 3, 31, 0, 0, 0, 0, time.UTC))
	april := seedInvoice(t, db, node, companyID, "F-4", invoicedomain.TypeOutInvoice,
		time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC))
	june := seedInvoice(t, db, node, companyID, "F-5", invoicedomain.TypeOutInvoice,
		time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC))
	july := seedInvoice(t, db, node, companyID, "F-6", invoicedomain.TypeOutInvoice,
		time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC))

	for _, tc := range []struct {
		inv   *invoicedomain.Invoice
		month int
	}{
		{march, 3}, {april, 4}, {june, 6}, {july, 7},
	} {
		seedRecord(t, db, node, companyID, recordSpec{
			invoice: tc.inv, month: tc.month, bookKey: "E", operationKey: " ",
			taxRate: "21", base: "100", tax: "21",
		})
	}

	require.NoError(t, svc.Calculate(ctx, []snowflake.ID{report.ID}))

	lines := issuedLines(t, db, report.ID)
	require.Len(t, lines, 2)
	assert.Equal(t, "F-4", lines[0].InvoiceNumber)
	assert.Equal(t, "F-5", lines[1].InvoiceNumber)
}

func TestCalculateMonthPeriod(t *testing.T) {
	node := mustNode(t)
	svc, db, _ := setupReportService(t, node)
	companyID := node.Generate()
	ctx := context.Background()

	report := createReport(t, svc, companyID, "07")
	june := seedInvoice(t, db, node, companyID, "F-7", invoicedomain.TypeOutInvoice,
		time.Date(2023, 6, 20, 0, 0, 0, 0, time.UTC))
	july := seedInvoice(t, db, node, companyID, "F-8", invoicedomain.TypeOutInvoice,
		time.Date(2023, 7, 20, 0, 0, 0, 0, time.UTC))

	seedRecord(t, db, node, companyID, recordSpec{
		invoice: june, month: 6, bookKey: "E", operationKey: " ",
		taxRate: "21", base: "100", tax: "21",
	})
	seedRecord(t, db, node, companyID, recordSpec{
		invoice: july, month: 7, bookKey: "E", operationKey: " ",
		taxRate: "21", base: "100", tax: "21",
	})

	require.NoError(t, svc.Calculate(ctx, []snowflake.ID{report.ID}))

	lines := issuedLines(t, db, report.ID)
	require.Len(t, lines, 1)
	assert.Equal(t, "F-8", lines[0].InvoiceNumber)
}

func TestCalculateRoutesBookKeysToKinds(t *testing.T) {
	node := mustNode(t)
	svc, db, _ := setupReportService(t, node)
	companyID := node.Generate()
	ctx := context.Background()

	report := createReport(t, svc, companyID, "1T")
	inv := seedInvoice(t, db, node, companyID, "F-9", invoicedomain.TypeOutInvoice,
		time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC))

	for _, bookKey := range []string{"E", "R", "I", "U"} {
		seedRecord(t, db, node, companyID, recordSpec{
			invoice: inv, month: 1, bookKey: bookKey, operationKey: " ",
			taxRate: "21", base: "100", tax: "21",
		})
	}

	require.NoError(t, svc.Calculate(ctx, []snowflake.ID{report.ID}))

	got, err := svc.Get(ctx, report.ID)
	require.NoError(t, err)
	assert.Len(t, got.IssuedLines, 1)
	assert.Len(t, got.ReceivedLines, 1)
	assert.Len(t, got.InvestmentLines, 1)
	assert.Len(t, got.IntracommunityLines, 1)

	totals, err := svc.Totals(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, totals.RecordCount)
	assertDecimal(t, "400", totals.TaxableTotal)
	assertDecimal(t, "84", totals.ShareTaxTotal)
	assertDecimal(t, "484", totals.Total)
}

func TestCalculateRejectsCreditNoteKeyOnRegularInvoice(t *testing.T) {
	node := mustNode(t)
	svc, db, _ := setupReportService(t, node)
	companyID := node.Generate()
	ctx := context.Background()

	report := createReport(t, svc, companyID, "1T")
	inv := seedInvoice(t, db, node, companyID, "F-10", invoicedomain.TypeOutInvoice,
		time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC))
	seedRecord(t, db, node, companyID, recordSpec{
		invoice: inv, month: 1, bookKey: "E", operationKey: "D",
		taxRate: "21", base: "100", tax: "21",
	})

	err := svc.Calculate(ctx, []snowflake.ID{report.ID})
	assert.ErrorIs(t, err, domain.ErrInvariant)

	got, err := svc.Get(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateDraft, got.State)
	assert.Empty(t, got.IssuedLines)
}

func TestCalculateIsIdempotent(t *testing.T) {
	node := mustNode(t)
	svc, db, _ := setupReportService(t, node)
	companyID := node.Generate()
	ctx := context.Background()

	report := createReport(t, svc, companyID, "1T")
	inv := seedInvoice(t, db, node, companyID, "F-11", invoicedomain.TypeOutInvoice,
		time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC))
	seedRecord(t, db, node, companyID, recordSpec{
		invoice: inv, month: 1, bookKey: "E", operationKey: " ",
		taxRate: "21", base: "100", tax: "21",
	})

	require.NoError(t, svc.Calculate(ctx, []snowflake.ID{report.ID}))
	first := issuedLines(t, db, report.ID)
	require.NoError(t, svc.Calculate(ctx, []snowflake.ID{report.ID}))
	second := issuedLines(t, db, report.ID)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.True(t, first[0].Base.Equal(second[0].Base))
	assert.True(t, first[0].Tax.Equal(second[0].Tax))
	assert.Equal(t, first[0].BookKey, second[0].BookKey)
	assert.Equal(t, first[0].InvoiceNumber, second[0].InvoiceNumber)
}

func TestCalculateTicketSummaryBoundsShrinkOnMerge(t *testing.T) {
	node := mustNode(t)
	svc, db, _ := setupReportService(t, node)
	companyID := node.Generate()
	ctx := context.Background()

	report := createReport(t, svc, companyID, "1T")
	inv := seedInvoice(t, db, node, companyID, "F-12", invoicedomain.TypeOutInvoice,
		time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC))

	seedRecord(t, db, node, companyID, recordSpec{
		invoice: inv, month: 1, bookKey: "E", operationKey: "B",
		taxRate: "21", base: "100", tax: "21",
		ticketCount: 3, firstTicket: "100", lastTicket: "200",
	})
	seedRecord(t, db, node, companyID, recordSpec{
		invoice: inv, month: 1, bookKey: "E", operationKey: "B",
		taxRate: "21", base: "50", tax: "10.5",
		ticketCount: 2, firstTicket: "050", lastTicket: "150",
	})

	require.NoError(t, svc.Calculate(ctx, []snowflake.ID{report.ID}))

	lines := issuedLines(t, db, report.ID)
	require.Len(t, lines, 1)
	line := lines[0]
	assert.Equal(t, 5, line.IssuedInvoiceCount)
	// Both bounds only ever replace on a strict "<": the lower incoming
	// last number shrinks the upper bound.
	assert.Equal(t, "050", line.FirstInvoiceNumber)
	assert.Equal(t, "150", line.LastInvoiceNumber)
	assertDecimal(t, "150", line.Base)
	assertDecimal(t, "31.5", line.Tax)
}

func TestLifecycleGates(t *testing.T) {
	node := mustNode(t)
	svc, db, _ := setupReportService(t, node)
	companyID := node.Generate()
	ctx := context.Background()

	report := createReport(t, svc, companyID, "1T")

	// draft cannot go straight to done.
	assert.ErrorIs(t, svc.Process(ctx, report.ID), domain.ErrInvalidTransition)

	inv := seedInvoice(t, db, node, companyID, "F-13", invoicedomain.TypeOutInvoice,
		time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC))
	seedRecord(t, db, node, companyID, recordSpec{
		invoice: inv, month: 1, bookKey: "E", operationKey: " ",
		taxRate: "21", base: "100", tax: "21",
	})

	require.NoError(t, svc.Calculate(ctx, []snowflake.ID{report.ID}))
	require.NoError(t, svc.Process(ctx, report.ID))

	// done only exits via cancel.
	assert.ErrorIs(t, svc.Draft(ctx, report.ID), domain.ErrInvalidTransition)
	assert.ErrorIs(t, svc.Calculate(ctx, []snowflake.ID{report.ID}), domain.ErrInvalidTransition)
	require.NoError(t, svc.Cancel(ctx, report.ID))

	// cancelled only exits via draft; drafting purges lines and file.
	assert.ErrorIs(t, svc.Cancel(ctx, report.ID), domain.ErrInvalidTransition)
	require.NoError(t, svc.Draft(ctx, report.ID))

	got, err := svc.Get(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateDraft, got.State)
	assert.Empty(t, got.IssuedLines)
	assert.Empty(t, got.File)
	assert.Nil(t, got.CalculationDate)
}

func TestUpdateLineStateAndBookKeyGates(t *testing.T) {
	node := mustNode(t)
	svc, db, _ := setupReportService(t, node)
	companyID := node.Generate()
	ctx := context.Background()

	report := createReport(t, svc, companyID, "1T")
	inv := seedInvoice(t, db, node, companyID, "F-14", invoicedomain.TypeOutInvoice,
		time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC))
	seedRecord(t, db, node, companyID, recordSpec{
		invoice: inv, month: 1, bookKey: "E", operationKey: " ",
		taxRate: "21", base: "100", tax: "21",
	})
	require.NoError(t, svc.Calculate(ctx, []snowflake.ID{report.ID}))
	lines := issuedLines(t, db, report.ID)
	require.Len(t, lines, 1)
	lineID := lines[0].ID

	// 'I' belongs to the investment book, not to issued lines.
	err := svc.UpdateLine(ctx, domain.LineUpdate{
		Kind: domain.KindIssued, LineID: lineID,
		Fields: map[string]any{"book_key": "I"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidBookKey)

	require.NoError(t, svc.UpdateLine(ctx, domain.LineUpdate{
		Kind: domain.KindIssued, LineID: lineID,
		Fields: map[string]any{"book_key": "F"},
	}))

	// Editing stops once the report leaves calculated.
	require.NoError(t, svc.Draft(ctx, report.ID))
	err = svc.UpdateLine(ctx, domain.LineUpdate{
		Kind: domain.KindIssued, LineID: lineID,
		Fields: map[string]any{"book_key": "E"},
	})
	assert.ErrorIs(t, err, domain.ErrLineNotFound)

	// A line attached to a draft report is not editable.
	stray := domain.IssuedLine{LineCore: domain.LineCore{
		ID: node.Generate(), ReportID: report.ID, BookKey: "E", OperationKey: " ",
		IssueDate: inv.InvoiceDate, OperationDate: inv.InvoiceDate,
	}}
	require.NoError(t, db.Create(&stray).Error)
	err = svc.UpdateLine(ctx, domain.LineUpdate{
		Kind: domain.KindIssued, LineID: stray.ID,
		Fields: map[string]any{"book_key": "F"},
	})
	assert.ErrorIs(t, err, domain.ErrLineNotEditable)
}

func TestProcessBuildsDeclarationFile(t *testing.T) {
	node := mustNode(t)
	svc, db, _ := setupReportService(t, node)
	companyID := node.Generate()
	ctx := context.Background()

	report := createReport(t, svc, companyID, "1T")
	inv := seedInvoice(t, db, node, companyID, "F-16", invoicedomain.TypeOutInvoice,
		time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC))
	seedRecord(t, db, node, companyID, recordSpec{
		invoice: inv, month: 1, bookKey: "E", operationKey: " ",
		taxRate: "21", base: "1000", tax: "210",
	})

	require.NoError(t, svc.Calculate(ctx, []snowflake.ID{report.ID}))
	require.NoError(t, svc.Process(ctx, report.ID))

	got, err := svc.Get(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateDone, got.State)
	assert.Equal(t, "aeat340-2023-1T.txt", got.Filename())

	// Two records of 500 chars, each CRLF terminated, one byte per char.
	require.Len(t, got.File, 2*(500+2))

	decoded, err := charmap.ISO8859_1.NewDecoder().String(string(got.File))
	require.NoError(t, err)
	lines := strings.Split(decoded, "\r\n")
	require.Len(t, lines, 3)
	assert.Empty(t, lines[2])

	header, detail := lines[0], lines[1]
	assert.Len(t, []rune(header), 500)
	assert.Len(t, []rune(detail), 500)
	assert.True(t, strings.HasPrefix(header, "13402023"), "header %q", header[:20])
	assert.True(t, strings.HasPrefix(detail, "23402023"), "detail %q", detail[:20])
	assert.Contains(t, header, "COMPAÑIA TEST")
	assert.Contains(t, detail, "F-16")
	// Base 1000.00 and tax 210.00 as signed cent amounts.
	assert.Contains(t, detail, " 0000000100000")
	assert.Contains(t, detail, " 0000000021000")
}

func TestDeleteLineGates(t *testing.T) {
	node := mustNode(t)
	svc, db, _ := setupReportService(t, node)
	companyID := node.Generate()
	ctx := context.Background()

	report := createReport(t, svc, companyID, "1T")
	inv := seedInvoice(t, db, node, companyID, "F-15", invoicedomain.TypeOutInvoice,
		time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC))
	seedRecord(t, db, node, companyID, recordSpec{
		invoice: inv, month: 1, bookKey: "E", operationKey: " ",
		taxRate: "21", base: "100", tax: "21",
	})
	require.NoError(t, svc.Calculate(ctx, []snowflake.ID{report.ID}))
	require.NoError(t, svc.Process(ctx, report.ID))

	lines := issuedLines(t, db, report.ID)
	require.Len(t, lines, 1)

	err := svc.DeleteLine(ctx, domain.KindIssued, lines[0].ID, false)
	assert.ErrorIs(t, err, domain.ErrLineNotDeletable)

	// The report-driven cascade bypasses the guard.
	require.NoError(t, svc.DeleteLine(ctx, domain.KindIssued, lines[0].ID, true))
	assert.Empty(t, issuedLines(t, db, report.ID))

	var rec taxrecorddomain.TaxRecord
	require.NoError(t, db.Where("invoice_id = ?", inv.ID).Take(&rec).Error)
	assert.Nil(t, rec.IssuedLineID)
}
