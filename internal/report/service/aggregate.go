package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/aeat340/internal/aeat"
	invoicedomain "github.com/smallbiznis/aeat340/internal/invoice/domain"
	"github.com/smallbiznis/aeat340/internal/report/domain"
	taxrecorddomain "github.com/smallbiznis/aeat340/internal/taxrecord/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// groupKey identifies one aggregated report line. TaxRate is carried as a
// fixed-scale string so the key stays comparable.
type groupKey struct {
	ReportID     snowflake.ID
	InvoiceID    snowflake.ID
	BookKey      string
	OperationKey string
	TaxRate      string
}

func keyFor(reportID snowflake.ID, r *taxrecorddomain.TaxRecord) groupKey {
	return groupKey{
		ReportID:     reportID,
		InvoiceID:    r.InvoiceID,
		BookKey:      r.BookKey,
		OperationKey: r.OperationKey,
		TaxRate:      r.TaxRate.StringFixed(2),
	}
}

// bucket accumulates one kind's lines in first-seen order, remembering the
// folded record IDs so the back references can be written after insert.
type bucket[L any] struct {
	index   map[groupKey]int
	lines   []*L
	records [][]snowflake.ID
	dates   []int64
}

func newBucket[L any]() *bucket[L] {
	return &bucket[L]{index: map[groupKey]int{}}
}

func (b *bucket[L]) get(k groupKey) (*L, bool) {
	i, ok := b.index[k]
	if !ok {
		return nil, false
	}
	return b.lines[i], true
}

func (b *bucket[L]) put(k groupKey, line *L, sortKey int64, recordID snowflake.ID) {
	b.index[k] = len(b.lines)
	b.lines = append(b.lines, line)
	b.records = append(b.records, []snowflake.ID{recordID})
	b.dates = append(b.dates, sortKey)
}

func (b *bucket[L]) fold(k groupKey, recordID snowflake.ID) {
	i := b.index[k]
	b.records[i] = append(b.records[i], recordID)
}

// ordered returns the bucket's line indexes sorted by issue date, stable on
// first-seen order within a day.
func (b *bucket[L]) ordered() []int {
	idx := make([]int, len(b.lines))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return b.dates[idx[i]] < b.dates[idx[j]] })
	return idx
}

// aggregate folds the period's tax records into report lines, one pass per
// report, all inside the caller's transaction.
func (s *Service) aggregate(ctx context.Context, tx *gorm.DB, reports []domain.Report) error {
	for i := range reports {
		if err := s.aggregateReport(ctx, tx, &reports[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) aggregateReport(ctx context.Context, tx *gorm.DB, report *domain.Report) error {
	startMonth, endMonth, err := aeat.PeriodWindow(report.Period)
	if err != nil {
		return fmt.Errorf("%w: %q", domain.ErrInvalidPeriod, report.Period)
	}

	var records []taxrecorddomain.TaxRecord
	err = tx.WithContext(ctx).
		Where("company_id = ? AND fiscal_year = ? AND month >= ? AND month < ?",
			report.CompanyID, report.FiscalYear, startMonth, endMonth).
		Order("issue_date ASC, id ASC").
		Find(&records).Error
	if err != nil {
		return err
	}

	invoices, recordCounts, err := s.loadInvoices(ctx, tx, records)
	if err != nil {
		return err
	}

	issued := newBucket[domain.IssuedLine]()
	received := newBucket[domain.ReceivedLine]()
	investment := newBucket[domain.InvestmentLine]()
	intracom := newBucket[domain.IntracommunityLine]()

	for i := range records {
		r := &records[i]
		invoice, ok := invoices[r.InvoiceID]
		if !ok {
			return fmt.Errorf("%w: tax record %d references missing invoice %d",
				domain.ErrInvariant, r.ID, r.InvoiceID)
		}
		creditNote := invoice.Type.IsCreditNote()
		if r.OperationKey == string(aeat.OperationKeyCreditNote) && !creditNote {
			return fmt.Errorf("%w: credit note operation key on invoice %q",
				domain.ErrInvariant, invoice.Number)
		}
		sign := decimal.NewFromInt(1)
		if creditNote {
			sign = decimal.NewFromInt(-1)
		}

		key := keyFor(report.ID, r)
		switch domain.KindForBookKey(r.BookKey) {
		case domain.KindIssued:
			if line, found := issued.get(key); found {
				mergeCore(&line.LineCore, r, sign)
				if r.EquivalenceTax != nil {
					amount := r.EquivalenceTax.Mul(sign)
					if line.EquivalenceTax != nil {
						amount = line.EquivalenceTax.Add(amount)
					}
					line.EquivalenceTax = &amount
				}
				if r.OperationKey == string(aeat.OperationKeyTicketSum) && r.TicketCount > 0 {
					line.IssuedInvoiceCount += r.TicketCount
					first, last := r.FirstLastInvoiceNumber()
					line.FirstInvoiceNumber, line.LastInvoiceNumber = mergeBounds(
						line.FirstInvoiceNumber, line.LastInvoiceNumber, first, last)
				}
				issued.fold(key, r.ID)
				continue
			}
			line := &domain.IssuedLine{
				LineCore:           seedCore(report, r, sign),
				IssuedInvoiceCount: 1,
				RecordCount:        recordCount(r, recordCounts),
				PropertyState:      "0",
				InvoiceFiscalYear:  report.FiscalYear,
			}
			line.EquivalenceTaxRate = r.EquivalenceTaxRate
			if r.EquivalenceTax != nil {
				amount := r.EquivalenceTax.Mul(sign)
				line.EquivalenceTax = &amount
			}
			switch r.OperationKey {
			case string(aeat.OperationKeyTicketSum):
				line.IssuedInvoiceCount = ticketCountOrOne(r)
				line.FirstInvoiceNumber, line.LastInvoiceNumber = seedBounds(r)
			case string(aeat.OperationKeyCreditNote):
				line.CorrectiveInvoiceNumber = clip(r.CorrectiveInvoiceNumber, 40)
			}
			issued.put(key, line, r.IssueDate.Unix(), r.ID)

		case domain.KindReceived:
			if line, found := received.get(key); found {
				mergeCore(&line.LineCore, r, sign)
				if r.OperationKey == string(aeat.OperationKeyTicketSum) && r.TicketCount > 0 {
					line.ReceivedInvoiceCount += r.TicketCount
					first, last := r.FirstLastInvoiceNumber()
					line.FirstInvoiceNumber, line.LastInvoiceNumber = mergeBounds(
						line.FirstInvoiceNumber, line.LastInvoiceNumber, first, last)
				}
				received.fold(key, r.ID)
				continue
			}
			line := &domain.ReceivedLine{
				LineCore:             seedCore(report, r, sign),
				ReceivedInvoiceCount: 1,
				RecordCount:          recordCount(r, recordCounts),
			}
			if r.OperationKey == string(aeat.OperationKeyTicketSum) {
				line.ReceivedInvoiceCount = ticketCountOrOne(r)
				line.FirstInvoiceNumber, line.LastInvoiceNumber = seedBounds(r)
			}
			received.put(key, line, r.IssueDate.Unix(), r.ID)

		case domain.KindInvestment:
			if line, found := investment.get(key); found {
				mergeCore(&line.LineCore, r, sign)
				investment.fold(key, r.ID)
				continue
			}
			line := &domain.InvestmentLine{LineCore: seedCore(report, r, sign)}
			investment.put(key, line, r.IssueDate.Unix(), r.ID)

		default:
			if line, found := intracom.get(key); found {
				mergeCore(&line.LineCore, r, sign)
				intracom.fold(key, r.ID)
				continue
			}
			line := &domain.IntracommunityLine{LineCore: seedCore(report, r, sign)}
			intracom.put(key, line, r.IssueDate.Unix(), r.ID)
		}
	}

	if err := flushBucket(ctx, tx, s.genID, issued, "issued_line_id"); err != nil {
		return err
	}
	if err := flushBucket(ctx, tx, s.genID, received, "received_line_id"); err != nil {
		return err
	}
	if err := flushBucket(ctx, tx, s.genID, investment, "investment_line_id"); err != nil {
		return err
	}
	if err := flushBucket(ctx, tx, s.genID, intracom, "intracommunity_line_id"); err != nil {
		return err
	}

	s.log.Info("report calculated",
		zap.Int64("report_id", int64(report.ID)),
		zap.Int("records", len(records)),
		zap.Int("issued", len(issued.lines)),
		zap.Int("received", len(received.lines)),
		zap.Int("investment", len(investment.lines)),
		zap.Int("intracommunity", len(intracom.lines)))
	return nil
}

// loadInvoices resolves the invoices referenced by the record set and counts
// how many records each invoice owns within it.
func (s *Service) loadInvoices(ctx context.Context, tx *gorm.DB, records []taxrecorddomain.TaxRecord) (map[snowflake.ID]invoicedomain.Invoice, map[snowflake.ID]int, error) {
	counts := map[snowflake.ID]int{}
	ids := make([]snowflake.ID, 0, len(records))
	for i := range records {
		if counts[records[i].InvoiceID] == 0 {
			ids = append(ids, records[i].InvoiceID)
		}
		counts[records[i].InvoiceID]++
	}
	invoices := map[snowflake.ID]invoicedomain.Invoice{}
	if len(ids) == 0 {
		return invoices, counts, nil
	}
	var rows []invoicedomain.Invoice
	if err := tx.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	for i := range rows {
		invoices[rows[i].ID] = rows[i]
	}
	return invoices, counts, nil
}

func seedCore(report *domain.Report, r *taxrecorddomain.TaxRecord, sign decimal.Decimal) domain.LineCore {
	return domain.LineCore{
		ReportID:            report.ID,
		PartyTaxID:          r.PartyTaxID,
		PartyName:           clip(r.PartyName, 40),
		PartyCountry:        r.PartyCountry,
		PartyIdentifierType: r.PartyIdentifierType,
		BookKey:             r.BookKey,
		OperationKey:        r.OperationKey,
		IssueDate:           r.IssueDate,
		OperationDate:       r.OperationDate,
		TaxRate:             r.TaxRate,
		Base:                r.Base.Mul(sign),
		Tax:                 r.Tax.Mul(sign),
		Total:               r.Total.Mul(sign),
		InvoiceNumber:       clip(r.InvoiceNumber, 40),
		RecordNumber:        r.MoveNumber,
	}
}

func mergeCore(core *domain.LineCore, r *taxrecorddomain.TaxRecord, sign decimal.Decimal) {
	core.Base = core.Base.Add(r.Base.Mul(sign))
	core.Tax = core.Tax.Add(r.Tax.Mul(sign))
	core.Total = core.Total.Add(r.Total.Mul(sign))
}

// flushBucket inserts the bucket's lines in issue date order and points the
// folded tax records back at them.
func flushBucket[L any](ctx context.Context, tx *gorm.DB, genID *snowflake.Node, b *bucket[L], backref string) error {
	if len(b.lines) == 0 {
		return nil
	}
	order := b.ordered()
	lines := make([]*L, 0, len(order))
	for _, i := range order {
		lines = append(lines, b.lines[i])
	}
	ids := make([]snowflake.ID, len(lines))
	for i := range lines {
		ids[i] = genID.Generate()
		setLineID(lines[i], ids[i])
	}
	if err := tx.WithContext(ctx).Create(lines).Error; err != nil {
		return err
	}
	for n, i := range order {
		err := tx.WithContext(ctx).Model(&taxrecorddomain.TaxRecord{}).
			Where("id IN ?", b.records[i]).
			Update(backref, ids[n]).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func setLineID(line any, id snowflake.ID) {
	switch l := line.(type) {
	case *domain.IssuedLine:
		l.ID = id
	case *domain.ReceivedLine:
		l.ID = id
	case *domain.InvestmentLine:
		l.ID = id
	case *domain.IntracommunityLine:
		l.ID = id
	}
}

// recordCount is the issued/received line record count: the invoice's total
// record count for several-taxes invoices, otherwise 1.
func recordCount(r *taxrecorddomain.TaxRecord, counts map[snowflake.ID]int) int {
	if r.OperationKey == string(aeat.OperationKeySeveralTaxes) && counts[r.InvoiceID] > 1 {
		return counts[r.InvoiceID]
	}
	return 1
}

func ticketCountOrOne(r *taxrecorddomain.TaxRecord) int {
	if r.TicketCount > 0 {
		return r.TicketCount
	}
	return 1
}

func seedBounds(r *taxrecorddomain.TaxRecord) (string, string) {
	first, last := r.FirstLastInvoiceNumber()
	if first == "" {
		first = "1"
	}
	if last == "" {
		if r.TicketCount > 0 {
			last = strconv.Itoa(r.TicketCount)
		} else {
			last = "1"
		}
	}
	return first, last
}

// mergeBounds folds incoming first/last document numbers into the existing
// bounds. Both bounds replace only on a strict "<" against the current value,
// reproducing the historical behavior of the declaration upstream; see the
// note in DESIGN.md before changing this.
func mergeBounds(curFirst, curLast, first, last string) (string, string) {
	if first != "" && curFirst != "" && first < curFirst {
		curFirst = first
	}
	if last != "" && curLast != "" && last < curLast {
		curLast = last
	}
	return curFirst, curLast
}

func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) > n {
		return string(runes[:n])
	}
	return s
}
