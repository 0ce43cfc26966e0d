package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/aeat340/internal/aeat"
	"github.com/smallbiznis/aeat340/internal/config"
	invoicedomain "github.com/smallbiznis/aeat340/internal/invoice/domain"
	"github.com/smallbiznis/aeat340/internal/taxrecord/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// extractBatchSize caps how many invoices are processed per extraction pass.
// Batching is a memory bound, not a transaction boundary.
const extractBatchSize = 100

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Cfg   config.Config
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	rounding string
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("taxrecord.service"),
		genID:    p.GenID,
		rounding: p.Cfg.TaxRounding,
	}
}

func (s *Service) CreateForInvoices(ctx context.Context, invoiceIDs []snowflake.ID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.CreateForInvoicesTx(ctx, tx, invoiceIDs)
	})
}

func (s *Service) CreateForInvoicesTx(ctx context.Context, tx *gorm.DB, invoiceIDs []snowflake.ID) error {
	for start := 0; start < len(invoiceIDs); start += extractBatchSize {
		end := start + extractBatchSize
		if end > len(invoiceIDs) {
			end = len(invoiceIDs)
		}
		if err := s.extractBatch(ctx, tx, invoiceIDs[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) DeleteForInvoices(ctx context.Context, invoiceIDs []snowflake.ID) error {
	if len(invoiceIDs) == 0 {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.deleteRecords(ctx, tx, invoiceIDs)
	})
}

func (s *Service) DeleteForInvoicesTx(ctx context.Context, tx *gorm.DB, invoiceIDs []snowflake.ID) error {
	if len(invoiceIDs) == 0 {
		return nil
	}
	return s.deleteRecords(ctx, tx, invoiceIDs)
}

func (s *Service) Reassign(ctx context.Context, invoiceIDs []snowflake.ID, bookKey, operationKey string) error {
	if len(invoiceIDs) == 0 {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		var invoices []invoicedomain.Invoice
		if err := tx.WithContext(ctx).
			Preload("Lines").Preload("Lines.Taxes").Preload("Lines.Taxes.Children").
			Where("id IN ?", invoiceIDs).
			Find(&invoices).Error; err != nil {
			return err
		}

		if bookKey != "" {
			var lineIDs []snowflake.ID
			for _, inv := range invoices {
				for _, line := range inv.Lines {
					if lineAcceptsBookKey(line, bookKey) {
						lineIDs = append(lineIDs, line.ID)
					}
				}
			}
			if len(lineIDs) == 0 {
				return fmt.Errorf("%w: %s", domain.ErrBookKeyNotAvailable, bookKey)
			}
			if err := tx.WithContext(ctx).Model(&invoicedomain.InvoiceLine{}).
				Where("id IN ?", lineIDs).
				Update("book_key", bookKey).Error; err != nil {
				return err
			}
		}

		if operationKey != "" {
			var lineIDs []snowflake.ID
			for _, inv := range invoices {
				for _, line := range inv.Lines {
					lineIDs = append(lineIDs, line.ID)
				}
			}
			if len(lineIDs) > 0 {
				if err := tx.WithContext(ctx).Model(&invoicedomain.InvoiceLine{}).
					Where("id IN ?", lineIDs).
					Update("operation_key", operationKey).Error; err != nil {
					return err
				}
			}
		}

		return s.CreateForInvoicesTx(ctx, tx, invoiceIDs)
	})
}

func lineAcceptsBookKey(line invoicedomain.InvoiceLine, bookKey string) bool {
	for _, tax := range line.Taxes {
		if tax.HasBookKey(bookKey) {
			return true
		}
		for _, child := range tax.Children {
			if child.HasBookKey(bookKey) {
				return true
			}
		}
	}
	return false
}

// recordKey groups invoice line contributions into one tax record.
type recordKey struct {
	InvoiceID    snowflake.ID
	TaxID        snowflake.ID
	OperationKey string
	BookKey      string
}

type pendingRecord struct {
	record  *domain.TaxRecord
	lines   []invoicedomain.InvoiceLine
	origins map[string]struct{}
}

func (s *Service) extractBatch(ctx context.Context, tx *gorm.DB, invoiceIDs []snowflake.ID) error {
	if len(invoiceIDs) == 0 {
		return nil
	}
	if err := s.deleteRecords(ctx, tx, invoiceIDs); err != nil {
		return err
	}

	var invoices []invoicedomain.Invoice
	if err := tx.WithContext(ctx).
		Preload("Lines").Preload("Lines.Taxes").Preload("Lines.Taxes.Children").
		Where("id IN ?", invoiceIDs).
		Find(&invoices).Error; err != nil {
		return err
	}

	toCreate := make(map[recordKey]*pendingRecord)
	var order []recordKey

	for i := range invoices {
		inv := &invoices[i]
		if inv.MoveNumber == "" || inv.Status == invoicedomain.InvoiceStatusCancelled {
			continue
		}
		if err := s.extractInvoice(ctx, tx, inv, toCreate, &order); err != nil {
			return err
		}
		if s.rounding == config.RoundingDocument {
			for _, key := range order {
				if key.InvoiceID != inv.ID {
					continue
				}
				rec := toCreate[key].record
				rec.Base = roundEUR(rec.Base)
				rec.Tax = roundEUR(rec.Tax)
				rec.Total = roundEUR(rec.Total)
				if rec.EquivalenceTax != nil {
					eq := roundEUR(*rec.EquivalenceTax)
					rec.EquivalenceTax = &eq
				}
			}
		}
	}

	records := make([]*domain.TaxRecord, 0, len(order))
	for _, key := range order {
		p := toCreate[key]
		if p.record.OperationKey == string(aeat.OperationKeyTicketSum) {
			p.record.TicketCount, p.record.FirstTicketNumber, p.record.LastTicketNumber = ticketStats(p.origins)
		}
		p.record.InvoiceLines = p.lines
		records = append(records, p.record)
	}
	if len(records) == 0 {
		return nil
	}
	if err := tx.WithContext(ctx).Create(records).Error; err != nil {
		return fmt.Errorf("create tax records: %w", err)
	}
	s.log.Info("extracted tax records",
		zap.Int("invoices", len(invoices)),
		zap.Int("records", len(records)),
	)
	return nil
}

func (s *Service) extractInvoice(ctx context.Context, tx *gorm.DB, inv *invoicedomain.Invoice, toCreate map[recordKey]*pendingRecord, order *[]recordKey) error {
	distinctTaxes := distinctBookTaxCount(inv)

	for li := range inv.Lines {
		line := &inv.Lines[li]
		if !line.Reportable() || line.OperationKey == string(aeat.OperationKeyNone) {
			continue
		}

		opKey, err := s.correctedOperationKey(ctx, tx, inv, line, distinctTaxes)
		if err != nil {
			return err
		}

		base := line.Amount
		total := line.Amount

		for _, tax := range line.Taxes {
			var rate decimal.Decimal
			amount := decimal.Zero
			var eqRate, eqAmount *decimal.Decimal

			if len(tax.Children) == 0 {
				if tax.Recargo {
					return fmt.Errorf("%w: recargo flag on non-composite tax %s", domain.ErrInvariant, tax.Name)
				}
				if !tax.HasBookKey(line.BookKey) {
					continue
				}
				rate = tax.Rate.Shift(2)
				amount = line.Amount.Mul(tax.Rate)
				total = total.Add(amount)
			} else {
				matched := false
				equivalence := decimal.Zero
				for _, child := range tax.Children {
					childAmount := line.Amount.Mul(child.Rate)
					total = total.Add(childAmount)
					if child.Recargo {
						r := child.Rate.Shift(2)
						eqRate = &r
						equivalence = equivalence.Add(childAmount)
					} else if child.HasBookKey(line.BookKey) {
						rate = child.Rate.Shift(2)
						amount = amount.Add(childAmount)
						matched = true
					}
				}
				if !matched {
					continue
				}
				if eqRate != nil {
					eq := equivalence
					eqAmount = &eq
				}
			}

			contribBase, contribTax, contribTotal := base, amount, total
			if s.rounding == config.RoundingLine {
				contribBase = roundEUR(contribBase)
				contribTax = roundEUR(contribTax)
				contribTotal = roundEUR(contribTotal)
				if eqAmount != nil {
					eq := roundEUR(*eqAmount)
					eqAmount = &eq
				}
			}

			key := recordKey{
				InvoiceID:    inv.ID,
				TaxID:        tax.ID,
				OperationKey: opKey,
				BookKey:      line.BookKey,
			}
			if p, ok := toCreate[key]; ok {
				p.record.Base = p.record.Base.Add(contribBase)
				p.record.Tax = p.record.Tax.Add(contribTax)
				p.record.Total = p.record.Total.Add(contribTotal)
				if eqAmount != nil && p.record.EquivalenceTax != nil {
					sum := p.record.EquivalenceTax.Add(*eqAmount)
					p.record.EquivalenceTax = &sum
				}
				p.lines = append(p.lines, *line)
				if line.OriginNumber != "" {
					p.origins[line.OriginNumber] = struct{}{}
				}
				continue
			}

			record := &domain.TaxRecord{
				ID:                  s.genID.Generate(),
				CompanyID:           inv.CompanyID,
				FiscalYear:          inv.FiscalYear,
				Month:               inv.Month(),
				PartyName:           clip(inv.PartyName, 40),
				PartyTaxID:          partyTaxID(inv),
				PartyCountry:        inv.PartyCountry,
				PartyIdentifierType: inv.PartyIdentifierType,
				BookKey:             line.BookKey,
				OperationKey:        opKey,
				TaxRate:             rate,
				Base:                contribBase,
				Tax:                 contribTax,
				Total:               contribTotal,
				EquivalenceTaxRate:  eqRate,
				EquivalenceTax:      eqAmount,
				InvoiceID:           inv.ID,
				TaxID:               tax.ID,
				InvoiceNumber:       inv.Number,
				IssueDate:           inv.InvoiceDate,
				OperationDate:       inv.InvoiceDate,
				MoveNumber:          inv.MoveNumber,
			}
			if opKey == string(aeat.OperationKeyCreditNote) {
				record.CorrectiveInvoiceNumber = clip(inv.RectifiedInvoiceNumber, 40)
			}
			p := &pendingRecord{
				record:  record,
				lines:   []invoicedomain.InvoiceLine{*line},
				origins: make(map[string]struct{}),
			}
			if line.OriginNumber != "" {
				p.origins[line.OriginNumber] = struct{}{}
			}
			toCreate[key] = p
			*order = append(*order, key)
		}
	}
	return nil
}

// correctedOperationKey recomputes generic keys (" " and "C") from how many
// book-keyed taxes the whole invoice carries, and writes the correction back
// onto the line while the invoice is still editable.
func (s *Service) correctedOperationKey(ctx context.Context, tx *gorm.DB, inv *invoicedomain.Invoice, line *invoicedomain.InvoiceLine, distinctTaxes int) (string, error) {
	opKey := line.OperationKey
	if opKey != string(aeat.OperationKeyNormal) && opKey != string(aeat.OperationKeySeveralTaxes) {
		return opKey, nil
	}
	corrected := string(aeat.OperationKeyNormal)
	if distinctTaxes > 1 {
		corrected = string(aeat.OperationKeySeveralTaxes)
	}
	if corrected == opKey {
		return opKey, nil
	}
	if inv.Status != invoicedomain.InvoiceStatusPosted && inv.Status != invoicedomain.InvoiceStatusPaid {
		if err := tx.WithContext(ctx).Model(&invoicedomain.InvoiceLine{}).
			Where("id = ?", line.ID).
			Update("operation_key", corrected).Error; err != nil {
			return "", err
		}
		line.OperationKey = corrected
	}
	return corrected, nil
}

// distinctBookTaxCount counts the distinct book-keyed taxes across the whole
// invoice, resolving composite taxes to their non-recargo children.
func distinctBookTaxCount(inv *invoicedomain.Invoice) int {
	seen := make(map[snowflake.ID]struct{})
	for _, line := range inv.Lines {
		if !line.Reportable() {
			continue
		}
		for _, tax := range line.Taxes {
			if len(tax.Children) == 0 {
				if len(tax.AvailableBookKeys) > 0 {
					seen[tax.ID] = struct{}{}
				}
				continue
			}
			for _, child := range tax.Children {
				if !child.Recargo && len(child.AvailableBookKeys) > 0 {
					seen[child.ID] = struct{}{}
				}
			}
		}
	}
	return len(seen)
}

func (s *Service) deleteRecords(ctx context.Context, tx *gorm.DB, invoiceIDs []snowflake.ID) error {
	if err := tx.WithContext(ctx).Exec(
		`DELETE FROM tax_record_invoice_lines WHERE tax_record_id IN (
			SELECT id FROM aeat340_records WHERE invoice_id IN ?
		)`, invoiceIDs).Error; err != nil {
		return err
	}
	return tx.WithContext(ctx).
		Where("invoice_id IN ?", invoiceIDs).
		Delete(&domain.TaxRecord{}).Error
}

func ticketStats(origins map[string]struct{}) (count int, first, last string) {
	for origin := range origins {
		if first == "" || origin < first {
			first = origin
		}
		if last == "" || origin > last {
			last = origin
		}
	}
	return len(origins), first, last
}

func partyTaxID(inv *invoicedomain.Invoice) string {
	if inv.PartyCountry == "ES" {
		return clip(inv.PartyTaxID, 9)
	}
	return ""
}

func roundEUR(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func clip(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
