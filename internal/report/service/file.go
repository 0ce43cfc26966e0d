package service

import (
	"context"
	"fmt"

	"github.com/smallbiznis/aeat340/internal/report/domain"
	"github.com/smallbiznis/aeat340/internal/report/layout"
	"github.com/smallbiznis/aeat340/pkg/recordlayout"
	"gorm.io/gorm"
)

// buildFile renders the declaration: one presenter header followed by every
// aggregated line, normalized to the AEAT character set and encoded as
// ISO 8859-1.
func (s *Service) buildFile(ctx context.Context, tx *gorm.DB, report *domain.Report) ([]byte, error) {
	if err := s.loadLines(ctx, tx, report); err != nil {
		return nil, err
	}
	totals := computeTotals(report)

	records := make([]string, 0, 1+totals.RecordCount)
	header, err := layout.PresenterHeader.Encode(layout.HeaderValues(*report, totals))
	if err != nil {
		return nil, fmt.Errorf("encode header: %w", err)
	}
	records = append(records, header)

	for _, l := range report.IssuedLines {
		rec, err := layout.IssuedRecord.Encode(layout.IssuedValues(report.FiscalYearCode, report.CompanyTaxID, l))
		if err != nil {
			return nil, fmt.Errorf("encode issued line %d: %w", l.ID, err)
		}
		records = append(records, rec)
	}
	for _, l := range report.ReceivedLines {
		rec, err := layout.ReceivedRecord.Encode(layout.ReceivedValues(report.FiscalYearCode, report.CompanyTaxID, l))
		if err != nil {
			return nil, fmt.Errorf("encode received line %d: %w", l.ID, err)
		}
		records = append(records, rec)
	}
	for _, l := range report.InvestmentLines {
		rec, err := layout.InvestmentRecord.Encode(layout.InvestmentValues(report.FiscalYearCode, report.CompanyTaxID, l))
		if err != nil {
			return nil, fmt.Errorf("encode investment line %d: %w", l.ID, err)
		}
		records = append(records, rec)
	}
	for _, l := range report.IntracommunityLines {
		rec, err := layout.IntracommunityRecord.Encode(layout.IntracommunityValues(report.FiscalYearCode, report.CompanyTaxID, l))
		if err != nil {
			return nil, fmt.Errorf("encode intracommunity line %d: %w", l.ID, err)
		}
		records = append(records, rec)
	}

	return recordlayout.ToLatin1(recordlayout.Normalize(recordlayout.Write(records)))
}

func (s *Service) loadLines(ctx context.Context, tx *gorm.DB, report *domain.Report) error {
	order := "issue_date ASC, id ASC"
	if err := tx.WithContext(ctx).Where("report_id = ?", report.ID).
		Order(order).Find(&report.IssuedLines).Error; err != nil {
		return err
	}
	if err := tx.WithContext(ctx).Where("report_id = ?", report.ID).
		Order(order).Find(&report.ReceivedLines).Error; err != nil {
		return err
	}
	if err := tx.WithContext(ctx).Where("report_id = ?", report.ID).
		Order(order).Find(&report.InvestmentLines).Error; err != nil {
		return err
	}
	return tx.WithContext(ctx).Where("report_id = ?", report.ID).
		Order(order).Find(&report.IntracommunityLines).Error
}
