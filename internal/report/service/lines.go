package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/aeat340/internal/report/domain"
	taxrecorddomain "github.com/smallbiznis/aeat340/internal/taxrecord/domain"
	"gorm.io/gorm"
)

type kindTable struct {
	model   func() any
	table   string
	backref string
}

func tableFor(kind domain.Kind) (kindTable, error) {
	switch kind {
	case domain.KindIssued:
		return kindTable{func() any { return &domain.IssuedLine{} }, "aeat340_report_issued", "issued_line_id"}, nil
	case domain.KindReceived:
		return kindTable{func() any { return &domain.ReceivedLine{} }, "aeat340_report_received", "received_line_id"}, nil
	case domain.KindInvestment:
		return kindTable{func() any { return &domain.InvestmentLine{} }, "aeat340_report_investment", "investment_line_id"}, nil
	case domain.KindIntracommunity:
		return kindTable{func() any { return &domain.IntracommunityLine{} }, "aeat340_report_intracommunity", "intracommunity_line_id"}, nil
	default:
		return kindTable{}, fmt.Errorf("%w: unknown line kind %q", domain.ErrLineNotFound, kind)
	}
}

// UpdateLine edits one aggregated line. Lines are only editable while the
// owning report sits in the calculated state.
func (s *Service) UpdateLine(ctx context.Context, update domain.LineUpdate) error {
	kt, err := tableFor(update.Kind)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		state, err := s.lineReportState(ctx, tx, kt, update.LineID)
		if err != nil {
			return err
		}
		if state != domain.StateCalculated {
			return fmt.Errorf("%w: report is %s", domain.ErrLineNotEditable, state)
		}
		if raw, ok := update.Fields["book_key"]; ok {
			key, _ := raw.(string)
			if !update.Kind.AcceptsBookKey(key) {
				return fmt.Errorf("%w: %q not valid for %s lines",
					domain.ErrInvalidBookKey, key, update.Kind)
			}
		}
		return tx.WithContext(ctx).Model(kt.model()).
			Where("id = ?", update.LineID).
			Updates(update.Fields).Error
	})
}

// DeleteLine removes one aggregated line. Direct deletions require the
// owning report to be draft or calculated; cascade deletions driven by the
// report itself bypass the guard.
func (s *Service) DeleteLine(ctx context.Context, kind domain.Kind, lineID snowflake.ID, allowCascade bool) error {
	kt, err := tableFor(kind)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		state, err := s.lineReportState(ctx, tx, kt, lineID)
		if err != nil {
			return err
		}
		if !allowCascade && state != domain.StateDraft && state != domain.StateCalculated {
			return fmt.Errorf("%w: report is %s", domain.ErrLineNotDeletable, state)
		}
		err = tx.WithContext(ctx).Model(&taxrecorddomain.TaxRecord{}).
			Where(kt.backref+" = ?", lineID).
			Update(kt.backref, nil).Error
		if err != nil {
			return err
		}
		return tx.WithContext(ctx).Exec(
			fmt.Sprintf("DELETE FROM %s WHERE id = ?", kt.table), lineID).Error
	})
}

func (s *Service) lineReportState(ctx context.Context, tx *gorm.DB, kt kindTable, lineID snowflake.ID) (domain.State, error) {
	var row struct {
		State domain.State
	}
	err := tx.WithContext(ctx).Table("aeat340_reports").
		Select("aeat340_reports.state AS state").
		Joins(fmt.Sprintf("JOIN %s ON %s.report_id = aeat340_reports.id", kt.table, kt.table)).
		Where(kt.table+".id = ?", lineID).
		Take(&row).Error
	if err == gorm.ErrRecordNotFound {
		return "", domain.ErrLineNotFound
	}
	return row.State, err
}
