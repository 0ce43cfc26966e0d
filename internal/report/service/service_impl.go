package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/aeat340/internal/aeat"
	"github.com/smallbiznis/aeat340/internal/clock"
	"github.com/smallbiznis/aeat340/internal/report/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("report.service"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateReportRequest) (domain.Report, error) {
	report := domain.Report{
		ID:                  s.genID.Generate(),
		CompanyID:           req.CompanyID,
		CompanyName:         req.CompanyName,
		CompanyTaxID:        req.CompanyTaxID,
		Currency:            req.Currency,
		FiscalYear:          req.FiscalYear,
		FiscalYearCode:      req.FiscalYearCode,
		Period:              req.Period,
		Type:                req.Type,
		SupportType:         req.SupportType,
		PreviousNumber:      req.PreviousNumber,
		RepresentativeTaxID: req.RepresentativeTaxID,
		ContactPhone:        req.ContactPhone,
		ContactName:         req.ContactName,
		State:               domain.StateDraft,
	}
	if report.Type == "" {
		report.Type = domain.StatementNormal
	}
	if report.SupportType == "" {
		report.SupportType = domain.SupportTelematics
	}
	if err := validateReport(&report); err != nil {
		return domain.Report{}, err
	}
	if err := s.db.WithContext(ctx).Create(&report).Error; err != nil {
		return domain.Report{}, err
	}
	return report, nil
}

// validateReport is the standing validation applied on every save.
func validateReport(r *domain.Report) error {
	if r.Currency != "EUR" {
		return fmt.Errorf("%w: currency in AEAT 340 report must be Euro, got %q",
			domain.ErrInvalidCurrency, r.Currency)
	}
	if !aeat.ValidPeriod(r.Period) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidPeriod, r.Period)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.Report, error) {
	var report domain.Report
	err := s.db.WithContext(ctx).
		Preload("IssuedLines").
		Preload("ReceivedLines").
		Preload("InvestmentLines").
		Preload("IntracommunityLines").
		First(&report, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return domain.Report{}, domain.ErrReportNotFound
	}
	return report, err
}

func (s *Service) List(ctx context.Context) ([]domain.Report, error) {
	var reports []domain.Report
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&reports).Error
	return reports, err
}

// Calculate purges and rebuilds the report lines from the tax records in the
// period window, then moves draft→calculated. Multiple reports share one
// transaction: a failure rolls back every report's lines.
func (s *Service) Calculate(ctx context.Context, ids []snowflake.ID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		reports, err := s.loadReports(ctx, tx, ids)
		if err != nil {
			return err
		}
		for i := range reports {
			// Recalculating an already calculated report is allowed: the
			// purge-and-rebuild is deterministic.
			if reports[i].State != domain.StateCalculated &&
				!domain.CanTransition(reports[i].State, domain.StateCalculated) {
				return fmt.Errorf("%w: %s -> calculated", domain.ErrInvalidTransition, reports[i].State)
			}
		}
		if err := s.deleteLinesTx(ctx, tx, ids); err != nil {
			return err
		}
		if err := s.aggregate(ctx, tx, reports); err != nil {
			return err
		}
		now := s.clock.Now()
		return tx.WithContext(ctx).Model(&domain.Report{}).
			Where("id IN ?", ids).
			Updates(map[string]any{
				"state":            domain.StateCalculated,
				"calculation_date": now,
			}).Error
	})
}

// Process builds the declaration file from the calculated lines and moves
// calculated→done.
func (s *Service) Process(ctx context.Context, id snowflake.ID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		reports, err := s.loadReports(ctx, tx, []snowflake.ID{id})
		if err != nil {
			return err
		}
		report := &reports[0]
		if !domain.CanTransition(report.State, domain.StateDone) {
			return fmt.Errorf("%w: %s -> done", domain.ErrInvalidTransition, report.State)
		}
		if err := validateReport(report); err != nil {
			return err
		}
		file, err := s.buildFile(ctx, tx, report)
		if err != nil {
			return err
		}
		return tx.WithContext(ctx).Model(&domain.Report{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"state": domain.StateDone,
				"file":  file,
			}).Error
	})
}

// Draft deletes the report lines and returns the report to its editable state.
func (s *Service) Draft(ctx context.Context, id snowflake.ID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		reports, err := s.loadReports(ctx, tx, []snowflake.ID{id})
		if err != nil {
			return err
		}
		if !domain.CanTransition(reports[0].State, domain.StateDraft) {
			return fmt.Errorf("%w: %s -> draft", domain.ErrInvalidTransition, reports[0].State)
		}
		if err := s.deleteLinesTx(ctx, tx, []snowflake.ID{id}); err != nil {
			return err
		}
		return tx.WithContext(ctx).Model(&domain.Report{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"state":            domain.StateDraft,
				"calculation_date": nil,
				"file":             nil,
			}).Error
	})
}

// Cancel moves a report to cancelled. No side effects beyond the state change.
func (s *Service) Cancel(ctx context.Context, id snowflake.ID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		reports, err := s.loadReports(ctx, tx, []snowflake.ID{id})
		if err != nil {
			return err
		}
		if !domain.CanTransition(reports[0].State, domain.StateCancelled) {
			return fmt.Errorf("%w: %s -> cancelled", domain.ErrInvalidTransition, reports[0].State)
		}
		return tx.WithContext(ctx).Model(&domain.Report{}).
			Where("id = ?", id).
			Update("state", domain.StateCancelled).Error
	})
}

func (s *Service) loadReports(ctx context.Context, tx *gorm.DB, ids []snowflake.ID) ([]domain.Report, error) {
	var reports []domain.Report
	if err := tx.WithContext(ctx).Where("id IN ?", ids).Find(&reports).Error; err != nil {
		return nil, err
	}
	if len(reports) != len(ids) {
		return nil, domain.ErrReportNotFound
	}
	return reports, nil
}

// Totals computes the on-demand report aggregates across all four line kinds.
func (s *Service) Totals(ctx context.Context, id snowflake.ID) (domain.Totals, error) {
	report, err := s.Get(ctx, id)
	if err != nil {
		return domain.Totals{}, err
	}
	return computeTotals(&report), nil
}

func computeTotals(r *domain.Report) domain.Totals {
	t := domain.Totals{
		TaxableTotal:  decimal.Zero,
		ShareTaxTotal: decimal.Zero,
		Total:         decimal.Zero,
	}
	add := func(c domain.LineCore) {
		t.TaxableTotal = t.TaxableTotal.Add(c.Base)
		t.ShareTaxTotal = t.ShareTaxTotal.Add(c.Tax)
		t.RecordCount++
	}
	for _, l := range r.IssuedLines {
		add(l.LineCore)
	}
	for _, l := range r.ReceivedLines {
		add(l.LineCore)
	}
	for _, l := range r.InvestmentLines {
		add(l.LineCore)
	}
	for _, l := range r.IntracommunityLines {
		add(l.LineCore)
	}
	t.Total = t.TaxableTotal.Add(t.ShareTaxTotal)
	return t
}

// deleteLinesTx purges every line of the reports, bypassing the line-state
// guard: this is the report-driven cascade. Tax record back references are
// cleared first.
func (s *Service) deleteLinesTx(ctx context.Context, tx *gorm.DB, ids []snowflake.ID) error {
	type lineTable struct {
		table   string
		backref string
	}
	tables := []lineTable{
		{"aeat340_report_issued", "issued_line_id"},
		{"aeat340_report_received", "received_line_id"},
		{"aeat340_report_investment", "investment_line_id"},
		{"aeat340_report_intracommunity", "intracommunity_line_id"},
	}
	for _, t := range tables {
		if err := tx.WithContext(ctx).Exec(fmt.Sprintf(
			`UPDATE aeat340_records SET %s = NULL WHERE %s IN (
				SELECT id FROM %s WHERE report_id IN ?
			)`, t.backref, t.backref, t.table), ids).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Exec(fmt.Sprintf(
			"DELETE FROM %s WHERE report_id IN ?", t.table), ids).Error; err != nil {
			return err
		}
	}
	return nil
}
