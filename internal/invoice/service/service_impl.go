package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/aeat340/internal/invoice/domain"
	taxrecorddomain "github.com/smallbiznis/aeat340/internal/taxrecord/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	RecordSvc taxrecorddomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	recordSvc taxrecorddomain.Service
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("invoice.service"),
		recordSvc: p.RecordSvc,
	}
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (domain.Invoice, error) {
	var inv domain.Invoice
	err := s.db.WithContext(ctx).Preload("Lines").Preload("Lines.Taxes").First(&inv, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return domain.Invoice{}, domain.ErrInvoiceNotFound
	}
	return inv, err
}

// Post marks draft invoices as posted and extracts their 340 tax records in
// the same transaction.
func (s *Service) Post(ctx context.Context, ids []snowflake.ID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.transition(ctx, tx, ids, domain.InvoiceStatusDraft, domain.InvoiceStatusPosted); err != nil {
			return err
		}
		return s.recordSvc.CreateForInvoicesTx(ctx, tx, ids)
	})
}

// ReturnToDraft reverts posted invoices and drops their tax records in the
// same transaction.
func (s *Service) ReturnToDraft(ctx context.Context, ids []snowflake.ID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.transition(ctx, tx, ids, domain.InvoiceStatusPosted, domain.InvoiceStatusDraft); err != nil {
			return err
		}
		return s.recordSvc.DeleteForInvoicesTx(ctx, tx, ids)
	})
}

// Cancel cancels invoices and drops their tax records in the same
// transaction.
func (s *Service) Cancel(ctx context.Context, ids []snowflake.ID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Model(&domain.Invoice{}).
			Where("id IN ?", ids).
			Update("status", domain.InvoiceStatusCancelled).Error; err != nil {
			return err
		}
		return s.recordSvc.DeleteForInvoicesTx(ctx, tx, ids)
	})
}

func (s *Service) transition(ctx context.Context, tx *gorm.DB, ids []snowflake.ID, from, to domain.InvoiceStatus) error {
	result := tx.WithContext(ctx).Model(&domain.Invoice{}).
		Where("id IN ? AND status = ?", ids, from).
		Update("status", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != int64(len(ids)) {
		if from == domain.InvoiceStatusDraft {
			return fmt.Errorf("%w: expected %d draft invoices, matched %d",
				domain.ErrNotDraft, len(ids), result.RowsAffected)
		}
		return fmt.Errorf("%w: expected %d posted invoices, matched %d",
			domain.ErrNotPosted, len(ids), result.RowsAffected)
	}
	return nil
}
