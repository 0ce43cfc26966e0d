// Package seed bootstraps the Spanish VAT master data so a fresh install
// can extract declaration records without manual tax setup.
package seed

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/aeat340/internal/invoice/domain"
	"github.com/smallbiznis/aeat340/pkg/repository"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type vatTemplate struct {
	name        string
	rate        string
	recargoRate string
}

// Standard Spanish VAT rates with their equivalence surcharge companions.
var vatTemplates = []vatTemplate{
	{"IVA 21%", "0.21", "0.052"},
	{"IVA 10%", "0.10", "0.014"},
	{"IVA 4%", "0.04", "0.005"},
}

var allBookKeys = datatypes.JSONSlice[string]{"E", "F", "R", "S", "I", "J", "U"}

// EnsureVATRates creates the standard rate set when the tax table is empty.
// Each rate becomes a composite tax with a plain VAT child and a recargo de
// equivalencia child.
func EnsureVATRates(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	taxes := repository.ProvideStore[invoicedomain.Tax](db)
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		store := taxes.WithTrx(tx)
		count, err := store.Count(ctx, &invoicedomain.Tax{})
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		for _, tmpl := range vatTemplates {
			rate, err := decimal.NewFromString(tmpl.rate)
			if err != nil {
				return err
			}
			recargoRate, err := decimal.NewFromString(tmpl.recargoRate)
			if err != nil {
				return err
			}

			// Plain rate usable on its own.
			plain := invoicedomain.Tax{
				ID:                node.Generate(),
				Name:              tmpl.name,
				Rate:              rate,
				AvailableBookKeys: allBookKeys,
				DefaultOutBookKey: "E",
				DefaultInBookKey:  "R",
			}
			if err := store.Create(ctx, &plain); err != nil {
				return err
			}

			// Composite rate carrying the equivalence surcharge.
			parent := invoicedomain.Tax{
				ID:   node.Generate(),
				Name: tmpl.name + " + Recargo",
			}
			if err := store.Create(ctx, &parent); err != nil {
				return err
			}
			children := []*invoicedomain.Tax{
				{
					ID:                node.Generate(),
					Name:              tmpl.name,
					Rate:              rate,
					ParentID:          &parent.ID,
					AvailableBookKeys: allBookKeys,
					DefaultOutBookKey: "E",
					DefaultInBookKey:  "R",
				},
				{
					ID:       node.Generate(),
					Name:     "Recargo Equivalencia " + tmpl.recargoRate,
					Rate:     recargoRate,
					Recargo:  true,
					ParentID: &parent.ID,
				},
			}
			if err := store.BatchCreate(ctx, children); err != nil {
				return err
			}
		}
		return nil
	})
}
