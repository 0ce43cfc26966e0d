// Package migration creates the declaration schema on startup so the
// service is usable out of the box for local and self-hosted environments.
package migration

import (
	invoicedomain "github.com/smallbiznis/aeat340/internal/invoice/domain"
	reportdomain "github.com/smallbiznis/aeat340/internal/report/domain"
	taxrecorddomain "github.com/smallbiznis/aeat340/internal/taxrecord/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(Run),
)

// Run migrates every table the module owns. Ordering matters: referenced
// tables first.
func Run(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&invoicedomain.Tax{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceLine{},
		&taxrecorddomain.TaxRecord{},
		&reportdomain.Report{},
		&reportdomain.IssuedLine{},
		&reportdomain.ReceivedLine{},
		&reportdomain.InvestmentLine{},
		&reportdomain.IntracommunityLine{},
	)
}
