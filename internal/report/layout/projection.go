package layout

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/aeat340/internal/report/domain"
	"github.com/smallbiznis/aeat340/pkg/recordlayout"
)

// Projections are explicit field mapping tables: one entry per schema field a
// line kind fills, with its transformation. Getters returning nil skip the
// field, leaving it blank-filled by the encoder.

func put(v recordlayout.Values, field string, value any) {
	switch val := value.(type) {
	case nil:
		return
	case string:
		if val == "" {
			return
		}
	case int:
		if val == 0 {
			return
		}
	case decimal.Decimal:
		if val.IsZero() {
			return
		}
	case *decimal.Decimal:
		if val == nil || val.IsZero() {
			return
		}
		v[field] = *val
		return
	case *time.Time:
		if val == nil || val.IsZero() {
			return
		}
		v[field] = *val
		return
	case time.Time:
		if val.IsZero() {
			return
		}
	}
	v[field] = value
}

// HeaderValues projects the report header and its computed totals into the
// presenter header record.
func HeaderValues(r domain.Report, t domain.Totals) recordlayout.Values {
	v := recordlayout.Values{
		"record_type":        1,
		"model":              340,
		"fiscalyear":         r.FiscalYearCode,
		"nif":                r.CompanyTaxID,
		"presenter_name":     strings.ToUpper(r.CompanyName),
		"support_type":       string(r.SupportType),
		"declaration_number": "0",
		"period":             r.Period,
		"record_count":       t.RecordCount,
		"total_base":         t.TaxableTotal,
		"total_tax":          t.ShareTaxTotal,
		"total":              t.Total,
	}
	put(v, "contact_phone", r.ContactPhone)
	put(v, "contact_name", strings.ToUpper(r.ContactName))
	put(v, "representative_nif", r.RepresentativeTaxID)
	if r.PreviousNumber != "" {
		v["previous_declaration_number"] = r.PreviousNumber
	} else {
		v["previous_declaration_number"] = "0"
	}
	return v
}

func coreValues(fiscalYearCode int, companyTaxID string, c domain.LineCore) recordlayout.Values {
	v := recordlayout.Values{
		"record_type": 2,
		"model":       340,
		"fiscalyear":  fiscalYearCode,
		"nif":         companyTaxID,
	}
	put(v, "party_nif", c.PartyTaxID)
	put(v, "representative_nif", c.RepresentativeTaxID)
	put(v, "party_name", c.PartyName)
	put(v, "party_country", c.PartyCountry)
	put(v, "party_identifier_type", c.PartyIdentifierType)
	put(v, "party_identifier", c.PartyIdentifier)
	put(v, "book_key", c.BookKey)
	put(v, "operation_key", c.OperationKey)
	put(v, "issue_date", c.IssueDate)
	put(v, "operation_date", c.OperationDate)
	put(v, "tax_rate", c.TaxRate)
	put(v, "base", c.Base)
	put(v, "tax", c.Tax)
	put(v, "total", c.Total)
	put(v, "cost", c.Cost)
	put(v, "invoice_number", c.InvoiceNumber)
	put(v, "record_number", c.RecordNumber)
	return v
}

// IssuedValues projects an issued line into ISSUED_RECORD.
func IssuedValues(fiscalYearCode int, companyTaxID string, l domain.IssuedLine) recordlayout.Values {
	v := coreValues(fiscalYearCode, companyTaxID, l.LineCore)
	put(v, "record_count", l.RecordCount)
	put(v, "issued_invoice_count", l.IssuedInvoiceCount)
	put(v, "first_invoice_number", l.FirstInvoiceNumber)
	put(v, "last_invoice_number", l.LastInvoiceNumber)
	put(v, "corrective_invoice_number", l.CorrectiveInvoiceNumber)
	put(v, "equivalence_tax_rate", l.EquivalenceTaxRate)
	put(v, "equivalence_tax", l.EquivalenceTax)
	put(v, "property_state", l.PropertyState)
	put(v, "cadaster_number", l.CadasterNumber)
	put(v, "cash_amount", l.CashAmount)
	put(v, "invoice_fiscalyear", l.InvoiceFiscalYear)
	put(v, "property_transfer_amount", l.PropertyTransferAmount)
	return v
}

// ReceivedValues projects a received line into RECEIVED_RECORD.
func ReceivedValues(fiscalYearCode int, companyTaxID string, l domain.ReceivedLine) recordlayout.Values {
	v := coreValues(fiscalYearCode, companyTaxID, l.LineCore)
	put(v, "record_count", l.RecordCount)
	put(v, "received_invoice_count", l.ReceivedInvoiceCount)
	put(v, "first_invoice_number", l.FirstInvoiceNumber)
	put(v, "last_invoice_number", l.LastInvoiceNumber)
	put(v, "deducible_amount", l.DeducibleAmount)
	return v
}

// InvestmentValues projects an investment line into INVESTMENT_RECORD.
func InvestmentValues(fiscalYearCode int, companyTaxID string, l domain.InvestmentLine) recordlayout.Values {
	v := coreValues(fiscalYearCode, companyTaxID, l.LineCore)
	put(v, "pro_rata", l.ProRata)
	put(v, "yearly_regularization", l.YearlyRegularization)
	put(v, "submission_number", l.SubmissionNumber)
	put(v, "transmissions", l.Transmissions)
	put(v, "usage_start_date", l.UsageStartDate)
	put(v, "good_identifier", l.GoodIdentifier)
	return v
}

// IntracommunityValues projects an intracommunity line into INTRACOMMUNITY_RECORD.
func IntracommunityValues(fiscalYearCode int, companyTaxID string, l domain.IntracommunityLine) recordlayout.Values {
	v := coreValues(fiscalYearCode, companyTaxID, l.LineCore)
	put(v, "intracommunity_operation_type", l.IntracommunityOperationType)
	put(v, "declaring_key", l.DeclaringKey)
	put(v, "intracommunity_country", l.IntracommunityCountry)
	put(v, "operation_term", l.OperationTerm)
	put(v, "goods_description", l.GoodsDescription)
	put(v, "party_street", l.PartyStreet)
	put(v, "party_city", l.PartyCity)
	put(v, "party_zip", l.PartyZip)
	put(v, "other_documentation", l.OtherDocumentation)
	return v
}
