// Package layout declares the AEAT 340 record schemas and the static
// projection tables mapping report lines onto them.
package layout

import "github.com/smallbiznis/aeat340/pkg/recordlayout"

// Every model 340 record is 500 characters wide.
const recordLength = 500

// detailPrefix is the field set shared by all four detail record kinds.
func detailPrefix() []recordlayout.Field {
	return []recordlayout.Field{
		{Name: "record_type", Size: 1, Type: recordlayout.Numeric},
		{Name: "model", Size: 3, Type: recordlayout.Numeric},
		{Name: "fiscalyear", Size: 4, Type: recordlayout.Numeric},
		{Name: "nif", Size: 9, Type: recordlayout.Alpha},
		{Name: "party_nif", Size: 9, Type: recordlayout.Alpha},
		{Name: "representative_nif", Size: 9, Type: recordlayout.Alpha},
		{Name: "party_name", Size: 40, Type: recordlayout.Alpha},
		{Name: "party_country", Size: 2, Type: recordlayout.Alpha},
		{Name: "party_identifier_type", Size: 1, Type: recordlayout.Alpha},
		{Name: "party_identifier", Size: 20, Type: recordlayout.Alpha},
		{Name: "book_key", Size: 1, Type: recordlayout.Alpha},
		{Name: "operation_key", Size: 1, Type: recordlayout.Alpha},
		{Name: "issue_date", Size: 8, Type: recordlayout.Date},
		{Name: "operation_date", Size: 8, Type: recordlayout.Date},
		{Name: "tax_rate", Size: 5, Type: recordlayout.Amount},
		{Name: "base", Size: 14, Type: recordlayout.Amount},
		{Name: "tax", Size: 14, Type: recordlayout.Amount},
		{Name: "total", Size: 14, Type: recordlayout.Amount},
		{Name: "cost", Size: 14, Type: recordlayout.Amount},
		{Name: "invoice_number", Size: 40, Type: recordlayout.Alpha},
		{Name: "record_number", Size: 18, Type: recordlayout.Alpha},
	}
}

func withFiller(name string, fields []recordlayout.Field) recordlayout.Schema {
	s := recordlayout.Schema{Name: name, Fields: fields}
	if pad := recordLength - s.Length(); pad > 0 {
		s.Fields = append(s.Fields, recordlayout.Blank(pad))
	}
	return s
}

// PresenterHeader is the type-1 declaration header record.
var PresenterHeader = withFiller("PRESENTER_HEADER_RECORD", []recordlayout.Field{
	{Name: "record_type", Size: 1, Type: recordlayout.Numeric},
	{Name: "model", Size: 3, Type: recordlayout.Numeric},
	{Name: "fiscalyear", Size: 4, Type: recordlayout.Numeric},
	{Name: "nif", Size: 9, Type: recordlayout.Alpha},
	{Name: "presenter_name", Size: 40, Type: recordlayout.Alpha},
	{Name: "support_type", Size: 1, Type: recordlayout.Alpha},
	{Name: "contact_phone", Size: 9, Type: recordlayout.Alpha},
	{Name: "contact_name", Size: 40, Type: recordlayout.Alpha},
	{Name: "declaration_number", Size: 13, Type: recordlayout.Numeric},
	{Name: "complementary", Size: 1, Type: recordlayout.Alpha},
	{Name: "replacement", Size: 1, Type: recordlayout.Alpha},
	{Name: "previous_declaration_number", Size: 13, Type: recordlayout.Numeric},
	{Name: "period", Size: 2, Type: recordlayout.Alpha},
	{Name: "record_count", Size: 9, Type: recordlayout.Numeric},
	{Name: "total_base", Size: 18, Type: recordlayout.Amount},
	{Name: "total_tax", Size: 18, Type: recordlayout.Amount},
	{Name: "total", Size: 18, Type: recordlayout.Amount},
	{Name: "representative_nif", Size: 9, Type: recordlayout.Alpha},
})

// IssuedRecord is the type-2 record for issued invoice lines.
var IssuedRecord = withFiller("ISSUED_RECORD", append(detailPrefix(),
	recordlayout.Field{Name: "record_count", Size: 8, Type: recordlayout.Numeric},
	recordlayout.Field{Name: "issued_invoice_count", Size: 8, Type: recordlayout.Numeric},
	recordlayout.Field{Name: "first_invoice_number", Size: 40, Type: recordlayout.Alpha},
	recordlayout.Field{Name: "last_invoice_number", Size: 40, Type: recordlayout.Alpha},
	recordlayout.Field{Name: "corrective_invoice_number", Size: 40, Type: recordlayout.Alpha},
	recordlayout.Field{Name: "equivalence_tax_rate", Size: 5, Type: recordlayout.Amount},
	recordlayout.Field{Name: "equivalence_tax", Size: 14, Type: recordlayout.Amount},
	recordlayout.Field{Name: "property_state", Size: 1, Type: recordlayout.Alpha},
	recordlayout.Field{Name: "cadaster_number", Size: 25, Type: recordlayout.Alpha},
	recordlayout.Field{Name: "cash_amount", Size: 14, Type: recordlayout.Amount},
	recordlayout.Field{Name: "invoice_fiscalyear", Size: 4, Type: recordlayout.Numeric},
	recordlayout.Field{Name: "property_transfer_amount", Size: 14, Type: recordlayout.Amount},
))

// ReceivedRecord is the type-2 record for received invoice lines.
var ReceivedRecord = withFiller("RECEIVED_RECORD", append(detailPrefix(),
	recordlayout.Field{Name: "record_count", Size: 8, Type: recordlayout.Numeric},
	recordlayout.Field{Name: "received_invoice_count", Size: 8, Type: recordlayout.Numeric},
	recordlayout.Field{Name: "first_invoice_number", Size: 40, Type: recordlayout.Alpha},
	recordlayout.Field{Name: "last_invoice_number", Size: 40, Type: recordlayout.Alpha},
	recordlayout.Field{Name: "deducible_amount", Size: 14, Type: recordlayout.Amount},
))

// InvestmentRecord is the type-2 record for investment goods lines.
var InvestmentRecord = withFiller("INVESTMENT_RECORD", append(detailPrefix(),
	recordlayout.Field{Name: "pro_rata", Size: 3, Type: recordlayout.Numeric},
	recordlayout.Field{Name: "yearly_regularization", Size: 14, Type: recordlayout.Amount},
	recordlayout.Field{Name: "submission_number", Size: 40, Type: recordlayout.Alpha},
	recordlayout.Field{Name: "transmissions", Size: 14, Type: recordlayout.Amount},
	recordlayout.Field{Name: "usage_start_date", Size: 8, Type: recordlayout.Date},
	recordlayout.Field{Name: "good_identifier", Size: 17, Type: recordlayout.Alpha},
))

// IntracommunityRecord is the type-2 record for intracommunity operations.
var IntracommunityRecord = withFiller("INTRACOMMUNITY_RECORD", append(detailPrefix(),
	recordlayout.Field{Name: "intracommunity_operation_type", Size: 1, Type: recordlayout.Numeric},
	recordlayout.Field{Name: "declaring_key", Size: 1, Type: recordlayout.Alpha},
	recordlayout.Field{Name: "intracommunity_country", Size: 2, Type: recordlayout.Alpha},
	recordlayout.Field{Name: "operation_term", Size: 2, Type: recordlayout.Numeric},
	recordlayout.Field{Name: "goods_description", Size: 35, Type: recordlayout.Alpha},
	recordlayout.Field{Name: "party_street", Size: 40, Type: recordlayout.Alpha},
	recordlayout.Field{Name: "party_city", Size: 22, Type: recordlayout.Alpha},
	recordlayout.Field{Name: "party_zip", Size: 10, Type: recordlayout.Alpha},
	recordlayout.Field{Name: "other_documentation", Size: 135, Type: recordlayout.Alpha},
))
