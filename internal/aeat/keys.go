// Package aeat holds the shared AEAT model 340 code tables: book keys,
// operation keys, party identifier types and declaration periods.
package aeat

import "fmt"

// BookKey classifies a declaration line into one of the official books.
type BookKey string

const (
	BookKeyIssued             BookKey = "E" // issued invoices
	BookKeyInvestment         BookKey = "I" // investment goods
	BookKeyReceived           BookKey = "R" // received invoices
	BookKeyIntracommunity     BookKey = "U" // particular intracommunity operations
	BookKeyIGICIssued         BookKey = "F"
	BookKeyIGICInvestment     BookKey = "J"
	BookKeyIGICReceived       BookKey = "S"
)

// BookKeys lists every valid book key.
var BookKeys = []BookKey{
	BookKeyIssued,
	BookKeyInvestment,
	BookKeyReceived,
	BookKeyIntracommunity,
	BookKeyIGICIssued,
	BookKeyIGICInvestment,
	BookKeyIGICReceived,
}

// Valid reports whether k is one of the official book keys.
func (k BookKey) Valid() bool {
	for _, v := range BookKeys {
		if k == v {
			return true
		}
	}
	return false
}

// OperationKey describes the nature of the operation on a line.
type OperationKey string

const (
	OperationKeyNormal        OperationKey = " " // normal operation
	OperationKeyInvoiceSum    OperationKey = "A" // invoice summary
	OperationKeyTicketSum     OperationKey = "B" // ticket summary
	OperationKeySeveralTaxes  OperationKey = "C" // invoice with several taxes
	OperationKeyCreditNote    OperationKey = "D" // credit note
	OperationKeyTravelAgency  OperationKey = "F"
	OperationKeySpecialParty  OperationKey = "G"
	OperationKeyGoldInversion OperationKey = "H"
	OperationKeyPassiveSubj   OperationKey = "I"
	OperationKeyTickets       OperationKey = "J"
	OperationKeyRegistryFix   OperationKey = "K"
	OperationKeyIGICRetail    OperationKey = "L"
	OperationKeyAgencyService OperationKey = "N"
	OperationKeyLease         OperationKey = "R" // lease of business place
	OperationKeyGrants        OperationKey = "S"
	OperationKeyIntellectual  OperationKey = "T"
	OperationKeyInsurance     OperationKey = "U"
	OperationKeyAgencyBuys    OperationKey = "V"
	OperationKeyCeutaMelilla  OperationKey = "W"
	OperationKeyAgricultural  OperationKey = "X"
	OperationKeyNone          OperationKey = ""
)

// PartyIdentifierType codes how the counterparty identified itself.
const (
	IdentifierNIF           = "1"
	IdentifierIntraOperator = "2"
	IdentifierPassport      = "3"
	IdentifierOfficialDoc   = "4"
	IdentifierFiscalResCert = "5"
	IdentifierOther         = "6"
)

// PropertyState codes for issued lines with lease operations.
const (
	PropertyStateNone      = "0"
	PropertyStateCadastral = "1"
	PropertyStateForal     = "2"
	PropertyStateNoRef     = "3"
	PropertyStateForeign   = "4"
)

// PeriodWindow resolves a declaration period ("1T".."4T" or "01".."12") into
// the half-open month window [start, end) it covers.
func PeriodWindow(period string) (start, end int, err error) {
	switch period {
	case "1T", "2T", "3T", "4T":
		q := int(period[0] - '0')
		start = (q-1)*3 + 1
		end = start + 3
		return start, end, nil
	case "01", "02", "03", "04", "05", "06",
		"07", "08", "09", "10", "11", "12":
		start = int(period[0]-'0')*10 + int(period[1]-'0')
		return start, start + 1, nil
	default:
		return 0, 0, fmt.Errorf("invalid period %q", period)
	}
}

// ValidPeriod reports whether period is a quarter code or a two-digit month.
func ValidPeriod(period string) bool {
	_, _, err := PeriodWindow(period)
	return err == nil
}
