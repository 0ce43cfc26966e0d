package layout

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/aeat340/internal/report/domain"
	"github.com/smallbiznis/aeat340/pkg/recordlayout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllSchemasAre500CharactersWide(t *testing.T) {
	for _, s := range []recordlayout.Schema{
		PresenterHeader, IssuedRecord, ReceivedRecord, InvestmentRecord, IntracommunityRecord,
	} {
		assert.Equal(t, 500, s.Length(), s.Name)
	}
}

func TestHeaderValuesEncode(t *testing.T) {
	report := domain.Report{
		CompanyTaxID:   "A12345674",
		CompanyName:    "Presenter SA",
		SupportType:    domain.SupportTelematics,
		FiscalYearCode: 2023,
		Period:         "1T",
		ContactPhone:   "911234567",
		ContactName:    "Contact Person",
	}
	totals := domain.Totals{
		TaxableTotal:  decimal.RequireFromString("1000"),
		ShareTaxTotal: decimal.RequireFromString("210"),
		Total:         decimal.RequireFromString("1210"),
		RecordCount:   1,
	}

	record, err := PresenterHeader.Encode(HeaderValues(report, totals))
	require.NoError(t, err)
	assert.Len(t, record, 500)
	assert.True(t, strings.HasPrefix(record, "13402023A12345674"), record[:20])
	assert.Contains(t, record, "PRESENTER SA")
	assert.Contains(t, record, "1T")
	// Totals in cents within 18-wide amount columns.
	assert.Contains(t, record, " 00000000000100000")
	assert.Contains(t, record, " 00000000000121000")
}

func TestIssuedValuesEncode(t *testing.T) {
	issueDate := time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)
	line := domain.IssuedLine{
		LineCore: domain.LineCore{
			PartyTaxID:          "00000000T",
			PartyName:           "CLIENTE",
			PartyCountry:        "ES",
			PartyIdentifierType: "1",
			BookKey:             "E",
			OperationKey:        " ",
			IssueDate:           issueDate,
			OperationDate:       issueDate,
			TaxRate:             decimal.RequireFromString("21"),
			Base:                decimal.RequireFromString("-100"),
			Tax:                 decimal.RequireFromString("-21"),
			Total:               decimal.RequireFromString("-121"),
			InvoiceNumber:       "F-1",
			RecordNumber:        "MOVE-1",
		},
		RecordCount:        1,
		IssuedInvoiceCount: 1,
		PropertyState:      "0",
		InvoiceFiscalYear:  2023,
	}

	record, err := IssuedRecord.Encode(IssuedValues(2023, "A12345674", line))
	require.NoError(t, err)
	assert.Len(t, record, 500)
	assert.True(t, strings.HasPrefix(record, "23402023A12345674"), record[:20])
	assert.Contains(t, record, "20230115")
	// Negative amounts carry the N sign column.
	assert.Contains(t, record, "N0000000010000")
	assert.Contains(t, record, "N0000000002100")
	assert.Contains(t, record, "N0000000012100")
}
