package ofx

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mescanne/smart-importer/internal/model"
)

// Sample OFX data for testing.
const sampleBankOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>USD
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-25.50
<FITID>2024011501
<NAME>POS PURCHASE STARBUCKS STORE 1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240120120000[0:GMT]
<TRNAMT>-125.00
<FITID>2024012001
<NAME>Whole Foods Market
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

func TestImportFile(t *testing.T) {
	importer := NewImporter("Assets:Bank:Checking")

	entries, err := importer.ImportFile(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	first, ok := entries[0].(*model.Transaction)
	require.True(t, ok)
	assert.Equal(t, "STARBUCKS STORE 1234", first.Narration)
	assert.Equal(t, "2024011501", first.Meta["ofx_id"])
	require.Len(t, first.Postings, 1)
	assert.Equal(t, "Assets:Bank:Checking", first.Postings[0].Account)
	assert.True(t, first.Postings[0].HasAmount)
	assert.True(t, first.Postings[0].Amount.Equal(decimal.RequireFromString("-25.50")))
	assert.Equal(t, 2024, first.On.Year())

	second := entries[1].(*model.Transaction)
	assert.Equal(t, "Whole Foods Market", second.Narration)
	assert.True(t, second.Postings[0].Amount.Equal(decimal.RequireFromString("-125.00")))
}

func TestImportFileInvalid(t *testing.T) {
	importer := NewImporter("Assets:Bank:Checking")

	_, err := importer.ImportFile(context.Background(), strings.NewReader("not an ofx file"))
	assert.Error(t, err)
}

func TestAccount(t *testing.T) {
	importer := NewImporter("Assets:Bank:Checking")
	assert.Equal(t, "Assets:Bank:Checking", importer.Account("anything.qfx"))
}

func TestCleanDescription(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "pos prefix", in: "POS PURCHASE STARBUCKS", want: "STARBUCKS"},
		{name: "check card prefix", in: "CHECK CARD WHOLE FOODS", want: "WHOLE FOODS"},
		{name: "no prefix", in: "Whole Foods Market", want: "Whole Foods Market"},
		{name: "whitespace", in: "  Whole Foods  ", want: "Whole Foods"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanDescription(tt.in))
		})
	}
}
