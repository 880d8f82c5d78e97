package ofx

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-ledger/internal/model"
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
<NAME>STARBUCKS STORE #1234
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240120120000[0:GMT]
<TRNAMT>-125.00
<FITID>2024012001
<NAME>Whole Foods Market
</STMTTRN>
<STMTTRN>
<TRNTYPE>CHECK
<DTPOSTED>20240125120000[0:GMT]
<TRNAMT>-500.00
<FITID>2024012501
<CHECKNUM>1234
<NAME>CHECK #1234
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

const sampleCreditCardOFX = `OFXHEADER:100
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
<CREDITCARDMSGSRSV1>
<CCSTMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<CCSTMTRS>
<CURDEF>USD
<CCACCTFROM>
<ACCTID>4111111111111111
</CCACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240110120000[0:GMT]
<TRNAMT>-45.99
<FITID>CC2024011001
<NAME>AMAZON.COM*RT4Y7HG2
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-15.00
<FITID>CC2024011501
<NAME>NETFLIX.COM
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>-500.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</CCSTMTRS>
</CCSTMTTRNRS>
</CREDITCARDMSGSRSV1>
</OFX>`

func TestParseFile(t *testing.T) {
	tests := []struct {
		name          string
		ofxData       string
		expectedCount int
		expectedError bool
	}{
		{name: "valid bank statement", ofxData: sampleBankOFX, expectedCount: 3},
		{name: "valid credit card statement", ofxData: sampleCreditCardOFX, expectedCount: 2},
		{name: "invalid OFX data", ofxData: "not valid OFX", expectedError: true},
		{name: "empty OFX", ofxData: "", expectedError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewParser(nil)
			transactions, err := parser.ParseFile(context.Background(), strings.NewReader(tt.ofxData))
			if tt.expectedError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, transactions, tt.expectedCount)
		})
	}
}

func TestParseBankTransactions(t *testing.T) {
	parser := NewParser(nil)

	transactions, err := parser.ParseFile(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	require.Len(t, transactions, 3)

	tx1 := transactions[0]
	assert.Equal(t, "linked-1234567890-2024011501", tx1.ID)
	assert.Equal(t, "STARBUCKS STORE #1234", tx1.Description)
	assert.Equal(t, "STARBUCKS STORE #1234", tx1.Merchant)
	assert.Equal(t, "-25.5", tx1.Amount.String())
	assert.Equal(t, model.SourceLinked, tx1.Source)
	assert.True(t, tx1.IsExpense())
	assert.Equal(t, 2024, tx1.Date.Year())
	assert.Equal(t, time.January, tx1.Date.Month())
	assert.Equal(t, 15, tx1.Date.Day())

	tx2 := transactions[1]
	assert.Equal(t, "linked-1234567890-2024012001", tx2.ID)
	assert.Equal(t, "Whole Foods Market", tx2.Merchant)
	assert.Equal(t, "-125", tx2.Amount.String())

	tx3 := transactions[2]
	assert.Equal(t, "CHECK #1234", tx3.Description)
	assert.Equal(t, "-500", tx3.Amount.String())
	for _, tx := range transactions {
		assert.NoError(t, tx.Validate())
	}
}

func TestParseCreditCardTransactions(t *testing.T) {
	parser := NewParser(nil)

	transactions, err := parser.ParseFile(context.Background(), strings.NewReader(sampleCreditCardOFX))
	require.NoError(t, err)
	require.Len(t, transactions, 2)

	assert.Equal(t, "linked-4111111111111111-CC2024011001", transactions[0].ID)
	assert.Equal(t, "AMAZON.COM*RT4Y7HG2", transactions[0].Description)
	assert.Equal(t, "-45.99", transactions[0].Amount.String())
	assert.Equal(t, "NETFLIX.COM", transactions[1].Description)
}

func TestParseFile_ReimportIsStable(t *testing.T) {
	parser := NewParser(nil)

	first, err := parser.ParseFile(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	second, err := parser.ParseFile(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}
}

func TestConvertTransaction(t *testing.T) {
	parser := NewParser(nil)
	posted := ofxgo.Date{Time: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)}

	interest := ofxgo.Transaction{TrnType: ofxgo.TrnTypeInt, DtPosted: posted, FiTID: "I1", Name: "INTEREST PAID"}
	interest.TrnAmt.SetFrac64(1234, 100)
	tx, err := parser.convertTransaction(interest, "ACC")
	require.NoError(t, err)
	assert.Equal(t, "12.34", tx.Amount.String())
	assert.Equal(t, "Interest", tx.Category)
	assert.True(t, tx.IsIncome())

	zero := ofxgo.Transaction{TrnType: ofxgo.TrnTypeDebit, DtPosted: posted, FiTID: "Z1"}
	_, err = parser.convertTransaction(zero, "ACC")
	assert.Error(t, err)

	noID := ofxgo.Transaction{TrnType: ofxgo.TrnTypeDebit, DtPosted: posted}
	noID.TrnAmt.SetInt64(-5)
	_, err = parser.convertTransaction(noID, "ACC")
	assert.Error(t, err)
}

func TestExtractMerchantName(t *testing.T) {
	parser := NewParser(nil)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "remove POS prefix", input: "POS PURCHASE STARBUCKS", expected: "STARBUCKS"},
		{name: "remove DEBIT CARD prefix", input: "DEBIT CARD PURCHASE WHOLE FOODS", expected: "WHOLE FOODS"},
		{name: "remove UPI prefix", input: "UPI/SWIGGY", expected: "SWIGGY"},
		{name: "keep clean name", input: "NETFLIX.COM", expected: "NETFLIX.COM"},
		{name: "trim whitespace", input: "  AMAZON.COM  ", expected: "AMAZON.COM"},
		{name: "drop posting date", input: "03/14 BIG BAZAAR", expected: "BIG BAZAAR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := ofxgo.Transaction{Name: ofxgo.String(tt.input)}
			assert.Equal(t, tt.expected, parser.extractMerchantName(tx))
		})
	}
}

func TestGetAccounts(t *testing.T) {
	parser := NewParser(nil)

	accounts, err := parser.GetAccounts(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	assert.Equal(t, []string{"1234567890"}, accounts)

	accounts, err = parser.GetAccounts(context.Background(), strings.NewReader(sampleCreditCardOFX))
	require.NoError(t, err)
	assert.Equal(t, []string{"4111111111111111"}, accounts)
}
