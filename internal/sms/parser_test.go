package sms

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
)

var delivered = time.Date(2024, 3, 12, 10, 15, 0, 0, time.UTC)

func TestParse_IssuerSamples(t *testing.T) {
	p := NewDefaultParser()

	tests := []struct {
		name         string
		sender       string
		body         string
		issuer       string
		direction    model.Direction
		amount       string
		counterparty string
		ref          string
	}{
		{
			name:         "sbi upi debit",
			sender:       "AD-SBIUPI",
			body:         "Dear UPI user A/C X1234 debited by 250.00 on date 12Mar24 trf to SWIGGY Refno 407212345678. If not u? call 1800111109. -SBI",
			issuer:       "SBI",
			direction:    model.DirectionDebit,
			amount:       "250.00",
			counterparty: "SWIGGY",
			ref:          "407212345678",
		},
		{
			name:         "sbi credit with currency",
			sender:       "VM-SBIINB",
			body:         "Dear Customer, your account is credited by Rs.500.00 trf from Ravi Kumar Ref No 123456",
			issuer:       "SBI",
			direction:    model.DirectionCredit,
			amount:       "500.00",
			counterparty: "Ravi Kumar",
			ref:          "123456",
		},
		{
			name:         "hdfc debit",
			sender:       "VM-HDFCBK",
			body:         "Rs.1,250.00 debited from a/c **4321 on 05-03-24 to VPA swiggy@icici (UPI Ref No 406512345678)",
			issuer:       "HDFC",
			direction:    model.DirectionDebit,
			amount:       "1250.00",
			counterparty: "swiggy@icici",
			ref:          "406512345678",
		},
		{
			name:         "hdfc credit",
			sender:       "hdfcbk",
			body:         "Rs.500.00 credited to a/c **4321 on 05-03-24 by VPA ravi@okaxis (UPI Ref No 406598765432)",
			issuer:       "HDFC",
			direction:    model.DirectionCredit,
			amount:       "500.00",
			counterparty: "ravi@okaxis",
			ref:          "406598765432",
		},
		{
			name:         "icici debit",
			sender:       "JD-ICICIB",
			body:         "ICICI Bank Acct XX123 debited for Rs 240.00 on 05-Mar-24; AMAZON PAY credited. UPI:406512345678. Call 18002662 for dispute.",
			issuer:       "ICICI",
			direction:    model.DirectionDebit,
			amount:       "240.00",
			counterparty: "AMAZON PAY",
			ref:          "406512345678",
		},
		{
			name:         "icici credit",
			sender:       "JD-ICICIT",
			body:         "Dear Customer, Acct XX123 is credited with Rs 5000.00 on 05-Mar-24 from RAHUL SHARMA. UPI:406512345678-ICICI Bank.",
			issuer:       "ICICI",
			direction:    model.DirectionCredit,
			amount:       "5000.00",
			counterparty: "RAHUL SHARMA",
			ref:          "406512345678",
		},
		{
			name:         "axis debit",
			sender:       "AX-AXISBK",
			body:         "INR 1500.00 debited\nA/c no. XX4321\n12-03-24, 10:15:22\nUPI/P2M/406512345678/ZOMATO LTD\nNot you? SMS BLOCKUPI Cust ID to 919951860002\nAxis Bank",
			issuer:       "AXIS",
			direction:    model.DirectionDebit,
			amount:       "1500.00",
			counterparty: "ZOMATO LTD",
			ref:          "406512345678",
		},
		{
			name:         "axis credit",
			sender:       "AX-AXISBN",
			body:         "INR 2000.00 credited\nA/c no. XX4321\n12-03-24, 18:01:02 IST\nUPI/P2A/406598765432/PRIYA S\nNot you? Call 18001035577 - Axis Bank",
			issuer:       "AXIS",
			direction:    model.DirectionCredit,
			amount:       "2000.00",
			counterparty: "PRIYA S",
			ref:          "406598765432",
		},
		{
			name:         "kotak debit",
			sender:       "BZ-KOTAKB",
			body:         "Sent Rs.350.00 from Kotak Bank AC X9876 to paytmqr@paytm on 12-03-24.UPI Ref 406512345678. Not you, https://kotak.com/KBANKT/Fraud",
			issuer:       "KOTAK",
			direction:    model.DirectionDebit,
			amount:       "350.00",
			counterparty: "paytmqr@paytm",
			ref:          "406512345678",
		},
		{
			name:         "kotak credit",
			sender:       "BZ-KOTAKB",
			body:         "Received Rs.1000.00 in your Kotak Bank A/c X9876 from ravi@okhdfcbank on 12-03-24.UPI Ref:406598765432.",
			issuer:       "KOTAK",
			direction:    model.DirectionCredit,
			amount:       "1000.00",
			counterparty: "ravi@okhdfcbank",
			ref:          "406598765432",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := p.Parse(tt.sender, tt.body, delivered)
			require.NoError(t, err)

			assert.Equal(t, tt.issuer, event.Issuer)
			assert.Equal(t, tt.direction, event.Direction)
			assert.Equal(t, tt.amount, event.Amount.StringFixed(2))
			assert.Equal(t, tt.counterparty, event.Counterparty)
			assert.Equal(t, tt.ref, event.ReferenceID)
			assert.True(t, delivered.Equal(event.OccurredAt))
		})
	}
}

func TestParse_IssuerChosenBySenderOnly(t *testing.T) {
	p := NewDefaultParser()
	body := "Dear Customer, your account is credited by Rs.500.00 trf from Ravi Kumar Ref No 123456"

	_, err := p.Parse("HDFCBK", body, delivered)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedBody)
	assert.Equal(t, ReasonMalformedBody, ReasonOf(err))
	assert.Equal(t, "HDFC", IssuerOf(err))

	event, err := p.Parse("SBIINB", body, delivered)
	require.NoError(t, err)
	assert.Equal(t, "SBI", event.Issuer)
}

func TestParse_AmbiguousDirectionRejected(t *testing.T) {
	p := NewDefaultParser()
	body := "A/C X1234 credited by Rs.100.00 and debited by Rs.100.00 trf to SHOP Ref No 999111"

	_, err := p.Parse("SBIINB", body, delivered)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAmbiguousDirection)
	assert.NotErrorIs(t, err, ErrMalformedBody)
	assert.Equal(t, ReasonAmbiguousDirection, ReasonOf(err))
}

func TestParse_UnknownIssuer(t *testing.T) {
	p := NewDefaultParser()

	_, err := p.Parse("AMAZON", "Your order of Rs.500 has shipped", delivered)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownIssuer)
	assert.Equal(t, ReasonUnknownIssuer, ReasonOf(err))
	assert.Empty(t, IssuerOf(err))
}

func TestParse_MalformedFields(t *testing.T) {
	p := NewDefaultParser()

	tests := []struct {
		name   string
		body   string
		field  string
		reason Reason
	}{
		{
			name:   "missing reference",
			body:   "A/C X1234 debited by 250.00 trf to SWIGGY Refund initiated",
			field:  "reference",
			reason: ReasonMalformedBody,
		},
		{
			name:   "missing counterparty",
			body:   "A/C X1234 debited by 250.00 on 12Mar24 Ref No 4072",
			field:  "counterparty",
			reason: ReasonMalformedBody,
		},
		{
			name:   "markup only counterparty",
			body:   "A/C X1234 debited by 250.00 trf to <b></b> Ref No 4072",
			field:  "counterparty",
			reason: ReasonMalformedBody,
		},
		{
			name:   "three fractional digits",
			body:   "A/C X1234 debited by 10.123 trf to SHOP Ref No 4072",
			field:  "amount",
			reason: ReasonNumericParse,
		},
		{
			name:   "broken grouping",
			body:   "A/C X1234 debited by 1,2345.00 trf to SHOP Ref No 4072",
			field:  "amount",
			reason: ReasonNumericParse,
		},
		{
			name:   "zero amount",
			body:   "A/C X1234 debited by 0.00 trf to SHOP Ref No 4072",
			field:  "amount",
			reason: ReasonNumericParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Parse("SBIINB", tt.body, delivered)
			require.Error(t, err)

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.reason, pe.Reason)
			assert.Equal(t, tt.field, pe.Field)
			assert.ErrorIs(t, err, ErrMalformedBody)
		})
	}
}

func TestParse_NumericErrorIsAlsoMalformed(t *testing.T) {
	p := NewDefaultParser()

	_, err := p.Parse("SBIINB", "debited by 10.123 trf to SHOP Ref No 4072", delivered)
	assert.ErrorIs(t, err, ErrNumericParse)
	assert.ErrorIs(t, err, ErrMalformedBody)
}

func TestParse_MissingDeliveryTime(t *testing.T) {
	p := NewDefaultParser()

	_, err := p.Parse("SBIINB", "debited by 10.00 trf to SHOP Ref No 4072", time.Time{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNumericParse)
}

func TestParse_TrailingCommaInAmount(t *testing.T) {
	p := NewDefaultParser()

	event, err := p.Parse("SBIINB", "debited by Rs 1,500, trf to SHOP Ref No 4072", delivered)
	require.NoError(t, err)
	assert.Equal(t, "1500.00", event.Amount.StringFixed(2))
}

func TestParse_IsPure(t *testing.T) {
	p := NewDefaultParser()
	body := "Rs.1,250.00 debited from a/c **4321 on 05-03-24 to VPA swiggy@icici (UPI Ref No 406512345678)"

	first, err1 := p.Parse("HDFCBK", body, delivered)
	second, err2 := p.Parse("HDFCBK", body, delivered)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, first, second)
}

func TestNewParser_Validation(t *testing.T) {
	valid := DefaultRules()[0]

	tests := []struct {
		name   string
		mutate func(r *Rule)
	}{
		{name: "missing issuer", mutate: func(r *Rule) { r.Issuer = " " }},
		{name: "issuer with separator", mutate: func(r *Rule) { r.Issuer = "SBI-2" }},
		{name: "missing senders", mutate: func(r *Rule) { r.Senders = nil }},
		{name: "missing credit", mutate: func(r *Rule) { r.Credit = "" }},
		{name: "missing debit", mutate: func(r *Rule) { r.Debit = "" }},
		{name: "missing counterparty", mutate: func(r *Rule) { r.Counterparty = "" }},
		{name: "missing reference", mutate: func(r *Rule) { r.Reference = "" }},
		{name: "invalid regex", mutate: func(r *Rule) { r.Reference = `Ref(\d+` }},
		{name: "no capture group", mutate: func(r *Rule) { r.Reference = `Ref\s*\d+` }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := valid
			rule.Senders = append([]string(nil), valid.Senders...)
			tt.mutate(&rule)

			_, err := NewParser([]Rule{rule})
			assert.ErrorIs(t, err, common.ErrInvalidConfig)
		})
	}

	t.Run("duplicate issuer", func(t *testing.T) {
		_, err := NewParser([]Rule{valid, valid})
		assert.ErrorIs(t, err, common.ErrInvalidConfig)
	})

	t.Run("empty table", func(t *testing.T) {
		_, err := NewParser(nil)
		assert.ErrorIs(t, err, common.ErrInvalidConfig)
	})
}

func TestParser_FirstMatchingIssuerWins(t *testing.T) {
	rules := []Rule{DefaultRules()[0], DefaultRules()[1]}
	rules[1].Senders = append(rules[1].Senders, "SBIINB")

	p, err := NewParser(rules)
	require.NoError(t, err)

	issuer, ok := p.Issuer("VM-SBIINB")
	require.True(t, ok)
	assert.Equal(t, "SBI", issuer)
	assert.Equal(t, []string{"SBI", "HDFC"}, p.Issuers())
}
