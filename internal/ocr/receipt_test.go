package ocr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-ledger/internal/model"
)

func TestNormalize(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)

	tx, err := Normalize(Receipt{
		BusinessName: "  Big   Bazaar ",
		TotalAmount:  "₹ 1,299.00",
		Date:         "14/03/2024",
		RawText:      "BIG BAZAAR ... TOTAL 1,299.00",
	}, ist)
	require.NoError(t, err)

	assert.Equal(t, model.SourceOCR, tx.Source)
	assert.Equal(t, "-1299", tx.Amount.String())
	assert.True(t, tx.IsExpense())
	assert.Equal(t, "Big Bazaar", tx.Merchant)
	assert.Equal(t, time.Date(2024, 3, 14, 0, 0, 0, 0, ist), tx.Date)
	assert.Regexp(t, `^ocr-[0-9a-f-]{36}$`, tx.ID)
	assert.Empty(t, tx.Category)
	assert.NoError(t, tx.Validate())
}

func TestNormalize_IDIsDeterministic(t *testing.T) {
	a, err := Normalize(Receipt{BusinessName: "Cafe Coffee Day", TotalAmount: "Rs. 180", Date: "2024-03-02"}, time.UTC)
	require.NoError(t, err)
	b, err := Normalize(Receipt{BusinessName: "CAFE COFFEE DAY", TotalAmount: "180.00", Date: "02/03/2024"}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)

	c, err := Normalize(Receipt{BusinessName: "Cafe Coffee Day", TotalAmount: "181", Date: "2024-03-02"}, time.UTC)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, c.ID)
}

func TestNormalize_Rejects(t *testing.T) {
	tests := []struct {
		want    error
		name    string
		receipt Receipt
	}{
		{name: "no business", receipt: Receipt{TotalAmount: "10", Date: "2024-03-01"}, want: ErrMissingBusiness},
		{name: "markup only business", receipt: Receipt{BusinessName: "<b></b>", TotalAmount: "10", Date: "2024-03-01"}, want: ErrMissingBusiness},
		{name: "text total", receipt: Receipt{BusinessName: "Shop", TotalAmount: "TOTAL", Date: "2024-03-01"}, want: ErrBadAmount},
		{name: "zero total", receipt: Receipt{BusinessName: "Shop", TotalAmount: "0.00", Date: "2024-03-01"}, want: ErrBadAmount},
		{name: "three decimals", receipt: Receipt{BusinessName: "Shop", TotalAmount: "1.005", Date: "2024-03-01"}, want: ErrBadAmount},
		{name: "bad date", receipt: Receipt{BusinessName: "Shop", TotalAmount: "10", Date: "yesterday"}, want: ErrBadDate},
		{name: "missing date", receipt: Receipt{BusinessName: "Shop", TotalAmount: "10"}, want: ErrBadDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.receipt, time.UTC)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	for _, input := range []string{
		"2024-03-05",
		"05/03/2024",
		"05-03-2024",
		"05.03.2024",
		"05/03/24",
		"5 Mar 2024",
		"05-Mar-2024",
		"Mar 5, 2024",
		"March 5, 2024",
		"2024/03/05",
	} {
		t.Run(input, func(t *testing.T) {
			got, err := ParseDate(input, time.UTC)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}
