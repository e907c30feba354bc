package dataprocessing

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV(t *testing.T) {
	input := `Distributor,PRODUCT,price,date
Alpha,Diesel,5.799,2025-03-01
Beta, Diesel ,5.899,2025-03-01T10:30:00Z
Gamma,Diesel,,2025-03-01
`
	rows, issues, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Empty(t, issues)
	require.Len(t, rows, 3)

	assert.Equal(t, "Diesel", rows[0].Product)
	assert.Equal(t, "Alpha", rows[0].Distributor)
	require.NotNil(t, rows[0].Price)
	assert.Equal(t, 5.799, *rows[0].Price)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), rows[0].ObservedAt)

	assert.Equal(t, "Diesel", rows[1].Product)
	assert.Equal(t, time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC), rows[1].ObservedAt)

	assert.Nil(t, rows[2].Price)
	assert.False(t, rows[2].HasPrice())
}

func TestParseCSV_RowIssues(t *testing.T) {
	input := "product,distributor,price,date\n" +
		"Diesel,Alpha,abc,2025-03-01\n" +
		"Diesel,Beta,-1,2025-03-01\n" +
		"Diesel,Gamma,NaN,2025-03-01\n" +
		",Delta,5.0,2025-03-01\n" +
		"Diesel,,5.0,2025-03-01\n" +
		"Diesel,Epsilon,5.1,03/01/2025\n" +
		",,,\n"

	rows, issues, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, rows, 4)
	for _, r := range rows[:3] {
		assert.Nil(t, r.Price, r.Distributor)
	}
	assert.Equal(t, "Epsilon", rows[3].Distributor)
	assert.True(t, rows[3].ObservedAt.IsZero())

	require.Len(t, issues, 6)
	assert.Equal(t, ParseIssue{Line: 2, Column: ColumnPrice, Value: "abc", Reason: "invalid number"}, issues[0])
	assert.Equal(t, "negative price", issues[1].Reason)
	assert.Equal(t, "non-finite price", issues[2].Reason)
	assert.Equal(t, "missing product", issues[3].Reason)
	assert.Equal(t, "missing distributor", issues[4].Reason)
	assert.Equal(t, ColumnDate, issues[5].Column)
	assert.Equal(t, 7, issues[5].Line)
}

func TestParseCSV_DecimalComma(t *testing.T) {
	input := "product,distributor,price\nDiesel,Alpha,\"5,79\"\n"

	rows, issues, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Empty(t, issues)
	require.Len(t, rows, 1)
	assert.Equal(t, 5.79, *rows[0].Price)
}

func TestParseCSV_HeaderErrors(t *testing.T) {
	_, _, err := ParseCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, _, err = ParseCSV(strings.NewReader("product,distributor\nDiesel,Alpha\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)
	assert.Contains(t, err.Error(), "price")
}

func TestParseCSV_ByteOrderMark(t *testing.T) {
	input := "\ufeffproduct,distributor,price\nDiesel,Alpha,5.5\n"

	rows, _, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 5.5, *rows[0].Price)
}

func TestParseCSV_ShortRecord(t *testing.T) {
	rows, issues, err := ParseCSV(strings.NewReader("product,distributor,price,date\nDiesel,Alpha\n"))
	require.NoError(t, err)
	assert.Empty(t, issues)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].Price)
}

func TestNormalizeIdentifier(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"  Diesel  ", "Diesel"},
		{"Super\t\tPlus  98", "Super Plus 98"},
		{"ＡＢＣ Fuel", "ABC Fuel"},
		{"Gasolina Aditivada", "Gasolina Aditivada"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeIdentifier(tt.in), "input %q", tt.in)
	}
}

func TestParseIssue_String(t *testing.T) {
	issue := ParseIssue{Line: 3, Column: "price", Value: "x", Reason: "invalid number"}
	assert.Equal(t, `line 3, column price: invalid number ("x")`, issue.String())
}

func TestParseOperatorCSV(t *testing.T) {
	input := "fuel,unit_price\n" +
		"Diesel,\"5,79\"\n" +
		"Gasoline,5.1\n" +
		"Kerosene,\n" +
		"LPG,cheap\n" +
		",4.0\n" +
		"Diesel,5.75\n"

	prices, issues, err := ParseOperatorCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"Diesel": 5.75, "Gasoline": 5.1}, prices)

	require.Len(t, issues, 3)
	assert.Equal(t, "missing price", issues[0].Reason)
	assert.Equal(t, "invalid number", issues[1].Reason)
	assert.Equal(t, "missing product", issues[2].Reason)
}

func TestParseOperatorCSV_HeaderErrors(t *testing.T) {
	_, _, err := ParseOperatorCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, _, err = ParseOperatorCSV(strings.NewReader("product\nDiesel\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)
}
