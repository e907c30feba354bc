package exporter

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"fuelpulse/internal/shared/testutil"
	"fuelpulse/pkg/contracts/domain"
)

func TestXLSXExporter_Comparison(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	x := NewXLSXExporter(logger)

	f, err := x.Comparison(sampleComparison(), sampleMarket())
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{ComparisonSheet, RankingSheet}, f.GetSheetList())

	rows, err := f.GetRows(ComparisonSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ComparisonHeaders, rows[0])
	assert.Equal(t, "diesel", rows[1][0])
	assert.Equal(t, "5.867", rows[1][3])
	assert.Equal(t, "bravo; charlie", rows[1][5])
	assert.Equal(t, "1", rows[1][8])
	require.Len(t, rows[2], 3, "market columns stay empty without market data")
	assert.Equal(t, []string{"kerosene", "3"}, rows[2][:2])

	styleID, err := f.GetCellStyle(ComparisonSheet, "A1")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)

	ranking, err := f.GetRows(RankingSheet)
	require.NoError(t, err)
	require.Len(t, ranking, 4)
	assert.Equal(t, []string{"product", "rank", "distributor", "price"}, ranking[0])
	assert.Equal(t, []string{"diesel", "1", "bravo", "5.8"}, ranking[1])
	assert.Equal(t, []string{"diesel", "2", "alpha", "6"}, ranking[3])
}

func TestXLSXExporter_WriteComparison(t *testing.T) {
	x := NewXLSXExporter(nil)

	var buf bytes.Buffer
	require.NoError(t, x.WriteComparison(&buf, domain.Comparison{StationID: "st-1"}, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(ComparisonSheet)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	ranking, err := f.GetRows(RankingSheet)
	require.NoError(t, err)
	assert.Len(t, ranking, 1)
}
