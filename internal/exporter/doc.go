// Package exporter writes operator comparisons and market summaries to files
// a spreadsheet user can open.
//
// CSVWriter produces CSV with an optional UTF-8 BOM so Excel detects the
// encoding; prices are written with exactly three decimals and percentages
// with two. XLSXExporter builds a workbook with a "Comparison" sheet and a
// "Market Ranking" sheet listing the dense ranking behind every MarketRank.
//
// Example usage:
//
//	w := exporter.NewCSVWriter(true, paths)
//	err := w.WriteComparison(resp, comparison)
//
//	x := exporter.NewXLSXExporter(logger)
//	err = x.WriteComparison(resp, comparison, market)
package exporter
