// Package dataprocessing turns raw market quotes into the shapes the pricing
// core consumes.
//
// # Data Flow
//
//	CSV rows → ParseCSV → []domain.PriceRow → GroupByProduct → map[product]ProductPriceMap
//	                                        → BuildDailySummaries → []domain.DailySummary
//
// Product and distributor names go through NormalizeIdentifier on the way in,
// so "Diesel ", "diesel" style duplicates from different feeds collapse only
// when they are the same text after Unicode normalization. Case is preserved.
//
// # Error Handling
//
// ParseCSV fails only when the header is unusable. Problems with individual
// rows are returned as ParseIssue values and the affected price becomes absent,
// which the pricing functions already ignore.
package dataprocessing
