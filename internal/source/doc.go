// Package source loads market quotes for the comparison service.
//
// A PriceSource returns a fresh snapshot of price rows on every call; nothing
// is cached between requests. Two implementations exist:
//
//   - CSVSource re-reads a CSV file (see dataprocessing.ParseCSV for the format)
//   - SQLSource queries a market_prices table through database/sql, using
//     modernc.org/sqlite or lib/pq depending on the configured driver
//
// New picks the implementation from config.SourceConfig.
package source
