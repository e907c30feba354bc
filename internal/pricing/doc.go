// Package pricing holds the market statistics used to compare a station's
// prices with its distributors.
//
// Three pure functions make up the package:
//
//   - TrimmedAverage: the market average of a product, with interquartile
//     outlier trimming once the sample has at least four prices.
//   - DenseRank: distributors ordered by price, ties sharing a rank and no
//     gaps after a tie.
//   - MinPrice: the lowest quote and every distributor offering it.
//
// None of them return errors or panic. Empty or unusable input degrades to a
// sentinel (0, an empty ranking, or a +Inf minimum) so callers can render the
// result unconditionally.
package pricing
