package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"fuelpulse/internal/dataprocessing"
	"fuelpulse/pkg/contracts/domain"
)

var printer = message.NewPrinter(language.English)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func price(v float64) string {
	return printer.Sprintf("%.3f", v)
}

func signed(formatted string, v float64) string {
	if v > 0 {
		return "+" + formatted
	}
	return formatted
}

func minPrice(m domain.MinPriceInfo) (string, string) {
	if !m.HasData() {
		return "-", "-"
	}
	return price(m.MinPrice), strings.Join(m.Distributors, ", ")
}

func printSummaries(w io.Writer, summaries []domain.ProductSummary) error {
	if len(summaries) == 0 {
		_, err := fmt.Fprintln(w, "No market data.")
		return err
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "PRODUCT\tAVERAGE\tMIN\tCHEAPEST\tQUOTES")
	for _, s := range summaries {
		low, cheapest := minPrice(s.Min)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			s.Product, price(s.AveragePrice), low, cheapest, printer.Sprintf("%d", s.SampleCount))
	}
	return tw.Flush()
}

func printProductSummary(w io.Writer, s domain.ProductSummary) error {
	low, cheapest := minPrice(s.Min)
	fmt.Fprintf(w, "Product:  %s\n", s.Product)
	fmt.Fprintf(w, "Average:  %s\n", price(s.AveragePrice))
	fmt.Fprintf(w, "Minimum:  %s (%s)\n\n", low, cheapest)
	return printRanking(w, s.Ranking)
}

func printRanking(w io.Writer, ranking []domain.RankedEntry) error {
	if len(ranking) == 0 {
		_, err := fmt.Fprintln(w, "No ranked distributors.")
		return err
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "RANK\tDISTRIBUTOR\tPRICE")
	for _, e := range ranking {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", e.Rank, e.Distributor, price(e.Price))
	}
	return tw.Flush()
}

func printComparison(w io.Writer, c domain.Comparison) error {
	fmt.Fprintf(w, "Station:  %s\n\n", c.StationID)

	tw := newTable(w)
	fmt.Fprintln(tw, "PRODUCT\tMINE\tAVERAGE\tDIFF\tDIFF %\tMIN\tRANK")
	for _, p := range c.Products {
		if !p.MarketAvailable {
			fmt.Fprintf(tw, "%s\t%s\t-\t-\t-\t-\t-\n", p.Product, price(p.OperatorPrice))
			continue
		}
		low, _ := minPrice(p.MarketMin)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d/%d\n",
			p.Product,
			price(p.OperatorPrice),
			price(p.MarketAverage),
			signed(price(p.DifferenceFromAverage), p.DifferenceFromAverage),
			signed(printer.Sprintf("%.2f%%", p.PercentFromAverage), p.PercentFromAverage),
			low,
			p.MarketRank, p.RankedDistributors)
	}
	return tw.Flush()
}

func printIssues(w io.Writer, issues []dataprocessing.ParseIssue) {
	for _, issue := range issues {
		fmt.Fprintf(w, "warning: %s\n", issue)
	}
}
