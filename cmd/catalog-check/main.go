// catalog-check is a connectivity and resolution harness: it fetches the
// catalog tables with the same configuration the server uses, prints the row
// counts, and optionally resolves one invoice's lines so table-alias or
// line-linking problems can be diagnosed without the UI.
//
// Example:
//   NINOX_API_TOKEN=... go run ./cmd/catalog-check --invoice=125
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/panafact/fepa_backend/config"
	"github.com/panafact/fepa_backend/factura"
	"github.com/panafact/fepa_backend/models"
	"github.com/panafact/fepa_backend/utils"
)

func main() {
	invoiceNumber := flag.String("invoice", "", "invoice number to resolve lines for (optional)")
	asJSON := flag.Bool("json", false, "dump the resolution report as JSON")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall deadline")
	flag.Parse()

	config.LoadEnv()
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	source, err := factura.NewDataSource()
	if err != nil {
		fmt.Fprintf(os.Stderr, "data source not configured: %v\n", err)
		os.Exit(1)
	}

	clients, err := source.Clients(ctx)
	report("clients", len(clients), err)
	products, err := source.Products(ctx)
	report("products", len(products), err)
	invoices, err := source.Invoices(ctx)
	report("invoices", len(invoices), err)

	pending := 0
	for _, inv := range invoices {
		if inv.Pending() {
			pending++
		}
	}
	fmt.Printf("pending invoices: %d\n", pending)

	if *invoiceNumber == "" {
		return
	}

	var target *models.Invoice
	for i := range invoices {
		if invoices[i].NormalizedNumber() == models.NormalizeNumber(*invoiceNumber) {
			target = &invoices[i]
			break
		}
	}
	if target == nil {
		fmt.Fprintf(os.Stderr, "invoice %q not found\n", *invoiceNumber)
		os.Exit(1)
	}

	lines, err := source.InvoiceLines(ctx)
	report("lines", len(lines), err)

	matches := factura.ResolveLines(*target, lines)
	summary := factura.BuildReport(*target, matches)
	if *asJSON {
		out, err := utils.MarshalToJSON(summary)
		if err != nil {
			fmt.Fprintf(os.Stderr, "marshal report: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(out)
		return
	}
	fmt.Printf("invoice %s (normalized %s): %d of %d lines matched\n",
		target.Number, summary.Normalized, summary.MatchedLines, summary.FetchedLines)
	for _, entry := range summary.Entries {
		fmt.Printf("  line %s relation=%t field=%t substring=%t\n",
			entry.RecordId, entry.Relation, entry.FieldName, entry.Substring)
	}
}

func report(table string, count int, err error) {
	if err != nil {
		fmt.Printf("%s: %d rows (with error: %v)\n", table, count, err)
		return
	}
	fmt.Printf("%s: %d rows\n", table, count)
}
