package factura

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/panafact/fepa_backend/config"
	"github.com/panafact/fepa_backend/models"
	"github.com/panafact/fepa_backend/ninox"
	"github.com/xuri/excelize/v2"
)

// DataSource is the capability the workflow needs from wherever the catalog
// lives. The original deployments had one near-duplicate app per source
// (table API vs exported spreadsheet); here it is one pipeline behind this
// interface.
type DataSource interface {
	Clients(ctx context.Context) ([]models.Client, error)
	Products(ctx context.Context) ([]models.Product, error)
	Invoices(ctx context.Context) ([]models.Invoice, error)
	InvoiceLines(ctx context.Context) ([]ninox.Record, error)
}

// Table spellings observed across the hosted databases. Probed in order.
var (
	clientTableAliases  = []string{"Clientes", "Cliente", "Clients"}
	productTableAliases = []string{"Productos", "Producto", "Products", "Items"}
	invoiceTableAliases = []string{"Facturas", "Factura", "Invoices"}
	lineTableAliases    = []string{"Lineas de Factura", "Líneas de Factura", "LineasFactura", "Detalle Factura", "Invoice Lines"}
)

// NewDataSource picks the active source: a local workbook when
// CATALOG_XLSX_PATH is set, otherwise the table API with an optional secondary
// account fallback.
func NewDataSource() (DataSource, error) {
	if path := config.CatalogSpreadsheetPath(); path != "" {
		return &spreadsheetSource{path: path}, nil
	}

	primary, err := ninox.NewClient(config.PrimaryNinoxAccount())
	if err != nil {
		return nil, err
	}
	source := &tableSource{primary: primary}
	if secondary := config.SecondaryNinoxAccount(); secondary.Configured() {
		client, err := ninox.NewClient(secondary)
		if err != nil {
			return nil, err
		}
		source.secondary = client
	}
	return source, nil
}

// tableSource reads from the hosted table API.
type tableSource struct {
	primary   *ninox.Client
	secondary *ninox.Client
}

// fetch probes the alias list on the primary account and, when everything
// comes back empty, retries on the secondary account.
func (s *tableSource) fetch(ctx context.Context, aliases []string) ([]ninox.Record, error) {
	records, err := s.primary.FetchTableAliases(ctx, aliases...)
	if len(records) > 0 || s.secondary == nil {
		return records, err
	}
	records, err2 := s.secondary.FetchTableAliases(ctx, aliases...)
	if len(records) > 0 {
		return records, err2
	}
	if err != nil {
		return nil, err
	}
	return nil, err2
}

func (s *tableSource) Clients(ctx context.Context) ([]models.Client, error) {
	records, err := s.fetch(ctx, clientTableAliases)
	clients := make([]models.Client, 0, len(records))
	for _, rec := range records {
		clients = append(clients, ProjectClient(rec))
	}
	return clients, err
}

func (s *tableSource) Products(ctx context.Context) ([]models.Product, error) {
	records, err := s.fetch(ctx, productTableAliases)
	products := make([]models.Product, 0, len(records))
	for _, rec := range records {
		products = append(products, ProjectProduct(rec))
	}
	return products, err
}

func (s *tableSource) Invoices(ctx context.Context) ([]models.Invoice, error) {
	records, err := s.fetch(ctx, invoiceTableAliases)
	invoices := make([]models.Invoice, 0, len(records))
	for _, rec := range records {
		invoices = append(invoices, ProjectInvoice(rec))
	}
	return invoices, err
}

func (s *tableSource) InvoiceLines(ctx context.Context) ([]ninox.Record, error) {
	return s.fetch(ctx, lineTableAliases)
}

// spreadsheetSource reads the same four tables from a local workbook, one
// sheet per table, first row as headers. Rows become synthetic records so the
// resolution and normalization pipeline stays identical.
type spreadsheetSource struct {
	path string
}

func (s *spreadsheetSource) sheetRecords(aliases []string) ([]ninox.Record, error) {
	book, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, err
	}
	defer book.Close()

	for _, alias := range aliases {
		rows, err := book.GetRows(alias)
		if err != nil {
			continue
		}
		if len(rows) < 2 {
			continue
		}
		headers := rows[0]
		records := make([]ninox.Record, 0, len(rows)-1)
		for i, row := range rows[1:] {
			fields := make(map[string]ninox.Value, len(headers))
			for col, header := range headers {
				if header == "" || col >= len(row) {
					continue
				}
				fields[header] = ninox.Value{Kind: ninox.ValueScalar, Scalar: row[col]}
			}
			records = append(records, ninox.Record{
				Id:     fmt.Sprintf("%s:%s", alias, strconv.Itoa(i+2)),
				Fields: fields,
			})
		}
		return records, nil
	}
	return nil, errors.New("no matching sheet in workbook")
}

func (s *spreadsheetSource) Clients(ctx context.Context) ([]models.Client, error) {
	records, err := s.sheetRecords(clientTableAliases)
	if err != nil {
		return nil, err
	}
	clients := make([]models.Client, 0, len(records))
	for _, rec := range records {
		clients = append(clients, ProjectClient(rec))
	}
	return clients, nil
}

func (s *spreadsheetSource) Products(ctx context.Context) ([]models.Product, error) {
	records, err := s.sheetRecords(productTableAliases)
	if err != nil {
		return nil, err
	}
	products := make([]models.Product, 0, len(records))
	for _, rec := range records {
		products = append(products, ProjectProduct(rec))
	}
	return products, nil
}

func (s *spreadsheetSource) Invoices(ctx context.Context) ([]models.Invoice, error) {
	records, err := s.sheetRecords(invoiceTableAliases)
	if err != nil {
		return nil, err
	}
	invoices := make([]models.Invoice, 0, len(records))
	for _, rec := range records {
		invoices = append(invoices, ProjectInvoice(rec))
	}
	return invoices, nil
}

func (s *spreadsheetSource) InvoiceLines(ctx context.Context) ([]ninox.Record, error) {
	return s.sheetRecords(lineTableAliases)
}
