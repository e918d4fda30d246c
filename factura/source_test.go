package factura

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T) string {
	t.Helper()
	book := excelize.NewFile()
	defer book.Close()

	sheets := map[string][][]interface{}{
		"Clientes": {
			{"Nombre", "RUC", "DV", "Correo"},
			{"Comercial Estrella S.A.", "212934-1-397239", "25", "pagos@estrella.example"},
		},
		"Productos": {
			{"Codigo", "Descripcion", "Precio Unitario", "ITBMS"},
			{"P-01", "Pollo entero", "50,00", "0,07"},
		},
		"Facturas": {
			{"Numero de Factura", "Estado"},
			{"74", "Pendiente"},
			{"75", "Pagada"},
		},
		"Lineas de Factura": {
			{"Factura No.", "Descripcion", "Cantidad", "Precio"},
			{"74", "Pollo entero", "2", "50,00"},
			{"99", "Otra cosa", "1", "10,00"},
		},
	}
	for name, rows := range sheets {
		if _, err := book.NewSheet(name); err != nil {
			t.Fatalf("NewSheet(%s): %v", name, err)
		}
		for i, row := range rows {
			cell, _ := excelize.CoordinatesToCellName(1, i+1)
			if err := book.SetSheetRow(name, cell, &row); err != nil {
				t.Fatalf("SetSheetRow: %v", err)
			}
		}
	}

	path := filepath.Join(t.TempDir(), "catalogo.xlsx")
	if err := book.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	return path
}

func TestSpreadsheetSource(t *testing.T) {
	src := &spreadsheetSource{path: writeWorkbook(t)}
	ctx := context.Background()

	clients, err := src.Clients(ctx)
	if err != nil {
		t.Fatalf("Clients: %v", err)
	}
	if len(clients) != 1 || clients[0].CleanRUC() != "2129341397239" {
		t.Fatalf("clients = %+v", clients)
	}

	products, err := src.Products(ctx)
	if err != nil {
		t.Fatalf("Products: %v", err)
	}
	if len(products) != 1 || products[0].TaxRate.String() != "0.07" {
		t.Fatalf("products = %+v", products)
	}

	invoices, err := src.Invoices(ctx)
	if err != nil {
		t.Fatalf("Invoices: %v", err)
	}
	if len(invoices) != 2 {
		t.Fatalf("invoices = %+v", invoices)
	}

	lines, err := src.InvoiceLines(ctx)
	if err != nil {
		t.Fatalf("InvoiceLines: %v", err)
	}
	matched := Included(ResolveLines(invoices[0], lines))
	if len(matched) != 1 {
		t.Fatalf("matched %d lines for invoice 74, want 1", len(matched))
	}
	item := NormalizeLine(matched[0].Fields, products)
	if got := item.UnitPrice.String(); got != "50" {
		t.Fatalf("unit price = %s", got)
	}
}

func TestSpreadsheetSourceMissingSheet(t *testing.T) {
	book := excelize.NewFile()
	path := filepath.Join(t.TempDir(), "vacio.xlsx")
	if err := book.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	book.Close()

	src := &spreadsheetSource{path: path}
	if _, err := src.Clients(context.Background()); err == nil {
		t.Fatal("expected an error when no client sheet exists")
	}
}
