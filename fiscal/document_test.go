package fiscal

import (
	"testing"
	"time"

	"github.com/panafact/fepa_backend/models"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func buildParams() BuildParams {
	return BuildParams{
		InvoiceNumber: "74",
		DocumentType:  DocTypeInvoice,
		Client: models.Client{
			Name:            "Comercial Estrella S.A.",
			TaxId:           "212934-1-397239",
			TaxIdCheckDigit: "25",
			Address:         "Via España, Ciudad de Panamá",
			Email:           "pagos@estrella.example",
		},
		Items: []models.LineItem{
			{Code: "P-01", Description: "Pollo entero", Quantity: d("2"), UnitPrice: d("50"), TaxRate: d("0.07"), TaxAmount: d("7.00")},
			{Code: "P-02", Description: "Arroz", Quantity: d("1"), UnitPrice: d("100"), TaxRate: decimal.Zero, TaxAmount: decimal.Zero},
		},
		PaymentMethod: "Cash",
		IssueDate:     time.Date(2026, 8, 31, 10, 30, 0, 0, time.UTC),
		BranchCode:    "0000",
		IssuePoint:    "001",
	}
}

func TestPaymentMethodCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Cash", "01", true},
		{"efectivo", "01", true},
		{"Debit", "02", true},
		{"débito", "02", true},
		{"Credit", "03", true},
		{"credito", "03", true},
		{"cheque", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := PaymentMethodCode(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("PaymentMethodCode(%q) = (%q, %t), want (%q, %t)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestBuildDocument(t *testing.T) {
	doc, err := BuildDocument(buildParams())
	if err != nil {
		t.Fatalf("BuildDocument: %v", err)
	}

	tx := doc.Documento.DatosTransaccion
	if tx.NumeroDocumentoFiscal != "00000074" {
		t.Errorf("document number = %q, want 00000074", tx.NumeroDocumentoFiscal)
	}
	if tx.TipoDocumento != "01" {
		t.Errorf("tipoDocumento = %q", tx.TipoDocumento)
	}
	// 10:30 UTC is 05:30 local; the offset must render literally as -05:00.
	if tx.FechaEmision != "2026-08-31T05:30:00-05:00" {
		t.Errorf("emission time = %q, want 2026-08-31T05:30:00-05:00", tx.FechaEmision)
	}
	if tx.Cliente.NumeroRUC != "2129341397239" {
		t.Errorf("RUC should be hyphen-stripped, got %q", tx.Cliente.NumeroRUC)
	}
	if tx.Cliente.Pais != "PA" {
		t.Errorf("pais = %q", tx.Cliente.Pais)
	}

	items := doc.Documento.ListaItems
	if len(items) != 2 {
		t.Fatalf("got %d items", len(items))
	}
	if items[0].TasaITBMS != "01" || items[1].TasaITBMS != "00" {
		t.Errorf("tax codes = %q/%q, want 01/00", items[0].TasaITBMS, items[1].TasaITBMS)
	}
	if items[0].PrecioItem != "100.00" || items[0].ValorTotal != "107.00" {
		t.Errorf("item 0 money = %q/%q", items[0].PrecioItem, items[0].ValorTotal)
	}

	totals := doc.Documento.TotalesSubTotales
	if totals.TotalPrecioNeto != "200.00" {
		t.Errorf("net = %q", totals.TotalPrecioNeto)
	}
	if totals.TotalITBMS != "7.00" {
		t.Errorf("itbms = %q", totals.TotalITBMS)
	}
	if totals.TotalMontoGravado != "100.00" {
		t.Errorf("gravado should only sum taxed bases, got %q", totals.TotalMontoGravado)
	}
	if totals.TotalFactura != "207.00" || totals.TotalValorRecibido != "207.00" {
		t.Errorf("grand = %q / recibido = %q", totals.TotalFactura, totals.TotalValorRecibido)
	}
	if totals.NroItems != "2" {
		t.Errorf("nroItems = %q", totals.NroItems)
	}
	if len(totals.ListaFormaPago) != 1 || totals.ListaFormaPago[0].FormaPagoFact != "01" {
		t.Errorf("payment list = %+v", totals.ListaFormaPago)
	}
	if totals.ListaFormaPago[0].ValorCuotaPagada != "207.00" {
		t.Errorf("paid amount = %q", totals.ListaFormaPago[0].ValorCuotaPagada)
	}
}

func TestBuildDocumentCreditNote(t *testing.T) {
	params := buildParams()
	params.DocumentType = DocTypeCreditNote
	doc, err := BuildDocument(params)
	if err != nil {
		t.Fatalf("BuildDocument: %v", err)
	}
	if doc.Documento.DatosTransaccion.TipoDocumento != "06" {
		t.Errorf("tipoDocumento = %q, want 06", doc.Documento.DatosTransaccion.TipoDocumento)
	}
}

func TestBuildDocumentRejectsEmptyItems(t *testing.T) {
	params := buildParams()
	params.Items = nil
	if _, err := BuildDocument(params); err == nil {
		t.Fatal("expected an error for empty items")
	}
}

func TestBuildDocumentRejectsUnknownPayment(t *testing.T) {
	params := buildParams()
	params.PaymentMethod = "trueque"
	if _, err := BuildDocument(params); err == nil {
		t.Fatal("expected an error for an unknown payment method")
	}
}

func TestItemTaxCode(t *testing.T) {
	if got := itemTaxCode(d("0.07")); got != "01" {
		t.Errorf("taxed code = %q", got)
	}
	if got := itemTaxCode(decimal.Zero); got != "00" {
		t.Errorf("untaxed code = %q", got)
	}
}
