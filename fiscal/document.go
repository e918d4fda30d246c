package fiscal

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/panafact/fepa_backend/models"
	"github.com/shopspring/decimal"
)

// Document-type codes on the wire.
const (
	DocTypeInvoice    = "01"
	DocTypeCreditNote = "06"
)

// Emission timestamps render in fixed local time. Panama does not observe
// DST, so the zone below always prints as -05:00.
const emissionTimeLayout = "2006-01-02T15:04:05-07:00"

var panamaZone = time.FixedZone("America/Panama", -5*60*60)

// Document is the fixed wire shape the fiscal backend forwards to the
// printer web service. Monetary fields are string-typed 2-decimal text, not
// JSON numbers; the downstream schema requires it.
type Document struct {
	Documento Documento `json:"documento"`
}

type Documento struct {
	DatosTransaccion  DatosTransaccion  `json:"datosTransaccion"`
	ListaItems        []Item            `json:"listaItems"`
	TotalesSubTotales TotalesSubTotales `json:"totalesSubTotales"`
}

type DatosTransaccion struct {
	TipoEmision            string  `json:"tipoEmision"`
	TipoDocumento          string  `json:"tipoDocumento"`
	NumeroDocumentoFiscal  string  `json:"numeroDocumentoFiscal"`
	PuntoFacturacionFiscal string  `json:"puntoFacturacionFiscal"`
	CodigoSucursalEmisor   string  `json:"codigoSucursalEmisor"`
	FechaEmision           string  `json:"fechaEmision"`
	NaturalezaOperacion    string  `json:"naturalezaOperacion"`
	TipoOperacion          string  `json:"tipoOperacion"`
	DestinoOperacion       string  `json:"destinoOperacion"`
	FormatoCAFE            string  `json:"formatoCAFE"`
	EntregaCAFE            string  `json:"entregaCAFE"`
	ProcesoGeneracion      string  `json:"procesoGeneracion"`
	TipoVenta              string  `json:"tipoVenta"`
	Cliente                Cliente `json:"cliente"`
}

type Cliente struct {
	TipoClienteFE        string `json:"tipoClienteFE"`
	TipoContribuyente    string `json:"tipoContribuyente"`
	NumeroRUC            string `json:"numeroRUC"`
	DigitoVerificadorRUC string `json:"digitoVerificadorRUC"`
	RazonSocial          string `json:"razonSocial"`
	Direccion            string `json:"direccion"`
	TelefonoContacto     string `json:"telefonoContacto"`
	CorreoElectronico1   string `json:"correoElectronico1"`
	Pais                 string `json:"pais"`
}

type Item struct {
	Descripcion    string `json:"descripcion"`
	Codigo         string `json:"codigo"`
	UnidadMedida   string `json:"unidadMedida"`
	Cantidad       string `json:"cantidad"`
	PrecioUnitario string `json:"precioUnitario"`
	PrecioItem     string `json:"precioItem"`
	ValorTotal     string `json:"valorTotal"`
	TasaITBMS      string `json:"tasaITBMS"`
	ValorITBMS     string `json:"valorITBMS"`
}

type TotalesSubTotales struct {
	TotalPrecioNeto    string      `json:"totalPrecioNeto"`
	TotalITBMS         string      `json:"totalITBMS"`
	TotalMontoGravado  string      `json:"totalMontoGravado"`
	TotalFactura       string      `json:"totalFactura"`
	TotalValorRecibido string      `json:"totalValorRecibido"`
	Vuelto             string      `json:"vuelto"`
	TiempoPago         string      `json:"tiempoPago"`
	NroItems           string      `json:"nroItems"`
	TotalTodosItems    string      `json:"totalTodosItems"`
	ListaFormaPago     []FormaPago `json:"listaFormaPago"`
}

type FormaPago struct {
	FormaPagoFact    string `json:"formaPagoFact"`
	ValorCuotaPagada string `json:"valorCuotaPagada"`
}

// PaymentMethodCode maps the closed UI vocabulary onto the two-digit wire
// codes. The bool is false for anything outside the vocabulary.
func PaymentMethodCode(method string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(method)) {
	case "cash", "efectivo":
		return "01", true
	case "debit", "debito", "débito":
		return "02", true
	case "credit", "credito", "crédito":
		return "03", true
	default:
		return "", false
	}
}

// itemTaxCode is the binary taxed/untaxed indicator. Derived from whether the
// rate is positive, not from the rate's magnitude.
func itemTaxCode(rate decimal.Decimal) string {
	if rate.GreaterThan(decimal.Zero) {
		return "01"
	}
	return "00"
}

// BuildParams carries everything Document assembly needs. Totals are not a
// parameter on purpose: they are recomputed here from the items.
type BuildParams struct {
	InvoiceNumber string
	DocumentType  string // DocTypeInvoice or DocTypeCreditNote
	Client        models.Client
	Items         []models.LineItem
	PaymentMethod string
	IssueDate     time.Time
	BranchCode    string
	IssuePoint    string
}

// BuildDocument folds the canonical line items into the wire schema: string
// 2-decimal money, hyphen-stripped RUC, single-entry payment list.
func BuildDocument(params BuildParams) (*Document, error) {
	if len(params.Items) == 0 {
		return nil, errors.New("no line items")
	}
	paymentCode, ok := PaymentMethodCode(params.PaymentMethod)
	if !ok {
		return nil, errors.New("unknown payment method: " + params.PaymentMethod)
	}

	docType := params.DocumentType
	if docType == "" {
		docType = DocTypeInvoice
	}

	issue := params.IssueDate
	if issue.IsZero() {
		issue = time.Now()
	}

	totals := models.CalculateTotals(params.Items)
	items := make([]Item, 0, len(params.Items))
	gravado := decimal.Zero
	for _, li := range params.Items {
		base := li.Base().Round(2)
		if li.TaxRate.GreaterThan(decimal.Zero) {
			gravado = gravado.Add(base)
		}
		items = append(items, Item{
			Descripcion:    li.Description,
			Codigo:         li.Code,
			UnidadMedida:   "und",
			Cantidad:       li.Quantity.StringFixed(2),
			PrecioUnitario: li.UnitPrice.StringFixed(2),
			PrecioItem:     base.StringFixed(2),
			ValorTotal:     base.Add(li.TaxAmount).StringFixed(2),
			TasaITBMS:      itemTaxCode(li.TaxRate),
			ValorITBMS:     li.TaxAmount.StringFixed(2),
		})
	}

	doc := &Document{
		Documento: Documento{
			DatosTransaccion: DatosTransaccion{
				TipoEmision:            "01",
				TipoDocumento:          docType,
				NumeroDocumentoFiscal:  models.NormalizeNumber(params.InvoiceNumber),
				PuntoFacturacionFiscal: params.IssuePoint,
				CodigoSucursalEmisor:   params.BranchCode,
				FechaEmision:           issue.In(panamaZone).Format(emissionTimeLayout),
				NaturalezaOperacion:    "01",
				TipoOperacion:          "1",
				DestinoOperacion:       "1",
				FormatoCAFE:            "1",
				EntregaCAFE:            "1",
				ProcesoGeneracion:      "1",
				TipoVenta:              "1",
				Cliente: Cliente{
					TipoClienteFE:        "02",
					TipoContribuyente:    "2",
					NumeroRUC:            params.Client.CleanRUC(),
					DigitoVerificadorRUC: strings.TrimSpace(params.Client.TaxIdCheckDigit),
					RazonSocial:          params.Client.Name,
					Direccion:            params.Client.Address,
					TelefonoContacto:     params.Client.Phone,
					CorreoElectronico1:   params.Client.Email,
					Pais:                 "PA",
				},
			},
			ListaItems: items,
			TotalesSubTotales: TotalesSubTotales{
				TotalPrecioNeto:    totals.Net.StringFixed(2),
				TotalITBMS:         totals.Tax.StringFixed(2),
				TotalMontoGravado:  gravado.StringFixed(2),
				TotalFactura:       totals.Grand.StringFixed(2),
				TotalValorRecibido: totals.Grand.StringFixed(2),
				Vuelto:             "0.00",
				TiempoPago:         "1",
				NroItems:           strconv.Itoa(len(items)),
				TotalTodosItems:    totals.Grand.StringFixed(2),
				ListaFormaPago: []FormaPago{{
					FormaPagoFact:    paymentCode,
					ValorCuotaPagada: totals.Grand.StringFixed(2),
				}},
			},
		},
	}
	return doc, nil
}
