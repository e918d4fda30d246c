package factura

import (
	"strings"

	"github.com/panafact/fepa_backend/models"
	"github.com/panafact/fepa_backend/ninox"
	"github.com/panafact/fepa_backend/utils"
	"github.com/shopspring/decimal"
)

const descriptionPlaceholder = "Sin descripción"

// Tax values at or below this are read as a rate (0.07 = 7%), above it as an
// already-computed absolute amount. Local rates never exceed 15%, so 1.5 is a
// safe cut. A line whose absolute tax happens to be <= 1.50 balboas is
// misread; see DESIGN.md.
var taxRateThreshold = decimal.RequireFromString("1.5")

var accentFolder = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ñ", "n", "ü", "u",
	"Á", "a", "É", "e", "Í", "i", "Ó", "o", "Ú", "u", "Ñ", "n", "Ü", "u",
)

// foldName canonicalizes a field label for lookup: lowercase, accents folded,
// NBSPs collapsed.
func foldName(name string) string {
	return strings.ToLower(accentFolder.Replace(utils.CollapseWhitespace(name)))
}

// fieldByNames finds the first field whose folded label equals one of the
// given keys, falling back to a substring match. Keys must already be folded.
func fieldByNames(fields map[string]ninox.Value, keys ...string) (ninox.Value, bool) {
	for _, key := range keys {
		for name, value := range fields {
			if foldName(name) == key {
				return value, true
			}
		}
	}
	for _, key := range keys {
		for name, value := range fields {
			if strings.Contains(foldName(name), key) {
				return value, true
			}
		}
	}
	return ninox.Value{}, false
}

func fieldText(fields map[string]ninox.Value, keys ...string) string {
	value, ok := fieldByNames(fields, keys...)
	if !ok {
		return ""
	}
	return utils.CollapseWhitespace(value.Text())
}

// ParseAmount coerces heterogeneous numeric text into a decimal. Currency
// symbols and thousands separators are stripped; both "." and "," are accepted
// as the decimal separator, disambiguated by whichever appears last:
// "48,00" -> 48, "$25,50" -> 25.5, "1.234,56" -> 1234.56.
// Anything unparseable coerces to zero, the lenient-data policy for this
// source.
func ParseAmount(raw string) decimal.Decimal {
	raw = utils.CollapseWhitespace(raw)
	if raw == "" {
		return decimal.Zero
	}

	var cleaned strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',':
			cleaned.WriteRune(r)
		case r == '-' && cleaned.Len() == 0:
			cleaned.WriteRune(r)
		}
	}
	s := cleaned.String()
	if s == "" || s == "-" {
		return decimal.Zero
	}

	// The balboa sign "B/." leaves a stray leading separator behind.
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimLeft(strings.TrimPrefix(s, "-"), ".,")
	if s == "" {
		return decimal.Zero
	}
	if neg {
		s = "-" + s
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastComma > lastDot:
		// Comma-decimal: drop dots as thousands separators.
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
		if i := strings.Index(s, "."); i != strings.LastIndex(s, ".") {
			// More than one comma: all but the last were separators.
			s = strings.Replace(s, ".", "", strings.Count(s, ".")-1)
		}
	case lastDot > lastComma:
		s = strings.ReplaceAll(s, ",", "")
		if i := strings.Index(s, "."); i != strings.LastIndex(s, ".") {
			s = strings.Replace(s, ".", "", strings.Count(s, ".")-1)
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// NormalizeLine converts one resolved line record into a canonical LineItem.
// Field labels are matched against both accented and unaccented spellings. Tax
// handling: a raw value <= 1.5 is a rate, above that an absolute amount with
// the rate back-derived; a line with no tax field at all inherits the catalog
// rate of the product with the same code, else zero.
func NormalizeLine(fields map[string]ninox.Value, catalog []models.Product) models.LineItem {
	item := models.LineItem{
		Code:        fieldText(fields, "codigo", "code", "sku", "referencia"),
		Description: fieldText(fields, "descripcion", "description", "detalle", "concepto", "producto"),
		Quantity:    ParseAmount(fieldText(fields, "cantidad", "quantity", "qty", "cant")),
		UnitPrice:   ParseAmount(fieldText(fields, "precio unitario", "precio", "unit price", "price", "valor unitario")),
	}
	if item.Description == "" {
		item.Description = descriptionPlaceholder
	}

	base := item.Base()
	taxValue, hasTax := fieldByNames(fields, "itbms", "impuesto", "tax", "tasa")
	taxText := utils.CollapseWhitespace(taxValue.Text())
	if !hasTax || taxText == "" {
		item.TaxRate = catalogTaxRate(catalog, item.Code)
		item.TaxAmount = item.TaxRate.Mul(base).Round(2)
		return item
	}

	raw := ParseAmount(taxText)
	if raw.LessThanOrEqual(taxRateThreshold) {
		item.TaxRate = raw
		item.TaxAmount = raw.Mul(base).Round(2)
	} else {
		item.TaxAmount = raw.Round(2)
		if base.IsZero() {
			item.TaxRate = decimal.Zero
		} else {
			item.TaxRate = item.TaxAmount.DivRound(base, 4)
		}
	}
	return item
}

func catalogTaxRate(catalog []models.Product, code string) decimal.Decimal {
	code = strings.TrimSpace(code)
	if code == "" {
		return decimal.Zero
	}
	for _, product := range catalog {
		if strings.EqualFold(strings.TrimSpace(product.Code), code) {
			return product.TaxRate
		}
	}
	return decimal.Zero
}

// ProjectClient maps a client record onto the fixed projection the document
// builder needs. Missing fields coerce to empty strings.
func ProjectClient(rec ninox.Record) models.Client {
	return models.Client{
		Name:            fieldText(rec.Fields, "nombre", "razon social", "name", "cliente"),
		TaxId:           fieldText(rec.Fields, "ruc", "cedula", "tax id", "identificacion"),
		TaxIdCheckDigit: fieldText(rec.Fields, "dv", "digito verificador"),
		Address:         fieldText(rec.Fields, "direccion", "address"),
		Phone:           fieldText(rec.Fields, "telefono", "celular", "phone"),
		Email:           fieldText(rec.Fields, "correo", "email"),
	}
}

func ProjectProduct(rec ninox.Record) models.Product {
	return models.Product{
		Code:        fieldText(rec.Fields, "codigo", "code", "sku"),
		Description: fieldText(rec.Fields, "descripcion", "description", "nombre", "producto"),
		UnitPrice:   ParseAmount(fieldText(rec.Fields, "precio unitario", "precio", "unit price", "price")),
		TaxRate:     ParseAmount(fieldText(rec.Fields, "itbms", "impuesto", "tasa", "tax")),
	}
}

func ProjectInvoice(rec ninox.Record) models.Invoice {
	return models.Invoice{
		Id:     rec.Id,
		Number: fieldText(rec.Fields, "numero de factura", "numero", "factura no", "factura", "number", "no"),
		Status: fieldText(rec.Fields, "estado", "status"),
	}
}
