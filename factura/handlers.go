package factura

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/panafact/fepa_backend/config"
	"github.com/panafact/fepa_backend/fiscal"
	"github.com/panafact/fepa_backend/models"
	"github.com/panafact/fepa_backend/utils"
	"github.com/shopspring/decimal"
)

// Lazily built shared clients. Gin serves requests concurrently, so first-use
// initialization has to hold the mutex.
var (
	clientsMu    sync.Mutex
	source       DataSource
	fiscalClient *fiscal.Client
)

func activeSource() (DataSource, error) {
	clientsMu.Lock()
	defer clientsMu.Unlock()
	if source == nil {
		ds, err := NewDataSource()
		if err != nil {
			return nil, err
		}
		source = ds
	}
	return source, nil
}

func activeFiscal() *fiscal.Client {
	clientsMu.Lock()
	defer clientsMu.Unlock()
	if fiscalClient == nil {
		fiscalClient = fiscal.NewClient(config.GetFiscalSettings())
	}
	return fiscalClient
}

// operators is the allow-list checked at session start. FE_OPERATORS holds
// comma-separated "name:bcrypt-hash" pairs; without it a single development
// operator is derived from FE_DEFAULT_PASSWORD (default "facturas"). Built
// once under the mutex; concurrent first logins must not interleave writes.
var (
	operatorsMu  sync.Mutex
	operatorList map[string]string
)

func operators() map[string]string {
	operatorsMu.Lock()
	defer operatorsMu.Unlock()
	if operatorList != nil {
		return operatorList
	}
	operatorList = make(map[string]string)
	raw := strings.TrimSpace(os.Getenv("FE_OPERATORS"))
	if raw != "" {
		for _, pair := range strings.Split(raw, ",") {
			name, hash, ok := strings.Cut(strings.TrimSpace(pair), ":")
			if ok && name != "" && hash != "" {
				operatorList[name] = hash
			}
		}
	}
	if len(operatorList) == 0 {
		password := strings.TrimSpace(os.Getenv("FE_DEFAULT_PASSWORD"))
		if password == "" {
			password = "facturas"
		}
		if hash, err := utils.HashPassword(password); err == nil {
			operatorList["operador"] = string(hash)
		}
	}
	return operatorList
}

func bindRequest(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": utils.ProcessValidationErrors(err)})
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		}
		return false
	}
	return true
}

func sessionFromContext(c *gin.Context) (*Session, bool) {
	sessionId, ok := utils.GetTokenFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}
	session, err := Sessions().Get(sessionId)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}
	return session, true
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if !bindRequest(c, &req) {
			return
		}

		hash, ok := operators()[req.Username]
		if !ok || utils.ComparePassword(hash, req.Password) != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		session := Sessions().Create(req.Username)
		token, err := utils.JwtGenerate(req.Username, session.Id)
		if err != nil {
			Sessions().Delete(session.Id)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token, "username": req.Username})
	}
}

func LogoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := sessionFromContext(c)
		if !ok {
			return
		}
		Sessions().Delete(session.Id)
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// RefreshHandler resets all session-cached tables and the current selection.
// The next catalog call re-fetches everything from source.
func RefreshHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := sessionFromContext(c)
		if !ok {
			return
		}
		session.ResetCatalog()
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// CatalogHandler fetches clients, products and pending invoices. Fetch errors
// are fail-soft (reported as warnings next to whatever partial data arrived),
// but an empty required set halts the workflow with a user-facing error.
func CatalogHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := sessionFromContext(c)
		if !ok {
			return
		}
		logger := config.GetLogger()

		src, err := activeSource()
		if err != nil {
			config.LogError(logger, "factura/handlers.go", "CatalogHandler", "activeSource", nil, err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "data source not configured: " + err.Error()})
			return
		}

		ctx := c.Request.Context()
		var warnings []string

		clients, err := src.Clients(ctx)
		if err != nil {
			config.LogError(logger, "factura/handlers.go", "CatalogHandler", "fetch clients", nil, err)
			warnings = append(warnings, "clients: "+err.Error())
		}
		products, err := src.Products(ctx)
		if err != nil {
			config.LogError(logger, "factura/handlers.go", "CatalogHandler", "fetch products", nil, err)
			warnings = append(warnings, "products: "+err.Error())
		}
		invoices, err := src.Invoices(ctx)
		if err != nil {
			config.LogError(logger, "factura/handlers.go", "CatalogHandler", "fetch invoices", nil, err)
			warnings = append(warnings, "invoices: "+err.Error())
		}

		pending := make([]models.Invoice, 0, len(invoices))
		for _, inv := range invoices {
			if inv.Pending() {
				pending = append(pending, inv)
			}
		}

		var missing []string
		if len(clients) == 0 {
			missing = append(missing, "clients")
		}
		if len(products) == 0 {
			missing = append(missing, "products")
		}
		if len(pending) == 0 {
			missing = append(missing, "pending invoices")
		}
		warnings = utils.UniqueSlice(warnings)
		if len(missing) > 0 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":    utils.ErrorMissingRequired.Error() + ": " + strings.Join(missing, ", "),
				"warnings": warnings,
			})
			return
		}

		session.Clients = clients
		session.Products = products
		session.Invoices = pending

		c.JSON(http.StatusOK, gin.H{
			"clients":  clients,
			"products": products,
			"invoices": pending,
			"warnings": warnings,
		})
	}
}

type selectClientRequest struct {
	TaxId string `json:"taxId" binding:"required"`
}

func SelectClientHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := sessionFromContext(c)
		if !ok {
			return
		}
		var req selectClientRequest
		if !bindRequest(c, &req) {
			return
		}

		wanted := utils.CollapseWhitespace(req.TaxId)
		for i := range session.Clients {
			client := session.Clients[i]
			if client.TaxId == wanted || client.CleanRUC() == utils.DigitsOnly(wanted) {
				session.Client = &client

				var warnings []string
				if client.Phone != "" {
					if err := utils.ValidatePhoneNumber(client.Phone, utils.CountryCode); err != nil {
						warnings = append(warnings, "client phone does not look valid for "+utils.CountryCode)
					}
				}
				if client.Email != "" && !utils.IsValidEmail(client.Email) {
					warnings = append(warnings, "client email does not look valid")
				}
				c.JSON(http.StatusOK, gin.H{"client": client, "warnings": warnings})
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"error": utils.ErrorRecordNotFound.Error() + ": client"})
	}
}

type selectInvoiceRequest struct {
	InvoiceId string `json:"invoiceId" binding:"required"`
}

// SelectInvoiceHandler re-fetches the lines table on every selection change
// (no incremental sync; an extra round trip buys freshness), resolves the
// lines belonging to the invoice and replaces the session's items with their
// normalized form.
func SelectInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := sessionFromContext(c)
		if !ok {
			return
		}
		var req selectInvoiceRequest
		if !bindRequest(c, &req) {
			return
		}

		var invoice *models.Invoice
		for i := range session.Invoices {
			if session.Invoices[i].Id == req.InvoiceId {
				invoice = &session.Invoices[i]
				break
			}
		}
		if invoice == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": utils.ErrorRecordNotFound.Error() + ": pending invoice"})
			return
		}

		logger := config.GetLogger()
		src, err := activeSource()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}

		var warnings []string
		lines, err := src.InvoiceLines(c.Request.Context())
		if err != nil {
			config.LogError(logger, "factura/handlers.go", "SelectInvoiceHandler", "fetch lines", req.InvoiceId, err)
			warnings = append(warnings, "lines: "+err.Error())
		}

		matches := ResolveLines(*invoice, lines)
		session.LastReport = BuildReport(*invoice, matches)

		items := make([]models.LineItem, 0)
		for _, record := range Included(matches) {
			items = append(items, NormalizeLine(record.Fields, session.Products))
		}
		session.Items = items

		c.JSON(http.StatusOK, gin.H{
			"invoice":  utils.DereferencePtr(invoice),
			"items":    items,
			"totals":   session.Totals(),
			"fetched":  len(lines),
			"matched":  len(items),
			"warnings": warnings,
		})
	}
}

type addItemRequest struct {
	Code        string  `json:"code"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity" binding:"required,gt=0"`
	UnitPrice   float64 `json:"unitPrice" binding:"gte=0"`
	TaxRate     float64 `json:"taxRate" binding:"gte=0,lte=1"`
}

// AddItemHandler appends a manually entered line. A known product code fills
// in the gaps from the catalog.
func AddItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := sessionFromContext(c)
		if !ok {
			return
		}
		var req addItemRequest
		if !bindRequest(c, &req) {
			return
		}

		item := models.LineItem{
			Code:        strings.TrimSpace(req.Code),
			Description: utils.CollapseWhitespace(req.Description),
			Quantity:    decimal.NewFromFloat(req.Quantity),
			UnitPrice:   decimal.NewFromFloat(req.UnitPrice),
			TaxRate:     decimal.NewFromFloat(req.TaxRate),
		}
		if item.Code != "" {
			for _, product := range session.Products {
				if strings.EqualFold(strings.TrimSpace(product.Code), item.Code) {
					if item.Description == "" {
						item.Description = product.Description
					}
					if item.UnitPrice.IsZero() {
						item.UnitPrice = product.UnitPrice
					}
					if item.TaxRate.IsZero() {
						item.TaxRate = product.TaxRate
					}
					break
				}
			}
		}
		if item.Description == "" {
			item.Description = descriptionPlaceholder
		}
		item.TaxAmount = item.TaxRate.Mul(item.Base()).Round(2)

		session.Items = append(session.Items, item)
		c.JSON(http.StatusOK, gin.H{"items": session.Items, "totals": session.Totals()})
	}
}

func RemoveItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := sessionFromContext(c)
		if !ok {
			return
		}
		index, err := strconv.Atoi(c.Param("index"))
		if err != nil || index < 0 || index >= len(session.Items) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid item index"})
			return
		}
		session.Items = append(session.Items[:index], session.Items[index+1:]...)
		c.JSON(http.StatusOK, gin.H{"items": session.Items, "totals": session.Totals()})
	}
}

func ClearItemsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := sessionFromContext(c)
		if !ok {
			return
		}
		session.ClearItems()
		c.JSON(http.StatusOK, gin.H{"items": session.Items, "totals": session.Totals()})
	}
}

type submitRequest struct {
	InvoiceNumber string `json:"invoiceNumber" binding:"required"`
	PaymentMethod string `json:"paymentMethod" binding:"required,oneof=Cash Debit Credit"`
	DocumentType  string `json:"documentType" binding:"omitempty,oneof=invoice creditNote"`
	IssueDate     string `json:"issueDate" binding:"omitempty,datetime=2006-01-02"`
}

// SubmitHandler assembles and sends the fiscal document. Validation failures
// block before any network call; a submission failure keeps the session items
// so the operator can retry; a PDF failure after a successful submission is
// reported separately because the document is already committed.
func SubmitHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := sessionFromContext(c)
		if !ok {
			return
		}
		var req submitRequest
		if !bindRequest(c, &req) {
			return
		}

		settings := config.GetFiscalSettings()
		if settings.EmitterName == "" {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "emitter name is not configured"})
			return
		}
		if session.Client == nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no client selected"})
			return
		}
		if len(session.Items) == 0 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no line items"})
			return
		}

		docType := fiscal.DocTypeInvoice
		if req.DocumentType == "creditNote" {
			docType = fiscal.DocTypeCreditNote
		}
		issueDate := time.Now()
		if req.IssueDate != "" {
			if parsed, err := time.Parse("2006-01-02", req.IssueDate); err == nil {
				issueDate = parsed
			}
		}

		doc, err := fiscal.BuildDocument(fiscal.BuildParams{
			InvoiceNumber: req.InvoiceNumber,
			DocumentType:  docType,
			Client:        *session.Client,
			Items:         session.Items,
			PaymentMethod: req.PaymentMethod,
			IssueDate:     issueDate,
			BranchCode:    settings.BranchCode,
			IssuePoint:    settings.IssuePoint,
		})
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		logger := config.GetLogger()
		ctx := c.Request.Context()
		raw, err := activeFiscal().EnviarFactura(ctx, doc)
		if err != nil {
			// Hard failure: items are kept for a retry, raw body shown for diagnosis.
			config.LogError(logger, "factura/handlers.go", "SubmitHandler", "enviar-factura", req.InvoiceNumber, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "response": string(raw)})
			return
		}

		session.ClearItems()
		refreshPendingInvoices(ctx, session)

		response := gin.H{"submitted": true, "pdf": false}
		pdf, err := activeFiscal().DescargarPDF(ctx, fiscal.PDFRequest{
			CodigoSucursalEmisor:   settings.BranchCode,
			NumeroDocumentoFiscal:  doc.Documento.DatosTransaccion.NumeroDocumentoFiscal,
			PuntoFacturacionFiscal: settings.IssuePoint,
			TipoDocumento:          docType,
			TipoEmision:            "01",
			SerialDispositivo:      settings.DeviceSerial,
		})
		if err != nil {
			// Soft failure: the document is committed, only the receipt is missing.
			config.LogError(logger, "factura/handlers.go", "SubmitHandler", "descargar-pdf", req.InvoiceNumber, err)
			response["pdfError"] = err.Error()
		} else {
			session.LastPDF = pdf
			response["pdf"] = true
		}

		if config.AutoEmailReceipt() && session.Client.Email != "" && utils.IsValidEmail(session.Client.Email) {
			emailErr := activeFiscal().EnviarCafeEmail(ctx, fiscal.EmailRequest{
				To:       session.Client.Email,
				Subject:  "CAFE " + doc.Documento.DatosTransaccion.NumeroDocumentoFiscal,
				BodyHTML: "<p>Adjuntamos su comprobante auxiliar de factura electrónica.</p>",
				Meta: map[string]string{
					"emitter":               settings.EmitterName,
					"operator":              session.Username,
					"numeroDocumentoFiscal": doc.Documento.DatosTransaccion.NumeroDocumentoFiscal,
				},
			})
			if emailErr != nil {
				config.LogError(logger, "factura/handlers.go", "SubmitHandler", "enviar-cafe-email", session.Client.Email, emailErr)
				response["emailError"] = emailErr.Error()
			} else {
				response["emailed"] = true
			}
		}

		c.JSON(http.StatusOK, response)
	}
}

func refreshPendingInvoices(ctx context.Context, session *Session) {
	src, err := activeSource()
	if err != nil {
		return
	}
	invoices, err := src.Invoices(ctx)
	if err != nil {
		// Refresh is best-effort; the stale list is still usable.
		config.LogWarn(config.GetLogger(), "factura/handlers.go", "refreshPendingInvoices", err.Error())
		return
	}
	pending := make([]models.Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if inv.Pending() {
			pending = append(pending, inv)
		}
	}
	session.Invoices = pending
}

func PdfHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := sessionFromContext(c)
		if !ok {
			return
		}
		if len(session.LastPDF) == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "no receipt available"})
			return
		}
		c.Data(http.StatusOK, "application/pdf", session.LastPDF)
	}
}

type emailRequest struct {
	To       string `json:"to" binding:"required"`
	Cc       string `json:"cc"`
	Subject  string `json:"subject"`
	BodyHTML string `json:"bodyHtml"`
}

func EmailHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := sessionFromContext(c)
		if !ok {
			return
		}
		var req emailRequest
		if !bindRequest(c, &req) {
			return
		}
		if !utils.IsValidEmail(req.To) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipient email"})
			return
		}

		operator, _ := utils.GetUsernameFromContext(c.Request.Context())
		if operator == "" {
			operator = session.Username
		}

		settings := config.GetFiscalSettings()
		err := activeFiscal().EnviarCafeEmail(c.Request.Context(), fiscal.EmailRequest{
			To:       req.To,
			Cc:       req.Cc,
			Subject:  req.Subject,
			BodyHTML: req.BodyHTML,
			Meta: map[string]string{
				"emitter":  settings.EmitterName,
				"operator": operator,
			},
		})
		if err != nil {
			config.LogError(config.GetLogger(), "factura/handlers.go", "EmailHandler", "enviar-cafe-email", req.To, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// DiagnosticsHandler exposes the last line-resolution report, showing which
// predicate matched each candidate line. Gated behind FE_DIAGNOSTICS.
func DiagnosticsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !config.DiagnosticsEnabled() {
			c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
			return
		}
		session, ok := sessionFromContext(c)
		if !ok {
			return
		}
		if session.LastReport == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no resolution report yet"})
			return
		}
		c.JSON(http.StatusOK, session.LastReport)
	}
}
