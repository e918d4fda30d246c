package fiscal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/panafact/fepa_backend/config"
)

// ErrPDFUnavailable is the soft-failure case: the document was accepted but
// the receipt did not render. Callers must report it separately from a
// submission failure because the document is already committed downstream.
var ErrPDFUnavailable = errors.New("document accepted but pdf rendering failed")

// Client talks to the proxy that forwards documents to the fiscal-printer
// web service. Reads get 30s, writes 60s, no retries; a failure is surfaced
// once and the operator decides.
type Client struct {
	baseURL string
	read    *http.Client
	write   *http.Client
}

func NewClient(settings config.FiscalSettings) *Client {
	return &Client{
		baseURL: strings.TrimRight(settings.BaseURL, "/"),
		read:    &http.Client{Timeout: 30 * time.Second},
		write:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) post(ctx context.Context, httpClient *http.Client, path string, payload any) (*http.Response, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	return resp, raw, nil
}

// EnviarFactura submits the assembled document. On a non-success status the
// raw response body is part of the error so the operator can see what the
// printer service rejected.
func (c *Client) EnviarFactura(ctx context.Context, doc *Document) ([]byte, error) {
	resp, raw, err := c.post(ctx, c.write, "/enviar-factura", doc)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return raw, fmt.Errorf("fiscal backend error %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return raw, nil
}

// PDFRequest identifies an already-submitted document for receipt download.
// Field set matches the printer service's DescargaPDF operation.
type PDFRequest struct {
	CodigoSucursalEmisor   string `json:"codigoSucursalEmisor"`
	NumeroDocumentoFiscal  string `json:"numeroDocumentoFiscal"`
	PuntoFacturacionFiscal string `json:"puntoFacturacionFiscal"`
	TipoDocumento          string `json:"tipoDocumento"`
	TipoEmision            string `json:"tipoEmision"`
	SerialDispositivo      string `json:"serialDispositivo"`
}

// DescargarPDF fetches the rendered CAFE. Success needs both an HTTP success
// status and an application/pdf content type; anything else is
// ErrPDFUnavailable, never a hard error.
func (c *Client) DescargarPDF(ctx context.Context, req PDFRequest) ([]byte, error) {
	resp, raw, err := c.post(ctx, c.read, "/descargar-pdf", req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, ErrPDFUnavailable
	}
	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "application/pdf") {
		return nil, ErrPDFUnavailable
	}
	return raw, nil
}

// EmailRequest asks the proxy to mail the receipt.
type EmailRequest struct {
	To       string            `json:"to"`
	Cc       string            `json:"cc"`
	Subject  string            `json:"subject"`
	BodyHTML string            `json:"body_html"`
	Meta     map[string]string `json:"meta"`
}

func (c *Client) EnviarCafeEmail(ctx context.Context, req EmailRequest) error {
	resp, raw, err := c.post(ctx, c.write, "/enviar-cafe-email", req)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("email send failed %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return nil
}
