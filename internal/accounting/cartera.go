package accounting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"

	"atmricky/internal/money"
)

type Cliente struct {
	ID      int64  `json:"id"`
	Nombre  string `json:"nombre"`
	Celular string `json:"celular"`
}

// Invoice is a client's factura in the cartera module.
type Invoice struct {
	ID             int64        `json:"id"`
	OP             string       `json:"op"`
	Estado         string       `json:"estado"`
	Observaciones  string       `json:"observaciones"`
	ValorTotal     money.Amount `json:"valor_total"`
	ValorAbonado   money.Amount `json:"valor_abonado"`
	ValorPendiente money.Amount `json:"valor_pendiente"`
	Cliente        *Cliente     `json:"cliente,omitempty"`
}

// Support is the stored abono support image, as the abono payload references it.
type Support struct {
	Nombre string `json:"nombre"`
	Path   string `json:"path"`
	URL    string `json:"url"`
}

var (
	ErrClienteRequerido = errors.New("Cliente requerido")
	ErrFacturaRequerida = errors.New("Factura requerida")
	ErrArchivoRequerido = errors.New("Archivo requerido")
)

// handleText mirrors the cartera error contract: non-2xx bodies are the message.
func handleText(status int, body []byte, fallback string) error {
	if status >= 200 && status < 300 {
		return nil
	}
	msg := string(bytes.TrimSpace(body))
	if msg == "" {
		msg = fallback
	}
	return errors.New(msg)
}

func (c *Client) ListClientInvoices(ctx context.Context, clientID int64) ([]Invoice, error) {
	if clientID == 0 {
		return nil, ErrClienteRequerido
	}
	path := "/api/cartera/clientes/" + url.PathEscape(strconv.FormatInt(clientID, 10)) + "/facturas"
	resp, err := c.api.Do(ctx, http.MethodGet, path, nil, http.Header{"Cache-Control": {"no-cache"}})
	if err != nil {
		return nil, err
	}
	if err := handleText(resp.Status, resp.Body, "No se pudieron cargar las facturas"); err != nil {
		return nil, err
	}
	var out []Invoice
	if err := json.Unmarshal(resp.Body, &out); err != nil || out == nil {
		return []Invoice{}, nil
	}
	return out, nil
}

// Pending keeps invoices with something left to pay.
func Pending(invoices []Invoice) []Invoice {
	out := make([]Invoice, 0, len(invoices))
	for _, inv := range invoices {
		if inv.ValorPendiente > 0 {
			out = append(out, inv)
		}
	}
	return out
}

func (c *Client) DeleteInvoice(ctx context.Context, invoiceID int64) error {
	if invoiceID == 0 {
		return ErrFacturaRequerida
	}
	resp, err := c.api.Do(ctx, http.MethodDelete, "/api/cartera/facturas/"+strconv.FormatInt(invoiceID, 10), nil, nil)
	if err != nil {
		return err
	}
	return handleText(resp.Status, resp.Body, "No se pudo eliminar la factura")
}

// UploadSupport posts the image as multipart field "file" and returns the
// reference to embed in the abono.
func (c *Client) UploadSupport(ctx context.Context, filename string, r io.Reader) (*Support, error) {
	if r == nil || filename == "" {
		return nil, ErrArchivoRequerido
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("accounting: multipart: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("accounting: read support image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("accounting: multipart: %w", err)
	}

	resp, err := c.api.Do(ctx, http.MethodPost, "/api/cartera/abonos/soporte", buf.Bytes(), http.Header{"Content-Type": {mw.FormDataContentType()}})
	if err != nil {
		return nil, err
	}
	if err := handleText(resp.Status, resp.Body, "No se pudo subir la imagen"); err != nil {
		return nil, err
	}
	var uploaded struct {
		URL     string `json:"url"`
		FullURL string `json:"fullUrl"`
	}
	if err := json.Unmarshal(resp.Body, &uploaded); err != nil {
		return nil, fmt.Errorf("accounting: decode upload: %w", err)
	}
	path := uploaded.URL
	if path == "" {
		path = uploaded.FullURL
	}
	return &Support{Nombre: filepath.Base(filename), Path: path, URL: uploaded.FullURL}, nil
}
