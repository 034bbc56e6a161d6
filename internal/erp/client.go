package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/cobranza-service/internal/config"
)

// Alumno is a student record as exposed by the backend of record.
type Alumno struct {
	ID       string `json:"id"`
	Nombre   string `json:"nombre"`
	Apellido string `json:"apellido"`
	Grado    string `json:"grado"`
}

// Responsable is the billing-responsible adult tied to a channel identity.
type Responsable struct {
	ID      string   `json:"id"`
	Nombre  string   `json:"nombre"`
	Alumnos []Alumno `json:"alumnos"`
}

// Cuota is one installment on a student's account.
type Cuota struct {
	ID               string  `json:"id"`
	NumeroCuota      int     `json:"numero_cuota"`
	Monto            float64 `json:"monto"`
	FechaVencimiento string  `json:"fecha_vencimiento"`
	LinkPago         string  `json:"link_pago"`
	Estado           string  `json:"estado"`
}

// Client reads account data from and records payment confirmations against
// the backend of record. Payment processing correctness is delegated there.
type Client interface {
	GetResponsableByIdentity(ctx context.Context, identity string) (*Responsable, error)
	GetAlumnoCuotas(ctx context.Context, alumnoID, estado string) ([]Cuota, error)
	GetCuota(ctx context.Context, cuotaID string) (*Cuota, error)
	ConfirmarPago(ctx context.Context, cuotaID, identity string) error
}

// ErrNotFound is returned when the backend has no matching record.
var ErrNotFound = errors.New("erp: not found")

type httpClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPClient builds a Client against the configured ERP service.
func NewHTTPClient(cfg config.ERPConfig, logger *zap.Logger) Client {
	return &httpClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		logger:     logger,
	}
}

func (c *httpClient) GetResponsableByIdentity(ctx context.Context, identity string) (*Responsable, error) {
	var out Responsable
	path := "/api/responsables/by-whatsapp/" + url.PathEscape(identity)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) GetAlumnoCuotas(ctx context.Context, alumnoID, estado string) ([]Cuota, error) {
	path := "/api/alumnos/" + url.PathEscape(alumnoID) + "/cuotas"
	if estado != "" {
		path += "?estado=" + url.QueryEscape(estado)
	}
	var out []Cuota
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *httpClient) GetCuota(ctx context.Context, cuotaID string) (*Cuota, error) {
	var out Cuota
	if err := c.doJSON(ctx, http.MethodGet, "/api/cuotas/"+url.PathEscape(cuotaID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) ConfirmarPago(ctx context.Context, cuotaID, identity string) error {
	payload := map[string]string{
		"cuota_id":  cuotaID,
		"whatsapp":  identity,
		"estado":    "pendiente_validacion",
		"origen":    "asistente",
		"contenido": "responsable confirmó haber realizado el pago",
	}
	return c.doJSON(ctx, http.MethodPost, "/api/pagos/confirmaciones", payload, nil)
}

func (c *httpClient) doJSON(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("erp: encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("erp: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("erp: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("erp request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return fmt.Errorf("erp: %s %s: status %d: %s", method, path, resp.StatusCode, string(snippet))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("erp: decode response: %w", err)
	}
	return nil
}
