// Package receiving lee recepciones de factura desde el servicio REST de recepción y las
// traduce al documento de origen canónico. Es el único lugar que conoce las variantes
// de nombres de campos del payload.
package receiving

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/farmadist-api/internal/domain"
	"github.com/jhoicas/farmadist-api/internal/domain/entity"
)

// Client cliente HTTP del servicio de recepción (fiber Agent).
type Client struct {
	baseURL string
	timeout time.Duration
	token   string
}

// NewClient construye el cliente. token, si no es vacío, va como Bearer.
func NewClient(baseURL string, timeout time.Duration, token string) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), timeout: timeout, token: token}
}

// GetReceiving obtiene la recepción. ErrNotFound si el servicio responde 404.
func (c *Client) GetReceiving(ctx context.Context, id string) (*entity.UpstreamDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timeout := c.timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}

	agent := fiber.Get(c.baseURL + "/receivings/" + url.PathEscape(id))
	agent.Timeout(timeout)
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if c.token != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+c.token)
	}
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("receiving request: %w", errs[0])
	}
	switch {
	case code == fiber.StatusNotFound:
		return nil, domain.NewError(domain.ErrNotFound, "recepción no encontrada", map[string]any{"receiving_id": id})
	case code < 200 || code > 299:
		return nil, fmt.Errorf("receiving request: status %d", code)
	}

	doc, err := Decode(body)
	if err != nil {
		return nil, err
	}
	if doc.ID == "" {
		doc.ID = id
	}
	return doc, nil
}

// Decode traduce el JSON de una recepción al documento canónico.
func Decode(body []byte) (*entity.UpstreamDocument, error) {
	jd := json.NewDecoder(bytes.NewReader(body))
	jd.UseNumber()
	var raw map[string]any
	if err := jd.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode receiving: %w", err)
	}
	if inner, ok := raw["data"].(map[string]any); ok {
		raw = inner
	}

	doc := &entity.UpstreamDocument{
		ID:     str(raw, "id", "_id", "receivingId"),
		Type:   entity.DocumentTypeInvoiceReceiving,
		Number: str(raw, "number", "receivingNumber", "invoiceNumber"),
		Status: str(raw, "status"),
	}
	lines, _ := first(raw, "items", "lines", "details").([]any)
	for i, l := range lines {
		m, ok := l.(map[string]any)
		if !ok {
			return nil, domain.NewError(domain.ErrInvalidInput, "línea de recepción no es un objeto", map[string]any{"line": i})
		}
		line, err := decodeLine(m)
		if err != nil {
			return nil, domain.NewError(domain.ErrInvalidInput, err.Error(), map[string]any{"line": i})
		}
		doc.Lines = append(doc.Lines, line)
	}
	return doc, nil
}
