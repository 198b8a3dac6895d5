package receiving

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/farmadist-api/internal/domain/entity"
)

// Variantes de nombre aceptadas por campo, en orden de preferencia.
var (
	productIDKeys   = []string{"productId", "product_id", "productID"}
	productNameKeys = []string{"productName", "name", "product_name"}
	batchKeys       = []string{"batchNumber", "batch", "lot", "batch_number"}
	expiryKeys      = []string{"expiryDate", "expiry", "expirationDate", "expiry_date"}
	qtyKeys         = []string{"acceptedQty", "receivedQty", "quantity", "passedQty", "received_qty"}
	focKeys         = []string{"focQty", "foc", "freeQty", "foc_qty"}
)

func decodeLine(m map[string]any) (entity.UpstreamLine, error) {
	var line entity.UpstreamLine
	line.ProductID = str(m, productIDKeys...)
	if line.ProductID == "" {
		if p, ok := m["product"].(map[string]any); ok {
			line.ProductID = str(p, "id", "_id")
			line.ProductName = str(p, "name")
		}
	}
	if line.ProductID == "" {
		return line, fmt.Errorf("línea sin producto")
	}
	if name := str(m, productNameKeys...); name != "" {
		line.ProductName = name
	}
	line.BatchNumber = str(m, batchKeys...)

	if s := str(m, expiryKeys...); s != "" {
		t, err := parseDate(s)
		if err != nil {
			return line, fmt.Errorf("fecha de vencimiento inválida %q", s)
		}
		line.ExpiryDate = &t
	}

	qty, err := dec(m, qtyKeys...)
	if err != nil {
		return line, err
	}
	if qty.IsNegative() {
		return line, fmt.Errorf("cantidad negativa")
	}
	line.PassedQty = qty
	if line.FocQty, err = dec(m, focKeys...); err != nil {
		return line, err
	}
	return line, nil
}

func first(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func str(m map[string]any, keys ...string) string {
	switch v := first(m, keys...).(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	}
	return ""
}

// dec acepta números JSON o strings numéricos; ausente = 0.
func dec(m map[string]any, keys ...string) (decimal.Decimal, error) {
	switch v := first(m, keys...).(type) {
	case nil:
		return decimal.Zero, nil
	case json.Number:
		return decimal.NewFromString(v.String())
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, fmt.Errorf("cantidad inválida %q", v)
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	default:
		return decimal.Zero, fmt.Errorf("cantidad con tipo inesperado %T", v)
	}
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("formato de fecha no soportado")
}
