package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// UpstreamDocument documento de origen (recepción de factura o QC) del que nace un registro.
type UpstreamDocument struct {
	ID     string
	Type   string // invoice_receiving | quality_control
	Number string
	Status string
	Lines  []UpstreamLine
}

// UpstreamLine línea de origen; PassedQty pasa a ser ExpectedQty del nuevo ítem.
type UpstreamLine struct {
	ProductID   string
	ProductName string
	BatchNumber string
	ExpiryDate  *time.Time
	PassedQty   decimal.Decimal
	FocQty      decimal.Decimal
}

// StatusEvent notificación de cambio de estado (envío, aprobación o rechazo).
type StatusEvent struct {
	RecordID   string    `json:"record_id"`
	RecordType string    `json:"record_type"`
	Number     string    `json:"number"`
	Status     string    `json:"status"`
	ActorID    string    `json:"actor_id"`
	Level      int       `json:"level,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
