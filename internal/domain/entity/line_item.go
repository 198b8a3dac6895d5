package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Decision estado de decisión de un ítem (producto/lote).
type Decision string

const (
	DecisionPending  Decision = "pending"
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
	DecisionPartial  Decision = "partial"
)

// IsValid informa si la decisión pertenece al vocabulario conocido.
func (d Decision) IsValid() bool {
	switch d {
	case DecisionPending, DecisionApproved, DecisionRejected, DecisionPartial:
		return true
	}
	return false
}

// ItemChecks verificaciones estructuradas del ítem. Son insumo de la decisión, nunca la reemplazan.
type ItemChecks struct {
	PhysicalCondition  string `json:"physical_condition,omitempty"` // good | damaged | expired ...
	DocumentationMatch *bool  `json:"documentation_match,omitempty"`
	StorageLocation    string `json:"storage_location,omitempty"`
	Temperature        string `json:"temperature,omitempty"`
}

// LineItemDecision un producto+lote dentro de un registro de QC o de aprobación de bodega.
// ExpectedQty es la cantidad recibida de la etapa anterior (ej. la aprobada en QC).
type LineItemDecision struct {
	ID          string
	ProductID   string
	ProductName string
	BatchNumber string
	ExpiryDate  *time.Time
	ExpectedQty decimal.Decimal
	FocQty      decimal.Decimal // sin cargo, informativo
	DecidedQty  decimal.Decimal
	Decision    Decision
	Remarks     string
	DecidedBy   string
	DecidedAt   *time.Time
	Checks      *ItemChecks
}
