package entity

import "time"

// Action acción que una etapa del flujo puede permitir.
type Action string

// Acciones configurables por etapa.
const (
	ActionEdit    Action = "edit"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionReturn  Action = "return"
	ActionCancel  Action = "cancel"
	ActionReceive Action = "receive"
	ActionQCCheck Action = "qc_check"
	ActionSubmit  Action = "submit"
)

var validActions = map[Action]bool{
	ActionEdit: true, ActionApprove: true, ActionReject: true, ActionReturn: true,
	ActionCancel: true, ActionReceive: true, ActionQCCheck: true, ActionSubmit: true,
}

// IsValid informa si la acción pertenece al vocabulario conocido.
func (a Action) IsValid() bool { return validActions[a] }

// Tipos de documento que recorren el flujo.
const (
	DocumentTypeQualityControl    = "quality_control"
	DocumentTypeWarehouseApproval = "warehouse_approval"
	DocumentTypeInvoiceReceiving  = "invoice_receiving"
)

// WorkflowStage etapa con nombre dentro del grafo configurable (ej. "QC Pendiente", "Revisión de Bodega").
// NextStages solo puede apuntar a etapas con secuencia mayor; ReturnStages son los caminos
// de retorno/reproceso configurados explícitamente y son la única forma de formar ciclos.
type WorkflowStage struct {
	ID                  string
	Name                string
	Code                string // único
	DocumentType        string // quality_control | warehouse_approval
	Sequence            int
	AllowedActions      []Action
	RequiredPermissions []Permission
	NextStages          []string // IDs de etapa
	ReturnStages        []string // IDs de etapa
	IsActive            bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Allows informa si la etapa permite la acción.
func (s *WorkflowStage) Allows(a Action) bool {
	for _, x := range s.AllowedActions {
		if x == a {
			return true
		}
	}
	return false
}

// Leads informa si toID es una etapa siguiente o de retorno legal desde esta etapa.
func (s *WorkflowStage) Leads(toID string) bool {
	for _, id := range s.NextStages {
		if id == toID {
			return true
		}
	}
	for _, id := range s.ReturnStages {
		if id == toID {
			return true
		}
	}
	return false
}
