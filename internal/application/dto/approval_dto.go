package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateQualityControlRequest crea un registro de QC desde una recepción de factura.
type CreateQualityControlRequest struct {
	ReceivingID    string `json:"receiving_id" validate:"required"`
	Priority       string `json:"priority"`
	AssignedTo     string `json:"assigned_to"`
	RequiredLevels *int   `json:"required_levels"`
	Notes          string `json:"notes"`
}

// CreateWarehouseApprovalRequest crea la aprobación de bodega desde un QC completado.
type CreateWarehouseApprovalRequest struct {
	QualityControlID string `json:"quality_control_id" validate:"required"`
	Priority         string `json:"priority"`
	AssignedTo       string `json:"assigned_to"`
	RequiredLevels   *int   `json:"required_levels"`
	Notes            string `json:"notes"`
}

// ItemChecksDTO verificaciones del ítem.
type ItemChecksDTO struct {
	PhysicalCondition  string `json:"physical_condition,omitempty"`
	DocumentationMatch *bool  `json:"documentation_match,omitempty"`
	StorageLocation    string `json:"storage_location,omitempty"`
	Temperature        string `json:"temperature,omitempty"`
}

// DecideItemRequest decisión sobre un ítem. En rechazo DecidedQty se ignora (queda en 0).
type DecideItemRequest struct {
	Decision   string          `json:"decision" validate:"required"`
	DecidedQty decimal.Decimal `json:"decided_qty"`
	Remarks    string          `json:"remarks"`
	Checks     *ItemChecksDTO  `json:"checks"`
}

// BulkActionRequest aplica la misma decisión a varios ítems (todo o nada).
type BulkActionRequest struct {
	ItemIDs  []string `json:"item_ids" validate:"required,min=1"`
	Decision string   `json:"decision" validate:"required,oneof=approved rejected"`
	Remarks  string   `json:"remarks"`
}

// ManagerActionRequest firma de un gerente en la cadena de escalamiento.
type ManagerActionRequest struct {
	Level   int    `json:"level" validate:"required,min=1"`
	Action  string `json:"action" validate:"required,oneof=approve reject"`
	Remarks string `json:"remarks"`
}

// ListRecordsRequest filtros del listado.
type ListRecordsRequest struct {
	Status     string `query:"status"`
	AssignedTo string `query:"assigned_to"`
	PageRequest
}

// LineItemResponse ítem con su decisión.
type LineItemResponse struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	BatchNumber string          `json:"batch_number"`
	ExpiryDate  *time.Time      `json:"expiry_date,omitempty"`
	ExpectedQty decimal.Decimal `json:"expected_qty"`
	FocQty      decimal.Decimal `json:"foc_qty"`
	DecidedQty  decimal.Decimal `json:"decided_qty"`
	Decision    string          `json:"decision"`
	Remarks     string          `json:"remarks,omitempty"`
	DecidedBy   string          `json:"decided_by,omitempty"`
	DecidedAt   *time.Time      `json:"decided_at,omitempty"`
	Checks      *ItemChecksDTO  `json:"checks,omitempty"`
}

// ManagerApprovalResponse entrada de la cadena de firmas.
type ManagerApprovalResponse struct {
	Level        int       `json:"level"`
	ApproverID   string    `json:"approver_id"`
	ApproverRole string    `json:"approver_role"`
	Action       string    `json:"action"`
	Remarks      string    `json:"remarks,omitempty"`
	StageID      string    `json:"stage_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// StageHistoryResponse transición registrada.
type StageHistoryResponse struct {
	FromStageID   string    `json:"from_stage_id,omitempty"`
	FromStageCode string    `json:"from_stage_code,omitempty"`
	ToStageID     string    `json:"to_stage_id"`
	ToStageCode   string    `json:"to_stage_code"`
	ToStageName   string    `json:"to_stage_name"`
	Action        string    `json:"action"`
	Auto          bool      `json:"auto"`
	ActorID       string    `json:"actor_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// ApprovalRecordResponse registro completo.
type ApprovalRecordResponse struct {
	ID                string                    `json:"id"`
	Number            string                    `json:"number"`
	Type              string                    `json:"type"`
	UpstreamType      string                    `json:"upstream_type"`
	UpstreamID        string                    `json:"upstream_id"`
	Priority          string                    `json:"priority"`
	Status            string                    `json:"status"`
	StageID           string                    `json:"stage_id"`
	StageCode         string                    `json:"stage_code,omitempty"`
	AssignedTo        string                    `json:"assigned_to,omitempty"`
	SubmittedBy       string                    `json:"submitted_by,omitempty"`
	SubmittedAt       *time.Time                `json:"submitted_at,omitempty"`
	RequiredLevels    int                       `json:"required_levels"`
	RejectionReason   string                    `json:"rejection_reason,omitempty"`
	FinalApprovalDate *time.Time                `json:"final_approval_date,omitempty"`
	Notes             string                    `json:"notes,omitempty"`
	TotalItems        int                       `json:"total_items"`
	ApprovedItems     int                       `json:"approved_items"`
	RejectedItems     int                       `json:"rejected_items"`
	PendingItems      int                       `json:"pending_items"`
	Items             []LineItemResponse        `json:"items"`
	ManagerApprovals  []ManagerApprovalResponse `json:"manager_approvals"`
	StageHistory      []StageHistoryResponse    `json:"stage_history"`
	Version           int64                     `json:"version"`
	CreatedBy         string                    `json:"created_by"`
	CreatedAt         time.Time                 `json:"created_at"`
	UpdatedAt         time.Time                 `json:"updated_at"`
}

// RecordSummaryResponse fila del listado (sin ítems).
type RecordSummaryResponse struct {
	ID            string    `json:"id"`
	Number        string    `json:"number"`
	Type          string    `json:"type"`
	UpstreamID    string    `json:"upstream_id"`
	Priority      string    `json:"priority"`
	Status        string    `json:"status"`
	StageID       string    `json:"stage_id"`
	AssignedTo    string    `json:"assigned_to,omitempty"`
	TotalItems    int       `json:"total_items"`
	ApprovedItems int       `json:"approved_items"`
	RejectedItems int       `json:"rejected_items"`
	PendingItems  int       `json:"pending_items"`
	CreatedAt     time.Time `json:"created_at"`
}

// RecordListResponse página de registros.
type RecordListResponse struct {
	Items []RecordSummaryResponse `json:"items"`
	Page  PageResponse            `json:"page"`
}

// AutoTransitionResponse transición automática que dispararía el estado actual.
type AutoTransitionResponse struct {
	TransitionID string `json:"transition_id"`
	ToStageID    string `json:"to_stage_id"`
	ToStageCode  string `json:"to_stage_code"`
}

// AvailableActionsResponse acciones que el actor puede ejecutar ahora sobre el registro.
type AvailableActionsResponse struct {
	RecordID        string                   `json:"record_id"`
	StageID         string                   `json:"stage_id"`
	Actions         []string                 `json:"actions"`
	AutoTransitions []AutoTransitionResponse `json:"auto_transitions"`
}
