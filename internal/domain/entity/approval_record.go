package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados del registro de aprobación.
const (
	RecordStatusPending    = "pending"
	RecordStatusInProgress = "in_progress"
	RecordStatusSubmitted  = "submitted" // pendiente de aprobación gerencial
	RecordStatusApproved   = "approved"  // final de aprobación de bodega
	RecordStatusCompleted  = "completed" // final de QC
	RecordStatusRejected   = "rejected"
)

// Prioridades.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// ValidPriority informa si p es una prioridad conocida.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// ApprovalRecord documento de QC o de aprobación de bodega que agrega decisiones por ítem.
// TotalItems, ApprovedItems, RejectedItems y PendingItems son derivados: Recount los
// recalcula desde Items y debe llamarse después de cualquier cambio en los ítems.
type ApprovalRecord struct {
	ID                string
	Number            string
	Type              string // quality_control | warehouse_approval
	UpstreamType      string
	UpstreamID        string
	Priority          string
	Status            string
	StageID           string
	Items             []LineItemDecision
	AssignedTo        string
	SubmittedBy       string
	SubmittedAt       *time.Time
	ManagerApprovals  []ManagerApproval
	RequiredLevels    int
	RejectionReason   string
	FinalApprovalDate *time.Time
	StageHistory      []StageHistoryEntry
	Notes             string
	Version           int64
	CreatedBy         string
	CreatedAt         time.Time
	UpdatedAt         time.Time

	TotalItems    int
	ApprovedItems int // incluye parciales
	RejectedItems int
	PendingItems  int
}

// Recount recalcula los contadores desde la lista de ítems (nunca incrementa).
func (r *ApprovalRecord) Recount() {
	var approved, rejected, pending int
	for i := range r.Items {
		switch r.Items[i].Decision {
		case DecisionApproved, DecisionPartial:
			approved++
		case DecisionRejected:
			rejected++
		default:
			pending++
		}
	}
	r.TotalItems = len(r.Items)
	r.ApprovedItems = approved
	r.RejectedItems = rejected
	r.PendingItems = pending
}

// IsTerminal informa si el registro ya no admite transiciones.
func (r *ApprovalRecord) IsTerminal() bool {
	switch r.Status {
	case RecordStatusApproved, RecordStatusCompleted, RecordStatusRejected:
		return true
	}
	return false
}

// FinalStatus estado final de aprobación según el tipo de documento.
func (r *ApprovalRecord) FinalStatus() string {
	if r.Type == DocumentTypeQualityControl {
		return RecordStatusCompleted
	}
	return RecordStatusApproved
}

// FinalLevel último nivel de aprobación gerencial. Sin niveles configurados, la primera
// aprobación cierra el registro.
func (r *ApprovalRecord) FinalLevel() int {
	if r.RequiredLevels < 1 {
		return 1
	}
	return r.RequiredLevels
}

// Item devuelve el ítem con ese ID o nil.
func (r *ApprovalRecord) Item(id string) *LineItemDecision {
	for i := range r.Items {
		if r.Items[i].ID == id {
			return &r.Items[i]
		}
	}
	return nil
}

// PendingItemIDs IDs de los ítems aún sin decisión, en orden.
func (r *ApprovalRecord) PendingItemIDs() []string {
	var ids []string
	for i := range r.Items {
		if r.Items[i].Decision == DecisionPending {
			ids = append(ids, r.Items[i].ID)
		}
	}
	return ids
}

// LastManagerApproval devuelve la entrada más reciente de la cadena o nil.
func (r *ApprovalRecord) LastManagerApproval() *ManagerApproval {
	if len(r.ManagerApprovals) == 0 {
		return nil
	}
	return &r.ManagerApprovals[len(r.ManagerApprovals)-1]
}

// Snapshot instantánea clave/valor usada para evaluar condiciones de transición.
func (r *ApprovalRecord) Snapshot() map[string]any {
	approvedQty := decimal.Zero
	expectedQty := decimal.Zero
	for i := range r.Items {
		approvedQty = approvedQty.Add(r.Items[i].DecidedQty)
		expectedQty = expectedQty.Add(r.Items[i].ExpectedQty)
	}
	aq, _ := approvedQty.Float64()
	eq, _ := expectedQty.Float64()
	return map[string]any{
		"id":              r.ID,
		"number":          r.Number,
		"type":            r.Type,
		"status":          r.Status,
		"priority":        r.Priority,
		"stage_id":        r.StageID,
		"assigned_to":     r.AssignedTo,
		"submitted_by":    r.SubmittedBy,
		"total_items":     r.TotalItems,
		"approved_items":  r.ApprovedItems,
		"rejected_items":  r.RejectedItems,
		"pending_items":   r.PendingItems,
		"approved_qty":    aq,
		"expected_qty":    eq,
		"level":           len(r.ManagerApprovals),
		"required_levels": r.FinalLevel(),
		"notes":           r.Notes,
	}
}

// Clone copia profunda; los casos de uso mutan la copia y solo la persisten si todo validó.
func (r *ApprovalRecord) Clone() *ApprovalRecord {
	c := *r
	c.Items = make([]LineItemDecision, len(r.Items))
	for i, it := range r.Items {
		if it.Checks != nil {
			ch := *it.Checks
			it.Checks = &ch
		}
		c.Items[i] = it
	}
	c.ManagerApprovals = append([]ManagerApproval(nil), r.ManagerApprovals...)
	c.StageHistory = append([]StageHistoryEntry(nil), r.StageHistory...)
	return &c
}
