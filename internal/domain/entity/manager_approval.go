package entity

import "time"

// Acciones de un gerente en la cadena de escalamiento.
const (
	ManagerActionApprove = "approve"
	ManagerActionReject  = "reject"
)

// ManagerApproval evento inmutable de la cadena de firmas. Solo se agrega, nunca se edita.
type ManagerApproval struct {
	ID           string
	Level        int // 1-indexado
	ApproverID   string
	ApproverRole string
	Action       string // approve | reject
	Remarks      string
	StageID      string
	CreatedAt    time.Time
}

// StageHistoryEntry deja constancia de la etapa al momento de la transición.
// Guarda código y nombre para que editar la etapa no reescriba la historia.
type StageHistoryEntry struct {
	ID            string
	FromStageID   string
	FromStageCode string
	ToStageID     string
	ToStageCode   string
	ToStageName   string
	Action        Action
	Auto          bool
	ActorID       string
	CreatedAt     time.Time
}
