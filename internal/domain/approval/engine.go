// Package approval implementa la máquina de estados del registro de aprobación (QC y
// aprobación de bodega): decisiones por ítem, acciones masivas, envío y cadena de
// escalamiento gerencial. Las funciones son puras: operan sobre el registro en memoria
// con el grafo y los grants ya cargados, sin E/S. Cada operación valida todo antes de
// mutar, así un error nunca deja el registro a medio aplicar.
package approval

import (
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/farmadist-api/internal/domain"
	"github.com/jhoicas/farmadist-api/internal/domain/entity"
	"github.com/jhoicas/farmadist-api/internal/domain/permission"
	"github.com/jhoicas/farmadist-api/internal/domain/workflow"
)

// Env contexto de una operación: grafo vigente, grants del actor y la hora de la llamada.
type Env struct {
	Graph  *workflow.Graph
	Grants []entity.StagePermission
	Now    time.Time
	NewID  func() string
}

func (e Env) can(actor entity.Actor, stageID string, perm entity.Permission) bool {
	return permission.Evaluate(actor, stageID, perm, e.Grants, e.Now)
}

func (e Env) id() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return uuid.New().String()
}

// decideAction acción de etapa que representa decidir ítems según el tipo de documento.
func decideAction(recordType string) entity.Action {
	if recordType == entity.DocumentTypeQualityControl {
		return entity.ActionQCCheck
	}
	return entity.ActionEdit
}

// decidePermission permiso requerido para decidir ítems según el tipo de documento.
func decidePermission(recordType string) entity.Permission {
	if recordType == entity.DocumentTypeQualityControl {
		return entity.PermissionQCCheck
	}
	return entity.PermissionEdit
}

// actionPermission permiso que habilita cada acción de etapa. El rechazo gerencial
// se rige por el mismo permiso que la aprobación.
func actionPermission(a entity.Action) entity.Permission {
	switch a {
	case entity.ActionEdit:
		return entity.PermissionEdit
	case entity.ActionQCCheck:
		return entity.PermissionQCCheck
	case entity.ActionSubmit:
		return entity.PermissionSubmit
	case entity.ActionApprove, entity.ActionReject:
		return entity.PermissionApprove
	}
	return entity.Permission(a)
}

func recordParams(rec *entity.ApprovalRecord) map[string]any {
	return map[string]any{"record_id": rec.ID, "status": rec.Status, "stage_id": rec.StageID}
}

// guardEditable rechaza cambios de ítems en registros enviados o terminados.
func guardEditable(rec *entity.ApprovalRecord) error {
	if rec.IsTerminal() {
		return domain.NewError(domain.ErrInvalidTransition, "el registro está cerrado", recordParams(rec))
	}
	if rec.Status == entity.RecordStatusSubmitted {
		return domain.NewError(domain.ErrInvalidTransition, "el registro ya fue enviado", recordParams(rec))
	}
	return nil
}

// guardStageAction exige que la etapa actual permita la acción.
func guardStageAction(rec *entity.ApprovalRecord, env Env, a entity.Action) error {
	stage, ok := env.Graph.Stage(rec.StageID)
	if !ok || !stage.IsActive || !stage.Allows(a) {
		p := recordParams(rec)
		p["action"] = string(a)
		return domain.NewError(domain.ErrInvalidTransition, "la etapa actual no permite la acción", p)
	}
	return nil
}

func guardPermission(rec *entity.ApprovalRecord, env Env, actor entity.Actor, perm entity.Permission) error {
	if env.can(actor, rec.StageID, perm) {
		return nil
	}
	return domain.NewError(domain.ErrPermissionDenied, "", map[string]any{
		"record_id":  rec.ID,
		"stage_id":   rec.StageID,
		"user_id":    actor.ID,
		"permission": string(perm),
	})
}

// moveStage aplica una transición resuelta y la deja en el historial con la instantánea de etapas.
func moveStage(rec *entity.ApprovalRecord, env Env, res *workflow.Resolution, actor entity.Actor, auto bool) {
	entry := entity.StageHistoryEntry{
		ID:          env.id(),
		FromStageID: rec.StageID,
		ToStageID:   res.To.ID,
		ToStageCode: res.To.Code,
		ToStageName: res.To.Name,
		Action:      res.Transition.Action,
		Auto:        auto,
		ActorID:     actor.ID,
		CreatedAt:   env.Now,
	}
	if res.From != nil {
		entry.FromStageCode = res.From.Code
	}
	rec.StageHistory = append(rec.StageHistory, entry)
	rec.StageID = res.To.ID
}

// fireAutoTransitions dispara, dentro de la misma operación, las transiciones automáticas
// que quedaron habilitadas. Solo mueven la etapa, nunca el estado. Acotado por la cantidad
// de etapas para no ciclar.
func fireAutoTransitions(rec *entity.ApprovalRecord, env Env, actor entity.Actor) {
	if rec.IsTerminal() {
		return
	}
	for hops := len(env.Graph.Stages()); hops > 0; hops-- {
		cands := env.Graph.AutoCandidates(rec.StageID, rec.Snapshot())
		if len(cands) == 0 || cands[0].To.ID == rec.StageID {
			return
		}
		res := cands[0]
		moveStage(rec, env, &res, actor, true)
	}
}

// touch recalcula contadores, deriva pending → in_progress y sella la actualización.
func touch(rec *entity.ApprovalRecord, env Env) {
	rec.Recount()
	if rec.Status == entity.RecordStatusPending && rec.PendingItems < rec.TotalItems {
		rec.Status = entity.RecordStatusInProgress
	}
	rec.UpdatedAt = env.Now
}
