package approval

import (
	"github.com/jhoicas/farmadist-api/internal/domain/entity"
	"github.com/jhoicas/farmadist-api/internal/domain/workflow"
)

// Availability acciones que el actor puede ejecutar ahora sobre el registro.
type Availability struct {
	Actions        []entity.Action
	AutoCandidates []workflow.Resolution
}

// AvailableActions cruza las acciones de la etapa con el estado del registro y los permisos del actor.
// Solo lista acciones con operación: decidir ítems, enviar, aprobar y rechazar. Otras acciones
// que la etapa declare (return, cancel, receive) no se ofrecen.
func AvailableActions(rec *entity.ApprovalRecord, env Env, actor entity.Actor) Availability {
	var out Availability
	if rec.IsTerminal() {
		return out
	}
	stage, ok := env.Graph.Stage(rec.StageID)
	if !ok || !stage.IsActive {
		return out
	}
	editable := rec.Status == entity.RecordStatusPending || rec.Status == entity.RecordStatusInProgress
	for _, a := range stage.AllowedActions {
		switch a {
		case entity.ActionEdit, entity.ActionQCCheck:
			if !editable || a != decideAction(rec.Type) {
				continue
			}
		case entity.ActionSubmit:
			if !editable || rec.PendingItems > 0 {
				continue
			}
		case entity.ActionApprove, entity.ActionReject:
			if rec.Status != entity.RecordStatusSubmitted {
				continue
			}
		default:
			continue
		}
		if env.can(actor, rec.StageID, actionPermission(a)) {
			out.Actions = append(out.Actions, a)
		}
	}
	out.AutoCandidates = env.Graph.AutoCandidates(rec.StageID, rec.Snapshot())
	return out
}
