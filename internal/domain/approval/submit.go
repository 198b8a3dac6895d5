package approval

import (
	"github.com/jhoicas/farmadist-api/internal/domain"
	"github.com/jhoicas/farmadist-api/internal/domain/entity"
)

// Submit envía el registro a la cadena gerencial. Exige que ningún ítem siga pendiente
// (ErrIncompleteDecisions con los IDs faltantes) y que la etapa tenga una transición submit.
func Submit(rec *entity.ApprovalRecord, env Env, actor entity.Actor) error {
	if err := guardEditable(rec); err != nil {
		return err
	}
	if err := guardPermission(rec, env, actor, entity.PermissionSubmit); err != nil {
		return err
	}
	rec.Recount()
	if pending := rec.PendingItemIDs(); len(pending) > 0 {
		return domain.NewError(domain.ErrIncompleteDecisions, "", map[string]any{
			"record_id":        rec.ID,
			"pending_items":    len(pending),
			"pending_item_ids": pending,
		})
	}
	res, err := env.Graph.ResolveTransition(rec.StageID, entity.ActionSubmit, rec.Snapshot())
	if err != nil {
		return err
	}

	now := env.Now
	rec.Status = entity.RecordStatusSubmitted
	rec.SubmittedBy = actor.ID
	rec.SubmittedAt = &now
	rec.UpdatedAt = now
	moveStage(rec, env, res, actor, false)
	fireAutoTransitions(rec, env, actor)
	return nil
}
