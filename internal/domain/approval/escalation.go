package approval

import (
	"errors"
	"strings"

	"github.com/jhoicas/farmadist-api/internal/domain"
	"github.com/jhoicas/farmadist-api/internal/domain/entity"
	"github.com/jhoicas/farmadist-api/internal/domain/workflow"
)

// ManagerInput acción gerencial sobre un registro enviado.
type ManagerInput struct {
	Level   int
	Action  string // approve | reject
	Remarks string
}

// RecordManagerAction registra una aprobación o un rechazo en la cadena de escalamiento.
//
// Los niveles son estrictamente secuenciales: el nivel pedido debe ser len(ManagerApprovals)+1
// y no superar FinalLevel; en otro caso devuelve ErrOutOfSequenceApproval. Un rechazo en
// cualquier nivel cierra el registro como rejected sin fecha de aprobación final. Solo la
// aprobación del último nivel lo cierra con su estado final y fija FinalApprovalDate.
func RecordManagerAction(rec *entity.ApprovalRecord, env Env, actor entity.Actor, in ManagerInput) error {
	if rec.IsTerminal() {
		return domain.NewError(domain.ErrInvalidTransition, "el registro está cerrado", recordParams(rec))
	}
	if rec.Status != entity.RecordStatusSubmitted {
		return domain.NewError(domain.ErrInvalidTransition, "el registro no ha sido enviado", recordParams(rec))
	}
	if in.Action != entity.ManagerActionApprove && in.Action != entity.ManagerActionReject {
		return domain.NewError(domain.ErrInvalidInput, "acción gerencial no válida", map[string]any{"action": in.Action})
	}
	if err := guardPermission(rec, env, actor, entity.PermissionApprove); err != nil {
		return err
	}
	expected := len(rec.ManagerApprovals) + 1
	final := rec.FinalLevel()
	if in.Level != expected || in.Level > final {
		return domain.NewError(domain.ErrOutOfSequenceApproval, "", map[string]any{
			"record_id":      rec.ID,
			"level":          in.Level,
			"expected_level": expected,
			"final_level":    final,
		})
	}

	snap := rec.Snapshot()
	snap["level"] = in.Level
	snap["manager_action"] = in.Action

	if in.Action == entity.ManagerActionReject {
		remarks := strings.TrimSpace(in.Remarks)
		if remarks == "" {
			return domain.NewError(domain.ErrInvalidInput, "el rechazo requiere motivo", map[string]any{"level": in.Level})
		}
		res, err := env.Graph.ResolveTransition(rec.StageID, entity.ActionReject, snap)
		if err != nil {
			return err
		}
		appendApproval(rec, env, actor, in)
		rec.Status = entity.RecordStatusRejected
		rec.RejectionReason = remarks
		moveStage(rec, env, res, actor, false)
		return nil
	}

	var res *workflow.Resolution
	if in.Level == final {
		r, err := env.Graph.ResolveTransition(rec.StageID, entity.ActionApprove, snap)
		if err != nil {
			return err
		}
		res = r
	} else {
		if err := guardStageAction(rec, env, entity.ActionApprove); err != nil {
			return err
		}
		// Un nivel intermedio puede avanzar de etapa o quedarse en la misma.
		r, err := env.Graph.ResolveTransition(rec.StageID, entity.ActionApprove, snap)
		switch {
		case err == nil:
			res = r
		case errors.Is(err, domain.ErrNoSuchTransition):
		default:
			return err
		}
	}

	appendApproval(rec, env, actor, in)
	if res != nil {
		moveStage(rec, env, res, actor, false)
	}
	if in.Level == final {
		now := env.Now
		rec.Status = rec.FinalStatus()
		rec.FinalApprovalDate = &now
		return nil
	}
	fireAutoTransitions(rec, env, actor)
	return nil
}

func appendApproval(rec *entity.ApprovalRecord, env Env, actor entity.Actor, in ManagerInput) {
	rec.ManagerApprovals = append(rec.ManagerApprovals, entity.ManagerApproval{
		ID:           env.id(),
		Level:        in.Level,
		ApproverID:   actor.ID,
		ApproverRole: actor.Role,
		Action:       in.Action,
		Remarks:      strings.TrimSpace(in.Remarks),
		StageID:      rec.StageID,
		CreatedAt:    env.Now,
	})
	rec.UpdatedAt = env.Now
}
