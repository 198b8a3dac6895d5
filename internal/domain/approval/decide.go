package approval

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/farmadist-api/internal/domain"
	"github.com/jhoicas/farmadist-api/internal/domain/entity"
)

// DecisionInput decisión sobre un ítem.
type DecisionInput struct {
	Decision   entity.Decision
	DecidedQty decimal.Decimal
	Remarks    string
	Checks     *entity.ItemChecks
}

// Decide aplica una decisión a un ítem del registro.
//
// Regla de cantidades: si la decisión es rejected, DecidedQty se fuerza a 0 sin importar lo
// que envíe el llamador (reemplazo explícito, no recorte al máximo). Para approved o partial
// se exige 0 ≤ DecidedQty ≤ ExpectedQty; fuera de rango devuelve ErrQuantityOutOfRange y no
// se aplica nada. Cada decisión sobrescribe la anterior y sella usuario y hora.
func Decide(rec *entity.ApprovalRecord, env Env, actor entity.Actor, itemID string, in DecisionInput) error {
	if err := guardEditable(rec); err != nil {
		return err
	}
	if err := guardStageAction(rec, env, decideAction(rec.Type)); err != nil {
		return err
	}
	if err := guardPermission(rec, env, actor, decidePermission(rec.Type)); err != nil {
		return err
	}
	item := rec.Item(itemID)
	if item == nil {
		return domain.NewError(domain.ErrInvalidItemReference, "", map[string]any{
			"record_id": rec.ID, "item_ids": []string{itemID},
		})
	}
	qty, err := validateDecision(item, in.Decision, in.DecidedQty)
	if err != nil {
		return err
	}
	stamp(item, env, actor, in.Decision, qty, in.Remarks)
	if in.Checks != nil {
		c := *in.Checks
		item.Checks = &c
	}
	touch(rec, env)
	fireAutoTransitions(rec, env, actor)
	return nil
}

// validateDecision devuelve la cantidad efectiva a registrar.
func validateDecision(item *entity.LineItemDecision, d entity.Decision, qty decimal.Decimal) (decimal.Decimal, error) {
	switch d {
	case entity.DecisionRejected:
		return decimal.Zero, nil
	case entity.DecisionApproved, entity.DecisionPartial:
		if qty.IsNegative() || qty.GreaterThan(item.ExpectedQty) {
			return decimal.Zero, domain.NewError(domain.ErrQuantityOutOfRange, "", map[string]any{
				"item_id":      item.ID,
				"decided_qty":  qty.String(),
				"expected_qty": item.ExpectedQty.String(),
			})
		}
		return qty, nil
	default:
		return decimal.Zero, domain.NewError(domain.ErrInvalidInput, "decisión no válida", map[string]any{
			"item_id": item.ID, "decision": string(d),
		})
	}
}

func stamp(item *entity.LineItemDecision, env Env, actor entity.Actor, d entity.Decision, qty decimal.Decimal, remarks string) {
	now := env.Now
	item.Decision = d
	item.DecidedQty = qty
	item.Remarks = remarks
	item.DecidedBy = actor.ID
	item.DecidedAt = &now
}
