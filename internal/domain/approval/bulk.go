package approval

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/farmadist-api/internal/domain"
	"github.com/jhoicas/farmadist-api/internal/domain/entity"
)

// ApplyBulk aplica la misma decisión a un subconjunto de ítems del registro.
// Solo admite approved (con DecidedQty = ExpectedQty) y rejected (con 0): las cantidades
// parciales solo se registran ítem por ítem. Si algún ID no pertenece al registro devuelve
// ErrInvalidItemReference con todos los IDs desconocidos y no aplica nada.
func ApplyBulk(rec *entity.ApprovalRecord, env Env, actor entity.Actor, itemIDs []string, decision entity.Decision, remarks string) error {
	if decision != entity.DecisionApproved && decision != entity.DecisionRejected {
		return domain.NewError(domain.ErrInvalidInput, "la acción masiva solo admite approved o rejected",
			map[string]any{"decision": string(decision)})
	}
	if len(itemIDs) == 0 {
		return domain.NewError(domain.ErrInvalidInput, "no se seleccionaron ítems", nil)
	}
	if err := guardEditable(rec); err != nil {
		return err
	}
	if err := guardStageAction(rec, env, decideAction(rec.Type)); err != nil {
		return err
	}
	if err := guardPermission(rec, env, actor, decidePermission(rec.Type)); err != nil {
		return err
	}

	targets := make([]*entity.LineItemDecision, 0, len(itemIDs))
	seen := make(map[string]bool, len(itemIDs))
	var unknown []string
	for _, id := range itemIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		item := rec.Item(id)
		if item == nil {
			unknown = append(unknown, id)
			continue
		}
		targets = append(targets, item)
	}
	if len(unknown) > 0 {
		return domain.NewError(domain.ErrInvalidItemReference, "", map[string]any{
			"record_id": rec.ID, "item_ids": unknown,
		})
	}

	for _, item := range targets {
		qty := decimal.Zero
		if decision == entity.DecisionApproved {
			qty = item.ExpectedQty
		}
		stamp(item, env, actor, decision, qty, remarks)
	}
	touch(rec, env)
	fireAutoTransitions(rec, env, actor)
	return nil
}
