package approval_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/farmadist-api/internal/domain"
	"github.com/jhoicas/farmadist-api/internal/domain/approval"
	"github.com/jhoicas/farmadist-api/internal/domain/entity"
	"github.com/jhoicas/farmadist-api/internal/domain/workflow"
)

var (
	inspector = entity.Actor{ID: "u-cal", Role: entity.RoleCalidad}
	manager   = entity.Actor{ID: "u-ger", Role: entity.RoleGerente}
	seller    = entity.Actor{ID: "u-ven", Role: entity.RoleVendedor}
	now       = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
)

// qcGraph: inspección → revisión gerencial → {cerrado, rechazado}. La aprobación solo
// avanza cuando se alcanza el último nivel requerido.
func qcGraph(t *testing.T) *workflow.Graph {
	t.Helper()
	stages := []entity.WorkflowStage{
		{ID: "s-insp", Code: "qc_inspeccion", Name: "Inspección", DocumentType: entity.DocumentTypeQualityControl, Sequence: 1, IsActive: true,
			AllowedActions: []entity.Action{entity.ActionQCCheck, entity.ActionSubmit}, NextStages: []string{"s-rev"}},
		{ID: "s-rev", Code: "qc_revision", Name: "Revisión gerencial", DocumentType: entity.DocumentTypeQualityControl, Sequence: 2, IsActive: true,
			AllowedActions: []entity.Action{entity.ActionApprove, entity.ActionReject, entity.ActionReturn},
			NextStages:     []string{"s-ok", "s-rej"}, ReturnStages: []string{"s-insp"}},
		{ID: "s-ok", Code: "qc_cerrado", Name: "Cerrado", DocumentType: entity.DocumentTypeQualityControl, Sequence: 3, IsActive: true},
		{ID: "s-rej", Code: "qc_rechazado", Name: "Rechazado", DocumentType: entity.DocumentTypeQualityControl, Sequence: 4, IsActive: true},
	}
	transitions := []entity.WorkflowTransition{
		{ID: "t-sub", FromStageID: "s-insp", ToStageID: "s-rev", Action: entity.ActionSubmit, IsActive: true},
		{ID: "t-ok", FromStageID: "s-rev", ToStageID: "s-ok", Action: entity.ActionApprove,
			Conditions: "level >= required_levels", IsActive: true},
		{ID: "t-rej", FromStageID: "s-rev", ToStageID: "s-rej", Action: entity.ActionReject, IsActive: true},
	}
	g, err := workflow.NewGraph(stages, transitions)
	require.NoError(t, err)
	return g
}

func env(t *testing.T, grants ...entity.StagePermission) approval.Env {
	n := 0
	return approval.Env{
		Graph:  qcGraph(t),
		Grants: grants,
		Now:    now,
		NewID:  func() string { n++; return fmt.Sprintf("id-%d", n) },
	}
}

func qcRecord(levels int) *entity.ApprovalRecord {
	rec := &entity.ApprovalRecord{
		ID:             "qc-1",
		Type:           entity.DocumentTypeQualityControl,
		Priority:       entity.PriorityMedium,
		Status:         entity.RecordStatusPending,
		StageID:        "s-insp",
		RequiredLevels: levels,
	}
	for i, qty := range []int64{100, 40, 12} {
		rec.Items = append(rec.Items, entity.LineItemDecision{
			ID:          fmt.Sprintf("i%d", i+1),
			ProductID:   fmt.Sprintf("p%d", i+1),
			BatchNumber: fmt.Sprintf("L-%03d", i+1),
			ExpectedQty: decimal.NewFromInt(qty),
			DecidedQty:  decimal.Zero,
			Decision:    entity.DecisionPending,
		})
	}
	rec.Recount()
	return rec
}

func assertAggregates(t *testing.T, rec *entity.ApprovalRecord) {
	t.Helper()
	assert.Equal(t, len(rec.Items), rec.TotalItems)
	assert.Equal(t, rec.TotalItems, rec.ApprovedItems+rec.RejectedItems+rec.PendingItems)
}

func approve(qty int64) approval.DecisionInput {
	return approval.DecisionInput{Decision: entity.DecisionApproved, DecidedQty: decimal.NewFromInt(qty)}
}

func TestEscenario_EnvioIncompletoLuegoRechazoGerencial(t *testing.T) {
	e := env(t)
	rec := qcRecord(1)

	err := approval.Submit(rec, e, inspector)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrIncompleteDecisions))
	assert.Equal(t, []string{"i1", "i2", "i3"}, domain.ParamsOf(err)["pending_item_ids"])
	assert.Equal(t, entity.RecordStatusPending, rec.Status)

	require.NoError(t, approval.Decide(rec, e, inspector, "i1", approve(100)))
	require.NoError(t, approval.Decide(rec, e, inspector, "i2", approve(40)))
	require.NoError(t, approval.Decide(rec, e, inspector, "i3", approve(12)))
	require.NoError(t, approval.Submit(rec, e, inspector))
	assert.Equal(t, entity.RecordStatusSubmitted, rec.Status)
	assert.Equal(t, "s-rev", rec.StageID)
	assert.Equal(t, inspector.ID, rec.SubmittedBy)

	err = approval.RecordManagerAction(rec, e, manager, approval.ManagerInput{
		Level: 1, Action: entity.ManagerActionReject, Remarks: "batch mismatch",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.RecordStatusRejected, rec.Status)
	assert.Equal(t, "batch mismatch", rec.RejectionReason)
	assert.Nil(t, rec.FinalApprovalDate, "el rechazo no fija fecha de aprobación final")
	assert.Equal(t, "s-rej", rec.StageID)
	require.Len(t, rec.ManagerApprovals, 1)

	err = approval.RecordManagerAction(rec, e, manager, approval.ManagerInput{Level: 1, Action: entity.ManagerActionApprove})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
	assert.Equal(t, entity.RecordStatusRejected, rec.Status)
	assert.Len(t, rec.ManagerApprovals, 1)
}

func TestEscenario_AprobacionMasivaParcial(t *testing.T) {
	e := env(t)
	rec := qcRecord(1)

	require.NoError(t, approval.ApplyBulk(rec, e, inspector, []string{"i1", "i2"}, entity.DecisionApproved, ""))
	assert.Equal(t, 2, rec.ApprovedItems)
	assert.Equal(t, 1, rec.PendingItems)
	assert.Equal(t, entity.RecordStatusInProgress, rec.Status)
	assert.True(t, rec.Items[0].DecidedQty.Equal(decimal.NewFromInt(100)))
	assert.True(t, rec.Items[1].DecidedQty.Equal(decimal.NewFromInt(40)))
	assertAggregates(t, rec)
}

func TestDecide_RechazoFuerzaCantidadCero(t *testing.T) {
	e := env(t)
	rec := qcRecord(1)

	err := approval.Decide(rec, e, inspector, "i1", approval.DecisionInput{
		Decision: entity.DecisionRejected, DecidedQty: decimal.NewFromInt(50), Remarks: "empaque roto",
	})
	require.NoError(t, err)
	it := rec.Item("i1")
	assert.True(t, it.DecidedQty.IsZero())
	assert.Equal(t, entity.DecisionRejected, it.Decision)
	assert.Equal(t, inspector.ID, it.DecidedBy)
	require.NotNil(t, it.DecidedAt)
	assert.Equal(t, now, *it.DecidedAt)
	assert.Equal(t, 1, rec.RejectedItems)
}

func TestDecide_CantidadFueraDeRangoNoAplicaNada(t *testing.T) {
	e := env(t)
	rec := qcRecord(1)

	err := approval.Decide(rec, e, inspector, "i2", approve(41))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrQuantityOutOfRange))
	assert.Equal(t, "i2", domain.ParamsOf(err)["item_id"])

	err = approval.Decide(rec, e, inspector, "i2", approval.DecisionInput{
		Decision: entity.DecisionPartial, DecidedQty: decimal.NewFromInt(-1),
	})
	assert.True(t, errors.Is(err, domain.ErrQuantityOutOfRange))

	assert.Equal(t, entity.DecisionPending, rec.Item("i2").Decision)
	assert.Equal(t, entity.RecordStatusPending, rec.Status)
	assert.Equal(t, 3, rec.PendingItems)
}

func TestDecide_ParcialCuentaComoAprobado(t *testing.T) {
	e := env(t)
	rec := qcRecord(1)

	require.NoError(t, approval.Decide(rec, e, inspector, "i1", approval.DecisionInput{
		Decision: entity.DecisionPartial, DecidedQty: decimal.RequireFromString("62.5"),
	}))
	assert.Equal(t, 1, rec.ApprovedItems)
	assertAggregates(t, rec)
}

func TestDecide_SobrescribeDecisionAnterior(t *testing.T) {
	e := env(t)
	rec := qcRecord(1)

	require.NoError(t, approval.Decide(rec, e, inspector, "i1", approve(100)))
	require.NoError(t, approval.Decide(rec, e, inspector, "i1", approval.DecisionInput{Decision: entity.DecisionRejected}))
	assert.Equal(t, 0, rec.ApprovedItems)
	assert.Equal(t, 1, rec.RejectedItems)
	assertAggregates(t, rec)
}

func TestDecide_PendienteEsEntradaInvalida(t *testing.T) {
	e := env(t)
	rec := qcRecord(1)

	err := approval.Decide(rec, e, inspector, "i1", approval.DecisionInput{Decision: entity.DecisionPending})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestDecide_ItemInexistente(t *testing.T) {
	e := env(t)
	rec := qcRecord(1)

	err := approval.Decide(rec, e, inspector, "zz", approve(1))
	assert.True(t, errors.Is(err, domain.ErrInvalidItemReference))
	assert.Equal(t, []string{"zz"}, domain.ParamsOf(err)["item_ids"])
}

func TestDecide_BloqueadoTrasEnvio(t *testing.T) {
	e := env(t)
	rec := qcRecord(1)
	require.NoError(t, approval.ApplyBulk(rec, e, inspector, []string{"i1", "i2", "i3"}, entity.DecisionApproved, ""))
	require.NoError(t, approval.Submit(rec, e, inspector))

	err := approval.Decide(rec, e, inspector, "i1", approval.DecisionInput{Decision: entity.DecisionRejected})
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
	assert.Equal(t, entity.DecisionApproved, rec.Item("i1").Decision)
}

func TestPermisos_VendedorSinGrantNoDecide(t *testing.T) {
	e := env(t)
	rec := qcRecord(1)

	err := approval.Decide(rec, e, seller, "i1", approve(1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrPermissionDenied))
	assert.Equal(t, "qc_check", domain.ParamsOf(err)["permission"])
	assert.Equal(t, entity.DecisionPending, rec.Item("i1").Decision)
}

func TestPermisos_GrantPorEtapaYVencimiento(t *testing.T) {
	expired := now.Add(-time.Minute)
	grant := entity.StagePermission{
		UserID: seller.ID, StageID: "s-insp", IsActive: true,
		Permissions: []entity.Permission{entity.PermissionQCCheck},
	}
	rec := qcRecord(1)
	require.NoError(t, approval.Decide(rec, env(t, grant), seller, "i1", approve(1)))

	grant.ExpiresAt = &expired
	err := approval.Decide(rec, env(t, grant), seller, "i2", approve(1))
	assert.True(t, errors.Is(err, domain.ErrPermissionDenied))
}

func TestApplyBulk_IDDesconocidoNoAplicaNada(t *testing.T) {
	e := env(t)
	rec := qcRecord(1)

	err := approval.ApplyBulk(rec, e, inspector, []string{"i1", "x9", "i3", "x8"}, entity.DecisionRejected, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidItemReference))
	assert.Equal(t, []string{"x9", "x8"}, domain.ParamsOf(err)["item_ids"])
	assert.Equal(t, 3, rec.PendingItems)
	assert.Equal(t, entity.RecordStatusPending, rec.Status)
}

func TestApplyBulk_SoloAprobadoORechazado(t *testing.T) {
	e := env(t)
	rec := qcRecord(1)

	err := approval.ApplyBulk(rec, e, inspector, []string{"i1"}, entity.DecisionPartial, "")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	require.NoError(t, approval.ApplyBulk(rec, e, inspector, []string{"i1", "i3"}, entity.DecisionRejected, "vencido"))
	assert.Equal(t, 2, rec.RejectedItems)
	assert.True(t, rec.Item("i1").DecidedQty.IsZero())
	assert.Equal(t, "vencido", rec.Item("i3").Remarks)
}

func TestEscalamiento_NivelesEnOrden(t *testing.T) {
	e := env(t)
	rec := qcRecord(2)
	require.NoError(t, approval.ApplyBulk(rec, e, inspector, []string{"i1", "i2", "i3"}, entity.DecisionApproved, ""))
	require.NoError(t, approval.Submit(rec, e, inspector))

	err := approval.RecordManagerAction(rec, e, manager, approval.ManagerInput{Level: 2, Action: entity.ManagerActionApprove})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrOutOfSequenceApproval))
	assert.Equal(t, 1, domain.ParamsOf(err)["expected_level"])

	require.NoError(t, approval.RecordManagerAction(rec, e, manager, approval.ManagerInput{Level: 1, Action: entity.ManagerActionApprove}))
	assert.Equal(t, entity.RecordStatusSubmitted, rec.Status)
	assert.Equal(t, "s-rev", rec.StageID, "un nivel intermedio no avanza de etapa")
	assert.Nil(t, rec.FinalApprovalDate)

	err = approval.RecordManagerAction(rec, e, manager, approval.ManagerInput{Level: 1, Action: entity.ManagerActionApprove})
	assert.True(t, errors.Is(err, domain.ErrOutOfSequenceApproval), "nivel duplicado")

	err = approval.RecordManagerAction(rec, e, manager, approval.ManagerInput{Level: 3, Action: entity.ManagerActionApprove})
	assert.True(t, errors.Is(err, domain.ErrOutOfSequenceApproval))

	require.NoError(t, approval.RecordManagerAction(rec, e, manager, approval.ManagerInput{Level: 2, Action: entity.ManagerActionApprove}))
	assert.Equal(t, entity.RecordStatusCompleted, rec.Status)
	assert.Equal(t, "s-ok", rec.StageID)
	require.NotNil(t, rec.FinalApprovalDate)
	require.Len(t, rec.ManagerApprovals, 2)
	assert.Equal(t, 1, rec.ManagerApprovals[0].Level)
	assert.Equal(t, 2, rec.ManagerApprovals[1].Level)
	assert.Equal(t, entity.RoleGerente, rec.ManagerApprovals[1].ApproverRole)
}

func TestEscalamiento_AprobacionDeBodegaTerminaAprobada(t *testing.T) {
	e := env(t)
	rec := qcRecord(1)
	rec.Type = entity.DocumentTypeWarehouseApproval
	rec.Status = entity.RecordStatusSubmitted
	rec.StageID = "s-rev"

	require.NoError(t, approval.RecordManagerAction(rec, e, manager, approval.ManagerInput{Level: 1, Action: entity.ManagerActionApprove}))
	assert.Equal(t, entity.RecordStatusApproved, rec.Status)
}

func TestEscalamiento_RechazoRequiereMotivoYPermiso(t *testing.T) {
	e := env(t)
	rec := qcRecord(1)
	rec.Status = entity.RecordStatusSubmitted
	rec.StageID = "s-rev"

	err := approval.RecordManagerAction(rec, e, manager, approval.ManagerInput{Level: 1, Action: entity.ManagerActionReject, Remarks: "  "})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	err = approval.RecordManagerAction(rec, e, inspector, approval.ManagerInput{Level: 1, Action: entity.ManagerActionReject, Remarks: "x"})
	assert.True(t, errors.Is(err, domain.ErrPermissionDenied))
	assert.Empty(t, rec.ManagerApprovals)
}

func TestEscalamiento_SoloSobreRegistrosEnviados(t *testing.T) {
	e := env(t)
	rec := qcRecord(1)

	err := approval.RecordManagerAction(rec, e, manager, approval.ManagerInput{Level: 1, Action: entity.ManagerActionApprove})
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
}

func TestTransicionAutomatica_AvanzaEtapaSinCambiarEstado(t *testing.T) {
	stages := []entity.WorkflowStage{
		{ID: "a", Code: "conteo", DocumentType: entity.DocumentTypeQualityControl, Sequence: 1, IsActive: true,
			AllowedActions: []entity.Action{entity.ActionQCCheck}, NextStages: []string{"b"}},
		{ID: "b", Code: "verificacion", DocumentType: entity.DocumentTypeQualityControl, Sequence: 2, IsActive: true,
			AllowedActions: []entity.Action{entity.ActionQCCheck, entity.ActionSubmit}, NextStages: []string{"c"}},
		{ID: "c", Code: "revision", DocumentType: entity.DocumentTypeQualityControl, Sequence: 3, IsActive: true},
	}
	transitions := []entity.WorkflowTransition{
		{ID: "auto", FromStageID: "a", ToStageID: "b", Action: entity.ActionQCCheck, AutoTransition: true,
			Conditions: "pending_items == 0", IsActive: true},
		{ID: "sub", FromStageID: "b", ToStageID: "c", Action: entity.ActionSubmit, IsActive: true},
	}
	g, err := workflow.NewGraph(stages, transitions)
	require.NoError(t, err)
	e := approval.Env{Graph: g, Now: now}

	rec := qcRecord(1)
	rec.StageID = "a"
	require.NoError(t, approval.ApplyBulk(rec, e, inspector, []string{"i1", "i2"}, entity.DecisionApproved, ""))
	assert.Equal(t, "a", rec.StageID)

	require.NoError(t, approval.Decide(rec, e, inspector, "i3", approve(12)))
	assert.Equal(t, "b", rec.StageID)
	assert.Equal(t, entity.RecordStatusInProgress, rec.Status)
	last := rec.StageHistory[len(rec.StageHistory)-1]
	assert.True(t, last.Auto)
	assert.Equal(t, "conteo", last.FromStageCode)
	assert.Equal(t, "verificacion", last.ToStageCode)
}

func TestAvailableActions(t *testing.T) {
	e := env(t)
	rec := qcRecord(1)

	assert.Equal(t, []entity.Action{entity.ActionQCCheck}, approval.AvailableActions(rec, e, inspector).Actions)
	assert.Empty(t, approval.AvailableActions(rec, e, seller).Actions)

	require.NoError(t, approval.ApplyBulk(rec, e, inspector, []string{"i1", "i2", "i3"}, entity.DecisionApproved, ""))
	assert.Equal(t, []entity.Action{entity.ActionQCCheck, entity.ActionSubmit}, approval.AvailableActions(rec, e, inspector).Actions)

	require.NoError(t, approval.Submit(rec, e, inspector))
	// La etapa declara return, pero no hay operación que lo ejecute.
	assert.Equal(t, []entity.Action{entity.ActionApprove, entity.ActionReject}, approval.AvailableActions(rec, e, manager).Actions)
	assert.Empty(t, approval.AvailableActions(rec, e, inspector).Actions)
}

// closedRecord lleva un registro de QC hasta el estado final pedido.
func closedRecord(t *testing.T, e approval.Env, status string) *entity.ApprovalRecord {
	t.Helper()
	rec := qcRecord(1)
	require.NoError(t, approval.ApplyBulk(rec, e, inspector, []string{"i1", "i2", "i3"}, entity.DecisionApproved, ""))
	require.NoError(t, approval.Submit(rec, e, inspector))
	in := approval.ManagerInput{Level: 1, Action: entity.ManagerActionApprove}
	if status == entity.RecordStatusRejected {
		in = approval.ManagerInput{Level: 1, Action: entity.ManagerActionReject, Remarks: "lote vencido"}
	}
	require.NoError(t, approval.RecordManagerAction(rec, e, manager, in))
	if status == entity.RecordStatusApproved {
		// Estado final de bodega; el grafo de prueba solo tiene etapas de QC.
		rec.Status = entity.RecordStatusApproved
	}
	require.Equal(t, status, rec.Status)
	return rec
}

func TestRegistroCerrado_NingunaOperacionLoModifica(t *testing.T) {
	admin := entity.Actor{ID: "u-adm", Role: entity.RoleAdmin}
	ops := map[string]func(*entity.ApprovalRecord, approval.Env) error{
		"decide": func(rec *entity.ApprovalRecord, e approval.Env) error {
			return approval.Decide(rec, e, admin, "i1", approval.DecisionInput{Decision: entity.DecisionRejected})
		},
		"bulk": func(rec *entity.ApprovalRecord, e approval.Env) error {
			return approval.ApplyBulk(rec, e, admin, []string{"i1", "i2"}, entity.DecisionRejected, "")
		},
		"submit": func(rec *entity.ApprovalRecord, e approval.Env) error {
			return approval.Submit(rec, e, admin)
		},
		"manager_approve": func(rec *entity.ApprovalRecord, e approval.Env) error {
			return approval.RecordManagerAction(rec, e, admin, approval.ManagerInput{Level: len(rec.ManagerApprovals) + 1, Action: entity.ManagerActionApprove})
		},
		"manager_reject": func(rec *entity.ApprovalRecord, e approval.Env) error {
			return approval.RecordManagerAction(rec, e, admin, approval.ManagerInput{Level: len(rec.ManagerApprovals) + 1, Action: entity.ManagerActionReject, Remarks: "x"})
		},
	}
	for _, status := range []string{entity.RecordStatusCompleted, entity.RecordStatusApproved, entity.RecordStatusRejected} {
		for name, op := range ops {
			t.Run(status+"/"+name, func(t *testing.T) {
				e := env(t)
				rec := closedRecord(t, e, status)
				before := rec.Clone()

				err := op(rec, e)
				require.Error(t, err)
				assert.True(t, errors.Is(err, domain.ErrInvalidTransition), err.Error())
				assert.Equal(t, before, rec)
				assert.Equal(t, before.Items, rec.Items)
				assertAggregates(t, rec)
				assert.Empty(t, approval.AvailableActions(rec, e, admin).Actions)
			})
		}
	}
}

func TestNewRecord(t *testing.T) {
	e := env(t)
	up := entity.UpstreamDocument{ID: "rcv-1", Type: entity.DocumentTypeInvoiceReceiving, Lines: []entity.UpstreamLine{
		{ProductID: "p1", PassedQty: decimal.NewFromInt(10), FocQty: decimal.NewFromInt(1)},
		{ProductID: "p2", PassedQty: decimal.NewFromInt(5)},
	}}
	rec, err := approval.NewRecord(e, inspector, approval.NewRecordInput{
		Type: entity.DocumentTypeQualityControl, Upstream: up, RequiredLevels: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "s-insp", rec.StageID)
	assert.Equal(t, entity.PriorityMedium, rec.Priority)
	assert.Equal(t, entity.RecordStatusPending, rec.Status)
	assert.Equal(t, 2, rec.PendingItems)
	assert.Regexp(t, `^QC-20260310-[A-Z0-9]+$`, rec.Number)
	assert.Equal(t, "rcv-1", rec.UpstreamID)
	assert.True(t, rec.Items[0].ExpectedQty.Equal(decimal.NewFromInt(10)))

	_, err = approval.NewRecord(e, inspector, approval.NewRecordInput{
		Type: entity.DocumentTypeQualityControl, Upstream: up, Priority: "ya",
	})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = approval.NewRecord(e, inspector, approval.NewRecordInput{Type: entity.DocumentTypeWarehouseApproval, Upstream: up})
	assert.True(t, errors.Is(err, domain.ErrNoSuchTransition), "sin etapa inicial para bodega")
}

func TestUpstreamFromQualityControl(t *testing.T) {
	rec := qcRecord(1)
	_, err := approval.UpstreamFromQualityControl(rec)
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))

	rec.Status = entity.RecordStatusCompleted
	rec.Items[0].Decision = entity.DecisionApproved
	rec.Items[0].DecidedQty = decimal.NewFromInt(100)
	rec.Items[1].Decision = entity.DecisionPartial
	rec.Items[1].DecidedQty = decimal.NewFromInt(30)
	rec.Items[2].Decision = entity.DecisionRejected

	doc, err := approval.UpstreamFromQualityControl(rec)
	require.NoError(t, err)
	require.Len(t, doc.Lines, 2)
	assert.True(t, doc.Lines[1].PassedQty.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, "L-002", doc.Lines[1].BatchNumber)
}
