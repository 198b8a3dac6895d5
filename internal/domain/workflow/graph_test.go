package workflow_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/farmadist-api/internal/domain"
	"github.com/jhoicas/farmadist-api/internal/domain/entity"
	"github.com/jhoicas/farmadist-api/internal/domain/workflow"
)

// qcConfig: inspección (1) → revisión gerencial (2) → {cerrado (3), rechazado (4)}.
// La revisión gerencial puede devolver a inspección (reproceso).
func qcConfig() ([]entity.WorkflowStage, []entity.WorkflowTransition) {
	stages := []entity.WorkflowStage{
		{ID: "s-insp", Code: "qc_inspeccion", DocumentType: entity.DocumentTypeQualityControl, Sequence: 1, IsActive: true,
			AllowedActions: []entity.Action{entity.ActionQCCheck, entity.ActionSubmit},
			NextStages:     []string{"s-rev"}},
		{ID: "s-rev", Code: "qc_revision", DocumentType: entity.DocumentTypeQualityControl, Sequence: 2, IsActive: true,
			AllowedActions: []entity.Action{entity.ActionApprove, entity.ActionReject, entity.ActionReturn},
			NextStages:     []string{"s-ok", "s-rej"}, ReturnStages: []string{"s-insp"}},
		{ID: "s-ok", Code: "qc_cerrado", DocumentType: entity.DocumentTypeQualityControl, Sequence: 3, IsActive: true},
		{ID: "s-rej", Code: "qc_rechazado", DocumentType: entity.DocumentTypeQualityControl, Sequence: 4, IsActive: true},
	}
	transitions := []entity.WorkflowTransition{
		{ID: "t1", FromStageID: "s-insp", ToStageID: "s-rev", Action: entity.ActionSubmit, IsActive: true},
		{ID: "t2", FromStageID: "s-rev", ToStageID: "s-ok", Action: entity.ActionApprove, IsActive: true},
		{ID: "t3", FromStageID: "s-rev", ToStageID: "s-rej", Action: entity.ActionReject, IsActive: true},
		{ID: "t4", FromStageID: "s-rev", ToStageID: "s-insp", Action: entity.ActionReturn, IsActive: true},
	}
	return stages, transitions
}

func TestResolveTransition_Basica(t *testing.T) {
	stages, transitions := qcConfig()
	g, err := workflow.NewGraph(stages, transitions)
	require.NoError(t, err)

	res, err := g.ResolveTransition("s-insp", entity.ActionSubmit, nil)
	require.NoError(t, err)
	assert.Equal(t, "s-rev", res.To.ID)
	assert.Equal(t, "t1", res.Transition.ID)

	res, err = g.ResolveTransition("s-rev", entity.ActionReturn, nil)
	require.NoError(t, err)
	assert.Equal(t, "s-insp", res.To.ID, "el retorno explícito puede volver a una secuencia menor")
}

func TestResolveTransition_SinTransicion(t *testing.T) {
	stages, transitions := qcConfig()
	g, err := workflow.NewGraph(stages, transitions)
	require.NoError(t, err)

	_, err = g.ResolveTransition("s-insp", entity.ActionApprove, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNoSuchTransition))
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition), "NoSuchTransition es una transición inválida")
	assert.Equal(t, "s-insp", domain.ParamsOf(err)["stage_id"])

	_, err = g.ResolveTransition("no-existe", entity.ActionSubmit, nil)
	assert.True(t, errors.Is(err, domain.ErrNoSuchTransition))
}

func TestResolveTransition_Condiciones(t *testing.T) {
	stages, transitions := qcConfig()
	stages[1].NextStages = append(stages[1].NextStages, "s-ok2")
	stages = append(stages, entity.WorkflowStage{ID: "s-ok2", Code: "qc_cerrado_urgente", Sequence: 5, IsActive: true})
	transitions[1].Conditions = `priority != "urgent"`
	transitions = append(transitions, entity.WorkflowTransition{
		ID: "t5", FromStageID: "s-rev", ToStageID: "s-ok2", Action: entity.ActionApprove,
		Conditions: `priority == "urgent"`, IsActive: true,
	})
	g, err := workflow.NewGraph(stages, transitions)
	require.NoError(t, err)

	res, err := g.ResolveTransition("s-rev", entity.ActionApprove, map[string]any{"priority": "urgent"})
	require.NoError(t, err)
	assert.Equal(t, "s-ok2", res.To.ID)

	res, err = g.ResolveTransition("s-rev", entity.ActionApprove, map[string]any{"priority": "low"})
	require.NoError(t, err)
	assert.Equal(t, "s-ok", res.To.ID)
}

func TestResolveTransition_Ambigua(t *testing.T) {
	stages, transitions := qcConfig()
	stages[1].NextStages = append(stages[1].NextStages, "s-ok2")
	stages = append(stages, entity.WorkflowStage{ID: "s-ok2", Code: "otra", Sequence: 5, IsActive: true})
	transitions[1].Conditions = `rejected_items == 0`
	transitions = append(transitions, entity.WorkflowTransition{
		ID: "t5", FromStageID: "s-rev", ToStageID: "s-ok2", Action: entity.ActionApprove,
		Conditions: `pending_items == 0`, IsActive: true,
	})
	g, err := workflow.NewGraph(stages, transitions)
	require.NoError(t, err)

	_, err = g.ResolveTransition("s-rev", entity.ActionApprove, map[string]any{"rejected_items": 0, "pending_items": 0})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
	assert.False(t, errors.Is(err, domain.ErrNoSuchTransition))
}

func TestResolveTransition_CamposRequeridos(t *testing.T) {
	stages, transitions := qcConfig()
	transitions[0].RequiredFields = []string{"assigned_to"}
	g, err := workflow.NewGraph(stages, transitions)
	require.NoError(t, err)

	_, err = g.ResolveTransition("s-insp", entity.ActionSubmit, map[string]any{"assigned_to": ""})
	require.Error(t, err)
	assert.Equal(t, []string{"assigned_to"}, domain.ParamsOf(err)["missing_fields"])

	_, err = g.ResolveTransition("s-insp", entity.ActionSubmit, map[string]any{"assigned_to": "u1"})
	assert.NoError(t, err)
}

func TestResolveTransition_CamposRequeridosEnCeroCuentanComoAusentes(t *testing.T) {
	stages, transitions := qcConfig()
	transitions[0].RequiredFields = []string{"approved_qty"}
	g, err := workflow.NewGraph(stages, transitions)
	require.NoError(t, err)

	for _, v := range []any{0, 0.0, int64(0), false, decimal.Zero, []string{}, nil} {
		_, err = g.ResolveTransition("s-insp", entity.ActionSubmit, map[string]any{"approved_qty": v})
		require.Error(t, err, "%#v", v)
		assert.Equal(t, []string{"approved_qty"}, domain.ParamsOf(err)["missing_fields"])
	}

	for _, v := range []any{3, 0.5, true, decimal.NewFromInt(2)} {
		_, err = g.ResolveTransition("s-insp", entity.ActionSubmit, map[string]any{"approved_qty": v})
		assert.NoError(t, err, "%#v", v)
	}
}

func TestNewGraph_RechazaNoDeterminista(t *testing.T) {
	stages, transitions := qcConfig()
	stages[1].NextStages = append(stages[1].NextStages, "s-ok2")
	stages = append(stages, entity.WorkflowStage{ID: "s-ok2", Code: "otra", Sequence: 5, IsActive: true})
	transitions = append(transitions, entity.WorkflowTransition{
		ID: "t5", FromStageID: "s-rev", ToStageID: "s-ok2", Action: entity.ActionApprove, IsActive: true,
	})
	_, err := workflow.NewGraph(stages, transitions)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestNewGraph_SiguienteDebeTenerSecuenciaMayor(t *testing.T) {
	stages, transitions := qcConfig()
	stages[1].NextStages = append(stages[1].NextStages, "s-insp")
	_, err := workflow.NewGraph(stages, transitions)
	require.Error(t, err)
	assert.Equal(t, "s-rev", domain.ParamsOf(err)["stage_id"])
}

func TestNewGraph_TransicionFueraDeSiguientes(t *testing.T) {
	stages, transitions := qcConfig()
	transitions = append(transitions, entity.WorkflowTransition{
		ID: "t9", FromStageID: "s-insp", ToStageID: "s-ok", Action: entity.ActionQCCheck, IsActive: true,
	})
	_, err := workflow.NewGraph(stages, transitions)
	require.Error(t, err)
	assert.Equal(t, "t9", domain.ParamsOf(err)["transition_id"])
}

func TestNewGraph_CondicionInvalida(t *testing.T) {
	stages, transitions := qcConfig()
	transitions[0].Conditions = `pending_items ==`
	_, err := workflow.NewGraph(stages, transitions)
	assert.Error(t, err)
}

func TestAutoCandidates(t *testing.T) {
	stages, transitions := qcConfig()
	transitions[0].AutoTransition = true
	transitions[0].Conditions = `pending_items == 0`
	transitions[0].RequiredFields = []string{"assigned_to"}
	g, err := workflow.NewGraph(stages, transitions)
	require.NoError(t, err)

	assert.Empty(t, g.AutoCandidates("s-insp", map[string]any{"pending_items": 2, "assigned_to": "u1"}))
	assert.Empty(t, g.AutoCandidates("s-insp", map[string]any{"pending_items": 0}))

	cands := g.AutoCandidates("s-insp", map[string]any{"pending_items": 0, "assigned_to": "u1"})
	require.Len(t, cands, 1)
	assert.Equal(t, "s-rev", cands[0].To.ID)
}

func TestInitialStage(t *testing.T) {
	stages, transitions := qcConfig()
	g, err := workflow.NewGraph(stages, transitions)
	require.NoError(t, err)

	s, ok := g.InitialStage(entity.DocumentTypeQualityControl)
	require.True(t, ok)
	assert.Equal(t, "s-insp", s.ID)

	_, ok = g.InitialStage(entity.DocumentTypeWarehouseApproval)
	assert.False(t, ok)
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "revision_de_bodega", workflow.NormalizeCode("Revisión de Bodega"))
	assert.Equal(t, "qc_pendiente", workflow.NormalizeCode("  QC -- Pendiente  "))
	assert.Equal(t, "aprobacion_nivel_2", workflow.NormalizeCode("Aprobación nivel 2"))
}
