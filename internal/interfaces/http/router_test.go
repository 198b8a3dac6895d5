package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/farmadist-api/internal/application/approval"
	"github.com/jhoicas/farmadist-api/internal/application/dto"
	"github.com/jhoicas/farmadist-api/internal/application/permission"
	"github.com/jhoicas/farmadist-api/internal/application/workflow"
	"github.com/jhoicas/farmadist-api/internal/domain"
	"github.com/jhoicas/farmadist-api/internal/domain/entity"
	"github.com/jhoicas/farmadist-api/internal/infrastructure/memory"
	"github.com/jhoicas/farmadist-api/internal/infrastructure/metrics"
	"github.com/jhoicas/farmadist-api/internal/infrastructure/workflowconfig"
	apphttp "github.com/jhoicas/farmadist-api/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/farmadist-api/pkg/jwt"
	"github.com/jhoicas/farmadist-api/pkg/logger"
)

type stubReceiving struct{}

func (stubReceiving) GetReceiving(_ context.Context, id string) (*entity.UpstreamDocument, error) {
	if id != "rcv-1" {
		return nil, domain.NewError(domain.ErrNotFound, "recepción inexistente", map[string]any{"receiving_id": id})
	}
	return &entity.UpstreamDocument{ID: id, Lines: []entity.UpstreamLine{
		{ProductID: "p1", ProductName: "Amoxicilina", BatchNumber: "L1", PassedQty: decimal.NewFromInt(10)},
		{ProductID: "p2", ProductName: "Ibuprofeno", BatchNumber: "L2", PassedQty: decimal.NewFromInt(4)},
	}}, nil
}

func buildAPI(t *testing.T) *fiber.App {
	t.Helper()
	stages, transitions, err := workflowconfig.Load("../../../configs/workflow.yaml")
	require.NoError(t, err)
	graphs := workflow.NewUseCase(memory.NewWorkflowRepository(stages, transitions), nil)
	perms := permission.NewUseCase(memory.NewStagePermissionRepository(), nil, graphs, nil)
	store := memory.NewRecordStore()
	rec := metrics.New()
	approvals := approval.NewUseCase(approval.Deps{
		Records:   store,
		Tx:        memory.NewTxRunner(store),
		Graphs:    graphs,
		Grants:    perms,
		Receiving: stubReceiving{},
		Metrics:   rec,
	})
	app := fiber.New(fiber.Config{ErrorHandler: apphttp.ErrorHandler(logger.Nop())})
	apphttp.Router(app, apphttp.RouterDeps{
		ApprovalUC:   approvals,
		WorkflowUC:   graphs,
		PermissionUC: perms,
		Metrics:      rec.Handler(),
		JWTSecret:    testJWTSecret,
	})
	return app
}

func bearer(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, userID, role, nil, testIssuer, testExpMin)
	require.NoError(t, err)
	return "Bearer " + tok
}

func call(t *testing.T, app *fiber.App, method, path, auth string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func decodeError(t *testing.T, body []byte) dto.ErrorResponse {
	t.Helper()
	var e dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	return e
}

func TestAPI_FlujoQCConErrores(t *testing.T) {
	app := buildAPI(t)
	calidad := bearer(t, "u-cal", entity.RoleCalidad)
	gerente := bearer(t, "u-ger", entity.RoleGerente)
	vendedor := bearer(t, "u-ven", entity.RoleVendedor)

	resp, body := call(t, app, http.MethodPost, "/api/quality-controls", calidad, map[string]any{"receiving_id": "rcv-1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var qc dto.ApprovalRecordResponse
	require.NoError(t, json.Unmarshal(body, &qc))
	require.Len(t, qc.Items, 2)
	base := "/api/quality-controls/" + qc.ID

	resp, body = call(t, app, http.MethodPost, "/api/quality-controls", calidad, map[string]any{"receiving_id": "rcv-1"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "DUPLICATE", decodeError(t, body).Code)

	resp, body = call(t, app, http.MethodPut, base+"/items/"+qc.Items[0].ID, calidad,
		map[string]any{"decision": "approved", "decided_qty": 12})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	e := decodeError(t, body)
	assert.Equal(t, "QUANTITY_OUT_OF_RANGE", e.Code)
	assert.Equal(t, qc.Items[0].ID, e.Details["item_id"])

	resp, body = call(t, app, http.MethodPut, base+"/items/"+qc.Items[0].ID, vendedor,
		map[string]any{"decision": "approved", "decided_qty": 10})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "PERMISSION_DENIED", decodeError(t, body).Code)

	resp, body = call(t, app, http.MethodPost, base+"/submit", calidad, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	e = decodeError(t, body)
	assert.Equal(t, "INCOMPLETE_DECISIONS", e.Code)
	assert.EqualValues(t, 2, e.Details["pending_items"])

	resp, body = call(t, app, http.MethodPost, base+"/bulk", calidad,
		map[string]any{"item_ids": []string{qc.Items[0].ID, qc.Items[1].ID}, "decision": "approved"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = call(t, app, http.MethodPost, base+"/submit", calidad, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = call(t, app, http.MethodPost, base+"/manager-actions", gerente, map[string]any{"level": 2, "action": "approve"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "OUT_OF_SEQUENCE_APPROVAL", decodeError(t, body).Code)

	resp, body = call(t, app, http.MethodPost, base+"/manager-actions", gerente, map[string]any{"level": 1, "action": "approve"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &qc))
	assert.Equal(t, entity.RecordStatusCompleted, qc.Status)

	resp, body = call(t, app, http.MethodPut, base+"/items/"+qc.Items[0].ID, calidad,
		map[string]any{"decision": "rejected"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INVALID_TRANSITION", decodeError(t, body).Code)

	resp, _ = call(t, app, http.MethodGet, "/api/warehouse-approvals/"+qc.ID, vendedor, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "un QC no se expone bajo la ruta de bodega")

	resp, body = call(t, app, http.MethodGet, "/api/quality-controls/no-existe", vendedor, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "RECORD_NOT_FOUND", decodeError(t, body).Code)

	resp, body = call(t, app, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `farmadist_approval_actions_total{action="submit",outcome="incomplete_decisions"} 1`)
}

func TestAPI_RutaDeOtroTipoNoActuaSobreElRegistro(t *testing.T) {
	app := buildAPI(t)
	admin := bearer(t, "u-admin", entity.RoleAdmin)

	resp, body := call(t, app, http.MethodPost, "/api/quality-controls", admin, map[string]any{"receiving_id": "rcv-1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var qc dto.ApprovalRecordResponse
	require.NoError(t, json.Unmarshal(body, &qc))
	wrong := "/api/warehouse-approvals/" + qc.ID

	cases := []struct {
		method, path string
		body         any
	}{
		{http.MethodGet, wrong + "/actions", nil},
		{http.MethodPut, wrong + "/items/" + qc.Items[0].ID, map[string]any{"decision": "rejected"}},
		{http.MethodPost, wrong + "/bulk", map[string]any{"item_ids": []string{qc.Items[0].ID, qc.Items[1].ID}, "decision": "approved"}},
		{http.MethodPost, wrong + "/submit", nil},
		{http.MethodPost, wrong + "/manager-actions", map[string]any{"level": 1, "action": "approve"}},
	}
	for _, tc := range cases {
		resp, body := call(t, app, tc.method, tc.path, admin, tc.body)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, tc.method+" "+tc.path)
		assert.Equal(t, "RECORD_NOT_FOUND", decodeError(t, body).Code)
	}

	resp, body = call(t, app, http.MethodGet, "/api/quality-controls/"+qc.ID, admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got dto.ApprovalRecordResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, qc.Version, got.Version)
	assert.Equal(t, 2, got.PendingItems)
}

func TestAPI_AccionGerencialDesconocidaNoCreaSeries(t *testing.T) {
	app := buildAPI(t)
	gerente := bearer(t, "u-ger", entity.RoleGerente)

	for _, action := range []string{"zzz1", "zzz2"} {
		resp, _ := call(t, app, http.MethodPost, "/api/quality-controls/no-existe/manager-actions", gerente,
			map[string]any{"level": 1, "action": action})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	}

	_, body := call(t, app, http.MethodGet, "/metrics", "", nil)
	assert.NotContains(t, string(body), "zzz")
}

func TestAPI_SinToken(t *testing.T) {
	app := buildAPI(t)
	resp, body := call(t, app, http.MethodGet, "/api/quality-controls", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "MISSING_TOKEN", decodeError(t, body).Code)
}

func TestAPI_Workflow(t *testing.T) {
	app := buildAPI(t)
	admin := bearer(t, "u-admin", entity.RoleAdmin)
	gerente := bearer(t, "u-ger", entity.RoleGerente)

	resp, body := call(t, app, http.MethodGet, "/api/workflow", gerente, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var wf dto.WorkflowResponse
	require.NoError(t, json.Unmarshal(body, &wf))
	assert.NotEmpty(t, wf.Stages)

	resp, body = call(t, app, http.MethodPost, "/api/workflow/stages", gerente,
		map[string]any{"name": "Cuarentena", "document_type": "quality_control", "sequence": 50})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "PERMISSION_DENIED", decodeError(t, body).Code)

	resp, body = call(t, app, http.MethodPost, "/api/workflow/stages", admin,
		map[string]any{"name": "Cuarentena", "document_type": "quality_control", "sequence": 50})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = call(t, app, http.MethodPost, "/api/workflow/preview", gerente,
		map[string]any{"from_stage_id": "qc-revision", "action": "approve", "snapshot": map[string]any{"level": 1, "required_levels": 1}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var pv dto.ResolvePreviewResponse
	require.NoError(t, json.Unmarshal(body, &pv))
	assert.Equal(t, "qc-cerrado", pv.ToStageID)

	resp, body = call(t, app, http.MethodPost, "/api/workflow/reload", gerente, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", decodeError(t, body).Code)

	resp, _ = call(t, app, http.MethodPost, "/api/workflow/reload", admin, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestAPI_Permisos(t *testing.T) {
	app := buildAPI(t)
	admin := bearer(t, "u-admin", entity.RoleAdmin)
	vendedor := bearer(t, "u-ven", entity.RoleVendedor)

	resp, body := call(t, app, http.MethodGet, "/api/permissions/check?stage_id=qc-revision&permission=approve", vendedor, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var check dto.CheckPermissionResponse
	require.NoError(t, json.Unmarshal(body, &check))
	assert.False(t, check.Allowed)

	resp, body = call(t, app, http.MethodPut, "/api/permissions/stages/qc-revision/assignments", admin,
		map[string]any{"user_ids": []string{"u-ven"}, "permissions": []string{"approve"}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var diff dto.AssignmentDiffResponse
	require.NoError(t, json.Unmarshal(body, &diff))
	assert.Equal(t, []string{"u-ven"}, diff.Assigned)

	resp, body = call(t, app, http.MethodGet, "/api/permissions/check?stage_id=qc-revision&permission=approve", vendedor, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &check))
	assert.True(t, check.Allowed)

	resp, body = call(t, app, http.MethodGet, "/api/permissions/check?stage_id=qc-revision&permission=volar", vendedor, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION", decodeError(t, body).Code)
}
