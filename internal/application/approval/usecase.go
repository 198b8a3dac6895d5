// Package approval orquesta la máquina de estados de QC y aprobación de bodega: carga el
// registro bajo candado, aplica la regla de dominio sobre una copia y persiste en una sola
// transacción. Notificaciones y métricas se emiten solo después del commit.
package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/farmadist-api/internal/application/dto"
	"github.com/jhoicas/farmadist-api/internal/domain"
	"github.com/jhoicas/farmadist-api/internal/domain/approval"
	"github.com/jhoicas/farmadist-api/internal/domain/entity"
	"github.com/jhoicas/farmadist-api/internal/domain/permission"
	"github.com/jhoicas/farmadist-api/internal/domain/repository"
	"github.com/jhoicas/farmadist-api/pkg/logger"
)

// Levels niveles de aprobación gerencial por tipo de documento.
type Levels struct {
	QualityControl    int
	WarehouseApproval int
}

// Deps colaboradores del caso de uso. Receiving, Notifier y Metrics son opcionales.
type Deps struct {
	Records   repository.ApprovalRecordRepository
	Tx        TxRunner
	Graphs    GraphProvider
	Grants    GrantProvider
	Receiving ReceivingSource
	Notifier  Notifier
	Metrics   Metrics
	Levels    Levels
	Log       *logger.Logger
}

// UseCase casos de uso de registros de aprobación.
type UseCase struct {
	records   repository.ApprovalRecordRepository
	tx        TxRunner
	graphs    GraphProvider
	grants    GrantProvider
	receiving ReceivingSource
	notifier  Notifier
	metrics   Metrics
	levels    Levels
	log       *logger.Logger
	locks     *recordLocks
	now       func() time.Time
	newID     func() string
}

// NewUseCase construye el caso de uso.
func NewUseCase(d Deps) *UseCase {
	uc := &UseCase{
		records:   d.Records,
		tx:        d.Tx,
		graphs:    d.Graphs,
		grants:    d.Grants,
		receiving: d.Receiving,
		notifier:  d.Notifier,
		metrics:   d.Metrics,
		levels:    d.Levels,
		log:       d.Log,
		locks:     newRecordLocks(),
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
	if uc.notifier == nil {
		uc.notifier = nopNotifier{}
	}
	if uc.metrics == nil {
		uc.metrics = nopMetrics{}
	}
	if uc.log == nil {
		uc.log = logger.Nop()
	}
	uc.log = uc.log.Component("approval")
	return uc
}

func (uc *UseCase) env(ctx context.Context, actor entity.Actor) (approval.Env, error) {
	g, err := uc.graphs.Graph(ctx)
	if err != nil {
		return approval.Env{}, fmt.Errorf("load workflow: %w", err)
	}
	grants, err := uc.grants.GrantsFor(ctx, actor.ID)
	if err != nil {
		return approval.Env{}, fmt.Errorf("load grants: %w", err)
	}
	return approval.Env{Graph: g, Grants: grants, Now: uc.now().UTC(), NewID: uc.newID}, nil
}

// mutate aplica fn sobre una copia del registro bloqueado y la guarda en la misma transacción.
// Si fn falla el registro queda intacto.
func (uc *UseCase) mutate(ctx context.Context, action string, actor entity.Actor, id string,
	fn func(rec *entity.ApprovalRecord, env approval.Env) error) (*entity.ApprovalRecord, error) {
	start := time.Now()
	unlock := uc.locks.Lock(id)
	defer unlock()

	var before, after *entity.ApprovalRecord
	err := func() error {
		env, err := uc.env(ctx, actor)
		if err != nil {
			return err
		}
		return uc.tx.Run(ctx, func(records repository.ApprovalRecordRepository) error {
			rec, err := records.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			work := rec.Clone()
			if err := fn(work, env); err != nil {
				return err
			}
			if err := records.Save(ctx, work); err != nil {
				return err
			}
			before, after = rec, work
			return nil
		})
	}()
	uc.metrics.ObserveAction(action, err, time.Since(start))
	if err != nil {
		uc.log.Warn().Err(err).Str("action", action).Str("record_id", id).Str("user_id", actor.ID).Msg("action rejected")
		return nil, err
	}
	uc.afterCommit(ctx, action, actor, before, after)
	return after, nil
}

// afterCommit registra el cambio y avisa si el estado pasó a enviado, aprobado, completado o rechazado.
func (uc *UseCase) afterCommit(ctx context.Context, action string, actor entity.Actor, before, after *entity.ApprovalRecord) {
	ev := uc.log.Info().Str("action", action).Str("record_id", after.ID).Str("number", after.Number).
		Str("user_id", actor.ID).Str("status", after.Status).Str("stage_id", after.StageID).
		Int("pending_items", after.PendingItems)
	if before != nil && before.StageID != after.StageID {
		ev = ev.Str("from_stage_id", before.StageID)
	}
	ev.Msg("record updated")

	if before != nil && before.Status == after.Status {
		return
	}
	uc.metrics.ObserveStatus(after.Type, after.Status)
	switch after.Status {
	case entity.RecordStatusSubmitted, entity.RecordStatusApproved,
		entity.RecordStatusCompleted, entity.RecordStatusRejected:
		uc.notifier.Notify(ctx, entity.StatusEvent{
			RecordID:   after.ID,
			RecordType: after.Type,
			Number:     after.Number,
			Status:     after.Status,
			ActorID:    actor.ID,
			Level:      len(after.ManagerApprovals),
			OccurredAt: after.UpdatedAt,
		})
	}
}

// CreateQualityControl abre un QC desde una recepción de factura.
func (uc *UseCase) CreateQualityControl(ctx context.Context, actor entity.Actor, in dto.CreateQualityControlRequest) (*dto.ApprovalRecordResponse, error) {
	if uc.receiving == nil {
		return nil, domain.NewError(domain.ErrInvalidInput, "no hay fuente de recepciones configurada", nil)
	}
	if in.ReceivingID == "" {
		return nil, domain.NewError(domain.ErrInvalidInput, "receiving_id requerido", nil)
	}
	doc, err := uc.receiving.GetReceiving(ctx, in.ReceivingID)
	if err != nil {
		return nil, err
	}
	if doc.Type == "" {
		doc.Type = entity.DocumentTypeInvoiceReceiving
	}
	levels := uc.levels.QualityControl
	if in.RequiredLevels != nil {
		levels = *in.RequiredLevels
	}
	return uc.create(ctx, actor, approval.NewRecordInput{
		Type:           entity.DocumentTypeQualityControl,
		Upstream:       *doc,
		Priority:       in.Priority,
		AssignedTo:     in.AssignedTo,
		RequiredLevels: levels,
		Notes:          in.Notes,
	})
}

// CreateWarehouseApproval abre la aprobación de bodega desde un QC completado; cada ítem
// espera la cantidad aprobada en QC.
func (uc *UseCase) CreateWarehouseApproval(ctx context.Context, actor entity.Actor, in dto.CreateWarehouseApprovalRequest) (*dto.ApprovalRecordResponse, error) {
	if in.QualityControlID == "" {
		return nil, domain.NewError(domain.ErrInvalidInput, "quality_control_id requerido", nil)
	}
	qc, err := uc.records.GetByID(ctx, in.QualityControlID)
	if err != nil {
		return nil, err
	}
	doc, err := approval.UpstreamFromQualityControl(qc)
	if err != nil {
		return nil, err
	}
	levels := uc.levels.WarehouseApproval
	if in.RequiredLevels != nil {
		levels = *in.RequiredLevels
	}
	return uc.create(ctx, actor, approval.NewRecordInput{
		Type:           entity.DocumentTypeWarehouseApproval,
		Upstream:       doc,
		Priority:       in.Priority,
		AssignedTo:     in.AssignedTo,
		RequiredLevels: levels,
		Notes:          in.Notes,
	})
}

// createPermissions permisos que habilitan abrir un registro en su etapa inicial.
var createPermissions = map[string][]entity.Permission{
	entity.DocumentTypeQualityControl:    {entity.PermissionQCCheck, entity.PermissionReceive},
	entity.DocumentTypeWarehouseApproval: {entity.PermissionEdit, entity.PermissionReceive},
}

func (uc *UseCase) create(ctx context.Context, actor entity.Actor, in approval.NewRecordInput) (*dto.ApprovalRecordResponse, error) {
	start := time.Now()
	rec, err := func() (*entity.ApprovalRecord, error) {
		if in.RequiredLevels < 0 {
			return nil, domain.NewError(domain.ErrInvalidInput, "required_levels no puede ser negativo",
				map[string]any{"required_levels": in.RequiredLevels})
		}
		env, err := uc.env(ctx, actor)
		if err != nil {
			return nil, err
		}
		rec, err := approval.NewRecord(env, actor, in)
		if err != nil {
			return nil, err
		}
		allowed := false
		for _, p := range createPermissions[in.Type] {
			if permission.Evaluate(actor, rec.StageID, p, env.Grants, env.Now) {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil, domain.NewError(domain.ErrPermissionDenied, "sin permiso para abrir el registro",
				map[string]any{"type": in.Type, "stage_id": rec.StageID, "user_id": actor.ID})
		}
		err = uc.tx.Run(ctx, func(records repository.ApprovalRecordRepository) error {
			exists, err := records.ExistsByUpstream(ctx, in.Type, in.Upstream.ID)
			if err != nil {
				return err
			}
			if exists {
				return domain.NewError(domain.ErrDuplicate, "ya existe un registro para el documento de origen",
					map[string]any{"type": in.Type, "upstream_id": in.Upstream.ID})
			}
			return records.Create(ctx, rec)
		})
		return rec, err
	}()
	uc.metrics.ObserveAction("create", err, time.Since(start))
	if err != nil {
		uc.log.Warn().Err(err).Str("type", in.Type).Str("upstream_id", in.Upstream.ID).Str("user_id", actor.ID).Msg("create rejected")
		return nil, err
	}
	uc.afterCommit(ctx, "create", actor, nil, rec)
	return uc.toResponse(ctx, rec), nil
}

// Decide registra la decisión sobre un ítem.
func (uc *UseCase) Decide(ctx context.Context, actor entity.Actor, recordID, itemID string, in dto.DecideItemRequest) (*dto.ApprovalRecordResponse, error) {
	input := approval.DecisionInput{
		Decision:   entity.Decision(in.Decision),
		DecidedQty: in.DecidedQty,
		Remarks:    in.Remarks,
		Checks:     fromChecksDTO(in.Checks),
	}
	rec, err := uc.mutate(ctx, "decide", actor, recordID, func(rec *entity.ApprovalRecord, env approval.Env) error {
		return approval.Decide(rec, env, actor, itemID, input)
	})
	if err != nil {
		return nil, err
	}
	return uc.toResponse(ctx, rec), nil
}

// ApplyBulk aplica la misma decisión a varios ítems; un ID desconocido cancela todo.
func (uc *UseCase) ApplyBulk(ctx context.Context, actor entity.Actor, recordID string, in dto.BulkActionRequest) (*dto.ApprovalRecordResponse, error) {
	rec, err := uc.mutate(ctx, "bulk", actor, recordID, func(rec *entity.ApprovalRecord, env approval.Env) error {
		return approval.ApplyBulk(rec, env, actor, in.ItemIDs, entity.Decision(in.Decision), in.Remarks)
	})
	if err != nil {
		return nil, err
	}
	return uc.toResponse(ctx, rec), nil
}

// Submit envía el registro a aprobación gerencial.
func (uc *UseCase) Submit(ctx context.Context, actor entity.Actor, recordID string) (*dto.ApprovalRecordResponse, error) {
	rec, err := uc.mutate(ctx, "submit", actor, recordID, func(rec *entity.ApprovalRecord, env approval.Env) error {
		return approval.Submit(rec, env, actor)
	})
	if err != nil {
		return nil, err
	}
	return uc.toResponse(ctx, rec), nil
}

// RecordManagerAction registra una firma gerencial (aprobación o rechazo) en su nivel.
func (uc *UseCase) RecordManagerAction(ctx context.Context, actor entity.Actor, recordID string, in dto.ManagerActionRequest) (*dto.ApprovalRecordResponse, error) {
	rec, err := uc.mutate(ctx, managerActionLabel(in.Action), actor, recordID, func(rec *entity.ApprovalRecord, env approval.Env) error {
		return approval.RecordManagerAction(rec, env, actor, approval.ManagerInput{
			Level: in.Level, Action: in.Action, Remarks: in.Remarks,
		})
	})
	if err != nil {
		return nil, err
	}
	return uc.toResponse(ctx, rec), nil
}

// RequireType confirma que el registro es del tipo esperado por la ruta. Un registro de
// otro tipo se reporta como inexistente.
func (uc *UseCase) RequireType(ctx context.Context, recordID, recordType string) error {
	rec, err := uc.records.GetByID(ctx, recordID)
	if err != nil {
		return err
	}
	if rec.Type != recordType {
		return domain.NewError(domain.ErrRecordNotFound, "", map[string]any{"record_id": recordID})
	}
	return nil
}

// managerActionLabel acota la etiqueta de métricas a valores conocidos; la acción llega del cuerpo HTTP.
func managerActionLabel(action string) string {
	switch action {
	case entity.ManagerActionApprove, entity.ManagerActionReject:
		return "manager_" + action
	}
	return "manager_invalid"
}

// Get devuelve el registro si el actor puede verlo en su etapa actual.
func (uc *UseCase) Get(ctx context.Context, actor entity.Actor, recordID string) (*dto.ApprovalRecordResponse, error) {
	rec, err := uc.records.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if err := uc.requireView(ctx, actor, rec); err != nil {
		return nil, err
	}
	return uc.toResponse(ctx, rec), nil
}

func (uc *UseCase) requireView(ctx context.Context, actor entity.Actor, rec *entity.ApprovalRecord) error {
	if permission.Global(actor, entity.PermissionView) {
		return nil
	}
	grants, err := uc.grants.GrantsFor(ctx, actor.ID)
	if err != nil {
		return fmt.Errorf("load grants: %w", err)
	}
	if permission.Evaluate(actor, rec.StageID, entity.PermissionView, grants, uc.now()) {
		return nil
	}
	return domain.NewError(domain.ErrPermissionDenied, "", map[string]any{
		"record_id": rec.ID, "stage_id": rec.StageID, "user_id": actor.ID, "permission": string(entity.PermissionView),
	})
}

// List registros del tipo, más recientes primero.
func (uc *UseCase) List(ctx context.Context, actor entity.Actor, recordType string, in dto.ListRecordsRequest) (*dto.RecordListResponse, error) {
	if !permission.Global(actor, entity.PermissionView) {
		return nil, domain.NewError(domain.ErrPermissionDenied, "", map[string]any{
			"user_id": actor.ID, "permission": string(entity.PermissionView),
		})
	}
	in.DefaultPage()
	recs, err := uc.records.List(ctx, repository.RecordFilter{
		Type:       recordType,
		Status:     in.Status,
		AssignedTo: in.AssignedTo,
		Limit:      in.Limit,
		Offset:     in.Offset,
	})
	if err != nil {
		return nil, err
	}
	out := &dto.RecordListResponse{
		Items: make([]dto.RecordSummaryResponse, 0, len(recs)),
		Page:  dto.PageResponse{Limit: in.Limit, Offset: in.Offset, HasMore: len(recs) == in.Limit},
	}
	for _, r := range recs {
		out.Items = append(out.Items, toSummary(r))
	}
	return out, nil
}

// AvailableActions acciones que el actor puede ejecutar ahora y transiciones automáticas pendientes.
func (uc *UseCase) AvailableActions(ctx context.Context, actor entity.Actor, recordID string) (*dto.AvailableActionsResponse, error) {
	rec, err := uc.records.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if err := uc.requireView(ctx, actor, rec); err != nil {
		return nil, err
	}
	env, err := uc.env(ctx, actor)
	if err != nil {
		return nil, err
	}
	av := approval.AvailableActions(rec, env, actor)
	out := &dto.AvailableActionsResponse{
		RecordID:        rec.ID,
		StageID:         rec.StageID,
		Actions:         make([]string, 0, len(av.Actions)),
		AutoTransitions: make([]dto.AutoTransitionResponse, 0, len(av.AutoCandidates)),
	}
	for _, a := range av.Actions {
		out.Actions = append(out.Actions, string(a))
	}
	for _, c := range av.AutoCandidates {
		out.AutoTransitions = append(out.AutoTransitions, dto.AutoTransitionResponse{
			TransitionID: c.Transition.ID, ToStageID: c.To.ID, ToStageCode: c.To.Code,
		})
	}
	return out, nil
}
