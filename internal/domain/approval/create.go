package approval

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/farmadist-api/internal/domain"
	"github.com/jhoicas/farmadist-api/internal/domain/entity"
)

// NewRecordInput datos para abrir un registro a partir de un documento de origen.
type NewRecordInput struct {
	Type           string
	Upstream       entity.UpstreamDocument
	Priority       string
	AssignedTo     string
	RequiredLevels int
	Notes          string
}

// NewRecord construye un registro en su etapa inicial, con un ítem pendiente por línea de origen.
func NewRecord(env Env, actor entity.Actor, in NewRecordInput) (*entity.ApprovalRecord, error) {
	if in.Type != entity.DocumentTypeQualityControl && in.Type != entity.DocumentTypeWarehouseApproval {
		return nil, domain.NewError(domain.ErrInvalidInput, "tipo de documento no válido", map[string]any{"type": in.Type})
	}
	priority := in.Priority
	if priority == "" {
		priority = entity.PriorityMedium
	}
	if !entity.ValidPriority(priority) {
		return nil, domain.NewError(domain.ErrInvalidInput, "prioridad no válida", map[string]any{"priority": priority})
	}
	if len(in.Upstream.Lines) == 0 {
		return nil, domain.NewError(domain.ErrInvalidInput, "el documento de origen no tiene líneas",
			map[string]any{"upstream_id": in.Upstream.ID})
	}
	stage, ok := env.Graph.InitialStage(in.Type)
	if !ok {
		return nil, domain.NewError(domain.ErrNoSuchTransition, "no hay etapa inicial configurada",
			map[string]any{"type": in.Type})
	}

	items := make([]entity.LineItemDecision, 0, len(in.Upstream.Lines))
	for i, l := range in.Upstream.Lines {
		if l.PassedQty.IsNegative() {
			return nil, domain.NewError(domain.ErrInvalidInput, "cantidad de origen negativa",
				map[string]any{"line": i, "product_id": l.ProductID})
		}
		items = append(items, entity.LineItemDecision{
			ID:          env.id(),
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			BatchNumber: l.BatchNumber,
			ExpiryDate:  l.ExpiryDate,
			ExpectedQty: l.PassedQty,
			FocQty:      l.FocQty,
			DecidedQty:  decimal.Zero,
			Decision:    entity.DecisionPending,
		})
	}

	id := env.id()
	rec := &entity.ApprovalRecord{
		ID:             id,
		Number:         recordNumber(in.Type, env, id),
		Type:           in.Type,
		UpstreamType:   in.Upstream.Type,
		UpstreamID:     in.Upstream.ID,
		Priority:       priority,
		Status:         entity.RecordStatusPending,
		StageID:        stage.ID,
		Items:          items,
		AssignedTo:     in.AssignedTo,
		RequiredLevels: in.RequiredLevels,
		Notes:          in.Notes,
		CreatedBy:      actor.ID,
		CreatedAt:      env.Now,
		UpdatedAt:      env.Now,
	}
	rec.StageHistory = []entity.StageHistoryEntry{{
		ID:          env.id(),
		ToStageID:   stage.ID,
		ToStageCode: stage.Code,
		ToStageName: stage.Name,
		ActorID:     actor.ID,
		CreatedAt:   env.Now,
	}}
	rec.Recount()
	return rec, nil
}

// UpstreamFromQualityControl convierte un QC completado en documento de origen de la
// aprobación de bodega: una línea por ítem aprobado o parcial, con su cantidad decidida.
func UpstreamFromQualityControl(qc *entity.ApprovalRecord) (entity.UpstreamDocument, error) {
	if qc.Type != entity.DocumentTypeQualityControl {
		return entity.UpstreamDocument{}, domain.NewError(domain.ErrInvalidInput, "el origen no es un control de calidad",
			map[string]any{"record_id": qc.ID, "type": qc.Type})
	}
	if qc.Status != entity.RecordStatusCompleted {
		return entity.UpstreamDocument{}, domain.NewError(domain.ErrInvalidTransition, "el control de calidad no está completado",
			recordParams(qc))
	}
	doc := entity.UpstreamDocument{
		ID:     qc.ID,
		Type:   entity.DocumentTypeQualityControl,
		Number: qc.Number,
		Status: qc.Status,
	}
	for _, it := range qc.Items {
		if it.Decision != entity.DecisionApproved && it.Decision != entity.DecisionPartial {
			continue
		}
		doc.Lines = append(doc.Lines, entity.UpstreamLine{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			BatchNumber: it.BatchNumber,
			ExpiryDate:  it.ExpiryDate,
			PassedQty:   it.DecidedQty,
			FocQty:      it.FocQty,
		})
	}
	return doc, nil
}

func recordNumber(docType string, env Env, id string) string {
	prefix := "WA"
	if docType == entity.DocumentTypeQualityControl {
		prefix = "QC"
	}
	suffix := strings.ToUpper(strings.ReplaceAll(id, "-", ""))
	if len(suffix) > 6 {
		suffix = suffix[:6]
	}
	return fmt.Sprintf("%s-%s-%s", prefix, env.Now.Format("20060102"), suffix)
}
