package approval

import (
	"context"

	"github.com/jhoicas/farmadist-api/internal/application/dto"
	"github.com/jhoicas/farmadist-api/internal/domain/entity"
)

func fromChecksDTO(c *dto.ItemChecksDTO) *entity.ItemChecks {
	if c == nil {
		return nil
	}
	return &entity.ItemChecks{
		PhysicalCondition:  c.PhysicalCondition,
		DocumentationMatch: c.DocumentationMatch,
		StorageLocation:    c.StorageLocation,
		Temperature:        c.Temperature,
	}
}

func toChecksDTO(c *entity.ItemChecks) *dto.ItemChecksDTO {
	if c == nil {
		return nil
	}
	return &dto.ItemChecksDTO{
		PhysicalCondition:  c.PhysicalCondition,
		DocumentationMatch: c.DocumentationMatch,
		StorageLocation:    c.StorageLocation,
		Temperature:        c.Temperature,
	}
}

// toResponse mapea el registro; el código de etapa sale del grafo vigente si está disponible.
func (uc *UseCase) toResponse(ctx context.Context, r *entity.ApprovalRecord) *dto.ApprovalRecordResponse {
	out := &dto.ApprovalRecordResponse{
		ID:                r.ID,
		Number:            r.Number,
		Type:              r.Type,
		UpstreamType:      r.UpstreamType,
		UpstreamID:        r.UpstreamID,
		Priority:          r.Priority,
		Status:            r.Status,
		StageID:           r.StageID,
		AssignedTo:        r.AssignedTo,
		SubmittedBy:       r.SubmittedBy,
		SubmittedAt:       r.SubmittedAt,
		RequiredLevels:    r.FinalLevel(),
		RejectionReason:   r.RejectionReason,
		FinalApprovalDate: r.FinalApprovalDate,
		Notes:             r.Notes,
		TotalItems:        r.TotalItems,
		ApprovedItems:     r.ApprovedItems,
		RejectedItems:     r.RejectedItems,
		PendingItems:      r.PendingItems,
		Items:             make([]dto.LineItemResponse, 0, len(r.Items)),
		ManagerApprovals:  make([]dto.ManagerApprovalResponse, 0, len(r.ManagerApprovals)),
		StageHistory:      make([]dto.StageHistoryResponse, 0, len(r.StageHistory)),
		Version:           r.Version,
		CreatedBy:         r.CreatedBy,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
	if g, err := uc.graphs.Graph(ctx); err == nil {
		if s, ok := g.Stage(r.StageID); ok {
			out.StageCode = s.Code
		}
	}
	for _, it := range r.Items {
		out.Items = append(out.Items, dto.LineItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			BatchNumber: it.BatchNumber,
			ExpiryDate:  it.ExpiryDate,
			ExpectedQty: it.ExpectedQty,
			FocQty:      it.FocQty,
			DecidedQty:  it.DecidedQty,
			Decision:    string(it.Decision),
			Remarks:     it.Remarks,
			DecidedBy:   it.DecidedBy,
			DecidedAt:   it.DecidedAt,
			Checks:      toChecksDTO(it.Checks),
		})
	}
	for _, m := range r.ManagerApprovals {
		out.ManagerApprovals = append(out.ManagerApprovals, dto.ManagerApprovalResponse{
			Level:        m.Level,
			ApproverID:   m.ApproverID,
			ApproverRole: m.ApproverRole,
			Action:       m.Action,
			Remarks:      m.Remarks,
			StageID:      m.StageID,
			CreatedAt:    m.CreatedAt,
		})
	}
	for _, h := range r.StageHistory {
		out.StageHistory = append(out.StageHistory, dto.StageHistoryResponse{
			FromStageID:   h.FromStageID,
			FromStageCode: h.FromStageCode,
			ToStageID:     h.ToStageID,
			ToStageCode:   h.ToStageCode,
			ToStageName:   h.ToStageName,
			Action:        string(h.Action),
			Auto:          h.Auto,
			ActorID:       h.ActorID,
			CreatedAt:     h.CreatedAt,
		})
	}
	return out
}

func toSummary(r *entity.ApprovalRecord) dto.RecordSummaryResponse {
	return dto.RecordSummaryResponse{
		ID:            r.ID,
		Number:        r.Number,
		Type:          r.Type,
		UpstreamID:    r.UpstreamID,
		Priority:      r.Priority,
		Status:        r.Status,
		StageID:       r.StageID,
		AssignedTo:    r.AssignedTo,
		TotalItems:    r.TotalItems,
		ApprovedItems: r.ApprovedItems,
		RejectedItems: r.RejectedItems,
		PendingItems:  r.PendingItems,
		CreatedAt:     r.CreatedAt,
	}
}
