package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/farmadist-api/internal/application/approval"
	"github.com/jhoicas/farmadist-api/internal/application/dto"
	"github.com/jhoicas/farmadist-api/internal/domain/entity"
)

// ApprovalHandler expone un tipo de registro (QC o aprobación de bodega) bajo su propia ruta.
type ApprovalHandler struct {
	uc         *approval.UseCase
	recordType string
}

// NewApprovalHandler construye el handler para recordType.
func NewApprovalHandler(uc *approval.UseCase, recordType string) *ApprovalHandler {
	return &ApprovalHandler{uc: uc, recordType: recordType}
}

// Create godoc
// @Summary      Crear registro desde su documento de origen
// @Tags         approvals
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateQualityControlRequest  true  "Recepción (QC) o QC completado (bodega)"
// @Success      201   {object}  dto.ApprovalRecordResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/quality-controls [post]
func (h *ApprovalHandler) Create(c *fiber.Ctx) error {
	actor := CurrentActor(c)
	var (
		out *dto.ApprovalRecordResponse
		err error
	)
	if h.recordType == entity.DocumentTypeQualityControl {
		var in dto.CreateQualityControlRequest
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
		out, err = h.uc.CreateQualityControl(c.UserContext(), actor, in)
	} else {
		var in dto.CreateWarehouseApprovalRequest
		if err := c.BodyParser(&in); err != nil {
			return badBody(c)
		}
		out, err = h.uc.CreateWarehouseApproval(c.UserContext(), actor, in)
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List godoc
// @Summary      Listar registros
// @Tags         approvals
// @Security     Bearer
// @Produce      json
// @Param        status       query  string  false  "Estado"
// @Param        assigned_to  query  string  false  "Usuario asignado"
// @Param        limit        query  int     false  "Límite"  default(20)
// @Param        offset       query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.RecordListResponse
// @Router       /api/quality-controls [get]
func (h *ApprovalHandler) List(c *fiber.Ctx) error {
	in := dto.ListRecordsRequest{
		Status:     c.Query("status"),
		AssignedTo: c.Query("assigned_to"),
	}
	in.Limit = c.QueryInt("limit", 20)
	in.Offset = c.QueryInt("offset", 0)
	out, err := h.uc.List(c.UserContext(), CurrentActor(c), h.recordType, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener registro
// @Tags         approvals
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del registro"
// @Success      200  {object}  dto.ApprovalRecordResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/quality-controls/{id} [get]
func (h *ApprovalHandler) GetByID(c *fiber.Ctx) error {
	if err := h.requireType(c); err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.Get(c.UserContext(), CurrentActor(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// requireType responde 404 si el registro pertenece a la otra ruta (QC vs bodega).
func (h *ApprovalHandler) requireType(c *fiber.Ctx) error {
	return h.uc.RequireType(c.UserContext(), c.Params("id"), h.recordType)
}

// Actions godoc
// @Summary      Acciones disponibles para el usuario actual
// @Tags         approvals
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del registro"
// @Success      200  {object}  dto.AvailableActionsResponse
// @Router       /api/quality-controls/{id}/actions [get]
func (h *ApprovalHandler) Actions(c *fiber.Ctx) error {
	if err := h.requireType(c); err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.AvailableActions(c.UserContext(), CurrentActor(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Decide godoc
// @Summary      Registrar decisión sobre un ítem
// @Tags         approvals
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id      path  string                 true  "ID del registro"
// @Param        itemId  path  string                 true  "ID del ítem"
// @Param        body    body  dto.DecideItemRequest  true  "Decisión"
// @Success      200  {object}  dto.ApprovalRecordResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/quality-controls/{id}/items/{itemId} [put]
func (h *ApprovalHandler) Decide(c *fiber.Ctx) error {
	if err := h.requireType(c); err != nil {
		return writeError(c, err)
	}
	var in dto.DecideItemRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.Decide(c.UserContext(), CurrentActor(c), c.Params("id"), c.Params("itemId"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Bulk godoc
// @Summary      Aprobar o rechazar varios ítems
// @Tags         approvals
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                 true  "ID del registro"
// @Param        body  body  dto.BulkActionRequest  true  "Ítems y decisión"
// @Success      200  {object}  dto.ApprovalRecordResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/quality-controls/{id}/bulk [post]
func (h *ApprovalHandler) Bulk(c *fiber.Ctx) error {
	if err := h.requireType(c); err != nil {
		return writeError(c, err)
	}
	var in dto.BulkActionRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.ApplyBulk(c.UserContext(), CurrentActor(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Submit godoc
// @Summary      Enviar a aprobación gerencial
// @Tags         approvals
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID del registro"
// @Success      200  {object}  dto.ApprovalRecordResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/quality-controls/{id}/submit [post]
func (h *ApprovalHandler) Submit(c *fiber.Ctx) error {
	if err := h.requireType(c); err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.Submit(c.UserContext(), CurrentActor(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ManagerAction godoc
// @Summary      Firma gerencial (aprobar o rechazar un nivel)
// @Tags         approvals
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                    true  "ID del registro"
// @Param        body  body  dto.ManagerActionRequest  true  "Nivel y acción"
// @Success      200  {object}  dto.ApprovalRecordResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/quality-controls/{id}/manager-actions [post]
func (h *ApprovalHandler) ManagerAction(c *fiber.Ctx) error {
	if err := h.requireType(c); err != nil {
		return writeError(c, err)
	}
	var in dto.ManagerActionRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.RecordManagerAction(c.UserContext(), CurrentActor(c), c.Params("id"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
