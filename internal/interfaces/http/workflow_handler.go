package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/farmadist-api/internal/application/dto"
	"github.com/jhoicas/farmadist-api/internal/application/workflow"
)

// WorkflowHandler administración de etapas y transiciones.
type WorkflowHandler struct {
	uc *workflow.UseCase
}

// NewWorkflowHandler construye el handler.
func NewWorkflowHandler(uc *workflow.UseCase) *WorkflowHandler {
	return &WorkflowHandler{uc: uc}
}

// Get godoc
// @Summary      Configuración del flujo
// @Tags         workflow
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.WorkflowResponse
// @Router       /api/workflow [get]
func (h *WorkflowHandler) Get(c *fiber.Ctx) error {
	out, err := h.uc.Get(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// SaveStage godoc
// @Summary      Crear o actualizar etapa
// @Tags         workflow
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.StageRequest  true  "Etapa"
// @Success      200  {object}  dto.StageResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/workflow/stages [post]
func (h *WorkflowHandler) SaveStage(c *fiber.Ctx) error {
	var in dto.StageRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if id := c.Params("id"); id != "" {
		in.ID = id
	}
	out, err := h.uc.SaveStage(c.UserContext(), CurrentActor(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// SaveTransition godoc
// @Summary      Crear o actualizar transición
// @Tags         workflow
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.TransitionRequest  true  "Transición"
// @Success      200  {object}  dto.TransitionResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/workflow/transitions [post]
func (h *WorkflowHandler) SaveTransition(c *fiber.Ctx) error {
	var in dto.TransitionRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if id := c.Params("id"); id != "" {
		in.ID = id
	}
	out, err := h.uc.SaveTransition(c.UserContext(), CurrentActor(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// DeactivateTransition godoc
// @Summary      Desactivar transición
// @Tags         workflow
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la transición"
// @Success      200  {object}  dto.TransitionResponse
// @Router       /api/workflow/transitions/{id} [delete]
func (h *WorkflowHandler) DeactivateTransition(c *fiber.Ctx) error {
	out, err := h.uc.DeactivateTransition(c.UserContext(), CurrentActor(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Preview godoc
// @Summary      Simular resolución de transición
// @Tags         workflow
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ResolvePreviewRequest  true  "Etapa, acción e instantánea"
// @Success      200  {object}  dto.ResolvePreviewResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/workflow/preview [post]
func (h *WorkflowHandler) Preview(c *fiber.Ctx) error {
	var in dto.ResolvePreviewRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.Preview(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Reload godoc
// @Summary      Recargar configuración desde la base de datos
// @Tags         workflow
// @Security     Bearer
// @Success      204
// @Router       /api/workflow/reload [post]
func (h *WorkflowHandler) Reload(c *fiber.Ctx) error {
	if _, err := h.uc.Reload(c.UserContext()); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
