package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/farmadist-api/internal/application/dto"
	"github.com/jhoicas/farmadist-api/internal/application/permission"
)

// PermissionHandler consulta y asignación de permisos por etapa.
type PermissionHandler struct {
	uc *permission.UseCase
}

// NewPermissionHandler construye el handler.
func NewPermissionHandler(uc *permission.UseCase) *PermissionHandler {
	return &PermissionHandler{uc: uc}
}

// Check godoc
// @Summary      ¿El usuario actual tiene el permiso en la etapa?
// @Tags         permissions
// @Security     Bearer
// @Produce      json
// @Param        stage_id    query  string  true  "Etapa"
// @Param        permission  query  string  true  "Permiso"
// @Success      200  {object}  dto.CheckPermissionResponse
// @Router       /api/permissions/check [get]
func (h *PermissionHandler) Check(c *fiber.Ctx) error {
	out, err := h.uc.Check(c.UserContext(), CurrentActor(c), c.Query("stage_id"), c.Query("permission"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ListByStage godoc
// @Summary      Grants activos de una etapa
// @Tags         permissions
// @Security     Bearer
// @Produce      json
// @Param        stageId  path  string  true  "Etapa"
// @Success      200  {array}  dto.StagePermissionResponse
// @Router       /api/permissions/stages/{stageId} [get]
func (h *PermissionHandler) ListByStage(c *fiber.Ctx) error {
	out, err := h.uc.ListByStage(c.UserContext(), c.Params("stageId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Assign godoc
// @Summary      Asignar permisos sobre una etapa
// @Tags         permissions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AssignPermissionRequest  true  "Grant"
// @Success      200  {object}  dto.StagePermissionResponse
// @Router       /api/permissions/assign [post]
func (h *PermissionHandler) Assign(c *fiber.Ctx) error {
	var in dto.AssignPermissionRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.Assign(c.UserContext(), CurrentActor(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Revoke godoc
// @Summary      Revocar permisos sobre una etapa
// @Tags         permissions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RevokePermissionRequest  true  "Usuario y etapa"
// @Success      200  {object}  map[string]bool
// @Router       /api/permissions/revoke [post]
func (h *PermissionHandler) Revoke(c *fiber.Ctx) error {
	var in dto.RevokePermissionRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	revoked, err := h.uc.Revoke(c.UserContext(), CurrentActor(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"revoked": revoked})
}

// UpdateAssignments godoc
// @Summary      Fijar el conjunto de usuarios con grant sobre una etapa
// @Tags         permissions
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        stageId  path  string                        true  "Etapa"
// @Param        body     body  dto.UpdateAssignmentsRequest  true  "Usuarios y permisos"
// @Success      200  {object}  dto.AssignmentDiffResponse
// @Router       /api/permissions/stages/{stageId}/assignments [put]
func (h *PermissionHandler) UpdateAssignments(c *fiber.Ctx) error {
	var in dto.UpdateAssignmentsRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	in.StageID = c.Params("stageId")
	out, err := h.uc.UpdateStageAssignments(c.UserContext(), CurrentActor(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
