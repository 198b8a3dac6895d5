package http

import (
	nethttp "net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/jhoicas/farmadist-api/internal/application/approval"
	"github.com/jhoicas/farmadist-api/internal/application/permission"
	"github.com/jhoicas/farmadist-api/internal/application/workflow"
	"github.com/jhoicas/farmadist-api/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	ApprovalUC   *approval.UseCase
	WorkflowUC   *workflow.UseCase
	PermissionUC *permission.UseCase
	Metrics      nethttp.Handler // opcional
	JWTSecret    string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics))
	}

	// Todo bajo /api requiere Bearer Token; la autorización fina la hacen los casos de uso.
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	registerApprovals(api.Group("/quality-controls"), NewApprovalHandler(deps.ApprovalUC, entity.DocumentTypeQualityControl))
	registerApprovals(api.Group("/warehouse-approvals"), NewApprovalHandler(deps.ApprovalUC, entity.DocumentTypeWarehouseApproval))

	wf := api.Group("/workflow")
	workflowHandler := NewWorkflowHandler(deps.WorkflowUC)
	wf.Get("/", workflowHandler.Get)
	wf.Post("/stages", workflowHandler.SaveStage)
	wf.Put("/stages/:id", workflowHandler.SaveStage)
	wf.Post("/transitions", workflowHandler.SaveTransition)
	wf.Put("/transitions/:id", workflowHandler.SaveTransition)
	wf.Delete("/transitions/:id", workflowHandler.DeactivateTransition)
	wf.Post("/preview", workflowHandler.Preview)
	wf.Post("/reload", RequireRole(entity.RoleAdmin), workflowHandler.Reload)

	perms := api.Group("/permissions")
	permissionHandler := NewPermissionHandler(deps.PermissionUC)
	perms.Get("/check", permissionHandler.Check)
	perms.Post("/assign", permissionHandler.Assign)
	perms.Post("/revoke", permissionHandler.Revoke)
	perms.Get("/stages/:stageId", permissionHandler.ListByStage)
	perms.Put("/stages/:stageId/assignments", permissionHandler.UpdateAssignments)
}

func registerApprovals(g fiber.Router, h *ApprovalHandler) {
	g.Post("/", h.Create)
	g.Get("/", h.List)
	g.Get("/:id", h.GetByID)
	g.Get("/:id/actions", h.Actions)
	g.Put("/:id/items/:itemId", h.Decide)
	g.Post("/:id/bulk", h.Bulk)
	g.Post("/:id/submit", h.Submit)
	g.Post("/:id/manager-actions", h.ManagerAction)
}
