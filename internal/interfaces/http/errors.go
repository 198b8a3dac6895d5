package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/farmadist-api/internal/application/dto"
	"github.com/jhoicas/farmadist-api/internal/domain"
	"github.com/jhoicas/farmadist-api/pkg/logger"
)

type errorMapping struct {
	kind   error
	status int
	code   string
}

// El orden importa: ErrNoSuchTransition envuelve ErrInvalidTransition.
var errorMappings = []errorMapping{
	{domain.ErrPermissionDenied, fiber.StatusForbidden, "PERMISSION_DENIED"},
	{domain.ErrNoSuchTransition, fiber.StatusConflict, "INVALID_TRANSITION"},
	{domain.ErrInvalidTransition, fiber.StatusConflict, "INVALID_TRANSITION"},
	{domain.ErrIncompleteDecisions, fiber.StatusConflict, "INCOMPLETE_DECISIONS"},
	{domain.ErrQuantityOutOfRange, fiber.StatusUnprocessableEntity, "QUANTITY_OUT_OF_RANGE"},
	{domain.ErrInvalidItemReference, fiber.StatusUnprocessableEntity, "INVALID_ITEM_REFERENCE"},
	{domain.ErrOutOfSequenceApproval, fiber.StatusConflict, "OUT_OF_SEQUENCE_APPROVAL"},
	{domain.ErrRecordNotFound, fiber.StatusNotFound, "RECORD_NOT_FOUND"},
	{domain.ErrConcurrentModification, fiber.StatusConflict, "CONCURRENT_MODIFICATION"},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
	{domain.ErrConflict, fiber.StatusConflict, "CONFLICT"},
}

// writeError responde con el código del error de dominio y sus Params como details.
// Los errores desconocidos se devuelven a Fiber para que los maneje ErrorHandler.
func writeError(c *fiber.Ctx, err error) error {
	for _, m := range errorMappings {
		if errors.Is(err, m.kind) {
			return c.Status(m.status).JSON(dto.ErrorResponse{
				Code:    m.code,
				Message: err.Error(),
				Details: domain.ParamsOf(err),
			})
		}
	}
	return err
}

// ErrorHandler respuesta 500 uniforme para errores no mapeados; los registra con el logger.
func ErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(dto.ErrorResponse{Code: "HTTP_ERROR", Message: fe.Message})
		}
		log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("unhandled error")
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
	}
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
