package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")
)

// Errores del motor de aprobación y calidad.
var (
	ErrPermissionDenied       = errors.New("permiso denegado")
	ErrInvalidTransition      = errors.New("transición inválida")
	ErrNoSuchTransition       = fmt.Errorf("%w: no existe transición configurada", ErrInvalidTransition)
	ErrIncompleteDecisions    = errors.New("hay ítems sin decisión")
	ErrQuantityOutOfRange     = errors.New("cantidad fuera de rango")
	ErrInvalidItemReference   = errors.New("ítem no pertenece al registro")
	ErrOutOfSequenceApproval  = errors.New("aprobación fuera de secuencia")
	ErrRecordNotFound         = errors.New("registro no encontrado")
	ErrConcurrentModification = errors.New("modificación concurrente")
)

// Error es un error de dominio con los identificadores que lo provocaron (ítems, etapa, nivel).
// Kind es uno de los sentinels de este paquete y permite errors.Is.
type Error struct {
	Kind    error
	Message string
	Params  map[string]any
}

// NewError construye un *Error. params puede ser nil.
func NewError(kind error, message string, params map[string]any) *Error {
	return &Error{Kind: kind, Message: message, Params: params}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Message)
}

// Unwrap permite errors.Is(err, domain.ErrXxx).
func (e *Error) Unwrap() error {
	return e.Kind
}

// ParamsOf devuelve los parámetros del error de dominio, o nil si err no es *Error.
func ParamsOf(err error) map[string]any {
	var de *Error
	if errors.As(err, &de) {
		return de.Params
	}
	return nil
}

// IsRetryable informa si el llamador puede recargar y reintentar la operación.
// Solo la modificación concurrente es transitoria; el resto son violaciones de precondición.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
