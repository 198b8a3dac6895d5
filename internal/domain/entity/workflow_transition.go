package entity

import "time"

// WorkflowTransition regla (etapa origen, acción) → etapa destino.
// Conditions es una expresión booleana evaluada contra la instantánea del registro
// (ej. `rejected_items == 0 && priority != "urgent"`). Vacía = siempre aplica.
type WorkflowTransition struct {
	ID             string
	FromStageID    string
	ToStageID      string
	Action         Action
	Conditions     string
	AutoTransition bool
	RequiredFields []string // claves de la instantánea que deben estar presentes y no vacías
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
