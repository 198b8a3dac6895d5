package dto

import "time"

// StageRequest alta o edición de una etapa. Code vacío se deriva de Name.
type StageRequest struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name" validate:"required"`
	Code                string   `json:"code"`
	DocumentType        string   `json:"document_type" validate:"required"`
	Sequence            int      `json:"sequence"`
	AllowedActions      []string `json:"allowed_actions"`
	RequiredPermissions []string `json:"required_permissions"`
	NextStages          []string `json:"next_stages"`
	ReturnStages        []string `json:"return_stages"`
	IsActive            *bool    `json:"is_active"`
}

// StageResponse etapa del flujo.
type StageResponse struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Code                string    `json:"code"`
	DocumentType        string    `json:"document_type"`
	Sequence            int       `json:"sequence"`
	AllowedActions      []string  `json:"allowed_actions"`
	RequiredPermissions []string  `json:"required_permissions"`
	NextStages          []string  `json:"next_stages"`
	ReturnStages        []string  `json:"return_stages"`
	IsActive            bool      `json:"is_active"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// TransitionRequest alta o edición de una transición.
type TransitionRequest struct {
	ID             string   `json:"id"`
	FromStageID    string   `json:"from_stage_id" validate:"required"`
	ToStageID      string   `json:"to_stage_id" validate:"required"`
	Action         string   `json:"action" validate:"required"`
	Conditions     string   `json:"conditions"`
	AutoTransition bool     `json:"auto_transition"`
	RequiredFields []string `json:"required_fields"`
	IsActive       *bool    `json:"is_active"`
}

// TransitionResponse transición del flujo.
type TransitionResponse struct {
	ID             string    `json:"id"`
	FromStageID    string    `json:"from_stage_id"`
	ToStageID      string    `json:"to_stage_id"`
	Action         string    `json:"action"`
	Conditions     string    `json:"conditions,omitempty"`
	AutoTransition bool      `json:"auto_transition"`
	RequiredFields []string  `json:"required_fields"`
	IsActive       bool      `json:"is_active"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// WorkflowResponse configuración completa del flujo.
type WorkflowResponse struct {
	Stages      []StageResponse      `json:"stages"`
	Transitions []TransitionResponse `json:"transitions"`
}

// ResolvePreviewRequest simula la resolución de una transición contra una instantánea dada.
type ResolvePreviewRequest struct {
	FromStageID string         `json:"from_stage_id" validate:"required"`
	Action      string         `json:"action" validate:"required"`
	Snapshot    map[string]any `json:"snapshot"`
}

// ResolvePreviewResponse resultado de la simulación.
type ResolvePreviewResponse struct {
	TransitionID string `json:"transition_id"`
	FromStageID  string `json:"from_stage_id"`
	ToStageID    string `json:"to_stage_id"`
	ToStageCode  string `json:"to_stage_code"`
	ToStageName  string `json:"to_stage_name"`
}
