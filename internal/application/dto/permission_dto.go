package dto

import "time"

// AssignPermissionRequest otorga permisos a un usuario sobre una etapa.
// Si ya existe un grant activo, los permisos se unen.
type AssignPermissionRequest struct {
	UserID      string     `json:"user_id" validate:"required"`
	StageID     string     `json:"stage_id" validate:"required"`
	Permissions []string   `json:"permissions" validate:"required,min=1"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// RevokePermissionRequest desactiva el grant de un usuario sobre una etapa.
type RevokePermissionRequest struct {
	UserID  string `json:"user_id" validate:"required"`
	StageID string `json:"stage_id" validate:"required"`
}

// UpdateAssignmentsRequest deja exactamente a UserIDs con grant activo sobre la etapa.
type UpdateAssignmentsRequest struct {
	StageID     string     `json:"stage_id" validate:"required"`
	UserIDs     []string   `json:"user_ids"`
	Permissions []string   `json:"permissions" validate:"required,min=1"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// AssignmentDiffResponse usuarios a los que se asignó o revocó en la operación.
type AssignmentDiffResponse struct {
	StageID  string   `json:"stage_id"`
	Assigned []string `json:"assigned"`
	Revoked  []string `json:"revoked"`
}

// StagePermissionResponse grant vigente.
type StagePermissionResponse struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	StageID     string     `json:"stage_id"`
	Permissions []string   `json:"permissions"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	AssignedBy  string     `json:"assigned_by"`
	IsActive    bool       `json:"is_active"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CheckPermissionResponse resultado de has_permission.
type CheckPermissionResponse struct {
	UserID     string `json:"user_id"`
	StageID    string `json:"stage_id"`
	Permission string `json:"permission"`
	Allowed    bool   `json:"allowed"`
}
