package entity

import "time"

// Permission capacidad que se puede otorgar por rol o por etapa.
type Permission string

// Vocabulario de permisos.
const (
	PermissionView           Permission = "view"
	PermissionEdit           Permission = "edit"
	PermissionQCCheck        Permission = "qc_check"
	PermissionReceive        Permission = "receive"
	PermissionSubmit         Permission = "submit"
	PermissionApprove        Permission = "approve"
	PermissionReject         Permission = "reject"
	PermissionReturn         Permission = "return"
	PermissionCancel         Permission = "cancel"
	PermissionManageWorkflow Permission = "manage_workflow"
)

var validPermissions = map[Permission]bool{
	PermissionView: true, PermissionEdit: true, PermissionQCCheck: true, PermissionReceive: true,
	PermissionSubmit: true, PermissionApprove: true, PermissionReject: true, PermissionReturn: true,
	PermissionCancel: true, PermissionManageWorkflow: true,
}

// IsValid informa si el permiso pertenece al vocabulario conocido.
func (p Permission) IsValid() bool { return validPermissions[p] }

// StagePermission otorga permisos a un usuario sobre una etapa, con vencimiento opcional.
// Un grant inactivo o vencido equivale a no tenerlo.
type StagePermission struct {
	ID          string
	UserID      string
	StageID     string
	Permissions []Permission
	ExpiresAt   *time.Time
	AssignedBy  string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ActiveAt informa si el grant está activo y sin vencer en el instante now.
func (p *StagePermission) ActiveAt(now time.Time) bool {
	if !p.IsActive {
		return false
	}
	return p.ExpiresAt == nil || now.Before(*p.ExpiresAt)
}

// Has informa si el grant contiene el permiso (sin mirar vigencia).
func (p *StagePermission) Has(perm Permission) bool {
	for _, x := range p.Permissions {
		if x == perm {
			return true
		}
	}
	return false
}
