// Package permission contiene las reglas puras del modelo de permisos: permisos globales por rol,
// grants por etapa con vencimiento y la diferencia simétrica de asignaciones masivas.
package permission

import (
	"sort"
	"time"

	"github.com/jhoicas/farmadist-api/internal/domain/entity"
)

var rolePermissions = map[string][]entity.Permission{
	entity.RoleGerente: {
		entity.PermissionView, entity.PermissionEdit, entity.PermissionSubmit,
		entity.PermissionApprove, entity.PermissionReject, entity.PermissionReturn,
	},
	entity.RoleCalidad: {
		entity.PermissionView, entity.PermissionQCCheck, entity.PermissionSubmit,
	},
	entity.RoleBodeguero: {
		entity.PermissionView, entity.PermissionEdit, entity.PermissionReceive, entity.PermissionSubmit,
	},
	entity.RoleVendedor: {
		entity.PermissionView,
	},
}

// RoleCan informa si el rol otorga el permiso de forma global. admin lo tiene todo.
func RoleCan(role string, perm entity.Permission) bool {
	if role == entity.RoleAdmin {
		return true
	}
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// Global informa si el actor tiene el permiso sin importar la etapa (rol o permiso explícito).
func Global(actor entity.Actor, perm entity.Permission) bool {
	return RoleCan(actor.Role, perm) || actor.HasGlobal(perm)
}

// Evaluate aplica la regla completa: permiso global, o un grant activo y sin vencer del
// actor sobre la etapa que contenga el permiso. now debe ser la hora de la llamada.
func Evaluate(actor entity.Actor, stageID string, perm entity.Permission, grants []entity.StagePermission, now time.Time) bool {
	if Global(actor, perm) {
		return true
	}
	for i := range grants {
		g := &grants[i]
		if g.UserID != actor.ID || g.StageID != stageID {
			continue
		}
		if g.ActiveAt(now) && g.Has(perm) {
			return true
		}
	}
	return false
}

// Merge une permisos sin duplicar. changed es false si current ya contenía todos.
func Merge(current, add []entity.Permission) (merged []entity.Permission, changed bool) {
	seen := make(map[entity.Permission]bool, len(current)+len(add))
	for _, p := range current {
		if !seen[p] {
			seen[p] = true
			merged = append(merged, p)
		}
	}
	for _, p := range add {
		if !seen[p] {
			seen[p] = true
			merged = append(merged, p)
			changed = true
		}
	}
	return merged, changed
}

// AssignmentDiff operaciones necesarias para llevar el conjunto activo al deseado.
type AssignmentDiff struct {
	Assign []string
	Revoke []string
}

// Empty informa si no hay operaciones.
func (d AssignmentDiff) Empty() bool {
	return len(d.Assign) == 0 && len(d.Revoke) == 0
}

// Diff calcula la diferencia simétrica: una operación por usuario que cambió, cero para el resto.
func Diff(current, desired []string) AssignmentDiff {
	cur := toSet(current)
	want := toSet(desired)
	var d AssignmentDiff
	for u := range want {
		if !cur[u] {
			d.Assign = append(d.Assign, u)
		}
	}
	for u := range cur {
		if !want[u] {
			d.Revoke = append(d.Revoke, u)
		}
	}
	sort.Strings(d.Assign)
	sort.Strings(d.Revoke)
	return d
}

func toSet(ids []string) map[string]bool {
	s := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id != "" {
			s[id] = true
		}
	}
	return s
}
