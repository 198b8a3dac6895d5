package entity

// Roles válidos para el usuario autenticado.
const (
	RoleAdmin     = "admin"
	RoleGerente   = "gerente"
	RoleCalidad   = "calidad"
	RoleBodeguero = "bodeguero"
	RoleVendedor  = "vendedor"
)

// Actor es el usuario que ejecuta una acción, tal como lo entrega la capa de autenticación.
// Se pasa explícitamente a cada caso de uso; el motor no consulta estado global de sesión.
type Actor struct {
	ID          string
	Role        string
	Permissions []Permission // permisos globales adicionales al rol
}

// HasGlobal informa si el actor trae el permiso explícito (sin considerar el rol).
func (a Actor) HasGlobal(perm Permission) bool {
	for _, p := range a.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}
