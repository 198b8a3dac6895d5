package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/farmadist-api/internal/domain/entity"
)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "23505")
}

// isLockNotAvailable detecta lock_timeout vencido (55P03).
func isLockNotAvailable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "55P03"
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func actionsToText(in []entity.Action) []string {
	out := make([]string, len(in))
	for i, a := range in {
		out[i] = string(a)
	}
	return out
}

func textToActions(in []string) []entity.Action {
	out := make([]entity.Action, len(in))
	for i, a := range in {
		out[i] = entity.Action(a)
	}
	return out
}

func permissionsToText(in []entity.Permission) []string {
	out := make([]string, len(in))
	for i, p := range in {
		out[i] = string(p)
	}
	return out
}

func textToPermissions(in []string) []entity.Permission {
	out := make([]entity.Permission, len(in))
	for i, p := range in {
		out[i] = entity.Permission(p)
	}
	return out
}

// orEmpty evita NULL en columnas text[] NOT NULL.
func orEmpty(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
