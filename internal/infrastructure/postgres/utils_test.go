package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/farmadist-api/internal/domain/entity"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(errors.New("timeout")))
}

func TestConversionesDeArreglos(t *testing.T) {
	acts := []entity.Action{entity.ActionQCCheck, entity.ActionSubmit}
	assert.Equal(t, acts, textToActions(actionsToText(acts)))

	perms := []entity.Permission{entity.PermissionApprove}
	assert.Equal(t, perms, textToPermissions(permissionsToText(perms)))

	assert.Equal(t, []string{}, orEmpty(nil))
	assert.Nil(t, nullIfEmpty(""))
	assert.Equal(t, "x", deref(nullIfEmpty("x")))
}
