package jwt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/farmadist-api/pkg/jwt"
)

func TestGenerateParse_ConservaRolYPermisos(t *testing.T) {
	tok, err := jwt.Generate("s3cr3t", "u-1", "calidad", []string{"approve"}, "farmadist-api", 5)
	require.NoError(t, err)

	c, err := jwt.Parse("s3cr3t", tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", c.UserID)
	assert.Equal(t, "calidad", c.Role)
	assert.Equal(t, []string{"approve"}, c.Permissions)
}

func TestParse_FirmaIncorrecta(t *testing.T) {
	tok, err := jwt.Generate("uno", "u-1", "admin", nil, "farmadist-api", 5)
	require.NoError(t, err)
	_, err = jwt.Parse("otro", tok)
	assert.Error(t, err)
}

func TestParse_Expirado(t *testing.T) {
	tok, err := jwt.Generate("s", "u-1", "admin", nil, "farmadist-api", -1)
	require.NoError(t, err)
	_, err = jwt.Parse("s", tok)
	assert.Error(t, err)
}

func TestGenerate_SecretVacio(t *testing.T) {
	_, err := jwt.Generate("", "u-1", "admin", nil, "i", 5)
	assert.Error(t, err)
}
