package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndCheckPassword(t *testing.T) {
	user := &User{}
	require.NoError(t, user.SetPassword("s3cret-pass"))

	assert.NotEqual(t, "s3cret-pass", user.Password)
	assert.True(t, user.CheckPassword("s3cret-pass"))
	assert.False(t, user.CheckPassword("wrong"))
}

func TestFullName(t *testing.T) {
	u := &User{FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com"}
	assert.Equal(t, "Grace Hopper", u.FullName())

	u = &User{LastName: "Hopper", Email: "grace@example.com"}
	assert.Equal(t, "Hopper", u.FullName())

	u = &User{Email: "grace@example.com"}
	assert.Equal(t, "grace@example.com", u.FullName())
}

func TestSanitizeOmitsSecrets(t *testing.T) {
	u := &User{
		BaseModel:         BaseModel{ID: "user-1"},
		Email:             "pat@example.com",
		Password:          "hashed",
		Role:              RolePatient,
		EmailVerified:     true,
		VerificationToken: "tok",
	}
	s := u.Sanitize()
	assert.Equal(t, "user-1", s.ID)
	assert.Equal(t, "pat@example.com", s.Email)
	assert.Equal(t, RolePatient, s.Role)
	assert.True(t, s.EmailVerified)
}
