package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/existflow/taskboard/internal/apperr"
)

func TestRegister(t *testing.T) {
	f := newFixture(t)

	sess, err := f.svc.Auth.Register(f.ctx, RegisterInput{Name: " Ada ", Email: "Ada@Example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", sess.User.Name)
	assert.Equal(t, "ada@example.com", sess.User.Email)
	assert.NotEmpty(t, sess.Token)

	_, err = f.svc.Auth.Register(f.ctx, RegisterInput{Name: "Other", Email: "ada@example.com", Password: "secret1"})
	requireKind(t, err, apperr.Validation, "User with this email already exists")
}

func TestRegister_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Auth.Register(f.ctx, RegisterInput{Name: "", Email: "nope", Password: "123"})
	requireKind(t, err, apperr.Validation, "Validation error")

	e, _ := apperr.As(err)
	fields := map[string]string{}
	for _, fe := range e.Fields {
		fields[fe.Field] = fe.Message
	}
	assert.Equal(t, "name is required", fields["name"])
	assert.Equal(t, "Invalid email address", fields["email"])
	assert.Equal(t, "password must be at least 6 characters", fields["password"])
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	f.user("grace")

	sess, err := f.svc.Auth.Login(f.ctx, LoginInput{Email: "GRACE@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", sess.User.Email)

	_, err = f.svc.Auth.Login(f.ctx, LoginInput{Email: "grace@example.com", Password: "wrong"})
	requireKind(t, err, apperr.Unauthorized, "Invalid email or password")

	_, err = f.svc.Auth.Login(f.ctx, LoginInput{Email: "nobody@example.com", Password: "secret123"})
	requireKind(t, err, apperr.Unauthorized, "Invalid email or password")
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ada := f.user("ada")
	f.user("bob")

	u, err := f.svc.Auth.UpdateProfile(f.ctx, ada, ProfileInput{Name: ptr("Ada L")})
	require.NoError(t, err)
	assert.Equal(t, "Ada L", u.Name)
	assert.Equal(t, "ada@example.com", u.Email)

	_, err = f.svc.Auth.UpdateProfile(f.ctx, ada, ProfileInput{Email: ptr("bob@example.com")})
	requireKind(t, err, apperr.Validation, "Email already in use")

	// keeping one's own email is fine
	_, err = f.svc.Auth.UpdateProfile(f.ctx, ada, ProfileInput{Email: ptr("ada@example.com")})
	assert.NoError(t, err)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	ada := f.user("ada")

	err := f.svc.Auth.ChangePassword(f.ctx, ada, PasswordInput{CurrentPassword: "bad", NewPassword: "newsecret"})
	requireKind(t, err, apperr.Validation, "Current password is incorrect")

	require.NoError(t, f.svc.Auth.ChangePassword(f.ctx, ada, PasswordInput{CurrentPassword: "secret123", NewPassword: "newsecret"}))

	_, err = f.svc.Auth.Login(f.ctx, LoginInput{Email: "ada@example.com", Password: "newsecret"})
	assert.NoError(t, err)
}

func TestMe(t *testing.T) {
	f := newFixture(t)
	ada := f.user("ada")

	u, err := f.svc.Auth.Me(f.ctx, ada)
	require.NoError(t, err)
	assert.Equal(t, ada.ID, u.ID)

	ada.ID = "missing"
	_, err = f.svc.Auth.Me(f.ctx, ada)
	requireKind(t, err, apperr.NotFound, "User not found")
}
