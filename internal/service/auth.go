package service

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/existflow/taskboard/internal/apperr"
	"github.com/existflow/taskboard/internal/auth"
	"github.com/existflow/taskboard/internal/model"
	"github.com/existflow/taskboard/internal/store"
)

// RegisterInput is the body of a registration
type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginInput is the body of a login
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ProfileInput changes the caller's profile. Absent fields are left alone.
type ProfileInput struct {
	Name   *string `json:"name" validate:"omitnil,min=1,max=100"`
	Email  *string `json:"email" validate:"omitnil,email"`
	Avatar *string `json:"avatar" validate:"omitnil,max=500"`
}

// PasswordInput changes the caller's password
type PasswordInput struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

// Session is the result of a successful register or login
type Session struct {
	User      *model.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// AuthService manages accounts and issues tokens
type AuthService struct {
	store  store.Store
	tokens *auth.TokenManager
}

// NewAuthService creates a new authentication service
func NewAuthService(st store.Store, tokens *auth.TokenManager) *AuthService {
	return &AuthService{store: st, tokens: tokens}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account and signs it in
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := check(in); err != nil {
		return nil, err
	}

	const taken = "User with this email already exists"
	if _, err := s.store.GetUserByEmail(ctx, in.Email); err == nil {
		return nil, apperr.BadRequest(taken)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &model.User{Name: in.Name, Email: in.Email, PasswordHash: hash, Role: model.RoleMember}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Wrap(err, apperr.Validation, taken)
		}
		return nil, err
	}
	return s.session(u)
}

// Login checks credentials and issues a token
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := check(in); err != nil {
		return nil, err
	}

	const invalid = "Invalid email or password"
	u, err := s.store.GetUserByEmail(ctx, in.Email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Unauthenticated(invalid)
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(u.PasswordHash, in.Password) {
		return nil, apperr.Unauthenticated(invalid)
	}
	return s.session(u)
}

func (s *AuthService) session(u *model.User) (*Session, error) {
	token, expires, err := s.tokens.Generate(auth.Identity{ID: u.ID, Email: u.Email, Name: u.Name})
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign token")
	}
	return &Session{User: u, Token: token, ExpiresAt: expires}, nil
}

// Me returns the caller's account
func (s *AuthService) Me(ctx context.Context, me auth.Identity) (*model.User, error) {
	u, err := s.store.GetUser(ctx, me.ID)
	if err != nil {
		return nil, notFound(err, "User not found")
	}
	return u, nil
}

// UpdateProfile changes the caller's name, email or avatar
func (s *AuthService) UpdateProfile(ctx context.Context, me auth.Identity, in ProfileInput) (*model.User, error) {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		in.Name = &name
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		in.Email = &email
	}
	if err := check(in); err != nil {
		return nil, err
	}

	const taken = "Email already in use"
	if in.Email != nil {
		other, err := s.store.GetUserByEmail(ctx, *in.Email)
		switch {
		case err == nil && other.ID != me.ID:
			return nil, apperr.BadRequest(taken)
		case err != nil && !errors.Is(err, store.ErrNotFound):
			return nil, err
		}
	}

	u, err := s.store.UpdateUser(ctx, me.ID, store.UserUpdate{Name: in.Name, Email: in.Email, Avatar: in.Avatar})
	if errors.Is(err, store.ErrDuplicate) {
		return nil, apperr.Wrap(err, apperr.Validation, taken)
	}
	if err != nil {
		return nil, notFound(err, "User not found")
	}
	return u, nil
}

// ChangePassword replaces the caller's password after checking the current one
func (s *AuthService) ChangePassword(ctx context.Context, me auth.Identity, in PasswordInput) error {
	if err := check(in); err != nil {
		return err
	}
	u, err := s.store.GetUser(ctx, me.ID)
	if err != nil {
		return notFound(err, "User not found")
	}
	if !auth.CheckPassword(u.PasswordHash, in.CurrentPassword) {
		return apperr.BadRequest("Current password is incorrect")
	}
	hash, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		return err
	}
	return notFound(s.store.SetPassword(ctx, me.ID, hash), "User not found")
}
