package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/wardtrack/wardtrack/internal/domain/audit"
	"github.com/wardtrack/wardtrack/internal/platform/auth"
	"github.com/wardtrack/wardtrack/internal/platform/db"
)

var (
	// ErrPlaceholderMissing means the reserved unassigned-census account is
	// gone. That is a deployment fault, not a user error.
	ErrPlaceholderMissing = errors.New("placeholder user is missing")

	ErrInvalidCredentials = errors.New("invalid username or password")
)

// AuditRecorder appends auth events to the audit log.
type AuditRecorder interface {
	RecordAuthEvent(ctx context.Context, event, username, ip, userAgent string, userID *uuid.UUID) error
}

type Service struct {
	users  Repository
	audits AuditRecorder
	jwtCfg auth.JWTConfig
}

func NewService(users Repository, audits AuditRecorder, jwtCfg auth.JWTConfig) *Service {
	return &Service{users: users, audits: audits, jwtCfg: jwtCfg}
}

// EnsurePlaceholder creates the reserved account if the seed migration was
// bypassed. Safe to call on every startup.
func (s *Service) EnsurePlaceholder(ctx context.Context) (*User, error) {
	u, err := s.users.GetByUsername(ctx, PlaceholderUsername)
	if err == nil {
		return u, nil
	}
	if !db.IsNotFound(err) {
		return nil, err
	}

	u = &User{
		Username:  PlaceholderUsername,
		FirstName: "TO BE",
		LastName:  "ASSIGNED",
		IsActive:  true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		// Lost a startup race with another instance.
		if db.IsUniqueViolation(err, "") {
			return s.users.GetByUsername(ctx, PlaceholderUsername)
		}
		return nil, err
	}
	return u, nil
}

// Placeholder resolves the reserved account, failing loudly when it is
// missing so clear-attending operations surface a configuration error
// instead of silently misassigning.
func (s *Service) Placeholder(ctx context.Context) (*User, error) {
	u, err := s.users.GetByUsername(ctx, PlaceholderUsername)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, ErrPlaceholderMissing
		}
		return nil, err
	}
	return u, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) GetByUsername(ctx context.Context, username string) (*User, error) {
	return s.users.GetByUsername(ctx, username)
}

func (s *Service) ListActive(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.users.ListActive(ctx, limit, offset)
}

func (s *Service) Create(ctx context.Context, u *User, password string) error {
	if u.Username == "" {
		return fmt.Errorf("username is required")
	}
	if u.Username == PlaceholderUsername {
		return fmt.Errorf("username %q is reserved", PlaceholderUsername)
	}
	if password == "" {
		return fmt.Errorf("password is required")
	}
	u.PasswordHash = HashPassword(password)
	u.IsActive = true
	return s.users.Create(ctx, u)
}

// Login verifies credentials and issues a bearer token. Every attempt lands
// in the audit log, success or not. The failure reason is never revealed:
// unknown username, wrong password, inactive account, and the placeholder
// all return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password, ip, userAgent string) (string, *User, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if db.IsNotFound(err) {
			_ = s.audits.RecordAuthEvent(ctx, audit.EventLoginFailed, username, ip, userAgent, nil)
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if !u.IsActive || u.IsPlaceholder() || !u.CheckPassword(password) {
		_ = s.audits.RecordAuthEvent(ctx, audit.EventLoginFailed, username, ip, userAgent, &u.ID)
		return "", nil, ErrInvalidCredentials
	}

	token, err := auth.IssueToken(s.jwtCfg, u.ID, u.Username, u.Roles)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	if err := s.audits.RecordAuthEvent(ctx, audit.EventLoginSuccess, username, ip, userAgent, &u.ID); err != nil {
		return "", nil, err
	}
	return token, u, nil
}

func (s *Service) Logout(ctx context.Context, userID uuid.UUID, username, ip, userAgent string) error {
	var id *uuid.UUID
	if userID != uuid.Nil {
		id = &userID
	}
	return s.audits.RecordAuthEvent(ctx, audit.EventLogout, username, ip, userAgent, id)
}
