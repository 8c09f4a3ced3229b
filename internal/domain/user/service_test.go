package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wardtrack/wardtrack/internal/domain/audit"
	"github.com/wardtrack/wardtrack/internal/platform/auth"
)

// -- Mocks --

type mockRepo struct {
	items map[uuid.UUID]*User
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[uuid.UUID]*User)}
}

func (m *mockRepo) Create(_ context.Context, u *User) error {
	for _, existing := range m.items {
		if existing.Username == u.Username {
			return errors.New("duplicate key value violates unique constraint")
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.items[u.ID] = u
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return u, nil
}

func (m *mockRepo) GetByUsername(_ context.Context, username string) (*User, error) {
	for _, u := range m.items {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockRepo) Update(_ context.Context, u *User) error {
	m.items[u.ID] = u
	return nil
}

func (m *mockRepo) ListActive(_ context.Context, limit, offset int) ([]*User, int, error) {
	var items []*User
	for _, u := range m.items {
		if u.IsActive && u.Username != PlaceholderUsername {
			items = append(items, u)
		}
	}
	return items, len(items), nil
}

type recordedEvent struct {
	event    string
	username string
	userID   *uuid.UUID
}

type mockAudit struct {
	events []recordedEvent
}

func (m *mockAudit) RecordAuthEvent(_ context.Context, event, username, ip, userAgent string, userID *uuid.UUID) error {
	m.events = append(m.events, recordedEvent{event: event, username: username, userID: userID})
	return nil
}

// -- Helpers --

var testJWT = auth.JWTConfig{Issuer: "wardtrack", SigningKey: []byte("test-key")}

func newTestService(repo *mockRepo, audits *mockAudit) *Service {
	return NewService(repo, audits, testJWT)
}

func seedUser(t *testing.T, svc *Service, username, password string) *User {
	t.Helper()
	u := &User{Username: username, FirstName: "Greg", LastName: "House", Roles: []string{"physician"}}
	if err := svc.Create(context.Background(), u, password); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

// -- Tests --

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name string
		u    User
		want string
	}{
		{"full name", User{Username: "gh", FirstName: "Greg", LastName: "House"}, "House, Greg"},
		{"last only", User{Username: "gh", LastName: "House"}, "House"},
		{"username fallback", User{Username: "gh"}, "gh"},
		{"placeholder", User{Username: PlaceholderUsername, FirstName: "TO BE", LastName: "ASSIGNED"}, "TO BE ASSIGNED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.u.DisplayName(); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCheckPassword(t *testing.T) {
	u := &User{PasswordHash: HashPassword("s3cret")}
	if !u.CheckPassword("s3cret") {
		t.Error("expected matching password to pass")
	}
	if u.CheckPassword("wrong") {
		t.Error("expected wrong password to fail")
	}
	empty := &User{}
	if empty.CheckPassword("") {
		t.Error("empty stored hash must never match")
	}
}

func TestEnsurePlaceholder_CreatesOnce(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &mockAudit{})

	first, err := svc.EnsurePlaceholder(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Username != PlaceholderUsername {
		t.Errorf("expected placeholder username, got %q", first.Username)
	}

	second, err := svc.EnsurePlaceholder(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.ID != first.ID {
		t.Error("expected the same placeholder row on repeat calls")
	}
	if len(repo.items) != 1 {
		t.Errorf("expected 1 user, got %d", len(repo.items))
	}
}

func TestPlaceholder_MissingIsConfigurationError(t *testing.T) {
	svc := newTestService(newMockRepo(), &mockAudit{})
	_, err := svc.Placeholder(context.Background())
	if !errors.Is(err, ErrPlaceholderMissing) {
		t.Errorf("expected ErrPlaceholderMissing, got %v", err)
	}
}

func TestCreate_ReservedUsername(t *testing.T) {
	svc := newTestService(newMockRepo(), &mockAudit{})
	u := &User{Username: PlaceholderUsername}
	if err := svc.Create(context.Background(), u, "pw"); err == nil {
		t.Error("expected reserved username to be rejected")
	}
}

func TestLogin_Success(t *testing.T) {
	repo := newMockRepo()
	audits := &mockAudit{}
	svc := newTestService(repo, audits)
	u := seedUser(t, svc, "drhouse", "vicodin")

	token, got, err := svc.Login(context.Background(), "drhouse", "vicodin", "10.0.0.1", "test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token == "" {
		t.Error("expected a token")
	}
	if got.ID != u.ID {
		t.Error("expected the logged-in user returned")
	}
	if len(audits.events) != 1 || audits.events[0].event != audit.EventLoginSuccess {
		t.Fatalf("expected one LOGIN_SUCCESS event, got %+v", audits.events)
	}
	if audits.events[0].userID == nil || *audits.events[0].userID != u.ID {
		t.Error("expected user id on the audit event")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	repo := newMockRepo()
	audits := &mockAudit{}
	svc := newTestService(repo, audits)
	seedUser(t, svc, "drhouse", "vicodin")

	_, _, err := svc.Login(context.Background(), "drhouse", "wrong", "", "")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if len(audits.events) != 1 || audits.events[0].event != audit.EventLoginFailed {
		t.Errorf("expected LOGIN_FAILED recorded, got %+v", audits.events)
	}
}

func TestLogin_UnknownUsername(t *testing.T) {
	audits := &mockAudit{}
	svc := newTestService(newMockRepo(), audits)

	_, _, err := svc.Login(context.Background(), "ghost", "pw", "", "")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if len(audits.events) != 1 || audits.events[0].userID != nil {
		t.Error("expected LOGIN_FAILED with nil user for unknown username")
	}
}

func TestLogin_InactiveAndPlaceholderRejected(t *testing.T) {
	repo := newMockRepo()
	audits := &mockAudit{}
	svc := newTestService(repo, audits)

	inactive := seedUser(t, svc, "retired", "pw")
	inactive.IsActive = false

	if _, _, err := svc.Login(context.Background(), "retired", "pw", "", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected inactive account rejected, got %v", err)
	}

	_, _ = svc.EnsurePlaceholder(context.Background())
	if _, _, err := svc.Login(context.Background(), PlaceholderUsername, "", "", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected placeholder login rejected, got %v", err)
	}
}

func TestLogout_Recorded(t *testing.T) {
	audits := &mockAudit{}
	svc := newTestService(newMockRepo(), audits)

	userID := uuid.New()
	if err := svc.Logout(context.Background(), userID, "drhouse", "10.0.0.1", "test"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(audits.events) != 1 || audits.events[0].event != audit.EventLogout {
		t.Fatalf("expected LOGOUT event, got %+v", audits.events)
	}
}

func TestListActive_ExcludesPlaceholder(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &mockAudit{})
	seedUser(t, svc, "drhouse", "pw")
	_, _ = svc.EnsurePlaceholder(context.Background())

	items, total, err := svc.ListActive(context.Background(), 25, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || items[0].Username != "drhouse" {
		t.Errorf("expected only the real user listed, got %d", total)
	}
}
