package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

var testCfg = JWTConfig{
	Issuer:     "wardtrack",
	SigningKey: []byte("test-signing-key"),
	TokenTTL:   time.Hour,
}

func authedRequest(t *testing.T, e *echo.Echo, token string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	e := echo.New()
	userID := uuid.New()
	token, err := IssueToken(testCfg, userID, "drhouse", []string{"physician"})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	c, _ := authedRequest(t, e, token)
	h := JWTMiddleware(testCfg)(func(c echo.Context) error {
		if got := UserIDFromContext(c.Request().Context()); got != userID {
			t.Errorf("expected user id %s in context, got %s", userID, got)
		}
		if got := UsernameFromContext(c.Request().Context()); got != "drhouse" {
			t.Errorf("expected username drhouse, got %q", got)
		}
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	e := echo.New()
	c, _ := authedRequest(t, e, "")
	h := JWTMiddleware(testCfg)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	err := h(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestJWTMiddleware_WrongKey(t *testing.T) {
	e := echo.New()
	other := JWTConfig{Issuer: "wardtrack", SigningKey: []byte("other-key")}
	token, _ := IssueToken(other, uuid.New(), "x", nil)

	c, _ := authedRequest(t, e, token)
	h := JWTMiddleware(testCfg)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	err := h(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for wrong key, got %v", err)
	}
}

func TestJWTMiddleware_WrongIssuer(t *testing.T) {
	e := echo.New()
	other := JWTConfig{Issuer: "someone-else", SigningKey: testCfg.SigningKey}
	token, _ := IssueToken(other, uuid.New(), "x", nil)

	c, _ := authedRequest(t, e, token)
	h := JWTMiddleware(testCfg)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err == nil {
		t.Error("expected error for wrong issuer")
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	token, _ := IssueToken(testCfg, uuid.New(), "nurse1", []string{"nurse"})

	c, _ := authedRequest(t, e, token)
	inner := RequireRole("physician", "admin")(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	h := JWTMiddleware(testCfg)(inner)
	err := h(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Errorf("expected 403 for missing role, got %v", err)
	}

	token, _ = IssueToken(testCfg, uuid.New(), "doc1", []string{"physician"})
	c, _ = authedRequest(t, e, token)
	if err := h(c); err != nil {
		t.Errorf("expected physician role to pass, got %v", err)
	}
}

func TestUserIDFromContext_Unauthenticated(t *testing.T) {
	if got := UserIDFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context()); got != uuid.Nil {
		t.Errorf("expected uuid.Nil, got %s", got)
	}
}
