package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/wardtrack/wardtrack/internal/platform/auth"
)

func listRequest(t *testing.T, h *Handler, recipientID uuid.UUID, query string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/notifications"+query, nil)
	ctx := context.WithValue(req.Context(), auth.UserIDKey, recipientID.String())
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.List(c); err != nil {
		t.Fatalf("list: %v", err)
	}
	return rec
}

func decodeList(t *testing.T, rec *httptest.ResponseRecorder) (items []*Notification, total int) {
	t.Helper()
	var body struct {
		Data  []*Notification `json:"data"`
		Total int             `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body.Data, body.Total
}

func TestListDefaultsToAllVisible(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	h := NewHandler(svc)
	recipient := uuid.New()

	read, err := svc.Push(context.Background(), recipient, nil, KindGeneric, LevelInfo, "read one", midday)
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if _, err := svc.MarkRead(context.Background(), recipient, read.ID, midday); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if _, err := svc.Push(context.Background(), recipient, nil, KindGeneric, LevelInfo, "unread one", midday); err != nil {
		t.Fatalf("push: %v", err)
	}

	// No show param: both notifications, unread first.
	items, total := decodeList(t, listRequest(t, h, recipient, ""))
	if total != 2 || len(items) != 2 {
		t.Fatalf("default list returned %d items (total %d), want 2", len(items), total)
	}
	if items[0].Message != "unread one" {
		t.Errorf("first item = %q, want the unread notification", items[0].Message)
	}

	// An unrecognized value behaves like the default.
	if _, total := decodeList(t, listRequest(t, h, recipient, "?show=bogus")); total != 2 {
		t.Errorf("show=bogus total = %d, want 2", total)
	}

	// show=unread opts into the filter.
	items, total = decodeList(t, listRequest(t, h, recipient, "?show=unread"))
	if total != 1 || len(items) != 1 || items[0].Message != "unread one" {
		t.Fatalf("show=unread returned %d items (total %d), want only the unread notification", len(items), total)
	}

	// show=all is the explicit spelling of the default.
	if _, total := decodeList(t, listRequest(t, h, recipient, "?show=all")); total != 2 {
		t.Errorf("show=all total = %d, want 2", total)
	}
}
