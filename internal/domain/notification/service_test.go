package notification

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// -- Mock Repository --

type mockRepo struct {
	items map[uuid.UUID]*Notification
	seq   int
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[uuid.UUID]*Notification)}
}

func (m *mockRepo) Create(_ context.Context, n *Notification) error {
	n.ID = uuid.New()
	// Monotonic created_at so ordering is deterministic.
	m.seq++
	n.CreatedAt = time.Date(2024, 1, 1, 0, 0, m.seq, 0, time.UTC)
	cp := *n
	m.items[n.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Notification, error) {
	n, ok := m.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *n
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, n *Notification) error {
	stored, ok := m.items[n.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.ReadAt = n.ReadAt
	stored.AcknowledgedAt = n.AcknowledgedAt
	return nil
}

func (m *mockRepo) DeletePendingAssignments(_ context.Context, patientID uuid.UUID, now time.Time) (int64, error) {
	var deleted int64
	for id, n := range m.items {
		if n.PatientID != nil && *n.PatientID == patientID && n.Kind == KindAssignment && n.VisibleAt.After(now) {
			delete(m.items, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *mockRepo) visible(recipientID uuid.UUID, now time.Time) []*Notification {
	var out []*Notification
	for _, n := range m.items {
		if n.RecipientID == recipientID && !n.VisibleAt.After(now) {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out
}

func (m *mockRepo) ListVisible(_ context.Context, recipientID uuid.UUID, onlyUnread bool, now time.Time, limit, offset int) ([]*Notification, int, error) {
	items := m.visible(recipientID, now)
	if onlyUnread {
		var unread []*Notification
		for _, n := range items {
			if n.ReadAt == nil {
				unread = append(unread, n)
			}
		}
		items = unread
	}
	sort.Slice(items, func(i, j int) bool {
		iu, ju := items[i].ReadAt == nil, items[j].ReadAt == nil
		if iu != ju {
			return iu
		}
		if !items[i].VisibleAt.Equal(items[j].VisibleAt) {
			return items[i].VisibleAt.After(items[j].VisibleAt)
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	total := len(items)
	if offset > len(items) {
		offset = len(items)
	}
	items = items[offset:]
	if limit < len(items) {
		items = items[:limit]
	}
	return items, total, nil
}

func (m *mockRepo) CountUnread(_ context.Context, recipientID uuid.UUID, now time.Time) (int, error) {
	n := 0
	for _, item := range m.visible(recipientID, now) {
		if item.ReadAt == nil {
			n++
		}
	}
	return n, nil
}

func (m *mockRepo) CountUnacknowledged(_ context.Context, recipientID uuid.UUID, now time.Time) (int, error) {
	n := 0
	for _, item := range m.visible(recipientID, now) {
		if item.AcknowledgedAt == nil {
			n++
		}
	}
	return n, nil
}

func (m *mockRepo) LatestVisible(_ context.Context, recipientID uuid.UUID, now time.Time) (*Notification, error) {
	items := m.visible(recipientID, now)
	if len(items) == 0 {
		return nil, pgx.ErrNoRows
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].VisibleAt.Equal(items[j].VisibleAt) {
			return items[i].VisibleAt.After(items[j].VisibleAt)
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items[0], nil
}

func (m *mockRepo) MarkAllRead(_ context.Context, recipientID uuid.UUID, now time.Time) (int64, error) {
	var marked int64
	for _, n := range m.items {
		if n.RecipientID == recipientID && !n.VisibleAt.After(now) && n.ReadAt == nil {
			at := now
			n.ReadAt = &at
			marked++
		}
	}
	return marked, nil
}

func (m *mockRepo) ListUnacknowledged(_ context.Context, recipientID uuid.UUID, after *Cursor, now time.Time, limit int) ([]*Notification, error) {
	var items []*Notification
	for _, n := range m.visible(recipientID, now) {
		if n.AcknowledgedAt != nil {
			continue
		}
		if after != nil {
			newer := n.VisibleAt.After(after.VisibleAt) ||
				(n.VisibleAt.Equal(after.VisibleAt) && n.CreatedAt.After(after.CreatedAt))
			if !newer {
				continue
			}
		}
		items = append(items, n)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].VisibleAt.Equal(items[j].VisibleAt) {
			return items[i].VisibleAt.After(items[j].VisibleAt)
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if limit < len(items) {
		items = items[:limit]
	}
	return items, nil
}

// -- Helpers --

var (
	midday  = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) // outside quiet hours
	evening = time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC) // inside quiet hours
)

func newTestService(repo *mockRepo) *Service {
	return NewService(repo, NewWindow(16, 7, time.UTC))
}

// -- Tests --

func TestPush_ImmediateOutsideQuietHours(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	recipient := uuid.New()

	n, err := svc.Push(context.Background(), recipient, nil, "", "", "lab results back", midday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !n.VisibleAt.Equal(midday) {
		t.Errorf("expected immediate visibility, got %v", n.VisibleAt)
	}
	if n.Kind != KindGeneric || n.Level != LevelInfo {
		t.Errorf("expected defaults generic/info, got %s/%s", n.Kind, n.Level)
	}
}

func TestPush_DeferredDuringQuietHours(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	n, err := svc.Push(context.Background(), uuid.New(), nil, KindGeneric, LevelWarning, "covering tonight", evening)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2024, 1, 2, 7, 0, 0, 0, time.UTC)
	if !n.VisibleAt.Equal(want) {
		t.Errorf("expected deferral to %v, got %v", want, n.VisibleAt)
	}
	if n.IsVisible(evening) {
		t.Error("deferred notification must not be visible yet")
	}
}

func TestPush_Validation(t *testing.T) {
	svc := newTestService(newMockRepo())
	if _, err := svc.Push(context.Background(), uuid.Nil, nil, "", "", "msg", midday); err == nil {
		t.Error("expected error for nil recipient")
	}
	if _, err := svc.Push(context.Background(), uuid.New(), nil, "", "", "", midday); err == nil {
		t.Error("expected error for empty message")
	}
	if _, err := svc.Push(context.Background(), uuid.New(), nil, "bogus", "", "msg", midday); err == nil {
		t.Error("expected error for invalid kind")
	}
	if _, err := svc.Push(context.Background(), uuid.New(), nil, "", "loud", "msg", midday); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestNotifyAssignment_SupersedesPending(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	patientID := uuid.New()
	first := uuid.New()
	second := uuid.New()

	// Two reassignments of the same patient during quiet hours: only the
	// second notification survives.
	if err := svc.NotifyAssignment(context.Background(), first, patientID, "Doe, John (MRN 1001)", evening); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.NotifyAssignment(context.Background(), second, patientID, "Doe, John (MRN 1001)", evening.Add(time.Minute)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var remaining []*Notification
	for _, n := range repo.items {
		if n.Kind == KindAssignment {
			remaining = append(remaining, n)
		}
	}
	if len(remaining) != 1 {
		t.Fatalf("expected 1 surviving assignment notification, got %d", len(remaining))
	}
	if remaining[0].RecipientID != second {
		t.Error("surviving notification should target the latest attending")
	}
}

func TestNotifyAssignment_DoesNotTouchDelivered(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	patientID := uuid.New()

	// Delivered at midday: already visible, must not be superseded later.
	if err := svc.NotifyAssignment(context.Background(), uuid.New(), patientID, "Doe, John (MRN 1001)", midday); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.NotifyAssignment(context.Background(), uuid.New(), patientID, "Doe, John (MRN 1001)", midday.Add(time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	count := 0
	for _, n := range repo.items {
		if n.Kind == KindAssignment {
			count++
		}
	}
	if count != 2 {
		t.Errorf("expected both delivered notifications kept, got %d", count)
	}
}

func TestMarkRead_Idempotent(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	recipient := uuid.New()

	n, _ := svc.Push(context.Background(), recipient, nil, "", "", "msg", midday)

	first, err := svc.MarkRead(context.Background(), recipient, n.ID, midday.Add(time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.MarkRead(context.Background(), recipient, n.ID, midday.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !second.ReadAt.Equal(*first.ReadAt) {
		t.Error("re-reading must keep the original read timestamp")
	}
}

func TestMarkUnread_Reverses(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	recipient := uuid.New()

	n, _ := svc.Push(context.Background(), recipient, nil, "", "", "msg", midday)
	_, _ = svc.MarkRead(context.Background(), recipient, n.ID, midday)

	un, err := svc.MarkUnread(context.Background(), recipient, n.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if un.ReadAt != nil {
		t.Error("expected read_at cleared")
	}
}

func TestAcknowledge_OneWayIdempotent(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	recipient := uuid.New()

	n, _ := svc.Push(context.Background(), recipient, nil, "", "", "msg", midday)

	first, err := svc.Acknowledge(context.Background(), recipient, n.ID, midday.Add(time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.Acknowledge(context.Background(), recipient, n.ID, midday.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !second.AcknowledgedAt.Equal(*first.AcknowledgedAt) {
		t.Error("re-acknowledging must keep the original timestamp")
	}
}

func TestToggles_OtherUsersNotificationReadsAsMissing(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	owner := uuid.New()
	intruder := uuid.New()

	n, _ := svc.Push(context.Background(), owner, nil, "", "", "msg", midday)

	if _, err := svc.MarkRead(context.Background(), intruder, n.ID, midday); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for foreign notification, got %v", err)
	}
	if _, err := svc.MarkRead(context.Background(), owner, uuid.New(), midday); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing notification, got %v", err)
	}
}

func TestList_UnreadFirstAndHidesPending(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	recipient := uuid.New()

	older, _ := svc.Push(context.Background(), recipient, nil, "", "", "older", midday)
	newer, _ := svc.Push(context.Background(), recipient, nil, "", "", "newer", midday.Add(time.Hour))
	_, _ = svc.Push(context.Background(), recipient, nil, "", "", "deferred", evening)
	_, _ = svc.MarkRead(context.Background(), recipient, newer.ID, midday.Add(2*time.Hour))

	items, total, err := svc.List(context.Background(), recipient, false, midday.Add(3*time.Hour), 25, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 visible notifications, got %d", total)
	}
	if items[0].ID != older.ID {
		t.Error("expected unread notification first even though it is older")
	}
	if items[1].ID != newer.ID {
		t.Error("expected read notification after unread ones")
	}
}

func TestList_OnlyUnread(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	recipient := uuid.New()

	kept, _ := svc.Push(context.Background(), recipient, nil, "", "", "unread", midday)
	read, _ := svc.Push(context.Background(), recipient, nil, "", "", "read", midday)
	_, _ = svc.MarkRead(context.Background(), recipient, read.ID, midday)

	items, total, err := svc.List(context.Background(), recipient, true, midday.Add(time.Hour), 25, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || items[0].ID != kept.ID {
		t.Errorf("expected only the unread notification, got %d items", total)
	}
}

func TestMarkAllRead_CountsOnlyVisibleUnread(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	recipient := uuid.New()

	_, _ = svc.Push(context.Background(), recipient, nil, "", "", "a", midday)
	read, _ := svc.Push(context.Background(), recipient, nil, "", "", "b", midday)
	_, _ = svc.MarkRead(context.Background(), recipient, read.ID, midday)
	_, _ = svc.Push(context.Background(), recipient, nil, "", "", "pending", evening)

	marked, err := svc.MarkAllRead(context.Background(), recipient, midday.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if marked != 1 {
		t.Errorf("expected 1 marked (visible unread only), got %d", marked)
	}
}

func TestStatus(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	recipient := uuid.New()

	_, _ = svc.Push(context.Background(), recipient, nil, "", "", "first", midday)
	latest, _ := svc.Push(context.Background(), recipient, nil, "", "", "latest", midday.Add(time.Hour))
	_, _ = svc.Push(context.Background(), recipient, nil, "", "", "deferred", evening)

	now := midday.Add(2 * time.Hour)
	b, err := svc.Status(context.Background(), recipient, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Unread != 2 || b.Unacknowledged != 2 {
		t.Errorf("expected 2 unread / 2 unacked, got %d/%d", b.Unread, b.Unacknowledged)
	}
	if b.Latest == nil || b.Latest.ID != latest.ID {
		t.Error("expected latest visible notification in badge")
	}
	if !b.ServerTime.Equal(now) {
		t.Error("expected server time echoed")
	}
}

func TestStatus_Empty(t *testing.T) {
	svc := newTestService(newMockRepo())
	b, err := svc.Status(context.Background(), uuid.New(), midday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Unread != 0 || b.Latest != nil {
		t.Error("expected empty badge")
	}
}

func TestFeed_CursorAndOrder(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	recipient := uuid.New()

	first, _ := svc.Push(context.Background(), recipient, nil, "", "", "one", midday)
	second, _ := svc.Push(context.Background(), recipient, nil, "", "", "two", midday.Add(time.Minute))
	third, _ := svc.Push(context.Background(), recipient, nil, "", "", "three", midday.Add(2*time.Minute))

	now := midday.Add(time.Hour)

	all, err := svc.Feed(context.Background(), recipient, nil, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 items, got %d", len(all))
	}
	if all[0].ID != first.ID || all[2].ID != third.ID {
		t.Error("expected oldest-first delivery")
	}

	after, err := svc.Feed(context.Background(), recipient, &first.ID, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(after) != 2 || after[0].ID != second.ID || after[1].ID != third.ID {
		t.Errorf("expected items strictly after cursor, got %d", len(after))
	}
}

func TestFeed_UnknownCursorIgnored(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	recipient := uuid.New()

	_, _ = svc.Push(context.Background(), recipient, nil, "", "", "one", midday)

	ghost := uuid.New()
	items, err := svc.Feed(context.Background(), recipient, &ghost, midday.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("expected feed from the beginning for unknown cursor, got %d items", len(items))
	}
}

func TestFeed_ExcludesAcknowledged(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	recipient := uuid.New()

	acked, _ := svc.Push(context.Background(), recipient, nil, "", "", "done", midday)
	kept, _ := svc.Push(context.Background(), recipient, nil, "", "", "live", midday)
	_, _ = svc.Acknowledge(context.Background(), recipient, acked.ID, midday)

	items, err := svc.Feed(context.Background(), recipient, nil, midday.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].ID != kept.ID {
		t.Errorf("expected only unacknowledged items, got %d", len(items))
	}
}

func TestFeed_CapsAtTwenty(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	recipient := uuid.New()

	for i := 0; i < 25; i++ {
		_, _ = svc.Push(context.Background(), recipient, nil, "", "", "msg", midday.Add(time.Duration(i)*time.Second))
	}

	items, err := svc.Feed(context.Background(), recipient, nil, midday.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != feedCap {
		t.Fatalf("expected %d items, got %d", feedCap, len(items))
	}
	// The cap keeps the newest 20; the oldest 5 fall off.
	if !items[len(items)-1].VisibleAt.After(items[0].VisibleAt) {
		t.Error("expected oldest-first order within the capped window")
	}
}
