package meetingcache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"plenum/internal/api"
	"plenum/internal/config"
	"plenum/internal/meetingcache"
)

func openStore(t *testing.T) *meetingcache.Store {
	t.Helper()
	cfg := config.Default()
	cfg.Cache.Dir = t.TempDir()
	store, err := meetingcache.Open(&cfg)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleMeeting(id int64, title string, createdAt time.Time) api.Meeting {
	started := createdAt.Add(10 * time.Minute)
	return api.Meeting{
		ID:          id,
		Title:       title,
		Committee:   "Budget Committee",
		ChannelCode: "na02",
		Status:      "completed",
		StartedAt:   &started,
		CreatedAt:   createdAt,
	}
}

func TestStoreUpsertAndList(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	base := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	meetings := []api.Meeting{
		sampleMeeting(1, "Plenary Session 412", base),
		sampleMeeting(2, "Budget Hearing", base.Add(time.Hour)),
		sampleMeeting(3, "Judiciary Q&A", base.Add(2*time.Hour)),
	}
	if err := store.UpsertMeetings(ctx, meetings); err != nil {
		t.Fatalf("UpsertMeetings error: %v", err)
	}

	listed, err := store.Meetings(ctx, 10, 0)
	if err != nil {
		t.Fatalf("Meetings error: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected 3 meetings, got %d", len(listed))
	}
	// Newest first.
	if listed[0].ID != 3 || listed[2].ID != 1 {
		t.Fatalf("unexpected order: %d, %d, %d", listed[0].ID, listed[1].ID, listed[2].ID)
	}
	if listed[0].StartedAt == nil || !listed[0].StartedAt.Equal(base.Add(2*time.Hour+10*time.Minute)) {
		t.Fatalf("started_at not round-tripped: %v", listed[0].StartedAt)
	}
}

func TestStoreUpsertReplaces(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	created := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	meeting := sampleMeeting(7, "Plenary Session 412", created)
	if err := store.UpsertMeetings(ctx, []api.Meeting{meeting}); err != nil {
		t.Fatalf("UpsertMeetings error: %v", err)
	}

	meeting.Status = "live"
	meeting.Title = "Plenary Session 412 (continued)"
	if err := store.UpsertMeetings(ctx, []api.Meeting{meeting}); err != nil {
		t.Fatalf("UpsertMeetings update error: %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 meeting after replace, got %d", count)
	}

	got, err := store.Meeting(ctx, 7)
	if err != nil {
		t.Fatalf("Meeting error: %v", err)
	}
	if got.Status != "live" || got.Title != "Plenary Session 412 (continued)" {
		t.Fatalf("replace did not apply: %+v", got)
	}
}

func TestStoreMeetingNotFound(t *testing.T) {
	store := openStore(t)

	_, err := store.Meeting(context.Background(), 999)
	if !errors.Is(err, meetingcache.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreSurvivesReopen(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Dir = t.TempDir()
	ctx := context.Background()

	store, err := meetingcache.Open(&cfg)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	created := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	if err := store.UpsertMeetings(ctx, []api.Meeting{sampleMeeting(1, "Plenary Session 412", created)}); err != nil {
		t.Fatalf("UpsertMeetings error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	reopened, err := meetingcache.Open(&cfg)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Meeting(ctx, 1)
	if err != nil {
		t.Fatalf("Meeting after reopen error: %v", err)
	}
	if got.Title != "Plenary Session 412" {
		t.Fatalf("unexpected meeting after reopen: %+v", got)
	}
	if got.Committee != "Budget Committee" || got.ChannelCode != "na02" {
		t.Fatalf("nullable columns not round-tripped: %+v", got)
	}
}
