package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/templui/photowall/internal/db"
	"github.com/templui/photowall/internal/model"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	conn, err := db.Init("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("db.Init: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(conn) })

	if err := db.RunMigrations(conn.DB, "sqlite"); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	return conn
}

func TestModerationEventAppendAndByPhoto(t *testing.T) {
	repo := NewModerationEventRepository(newTestDB(t))
	ctx := context.Background()
	base := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

	events := []*model.ModerationEvent{
		{ID: "e1", PhotoID: "p1", FromState: model.StatePending, ToState: model.StateApproved, Actor: "mod", CreatedAt: base},
		{ID: "e2", PhotoID: "p2", FromState: model.StatePending, ToState: model.StateRejected, Actor: "mod", CreatedAt: base.Add(time.Minute)},
		{ID: "e3", PhotoID: "p1", FromState: model.StateApproved, ToState: model.StateRejected, Actor: "other", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range events {
		if err := repo.Append(ctx, e); err != nil {
			t.Fatalf("Append(%s): %v", e.ID, err)
		}
	}

	got, err := repo.ByPhoto(ctx, "p1")
	if err != nil {
		t.Fatalf("ByPhoto: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if got[0].ID != "e1" || got[1].ID != "e3" {
		t.Errorf("order = %s, %s; want e1, e3", got[0].ID, got[1].ID)
	}
	if got[1].FromState != model.StateApproved || got[1].ToState != model.StateRejected || got[1].Actor != "other" {
		t.Errorf("event = %+v", got[1])
	}
}

func TestModerationEventByPhotoEmpty(t *testing.T) {
	repo := NewModerationEventRepository(newTestDB(t))

	got, err := repo.ByPhoto(context.Background(), "missing")
	if err != nil {
		t.Fatalf("ByPhoto: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %v, want empty non-nil slice", got)
	}
}

func TestModerationEventLatest(t *testing.T) {
	repo := NewModerationEventRepository(newTestDB(t))
	ctx := context.Background()
	base := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		err := repo.Append(ctx, &model.ModerationEvent{
			ID: id, PhotoID: "p" + id, FromState: model.StatePending, ToState: model.StateApproved,
			Actor: "mod", CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := repo.Latest(ctx, 2)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "b" {
		t.Errorf("Latest = %v", ids(got))
	}
}

func ids(events []*model.ModerationEvent) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}
