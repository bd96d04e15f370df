package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Guilhem-Bonnet/screencraft/internal/domain"
	"github.com/Guilhem-Bonnet/screencraft/internal/ports"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrate_IsIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestHomeScreensRepository_SingleActive(t *testing.T) {
	ctx := context.Background()
	repo := NewHomeScreensRepository(openTestDB(t).SQL)
	now := time.Now().UTC()

	for _, id := range []string{"a", "b"} {
		if _, err := repo.Create(ctx, domain.HomeScreenConfig{ID: id, CreatedAt: now, UpdatedAt: now}); err != nil {
			t.Fatalf("Create(%s): %v", id, err)
		}
	}

	if _, err := repo.GetActive(ctx); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("GetActive: expected ErrNotFound, got %v", err)
	}

	got, err := repo.Activate(ctx, "a", now)
	if err != nil {
		t.Fatalf("Activate(a): %v", err)
	}
	if !got.IsActive || got.Version != 2 {
		t.Fatalf("expected a active at version 2, got active=%v version=%d", got.IsActive, got.Version)
	}

	if _, err := repo.Activate(ctx, "b", now); !errors.Is(err, ports.ErrConflict) {
		t.Fatalf("Activate(b): expected ErrConflict, got %v", err)
	}
	if _, err := repo.Activate(ctx, "missing", now); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("Activate(missing): expected ErrNotFound, got %v", err)
	}
	if _, err := repo.Activate(ctx, "a", now); err != nil {
		t.Fatalf("Activate(a) again: %v", err)
	}

	// l'index unique refuse un second is_active = 1, même hors Activate
	if _, err := repo.Create(ctx, domain.HomeScreenConfig{ID: "c", IsActive: true, CreatedAt: now, UpdatedAt: now}); !errors.Is(err, ports.ErrConflict) {
		t.Fatalf("Create(active c): expected ErrConflict, got %v", err)
	}

	if _, err := repo.Deactivate(ctx, "a", now); err != nil {
		t.Fatalf("Deactivate(a): %v", err)
	}
	if _, err := repo.Activate(ctx, "b", now); err != nil {
		t.Fatalf("Activate(b) after deactivate: %v", err)
	}
	active, err := repo.GetActive(ctx)
	if err != nil {
		t.Fatalf("GetActive: %v", err)
	}
	if active.ID != "b" {
		t.Fatalf("expected b active, got %s", active.ID)
	}
}

func TestHomeScreensRepository_ReplaceSectionsVersionCheck(t *testing.T) {
	ctx := context.Background()
	repo := NewHomeScreensRepository(openTestDB(t).SQL)
	now := time.Now().UTC()

	created, err := repo.Create(ctx, domain.HomeScreenConfig{ID: "a", CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	sections := []domain.Section{{Name: "Top", Order: 0, Items: []string{"x"}}, {Name: "New", Order: 1}}
	updated, err := repo.ReplaceSections(ctx, "a", created.Version, sections, now.Add(time.Second))
	if err != nil {
		t.Fatalf("ReplaceSections: %v", err)
	}
	if updated.Version != created.Version+1 {
		t.Fatalf("expected version %d, got %d", created.Version+1, updated.Version)
	}
	if len(updated.Sections) != 2 || updated.Sections[0].Items[0] != "x" || updated.Sections[1].Items == nil {
		t.Fatalf("unexpected sections: %+v", updated.Sections)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Fatalf("expected updatedAt to move forward")
	}

	if _, err := repo.ReplaceSections(ctx, "a", created.Version, sections, now); !errors.Is(err, ports.ErrConflict) {
		t.Fatalf("stale version: expected ErrConflict, got %v", err)
	}
	if _, err := repo.ReplaceSections(ctx, "missing", 1, sections, now); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("missing id: expected ErrNotFound, got %v", err)
	}
}

func TestHomeScreensRepository_ListActiveFirstThenUpdatedDesc(t *testing.T) {
	ctx := context.Background()
	repo := NewHomeScreensRepository(openTestDB(t).SQL)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "mid", "new"} {
		ts := base.Add(time.Duration(i) * time.Hour)
		if _, err := repo.Create(ctx, domain.HomeScreenConfig{ID: id, CreatedAt: ts, UpdatedAt: ts}); err != nil {
			t.Fatalf("Create(%s): %v", id, err)
		}
	}
	if _, err := repo.Activate(ctx, "old", base); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	got, total, err := repo.List(ctx, 0, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected total 3, got %d", total)
	}
	want := []string{"old", "new", "mid"}
	for i, cfg := range got {
		if cfg.ID != want[i] {
			t.Fatalf("position %d: want %s, got %s", i, want[i], cfg.ID)
		}
	}

	page, total, err := repo.List(ctx, 2, 2)
	if err != nil {
		t.Fatalf("List(page 2): %v", err)
	}
	if total != 3 || len(page) != 1 || page[0].ID != "mid" {
		t.Fatalf("unexpected second page: total=%d len=%d", total, len(page))
	}
}

func TestHomeScreensRepository_PurgeContentItemAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewHomeScreensRepository(openTestDB(t).SQL)
	now := time.Now().UTC()

	_, err := repo.Create(ctx, domain.HomeScreenConfig{ID: "a", CreatedAt: now, UpdatedAt: now, Sections: []domain.Section{
		{Name: "Top", Order: 0, Items: []string{"x", "y"}},
		{Name: "x", Order: 1, Items: []string{"x"}},
	}})
	if err != nil {
		t.Fatalf("Create(a): %v", err)
	}
	// le nom de section "x" seul ne doit pas compter comme une référence
	_, err = repo.Create(ctx, domain.HomeScreenConfig{ID: "b", CreatedAt: now, UpdatedAt: now, Sections: []domain.Section{
		{Name: "x", Order: 0, Items: []string{"y"}},
	}})
	if err != nil {
		t.Fatalf("Create(b): %v", err)
	}

	n, err := repo.PurgeContentItem(ctx, "x")
	if err != nil {
		t.Fatalf("PurgeContentItem: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 config purged, got %d", n)
	}
	a, err := repo.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get(a): %v", err)
	}
	if len(a.Sections[0].Items) != 1 || a.Sections[0].Items[0] != "y" || len(a.Sections[1].Items) != 0 {
		t.Fatalf("unexpected sections after purge: %+v", a.Sections)
	}

	deleted, err := repo.Delete(ctx, "a")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if deleted.ID != "a" {
		t.Fatalf("expected deleted a, got %s", deleted.ID)
	}
	if _, err := repo.Delete(ctx, "a"); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("Delete again: expected ErrNotFound, got %v", err)
	}
}

func TestContentItemsRepository_CRUDAndPurgeEpisode(t *testing.T) {
	ctx := context.Background()
	repo := NewContentItemsRepository(openTestDB(t).SQL)
	now := time.Now().UTC()

	for i, id := range []string{"c1", "c2", "c3"} {
		ts := now.Add(time.Duration(i) * time.Millisecond)
		_, err := repo.Create(ctx, domain.ContentItem{
			ID: id, Name: "Show " + id, Category: "drama",
			EpisodeIDs: []string{"e1", "e" + id},
			CreatedAt:  ts, UpdatedAt: ts,
		})
		if err != nil {
			t.Fatalf("Create(%s): %v", id, err)
		}
	}

	got, err := repo.GetMany(ctx, []string{"c3", "ghost", "c1"})
	if err != nil {
		t.Fatalf("GetMany: %v", err)
	}
	if len(got) != 2 || got[0].ID != "c3" || got[1].ID != "c1" {
		t.Fatalf("GetMany: unexpected order %+v", got)
	}

	items, total, err := repo.List(ctx, 1, 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 || len(items) != 1 || items[0].ID != "c2" {
		t.Fatalf("List: unexpected page total=%d items=%+v", total, items)
	}

	item := got[1]
	item.Name = "Renamed"
	item.IsExclusive = true
	updated, err := repo.Update(ctx, item)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != "Renamed" || !updated.IsExclusive {
		t.Fatalf("Update: got %+v", updated)
	}
	if _, err := repo.Update(ctx, domain.ContentItem{ID: "ghost"}); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("Update(ghost): expected ErrNotFound, got %v", err)
	}

	n, err := repo.PurgeEpisode(ctx, "e1")
	if err != nil {
		t.Fatalf("PurgeEpisode: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 purged, got %d", n)
	}
	c1, err := repo.Get(ctx, "c1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(c1.EpisodeIDs) != 1 || c1.EpisodeIDs[0] != "ec1" {
		t.Fatalf("unexpected episodes after purge: %v", c1.EpisodeIDs)
	}

	if _, err := repo.Delete(ctx, "c1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.Get(ctx, "c1"); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("Get after delete: expected ErrNotFound, got %v", err)
	}
}

func TestEpisodesRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewEpisodesRepository(openTestDB(t).SQL)
	now := time.Now().UTC()

	created, err := repo.Create(ctx, domain.Episode{
		ID: "e1", Name: "Pilot", LikesNumber: 4, Reviewed: true, VideoLink: "https://cdn.example/e1.mp4",
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !created.Reviewed || created.LikesNumber != 4 || created.VideoLink == "" {
		t.Fatalf("Create: got %+v", created)
	}
	if !created.CreatedAt.Equal(now.Truncate(time.Microsecond)) {
		t.Fatalf("CreatedAt: want %v, got %v", now.Truncate(time.Microsecond), created.CreatedAt)
	}

	if _, err := repo.Create(ctx, domain.Episode{ID: "e1", Name: "dup", CreatedAt: now, UpdatedAt: now}); !errors.Is(err, ports.ErrConflict) {
		t.Fatalf("Create(dup): expected ErrConflict, got %v", err)
	}

	created.LikesNumber = 5
	updated, err := repo.Update(ctx, created)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.LikesNumber != 5 {
		t.Fatalf("LikesNumber: want 5, got %d", updated.LikesNumber)
	}

	eps, total, err := repo.List(ctx, 0, 10)
	if err != nil || total != 1 || len(eps) != 1 {
		t.Fatalf("List: total=%d len=%d err=%v", total, len(eps), err)
	}

	if _, err := repo.Delete(ctx, "e1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.Delete(ctx, "e1"); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("Delete again: expected ErrNotFound, got %v", err)
	}
}

func TestHomeScreensRepository_ReactivateRefreshesUpdatedAt(t *testing.T) {
	ctx := context.Background()
	repo := NewHomeScreensRepository(openTestDB(t).SQL)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	if _, err := repo.Create(ctx, domain.HomeScreenConfig{ID: "a", CreatedAt: now, UpdatedAt: now}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := repo.Activate(ctx, "a", now); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	later := now.Add(time.Minute)
	got, err := repo.Activate(ctx, "a", later)
	if err != nil {
		t.Fatalf("Activate again: %v", err)
	}
	if !got.IsActive || !got.UpdatedAt.Equal(later) {
		t.Fatalf("expected active with updated_at %v, got active=%v updated_at=%v", later, got.IsActive, got.UpdatedAt)
	}
}

func TestHomeScreensRepository_ActivateWithSectionsIsAtomic(t *testing.T) {
	ctx := context.Background()
	repo := NewHomeScreensRepository(openTestDB(t).SQL)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	for _, id := range []string{"x", "y"} {
		if _, err := repo.Create(ctx, domain.HomeScreenConfig{ID: id, CreatedAt: now, UpdatedAt: now}); err != nil {
			t.Fatalf("Create(%s): %v", id, err)
		}
	}
	if _, err := repo.Activate(ctx, "y", now); err != nil {
		t.Fatalf("Activate(y): %v", err)
	}

	top := []domain.Section{{Name: "Top", Order: 0}}
	later := now.Add(time.Minute)
	if _, err := repo.ActivateWithSections(ctx, "x", 1, top, later); !errors.Is(err, ports.ErrAlreadyActive) {
		t.Fatalf("ActivateWithSections(x): expected ErrAlreadyActive, got %v", err)
	}
	x, err := repo.Get(ctx, "x")
	if err != nil {
		t.Fatalf("Get(x): %v", err)
	}
	if len(x.Sections) != 0 || x.Version != 1 || x.IsActive || !x.UpdatedAt.Equal(now) {
		t.Fatalf("x must be untouched, got %+v", x)
	}

	if _, err := repo.Deactivate(ctx, "y", later); err != nil {
		t.Fatalf("Deactivate(y): %v", err)
	}
	if _, err := repo.ActivateWithSections(ctx, "x", 7, top, later); !errors.Is(err, ports.ErrConflict) || errors.Is(err, ports.ErrAlreadyActive) {
		t.Fatalf("stale version: expected plain ErrConflict, got %v", err)
	}
	if x, _ = repo.Get(ctx, "x"); x.IsActive {
		t.Fatalf("stale version must not activate x")
	}

	x, err = repo.ActivateWithSections(ctx, "x", 1, top, later)
	if err != nil {
		t.Fatalf("ActivateWithSections(x): %v", err)
	}
	if !x.IsActive || len(x.Sections) != 1 || x.Sections[0].Name != "Top" {
		t.Fatalf("unexpected x: %+v", x)
	}
}
