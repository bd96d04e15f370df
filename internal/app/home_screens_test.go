package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Guilhem-Bonnet/screencraft/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }

func sectionNames(dto HomeScreenDTO) []string {
	out := []string{}
	for _, s := range dto.Sections {
		out = append(out, s.Name)
	}
	return out
}

func requireCode(t *testing.T, err error, sentinel error, code string) {
	t.Helper()
	require.ErrorIs(t, err, sentinel)
	var coded *CodedError
	require.True(t, errors.As(err, &coded), "expected CodedError, got %T", err)
	assert.Equal(t, code, coded.Code)
}

func TestHomeScreenService_TopSectionEndToEnd(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	item, err := f.items.Create(ctx, CreateContentItemRequest{Name: "Show", Category: "drama"})
	require.NoError(t, err)

	cfg, err := f.screens.Create(ctx, CreateHomeScreenRequest{})
	require.NoError(t, err)
	assert.False(t, cfg.IsActive)

	cfg, err = f.screens.AddSection(ctx, cfg.ID, SectionInput{Name: "Top", Order: intPtr(0)})
	require.NoError(t, err)

	cfg, err = f.screens.AddContentItem(ctx, cfg.ID, "Top", item.ID)
	require.NoError(t, err)
	cfg, err = f.screens.AddContentItem(ctx, cfg.ID, "Top", item.ID)
	require.NoError(t, err)
	require.Len(t, cfg.Sections, 1)
	require.Len(t, cfg.Sections[0].Items, 1)
	assert.Equal(t, "Show", cfg.Sections[0].Items[0].Name)

	cfg, err = f.screens.RemoveContentItem(ctx, cfg.ID, "Top", item.ID)
	require.NoError(t, err)
	assert.Empty(t, cfg.Sections[0].Items)

	// retrait idempotent
	_, err = f.screens.RemoveContentItem(ctx, cfg.ID, "Top", item.ID)
	require.NoError(t, err)
}

func TestHomeScreenService_SingleActive(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	a, err := f.screens.Create(ctx, CreateHomeScreenRequest{})
	require.NoError(t, err)
	b, err := f.screens.Create(ctx, CreateHomeScreenRequest{})
	require.NoError(t, err)

	_, err = f.screens.SetActive(ctx, a.ID)
	require.NoError(t, err)

	_, err = f.screens.SetActive(ctx, b.ID)
	requireCode(t, err, ErrConflict, "conflict")

	// réactiver la config déjà active n'est pas un conflit
	_, err = f.screens.SetActive(ctx, a.ID)
	require.NoError(t, err)

	_, err = f.screens.SetActive(ctx, "missing")
	requireCode(t, err, ErrNotFound, "not_found")

	active, err := f.screens.FindActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, a.ID, active.ID)

	_, err = f.screens.Update(ctx, a.ID, UpdateHomeScreenRequest{IsActive: boolPtr(false)})
	require.NoError(t, err)
	_, err = f.screens.Update(ctx, b.ID, UpdateHomeScreenRequest{IsActive: boolPtr(true)})
	require.NoError(t, err)

	active, err = f.screens.FindActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, b.ID, active.ID)
}

func TestHomeScreenService_ConcurrentActivationHasOneWinner(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	ids := []string{}
	for i := 0; i < 8; i++ {
		cfg, err := f.screens.Create(ctx, CreateHomeScreenRequest{})
		require.NoError(t, err)
		ids = append(ids, cfg.ID)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   int
		conflicts int
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.screens.SetActive(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case errors.Is(err, ErrConflict):
				conflicts++
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.Equal(t, len(ids)-1, conflicts)
}

func TestHomeScreenService_FindActiveWithoutActive(t *testing.T) {
	f := newFixture()
	_, err := f.screens.FindActive(context.Background())
	requireCode(t, err, ErrNotFound, "not_found")
	assert.Equal(t, "No active home screen configuration found", err.(*CodedError).Message)
}

func TestHomeScreenService_FindActiveUsesCache(t *testing.T) {
	f := newFixture()
	cache := &memCache{}
	f.screens.WithCache(cache)
	ctx := context.Background()

	cfg, err := f.screens.Create(ctx, CreateHomeScreenRequest{Sections: []SectionInput{{Name: "Top"}}})
	require.NoError(t, err)
	_, err = f.screens.SetActive(ctx, cfg.ID)
	require.NoError(t, err)

	_, err = f.screens.FindActive(ctx)
	require.NoError(t, err)
	_, err = f.screens.FindActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)

	_, err = f.screens.AddSection(ctx, cfg.ID, SectionInput{Name: "New"})
	require.NoError(t, err)
	got, err := f.screens.FindActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Top", "New"}, sectionNames(got))
	assert.Equal(t, 2, cache.sets)
}

func TestHomeScreenService_ReorderKeepsOrdersDense(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	cfg, err := f.screens.Create(ctx, CreateHomeScreenRequest{Sections: []SectionInput{
		{Name: "A"}, {Name: "B"}, {Name: "C"}, {Name: "D"},
	}})
	require.NoError(t, err)

	cfg, err = f.screens.ReorderSection(ctx, cfg.ID, "C", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A", "B", "D"}, sectionNames(cfg))
	for i, s := range cfg.Sections {
		assert.Equal(t, i, s.Order)
	}

	_, err = f.screens.ReorderSection(ctx, cfg.ID, "Z", 0)
	requireCode(t, err, ErrNotFound, "not_found")

	cfg, err = f.screens.RemoveSection(ctx, cfg.ID, "A")
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B", "D"}, sectionNames(cfg))
	assert.Equal(t, 2, cfg.Sections[2].Order)

	before := cfg.Version
	cfg, err = f.screens.RemoveSection(ctx, cfg.ID, "missing")
	require.NoError(t, err)
	assert.Equal(t, before, cfg.Version)
}

func TestHomeScreenService_AddSectionValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	cfg, err := f.screens.Create(ctx, CreateHomeScreenRequest{Sections: []SectionInput{{Name: "A"}, {Name: "B"}}})
	require.NoError(t, err)

	_, err = f.screens.AddSection(ctx, cfg.ID, SectionInput{Name: " "})
	requireCode(t, err, ErrInvalid, "invalid")

	_, err = f.screens.AddSection(ctx, cfg.ID, SectionInput{Name: "A"})
	requireCode(t, err, ErrConflict, "conflict")

	_, err = f.screens.AddSection(ctx, cfg.ID, SectionInput{Name: "X", Items: []string{"ghost"}})
	requireCode(t, err, ErrNotFound, "not_found")

	cfg, err = f.screens.AddSection(ctx, cfg.ID, SectionInput{Name: "Mid", Order: intPtr(1)})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "Mid", "B"}, sectionNames(cfg))

	_, err = f.screens.AddSection(ctx, "missing", SectionInput{Name: "A"})
	requireCode(t, err, ErrNotFound, "not_found")
}

func TestHomeScreenService_MembershipUnknownSectionOrItem(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	item, err := f.items.Create(ctx, CreateContentItemRequest{Name: "Show", Category: "drama"})
	require.NoError(t, err)
	cfg, err := f.screens.Create(ctx, CreateHomeScreenRequest{Sections: []SectionInput{{Name: "Top"}}})
	require.NoError(t, err)

	_, err = f.screens.AddContentItem(ctx, cfg.ID, "Nope", item.ID)
	requireCode(t, err, ErrNotFound, "not_found")

	_, err = f.screens.AddContentItem(ctx, cfg.ID, "Top", "ghost")
	requireCode(t, err, ErrNotFound, "not_found")

	_, err = f.screens.RemoveContentItem(ctx, cfg.ID, "Nope", item.ID)
	requireCode(t, err, ErrNotFound, "not_found")
}

func TestHomeScreenService_StaleVersionIsConflict(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	cfg, err := f.screens.Create(ctx, CreateHomeScreenRequest{Sections: []SectionInput{{Name: "A"}}})
	require.NoError(t, err)

	stored, err := f.screenRepo.Get(ctx, cfg.ID)
	require.NoError(t, err)
	_, err = f.screenRepo.ReplaceSections(ctx, cfg.ID, stored.Version, stored.Sections, stored.UpdatedAt)
	require.NoError(t, err)

	_, err = f.screenRepo.ReplaceSections(ctx, cfg.ID, stored.Version, stored.Sections, stored.UpdatedAt)
	require.ErrorIs(t, err, ports.ErrConflict)
	assert.ErrorIs(t, f.screens.writeError(cfg.ID, err), ErrConflict)
}

func TestHomeScreenService_ListPagination(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for i := 0; i < 23; i++ {
		_, err := f.screens.Create(ctx, CreateHomeScreenRequest{})
		require.NoError(t, err)
	}

	p, err := f.screens.List(ctx, 3, 10)
	require.NoError(t, err)
	assert.Len(t, p.Items, 3)
	assert.Equal(t, 23, p.Total)
	assert.Equal(t, 3, p.TotalPages)

	p, err = f.screens.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 10, p.Limit)

	p, err = f.screens.List(ctx, 1, 1000)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxPageSize, p.Limit)
	assert.Len(t, p.Items, 23)

	p, err = f.screens.List(ctx, 9, 10)
	require.NoError(t, err)
	assert.Empty(t, p.Items)
}

func TestHomeScreenService_DanglingReferencesAreSkippedThenPurged(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	keep, err := f.items.Create(ctx, CreateContentItemRequest{Name: "Keep", Category: "c"})
	require.NoError(t, err)
	gone, err := f.items.Create(ctx, CreateContentItemRequest{Name: "Gone", Category: "c"})
	require.NoError(t, err)

	cfg, err := f.screens.Create(ctx, CreateHomeScreenRequest{Sections: []SectionInput{
		{Name: "Top", Items: []string{keep.ID, gone.ID}},
	}})
	require.NoError(t, err)

	_, err = f.items.Delete(ctx, gone.ID)
	require.NoError(t, err)

	got, err := f.screens.Get(ctx, cfg.ID)
	require.NoError(t, err)
	require.Len(t, got.Sections[0].Items, 1)
	assert.Equal(t, keep.ID, got.Sections[0].Items[0].ID)

	n, err := f.screens.ReconcileReferences(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := f.screenRepo.Get(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{keep.ID}, stored.Sections[0].Items)
}

func TestHomeScreenService_DeletePublishes(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	cfg, err := f.screens.Create(ctx, CreateHomeScreenRequest{})
	require.NoError(t, err)
	_, err = f.screens.Delete(ctx, cfg.ID)
	require.NoError(t, err)

	_, err = f.screens.Get(ctx, cfg.ID)
	requireCode(t, err, ErrNotFound, "not_found")
	assert.Contains(t, f.bus.Topics(), ports.TopicHomeScreenDeleted)
}

func TestHomeScreenService_UpdateWithSectionsAndActivationConflictWritesNothing(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	x, err := f.screens.Create(ctx, CreateHomeScreenRequest{})
	require.NoError(t, err)
	y, err := f.screens.Create(ctx, CreateHomeScreenRequest{})
	require.NoError(t, err)
	_, err = f.screens.SetActive(ctx, y.ID)
	require.NoError(t, err)

	_, err = f.screens.Update(ctx, x.ID, UpdateHomeScreenRequest{
		IsActive: boolPtr(true),
		Sections: []SectionInput{{Name: "Top"}},
	})
	requireCode(t, err, ErrConflict, "conflict")

	got, err := f.screens.Get(ctx, x.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Sections)
	assert.Equal(t, x.Version, got.Version)
	assert.Equal(t, x.UpdatedAt, got.UpdatedAt)
	assert.False(t, got.IsActive)

	// sans conflit, sections et activation passent ensemble
	_, err = f.screens.Update(ctx, y.ID, UpdateHomeScreenRequest{IsActive: boolPtr(false)})
	require.NoError(t, err)
	got, err = f.screens.Update(ctx, x.ID, UpdateHomeScreenRequest{
		IsActive: boolPtr(true),
		Sections: []SectionInput{{Name: "Top"}},
	})
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.Equal(t, []string{"Top"}, sectionNames(got))
}

func TestHomeScreenService_MembershipNoopKeepsVersion(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	item, err := f.items.Create(ctx, CreateContentItemRequest{Name: "Show", Category: "drama"})
	require.NoError(t, err)
	other, err := f.items.Create(ctx, CreateContentItemRequest{Name: "Other", Category: "drama"})
	require.NoError(t, err)
	cfg, err := f.screens.Create(ctx, CreateHomeScreenRequest{Sections: []SectionInput{{Name: "Top"}}})
	require.NoError(t, err)

	added, err := f.screens.AddContentItem(ctx, cfg.ID, "Top", item.ID)
	require.NoError(t, err)
	published := len(f.bus.Topics())

	again, err := f.screens.AddContentItem(ctx, cfg.ID, "Top", item.ID)
	require.NoError(t, err)
	assert.Equal(t, added.Version, again.Version)
	assert.Equal(t, added.UpdatedAt, again.UpdatedAt)

	notMember, err := f.screens.RemoveContentItem(ctx, cfg.ID, "Top", other.ID)
	require.NoError(t, err)
	assert.Equal(t, added.Version, notMember.Version)
	assert.Len(t, notMember.Sections[0].Items, 1)

	assert.Len(t, f.bus.Topics(), published)
}
