package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Guilhem-Bonnet/screencraft/internal/domain"
	"github.com/Guilhem-Bonnet/screencraft/internal/ports"
)

type memHomeScreens struct {
	mu   sync.Mutex
	byID map[string]domain.HomeScreenConfig
}

func newMemHomeScreens() *memHomeScreens {
	return &memHomeScreens{byID: map[string]domain.HomeScreenConfig{}}
}

func (r *memHomeScreens) Create(ctx context.Context, cfg domain.HomeScreenConfig) (domain.HomeScreenConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[cfg.ID]; ok {
		return domain.HomeScreenConfig{}, ports.ErrConflict
	}
	r.byID[cfg.ID] = cfg
	return cfg, nil
}

func (r *memHomeScreens) Get(ctx context.Context, id string) (domain.HomeScreenConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.byID[id]
	if !ok {
		return domain.HomeScreenConfig{}, ports.ErrNotFound
	}
	return cfg, nil
}

func (r *memHomeScreens) GetActive(ctx context.Context) (domain.HomeScreenConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cfg := range r.byID {
		if cfg.IsActive {
			return cfg, nil
		}
	}
	return domain.HomeScreenConfig{}, ports.ErrNotFound
}

func (r *memHomeScreens) List(ctx context.Context, offset, limit int) ([]domain.HomeScreenConfig, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]domain.HomeScreenConfig, 0, len(r.byID))
	for _, cfg := range r.byID {
		all = append(all, cfg)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].IsActive != all[j].IsActive {
			return all[i].IsActive
		}
		if !all[i].UpdatedAt.Equal(all[j].UpdatedAt) {
			return all[i].UpdatedAt.After(all[j].UpdatedAt)
		}
		return all[i].ID < all[j].ID
	})
	return window(all, offset, limit), len(all), nil
}

func (r *memHomeScreens) ReplaceSections(ctx context.Context, id string, expectedVersion int64, sections []domain.Section, updatedAt time.Time) (domain.HomeScreenConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.byID[id]
	if !ok {
		return domain.HomeScreenConfig{}, ports.ErrNotFound
	}
	if cfg.Version != expectedVersion {
		return domain.HomeScreenConfig{}, ports.ErrConflict
	}
	cfg.Sections = sections
	cfg.Version++
	cfg.UpdatedAt = updatedAt
	r.byID[id] = cfg
	return cfg, nil
}

func (r *memHomeScreens) Activate(ctx context.Context, id string, updatedAt time.Time) (domain.HomeScreenConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.byID[id]
	if !ok {
		return domain.HomeScreenConfig{}, ports.ErrNotFound
	}
	for otherID, other := range r.byID {
		if otherID != id && other.IsActive {
			return domain.HomeScreenConfig{}, ports.ErrAlreadyActive
		}
	}
	cfg.IsActive = true
	cfg.Version++
	cfg.UpdatedAt = updatedAt
	r.byID[id] = cfg
	return cfg, nil
}

func (r *memHomeScreens) ActivateWithSections(ctx context.Context, id string, expectedVersion int64, sections []domain.Section, updatedAt time.Time) (domain.HomeScreenConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.byID[id]
	if !ok {
		return domain.HomeScreenConfig{}, ports.ErrNotFound
	}
	for otherID, other := range r.byID {
		if otherID != id && other.IsActive {
			return domain.HomeScreenConfig{}, ports.ErrAlreadyActive
		}
	}
	if cfg.Version != expectedVersion {
		return domain.HomeScreenConfig{}, ports.ErrConflict
	}
	cfg.Sections = sections
	cfg.IsActive = true
	cfg.Version += 2
	cfg.UpdatedAt = updatedAt
	r.byID[id] = cfg
	return cfg, nil
}

func (r *memHomeScreens) Deactivate(ctx context.Context, id string, updatedAt time.Time) (domain.HomeScreenConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.byID[id]
	if !ok {
		return domain.HomeScreenConfig{}, ports.ErrNotFound
	}
	cfg.IsActive = false
	cfg.Version++
	cfg.UpdatedAt = updatedAt
	r.byID[id] = cfg
	return cfg, nil
}

func (r *memHomeScreens) Delete(ctx context.Context, id string) (domain.HomeScreenConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.byID[id]
	if !ok {
		return domain.HomeScreenConfig{}, ports.ErrNotFound
	}
	delete(r.byID, id)
	return cfg, nil
}

func (r *memHomeScreens) PurgeContentItem(ctx context.Context, contentItemID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, cfg := range r.byID {
		set, err := domain.NewSectionSet(cfg.Sections)
		if err != nil {
			return n, err
		}
		if !set.PurgeItem(contentItemID) {
			continue
		}
		cfg.Sections = set.Sections()
		cfg.Version++
		r.byID[id] = cfg
		n++
	}
	return n, nil
}

type memContentItems struct {
	mu    sync.Mutex
	byID  map[string]domain.ContentItem
	order []string
}

func newMemContentItems() *memContentItems {
	return &memContentItems{byID: map[string]domain.ContentItem{}}
}

func (r *memContentItems) Create(ctx context.Context, item domain.ContentItem) (domain.ContentItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[item.ID] = item
	r.order = append(r.order, item.ID)
	return item, nil
}

func (r *memContentItems) Get(ctx context.Context, id string) (domain.ContentItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.byID[id]
	if !ok {
		return domain.ContentItem{}, ports.ErrNotFound
	}
	return item, nil
}

func (r *memContentItems) GetMany(ctx context.Context, ids []string) ([]domain.ContentItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.ContentItem{}
	for _, id := range ids {
		if item, ok := r.byID[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *memContentItems) List(ctx context.Context, offset, limit int) ([]domain.ContentItem, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := []domain.ContentItem{}
	for _, id := range r.order {
		if item, ok := r.byID[id]; ok {
			all = append(all, item)
		}
	}
	return window(all, offset, limit), len(all), nil
}

func (r *memContentItems) Update(ctx context.Context, item domain.ContentItem) (domain.ContentItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[item.ID]; !ok {
		return domain.ContentItem{}, ports.ErrNotFound
	}
	r.byID[item.ID] = item
	return item, nil
}

func (r *memContentItems) Delete(ctx context.Context, id string) (domain.ContentItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.byID[id]
	if !ok {
		return domain.ContentItem{}, ports.ErrNotFound
	}
	delete(r.byID, id)
	return item, nil
}

func (r *memContentItems) PurgeEpisode(ctx context.Context, episodeID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, item := range r.byID {
		if item.RemoveEpisode(episodeID) {
			r.byID[id] = item
			n++
		}
	}
	return n, nil
}

type memEpisodes struct {
	mu    sync.Mutex
	byID  map[string]domain.Episode
	order []string
}

func newMemEpisodes() *memEpisodes {
	return &memEpisodes{byID: map[string]domain.Episode{}}
}

func (r *memEpisodes) Create(ctx context.Context, ep domain.Episode) (domain.Episode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[ep.ID] = ep
	r.order = append(r.order, ep.ID)
	return ep, nil
}

func (r *memEpisodes) Get(ctx context.Context, id string) (domain.Episode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ep, ok := r.byID[id]
	if !ok {
		return domain.Episode{}, ports.ErrNotFound
	}
	return ep, nil
}

func (r *memEpisodes) GetMany(ctx context.Context, ids []string) ([]domain.Episode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Episode{}
	for _, id := range ids {
		if ep, ok := r.byID[id]; ok {
			out = append(out, ep)
		}
	}
	return out, nil
}

func (r *memEpisodes) List(ctx context.Context, offset, limit int) ([]domain.Episode, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := []domain.Episode{}
	for _, id := range r.order {
		if ep, ok := r.byID[id]; ok {
			all = append(all, ep)
		}
	}
	return window(all, offset, limit), len(all), nil
}

func (r *memEpisodes) Update(ctx context.Context, ep domain.Episode) (domain.Episode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[ep.ID]; !ok {
		return domain.Episode{}, ports.ErrNotFound
	}
	r.byID[ep.ID] = ep
	return ep, nil
}

func (r *memEpisodes) Delete(ctx context.Context, id string) (domain.Episode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ep, ok := r.byID[id]
	if !ok {
		return domain.Episode{}, ports.ErrNotFound
	}
	delete(r.byID, id)
	return ep, nil
}

func window[T any](all []T, offset, limit int) []T {
	if offset >= len(all) {
		return []T{}
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

type recordingBus struct {
	mu     sync.Mutex
	topics []string
}

func (b *recordingBus) Publish(topic string, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topics = append(b.topics, topic)
}

func (b *recordingBus) Subscribe() (<-chan ports.Event, func()) {
	ch := make(chan ports.Event)
	close(ch)
	return ch, func() {}
}

func (b *recordingBus) Topics() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.topics))
	copy(out, b.topics)
	return out
}

type memCache struct {
	mu      sync.Mutex
	payload []byte
	sets    int
}

func (c *memCache) Get(ctx context.Context) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.payload, c.payload != nil, nil
}

func (c *memCache) Set(ctx context.Context, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payload = payload
	c.sets++
	return nil
}

func (c *memCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payload = nil
	return nil
}

type fixture struct {
	screens  *HomeScreenService
	items    *ContentItemService
	episodes *EpisodeService
	bus      *recordingBus

	screenRepo *memHomeScreens
	itemRepo   *memContentItems
}

func newFixture() *fixture {
	bus := &recordingBus{}
	screenRepo := newMemHomeScreens()
	itemRepo := newMemContentItems()
	episodes := NewEpisodeService(newMemEpisodes(), bus)
	items := NewContentItemService(itemRepo, episodes, bus)
	return &fixture{
		screens:    NewHomeScreenService(screenRepo, items, bus),
		items:      items,
		episodes:   episodes,
		bus:        bus,
		screenRepo: screenRepo,
		itemRepo:   itemRepo,
	}
}
