package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Guilhem-Bonnet/screencraft/internal/domain"
	"github.com/Guilhem-Bonnet/screencraft/internal/metrics"
	"github.com/Guilhem-Bonnet/screencraft/internal/ports"
	"github.com/rs/xid"
)

type ContentItemService struct {
	repo     ports.ContentItemRepository
	episodes *EpisodeService
	bus      ports.EventBus

	MaxPageSize int
}

func NewContentItemService(repo ports.ContentItemRepository, episodes *EpisodeService, bus ports.EventBus) *ContentItemService {
	return &ContentItemService{repo: repo, episodes: episodes, bus: bus, MaxPageSize: DefaultMaxPageSize}
}

type ContentItemDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	IntroImage  string `json:"introImage"`
	IsExclusive bool   `json:"isExclusive"`
	Category    string `json:"category"`

	EpisodeIDs []string `json:"episodeIds"`
	// Episodes n'est rempli que par les endpoints /content-items.
	Episodes []EpisodeDTO `json:"episodes,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toContentItemDTO(c domain.ContentItem) ContentItemDTO {
	ids := make([]string, len(c.EpisodeIDs))
	copy(ids, c.EpisodeIDs)
	return ContentItemDTO{
		ID:          c.ID,
		Name:        c.Name,
		IntroImage:  c.IntroImage,
		IsExclusive: c.IsExclusive,
		Category:    c.Category,
		EpisodeIDs:  ids,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

type CreateContentItemRequest struct {
	Name        string `json:"name"`
	IntroImage  string `json:"introImage"`
	IsExclusive bool   `json:"isExclusive"`
	Category    string `json:"category"`
}

type UpdateContentItemRequest struct {
	Name        *string `json:"name,omitempty"`
	IntroImage  *string `json:"introImage,omitempty"`
	IsExclusive *bool   `json:"isExclusive,omitempty"`
	Category    *string `json:"category,omitempty"`
}

func (s *ContentItemService) Create(ctx context.Context, req CreateContentItemRequest) (ContentItemDTO, error) {
	name := strings.TrimSpace(req.Name)
	category := strings.TrimSpace(req.Category)
	if name == "" {
		return ContentItemDTO{}, invalid("missing name")
	}
	if category == "" {
		return ContentItemDTO{}, invalid("missing category")
	}

	now := time.Now().UTC()
	created, err := s.repo.Create(ctx, domain.ContentItem{
		ID:          xid.New().String(),
		Name:        name,
		IntroImage:  req.IntroImage,
		IsExclusive: req.IsExclusive,
		Category:    category,
		EpisodeIDs:  []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return ContentItemDTO{}, err
	}
	dto, err := s.withEpisodes(ctx, created)
	if err != nil {
		return ContentItemDTO{}, err
	}
	publishJSON(s.bus, ports.TopicContentItemCreated, dto)
	return dto, nil
}

func (s *ContentItemService) Get(ctx context.Context, id string) (ContentItemDTO, error) {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return ContentItemDTO{}, contentItemNotFound(id)
		}
		return ContentItemDTO{}, err
	}
	return s.withEpisodes(ctx, item)
}

func (s *ContentItemService) List(ctx context.Context, page, limit int) (Page[ContentItemDTO], error) {
	page, limit = NormalizePage(page, limit, s.MaxPageSize)
	items, total, err := s.repo.List(ctx, offsetOf(page, limit), limit)
	if err != nil {
		return Page[ContentItemDTO]{}, err
	}
	out := make([]ContentItemDTO, 0, len(items))
	for _, it := range items {
		dto, err := s.withEpisodes(ctx, it)
		if err != nil {
			return Page[ContentItemDTO]{}, err
		}
		out = append(out, dto)
	}
	return newPage(out, total, page, limit), nil
}

func (s *ContentItemService) Update(ctx context.Context, id string, req UpdateContentItemRequest) (ContentItemDTO, error) {
	return s.modify(ctx, id, func(item *domain.ContentItem) (bool, error) {
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return false, invalid("missing name")
			}
			item.Name = name
		}
		if req.Category != nil {
			category := strings.TrimSpace(*req.Category)
			if category == "" {
				return false, invalid("missing category")
			}
			item.Category = category
		}
		if req.IntroImage != nil {
			item.IntroImage = *req.IntroImage
		}
		if req.IsExclusive != nil {
			item.IsExclusive = *req.IsExclusive
		}
		return true, nil
	})
}

// Delete supprime le contenu. Les sections qui le référencent sont nettoyées
// par ReferenceCleaner (content_item.deleted) et par le Reconciler.
func (s *ContentItemService) Delete(ctx context.Context, id string) (ContentItemDTO, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return ContentItemDTO{}, contentItemNotFound(id)
		}
		return ContentItemDTO{}, err
	}
	dto := toContentItemDTO(deleted)
	publishJSON(s.bus, ports.TopicContentItemDeleted, dto)
	return dto, nil
}

func (s *ContentItemService) AddEpisode(ctx context.Context, id, episodeID string) (ContentItemDTO, error) {
	if s.episodes != nil {
		if _, err := s.episodes.Get(ctx, episodeID); err != nil {
			return ContentItemDTO{}, err
		}
	}
	return s.modify(ctx, id, func(item *domain.ContentItem) (bool, error) {
		item.AddEpisode(episodeID)
		return true, nil
	})
}

func (s *ContentItemService) RemoveEpisode(ctx context.Context, id, episodeID string) (ContentItemDTO, error) {
	return s.modify(ctx, id, func(item *domain.ContentItem) (bool, error) {
		item.RemoveEpisode(episodeID)
		return true, nil
	})
}

// Resolve implémente ContentResolver: ordre conservé, ids inconnus ignorés.
func (s *ContentItemService) Resolve(ctx context.Context, ids []string) ([]ContentItemDTO, error) {
	if len(ids) == 0 {
		return []ContentItemDTO{}, nil
	}
	items, err := s.repo.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]ContentItemDTO, 0, len(items))
	for _, it := range items {
		out = append(out, toContentItemDTO(it))
	}
	return out, nil
}

func (s *ContentItemService) PurgeEpisode(ctx context.Context, episodeID string) (int, error) {
	n, err := s.repo.PurgeEpisode(ctx, episodeID)
	if err != nil {
		return 0, err
	}
	metrics.RecordPurged("episode", n)
	return n, nil
}

// ReconcileEpisodes retire des contenus les épisodes qui n'existent plus.
func (s *ContentItemService) ReconcileEpisodes(ctx context.Context) (int, error) {
	if s.episodes == nil {
		return 0, nil
	}
	referenced := []string{}
	seen := map[string]struct{}{}
	const batch = 100
	for offset := 0; ; offset += batch {
		items, total, err := s.repo.List(ctx, offset, batch)
		if err != nil {
			return 0, err
		}
		for _, it := range items {
			for _, id := range it.EpisodeIDs {
				if _, ok := seen[id]; !ok {
					seen[id] = struct{}{}
					referenced = append(referenced, id)
				}
			}
		}
		if len(items) == 0 || offset+batch >= total {
			break
		}
	}

	existing, err := s.episodes.Resolve(ctx, referenced)
	if err != nil {
		return 0, err
	}
	alive := make(map[string]struct{}, len(existing))
	for _, e := range existing {
		alive[e.ID] = struct{}{}
	}

	purged := 0
	for _, id := range referenced {
		if _, ok := alive[id]; ok {
			continue
		}
		n, err := s.PurgeEpisode(ctx, id)
		if err != nil {
			return purged, err
		}
		purged += n
	}
	return purged, nil
}

func (s *ContentItemService) modify(ctx context.Context, id string, fn func(item *domain.ContentItem) (bool, error)) (ContentItemDTO, error) {
	item, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return ContentItemDTO{}, contentItemNotFound(id)
		}
		return ContentItemDTO{}, err
	}
	changed, err := fn(&item)
	if err != nil {
		return ContentItemDTO{}, err
	}
	if changed {
		item.UpdatedAt = time.Now().UTC()
		item, err = s.repo.Update(ctx, item)
		if err != nil {
			if errors.Is(err, ports.ErrNotFound) {
				return ContentItemDTO{}, contentItemNotFound(id)
			}
			return ContentItemDTO{}, err
		}
	}
	dto, err := s.withEpisodes(ctx, item)
	if err != nil {
		return ContentItemDTO{}, err
	}
	if changed {
		publishJSON(s.bus, ports.TopicContentItemUpdated, dto)
	}
	return dto, nil
}

func (s *ContentItemService) withEpisodes(ctx context.Context, item domain.ContentItem) (ContentItemDTO, error) {
	dto := toContentItemDTO(item)
	dto.Episodes = []EpisodeDTO{}
	if s.episodes == nil || len(item.EpisodeIDs) == 0 {
		return dto, nil
	}
	eps, err := s.episodes.Resolve(ctx, item.EpisodeIDs)
	if err != nil {
		return ContentItemDTO{}, err
	}
	dto.Episodes = eps
	return dto, nil
}
