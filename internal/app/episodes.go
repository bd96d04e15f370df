package app

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/Guilhem-Bonnet/screencraft/internal/domain"
	"github.com/Guilhem-Bonnet/screencraft/internal/ports"
	"github.com/rs/xid"
)

type EpisodeService struct {
	repo ports.EpisodeRepository
	bus  ports.EventBus

	MaxPageSize int
}

func NewEpisodeService(repo ports.EpisodeRepository, bus ports.EventBus) *EpisodeService {
	return &EpisodeService{repo: repo, bus: bus, MaxPageSize: DefaultMaxPageSize}
}

type EpisodeDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	IsExclusive bool      `json:"isExclusive"`
	LikesNumber int       `json:"likesNumber"`
	Reviewed    bool      `json:"reviewed"`
	VideoLink   string    `json:"videoLink"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toEpisodeDTO(e domain.Episode) EpisodeDTO {
	return EpisodeDTO{
		ID:          e.ID,
		Name:        e.Name,
		IsExclusive: e.IsExclusive,
		LikesNumber: e.LikesNumber,
		Reviewed:    e.Reviewed,
		VideoLink:   e.VideoLink,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

type CreateEpisodeRequest struct {
	Name        string `json:"name"`
	IsExclusive bool   `json:"isExclusive"`
	LikesNumber int    `json:"likesNumber"`
	Reviewed    bool   `json:"reviewed"`
	VideoLink   string `json:"videoLink"`
}

// UpdateEpisodeRequest: les champs nil sont laissés inchangés.
type UpdateEpisodeRequest struct {
	Name        *string `json:"name,omitempty"`
	IsExclusive *bool   `json:"isExclusive,omitempty"`
	LikesNumber *int    `json:"likesNumber,omitempty"`
	Reviewed    *bool   `json:"reviewed,omitempty"`
	VideoLink   *string `json:"videoLink,omitempty"`
}

func (s *EpisodeService) Create(ctx context.Context, req CreateEpisodeRequest) (EpisodeDTO, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return EpisodeDTO{}, invalid("missing name")
	}
	if req.LikesNumber < 0 {
		return EpisodeDTO{}, invalid("%s", domain.ErrNegativeLikes.Error())
	}

	now := time.Now().UTC()
	created, err := s.repo.Create(ctx, domain.Episode{
		ID:          xid.New().String(),
		Name:        name,
		IsExclusive: req.IsExclusive,
		LikesNumber: req.LikesNumber,
		Reviewed:    req.Reviewed,
		VideoLink:   strings.TrimSpace(req.VideoLink),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return EpisodeDTO{}, err
	}
	dto := toEpisodeDTO(created)
	publishJSON(s.bus, ports.TopicEpisodeCreated, dto)
	return dto, nil
}

func (s *EpisodeService) Get(ctx context.Context, id string) (EpisodeDTO, error) {
	ep, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return EpisodeDTO{}, episodeNotFound(id)
		}
		return EpisodeDTO{}, err
	}
	return toEpisodeDTO(ep), nil
}

func (s *EpisodeService) List(ctx context.Context, page, limit int) (Page[EpisodeDTO], error) {
	page, limit = NormalizePage(page, limit, s.MaxPageSize)
	eps, total, err := s.repo.List(ctx, offsetOf(page, limit), limit)
	if err != nil {
		return Page[EpisodeDTO]{}, err
	}
	out := make([]EpisodeDTO, 0, len(eps))
	for _, e := range eps {
		out = append(out, toEpisodeDTO(e))
	}
	return newPage(out, total, page, limit), nil
}

func (s *EpisodeService) Update(ctx context.Context, id string, req UpdateEpisodeRequest) (EpisodeDTO, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return EpisodeDTO{}, episodeNotFound(id)
		}
		return EpisodeDTO{}, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return EpisodeDTO{}, invalid("missing name")
		}
		existing.Name = name
	}
	if req.IsExclusive != nil {
		existing.IsExclusive = *req.IsExclusive
	}
	if req.LikesNumber != nil {
		if *req.LikesNumber < 0 {
			return EpisodeDTO{}, invalid("%s", domain.ErrNegativeLikes.Error())
		}
		existing.LikesNumber = *req.LikesNumber
	}
	if req.Reviewed != nil {
		existing.Reviewed = *req.Reviewed
	}
	if req.VideoLink != nil {
		existing.VideoLink = strings.TrimSpace(*req.VideoLink)
	}
	existing.UpdatedAt = time.Now().UTC()

	updated, err := s.repo.Update(ctx, existing)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return EpisodeDTO{}, episodeNotFound(id)
		}
		return EpisodeDTO{}, err
	}
	dto := toEpisodeDTO(updated)
	publishJSON(s.bus, ports.TopicEpisodeUpdated, dto)
	return dto, nil
}

// Delete supprime l'épisode. Le retrait des références côté contenus est
// fait par ReferenceCleaner (événement episode.deleted) et par le Reconciler.
func (s *EpisodeService) Delete(ctx context.Context, id string) (EpisodeDTO, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return EpisodeDTO{}, episodeNotFound(id)
		}
		return EpisodeDTO{}, err
	}
	dto := toEpisodeDTO(deleted)
	publishJSON(s.bus, ports.TopicEpisodeDeleted, dto)
	return dto, nil
}

// Resolve renvoie les épisodes dans l'ordre de ids, les ids inconnus sont ignorés.
func (s *EpisodeService) Resolve(ctx context.Context, ids []string) ([]EpisodeDTO, error) {
	if len(ids) == 0 {
		return []EpisodeDTO{}, nil
	}
	eps, err := s.repo.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]EpisodeDTO, 0, len(eps))
	for _, e := range eps {
		out = append(out, toEpisodeDTO(e))
	}
	return out, nil
}

func publishJSON(bus ports.EventBus, topic string, v any) {
	if bus == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	bus.Publish(topic, b)
}
