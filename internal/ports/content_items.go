package ports

import (
	"context"

	"github.com/Guilhem-Bonnet/screencraft/internal/domain"
)

type ContentItemRepository interface {
	Create(ctx context.Context, item domain.ContentItem) (domain.ContentItem, error)
	Get(ctx context.Context, id string) (domain.ContentItem, error)
	// GetMany conserve l'ordre de ids et ignore les ids inconnus.
	GetMany(ctx context.Context, ids []string) ([]domain.ContentItem, error)
	List(ctx context.Context, offset, limit int) ([]domain.ContentItem, int, error)
	Update(ctx context.Context, item domain.ContentItem) (domain.ContentItem, error)
	Delete(ctx context.Context, id string) (domain.ContentItem, error)
	// PurgeEpisode retire episodeID de tous les contenus et renvoie le nombre de contenus modifiés.
	PurgeEpisode(ctx context.Context, episodeID string) (int, error)
}

type EpisodeRepository interface {
	Create(ctx context.Context, ep domain.Episode) (domain.Episode, error)
	Get(ctx context.Context, id string) (domain.Episode, error)
	GetMany(ctx context.Context, ids []string) ([]domain.Episode, error)
	List(ctx context.Context, offset, limit int) ([]domain.Episode, int, error)
	Update(ctx context.Context, ep domain.Episode) (domain.Episode, error)
	Delete(ctx context.Context, id string) (domain.Episode, error)
}
