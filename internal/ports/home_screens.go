package ports

import (
	"context"
	"time"

	"github.com/Guilhem-Bonnet/screencraft/internal/domain"
)

type HomeScreenRepository interface {
	Create(ctx context.Context, cfg domain.HomeScreenConfig) (domain.HomeScreenConfig, error)
	Get(ctx context.Context, id string) (domain.HomeScreenConfig, error)
	// GetActive renvoie ErrNotFound si aucune configuration n'est active.
	GetActive(ctx context.Context) (domain.HomeScreenConfig, error)
	// List trie la configuration active en premier puis par updated_at décroissant.
	List(ctx context.Context, offset, limit int) ([]domain.HomeScreenConfig, int, error)
	// ReplaceSections remplace la liste complète si la version stockée vaut expectedVersion.
	// Renvoie ErrConflict si la version a changé entre-temps.
	ReplaceSections(ctx context.Context, id string, expectedVersion int64, sections []domain.Section, updatedAt time.Time) (domain.HomeScreenConfig, error)
	// Activate fait la vérification + bascule dans une seule transaction.
	// ErrNotFound si id est inconnu, ErrAlreadyActive si une autre configuration est active.
	// Réactiver la configuration active rafraîchit updated_at.
	Activate(ctx context.Context, id string, updatedAt time.Time) (domain.HomeScreenConfig, error)
	// ActivateWithSections remplace les sections (contrôle de version) et active id
	// dans la même transaction. En cas d'erreur rien n'est écrit.
	ActivateWithSections(ctx context.Context, id string, expectedVersion int64, sections []domain.Section, updatedAt time.Time) (domain.HomeScreenConfig, error)
	Deactivate(ctx context.Context, id string, updatedAt time.Time) (domain.HomeScreenConfig, error)
	Delete(ctx context.Context, id string) (domain.HomeScreenConfig, error)
	// PurgeContentItem retire contentItemID de toutes les sections et renvoie le nombre de configurations modifiées.
	PurgeContentItem(ctx context.Context, contentItemID string) (int, error)
}

// ActiveConfigCache met en cache la configuration active déjà "populée" (JSON).
type ActiveConfigCache interface {
	Get(ctx context.Context) ([]byte, bool, error)
	Set(ctx context.Context, payload []byte) error
	Invalidate(ctx context.Context) error
}
