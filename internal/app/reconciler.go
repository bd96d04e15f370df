package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Reconciler purge périodiquement les références orphelines
// (contenus dans les sections, épisodes dans les contenus).
type Reconciler struct {
	logger  zerolog.Logger
	screens *HomeScreenService
	items   *ContentItemService

	TickInterval time.Duration
}

func NewReconciler(logger zerolog.Logger, screens *HomeScreenService, items *ContentItemService) *Reconciler {
	return &Reconciler{
		logger:       logger,
		screens:      screens,
		items:        items,
		TickInterval: 10 * time.Minute,
	}
}

// Run bloque jusqu'à l'annulation de ctx. TickInterval <= 0 désactive la boucle.
func (r *Reconciler) Run(ctx context.Context) {
	if r.TickInterval <= 0 {
		return
	}
	ticker := time.NewTicker(r.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("reconciler stopped")
			return
		case <-ticker.C:
			r.Once(ctx)
		}
	}
}

// Once exécute une passe complète et renvoie le nombre d'enregistrements modifiés.
func (r *Reconciler) Once(ctx context.Context) int {
	total := 0
	if r.items != nil {
		n, err := r.items.ReconcileEpisodes(ctx)
		if err != nil {
			r.logger.Error().Err(err).Msg("episode reconciliation failed")
		}
		total += n
	}
	if r.screens != nil {
		n, err := r.screens.ReconcileReferences(ctx)
		if err != nil {
			r.logger.Error().Err(err).Msg("content item reconciliation failed")
		}
		total += n
	}
	if total > 0 {
		r.logger.Info().Int("purged", total).Msg("dangling references purged")
	}
	return total
}
