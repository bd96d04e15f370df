package app

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/Guilhem-Bonnet/screencraft/internal/ports"
	"github.com/rs/zerolog"
)

// ReferenceCleaner écoute le bus et retire les références vers les
// contenus/épisodes supprimés. Best-effort: un événement perdu est rattrapé
// par le Reconciler.
type ReferenceCleaner struct {
	logger  zerolog.Logger
	bus     ports.EventBus
	screens *HomeScreenService
	items   *ContentItemService
}

func NewReferenceCleaner(logger zerolog.Logger, bus ports.EventBus, screens *HomeScreenService, items *ContentItemService) *ReferenceCleaner {
	return &ReferenceCleaner{logger: logger, bus: bus, screens: screens, items: items}
}

type deletedRef struct {
	ID string `json:"id"`
}

func (c *ReferenceCleaner) Run(ctx context.Context) {
	if c == nil || c.bus == nil {
		return
	}
	ch, cancel := c.bus.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("reference cleaner stopped")
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			c.handleEvent(ctx, evt)
		}
	}
}

func (c *ReferenceCleaner) handleEvent(ctx context.Context, evt ports.Event) {
	switch evt.Topic {
	case ports.TopicContentItemDeleted:
		id := refID(evt.Payload)
		if id == "" || c.screens == nil {
			return
		}
		n, err := c.screens.PurgeContentItem(ctx, id)
		if err != nil {
			c.logger.Warn().Err(err).Str("content_item_id", id).Msg("failed to purge content item references")
			return
		}
		if n > 0 {
			c.logger.Debug().Str("content_item_id", id).Int("configs", n).Msg("content item purged from sections")
		}
	case ports.TopicEpisodeDeleted:
		id := refID(evt.Payload)
		if id == "" || c.items == nil {
			return
		}
		n, err := c.items.PurgeEpisode(ctx, id)
		if err != nil {
			c.logger.Warn().Err(err).Str("episode_id", id).Msg("failed to purge episode references")
			return
		}
		if n > 0 {
			c.logger.Debug().Str("episode_id", id).Int("content_items", n).Msg("episode purged from content items")
		}
	case ports.TopicContentItemUpdated, ports.TopicContentItemCreated:
		// la config active en cache embarque une copie du contenu
		if c.screens != nil {
			c.screens.InvalidateActive(ctx)
		}
	}
}

func refID(payload []byte) string {
	var ref deletedRef
	if err := json.Unmarshal(payload, &ref); err != nil {
		return ""
	}
	return strings.TrimSpace(ref.ID)
}
