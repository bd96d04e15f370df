package domain

import "time"

type ContentItem struct {
	ID   string
	Name string

	// IntroImage est stocké tel que reçu (base64 ou data URL).
	IntroImage  string
	IsExclusive bool
	Category    string

	// EpisodeIDs conserve l'ordre d'affichage, sans doublon.
	EpisodeIDs []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AddEpisode ajoute episodeID s'il n'est pas déjà présent.
func (c *ContentItem) AddEpisode(episodeID string) bool {
	for _, id := range c.EpisodeIDs {
		if id == episodeID {
			return false
		}
	}
	c.EpisodeIDs = append(c.EpisodeIDs, episodeID)
	return true
}

// RemoveEpisode retire toutes les occurrences de episodeID.
func (c *ContentItem) RemoveEpisode(episodeID string) bool {
	out := c.EpisodeIDs[:0]
	removed := false
	for _, id := range c.EpisodeIDs {
		if id == episodeID {
			removed = true
			continue
		}
		out = append(out, id)
	}
	c.EpisodeIDs = out
	return removed
}
