package domain

import "time"

// HomeScreenConfig est une configuration d'écran d'accueil.
// Au plus une configuration du store porte IsActive = true.
type HomeScreenConfig struct {
	ID       string
	Sections []Section
	IsActive bool

	// Version est incrémentée à chaque écriture (compare-and-swap des sections).
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ContentItemIDs renvoie les ids référencés par toutes les sections, sans doublon.
func (c HomeScreenConfig) ContentItemIDs() []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, s := range c.Sections {
		for _, id := range s.Items {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
