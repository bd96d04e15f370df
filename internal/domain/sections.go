package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrSectionNotFound  = errors.New("section not found")
	ErrDuplicateSection = errors.New("section already exists")
	ErrInvalidSection   = errors.New("invalid section")
)

// Section est embarquée dans une HomeScreenConfig.
// Order est la position de la section, Items l'ordre d'affichage de ses contenus.
type Section struct {
	Name  string   `json:"name"`
	Order int      `json:"order"`
	Items []string `json:"items"`
}

// SectionSet est une map ordonnée nom -> section.
// Invariant: sections est triée et Order == index (0..n-1), index[nom] == position.
type SectionSet struct {
	sections []Section
	index    map[string]int
}

// NewSectionSet construit le set à partir d'une liste brute (ex: payload HTTP
// ou document stocké). Les ordres sont renumérotés de façon dense en gardant
// l'ordre relatif (tri stable), les items sont dédoublonnés.
func NewSectionSet(sections []Section) (*SectionSet, error) {
	s := &SectionSet{sections: make([]Section, 0, len(sections))}
	seen := map[string]struct{}{}
	for _, sec := range sections {
		if strings.TrimSpace(sec.Name) == "" {
			return nil, fmt.Errorf("%w: missing name", ErrInvalidSection)
		}
		if _, ok := seen[sec.Name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSection, sec.Name)
		}
		seen[sec.Name] = struct{}{}
		s.sections = append(s.sections, Section{Name: sec.Name, Order: sec.Order, Items: dedupItems(sec.Items)})
	}
	s.renumber()
	return s, nil
}

func (s *SectionSet) Len() int { return len(s.sections) }

func (s *SectionSet) Get(name string) (Section, bool) {
	i, ok := s.index[name]
	if !ok {
		return Section{}, false
	}
	return cloneSection(s.sections[i]), true
}

// Sections renvoie une copie, triée par Order.
func (s *SectionSet) Sections() []Section {
	out := make([]Section, 0, len(s.sections))
	for _, sec := range s.sections {
		out = append(out, cloneSection(sec))
	}
	return out
}

// Insert place la section à la position at (bornée à [0, n]).
// Les sections situées à cette position ou après sont décalées d'un cran.
func (s *SectionSet) Insert(sec Section, at int) error {
	if strings.TrimSpace(sec.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidSection)
	}
	if _, ok := s.index[sec.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateSection, sec.Name)
	}
	at = clamp(at, 0, len(s.sections))
	for i := range s.sections {
		if s.sections[i].Order >= at {
			s.sections[i].Order++
		}
	}
	s.sections = append(s.sections, Section{Name: sec.Name, Order: at, Items: dedupItems(sec.Items)})
	s.renumber()
	return nil
}

// Remove supprime la section (no-op si absente) et renumérote les suivantes.
func (s *SectionSet) Remove(name string) bool {
	i, ok := s.index[name]
	if !ok {
		return false
	}
	s.sections = append(s.sections[:i], s.sections[i+1:]...)
	s.renumber()
	return true
}

// Move déplace la section vers newOrder.
//
// Les voisines entre l'ancienne et la nouvelle position sont décalées d'un cran
// (vers le haut si la section descend, vers le bas si elle monte), puis la
// liste est retriée et renumérotée 0..n-1. La renumérotation absorbe un
// newOrder hors bornes.
func (s *SectionSet) Move(name string, newOrder int) error {
	i, ok := s.index[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrSectionNotFound, name)
	}
	oldOrder := s.sections[i].Order
	s.sections[i].Order = newOrder
	for j := range s.sections {
		if j == i {
			continue
		}
		o := s.sections[j].Order
		switch {
		case newOrder > oldOrder && o > oldOrder && o <= newOrder:
			s.sections[j].Order = o - 1
		case newOrder < oldOrder && o >= newOrder && o < oldOrder:
			s.sections[j].Order = o + 1
		}
	}
	s.renumber()
	return nil
}

// SetItems remplace la liste des contenus d'une section.
func (s *SectionSet) SetItems(name string, items []string) error {
	i, ok := s.index[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrSectionNotFound, name)
	}
	s.sections[i].Items = dedupItems(items)
	return nil
}

// AddItem ajoute itemID à la section s'il n'y est pas déjà.
func (s *SectionSet) AddItem(name, itemID string) (bool, error) {
	i, ok := s.index[name]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrSectionNotFound, name)
	}
	for _, id := range s.sections[i].Items {
		if id == itemID {
			return false, nil
		}
	}
	s.sections[i].Items = append(s.sections[i].Items, itemID)
	return true, nil
}

// RemoveItem retire toutes les occurrences de itemID de la section.
func (s *SectionSet) RemoveItem(name, itemID string) (bool, error) {
	i, ok := s.index[name]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrSectionNotFound, name)
	}
	var removed bool
	s.sections[i].Items, removed = without(s.sections[i].Items, itemID)
	return removed, nil
}

// PurgeItem retire itemID de toutes les sections.
func (s *SectionSet) PurgeItem(itemID string) bool {
	changed := false
	for i := range s.sections {
		var removed bool
		s.sections[i].Items, removed = without(s.sections[i].Items, itemID)
		changed = changed || removed
	}
	return changed
}

func (s *SectionSet) renumber() {
	sort.SliceStable(s.sections, func(a, b int) bool {
		return s.sections[a].Order < s.sections[b].Order
	})
	s.index = make(map[string]int, len(s.sections))
	for i := range s.sections {
		s.sections[i].Order = i
		s.index[s.sections[i].Name] = i
	}
}

func without(items []string, itemID string) ([]string, bool) {
	out := make([]string, 0, len(items))
	removed := false
	for _, id := range items {
		if id == itemID {
			removed = true
			continue
		}
		out = append(out, id)
	}
	return out, removed
}

func dedupItems(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, id := range items {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func cloneSection(sec Section) Section {
	items := make([]string, len(sec.Items))
	copy(items, sec.Items)
	return Section{Name: sec.Name, Order: sec.Order, Items: items}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
