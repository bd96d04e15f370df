package app

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/Guilhem-Bonnet/screencraft/internal/domain"
	"github.com/Guilhem-Bonnet/screencraft/internal/metrics"
	"github.com/Guilhem-Bonnet/screencraft/internal/ports"
	"github.com/rs/xid"
)

// ContentResolver résout des ids de contenus en enregistrements complets,
// dans l'ordre de ids. Les ids inconnus sont ignorés.
type ContentResolver interface {
	Resolve(ctx context.Context, ids []string) ([]ContentItemDTO, error)
}

// HomeScreenService porte les invariants d'une configuration:
// une seule configuration active, ordres de sections denses, sections en set.
type HomeScreenService struct {
	repo  ports.HomeScreenRepository
	items ContentResolver
	bus   ports.EventBus
	cache ports.ActiveConfigCache
	// writes sérialise les read-modify-write dans le process.
	writes *Gate

	MaxPageSize int
	now         func() time.Time
}

func NewHomeScreenService(repo ports.HomeScreenRepository, items ContentResolver, bus ports.EventBus) *HomeScreenService {
	return &HomeScreenService{
		repo:        repo,
		items:       items,
		bus:         bus,
		writes:      NewGate(1),
		MaxPageSize: DefaultMaxPageSize,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithCache branche un cache optionnel de la configuration active.
func (s *HomeScreenService) WithCache(cache ports.ActiveConfigCache) *HomeScreenService {
	s.cache = cache
	return s
}

type SectionDTO struct {
	Name  string           `json:"name"`
	Order int              `json:"order"`
	Items []ContentItemDTO `json:"items"`
}

type HomeScreenDTO struct {
	ID        string       `json:"id"`
	Sections  []SectionDTO `json:"sections"`
	IsActive  bool         `json:"isActive"`
	Version   int64        `json:"version"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// SectionInput est le payload d'une section (création de config, ajout de section).
// Order nil = ajout en fin de liste.
type SectionInput struct {
	Name  string   `json:"name"`
	Order *int     `json:"order,omitempty"`
	Items []string `json:"items"`
}

type CreateHomeScreenRequest struct {
	Sections []SectionInput `json:"sections"`
}

type UpdateHomeScreenRequest struct {
	IsActive *bool          `json:"isActive,omitempty"`
	Sections []SectionInput `json:"sections,omitempty"`
}

type UpdateSectionRequest struct {
	Order *int     `json:"order,omitempty"`
	Items []string `json:"items,omitempty"`
}

func (s *HomeScreenService) Create(ctx context.Context, req CreateHomeScreenRequest) (HomeScreenDTO, error) {
	set, err := s.buildSectionSet(ctx, req.Sections)
	if err != nil {
		return HomeScreenDTO{}, err
	}

	now := s.now()
	created, err := s.repo.Create(ctx, domain.HomeScreenConfig{
		ID:        xid.New().String(),
		Sections:  set.Sections(),
		IsActive:  false,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return HomeScreenDTO{}, err
	}
	return s.afterWrite(ctx, created, ports.TopicHomeScreenCreated)
}

func (s *HomeScreenService) Get(ctx context.Context, id string) (HomeScreenDTO, error) {
	cfg, err := s.repo.Get(ctx, id)
	if err != nil {
		return HomeScreenDTO{}, s.lookupError(id, err)
	}
	return s.populate(ctx, cfg)
}

// FindActive renvoie la configuration active, depuis le cache si disponible.
func (s *HomeScreenService) FindActive(ctx context.Context) (HomeScreenDTO, error) {
	if s.cache != nil {
		if b, ok, err := s.cache.Get(ctx); err == nil && ok {
			var dto HomeScreenDTO
			if err := json.Unmarshal(b, &dto); err == nil {
				return dto, nil
			}
		}
	}

	cfg, err := s.repo.GetActive(ctx)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return HomeScreenDTO{}, notFound("No active home screen configuration found")
		}
		return HomeScreenDTO{}, err
	}
	dto, err := s.populate(ctx, cfg)
	if err != nil {
		return HomeScreenDTO{}, err
	}
	if s.cache != nil {
		if b, err := json.Marshal(dto); err == nil {
			_ = s.cache.Set(ctx, b)
		}
	}
	return dto, nil
}

// List trie la configuration active en premier, puis par updatedAt décroissant.
func (s *HomeScreenService) List(ctx context.Context, page, limit int) (Page[HomeScreenDTO], error) {
	page, limit = NormalizePage(page, limit, s.MaxPageSize)
	cfgs, total, err := s.repo.List(ctx, offsetOf(page, limit), limit)
	if err != nil {
		return Page[HomeScreenDTO]{}, err
	}
	out := make([]HomeScreenDTO, 0, len(cfgs))
	for _, cfg := range cfgs {
		dto, err := s.populate(ctx, cfg)
		if err != nil {
			return Page[HomeScreenDTO]{}, err
		}
		out = append(out, dto)
	}
	return newPage(out, total, page, limit), nil
}

// Update applique un patch partiel. isActive=true passe par l'arbitrage de
// SetActive, dans la même transaction que le remplacement des sections:
// un conflit n'écrit rien. isActive=false désactive sans arbitrage.
func (s *HomeScreenService) Update(ctx context.Context, id string, req UpdateHomeScreenRequest) (HomeScreenDTO, error) {
	if err := s.writes.Acquire(ctx); err != nil {
		return HomeScreenDTO{}, err
	}
	defer s.writes.Release()

	cfg, err := s.repo.Get(ctx, id)
	if err != nil {
		return HomeScreenDTO{}, s.lookupError(id, err)
	}

	var set *domain.SectionSet
	if req.Sections != nil {
		if set, err = s.buildSectionSet(ctx, req.Sections); err != nil {
			return HomeScreenDTO{}, err
		}
	}

	activate := req.IsActive != nil && *req.IsActive
	if activate {
		cfg, err = s.activateLocked(ctx, id, cfg.Version, set)
		if err != nil {
			return HomeScreenDTO{}, err
		}
		return s.afterWrite(ctx, cfg, ports.TopicHomeScreenActivated)
	}

	if set != nil {
		cfg, err = s.repo.ReplaceSections(ctx, id, cfg.Version, set.Sections(), s.now())
		if err != nil {
			return HomeScreenDTO{}, s.writeError(id, err)
		}
	}
	if req.IsActive != nil {
		cfg, err = s.repo.Deactivate(ctx, id, s.now())
		if err != nil {
			return HomeScreenDTO{}, s.writeError(id, err)
		}
	}
	if set == nil && req.IsActive == nil {
		return s.populate(ctx, cfg)
	}
	return s.afterWrite(ctx, cfg, ports.TopicHomeScreenUpdated)
}

// SetActive active id. Échoue en Conflict si une autre configuration est
// déjà active (il faut la désactiver explicitement), en NotFound si id est inconnu.
func (s *HomeScreenService) SetActive(ctx context.Context, id string) (HomeScreenDTO, error) {
	if err := s.writes.Acquire(ctx); err != nil {
		return HomeScreenDTO{}, err
	}
	defer s.writes.Release()

	cfg, err := s.activateLocked(ctx, id, 0, nil)
	if err != nil {
		return HomeScreenDTO{}, err
	}
	return s.afterWrite(ctx, cfg, ports.TopicHomeScreenActivated)
}

// activateLocked active id; si set est non nil, ses sections sont écrites
// dans la même transaction, conditionnées à version.
func (s *HomeScreenService) activateLocked(ctx context.Context, id string, version int64, set *domain.SectionSet) (domain.HomeScreenConfig, error) {
	var (
		cfg domain.HomeScreenConfig
		err error
	)
	if set != nil {
		cfg, err = s.repo.ActivateWithSections(ctx, id, version, set.Sections(), s.now())
	} else {
		cfg, err = s.repo.Activate(ctx, id, s.now())
	}
	switch {
	case err == nil:
		metrics.RecordActivation("ok")
		return cfg, nil
	case errors.Is(err, ports.ErrNotFound):
		metrics.RecordActivation("not_found")
		return domain.HomeScreenConfig{}, homeScreenNotFound(id)
	case errors.Is(err, ports.ErrAlreadyActive):
		metrics.RecordActivation("conflict")
		return domain.HomeScreenConfig{}, conflict("another configuration is already active")
	case errors.Is(err, ports.ErrConflict):
		metrics.RecordActivation("conflict")
		return domain.HomeScreenConfig{}, s.writeError(id, err)
	default:
		metrics.RecordActivation("error")
		return domain.HomeScreenConfig{}, err
	}
}

func (s *HomeScreenService) Delete(ctx context.Context, id string) (HomeScreenDTO, error) {
	if err := s.writes.Acquire(ctx); err != nil {
		return HomeScreenDTO{}, err
	}
	defer s.writes.Release()

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return HomeScreenDTO{}, s.lookupError(id, err)
	}
	return s.afterWrite(ctx, deleted, ports.TopicHomeScreenDeleted)
}

func (s *HomeScreenService) AddSection(ctx context.Context, id string, in SectionInput) (HomeScreenDTO, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return HomeScreenDTO{}, invalid("missing section name")
	}
	if err := s.ensureContentItems(ctx, in.Items); err != nil {
		return HomeScreenDTO{}, err
	}
	return s.mutateSections(ctx, "add_section", id, func(set *domain.SectionSet) (bool, error) {
		at := set.Len()
		if in.Order != nil {
			at = *in.Order
		}
		return true, set.Insert(domain.Section{Name: name, Items: in.Items}, at)
	})
}

// UpdateSection déplace la section (order) et/ou remplace ses contenus (items).
func (s *HomeScreenService) UpdateSection(ctx context.Context, id, name string, req UpdateSectionRequest) (HomeScreenDTO, error) {
	if req.Items != nil {
		if err := s.ensureContentItems(ctx, req.Items); err != nil {
			return HomeScreenDTO{}, err
		}
	}
	return s.mutateSections(ctx, "update_section", id, func(set *domain.SectionSet) (bool, error) {
		if _, ok := set.Get(name); !ok {
			return false, sectionNotFound(id, name)
		}
		if req.Items != nil {
			if err := set.SetItems(name, req.Items); err != nil {
				return false, err
			}
		}
		if req.Order != nil {
			if err := set.Move(name, *req.Order); err != nil {
				return false, err
			}
		}
		return true, nil
	})
}

// ReorderSection est le raccourci de UpdateSection pour un simple déplacement.
func (s *HomeScreenService) ReorderSection(ctx context.Context, id, name string, newOrder int) (HomeScreenDTO, error) {
	return s.UpdateSection(ctx, id, name, UpdateSectionRequest{Order: &newOrder})
}

// RemoveSection est un no-op silencieux si la section n'existe pas.
func (s *HomeScreenService) RemoveSection(ctx context.Context, id, name string) (HomeScreenDTO, error) {
	return s.mutateSections(ctx, "remove_section", id, func(set *domain.SectionSet) (bool, error) {
		return set.Remove(name), nil
	})
}

func (s *HomeScreenService) AddContentItem(ctx context.Context, id, section, contentItemID string) (HomeScreenDTO, error) {
	contentItemID = strings.TrimSpace(contentItemID)
	if contentItemID == "" {
		return HomeScreenDTO{}, invalid("missing contentItemId")
	}
	if err := s.ensureContentItems(ctx, []string{contentItemID}); err != nil {
		return HomeScreenDTO{}, err
	}
	return s.mutateSections(ctx, "add_content_item", id, func(set *domain.SectionSet) (bool, error) {
		added, err := set.AddItem(section, contentItemID)
		if err != nil {
			return false, sectionNotFound(id, section)
		}
		return added, nil
	})
}

func (s *HomeScreenService) RemoveContentItem(ctx context.Context, id, section, contentItemID string) (HomeScreenDTO, error) {
	return s.mutateSections(ctx, "remove_content_item", id, func(set *domain.SectionSet) (bool, error) {
		removed, err := set.RemoveItem(section, contentItemID)
		if err != nil {
			return false, sectionNotFound(id, section)
		}
		return removed, nil
	})
}

// PurgeContentItem retire un contenu supprimé de toutes les configurations.
func (s *HomeScreenService) PurgeContentItem(ctx context.Context, contentItemID string) (int, error) {
	if err := s.writes.Acquire(ctx); err != nil {
		return 0, err
	}
	defer s.writes.Release()

	n, err := s.repo.PurgeContentItem(ctx, contentItemID)
	if err != nil {
		return 0, err
	}
	metrics.RecordPurged("content_item", n)
	if n > 0 {
		s.InvalidateActive(ctx)
	}
	return n, nil
}

// ReconcileReferences retire des sections les contenus qui n'existent plus.
func (s *HomeScreenService) ReconcileReferences(ctx context.Context) (int, error) {
	referenced := []string{}
	seen := map[string]struct{}{}
	const batch = 100
	for offset := 0; ; offset += batch {
		cfgs, total, err := s.repo.List(ctx, offset, batch)
		if err != nil {
			return 0, err
		}
		for _, cfg := range cfgs {
			for _, id := range cfg.ContentItemIDs() {
				if _, ok := seen[id]; !ok {
					seen[id] = struct{}{}
					referenced = append(referenced, id)
				}
			}
		}
		if len(cfgs) == 0 || offset+batch >= total {
			break
		}
	}

	missing, err := s.missingContentItems(ctx, referenced)
	if err != nil {
		return 0, err
	}
	purged := 0
	for _, id := range missing {
		n, err := s.PurgeContentItem(ctx, id)
		if err != nil {
			return purged, err
		}
		purged += n
	}
	return purged, nil
}

// InvalidateActive vide le cache de la configuration active (best-effort).
func (s *HomeScreenService) InvalidateActive(ctx context.Context) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Invalidate(ctx)
}

// mutateSections charge la configuration, applique fn sur son SectionSet puis
// remplace la liste complète en une écriture, conditionnée à la version lue.
func (s *HomeScreenService) mutateSections(ctx context.Context, op, id string, fn func(set *domain.SectionSet) (bool, error)) (dto HomeScreenDTO, err error) {
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		metrics.RecordSectionMutation(op, result)
	}()

	if err := s.writes.Acquire(ctx); err != nil {
		return HomeScreenDTO{}, err
	}
	defer s.writes.Release()

	cfg, err := s.repo.Get(ctx, id)
	if err != nil {
		return HomeScreenDTO{}, s.lookupError(id, err)
	}
	set, err := domain.NewSectionSet(cfg.Sections)
	if err != nil {
		return HomeScreenDTO{}, sectionError(id, err)
	}
	changed, err := fn(set)
	if err != nil {
		return HomeScreenDTO{}, sectionError(id, err)
	}
	if !changed {
		return s.populate(ctx, cfg)
	}

	updated, err := s.repo.ReplaceSections(ctx, id, cfg.Version, set.Sections(), s.now())
	if err != nil {
		return HomeScreenDTO{}, s.writeError(id, err)
	}
	return s.afterWrite(ctx, updated, ports.TopicHomeScreenUpdated)
}

func (s *HomeScreenService) afterWrite(ctx context.Context, cfg domain.HomeScreenConfig, topic string) (HomeScreenDTO, error) {
	s.InvalidateActive(ctx)
	dto, err := s.populate(ctx, cfg)
	if err != nil {
		return HomeScreenDTO{}, err
	}
	publishJSON(s.bus, topic, dto)
	return dto, nil
}

// populate remplace les ids par les contenus complets. Les références
// orphelines (contenu supprimé, pas encore purgé) sont ignorées.
func (s *HomeScreenService) populate(ctx context.Context, cfg domain.HomeScreenConfig) (HomeScreenDTO, error) {
	byID := map[string]ContentItemDTO{}
	if ids := cfg.ContentItemIDs(); len(ids) > 0 && s.items != nil {
		resolved, err := s.items.Resolve(ctx, ids)
		if err != nil {
			return HomeScreenDTO{}, err
		}
		for _, it := range resolved {
			byID[it.ID] = it
		}
	}

	sections := make([]SectionDTO, 0, len(cfg.Sections))
	for _, sec := range cfg.Sections {
		items := make([]ContentItemDTO, 0, len(sec.Items))
		for _, id := range sec.Items {
			if it, ok := byID[id]; ok {
				items = append(items, it)
			}
		}
		sections = append(sections, SectionDTO{Name: sec.Name, Order: sec.Order, Items: items})
	}
	return HomeScreenDTO{
		ID:        cfg.ID,
		Sections:  sections,
		IsActive:  cfg.IsActive,
		Version:   cfg.Version,
		CreatedAt: cfg.CreatedAt,
		UpdatedAt: cfg.UpdatedAt,
	}, nil
}

func (s *HomeScreenService) buildSectionSet(ctx context.Context, in []SectionInput) (*domain.SectionSet, error) {
	sections := make([]domain.Section, 0, len(in))
	ids := []string{}
	for i, sec := range in {
		order := i
		if sec.Order != nil {
			order = *sec.Order
		}
		sections = append(sections, domain.Section{Name: strings.TrimSpace(sec.Name), Order: order, Items: sec.Items})
		ids = append(ids, sec.Items...)
	}
	set, err := domain.NewSectionSet(sections)
	if err != nil {
		return nil, sectionError("", err)
	}
	if err := s.ensureContentItems(ctx, ids); err != nil {
		return nil, err
	}
	return set, nil
}

func (s *HomeScreenService) ensureContentItems(ctx context.Context, ids []string) error {
	missing, err := s.missingContentItems(ctx, ids)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return contentItemNotFound(missing[0])
	}
	return nil
}

func (s *HomeScreenService) missingContentItems(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 || s.items == nil {
		return nil, nil
	}
	resolved, err := s.items.Resolve(ctx, ids)
	if err != nil {
		return nil, err
	}
	found := make(map[string]struct{}, len(resolved))
	for _, it := range resolved {
		found[it.ID] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (s *HomeScreenService) lookupError(id string, err error) error {
	if errors.Is(err, ports.ErrNotFound) {
		return homeScreenNotFound(id)
	}
	return err
}

func (s *HomeScreenService) writeError(id string, err error) error {
	switch {
	case errors.Is(err, ports.ErrNotFound):
		return homeScreenNotFound(id)
	case errors.Is(err, ports.ErrConflict):
		return conflict("home screen configuration %s was modified concurrently", id)
	default:
		return err
	}
}

func sectionNotFound(id, name string) error {
	return notFound("Section %s not found in home screen configuration %s", name, id)
}
