package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Guilhem-Bonnet/screencraft/internal/domain"
	"github.com/Guilhem-Bonnet/screencraft/internal/ports"
)

type HomeScreensRepository struct {
	db *sql.DB
}

func NewHomeScreensRepository(db *sql.DB) *HomeScreensRepository {
	return &HomeScreensRepository{db: db}
}

const homeScreenColumns = `id, sections_json, is_active, version, created_at, updated_at`

func (r *HomeScreensRepository) Create(ctx context.Context, cfg domain.HomeScreenConfig) (domain.HomeScreenConfig, error) {
	sections, err := encodeSections(cfg.Sections)
	if err != nil {
		return domain.HomeScreenConfig{}, err
	}
	version := cfg.Version
	if version <= 0 {
		version = 1
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO home_screens(`+homeScreenColumns+`)
		VALUES(?, ?, ?, ?, ?, ?)
	`,
		cfg.ID, sections, boolToInt(cfg.IsActive), version,
		formatTime(cfg.CreatedAt), formatTime(cfg.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.HomeScreenConfig{}, ports.ErrConflict
		}
		return domain.HomeScreenConfig{}, err
	}
	return r.Get(ctx, cfg.ID)
}

func (r *HomeScreensRepository) Get(ctx context.Context, id string) (domain.HomeScreenConfig, error) {
	return r.getOne(ctx, r.db, `SELECT `+homeScreenColumns+` FROM home_screens WHERE id = ?`, id)
}

func (r *HomeScreensRepository) GetActive(ctx context.Context) (domain.HomeScreenConfig, error) {
	return r.getOne(ctx, r.db, `SELECT `+homeScreenColumns+` FROM home_screens WHERE is_active = 1 LIMIT 1`)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *HomeScreensRepository) getOne(ctx context.Context, q querier, query string, args ...any) (domain.HomeScreenConfig, error) {
	cfg, err := scanHomeScreen(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.HomeScreenConfig{}, ports.ErrNotFound
		}
		return domain.HomeScreenConfig{}, err
	}
	return cfg, nil
}

func (r *HomeScreensRepository) List(ctx context.Context, offset, limit int) ([]domain.HomeScreenConfig, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM home_screens`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+homeScreenColumns+` FROM home_screens
		ORDER BY is_active DESC, updated_at DESC, id ASC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]domain.HomeScreenConfig, 0, limit)
	for rows.Next() {
		cfg, err := scanHomeScreen(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, cfg)
	}
	return out, total, rows.Err()
}

func (r *HomeScreensRepository) ReplaceSections(ctx context.Context, id string, expectedVersion int64, sections []domain.Section, updatedAt time.Time) (domain.HomeScreenConfig, error) {
	encoded, err := encodeSections(sections)
	if err != nil {
		return domain.HomeScreenConfig{}, err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE home_screens
		SET sections_json = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`, encoded, formatTime(updatedAt), id, expectedVersion)
	if err != nil {
		return domain.HomeScreenConfig{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// id inconnu ou version périmée
		if _, err := r.Get(ctx, id); err != nil {
			return domain.HomeScreenConfig{}, err
		}
		return domain.HomeScreenConfig{}, ports.ErrConflict
	}
	return r.Get(ctx, id)
}

// Activate vérifie l'existence puis l'absence d'une autre configuration active,
// et bascule is_active dans la même transaction. L'index unique partiel
// idx_home_screens_single_active reste le dernier rempart.
func (r *HomeScreensRepository) Activate(ctx context.Context, id string, updatedAt time.Time) (domain.HomeScreenConfig, error) {
	return r.activate(ctx, id, updatedAt, nil)
}

func (r *HomeScreensRepository) ActivateWithSections(ctx context.Context, id string, expectedVersion int64, sections []domain.Section, updatedAt time.Time) (domain.HomeScreenConfig, error) {
	encoded, err := encodeSections(sections)
	if err != nil {
		return domain.HomeScreenConfig{}, err
	}
	return r.activate(ctx, id, updatedAt, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE home_screens
			SET sections_json = ?, version = version + 1, updated_at = ?
			WHERE id = ? AND version = ?
		`, encoded, formatTime(updatedAt), id, expectedVersion)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ports.ErrConflict
		}
		return nil
	})
}

// activate exécute before (si non nil) après les vérifications et avant la bascule.
func (r *HomeScreensRepository) activate(ctx context.Context, id string, updatedAt time.Time, before func(tx *sql.Tx) error) (domain.HomeScreenConfig, error) {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var active int
		if err := tx.QueryRowContext(ctx, `SELECT is_active FROM home_screens WHERE id = ?`, id).Scan(&active); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ports.ErrNotFound
			}
			return err
		}

		if active == 0 {
			var other string
			err := tx.QueryRowContext(ctx, `SELECT id FROM home_screens WHERE is_active = 1 AND id <> ? LIMIT 1`, id).Scan(&other)
			switch {
			case err == nil:
				return fmt.Errorf("%w: %s", ports.ErrAlreadyActive, other)
			case !errors.Is(err, sql.ErrNoRows):
				return err
			}
		}

		if before != nil {
			if err := before(tx); err != nil {
				return err
			}
		}

		// déjà active: la bascule ne fait que rafraîchir updated_at
		if _, err := tx.ExecContext(ctx, `
			UPDATE home_screens
			SET is_active = 1, version = version + 1, updated_at = ?
			WHERE id = ?
		`, formatTime(updatedAt), id); err != nil {
			if isUniqueViolation(err) {
				return ports.ErrAlreadyActive
			}
			return err
		}
		return nil
	})
	if err != nil {
		return domain.HomeScreenConfig{}, err
	}
	return r.Get(ctx, id)
}

func (r *HomeScreensRepository) Deactivate(ctx context.Context, id string, updatedAt time.Time) (domain.HomeScreenConfig, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE home_screens
		SET is_active = 0, version = version + 1, updated_at = ?
		WHERE id = ?
	`, formatTime(updatedAt), id)
	if err != nil {
		return domain.HomeScreenConfig{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.HomeScreenConfig{}, ports.ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *HomeScreensRepository) Delete(ctx context.Context, id string) (domain.HomeScreenConfig, error) {
	var deleted domain.HomeScreenConfig
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		cfg, err := r.getOne(ctx, tx, `SELECT `+homeScreenColumns+` FROM home_screens WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM home_screens WHERE id = ?`, id); err != nil {
			return err
		}
		deleted = cfg
		return nil
	})
	return deleted, err
}

// PurgeContentItem retire contentItemID de toutes les sections, dans une transaction.
// Les configurations modifiées voient leur version incrémentée.
func (r *HomeScreensRepository) PurgeContentItem(ctx context.Context, contentItemID string) (int, error) {
	needle, err := json.Marshal(contentItemID)
	if err != nil {
		return 0, err
	}
	purged := 0
	err = withTx(ctx, r.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT `+homeScreenColumns+` FROM home_screens WHERE instr(sections_json, ?) > 0`, string(needle))
		if err != nil {
			return err
		}
		var touched []domain.HomeScreenConfig
		for rows.Next() {
			cfg, err := scanHomeScreen(rows)
			if err != nil {
				_ = rows.Close()
				return err
			}
			set, err := domain.NewSectionSet(cfg.Sections)
			if err != nil {
				_ = rows.Close()
				return fmt.Errorf("home screen %s: %w", cfg.ID, err)
			}
			if set.PurgeItem(contentItemID) {
				cfg.Sections = set.Sections()
				touched = append(touched, cfg)
			}
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return err
		}
		if err := rows.Close(); err != nil {
			return err
		}

		now := formatTime(time.Now())
		for _, cfg := range touched {
			encoded, err := encodeSections(cfg.Sections)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
				UPDATE home_screens
				SET sections_json = ?, version = version + 1, updated_at = ?
				WHERE id = ?
			`, encoded, now, cfg.ID); err != nil {
				return err
			}
		}
		purged = len(touched)
		return nil
	})
	return purged, err
}

func scanHomeScreen(row rowScanner) (domain.HomeScreenConfig, error) {
	var cfg domain.HomeScreenConfig
	var sections, created, updated string
	var active int
	if err := row.Scan(&cfg.ID, &sections, &active, &cfg.Version, &created, &updated); err != nil {
		return domain.HomeScreenConfig{}, err
	}
	cfg.IsActive = active != 0
	decoded, err := decodeSections(sections)
	if err != nil {
		return domain.HomeScreenConfig{}, fmt.Errorf("home screen %s: %w", cfg.ID, err)
	}
	cfg.Sections = decoded
	cfg.CreatedAt = parseTime(created)
	cfg.UpdatedAt = parseTime(updated)
	return cfg, nil
}

func encodeSections(sections []domain.Section) (string, error) {
	if sections == nil {
		sections = []domain.Section{}
	}
	for i := range sections {
		if sections[i].Items == nil {
			sections[i].Items = []string{}
		}
	}
	b, err := json.Marshal(sections)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeSections(s string) ([]domain.Section, error) {
	out := []domain.Section{}
	if s == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}
