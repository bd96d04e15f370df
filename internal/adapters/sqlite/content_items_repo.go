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

type ContentItemsRepository struct {
	db *sql.DB
}

func NewContentItemsRepository(db *sql.DB) *ContentItemsRepository {
	return &ContentItemsRepository{db: db}
}

const contentItemColumns = `id, name, intro_image, is_exclusive, category, episodes_json, created_at, updated_at`

func (r *ContentItemsRepository) Create(ctx context.Context, item domain.ContentItem) (domain.ContentItem, error) {
	episodes, err := encodeIDs(item.EpisodeIDs)
	if err != nil {
		return domain.ContentItem{}, err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO content_items(`+contentItemColumns+`)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)
	`,
		item.ID, item.Name, item.IntroImage, boolToInt(item.IsExclusive), item.Category, episodes,
		formatTime(item.CreatedAt), formatTime(item.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ContentItem{}, ports.ErrConflict
		}
		return domain.ContentItem{}, err
	}
	return r.Get(ctx, item.ID)
}

func (r *ContentItemsRepository) Get(ctx context.Context, id string) (domain.ContentItem, error) {
	item, err := scanContentItem(r.db.QueryRowContext(ctx, `SELECT `+contentItemColumns+` FROM content_items WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ContentItem{}, ports.ErrNotFound
		}
		return domain.ContentItem{}, err
	}
	return item, nil
}

func (r *ContentItemsRepository) GetMany(ctx context.Context, ids []string) ([]domain.ContentItem, error) {
	if len(ids) == 0 {
		return []domain.ContentItem{}, nil
	}
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+contentItemColumns+` FROM content_items WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := map[string]domain.ContentItem{}
	for rows.Next() {
		item, err := scanContentItem(rows)
		if err != nil {
			return nil, err
		}
		byID[item.ID] = item
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.ContentItem, 0, len(byID))
	for _, id := range ids {
		if item, ok := byID[id]; ok {
			out = append(out, item)
			delete(byID, id)
		}
	}
	return out, nil
}

func (r *ContentItemsRepository) List(ctx context.Context, offset, limit int) ([]domain.ContentItem, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM content_items`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+contentItemColumns+` FROM content_items
		ORDER BY created_at ASC, id ASC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]domain.ContentItem, 0, limit)
	for rows.Next() {
		item, err := scanContentItem(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, item)
	}
	return out, total, rows.Err()
}

func (r *ContentItemsRepository) Update(ctx context.Context, item domain.ContentItem) (domain.ContentItem, error) {
	episodes, err := encodeIDs(item.EpisodeIDs)
	if err != nil {
		return domain.ContentItem{}, err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE content_items
		SET name = ?, intro_image = ?, is_exclusive = ?, category = ?, episodes_json = ?, updated_at = ?
		WHERE id = ?
	`,
		item.Name, item.IntroImage, boolToInt(item.IsExclusive), item.Category, episodes,
		formatTime(item.UpdatedAt),
		item.ID,
	)
	if err != nil {
		return domain.ContentItem{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ContentItem{}, ports.ErrNotFound
	}
	return r.Get(ctx, item.ID)
}

func (r *ContentItemsRepository) Delete(ctx context.Context, id string) (domain.ContentItem, error) {
	var deleted domain.ContentItem
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		item, err := scanContentItem(tx.QueryRowContext(ctx, `SELECT `+contentItemColumns+` FROM content_items WHERE id = ?`, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ports.ErrNotFound
			}
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM content_items WHERE id = ?`, id); err != nil {
			return err
		}
		deleted = item
		return nil
	})
	return deleted, err
}

// PurgeEpisode retire episodeID de tous les contenus, dans une transaction.
func (r *ContentItemsRepository) PurgeEpisode(ctx context.Context, episodeID string) (int, error) {
	needle, err := json.Marshal(episodeID)
	if err != nil {
		return 0, err
	}
	purged := 0
	err = withTx(ctx, r.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT `+contentItemColumns+` FROM content_items WHERE instr(episodes_json, ?) > 0`, string(needle))
		if err != nil {
			return err
		}
		var touched []domain.ContentItem
		for rows.Next() {
			item, err := scanContentItem(rows)
			if err != nil {
				_ = rows.Close()
				return err
			}
			if item.RemoveEpisode(episodeID) {
				touched = append(touched, item)
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
		for _, item := range touched {
			episodes, err := encodeIDs(item.EpisodeIDs)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `UPDATE content_items SET episodes_json = ?, updated_at = ? WHERE id = ?`, episodes, now, item.ID); err != nil {
				return err
			}
		}
		purged = len(touched)
		return nil
	})
	return purged, err
}

func scanContentItem(row rowScanner) (domain.ContentItem, error) {
	var item domain.ContentItem
	var exclusive int
	var episodes, created, updated string
	if err := row.Scan(&item.ID, &item.Name, &item.IntroImage, &exclusive, &item.Category, &episodes, &created, &updated); err != nil {
		return domain.ContentItem{}, err
	}
	item.IsExclusive = exclusive != 0
	ids, err := decodeIDs(episodes)
	if err != nil {
		return domain.ContentItem{}, fmt.Errorf("content item %s: %w", item.ID, err)
	}
	item.EpisodeIDs = ids
	item.CreatedAt = parseTime(created)
	item.UpdatedAt = parseTime(updated)
	return item, nil
}

func encodeIDs(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeIDs(s string) ([]string, error) {
	ids := []string{}
	if s == "" {
		return ids, nil
	}
	if err := json.Unmarshal([]byte(s), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}
