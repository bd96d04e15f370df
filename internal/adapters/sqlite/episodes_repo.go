package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Guilhem-Bonnet/screencraft/internal/domain"
	"github.com/Guilhem-Bonnet/screencraft/internal/ports"
)

type EpisodesRepository struct {
	db *sql.DB
}

func NewEpisodesRepository(db *sql.DB) *EpisodesRepository {
	return &EpisodesRepository{db: db}
}

const episodeColumns = `id, name, is_exclusive, likes_number, reviewed, video_link, created_at, updated_at`

func (r *EpisodesRepository) Create(ctx context.Context, ep domain.Episode) (domain.Episode, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO episodes(`+episodeColumns+`)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)
	`,
		ep.ID, ep.Name, boolToInt(ep.IsExclusive), ep.LikesNumber, boolToInt(ep.Reviewed), ep.VideoLink,
		formatTime(ep.CreatedAt), formatTime(ep.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Episode{}, ports.ErrConflict
		}
		return domain.Episode{}, err
	}
	return r.Get(ctx, ep.ID)
}

func (r *EpisodesRepository) Get(ctx context.Context, id string) (domain.Episode, error) {
	ep, err := scanEpisode(r.db.QueryRowContext(ctx, `SELECT `+episodeColumns+` FROM episodes WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Episode{}, ports.ErrNotFound
		}
		return domain.Episode{}, err
	}
	return ep, nil
}

func (r *EpisodesRepository) GetMany(ctx context.Context, ids []string) ([]domain.Episode, error) {
	if len(ids) == 0 {
		return []domain.Episode{}, nil
	}
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+episodeColumns+` FROM episodes WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := map[string]domain.Episode{}
	for rows.Next() {
		ep, err := scanEpisode(rows)
		if err != nil {
			return nil, err
		}
		byID[ep.ID] = ep
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.Episode, 0, len(byID))
	for _, id := range ids {
		if ep, ok := byID[id]; ok {
			out = append(out, ep)
			delete(byID, id)
		}
	}
	return out, nil
}

func (r *EpisodesRepository) List(ctx context.Context, offset, limit int) ([]domain.Episode, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM episodes`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+episodeColumns+` FROM episodes
		ORDER BY created_at ASC, id ASC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]domain.Episode, 0, limit)
	for rows.Next() {
		ep, err := scanEpisode(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, ep)
	}
	return out, total, rows.Err()
}

func (r *EpisodesRepository) Update(ctx context.Context, ep domain.Episode) (domain.Episode, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE episodes
		SET name = ?, is_exclusive = ?, likes_number = ?, reviewed = ?, video_link = ?, updated_at = ?
		WHERE id = ?
	`,
		ep.Name, boolToInt(ep.IsExclusive), ep.LikesNumber, boolToInt(ep.Reviewed), ep.VideoLink,
		formatTime(ep.UpdatedAt),
		ep.ID,
	)
	if err != nil {
		return domain.Episode{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Episode{}, ports.ErrNotFound
	}
	return r.Get(ctx, ep.ID)
}

func (r *EpisodesRepository) Delete(ctx context.Context, id string) (domain.Episode, error) {
	var deleted domain.Episode
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		ep, err := scanEpisode(tx.QueryRowContext(ctx, `SELECT `+episodeColumns+` FROM episodes WHERE id = ?`, id))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ports.ErrNotFound
			}
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM episodes WHERE id = ?`, id); err != nil {
			return err
		}
		deleted = ep
		return nil
	})
	return deleted, err
}

func scanEpisode(row rowScanner) (domain.Episode, error) {
	var ep domain.Episode
	var exclusive, reviewed int
	var created, updated string
	if err := row.Scan(&ep.ID, &ep.Name, &exclusive, &ep.LikesNumber, &reviewed, &ep.VideoLink, &created, &updated); err != nil {
		return domain.Episode{}, err
	}
	ep.IsExclusive = exclusive != 0
	ep.Reviewed = reviewed != 0
	ep.CreatedAt = parseTime(created)
	ep.UpdatedAt = parseTime(updated)
	return ep, nil
}
