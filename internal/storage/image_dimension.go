package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"blockcanvas/internal/domain"
)

const dimensionColumns = `id, block_id, attachment_id, image_url, image_name, width, height, original_width, original_height, position_x, position_y, updated_at`

// ImageDimensionStore implements domain.ImageDimensionStore over database/sql.
type ImageDimensionStore struct {
	db *DB
}

func NewImageDimensionStore(db *DB) *ImageDimensionStore {
	return &ImageDimensionStore{db: db}
}

// UpsertImageDimension inserts the (blockID, imageURL) row if absent and
// updates it in place otherwise.
func (s *ImageDimensionStore) UpsertImageDimension(ctx context.Context, blockID int64, imageURL string, f domain.ImageDimensionFields) (*domain.ImageDimension, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	var out *domain.ImageDimension
	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		if err := blockExists(ctx, s.db, tx, blockID); err != nil {
			return err
		}
		existing, err := s.get(ctx, tx, blockID, imageURL)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			d := domain.NewImageDimension(blockID, imageURL, f)
			d.UpdatedAt = time.Now().UTC()
			id, err := s.db.insert(ctx, tx,
				`INSERT INTO image_dimensions (block_id, attachment_id, image_url, image_name, width, height, original_width, original_height, position_x, position_y, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				d.BlockID, d.AttachmentID, d.ImageURL, d.ImageName, d.Width, d.Height, d.OriginalWidth, d.OriginalHeight, d.PositionX, d.PositionY, d.UpdatedAt,
			)
			if err != nil {
				return fmt.Errorf("insert image dimension: %w", err)
			}
			d.ID = id
			out = &d
			return nil
		case err != nil:
			return fmt.Errorf("load image dimension: %w", err)
		}

		f.Apply(existing)
		existing.UpdatedAt = time.Now().UTC()
		_, err = tx.ExecContext(ctx, s.db.rebind(
			`UPDATE image_dimensions SET attachment_id = ?, image_name = ?, width = ?, height = ?, original_width = ?, original_height = ?, position_x = ?, position_y = ?, updated_at = ? WHERE id = ?`),
			existing.AttachmentID, existing.ImageName, existing.Width, existing.Height, existing.OriginalWidth, existing.OriginalHeight, existing.PositionX, existing.PositionY, existing.UpdatedAt, existing.ID,
		)
		if err != nil {
			return fmt.Errorf("update image dimension: %w", err)
		}
		out = existing
		return nil
	})
	if err != nil {
		return nil, domain.Unavailable("upsert image dimension", err)
	}
	return out, nil
}

func (s *ImageDimensionStore) ListImageDimensions(ctx context.Context, blockID int64) ([]domain.ImageDimension, error) {
	rows, err := s.db.conn.QueryContext(ctx, s.db.rebind(
		`SELECT `+dimensionColumns+` FROM image_dimensions WHERE block_id = ? ORDER BY id ASC`), blockID)
	if err != nil {
		return nil, domain.Unavailable("list image dimensions", err)
	}
	defer rows.Close()

	var result []domain.ImageDimension
	for rows.Next() {
		d, err := scanDimension(rows)
		if err != nil {
			return nil, domain.Unavailable("scan image dimension", err)
		}
		result = append(result, *d)
	}
	return result, domain.Unavailable("list image dimensions", rows.Err())
}

func (s *ImageDimensionStore) DeleteImageDimension(ctx context.Context, blockID int64, imageURL string) error {
	res, err := s.db.conn.ExecContext(ctx, s.db.rebind(
		`DELETE FROM image_dimensions WHERE block_id = ? AND image_url = ?`), blockID, imageURL)
	if err != nil {
		return domain.Unavailable("delete image dimension", err)
	}
	return mustAffect(res, "image dimension %d/%s", blockID, imageURL)
}

func (s *ImageDimensionStore) get(ctx context.Context, q querier, blockID int64, imageURL string) (*domain.ImageDimension, error) {
	row := q.QueryRowContext(ctx, s.db.rebind(
		`SELECT `+dimensionColumns+` FROM image_dimensions WHERE block_id = ? AND image_url = ?`), blockID, imageURL)
	return scanDimension(row)
}

func scanDimension(r scanner) (*domain.ImageDimension, error) {
	d := &domain.ImageDimension{}
	var attachmentID sql.NullInt64
	err := r.Scan(&d.ID, &d.BlockID, &attachmentID, &d.ImageURL, &d.ImageName, &d.Width, &d.Height,
		&d.OriginalWidth, &d.OriginalHeight, &d.PositionX, &d.PositionY, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if attachmentID.Valid {
		d.AttachmentID = &attachmentID.Int64
	}
	return d, nil
}
