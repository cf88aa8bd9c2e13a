package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"blockcanvas/internal/domain"
)

// AttachmentStore implements domain.AttachmentStore over database/sql.
type AttachmentStore struct {
	db *DB
}

func NewAttachmentStore(db *DB) *AttachmentStore {
	return &AttachmentStore{db: db}
}

func (s *AttachmentStore) CreateAttachment(ctx context.Context, a *domain.Attachment) error {
	if err := blockExists(ctx, s.db, s.db.conn, a.BlockID); err != nil {
		return err
	}
	a.CreatedAt = time.Now().UTC()
	id, err := s.db.insert(ctx, s.db.conn,
		`INSERT INTO attachments (block_id, name, url, type, created_at) VALUES (?, ?, ?, ?, ?)`,
		a.BlockID, a.Name, a.URL, a.Type, a.CreatedAt,
	)
	if err != nil {
		return domain.Unavailable("create attachment", err)
	}
	a.ID = id
	return nil
}

func (s *AttachmentStore) GetAttachment(ctx context.Context, id int64) (*domain.Attachment, error) {
	a := &domain.Attachment{}
	err := s.db.conn.QueryRowContext(ctx, s.db.rebind(
		`SELECT id, block_id, name, url, type, created_at FROM attachments WHERE id = ?`), id,
	).Scan(&a.ID, &a.BlockID, &a.Name, &a.URL, &a.Type, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("attachment %d", id)
	}
	if err != nil {
		return nil, domain.Unavailable("get attachment", err)
	}
	return a, nil
}

func (s *AttachmentStore) ListAttachments(ctx context.Context, blockID int64) ([]domain.Attachment, error) {
	rows, err := s.db.conn.QueryContext(ctx, s.db.rebind(
		`SELECT id, block_id, name, url, type, created_at FROM attachments WHERE block_id = ? ORDER BY id ASC`), blockID)
	if err != nil {
		return nil, domain.Unavailable("list attachments", err)
	}
	defer rows.Close()

	var result []domain.Attachment
	for rows.Next() {
		var a domain.Attachment
		if err := rows.Scan(&a.ID, &a.BlockID, &a.Name, &a.URL, &a.Type, &a.CreatedAt); err != nil {
			return nil, domain.Unavailable("scan attachment", err)
		}
		result = append(result, a)
	}
	return result, domain.Unavailable("list attachments", rows.Err())
}

func (s *AttachmentStore) DeleteAttachment(ctx context.Context, id int64) error {
	res, err := s.db.conn.ExecContext(ctx, s.db.rebind(`DELETE FROM attachments WHERE id = ?`), id)
	if err != nil {
		return domain.Unavailable("delete attachment", err)
	}
	return mustAffect(res, "attachment %d", id)
}

func blockExists(ctx context.Context, db *DB, q querier, blockID int64) error {
	var one int
	err := q.QueryRowContext(ctx, db.rebind(`SELECT 1 FROM blocks WHERE id = ?`), blockID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFoundf("block %d", blockID)
	}
	return domain.Unavailable("lookup block", err)
}
