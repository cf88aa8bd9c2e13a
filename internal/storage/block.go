package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"blockcanvas/internal/domain"
)

const blockColumns = `id, page_id, type, x, y, width, height, title, content, created_at, updated_at`

// BlockStore implements domain.BlockStore over database/sql.
type BlockStore struct {
	db *DB
}

func NewBlockStore(db *DB) *BlockStore {
	return &BlockStore{db: db}
}

func (s *BlockStore) CreateBlock(ctx context.Context, b *domain.Block) error {
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	if b.Type == "" {
		b.Type = domain.BlockTypeText
	}
	id, err := s.db.insert(ctx, s.db.conn,
		`INSERT INTO blocks (page_id, type, x, y, width, height, title, content, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.PageID, b.Type, b.X, b.Y, b.Width, b.Height, b.Title, b.Content, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return domain.Unavailable("create block", err)
	}
	b.ID = id
	return nil
}

func (s *BlockStore) GetBlock(ctx context.Context, id int64) (*domain.Block, error) {
	row := s.db.conn.QueryRowContext(ctx, s.db.rebind(`SELECT `+blockColumns+` FROM blocks WHERE id = ?`), id)
	b, err := scanBlock(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("block %d", id)
	}
	if err != nil {
		return nil, domain.Unavailable("get block", err)
	}
	return b, nil
}

func (s *BlockStore) ListBlocks(ctx context.Context, pageID int64) ([]domain.Block, error) {
	rows, err := s.db.conn.QueryContext(ctx,
		s.db.rebind(`SELECT `+blockColumns+` FROM blocks WHERE page_id = ? ORDER BY id ASC`), pageID)
	if err != nil {
		return nil, domain.Unavailable("list blocks", err)
	}
	defer rows.Close()

	var blocks []domain.Block
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, domain.Unavailable("scan block", err)
		}
		blocks = append(blocks, *b)
	}
	return blocks, domain.Unavailable("list blocks", rows.Err())
}

// PatchBlock updates only the columns p sets, so writes touching disjoint
// fields never overwrite each other.
func (s *BlockStore) PatchBlock(ctx context.Context, id int64, p domain.BlockPatch, ifContent *string) (*domain.Block, error) {
	var sets []string
	var args []any
	set := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if p.Type != nil {
		set("type", string(*p.Type))
	}
	if p.X != nil {
		set("x", *p.X)
	}
	if p.Y != nil {
		set("y", *p.Y)
	}
	if p.Width != nil {
		set("width", *p.Width)
	}
	if p.Height != nil {
		set("height", *p.Height)
	}
	if p.Title != nil {
		set("title", *p.Title)
	}
	if p.Content != nil {
		set("content", *p.Content)
	}
	set("updated_at", time.Now().UTC())

	query := `UPDATE blocks SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	args = append(args, id)
	if ifContent != nil {
		query += ` AND content = ?`
		args = append(args, *ifContent)
	}
	res, err := s.db.conn.ExecContext(ctx, s.db.rebind(query), args...)
	if err != nil {
		return nil, domain.Unavailable("update block", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, domain.Unavailable("update block", err)
	}
	if n == 0 {
		if ifContent == nil {
			return nil, domain.NotFoundf("block %d", id)
		}
		if _, err := s.GetBlock(ctx, id); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("block %d: %w", id, domain.ErrWriteConflict)
	}
	return s.GetBlock(ctx, id)
}

// DeleteBlock removes the block together with its attachments and image
// dimensions in one transaction.
func (s *BlockStore) DeleteBlock(ctx context.Context, id int64) error {
	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.db.rebind(`DELETE FROM image_dimensions WHERE block_id = ?`), id); err != nil {
			return fmt.Errorf("delete image dimensions: %w", err)
		}
		if _, err := tx.ExecContext(ctx, s.db.rebind(`DELETE FROM attachments WHERE block_id = ?`), id); err != nil {
			return fmt.Errorf("delete attachments: %w", err)
		}
		res, err := tx.ExecContext(ctx, s.db.rebind(`DELETE FROM blocks WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete block: %w", err)
		}
		return mustAffect(res, "block %d", id)
	})
	return domain.Unavailable("delete block", err)
}

// PageFingerprint summarizes a page's blocks as "count:max(updated_at)".
// It changes whenever any block on the page is created, updated or deleted.
func (s *BlockStore) PageFingerprint(ctx context.Context, pageID int64) (string, error) {
	var count int
	var latest sql.NullString
	err := s.db.conn.QueryRowContext(ctx,
		s.db.rebind(`SELECT COUNT(*), MAX(updated_at) FROM blocks WHERE page_id = ?`), pageID,
	).Scan(&count, &latest)
	if err != nil {
		return "", domain.Unavailable("page fingerprint", err)
	}
	return fmt.Sprintf("%d:%s", count, latest.String), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBlock(r scanner) (*domain.Block, error) {
	b := &domain.Block{}
	err := r.Scan(&b.ID, &b.PageID, &b.Type, &b.X, &b.Y, &b.Width, &b.Height, &b.Title, &b.Content, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func mustAffect(res sql.Result, format string, args ...any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFoundf(format, args...)
	}
	return nil
}
