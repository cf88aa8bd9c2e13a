package storage

import "blockcanvas/internal/domain"

// Store bundles the SQL-backed stores into a domain.Store.
type Store struct {
	*BlockStore
	*AttachmentStore
	*ImageDimensionStore

	db *DB
}

var _ domain.Store = (*Store)(nil)

func NewStore(db *DB) *Store {
	return &Store{
		BlockStore:          NewBlockStore(db),
		AttachmentStore:     NewAttachmentStore(db),
		ImageDimensionStore: NewImageDimensionStore(db),
		db:                  db,
	}
}

// DB returns the underlying database.
func (s *Store) DB() *DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}
