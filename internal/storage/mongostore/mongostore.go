// Package mongostore keeps blocks, attachments and image dimensions in
// MongoDB collections. Numeric ids come from a counters collection so
// the rest of the system sees the same int64 ids as the SQL backends.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"blockcanvas/internal/domain"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	colBlocks      = "blocks"
	colAttachments = "attachments"
	colDimensions  = "image_dimensions"
	colCounters    = "counters"
)

// Store implements domain.Store on MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ domain.Store = (*Store)(nil)

// Open connects to uri and prepares the indexes. The database name is
// taken from the URI path, defaulting to "blockcanvas".
func Open(ctx context.Context, uri string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := &Store{client: client, db: client.Database(databaseName(uri))}
	if err := s.ensureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func databaseName(uri string) string {
	u, err := url.Parse(uri)
	if err == nil {
		if name := strings.Trim(u.Path, "/"); name != "" {
			return name
		}
	}
	return "blockcanvas"
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := []struct {
		col   string
		model mongo.IndexModel
	}{
		{colBlocks, mongo.IndexModel{Keys: bson.D{{Key: "page_id", Value: 1}}}},
		{colAttachments, mongo.IndexModel{Keys: bson.D{{Key: "block_id", Value: 1}}}},
		{colDimensions, mongo.IndexModel{
			Keys:    bson.D{{Key: "block_id", Value: 1}, {Key: "image_url", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
	}
	for _, ix := range indexes {
		if _, err := s.db.Collection(ix.col).Indexes().CreateOne(ctx, ix.model); err != nil {
			return fmt.Errorf("create index on %s: %w", ix.col, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Drop removes every collection. Used by tests.
func (s *Store) Drop(ctx context.Context) error {
	return s.db.Drop(ctx)
}

func (s *Store) nextID(ctx context.Context, name string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.db.Collection(colCounters).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next %s id: %w", name, err)
	}
	return counter.Seq, nil
}

func (s *Store) blockExists(ctx context.Context, id int64) error {
	n, err := s.db.Collection(colBlocks).CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return domain.Unavailable("lookup block", err)
	}
	if n == 0 {
		return domain.NotFoundf("block %d", id)
	}
	return nil
}

// ── Blocks ──────────────────────────────────────────────────

func (s *Store) CreateBlock(ctx context.Context, b *domain.Block) error {
	id, err := s.nextID(ctx, colBlocks)
	if err != nil {
		return domain.Unavailable("create block", err)
	}
	now := time.Now().UTC()
	b.ID = id
	b.CreatedAt, b.UpdatedAt = now, now
	if b.Type == "" {
		b.Type = domain.BlockTypeText
	}
	if _, err := s.db.Collection(colBlocks).InsertOne(ctx, b); err != nil {
		return domain.Unavailable("create block", err)
	}
	return nil
}

func (s *Store) GetBlock(ctx context.Context, id int64) (*domain.Block, error) {
	var b domain.Block
	err := s.db.Collection(colBlocks).FindOne(ctx, bson.M{"_id": id}).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.NotFoundf("block %d", id)
	}
	if err != nil {
		return nil, domain.Unavailable("get block", err)
	}
	return &b, nil
}

func (s *Store) ListBlocks(ctx context.Context, pageID int64) ([]domain.Block, error) {
	cur, err := s.db.Collection(colBlocks).Find(ctx, bson.M{"page_id": pageID},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, domain.Unavailable("list blocks", err)
	}
	var blocks []domain.Block
	if err := cur.All(ctx, &blocks); err != nil {
		return nil, domain.Unavailable("list blocks", err)
	}
	return blocks, nil
}

// PatchBlock sets only the fields p carries. The content precondition is
// part of the filter, so the check and the write are one atomic update.
func (s *Store) PatchBlock(ctx context.Context, id int64, p domain.BlockPatch, ifContent *string) (*domain.Block, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if p.Type != nil {
		set["type"] = *p.Type
	}
	if p.X != nil {
		set["x"] = *p.X
	}
	if p.Y != nil {
		set["y"] = *p.Y
	}
	if p.Width != nil {
		set["width"] = *p.Width
	}
	if p.Height != nil {
		set["height"] = *p.Height
	}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Content != nil {
		set["content"] = *p.Content
	}

	filter := bson.M{"_id": id}
	if ifContent != nil {
		filter["content"] = *ifContent
	}
	res, err := s.db.Collection(colBlocks).UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return nil, domain.Unavailable("update block", err)
	}
	if res.MatchedCount == 0 {
		if err := s.blockExists(ctx, id); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("block %d: %w", id, domain.ErrWriteConflict)
	}
	return s.GetBlock(ctx, id)
}

// DeleteBlock removes the block's dimensions and attachments first so a
// partial failure never leaves children without a parent.
func (s *Store) DeleteBlock(ctx context.Context, id int64) error {
	if err := s.blockExists(ctx, id); err != nil {
		return err
	}
	if _, err := s.db.Collection(colDimensions).DeleteMany(ctx, bson.M{"block_id": id}); err != nil {
		return domain.Unavailable("delete image dimensions", err)
	}
	if _, err := s.db.Collection(colAttachments).DeleteMany(ctx, bson.M{"block_id": id}); err != nil {
		return domain.Unavailable("delete attachments", err)
	}
	res, err := s.db.Collection(colBlocks).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return domain.Unavailable("delete block", err)
	}
	if res.DeletedCount == 0 {
		return domain.NotFoundf("block %d", id)
	}
	return nil
}

// ── Attachments ─────────────────────────────────────────────

func (s *Store) CreateAttachment(ctx context.Context, a *domain.Attachment) error {
	if err := s.blockExists(ctx, a.BlockID); err != nil {
		return err
	}
	id, err := s.nextID(ctx, colAttachments)
	if err != nil {
		return domain.Unavailable("create attachment", err)
	}
	a.ID = id
	a.CreatedAt = time.Now().UTC()
	if _, err := s.db.Collection(colAttachments).InsertOne(ctx, a); err != nil {
		return domain.Unavailable("create attachment", err)
	}
	return nil
}

func (s *Store) GetAttachment(ctx context.Context, id int64) (*domain.Attachment, error) {
	var a domain.Attachment
	err := s.db.Collection(colAttachments).FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.NotFoundf("attachment %d", id)
	}
	if err != nil {
		return nil, domain.Unavailable("get attachment", err)
	}
	return &a, nil
}

func (s *Store) ListAttachments(ctx context.Context, blockID int64) ([]domain.Attachment, error) {
	cur, err := s.db.Collection(colAttachments).Find(ctx, bson.M{"block_id": blockID},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, domain.Unavailable("list attachments", err)
	}
	var result []domain.Attachment
	if err := cur.All(ctx, &result); err != nil {
		return nil, domain.Unavailable("list attachments", err)
	}
	return result, nil
}

func (s *Store) DeleteAttachment(ctx context.Context, id int64) error {
	res, err := s.db.Collection(colAttachments).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return domain.Unavailable("delete attachment", err)
	}
	if res.DeletedCount == 0 {
		return domain.NotFoundf("attachment %d", id)
	}
	return nil
}

// ── Image dimensions ────────────────────────────────────────

func (s *Store) UpsertImageDimension(ctx context.Context, blockID int64, imageURL string, f domain.ImageDimensionFields) (*domain.ImageDimension, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if err := s.blockExists(ctx, blockID); err != nil {
		return nil, err
	}
	col := s.db.Collection(colDimensions)
	filter := bson.M{"block_id": blockID, "image_url": imageURL}

	var d domain.ImageDimension
	err := col.FindOne(ctx, filter).Decode(&d)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		d = domain.NewImageDimension(blockID, imageURL, f)
		if d.ID, err = s.nextID(ctx, colDimensions); err != nil {
			return nil, domain.Unavailable("upsert image dimension", err)
		}
		d.UpdatedAt = time.Now().UTC()
		if _, err := col.InsertOne(ctx, &d); err != nil {
			return nil, domain.Unavailable("insert image dimension", err)
		}
		return &d, nil
	case err != nil:
		return nil, domain.Unavailable("load image dimension", err)
	}

	f.Apply(&d)
	d.UpdatedAt = time.Now().UTC()
	if _, err := col.ReplaceOne(ctx, bson.M{"_id": d.ID}, &d); err != nil {
		return nil, domain.Unavailable("update image dimension", err)
	}
	return &d, nil
}

func (s *Store) ListImageDimensions(ctx context.Context, blockID int64) ([]domain.ImageDimension, error) {
	cur, err := s.db.Collection(colDimensions).Find(ctx, bson.M{"block_id": blockID},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, domain.Unavailable("list image dimensions", err)
	}
	var result []domain.ImageDimension
	if err := cur.All(ctx, &result); err != nil {
		return nil, domain.Unavailable("list image dimensions", err)
	}
	return result, nil
}

func (s *Store) DeleteImageDimension(ctx context.Context, blockID int64, imageURL string) error {
	res, err := s.db.Collection(colDimensions).DeleteOne(ctx, bson.M{"block_id": blockID, "image_url": imageURL})
	if err != nil {
		return domain.Unavailable("delete image dimension", err)
	}
	if res.DeletedCount == 0 {
		return domain.NotFoundf("image dimension %d/%s", blockID, imageURL)
	}
	return nil
}
