package search

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm/clause"

	"github.com/sebastien-sq/ragserve/domain/rag"
	"github.com/sebastien-sq/ragserve/internal/database"
)

// upsertBatchSize is how many records are written per insert statement.
const upsertBatchSize = 100

// upsertWorkers bounds how many upsert batches run concurrently.
const upsertWorkers = 4

// Float64Slice is a custom type for JSON serialization of []float64.
type Float64Slice []float64

// Scan implements sql.Scanner for reading JSON.
func (f *Float64Slice) Scan(value any) error {
	if value == nil {
		*f = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Float64Slice", value)
	}

	return json.Unmarshal(data, f)
}

// Value implements driver.Valuer for writing JSON.
func (f Float64Slice) Value() (driver.Value, error) {
	if f == nil {
		return nil, nil
	}
	return json.Marshal(f)
}

// EmbeddingModel represents a stored document embedding.
type EmbeddingModel struct {
	ID        int64        `gorm:"primaryKey;autoIncrement"`
	DocID     string       `gorm:"column:doc_id;uniqueIndex;size:255"`
	Embedding Float64Slice `gorm:"column:embedding;type:json"`
	Text      string       `gorm:"column:text;type:text"`
	Source    string       `gorm:"column:source;index;size:512"`
}

// TableName returns the table name.
func (EmbeddingModel) TableName() string {
	return "document_embeddings"
}

// VectorStore implements rag.VectorIndex on a relational database. Embeddings
// are stored as JSON and similarity search runs in memory over all records.
type VectorStore struct {
	db database.Database
}

// NewVectorStore creates a VectorStore.
func NewVectorStore(db database.Database) VectorStore {
	return VectorStore{db: db}
}

// AutoMigrate creates the embeddings table.
func (s VectorStore) AutoMigrate() error {
	return s.db.GORM().AutoMigrate(&EmbeddingModel{})
}

// Upsert inserts or replaces records by doc id. Batches are written
// concurrently with bounded parallelism.
func (s VectorStore) Upsert(ctx context.Context, records []rag.Record) error {
	if len(records) == 0 {
		return nil
	}

	models := make([]EmbeddingModel, len(records))
	for i, r := range records {
		models[i] = EmbeddingModel{
			DocID:     r.ID(),
			Embedding: Float64Slice(r.Embedding()),
			Text:      r.Text(),
			Source:    r.Source(),
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(upsertWorkers)

	for start := 0; start < len(models); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(models) {
			end = len(models)
		}
		batch := models[start:end]

		g.Go(func() error {
			err := s.db.Session(gctx).Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "doc_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"embedding", "text", "source"}),
			}).Create(&batch).Error
			if err != nil {
				return fmt.Errorf("upsert embeddings: %w", err)
			}
			return nil
		})
	}

	return g.Wait()
}

// Query returns the topK stored records most similar to the query vector,
// highest similarity first.
func (s VectorStore) Query(ctx context.Context, embedding []float64, topK int) ([]rag.Match, error) {
	if len(embedding) == 0 || topK <= 0 {
		return []rag.Match{}, nil
	}

	var models []EmbeddingModel
	if err := s.db.Session(ctx).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("load embeddings: %w", err)
	}

	records := make([]rag.Record, len(models))
	for i, m := range models {
		records[i] = rag.NewRecord(m.DocID, []float64(m.Embedding), m.Text, m.Source)
	}

	return TopKSimilar(embedding, records, topK), nil
}

// Reset removes all records from the index.
func (s VectorStore) Reset(ctx context.Context) error {
	if err := s.db.Session(ctx).Where("1 = 1").Delete(&EmbeddingModel{}).Error; err != nil {
		return fmt.Errorf("reset index: %w", err)
	}
	return nil
}

// Count returns the number of stored records.
func (s VectorStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.Session(ctx).Model(&EmbeddingModel{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}
	return count, nil
}

var _ rag.VectorIndex = VectorStore{}
