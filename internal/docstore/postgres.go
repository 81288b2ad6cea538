package docstore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Document is a single row of the documents table. All application
// documents (users, lab entries, events, activation marks) live here,
// keyed by (collection, doc_id).
type Document struct {
	ID uint `gorm:"primaryKey"`

	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time

	Collection string `gorm:"uniqueIndex:idx_doc_key,priority:1;size:64;not null"`
	DocID      string `gorm:"uniqueIndex:idx_doc_key,priority:2;size:255;not null"`

	Data datatypes.JSONMap `gorm:"type:jsonb"`
}

// Postgres implements Store on a gorm Postgres connection.
type Postgres struct {
	db *gorm.DB
}

// NewPostgres migrates the documents table and returns the store.
func NewPostgres(db *gorm.DB) (*Postgres, error) {
	if err := db.AutoMigrate(&Document{}); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (s *Postgres) Get(ctx context.Context, collection, id string) (Fields, error) {
	var doc Document
	err := s.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return Fields(doc.Data), nil
}

func (s *Postgres) Set(ctx context.Context, collection, id string, fields Fields, merge bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return setDoc(tx, collection, id, fields, merge)
	})
}

func (s *Postgres) Add(ctx context.Context, collection string, fields Fields) (string, error) {
	id := uuid.NewString()
	doc := Document{
		Collection: collection,
		DocID:      id,
		Data:       datatypes.JSONMap(fields),
	}
	if err := s.db.WithContext(ctx).Create(&doc).Error; err != nil {
		return "", err
	}
	return id, nil
}

func (s *Postgres) RunTransaction(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&pgTx{db: tx})
	})
}

// pgTx serializes transactional reads with SELECT ... FOR UPDATE so
// two concurrent read-check-write transactions on the same document
// cannot both observe the pre-write state.
type pgTx struct {
	db *gorm.DB
}

func (t *pgTx) Get(collection, id string) (Fields, error) {
	var doc Document
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("collection = ? AND doc_id = ?", collection, id).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return Fields(doc.Data), nil
}

func (t *pgTx) Set(collection, id string, fields Fields) error {
	return setDoc(t.db, collection, id, fields, true)
}

func setDoc(tx *gorm.DB, collection, id string, fields Fields, merge bool) error {
	var doc Document
	err := tx.Where("collection = ? AND doc_id = ?", collection, id).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		doc = Document{
			Collection: collection,
			DocID:      id,
			Data:       datatypes.JSONMap(fields),
		}
		return tx.Create(&doc).Error
	}
	if err != nil {
		return err
	}

	data := datatypes.JSONMap(fields)
	if merge {
		merged := datatypes.JSONMap{}
		for k, v := range doc.Data {
			merged[k] = v
		}
		for k, v := range fields {
			merged[k] = v
		}
		data = merged
	}
	return tx.Model(&doc).Update("data", data).Error
}
