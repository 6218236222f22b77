package store

import (
	"gorm.io/gorm"

	"github.com/ai-nk/rag-service/internal/model"
)

// datastore implements Factory on a gorm database.
type datastore struct {
	db *gorm.DB
}

// NewFactory creates a Factory backed by db.
func NewFactory(db *gorm.DB) Factory {
	return &datastore{db: db}
}

// AutoMigrate migrates the relational schema.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Document{},
		&model.Chunk{},
		&model.Posting{},
		&model.IndexingTask{},
	)
}

func (ds *datastore) Chunks() ChunkStore {
	return newChunks(ds.db)
}

func (ds *datastore) Documents() DocumentStore {
	return newDocuments(ds.db)
}

func (ds *datastore) Tasks() TaskStore {
	return newTasks(ds.db)
}

func (ds *datastore) Lexical() LexicalIndex {
	return newLexical(ds.db)
}

func (ds *datastore) Close() error {
	sqlDB, err := ds.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
