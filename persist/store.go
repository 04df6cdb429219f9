package persist

import (
	"encoding/json"
	"time"

	"github.com/npillmayer/schuko/tracing"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/latticeforge/cdc/acs"
)

// tracer traces with key 'cdc.persist'.
func tracer() tracing.Trace {
	return tracing.Select("cdc.persist")
}

// Store wraps a gorm.DB bound to a sqlite file holding ACS weight snapshots
// and repair history.
type Store struct {
	db *gorm.DB
}

// Open opens (creating if necessary) a sqlite-backed Store at path and
// migrates its schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&SoftConstraintRow{}, &RepairRecordRow{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// SaveWeights writes out a full acs.Store snapshot, upserting each entry by
// (grammar_hash, terminal). This is the "serialized write" half of §4.6's
// snapshot-read/serialized-write contract: callers serialize writes
// themselves (acs.Store.mutate already does, in-process); Store simply
// persists whatever snapshot it's given.
func (s *Store) SaveWeights(weights map[acs.Key]float32) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		for k, w := range weights {
			row := SoftConstraintRow{GrammarHash: k.GrammarHash, Terminal: k.Terminal, Weight: w, UpdatedAt: time.Now()}
			if err := tx.Where("grammar_hash = ? AND terminal = ?", k.GrammarHash, k.Terminal).
				Assign(SoftConstraintRow{Weight: w, UpdatedAt: row.UpdatedAt}).
				FirstOrCreate(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadWeights reads every persisted weight back into the shape acs.Store
// expects, for restoring learned state at process start.
func (s *Store) LoadWeights() (map[acs.Key]float32, error) {
	var rows []SoftConstraintRow
	if err := s.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[acs.Key]float32, len(rows))
	for _, r := range rows {
		out[acs.Key{GrammarHash: r.GrammarHash, Terminal: r.Terminal}] = r.Weight
	}
	return out, nil
}

// RecordRepair persists one repair-ladder attempt.
func (s *Store) RecordRepair(requestID, grammarHash, strategy string, attempt int, succeeded bool, diagnostic interface{}) error {
	blob, err := json.Marshal(diagnostic)
	if err != nil {
		tracer().Errorf("failed to marshal diagnostic for repair record: %v", err)
		blob = []byte("null")
	}
	row := RepairRecordRow{
		RequestID: requestID, GrammarHash: grammarHash, Strategy: strategy,
		AttemptNumber: attempt, Succeeded: succeeded, Diagnostic: string(blob), CreatedAt: time.Now(),
	}
	return s.db.Create(&row).Error
}

// RepairHistory returns every recorded repair attempt for requestID, in
// chronological order.
func (s *Store) RepairHistory(requestID string) ([]RepairRecordRow, error) {
	var rows []RepairRecordRow
	err := s.db.Where("request_id = ?", requestID).Order("created_at asc").Find(&rows).Error
	return rows, err
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
