package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bitfantasy/nimo-mes/internal/model/entity"
	"github.com/bitfantasy/nimo-mes/internal/seed"
)

// SnapshotRepository 状态快照仓储. The whole document lives in one app_state
// row; the version column is the only synchronization primitive.
type SnapshotRepository struct {
	db *gorm.DB
}

// NewSnapshotRepository 创建状态快照仓储
func NewSnapshotRepository(db *gorm.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Migrate creates the app_state table if it does not exist.
func (r *SnapshotRepository) Migrate() error {
	return r.db.AutoMigrate(&entity.AppState{})
}

// Fetch reads the current document and its version. An empty or unreadable
// row is replaced with the default demo document at version 1.
func (r *SnapshotRepository) Fetch(ctx context.Context) (*entity.Snapshot, int64, error) {
	var row entity.AppState
	err := r.db.WithContext(ctx).First(&row, "id = ?", entity.StateRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.reset(ctx)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("fetch state: %w", err)
	}

	var snap entity.Snapshot
	if err := json.Unmarshal(row.Data, &snap); err != nil {
		// Unreadable document: reseed rather than serve garbage.
		return r.reset(ctx)
	}
	snap.Version = row.Version
	return &snap, row.Version, nil
}

// Save persists the document if and only if the stored version still equals
// expected. Returns ErrVersionMismatch when another writer got there first.
func (r *SnapshotRepository) Save(ctx context.Context, snap *entity.Snapshot, expected, next int64) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	res := r.db.WithContext(ctx).
		Model(&entity.AppState{}).
		Where("id = ? AND version = ?", entity.StateRowID, expected).
		Updates(map[string]interface{}{
			"data":       data,
			"version":    next,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("save state: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrVersionMismatch
	}
	return nil
}

// Reset overwrites the document unconditionally and returns the seeded
// snapshot. Used for first-time seeding and by mesctl seed --force.
func (r *SnapshotRepository) Reset(ctx context.Context) (*entity.Snapshot, int64, error) {
	return r.reset(ctx)
}

func (r *SnapshotRepository) reset(ctx context.Context) (*entity.Snapshot, int64, error) {
	snap := seed.DefaultSnapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal seed state: %w", err)
	}
	row := entity.AppState{
		ID:        entity.StateRowID,
		Data:      data,
		Version:   snap.Version,
		UpdatedAt: time.Now(),
	}
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "version", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return nil, 0, fmt.Errorf("seed state: %w", err)
	}
	return snap, snap.Version, nil
}
