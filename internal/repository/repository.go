package repository

import (
	"errors"

	"gorm.io/gorm"
)

// ErrVersionMismatch 版本不匹配 — the compare-and-swap write found a
// different stored version than expected.
var ErrVersionMismatch = errors.New("state version mismatch")

// Repositories 仓储集合
type Repositories struct {
	Snapshot *SnapshotRepository
}

// NewRepositories 创建仓储集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Snapshot: NewSnapshotRepository(db),
	}
}
