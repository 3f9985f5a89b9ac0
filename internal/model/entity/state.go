package entity

import "time"

// StateRowID 状态单行主键 — the document is a single shared row
const StateRowID = 1

// AppState 持久化状态行: serialized snapshot + version column.
// The version column is the optimistic-concurrency token; writes are a
// compare-and-swap on it.
type AppState struct {
	ID        int       `json:"id" gorm:"primaryKey"`
	Data      []byte    `json:"data" gorm:"type:jsonb;not null"`
	Version   int64     `json:"version" gorm:"not null;default:1"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (AppState) TableName() string {
	return "app_state"
}
