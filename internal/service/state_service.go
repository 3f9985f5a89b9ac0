package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/bitfantasy/nimo-mes/internal/model/entity"
	"github.com/bitfantasy/nimo-mes/internal/repository"
	"github.com/bitfantasy/nimo-mes/internal/snapshot"
)

// SnapshotStore 状态存储接口: single-document read plus compare-and-swap
// write. Satisfied by repository.SnapshotRepository.
type SnapshotStore interface {
	Fetch(ctx context.Context) (*entity.Snapshot, int64, error)
	Save(ctx context.Context, snap *entity.Snapshot, expected, next int64) error
}

// VersionConflictError 版本冲突: the claimed version is stale. Carries the
// version the client must re-fetch before retrying.
type VersionConflictError struct {
	Expected int64
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("state version is stale, expected %d", e.Expected)
}

// StateService 状态同步服务: drives version gate → merge → reconcile → CAS
// save for writes and serves reconciled reads.
type StateService struct {
	store  SnapshotStore
	logger *zap.Logger
}

// NewStateService 创建状态同步服务
func NewStateService(store SnapshotStore, logger *zap.Logger) *StateService {
	return &StateService{store: store, logger: logger}
}

// Read returns the current document with codes reconciled. Reconciliation on
// the read path is in-memory only; it is persisted by the next write.
func (s *StateService) Read(ctx context.Context) (*entity.Snapshot, error) {
	snap, version, err := s.store.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	snap.Version = version
	if err := snapshot.ReconcileCodes(snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// Write merges the incoming document into the stored one and persists it at
// version+1. The claimed version must exactly equal the stored version; the
// compare-and-swap save backstops the race where two writers pass the gate
// concurrently — the loser gets a VersionConflictError, never a silent
// overwrite.
func (s *StateService) Write(ctx context.Context, claimed int64, incoming *entity.Snapshot) (int64, error) {
	current, version, err := s.store.Fetch(ctx)
	if err != nil {
		return 0, err
	}
	if claimed != version {
		return 0, &VersionConflictError{Expected: version}
	}

	merged, err := snapshot.Merge(current, incoming)
	if err != nil {
		return 0, err
	}
	if err := snapshot.ReconcileCodes(merged); err != nil {
		return 0, err
	}

	next := version + 1
	merged.Version = next
	if err := s.store.Save(ctx, merged, version, next); err != nil {
		if errors.Is(err, repository.ErrVersionMismatch) {
			// Lost the CAS race; report the version that won.
			if _, latest, ferr := s.store.Fetch(ctx); ferr == nil {
				return 0, &VersionConflictError{Expected: latest}
			}
			return 0, &VersionConflictError{Expected: version + 1}
		}
		return 0, err
	}

	s.logger.Info("State persisted",
		zap.Int64("version", next),
		zap.Int("cards", len(merged.Cards)),
		zap.Int("ops", len(merged.Ops)),
		zap.Int("centers", len(merged.Centers)),
	)
	return next, nil
}
