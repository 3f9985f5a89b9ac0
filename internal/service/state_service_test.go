package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bitfantasy/nimo-mes/internal/model/entity"
	"github.com/bitfantasy/nimo-mes/internal/repository"
)

// fakeStore is an in-memory SnapshotStore with the same compare-and-swap
// contract as the real repository.
type fakeStore struct {
	snap    *entity.Snapshot
	version int64
	saves   int

	// beforeSave runs between the version check setup and the CAS, to
	// simulate a concurrent writer.
	beforeSave func(s *fakeStore)
}

func newFakeStore(snap *entity.Snapshot, version int64) *fakeStore {
	return &fakeStore{snap: snap, version: version}
}

func (s *fakeStore) Fetch(ctx context.Context) (*entity.Snapshot, int64, error) {
	return s.snap.Clone(), s.version, nil
}

func (s *fakeStore) Save(ctx context.Context, snap *entity.Snapshot, expected, next int64) error {
	if s.beforeSave != nil {
		hook := s.beforeSave
		s.beforeSave = nil
		hook(s)
	}
	if s.version != expected {
		return repository.ErrVersionMismatch
	}
	s.snap = snap.Clone()
	s.version = next
	s.saves++
	return nil
}

func newTestService(store SnapshotStore) *StateService {
	return NewStateService(store, zap.NewNop())
}

func baseSnapshot() *entity.Snapshot {
	return &entity.Snapshot{
		Cards:   []entity.Card{},
		Ops:     []entity.OperationType{{ID: "op-mill", Code: "OP-AAAA", Name: "Milling"}},
		Centers: []entity.WorkCenter{{ID: "wc-1", Name: "Machining"}},
	}
}

func TestWrite_BumpsVersionByOne(t *testing.T) {
	store := newFakeStore(baseSnapshot(), 1)
	svc := newTestService(store)

	incoming := baseSnapshot()
	incoming.Cards = []entity.Card{{ID: "c1", Name: "Shaft"}}

	next, err := svc.Write(context.Background(), 1, incoming)
	require.NoError(t, err)
	assert.Equal(t, int64(2), next)
	assert.Equal(t, int64(2), store.version)
	assert.Equal(t, 1, store.saves)

	// Several successful writes stay strictly monotonic.
	for want := int64(3); want <= 5; want++ {
		next, err = svc.Write(context.Background(), next, incoming)
		require.NoError(t, err)
		assert.Equal(t, want, next)
	}
}

func TestWrite_RejectsStaleVersion(t *testing.T) {
	store := newFakeStore(baseSnapshot(), 7)
	svc := newTestService(store)

	_, err := svc.Write(context.Background(), 3, baseSnapshot())
	var conflict *VersionConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, int64(7), conflict.Expected)
	assert.Equal(t, 0, store.saves)
}

func TestWrite_RejectsFutureVersion(t *testing.T) {
	store := newFakeStore(baseSnapshot(), 2)
	svc := newTestService(store)

	_, err := svc.Write(context.Background(), 5, baseSnapshot())
	var conflict *VersionConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, int64(2), conflict.Expected)
}

func TestWrite_LosesCASRace(t *testing.T) {
	store := newFakeStore(baseSnapshot(), 1)
	// Another writer lands between the version gate and the save.
	store.beforeSave = func(s *fakeStore) {
		s.version = 2
	}
	svc := newTestService(store)

	_, err := svc.Write(context.Background(), 1, baseSnapshot())
	var conflict *VersionConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, int64(2), conflict.Expected)
	assert.Equal(t, 0, store.saves)
}

func TestWrite_PreservesServerOwnedFields(t *testing.T) {
	current := baseSnapshot()
	current.Cards = []entity.Card{{
		ID:        "c1",
		Name:      "Shaft",
		CreatedAt: 1700000000000,
		Logs:      nil,
	}}
	store := newFakeStore(current, 4)
	svc := newTestService(store)

	// Client tries to rewrite createdAt.
	incoming := baseSnapshot()
	incoming.Cards = []entity.Card{{ID: "c1", Name: "Shaft v2", CreatedAt: 42}}

	_, err := svc.Write(context.Background(), 4, incoming)
	require.NoError(t, err)

	assert.Equal(t, "Shaft v2", store.snap.Cards[0].Name)
	assert.Equal(t, int64(1700000000000), store.snap.Cards[0].CreatedAt)
	require.NotNil(t, store.snap.Cards[0].InitialSnapshot)
}

func TestWrite_AssignsOpCodes(t *testing.T) {
	store := newFakeStore(baseSnapshot(), 1)
	svc := newTestService(store)

	incoming := baseSnapshot()
	incoming.Ops = append(incoming.Ops, entity.OperationType{ID: "op-new", Name: "Turning"})

	_, err := svc.Write(context.Background(), 1, incoming)
	require.NoError(t, err)

	var got string
	for _, op := range store.snap.Ops {
		if op.ID == "op-new" {
			got = op.Code
		}
	}
	assert.Regexp(t, `^OP-[0-9A-F]{4}$`, got)
	assert.NotEqual(t, "OP-AAAA", got)
}

func TestRead_DoesNotPersist(t *testing.T) {
	snap := baseSnapshot()
	snap.Ops = append(snap.Ops, entity.OperationType{ID: "op-bare", Name: "Deburring"})
	store := newFakeStore(snap, 3)
	svc := newTestService(store)

	got, err := svc.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Version)

	// The read repaired the missing code in the returned copy only.
	for _, op := range got.Ops {
		assert.NotEmpty(t, op.Code)
	}
	assert.Equal(t, 0, store.saves)
	for _, op := range store.snap.Ops {
		if op.ID == "op-bare" {
			assert.Empty(t, op.Code)
		}
	}
}

func TestWrite_StoreErrorPassesThrough(t *testing.T) {
	boom := errors.New("disk on fire")
	failing := &failingStore{
		fakeStore: newFakeStore(baseSnapshot(), 1),
		err:       boom,
	}

	_, err := newTestService(failing).Write(context.Background(), 1, baseSnapshot())
	assert.ErrorIs(t, err, boom)
}

type failingStore struct {
	*fakeStore
	err error
}

func (s *failingStore) Save(ctx context.Context, snap *entity.Snapshot, expected, next int64) error {
	return s.err
}
