// Package snapshot implements the state synchronization engine: merging a
// client-submitted document into the persisted one, keeping human-facing
// codes globally unique, and validating payload structure. All functions are
// pure with respect to their inputs; correctness relies on merges being
// applied one at a time behind the version gate.
package snapshot

import (
	"encoding/json"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/idgen"
	"github.com/bitfantasy/nimo-mes/internal/model/entity"
)

// Merge combines the persisted document with an incoming client document.
// The incoming card list is authoritative (full replace by id), but
// server-owned fields survive: createdAt and a previously captured
// initialSnapshot are copied from the existing card, never from the client.
// Catalog codes are deduplicated in submission order so that two writers
// introducing the same fresh code in one merge window cannot both keep it.
//
// Neither input is mutated.
func Merge(current, incoming *entity.Snapshot) (*entity.Snapshot, error) {
	merged := &entity.Snapshot{
		Centers: append([]entity.WorkCenter(nil), incoming.Centers...),
	}

	ops, err := dedupeOpCodes(current.Ops, incoming.Ops)
	if err != nil {
		return nil, err
	}
	merged.Ops = ops

	existing := make(map[string]*entity.Card, len(current.Cards))
	for i := range current.Cards {
		existing[current.Cards[i].ID] = &current.Cards[i]
	}

	merged.Cards = make([]entity.Card, 0, len(incoming.Cards))
	nowMillis := time.Now().UnixMilli()
	for i := range incoming.Cards {
		next := incoming.Cards[i].Clone()
		prev := existing[next.ID]

		if prev != nil && prev.CreatedAt != 0 {
			next.CreatedAt = prev.CreatedAt
		} else if next.CreatedAt == 0 {
			next.CreatedAt = nowMillis
		}
		if next.Logs == nil {
			next.Logs = []json.RawMessage{}
		}
		if prev != nil && prev.InitialSnapshot != nil {
			next.InitialSnapshot = prev.InitialSnapshot.Clone()
		} else if next.InitialSnapshot == nil {
			frozen := next.Clone()
			frozen.Logs = []json.RawMessage{}
			next.InitialSnapshot = frozen
		}
		merged.Cards = append(merged.Cards, *next)
	}

	return merged, nil
}

// dedupeOpCodes resolves catalog code collisions in submission order. A code
// already owned by a different operation type gets regenerated against the
// accumulating used set; each resolution is visible to the next one.
func dedupeOpCodes(currentOps, incomingOps []entity.OperationType) ([]entity.OperationType, error) {
	used := make(map[string]struct{}, len(currentOps)+len(incomingOps))
	owners := make(map[string]string, len(currentOps))

	for _, op := range currentOps {
		if op.Code == "" {
			continue
		}
		owner := op.ID
		if owner == "" {
			owner = op.Code
		}
		owners[op.Code] = owner
		used[op.Code] = struct{}{}
	}

	ops := make([]entity.OperationType, len(incomingOps))
	for i, op := range incomingOps {
		ownerKey := op.ID
		if ownerKey == "" {
			// New entries without an id still need a stable identity for
			// this merge pass.
			ownerKey = idgen.NewID("incoming")
		}
		if op.Code != "" {
			if owner, claimed := owners[op.Code]; claimed && owner != ownerKey {
				op.Code = idgen.NewOperationCode(used)
				if _, taken := used[op.Code]; taken {
					return nil, ErrCodeExhausted
				}
			}
			owners[op.Code] = ownerKey
			used[op.Code] = struct{}{}
		}
		ops[i] = op
	}
	return ops, nil
}
