package snapshot

import (
	"github.com/bitfantasy/nimo-mes/internal/idgen"
	"github.com/bitfantasy/nimo-mes/internal/model/entity"
)

// ReconcileCodes restores the two code namespaces of a document in one
// linear pass: catalog entries first (empty codes filled in), then every
// card's route operations in order. A route operation referencing a catalog
// entry adopts the catalog's current code when it is the first claimant;
// otherwise it keeps its own unique code, and empty or colliding codes get a
// fresh one. Later entries see all earlier assignments, so the result is
// collision-free, and running the pass again yields no further changes.
//
// Runs after every merge and before every read response. Mutates snap in
// place. Returns ErrCodeExhausted if a unique code cannot be produced within
// the generator's retry budget.
func ReconcileCodes(snap *entity.Snapshot) error {
	catalog := make(map[string]struct{}, len(snap.Ops))
	used := make(map[string]struct{}, len(snap.Ops))

	for i := range snap.Ops {
		if snap.Ops[i].Code == "" {
			code := idgen.NewOperationCode(used)
			if _, taken := used[code]; taken {
				return ErrCodeExhausted
			}
			snap.Ops[i].Code = code
		}
		catalog[snap.Ops[i].Code] = struct{}{}
		used[snap.Ops[i].Code] = struct{}{}
	}

	codeByOp := make(map[string]string, len(snap.Ops))
	for _, op := range snap.Ops {
		if op.ID != "" {
			codeByOp[op.ID] = op.Code
		}
	}

	// Codes already handed to route operations in this pass.
	seen := make(map[string]struct{})
	for ci := range snap.Cards {
		card := &snap.Cards[ci]
		if card.Operations == nil {
			card.Operations = []entity.RouteOperation{}
		}
		for oi := range card.Operations {
			op := &card.Operations[oi]

			own := ""
			if op.OpID != "" {
				own = codeByOp[op.OpID]
			}
			if own != "" {
				if _, claimed := seen[own]; !claimed {
					op.OpCode = own
				}
			}

			_, dupRoute := seen[op.OpCode]
			_, dupCatalog := catalog[op.OpCode]
			if op.OpCode == "" || dupRoute || (dupCatalog && op.OpCode != own) {
				code := idgen.NewOperationCode(used)
				if _, taken := used[code]; taken {
					return ErrCodeExhausted
				}
				op.OpCode = code
			}
			seen[op.OpCode] = struct{}{}
			used[op.OpCode] = struct{}{}
		}
	}
	return nil
}
