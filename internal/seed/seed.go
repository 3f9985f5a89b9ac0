// Package seed builds the demo document persisted on first access to an
// empty store.
package seed

import (
	"encoding/json"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/idgen"
	"github.com/bitfantasy/nimo-mes/internal/model/entity"
)

// DefaultSnapshot returns the initial document: three work centers, three
// catalog operations and one demo route card, at version 1.
func DefaultSnapshot() *entity.Snapshot {
	centers := []entity.WorkCenter{
		{ID: idgen.NewID("wc"), Name: "Machining", Description: "Turning and milling operations"},
		{ID: idgen.NewID("wc"), Name: "Coating / spraying", Description: "Coatings, thermal spraying"},
		{ID: idgen.NewID("wc"), Name: "Quality control", Description: "Measurement, inspection, visual check"},
	}

	used := make(map[string]struct{})
	ops := make([]entity.OperationType, 0, 3)
	for _, spec := range []struct {
		name, desc string
		recTime    int
	}{
		{"Turning", "Rough and finish passes", 40},
		{"Coating", "HVOF / APS", 60},
		{"Dimensional inspection", "Measurement and report", 20},
	} {
		code := idgen.NewOperationCode(used)
		used[code] = struct{}{}
		ops = append(ops, entity.OperationType{
			ID:          idgen.NewID("op"),
			Code:        code,
			Name:        spec.name,
			Description: spec.desc,
			RecTime:     spec.recTime,
		})
	}

	card := entity.Card{
		ID:          idgen.NewID("card"),
		Barcode:     idgen.NewBarcode(nil),
		Name:        "Drive shaft Ø60",
		OrderNo:     "DEMO-001",
		Description: "Demo route card.",
		Quantity:    1,
		Drawing:     "DWG-001",
		Material:    "Steel",
		Status:      entity.StatusNotStarted,
		CreatedAt:   time.Now().UnixMilli(),
		Logs:        []json.RawMessage{},
		Attachments: []entity.Attachment{},
		Operations: []entity.RouteOperation{
			NewRouteOperation(ops[0], centers[0], "I. Ivanov", 40, 1),
			NewRouteOperation(ops[1], centers[1], "P. Petrov", 60, 2),
			NewRouteOperation(ops[2], centers[2], "S. Sidorov", 20, 3),
		},
	}

	return &entity.Snapshot{
		Version: 1,
		Cards:   []entity.Card{card},
		Ops:     ops,
		Centers: centers,
	}
}

// NewRouteOperation instantiates a catalog operation inside a card's routing.
func NewRouteOperation(op entity.OperationType, center entity.WorkCenter, executor string, plannedMinutes, order int) entity.RouteOperation {
	code := op.Code
	if code == "" {
		code = idgen.RawOperationCode()
	}
	name := op.Name
	if name == "" {
		name = "Operation"
	}
	return entity.RouteOperation{
		ID:             idgen.NewID("rop"),
		OpID:           op.ID,
		OpCode:         code,
		OpName:         name,
		CenterID:       center.ID,
		CenterName:     center.Name,
		Executor:       executor,
		PlannedMinutes: plannedMinutes,
		Status:         entity.StatusNotStarted,
		Order:          order,
	}
}
