package entity

import "encoding/json"

// Card/route operation status values
const (
	StatusNotStarted = "NOT_STARTED"
	StatusInProgress = "IN_PROGRESS"
	StatusPaused     = "PAUSED"
	StatusDone       = "DONE"
)

// Snapshot 共享状态文档 (route cards + catalogs, versioned as a whole)
type Snapshot struct {
	Version int64           `json:"version"`
	Cards   []Card          `json:"cards"`
	Ops     []OperationType `json:"ops"`
	Centers []WorkCenter    `json:"centers"`
}

// OperationType 工艺操作目录条目; Code is unique across the catalog
type OperationType struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"desc"`
	RecTime     int    `json:"recTime"`
}

// WorkCenter 工作中心
type WorkCenter struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"desc"`
}

// Card 制造路线卡 (work order). CreatedAt and InitialSnapshot are
// server-owned: once set they are never overwritten by client values.
// Log entries are client-owned audit records; the server only bounds
// their count, so they stay opaque.
type Card struct {
	ID              string            `json:"id"`
	Barcode         string            `json:"barcode"`
	Name            string            `json:"name"`
	OrderNo         string            `json:"orderNo"`
	Description     string            `json:"desc"`
	Quantity        int               `json:"quantity"`
	Drawing         string            `json:"drawing"`
	Material        string            `json:"material"`
	Status          string            `json:"status"`
	Archived        bool              `json:"archived"`
	CreatedAt       int64             `json:"createdAt"` // ms since epoch, 0 = unset
	Logs            []json.RawMessage `json:"logs"`
	InitialSnapshot *Card             `json:"initialSnapshot"`
	Attachments     []Attachment      `json:"attachments"`
	Operations      []RouteOperation  `json:"operations"`
}

// RouteOperation 路线卡中的工序实例. OpCode is a denormalized copy of the
// referenced OperationType.Code but must stay unique across every route
// operation in every card.
type RouteOperation struct {
	ID             string `json:"id"`
	OpID           string `json:"opId"`
	OpCode         string `json:"opCode"`
	OpName         string `json:"opName"`
	CenterID       string `json:"centerId"`
	CenterName     string `json:"centerName"`
	Executor       string `json:"executor"`
	PlannedMinutes int    `json:"plannedMinutes"`
	Status         string `json:"status"`
	FirstStartedAt *int64 `json:"firstStartedAt"`
	StartedAt      *int64 `json:"startedAt"`
	LastPausedAt   *int64 `json:"lastPausedAt"`
	FinishedAt     *int64 `json:"finishedAt"`
	ActualSeconds  *int64 `json:"actualSeconds"`
	ElapsedSeconds int64  `json:"elapsedSeconds"`
	Order          int    `json:"order"`
	Comment        string `json:"comment"`
	GoodCount      int    `json:"goodCount"`
	ScrapCount     int    `json:"scrapCount"`
	HoldCount      int    `json:"holdCount"`
}

// Attachment 附件, content is base64 (optionally with a data: URL prefix)
type Attachment struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"type"`
	Size        int64  `json:"size"`
	Content     string `json:"content"`
}

// Clone returns a deep copy sharing no mutable sub-structure.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	next := &Snapshot{Version: s.Version}
	if s.Cards != nil {
		next.Cards = make([]Card, len(s.Cards))
		for i := range s.Cards {
			next.Cards[i] = *s.Cards[i].Clone()
		}
	}
	if s.Ops != nil {
		next.Ops = append([]OperationType(nil), s.Ops...)
	}
	if s.Centers != nil {
		next.Centers = append([]WorkCenter(nil), s.Centers...)
	}
	return next
}

// Clone returns a deep copy of the card.
func (c *Card) Clone() *Card {
	if c == nil {
		return nil
	}
	next := *c
	if c.Logs != nil {
		next.Logs = make([]json.RawMessage, len(c.Logs))
		for i, raw := range c.Logs {
			next.Logs[i] = append(json.RawMessage(nil), raw...)
		}
	}
	if c.Attachments != nil {
		next.Attachments = append([]Attachment(nil), c.Attachments...)
	}
	if c.Operations != nil {
		next.Operations = make([]RouteOperation, len(c.Operations))
		for i := range c.Operations {
			next.Operations[i] = *c.Operations[i].Clone()
		}
	}
	next.InitialSnapshot = c.InitialSnapshot.Clone()
	return &next
}

// Clone returns a deep copy of the route operation.
func (o *RouteOperation) Clone() *RouteOperation {
	if o == nil {
		return nil
	}
	next := *o
	next.FirstStartedAt = cloneInt64(o.FirstStartedAt)
	next.StartedAt = cloneInt64(o.StartedAt)
	next.LastPausedAt = cloneInt64(o.LastPausedAt)
	next.FinishedAt = cloneInt64(o.FinishedAt)
	next.ActualSeconds = cloneInt64(o.ActualSeconds)
	return &next
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	next := *v
	return &next
}
