package snapshot

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bitfantasy/nimo-mes/internal/model/entity"
)

// Structural limits enforced before a merge is attempted. A payload past any
// of them is rejected with a 400, never retried.
const (
	MaxCards           = 500
	MaxOps             = 500
	MaxCenters         = 200
	MaxLogsPerCard     = 1000
	MaxOpsPerCard      = 500
	MaxFilesPerCard    = 50
	MaxAttachmentBytes = 10 << 20
)

// Validate checks the structural bounds of a client-submitted document:
// collection sizes, field lengths and attachment content. The merge engine
// assumes input that passed this check.
func Validate(snap *entity.Snapshot) error {
	if len(snap.Cards) > MaxCards {
		return fmt.Errorf("too many cards in payload: %d > %d", len(snap.Cards), MaxCards)
	}
	if len(snap.Ops) > MaxOps {
		return fmt.Errorf("too many operation types in payload: %d > %d", len(snap.Ops), MaxOps)
	}
	if len(snap.Centers) > MaxCenters {
		return fmt.Errorf("too many work centers in payload: %d > %d", len(snap.Centers), MaxCenters)
	}

	for i, center := range snap.Centers {
		if err := checkString(center.ID, "centers.id", 120); err != nil {
			return indexed(err, "center", i)
		}
		if err := checkString(center.Name, "centers.name", 255); err != nil {
			return indexed(err, "center", i)
		}
		if err := checkString(center.Description, "centers.desc", 2000); err != nil {
			return indexed(err, "center", i)
		}
	}

	for i, op := range snap.Ops {
		if err := validateOp(op); err != nil {
			return indexed(err, "operation type", i)
		}
	}

	for i := range snap.Cards {
		if err := validateCard(&snap.Cards[i]); err != nil {
			return indexed(err, "card", i)
		}
	}
	return nil
}

func validateOp(op entity.OperationType) error {
	if err := checkString(op.ID, "ops.id", 120); err != nil {
		return err
	}
	if err := checkString(op.Code, "ops.code", 64); err != nil {
		return err
	}
	if err := checkString(op.Name, "ops.name", 255); err != nil {
		return err
	}
	if err := checkString(op.Description, "ops.desc", 2000); err != nil {
		return err
	}
	if op.RecTime < 0 {
		return fmt.Errorf("field ops.recTime must be a non-negative integer")
	}
	return nil
}

func validateCard(card *entity.Card) error {
	if err := checkString(card.ID, "cards.id", 120); err != nil {
		return err
	}
	if err := checkString(card.Barcode, "cards.barcode", 64); err != nil {
		return err
	}
	if err := checkString(card.Name, "cards.name", 255); err != nil {
		return err
	}
	if err := checkString(card.OrderNo, "cards.orderNo", 120); err != nil {
		return err
	}
	if err := checkString(card.Description, "cards.desc", 5000); err != nil {
		return err
	}
	if err := checkString(card.Drawing, "cards.drawing", 255); err != nil {
		return err
	}
	if err := checkString(card.Material, "cards.material", 255); err != nil {
		return err
	}
	if err := checkString(card.Status, "cards.status", 50); err != nil {
		return err
	}
	if card.Quantity < 0 {
		return fmt.Errorf("field cards.quantity must be a non-negative integer")
	}
	if card.CreatedAt < 0 {
		return fmt.Errorf("field cards.createdAt must be a non-negative integer")
	}
	if len(card.Logs) > MaxLogsPerCard {
		return fmt.Errorf("too many log entries: %d > %d", len(card.Logs), MaxLogsPerCard)
	}
	if len(card.Operations) > MaxOpsPerCard {
		return fmt.Errorf("too many route operations: %d > %d", len(card.Operations), MaxOpsPerCard)
	}
	for i, op := range card.Operations {
		if err := validateRouteOp(op); err != nil {
			return indexed(err, "route operation", i)
		}
	}
	if len(card.Attachments) > MaxFilesPerCard {
		return fmt.Errorf("too many attachments: %d > %d", len(card.Attachments), MaxFilesPerCard)
	}
	for i, file := range card.Attachments {
		if err := validateAttachment(file); err != nil {
			return indexed(err, "attachment", i)
		}
	}
	return nil
}

func validateRouteOp(op entity.RouteOperation) error {
	if err := checkString(op.ID, "cards.operations.id", 120); err != nil {
		return err
	}
	if err := checkString(op.OpID, "cards.operations.opId", 120); err != nil {
		return err
	}
	if err := checkString(op.OpCode, "cards.operations.opCode", 64); err != nil {
		return err
	}
	if err := checkString(op.OpName, "cards.operations.opName", 255); err != nil {
		return err
	}
	if err := checkString(op.CenterID, "cards.operations.centerId", 120); err != nil {
		return err
	}
	if err := checkString(op.CenterName, "cards.operations.centerName", 255); err != nil {
		return err
	}
	if err := checkString(op.Comment, "cards.operations.comment", 2000); err != nil {
		return err
	}
	return nil
}

func validateAttachment(file entity.Attachment) error {
	if err := checkString(file.ID, "cards.attachments.id", 120); err != nil {
		return err
	}
	if err := checkString(file.Name, "cards.attachments.name", 255); err != nil {
		return err
	}
	if err := checkString(file.ContentType, "cards.attachments.type", 150); err != nil {
		return err
	}
	if file.Size < 0 {
		return fmt.Errorf("field cards.attachments.size must be a non-negative integer")
	}
	if file.Content != "" {
		decoded, err := DecodeAttachmentContent(file.Content)
		if err != nil {
			return fmt.Errorf("field cards.attachments.content must be valid base64: %w", err)
		}
		if len(decoded) > MaxAttachmentBytes {
			return fmt.Errorf("field cards.attachments.content exceeds the maximum size")
		}
	}
	return nil
}

// DecodeAttachmentContent decodes attachment content, tolerating a data: URL
// prefix ("data:image/png;base64,....").
func DecodeAttachmentContent(content string) ([]byte, error) {
	if idx := strings.LastIndexByte(content, ','); idx >= 0 {
		content = content[idx+1:]
	}
	return base64.StdEncoding.DecodeString(content)
}

func checkString(value, field string, maxLength int) error {
	// Absent and empty are indistinguishable after JSON binding, so empty
	// values pass; only the length bound is enforced.
	if utf8.RuneCountInString(value) > maxLength {
		return fmt.Errorf("field %s exceeds the maximum length %d", field, maxLength)
	}
	return nil
}

func indexed(err error, kind string, i int) error {
	return fmt.Errorf("%s #%d: %w", kind, i, err)
}
