package service

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/bitfantasy/nimo-mes/internal/model/entity"
)

// ExportService 报表导出服务
type ExportService struct{}

// NewExportService 创建报表导出服务
func NewExportService() *ExportService {
	return &ExportService{}
}

// CardsWorkbook renders the card register as an xlsx workbook: one row per
// card with progress and piece counts rolled up from its route operations.
func (s *ExportService) CardsWorkbook(snap *entity.Snapshot) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Cards"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{
		"Barcode", "Name", "Order No", "Quantity", "Drawing", "Material",
		"Status", "Archived", "Created", "Operations", "Done", "Good", "Scrap", "Hold",
	}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	for row, card := range snap.Cards {
		done, good, scrap, hold := 0, 0, 0, 0
		for _, op := range card.Operations {
			if op.Status == entity.StatusDone {
				done++
			}
			good += op.GoodCount
			scrap += op.ScrapCount
			hold += op.HoldCount
		}

		created := ""
		if card.CreatedAt > 0 {
			created = time.UnixMilli(card.CreatedAt).Format("2006-01-02 15:04")
		}

		values := []interface{}{
			card.Barcode, card.Name, card.OrderNo, card.Quantity,
			card.Drawing, card.Material, card.Status, card.Archived,
			created, len(card.Operations), done, good, scrap, hold,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, fmt.Errorf("data cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, fmt.Errorf("write cell: %w", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render workbook: %w", err)
	}
	return buf.Bytes(), nil
}
