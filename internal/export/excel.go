package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"github.com/yukikurage/relief-management-api/internal/models"
)

const needSheet = "Needs"

var needColumnWidths = []float64{
	8,  // ID
	24, // Area
	24, // Product
	16, // Category
	10, // Unit
	10, // Quantity
	10, // Priority
	12, // Status
	40, // Notes
	18, // Created At
}

func WriteNeedsXLSX(w io.Writer, needs []models.Need) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", needSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range NeedHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(needSheet, cell, header); err != nil {
			return fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(needSheet, cell, cell, headerStyle); err != nil {
			return fmt.Errorf("failed to set header style: %w", err)
		}

		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(needSheet, name, name, needColumnWidths[col]); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, n := range needs {
		row := i + 2
		values := []interface{}{
			n.ID,
			n.Area.Name,
			n.Product.Name,
			n.Product.Category.Name,
			n.Product.Unit,
			n.Quantity,
			string(n.Priority),
			string(n.Status),
			n.Notes,
			n.CreatedAt.Format(createdAtLayout),
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(needSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write need %d: %w", n.ID, err)
		}
	}

	if err := f.SetPanes(needSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header row: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
