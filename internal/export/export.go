// Package export renders need listings as spreadsheets and printable PDF.
package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/yukikurage/relief-management-api/internal/models"
)

// Format is a tabular export format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// ParseFormat maps a query value to a Format. An empty value means CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX, "excel":
		return FormatXLSX, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	}
	return "text/csv; charset=utf-8"
}

// Filename names an export file taken at t.
func (f Format) Filename(t time.Time) string {
	return "needs_" + t.Format("20060102_150405") + "." + string(f)
}

// NeedHeader is the column layout of every need export.
var NeedHeader = []string{
	"ID",
	"Area",
	"Product",
	"Category",
	"Unit",
	"Quantity",
	"Priority",
	"Status",
	"Notes",
	"Created At",
}

const createdAtLayout = "2006-01-02 15:04"

// needRow flattens a need with its preloaded area and product.
func needRow(n models.Need) []string {
	return []string{
		strconv.FormatUint(n.ID, 10),
		n.Area.Name,
		n.Product.Name,
		n.Product.Category.Name,
		n.Product.Unit,
		strconv.Itoa(n.Quantity),
		string(n.Priority),
		string(n.Status),
		n.Notes,
		n.CreatedAt.Format(createdAtLayout),
	}
}

// WriteNeeds writes needs to w in format f.
func WriteNeeds(w io.Writer, f Format, needs []models.Need) error {
	switch f {
	case FormatXLSX:
		return WriteNeedsXLSX(w, needs)
	case FormatPDF:
		return WriteNeedsPDF(w, needs)
	default:
		return WriteNeedsCSV(w, needs)
	}
}
