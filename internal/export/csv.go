package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/yukikurage/relief-management-api/internal/models"
)

func WriteNeedsCSV(w io.Writer, needs []models.Need) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(NeedHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, n := range needs {
		if err := cw.Write(needRow(n)); err != nil {
			return fmt.Errorf("failed to write need %d: %w", n.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
