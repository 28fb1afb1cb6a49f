package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/deepaksuthar40128/RemoteDx/pkg/machine"
)

// WriteCSV writes the header and rows to w. It returns ErrNoRows, writing
// nothing, when rows is empty.
func WriteCSV(w io.Writer, rows []Row) error {
	if len(rows) == 0 {
		return ErrNoRows
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("csv: header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(r.Strings()); err != nil {
			return fmt.Errorf("csv: row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportCSV writes the machines' results to path. No file is created when
// there are no results.
func ExportCSV(path string, machines []*machine.Profile) error {
	rows := Rows(machines)
	if len(rows) == 0 {
		return ErrNoRows
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csv: create %s: %w", path, err)
	}
	if err := WriteCSV(f, rows); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
