package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/deepaksuthar40128/RemoteDx/pkg/diag"
)

// WriteTable renders rows as an aligned table. Statuses are colored when
// colored is set.
func WriteTable(w io.Writer, rows []Row, colored bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MACHINE\tTYPE\tCHECK\tSTATUS\tATTEMPTS\tDURATION\tDETAILS")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%.3fs\t%s\n",
			r.MachineName, r.MachineType, r.CheckName, statusLabel(r.Status, colored),
			r.Attempts, r.DurationSec, r.Details)
	}
	return tw.Flush()
}

func statusLabel(s diag.Status, colored bool) string {
	if !colored {
		return s.String()
	}
	var c *color.Color
	switch s {
	case diag.StatusPassed:
		c = color.New(color.FgGreen)
	case diag.StatusFailed:
		c = color.New(color.FgYellow)
	default:
		c = color.New(color.FgRed, color.Bold)
	}
	c.EnableColor()
	return c.Sprint(s.String())
}
