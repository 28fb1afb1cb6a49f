// Package report aggregates machine results into summaries and exports them
// as CSV, JSON or a terminal table.
package report

import (
	"errors"
	"strconv"
	"strings"

	"github.com/deepaksuthar40128/RemoteDx/pkg/diag"
	"github.com/deepaksuthar40128/RemoteDx/pkg/machine"
)

// ErrNoRows is returned by exporters when there is nothing to write.
var ErrNoRows = errors.New("no detailed results to export")

// Header is the CSV column order.
var Header = []string{
	"machine_name", "machine_ip", "machine_type", "check_name",
	"status", "duration_sec", "details", "commands_run", "attempts",
}

// Row is one flattened (machine, check) result.
type Row struct {
	MachineName string      `json:"machine_name"`
	MachineIP   string      `json:"machine_ip"`
	MachineType string      `json:"machine_type"`
	CheckName   string      `json:"check_name"`
	Status      diag.Status `json:"status"`
	DurationSec float64     `json:"duration_sec"`
	Details     string      `json:"details"`
	CommandsRun string      `json:"commands_run"`
	Attempts    int         `json:"attempts"`
}

// Rows flattens the latest results of every machine, in machine order.
func Rows(machines []*machine.Profile) []Row {
	var rows []Row
	for _, m := range machines {
		for _, r := range m.Results() {
			rows = append(rows, Row{
				MachineName: m.Name(),
				MachineIP:   m.Address(),
				MachineType: m.Variant().String(),
				CheckName:   r.CheckName,
				Status:      r.Status,
				DurationSec: r.DurationSeconds(),
				Details:     r.Details,
				CommandsRun: strings.Join(r.CommandsRun, ", "),
				Attempts:    r.Attempts,
			})
		}
	}
	return rows
}

// Strings returns the row as CSV fields in Header order.
func (r Row) Strings() []string {
	return []string{
		r.MachineName,
		r.MachineIP,
		r.MachineType,
		r.CheckName,
		r.Status.String(),
		strconv.FormatFloat(r.DurationSec, 'f', -1, 64),
		r.Details,
		r.CommandsRun,
		strconv.Itoa(r.Attempts),
	}
}
