package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/deepaksuthar40128/RemoteDx/pkg/diag"
	"github.com/deepaksuthar40128/RemoteDx/pkg/machine"
)

// MachineSummary totals one machine's results. Failed includes errored checks.
type MachineSummary struct {
	Name    string        `json:"name"`
	Address string        `json:"ip_address"`
	Variant string        `json:"machine_type"`
	Total   int           `json:"total"`
	Passed  int           `json:"passed"`
	Failed  int           `json:"failed"`
	Issues  []diag.Record `json:"failed_checks,omitempty"`
}

// Summary totals a whole run.
type Summary struct {
	Machines []MachineSummary `json:"machines"`
	Total    int              `json:"total_checks"`
	Passed   int              `json:"passed"`
	Failed   int              `json:"failed"`
	PassRate float64          `json:"pass_rate"`
}

// Summarize totals the latest results of each machine.
func Summarize(machines []*machine.Profile) Summary {
	var s Summary
	for _, m := range machines {
		ms := MachineSummary{
			Name:    m.Name(),
			Address: m.Address(),
			Variant: m.Variant().String(),
		}
		for _, r := range m.Results() {
			ms.Total++
			if r.Status.OK() {
				ms.Passed++
				continue
			}
			ms.Failed++
			ms.Issues = append(ms.Issues, r)
		}
		s.Machines = append(s.Machines, ms)
		s.Total += ms.Total
		s.Passed += ms.Passed
		s.Failed += ms.Failed
	}
	if s.Total > 0 {
		s.PassRate = float64(s.Passed) / float64(s.Total) * 100
	}
	return s
}

// Render writes the plain-text summary report.
func (s Summary) Render(w io.Writer) error {
	var b strings.Builder
	b.WriteString("\n--- Final Diagnostics Summary Report ---\n")
	for _, m := range s.Machines {
		fmt.Fprintf(&b, "\nMachine: %s (%s) - Type: %s\n", m.Name, m.Address, m.Variant)
		fmt.Fprintf(&b, "  Total Checks: %d\n", m.Total)
		fmt.Fprintf(&b, "  Passed: %d\n", m.Passed)
		fmt.Fprintf(&b, "  Failed: %d\n", m.Failed)
		if len(m.Issues) > 0 {
			b.WriteString("  Failed Check Details:\n")
			for _, r := range m.Issues {
				fmt.Fprintf(&b, "    - %s: %s (%s) [Attempts: %d]\n", r.CheckName, r.Status, r.Details, r.Attempts)
			}
		}
	}

	b.WriteString("\n--- Overall Summary ---\n")
	fmt.Fprintf(&b, "Total Machines Processed: %d\n", len(s.Machines))
	fmt.Fprintf(&b, "Overall Total Checks Performed: %d\n", s.Total)
	fmt.Fprintf(&b, "Overall Checks Passed: %d\n", s.Passed)
	fmt.Fprintf(&b, "Overall Checks Failed (or Errored): %d\n", s.Failed)
	if s.Total > 0 {
		fmt.Fprintf(&b, "Overall Pass Rate: %.2f%%\n", s.PassRate)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
