package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/deepaksuthar40128/RemoteDx/pkg/diag"
	"github.com/deepaksuthar40128/RemoteDx/pkg/machine"
)

func profileWith(t *testing.T, name string, v machine.Variant, records ...diag.Record) *machine.Profile {
	t.Helper()
	m, err := machine.New(machine.Config{Name: name, Address: "10.1.1.1", Variant: v},
		machine.WithInstalledSoftware(map[string]string{}))
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range records {
		m.Record(r)
	}
	return m
}

func rec(check string, status diag.Status, details string, attempts int) diag.Record {
	return diag.Record{
		CheckName:   check,
		Status:      status,
		Duration:    1234 * time.Microsecond,
		Details:     details,
		CommandsRun: []string{"date +%s", "ntpdate -q pool.ntp.org"},
		Attempts:    attempts,
	}
}

func sampleMachines(t *testing.T) []*machine.Profile {
	return []*machine.Profile{
		profileWith(t, "web-01", machine.VariantLive,
			rec("ping_check", diag.StatusPassed, "Latency 12.00ms.", 1),
			rec("clock_sync_check", diag.StatusFailed, "Drift 3.00s (abs: 3.00s) > threshold 1.5s.", 2),
		),
		profileWith(t, "ci-02", machine.VariantTest,
			rec("ping_check", diag.StatusError, "Error during ping_check after 2 attempt(s): panic - boom", 2),
			rec("software_version_check", diag.StatusPassed, "No expected software.", 1),
		),
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleMachines(t))
	if s.Total != 4 || s.Passed != 2 || s.Failed != 2 {
		t.Fatalf("totals = %d/%d/%d, want 4/2/2", s.Total, s.Passed, s.Failed)
	}
	if s.PassRate != 50 {
		t.Errorf("pass rate = %v, want 50", s.PassRate)
	}
	if len(s.Machines[1].Issues) != 1 || s.Machines[1].Issues[0].Status != diag.StatusError {
		t.Errorf("errored checks should count as failed issues: %+v", s.Machines[1].Issues)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.PassRate != 0 || s.Total != 0 {
		t.Fatalf("unexpected summary %+v", s)
	}
	var buf bytes.Buffer
	if err := s.Render(&buf); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "Pass Rate") {
		t.Error("pass rate line should be omitted when there are no checks")
	}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	if err := Summarize(sampleMachines(t)).Render(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"--- Final Diagnostics Summary Report ---",
		"Machine: web-01 (10.1.1.1) - Type: live",
		"    - clock_sync_check: failed (Drift 3.00s (abs: 3.00s) > threshold 1.5s.) [Attempts: 2]",
		"Total Machines Processed: 2",
		"Overall Checks Failed (or Errored): 2",
		"Overall Pass Rate: 50.00%",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q\n%s", want, out)
		}
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, Rows(sampleMachines(t))); err != nil {
		t.Fatal(err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("re-reading csv: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("expected header plus 4 rows, got %d", len(records))
	}
	if strings.Join(records[0], ",") != strings.Join(Header, ",") {
		t.Errorf("header = %v", records[0])
	}
	row := records[2]
	if row[0] != "web-01" || row[2] != "live" || row[4] != "failed" {
		t.Errorf("unexpected row %v", row)
	}
	if row[5] != "0.001" {
		t.Errorf("duration_sec = %q, want 0.001", row[5])
	}
	if row[7] != "date +%s, ntpdate -q pool.ntp.org" {
		t.Errorf("commands_run = %q", row[7])
	}
	if row[8] != "2" {
		t.Errorf("attempts = %q", row[8])
	}
}

func TestExportCSVNoRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	err := ExportCSV(path, []*machine.Profile{profileWith(t, "idle", machine.VariantDev)})
	if !errors.Is(err, ErrNoRows) {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("no file should be written when there are no rows")
	}
}

func TestExportCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")
	if err := ExportCSV(path, sampleMachines(t)); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "machine_name,machine_ip,machine_type,check_name") {
		t.Errorf("unexpected file start: %q", string(data[:40]))
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTable(&buf, Rows(sampleMachines(t)), false); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "MACHINE") || !strings.Contains(lines[3], "error") {
		t.Errorf("unexpected table:\n%s", buf.String())
	}

	buf.Reset()
	if err := WriteTable(&buf, Rows(sampleMachines(t)), true); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Error("colored table should contain ANSI escapes")
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleMachines(t)); err != nil {
		t.Fatal(err)
	}
	var out []struct {
		Name    string `json:"name"`
		Results []struct {
			Check       string  `json:"check"`
			Status      string  `json:"status"`
			DurationSec float64 `json:"duration_sec"`
		} `json:"results"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 2 || out[0].Name != "web-01" || len(out[0].Results) != 2 {
		t.Fatalf("unexpected JSON: %s", buf.String())
	}
	if out[0].Results[1].Status != "failed" || out[0].Results[1].DurationSec != 0.001 {
		t.Errorf("unexpected result %+v", out[0].Results[1])
	}
}
